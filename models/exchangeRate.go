package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bitbucket.org/mmdatafocus/tyrestock_backend/config"
	"bitbucket.org/mmdatafocus/tyrestock_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ExchangeRate is a month's RMB to MWK rate as kept in the workbooks.
// Cash and Mukuru channels carry different rates.
type ExchangeRate struct {
	ID        int             `gorm:"primary_key" json:"id"`
	Year      int             `gorm:"not null;uniqueIndex:idx_rate_period" json:"year"`
	Month     int             `gorm:"not null;uniqueIndex:idx_rate_period" json:"month"`
	RateType  RateType        `gorm:"size:10;not null;uniqueIndex:idx_rate_period" json:"rate_type"`
	Rate      decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"rate"`
	CreatedAt time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// UpsertExchangeRate writes a month's rate, replacing any earlier value for
// the same period and channel.
func UpsertExchangeRate(ctx context.Context, tx *gorm.DB, year, month int, rateType RateType, rate decimal.Decimal) error {
	if !rate.IsPositive() {
		return errors.New("rate must be positive")
	}
	db := txOrDB(tx)
	record := ExchangeRate{
		Year:     year,
		Month:    month,
		RateType: rateType,
		Rate:     rate,
	}
	return db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "year"}, {Name: "month"}, {Name: "rate_type"}},
		DoUpdates: clause.AssignmentColumns([]string{"rate", "updated_at"}),
	}).Create(&record).Error
}

func GetExchangeRate(ctx context.Context, year, month int, rateType RateType) (*ExchangeRate, error) {
	db := config.GetDB()
	var rate ExchangeRate
	err := db.WithContext(ctx).
		Where("year = ? AND month = ? AND rate_type = ?", year, month, rateType).
		First(&rate).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("exchange rate: %w", utils.ErrorRecordNotFound)
		}
		return nil, err
	}
	return &rate, nil
}

func GetExchangeRates(ctx context.Context, year, month int) ([]*ExchangeRate, error) {
	db := config.GetDB()
	var results []*ExchangeRate
	err := db.WithContext(ctx).
		Where("year = ? AND month = ?", year, month).
		Order("rate_type").Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}
