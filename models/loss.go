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
)

// Loss records broken, exchanged or refunded stock. A loss reduces the
// month's remaining stock the same way a sale does.
type Loss struct {
	ID            int             `gorm:"primary_key" json:"id"`
	ProductKind   ProductKind     `gorm:"size:10;not null;index" json:"product_kind"`
	ProductId     int             `gorm:"not null;index" json:"product_id"`
	Date          time.Time       `gorm:"not null;index" json:"date"`
	Qty           int             `gorm:"not null" json:"qty"`
	LossType      LossType        `gorm:"size:20;not null;default:broken" json:"loss_type"`
	Cost          decimal.Decimal `gorm:"type:decimal(20,2);default:0" json:"cost"`
	Refund        decimal.Decimal `gorm:"type:decimal(20,2);default:0" json:"refund"`
	Customer      string          `gorm:"size:200" json:"customer"`
	Note          string          `gorm:"size:500" json:"note"`
	Synced        bool            `gorm:"not null;default:false;index" json:"synced"`
	CorrelationId string          `gorm:"size:64;index" json:"correlation_id"`
	CreatedAt     time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewLoss struct {
	ProductKind ProductKind     `json:"product_kind" binding:"required"`
	ProductId   int             `json:"product_id" binding:"required"`
	Date        time.Time       `json:"date" binding:"required"`
	Qty         int             `json:"qty" binding:"required"`
	LossType    LossType        `json:"loss_type"`
	Cost        decimal.Decimal `json:"cost"`
	Refund      decimal.Decimal `json:"refund"`
	Customer    string          `json:"customer"`
	Note        string          `json:"note"`
	Synced      bool            `json:"-"`
}

func (input *NewLoss) validate() error {
	if input.Qty <= 0 {
		return errors.New("qty must be positive")
	}
	switch input.ProductKind {
	case ProductKindTyre, ProductKindPhone:
	default:
		return errors.New("invalid product kind")
	}
	return nil
}

func CreateLoss(ctx context.Context, input *NewLoss) (*Loss, error) {
	db := config.GetDB()
	if err := input.validate(); err != nil {
		return nil, err
	}
	loss := newLossRecord(ctx, input)
	if err := db.WithContext(ctx).Create(&loss).Error; err != nil {
		return nil, err
	}
	return &loss, nil
}

func CreateLossTx(ctx context.Context, tx *gorm.DB, input *NewLoss) (*Loss, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}
	loss := newLossRecord(ctx, input)
	if err := tx.WithContext(ctx).Create(&loss).Error; err != nil {
		return nil, err
	}
	return &loss, nil
}

func newLossRecord(ctx context.Context, input *NewLoss) Loss {
	lossType := input.LossType
	if lossType == "" {
		lossType = LossTypeBroken
	}
	return Loss{
		ProductKind:   input.ProductKind,
		ProductId:     input.ProductId,
		Date:          input.Date,
		Qty:           input.Qty,
		LossType:      lossType,
		Cost:          input.Cost,
		Refund:        input.Refund,
		Customer:      input.Customer,
		Note:          input.Note,
		Synced:        input.Synced,
		CorrelationId: correlationIdFromContextOrNew(ctx),
	}
}

func GetLosses(ctx context.Context, year, month int) ([]*Loss, error) {
	db := config.GetDB()
	start, end := utils.MonthRange(year, month)
	var results []*Loss
	err := db.WithContext(ctx).
		Where("date >= ? AND date < ?", start, end).
		Order("date, id").Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

// GetUnsyncedLosses returns the month's losses of one product kind not yet
// written to an export workbook.
func GetUnsyncedLosses(ctx context.Context, year, month int, kind ProductKind) ([]*Loss, error) {
	db := config.GetDB()
	start, end := utils.MonthRange(year, month)
	var results []*Loss
	err := db.WithContext(ctx).
		Where("date >= ? AND date < ? AND product_kind = ? AND synced = ?", start, end, kind, false).
		Order("date, id").Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

// MarkLossesSynced flags losses as written to an export workbook.
func MarkLossesSynced(ctx context.Context, tx *gorm.DB, ids []int) error {
	if len(ids) == 0 {
		return nil
	}
	return txOrDB(tx).WithContext(ctx).Model(&Loss{}).
		Where("id IN ?", ids).Update("synced", true).Error
}

func DeleteLoss(ctx context.Context, id int) (*Loss, error) {
	db := config.GetDB()
	var loss Loss
	if err := db.WithContext(ctx).First(&loss, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("loss: %w", utils.ErrorRecordNotFound)
		}
		return nil, err
	}
	if err := db.WithContext(ctx).Delete(&loss).Error; err != nil {
		return nil, err
	}
	return &loss, nil
}
