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

type Payment struct {
	ID            int             `gorm:"primary_key" json:"id"`
	Date          time.Time       `gorm:"not null;index" json:"date"`
	Customer      string          `gorm:"size:200" json:"customer"`
	Method        PaymentMethod   `gorm:"size:20;not null" json:"method"`
	AmountMwk     decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"amount_mwk"`
	Fingerprint   string          `gorm:"size:64;index" json:"fingerprint"`
	Synced        bool            `gorm:"not null;default:false;index" json:"synced"`
	CorrelationId string          `gorm:"size:64;index" json:"correlation_id"`
	CreatedAt     time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewPayment struct {
	Date      time.Time       `json:"date" binding:"required"`
	Customer  string          `json:"customer"`
	Method    PaymentMethod   `json:"method"`
	AmountMwk decimal.Decimal `json:"amount_mwk" binding:"required"`
	Synced    bool            `json:"-"`
}

func (input *NewPayment) validate() error {
	if !input.AmountMwk.IsPositive() {
		return errors.New("amount must be positive")
	}
	return nil
}

func CreatePayment(ctx context.Context, input *NewPayment) (*Payment, error) {
	db := config.GetDB()
	if err := input.validate(); err != nil {
		return nil, err
	}
	payment := newPaymentRecord(ctx, input)
	if err := db.WithContext(ctx).Create(&payment).Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

func CreatePaymentTx(ctx context.Context, tx *gorm.DB, input *NewPayment) (*Payment, error) {
	payment := newPaymentRecord(ctx, input)
	if err := tx.WithContext(ctx).Create(&payment).Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

func newPaymentRecord(ctx context.Context, input *NewPayment) Payment {
	payment := Payment{
		Date:          input.Date,
		Customer:      input.Customer,
		Method:        input.Method,
		AmountMwk:     input.AmountMwk,
		Synced:        input.Synced,
		CorrelationId: correlationIdFromContextOrNew(ctx),
	}
	payment.Fingerprint = paymentFingerprint(payment)
	return payment
}

func GetPayments(ctx context.Context, year, month int) ([]*Payment, error) {
	db := config.GetDB()
	start, end := utils.MonthRange(year, month)
	var results []*Payment
	err := db.WithContext(ctx).
		Where("date >= ? AND date < ?", start, end).
		Order("date, id").Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

func DeletePayment(ctx context.Context, id int) (*Payment, error) {
	db := config.GetDB()
	var payment Payment
	if err := db.WithContext(ctx).First(&payment, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("payment: %w", utils.ErrorRecordNotFound)
		}
		return nil, err
	}
	if err := db.WithContext(ctx).Delete(&payment).Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

// GetUnsyncedPayments returns the month's payments not yet written to an
// export workbook.
func GetUnsyncedPayments(ctx context.Context, year, month int) ([]*Payment, error) {
	db := config.GetDB()
	start, end := utils.MonthRange(year, month)
	var results []*Payment
	err := db.WithContext(ctx).
		Where("date >= ? AND date < ? AND synced = ?", start, end, false).
		Order("date, id").Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

// MarkPaymentsSynced flags payments as written to an export workbook.
func MarkPaymentsSynced(ctx context.Context, tx *gorm.DB, ids []int) error {
	if len(ids) == 0 {
		return nil
	}
	return txOrDB(tx).WithContext(ctx).Model(&Payment{}).
		Where("id IN ?", ids).Update("synced", true).Error
}

func PaymentFingerprints(ctx context.Context, tx *gorm.DB, year, month int) ([]string, error) {
	db := txOrDB(tx)
	start, end := utils.MonthRange(year, month)
	var fps []string
	err := db.WithContext(ctx).Model(&Payment{}).
		Where("date >= ? AND date < ?", start, end).
		Pluck("fingerprint", &fps).Error
	if err != nil {
		return nil, err
	}
	return fps, nil
}
