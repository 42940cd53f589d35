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

type Sale struct {
	ID            int             `gorm:"primary_key" json:"id"`
	TyreId        int             `gorm:"not null;index" json:"tyre_id"`
	Date          time.Time       `gorm:"not null;index" json:"date"`
	Qty           int             `gorm:"not null" json:"qty"`
	UnitPrice     decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"unit_price"`
	DiscountPct   decimal.Decimal `gorm:"type:decimal(5,2);default:0" json:"discount_pct"`
	PaymentMethod PaymentMethod   `gorm:"size:20;not null" json:"payment_method"`
	Customer      string          `gorm:"size:200" json:"customer"`
	Fingerprint   string          `gorm:"size:64;index" json:"fingerprint"`
	// Synced flips true once the sale has been written into an export
	// workbook, so the next export does not re-emit it.
	Synced        bool      `gorm:"not null;default:false;index" json:"synced"`
	CorrelationId string    `gorm:"size:64;index" json:"correlation_id"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// Total is the line total after discount.
func (s Sale) Total() decimal.Decimal {
	discount := decimal.NewFromInt(1).Sub(s.DiscountPct.Div(decimal.NewFromInt(100)))
	return s.UnitPrice.Mul(decimal.NewFromInt(int64(s.Qty))).Mul(discount)
}

type NewSale struct {
	TyreId        int             `json:"tyre_id" binding:"required"`
	Date          time.Time       `json:"date" binding:"required"`
	Qty           int             `json:"qty" binding:"required"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
	DiscountPct   decimal.Decimal `json:"discount_pct"`
	PaymentMethod PaymentMethod   `json:"payment_method"`
	Customer      string          `json:"customer"`
	// Synced marks a sale that already lives in a workbook, so exports
	// must not emit it again. Importers set it; API clients cannot.
	Synced bool `json:"-"`
}

func (input *NewSale) validate(ctx context.Context) error {
	if input.Qty <= 0 {
		return errors.New("qty must be positive")
	}
	if input.UnitPrice.IsNegative() {
		return errors.New("unit price must not be negative")
	}
	if input.DiscountPct.IsNegative() || input.DiscountPct.GreaterThan(decimal.NewFromInt(100)) {
		return errors.New("discount must be within 0-100")
	}
	if _, err := GetTyre(ctx, input.TyreId); err != nil {
		return err
	}
	return nil
}

func CreateSale(ctx context.Context, input *NewSale) (*Sale, error) {
	db := config.GetDB()
	if err := input.validate(ctx); err != nil {
		return nil, err
	}
	sale := newSaleRecord(ctx, input)
	if err := db.WithContext(ctx).Create(&sale).Error; err != nil {
		return nil, err
	}
	return &sale, nil
}

// CreateSaleTx inserts a sale inside a caller transaction; used by the
// batch importers so a failed file leaves nothing behind.
func CreateSaleTx(ctx context.Context, tx *gorm.DB, input *NewSale) (*Sale, error) {
	sale := newSaleRecord(ctx, input)
	if err := tx.WithContext(ctx).Create(&sale).Error; err != nil {
		return nil, err
	}
	return &sale, nil
}

func newSaleRecord(ctx context.Context, input *NewSale) Sale {
	sale := Sale{
		TyreId:        input.TyreId,
		Date:          input.Date,
		Qty:           input.Qty,
		UnitPrice:     input.UnitPrice,
		DiscountPct:   input.DiscountPct,
		PaymentMethod: input.PaymentMethod,
		Customer:      input.Customer,
		Synced:        input.Synced,
		CorrelationId: correlationIdFromContextOrNew(ctx),
	}
	sale.Fingerprint = saleFingerprint(sale)
	return sale
}

func GetSales(ctx context.Context, year, month int) ([]*Sale, error) {
	db := config.GetDB()
	start, end := utils.MonthRange(year, month)
	var results []*Sale
	err := db.WithContext(ctx).
		Where("date >= ? AND date < ?", start, end).
		Order("date, id").Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

func DeleteSale(ctx context.Context, id int) (*Sale, error) {
	db := config.GetDB()
	var sale Sale
	if err := db.WithContext(ctx).First(&sale, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("sale: %w", utils.ErrorRecordNotFound)
		}
		return nil, err
	}
	if err := db.WithContext(ctx).Delete(&sale).Error; err != nil {
		return nil, err
	}
	return &sale, nil
}

// GetUnsyncedSales returns the month's sales not yet written to an export
// workbook, oldest first.
func GetUnsyncedSales(ctx context.Context, year, month int) ([]*Sale, error) {
	db := config.GetDB()
	start, end := utils.MonthRange(year, month)
	var results []*Sale
	err := db.WithContext(ctx).
		Where("date >= ? AND date < ? AND synced = ?", start, end, false).
		Order("date, id").Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

// MarkSalesSynced flags sales as written to an export workbook.
func MarkSalesSynced(ctx context.Context, tx *gorm.DB, ids []int) error {
	if len(ids) == 0 {
		return nil
	}
	return txOrDB(tx).WithContext(ctx).Model(&Sale{}).
		Where("id IN ?", ids).Update("synced", true).Error
}

// SaleFingerprints returns the fingerprints of all sales committed for a
// month; the importers seed their duplicate filter with them.
func SaleFingerprints(ctx context.Context, tx *gorm.DB, year, month int) ([]string, error) {
	db := txOrDB(tx)
	start, end := utils.MonthRange(year, month)
	var fps []string
	err := db.WithContext(ctx).Model(&Sale{}).
		Where("date >= ? AND date < ?", start, end).
		Pluck("fingerprint", &fps).Error
	if err != nil {
		return nil, err
	}
	return fps, nil
}

// SalesByDay aggregates a month's sales per tyre per day of month, the
// shape the inventory export writes back into the daily columns.
func SalesByDay(ctx context.Context, year, month int) (map[int]map[int]int, error) {
	sales, err := GetSales(ctx, year, month)
	if err != nil {
		return nil, err
	}
	out := make(map[int]map[int]int)
	for _, s := range sales {
		days, ok := out[s.TyreId]
		if !ok {
			days = make(map[int]int)
			out[s.TyreId] = days
		}
		days[s.Date.Day()] += s.Qty
	}
	return out, nil
}
