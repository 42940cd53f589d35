package models

import (
	"context"
	"strings"

	"bitbucket.org/mmdatafocus/tyrestock_backend/config"
	"bitbucket.org/mmdatafocus/tyrestock_backend/excel"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

// txOrDB lets package functions run either inside a caller transaction or
// standalone.
func txOrDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return config.GetDB()
}

type correlationIdKey struct{}

// WithCorrelationId tags a context so every record written during one sync
// run shares a correlation id.
func WithCorrelationId(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationIdKey{}, id)
}

func correlationIdFromContextOrNew(ctx context.Context) string {
	if ctx != nil {
		if v, ok := ctx.Value(correlationIdKey{}).(string); ok && v != "" {
			return v
		}
	}
	return uuid.NewString()
}

func saleFingerprint(s Sale) string {
	return excel.SaleFingerprint(s.TyreId, s.Date, s.Qty, s.UnitPrice, string(s.PaymentMethod), s.Customer)
}

func paymentFingerprint(p Payment) string {
	return excel.PaymentFingerprint(p.Date, p.Customer, string(p.Method), p.AmountMwk)
}
