package models

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"bitbucket.org/mmdatafocus/tyrestock_backend/config"
	"bitbucket.org/mmdatafocus/tyrestock_backend/utils"
	"gorm.io/gorm"
)

// StockImportLog records one confirmed phone stock delivery so it can be
// reverted later. Year and month pin the delivery to the inventory period
// it was booked into; a revert must adjust that same period. Items holds
// the per-phone quantities as JSON.
type StockImportLog struct {
	ID            int           `gorm:"primary_key" json:"id"`
	FileName      string        `gorm:"size:255" json:"file_name"`
	ContentHash   string        `gorm:"size:64;index" json:"content_hash"`
	Year          int           `gorm:"not null" json:"year"`
	Month         int           `gorm:"not null" json:"month"`
	Status        ImportStatus  `gorm:"size:10;not null;default:active" json:"status"`
	Items         datatypesJSON `gorm:"type:text" json:"items"`
	CorrelationId string        `gorm:"size:64;index" json:"correlation_id"`
	CreatedAt     time.Time     `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time     `gorm:"autoUpdateTime" json:"updated_at"`
	RevertedAt    *time.Time    `json:"reverted_at"`
}

type datatypesJSON []byte

func (j datatypesJSON) MarshalJSON() ([]byte, error) {
	if len(j) == 0 {
		return []byte("null"), nil
	}
	return j, nil
}

func (j *datatypesJSON) UnmarshalJSON(data []byte) error {
	*j = append((*j)[0:0], data...)
	return nil
}

// StockImportItem is one line of a confirmed delivery.
type StockImportItem struct {
	PhoneId  int    `json:"phone_id"`
	Brand    string `json:"brand"`
	Model    string `json:"model"`
	Config   string `json:"config"`
	Quantity int    `json:"quantity"`
	Created  bool   `json:"created"` // phone master record was created by this import
}

func (l *StockImportLog) DecodeItems() ([]StockImportItem, error) {
	var items []StockImportItem
	if err := json.Unmarshal(l.Items, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// ConfirmStockImport books a previewed delivery into the given month's
// phone inventory and records it, all in one transaction.
func ConfirmStockImport(ctx context.Context, fileName, contentHash string, year, month int, items []StockImportItem) (*StockImportLog, error) {
	if len(items) == 0 {
		return nil, errors.New("no items to confirm")
	}
	encoded, err := json.Marshal(items)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	record := StockImportLog{
		FileName:      fileName,
		ContentHash:   contentHash,
		Year:          year,
		Month:         month,
		Status:        ImportStatusActive,
		Items:         encoded,
		CorrelationId: correlationIdFromContextOrNew(ctx),
	}
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, item := range items {
			if err := AdjustPhoneStock(ctx, tx, item.PhoneId, year, month, item.Quantity); err != nil {
				return err
			}
		}
		return tx.Create(&record).Error
	})
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// RevertStockImport undoes a confirmed delivery, subtracting its
// quantities from the same period they were booked into.
func RevertStockImport(ctx context.Context, id int) (*StockImportLog, error) {
	db := config.GetDB()
	var record StockImportLog
	if err := db.WithContext(ctx).First(&record, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("stock import: %w", utils.ErrorRecordNotFound)
		}
		return nil, err
	}
	if record.Status == ImportStatusReverted {
		return nil, errors.New("stock import already reverted")
	}

	items, err := record.DecodeItems()
	if err != nil {
		return nil, err
	}

	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, item := range items {
			if err := AdjustPhoneStock(ctx, tx, item.PhoneId, record.Year, record.Month, -item.Quantity); err != nil {
				return err
			}
		}
		now := time.Now()
		return tx.Model(&record).Updates(map[string]interface{}{
			"Status":     ImportStatusReverted,
			"RevertedAt": &now,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func GetStockImports(ctx context.Context, limit int) ([]*StockImportLog, error) {
	db := config.GetDB()
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	var results []*StockImportLog
	err := db.WithContext(ctx).Order("id DESC").Limit(limit).Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}
