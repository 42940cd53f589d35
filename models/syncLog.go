package models

import (
	"context"
	"time"

	"bitbucket.org/mmdatafocus/tyrestock_backend/config"
	"gorm.io/gorm"
)

// SyncLog is the append-only record of every import and export run.
// ContentHash is the SHA-256 of the uploaded file, used to short-circuit
// re-uploads of a byte-identical file.
type SyncLog struct {
	ID            int           `gorm:"primary_key" json:"id"`
	Direction     SyncDirection `gorm:"size:10;not null;index" json:"direction"`
	Kind          string        `gorm:"size:30;not null" json:"kind"`
	FileName      string        `gorm:"size:255" json:"file_name"`
	ContentHash   string        `gorm:"size:64;index" json:"content_hash"`
	Year          int           `json:"year"`
	Month         int           `json:"month"`
	Status        SyncStatus    `gorm:"size:10;not null" json:"status"`
	Imported      int           `gorm:"default:0" json:"imported"`
	Skipped       int           `gorm:"default:0" json:"skipped"`
	Duplicates    int           `gorm:"default:0" json:"duplicates"`
	Message       string        `gorm:"size:1000" json:"message"`
	CorrelationId string        `gorm:"size:64;index" json:"correlation_id"`
	CreatedAt     time.Time     `gorm:"autoCreateTime" json:"created_at"`
}

type NewSyncLog struct {
	Direction   SyncDirection
	Kind        string
	FileName    string
	ContentHash string
	Year        int
	Month       int
	Status      SyncStatus
	Imported    int
	Skipped     int
	Duplicates  int
	Message     string
}

// AppendSyncLog writes one run record. Sync logs are never updated or
// deleted.
func AppendSyncLog(ctx context.Context, tx *gorm.DB, input *NewSyncLog) (*SyncLog, error) {
	db := txOrDB(tx)
	record := SyncLog{
		Direction:     input.Direction,
		Kind:          input.Kind,
		FileName:      input.FileName,
		ContentHash:   input.ContentHash,
		Year:          input.Year,
		Month:         input.Month,
		Status:        input.Status,
		Imported:      input.Imported,
		Skipped:       input.Skipped,
		Duplicates:    input.Duplicates,
		Message:       input.Message,
		CorrelationId: correlationIdFromContextOrNew(ctx),
	}
	if err := db.WithContext(ctx).Create(&record).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

// HasImportedContent reports whether a file with this content hash was
// already imported successfully.
func HasImportedContent(ctx context.Context, contentHash string) (bool, error) {
	db := config.GetDB()
	var count int64
	err := db.WithContext(ctx).Model(&SyncLog{}).
		Where("direction = ? AND content_hash = ? AND status = ?",
			SyncDirectionImport, contentHash, SyncStatusSuccess).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// GetSyncHistory returns the most recent runs, newest first.
func GetSyncHistory(ctx context.Context, limit int) ([]*SyncLog, error) {
	db := config.GetDB()
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	var results []*SyncLog
	err := db.WithContext(ctx).
		Order("id DESC").Limit(limit).Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}
