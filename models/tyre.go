package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bitbucket.org/mmdatafocus/tyrestock_backend/config"
	"bitbucket.org/mmdatafocus/tyrestock_backend/excel"
	"bitbucket.org/mmdatafocus/tyrestock_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Tyre struct {
	ID             int             `gorm:"primary_key" json:"id"`
	Size           string          `gorm:"size:50;not null;index" json:"size" binding:"required"`
	Type           string          `gorm:"size:50" json:"type"`
	Brand          string          `gorm:"size:100" json:"brand"`
	Pattern        string          `gorm:"size:100" json:"pattern"`
	LiSr           string          `gorm:"size:50" json:"li_sr"`
	Category       TyreCategory    `gorm:"size:20;not null;default:branded_new" json:"category"`
	Cost           decimal.Decimal `gorm:"type:decimal(20,2);default:0" json:"cost"`
	OriginalPrice  decimal.Decimal `gorm:"type:decimal(20,2);default:0" json:"original_price"`
	SuggestedPrice decimal.Decimal `gorm:"type:decimal(20,2);default:0" json:"suggested_price"`
	// ExcelRow is the inventory workbook row the tyre was last seen at.
	// A placement hint only, 0 when the tyre never came from a workbook.
	ExcelRow  int       `gorm:"default:0" json:"excel_row"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewTyre struct {
	Size           string          `json:"size" binding:"required"`
	Type           string          `json:"type"`
	Brand          string          `json:"brand"`
	Pattern        string          `json:"pattern"`
	LiSr           string          `json:"li_sr"`
	Cost           decimal.Decimal `json:"cost"`
	OriginalPrice  decimal.Decimal `json:"original_price"`
	SuggestedPrice decimal.Decimal `json:"suggested_price"`
}

func CreateTyre(ctx context.Context, input *NewTyre) (*Tyre, error) {
	db := config.GetDB()

	tyre := Tyre{
		Size:           input.Size,
		Type:           input.Type,
		Brand:          input.Brand,
		Pattern:        input.Pattern,
		LiSr:           input.LiSr,
		Category:       TyreCategory(excel.ClassifyTyre(input.Type, input.Brand)),
		Cost:           input.Cost,
		OriginalPrice:  input.OriginalPrice,
		SuggestedPrice: input.SuggestedPrice,
	}
	if err := db.WithContext(ctx).Create(&tyre).Error; err != nil {
		return nil, err
	}
	return &tyre, nil
}

func GetTyre(ctx context.Context, id int) (*Tyre, error) {
	db := config.GetDB()
	var tyre Tyre
	if err := db.WithContext(ctx).First(&tyre, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("tyre: %w", utils.ErrorRecordNotFound)
		}
		return nil, err
	}
	return &tyre, nil
}

func GetTyres(ctx context.Context, size *string) ([]*Tyre, error) {
	db := config.GetDB()
	var results []*Tyre
	dbCtx := db.WithContext(ctx)
	if size != nil && len(*size) > 0 {
		dbCtx = dbCtx.Where("size LIKE ?", "%"+*size+"%")
	}
	if err := dbCtx.Order("size").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func UpdateTyre(ctx context.Context, id int, input *NewTyre) (*Tyre, error) {
	db := config.GetDB()
	tyre, err := GetTyre(ctx, id)
	if err != nil {
		return nil, err
	}
	err = db.WithContext(ctx).Model(tyre).Updates(map[string]interface{}{
		"Size":           input.Size,
		"Type":           input.Type,
		"Brand":          input.Brand,
		"Pattern":        input.Pattern,
		"LiSr":           input.LiSr,
		"Category":       excel.ClassifyTyre(input.Type, input.Brand),
		"Cost":           input.Cost,
		"OriginalPrice":  input.OriginalPrice,
		"SuggestedPrice": input.SuggestedPrice,
	}).Error
	if err != nil {
		return nil, err
	}
	return tyre, nil
}

func DeleteTyre(ctx context.Context, id int) (*Tyre, error) {
	db := config.GetDB()
	tyre, err := GetTyre(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := db.WithContext(ctx).Delete(tyre).Error; err != nil {
		return nil, err
	}
	return tyre, nil
}

// FindOrCreateTyre returns the tyre matching a workbook row, creating the
// master record on first sight.
func FindOrCreateTyre(ctx context.Context, tx *gorm.DB, row excel.InventoryRow) (*Tyre, error) {
	db := txOrDB(tx)

	matcher, err := LoadTyreMatcher(ctx, tx)
	if err != nil {
		return nil, err
	}
	if id, ok := matcher.Match(row.Size, row.Type, row.Brand); ok {
		var tyre Tyre
		if err := db.WithContext(ctx).First(&tyre, id).Error; err != nil {
			return nil, err
		}
		if row.Row > 0 && tyre.ExcelRow != row.Row {
			if err := db.WithContext(ctx).Model(&tyre).Update("excel_row", row.Row).Error; err != nil {
				return nil, err
			}
		}
		return &tyre, nil
	}

	tyre := Tyre{
		Size:           row.Size,
		Type:           row.Type,
		Brand:          row.Brand,
		Pattern:        row.Pattern,
		LiSr:           row.LiSr,
		Category:       TyreCategory(excel.ClassifyTyre(row.Type, row.Brand)),
		Cost:           row.Cost,
		OriginalPrice:  row.OriginalPrice,
		SuggestedPrice: row.SuggestedPrice,
		ExcelRow:       row.Row,
	}
	if err := db.WithContext(ctx).Create(&tyre).Error; err != nil {
		return nil, err
	}
	return &tyre, nil
}

// LoadTyreMatcher builds the in-memory size matcher over the whole tyre
// master table.
func LoadTyreMatcher(ctx context.Context, tx *gorm.DB) (*excel.TyreMatcher, error) {
	db := txOrDB(tx)
	var tyres []Tyre
	if err := db.WithContext(ctx).Find(&tyres).Error; err != nil {
		return nil, err
	}
	refs := make([]excel.TyreRef, 0, len(tyres))
	for _, t := range tyres {
		refs = append(refs, excel.TyreRef{
			ID:       t.ID,
			Size:     t.Size,
			Type:     t.Type,
			Brand:    t.Brand,
			Pattern:  t.Pattern,
			Category: string(t.Category),
		})
	}
	return excel.NewTyreMatcher(refs), nil
}
