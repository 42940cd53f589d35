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

type Phone struct {
	ID        int             `gorm:"primary_key" json:"id"`
	Brand     string          `gorm:"size:100;not null;index" json:"brand" binding:"required"`
	Model     string          `gorm:"size:100;not null;index" json:"model" binding:"required"`
	Config    string          `gorm:"size:100" json:"config"`
	Cost      decimal.Decimal `gorm:"type:decimal(20,2);default:0" json:"cost"`
	Price     decimal.Decimal `gorm:"type:decimal(20,2);default:0" json:"price"`
	Note      string          `gorm:"size:500" json:"note"`
	// ExcelRow is the stock workbook row the phone was last seen at, 0
	// when it never came from a workbook.
	ExcelRow  int       `gorm:"default:0" json:"excel_row"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewPhone struct {
	Brand  string          `json:"brand" binding:"required"`
	Model  string          `json:"model" binding:"required"`
	Config string          `json:"config"`
	Cost   decimal.Decimal `json:"cost"`
	Price  decimal.Decimal `json:"price"`
	Note   string          `json:"note"`
}

func CreatePhone(ctx context.Context, input *NewPhone) (*Phone, error) {
	db := config.GetDB()
	phone := Phone{
		Brand:  input.Brand,
		Model:  input.Model,
		Config: input.Config,
		Cost:   input.Cost,
		Price:  input.Price,
		Note:   input.Note,
	}
	if err := db.WithContext(ctx).Create(&phone).Error; err != nil {
		return nil, err
	}
	return &phone, nil
}

func GetPhone(ctx context.Context, id int) (*Phone, error) {
	db := config.GetDB()
	var phone Phone
	if err := db.WithContext(ctx).First(&phone, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("phone: %w", utils.ErrorRecordNotFound)
		}
		return nil, err
	}
	return &phone, nil
}

func GetPhones(ctx context.Context, brand *string) ([]*Phone, error) {
	db := config.GetDB()
	var results []*Phone
	dbCtx := db.WithContext(ctx)
	if brand != nil && len(*brand) > 0 {
		dbCtx = dbCtx.Where("brand LIKE ?", "%"+*brand+"%")
	}
	if err := dbCtx.Order("brand, model").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func UpdatePhone(ctx context.Context, id int, input *NewPhone) (*Phone, error) {
	db := config.GetDB()
	phone, err := GetPhone(ctx, id)
	if err != nil {
		return nil, err
	}
	err = db.WithContext(ctx).Model(phone).Updates(map[string]interface{}{
		"Brand":  input.Brand,
		"Model":  input.Model,
		"Config": input.Config,
		"Cost":   input.Cost,
		"Price":  input.Price,
		"Note":   input.Note,
	}).Error
	if err != nil {
		return nil, err
	}
	return phone, nil
}

func DeletePhone(ctx context.Context, id int) (*Phone, error) {
	db := config.GetDB()
	phone, err := GetPhone(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := db.WithContext(ctx).Delete(phone).Error; err != nil {
		return nil, err
	}
	return phone, nil
}

// LoadPhoneMatcher builds the brand/model/config matcher over the phone
// master table.
func LoadPhoneMatcher(ctx context.Context, tx *gorm.DB) (*excel.PhoneMatcher, error) {
	db := txOrDB(tx)
	var phones []Phone
	if err := db.WithContext(ctx).Find(&phones).Error; err != nil {
		return nil, err
	}
	refs := make([]excel.PhoneRef, 0, len(phones))
	for _, p := range phones {
		refs = append(refs, excel.PhoneRef{
			ID:     p.ID,
			Brand:  p.Brand,
			Model:  p.Model,
			Config: p.Config,
		})
	}
	return excel.NewPhoneMatcher(refs), nil
}

// FindOrCreatePhone returns the phone matching a stock row, creating the
// master record on first sight.
func FindOrCreatePhone(ctx context.Context, tx *gorm.DB, row excel.PhoneStockRow) (*Phone, error) {
	db := txOrDB(tx)

	matcher, err := LoadPhoneMatcher(ctx, tx)
	if err != nil {
		return nil, err
	}
	if id, ok := matcher.Match(row.Brand, row.Model, row.Config); ok {
		var phone Phone
		if err := db.WithContext(ctx).First(&phone, id).Error; err != nil {
			return nil, err
		}
		if row.Row > 0 && phone.ExcelRow != row.Row {
			if err := db.WithContext(ctx).Model(&phone).Update("excel_row", row.Row).Error; err != nil {
				return nil, err
			}
		}
		return &phone, nil
	}

	phone := Phone{
		Brand:    row.Brand,
		Model:    row.Model,
		Config:   row.Config,
		ExcelRow: row.Row,
	}
	if err := db.WithContext(ctx).Create(&phone).Error; err != nil {
		return nil, err
	}
	return &phone, nil
}
