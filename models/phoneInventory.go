package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/tyrestock_backend/config"
	"bitbucket.org/mmdatafocus/tyrestock_backend/utils"
	"gorm.io/gorm"
)

// PhoneInventoryPeriod is one phone's stock counters for one calendar
// month, mirroring the tyre periods. Remaining is derived: counters minus
// the month's phone losses. Phones have no per-unit sales rows, so
// deliveries and losses are the only movements.
type PhoneInventoryPeriod struct {
	ID           int       `gorm:"primary_key" json:"id"`
	PhoneId      int       `gorm:"not null;uniqueIndex:idx_phone_period" json:"phone_id"`
	Year         int       `gorm:"not null;uniqueIndex:idx_phone_period" json:"year"`
	Month        int       `gorm:"not null;uniqueIndex:idx_phone_period" json:"month"`
	InitialStock int       `gorm:"not null;default:0" json:"initial_stock"`
	AddedStock   int       `gorm:"not null;default:0" json:"added_stock"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// PhoneInventoryLine is the derived per-phone view of one period.
type PhoneInventoryLine struct {
	PhoneId      int `json:"phone_id"`
	Year         int `json:"year"`
	Month        int `json:"month"`
	InitialStock int `json:"initial_stock"`
	AddedStock   int `json:"added_stock"`
	Lost         int `json:"lost"`
	Remaining    int `json:"remaining"`
}

func lostByPhone(ctx context.Context, db *gorm.DB, year, month int) (map[int]int, error) {
	start, end := utils.MonthRange(year, month)
	type row struct {
		ProductId int
		Qty       int
	}
	var rows []row
	err := db.WithContext(ctx).Model(&Loss{}).
		Select("product_id, SUM(qty) AS qty").
		Where("product_kind = ? AND date >= ? AND date < ?", ProductKindPhone, start, end).
		Group("product_id").Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[int]int, len(rows))
	for _, r := range rows {
		out[r.ProductId] = r.Qty
	}
	return out, nil
}

// GetPhoneInventory returns the derived phone inventory lines for a month.
func GetPhoneInventory(ctx context.Context, year, month int) ([]PhoneInventoryLine, error) {
	db := config.GetDB()

	var periods []PhoneInventoryPeriod
	if err := db.WithContext(ctx).Where("year = ? AND month = ?", year, month).
		Order("phone_id").Find(&periods).Error; err != nil {
		return nil, err
	}

	lost, err := lostByPhone(ctx, db, year, month)
	if err != nil {
		return nil, err
	}

	lines := make([]PhoneInventoryLine, 0, len(periods))
	for _, p := range periods {
		line := PhoneInventoryLine{
			PhoneId:      p.PhoneId,
			Year:         p.Year,
			Month:        p.Month,
			InitialStock: p.InitialStock,
			AddedStock:   p.AddedStock,
			Lost:         lost[p.PhoneId],
		}
		line.Remaining = line.InitialStock + line.AddedStock - line.Lost
		lines = append(lines, line)
	}
	return lines, nil
}

// EnsurePhoneInventoryExists guarantees a period row for a phone and month,
// walking back up to twelve months to seed the initial stock from the most
// recent earlier period's remaining.
func EnsurePhoneInventoryExists(ctx context.Context, tx *gorm.DB, phoneId, year, month int) error {
	db := txOrDB(tx)

	var count int64
	if err := db.WithContext(ctx).Model(&PhoneInventoryPeriod{}).
		Where("phone_id = ? AND year = ? AND month = ?", phoneId, year, month).
		Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	initial := 0
	y, m := year, month
	for i := 0; i < 12; i++ {
		y, m = utils.PreviousPeriod(y, m)
		var prev PhoneInventoryPeriod
		err := db.WithContext(ctx).
			Where("phone_id = ? AND year = ? AND month = ?", phoneId, y, m).
			First(&prev).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			continue
		}
		if err != nil {
			return err
		}
		lost, err := lostByPhone(ctx, db, y, m)
		if err != nil {
			return err
		}
		initial = prev.InitialStock + prev.AddedStock - lost[phoneId]
		break
	}

	return db.WithContext(ctx).Create(&PhoneInventoryPeriod{
		PhoneId:      phoneId,
		Year:         year,
		Month:        month,
		InitialStock: initial,
	}).Error
}

// AdjustPhoneStock adds delta to the added-stock counter of a phone's
// period, creating the period first when needed. Confirming a delivery
// passes the quantity, reverting one passes its negation; the arithmetic is
// exact both ways so a revert restores the figures the confirm changed.
func AdjustPhoneStock(ctx context.Context, tx *gorm.DB, phoneId, year, month, delta int) error {
	db := txOrDB(tx)
	if err := EnsurePhoneInventoryExists(ctx, db, phoneId, year, month); err != nil {
		return err
	}
	return db.WithContext(ctx).Model(&PhoneInventoryPeriod{}).
		Where("phone_id = ? AND year = ? AND month = ?", phoneId, year, month).
		Update("added_stock", gorm.Expr("added_stock + ?", delta)).Error
}

// RolloverPhoneMonth carries each phone's remaining stock into the next
// calendar month as its initial stock.
func RolloverPhoneMonth(ctx context.Context, year, month int) (int, error) {
	nextYear, nextMonth := utils.NextPeriod(year, month)
	return rolloverPhonesInto(ctx, year, month, nextYear, nextMonth)
}

func rolloverPhonesInto(ctx context.Context, year, month, nextYear, nextMonth int) (int, error) {
	lines, err := GetPhoneInventory(ctx, year, month)
	if err != nil {
		return 0, err
	}

	db := config.GetDB()
	updated := 0
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, line := range lines {
			remaining := line.Remaining
			var next PhoneInventoryPeriod
			err := tx.Where("phone_id = ? AND year = ? AND month = ?", line.PhoneId, nextYear, nextMonth).
				First(&next).Error
			switch {
			case errors.Is(err, gorm.ErrRecordNotFound):
				next = PhoneInventoryPeriod{
					PhoneId:      line.PhoneId,
					Year:         nextYear,
					Month:        nextMonth,
					InitialStock: remaining,
				}
				if err := tx.Create(&next).Error; err != nil {
					return err
				}
				updated++
			case err != nil:
				return err
			case next.InitialStock != remaining:
				if err := tx.Model(&next).Update("initial_stock", remaining).Error; err != nil {
					return err
				}
				updated++
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return updated, nil
}

// FixPhoneRollovers is the phone counterpart of FixRollovers: every
// consecutive pair of recorded phone months, adjacent or not, has the later
// month's initial stock recomputed from the earlier month's remaining.
func FixPhoneRollovers(ctx context.Context) (int, error) {
	db := config.GetDB()

	type ym struct {
		Year  int
		Month int
	}
	var periods []ym
	if err := db.WithContext(ctx).Model(&PhoneInventoryPeriod{}).
		Distinct("year", "month").Order("year, month").Scan(&periods).Error; err != nil {
		return 0, err
	}

	corrected := 0
	for i := 0; i+1 < len(periods); i++ {
		n, err := rolloverPhonesInto(ctx, periods[i].Year, periods[i].Month,
			periods[i+1].Year, periods[i+1].Month)
		if err != nil {
			return corrected, err
		}
		corrected += n
	}
	return corrected, nil
}
