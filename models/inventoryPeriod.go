package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/tyrestock_backend/config"
	"bitbucket.org/mmdatafocus/tyrestock_backend/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// InventoryPeriod is one tyre's stock counters for one calendar month.
// Remaining stock is always derived, never stored: it is recomputed from
// the counters plus the month's sales and losses, so re-running a rollover
// can only correct, never drift.
type InventoryPeriod struct {
	ID           int       `gorm:"primary_key" json:"id"`
	TyreId       int       `gorm:"not null;uniqueIndex:idx_tyre_period" json:"tyre_id"`
	Year         int       `gorm:"not null;uniqueIndex:idx_tyre_period" json:"year"`
	Month        int       `gorm:"not null;uniqueIndex:idx_tyre_period" json:"month"`
	InitialStock int       `gorm:"not null;default:0" json:"initial_stock"`
	AddedStock   int       `gorm:"not null;default:0" json:"added_stock"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// InventoryLine is the derived per-tyre view of one period.
type InventoryLine struct {
	TyreId       int `json:"tyre_id"`
	Year         int `json:"year"`
	Month        int `json:"month"`
	InitialStock int `json:"initial_stock"`
	AddedStock   int `json:"added_stock"`
	Sold         int `json:"sold"`
	Lost         int `json:"lost"`
	Remaining    int `json:"remaining"`
}

// UpsertInventoryPeriod writes a tyre's counters for a month, replacing any
// previous values for the same period.
func UpsertInventoryPeriod(ctx context.Context, tx *gorm.DB, tyreId, year, month, initial, added int) error {
	db := txOrDB(tx)
	period := InventoryPeriod{
		TyreId:       tyreId,
		Year:         year,
		Month:        month,
		InitialStock: initial,
		AddedStock:   added,
	}
	return db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "tyre_id"}, {Name: "year"}, {Name: "month"}},
		DoUpdates: clause.AssignmentColumns([]string{"initial_stock", "added_stock", "updated_at"}),
	}).Create(&period).Error
}

func soldByTyre(ctx context.Context, db *gorm.DB, year, month int) (map[int]int, error) {
	start, end := utils.MonthRange(year, month)
	type row struct {
		TyreId int
		Qty    int
	}
	var rows []row
	err := db.WithContext(ctx).Model(&Sale{}).
		Select("tyre_id, SUM(qty) AS qty").
		Where("date >= ? AND date < ?", start, end).
		Group("tyre_id").Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[int]int, len(rows))
	for _, r := range rows {
		out[r.TyreId] = r.Qty
	}
	return out, nil
}

func lostByTyre(ctx context.Context, db *gorm.DB, year, month int) (map[int]int, error) {
	start, end := utils.MonthRange(year, month)
	type row struct {
		ProductId int
		Qty       int
	}
	var rows []row
	err := db.WithContext(ctx).Model(&Loss{}).
		Select("product_id, SUM(qty) AS qty").
		Where("product_kind = ? AND date >= ? AND date < ?", ProductKindTyre, start, end).
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

// GetInventory returns the derived inventory lines for a month:
// remaining = initial + added - sold - lost.
func GetInventory(ctx context.Context, year, month int) ([]InventoryLine, error) {
	db := config.GetDB()

	var periods []InventoryPeriod
	if err := db.WithContext(ctx).Where("year = ? AND month = ?", year, month).
		Order("tyre_id").Find(&periods).Error; err != nil {
		return nil, err
	}

	sold, err := soldByTyre(ctx, db, year, month)
	if err != nil {
		return nil, err
	}
	lost, err := lostByTyre(ctx, db, year, month)
	if err != nil {
		return nil, err
	}

	lines := make([]InventoryLine, 0, len(periods))
	for _, p := range periods {
		line := InventoryLine{
			TyreId:       p.TyreId,
			Year:         p.Year,
			Month:        p.Month,
			InitialStock: p.InitialStock,
			AddedStock:   p.AddedStock,
			Sold:         sold[p.TyreId],
			Lost:         lost[p.TyreId],
		}
		line.Remaining = line.InitialStock + line.AddedStock - line.Sold - line.Lost
		lines = append(lines, line)
	}
	return lines, nil
}

// RolloverMonth recomputes each tyre's remaining stock for a month and
// writes it as the next month's initial stock. Recomputing rather than
// incrementing makes the operation idempotent: running it twice, or after
// late-arriving sales, converges on the same figures.
func RolloverMonth(ctx context.Context, year, month int) (int, error) {
	nextYear, nextMonth := utils.NextPeriod(year, month)
	return rolloverInto(ctx, year, month, nextYear, nextMonth)
}

// rolloverInto carries each tyre's remaining stock from one recorded month
// into another, as that month's initial stock. A negative remaining is
// carried as-is: zeroing it out would hide the data error behind a
// plausible-looking figure.
func rolloverInto(ctx context.Context, year, month, nextYear, nextMonth int) (int, error) {
	lines, err := GetInventory(ctx, year, month)
	if err != nil {
		return 0, err
	}

	db := config.GetDB()
	updated := 0
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, line := range lines {
			remaining := line.Remaining
			var next InventoryPeriod
			err := tx.Where("tyre_id = ? AND year = ? AND month = ?", line.TyreId, nextYear, nextMonth).
				First(&next).Error
			switch {
			case errors.Is(err, gorm.ErrRecordNotFound):
				next = InventoryPeriod{
					TyreId:       line.TyreId,
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

// EnsureInventoryExists guarantees a period row for a tyre and month,
// walking back up to twelve months to seed the initial stock from the most
// recent earlier period.
func EnsureInventoryExists(ctx context.Context, tx *gorm.DB, tyreId, year, month int) error {
	db := txOrDB(tx)

	var count int64
	if err := db.WithContext(ctx).Model(&InventoryPeriod{}).
		Where("tyre_id = ? AND year = ? AND month = ?", tyreId, year, month).
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
		var prev InventoryPeriod
		err := db.WithContext(ctx).
			Where("tyre_id = ? AND year = ? AND month = ?", tyreId, y, m).
			First(&prev).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			continue
		}
		if err != nil {
			return err
		}
		sold, err := soldByTyre(ctx, db, y, m)
		if err != nil {
			return err
		}
		lost, err := lostByTyre(ctx, db, y, m)
		if err != nil {
			return err
		}
		initial = prev.InitialStock + prev.AddedStock - sold[tyreId] - lost[tyreId]
		break
	}

	return db.WithContext(ctx).Create(&InventoryPeriod{
		TyreId:       tyreId,
		Year:         year,
		Month:        month,
		InitialStock: initial,
	}).Error
}

// FixRollovers walks every consecutive pair of recorded months and
// recomputes the later month's initial stock from the earlier month's
// remaining. The pair need not be adjacent on the calendar: a month with no
// recorded rows is skipped over, and the next recorded month inherits from
// the last one that exists. Run at startup so figures corrupted by a crash
// or a re-import heal without manual intervention. Returns the number of
// corrected rows.
func FixRollovers(ctx context.Context) (int, error) {
	db := config.GetDB()

	type ym struct {
		Year  int
		Month int
	}
	var periods []ym
	if err := db.WithContext(ctx).Model(&InventoryPeriod{}).
		Distinct("year", "month").Order("year, month").Scan(&periods).Error; err != nil {
		return 0, err
	}

	corrected := 0
	for i := 0; i+1 < len(periods); i++ {
		n, err := rolloverInto(ctx, periods[i].Year, periods[i].Month,
			periods[i+1].Year, periods[i+1].Month)
		if err != nil {
			return corrected, err
		}
		corrected += n
	}
	return corrected, nil
}
