package main

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/tyrestock_backend/config"
	"bitbucket.org/mmdatafocus/tyrestock_backend/excel"
	"bitbucket.org/mmdatafocus/tyrestock_backend/models"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

// ImportResult is what a single file import reports back to the operator.
type ImportResult struct {
	Imported    int      `json:"imported"`
	Skipped     int      `json:"skipped"`
	Duplicates  int      `json:"duplicates"`
	SkipReasons []string `json:"skip_reasons,omitempty"`
	Message     string   `json:"message"`
}

func (r *ImportResult) summarize() {
	r.Message = fmt.Sprintf("%d imported, %d skipped, %d duplicates", r.Imported, r.Skipped, r.Duplicates)
	if len(r.SkipReasons) > 0 {
		r.Message += " (" + strings.Join(r.SkipReasons, "; ") + ")"
	}
}

func (r *ImportResult) skip(reason string) {
	r.Skipped++
	if len(r.SkipReasons) < 20 {
		r.SkipReasons = append(r.SkipReasons, reason)
	}
}

func hashContent(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func workbookDir() string {
	if dir := os.Getenv("WORKBOOK_DIR"); dir != "" {
		return dir
	}
	return "data"
}

func inventoryWorkbookPath() string {
	name := os.Getenv("INVENTORY_WORKBOOK")
	if name == "" {
		name = "Tyre Stock.xlsx"
	}
	return filepath.Join(workbookDir(), name)
}

func invoiceWorkbookPath(year, month int) string {
	return filepath.Join(workbookDir(), fmt.Sprintf("Invoice_%d_%02d.xlsx", year, month))
}

// importInventory syncs a month's inventory sheet into the store: tyre
// master records, per-month stock counters and the embedded exchange rate.
func importInventory(ctx context.Context, f *excelize.File, year, month int) (*ImportResult, error) {
	rows, err := excel.ReadInventory(f, month)
	if err != nil {
		return nil, err
	}

	result := &ImportResult{}
	db := config.GetDB()
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, row := range rows {
			tyre, err := models.FindOrCreateTyre(ctx, tx, row)
			if err != nil {
				return err
			}
			if err := models.UpsertInventoryPeriod(ctx, tx, tyre.ID, year, month, row.InitialStock, row.AddedStock); err != nil {
				return err
			}
			result.Imported++
		}
		rate, err := excel.ReadExchangeRate(f, month)
		if err == nil {
			if err := models.UpsertExchangeRate(ctx, tx, year, month, models.RateTypeCash, rate); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	result.summarize()
	return result, nil
}

// importInvoice syncs a monthly invoice workbook: sales, payments, losses
// and the Statistic sheet rates. Both invoice formats are handled.
func importInvoice(ctx context.Context, f *excelize.File, year, month int) (*ImportResult, error) {
	format, err := excel.DetectInvoiceFormat(f)
	if err != nil {
		return nil, err
	}

	var sales []excel.SaleRow
	var payments []excel.PaymentRow
	if format == excel.InvoiceFormatNew {
		if sales, err = excel.ReadInvoiceSales(f); err != nil {
			return nil, err
		}
		if payments, err = excel.ReadInvoicePayments(f); err != nil {
			return nil, err
		}
	} else {
		if sales, err = excel.ReadInvoiceSalesOld(f); err != nil {
			return nil, err
		}
		if payments, err = excel.ReadInvoicePaymentsOld(f); err != nil {
			return nil, err
		}
	}
	losses, err := excel.ReadInvoiceLosses(f)
	if err != nil {
		return nil, err
	}
	stats, err := excel.ReadInvoiceStatistics(f)
	if err != nil {
		return nil, err
	}

	result := &ImportResult{}
	db := config.GetDB()
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// everything in an invoice workbook is already in that workbook:
		// created synced, or the next invoice export would append it back
		// and double-count the month
		if err := importSales(ctx, tx, sales, year, month, true, result); err != nil {
			return err
		}
		if err := importPayments(ctx, tx, payments, year, month, true, result); err != nil {
			return err
		}
		if err := importLosses(ctx, tx, losses, year, month, result); err != nil {
			return err
		}
		if stats.MukuruRate.IsPositive() {
			if err := models.UpsertExchangeRate(ctx, tx, year, month, models.RateTypeMukuru, stats.MukuruRate); err != nil {
				return err
			}
		}
		if stats.CashRate.IsPositive() {
			if err := models.UpsertExchangeRate(ctx, tx, year, month, models.RateTypeCash, stats.CashRate); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	result.summarize()
	return result, nil
}

// importDaily syncs a single-day sales file into the month it belongs to.
func importDaily(ctx context.Context, f *excelize.File, year, month int) (*ImportResult, error) {
	sales, err := excel.ReadDailySales(f)
	if err != nil {
		return nil, err
	}
	payments, err := excel.ReadDailyPayments(f)
	if err != nil {
		return nil, err
	}

	result := &ImportResult{}
	db := config.GetDB()
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// daily files never reach the invoice workbook themselves, so
		// their records stay unsynced until the next invoice export
		if err := importSales(ctx, tx, sales, year, month, false, result); err != nil {
			return err
		}
		return importPayments(ctx, tx, payments, year, month, false, result)
	})
	if err != nil {
		return nil, err
	}
	result.summarize()
	return result, nil
}

// defaultDate substitutes the first of the import month for dates the
// reader could not parse, so the record still lands in the right period.
func defaultDate(date time.Time, year, month int) time.Time {
	if date.IsZero() {
		return time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	}
	return date
}

func importSales(ctx context.Context, tx *gorm.DB, sales []excel.SaleRow, year, month int, synced bool, result *ImportResult) error {
	if len(sales) == 0 {
		return nil
	}
	matcher, err := models.LoadTyreMatcher(ctx, tx)
	if err != nil {
		return err
	}
	committed, err := models.SaleFingerprints(ctx, tx, year, month)
	if err != nil {
		return err
	}
	filter := excel.NewDedupFilter(committed)

	for _, row := range sales {
		if err := row.Validate(); err != nil {
			result.skip(fmt.Sprintf("sale row %d: %v", row.Row, err))
			continue
		}
		tyreId, ok := matcher.Match(row.Size, row.Type, row.Brand)
		if !ok {
			result.skip(fmt.Sprintf("sale row %d: no tyre matches size %q", row.Row, row.Size))
			continue
		}
		date := defaultDate(row.Date, year, month)
		method := models.NormalizePaymentMethod(row.PaymentMethod)
		fp := excel.SaleFingerprint(tyreId, date, row.Qty, row.UnitPrice, string(method), row.Customer)
		if filter.Seen(fp) {
			result.Duplicates++
			continue
		}
		if err := models.EnsureInventoryExists(ctx, tx, tyreId, year, month); err != nil {
			return err
		}
		_, err := models.CreateSaleTx(ctx, tx, &models.NewSale{
			TyreId:        tyreId,
			Date:          date,
			Qty:           row.Qty,
			UnitPrice:     row.UnitPrice,
			DiscountPct:   row.DiscountPct,
			PaymentMethod: method,
			Customer:      row.Customer,
			Synced:        synced,
		})
		if err != nil {
			return err
		}
		result.Imported++
	}
	return nil
}

func importPayments(ctx context.Context, tx *gorm.DB, payments []excel.PaymentRow, year, month int, synced bool, result *ImportResult) error {
	if len(payments) == 0 {
		return nil
	}
	committed, err := models.PaymentFingerprints(ctx, tx, year, month)
	if err != nil {
		return err
	}
	filter := excel.NewDedupFilter(committed)

	for _, row := range payments {
		if err := row.Validate(); err != nil {
			result.skip(fmt.Sprintf("payment row %d: %v", row.Row, err))
			continue
		}
		date := defaultDate(row.Date, year, month)
		method := models.NormalizePaymentMethod(row.Method)
		fp := excel.PaymentFingerprint(date, row.Customer, string(method), row.AmountMwk)
		if filter.Seen(fp) {
			result.Duplicates++
			continue
		}
		_, err := models.CreatePaymentTx(ctx, tx, &models.NewPayment{
			Date:      date,
			Customer:  row.Customer,
			Method:    method,
			AmountMwk: row.AmountMwk,
			Synced:    synced,
		})
		if err != nil {
			return err
		}
		result.Imported++
	}
	return nil
}

func importLosses(ctx context.Context, tx *gorm.DB, losses []excel.LossRow, year, month int, result *ImportResult) error {
	if len(losses) == 0 {
		return nil
	}
	for _, row := range losses {
		if err := row.Validate(); err != nil {
			result.skip(fmt.Sprintf("loss row %d: %v", row.Row, err))
			continue
		}
		phone, err := models.FindOrCreatePhone(ctx, tx, excel.PhoneStockRow{
			Brand:  row.Brand,
			Model:  row.Model,
			Config: row.Config,
		})
		if err != nil {
			return err
		}
		lossType := models.LossTypeBroken
		if row.Exchanged != "" {
			lossType = models.LossTypeExchange
		} else if row.Refund.IsPositive() {
			lossType = models.LossTypeRefund
		}
		_, err = models.CreateLossTx(ctx, tx, &models.NewLoss{
			ProductKind: models.ProductKindPhone,
			ProductId:   phone.ID,
			Date:        defaultDate(row.Date, year, month),
			Qty:         row.Qty,
			LossType:    lossType,
			Cost:        row.Cost,
			Refund:      row.TotalRefund,
			Customer:    row.Customer,
			Note:        row.Note,
			Synced:      true,
		})
		if err != nil {
			return err
		}
		result.Imported++
	}
	return nil
}

// ExportResult reports what an export run changed on disk.
type ExportResult struct {
	Path         string `json:"path"`
	FileCreated  bool   `json:"file_created"`
	SheetCreated bool   `json:"sheet_created"`
	Rows         int    `json:"rows"`
}

// exportInventory writes the store's figures for a month back into the
// inventory workbook: stock counters plus the per-day sales aggregation.
func exportInventory(ctx context.Context, year, month int) (*ExportResult, error) {
	path := inventoryWorkbookPath()

	release, err := workbookLockOrBusy(ctx, path)
	if err != nil {
		return nil, err
	}
	defer release()

	result := &ExportResult{Path: path}

	var f *excelize.File
	if _, statErr := os.Stat(path); os.IsNotExist(statErr) {
		f = excelize.NewFile()
		if err := f.SetSheetName("Sheet1", excel.SheetName(month)); err != nil {
			return nil, err
		}
		result.FileCreated = true
	} else {
		f, err = excelize.OpenFile(path)
		if err != nil {
			return nil, err
		}
	}
	defer f.Close()

	if !result.FileCreated {
		created, err := excel.EnsureMonthSheet(f, month)
		if err != nil {
			return nil, err
		}
		result.SheetCreated = created
	}

	tyres, err := models.GetTyres(ctx, nil)
	if err != nil {
		return nil, err
	}
	lines, err := models.GetInventory(ctx, year, month)
	if err != nil {
		return nil, err
	}
	salesByDay, err := models.SalesByDay(ctx, year, month)
	if err != nil {
		return nil, err
	}

	tyreById := make(map[int]*models.Tyre, len(tyres))
	for _, t := range tyres {
		tyreById[t.ID] = t
	}

	exports := make([]excel.InventoryExport, 0, len(lines))
	for _, line := range lines {
		tyre, ok := tyreById[line.TyreId]
		if !ok {
			continue
		}
		exports = append(exports, excel.InventoryExport{
			Size:         tyre.Size,
			Type:         tyre.Type,
			Brand:        tyre.Brand,
			Pattern:      tyre.Pattern,
			LiSr:         tyre.LiSr,
			Cost:         tyre.Cost,
			InitialStock: line.InitialStock,
			AddedStock:   line.AddedStock,
			DailySales:   salesByDay[line.TyreId],
			PreferredRow: tyre.ExcelRow,
		})
	}

	if err := excel.ExportInventory(f, month, exports); err != nil {
		return nil, err
	}
	if err := excel.SaveAtomic(f, path); err != nil {
		return nil, err
	}
	result.Rows = len(exports)
	return result, nil
}

// exportInvoice appends the store's not-yet-exported sales, payments and
// phone losses to a month's invoice workbook, creating the workbook when it
// does not exist yet. Exported records are flagged synced once the file is
// safely on disk, so the next export emits only what is new.
func exportInvoice(ctx context.Context, year, month int) (*ExportResult, error) {
	path := invoiceWorkbookPath(year, month)

	release, err := workbookLockOrBusy(ctx, path)
	if err != nil {
		return nil, err
	}
	defer release()

	result := &ExportResult{Path: path}

	var f *excelize.File
	if _, statErr := os.Stat(path); os.IsNotExist(statErr) {
		f, err = excel.CreateInvoiceWorkbook()
		if err != nil {
			return nil, err
		}
		result.FileCreated = true
	} else {
		f, err = excelize.OpenFile(path)
		if err != nil {
			return nil, err
		}
	}
	defer f.Close()

	sales, err := models.GetUnsyncedSales(ctx, year, month)
	if err != nil {
		return nil, err
	}
	payments, err := models.GetUnsyncedPayments(ctx, year, month)
	if err != nil {
		return nil, err
	}
	losses, err := models.GetUnsyncedLosses(ctx, year, month, models.ProductKindPhone)
	if err != nil {
		return nil, err
	}

	tyres, err := models.GetTyres(ctx, nil)
	if err != nil {
		return nil, err
	}
	tyreById := make(map[int]*models.Tyre, len(tyres))
	for _, t := range tyres {
		tyreById[t.ID] = t
	}
	phones, err := models.GetPhones(ctx, nil)
	if err != nil {
		return nil, err
	}
	phoneById := make(map[int]*models.Phone, len(phones))
	for _, p := range phones {
		phoneById[p.ID] = p
	}

	var saleIds, paymentIds, lossIds []int
	saleRows := make([]excel.SaleRow, 0, len(sales))
	for _, s := range sales {
		row := excel.SaleRow{
			Date:          s.Date,
			Qty:           s.Qty,
			UnitPrice:     s.UnitPrice,
			DiscountPct:   s.DiscountPct,
			PaymentMethod: string(s.PaymentMethod),
			Customer:      s.Customer,
		}
		if tyre, ok := tyreById[s.TyreId]; ok {
			row.Brand = tyre.Brand
			row.Type = tyre.Type
			row.Size = tyre.Size
		}
		saleRows = append(saleRows, row)
		saleIds = append(saleIds, s.ID)
	}
	payRows := make([]excel.PaymentRow, 0, len(payments))
	for _, p := range payments {
		payRows = append(payRows, excel.PaymentRow{
			Date:      p.Date,
			Customer:  p.Customer,
			Method:    string(p.Method),
			AmountMwk: p.AmountMwk,
		})
		paymentIds = append(paymentIds, p.ID)
	}
	lossRows := make([]excel.LossRow, 0, len(losses))
	for _, l := range losses {
		row := excel.LossRow{
			Date:        l.Date,
			Qty:         l.Qty,
			Cost:        l.Cost,
			TotalRefund: l.Refund,
			Customer:    l.Customer,
			Note:        l.Note,
		}
		if l.LossType == models.LossTypeExchange {
			row.Exchanged = "Yes"
		}
		if phone, ok := phoneById[l.ProductId]; ok {
			row.Brand = phone.Brand
			row.Model = phone.Model
			row.Config = phone.Config
		}
		lossRows = append(lossRows, row)
		lossIds = append(lossIds, l.ID)
	}

	if err := excel.ExportInvoice(f, saleRows, payRows, lossRows); err != nil {
		return nil, err
	}
	if err := writeInvoiceRates(ctx, f, year, month); err != nil {
		return nil, err
	}
	if err := excel.SaveAtomic(f, path); err != nil {
		return nil, err
	}

	db := config.GetDB()
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := models.MarkSalesSynced(ctx, tx, saleIds); err != nil {
			return err
		}
		if err := models.MarkPaymentsSynced(ctx, tx, paymentIds); err != nil {
			return err
		}
		return models.MarkLossesSynced(ctx, tx, lossIds)
	})
	if err != nil {
		return nil, err
	}
	result.Rows = len(saleRows) + len(payRows) + len(lossRows)
	return result, nil
}

func writeInvoiceRates(ctx context.Context, f *excelize.File, year, month int) error {
	rates, err := models.GetExchangeRates(ctx, year, month)
	if err != nil {
		return err
	}
	for _, rate := range rates {
		row := excel.StatsCashRateRow
		if rate.RateType == models.RateTypeMukuru {
			row = excel.StatsMukuruRateRow
		}
		cell, err := excelize.CoordinatesToCellName(excel.StatsRateCol, row)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(excel.InvoiceStatsSheet, cell, rate.Rate.InexactFloat64()); err != nil {
			return err
		}
	}
	return nil
}
