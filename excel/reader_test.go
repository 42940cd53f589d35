package excel

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

func mustSet(t *testing.T, f *excelize.File, sheet string, col, row int, v interface{}) {
	t.Helper()
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		t.Fatalf("CoordinatesToCellName(%d,%d): %v", col, row, err)
	}
	if err := f.SetCellValue(sheet, cell, v); err != nil {
		t.Fatalf("SetCellValue(%s!%s): %v", sheet, cell, err)
	}
}

func newInventoryWorkbook(t *testing.T, month int) *excelize.File {
	t.Helper()
	f := excelize.NewFile()
	sheet := SheetName(month)
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		t.Fatalf("SetSheetName: %v", err)
	}
	layout := LayoutForMonth(month)

	mustSet(t, f, sheet, InvSizeCol, 2, "175/70R13")
	mustSet(t, f, sheet, InvTypeCol, 2, "New")
	mustSet(t, f, sheet, InvBrandCol, 2, "Dunlop")
	mustSet(t, f, sheet, InvCostCol, 2, 120.5)
	mustSet(t, f, sheet, layout.InitialStockCol, 2, 40)
	mustSet(t, f, sheet, layout.AddedStockCol, 2, 8)
	day3, _ := layout.DayColumn(3)
	mustSet(t, f, sheet, day3, 2, 2)
	day15, _ := layout.DayColumn(15)
	mustSet(t, f, sheet, day15, 2, 1)

	mustSet(t, f, sheet, InvSizeCol, 3, "155/70R12")
	mustSet(t, f, sheet, layout.InitialStockCol, 3, 12)

	// summary rows inside the data range
	mustSet(t, f, sheet, InvSizeCol, 47, "Total")
	mustSet(t, f, sheet, InvSizeCol, 51, "Total Tyre Available")

	mustSet(t, f, sheet, layout.ExchangeRateCol, layout.ExchangeRateRow, 290.5)
	return f
}

func TestReadInventory(t *testing.T) {
	f := newInventoryWorkbook(t, 1)
	defer f.Close()

	rows, err := ReadInventory(f, 1)
	if err != nil {
		t.Fatalf("ReadInventory: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2 (summary rows must be skipped)", len(rows))
	}

	first := rows[0]
	if first.Size != "175/70R13" || first.Brand != "Dunlop" {
		t.Fatalf("first row = %+v", first)
	}
	if first.InitialStock != 40 || first.AddedStock != 8 {
		t.Fatalf("stock = %d/%d, want 40/8", first.InitialStock, first.AddedStock)
	}
	if first.DailySales[3] != 2 || first.DailySales[15] != 1 {
		t.Fatalf("daily sales = %v", first.DailySales)
	}
	if len(first.DailySales) != 2 {
		t.Fatalf("blank days must not appear: %v", first.DailySales)
	}
	if !first.Cost.Equal(decimal.NewFromFloat(120.5)) {
		t.Fatalf("cost = %s", first.Cost)
	}
}

func TestReadInventoryOldLayoutMonth(t *testing.T) {
	f := newInventoryWorkbook(t, 9)
	defer f.Close()

	rows, err := ReadInventory(f, 9)
	if err != nil {
		t.Fatalf("ReadInventory: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}
	if rows[0].InitialStock != 40 || rows[0].AddedStock != 8 {
		t.Fatalf("shifted columns misread: %+v", rows[0])
	}
}

func TestReadExchangeRate(t *testing.T) {
	f := newInventoryWorkbook(t, 1)
	defer f.Close()

	rate, err := ReadExchangeRate(f, 1)
	if err != nil {
		t.Fatalf("ReadExchangeRate: %v", err)
	}
	if !rate.Equal(decimal.NewFromFloat(290.5)) {
		t.Fatalf("rate = %s, want 290.5", rate)
	}
}

func TestReadInventoryMissingSheet(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	_, err := ReadInventory(f, 4)
	if err == nil {
		t.Fatalf("expected WorkbookStructureError")
	}
}

func newInvoiceWorkbook(t *testing.T) *excelize.File {
	t.Helper()
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", InvoiceSalesSheet); err != nil {
		t.Fatalf("SetSheetName: %v", err)
	}
	for _, sheet := range []string{InvoicePaymentsSheet, InvoiceLossSheet, InvoiceStatsSheet} {
		if _, err := f.NewSheet(sheet); err != nil {
			t.Fatalf("NewSheet(%s): %v", sheet, err)
		}
	}

	mustSet(t, f, InvoiceSalesSheet, SalesDateCol, 2, "2025-01-15")
	mustSet(t, f, InvoiceSalesSheet, SalesBrandCol, 2, "Dunlop")
	mustSet(t, f, InvoiceSalesSheet, SalesTypeCol, 2, "New")
	mustSet(t, f, InvoiceSalesSheet, SalesSizeCol, 2, "175/70R13")
	mustSet(t, f, InvoiceSalesSheet, SalesQtyCol, 2, 4)
	mustSet(t, f, InvoiceSalesSheet, SalesPriceCol, 2, 55000)
	mustSet(t, f, InvoiceSalesSheet, SalesDiscountCol, 2, 0.05)
	mustSet(t, f, InvoiceSalesSheet, SalesPaymentCol, 2, "Cash")
	mustSet(t, f, InvoiceSalesSheet, SalesCustomerCol, 2, "Banda")

	// row with no quantity gets validated out by the importer, still read
	mustSet(t, f, InvoiceSalesSheet, SalesSizeCol, 3, "155/12")
	mustSet(t, f, InvoiceSalesSheet, SalesQtyCol, 3, 1)

	mustSet(t, f, InvoicePaymentsSheet, PayDateCol, 2, "2025-01-16")
	mustSet(t, f, InvoicePaymentsSheet, PayCustomerCol, 2, "Phiri")
	mustSet(t, f, InvoicePaymentsSheet, PayMethodCol, 2, "Mukuru")
	mustSet(t, f, InvoicePaymentsSheet, PayAmountCol, 2, 150000)

	mustSet(t, f, InvoiceLossSheet, 1, 3, "2025-01-20")
	mustSet(t, f, InvoiceLossSheet, 2, 3, "Samsung")
	mustSet(t, f, InvoiceLossSheet, 3, 3, "A05")
	mustSet(t, f, InvoiceLossSheet, 4, 3, "4+64")
	mustSet(t, f, InvoiceLossSheet, 5, 3, 1)

	mustSet(t, f, InvoiceStatsSheet, StatsRateCol, StatsMukuruRateRow, 295)
	mustSet(t, f, InvoiceStatsSheet, StatsRateCol, StatsCashRateRow, 288)
	return f
}

func TestDetectInvoiceFormat(t *testing.T) {
	newFormat := newInvoiceWorkbook(t)
	defer newFormat.Close()
	format, err := DetectInvoiceFormat(newFormat)
	if err != nil || format != InvoiceFormatNew {
		t.Fatalf("format = %v, %v; want new", format, err)
	}

	oldFormat := excelize.NewFile()
	defer oldFormat.Close()
	if err := oldFormat.SetSheetName("Sheet1", InvoiceOldCashSheet); err != nil {
		t.Fatalf("SetSheetName: %v", err)
	}
	format, err = DetectInvoiceFormat(oldFormat)
	if err != nil || format != InvoiceFormatOld {
		t.Fatalf("format = %v, %v; want old", format, err)
	}

	neither := excelize.NewFile()
	defer neither.Close()
	if _, err = DetectInvoiceFormat(neither); err == nil {
		t.Fatalf("unrecognized format should error")
	}
}

func TestReadInvoiceSales(t *testing.T) {
	f := newInvoiceWorkbook(t)
	defer f.Close()

	sales, err := ReadInvoiceSales(f)
	if err != nil {
		t.Fatalf("ReadInvoiceSales: %v", err)
	}
	if len(sales) != 2 {
		t.Fatalf("got %d sales, want 2", len(sales))
	}
	s := sales[0]
	if s.Size != "175/70R13" || s.Qty != 4 || s.Customer != "Banda" {
		t.Fatalf("sale = %+v", s)
	}
	if !s.Date.Equal(time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("date = %s", s.Date)
	}
	// workbook stores the discount as a fraction; importer sees a percent
	if !s.DiscountPct.Equal(decimal.NewFromInt(5)) {
		t.Fatalf("discount = %s, want 5", s.DiscountPct)
	}
}

func TestReadInvoicePayments(t *testing.T) {
	f := newInvoiceWorkbook(t)
	defer f.Close()

	payments, err := ReadInvoicePayments(f)
	if err != nil {
		t.Fatalf("ReadInvoicePayments: %v", err)
	}
	if len(payments) != 1 {
		t.Fatalf("got %d payments, want 1", len(payments))
	}
	p := payments[0]
	if p.Customer != "Phiri" || p.Method != "Mukuru" {
		t.Fatalf("payment = %+v", p)
	}
	if !p.AmountMwk.Equal(decimal.NewFromInt(150000)) {
		t.Fatalf("amount = %s", p.AmountMwk)
	}
}

func TestReadInvoiceLossesAndStatistics(t *testing.T) {
	f := newInvoiceWorkbook(t)
	defer f.Close()

	losses, err := ReadInvoiceLosses(f)
	if err != nil {
		t.Fatalf("ReadInvoiceLosses: %v", err)
	}
	if len(losses) != 1 {
		t.Fatalf("got %d losses, want 1", len(losses))
	}
	if losses[0].Brand != "Samsung" || losses[0].Model != "A05" || losses[0].Qty != 1 {
		t.Fatalf("loss = %+v", losses[0])
	}

	stats, err := ReadInvoiceStatistics(f)
	if err != nil {
		t.Fatalf("ReadInvoiceStatistics: %v", err)
	}
	if !stats.MukuruRate.Equal(decimal.NewFromInt(295)) || !stats.CashRate.Equal(decimal.NewFromInt(288)) {
		t.Fatalf("stats = %+v", stats)
	}
}

func TestReadInvoiceOldFormat(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName("Sheet1", InvoiceOldCashSheet); err != nil {
		t.Fatalf("SetSheetName: %v", err)
	}
	if _, err := f.NewSheet(InvoiceOldMukuruSheet); err != nil {
		t.Fatalf("NewSheet: %v", err)
	}

	// Cash sheet: rows 1-2 headers, row 3 a sale with the discount hidden
	// in the Note column as a negative fraction
	mustSet(t, f, InvoiceOldCashSheet, OldCashDateCol, 3, "2024.8.5")
	mustSet(t, f, InvoiceOldCashSheet, OldCashSizeCol, 3, "175/70R13")
	mustSet(t, f, InvoiceOldCashSheet, OldCashTypeCol, 3, "New")
	mustSet(t, f, InvoiceOldCashSheet, OldCashBrandCol, 3, "Dunlop")
	mustSet(t, f, InvoiceOldCashSheet, OldCashQtyCol, 3, 2)
	mustSet(t, f, InvoiceOldCashSheet, OldCashPriceCol, 3, 60000)
	mustSet(t, f, InvoiceOldCashSheet, OldCashNoteCol, 3, -0.05)
	mustSet(t, f, InvoiceOldCashSheet, OldCashCustomerCol, 3, "Mwale")

	// embedded payment sub-section: repeated header then payment rows
	mustSet(t, f, InvoiceOldCashSheet, 1, 5, "Date")
	mustSet(t, f, InvoiceOldCashSheet, OldPayDateCol, 6, "2024.8.7")
	mustSet(t, f, InvoiceOldCashSheet, OldPayCustomerCol, 6, "Mwale")
	mustSet(t, f, InvoiceOldCashSheet, OldPayAmountCol, 6, 90000)

	mustSet(t, f, InvoiceOldMukuruSheet, OldMukuruDateCol, 3, "2024.8.6")
	mustSet(t, f, InvoiceOldMukuruSheet, OldMukuruSizeCol, 3, "155/70R12")
	mustSet(t, f, InvoiceOldMukuruSheet, OldMukuruQtyCol, 3, 1)
	mustSet(t, f, InvoiceOldMukuruSheet, OldMukuruPriceCol, 3, 45000)

	sales, err := ReadInvoiceSalesOld(f)
	if err != nil {
		t.Fatalf("ReadInvoiceSalesOld: %v", err)
	}
	if len(sales) != 2 {
		t.Fatalf("got %d sales, want 2", len(sales))
	}
	cash := sales[0]
	if cash.PaymentMethod != "Cash" {
		t.Fatalf("cash sheet sale method = %q", cash.PaymentMethod)
	}
	if !cash.DiscountPct.Equal(decimal.NewFromInt(5)) {
		t.Fatalf("note-column discount = %s, want 5", cash.DiscountPct)
	}
	if !cash.Date.Equal(time.Date(2024, 8, 5, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("dotted date = %s", cash.Date)
	}
	if sales[1].PaymentMethod != "Mukuru" {
		t.Fatalf("mukuru sheet sale method = %q", sales[1].PaymentMethod)
	}

	payments, err := ReadInvoicePaymentsOld(f)
	if err != nil {
		t.Fatalf("ReadInvoicePaymentsOld: %v", err)
	}
	if len(payments) != 1 {
		t.Fatalf("got %d payments, want 1", len(payments))
	}
	if payments[0].Method != "Cash" || !payments[0].AmountMwk.Equal(decimal.NewFromInt(90000)) {
		t.Fatalf("payment = %+v", payments[0])
	}
}

func TestReadDailySales(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	// daily files carry decorated variants of the sheet name
	sheet := "Daily SALES Record"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		t.Fatalf("SetSheetName: %v", err)
	}

	mustSet(t, f, sheet, 1, 1, "Invoice")
	mustSet(t, f, sheet, SalesDateCol, DailyHeaderRow, "Date")
	mustSet(t, f, sheet, SalesDateCol, DailyDataStartRow, "2025-02-03")
	mustSet(t, f, sheet, SalesSizeCol, DailyDataStartRow, "175/70R13")
	mustSet(t, f, sheet, SalesQtyCol, DailyDataStartRow, 3)
	mustSet(t, f, sheet, SalesPriceCol, DailyDataStartRow, 52000)

	sales, err := ReadDailySales(f)
	if err != nil {
		t.Fatalf("ReadDailySales: %v", err)
	}
	if len(sales) != 1 {
		t.Fatalf("got %d sales, want 1", len(sales))
	}
	if sales[0].Qty != 3 || sales[0].Size != "175/70R13" {
		t.Fatalf("sale = %+v", sales[0])
	}

	// no payment sheet in a sales-only daily file is fine
	payments, err := ReadDailyPayments(f)
	if err != nil {
		t.Fatalf("ReadDailyPayments: %v", err)
	}
	if len(payments) != 0 {
		t.Fatalf("got %d payments, want 0", len(payments))
	}
}

func TestReadPhoneStock(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()

	mustSet(t, f, "Sheet1", 1, 1, "Package")
	// package group header row: no brand, no model
	mustSet(t, f, "Sheet1", 1, 2, "Box 1")
	mustSet(t, f, "Sheet1", StockBrandCol, 3, "Samsung")
	mustSet(t, f, "Sheet1", StockModelCol, 3, "A05")
	mustSet(t, f, "Sheet1", StockConfigCol, 3, "4+64")
	mustSet(t, f, "Sheet1", StockQtyCol, 3, 10)
	mustSet(t, f, "Sheet1", StockBrandCol, 4, "Itel")
	mustSet(t, f, "Sheet1", StockModelCol, 4, "A18")
	mustSet(t, f, "Sheet1", StockQtyCol, 4, 5)

	rows, err := ReadPhoneStock(f)
	if err != nil {
		t.Fatalf("ReadPhoneStock: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}
	if rows[0].Brand != "Samsung" || rows[0].Quantity != 10 {
		t.Fatalf("row = %+v", rows[0])
	}
}

func TestParseCellDateFormats(t *testing.T) {
	cases := []struct {
		raw  string
		want time.Time
	}{
		{"2025-01-15", time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)},
		{"2025/01/15", time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)},
		{"1/15/2025", time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)},
		{"2024.8.5", time.Date(2024, 8, 5, 0, 0, 0, 0, time.UTC)},
		{"45658", time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}, // Excel serial
	}
	for _, c := range cases {
		got, ok := parseCellDate(c.raw)
		if !ok {
			t.Fatalf("parseCellDate(%q) failed", c.raw)
		}
		if !got.Equal(c.want) {
			t.Fatalf("parseCellDate(%q) = %s, want %s", c.raw, got, c.want)
		}
	}
	if _, ok := parseCellDate("not a date"); ok {
		t.Fatalf("garbage should not parse")
	}
}
