package excel

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

var validate = validator.New()

// InventoryRow is one tyre row decoded from the inventory workbook.
// Cost/price fields are read-only snapshots used to seed new master
// records; the workbook's formula columns are never the source of truth.
type InventoryRow struct {
	Row            int
	Size           string `validate:"required"`
	Type           string
	Brand          string
	Pattern        string
	LiSr           string
	Cost           decimal.Decimal
	OriginalPrice  decimal.Decimal
	SuggestedPrice decimal.Decimal
	InitialStock   int
	AddedStock     int
	DailySales     map[int]int
}

// SaleRow is one decoded sales row from an invoice or daily-sales workbook.
type SaleRow struct {
	Row           int
	Date          time.Time
	Brand         string
	Type          string
	Size          string `validate:"required"`
	Qty           int    `validate:"gt=0"`
	UnitPrice     decimal.Decimal
	DiscountPct   decimal.Decimal
	Total         decimal.Decimal
	PaymentMethod string
	Customer      string
}

// Validate applies the per-row rules: quantity > 0, unit price >= 0,
// discount within [0,100].
func (r SaleRow) Validate() error {
	if err := validate.Struct(r); err != nil {
		return err
	}
	if r.UnitPrice.IsNegative() {
		return errors.New("unit price must not be negative")
	}
	if r.DiscountPct.IsNegative() || r.DiscountPct.GreaterThan(decimal.NewFromInt(100)) {
		return errors.New("discount must be within 0-100")
	}
	return nil
}

// PaymentRow is one decoded payment row.
type PaymentRow struct {
	Row       int
	Date      time.Time
	Customer  string
	Method    string
	AmountMwk decimal.Decimal
}

func (r PaymentRow) Validate() error {
	if !r.AmountMwk.IsPositive() {
		return errors.New("payment amount must be positive")
	}
	return nil
}

// LossRow is one decoded loss/broken-stock row.
type LossRow struct {
	Row         int
	Date        time.Time
	Brand       string
	Model       string
	Config      string `validate:"required"`
	Qty         int    `validate:"gt=0"`
	Cost        decimal.Decimal
	Exchanged   string
	Refund      decimal.Decimal
	TotalRefund decimal.Decimal
	Customer    string
	Note        string
}

func (r LossRow) Validate() error {
	return validate.Struct(r)
}

// Statistics carries the exchange rates read from the invoice Statistic sheet.
type Statistics struct {
	MukuruRate decimal.Decimal
	CashRate   decimal.Decimal
}

// PhoneStockRow is one decoded phone stock-delivery row.
type PhoneStockRow struct {
	Row      int
	Brand    string `validate:"required"`
	Model    string `validate:"required"`
	Config   string
	Quantity int `validate:"gt=0"`
}

func (r PhoneStockRow) Validate() error {
	return validate.Struct(r)
}

func isSummaryLabel(v string) bool {
	switch strings.ToLower(v) {
	case "total", "totals", "total quantity", "total price", "total price (mkw)", "total tyre available":
		return true
	}
	return false
}

// ReadInventory decodes the tyre rows of a month's inventory sheet.
// Summary rows inside the fixed data range are skipped by their labels,
// exactly as the workbook lays them out; rows outside the range are never
// touched.
func ReadInventory(f *excelize.File, month int) ([]InventoryRow, error) {
	sheet := SheetName(month)
	if !hasSheet(f, sheet) {
		return nil, &WorkbookStructureError{Detail: fmt.Sprintf("sheet %q not found (have %v)", sheet, f.GetSheetList())}
	}
	layout := LayoutForMonth(month)

	var tyres []InventoryRow
	for row := layout.DataStartRow; row <= layout.DataEndRow; row++ {
		size := cellString(f, sheet, row, InvSizeCol)
		if size == "" || isSummaryLabel(size) {
			continue
		}

		daily := make(map[int]int)
		for day := 1; day <= 31; day++ {
			col, err := layout.DayColumn(day)
			if err != nil {
				return nil, err
			}
			if qty := cellInt(f, sheet, row, col); qty > 0 {
				daily[day] = qty
			}
		}

		tyres = append(tyres, InventoryRow{
			Row:            row,
			Size:           size,
			Type:           cellString(f, sheet, row, InvTypeCol),
			Brand:          cellString(f, sheet, row, InvBrandCol),
			Pattern:        cellString(f, sheet, row, InvPatternCol),
			LiSr:           cellString(f, sheet, row, InvLiSrCol),
			Cost:           cellDecimal(f, sheet, row, InvCostCol),
			OriginalPrice:  cellDecimal(f, sheet, row, InvOriginalPriceCol),
			SuggestedPrice: cellDecimal(f, sheet, row, InvSuggestedPriceCol),
			InitialStock:   cellInt(f, sheet, row, layout.InitialStockCol),
			AddedStock:     cellInt(f, sheet, row, layout.AddedStockCol),
			DailySales:     daily,
		})
	}
	return tyres, nil
}

// ReadExchangeRate reads the embedded exchange-rate cell for a month.
func ReadExchangeRate(f *excelize.File, month int) (decimal.Decimal, error) {
	sheet := SheetName(month)
	if !hasSheet(f, sheet) {
		return decimal.Zero, &WorkbookStructureError{Detail: fmt.Sprintf("sheet %q not found", sheet)}
	}
	layout := LayoutForMonth(month)
	rate := cellDecimal(f, sheet, layout.ExchangeRateRow, layout.ExchangeRateCol)
	if rate.IsZero() {
		cell, _ := excelize.CoordinatesToCellName(layout.ExchangeRateCol, layout.ExchangeRateRow)
		return decimal.Zero, &WorkbookStructureError{Detail: fmt.Sprintf("exchange rate missing at %s!%s", sheet, cell)}
	}
	return rate, nil
}

// InvoiceFormat identifies which historical invoice shape a file uses.
type InvoiceFormat string

const (
	InvoiceFormatNew InvoiceFormat = "new" // Sales Record / Payment Record sheets
	InvoiceFormatOld InvoiceFormat = "old" // Cash / Mukuru sheets
)

// DetectInvoiceFormat decides old vs new by the sheets present.
func DetectInvoiceFormat(f *excelize.File) (InvoiceFormat, error) {
	if hasSheet(f, InvoiceSalesSheet) {
		return InvoiceFormatNew, nil
	}
	if hasSheet(f, InvoiceOldCashSheet) || hasSheet(f, InvoiceOldMukuruSheet) {
		return InvoiceFormatOld, nil
	}
	return "", &WorkbookStructureError{
		Detail: fmt.Sprintf("unrecognized invoice format, sheets: %v", f.GetSheetList()),
	}
}

// normalizeDiscount converts the workbook's fractional discounts into
// percentages: 0.05 and the old Note-column -0.05 both become 5. Values
// already >= 1 pass through as percentages.
func normalizeDiscount(d decimal.Decimal) decimal.Decimal {
	d = d.Abs()
	if d.IsPositive() && d.LessThan(decimal.NewFromInt(1)) {
		return d.Mul(decimal.NewFromInt(100))
	}
	return d
}

// ReadInvoiceSales reads the new-format "Sales Record" sheet.
func ReadInvoiceSales(f *excelize.File) ([]SaleRow, error) {
	if !hasSheet(f, InvoiceSalesSheet) {
		return nil, &WorkbookStructureError{Detail: fmt.Sprintf("sheet %q not found", InvoiceSalesSheet)}
	}
	var sales []SaleRow
	maxRow := sheetMaxRow(f, InvoiceSalesSheet)
	for row := 2; row <= maxRow; row++ {
		sr, ok := readSaleRow(f, InvoiceSalesSheet, row, saleColumns{
			date: SalesDateCol, brand: SalesBrandCol, typ: SalesTypeCol,
			size: SalesSizeCol, qty: SalesQtyCol, price: SalesPriceCol,
			discount: SalesDiscountCol, total: SalesTotalCol,
			payment: SalesPaymentCol, customer: SalesCustomerCol,
		}, "")
		if ok {
			sales = append(sales, sr)
		}
	}
	return sales, nil
}

type saleColumns struct {
	date, brand, typ, size, qty, price, discount, total, payment, customer, note int
}

func readSaleRow(f *excelize.File, sheet string, row int, cols saleColumns, forcedMethod string) (SaleRow, bool) {
	size := cellString(f, sheet, row, cols.size)
	qty := cellInt(f, sheet, row, cols.qty)
	dateStr := cellString(f, sheet, row, cols.date)

	if size == "" && qty == 0 && dateStr == "" {
		return SaleRow{}, false
	}
	if isSummaryLabel(size) || isSummaryLabel(dateStr) {
		return SaleRow{}, false
	}

	sr := SaleRow{
		Row:       row,
		Brand:     cellString(f, sheet, row, cols.brand),
		Type:      cellString(f, sheet, row, cols.typ),
		Size:      size,
		Qty:       qty,
		UnitPrice: cellDecimal(f, sheet, row, cols.price),
		Total:     cellDecimal(f, sheet, row, cols.total),
		Customer:  cellString(f, sheet, row, cols.customer),
	}
	if d, ok := parseCellDate(dateStr); ok {
		sr.Date = d
	}
	if cols.discount > 0 {
		sr.DiscountPct = normalizeDiscount(cellDecimal(f, sheet, row, cols.discount))
	} else if cols.note > 0 {
		// Old Cash sheets keep the discount in the Note column as e.g. -0.05
		sr.DiscountPct = normalizeDiscount(cellDecimal(f, sheet, row, cols.note))
	}
	if forcedMethod != "" {
		sr.PaymentMethod = forcedMethod
	} else if cols.payment > 0 {
		sr.PaymentMethod = cellString(f, sheet, row, cols.payment)
	}
	if sr.Size == "" && sr.Qty == 0 {
		return SaleRow{}, false
	}
	return sr, true
}

// ReadInvoicePayments reads the new-format "Payment Record" sheet.
func ReadInvoicePayments(f *excelize.File) ([]PaymentRow, error) {
	if !hasSheet(f, InvoicePaymentsSheet) {
		return nil, &WorkbookStructureError{Detail: fmt.Sprintf("sheet %q not found", InvoicePaymentsSheet)}
	}
	return readPaymentRows(f, InvoicePaymentsSheet, 2, PayDateCol, PayCustomerCol, PayMethodCol, PayAmountCol, ""), nil
}

func readPaymentRows(f *excelize.File, sheet string, startRow, dateCol, custCol, methodCol, amountCol int, forcedMethod string) []PaymentRow {
	var payments []PaymentRow
	maxRow := sheetMaxRow(f, sheet)
	for row := startRow; row <= maxRow; row++ {
		amount := cellDecimal(f, sheet, row, amountCol)
		if !amount.IsPositive() {
			continue
		}
		dateStr := cellString(f, sheet, row, dateCol)
		if isSummaryLabel(dateStr) {
			continue
		}
		pr := PaymentRow{
			Row:       row,
			Customer:  cellString(f, sheet, row, custCol),
			AmountMwk: amount,
		}
		if d, ok := parseCellDate(dateStr); ok {
			pr.Date = d
		}
		if forcedMethod != "" {
			pr.Method = forcedMethod
		} else if methodCol > 0 {
			pr.Method = cellString(f, sheet, row, methodCol)
		}
		payments = append(payments, pr)
	}
	return payments
}

// ReadInvoiceSalesOld reads the old-format Cash/Mukuru sheets. Each sheet
// carries its sales rows first, then an embedded payment sub-section whose
// header row repeats "Date" in column A.
func ReadInvoiceSalesOld(f *excelize.File) ([]SaleRow, error) {
	var all []SaleRow
	if hasSheet(f, InvoiceOldCashSheet) {
		sales, _ := readOldSheetSales(f, InvoiceOldCashSheet, "Cash", saleColumns{
			date: OldCashDateCol, size: OldCashSizeCol, typ: OldCashTypeCol,
			brand: OldCashBrandCol, qty: OldCashQtyCol, price: OldCashPriceCol,
			total: OldCashTotalCol, customer: OldCashCustomerCol, note: OldCashNoteCol,
		}, OldCashDataStartRow)
		all = append(all, sales...)
	}
	if hasSheet(f, InvoiceOldMukuruSheet) {
		sales, _ := readOldSheetSales(f, InvoiceOldMukuruSheet, "Mukuru", saleColumns{
			date: OldMukuruDateCol, size: OldMukuruSizeCol, typ: OldMukuruTypeCol,
			brand: OldMukuruBrandCol, qty: OldMukuruQtyCol, price: OldMukuruPriceCol,
			total: OldMukuruTotalCol, customer: OldMukuruCustomerCol,
		}, OldMukuruDataStartRow)
		all = append(all, sales...)
	}
	return all, nil
}

// ReadInvoicePaymentsOld reads the embedded payment sub-sections of the
// old-format Cash/Mukuru sheets.
func ReadInvoicePaymentsOld(f *excelize.File) ([]PaymentRow, error) {
	var all []PaymentRow
	for _, s := range []struct {
		sheet  string
		method string
		cols   saleColumns
		start  int
	}{
		{InvoiceOldCashSheet, "Cash", saleColumns{
			date: OldCashDateCol, size: OldCashSizeCol, typ: OldCashTypeCol,
			brand: OldCashBrandCol, qty: OldCashQtyCol, price: OldCashPriceCol,
			total: OldCashTotalCol, customer: OldCashCustomerCol, note: OldCashNoteCol,
		}, OldCashDataStartRow},
		{InvoiceOldMukuruSheet, "Mukuru", saleColumns{
			date: OldMukuruDateCol, size: OldMukuruSizeCol, typ: OldMukuruTypeCol,
			brand: OldMukuruBrandCol, qty: OldMukuruQtyCol, price: OldMukuruPriceCol,
			total: OldMukuruTotalCol, customer: OldMukuruCustomerCol,
		}, OldMukuruDataStartRow},
	} {
		if !hasSheet(f, s.sheet) {
			continue
		}
		_, payStart := readOldSheetSales(f, s.sheet, s.method, s.cols, s.start)
		all = append(all, readPaymentRows(f, s.sheet, payStart, OldPayDateCol, OldPayCustomerCol, 0, OldPayAmountCol, s.method)...)
	}
	return all, nil
}

// readOldSheetSales reads sales rows until the embedded payment section
// header (a second "Date" in column A) and returns the payment start row.
func readOldSheetSales(f *excelize.File, sheet, method string, cols saleColumns, startRow int) ([]SaleRow, int) {
	var sales []SaleRow
	maxRow := sheetMaxRow(f, sheet)
	payStart := maxRow + 1
	for row := startRow; row <= maxRow; row++ {
		dateStr := cellString(f, sheet, row, cols.date)
		if strings.EqualFold(dateStr, "date") {
			payStart = row + 1
			break
		}
		if sr, ok := readSaleRow(f, sheet, row, cols, method); ok {
			sales = append(sales, sr)
		}
	}
	return sales, payStart
}

// ReadInvoiceLosses reads the invoice "Loss" sheet. Row 1 = title,
// row 2 = headers, row 3+ = data.
func ReadInvoiceLosses(f *excelize.File) ([]LossRow, error) {
	if !hasSheet(f, InvoiceLossSheet) {
		return nil, nil
	}
	var losses []LossRow
	maxRow := sheetMaxRow(f, InvoiceLossSheet)
	for row := 3; row <= maxRow; row++ {
		qty := cellInt(f, InvoiceLossSheet, row, 5)
		if qty == 0 {
			continue
		}
		lr := LossRow{
			Row:         row,
			Brand:       cellString(f, InvoiceLossSheet, row, 2),
			Model:       cellString(f, InvoiceLossSheet, row, 3),
			Config:      cellString(f, InvoiceLossSheet, row, 4),
			Qty:         qty,
			Cost:        cellDecimal(f, InvoiceLossSheet, row, 6),
			Exchanged:   cellString(f, InvoiceLossSheet, row, 7),
			Refund:      cellDecimal(f, InvoiceLossSheet, row, 8),
			TotalRefund: cellDecimal(f, InvoiceLossSheet, row, 9),
			Customer:    cellString(f, InvoiceLossSheet, row, 10),
			Note:        cellString(f, InvoiceLossSheet, row, 11),
		}
		if d, ok := cellDate(f, InvoiceLossSheet, row, 1); ok {
			lr.Date = d
		}
		losses = append(losses, lr)
	}
	return losses, nil
}

// ReadInvoiceStatistics reads the Mukuru/Cash rates from the Statistic sheet.
func ReadInvoiceStatistics(f *excelize.File) (Statistics, error) {
	if !hasSheet(f, InvoiceStatsSheet) {
		return Statistics{}, nil
	}
	return Statistics{
		MukuruRate: cellDecimal(f, InvoiceStatsSheet, StatsMukuruRateRow, StatsRateCol),
		CashRate:   cellDecimal(f, InvoiceStatsSheet, StatsCashRateRow, StatsRateCol),
	}, nil
}

// ReadDailySales reads the sales sheet of a single-day file. Daily files
// have a title row, a header row, then data, and sometimes quoted sheet
// names.
func ReadDailySales(f *excelize.File) ([]SaleRow, error) {
	sheet, ok := findSheet(f, "sales record")
	if !ok {
		return nil, &WorkbookStructureError{Detail: fmt.Sprintf("no sales record sheet, have %v", f.GetSheetList())}
	}
	var sales []SaleRow
	maxRow := sheetMaxRow(f, sheet)
	for row := DailyDataStartRow; row <= maxRow; row++ {
		sr, ok := readSaleRow(f, sheet, row, saleColumns{
			date: SalesDateCol, brand: SalesBrandCol, typ: SalesTypeCol,
			size: SalesSizeCol, qty: SalesQtyCol, price: SalesPriceCol,
			discount: SalesDiscountCol, total: SalesTotalCol,
			payment: SalesPaymentCol, customer: SalesCustomerCol,
		}, "")
		if ok {
			sales = append(sales, sr)
		}
	}
	return sales, nil
}

// ReadDailyPayments reads the payment sheet of a single-day file; a missing
// sheet is not an error (many daily files carry sales only).
func ReadDailyPayments(f *excelize.File) ([]PaymentRow, error) {
	sheet, ok := findSheet(f, "payment record")
	if !ok {
		return nil, nil
	}
	return readPaymentRows(f, sheet, 2, PayDateCol, PayCustomerCol, PayMethodCol, PayAmountCol, ""), nil
}

// ReadPhoneStock reads a phone stock-delivery file. Rows with neither brand
// nor model are package group headers and are skipped.
func ReadPhoneStock(f *excelize.File) ([]PhoneStockRow, error) {
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, &WorkbookStructureError{Detail: "workbook has no sheets"}
	}
	sheet := sheets[0]
	var rows []PhoneStockRow
	maxRow := sheetMaxRow(f, sheet)
	for row := StockDataStartRow; row <= maxRow; row++ {
		brand := cellString(f, sheet, row, StockBrandCol)
		model := cellString(f, sheet, row, StockModelCol)
		if brand == "" && model == "" {
			continue
		}
		qty := cellInt(f, sheet, row, StockQtyCol)
		if qty <= 0 {
			continue
		}
		rows = append(rows, PhoneStockRow{
			Row:      row,
			Brand:    brand,
			Model:    model,
			Config:   cellString(f, sheet, row, StockConfigCol),
			Quantity: qty,
		})
	}
	return rows, nil
}
