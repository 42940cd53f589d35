package excel

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// InventoryExport is one tyre's store-side state pushed back into the
// inventory workbook.
type InventoryExport struct {
	Size         string
	Type         string
	Brand        string
	Pattern      string
	LiSr         string
	Cost         decimal.Decimal
	InitialStock int
	AddedStock   int
	DailySales   map[int]int
	// PreferredRow is the workbook row the tyre was last seen at, 0 when
	// unknown. Used as a placement hint when the size is not found.
	PreferredRow int
}

// ExportInventory writes store-side stock and daily-sales figures into a
// month's inventory sheet. Rows are matched by size within the fixed data
// range; tyres with no existing row are written into the first empty row.
// Every write is staged and checked against the protected columns before
// any cell is touched, so a guard failure leaves the workbook unchanged.
func ExportInventory(f *excelize.File, month int, tyres []InventoryExport) error {
	sheet := SheetName(month)
	if !hasSheet(f, sheet) {
		return &WorkbookStructureError{Detail: fmt.Sprintf("sheet %q not found", sheet)}
	}
	layout := LayoutForMonth(month)

	rowBySize := make(map[string]int)
	var freeRows []int
	for row := layout.DataStartRow; row <= layout.DataEndRow; row++ {
		size := cellString(f, sheet, row, InvSizeCol)
		if size == "" {
			freeRows = append(freeRows, row)
			continue
		}
		if isSummaryLabel(size) {
			continue
		}
		rowBySize[NormalizeSize(size)] = row
	}

	ws := NewWriteSet(layout)

	// Blank every stock and daily cell in the data range first; the value
	// writes staged below land on top. A quantity deleted store-side would
	// otherwise survive in the workbook. Summary rows keep their formulas.
	for row := layout.DataStartRow; row <= layout.DataEndRow; row++ {
		if isSummaryLabel(cellString(f, sheet, row, InvSizeCol)) {
			continue
		}
		if err := ws.Clear(sheet, row, layout.InitialStockCol); err != nil {
			return err
		}
		if err := ws.Clear(sheet, row, layout.AddedStockCol); err != nil {
			return err
		}
		for day := 1; day <= 31; day++ {
			col, err := layout.DayColumn(day)
			if err != nil {
				return err
			}
			if err := ws.Clear(sheet, row, col); err != nil {
				return err
			}
		}
	}

	for _, t := range tyres {
		row, found := rowBySize[NormalizeSize(t.Size)]
		if !found {
			if len(freeRows) == 0 {
				return &WorkbookStructureError{Detail: fmt.Sprintf("no free row for tyre %q in %s", t.Size, sheet)}
			}
			row, freeRows = takeFreeRow(freeRows, t.PreferredRow)
			if err := stageIdentity(ws, sheet, row, t); err != nil {
				return err
			}
		}
		if err := ws.Stage(sheet, row, layout.InitialStockCol, t.InitialStock); err != nil {
			return err
		}
		if err := ws.Stage(sheet, row, layout.AddedStockCol, t.AddedStock); err != nil {
			return err
		}
		for day := 1; day <= 31; day++ {
			col, err := layout.DayColumn(day)
			if err != nil {
				return err
			}
			qty, ok := t.DailySales[day]
			if !ok {
				// untraded days stay blank, matching the hand-kept sheets
				continue
			}
			if err := ws.Stage(sheet, row, col, qty); err != nil {
				return err
			}
		}
	}
	return ws.Apply(f)
}

// takeFreeRow picks preferred when it is among the free rows, otherwise the
// first free row.
func takeFreeRow(free []int, preferred int) (int, []int) {
	for i, row := range free {
		if row == preferred {
			return row, append(free[:i], free[i+1:]...)
		}
	}
	return free[0], free[1:]
}

func stageIdentity(ws *WriteSet, sheet string, row int, t InventoryExport) error {
	for _, w := range []struct {
		col int
		val interface{}
	}{
		{InvSizeCol, t.Size},
		{InvTypeCol, t.Type},
		{InvBrandCol, t.Brand},
		{InvPatternCol, t.Pattern},
		{InvLiSrCol, t.LiSr},
		{InvCostCol, t.Cost.InexactFloat64()},
	} {
		if err := ws.Stage(sheet, row, w.col, w.val); err != nil {
			return err
		}
	}
	return nil
}

// ExportInvoice appends store-side records to an invoice workbook. Rows
// already in the sheets are left alone; each call writes only the records
// it was given, after the last occupied row. The total column is written
// as a formula so the workbook keeps recalculating it.
func ExportInvoice(f *excelize.File, sales []SaleRow, payments []PaymentRow, losses []LossRow) error {
	for _, sheet := range []string{InvoiceSalesSheet, InvoicePaymentsSheet} {
		if !hasSheet(f, sheet) {
			return &WorkbookStructureError{Detail: fmt.Sprintf("sheet %q not found", sheet)}
		}
	}
	if len(losses) > 0 && !hasSheet(f, InvoiceLossSheet) {
		return &WorkbookStructureError{Detail: fmt.Sprintf("sheet %q not found", InvoiceLossSheet)}
	}

	salesStart := nextFreeRow(f, InvoiceSalesSheet, 2)
	for i, s := range sales {
		row := salesStart + i
		set := func(col int, v interface{}) error {
			cell, err := excelize.CoordinatesToCellName(col, row)
			if err != nil {
				return err
			}
			return f.SetCellValue(InvoiceSalesSheet, cell, v)
		}
		if !s.Date.IsZero() {
			if err := set(SalesDateCol, s.Date.Format("2006-01-02")); err != nil {
				return err
			}
		}
		if err := set(SalesBrandCol, s.Brand); err != nil {
			return err
		}
		if err := set(SalesTypeCol, s.Type); err != nil {
			return err
		}
		if err := set(SalesSizeCol, s.Size); err != nil {
			return err
		}
		if err := set(SalesQtyCol, s.Qty); err != nil {
			return err
		}
		if err := set(SalesPriceCol, s.UnitPrice.InexactFloat64()); err != nil {
			return err
		}
		if err := set(SalesDiscountCol, s.DiscountPct.Div(decimal.NewFromInt(100)).InexactFloat64()); err != nil {
			return err
		}
		totalCell, err := excelize.CoordinatesToCellName(SalesTotalCol, row)
		if err != nil {
			return err
		}
		if err := f.SetCellFormula(InvoiceSalesSheet, totalCell, fmt.Sprintf("=E%d*F%d*(1-G%d)", row, row, row)); err != nil {
			return err
		}
		if err := set(SalesPaymentCol, s.PaymentMethod); err != nil {
			return err
		}
		if err := set(SalesCustomerCol, s.Customer); err != nil {
			return err
		}
	}

	payStart := nextFreeRow(f, InvoicePaymentsSheet, 2)
	for i, p := range payments {
		row := payStart + i
		set := func(col int, v interface{}) error {
			cell, err := excelize.CoordinatesToCellName(col, row)
			if err != nil {
				return err
			}
			return f.SetCellValue(InvoicePaymentsSheet, cell, v)
		}
		if !p.Date.IsZero() {
			if err := set(PayDateCol, p.Date.Format("2006-01-02")); err != nil {
				return err
			}
		}
		if err := set(PayCustomerCol, p.Customer); err != nil {
			return err
		}
		if err := set(PayMethodCol, p.Method); err != nil {
			return err
		}
		if err := set(PayAmountCol, p.AmountMwk.InexactFloat64()); err != nil {
			return err
		}
	}

	// Loss data starts at row 3, below a two-row header.
	lossStart := nextFreeRow(f, InvoiceLossSheet, 3)
	for i, l := range losses {
		row := lossStart + i
		set := func(col int, v interface{}) error {
			cell, err := excelize.CoordinatesToCellName(col, row)
			if err != nil {
				return err
			}
			return f.SetCellValue(InvoiceLossSheet, cell, v)
		}
		if !l.Date.IsZero() {
			if err := set(1, l.Date.Format("2006-01-02")); err != nil {
				return err
			}
		}
		for _, w := range []struct {
			col int
			val interface{}
		}{
			{2, l.Brand},
			{3, l.Model},
			{4, l.Config},
			{5, l.Qty},
			{6, l.Cost.InexactFloat64()},
			{7, l.Exchanged},
			{8, l.Refund.InexactFloat64()},
			{9, l.TotalRefund.InexactFloat64()},
			{10, l.Customer},
			{11, l.Note},
		} {
			if err := set(w.col, w.val); err != nil {
				return err
			}
		}
	}
	return nil
}

// nextFreeRow returns the row after the last occupied one, or min for an
// empty sheet.
func nextFreeRow(f *excelize.File, sheet string, min int) int {
	row := sheetMaxRow(f, sheet) + 1
	if row < min {
		row = min
	}
	return row
}

// EnsureMonthSheet makes sure the inventory sheet for a month exists,
// copying the previous month's sheet (falling back to the first sheet) so
// the formula columns and formatting carry over, then blanking the stock
// and daily-sales data. Reports whether a sheet was created.
func EnsureMonthSheet(f *excelize.File, month int) (bool, error) {
	sheet := SheetName(month)
	if hasSheet(f, sheet) {
		return false, nil
	}

	srcName := SheetName(month - 1)
	if month == 1 {
		srcName = SheetName(12)
	}
	srcIdx, err := f.GetSheetIndex(srcName)
	if err != nil || srcIdx < 0 {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return false, &WorkbookStructureError{Detail: "workbook has no sheets to copy from"}
		}
		srcName = sheets[0]
		srcIdx, err = f.GetSheetIndex(srcName)
		if err != nil {
			return false, err
		}
	}

	dstIdx, err := f.NewSheet(sheet)
	if err != nil {
		return false, err
	}
	if err := f.CopySheet(srcIdx, dstIdx); err != nil {
		return false, err
	}

	layout := LayoutForMonth(month)
	srcLayout := LayoutForMonth(monthOfSheet(srcName, month))
	// Blank the copied stock and daily columns; identity and formula
	// columns carry over untouched.
	for row := layout.DataStartRow; row <= layout.DataEndRow; row++ {
		for col := srcLayout.InitialStockCol; col <= srcLayout.DailyEndCol; col++ {
			cell, err := excelize.CoordinatesToCellName(col, row)
			if err != nil {
				return false, err
			}
			if err := f.SetCellValue(sheet, cell, nil); err != nil {
				return false, err
			}
		}
	}
	return true, nil
}

func monthOfSheet(name string, fallback int) int {
	var m int
	if _, err := fmt.Sscanf(name, "Tyre List_%d月", &m); err == nil && m >= 1 && m <= 12 {
		return m
	}
	return fallback
}

var invoiceSalesHeaders = []string{
	"Date", "Brand", "Type", "Size", "QTY", "Unit Price", "Discount",
	"Total Price (MKW)", "Payment Method", "Customer Name",
}

var invoicePaymentHeaders = []string{"Date", "Customer Name", "Payment Method", "MWK"}

var invoiceLossHeaders = []string{
	"Date", "Brand", "Model", "Config", "QTY", "Cost", "Exchanged",
	"Refund", "Total Refund", "Customer", "Note",
}

// CreateInvoiceWorkbook builds a fresh monthly invoice workbook in the new
// format with all its sheets and header rows.
func CreateInvoiceWorkbook() (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", InvoiceSalesSheet); err != nil {
		return nil, err
	}
	for _, sheet := range []string{InvoicePaymentsSheet, InvoiceLossSheet, InvoiceStatsSheet, InvoiceBrokenSheet} {
		if _, err := f.NewSheet(sheet); err != nil {
			return nil, err
		}
	}
	for sheet, headers := range map[string][]string{
		InvoiceSalesSheet:    invoiceSalesHeaders,
		InvoicePaymentsSheet: invoicePaymentHeaders,
		InvoiceLossSheet:     invoiceLossHeaders,
		InvoiceBrokenSheet:   invoiceLossHeaders,
	} {
		for i, h := range headers {
			cell, err := excelize.CoordinatesToCellName(i+1, 1)
			if err != nil {
				return nil, err
			}
			if err := f.SetCellValue(sheet, cell, h); err != nil {
				return nil, err
			}
		}
	}
	if err := f.SetCellValue(InvoiceStatsSheet, "A2", "Mukuru Rate"); err != nil {
		return nil, err
	}
	if err := f.SetCellValue(InvoiceStatsSheet, "A3", "Cash Rate"); err != nil {
		return nil, err
	}
	return f, nil
}

// SaveAtomic writes the workbook to a temp file next to the target and
// renames it into place, so readers never see a half-written file.
func SaveAtomic(f *excelize.File, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".xlsx-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if err := f.Write(tmp); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}
