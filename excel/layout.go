package excel

import "fmt"

// The inventory workbook has TWO different column layouts:
//   - NEW layout (most months): exchange rate in I54, M=Initial, N=Add, O-AS=days
//   - OLD layout (months 8, 9, 10): exchange rate in M2, N=Initial, O=Add, P-AT=days
//
// The layout is a property of the period, never sniffed from file content.

type ProductType string

const (
	ProductTypeTyre  ProductType = "tyre"
	ProductTypePhone ProductType = "phone"
)

// Columns of the tyre inventory sheet that hold workbook formulas
// (1-indexed): G=after-duty cost, H=QTY, I=suggested price, J=I/450/7,
// K=total sold. These must never be overwritten.
var formulaColumns = map[int]struct{}{
	7:  {},
	8:  {},
	9:  {},
	10: {},
	11: {},
}

const (
	// Inventory sheet row range: row 1 = headers, rows 2-46 = tyres,
	// row 47 = "Total", rows 48-50 = brandless extras,
	// row 51 = "Total Tyre Available".
	DataStartRow = 2
	DataEndRow   = 51
)

// Inventory sheet identity/data columns (1-indexed).
const (
	InvSizeCol           = 1  // A
	InvTypeCol           = 2  // B
	InvBrandCol          = 3  // C
	InvPatternCol        = 4  // D
	InvLiSrCol           = 5  // E
	InvCostCol           = 6  // F
	InvSuggestedPriceCol = 9  // I (formula column, read-only)
	InvOriginalPriceCol  = 12 // L
)

// SheetLayout is the resolved period-specific column map for the inventory
// workbook, plus the formula-protected column set.
type SheetLayout struct {
	ExchangeRateRow int
	ExchangeRateCol int
	InitialStockCol int
	AddedStockCol   int
	DailyStartCol   int // day 1
	DailyEndCol     int // day 31

	DataStartRow   int
	DataEndRow     int
	FormulaColumns map[int]struct{}
}

// DayColumn converts a day of month (1-31) to its column index.
func (l SheetLayout) DayColumn(day int) (int, error) {
	if day < 1 || day > 31 {
		return 0, fmt.Errorf("day must be 1-31, got %d", day)
	}
	return l.DailyStartCol + day - 1, nil
}

// IsProtected reports whether a column holds workbook formulas.
func (l SheetLayout) IsProtected(col int) bool {
	_, ok := l.FormulaColumns[col]
	return ok
}

// NEW layout: most months, and any future month.
var newLayout = SheetLayout{
	ExchangeRateRow: 54,
	ExchangeRateCol: 9, // I54
	InitialStockCol: 13,
	AddedStockCol:   14,
	DailyStartCol:   15, // O
	DailyEndCol:     45, // AS
	DataStartRow:    DataStartRow,
	DataEndRow:      DataEndRow,
	FormulaColumns:  formulaColumns,
}

// OLD layout: months 8, 9, 10. M holds the rate header, data shifted by one.
var oldLayout = SheetLayout{
	ExchangeRateRow: 2,
	ExchangeRateCol: 13, // M2
	InitialStockCol: 14,
	AddedStockCol:   15,
	DailyStartCol:   16, // P
	DailyEndCol:     46, // AT
	DataStartRow:    DataStartRow,
	DataEndRow:      DataEndRow,
	FormulaColumns:  formulaColumns,
}

var oldLayoutMonths = map[int]struct{}{8: {}, 9: {}, 10: {}}

// LayoutForMonth resolves the tyre inventory layout for a month number.
// Total over 1-12; unknown or future months get the NEW layout.
func LayoutForMonth(month int) SheetLayout {
	if _, ok := oldLayoutMonths[month]; ok {
		return oldLayout
	}
	return newLayout
}

// ResolveLayout resolves the layout for a product type and month.
// Only the tyre inventory workbook has month-dependent layouts; requesting
// any other product type is a caller bug.
func ResolveLayout(productType ProductType, month int) (SheetLayout, error) {
	if productType != ProductTypeTyre {
		return SheetLayout{}, &LayoutMismatchError{ProductType: productType}
	}
	return LayoutForMonth(month), nil
}

// SheetName returns the inventory sheet name for a month: "Tyre List_N月".
func SheetName(month int) string {
	return fmt.Sprintf("Tyre List_%d月", month)
}

// Invoice workbook sheet names — NEW format.
const (
	InvoiceSalesSheet    = "Sales Record"
	InvoicePaymentsSheet = "Payment Record"
	InvoiceLossSheet     = "Loss"
	InvoiceStatsSheet    = "Statistic"
	InvoiceBrokenSheet   = "Broken Stock"
)

// Invoice workbook sheet names — OLD format (sales split by payment method).
const (
	InvoiceOldCashSheet   = "Cash"
	InvoiceOldMukuruSheet = "Mukuru"
)

// Invoice "Sales Record" columns (1-indexed). Row 1 = headers.
const (
	SalesDateCol     = 1
	SalesBrandCol    = 2
	SalesTypeCol     = 3
	SalesSizeCol     = 4
	SalesQtyCol      = 5
	SalesPriceCol    = 6
	SalesDiscountCol = 7
	SalesTotalCol    = 8 // formula: =E*F*(1-G)
	SalesPaymentCol  = 9
	SalesCustomerCol = 10
)

// Invoice "Payment Record" columns. Row 1 = headers.
const (
	PayDateCol     = 1
	PayCustomerCol = 2
	PayMethodCol   = 3
	PayAmountCol   = 4
)

// Invoice "Statistic" sheet rate cells.
const (
	StatsMukuruRateRow = 2
	StatsCashRateRow   = 3
	StatsRateCol       = 9 // I
)

// OLD format "Cash" sheet: row 1 merged header, row 2 headers, row 3+ data.
// The Note column carries the discount as a negative fraction (e.g. -0.05).
const (
	OldCashDateCol      = 1
	OldCashSizeCol      = 2
	OldCashTypeCol      = 3
	OldCashBrandCol     = 4
	OldCashQtyCol       = 5
	OldCashPriceCol     = 6
	OldCashTotalCol     = 7
	OldCashNoteCol      = 8
	OldCashCustomerCol  = 9
	OldCashDataStartRow = 3
)

// OLD format "Mukuru" sheet: same shape, no Note column.
const (
	OldMukuruDateCol      = 1
	OldMukuruBrandCol     = 2
	OldMukuruTypeCol      = 3
	OldMukuruSizeCol      = 4
	OldMukuruQtyCol       = 5
	OldMukuruPriceCol     = 6
	OldMukuruTotalCol     = 7
	OldMukuruCustomerCol  = 8
	OldMukuruDataStartRow = 3
)

// Embedded payment sub-section of the old Cash/Mukuru sheets.
const (
	OldPayDateCol     = 1
	OldPayCustomerCol = 2
	OldPayAmountCol   = 4 // D=MWK
)

// Daily sales files: row 1 = "Invoice" title, row 2 = headers, row 3+ data.
const (
	DailyHeaderRow    = 2
	DailyDataStartRow = 3
)

// Phone stock files: A=Package, B=Brand, C=Model, D=Config, E=Quantity.
// Row 1 = headers, row 2+ = data.
const (
	StockBrandCol     = 2
	StockModelCol     = 3
	StockConfigCol    = 4
	StockQtyCol       = 5
	StockDataStartRow = 2
)
