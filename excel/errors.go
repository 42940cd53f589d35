package excel

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

// LayoutMismatchError reports a layout request this resolver does not
// define. This is always a programming error in the caller, never a
// user-recoverable condition.
type LayoutMismatchError struct {
	ProductType ProductType
}

func (e *LayoutMismatchError) Error() string {
	return fmt.Sprintf("no sheet layout defined for product type %q", e.ProductType)
}

// FormulaProtectionError reports an attempted write into a formula column.
// The whole export operation must abort with zero partial writes.
type FormulaProtectionError struct {
	Sheet string
	Row   int
	Col   int
}

func (e *FormulaProtectionError) Error() string {
	cell, err := excelize.CoordinatesToCellName(e.Col, e.Row)
	if err != nil {
		cell = fmt.Sprintf("(%d,%d)", e.Col, e.Row)
	}
	return fmt.Sprintf("refused write to formula cell %s!%s: column %d holds workbook formulas", e.Sheet, cell, e.Col)
}

// WorkbookStructureError reports a required sheet or header that is missing
// or unexpected. Fatal to the whole import/export.
type WorkbookStructureError struct {
	Detail string
}

func (e *WorkbookStructureError) Error() string {
	return "unexpected workbook structure: " + e.Detail
}
