package excel

import (
	"github.com/xuri/excelize/v2"
)

// WriteSet stages cell writes in memory. Every staged write is checked
// against the layout's formula-protected column set before it is accepted,
// so a single violation leaves the workbook completely untouched: Apply is
// only ever reached with a fully vetted set.
type WriteSet struct {
	layout SheetLayout
	writes []cellWrite
}

type cellWrite struct {
	sheet   string
	row     int
	col     int
	value   any
	formula string
}

func NewWriteSet(layout SheetLayout) *WriteSet {
	return &WriteSet{layout: layout}
}

// Stage queues a value write. Returns FormulaProtectionError if the target
// column holds workbook formulas.
func (w *WriteSet) Stage(sheet string, row, col int, value any) error {
	if w.layout.IsProtected(col) {
		return &FormulaProtectionError{Sheet: sheet, Row: row, Col: col}
	}
	w.writes = append(w.writes, cellWrite{sheet: sheet, row: row, col: col, value: value})
	return nil
}

// StageFormula queues a formula write (used for the invoice total column,
// where the workbook expects the formula itself, not a computed value).
func (w *WriteSet) StageFormula(sheet string, row, col int, formula string) error {
	if w.layout.IsProtected(col) {
		return &FormulaProtectionError{Sheet: sheet, Row: row, Col: col}
	}
	w.writes = append(w.writes, cellWrite{sheet: sheet, row: row, col: col, formula: formula})
	return nil
}

// Clear queues an empty-value write for a cell.
func (w *WriteSet) Clear(sheet string, row, col int) error {
	return w.Stage(sheet, row, col, nil)
}

func (w *WriteSet) Len() int {
	return len(w.writes)
}

// Apply commits every staged write to the workbook. Call only after all
// staging succeeded; staging errors mean the whole set must be discarded.
func (w *WriteSet) Apply(f *excelize.File) error {
	for _, cw := range w.writes {
		cell, err := excelize.CoordinatesToCellName(cw.col, cw.row)
		if err != nil {
			return err
		}
		if cw.formula != "" {
			if err := f.SetCellFormula(cw.sheet, cell, cw.formula); err != nil {
				return err
			}
			continue
		}
		if err := f.SetCellValue(cw.sheet, cell, cw.value); err != nil {
			return err
		}
	}
	return nil
}
