package excel

import (
	"errors"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
)

func TestWriteSetRejectsProtectedColumn(t *testing.T) {
	ws := NewWriteSet(LayoutForMonth(1))

	if err := ws.Stage("Tyre List_1月", 5, 13, 10); err != nil {
		t.Fatalf("staging a data column: %v", err)
	}
	err := ws.Stage("Tyre List_1月", 5, 8, 5)
	if err == nil {
		t.Fatalf("staging the QTY formula column must fail")
	}
	var protErr *FormulaProtectionError
	if !errors.As(err, &protErr) {
		t.Fatalf("error type = %T, want FormulaProtectionError", err)
	}
	if protErr.Col != 8 || protErr.Row != 5 {
		t.Fatalf("error coordinates = (%d,%d)", protErr.Col, protErr.Row)
	}
}

func TestWriteSetApplyAfterViolationLeavesFileUntouched(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	sheet := SheetName(1)
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		t.Fatalf("SetSheetName: %v", err)
	}

	ws := NewWriteSet(LayoutForMonth(1))
	if err := ws.Stage(sheet, 2, 13, 42); err != nil {
		t.Fatalf("Stage: %v", err)
	}
	if err := ws.Stage(sheet, 2, 9, 99); err == nil {
		t.Fatalf("expected protection error")
	}

	// staging failed, so the caller discards the set without applying
	if v, _ := f.GetCellValue(sheet, "M2"); v != "" {
		t.Fatalf("cell written before Apply: %q", v)
	}
}

func TestWriteSetApply(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	sheet := SheetName(1)
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		t.Fatalf("SetSheetName: %v", err)
	}

	ws := NewWriteSet(LayoutForMonth(1))
	if err := ws.Stage(sheet, 2, 1, "175/70R13"); err != nil {
		t.Fatalf("Stage: %v", err)
	}
	if err := ws.Stage(sheet, 2, 13, 42); err != nil {
		t.Fatalf("Stage: %v", err)
	}
	if err := ws.StageFormula(sheet, 2, 12, "=M2*2"); err != nil {
		t.Fatalf("StageFormula: %v", err)
	}
	if ws.Len() != 3 {
		t.Fatalf("Len = %d, want 3", ws.Len())
	}
	if err := ws.Apply(f); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	if v, _ := f.GetCellValue(sheet, "A2"); v != "175/70R13" {
		t.Fatalf("A2 = %q", v)
	}
	if v, _ := f.GetCellValue(sheet, "M2"); v != "42" {
		t.Fatalf("M2 = %q", v)
	}
	formula, _ := f.GetCellFormula(sheet, "L2")
	if strings.TrimPrefix(formula, "=") != "M2*2" {
		t.Fatalf("L2 formula = %q", formula)
	}
}
