package excel

import "testing"

func TestLayoutForMonth(t *testing.T) {
	for _, month := range []int{8, 9, 10} {
		l := LayoutForMonth(month)
		if l.ExchangeRateRow != 2 || l.ExchangeRateCol != 13 {
			t.Fatalf("month %d: rate cell = (%d,%d), want M2", month, l.ExchangeRateCol, l.ExchangeRateRow)
		}
		if l.InitialStockCol != 14 || l.AddedStockCol != 15 || l.DailyStartCol != 16 {
			t.Fatalf("month %d: old layout columns wrong: %+v", month, l)
		}
	}
	for _, month := range []int{1, 7, 11, 12} {
		l := LayoutForMonth(month)
		if l.ExchangeRateRow != 54 || l.ExchangeRateCol != 9 {
			t.Fatalf("month %d: rate cell = (%d,%d), want I54", month, l.ExchangeRateCol, l.ExchangeRateRow)
		}
		if l.InitialStockCol != 13 || l.AddedStockCol != 14 || l.DailyStartCol != 15 {
			t.Fatalf("month %d: new layout columns wrong: %+v", month, l)
		}
	}
}

func TestDayColumn(t *testing.T) {
	l := LayoutForMonth(1)
	col, err := l.DayColumn(1)
	if err != nil || col != 15 {
		t.Fatalf("day 1 = %d, %v; want 15", col, err)
	}
	col, err = l.DayColumn(31)
	if err != nil || col != 45 {
		t.Fatalf("day 31 = %d, %v; want 45", col, err)
	}
	if _, err := l.DayColumn(0); err == nil {
		t.Fatalf("day 0 should error")
	}
	if _, err := l.DayColumn(32); err == nil {
		t.Fatalf("day 32 should error")
	}

	old := LayoutForMonth(9)
	col, err = old.DayColumn(1)
	if err != nil || col != 16 {
		t.Fatalf("old layout day 1 = %d, %v; want 16", col, err)
	}
}

func TestResolveLayout(t *testing.T) {
	if _, err := ResolveLayout(ProductTypePhone, 3); err == nil {
		t.Fatalf("phones have no sheet layout, expected error")
	}
	l, err := ResolveLayout(ProductTypeTyre, 9)
	if err != nil {
		t.Fatalf("ResolveLayout: %v", err)
	}
	if l.InitialStockCol != 14 {
		t.Fatalf("month 9 should use the shifted layout")
	}
}

func TestIsProtected(t *testing.T) {
	l := LayoutForMonth(1)
	for col := 7; col <= 11; col++ {
		if !l.IsProtected(col) {
			t.Fatalf("column %d should be protected", col)
		}
	}
	for _, col := range []int{1, 6, 12, 13, 15} {
		if l.IsProtected(col) {
			t.Fatalf("column %d should not be protected", col)
		}
	}
}

func TestSheetName(t *testing.T) {
	if got := SheetName(3); got != "Tyre List_3月" {
		t.Fatalf("SheetName(3) = %q", got)
	}
}
