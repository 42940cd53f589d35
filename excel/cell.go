package excel

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// Cell coercion helpers. excelize surfaces every cell as a string; data
// cells in these workbooks mix numbers, dates, serial dates, and free text,
// so each accessor degrades to a zero value instead of failing the row.

func cellString(f *excelize.File, sheet string, row, col int) string {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return ""
	}
	v, err := f.GetCellValue(sheet, cell)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(v)
}

func cellInt(f *excelize.File, sheet string, row, col int) int {
	v := cellString(f, sheet, row, col)
	if v == "" {
		return 0
	}
	n, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0
	}
	return int(n)
}

func cellDecimal(f *excelize.File, sheet string, row, col int) decimal.Decimal {
	v := cellString(f, sheet, row, col)
	if v == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.Zero
	}
	return d
}

var dottedDateRe = regexp.MustCompile(`^(\d{4})\.(\d{1,2})\.(\d{1,2})`)

// excel serial day 0 is 1899-12-30
var excelEpoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)

var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"01-02-06",
	"1/2/06",
	"1/2/2006",
	"2006-01-02 15:04:05",
	time.RFC3339,
}

func cellDate(f *excelize.File, sheet string, row, col int) (time.Time, bool) {
	return parseCellDate(cellString(f, sheet, row, col))
}

// parseCellDate handles formatted date strings, Excel serial numbers, and
// the "YYYY.M.D" strings found in old invoice files.
func parseCellDate(v string) (time.Time, bool) {
	if v == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), true
		}
	}
	if m := dottedDateRe.FindStringSubmatch(v); m != nil {
		year, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		day, _ := strconv.Atoi(m[3])
		if month >= 1 && month <= 12 && day >= 1 && day <= 31 {
			return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC), true
		}
	}
	if serial, err := strconv.ParseFloat(v, 64); err == nil && serial > 0 && serial < 200000 {
		return excelEpoch.AddDate(0, 0, int(serial)), true
	}
	return time.Time{}, false
}

func sheetMaxRow(f *excelize.File, sheet string) int {
	rows, err := f.GetRows(sheet)
	if err != nil {
		return 0
	}
	return len(rows)
}

func hasSheet(f *excelize.File, name string) bool {
	idx, err := f.GetSheetIndex(name)
	return err == nil && idx >= 0
}

// findSheet locates a sheet whose name contains the needle, ignoring case
// and stray quotes (daily files sometimes carry quoted sheet names).
func findSheet(f *excelize.File, needle string) (string, bool) {
	for _, name := range f.GetSheetList() {
		cleaned := strings.ToLower(strings.ReplaceAll(name, "'", ""))
		if strings.Contains(cleaned, needle) {
			return name, true
		}
	}
	return "", false
}
