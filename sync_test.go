package main

import (
	"context"
	"os"
	"testing"
	"time"

	"bitbucket.org/mmdatafocus/tyrestock_backend/config"
	"bitbucket.org/mmdatafocus/tyrestock_backend/excel"
	"bitbucket.org/mmdatafocus/tyrestock_backend/models"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

func TestMain(m *testing.M) {
	os.Setenv("DB_DRIVER", "sqlite")
	os.Setenv("DB_NAME", "file::memory:?cache=shared")
	if err := config.ConnectDatabase(); err != nil {
		panic("connect test database: " + err.Error())
	}
	if err := models.MigrateDatabase(); err != nil {
		panic("migrate test database: " + err.Error())
	}
	os.Exit(m.Run())
}

func resetStore(t *testing.T) {
	t.Helper()
	db := config.GetDB()
	for _, table := range []string{
		"sales", "payments", "losses", "inventory_periods", "phone_inventory_periods",
		"exchange_rates", "sync_logs", "stock_import_logs", "tyres", "phones",
	} {
		if err := db.Exec("DELETE FROM " + table).Error; err != nil {
			t.Fatalf("reset %s: %v", table, err)
		}
	}
}

func setCell(t *testing.T, f *excelize.File, sheet string, col, row int, v interface{}) {
	t.Helper()
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		t.Fatalf("CoordinatesToCellName(%d,%d): %v", col, row, err)
	}
	if err := f.SetCellValue(sheet, cell, v); err != nil {
		t.Fatalf("SetCellValue(%s!%s): %v", sheet, cell, err)
	}
}

func seedTyre(t *testing.T, ctx context.Context) *models.Tyre {
	t.Helper()
	tyre, err := models.CreateTyre(ctx, &models.NewTyre{
		Size:  "175/70R13",
		Type:  "New",
		Brand: "Dunlop",
		Cost:  decimal.NewFromInt(120),
	})
	if err != nil {
		t.Fatalf("CreateTyre: %v", err)
	}
	return tyre
}

func invoiceSaleRow(t *testing.T, f *excelize.File, row int, date string) {
	t.Helper()
	setCell(t, f, excel.InvoiceSalesSheet, excel.SalesDateCol, row, date)
	setCell(t, f, excel.InvoiceSalesSheet, excel.SalesBrandCol, row, "Dunlop")
	setCell(t, f, excel.InvoiceSalesSheet, excel.SalesTypeCol, row, "New")
	setCell(t, f, excel.InvoiceSalesSheet, excel.SalesSizeCol, row, "175/70R13")
	setCell(t, f, excel.InvoiceSalesSheet, excel.SalesQtyCol, row, 2)
	setCell(t, f, excel.InvoiceSalesSheet, excel.SalesPriceCol, row, 55000)
	setCell(t, f, excel.InvoiceSalesSheet, excel.SalesPaymentCol, row, "Cash")
	setCell(t, f, excel.InvoiceSalesSheet, excel.SalesCustomerCol, row, "Banda")
}

func TestImportInvoiceMarksRecordsSynced(t *testing.T) {
	resetStore(t)
	ctx := context.Background()
	seedTyre(t, ctx)

	f, err := excel.CreateInvoiceWorkbook()
	if err != nil {
		t.Fatalf("CreateInvoiceWorkbook: %v", err)
	}
	defer f.Close()
	invoiceSaleRow(t, f, 2, "2025-01-08")
	setCell(t, f, excel.InvoicePaymentsSheet, excel.PayDateCol, 2, "2025-01-09")
	setCell(t, f, excel.InvoicePaymentsSheet, excel.PayCustomerCol, 2, "Phiri")
	setCell(t, f, excel.InvoicePaymentsSheet, excel.PayMethodCol, 2, "Cash")
	setCell(t, f, excel.InvoicePaymentsSheet, excel.PayAmountCol, 2, 150000)

	result, err := importInvoice(ctx, f, 2025, 1)
	if err != nil {
		t.Fatalf("importInvoice: %v", err)
	}
	if result.Imported != 2 {
		t.Fatalf("imported = %d, want 2: %s", result.Imported, result.Message)
	}

	sales, err := models.GetSales(ctx, 2025, 1)
	if err != nil {
		t.Fatalf("GetSales: %v", err)
	}
	if len(sales) != 1 {
		t.Fatalf("got %d sales, want 1", len(sales))
	}

	// records read out of an invoice workbook are already in that
	// workbook; the next export must not append them again
	unsynced, err := models.GetUnsyncedSales(ctx, 2025, 1)
	if err != nil {
		t.Fatalf("GetUnsyncedSales: %v", err)
	}
	if len(unsynced) != 0 {
		t.Fatalf("invoice-imported sales still unsynced: %d", len(unsynced))
	}
	unsyncedPay, err := models.GetUnsyncedPayments(ctx, 2025, 1)
	if err != nil {
		t.Fatalf("GetUnsyncedPayments: %v", err)
	}
	if len(unsyncedPay) != 0 {
		t.Fatalf("invoice-imported payments still unsynced: %d", len(unsyncedPay))
	}
}

func TestImportDailyLeavesRecordsUnsynced(t *testing.T) {
	resetStore(t)
	ctx := context.Background()
	seedTyre(t, ctx)

	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName("Sheet1", "Sales Record"); err != nil {
		t.Fatalf("SetSheetName: %v", err)
	}
	row := excel.DailyDataStartRow
	setCell(t, f, "Sales Record", excel.SalesDateCol, row, "2025-01-14")
	setCell(t, f, "Sales Record", excel.SalesSizeCol, row, "175/70R13")
	setCell(t, f, "Sales Record", excel.SalesQtyCol, row, 1)
	setCell(t, f, "Sales Record", excel.SalesPriceCol, row, 55000)

	result, err := importDaily(ctx, f, 2025, 1)
	if err != nil {
		t.Fatalf("importDaily: %v", err)
	}
	if result.Imported != 1 {
		t.Fatalf("imported = %d, want 1: %s", result.Imported, result.Message)
	}

	// daily records have never been in an invoice workbook; they must
	// flow into the next monthly invoice export
	unsynced, err := models.GetUnsyncedSales(ctx, 2025, 1)
	if err != nil {
		t.Fatalf("GetUnsyncedSales: %v", err)
	}
	if len(unsynced) != 1 {
		t.Fatalf("got %d unsynced sales, want 1", len(unsynced))
	}
}

func TestImportDefaultsUnparseableDates(t *testing.T) {
	resetStore(t)
	ctx := context.Background()
	seedTyre(t, ctx)

	f, err := excel.CreateInvoiceWorkbook()
	if err != nil {
		t.Fatalf("CreateInvoiceWorkbook: %v", err)
	}
	defer f.Close()
	// hand-typed date the reader cannot parse
	invoiceSaleRow(t, f, 2, "early Jan")

	result, err := importInvoice(ctx, f, 2025, 1)
	if err != nil {
		t.Fatalf("importInvoice: %v", err)
	}
	if result.Imported != 1 {
		t.Fatalf("imported = %d, want 1: %s", result.Imported, result.Message)
	}

	sales, err := models.GetSales(ctx, 2025, 1)
	if err != nil {
		t.Fatalf("GetSales: %v", err)
	}
	if len(sales) != 1 {
		t.Fatalf("got %d sales, want 1 in january", len(sales))
	}
	want := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	if !sales[0].Date.Equal(want) {
		t.Fatalf("date = %s, want first of the import month", sales[0].Date)
	}
}
