package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"bitbucket.org/mmdatafocus/tyrestock_backend/config"
	"bitbucket.org/mmdatafocus/tyrestock_backend/excel"
	"bitbucket.org/mmdatafocus/tyrestock_backend/models"
	"bitbucket.org/mmdatafocus/tyrestock_backend/utils"
	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"
)

func workbookLockOrBusy(ctx context.Context, path string) (func(), error) {
	return utils.WorkbookLock(ctx, path, "handlers.go", "workbookLockOrBusy")
}

func periodParams(c *gin.Context) (int, int, bool) {
	year, err := strconv.Atoi(c.Query("year"))
	if err != nil || year < 2000 || year > 2100 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "year is required"})
		return 0, 0, false
	}
	month, err := strconv.Atoi(c.Query("month"))
	if err != nil || month < 1 || month > 12 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "month must be 1-12"})
		return 0, 0, false
	}
	return year, month, true
}

// uploadedWorkbook reads the multipart upload into memory and opens it as a
// workbook. Returns the raw bytes so the content hash can be recorded.
func uploadedWorkbook(c *gin.Context) (*excelize.File, string, []byte, bool) {
	header, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return nil, "", nil, false
	}
	src, err := header.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return nil, "", nil, false
	}
	defer src.Close()
	data, err := io.ReadAll(src)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return nil, "", nil, false
	}
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot open workbook: " + err.Error()})
		return nil, "", nil, false
	}
	return f, header.Filename, data, true
}

type importFunc func(ctx context.Context, f *excelize.File, year, month int) (*ImportResult, error)

// importHandler is the shared flow of the three importers: hash the upload,
// short-circuit byte-identical re-uploads, run the parser inside one
// transaction and append the sync log either way.
func importHandler(kind string, run importFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		logger := config.GetLogger()
		year, month, ok := periodParams(c)
		if !ok {
			return
		}
		f, fileName, data, ok := uploadedWorkbook(c)
		if !ok {
			return
		}
		defer f.Close()

		contentHash := hashContent(data)
		ctx := c.Request.Context()

		imported, err := models.HasImportedContent(ctx, contentHash)
		if err != nil {
			config.LogError(logger, "handlers.go", "importHandler", "HasImportedContent", fileName, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		if imported {
			c.JSON(http.StatusOK, gin.H{
				"message":      "file already imported, nothing to do",
				"content_hash": contentHash,
			})
			return
		}

		result, err := run(ctx, f, year, month)
		if err != nil {
			config.LogError(logger, "handlers.go", "importHandler", kind, fileName, err)
			_, _ = models.AppendSyncLog(ctx, nil, &models.NewSyncLog{
				Direction:   models.SyncDirectionImport,
				Kind:        kind,
				FileName:    fileName,
				ContentHash: contentHash,
				Year:        year,
				Month:       month,
				Status:      models.SyncStatusFailed,
				Message:     err.Error(),
			})
			status := http.StatusInternalServerError
			var structErr *excel.WorkbookStructureError
			if errors.As(err, &structErr) {
				status = http.StatusUnprocessableEntity
			}
			c.JSON(status, gin.H{"error": err.Error()})
			return
		}

		if _, err := models.AppendSyncLog(ctx, nil, &models.NewSyncLog{
			Direction:   models.SyncDirectionImport,
			Kind:        kind,
			FileName:    fileName,
			ContentHash: contentHash,
			Year:        year,
			Month:       month,
			Status:      models.SyncStatusSuccess,
			Imported:    result.Imported,
			Skipped:     result.Skipped,
			Duplicates:  result.Duplicates,
			Message:     result.Message,
		}); err != nil {
			config.LogError(logger, "handlers.go", "importHandler", "AppendSyncLog", fileName, err)
		}
		c.JSON(http.StatusOK, result)
	}
}

type exportFunc func(ctx context.Context, year, month int) (*ExportResult, error)

func exportHandler(kind string, run exportFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		logger := config.GetLogger()
		year, month, ok := periodParams(c)
		if !ok {
			return
		}
		ctx := c.Request.Context()

		result, err := run(ctx, year, month)
		if err != nil {
			config.LogError(logger, "handlers.go", "exportHandler", kind, nil, err)
			status := http.StatusInternalServerError
			var protErr *excel.FormulaProtectionError
			switch {
			case errors.Is(err, utils.ErrWorkbookBusy):
				status = http.StatusConflict
			case errors.As(err, &protErr):
				status = http.StatusUnprocessableEntity
			}
			_, _ = models.AppendSyncLog(ctx, nil, &models.NewSyncLog{
				Direction: models.SyncDirectionExport,
				Kind:      kind,
				Year:      year,
				Month:     month,
				Status:    models.SyncStatusFailed,
				Message:   err.Error(),
			})
			c.JSON(status, gin.H{"error": err.Error()})
			return
		}

		if _, err := models.AppendSyncLog(ctx, nil, &models.NewSyncLog{
			Direction: models.SyncDirectionExport,
			Kind:      kind,
			FileName:  result.Path,
			Year:      year,
			Month:     month,
			Status:    models.SyncStatusSuccess,
			Imported:  result.Rows,
			Message:   fmt.Sprintf("%d rows written", result.Rows),
		}); err != nil {
			config.LogError(logger, "handlers.go", "exportHandler", "AppendSyncLog", nil, err)
		}
		c.JSON(http.StatusOK, result)
	}
}

func downloadInventoryHandler(c *gin.Context) {
	c.FileAttachment(inventoryWorkbookPath(), "Tyre Stock.xlsx")
}

func downloadInvoiceHandler(c *gin.Context) {
	year, month, ok := periodParams(c)
	if !ok {
		return
	}
	path := invoiceWorkbookPath(year, month)
	c.FileAttachment(path, fmt.Sprintf("Invoice_%d_%02d.xlsx", year, month))
}

func syncHistoryHandler(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	history, err := models.GetSyncHistory(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, history)
}

func rolloverHandler(c *gin.Context) {
	year, month, ok := periodParams(c)
	if !ok {
		return
	}
	updated, err := models.RolloverMonth(c.Request.Context(), year, month)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	phones, err := models.RolloverPhoneMonth(c.Request.Context(), year, month)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": updated, "phones": phones})
}

func inventoryHandler(c *gin.Context) {
	year, month, ok := periodParams(c)
	if !ok {
		return
	}
	lines, err := models.GetInventory(c.Request.Context(), year, month)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, lines)
}

func phoneInventoryHandler(c *gin.Context) {
	year, month, ok := periodParams(c)
	if !ok {
		return
	}
	lines, err := models.GetPhoneInventory(c.Request.Context(), year, month)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, lines)
}

// stockPreviewHandler matches an uploaded phone delivery file against the
// phone master records without writing anything.
func stockPreviewHandler(c *gin.Context) {
	f, fileName, data, ok := uploadedWorkbook(c)
	if !ok {
		return
	}
	defer f.Close()

	rows, err := excel.ReadPhoneStock(f)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	matcher, err := models.LoadPhoneMatcher(ctx, nil)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	type previewItem struct {
		excel.PhoneStockRow
		PhoneId int  `json:"phone_id"`
		Matched bool `json:"matched"`
	}
	items := make([]previewItem, 0, len(rows))
	for _, row := range rows {
		item := previewItem{PhoneStockRow: row}
		if id, ok := matcher.Match(row.Brand, row.Model, row.Config); ok {
			item.PhoneId = id
			item.Matched = true
		}
		items = append(items, item)
	}
	c.JSON(http.StatusOK, gin.H{
		"file_name":    fileName,
		"content_hash": hashContent(data),
		"items":        items,
	})
}

type stockConfirmRequest struct {
	FileName    string                `json:"file_name"`
	ContentHash string                `json:"content_hash"`
	Year        int                   `json:"year" binding:"required"`
	Month       int                   `json:"month" binding:"required,min=1,max=12"`
	Items       []excel.PhoneStockRow `json:"items" binding:"required"`
}

// stockConfirmHandler applies a previewed delivery: unmatched rows create
// their phone master record, then every quantity is booked into the given
// month's added stock.
func stockConfirmHandler(c *gin.Context) {
	var req stockConfirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	items := make([]models.StockImportItem, 0, len(req.Items))
	for _, row := range req.Items {
		if err := row.Validate(); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("row %d: %v", row.Row, err)})
			return
		}
		matcher, err := models.LoadPhoneMatcher(ctx, nil)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		_, matched := matcher.Match(row.Brand, row.Model, row.Config)
		phone, err := models.FindOrCreatePhone(ctx, nil, row)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		items = append(items, models.StockImportItem{
			PhoneId:  phone.ID,
			Brand:    row.Brand,
			Model:    row.Model,
			Config:   row.Config,
			Quantity: row.Quantity,
			Created:  !matched,
		})
	}

	record, err := models.ConfirmStockImport(ctx, req.FileName, req.ContentHash, req.Year, req.Month, items)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, record)
}

func stockRevertHandler(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	record, err := models.RevertStockImport(c.Request.Context(), id)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, record)
}

func stockHistoryHandler(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	imports, err := models.GetStockImports(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, imports)
}

func exchangeRatesHandler(c *gin.Context) {
	year, month, ok := periodParams(c)
	if !ok {
		return
	}
	rates, err := models.GetExchangeRates(c.Request.Context(), year, month)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, rates)
}

var startupTime = time.Now()

func healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"uptime": time.Since(startupTime).String(),
	})
}
