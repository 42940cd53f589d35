package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"bitbucket.org/mmdatafocus/tyrestock_backend/config"
	"bitbucket.org/mmdatafocus/tyrestock_backend/models"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const defaultPort = "8080"

func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if v := strings.TrimSpace(p); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func setupRouter() *gin.Engine {
	r := gin.New()

	// Correlation IDs: generate once per request and attach to context.
	r.Use(func(c *gin.Context) {
		cid := c.GetHeader("x-correlation-id")
		if cid == "" {
			cid = uuid.NewString()
		}
		c.Request = c.Request.WithContext(models.WithCorrelationId(c.Request.Context(), cid))
		c.Next()
	})
	// Gate app endpoints on dependency readiness; the health probe always
	// answers.
	r.Use(func(c *gin.Context) {
		if c.Request.URL.Path == "/healthz" {
			c.Next()
			return
		}
		if config.GetDB() == nil {
			c.AbortWithStatus(http.StatusServiceUnavailable)
			return
		}
		c.Next()
	})

	corsConfig := cors.DefaultConfig()
	allowedOrigins := strings.TrimSpace(os.Getenv("CORS_ALLOWED_ORIGINS"))
	if strings.EqualFold(strings.TrimSpace(os.Getenv("GO_ENV")), "production") {
		if allowedOrigins == "" {
			corsConfig.AllowOrigins = []string{}
		} else {
			corsConfig.AllowOrigins = splitAndTrim(allowedOrigins)
		}
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AddAllowMethods("GET", "POST", "PUT", "DELETE", "OPTIONS")
	corsConfig.AddAllowHeaders("token", "Origin", "Content-Type", "Authorization")
	corsConfig.AddExposeHeaders("Content-Length", "Content-Disposition")
	corsConfig.AllowCredentials = true
	r.Use(cors.New(corsConfig))
	r.Use(gin.Recovery())

	r.GET("/healthz", healthHandler)

	sync := r.Group("/sync")
	{
		sync.POST("/import/inventory", importHandler("inventory", importInventory))
		sync.POST("/import/invoice", importHandler("invoice", importInvoice))
		sync.POST("/import/daily", importHandler("daily", importDaily))
		sync.POST("/export/inventory", exportHandler("inventory", exportInventory))
		sync.POST("/export/invoice", exportHandler("invoice", exportInvoice))
		sync.GET("/download/inventory", downloadInventoryHandler)
		sync.GET("/download/invoice", downloadInvoiceHandler)
		sync.GET("/history", syncHistoryHandler)
		sync.POST("/rollover", rolloverHandler)
	}

	stock := r.Group("/stock-imports")
	{
		stock.POST("/preview", stockPreviewHandler)
		stock.POST("/confirm", stockConfirmHandler)
		stock.POST("/:id/revert", stockRevertHandler)
		stock.GET("", stockHistoryHandler)
	}

	api := r.Group("/api")
	{
		api.GET("/inventory", inventoryHandler)
		api.GET("/phone-inventory", phoneInventoryHandler)
		api.GET("/exchange-rates", exchangeRatesHandler)

		api.GET("/tyres", listTyresHandler)
		api.POST("/tyres", createTyreHandler)
		api.PUT("/tyres/:id", updateTyreHandler)
		api.DELETE("/tyres/:id", deleteTyreHandler)

		api.GET("/phones", listPhonesHandler)
		api.POST("/phones", createPhoneHandler)
		api.PUT("/phones/:id", updatePhoneHandler)
		api.DELETE("/phones/:id", deletePhoneHandler)

		api.GET("/sales", listSalesHandler)
		api.POST("/sales", createSaleHandler)
		api.DELETE("/sales/:id", deleteSaleHandler)

		api.GET("/payments", listPaymentsHandler)
		api.POST("/payments", createPaymentHandler)
		api.DELETE("/payments/:id", deletePaymentHandler)

		api.GET("/losses", listLossesHandler)
		api.POST("/losses", createLossHandler)
		api.DELETE("/losses/:id", deleteLossHandler)
	}

	return r
}

func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = defaultPort
	}

	logger := config.GetLogger()

	sigCtx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	r := setupRouter()

	// Start listening before the dependencies are up; the readiness gate
	// answers 503 until they are.
	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}
	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- srv.ListenAndServe()
	}()

	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()

	db := config.GetDB()
	sqlDB, _ := db.DB()
	defer func() {
		if sqlDB != nil {
			_ = sqlDB.Close()
		}
	}()

	if !strings.EqualFold(strings.TrimSpace(os.Getenv("SKIP_MIGRATIONS")), "true") {
		if err := models.MigrateDatabase(); err != nil {
			logger.WithFields(logrus.Fields{"field": "migrations"}).Panic(err.Error())
		}
	} else {
		logger.WithFields(logrus.Fields{"field": "migrations"}).Warn("SKIP_MIGRATIONS=true; skipping AutoMigrate on startup")
	}

	// Heal any rollover figures left inconsistent by a crash or re-import.
	if corrected, err := models.FixRollovers(context.Background()); err != nil {
		logger.WithFields(logrus.Fields{"field": "rollover"}).Error("startup rollover fix failed: " + err.Error())
	} else if corrected > 0 {
		logger.WithFields(logrus.Fields{"field": "rollover", "corrected": corrected}).Info("startup rollover fix applied")
	}
	if corrected, err := models.FixPhoneRollovers(context.Background()); err != nil {
		logger.WithFields(logrus.Fields{"field": "rollover"}).Error("startup phone rollover fix failed: " + err.Error())
	} else if corrected > 0 {
		logger.WithFields(logrus.Fields{"field": "rollover", "corrected": corrected}).Info("startup phone rollover fix applied")
	}

	logger.WithFields(logrus.Fields{"info": "Connection Established"}).Info("listening on port ", port)

	select {
	case <-sigCtx.Done():
		// graceful shutdown below
	case err := <-serverErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithFields(logrus.Fields{"field": "http"}).Error("server stopped unexpectedly: " + err.Error())
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithFields(logrus.Fields{"field": "http"}).Error("shutdown error: " + err.Error())
	}
}
