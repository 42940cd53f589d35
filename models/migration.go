package models

import (
	"bitbucket.org/mmdatafocus/tyrestock_backend/config"
)

// MigrateDatabase creates or updates every table. Called once at startup.
func MigrateDatabase() error {
	db := config.GetDB()
	return db.AutoMigrate(
		&Tyre{},
		&Phone{},
		&InventoryPeriod{},
		&PhoneInventoryPeriod{},
		&Sale{},
		&Payment{},
		&Loss{},
		&ExchangeRate{},
		&SyncLog{},
		&StockImportLog{},
	)
}
