package database

import (
	"corredorflow/models"

	"gorm.io/gorm"
)

// Migrate creates or updates every table the service owns.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Broker{},
		&models.Provider{},
		&models.InsurerConnection{},
		&models.Conversation{},
		&models.Quote{},
		&models.QuoteResult{},
		&models.Payment{},
	)
}
