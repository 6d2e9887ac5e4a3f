package db

import (
	"fmt"

	"github.com/novamoderation/novamod/internal/models"

	"gorm.io/gorm"
)

// Migrate applies schema migrations for all service models.
func Migrate(conn *gorm.DB) error {
	if conn == nil {
		return fmt.Errorf("db: nil connection")
	}
	if err := conn.AutoMigrate(
		&models.Account{},
		&models.APIKey{},
		&models.Moderation{},
	); err != nil {
		return fmt.Errorf("db: migrate: %w", err)
	}
	// In-process SQLite has no external maintenance job to refresh
	// planner statistics after schema changes.
	if IsSQLite(conn) {
		if err := conn.Exec("PRAGMA optimize").Error; err != nil {
			return fmt.Errorf("db: sqlite optimize: %w", err)
		}
	}
	return nil
}
