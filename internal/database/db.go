package database

import (
	"os"
	"path/filepath"

	"github.com/broker-one/core/internal/database/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Initialize creates and returns a database connection
func Initialize(dbPath string) (*gorm.DB, error) {
	// Ensure the directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	// Configure GORM logger
	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Info),
	}

	// Open SQLite database
	db, err := gorm.Open(sqlite.Open(dbPath), gormConfig)
	if err != nil {
		return nil, err
	}

	// Run migrations
	if err := runMigrations(db); err != nil {
		return nil, err
	}

	return db, nil
}

// runMigrations runs all database migrations
func runMigrations(db *gorm.DB) error {
	// Auto-migrate all models
	if err := db.AutoMigrate(
		&models.User{},
		&models.UserSettings{},
		&models.Deal{},
		&models.Space{},
		&models.DealSpace{},
		&models.Email{},
		&models.Draft{},
		&models.Log{},
	); err != nil {
		return err
	}

	// Backfill drafts created before the status column carried a default
	db.Model(&models.Draft{}).
		Where("status = '' OR status IS NULL").
		Update("status", string(models.DraftStatusPending))

	// Older rows predate the versions column; seed v0 lazily on read instead of
	// rewriting history here, but make sure current_version is sane
	db.Model(&models.Draft{}).
		Where("current_version IS NULL").
		Update("current_version", 0)

	return nil
}
