package dbutils

import (
	"errors"
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/jiaming2012/tick-backtester/src/backtester/models"
	"github.com/jiaming2012/tick-backtester/src/logger"
)

// InitPostgresWithUrl connects and migrates the ticks table.
func InitPostgresWithUrl(url string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(url), &gorm.Config{
		Logger: logger.NewLogrusLogger(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.AutoMigrate(&models.TickRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", errors.Join(err, Close(db)))
	}

	return db, nil
}

func InitPostgres(host, port, user, password, dbName string) (*gorm.DB, error) {
	url := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=UTC", host, user, password, dbName, port)
	return InitPostgresWithUrl(url)
}

// MigrateMetrics creates the metrics table for a run. Each run writes to its own table.
func MigrateMetrics(db *gorm.DB, table string) error {
	if err := db.Table(table).AutoMigrate(&models.MetricsRecord{}); err != nil {
		return fmt.Errorf("failed to migrate %s: %w", table, err)
	}

	return nil
}

// InsertTicks stores ticks in batches.
func InsertTicks(db *gorm.DB, ticks []models.Tick) error {
	if len(ticks) == 0 {
		return nil
	}

	records := make([]models.TickRecord, len(ticks))
	for i, t := range ticks {
		records[i] = models.NewTickRecord(t)
	}

	if err := db.CreateInBatches(records, 500).Error; err != nil {
		return fmt.Errorf("failed to insert ticks: %w", err)
	}

	return nil
}

func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}

	return sqlDB.Close()
}
