package db

import (
	"fmt"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"roompanel-firmware/internal/model"
)

// Init opens the on-device settings database and runs migrations. The store
// is a single sqlite file; there is no network database in this deployment.
func Init(path string) (*gorm.DB, error) {
	gdb, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open settings database: %w", err)
	}

	if err := gdb.AutoMigrate(&model.Setting{}); err != nil {
		return nil, fmt.Errorf("automigrate failed: %w", err)
	}
	return gdb, nil
}
