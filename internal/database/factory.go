package database

import (
	"fmt"
	"os"
	"path/filepath"

	"catalog-go/internal/config"
)

// NewDatabaseFromConfig creates the catalog database based on the config type.
// File databases are named after the device ID.
func NewDatabaseFromConfig(cfg config.DatabaseConfig, deviceID string) (*SQLiteDatabase, error) {
	switch cfg.Type {
	case "sqlite":
		if cfg.DataDir == "" {
			return nil, fmt.Errorf("data_dir required for sqlite database")
		}
		if deviceID == "" {
			return nil, fmt.Errorf("device_id required for sqlite database")
		}
		if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		return NewSQLiteDatabase(filepath.Join(cfg.DataDir, deviceID+".db"))
	case "memory":
		return NewSQLiteDatabase(":memory:")
	default:
		return nil, fmt.Errorf("unknown database type: %s", cfg.Type)
	}
}
