package store

import (
	"fmt"

	"catalog-go/internal/catalog"
	"catalog-go/internal/config"
)

// NewStoreFromConfig creates the snapshot store based on the store config
// type. For type "sqlite" the snapshot lives in the catalog database's kv
// table, so db must be non-nil.
func NewStoreFromConfig(cfg config.StoreConfig, db catalog.Store) (catalog.Store, error) {
	switch cfg.Type {
	case "sqlite":
		if db == nil {
			return nil, fmt.Errorf("sqlite store requires an open database")
		}
		return db, nil
	case "filesystem":
		if cfg.Dir == "" {
			return nil, fmt.Errorf("filesystem store requires dir to be set")
		}
		return NewFileSystemStore(cfg.Dir)
	case "memory":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown store type: %s", cfg.Type)
	}
}
