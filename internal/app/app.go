package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"catalog-go/internal/catalog"
	"catalog-go/internal/config"
	"catalog-go/internal/database"
	"catalog-go/internal/database/migrations"
	"catalog-go/internal/encryption"
	"catalog-go/internal/remote"
	"catalog-go/internal/store"
)

// Options carries the inputs to New that don't live in the config file.
type Options struct {
	// Parameters is recorded with the operation, e.g. the command's flags.
	Parameters string

	// Passphrase unlocks the age private key when encryption is enabled.
	Passphrase string

	// Stderr receives log output alongside the log file. Defaults to os.Stderr.
	Stderr io.Writer
}

// Status summarizes the local cache.
type Status struct {
	Products  int
	LastSync  time.Time // zero if the cache has never been reconciled
	Metadata  *catalog.Metadata
	Remote    string
	Store     string
	Encrypted bool
	Database  string
}

// App is the application layer between the CLI and the cache manager.
// It constructs all dependencies from config, exposes high-level operations,
// records mutating operations in the history table and manages the DB
// lifecycle on Close.
type App struct {
	cfg     *config.Config
	db      *database.SQLiteDatabase
	manager *catalog.Manager
	op      *Operation
	logFile *os.File
}

// New creates a fully wired App from the given config.
// operation identifies the CLI command being run (e.g. "SyncUpdates", "Clear").
// The caller must call Close when done.
func New(ctx context.Context, cfg *config.Config, operation string, opts Options) (*App, error) {
	db, err := database.NewDatabaseFromConfig(cfg.Database, cfg.DeviceID)
	if err != nil {
		return nil, fmt.Errorf("creating database: %w", err)
	}

	if err := db.CheckMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("database schema out of date: %w", err)
	}

	st, err := store.NewStoreFromConfig(cfg.Store, db)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating store: %w", err)
	}

	enc, err := encryption.NewEncryptorFromConfig(cfg.Encryption)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating encryptor: %w", err)
	}
	if enc != nil {
		if !enc.IsConfigured() {
			db.Close()
			return nil, fmt.Errorf("encryption keys not found: run 'catalog keys init'")
		}
		dec, err := enc.Unlock(opts.Passphrase)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("unlocking encryption key: %w", err)
		}
		st = store.NewEncryptedStore(st, enc, dec)
	}

	rem, err := remote.NewRemoteFromConfig(ctx, cfg.Remote)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating remote: %w", err)
	}

	opID := time.Now().UTC().Format("20060102T150405Z")
	logger, logFile, err := newLogger(cfg.LogDir, opID, parseLevel(cfg.LogLevel), opts.Stderr)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating logger: %w", err)
	}

	mgr := catalog.NewManager(st, rem, &slogAdapter{l: logger}, catalog.RealClock{}, catalog.UUIDGenerator{})

	return &App{
		cfg:     cfg,
		db:      db,
		manager: mgr,
		op:      NewOperation(operation, opts.Parameters),
		logFile: logFile,
	}, nil
}

// persistOperation saves the operation to the database, giving it an auto-increment ID.
// This should only be called for commands that mutate the cache.
func (a *App) persistOperation(ctx context.Context) error {
	if a.op.Persisted() {
		return nil
	}
	dbOp, err := a.db.CreateOperation(ctx, a.op.Name, a.op.Parameters)
	if err != nil {
		return fmt.Errorf("persisting operation: %w", err)
	}
	a.op.ID = dbOp.ID
	return nil
}

// Initialize adopts the durable snapshot and syncs it, or downloads the whole
// collection when there is none. A recoverable sync failure is logged and the
// snapshot is kept. Returns the number of cached products.
func (a *App) Initialize(ctx context.Context) (int, error) {
	if err := a.persistOperation(ctx); err != nil {
		return 0, err
	}
	err := a.manager.Initialize(ctx)
	n := a.manager.Len()
	a.op.Record(n, err)
	return n, err
}

// Sync merges products created since the last reconcile into the cache.
// Unlike Initialize, a failed sync is returned to the caller.
func (a *App) Sync(ctx context.Context) (int, error) {
	if err := a.persistOperation(ctx); err != nil {
		return 0, err
	}
	a.manager.Load(ctx)
	_, err := a.manager.SyncUpdates(ctx)
	n := a.manager.Len()
	a.op.Record(n, err)
	return n, err
}

// Download replaces the cache with the entire remote collection.
func (a *App) Download(ctx context.Context) (int, error) {
	if err := a.persistOperation(ctx); err != nil {
		return 0, err
	}
	products, err := a.manager.DownloadAll(ctx)
	if err != nil {
		a.op.Record(a.manager.Len(), err)
		return 0, err
	}
	a.op.Record(len(products), nil)
	return len(products), nil
}

// Clear removes the durable snapshot.
func (a *App) Clear(ctx context.Context) error {
	if err := a.persistOperation(ctx); err != nil {
		return err
	}
	err := a.manager.Clear(ctx)
	a.op.Record(0, err)
	return err
}

// Products returns the cached products sorted by brand and name, optionally
// restricted to one category. The remote is not contacted.
func (a *App) Products(ctx context.Context, category *catalog.Category) []catalog.Product {
	a.manager.Load(ctx)

	var out []catalog.Product
	for _, p := range a.manager.Products() {
		if category != nil && p.Category != *category {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Brand != out[j].Brand {
			return out[i].Brand < out[j].Brand
		}
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Explore ranks the cached products for a skin profile.
func (a *App) Explore(ctx context.Context, profile catalog.Profile, opts catalog.RankOptions) []catalog.Scored {
	a.manager.Load(ctx)
	return catalog.Rank(a.manager.Products(), profile, opts)
}

// Status reports what is cached and when it was last reconciled.
func (a *App) Status(ctx context.Context) (*Status, error) {
	n := a.manager.Load(ctx)

	last, _, err := a.manager.LastSync(ctx)
	if err != nil {
		return nil, err
	}
	md, err := a.manager.Metadata(ctx)
	if err != nil {
		return nil, err
	}

	return &Status{
		Products:  n,
		LastSync:  last,
		Metadata:  md,
		Remote:    a.cfg.Remote.Type,
		Store:     a.cfg.Store.Type,
		Encrypted: a.cfg.Encryption.Type != "" && a.cfg.Encryption.Type != "none",
		Database:  a.db.Path(),
	}, nil
}

// History returns the most recent operations, newest first.
func (a *App) History(ctx context.Context, limit int) ([]*database.Operation, error) {
	return a.db.ListOperations(ctx, limit)
}

// DBStatus reports the schema migration state of the catalog database.
func (a *App) DBStatus() (migrations.Status, error) {
	return a.db.MigrationStatus()
}

// BackupDatabase writes a consistent copy of the catalog database to destPath.
func (a *App) BackupDatabase(destPath string) error {
	if _, err := os.Stat(destPath); err == nil {
		return fmt.Errorf("backup destination already exists: %s", destPath)
	}
	return a.db.BackupTo(destPath)
}

// Close finalizes the operation record and closes all resources.
func (a *App) Close() error {
	var firstErr error

	if a.op.Persisted() {
		if err := a.db.FinishOperation(context.Background(), a.op.ID, a.op.Status, a.op.ProductCount); err != nil {
			firstErr = fmt.Errorf("finishing operation: %w", err)
		}
	}

	if err := a.db.Close(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("closing database: %w", err)
	}

	if a.logFile != nil {
		a.logFile.Close()
	}

	return firstErr
}
