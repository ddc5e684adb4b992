package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"catalog-go/internal/catalog"
	"catalog-go/internal/database/migrations"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// Operation is one recorded CLI run that touched the cache.
type Operation struct {
	ID           int64
	Operation    string
	Parameters   string
	StartedAt    time.Time
	FinishedAt   sql.NullTime
	Status       string
	ProductCount int
}

// SQLiteDatabase is the catalog database. It implements catalog.Store on the
// kv table and records operation history.
type SQLiteDatabase struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

// NewSQLiteDatabase opens a SQLite database and applies pending migrations.
// path can be a file path or ":memory:" for in-memory database.
func NewSQLiteDatabase(path string) (*SQLiteDatabase, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}

	if err := migrations.MigrateUp(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating database: %w", err)
	}

	return &SQLiteDatabase{db: db, path: path, now: time.Now}, nil
}

// OpenConnection opens and configures a SQLite database connection.
// In-memory databases are pinned to a single connection, since every new
// connection to ":memory:" would see an empty database.
func OpenConnection(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", p, err)
		}
	}

	return db, nil
}

// Key/value store

func (s *SQLiteDatabase) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx, "SELECT value FROM kv WHERE key = ?", key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("reading key %s: %w", key, err)
	}
	return value, true, nil
}

func (s *SQLiteDatabase) Set(ctx context.Context, key string, value []byte) error {
	if value == nil {
		value = []byte{}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, s.now().UTC())
	if err != nil {
		return fmt.Errorf("writing key %s: %w", key, err)
	}
	return nil
}

func (s *SQLiteDatabase) Remove(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM kv WHERE key = ?", key); err != nil {
		return fmt.Errorf("removing key %s: %w", key, err)
	}
	return nil
}

// Operation tracking

// CreateOperation records the start of an operation and returns it with its ID.
func (s *SQLiteDatabase) CreateOperation(ctx context.Context, operation, parameters string) (*Operation, error) {
	op := &Operation{
		Operation:  operation,
		Parameters: parameters,
		StartedAt:  s.now().UTC(),
		Status:     "running",
	}

	res, err := s.db.ExecContext(ctx,
		"INSERT INTO operations (operation, parameters, started_at, status) VALUES (?, ?, ?, ?)",
		op.Operation, op.Parameters, op.StartedAt, op.Status)
	if err != nil {
		return nil, fmt.Errorf("creating operation: %w", err)
	}

	op.ID, err = res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("reading operation id: %w", err)
	}
	return op, nil
}

// FinishOperation marks an operation finished with the given status and
// the number of products cached when it ended.
func (s *SQLiteDatabase) FinishOperation(ctx context.Context, id int64, status string, productCount int) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE operations SET finished_at = ?, status = ?, product_count = ? WHERE id = ?",
		s.now().UTC(), status, productCount, id)
	if err != nil {
		return fmt.Errorf("finishing operation: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("finishing operation: no operation with id %d", id)
	}
	return nil
}

// ListOperations returns the most recent operations, newest first.
func (s *SQLiteDatabase) ListOperations(ctx context.Context, limit int) ([]*Operation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, operation, parameters, started_at, finished_at, status, product_count
		FROM operations
		ORDER BY id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing operations: %w", err)
	}
	defer rows.Close()

	var ops []*Operation
	for rows.Next() {
		op := &Operation{}
		if err := rows.Scan(&op.ID, &op.Operation, &op.Parameters, &op.StartedAt, &op.FinishedAt, &op.Status, &op.ProductCount); err != nil {
			return nil, fmt.Errorf("scanning operation: %w", err)
		}
		ops = append(ops, op)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing operations: %w", err)
	}
	return ops, nil
}

// Path returns the database file path (or ":memory:" for in-memory databases).
func (s *SQLiteDatabase) Path() string {
	return s.path
}

// MigrationStatus reports the schema version against the embedded migrations.
func (s *SQLiteDatabase) MigrationStatus() (migrations.Status, error) {
	return migrations.GetStatus(s.db)
}

// CheckMigrations verifies the database schema is up-to-date.
func (s *SQLiteDatabase) CheckMigrations() error {
	return migrations.CheckDBMigrationStatus(s.db)
}

// BackupTo creates a complete copy of the database at destPath using VACUUM INTO.
func (s *SQLiteDatabase) BackupTo(destPath string) error {
	if _, err := s.db.Exec("VACUUM INTO ?", destPath); err != nil {
		return fmt.Errorf("backing up database: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteDatabase) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Compile-time check that SQLiteDatabase implements catalog.Store interface
var _ catalog.Store = (*SQLiteDatabase)(nil)
