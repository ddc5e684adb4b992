package migrations

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed files/*.sql
var migrationFiles embed.FS

// Status describes the schema version of a database relative to the
// migrations compiled into the binary. Current is 0 for a fresh database.
type Status struct {
	Current uint
	Latest  uint
	Dirty   bool
}

// UpToDate reports whether no migration is pending.
func (s Status) UpToDate() bool {
	return !s.Dirty && s.Current == s.Latest
}

// GetStatus reads the schema version of db.
func GetStatus(db *sql.DB) (Status, error) {
	m, err := newMigrate(db)
	if err != nil {
		return Status{}, fmt.Errorf("failed to create migrate instance: %w", err)
	}
	// m is not closed: that would close db, which the caller owns.

	latest, err := latestVersion()
	if err != nil {
		return Status{}, fmt.Errorf("failed to determine latest version: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil {
		if errors.Is(err, migrate.ErrNilVersion) {
			return Status{Latest: latest}, nil
		}
		return Status{}, fmt.Errorf("failed to get database version: %w", err)
	}
	return Status{Current: version, Latest: latest, Dirty: dirty}, nil
}

// CheckDBMigrationStatus returns nil if the database is at the latest
// version, and an error describing the mismatch otherwise.
func CheckDBMigrationStatus(db *sql.DB) error {
	s, err := GetStatus(db)
	if err != nil {
		return err
	}

	switch {
	case s.Current == 0 && !s.Dirty:
		return fmt.Errorf("database has no schema version (needs migration)")
	case s.Dirty:
		return fmt.Errorf("database is in dirty state at version %d (migration failed previously)", s.Current)
	case s.Current < s.Latest:
		return fmt.Errorf("database is at version %d but latest is %d (%d migrations behind)",
			s.Current, s.Latest, s.Latest-s.Current)
	case s.Current > s.Latest:
		return fmt.Errorf("database version %d is ahead of binary version %d (binary needs update)",
			s.Current, s.Latest)
	}
	return nil
}

// MigrateUp runs all pending migrations to bring database to latest version.
func MigrateUp(db *sql.DB) error {
	m, err := newMigrate(db)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			return nil
		}
		return fmt.Errorf("migration failed: %w", err)
	}
	return nil
}

func newMigrate(db *sql.DB) (*migrate.Migrate, error) {
	sourceDriver, err := iofs.New(migrationFiles, "files")
	if err != nil {
		return nil, fmt.Errorf("failed to create source driver: %w", err)
	}

	dbDriver, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		sourceDriver.Close()
		return nil, fmt.Errorf("failed to create database driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "sqlite3", dbDriver)
	if err != nil {
		sourceDriver.Close()
		return nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}
	return m, nil
}

// latestVersion returns the highest version among the embedded migrations.
func latestVersion() (uint, error) {
	src, err := iofs.New(migrationFiles, "files")
	if err != nil {
		return 0, fmt.Errorf("failed to read migration files: %w", err)
	}
	defer src.Close()
	return lastVersion(src)
}

func lastVersion(src source.Driver) (uint, error) {
	version, err := src.First()
	if err != nil {
		return 0, err
	}
	for {
		next, err := src.Next(version)
		if err != nil {
			// Next reports os.ErrNotExist past the last migration.
			return version, nil
		}
		version = next
	}
}
