package sqldb

import (
	"database/sql"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/mysql"
	pgxmigrate "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/huangsam/prosoul/schema"
)

// Migrations describes one embedded migration set. FS holds one directory
// per backend named after it (sqlite, mysql, postgresql).
type Migrations struct {
	FS    fs.FS
	Table string // version table, distinct per store
}

// MigrateResult reports the schema version before and after a migration.
type MigrateResult struct {
	From    uint
	To      uint
	Changed bool
}

// Migrate runs migrations on db.
// - If targetVersion < 0, it migrates to the latest version.
// - If targetVersion == 0, it rolls back all migrations (to initial state).
// - If targetVersion > 0, it migrates to the specified version.
func Migrate(db *sql.DB, backend schema.DatabaseBackend, set Migrations, targetVersion int) (MigrateResult, error) {
	var result MigrateResult

	// Create a migrate driver instance
	var driver database.Driver
	var err error
	switch backend {
	case schema.SQLiteBackend:
		driver, err = sqlite.WithInstance(db, &sqlite.Config{MigrationsTable: set.Table})
	case schema.MySQLBackend:
		driver, err = mysql.WithInstance(db, &mysql.Config{MigrationsTable: set.Table})
	case schema.PostgreSQLBackend:
		driver, err = pgxmigrate.WithInstance(db, &pgxmigrate.Config{MigrationsTable: set.Table})
	default:
		return result, fmt.Errorf("migrations are not supported for %s backend", backend)
	}
	if err != nil {
		return result, fmt.Errorf("failed to create %s migrate driver: %w", backend, err)
	}

	// Get the migrations subdirectory
	migrationFS, err := fs.Sub(set.FS, string(backend))
	if err != nil {
		return result, fmt.Errorf("failed to access migrations directory: %w", err)
	}
	sourceDriver, err := iofs.New(migrationFS, ".")
	if err != nil {
		return result, fmt.Errorf("failed to create migration source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, string(backend), driver)
	if err != nil {
		return result, fmt.Errorf("failed to create migrate instance: %w", err)
	}

	currentVersion, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return result, fmt.Errorf("failed to get current migration version: %w", err)
	}
	if dirty {
		return result, fmt.Errorf("database is in a dirty state at version %d. Please fix manually or force version", currentVersion)
	}
	result.From = currentVersion

	switch {
	case targetVersion < 0:
		err = m.Up()
	case targetVersion == 0:
		err = m.Down()
	default:
		err = m.Migrate(uint(targetVersion))
	}
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return result, fmt.Errorf("failed to migrate: %w", err)
	}
	result.Changed = err == nil

	newVersion, _, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return result, fmt.Errorf("failed to read migrated version: %w", err)
	}
	result.To = newVersion
	return result, nil
}
