package database

import (
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	migratedb "github.com/golang-migrate/migrate/v4/database"
	migratemysql "github.com/golang-migrate/migrate/v4/database/mysql"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/sqlite/*.sql migrations/mysql/*.sql
var migrationFS embed.FS

// RunMigrations applies all pending migrations to the database and returns version info
func RunMigrations(db *DB) (uint, bool, error) {
	var (
		driver migratedb.Driver
		err    error
	)

	switch db.Driver() {
	case DriverSQLite:
		driver, err = migratesqlite.WithInstance(db.DB, &migratesqlite.Config{})
	case DriverMySQL:
		driver, err = migratemysql.WithInstance(db.DB, &migratemysql.Config{})
	default:
		return 0, false, fmt.Errorf("unsupported database driver: %q", db.Driver())
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to create %s driver: %w", db.Driver(), err)
	}

	source, err := iofs.New(migrationFS, "migrations/"+db.Driver())
	if err != nil {
		return 0, false, fmt.Errorf("failed to create iofs source: %w", err)
	}

	// The migrate instance is not closed: closing it would close db.DB.
	m, err := migrate.NewWithInstance("iofs", source, db.Driver(), driver)
	if err != nil {
		return 0, false, fmt.Errorf("failed to create migrate instance: %w", err)
	}

	err = m.Up()
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return 0, false, fmt.Errorf("failed to run migrations: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil {
		return 0, false, fmt.Errorf("failed to get migration version: %w", err)
	}

	return version, dirty, nil
}
