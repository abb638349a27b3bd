package database

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/flockhq/flock/internal/infrastructure/config"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"
)

//go:embed migrations
var migrationsFS embed.FS

// DB wraps a database/sql pool together with the driver it was opened with
type DB struct {
	*sql.DB
	Driver string
}

// Open opens a connection pool for the configured driver and verifies it
func Open(cfg *config.DatabaseConfig) (*DB, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = config.DriverPostgres
	}

	db, err := sql.Open(driver, cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if driver == config.DriverPostgres {
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)
		db.SetConnMaxIdleTime(1 * time.Minute)
	} else {
		// SQLite allows a single writer; one connection serializes access
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{DB: db, Driver: driver}, nil
}

// IsPostgres reports whether the pool talks to PostgreSQL
func (d *DB) IsPostgres() bool {
	return d.Driver == config.DriverPostgres
}

// RunMigrations applies every pending system-table migration
func (d *DB) RunMigrations() error {
	m, err := d.NewMigrate()
	if err != nil {
		return err
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// NewMigrate builds a migrate instance over the embedded migrations for an
// already-open pool. Closing the returned instance closes the pool.
func (d *DB) NewMigrate() (*migrate.Migrate, error) {
	var (
		driver database.Driver
		err    error
	)
	switch d.Driver {
	case config.DriverSQLite:
		driver, err = sqlite.WithInstance(d.DB, &sqlite.Config{})
	case config.DriverSQLite3:
		driver, err = sqlite3.WithInstance(d.DB, &sqlite3.Config{})
	default:
		driver, err = postgres.WithInstance(d.DB, &postgres.Config{})
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create migration driver: %w", err)
	}

	src, err := MigrationSource(d.Driver)
	if err != nil {
		return nil, err
	}

	m, err := migrate.NewWithInstance("iofs", src, d.Driver, driver)
	if err != nil {
		return nil, fmt.Errorf("failed to create migration instance: %w", err)
	}

	return m, nil
}

// MigrationSource returns the embedded migration files for a driver
func MigrationSource(driver string) (source.Driver, error) {
	dir := "migrations/postgres"
	if driver == config.DriverSQLite || driver == config.DriverSQLite3 {
		dir = "migrations/sqlite"
	}

	sub, err := fs.Sub(migrationsFS, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to open embedded migrations: %w", err)
	}

	src, err := iofs.New(sub, ".")
	if err != nil {
		return nil, fmt.Errorf("failed to create migration source: %w", err)
	}

	return src, nil
}

// HealthCheck checks if the database connection is healthy
func (d *DB) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := d.PingContext(ctx); err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}

	return nil
}

// Close closes the database connection
func (d *DB) Close() error {
	if d != nil && d.DB != nil {
		return d.DB.Close()
	}
	return nil
}
