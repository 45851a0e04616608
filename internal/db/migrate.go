package db

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	migratemysql "github.com/golang-migrate/migrate/v4/database/mysql"
	migratepostgres "github.com/golang-migrate/migrate/v4/database/postgres"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/charismamove/apiserver/config"
)

//go:embed migrations
var migrationsFS embed.FS

// Migrator applies the embedded versioned migrations for one database.
type Migrator struct {
	m *migrate.Migrate
}

// NewMigrator opens a dedicated connection for cfg and prepares the embedded
// migrations of its dialect. Close releases the connection.
func NewMigrator(cfg config.DatabaseConfig) (*Migrator, error) {
	dialect, err := DialectFor(cfg.Driver)
	if err != nil {
		return nil, err
	}
	dsn, err := DSN(cfg)
	if err != nil {
		return nil, err
	}

	conn, err := sql.Open(dialect.DriverName(), dsn)
	if err != nil {
		return nil, err
	}

	var driver database.Driver
	switch dialect {
	case MySQL:
		driver, err = migratemysql.WithInstance(conn, &migratemysql.Config{})
	case Postgres:
		driver, err = migratepostgres.WithInstance(conn, &migratepostgres.Config{})
	default:
		driver, err = migratesqlite.WithInstance(conn, &migratesqlite.Config{})
	}
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("init migration driver failed: %w", err)
	}

	source, err := iofs.New(migrationsFS, dialect.MigrationsDir())
	if err != nil {
		_ = driver.Close()
		return nil, fmt.Errorf("load migrations failed: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, dialect.DriverName(), driver)
	if err != nil {
		_ = driver.Close()
		return nil, fmt.Errorf("init migrator failed: %w", err)
	}

	return &Migrator{m: m}, nil
}

// Up applies every pending migration. An up-to-date schema is not an error.
func (m *Migrator) Up() error {
	if err := m.m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate up failed: %w", err)
	}
	return nil
}

// Down rolls back the given number of migrations.
func (m *Migrator) Down(steps int) error {
	if steps < 1 {
		steps = 1
	}
	if err := m.m.Steps(-steps); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate down failed: %w", err)
	}
	return nil
}

// Version reports the current schema version. A fresh database reports 0.
func (m *Migrator) Version() (uint, bool, error) {
	version, dirty, err := m.m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return version, dirty, err
}

// Close releases the migration source and database connection.
func (m *Migrator) Close() error {
	sourceErr, dbErr := m.m.Close()
	if sourceErr != nil {
		return sourceErr
	}
	return dbErr
}

// MigrateUp is a convenience wrapper applying all migrations for cfg.
func MigrateUp(cfg config.DatabaseConfig) error {
	migrator, err := NewMigrator(cfg)
	if err != nil {
		return err
	}
	defer func() {
		_ = migrator.Close()
	}()
	return migrator.Up()
}
