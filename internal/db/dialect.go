package db

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"github.com/charismamove/apiserver/config"
)

// Dialect identifies the SQL flavour spoken by a driver. Queries are written
// with '?' placeholders and rebound when the dialect needs it.
type Dialect int

const (
	MySQL Dialect = iota
	Postgres
	SQLite
)

// DialectFor maps a configured driver name to its dialect.
func DialectFor(driver string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case config.DriverMySQL, "":
		return MySQL, nil
	case config.DriverPostgres, "pq":
		return Postgres, nil
	case config.DriverSQLite, "sqlite":
		return SQLite, nil
	default:
		return 0, fmt.Errorf("unsupported database driver %q", driver)
	}
}

// DriverName is the database/sql driver registered for the dialect.
func (d Dialect) DriverName() string {
	switch d {
	case Postgres:
		return "postgres"
	case SQLite:
		return "sqlite3"
	default:
		return "mysql"
	}
}

// MigrationsDir is the directory of the embedded migrations for the dialect.
func (d Dialect) MigrationsDir() string {
	return "migrations/" + d.DriverName()
}

// Rebind rewrites '?' placeholders into the dialect's bind syntax.
func (d Dialect) Rebind(query string) string {
	if d != Postgres {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	inQuote := false
	for _, ch := range query {
		switch {
		case ch == '\'':
			inQuote = !inQuote
			b.WriteRune(ch)
		case ch == '?' && !inQuote:
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
		default:
			b.WriteRune(ch)
		}
	}
	return b.String()
}

// Query runs a '?'-placeholder query rebound for the dialect.
func (d *DB) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return d.DB.QueryContext(ctx, d.Dialect.Rebind(query), args...)
}

// QueryRow runs a '?'-placeholder single-row query rebound for the dialect.
func (d *DB) QueryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return d.DB.QueryRowContext(ctx, d.Dialect.Rebind(query), args...)
}

// Exec runs a '?'-placeholder statement rebound for the dialect.
func (d *DB) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return d.DB.ExecContext(ctx, d.Dialect.Rebind(query), args...)
}

// Insert runs an INSERT statement and returns the generated id column.
func (d *DB) Insert(ctx context.Context, query string, args ...any) (int, error) {
	if d.Dialect == Postgres {
		var id int
		if err := d.QueryRow(ctx, query+" RETURNING id", args...).Scan(&id); err != nil {
			return 0, err
		}
		return id, nil
	}

	result, err := d.Exec(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, err
	}
	return int(id), nil
}
