package db

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"time"

	"github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/charismamove/apiserver/config"
)

const (
	defaultPingTimeout  = 5 * time.Second
	defaultConnMaxIdle  = 2 * time.Minute
	defaultConnMaxLife  = 30 * time.Minute
	defaultMaxIdleConns = 5
	defaultMaxOpenConns = 25
)

// DB couples a connection pool with the SQL dialect of its driver.
type DB struct {
	*sql.DB
	Dialect Dialect
}

// Open connects to the configured database and verifies it with a ping.
func Open(ctx context.Context, cfg config.DatabaseConfig) (*DB, error) {
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

	conn.SetConnMaxIdleTime(defaultConnMaxIdle)
	conn.SetConnMaxLifetime(defaultConnMaxLife)
	conn.SetMaxIdleConns(defaultMaxIdleConns)
	conn.SetMaxOpenConns(defaultMaxOpenConns)

	ctx, cancel := context.WithTimeout(ctx, defaultPingTimeout)
	defer cancel()
	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return &DB{DB: conn, Dialect: dialect}, nil
}

// DSN builds the driver-specific data source name for cfg.
func DSN(cfg config.DatabaseConfig) (string, error) {
	dialect, err := DialectFor(cfg.Driver)
	if err != nil {
		return "", err
	}

	switch dialect {
	case MySQL:
		mc := mysql.NewConfig()
		mc.User = cfg.User
		mc.Passwd = cfg.Password
		mc.Net = "tcp"
		mc.Addr = fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
		mc.DBName = cfg.DBName
		mc.ParseTime = true
		mc.Loc = time.UTC
		mc.MultiStatements = true
		if cfg.UseSSL {
			mc.TLSConfig = "true"
		}
		return mc.FormatDSN(), nil
	case Postgres:
		sslmode := "disable"
		if cfg.UseSSL {
			sslmode = "require"
		}

		u := &url.URL{
			Scheme: "postgres",
			Host:   fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
			User:   url.UserPassword(cfg.User, cfg.Password),
			Path:   cfg.DBName,
		}
		q := u.Query()
		q.Set("sslmode", sslmode)
		u.RawQuery = q.Encode()
		return u.String(), nil
	default:
		return fmt.Sprintf("file:%s?_foreign_keys=on&_busy_timeout=5000", cfg.Path), nil
	}
}
