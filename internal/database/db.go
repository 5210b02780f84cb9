package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "modernc.org/sqlite"

	"flo2d/internal/metrics"
)

// DB is the timeseries store backed by MySQL or SQLite
type DB struct {
	conn    *sql.DB
	dialect dialect
	logger  *slog.Logger
}

// NewDB opens a connection and initializes the schema.
// driver is "mysql" or "sqlite".
// mysql dsn: "username:password@tcp(host:port)/dbname?parseTime=true"
// sqlite dsn: a file path or ":memory:"
func NewDB(ctx context.Context, driver, dsn string, logger *slog.Logger) (*DB, error) {
	d, err := dialectFor(driver)
	if err != nil {
		return nil, err
	}

	conn, err := sql.Open(d.driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if d.name == "sqlite" {
		// a single connection keeps ":memory:" databases shared and serializes writers
		conn.SetMaxOpenConns(1)
	} else {
		conn.SetMaxOpenConns(25)
		conn.SetMaxIdleConns(5)
		conn.SetConnMaxLifetime(5 * time.Minute)
	}

	db := &DB{conn: conn, dialect: d, logger: logger}

	if err := db.initSchema(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return db, nil
}

func (db *DB) initSchema(ctx context.Context) error {
	for _, stmt := range db.dialect.schema {
		if _, err := db.conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to execute schema statement: %w", err)
		}
	}
	return nil
}

// Close closes the database connection
func (db *DB) Close() error {
	if db.conn != nil {
		return db.conn.Close()
	}
	return nil
}

func (db *DB) exec(ctx context.Context, queryType, table, query string, args ...any) (sql.Result, error) {
	start := time.Now()
	res, err := db.conn.ExecContext(ctx, query, args...)
	metrics.RecordDBQuery(queryType, table, time.Since(start), err)
	return res, err
}

func (db *DB) queryRow(ctx context.Context, table string, dest []any, query string, args ...any) error {
	start := time.Now()
	err := db.conn.QueryRowContext(ctx, query, args...).Scan(dest...)
	recorded := err
	if errors.Is(err, sql.ErrNoRows) {
		recorded = nil
	}
	metrics.RecordDBQuery("SELECT", table, time.Since(start), recorded)
	return err
}
