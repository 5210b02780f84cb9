package database

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"flo2d/internal/metrics"
	"flo2d/internal/models"
)

// SeriesID derives the deterministic run id from the identity fields
func SeriesID(id models.RunIdentity) string {
	key := strings.Join([]string{id.Station, id.Variable, id.Unit, id.Source, id.RunName, id.Horizon}, "|")
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

// GetOrCreateSeriesID returns the id for the identity, inserting the run when it does not
// exist yet. created reports whether this call made the run.
func (db *DB) GetOrCreateSeriesID(ctx context.Context, identity models.RunIdentity) (string, bool, error) {
	id := SeriesID(identity)

	var existing string
	err := db.queryRow(ctx, "runs", []any{&existing}, `SELECT id FROM runs WHERE id = ?`, id)
	if err == nil {
		return id, false, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return "", false, fmt.Errorf("failed to look up run %s: %w", id, err)
	}

	res, err := db.exec(ctx, "INSERT", "runs", db.dialect.insertRun,
		id, identity.Station, identity.Variable, identity.Unit, identity.Source, identity.RunName, identity.Horizon)
	if err != nil {
		return "", false, fmt.Errorf("failed to create run for %s %s: %w", identity.Station, identity.Horizon, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return "", false, fmt.Errorf("failed to create run for %s %s: %w", identity.Station, identity.Horizon, err)
	}
	return id, n > 0, nil
}

// InsertRows writes the points of one series in a single transaction. Existing rows are
// overwritten when allowOverwrite is set and left alone otherwise. Points whose value is
// not a number are skipped. It returns the number of rows inserted or changed.
func (db *DB) InsertRows(ctx context.Context, id string, points models.Series, allowOverwrite bool) (int, error) {
	if len(points) == 0 {
		return 0, nil
	}

	query := db.dialect.insertDataOnce
	queryType := "INSERT"
	if allowOverwrite {
		query = db.dialect.upsertData
		queryType = "UPSERT"
	}

	start := time.Now()
	written, skipped, err := db.insertRowsTx(ctx, query, id, points)
	metrics.RecordDBQuery(queryType, "data", time.Since(start), err)
	if err != nil {
		return 0, err
	}

	if skipped > 0 {
		db.logger.Warn("skipped non-numeric values", "series_id", id, "skipped", skipped)
	}
	metrics.RowsWritten.Add(float64(written))
	return written, nil
}

func (db *DB) insertRowsTx(ctx context.Context, query, id string, points models.Series) (written, skipped int, err error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, p := range points {
		value, perr := strconv.ParseFloat(strings.TrimSpace(p.Value), 64)
		if perr != nil {
			skipped++
			continue
		}

		ts := p.Time.Format(models.TimestampFormat)
		res, err := stmt.ExecContext(ctx, id, ts, value)
		if err != nil {
			return 0, 0, fmt.Errorf("failed to insert row for %s at %s: %w", id, ts, err)
		}
		if n, err := res.RowsAffected(); err == nil && n > 0 {
			written++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return written, skipped, nil
}

// Rows returns the stored points of a series in time order
func (db *DB) Rows(ctx context.Context, id string) (models.Series, error) {
	start := time.Now()
	rows, err := db.conn.QueryContext(ctx, `SELECT time, value FROM data WHERE id = ? ORDER BY time`, id)
	metrics.RecordDBQuery("SELECT", "data", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("failed to query rows for %s: %w", id, err)
	}
	defer rows.Close()

	var series models.Series
	for rows.Next() {
		var (
			ts    any
			value float64
		)
		if err := rows.Scan(&ts, &value); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		t, err := scanTime(ts)
		if err != nil {
			return nil, err
		}
		series = append(series, models.Point{Time: t, Value: strconv.FormatFloat(value, 'f', -1, 64)})
	}
	return series, rows.Err()
}

func scanTime(v any) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		return t.UTC(), nil
	case string:
		return time.Parse(models.TimestampFormat, t)
	case []byte:
		return time.Parse(models.TimestampFormat, string(t))
	default:
		return time.Time{}, fmt.Errorf("unexpected time column type %T", v)
	}
}
