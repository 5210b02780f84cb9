package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"flo2d/internal/models"
)

// ErrDuplicateStation is returned by InsertStation for a name that already exists
var ErrDuplicateStation = errors.New("duplicate station")

// MissingMetadataError reports a source, variable or unit absent from the store
type MissingMetadataError struct {
	Kind string
	Name string
}

func (e *MissingMetadataError) Error() string {
	return fmt.Sprintf("%s %q not found in database", e.Kind, e.Name)
}

// StationExists reports whether a station with the display name is registered
func (db *DB) StationExists(ctx context.Context, name string) (bool, error) {
	var id int64
	err := db.queryRow(ctx, "stations", []any{&id}, `SELECT id FROM stations WHERE name = ? LIMIT 1`, name)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to look up station %s: %w", name, err)
	}
	return true, nil
}

// CheckMetadata verifies that the source, variable and unit of a run are registered
func (db *DB) CheckMetadata(ctx context.Context, model, version, variable, unit, unitType string) error {
	lookups := []struct {
		kind  string
		name  string
		table string
		query string
		args  []any
	}{
		{"source", model + " " + version, "sources", `SELECT id FROM sources WHERE model = ? AND version = ?`, []any{model, version}},
		{"variable", variable, "variables", `SELECT id FROM variables WHERE variable = ?`, []any{variable}},
		{"unit", unit + " " + unitType, "units", `SELECT id FROM units WHERE unit = ? AND type = ?`, []any{unit, unitType}},
	}

	for _, l := range lookups {
		var id int64
		err := db.queryRow(ctx, l.table, []any{&id}, l.query, l.args...)
		if errors.Is(err, sql.ErrNoRows) {
			return &MissingMetadataError{Kind: l.kind, Name: l.name}
		}
		if err != nil {
			return fmt.Errorf("failed to look up %s: %w", l.kind, err)
		}
	}
	return nil
}

// AddSource registers a model source. Adding an existing source is a no-op.
func (db *DB) AddSource(ctx context.Context, model, version, parameters string) (int64, error) {
	_, err := db.exec(ctx, "INSERT", "sources",
		db.dialect.insertIgnore("sources", "model", "version", "parameters"), model, version, parameters)
	if err != nil {
		return 0, fmt.Errorf("failed to add source %s %s: %w", model, version, err)
	}
	return db.lookupID(ctx, "sources", `SELECT id FROM sources WHERE model = ? AND version = ?`, model, version)
}

// AddVariable registers a variable. Adding an existing variable is a no-op.
func (db *DB) AddVariable(ctx context.Context, variable string) (int64, error) {
	_, err := db.exec(ctx, "INSERT", "variables", db.dialect.insertIgnore("variables", "variable"), variable)
	if err != nil {
		return 0, fmt.Errorf("failed to add variable %s: %w", variable, err)
	}
	return db.lookupID(ctx, "variables", `SELECT id FROM variables WHERE variable = ?`, variable)
}

// AddUnit registers a unit with its type. Adding an existing unit is a no-op.
func (db *DB) AddUnit(ctx context.Context, unit, unitType string) (int64, error) {
	_, err := db.exec(ctx, "INSERT", "units", db.dialect.insertIgnore("units", "unit", "type"), unit, unitType)
	if err != nil {
		return 0, fmt.Errorf("failed to add unit %s: %w", unit, err)
	}
	return db.lookupID(ctx, "units", `SELECT id FROM units WHERE unit = ? AND type = ?`, unit, unitType)
}

// InsertStation registers a station
func (db *DB) InsertStation(ctx context.Context, station models.Station) (int64, error) {
	res, err := db.exec(ctx, "INSERT", "stations",
		db.dialect.insertIgnore("stations", "element_id", "name", "latitude", "longitude"),
		station.ElementID, station.Name, station.Latitude, station.Longitude)
	if err != nil {
		return 0, fmt.Errorf("failed to insert station: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return 0, fmt.Errorf("%w: %s", ErrDuplicateStation, station.Name)
	}
	return db.lookupID(ctx, "stations", `SELECT id FROM stations WHERE name = ?`, station.Name)
}

func (db *DB) lookupID(ctx context.Context, table, query string, args ...any) (int64, error) {
	var id int64
	if err := db.queryRow(ctx, table, []any{&id}, query, args...); err != nil {
		return 0, fmt.Errorf("failed to look up %s id: %w", table, err)
	}
	return id, nil
}
