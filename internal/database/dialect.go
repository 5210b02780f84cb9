package database

import (
	"fmt"
	"strings"
)

type dialect struct {
	name       string
	driverName string
	schema     []string

	upsertData     string
	insertDataOnce string
	insertRun      string
	insertIgnore   func(table string, columns ...string) string
}

func dialectFor(driver string) (dialect, error) {
	switch driver {
	case "", "mysql":
		return mysqlDialect, nil
	case "sqlite":
		return sqliteDialect, nil
	default:
		return dialect{}, fmt.Errorf("unsupported database driver %q", driver)
	}
}

func placeholders(n int) string {
	p := make([]string, n)
	for i := range p {
		p[i] = "?"
	}
	return strings.Join(p, ", ")
}

var mysqlDialect = dialect{
	name:       "mysql",
	driverName: "mysql",
	schema: []string{
		`CREATE TABLE IF NOT EXISTS stations (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			element_id VARCHAR(45) NOT NULL DEFAULT '',
			name VARCHAR(255) NOT NULL,
			latitude DOUBLE NOT NULL,
			longitude DOUBLE NOT NULL,
			UNIQUE KEY uq_stations_name (name)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

		`CREATE TABLE IF NOT EXISTS sources (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			model VARCHAR(45) NOT NULL,
			version VARCHAR(45) NOT NULL,
			parameters TEXT,
			UNIQUE KEY uq_sources_model_version (model, version)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

		`CREATE TABLE IF NOT EXISTS variables (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			variable VARCHAR(100) NOT NULL,
			UNIQUE KEY uq_variables_variable (variable)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

		`CREATE TABLE IF NOT EXISTS units (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			unit VARCHAR(10) NOT NULL,
			type VARCHAR(45) NOT NULL,
			UNIQUE KEY uq_units_unit_type (unit, type)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

		`CREATE TABLE IF NOT EXISTS runs (
			id CHAR(64) NOT NULL PRIMARY KEY,
			station VARCHAR(255) NOT NULL,
			variable VARCHAR(100) NOT NULL,
			unit VARCHAR(10) NOT NULL,
			source VARCHAR(45) NOT NULL,
			name VARCHAR(255) NOT NULL,
			type VARCHAR(45) NOT NULL,
			INDEX idx_runs_station (station)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

		`CREATE TABLE IF NOT EXISTS data (
			id CHAR(64) NOT NULL,
			time DATETIME NOT NULL,
			value DOUBLE NOT NULL,
			PRIMARY KEY (id, time)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	},
	upsertData:     `INSERT INTO data (id, time, value) VALUES (?, ?, ?) ON DUPLICATE KEY UPDATE value = VALUES(value)`,
	insertDataOnce: `INSERT IGNORE INTO data (id, time, value) VALUES (?, ?, ?)`,
	insertRun:      `INSERT IGNORE INTO runs (id, station, variable, unit, source, name, type) VALUES (?, ?, ?, ?, ?, ?, ?)`,
	insertIgnore: func(table string, columns ...string) string {
		return fmt.Sprintf("INSERT IGNORE INTO %s (%s) VALUES (%s)", table, strings.Join(columns, ", "), placeholders(len(columns)))
	},
}

var sqliteDialect = dialect{
	name:       "sqlite",
	driverName: "sqlite",
	schema: []string{
		`CREATE TABLE IF NOT EXISTS stations (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			element_id TEXT NOT NULL DEFAULT '',
			name TEXT NOT NULL UNIQUE,
			latitude REAL NOT NULL,
			longitude REAL NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS sources (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			model TEXT NOT NULL,
			version TEXT NOT NULL,
			parameters TEXT,
			UNIQUE (model, version)
		)`,

		`CREATE TABLE IF NOT EXISTS variables (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			variable TEXT NOT NULL UNIQUE
		)`,

		`CREATE TABLE IF NOT EXISTS units (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			unit TEXT NOT NULL,
			type TEXT NOT NULL,
			UNIQUE (unit, type)
		)`,

		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT NOT NULL PRIMARY KEY,
			station TEXT NOT NULL,
			variable TEXT NOT NULL,
			unit TEXT NOT NULL,
			source TEXT NOT NULL,
			name TEXT NOT NULL,
			type TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_station ON runs(station)`,

		`CREATE TABLE IF NOT EXISTS data (
			id TEXT NOT NULL,
			time TEXT NOT NULL,
			value REAL NOT NULL,
			PRIMARY KEY (id, time)
		)`,
	},
	upsertData:     `INSERT INTO data (id, time, value) VALUES (?, ?, ?) ON CONFLICT(id, time) DO UPDATE SET value = excluded.value`,
	insertDataOnce: `INSERT INTO data (id, time, value) VALUES (?, ?, ?) ON CONFLICT DO NOTHING`,
	insertRun:      `INSERT INTO runs (id, station, variable, unit, source, name, type) VALUES (?, ?, ?, ?, ?, ?, ?) ON CONFLICT DO NOTHING`,
	insertIgnore: func(table string, columns ...string) string {
		return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) ON CONFLICT DO NOTHING", table, strings.Join(columns, ", "), placeholders(len(columns)))
	},
}
