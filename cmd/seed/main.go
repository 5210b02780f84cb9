package main

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/alecthomas/kong"

	"flo2d/internal/config"
	"flo2d/internal/database"
	"flo2d/internal/logging"
	"flo2d/internal/models"
)

// CLI registers the source, variable, unit and stations an extraction run needs
type CLI struct {
	Config   string `help:"Extraction config file." default:"config.json"`
	Stations string `help:"Stations CSV (element_id,name,latitude,longitude)." default:"stations_seed.csv"`
}

func main() {
	var cli CLI
	kong.Parse(&cli,
		kong.Name("seed"),
		kong.Description("Seed the FLO2D source, variable, unit and stations."),
	)

	if err := run(context.Background(), cli); err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context, cli CLI) error {
	logger := logging.New(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT"))

	cfg, err := config.Load(cli.Config)
	if err != nil {
		logger.Error("failed to load config", "path", cli.Config, "error", err)
		return err
	}
	logger = logging.New(cfg.LogLevel, cfg.LogFormat)

	db, err := database.NewDB(ctx, cfg.Driver, cfg.DatabaseDSN(), logger)
	if err != nil {
		logger.Error("failed to initialize database", "error", err)
		return err
	}
	defer db.Close()

	if err := seedMetadata(ctx, db, cfg, logger); err != nil {
		logger.Error("failed to seed metadata", "error", err)
		return err
	}

	file, err := os.Open(cli.Stations)
	if err != nil {
		logger.Error("failed to open stations file", "path", cli.Stations, "error", err)
		return err
	}
	defer file.Close()

	stations, skipped, err := readStations(file, logger)
	if err != nil {
		logger.Error("failed to read stations", "path", cli.Stations, "error", err)
		return err
	}

	inserted, existing, err := seedStations(ctx, db, stations, logger)
	if err != nil {
		logger.Error("failed to seed stations", "error", err)
		return err
	}

	logger.Info("seed complete", "inserted", inserted, "existing", existing, "skipped", skipped)
	return nil
}

func sourceParameters(wrfModelList string) (string, error) {
	names := []string{}
	for _, m := range strings.Split(wrfModelList, ",") {
		if m = strings.TrimSpace(m); m != "" {
			names = append(names, m)
		}
	}
	data, err := json.Marshal(map[string][]string{"wrf_model_list": names})
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func seedMetadata(ctx context.Context, db *database.DB, cfg *config.Config, logger *slog.Logger) error {
	params, err := sourceParameters(cfg.WRFModelList)
	if err != nil {
		return fmt.Errorf("encode source parameters: %w", err)
	}

	sourceID, err := db.AddSource(ctx, cfg.Model, cfg.Version, params)
	if err != nil {
		return err
	}
	variableID, err := db.AddVariable(ctx, cfg.Variable)
	if err != nil {
		return err
	}
	unitID, err := db.AddUnit(ctx, cfg.Unit, cfg.UnitType)
	if err != nil {
		return err
	}

	logger.Info("metadata registered",
		"source", cfg.Model+" "+cfg.Version, "source_id", sourceID,
		"variable", cfg.Variable, "variable_id", variableID,
		"unit", cfg.Unit, "unit_id", unitID,
	)
	return nil
}

// readStations parses element_id,name,latitude,longitude rows after a header row.
// Invalid rows are skipped and counted.
func readStations(r io.Reader, logger *slog.Logger) ([]models.Station, int, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, 0, fmt.Errorf("read header: %w", err)
	}
	logger.Debug("stations csv header", "columns", header)

	var stations []models.Station
	skipped := 0
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, skipped, fmt.Errorf("read record: %w", err)
		}

		if len(record) < 4 || strings.TrimSpace(record[1]) == "" {
			logger.Warn("skipping invalid record", "record", record)
			skipped++
			continue
		}

		latitude, err := strconv.ParseFloat(strings.TrimSpace(record[2]), 64)
		if err != nil {
			logger.Warn("skipping record with invalid latitude", "record", record)
			skipped++
			continue
		}
		longitude, err := strconv.ParseFloat(strings.TrimSpace(record[3]), 64)
		if err != nil {
			logger.Warn("skipping record with invalid longitude", "record", record)
			skipped++
			continue
		}

		stations = append(stations, models.Station{
			ElementID: strings.TrimSpace(record[0]),
			Name:      strings.TrimSpace(record[1]),
			Latitude:  latitude,
			Longitude: longitude,
		})
	}
	return stations, skipped, nil
}

func seedStations(ctx context.Context, db *database.DB, stations []models.Station, logger *slog.Logger) (inserted, existing int, err error) {
	for _, s := range stations {
		_, err := db.InsertStation(ctx, s)
		if errors.Is(err, database.ErrDuplicateStation) {
			logger.Debug("station already exists", "name", s.Name)
			existing++
			continue
		}
		if err != nil {
			return inserted, existing, err
		}
		inserted++
	}
	return inserted, existing, nil
}
