package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"
	"github.com/go-redis/redis/v8"
	"github.com/jonboulle/clockwork"

	"flo2d/internal/config"
	"flo2d/internal/database"
	"flo2d/internal/export"
	"flo2d/internal/logging"
	"flo2d/internal/metrics"
	"flo2d/internal/notify"
	"flo2d/internal/pipeline"
	"flo2d/internal/report"
)

// CLI is the extract command line. Every flag overrides the run file and the config file.
type CLI struct {
	Config      string `help:"Extraction config file." default:"config.json"`
	RunFile     string `name:"flo2d_config" short:"F" help:"Run override file. Defaults to RUN_FLO2D_FILE in the model directory."`
	Date        string `short:"d" help:"Model state date (YYYY-MM-DD). Defaults to today."`
	Time        string `short:"t" help:"Model state time (HH:MM:SS). Defaults to now, or midnight when a date is given."`
	StartDate   string `name:"start_date" short:"S" help:"Timeseries base date (YYYY-MM-DD). Defaults to the model date."`
	StartTime   string `name:"start_time" short:"T" help:"Timeseries base time (HH:MM:SS). Defaults to 00:00:00."`
	Path        string `short:"p" help:"Model output directory. Defaults to <date>_Kelani in the working directory."`
	Out         string `short:"o" help:"Output directory suffix. Defaults to the model date."`
	Name        string `short:"n" help:"Run name template, e.g. Cloud-1-<%H:%M:%S>."`
	UTCOffset   string `name:"utc_offset" short:"u" help:"UTC offset of the report timestamps, [+-]HH:MM."`
	ForceInsert bool   `name:"forceInsert" short:"f" help:"Overwrite existing timeseries."`
}

func (c CLI) flags(workDir string) config.Flags {
	return config.Flags{
		WorkDir:      workDir,
		RunFile:      c.RunFile,
		Date:         c.Date,
		Time:         c.Time,
		StartDate:    c.StartDate,
		StartTime:    c.StartTime,
		Path:         c.Path,
		OutputSuffix: c.Out,
		RunName:      c.Name,
		UTCOffset:    c.UTCOffset,
		ForceInsert:  c.ForceInsert,
	}
}

func main() {
	var cli CLI
	kong.Parse(&cli,
		kong.Name("extract"),
		kong.Description("Extract FLO2D water levels and store them as forecast timeseries."),
		kong.UsageOnError(),
	)

	workDir, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to get working directory: %v\n", err)
		os.Exit(1)
	}

	if err := run(context.Background(), cli, workDir, clockwork.NewRealClock()); err != nil {
		os.Exit(1)
	}
}

// run performs one extraction. Fatal errors are logged here and returned.
func run(ctx context.Context, cli CLI, workDir string, clock clockwork.Clock) error {
	logger := logging.New(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT"))

	cfg, err := config.Load(cli.Config)
	if err != nil {
		logger.Error("failed to load config", "path", cli.Config, "error", err)
		return err
	}
	logger = logging.New(cfg.LogLevel, cfg.LogFormat)

	err = extract(ctx, cfg, cli.flags(workDir), clock, logger)
	if err == nil {
		metrics.LastSuccess.SetToCurrentTime()
	}
	if perr := metrics.Push(cfg.Pushgateway.URL, cfg.Pushgateway.Job); perr != nil {
		logger.Warn("failed to push metrics", "error", perr)
	}
	return err
}

func extract(ctx context.Context, cfg *config.Config, flags config.Flags, clock clockwork.Clock, logger *slog.Logger) error {
	runFilePath := config.RunFilePath(cfg, flags)
	rf, err := config.LoadRunFile(runFilePath)
	if err != nil {
		logger.Error("failed to load run file", "path", runFilePath, "error", err)
		return err
	}

	runCfg, err := config.ResolveRun(cfg, rf, flags, clock)
	if err != nil {
		logger.Error("invalid run configuration", "error", err)
		return err
	}
	if runCfg.OffsetErr != nil {
		logger.Warn("ignoring utc offset", "error", runCfg.OffsetErr)
	}

	runName, err := runCfg.RunName()
	if err != nil {
		logger.Error("invalid run name", "template", runCfg.RunNameTemplate, "error", err)
		return err
	}

	logger.Info("starting extraction",
		"model_time", runCfg.ModelTime,
		"base_time", runCfg.BaseTime,
		"model_dir", runCfg.ModelDir,
		"run_name", runName,
		"utc_shift", runCfg.UTCShift,
		"force_insert", runCfg.ForceInsert,
	)

	db, err := database.NewDB(ctx, cfg.Driver, cfg.DatabaseDSN(), logger)
	if err != nil {
		logger.Error("failed to connect to database", "driver", cfg.Driver, "error", err)
		return err
	}
	defer db.Close()

	if err := db.CheckMetadata(ctx, cfg.Model, cfg.Version, cfg.Variable, cfg.Unit, cfg.UnitType); err != nil {
		logger.Error("run metadata not registered, run the seed command first", "error", err)
		return err
	}

	var publisher pipeline.Publisher
	if cfg.Redis.Enabled() {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer client.Close()
		publisher = notify.NewRedisPublisher(client, cfg.Redis.Stream, logger)
	}

	var exporter pipeline.Exporter
	if runCfg.WriteCSV {
		exporter = &export.CSVWriter{Dir: runCfg.OutputDir, FileName: runCfg.WaterLevelFile, ModelTime: runCfg.ModelTime}
	}

	column := report.ElevationColumn
	if runCfg.ChannelValueColumn == "depth" {
		column = report.DepthColumn
	}

	reports := []pipeline.Report{
		{
			Name:      "channel",
			Path:      runCfg.ChannelReport,
			Extractor: report.NewChannelExtractor(runCfg.ChannelCatalog, runCfg.BaseTime, column, logger),
		},
		{
			Name:      "floodplain",
			Path:      runCfg.FloodPlainReport,
			Extractor: report.NewFloodPlainExtractor(runCfg.FloodPlainCatalog, runCfg.BaseTime, logger),
		},
	}

	p := pipeline.New(db, publisher, exporter, pipeline.Options{
		RunName:     runName,
		Source:      runCfg.Source,
		Variable:    runCfg.Variable,
		Unit:        runCfg.Unit,
		ModelTime:   runCfg.ModelTime,
		UTCShift:    runCfg.UTCShift,
		ForceInsert: runCfg.ForceInsert,
	}, logger)

	summary, err := p.Run(ctx, reports)
	if err != nil {
		logger.Error("extraction aborted", "error", err)
		return err
	}

	logger.Info("extraction finished",
		"series", summary.Series,
		"rows", summary.Rows,
		"skipped", summary.Skipped,
		"failed_reports", summary.FailedReports,
	)
	return nil
}
