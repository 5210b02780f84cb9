// Package pipeline runs one extraction: reports are parsed into element series, each series
// is aligned to the run, split into daily horizon buckets and written to the store.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"flo2d/internal/metrics"
	"flo2d/internal/models"
	"flo2d/internal/notify"
	"flo2d/internal/timeseries"
)

// UnknownStationError is returned when a series targets a station the store does not know
type UnknownStationError struct {
	Station string
}

func (e *UnknownStationError) Error() string {
	return fmt.Sprintf("station %q not found", e.Station)
}

// SeriesStore is the part of the timeseries store the pipeline writes through
type SeriesStore interface {
	StationExists(ctx context.Context, name string) (bool, error)
	GetOrCreateSeriesID(ctx context.Context, identity models.RunIdentity) (string, bool, error)
	InsertRows(ctx context.Context, id string, points models.Series, allowOverwrite bool) (int, error)
}

// Publisher announces written buckets
type Publisher interface {
	Publish(ctx context.Context, event notify.Event)
}

// Extractor turns one report file into element series
type Extractor interface {
	ExtractFile(path string) ([]models.ElementSeries, error)
}

// Exporter writes raw element series somewhere outside the store
type Exporter interface {
	Write(es models.ElementSeries) (string, error)
}

// Report is one model output file and the extractor that understands it
type Report struct {
	Name      string
	Path      string
	Extractor Extractor
}

// Options fixes the identity and alignment of every series in a run
type Options struct {
	RunName     string
	Source      string
	Variable    string
	Unit        string
	ModelTime   time.Time
	UTCShift    time.Duration
	ForceInsert bool
}

// Summary counts what a run did
type Summary struct {
	Series        int
	Rows          int
	Skipped       int
	FailedReports []string
}

// Pipeline writes extracted series to a store
type Pipeline struct {
	store     SeriesStore
	publisher Publisher
	exporter  Exporter
	opts      Options
	logger    *slog.Logger
}

// New creates a pipeline. exporter may be nil; a nil publisher drops events.
func New(store SeriesStore, publisher Publisher, exporter Exporter, opts Options, logger *slog.Logger) *Pipeline {
	if publisher == nil {
		publisher = notify.Nop{}
	}
	return &Pipeline{store: store, publisher: publisher, exporter: exporter, opts: opts, logger: logger}
}

// Run extracts and saves every report. A report that cannot be extracted is logged and
// skipped; store errors abort the run.
func (p *Pipeline) Run(ctx context.Context, reports []Report) (Summary, error) {
	var summary Summary

	for _, r := range reports {
		logger := p.logger.With("report", r.Name, "path", r.Path)

		series, err := r.Extractor.ExtractFile(r.Path)
		if err != nil {
			logger.Error("report extraction failed", "error", err)
			metrics.ReportFailures.WithLabelValues(r.Name).Inc()
			summary.FailedReports = append(summary.FailedReports, r.Name)
			continue
		}
		metrics.SeriesExtracted.WithLabelValues(r.Name).Add(float64(len(series)))
		logger.Info("extracted series", "count", len(series))

		for _, es := range series {
			if p.exporter != nil {
				if path, err := p.exporter.Write(es); err != nil {
					logger.Warn("csv export failed", "station", es.Name, "error", err)
				} else {
					logger.Debug("wrote csv", "station", es.Name, "file", path)
				}
			}

			rows, err := p.Save(ctx, es)
			var unknown *UnknownStationError
			if errors.As(err, &unknown) {
				logger.Warn("station not in database, skipping series", "station", unknown.Station, "element", es.ElementID)
				metrics.SeriesSkipped.WithLabelValues("unknown_station").Inc()
				summary.Skipped++
				continue
			}
			if err != nil {
				return summary, fmt.Errorf("save %s (%s): %w", es.Name, r.Name, err)
			}
			summary.Series++
			summary.Rows += rows
		}
	}

	return summary, nil
}

// Save aligns one element series and writes its horizon buckets.
// It returns the number of rows written.
func (p *Pipeline) Save(ctx context.Context, es models.ElementSeries) (int, error) {
	logger := p.logger.With("station", es.Name, "element", es.ElementID)

	exists, err := p.store.StationExists(ctx, es.Name)
	if err != nil {
		return 0, err
	}
	if !exists {
		return 0, &UnknownStationError{Station: es.Name}
	}

	shifted := timeseries.ApplyOffset(es.Points, p.opts.UTCShift)
	cutoff := p.opts.ModelTime.Add(p.opts.UTCShift)
	truncated := timeseries.TruncateFrom(shifted, cutoff, true)
	if len(truncated) == 0 {
		logger.Warn("no points at or after run start", "cutoff", cutoff.Format(models.TimestampFormat))
		metrics.SeriesSkipped.WithLabelValues("empty").Inc()
		return 0, nil
	}

	buckets := timeseries.BucketByDay(truncated)
	if len(buckets) > len(models.HorizonTypes) {
		logger.Debug("dropping days beyond last horizon", "days", len(buckets))
	}

	total := 0
	for i := 0; i < len(buckets) && i < len(models.HorizonTypes); i++ {
		identity := models.RunIdentity{
			Station:  es.Name,
			Variable: p.opts.Variable,
			Unit:     p.opts.Unit,
			Source:   p.opts.Source,
			RunName:  p.opts.RunName,
			Horizon:  models.HorizonTypes[i],
		}

		id, created, err := p.store.GetOrCreateSeriesID(ctx, identity)
		if err != nil {
			return total, err
		}
		if !created && !p.opts.ForceInsert {
			logger.Info("timeseries already exists, use force insert to overwrite", "type", identity.Horizon, "series_id", id)
			metrics.SeriesSkipped.WithLabelValues("exists").Inc()
			continue
		}

		n, err := p.store.InsertRows(ctx, id, buckets[i], p.opts.ForceInsert)
		if err != nil {
			return total, err
		}
		total += n
		logger.Info("inserted timeseries", "type", identity.Horizon, "rows", n)

		p.publisher.Publish(ctx, notify.NewEvent(id, identity, buckets[i], n))
	}

	return total, nil
}
