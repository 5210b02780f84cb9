package report

import (
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"flo2d/internal/models"
)

// floodPlainValueToken is the index of the water elevation in a TIMDEP.OUT element row
const floodPlainValueToken = 5

// FloodPlainExtractor builds one dense series per tracked flood-plain element.
// Every element gets exactly one point per snapshot; missing rows become models.MissingValue.
type FloodPlainExtractor struct {
	catalog  models.LocationCatalog
	baseTime time.Time
	logger   *slog.Logger
}

func NewFloodPlainExtractor(catalog models.LocationCatalog, baseTime time.Time, logger *slog.Logger) *FloodPlainExtractor {
	return &FloodPlainExtractor{
		catalog:  catalog,
		baseTime: baseTime,
		logger:   logger,
	}
}

// ExtractFile extracts flood-plain series from a report on disk
func (e *FloodPlainExtractor) ExtractFile(path string) ([]models.ElementSeries, error) {
	f, err := openReport(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	series, err := e.Extract(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return series, nil
}

// Extract splits r into snapshots at single-token lines and samples every tracked element
// from each snapshot. The pending snapshot at end of input is flushed as well.
func (e *FloodPlainExtractor) Extract(r io.Reader) ([]models.ElementSeries, error) {
	ids := e.catalog.IDs()
	series := make(map[string]models.Series, len(ids))
	for _, id := range ids {
		series[id] = models.Series{}
	}

	var chunk []string
	snapshots := 0
	flush := func() {
		if len(chunk) == 0 {
			return
		}
		if e.sample(chunk, ids, series) {
			snapshots++
		}
		chunk = nil
	}

	sc := newLineScanner(r)
	for sc.Scan() {
		line := sc.Text()
		if len(strings.Fields(line)) == 1 {
			flush()
		}
		chunk = append(chunk, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("%w: read: %v", ErrMalformedReport, err)
	}
	flush()

	e.logger.Info("flood plain snapshots extracted", "snapshots", snapshots, "elements", len(ids))

	out := make([]models.ElementSeries, 0, len(ids))
	for _, id := range ids {
		out = append(out, models.ElementSeries{
			ElementID: id,
			Name:      e.catalog[id],
			Points:    series[id],
		})
	}
	return out, nil
}

// sample appends one point per element for the snapshot in chunk.
// It returns false when the chunk has no parsable model time.
func (e *FloodPlainExtractor) sample(chunk []string, ids []string, series map[string]models.Series) bool {
	head := strings.Fields(chunk[0])
	if len(head) == 0 {
		return false
	}
	hours, err := strconv.ParseFloat(head[0], 64)
	if err != nil {
		e.logger.Warn("flood plain chunk without model time skipped", "first_line", chunk[0])
		return false
	}
	at := offsetTime(e.baseTime, hours)

	levels := snapshotLevels(chunk[1:], e.catalog)
	for _, id := range ids {
		value, ok := levels[id]
		if !ok {
			value = models.MissingValue
		}
		series[id] = append(series[id], models.Point{Time: at, Value: value})
	}
	return true
}

// snapshotLevels reads element rows up to the first blank line
func snapshotLevels(lines []string, catalog models.LocationCatalog) map[string]string {
	levels := make(map[string]string)
	for _, line := range lines {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			break
		}
		if !catalog.Contains(fields[0]) || len(fields) <= floodPlainValueToken {
			continue
		}
		levels[fields[0]] = fields[floodPlainValueToken]
	}
	return levels
}
