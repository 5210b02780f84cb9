package report

import (
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"flo2d/internal/metrics"
	"flo2d/internal/models"
)

// Channel rows are "<hours> <elevation> <depth> ..."
const (
	ElevationColumn = 1
	DepthColumn     = 2
)

// ElementBlock is one element's raw rows from the channel report
type ElementBlock struct {
	ElementID string
	Header    string
	Records   [][]string
}

type blockState int

const (
	stateIdle blockState = iota
	stateInBlock
)

// blockMachine accumulates channel rows into element blocks.
//
// Idle -> InBlock on a marker naming a catalogued element; InBlock -> Idle as soon as
// seriesLength numeric rows were collected, emitting the block without waiting for the
// next marker. Numeric rows that directly follow a flushed block mean that block was
// longer than seriesLength; they are dropped and reported as a truncation.
type blockMachine struct {
	seriesLength int
	catalog      models.LocationCatalog
	emit         func(ElementBlock)
	logger       *slog.Logger

	state   blockState
	block   ElementBlock
	flushed string
	surplus int
}

func newBlockMachine(seriesLength int, catalog models.LocationCatalog, emit func(ElementBlock), logger *slog.Logger) *blockMachine {
	return &blockMachine{
		seriesLength: seriesLength,
		catalog:      catalog,
		emit:         emit,
		logger:       logger,
	}
}

// Feed advances the machine by one report line
func (m *blockMachine) Feed(line string) {
	if IsChannelMarker(line) {
		m.endSurplus()
		m.dropIncomplete()

		fields := strings.Fields(line)
		m.state = stateIdle
		m.block = ElementBlock{}
		if len(fields) > channelElementToken && m.catalog.Contains(fields[channelElementToken]) {
			m.state = stateInBlock
			m.block = ElementBlock{ElementID: fields[channelElementToken], Header: line}
		}
		return
	}

	fields := strings.Fields(line)
	if len(fields) == 0 || !isFloat(fields[0]) {
		m.endSurplus()
		return
	}

	switch m.state {
	case stateInBlock:
		m.block.Records = append(m.block.Records, fields)
		if len(m.block.Records) == m.seriesLength {
			m.emit(m.block)
			m.flushed = m.block.ElementID
			m.surplus = 0
			m.state = stateIdle
			m.block = ElementBlock{}
		}
	case stateIdle:
		if m.flushed != "" {
			m.surplus++
		}
	}
}

// Finish closes the machine at end of input
func (m *blockMachine) Finish() {
	m.endSurplus()
	m.dropIncomplete()
	m.state = stateIdle
}

func (m *blockMachine) endSurplus() {
	if m.flushed != "" && m.surplus > 0 {
		m.logger.Warn("channel block longer than series length, extra rows dropped",
			"element", m.flushed,
			"series_length", m.seriesLength,
			"dropped_rows", m.surplus,
		)
		metrics.BlocksTruncated.Inc()
	}
	m.flushed = ""
	m.surplus = 0
}

func (m *blockMachine) dropIncomplete() {
	if m.state != stateInBlock || len(m.block.Records) == 0 {
		return
	}
	m.logger.Warn("channel block shorter than series length, discarded",
		"element", m.block.ElementID,
		"series_length", m.seriesLength,
		"rows", len(m.block.Records),
	)
}

// ChannelExtractor rebuilds per-element series from the channel hydrograph report
type ChannelExtractor struct {
	catalog  models.LocationCatalog
	baseTime time.Time
	column   int
	logger   *slog.Logger
}

// NewChannelExtractor creates an extractor reading the given value column
func NewChannelExtractor(catalog models.LocationCatalog, baseTime time.Time, column int, logger *slog.Logger) *ChannelExtractor {
	if column != DepthColumn {
		column = ElevationColumn
	}
	return &ChannelExtractor{
		catalog:  catalog,
		baseTime: baseTime,
		column:   column,
		logger:   logger,
	}
}

// ExtractFile probes the series length and then extracts every catalogued element.
// The file is read twice, front to back.
func (e *ChannelExtractor) ExtractFile(path string) ([]models.ElementSeries, error) {
	seriesLength, err := ProbeSeriesLengthFile(path, IsChannelMarker)
	if err != nil {
		return nil, err
	}
	e.logger.Info("channel series length probed", "path", path, "series_length", seriesLength)

	f, err := openReport(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	series, err := e.Extract(f, seriesLength)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return series, nil
}

// Extract runs the block machine over r with a known series length
func (e *ChannelExtractor) Extract(r io.Reader, seriesLength int) ([]models.ElementSeries, error) {
	if seriesLength <= 0 {
		return nil, fmt.Errorf("%w: series length %d", ErrMalformedReport, seriesLength)
	}

	var out []models.ElementSeries
	m := newBlockMachine(seriesLength, e.catalog, func(b ElementBlock) {
		s := models.ElementSeries{
			ElementID: b.ElementID,
			Name:      e.catalog[b.ElementID],
			Points:    e.blockSeries(b),
		}
		e.logger.Debug("channel element extracted", "element", s.ElementID, "name", s.Name, "points", len(s.Points))
		out = append(out, s)
	}, e.logger)

	sc := newLineScanner(r)
	for sc.Scan() {
		m.Feed(sc.Text())
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("%w: read: %v", ErrMalformedReport, err)
	}
	m.Finish()

	return out, nil
}

// blockSeries converts raw rows into points; absent values are dropped, never replaced
func (e *ChannelExtractor) blockSeries(b ElementBlock) models.Series {
	series := make(models.Series, 0, len(b.Records))
	for _, rec := range b.Records {
		if len(rec) <= e.column {
			continue
		}
		value, ok := parseValue(rec[e.column])
		if !ok {
			continue
		}
		hours, err := strconv.ParseFloat(rec[0], 64)
		if err != nil {
			continue
		}
		series = append(series, models.Point{Time: offsetTime(e.baseTime, hours), Value: value})
	}
	return series
}
