package pipeline

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flo2d/internal/logging"
	"flo2d/internal/models"
	"flo2d/internal/notify"
	"flo2d/internal/report"
)

type insertCall struct {
	id        string
	points    models.Series
	overwrite bool
}

type fakeStore struct {
	stations  map[string]bool
	existing  map[models.RunIdentity]bool
	inserts   []insertCall
	insertErr error
}

func newFakeStore(stations ...string) *fakeStore {
	s := &fakeStore{stations: map[string]bool{}, existing: map[models.RunIdentity]bool{}}
	for _, name := range stations {
		s.stations[name] = true
	}
	return s
}

func (s *fakeStore) StationExists(_ context.Context, name string) (bool, error) {
	return s.stations[name], nil
}

func (s *fakeStore) GetOrCreateSeriesID(_ context.Context, identity models.RunIdentity) (string, bool, error) {
	id := identity.Station + "/" + identity.Horizon
	if s.existing[identity] {
		return id, false, nil
	}
	s.existing[identity] = true
	return id, true, nil
}

func (s *fakeStore) InsertRows(_ context.Context, id string, points models.Series, overwrite bool) (int, error) {
	if s.insertErr != nil {
		return 0, s.insertErr
	}
	s.inserts = append(s.inserts, insertCall{id: id, points: points, overwrite: overwrite})
	return len(points), nil
}

type fakePublisher struct {
	events []notify.Event
}

func (p *fakePublisher) Publish(_ context.Context, e notify.Event) {
	p.events = append(p.events, e)
}

type fakeExtractor struct {
	series []models.ElementSeries
	err    error
}

func (e fakeExtractor) ExtractFile(string) ([]models.ElementSeries, error) {
	return e.series, e.err
}

type fakeExporter struct {
	written []string
}

func (e *fakeExporter) Write(es models.ElementSeries) (string, error) {
	e.written = append(e.written, es.Name)
	return "/out/" + es.Name, nil
}

var runStart = time.Date(2019, 6, 5, 6, 0, 0, 0, time.UTC)

// hourly builds n hourly points starting at start
func hourly(start time.Time, n int) models.Series {
	s := make(models.Series, n)
	for i := range s {
		s[i] = models.Point{Time: start.Add(time.Duration(i) * time.Hour), Value: fmt.Sprintf("%d", i)}
	}
	return s
}

func testOptions() Options {
	return Options{
		RunName:   "Cloud-1",
		Source:    "FLO2D_250",
		Variable:  "WaterLevel",
		Unit:      "m",
		ModelTime: runStart,
	}
}

func TestSave_BucketsByDay(t *testing.T) {
	store := newFakeStore("Wellawatta")
	pub := &fakePublisher{}
	p := New(store, pub, nil, testOptions(), logging.Discard())

	// starts the day before the run and spans three run days
	points := hourly(runStart.Add(-30*time.Hour), 30+48)
	rows, err := p.Save(context.Background(), models.ElementSeries{ElementID: "179", Name: "Wellawatta", Points: points})
	require.NoError(t, err)

	require.Len(t, store.inserts, 3)
	assert.Equal(t, "Wellawatta/Forecast-0-d", store.inserts[0].id)
	assert.Equal(t, "Wellawatta/Forecast-1-d-after", store.inserts[1].id)
	assert.Equal(t, "Wellawatta/Forecast-2-d-after", store.inserts[2].id)

	// truncation is by day, so the run day keeps its hours before 06:00
	assert.Equal(t, time.Date(2019, 6, 5, 0, 0, 0, 0, time.UTC), store.inserts[0].points[0].Time)
	assert.Len(t, store.inserts[0].points, 24)
	assert.Len(t, store.inserts[1].points, 24)
	assert.Len(t, store.inserts[2].points, 6)
	assert.Equal(t, 54, rows)

	require.Len(t, pub.events, 3)
	assert.Equal(t, "Forecast-0-d", pub.events[0].Run.Horizon)
	assert.Equal(t, "Cloud-1", pub.events[0].Run.RunName)
	assert.Equal(t, "FLO2D_250", pub.events[0].Run.Source)
}

func TestSave_AtMostFifteenHorizons(t *testing.T) {
	store := newFakeStore("Wellawatta")
	p := New(store, nil, nil, testOptions(), logging.Discard())

	points := hourly(time.Date(2019, 6, 5, 0, 0, 0, 0, time.UTC), 20*24)
	_, err := p.Save(context.Background(), models.ElementSeries{Name: "Wellawatta", Points: points})
	require.NoError(t, err)

	require.Len(t, store.inserts, 15)
	assert.Equal(t, "Wellawatta/Forecast-14-d-after", store.inserts[14].id)
}

func TestSave_UnknownStation(t *testing.T) {
	store := newFakeStore()
	p := New(store, nil, nil, testOptions(), logging.Discard())

	_, err := p.Save(context.Background(), models.ElementSeries{Name: "Nowhere", Points: hourly(runStart, 3)})

	var unknown *UnknownStationError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "Nowhere", unknown.Station)
	assert.Empty(t, store.inserts)
}

func TestSave_ExistingRunSkippedUnlessForced(t *testing.T) {
	store := newFakeStore("Wellawatta")
	es := models.ElementSeries{Name: "Wellawatta", Points: hourly(runStart, 3)}

	first := New(store, nil, nil, testOptions(), logging.Discard())
	_, err := first.Save(context.Background(), es)
	require.NoError(t, err)
	require.Len(t, store.inserts, 1)

	rows, err := first.Save(context.Background(), es)
	require.NoError(t, err)
	assert.Zero(t, rows)
	assert.Len(t, store.inserts, 1)

	opts := testOptions()
	opts.ForceInsert = true
	forced := New(store, nil, nil, opts, logging.Discard())
	rows, err = forced.Save(context.Background(), es)
	require.NoError(t, err)
	assert.Equal(t, 3, rows)
	require.Len(t, store.inserts, 2)
	assert.True(t, store.inserts[1].overwrite)
}

func TestSave_UTCShift(t *testing.T) {
	store := newFakeStore("Wellawatta")
	opts := testOptions()
	opts.ModelTime = time.Date(2019, 6, 5, 0, 0, 0, 0, time.UTC)
	opts.UTCShift = -(5*time.Hour + 30*time.Minute)
	p := New(store, nil, nil, opts, logging.Discard())

	_, err := p.Save(context.Background(), models.ElementSeries{Name: "Wellawatta", Points: hourly(opts.ModelTime, 2)})
	require.NoError(t, err)

	// the shifted run start falls on the previous day, so both shifted points are kept
	require.Len(t, store.inserts, 1)
	assert.Equal(t, time.Date(2019, 6, 4, 18, 30, 0, 0, time.UTC), store.inserts[0].points[0].Time)
	assert.Len(t, store.inserts[0].points, 2)
}

func TestSave_NothingAfterCutoff(t *testing.T) {
	store := newFakeStore("Wellawatta")
	p := New(store, nil, nil, testOptions(), logging.Discard())

	rows, err := p.Save(context.Background(), models.ElementSeries{Name: "Wellawatta", Points: hourly(runStart.Add(-72*time.Hour), 24)})
	require.NoError(t, err)
	assert.Zero(t, rows)
	assert.Empty(t, store.inserts)
}

func TestRun_ReportFailureDoesNotStopOtherReports(t *testing.T) {
	store := newFakeStore("Wellawatta", "Parlimant Lake")
	exporter := &fakeExporter{}
	p := New(store, nil, exporter, testOptions(), logging.Discard())

	reports := []Report{
		{Name: "channel", Path: "HYCHAN.OUT", Extractor: fakeExtractor{err: fmt.Errorf("%w: no blocks", report.ErrMalformedReport)}},
		{Name: "floodplain", Path: "TIMDEP.OUT", Extractor: fakeExtractor{series: []models.ElementSeries{
			{ElementID: "2265", Name: "Parlimant Lake", Points: hourly(runStart, 2)},
			{ElementID: "9999", Name: "Unknown Place", Points: hourly(runStart, 2)},
		}}},
	}

	summary, err := p.Run(context.Background(), reports)
	require.NoError(t, err)

	assert.Equal(t, []string{"channel"}, summary.FailedReports)
	assert.Equal(t, 1, summary.Series)
	assert.Equal(t, 1, summary.Skipped)
	assert.Equal(t, 2, summary.Rows)
	assert.Equal(t, []string{"Parlimant Lake", "Unknown Place"}, exporter.written)
}

func TestRun_StoreErrorAborts(t *testing.T) {
	store := newFakeStore("Wellawatta")
	store.insertErr = errors.New("connection lost")
	p := New(store, nil, nil, testOptions(), logging.Discard())

	_, err := p.Run(context.Background(), []Report{
		{Name: "channel", Extractor: fakeExtractor{series: []models.ElementSeries{{Name: "Wellawatta", Points: hourly(runStart, 2)}}}},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, store.insertErr)
}
