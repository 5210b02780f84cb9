package report

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flo2d/internal/logging"
	"flo2d/internal/metrics"
	"flo2d/internal/models"
)

var base = time.Date(2019, 6, 5, 0, 0, 0, 0, time.UTC)

func channelMarker(id string) string {
	return "     CHANNEL HYDROGRAPH FOR ELEMENT NO:      " + id
}

func TestChannelExtractor_Scenario(t *testing.T) {
	report := strings.Join([]string{
		channelMarker("179"),
		"0.0 1.2 0.5 10.0",
		"1.0 1.5 0.6 11.0",
		"2.0 1.7 0.7 12.0",
	}, "\n")

	e := NewChannelExtractor(models.LocationCatalog{"179": "Wellawatta"}, base, ElevationColumn, logging.Discard())
	out, err := e.Extract(strings.NewReader(report), 3)
	require.NoError(t, err)

	require.Len(t, out, 1)
	assert.Equal(t, "179", out[0].ElementID)
	assert.Equal(t, "Wellawatta", out[0].Name)
	assert.Equal(t, models.Series{
		{Time: base, Value: "1.2"},
		{Time: base.Add(time.Hour), Value: "1.5"},
		{Time: base.Add(2 * time.Hour), Value: "1.7"},
	}, out[0].Points)
}

func TestChannelExtractor_DepthColumn(t *testing.T) {
	report := channelMarker("179") + "\n0.0 1.2 0.5\n1.0 1.5 0.6\n"

	e := NewChannelExtractor(models.LocationCatalog{"179": "Wellawatta"}, base, DepthColumn, logging.Discard())
	out, err := e.Extract(strings.NewReader(report), 2)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "0.5", out[0].Points[0].Value)
	assert.Equal(t, "0.6", out[0].Points[1].Value)
}

func TestChannelExtractor_MultipleBlocks(t *testing.T) {
	catalog := models.LocationCatalog{"179": "Wellawatta", "221": "Dehiwala"}
	report := strings.Join([]string{
		"  FLO-2D CHANNEL HYDROGRAPHS",
		channelMarker("179"),
		"     TIME   ELEV   DEPTH",
		"0.0 1.2 0.1",
		"1.0 NaN 0.1",
		"2.0 1.7 0.1",
		channelMarker("500"),
		"0.0 9.9 0.1",
		"1.0 9.9 0.1",
		"2.0 9.9 0.1",
		channelMarker("221"),
		"0.0 2.2 0.1",
		"1.0 abc 0.1",
		"2.0 2.4 0.1",
	}, "\n")

	e := NewChannelExtractor(catalog, base, ElevationColumn, logging.Discard())
	out, err := e.Extract(strings.NewReader(report), 3)
	require.NoError(t, err)

	require.Len(t, out, 2)
	assert.Equal(t, "179", out[0].ElementID)
	assert.Equal(t, "221", out[1].ElementID)

	// NaN and unparsable values are dropped, never replaced by the sentinel
	require.Len(t, out[0].Points, 2)
	assert.Equal(t, base.Add(2*time.Hour), out[0].Points[1].Time)
	require.Len(t, out[1].Points, 2)
	assert.Equal(t, "2.4", out[1].Points[1].Value)
}

func TestChannelExtractor_LongerBlockTruncated(t *testing.T) {
	before := testutil.ToFloat64(metrics.BlocksTruncated)

	report := strings.Join([]string{
		channelMarker("179"),
		"0.0 1.0 0.1",
		"1.0 1.1 0.1",
		channelMarker("221"),
		"0.0 2.0 0.1",
		"1.0 2.1 0.1",
		"2.0 2.2 0.1",
		"3.0 2.3 0.1",
	}, "\n")

	catalog := models.LocationCatalog{"179": "Wellawatta", "221": "Dehiwala"}
	e := NewChannelExtractor(catalog, base, ElevationColumn, logging.Discard())
	out, err := e.Extract(strings.NewReader(report), 2)
	require.NoError(t, err)

	require.Len(t, out, 2)
	assert.Len(t, out[1].Points, 2)
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.BlocksTruncated))
}

func TestChannelExtractor_ShortBlockDiscarded(t *testing.T) {
	report := strings.Join([]string{
		channelMarker("179"),
		"0.0 1.0 0.1",
		"1.0 1.1 0.1",
		"2.0 1.2 0.1",
		channelMarker("221"),
		"0.0 2.0 0.1",
		channelMarker("300"),
	}, "\n")

	catalog := models.LocationCatalog{"179": "Wellawatta", "221": "Dehiwala"}
	e := NewChannelExtractor(catalog, base, ElevationColumn, logging.Discard())
	out, err := e.Extract(strings.NewReader(report), 3)
	require.NoError(t, err)

	require.Len(t, out, 1)
	assert.Equal(t, "179", out[0].ElementID)
}

func TestChannelExtractor_InvalidSeriesLength(t *testing.T) {
	e := NewChannelExtractor(models.LocationCatalog{"179": "Wellawatta"}, base, ElevationColumn, logging.Discard())
	_, err := e.Extract(strings.NewReader(channelMarker("179")), 0)
	assert.ErrorIs(t, err, ErrMalformedReport)
}

func TestChannelExtractor_ExtractFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "HYCHAN.OUT")
	report := strings.Join([]string{
		channelMarker("179"),
		"0.0 1.2 0.1",
		"1.0 1.5 0.1",
		channelMarker("221"),
		"0.0 2.2 0.1",
		"1.0 2.5 0.1",
	}, "\n")
	require.NoError(t, os.WriteFile(path, []byte(report), 0o644))

	catalog := models.LocationCatalog{"179": "Wellawatta", "221": "Dehiwala"}
	e := NewChannelExtractor(catalog, base, ElevationColumn, logging.Discard())
	out, err := e.ExtractFile(path)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Len(t, out[1].Points, 2)

	_, err = e.ExtractFile(filepath.Join(t.TempDir(), "missing.OUT"))
	assert.ErrorIs(t, err, ErrMalformedReport)
}
