package timeseries

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flo2d/internal/models"
)

func series(start time.Time, step time.Duration, values ...string) models.Series {
	s := make(models.Series, len(values))
	for i, v := range values {
		s[i] = models.Point{Time: start.Add(time.Duration(i) * step), Value: v}
	}
	return s
}

var day0 = time.Date(2019, 6, 5, 0, 0, 0, 0, time.UTC)

func TestApplyOffset(t *testing.T) {
	s := series(day0, time.Hour, "1.2", "1.5")

	shifted := ApplyOffset(s, -(5*time.Hour + 30*time.Minute))
	assert.Equal(t, time.Date(2019, 6, 4, 18, 30, 0, 0, time.UTC), shifted[0].Time)
	assert.Equal(t, "1.2", shifted[0].Value)
	assert.Equal(t, day0, s[0].Time, "input must not be modified")

	back := ApplyOffset(shifted, 5*time.Hour+30*time.Minute)
	assert.Equal(t, s, back)

	assert.Equal(t, s, ApplyOffset(s, 0))
}

func TestTruncateFrom(t *testing.T) {
	s := series(day0.Add(-12*time.Hour), 6*time.Hour, "a", "b", "c", "d", "e")
	// 04 12:00, 04 18:00, 05 00:00, 05 06:00, 05 12:00

	tests := []struct {
		name   string
		cutoff time.Time
		byDay  bool
		want   []string
	}{
		{"exact point", day0.Add(6 * time.Hour), false, []string{"d", "e"}},
		{"between points", day0.Add(3 * time.Hour), false, []string{"d", "e"}},
		{"by day moves cutoff to midnight", day0.Add(7 * time.Hour), true, []string{"c", "d", "e"}},
		{"before everything", day0.Add(-48 * time.Hour), false, []string{"a", "b", "c", "d", "e"}},
		{"after everything", day0.Add(48 * time.Hour), false, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TruncateFrom(s, tt.cutoff, tt.byDay)
			require.NotNil(t, got)
			var values []string
			for _, p := range got {
				values = append(values, p.Value)
			}
			assert.Equal(t, tt.want, values)
		})
	}
}

func TestTruncateFrom_Empty(t *testing.T) {
	got := TruncateFrom(nil, day0, true)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestTruncateFrom_Idempotent(t *testing.T) {
	s := series(day0.Add(-30*time.Hour), time.Hour, make([]string, 60)...)
	cutoff := day0.Add(5 * time.Hour)

	for _, byDay := range []bool{false, true} {
		once := TruncateFrom(s, cutoff, byDay)
		assert.Equal(t, once, TruncateFrom(once, cutoff, byDay))
	}
}

func TestBucketByDay(t *testing.T) {
	s := series(day0.Add(18*time.Hour), 3*time.Hour, "a", "b", "c", "d", "e", "f", "g", "h", "i", "j", "k")
	// 05 18:00 .. 07 00:00

	buckets := BucketByDay(s)
	require.Len(t, buckets, 3)
	assert.Len(t, buckets[0], 2)
	assert.Len(t, buckets[1], 8)
	assert.Len(t, buckets[2], 1)

	var joined models.Series
	for _, b := range buckets {
		joined = append(joined, b...)
	}
	assert.Equal(t, s, joined)

	assert.Empty(t, BucketByDay(nil))
}

func TestParseUTCOffset(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{"+05:30", -(5*time.Hour + 30*time.Minute), false},
		{"-03:00", 3 * time.Hour, false},
		{"+00:00", 0, false},
		{"", 0, false},
		{"5:30", 0, true},
		{"UTC+5", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseUTCOffset(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
