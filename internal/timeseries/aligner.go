// Package timeseries aligns extracted series to the forecast run: shifting by the UTC
// offset, cutting everything before the run start, and splitting into day buckets.
package timeseries

import (
	"time"

	"flo2d/internal/models"
)

// ApplyOffset shifts every point by d. A zero shift returns the input as is.
func ApplyOffset(series models.Series, d time.Duration) models.Series {
	if d == 0 {
		return series
	}
	shifted := make(models.Series, len(series))
	for i, p := range series {
		shifted[i] = models.Point{Time: p.Time.Add(d), Value: p.Value}
	}
	return shifted
}

// TruncateFrom returns the suffix of series starting at the first point at or after cutoff.
// With byDay the cutoff is moved back to midnight of its own date.
// An empty series, or one with no qualifying point, gives an empty result.
func TruncateFrom(series models.Series, cutoff time.Time, byDay bool) models.Series {
	if byDay {
		cutoff = StartOfDay(cutoff)
	}
	for i, p := range series {
		if !p.Time.Before(cutoff) {
			return series[i:]
		}
	}
	return models.Series{}
}

// BucketByDay splits series into consecutive runs sharing a calendar date, in order
func BucketByDay(series models.Series) []models.Series {
	var buckets []models.Series
	var current models.Series
	var day time.Time
	for _, p := range series {
		d := StartOfDay(p.Time)
		if len(current) > 0 && !d.Equal(day) {
			buckets = append(buckets, current)
			current = nil
		}
		day = d
		current = append(current, p)
	}
	if len(current) > 0 {
		buckets = append(buckets, current)
	}
	return buckets
}

// StartOfDay returns midnight of t's date in t's location
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
