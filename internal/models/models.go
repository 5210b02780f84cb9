package models

import (
	"sort"
	"time"
)

// MissingValue is substituted for a flood-plain element absent from a snapshot
const MissingValue = "-999"

// TimestampFormat is the layout used for stored and exported timestamps
const TimestampFormat = "2006-01-02 15:04:05"

// HorizonTypes names the day-aligned forecast buckets in day order
var HorizonTypes = []string{
	"Forecast-0-d",
	"Forecast-1-d-after",
	"Forecast-2-d-after",
	"Forecast-3-d-after",
	"Forecast-4-d-after",
	"Forecast-5-d-after",
	"Forecast-6-d-after",
	"Forecast-7-d-after",
	"Forecast-8-d-after",
	"Forecast-9-d-after",
	"Forecast-10-d-after",
	"Forecast-11-d-after",
	"Forecast-12-d-after",
	"Forecast-13-d-after",
	"Forecast-14-d-after",
}

// Point is one timestamped value. Value stays an opaque string until it reaches the store.
type Point struct {
	Time  time.Time `json:"time"`
	Value string    `json:"value"`
}

// Series is an ordered sequence of points
type Series []Point

// ElementSeries is the extracted trace of one report element
type ElementSeries struct {
	ElementID string `json:"element_id"`
	Name      string `json:"name"`
	Points    Series `json:"points"`
}

// LocationCatalog maps report element ids to station display names
type LocationCatalog map[string]string

// Contains reports whether the element id is tracked
func (c LocationCatalog) Contains(elementID string) bool {
	_, ok := c[elementID]
	return ok
}

// IDs returns the element ids in ascending numeric order so runs are deterministic
func (c LocationCatalog) IDs() []string {
	ids := make([]string, 0, len(c))
	for id := range c {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		if len(ids[i]) != len(ids[j]) {
			return len(ids[i]) < len(ids[j])
		}
		return ids[i] < ids[j]
	})
	return ids
}

// RunIdentity is the composite key a series id is derived from
type RunIdentity struct {
	Station  string `json:"station"`
	Variable string `json:"variable"`
	Unit     string `json:"unit"`
	Source   string `json:"source"`
	RunName  string `json:"name"`
	Horizon  string `json:"type"`
}

// Station represents a seeded station row
type Station struct {
	ID        int64   `json:"id"`
	ElementID string  `json:"element_id"`
	Name      string  `json:"name"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}
