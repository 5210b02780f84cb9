// Package export writes extracted element series as CSV files next to the model output.
package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"flo2d/internal/models"
)

// CSVWriter writes one file per element series into Dir
type CSVWriter struct {
	Dir string
	// FileName is the template name, e.g. "water_level.txt"
	FileName  string
	ModelTime time.Time
}

// Path returns the file a station's series is written to:
// <stem>-<Station_Name>-<YYYY-MM-DD>_<HH-MM-SS>.<ext>
func (w *CSVWriter) Path(station string) string {
	stem, ext := w.FileName, ""
	if i := strings.LastIndex(w.FileName, "."); i >= 0 {
		stem, ext = w.FileName[:i], w.FileName[i:]
	}
	name := fmt.Sprintf("%s-%s-%s%s",
		stem, strings.ReplaceAll(station, " ", "_"), w.ModelTime.Format("2006-01-02_15-04-05"), ext)
	return filepath.Join(w.Dir, name)
}

// Write stores the series as "timestamp,value" rows
func (w *CSVWriter) Write(es models.ElementSeries) (string, error) {
	if err := os.MkdirAll(w.Dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output dir %s: %w", w.Dir, err)
	}

	path := w.Path(es.Name)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	for _, p := range es.Points {
		if err := cw.Write([]string{p.Time.Format(models.TimestampFormat), p.Value}); err != nil {
			return "", fmt.Errorf("failed to write %s: %w", path, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	return path, f.Close()
}
