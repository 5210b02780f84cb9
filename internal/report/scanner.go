// Package report reads the fixed-format text reports written by a FLO2D model run
// and rebuilds per-element time series from them.
//
// Two reports are understood:
//
//   - HYCHAN.OUT, the channel hydrograph report. Each element's trace starts with a
//     marker line carrying "CHANNEL HYDROGRAPH FOR ELEMENT NO:" at column 5, followed
//     by numeric rows "<hours> <elevation> <depth> ...".
//   - TIMDEP.OUT, the flood-plain time-dependent report. Snapshots are separated by a
//     line holding a single token (the model time in hours); each snapshot lists one
//     row per grid element with the water elevation at token index 5.
//
// Hour offsets in both reports are relative to a base time supplied by the caller.
package report

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"
)

// ErrMalformedReport is returned when a report is missing or its layout cannot be understood.
var ErrMalformedReport = errors.New("malformed report")

const (
	// ChannelMarker introduces a channel element block
	ChannelMarker = "CHANNEL HYDROGRAPH FOR ELEMENT NO:"
	// channelMarkerColumn is the column offset the marker must start at
	channelMarkerColumn = 5
	// channelElementToken is the index of the element id in a marker line
	channelElementToken = 5

	maxLineSize = 1024 * 1024
)

// MarkerFunc reports whether a line starts a new element block
type MarkerFunc func(line string) bool

// IsChannelMarker matches the channel hydrograph marker at its fixed column
func IsChannelMarker(line string) bool {
	if len(line) < channelMarkerColumn {
		return false
	}
	return strings.HasPrefix(line[channelMarkerColumn:], ChannelMarker)
}

// newLineScanner returns a buffered line reader; reports are read strictly front to back
func newLineScanner(r io.Reader) *bufio.Scanner {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxLineSize)
	return sc
}

// openReport opens a report, mapping a missing or unreadable file onto ErrMalformedReport
func openReport(path string) (*os.File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", ErrMalformedReport, path, err)
	}
	return f, nil
}

// isUnsignedDecimal accepts digits with at most one decimal point, e.g. "12", "0.25", "3."
func isUnsignedDecimal(tok string) bool {
	tok = strings.Replace(tok, ".", "", 1)
	if tok == "" {
		return false
	}
	for _, c := range tok {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

func isFloat(tok string) bool {
	_, err := strconv.ParseFloat(tok, 64)
	return err == nil
}

// parseValue returns the token when it is a usable number. NaN and unparsable tokens are absent.
func parseValue(tok string) (string, bool) {
	v, err := strconv.ParseFloat(tok, 64)
	if err != nil || math.IsNaN(v) {
		return "", false
	}
	return tok, true
}

// offsetTime converts a report hour offset into an absolute timestamp, at second resolution
func offsetTime(base time.Time, hours float64) time.Time {
	d := time.Duration(math.Round(hours*3600*1e6)) * time.Microsecond
	return base.Add(d).Truncate(time.Second)
}

// ProbeSeriesLength counts the numeric rows under the first recognised block.
//
// Rows count while their first token is an unsigned decimal. The count ends at the first
// marker or non-numeric line after at least one row, or at end of input. A report with no
// numeric rows under any marker yields ErrMalformedReport.
func ProbeSeriesLength(r io.Reader, isMarker MarkerFunc) (int, error) {
	sc := newLineScanner(r)
	inBlock := false
	count := 0
	for sc.Scan() {
		line := sc.Text()
		if isMarker(line) {
			if count > 0 {
				return count, nil
			}
			inBlock = true
			continue
		}
		if !inBlock {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) > 0 && isUnsignedDecimal(fields[0]) {
			count++
			continue
		}
		if count > 0 {
			return count, nil
		}
	}
	if err := sc.Err(); err != nil {
		return 0, fmt.Errorf("%w: read: %v", ErrMalformedReport, err)
	}
	if count == 0 {
		return 0, fmt.Errorf("%w: series length undeterminable, no complete block found", ErrMalformedReport)
	}
	return count, nil
}

// ProbeSeriesLengthFile runs ProbeSeriesLength over a report on disk
func ProbeSeriesLengthFile(path string, isMarker MarkerFunc) (int, error) {
	f, err := openReport(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	n, err := ProbeSeriesLength(f, isMarker)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", path, err)
	}
	return n, nil
}
