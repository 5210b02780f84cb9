package timeseries

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

var utcOffsetRe = regexp.MustCompile(`^([+-])(\d\d):(\d\d)`)

// ParseUTCOffset turns a "[+-]HH:MM" offset of the report timestamps into the shift that
// brings them to UTC. A positive offset subtracts: "+05:30" gives -5h30m.
// An empty string is a zero shift.
func ParseUTCOffset(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	m := utcOffsetRe.FindStringSubmatch(s)
	if m == nil {
		return 0, fmt.Errorf("utc offset %q not in [+-]HH:MM format", s)
	}
	hours, _ := strconv.Atoi(m[2])
	minutes, _ := strconv.Atoi(m[3])
	offset := time.Duration(hours)*time.Hour + time.Duration(minutes)*time.Minute
	if m[1] == "+" {
		return -offset, nil
	}
	return offset, nil
}
