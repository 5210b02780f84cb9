package config

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/jonboulle/clockwork"

	"flo2d/internal/models"
	"flo2d/internal/runname"
	"flo2d/internal/timeseries"
)

const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04:05"
)

// Flags carries the command line overrides. Empty strings mean "not given".
type Flags struct {
	WorkDir      string
	RunFile      string
	Date         string
	Time         string
	StartDate    string
	StartTime    string
	Path         string
	OutputSuffix string
	RunName      string
	UTCOffset    string
	ForceInsert  bool
}

// RunConfig is everything one extraction run needs, fully resolved
type RunConfig struct {
	// ModelTime is the model state instant; it is also the truncation reference
	ModelTime time.Time
	// BaseTime is the instant report hour offsets count from
	BaseTime time.Time

	ModelDir         string
	ChannelReport    string
	FloodPlainReport string
	OutputDir        string
	WaterLevelFile   string

	RunNameTemplate string
	UTCShift        time.Duration
	// OffsetErr is set when the offset string was unusable and a zero shift was chosen
	OffsetErr error

	ForceInsert bool
	WriteCSV    bool

	ChannelValueColumn string
	ChannelCatalog     models.LocationCatalog
	FloodPlainCatalog  models.LocationCatalog

	Source   string
	Variable string
	Unit     string
}

// ShiftedModelTime is the model instant moved by the UTC shift
func (r *RunConfig) ShiftedModelTime() time.Time {
	return r.ModelTime.Add(r.UTCShift)
}

// RunName expands the run-name template against the shifted model instant
func (r *RunConfig) RunName() (string, error) {
	return runname.Resolve(r.RunNameTemplate, r.ShiftedModelTime())
}

// ModelDir returns the directory holding the model output for these flags
func ModelDir(flags Flags) string {
	if flags.Path != "" {
		return joinPath(flags.WorkDir, flags.Path)
	}
	return filepath.Join(flags.WorkDir, flags.Date+"_Kelani")
}

// RunFilePath returns where the run override file is looked up
func RunFilePath(cfg *Config, flags Flags) string {
	if flags.RunFile != "" {
		return joinPath(flags.WorkDir, flags.RunFile)
	}
	return filepath.Join(ModelDir(flags), cfg.RunFlo2dFile)
}

// ResolveRun layers CLI flags over the run file over the config file over defaults
func ResolveRun(cfg *Config, rf *RunFile, flags Flags, clock clockwork.Clock) (*RunConfig, error) {
	if rf == nil {
		rf = &RunFile{}
	}

	now := clock.Now()
	modelDate := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	modelClock := time.Duration(now.Hour())*time.Hour +
		time.Duration(now.Minute())*time.Minute +
		time.Duration(now.Second())*time.Second

	for _, o := range []struct{ key, value string }{
		{"MODEL_STATE_DATE", rf.ModelStateDate},
		{"date", flags.Date},
	} {
		if o.value == "" {
			continue
		}
		d, err := parseDate(o.key, o.value)
		if err != nil {
			return nil, err
		}
		modelDate, modelClock = d, 0
	}

	for _, o := range []struct{ key, value string }{
		{"MODEL_STATE_TIME", rf.ModelStateTime},
		{"time", flags.Time},
	} {
		if o.value == "" {
			continue
		}
		c, err := parseClock(o.key, o.value)
		if err != nil {
			return nil, err
		}
		modelClock = c
	}

	baseDate := modelDate
	var baseClock time.Duration
	for _, o := range []struct{ key, value string }{
		{"TIMESERIES_START_DATE", rf.TimeseriesStartDate},
		{"start_date", flags.StartDate},
	} {
		if o.value == "" {
			continue
		}
		d, err := parseDate(o.key, o.value)
		if err != nil {
			return nil, err
		}
		baseDate = d
	}
	for _, o := range []struct{ key, value string }{
		{"TIMESERIES_START_TIME", rf.TimeseriesStartTime},
		{"start_time", flags.StartTime},
	} {
		if o.value == "" {
			continue
		}
		c, err := parseClock(o.key, o.value)
		if err != nil {
			return nil, err
		}
		baseClock = c
	}

	modelTime := modelDate.Add(modelClock)
	modelDir := ModelDir(flags)

	suffix := firstNonEmpty(flags.OutputSuffix, rf.OutputSuffix, modelDate.Format(DateLayout))
	offset := firstNonEmpty(flags.UTCOffset, rf.UTCOffset, cfg.UTCOffset)
	shift, offsetErr := timeseries.ParseUTCOffset(offset)
	if offsetErr != nil {
		shift = 0
	}

	return &RunConfig{
		ModelTime:          modelTime,
		BaseTime:           baseDate.Add(baseClock),
		ModelDir:           modelDir,
		ChannelReport:      filepath.Join(modelDir, cfg.HychanOutFile),
		FloodPlainReport:   filepath.Join(modelDir, cfg.TimdepFile),
		OutputDir:          filepath.Join(joinPath(flags.WorkDir, cfg.OutputDir), cfg.WaterLevelDir+"-"+suffix),
		WaterLevelFile:     cfg.WaterLevelFile,
		RunNameTemplate:    firstNonEmpty(flags.RunName, rf.RunName, runname.Default),
		UTCShift:           shift,
		OffsetErr:          offsetErr,
		ForceInsert:        flags.ForceInsert,
		WriteCSV:           cfg.CSVEnabled(),
		ChannelValueColumn: cfg.ChannelValueColumn,
		ChannelCatalog:     cfg.ChannelCells,
		FloodPlainCatalog:  cfg.FloodPlainCells,
		Source:             cfg.Flo2dModel,
		Variable:           cfg.Variable,
		Unit:               cfg.Unit,
	}, nil
}

func parseDate(key, value string) (time.Time, error) {
	d, err := time.Parse(DateLayout, value)
	if err != nil {
		return time.Time{}, &ConfigError{Key: key, Err: fmt.Errorf("invalid date %q: %w", value, err)}
	}
	return d, nil
}

func parseClock(key, value string) (time.Duration, error) {
	t, err := time.Parse(TimeLayout, value)
	if err != nil {
		return 0, &ConfigError{Key: key, Err: fmt.Errorf("invalid time %q: %w", value, err)}
	}
	return time.Duration(t.Hour())*time.Hour +
		time.Duration(t.Minute())*time.Minute +
		time.Duration(t.Second())*time.Second, nil
}

func joinPath(base, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
