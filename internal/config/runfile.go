package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"
)

// RunFile holds the per-model-run overrides found next to the model output
type RunFile struct {
	ModelStateDate      string `yaml:"MODEL_STATE_DATE"`
	ModelStateTime      string `yaml:"MODEL_STATE_TIME"`
	TimeseriesStartDate string `yaml:"TIMESERIES_START_DATE"`
	TimeseriesStartTime string `yaml:"TIMESERIES_START_TIME"`
	RunName             string `yaml:"RUN_NAME"`
	UTCOffset           string `yaml:"UTC_OFFSET"`
	OutputSuffix        string `yaml:"FLO2D_OUTPUT_SUFFIX"`
}

// LoadRunFile reads a run override file. A missing file yields no overrides.
func LoadRunFile(path string) (*RunFile, error) {
	rf := &RunFile{}
	if path == "" {
		return rf, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return rf, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read run file %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, rf); err != nil {
		return nil, &ConfigError{Key: "RUN_FLO2D_FILE", Err: fmt.Errorf("parse %s: %w", path, err)}
	}
	return rf, nil
}
