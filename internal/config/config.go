package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"flo2d/internal/models"
)

// ConfigError reports a required key that is missing, empty or malformed
type ConfigError struct {
	Key string
	Err error
}

func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("config %s: %v", e.Key, e.Err)
	}
	return fmt.Sprintf("%s not specified in config file", e.Key)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// Config mirrors the flat extraction config document. JSON is valid YAML, so a
// config.json file loads as is.
type Config struct {
	HychanOutFile  string `yaml:"HYCHAN_OUT_FILE"`
	TimdepFile     string `yaml:"TIMEDEP_FILE"`
	WaterLevelFile string `yaml:"WATER_LEVEL_FILE"`
	WaterLevelDir  string `yaml:"WATER_LEVEL_DIR"`
	OutputDir      string `yaml:"OUTPUT_DIR"`
	RunFlo2dFile   string `yaml:"RUN_FLO2D_FILE"`
	UTCOffset      string `yaml:"UTC_OFFSET"`
	Flo2dModel     string `yaml:"FLO2D_MODEL"`

	// ChannelValueColumn selects "elevation" (default) or "depth" from HYCHAN.OUT rows
	ChannelValueColumn string `yaml:"CHANNEL_VALUE_COLUMN"`

	ChannelCells    models.LocationCatalog `yaml:"CHANNEL_CELL_MAP"`
	FloodPlainCells models.LocationCatalog `yaml:"FLOOD_PLAIN_CELL_MAP"`

	Model    string `yaml:"model"`
	Version  string `yaml:"version"`
	Unit     string `yaml:"unit"`
	UnitType string `yaml:"unit_type"`
	Variable string `yaml:"variable"`

	Driver   string `yaml:"driver"`
	Host     string `yaml:"host"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DB       string `yaml:"db"`
	Port     int    `yaml:"port"`

	// WRFModelList is recorded as the FLO2D source parameters by the seed command
	WRFModelList string `yaml:"wrf_model_list"`

	WriteCSV *bool `yaml:"write_csv"`

	Redis       RedisConfig `yaml:"redis"`
	Pushgateway struct {
		URL string `yaml:"url"`
		Job string `yaml:"job"`
	} `yaml:"pushgateway"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

// Load reads and validates the config file, then applies environment overrides
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyDefaults()
	cfg.applyEnv()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Driver == "" {
		c.Driver = "mysql"
	}
	if c.ChannelValueColumn == "" {
		c.ChannelValueColumn = "elevation"
	}
	if c.WriteCSV == nil {
		enabled := true
		c.WriteCSV = &enabled
	}
	if c.Redis.Stream == "" {
		c.Redis.Stream = "flo2d_water_level"
	}
	if c.Pushgateway.Job == "" {
		c.Pushgateway.Job = "flo2d_water_level"
	}
}

func (c *Config) applyEnv() {
	c.Driver = getEnv("DB_DRIVER", c.Driver)
	c.Redis = c.Redis.withEnv()
	c.Pushgateway.URL = getEnv("PUSHGATEWAY_URL", c.Pushgateway.URL)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.LogFormat = getEnv("LOG_FORMAT", c.LogFormat)
}

func (c *Config) validate() error {
	required := []struct {
		key   string
		value string
	}{
		{"HYCHAN_OUT_FILE", c.HychanOutFile},
		{"TIMEDEP_FILE", c.TimdepFile},
		{"WATER_LEVEL_FILE", c.WaterLevelFile},
		{"WATER_LEVEL_DIR", c.WaterLevelDir},
		{"OUTPUT_DIR", c.OutputDir},
		{"RUN_FLO2D_FILE", c.RunFlo2dFile},
		{"FLO2D_MODEL", c.Flo2dModel},
		{"model", c.Model},
		{"version", c.Version},
		{"unit", c.Unit},
		{"unit_type", c.UnitType},
		{"variable", c.Variable},
	}
	for _, r := range required {
		if r.value == "" {
			return &ConfigError{Key: r.key}
		}
	}

	if len(c.ChannelCells) == 0 {
		return &ConfigError{Key: "CHANNEL_CELL_MAP"}
	}
	if len(c.FloodPlainCells) == 0 {
		return &ConfigError{Key: "FLOOD_PLAIN_CELL_MAP"}
	}

	switch c.ChannelValueColumn {
	case "elevation", "depth":
	default:
		return &ConfigError{Key: "CHANNEL_VALUE_COLUMN", Err: fmt.Errorf("unknown column %q", c.ChannelValueColumn)}
	}

	switch c.Driver {
	case "mysql":
		if databaseDSNFromEnv() != "" {
			return nil
		}
		for _, r := range []struct{ key, value string }{
			{"host", c.Host}, {"user", c.User}, {"password", c.Password}, {"db", c.DB},
		} {
			if r.value == "" {
				return &ConfigError{Key: r.key}
			}
		}
		if c.Port == 0 {
			return &ConfigError{Key: "port"}
		}
	case "sqlite":
		if c.DB == "" && os.Getenv("DATABASE_DSN") == "" {
			return &ConfigError{Key: "db"}
		}
	default:
		return &ConfigError{Key: "driver", Err: fmt.Errorf("unsupported driver %q", c.Driver)}
	}
	return nil
}

// CSVEnabled reports whether extracted series are also written as CSV files
func (c *Config) CSVEnabled() bool {
	return c.WriteCSV == nil || *c.WriteCSV
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if s := os.Getenv(key); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			return n
		}
	}
	return defaultValue
}
