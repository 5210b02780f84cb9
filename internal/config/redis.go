package config

// RedisConfig configures the stream that written series are announced on.
// An empty Addr disables publishing.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Stream   string `yaml:"stream"`
}

func (r RedisConfig) withEnv() RedisConfig {
	return RedisConfig{
		Addr:     getEnv("REDIS_ADDR", r.Addr),
		Password: getEnv("REDIS_PASSWORD", r.Password),
		DB:       getEnvInt("REDIS_DB", r.DB),
		Stream:   getEnv("REDIS_STREAM", r.Stream),
	}
}

// Enabled reports whether a Redis address is configured
func (r RedisConfig) Enabled() bool {
	return r.Addr != ""
}
