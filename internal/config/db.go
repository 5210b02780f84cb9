package config

import (
	"fmt"
	"os"
)

// DatabaseDSN returns the connection string for the configured driver.
// For MySQL the DB_* environment variables win when all five are set, then DATABASE_DSN,
// then the config file. For SQLite the DSN is the database file path.
func (c *Config) DatabaseDSN() string {
	if c.Driver == "sqlite" {
		return getEnv("DATABASE_DSN", c.DB)
	}

	if dsn := databaseDSNFromEnv(); dsn != "" {
		return dsn
	}
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true", c.User, c.Password, c.Host, c.Port, c.DB)
}

func databaseDSNFromEnv() string {
	user := os.Getenv("DB_USER")
	password := os.Getenv("DB_PASSWORD")
	host := os.Getenv("DB_HOST")
	port := os.Getenv("DB_PORT")
	database := os.Getenv("DB_NAME")

	if user != "" && password != "" && host != "" && port != "" && database != "" {
		return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true", user, password, host, port, database)
	}

	return os.Getenv("DATABASE_DSN")
}
