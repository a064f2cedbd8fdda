package database

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

const (
	DriverSqlite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config selects the store the inspector attaches to. The zero environment
// reproduces the application's fixed location.
type Config struct {
	Driver   string `env:"DEBUG_DB_DRIVER" envDefault:"sqlite"`
	Path     string `env:"DEBUG_DB_PATH" envDefault:"one_to_many/one_to_many.db"`
	PsqlInfo string `env:"DEBUG_DB_PSQL_INFO" envDefault:"psqlInfo.json"`
	LogSQL   bool   `env:"DEBUG_DB_LOG_SQL"`
}

func LoadConfig() (Config, *DatabaseError) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, newConfigError(fmt.Errorf("parse env: %w", err))
	}
	return cfg, nil
}

func (c Config) String() string {
	if c.Driver == DriverPostgres {
		return fmt.Sprintf("%s (%s)", c.Driver, c.PsqlInfo)
	}
	return fmt.Sprintf("%s (%s)", c.Driver, c.Path)
}
