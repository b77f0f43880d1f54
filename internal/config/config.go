// Package config defines the loader's explicit configuration model.
//
// Connection settings come from the process environment (PGHOST, PGPORT,
// PGDATABASE, PGUSER, PGPASSWORD), optionally seeded from a .env file in the
// data directory. The resulting Config struct is populated once at process
// start and passed down explicitly; there is no hidden global state.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// DefaultBatchSize bounds how many rows accumulate before a COPY flush.
const DefaultBatchSize = 20000

// Config holds everything the loader needs to open its single long-lived
// session and size its batches.
type Config struct {
	Host     string
	Port     int
	DBName   string
	User     string
	Password string

	// BatchSize is the row-buffer flush threshold.
	BatchSize int
}

// Load populates a Config from the environment. If envFile names an existing
// file it is read first (dotenv format); real environment variables take
// precedence over file values. A missing envFile is not an error.
func Load(envFile string) (Config, error) {
	v := viper.New()
	v.SetDefault("pgport", 5432)

	if envFile != "" {
		if _, err := os.Stat(envFile); err == nil {
			v.SetConfigFile(envFile)
			v.SetConfigType("env")
			if err := v.ReadInConfig(); err != nil {
				return Config{}, fmt.Errorf("read env file %s: %w", envFile, err)
			}
		}
	}
	v.AutomaticEnv()

	cfg := Config{
		Host:      v.GetString("pghost"),
		Port:      v.GetInt("pgport"),
		DBName:    v.GetString("pgdatabase"),
		User:      v.GetString("pguser"),
		Password:  v.GetString("pgpassword"),
		BatchSize: DefaultBatchSize,
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports the first missing required setting.
func (c Config) Validate() error {
	switch {
	case c.Host == "":
		return errors.New("config: PGHOST is required")
	case c.DBName == "":
		return errors.New("config: PGDATABASE is required")
	case c.User == "":
		return errors.New("config: PGUSER is required")
	case c.Port <= 0 || c.Port > 65535:
		return fmt.Errorf("config: invalid PGPORT %d", c.Port)
	case c.BatchSize <= 0:
		return fmt.Errorf("config: batch size must be > 0, got %d", c.BatchSize)
	}
	return nil
}

// DSN renders the keyword/value connection string understood by pgx. Values
// are quoted so that spaces and quotes in passwords survive.
func (c Config) DSN() string {
	kv := []struct{ k, v string }{
		{"host", c.Host},
		{"port", fmt.Sprintf("%d", c.Port)},
		{"dbname", c.DBName},
		{"user", c.User},
		{"password", c.Password},
	}
	parts := make([]string, 0, len(kv))
	for _, p := range kv {
		if p.v == "" {
			continue
		}
		parts = append(parts, p.k+"="+quoteDSNValue(p.v))
	}
	return strings.Join(parts, " ")
}

// quoteDSNValue single-quotes a DSN value when it contains characters that
// would break keyword/value parsing, escaping embedded quotes and backslashes.
func quoteDSNValue(s string) string {
	if !strings.ContainsAny(s, " '\\") {
		return s
	}
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `'`, `\'`)
	return "'" + s + "'"
}
