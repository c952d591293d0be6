// Package config handles bot configuration: defaults, an optional JSON file,
// environment variables and command-line flags, applied in that order.
package config

import (
	"errors"
	"fmt"
	"slices"
	"time"
)

const (
	DriverPostgres = "pgx"
	DriverSQLite   = "sqlite"

	StateMemory   = "memory"
	StateDatabase = "database"
)

// Config holds runtime settings for the bot and the maintenance CLI.
//
// Fields:
//   - BotToken: chat platform bot token.
//   - AdminIDs: user ids that get the admin role on first contact.
//   - DatabaseDriver / DatabaseDSN: "pgx" (PostgreSQL) or "sqlite" and its DSN.
//   - StateBackend: where conversation state lives, "memory" or "database".
//   - OutlineRequestTimeout: deadline for every Outline management API call.
//   - OutlineInsecureTLS: skip certificate verification; Outline servers use
//     self-signed certificates.
//   - SyncInterval: period of the background key reconciliation, 0 disables it.
//   - PollTimeout: long polling timeout for updates.
//   - Workers: number of updates handled concurrently.
//   - HealthAddr: bind address of the gRPC health endpoint, empty disables it.
//   - S3*: key inventory export target; export is off while S3Bucket is empty.
type Config struct {
	BotToken              string
	AdminIDs              []int64
	DatabaseDriver        string
	DatabaseDSN           string
	StateBackend          string
	OutlineRequestTimeout time.Duration
	OutlineInsecureTLS    bool
	SyncInterval          time.Duration
	PollTimeout           time.Duration
	Workers               int
	HealthAddr            string
	LogLevel              string
	S3RootUser            string
	S3RootPassword        string
	S3Bucket              string
	S3Region              string
	S3BaseEndpoint        string
}

// LoadDefaults populates Config with development defaults: a local SQLite
// file, persistent conversation state and export disabled.
func (c *Config) LoadDefaults() {
	c.DatabaseDriver = DriverSQLite
	c.DatabaseDSN = "file:outlinebot.db?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	c.StateBackend = StateDatabase
	c.OutlineRequestTimeout = 10 * time.Second
	c.OutlineInsecureTLS = true
	c.SyncInterval = 15 * time.Minute
	c.PollTimeout = 60 * time.Second
	c.Workers = 8
	c.HealthAddr = ":50051"
	c.LogLevel = "info"
	c.S3Region = "us-east-1"
}

// LoadConfig builds a Config from defaults, then the optional JSON file,
// then the environment and finally command-line flags.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseEnv(cfg)
	parseFlags(cfg)
	return cfg
}

// IsAdmin reports whether id is listed in AdminIDs.
func (c *Config) IsAdmin(id int64) bool {
	return slices.Contains(c.AdminIDs, id)
}

// ExportEnabled reports whether the key inventory export has a target bucket.
func (c *Config) ExportEnabled() bool {
	return c.S3Bucket != ""
}

// ValidateStorage checks the settings needed to open the database.
func (c *Config) ValidateStorage() error {
	switch c.DatabaseDriver {
	case DriverPostgres, DriverSQLite:
	default:
		return fmt.Errorf("unsupported database driver %q", c.DatabaseDriver)
	}
	if c.DatabaseDSN == "" {
		return errors.New("database dsn is empty")
	}
	return nil
}

// Validate checks everything the bot process needs to start.
func (c *Config) Validate() error {
	if c.BotToken == "" {
		return errors.New("bot token is empty")
	}
	if err := c.ValidateStorage(); err != nil {
		return err
	}
	switch c.StateBackend {
	case StateMemory, StateDatabase:
	default:
		return fmt.Errorf("unsupported state backend %q", c.StateBackend)
	}
	if c.Workers < 1 {
		return errors.New("workers must be positive")
	}
	if c.OutlineRequestTimeout <= 0 {
		return errors.New("outline request timeout must be positive")
	}
	return nil
}
