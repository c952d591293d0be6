package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/outlinebot/internal/flagx"
	"github.com/dmitrijs2005/outlinebot/internal/timex"
)

// JsonConfig is the on-disk shape of the configuration file. Durations
// accept "10s" style strings or integer nanoseconds. Pointer fields tell an
// explicit false or zero apart from an absent key.
type JsonConfig struct {
	BotToken              string          `json:"bot_token"`
	AdminIDs              []int64         `json:"admin_ids"`
	DatabaseDriver        string          `json:"database_driver"`
	DatabaseDSN           string          `json:"database_dsn"`
	StateBackend          string          `json:"state_backend"`
	OutlineRequestTimeout *timex.Duration `json:"outline_request_timeout"`
	OutlineInsecureTLS    *bool           `json:"outline_insecure_tls"`
	SyncInterval          *timex.Duration `json:"sync_interval"`
	PollTimeout           *timex.Duration `json:"poll_timeout"`
	Workers               int             `json:"workers"`
	HealthAddr            *string         `json:"health_addr"`
	LogLevel              string          `json:"log_level"`
	S3RootUser            string          `json:"s3_root_user"`
	S3RootPassword        string          `json:"s3_root_password"`
	S3Bucket              string          `json:"s3_bucket"`
	S3Region              string          `json:"s3_region"`
	S3BaseEndpoint        string          `json:"s3_base_endpoint"`
}

// parseJson overlays Config with the file named by -c or -config. Keys
// missing from the file keep their current values. An unreadable file or
// invalid JSON panics.
func parseJson(config *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	setString(&config.BotToken, c.BotToken)
	if len(c.AdminIDs) > 0 {
		config.AdminIDs = c.AdminIDs
	}
	setString(&config.DatabaseDriver, c.DatabaseDriver)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.StateBackend, c.StateBackend)
	if c.OutlineRequestTimeout != nil {
		config.OutlineRequestTimeout = c.OutlineRequestTimeout.Duration
	}
	if c.OutlineInsecureTLS != nil {
		config.OutlineInsecureTLS = *c.OutlineInsecureTLS
	}
	if c.SyncInterval != nil {
		config.SyncInterval = c.SyncInterval.Duration
	}
	if c.PollTimeout != nil {
		config.PollTimeout = c.PollTimeout.Duration
	}
	if c.Workers > 0 {
		config.Workers = c.Workers
	}
	if c.HealthAddr != nil {
		config.HealthAddr = *c.HealthAddr
	}
	setString(&config.LogLevel, c.LogLevel)
	setString(&config.S3RootUser, c.S3RootUser)
	setString(&config.S3RootPassword, c.S3RootPassword)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
