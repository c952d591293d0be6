package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempJSON(t *testing.T, dir, name string, data map[string]any) string {
	t.Helper()
	if dir == "" {
		dir = t.TempDir()
	}
	if name == "" {
		name = "cfg.json"
	}
	path := filepath.Join(dir, name)
	b, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b, 0o600))
	return path
}

func Test_parseJson_SourcesAndPrecedence(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	dir := t.TempDir()
	pathFlag := writeTempJSON(t, dir, "flag.json", map[string]any{
		"bot_token":               "123:abc",
		"admin_ids":               []int64{42},
		"database_driver":         "pgx",
		"database_dsn":            "postgres://db",
		"state_backend":           "memory",
		"outline_request_timeout": "5s",
		"outline_insecure_tls":    false,
		"sync_interval":           "0s",
		"poll_timeout":            30000000000,
		"workers":                 2,
		"health_addr":             "",
		"log_level":               "debug",
		"s3_root_user":            "user",
		"s3_root_password":        "password",
		"s3_bucket":               "bucket",
		"s3_region":               "region",
		"s3_base_endpoint":        "base_endpoint",
	})

	t.Run("loads from json", func(t *testing.T) {
		os.Args = []string{"testbin", "-config", pathFlag}

		cfg := &Config{}
		cfg.LoadDefaults()
		parseJson(cfg)

		assert.Equal(t, "123:abc", cfg.BotToken)
		assert.Equal(t, []int64{42}, cfg.AdminIDs)
		assert.Equal(t, "pgx", cfg.DatabaseDriver)
		assert.Equal(t, "postgres://db", cfg.DatabaseDSN)
		assert.Equal(t, "memory", cfg.StateBackend)
		assert.Equal(t, 5*time.Second, cfg.OutlineRequestTimeout)
		assert.False(t, cfg.OutlineInsecureTLS)
		assert.Equal(t, time.Duration(0), cfg.SyncInterval)
		assert.Equal(t, 30*time.Second, cfg.PollTimeout)
		assert.Equal(t, 2, cfg.Workers)
		assert.Equal(t, "", cfg.HealthAddr)
		assert.Equal(t, "debug", cfg.LogLevel)
		assert.Equal(t, "user", cfg.S3RootUser)
		assert.Equal(t, "password", cfg.S3RootPassword)
		assert.Equal(t, "bucket", cfg.S3Bucket)
		assert.Equal(t, "region", cfg.S3Region)
		assert.Equal(t, "base_endpoint", cfg.S3BaseEndpoint)
	})

	t.Run("partial file keeps other values", func(t *testing.T) {
		partial := writeTempJSON(t, dir, "partial.json", map[string]any{"workers": 3})
		os.Args = []string{"testbin", "-c", partial}

		cfg := &Config{}
		cfg.LoadDefaults()
		parseJson(cfg)

		assert.Equal(t, 3, cfg.Workers)
		assert.Equal(t, DriverSQLite, cfg.DatabaseDriver)
		assert.Equal(t, 10*time.Second, cfg.OutlineRequestTimeout)
		assert.True(t, cfg.OutlineInsecureTLS)
		assert.Equal(t, ":50051", cfg.HealthAddr)
	})

	t.Run("no config flag means no changes", func(t *testing.T) {
		os.Args = []string{"testbin"}

		cfg := &Config{BotToken: "keep", Workers: 5}
		parseJson(cfg)

		assert.Equal(t, "keep", cfg.BotToken)
		assert.Equal(t, 5, cfg.Workers)
	})

	t.Run("invalid JSON panics", func(t *testing.T) {
		bad := filepath.Join(dir, "bad.json")
		require.NoError(t, os.WriteFile(bad, []byte(`{ this is not valid json`), 0o600))

		os.Args = []string{"testbin", "-config", bad}

		require.Panics(t, func() { parseJson(&Config{}) })
	})

	t.Run("missing file panics", func(t *testing.T) {
		os.Args = []string{"testbin", "-config", filepath.Join(dir, "absent.json")}
		require.Panics(t, func() { parseJson(&Config{}) })
	})
}
