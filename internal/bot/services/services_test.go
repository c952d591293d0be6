package services

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/dmitrijs2005/outlinebot/internal/bot/config"
	"github.com/dmitrijs2005/outlinebot/internal/bot/repositories/repomanager"
	"github.com/dmitrijs2005/outlinebot/internal/bot/storage"
	"github.com/dmitrijs2005/outlinebot/internal/logging"
	"github.com/dmitrijs2005/outlinebot/internal/outline"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	db      *sql.DB
	rm      repomanager.RepositoryManager
	cfg     *config.Config
	servers *ServerService
	keys    *KeyService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	dsn := "file:" + filepath.Join(t.TempDir(), "bot.db") + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	db, rm, err := storage.Open(context.Background(), config.DriverSQLite, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.Workers = 4
	cfg.AdminIDs = []int64{1001}

	f := outline.NewFactory(outline.NewHTTPClient(true), 2*time.Second)

	return &testEnv{
		db:      db,
		rm:      rm,
		cfg:     cfg,
		servers: NewServerService(db, rm),
		keys:    NewKeyService(db, rm, f, cfg, logging.Discard()),
	}
}
