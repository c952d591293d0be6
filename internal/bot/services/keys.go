package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/outlinebot/internal/bot/config"
	"github.com/dmitrijs2005/outlinebot/internal/bot/models"
	"github.com/dmitrijs2005/outlinebot/internal/bot/repositories/repomanager"
	"github.com/dmitrijs2005/outlinebot/internal/common"
	"github.com/dmitrijs2005/outlinebot/internal/dbx"
	"github.com/dmitrijs2005/outlinebot/internal/logging"
	"github.com/dmitrijs2005/outlinebot/internal/outline"
	"github.com/dmitrijs2005/outlinebot/internal/syncx"
	"golang.org/x/sync/errgroup"
)

// SyncResult is the outcome of reconciling one server. When Err is set the
// remote server could not be read: nothing was written and Keys holds the
// previously stored list.
type SyncResult struct {
	Server   *models.Server
	Keys     []models.Key
	Inserted int
	Updated  int
	Deleted  int
	Err      error
}

// Stale reports whether Keys may be out of date.
func (r *SyncResult) Stale() bool { return r.Err != nil }

// KeyService keeps the stored keys of every server in line with what the
// Outline server reports, and drives key lifecycle operations. The remote
// side is authoritative.
type KeyService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	outline     *outline.Factory
	logger      logging.Logger
	workers     int

	// one reconciliation per server at a time
	locks syncx.KeyedMutex[string]
}

func NewKeyService(db *sql.DB, rm repomanager.RepositoryManager, f *outline.Factory, cfg *config.Config, l logging.Logger) *KeyService {
	workers := cfg.Workers
	if workers < 1 {
		workers = 1
	}
	return &KeyService{
		db:          db,
		repomanager: rm,
		outline:     f,
		logger:      l.With("module", "key_service"),
		workers:     workers,
	}
}

// Sync reconciles the stored keys of a server with the remote key list.
// Only a missing server and storage failures are returned as errors;
// remote failures end up in SyncResult.Err.
func (s *KeyService) Sync(ctx context.Context, address string) (*SyncResult, error) {
	server, err := s.repomanager.Servers(s.db).Get(ctx, address)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(server.Address)
	defer unlock()

	stored, err := s.repomanager.Keys(s.db).ListByServer(ctx, server.Address)
	if err != nil {
		return nil, fmt.Errorf("error listing keys: %w", err)
	}

	remote, err := s.fetchRemote(ctx, server)
	if err != nil {
		s.logger.Warn(ctx, "remote key list unavailable", "server", server.Address, "error", err)
		return &SyncResult{Server: server, Keys: stored, Err: err}, nil
	}

	plan := diffKeys(stored, remote)
	if !plan.empty() {
		if err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
			return plan.apply(ctx, s.repomanager.Keys(tx))
		}); err != nil {
			return nil, fmt.Errorf("error applying key changes: %w", err)
		}
	}

	keys, err := s.repomanager.Keys(s.db).ListByServer(ctx, server.Address)
	if err != nil {
		return nil, fmt.Errorf("error listing keys: %w", err)
	}

	s.logger.Debug(ctx, "keys reconciled", "server", server.Address,
		"inserted", len(plan.insert), "updated", len(plan.update), "deleted", len(plan.delete))

	return &SyncResult{
		Server:   server,
		Keys:     keys,
		Inserted: len(plan.insert),
		Updated:  len(plan.update),
		Deleted:  len(plan.delete),
	}, nil
}

// SyncAll reconciles every active server, a few at a time. A failure on
// one server is reported in its result and does not stop the others.
func (s *KeyService) SyncAll(ctx context.Context) ([]*SyncResult, error) {
	servers, err := s.repomanager.Servers(s.db).ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("error listing servers: %w", err)
	}

	results := make([]*SyncResult, len(servers))

	var g errgroup.Group
	g.SetLimit(s.workers)
	for i := range servers {
		srv := servers[i]
		g.Go(func() error {
			res, err := s.Sync(ctx, srv.Address)
			if err != nil {
				res = &SyncResult{Server: &srv, Err: err}
			}
			results[i] = res
			return nil
		})
	}
	_ = g.Wait()

	return results, nil
}

// RunSyncLoop calls SyncAll every interval until ctx is done.
func (s *KeyService) RunSyncLoop(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return nil
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info(ctx, "Starting periodic key sync", "interval", interval.String())

	for {
		select {
		case <-ctx.Done():
			s.logger.Info(ctx, "Stopping periodic key sync...")
			return nil
		case <-ticker.C:
			results, err := s.SyncAll(ctx)
			if err != nil {
				s.logger.Error(ctx, "periodic key sync failed", "error", err)
				continue
			}
			failed := 0
			for _, r := range results {
				if r.Stale() {
					failed++
				}
			}
			s.logger.Info(ctx, "periodic key sync done", "servers", len(results), "failed", failed)
		}
	}
}

// Create issues a new key on the server and stores it. A non-empty name is
// applied with a follow-up rename; if that fails the key keeps the server
// default name.
func (s *KeyService) Create(ctx context.Context, address, name string) (*models.Key, error) {
	server, err := s.repomanager.Servers(s.db).Get(ctx, address)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(server.Address)
	defer unlock()

	client := s.outline.Client(server.URL)

	ak, err := client.CreateKey(ctx)
	if err != nil {
		return nil, fmt.Errorf("error creating key: %w", err)
	}

	key, err := toKey(server.Address, *ak, 0)
	if err != nil {
		return nil, fmt.Errorf("error creating key: %w", err)
	}

	name = strings.TrimSpace(name)
	if name != "" {
		if err := client.RenameKey(ctx, ak.ID, name); err != nil {
			s.logger.Warn(ctx, "renaming new key failed", "server", server.Address, "key_id", key.KeyID, "error", err)
		} else {
			key.Name = name
		}
	}

	if err := s.repomanager.Keys(s.db).Insert(ctx, key); err != nil {
		return nil, fmt.Errorf("error storing key: %w", err)
	}

	s.logger.Info(ctx, "key created", "server", server.Address, "key_id", key.KeyID)
	return key, nil
}

// Delete removes the key on the server and then locally. The local row is
// kept when the server does not confirm the deletion.
func (s *KeyService) Delete(ctx context.Context, address string, keyID int64) error {
	server, err := s.repomanager.Servers(s.db).Get(ctx, address)
	if err != nil {
		return err
	}

	unlock := s.locks.Lock(server.Address)
	defer unlock()

	if err := s.outline.Client(server.URL).DeleteKey(ctx, formatKeyID(keyID)); err != nil {
		return fmt.Errorf("error deleting key: %w", err)
	}

	if err := s.repomanager.Keys(s.db).Delete(ctx, server.Address, keyID); err != nil && !errors.Is(err, common.ErrorNotFound) {
		return fmt.Errorf("error deleting key: %w", err)
	}

	s.logger.Info(ctx, "key deleted", "server", server.Address, "key_id", keyID)
	return nil
}

// Rename changes the key name on the server and then locally.
func (s *KeyService) Rename(ctx context.Context, address string, keyID int64, name string) (*models.Key, error) {
	unlock := s.locks.Lock(address)
	defer unlock()

	key, client, err := s.resolve(ctx, address, keyID)
	if err != nil {
		return nil, err
	}

	name = strings.TrimSpace(name)
	if err := client.RenameKey(ctx, formatKeyID(keyID), name); err != nil {
		return nil, fmt.Errorf("error renaming key: %w", err)
	}

	if err := s.repomanager.Keys(s.db).UpdateName(ctx, key.ServerAddress, keyID, name); err != nil {
		return nil, fmt.Errorf("error renaming key: %w", err)
	}

	key.Name = name
	return key, nil
}

// SetDataLimit caps the transfer of a key. The limit lives only on the
// server.
func (s *KeyService) SetDataLimit(ctx context.Context, address string, keyID int64, limit int64) error {
	if limit < 0 {
		return fmt.Errorf("%w: negative data limit", common.ErrorValidation)
	}
	_, client, err := s.resolve(ctx, address, keyID)
	if err != nil {
		return err
	}
	if err := client.SetDataLimit(ctx, formatKeyID(keyID), limit); err != nil {
		return fmt.Errorf("error setting data limit: %w", err)
	}
	return nil
}

// ClearDataLimit removes the transfer cap of a key on the server.
func (s *KeyService) ClearDataLimit(ctx context.Context, address string, keyID int64) error {
	_, client, err := s.resolve(ctx, address, keyID)
	if err != nil {
		return err
	}
	if err := client.ClearDataLimit(ctx, formatKeyID(keyID)); err != nil {
		return fmt.Errorf("error clearing data limit: %w", err)
	}
	return nil
}

// Get returns a stored key without contacting the server.
func (s *KeyService) Get(ctx context.Context, address string, keyID int64) (*models.Key, error) {
	return s.repomanager.Keys(s.db).Get(ctx, address, keyID)
}

// List returns the stored keys of a server without contacting it.
func (s *KeyService) List(ctx context.Context, address string) ([]models.Key, error) {
	return s.repomanager.Keys(s.db).ListByServer(ctx, address)
}

// ListAll returns the stored keys of all servers.
func (s *KeyService) ListAll(ctx context.Context) ([]models.Key, error) {
	return s.repomanager.Keys(s.db).ListAll(ctx)
}

func (s *KeyService) resolve(ctx context.Context, address string, keyID int64) (*models.Key, *outline.Client, error) {
	server, err := s.repomanager.Servers(s.db).Get(ctx, address)
	if err != nil {
		return nil, nil, err
	}
	key, err := s.repomanager.Keys(s.db).Get(ctx, server.Address, keyID)
	if err != nil {
		return nil, nil, err
	}
	return key, s.outline.Client(server.URL), nil
}

func (s *KeyService) fetchRemote(ctx context.Context, server *models.Server) ([]models.Key, error) {
	client := s.outline.Client(server.URL)

	aks, err := client.ListKeys(ctx)
	if err != nil {
		return nil, err
	}
	usage, err := client.TransferredBytes(ctx)
	if err != nil {
		return nil, err
	}

	keys := make([]models.Key, 0, len(aks))
	for _, ak := range aks {
		k, err := toKey(server.Address, ak, usage[ak.ID])
		if err != nil {
			return nil, err
		}
		keys = append(keys, *k)
	}
	return keys, nil
}

func toKey(address string, ak outline.AccessKey, usedBytes int64) (*models.Key, error) {
	id, err := strconv.ParseInt(ak.ID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: non-numeric key id %q", common.ErrRemoteUnavailable, ak.ID)
	}
	return &models.Key{
		ServerAddress: address,
		KeyID:         id,
		Name:          ak.Name,
		Password:      ak.Password,
		Port:          ak.Port,
		Method:        ak.Method,
		AccessURL:     ak.AccessURL,
		UsedBytes:     usedBytes,
	}, nil
}

func formatKeyID(id int64) string { return strconv.FormatInt(id, 10) }
