package conversation

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/outlinebot/internal/bot/models"
	"github.com/dmitrijs2005/outlinebot/internal/bot/repositories/repomanager"
	"github.com/dmitrijs2005/outlinebot/internal/common"
	"github.com/dmitrijs2005/outlinebot/internal/syncx"
)

// Store loads and saves sessions. Load of an unknown scope returns an idle
// session. Saving an idle session without fields removes it.
type Store interface {
	Load(ctx context.Context, scope Scope) (*Session, error)
	Save(ctx context.Context, scope Scope, s *Session) error
}

// MemoryStore keeps sessions in process memory. They are lost on restart.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[Scope]*Session
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[Scope]*Session)}
}

func (m *MemoryStore) Load(_ context.Context, scope Scope) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[scope]; ok {
		return s.clone(), nil
	}
	return NewSession(), nil
}

func (m *MemoryStore) Save(_ context.Context, scope Scope, s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s.IsIdle() && len(s.Fields) == 0 {
		delete(m.sessions, scope)
		return nil
	}
	m.sessions[scope] = s.clone()
	return nil
}

// SQLStore keeps sessions in the conversation_states table so dialogs
// survive restarts.
type SQLStore struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
}

func NewSQLStore(db *sql.DB, rm repomanager.RepositoryManager) *SQLStore {
	return &SQLStore{db: db, repomanager: rm}
}

func (s *SQLStore) Load(ctx context.Context, scope Scope) (*Session, error) {
	c, err := s.repomanager.States(s.db).Get(ctx, scope.ChatID, scope.UserID)
	if errors.Is(err, common.ErrorNotFound) {
		return NewSession(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("error loading conversation: %w", err)
	}

	sess := NewSession()
	sess.State = State(c.State)
	if len(c.Data) > 0 {
		if err := json.Unmarshal(c.Data, &sess.Fields); err != nil {
			return nil, fmt.Errorf("error decoding conversation: %w", err)
		}
	}
	if sess.Fields == nil {
		sess.Fields = map[string]string{}
	}
	return sess, nil
}

func (s *SQLStore) Save(ctx context.Context, scope Scope, sess *Session) error {
	repo := s.repomanager.States(s.db)

	if sess.IsIdle() && len(sess.Fields) == 0 {
		if err := repo.Delete(ctx, scope.ChatID, scope.UserID); err != nil {
			return fmt.Errorf("error saving conversation: %w", err)
		}
		return nil
	}

	fields := sess.Fields
	if fields == nil {
		fields = map[string]string{}
	}
	data, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("error encoding conversation: %w", err)
	}

	c := &models.Conversation{ChatID: scope.ChatID, UserID: scope.UserID, State: string(sess.State), Data: data}
	if err := repo.Save(ctx, c); err != nil {
		return fmt.Errorf("error saving conversation: %w", err)
	}
	return nil
}

// Manager pairs a Store with a per-scope lock. Handlers hold the lock for
// the whole turn so updates of one scope never interleave.
type Manager struct {
	store Store
	locks syncx.KeyedMutex[Scope]
}

func NewManager(store Store) *Manager {
	return &Manager{store: store}
}

// Lock serializes turns of one scope and returns the unlock func.
func (m *Manager) Lock(scope Scope) func() { return m.locks.Lock(scope) }

func (m *Manager) Load(ctx context.Context, scope Scope) (*Session, error) {
	return m.store.Load(ctx, scope)
}

func (m *Manager) Save(ctx context.Context, scope Scope, s *Session) error {
	return m.store.Save(ctx, scope, s)
}
