package handlers

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/outlinebot/internal/bot/config"
	"github.com/dmitrijs2005/outlinebot/internal/bot/conversation"
	"github.com/dmitrijs2005/outlinebot/internal/bot/models"
	"github.com/dmitrijs2005/outlinebot/internal/bot/repositories/repomanager"
	"github.com/dmitrijs2005/outlinebot/internal/bot/services"
	"github.com/dmitrijs2005/outlinebot/internal/bot/storage"
	"github.com/dmitrijs2005/outlinebot/internal/bot/transport"
	"github.com/dmitrijs2005/outlinebot/internal/logging"
	"github.com/dmitrijs2005/outlinebot/internal/outline"
	"github.com/dmitrijs2005/outlinebot/internal/outline/outlinetest"
	"github.com/stretchr/testify/require"
)

const (
	botID    = int64(777)
	adminID  = int64(1001)
	admin2ID = int64(1002)
	guestID  = int64(42)
	groupID  = int64(-100123)

	serverIP = "203.0.113.9"
	menuMsg  = 10
)

var group = models.Chat{ID: groupID, Type: models.ChatSupergroup, Title: "ops"}

func private(id int64) models.Chat { return models.Chat{ID: id, Type: models.ChatPrivate} }

// outgoing is one call made to the messenger.
type outgoing struct {
	Kind      string
	ChatID    int64
	MessageID int
	Text      string
	Keyboard  transport.Keyboard
}

type fakeMessenger struct {
	mu      sync.Mutex
	nextID  int
	calls   []outgoing
	editErr error
	sendErr map[int64]error
	panics  bool
}

func newFakeMessenger() *fakeMessenger {
	return &fakeMessenger{nextID: 100, sendErr: map[int64]error{}}
}

func (f *fakeMessenger) record(o outgoing) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, o)
}

func (f *fakeMessenger) Send(_ context.Context, chatID int64, text string, kb transport.Keyboard) (int, error) {
	f.mu.Lock()
	if f.panics {
		f.mu.Unlock()
		panic("send exploded")
	}
	if err := f.sendErr[chatID]; err != nil {
		f.mu.Unlock()
		return 0, err
	}
	f.nextID++
	id := f.nextID
	f.mu.Unlock()

	f.record(outgoing{Kind: "send", ChatID: chatID, MessageID: id, Text: text, Keyboard: kb})
	return id, nil
}

func (f *fakeMessenger) Prompt(_ context.Context, chatID int64, text string) (int, error) {
	f.mu.Lock()
	f.nextID++
	id := f.nextID
	f.mu.Unlock()

	f.record(outgoing{Kind: "prompt", ChatID: chatID, MessageID: id, Text: text})
	return id, nil
}

func (f *fakeMessenger) Edit(_ context.Context, chatID int64, messageID int, text string, kb transport.Keyboard) error {
	f.mu.Lock()
	err := f.editErr
	f.mu.Unlock()
	if err != nil {
		return err
	}
	f.record(outgoing{Kind: "edit", ChatID: chatID, MessageID: messageID, Text: text, Keyboard: kb})
	return nil
}

func (f *fakeMessenger) Delete(_ context.Context, chatID int64, messageID int) error {
	f.record(outgoing{Kind: "delete", ChatID: chatID, MessageID: messageID})
	return nil
}

func (f *fakeMessenger) SendPhoto(_ context.Context, chatID int64, name string, png []byte, caption string) error {
	f.record(outgoing{Kind: "photo", ChatID: chatID, Text: caption})
	return nil
}

func (f *fakeMessenger) AnswerCallback(_ context.Context, _ string, text string) error {
	f.record(outgoing{Kind: "answer", Text: text})
	return nil
}

func (f *fakeMessenger) Typing(context.Context, int64) error { return nil }

func (f *fakeMessenger) MemberStatus(context.Context, int64, int64) (string, error) {
	return models.MemberMember, nil
}

// last returns the most recent call of the given kind.
func (f *fakeMessenger) last(t *testing.T, kind string) outgoing {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.calls) - 1; i >= 0; i-- {
		if f.calls[i].Kind == kind {
			return f.calls[i]
		}
	}
	t.Fatalf("no %s call recorded", kind)
	return outgoing{}
}

func (f *fakeMessenger) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeMessenger) since(n int) []outgoing {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]outgoing(nil), f.calls[n:]...)
}

type fakeExporter struct {
	key string
	err error
}

func (f *fakeExporter) Keys(context.Context) (string, error) { return f.key, f.err }

type fixture struct {
	db       *sql.DB
	rm       repomanager.RepositoryManager
	msg      *fakeMessenger
	remote   *outlinetest.Server
	store    conversation.Store
	servers  *services.ServerService
	keys     *services.KeyService
	tracker  *services.MembershipTracker
	exporter *fakeExporter
	router   *Router
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	dsn := "file:" + filepath.Join(t.TempDir(), "bot.db") + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	db, rm, err := storage.Open(context.Background(), config.DriverSQLite, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	remote := outlinetest.NewServer()
	t.Cleanup(remote.Close)

	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.AdminIDs = []int64{adminID, admin2ID}

	f := &fixture{
		db:       db,
		rm:       rm,
		msg:      newFakeMessenger(),
		remote:   remote,
		store:    conversation.NewSQLStore(db, rm),
		exporter: &fakeExporter{},
	}
	l := logging.Discard()
	f.servers = services.NewServerService(db, rm)
	f.keys = services.NewKeyService(db, rm, outline.NewFactory(outline.NewHTTPClient(true), 2*time.Second), cfg, l)
	f.tracker = services.NewMembershipTracker(db, rm, f.msg, cfg, l)
	require.NoError(t, f.tracker.RegisterSelf(context.Background(), models.User{ID: botID, IsBot: true, FirstName: "bot"}))
	f.router = f.newRouter()
	return f
}

// newRouter builds a router over the fixture state, as after a restart.
func (f *fixture) newRouter() *Router {
	return NewRouter(f.msg, f.servers, f.keys, f.tracker, conversation.NewManager(f.store), f.exporter, logging.Discard())
}

func (f *fixture) addServer(t *testing.T) *models.Server {
	t.Helper()
	s, err := f.servers.Create(context.Background(), "Edge-1", serverIP, f.remote.URL())
	require.NoError(t, err)
	return s
}

func (f *fixture) state(t *testing.T, chat models.Chat, userID int64) *conversation.Session {
	t.Helper()
	s, err := f.store.Load(context.Background(), conversation.Scope{ChatID: chat.ID, UserID: userID})
	require.NoError(t, err)
	return s
}

func (f *fixture) command(chat models.Chat, userID int64, cmd string) {
	f.router.Handle(context.Background(), transport.Event{
		Chat:    chat,
		From:    models.User{ID: userID, FirstName: "u"},
		Text:    "/" + cmd,
		Command: cmd,
	})
}

func (f *fixture) text(chat models.Chat, userID int64, text string) {
	f.router.Handle(context.Background(), transport.Event{
		Chat: chat,
		From: models.User{ID: userID, FirstName: "u"},
		Text: text,
	})
}

func (f *fixture) press(chat models.Chat, userID int64, action Action, address string, keyID int64) {
	f.router.Handle(context.Background(), transport.Event{
		Chat: chat,
		From: models.User{ID: userID, FirstName: "u"},
		Callback: &transport.CallbackQuery{
			ID:        "cb",
			MessageID: menuMsg,
			Data:      transport.Callback{Action: action, Address: address, KeyID: keyID},
		},
	})
}

// buttons flattens a keyboard into its button texts.
func buttons(kb transport.Keyboard) []string {
	var out []string
	for _, row := range kb {
		for _, b := range row {
			out = append(out, b.Text)
		}
	}
	return out
}

func hasPrefix(calls []outgoing, kind, prefix string) bool {
	for _, c := range calls {
		if c.Kind == kind && strings.HasPrefix(c.Text, prefix) {
			return true
		}
	}
	return false
}

var errBoom = errors.New("boom")
