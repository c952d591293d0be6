// Package bot wires the chat bot together: storage, the Outline client,
// services, the chat transport and the background workers.
package bot

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/outlinebot/internal/bot/config"
	"github.com/dmitrijs2005/outlinebot/internal/bot/conversation"
	"github.com/dmitrijs2005/outlinebot/internal/bot/export"
	"github.com/dmitrijs2005/outlinebot/internal/bot/handlers"
	"github.com/dmitrijs2005/outlinebot/internal/bot/services"
	"github.com/dmitrijs2005/outlinebot/internal/bot/storage"
	"github.com/dmitrijs2005/outlinebot/internal/bot/transport"
	"github.com/dmitrijs2005/outlinebot/internal/bot/transport/telegram"
	"github.com/dmitrijs2005/outlinebot/internal/health"
	"github.com/dmitrijs2005/outlinebot/internal/logging"
	"github.com/dmitrijs2005/outlinebot/internal/outline"
	"golang.org/x/sync/errgroup"
)

type App struct {
	config  *config.Config
	logger  logging.Logger
	db      *sql.DB
	bot     *telegram.Bot
	keys    *services.KeyService
	tracker *services.MembershipTracker
	router  *handlers.Router
}

func NewApp(cfg *config.Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config error: %w", err)
	}

	logger := logging.NewJSONLogger(os.Stdout, cfg.LogLevel)

	db, rm, err := storage.Open(context.Background(), cfg.DatabaseDriver, cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	bot, err := telegram.New(cfg.BotToken, cfg.PollTimeout, logger)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	factory := outline.NewFactory(outline.NewHTTPClient(cfg.OutlineInsecureTLS), cfg.OutlineRequestTimeout)
	servers := services.NewServerService(db, rm)
	keys := services.NewKeyService(db, rm, factory, cfg, logger)
	tracker := services.NewMembershipTracker(db, rm, bot, cfg, logger)

	var store conversation.Store
	switch cfg.StateBackend {
	case config.StateMemory:
		store = conversation.NewMemoryStore()
	default:
		store = conversation.NewSQLStore(db, rm)
	}

	router := handlers.NewRouter(bot, servers, keys, tracker, conversation.NewManager(store), export.NewService(keys, cfg), logger)

	return &App{
		config:  cfg,
		logger:  logger,
		db:      db,
		bot:     bot,
		keys:    keys,
		tracker: tracker,
		router:  router,
	}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// Run serves updates until a signal arrives or a worker fails.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()
	defer app.db.Close()

	app.logger.Info(ctx, "Starting app...")
	app.initSignalHandler(cancelFunc)

	if err := app.tracker.RegisterSelf(ctx, app.bot.Self()); err != nil {
		return fmt.Errorf("error registering bot user: %w", err)
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		dispatch(ctx, app.bot.Updates(ctx), app.config.Workers, app.router.Handle)
		return nil
	})

	if app.config.SyncInterval > 0 {
		g.Go(func() error {
			return app.keys.RunSyncLoop(ctx, app.config.SyncInterval)
		})
	}

	if app.config.HealthAddr != "" {
		g.Go(func() error {
			return health.NewServer(app.config.HealthAddr, app.db, 0, app.logger).Run(ctx)
		})
	}

	err := g.Wait()
	app.logger.Info(ctx, "App stopped")
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// dispatch hands every event to handle, at most workers at a time, and
// returns once events is closed and all handlers are done. Handlers run on
// a context that outlives ctx so that updates already taken are finished.
func dispatch(ctx context.Context, events <-chan transport.Event, workers int, handle func(context.Context, transport.Event)) {
	hctx := context.WithoutCancel(ctx)

	var g errgroup.Group
	g.SetLimit(workers)
	for ev := range events {
		g.Go(func() error {
			handle(hctx, ev)
			return nil
		})
	}
	_ = g.Wait()
}
