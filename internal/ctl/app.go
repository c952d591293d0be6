// Package ctl is the maintenance console: a small REPL over the bot
// database and the Outline servers it manages, without the chat transport.
package ctl

import (
	"bufio"
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/dmitrijs2005/outlinebot/internal/bot/config"
	"github.com/dmitrijs2005/outlinebot/internal/bot/services"
	"github.com/dmitrijs2005/outlinebot/internal/bot/storage"
	"github.com/dmitrijs2005/outlinebot/internal/logging"
	"github.com/dmitrijs2005/outlinebot/internal/outline"
	"github.com/dmitrijs2005/outlinebot/internal/shared"
	"golang.org/x/term"
)

type App struct {
	db      *sql.DB
	servers *services.ServerService
	keys    *services.KeyService
	out     io.Writer
}

func NewApp(cfg *config.Config) (*App, error) {
	if err := cfg.ValidateStorage(); err != nil {
		return nil, fmt.Errorf("config error: %w", err)
	}

	db, rm, err := storage.Open(context.Background(), cfg.DatabaseDriver, cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	// records go to stderr so they do not mix with command output
	logger := logging.NewJSONLogger(os.Stderr, cfg.LogLevel)
	factory := outline.NewFactory(outline.NewHTTPClient(cfg.OutlineInsecureTLS), cfg.OutlineRequestTimeout)

	return newApp(db, services.NewServerService(db, rm), services.NewKeyService(db, rm, factory, cfg, logger), os.Stdout), nil
}

func newApp(db *sql.DB, servers *services.ServerService, keys *services.KeyService, out io.Writer) *App {
	return &App{db: db, servers: servers, keys: keys, out: out}
}

// Run reads commands from stdin until EOF or exit.
func (a *App) Run(ctx context.Context) {
	defer a.db.Close()

	interactive := term.IsTerminal(int(os.Stdin.Fd()))
	if interactive {
		printFn(helpText)
	}
	runREPL(ctx, a, interactive, bufio.NewScanner(os.Stdin))
}

func (a *App) table() *tabwriter.Writer {
	return tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
}

func (a *App) Servers(ctx context.Context) error {
	list, err := a.servers.List(ctx)
	if err != nil {
		return err
	}

	w := a.table()
	fmt.Fprintln(w, "ADDRESS\tNAME\tACTIVE\tURL")
	for _, s := range list {
		fmt.Fprintf(w, "%s\t%s\t%t\t%s\n", s.Address, s.Name, s.IsActive, s.URL)
	}
	return w.Flush()
}

func (a *App) Keys(ctx context.Context, address string) error {
	address, err := services.ParseAddress(address)
	if err != nil {
		return err
	}
	if _, err := a.servers.Get(ctx, address); err != nil {
		return err
	}
	keys, err := a.keys.List(ctx, address)
	if err != nil {
		return err
	}

	w := a.table()
	fmt.Fprintln(w, "ID\tNAME\tUSED\tPORT\tMETHOD")
	for _, k := range keys {
		fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%s\n", k.KeyID, k.Name, shared.FormatBytes(k.UsedBytes), k.Port, k.Method)
	}
	return w.Flush()
}

func (a *App) Sync(ctx context.Context, address string) error {
	address, err := services.ParseAddress(address)
	if err != nil {
		return err
	}
	res, err := a.keys.Sync(ctx, address)
	if err != nil {
		return err
	}
	a.printResults([]*services.SyncResult{res})
	return nil
}

func (a *App) SyncAll(ctx context.Context) error {
	results, err := a.keys.SyncAll(ctx)
	if err != nil {
		return err
	}
	a.printResults(results)
	return nil
}

func (a *App) printResults(results []*services.SyncResult) {
	w := a.table()
	fmt.Fprintln(w, "ADDRESS\tKEYS\tINSERTED\tUPDATED\tDELETED\tSTATUS")
	for _, r := range results {
		status := "ok"
		if r.Stale() {
			status = "unreachable: " + r.Err.Error()
		}
		fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%d\t%s\n", r.Server.Address, len(r.Keys), r.Inserted, r.Updated, r.Deleted, status)
	}
	_ = w.Flush()
}
