// Package repomanager vends SQL repositories bound to a *sql.DB or *sql.Tx
// and runs the embedded goose migrations for the configured driver.
package repomanager

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/outlinebot/internal/bot/migrations"
	"github.com/dmitrijs2005/outlinebot/internal/bot/repositories/chatmembers"
	"github.com/dmitrijs2005/outlinebot/internal/bot/repositories/chats"
	"github.com/dmitrijs2005/outlinebot/internal/bot/repositories/keys"
	"github.com/dmitrijs2005/outlinebot/internal/bot/repositories/servers"
	"github.com/dmitrijs2005/outlinebot/internal/bot/repositories/states"
	"github.com/dmitrijs2005/outlinebot/internal/bot/repositories/users"
	"github.com/dmitrijs2005/outlinebot/internal/dbx"
	"github.com/pressly/goose/v3"
)

// SQLRepositoryManager hands out repositories for PostgreSQL or SQLite. The
// queries are shared, only the goose dialect differs.
type SQLRepositoryManager struct {
	dialect string
}

func (m *SQLRepositoryManager) Servers(db dbx.DBTX) servers.Repository {
	return servers.NewSQLRepository(db)
}

func (m *SQLRepositoryManager) Keys(db dbx.DBTX) keys.Repository {
	return keys.NewSQLRepository(db)
}

func (m *SQLRepositoryManager) Users(db dbx.DBTX) users.Repository {
	return users.NewSQLRepository(db)
}

func (m *SQLRepositoryManager) Chats(db dbx.DBTX) chats.Repository {
	return chats.NewSQLRepository(db)
}

func (m *SQLRepositoryManager) ChatMembers(db dbx.DBTX) chatmembers.Repository {
	return chatmembers.NewSQLRepository(db)
}

func (m *SQLRepositoryManager) States(db dbx.DBTX) states.Repository {
	return states.NewSQLRepository(db)
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// RunMigrations applies the embedded migrations to db.
func (m *SQLRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect(m.dialect); err != nil {
		return fmt.Errorf("goose dialect: %w", err)
	}
	return gooseUpContext(ctx, db, ".")
}

// NewSQLRepositoryManager returns a manager for the given database/sql
// driver name, "pgx" or "sqlite".
func NewSQLRepositoryManager(driver string) (*SQLRepositoryManager, error) {
	switch driver {
	case "pgx":
		return &SQLRepositoryManager{dialect: "pgx"}, nil
	case "sqlite":
		return &SQLRepositoryManager{dialect: "sqlite3"}, nil
	default:
		return nil, fmt.Errorf("unsupported driver %q", driver)
	}
}
