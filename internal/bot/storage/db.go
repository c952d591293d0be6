// Package storage opens the bot database and brings its schema up to date.
package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/outlinebot/internal/bot/repositories/repomanager"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// Open connects with the given database/sql driver ("pgx" or "sqlite"),
// runs migrations and returns the pool with a matching repository manager.
// SQLite DSNs should enable foreign keys, e.g.
// "file:bot.db?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)".
func Open(ctx context.Context, driver, dsn string) (*sql.DB, repomanager.RepositoryManager, error) {
	rm, err := repomanager.NewSQLRepositoryManager(driver)
	if err != nil {
		return nil, nil, err
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("db open error: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("db ping error: %w", err)
	}

	if err := rm.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("db migration error: %w", err)
	}

	return db, rm, nil
}
