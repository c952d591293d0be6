package chats

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/outlinebot/internal/bot/models"
	"github.com/dmitrijs2005/outlinebot/internal/common"
	"github.com/dmitrijs2005/outlinebot/internal/dbx"
)

type SQLRepository struct {
	db dbx.DBTX
}

func NewSQLRepository(db dbx.DBTX) *SQLRepository {
	return &SQLRepository{db: db}
}

func (r *SQLRepository) Get(ctx context.Context, id int64) (*models.Chat, error) {
	c := &models.Chat{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, type, title, username FROM chats WHERE id = $1`, id).
		Scan(&c.ID, &c.Type, &c.Title, &c.UserName)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return c, nil
}

func (r *SQLRepository) Upsert(ctx context.Context, chat *models.Chat) error {
	query :=
		`INSERT INTO chats (id, type, title, username)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (id) DO UPDATE
		 SET type = excluded.type, title = excluded.title, username = excluded.username`

	if _, err := r.db.ExecContext(ctx, query, chat.ID, chat.Type, chat.Title, chat.UserName); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
