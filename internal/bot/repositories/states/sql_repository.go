package states

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

func (r *SQLRepository) Get(ctx context.Context, chatID, userID int64) (*models.Conversation, error) {
	c := &models.Conversation{}
	var data string
	err := r.db.QueryRowContext(ctx,
		`SELECT chat_id, user_id, state, data FROM conversation_states
		 WHERE chat_id = $1 AND user_id = $2`, chatID, userID).
		Scan(&c.ChatID, &c.UserID, &c.State, &data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	c.Data = []byte(data)
	return c, nil
}

func (r *SQLRepository) Save(ctx context.Context, c *models.Conversation) error {
	query :=
		`INSERT INTO conversation_states (chat_id, user_id, state, data)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (chat_id, user_id) DO UPDATE
		 SET state = excluded.state, data = excluded.data`

	if _, err := r.db.ExecContext(ctx, query, c.ChatID, c.UserID, c.State, string(c.Data)); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// Delete removes the stored state. A missing row is not an error.
func (r *SQLRepository) Delete(ctx context.Context, chatID, userID int64) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM conversation_states WHERE chat_id = $1 AND user_id = $2`, chatID, userID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
