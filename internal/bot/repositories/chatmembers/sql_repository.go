package chatmembers

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

func (r *SQLRepository) Get(ctx context.Context, chatID, userID int64) (*models.ChatMember, error) {
	m := &models.ChatMember{}
	err := r.db.QueryRowContext(ctx,
		`SELECT chat_id, user_id, status FROM chat_members
		 WHERE chat_id = $1 AND user_id = $2`, chatID, userID).
		Scan(&m.ChatID, &m.UserID, &m.Status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return m, nil
}

func (r *SQLRepository) Create(ctx context.Context, m *models.ChatMember) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO chat_members (chat_id, user_id, status)
		 VALUES ($1, $2, $3)`, m.ChatID, m.UserID, m.Status)
	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return common.ErrorAlreadyExists
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *SQLRepository) UpdateStatus(ctx context.Context, m *models.ChatMember) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE chat_members SET status = $1
		 WHERE chat_id = $2 AND user_id = $3`, m.Status, m.ChatID, m.UserID)
	return affectedOne(res, err)
}

func (r *SQLRepository) Delete(ctx context.Context, chatID, userID int64) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM chat_members WHERE chat_id = $1 AND user_id = $2`, chatID, userID)
	return affectedOne(res, err)
}

func affectedOne(res sql.Result, err error) error {
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}
