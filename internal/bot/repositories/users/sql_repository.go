package users

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

func (r *SQLRepository) Get(ctx context.Context, id int64) (*models.User, error) {
	query :=
		`SELECT id, is_bot, first_name, last_name, username, lang_code, role, is_superuser
		 FROM users
		 WHERE id = $1`

	u := &models.User{}
	err := r.db.QueryRowContext(ctx, query, id).
		Scan(&u.ID, &u.IsBot, &u.FirstName, &u.LastName, &u.UserName, &u.LangCode, &u.Role, &u.IsSuperuser)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return u, nil
}

func (r *SQLRepository) Create(ctx context.Context, user *models.User) error {
	query :=
		`INSERT INTO users (id, is_bot, first_name, last_name, username, lang_code, role, is_superuser)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.db.ExecContext(ctx, query,
		user.ID, user.IsBot, user.FirstName, user.LastName, user.UserName, user.LangCode, user.Role, user.IsSuperuser)
	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return common.ErrorAlreadyExists
		}
		return fmt.Errorf("db error: %w", err)
	}

	return nil
}

func (r *SQLRepository) UpdateProfile(ctx context.Context, user *models.User) error {
	query :=
		`UPDATE users
		 SET is_bot = $1, first_name = $2, last_name = $3, username = $4, lang_code = $5
		 WHERE id = $6`

	res, err := r.db.ExecContext(ctx, query,
		user.IsBot, user.FirstName, user.LastName, user.UserName, user.LangCode, user.ID)
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
