package servers

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

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

func (r *SQLRepository) Create(ctx context.Context, server *models.Server) error {
	query :=
		`INSERT INTO servers (address, url, name, is_active)
		 VALUES ($1, $2, $3, $4)`

	_, err := r.db.ExecContext(ctx, query, server.Address, server.URL, server.Name, server.IsActive)
	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return common.ErrorAlreadyExists
		}
		return fmt.Errorf("db error: %w", err)
	}

	return nil
}

func (r *SQLRepository) Get(ctx context.Context, address string) (*models.Server, error) {
	query :=
		`SELECT address, url, name, is_active FROM servers
		 WHERE address = $1`

	s := &models.Server{}
	err := r.db.QueryRowContext(ctx, query, address).Scan(&s.Address, &s.URL, &s.Name, &s.IsActive)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return s, nil
}

func (r *SQLRepository) List(ctx context.Context) ([]models.Server, error) {
	return r.list(ctx,
		`SELECT address, url, name, is_active FROM servers
		 ORDER BY name, address`)
}

func (r *SQLRepository) ListActive(ctx context.Context) ([]models.Server, error) {
	return r.list(ctx,
		`SELECT address, url, name, is_active FROM servers
		 WHERE is_active
		 ORDER BY name, address`)
}

func (r *SQLRepository) list(ctx context.Context, query string) ([]models.Server, error) {
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := make([]models.Server, 0)
	for rows.Next() {
		var s models.Server
		if err := rows.Scan(&s.Address, &s.URL, &s.Name, &s.IsActive); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return result, nil
}

// Update applies the non-nil fields of upd to the server at address and
// returns the stored row. Changing the address cascades to its keys.
func (r *SQLRepository) Update(ctx context.Context, address string, upd models.ServerUpdate) (*models.Server, error) {
	sets := make([]string, 0, 4)
	args := make([]any, 0, 5)
	add := func(column string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if upd.Address != nil {
		add("address", *upd.Address)
	}
	if upd.URL != nil {
		add("url", *upd.URL)
	}
	if upd.Name != nil {
		add("name", *upd.Name)
	}
	if upd.IsActive != nil {
		add("is_active", *upd.IsActive)
	}

	if len(sets) == 0 {
		return r.Get(ctx, address)
	}

	args = append(args, address)
	query := fmt.Sprintf(
		`UPDATE servers SET %s
		 WHERE address = $%d
		 RETURNING address, url, name, is_active`, strings.Join(sets, ", "), len(args))

	s := &models.Server{}
	err := r.db.QueryRowContext(ctx, query, args...).Scan(&s.Address, &s.URL, &s.Name, &s.IsActive)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		if dbx.IsUniqueViolation(err) {
			return nil, common.ErrorAlreadyExists
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return s, nil
}

func (r *SQLRepository) Delete(ctx context.Context, address string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM servers WHERE address = $1`, address)
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
