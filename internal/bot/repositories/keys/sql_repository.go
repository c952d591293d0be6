package keys

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/outlinebot/internal/bot/models"
	"github.com/dmitrijs2005/outlinebot/internal/common"
	"github.com/dmitrijs2005/outlinebot/internal/dbx"
)

const keyColumns = `server_address, key_id, name, password, port, method, access_url, used_bytes`

type SQLRepository struct {
	db dbx.DBTX
}

func NewSQLRepository(db dbx.DBTX) *SQLRepository {
	return &SQLRepository{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanKey(s scanner) (models.Key, error) {
	var k models.Key
	err := s.Scan(&k.ServerAddress, &k.KeyID, &k.Name, &k.Password, &k.Port, &k.Method, &k.AccessURL, &k.UsedBytes)
	return k, err
}

func (r *SQLRepository) ListByServer(ctx context.Context, address string) ([]models.Key, error) {
	return r.list(ctx,
		`SELECT `+keyColumns+` FROM server_keys
		 WHERE server_address = $1
		 ORDER BY name, key_id`, address)
}

func (r *SQLRepository) ListAll(ctx context.Context) ([]models.Key, error) {
	return r.list(ctx,
		`SELECT `+keyColumns+` FROM server_keys
		 ORDER BY server_address, key_id`)
}

func (r *SQLRepository) list(ctx context.Context, query string, args ...any) ([]models.Key, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := make([]models.Key, 0)
	for rows.Next() {
		k, err := scanKey(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, k)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return result, nil
}

func (r *SQLRepository) Get(ctx context.Context, address string, keyID int64) (*models.Key, error) {
	query :=
		`SELECT ` + keyColumns + ` FROM server_keys
		 WHERE server_address = $1 AND key_id = $2`

	k, err := scanKey(r.db.QueryRowContext(ctx, query, address, keyID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return &k, nil
}

func (r *SQLRepository) Insert(ctx context.Context, key *models.Key) error {
	query :=
		`INSERT INTO server_keys (` + keyColumns + `)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.db.ExecContext(ctx, query,
		key.ServerAddress, key.KeyID, key.Name, key.Password, key.Port, key.Method, key.AccessURL, key.UsedBytes)
	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return common.ErrorAlreadyExists
		}
		return fmt.Errorf("db error: %w", err)
	}

	return nil
}

// Update overwrites every mutable field of the stored key.
func (r *SQLRepository) Update(ctx context.Context, key *models.Key) error {
	query :=
		`UPDATE server_keys
		 SET name = $1, password = $2, port = $3, method = $4, access_url = $5, used_bytes = $6
		 WHERE server_address = $7 AND key_id = $8`

	res, err := r.db.ExecContext(ctx, query,
		key.Name, key.Password, key.Port, key.Method, key.AccessURL, key.UsedBytes, key.ServerAddress, key.KeyID)
	return affectedOne(res, err)
}

func (r *SQLRepository) UpdateName(ctx context.Context, address string, keyID int64, name string) error {
	query :=
		`UPDATE server_keys SET name = $1
		 WHERE server_address = $2 AND key_id = $3`

	res, err := r.db.ExecContext(ctx, query, name, address, keyID)
	return affectedOne(res, err)
}

func (r *SQLRepository) Delete(ctx context.Context, address string, keyID int64) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM server_keys WHERE server_address = $1 AND key_id = $2`, address, keyID)
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
