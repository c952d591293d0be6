// Package keys persists Outline access keys.
package keys

import (
	"context"

	"github.com/dmitrijs2005/outlinebot/internal/bot/models"
)

type Repository interface {
	ListByServer(ctx context.Context, address string) ([]models.Key, error)
	ListAll(ctx context.Context) ([]models.Key, error)
	Get(ctx context.Context, address string, keyID int64) (*models.Key, error)
	Insert(ctx context.Context, key *models.Key) error
	Update(ctx context.Context, key *models.Key) error
	UpdateName(ctx context.Context, address string, keyID int64, name string) error
	Delete(ctx context.Context, address string, keyID int64) error
}
