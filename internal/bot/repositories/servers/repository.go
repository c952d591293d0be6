// Package servers persists Outline servers.
package servers

import (
	"context"

	"github.com/dmitrijs2005/outlinebot/internal/bot/models"
)

type Repository interface {
	Create(ctx context.Context, server *models.Server) error
	Get(ctx context.Context, address string) (*models.Server, error)
	List(ctx context.Context) ([]models.Server, error)
	ListActive(ctx context.Context) ([]models.Server, error)
	Update(ctx context.Context, address string, upd models.ServerUpdate) (*models.Server, error)
	Delete(ctx context.Context, address string) error
}
