// Package states persists conversation state per (chat, user) scope.
package states

import (
	"context"

	"github.com/dmitrijs2005/outlinebot/internal/bot/models"
)

type Repository interface {
	Get(ctx context.Context, chatID, userID int64) (*models.Conversation, error)
	Save(ctx context.Context, c *models.Conversation) error
	Delete(ctx context.Context, chatID, userID int64) error
}
