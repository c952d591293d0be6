// Package chats persists group chats the bot takes part in.
package chats

import (
	"context"

	"github.com/dmitrijs2005/outlinebot/internal/bot/models"
)

type Repository interface {
	Get(ctx context.Context, id int64) (*models.Chat, error)
	Upsert(ctx context.Context, chat *models.Chat) error
}
