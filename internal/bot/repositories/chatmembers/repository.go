// Package chatmembers persists who is currently a member of which chat.
package chatmembers

import (
	"context"

	"github.com/dmitrijs2005/outlinebot/internal/bot/models"
)

type Repository interface {
	Get(ctx context.Context, chatID, userID int64) (*models.ChatMember, error)
	Create(ctx context.Context, m *models.ChatMember) error
	UpdateStatus(ctx context.Context, m *models.ChatMember) error
	Delete(ctx context.Context, chatID, userID int64) error
}
