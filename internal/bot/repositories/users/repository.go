// Package users persists chat platform accounts seen by the bot.
package users

import (
	"context"

	"github.com/dmitrijs2005/outlinebot/internal/bot/models"
)

type Repository interface {
	Get(ctx context.Context, id int64) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	// UpdateProfile refreshes the display fields. Role and superuser flag are
	// never touched.
	UpdateProfile(ctx context.Context, user *models.User) error
}
