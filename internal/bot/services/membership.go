package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/dmitrijs2005/outlinebot/internal/bot/config"
	"github.com/dmitrijs2005/outlinebot/internal/bot/models"
	"github.com/dmitrijs2005/outlinebot/internal/bot/repositories/repomanager"
	"github.com/dmitrijs2005/outlinebot/internal/common"
	"github.com/dmitrijs2005/outlinebot/internal/logging"
)

// MemberLookup asks the chat platform for the current membership status of
// a user in a chat.
type MemberLookup interface {
	MemberStatus(ctx context.Context, chatID, userID int64) (string, error)
}

// MembershipTracker mirrors who the bot has seen and which group chats they
// belong to. It runs before routing on every inbound message.
type MembershipTracker struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	lookup      MemberLookup
	config      *config.Config
	logger      logging.Logger

	botID atomic.Int64
}

func NewMembershipTracker(db *sql.DB, rm repomanager.RepositoryManager, lookup MemberLookup, cfg *config.Config, l logging.Logger) *MembershipTracker {
	return &MembershipTracker{
		db:          db,
		repomanager: rm,
		lookup:      lookup,
		config:      cfg,
		logger:      l.With("module", "membership"),
	}
}

// RegisterSelf stores the bot account so its membership rows have a user
// to point at.
func (t *MembershipTracker) RegisterSelf(ctx context.Context, bot models.User) error {
	bot.IsBot = true
	if _, err := t.upsertUser(ctx, &bot); err != nil {
		return fmt.Errorf("error registering bot user: %w", err)
	}
	t.botID.Store(bot.ID)
	return nil
}

// Track records the sender of a message. For group chats it also stores
// the chat and refreshes the membership of the sender and the bot. The
// stored sender is returned so callers can check the role.
func (t *MembershipTracker) Track(ctx context.Context, chat models.Chat, from models.User) (*models.User, error) {
	user, err := t.upsertUser(ctx, &from)
	if err != nil {
		return nil, fmt.Errorf("error saving user: %w", err)
	}

	if chat.Type == models.ChatPrivate || chat.ID == 0 {
		return user, nil
	}

	if err := t.repomanager.Chats(t.db).Upsert(ctx, &chat); err != nil {
		return user, fmt.Errorf("error saving chat: %w", err)
	}

	members := []int64{user.ID}
	if bot := t.botID.Load(); bot != 0 && bot != user.ID {
		members = append(members, bot)
	}
	for _, id := range members {
		status := t.remoteStatus(ctx, chat.ID, id)
		if err := t.merge(ctx, chat.ID, id, status); err != nil {
			return user, err
		}
	}
	return user, nil
}

// Joined handles a new_chat_members service message.
func (t *MembershipTracker) Joined(ctx context.Context, chat models.Chat, users []models.User) error {
	if err := t.repomanager.Chats(t.db).Upsert(ctx, &chat); err != nil {
		return fmt.Errorf("error saving chat: %w", err)
	}
	for i := range users {
		u, err := t.upsertUser(ctx, &users[i])
		if err != nil {
			return fmt.Errorf("error saving user: %w", err)
		}
		if err := t.merge(ctx, chat.ID, u.ID, models.MemberMember); err != nil {
			return err
		}
	}
	return nil
}

// Left handles a left_chat_member service message.
func (t *MembershipTracker) Left(ctx context.Context, chat models.Chat, user models.User) error {
	if err := t.repomanager.ChatMembers(t.db).Delete(ctx, chat.ID, user.ID); err != nil && !errors.Is(err, common.ErrorNotFound) {
		return fmt.Errorf("error removing chat member: %w", err)
	}
	return nil
}

// IsAdmin reports whether the user may manage servers: listed in the
// config or stored with the admin role or superuser flag.
func (t *MembershipTracker) IsAdmin(u *models.User) bool {
	if u == nil {
		return false
	}
	return t.config.IsAdmin(u.ID) || u.Role == common.RoleAdmin || u.IsSuperuser
}

func (t *MembershipTracker) remoteStatus(ctx context.Context, chatID, userID int64) string {
	status, err := t.lookup.MemberStatus(ctx, chatID, userID)
	if err != nil {
		t.logger.Warn(ctx, "chat member lookup failed", "chat_id", chatID, "user_id", userID, "error", err)
		return ""
	}
	return status
}

// merge applies the remote status to the stored membership row.
func (t *MembershipTracker) merge(ctx context.Context, chatID, userID int64, status string) error {
	repo := t.repomanager.ChatMembers(t.db)

	stored, err := repo.Get(ctx, chatID, userID)
	if err != nil && !errors.Is(err, common.ErrorNotFound) {
		return fmt.Errorf("error reading chat member: %w", err)
	}
	present := models.IsPresent(status)

	switch {
	case stored == nil && !present:
		return nil
	case stored == nil:
		m := &models.ChatMember{ChatID: chatID, UserID: userID, Status: status}
		err := repo.Create(ctx, m)
		if errors.Is(err, common.ErrorAlreadyExists) {
			err = repo.UpdateStatus(ctx, m)
		}
		if err != nil {
			return fmt.Errorf("error saving chat member: %w", err)
		}
	case !present:
		if err := repo.Delete(ctx, chatID, userID); err != nil && !errors.Is(err, common.ErrorNotFound) {
			return fmt.Errorf("error removing chat member: %w", err)
		}
	case stored.Status != status:
		if err := repo.UpdateStatus(ctx, &models.ChatMember{ChatID: chatID, UserID: userID, Status: status}); err != nil {
			return fmt.Errorf("error saving chat member: %w", err)
		}
	}
	return nil
}

// upsertUser creates the user with a role taken from the admin list, or
// refreshes the profile of a known user. The stored role is never changed.
func (t *MembershipTracker) upsertUser(ctx context.Context, u *models.User) (*models.User, error) {
	repo := t.repomanager.Users(t.db)

	stored, err := repo.Get(ctx, u.ID)
	switch {
	case errors.Is(err, common.ErrorNotFound):
		nu := *u
		nu.Role = common.RoleUser
		if t.config.IsAdmin(u.ID) {
			nu.Role = common.RoleAdmin
		}
		err := repo.Create(ctx, &nu)
		if err == nil {
			return &nu, nil
		}
		if !errors.Is(err, common.ErrorAlreadyExists) {
			return nil, err
		}
		// created concurrently by another update
		stored, err = repo.Get(ctx, u.ID)
		if err != nil {
			return nil, err
		}
	case err != nil:
		return nil, err
	}

	if err := repo.UpdateProfile(ctx, u); err != nil {
		return nil, err
	}

	out := *u
	out.Role = stored.Role
	out.IsSuperuser = stored.IsSuperuser
	return &out, nil
}
