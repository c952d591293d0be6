// Package telegram implements transport.Messenger and the update poller on
// top of the Telegram Bot API.
package telegram

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/outlinebot/internal/bot/models"
	"github.com/dmitrijs2005/outlinebot/internal/bot/transport"
	"github.com/dmitrijs2005/outlinebot/internal/logging"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type Bot struct {
	api         *tgbotapi.BotAPI
	logger      logging.Logger
	pollTimeout time.Duration
}

// New connects to the Bot API and fetches the bot account.
func New(token string, pollTimeout time.Duration, l logging.Logger) (*Bot, error) {
	return NewWithEndpoint(token, tgbotapi.APIEndpoint, nil, pollTimeout, l)
}

// NewWithEndpoint is New against a custom API endpoint, in the
// "https://host/bot%s/%s" form. A nil client means a default one.
func NewWithEndpoint(token, endpoint string, client tgbotapi.HTTPClient, pollTimeout time.Duration, l logging.Logger) (*Bot, error) {
	if client == nil {
		client = newHTTPClient(pollTimeout)
	}
	api, err := tgbotapi.NewBotAPIWithClient(token, endpoint, client)
	if err != nil {
		return nil, fmt.Errorf("telegram init error: %w", err)
	}
	return &Bot{
		api:         api,
		logger:      l.With("module", "telegram"),
		pollTimeout: pollTimeout,
	}, nil
}

// Self is the bot account.
func (b *Bot) Self() models.User {
	u := toUser(&b.api.Self)
	u.IsBot = true
	return u
}

// Updates long-polls the API and delivers supported updates until ctx is
// done, then closes the channel.
func (b *Bot) Updates(ctx context.Context) <-chan transport.Event {
	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = int(b.pollTimeout / time.Second)
	in := b.api.GetUpdatesChan(cfg)

	out := make(chan transport.Event)
	go func() {
		defer close(out)
		defer b.api.StopReceivingUpdates()

		for {
			select {
			case <-ctx.Done():
				return
			case u, ok := <-in:
				if !ok {
					return
				}
				ev, ok := toEvent(u)
				if !ok {
					b.logger.Debug(ctx, "skipping update", "update_id", u.UpdateID)
					continue
				}
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	b.logger.Info(ctx, "Polling updates", "bot", b.api.Self.UserName)
	return out
}

func (b *Bot) Send(ctx context.Context, chatID int64, text string, kb transport.Keyboard) (int, error) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.DisableWebPagePreview = true
	if kb != nil {
		markup, err := toMarkup(kb)
		if err != nil {
			return 0, err
		}
		msg.ReplyMarkup = markup
	}
	sent, err := b.api.Send(msg)
	if err != nil {
		return 0, fmt.Errorf("telegram send error: %w", err)
	}
	return sent.MessageID, nil
}

func (b *Bot) Prompt(ctx context.Context, chatID int64, text string) (int, error) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = tgbotapi.ForceReply{ForceReply: true}
	sent, err := b.api.Send(msg)
	if err != nil {
		return 0, fmt.Errorf("telegram send error: %w", err)
	}
	return sent.MessageID, nil
}

func (b *Bot) Edit(ctx context.Context, chatID int64, messageID int, text string, kb transport.Keyboard) error {
	edit := tgbotapi.NewEditMessageText(chatID, messageID, text)
	edit.DisableWebPagePreview = true
	if kb != nil {
		markup, err := toMarkup(kb)
		if err != nil {
			return err
		}
		edit.ReplyMarkup = &markup
	}
	if _, err := b.api.Request(edit); err != nil {
		return fmt.Errorf("telegram edit error: %w", err)
	}
	return nil
}

func (b *Bot) Delete(ctx context.Context, chatID int64, messageID int) error {
	if _, err := b.api.Request(tgbotapi.NewDeleteMessage(chatID, messageID)); err != nil {
		return fmt.Errorf("telegram delete error: %w", err)
	}
	return nil
}

func (b *Bot) SendPhoto(ctx context.Context, chatID int64, name string, png []byte, caption string) error {
	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileBytes{Name: name, Bytes: png})
	photo.Caption = caption
	if _, err := b.api.Send(photo); err != nil {
		return fmt.Errorf("telegram photo error: %w", err)
	}
	return nil
}

func (b *Bot) AnswerCallback(ctx context.Context, callbackID, text string) error {
	if _, err := b.api.Request(tgbotapi.NewCallback(callbackID, text)); err != nil {
		return fmt.Errorf("telegram callback error: %w", err)
	}
	return nil
}

func (b *Bot) Typing(ctx context.Context, chatID int64) error {
	if _, err := b.api.Request(tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping)); err != nil {
		return fmt.Errorf("telegram chat action error: %w", err)
	}
	return nil
}

// MemberStatus returns the membership status of userID in chatID, e.g.
// "member" or "left".
func (b *Bot) MemberStatus(ctx context.Context, chatID, userID int64) (string, error) {
	m, err := b.api.GetChatMember(tgbotapi.GetChatMemberConfig{
		ChatConfigWithUser: tgbotapi.ChatConfigWithUser{ChatID: chatID, UserID: userID},
	})
	if err != nil {
		return "", fmt.Errorf("telegram chat member error: %w", err)
	}
	return m.Status, nil
}
