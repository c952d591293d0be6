// Package transport is the boundary between the bot logic and the chat
// platform. Handlers talk to a Messenger and receive Events; the telegram
// subpackage implements both on top of the Bot API.
package transport

import (
	"context"

	"github.com/dmitrijs2005/outlinebot/internal/bot/models"
)

// Action is a menu callback. The numeric values are stable because they
// end up inside buttons of messages already sent.
type Action int

const (
	ActionNone             Action = 0
	ActionShowList         Action = 1
	ActionChooseServer     Action = 6
	ActionEditServer       Action = 11
	ActionConfirmDelete    Action = 16
	ActionDeleteServer     Action = 21
	ActionShowKeys         Action = 26
	ActionEditName         Action = 31
	ActionEditIP           Action = 36
	ActionEditURL          Action = 41
	ActionToggleState      Action = 46
	ActionChooseKey        Action = 51
	ActionNewKey           Action = 56
	ActionSendKey          Action = 61
	ActionRenameKey        Action = 66
	ActionConfirmDeleteKey Action = 71
	ActionDeleteKey        Action = 76
	ActionKeyLimit         Action = 81
)

// Callback is the payload of an inline button.
type Callback struct {
	Action  Action
	Address string
	KeyID   int64
}

type Button struct {
	Text     string
	Callback Callback
}

// Keyboard is an inline keyboard, one slice per row.
type Keyboard [][]Button

// Row is a shorthand for building keyboards.
func Row(buttons ...Button) []Button { return buttons }

// CallbackQuery is a button press on a message sent by the bot.
type CallbackQuery struct {
	ID        string
	MessageID int
	Data      Callback
	// Invalid is set when the button payload could not be decoded.
	Invalid bool
}

// Event is one inbound update.
type Event struct {
	UpdateID  int
	Chat      models.Chat
	From      models.User
	MessageID int
	Text      string
	// Command is the bot command without the slash, lowercased.
	Command  string
	Callback *CallbackQuery

	// Service messages.
	NewMembers []models.User
	LeftMember *models.User
}

// IsServiceMessage reports whether the event only announces membership
// changes.
func (e *Event) IsServiceMessage() bool {
	return len(e.NewMembers) > 0 || e.LeftMember != nil
}

// Messenger sends to the chat platform.
type Messenger interface {
	// Send posts a message and returns its id.
	Send(ctx context.Context, chatID int64, text string, kb Keyboard) (int, error)
	// Prompt posts a message that asks the client to reply to it.
	Prompt(ctx context.Context, chatID int64, text string) (int, error)
	Edit(ctx context.Context, chatID int64, messageID int, text string, kb Keyboard) error
	Delete(ctx context.Context, chatID int64, messageID int) error
	SendPhoto(ctx context.Context, chatID int64, name string, png []byte, caption string) error
	AnswerCallback(ctx context.Context, callbackID, text string) error
	Typing(ctx context.Context, chatID int64) error
	MemberStatus(ctx context.Context, chatID, userID int64) (string, error)
}
