package telegram

import (
	"strings"

	"github.com/dmitrijs2005/outlinebot/internal/bot/models"
	"github.com/dmitrijs2005/outlinebot/internal/bot/transport"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func toUser(u *tgbotapi.User) models.User {
	if u == nil {
		return models.User{}
	}
	return models.User{
		ID:        u.ID,
		IsBot:     u.IsBot,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		UserName:  u.UserName,
		LangCode:  u.LanguageCode,
	}
}

func toChat(c *tgbotapi.Chat) models.Chat {
	if c == nil {
		return models.Chat{}
	}
	return models.Chat{ID: c.ID, Type: c.Type, Title: c.Title, UserName: c.UserName}
}

// toEvent converts an update. ok is false for update kinds the bot does
// not handle.
func toEvent(u tgbotapi.Update) (ev transport.Event, ok bool) {
	ev.UpdateID = u.UpdateID

	switch {
	case u.CallbackQuery != nil:
		q := u.CallbackQuery
		ev.From = toUser(q.From)
		cq := &transport.CallbackQuery{ID: q.ID}
		if q.Message != nil {
			ev.Chat = toChat(q.Message.Chat)
			cq.MessageID = q.Message.MessageID
		} else {
			// inline message without chat; answer in private
			ev.Chat = models.Chat{ID: ev.From.ID, Type: models.ChatPrivate}
		}
		data, err := DecodeCallback(q.Data)
		if err != nil {
			cq.Invalid = true
		}
		cq.Data = data
		ev.Callback = cq
		return ev, true

	case u.Message != nil:
		m := u.Message
		ev.Chat = toChat(m.Chat)
		ev.From = toUser(m.From)
		ev.MessageID = m.MessageID
		ev.Text = m.Text
		if m.IsCommand() {
			ev.Command = strings.ToLower(m.Command())
		}
		for i := range m.NewChatMembers {
			ev.NewMembers = append(ev.NewMembers, toUser(&m.NewChatMembers[i]))
		}
		if m.LeftChatMember != nil {
			left := toUser(m.LeftChatMember)
			ev.LeftMember = &left
		}
		return ev, m.From != nil
	}

	return ev, false
}

func toMarkup(kb transport.Keyboard) (tgbotapi.InlineKeyboardMarkup, error) {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(kb))
	for _, r := range kb {
		row := make([]tgbotapi.InlineKeyboardButton, 0, len(r))
		for _, b := range r {
			data, err := EncodeCallback(b.Callback)
			if err != nil {
				return tgbotapi.InlineKeyboardMarkup{}, err
			}
			row = append(row, tgbotapi.NewInlineKeyboardButtonData(b.Text, data))
		}
		rows = append(rows, row)
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...), nil
}
