package handlers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/outlinebot/internal/bot/conversation"
	"github.com/dmitrijs2005/outlinebot/internal/bot/services"
	"github.com/dmitrijs2005/outlinebot/internal/common"
	"github.com/dmitrijs2005/outlinebot/internal/shared"
)

var errMissingField = errors.New("conversation field missing")

type textFunc func(r *Router, ctx context.Context, q *request, text string) error

var textSteps = map[conversation.State]textFunc{
	conversation.EnterName:      (*Router).enterName,
	conversation.EnterIP:        (*Router).enterIP,
	conversation.EnterURL:       (*Router).enterURL,
	conversation.UpdateName:     (*Router).updateName,
	conversation.UpdateIP:       (*Router).updateIP,
	conversation.UpdateURL:      (*Router).updateURL,
	conversation.EnterKeyName:   (*Router).enterKeyName,
	conversation.UpdateKeyName:  (*Router).updateKeyName,
	conversation.UpdateKeyLimit: (*Router).updateKeyLimit,
}

// handleText feeds a plain message to the dialog in progress. Outside a
// dialog text is ignored.
func (r *Router) handleText(ctx context.Context, q *request) {
	step, ok := textSteps[q.session.State]
	if !ok {
		return
	}
	r.typing(ctx, q)
	if err := step(r, ctx, q, strings.TrimSpace(q.ev.Text)); err != nil {
		r.fail(ctx, q, err)
	}
}

// originMessage is where the dialog was started from, if it came from a
// menu message.
func originMessage(q *request) (chatID int64, messageID int) {
	chatID, _ = q.session.Int64(conversation.FieldChatID)
	id, _ := q.session.Int64(conversation.FieldMessageID)
	return chatID, int(id)
}

func requireField(q *request, name string) (string, error) {
	v := q.session.Get(name)
	if v == "" {
		return "", fmt.Errorf("%w: %s in state %s", errMissingField, name, q.session.State)
	}
	return v, nil
}

func requireKeyID(q *request) (int64, error) {
	id, ok := q.session.Int64(conversation.FieldKeyID)
	if !ok {
		return 0, fmt.Errorf("%w: %s in state %s", errMissingField, conversation.FieldKeyID, q.session.State)
	}
	return id, nil
}

func (r *Router) enterName(ctx context.Context, q *request, text string) error {
	if text == "" {
		r.prompt(ctx, q, msgEnterName)
		return nil
	}
	q.session.Set(conversation.FieldServerName, text)
	q.session.Next(conversation.EnterIP)
	r.prompt(ctx, q, fmt.Sprintf("Well, server name: %s.\n%s", text, msgEnterIP))
	return nil
}

func (r *Router) enterIP(ctx context.Context, q *request, text string) error {
	address, err := services.ParseAddress(text)
	if err != nil {
		q.logger.Info(ctx, "wrong ip address", "input", text)
		r.prompt(ctx, q, msgWrongIP)
		return nil
	}
	q.session.Set(conversation.FieldServerIP, address)
	q.session.Next(conversation.EnterURL)
	r.prompt(ctx, q, fmt.Sprintf("Well, server name: %s.\nIP address: %s\nPlease enter server manage url.",
		q.session.Get(conversation.FieldServerName), address))
	return nil
}

func (r *Router) enterURL(ctx context.Context, q *request, text string) error {
	apiURL, err := services.ParseManagementURL(text)
	if err != nil {
		q.logger.Info(ctx, "wrong management url", "input", text)
		r.prompt(ctx, q, msgWrongURL)
		return nil
	}

	name := q.session.Get(conversation.FieldServerName)
	address, err := requireField(q, conversation.FieldServerIP)
	if err != nil {
		return err
	}
	q.session.Reset()

	s, err := r.servers.Create(ctx, name, address, apiURL)
	if err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			q.logger.Warn(ctx, "server already registered", "address", address)
		} else {
			q.logger.Error(ctx, "error creating server", "error", err)
		}
		r.send(ctx, q, msgCreateFailure, nil)
		return nil
	}

	q.logger.Info(ctx, "Server added", "address", s.Address)
	text, kb := editServerView(s)
	r.send(ctx, q, "New server was added.\n"+text, kb)
	return nil
}

func (r *Router) updateName(ctx context.Context, q *request, text string) error {
	if text == "" {
		r.prompt(ctx, q, msgEnterName)
		return nil
	}
	address, err := requireField(q, conversation.FieldServerIP)
	if err != nil {
		return err
	}
	chatID, messageID := originMessage(q)
	q.session.Reset()

	s, err := r.servers.Rename(ctx, address, text)
	if err != nil {
		return err
	}
	view, kb := editServerView(s)
	r.replace(ctx, q, chatID, messageID, view, kb)
	return nil
}

func (r *Router) updateIP(ctx context.Context, q *request, text string) error {
	newAddress, err := services.ParseAddress(text)
	if err != nil {
		q.logger.Info(ctx, "wrong ip address", "input", text)
		r.prompt(ctx, q, msgWrongIP)
		return nil
	}
	address, err := requireField(q, conversation.FieldServerIP)
	if err != nil {
		return err
	}
	chatID, messageID := originMessage(q)
	q.session.Reset()

	s, err := r.servers.ChangeAddress(ctx, address, newAddress)
	if err != nil {
		return err
	}
	q.logger.Info(ctx, "Server address changed", "address", address, "new_address", s.Address)
	view, kb := editServerView(s)
	r.replace(ctx, q, chatID, messageID, view, kb)
	return nil
}

func (r *Router) updateURL(ctx context.Context, q *request, text string) error {
	if _, err := services.ParseManagementURL(text); err != nil {
		q.logger.Info(ctx, "wrong management url", "input", text)
		r.prompt(ctx, q, msgWrongURL)
		return nil
	}
	address, err := requireField(q, conversation.FieldServerIP)
	if err != nil {
		return err
	}
	chatID, messageID := originMessage(q)
	q.session.Reset()

	s, err := r.servers.ChangeURL(ctx, address, text)
	if err != nil {
		return err
	}
	view, kb := editServerView(s)
	r.replace(ctx, q, chatID, messageID, view, kb)
	return nil
}

// enterKeyName creates the key, hands the invite to the requesting user
// and refreshes the key list the dialog started from.
func (r *Router) enterKeyName(ctx context.Context, q *request, text string) error {
	address, err := requireField(q, conversation.FieldServerIP)
	if err != nil {
		return err
	}
	chatID, messageID := originMessage(q)
	q.session.Reset()

	k, err := r.keys.Create(ctx, address, text)
	if err != nil {
		return err
	}
	q.logger.Info(ctx, "Key created", "address", address, "key_id", k.KeyID)
	r.sendInvite(ctx, q, k)

	res, err := r.keys.Sync(ctx, address)
	if err != nil {
		return err
	}
	view, kb := keysView(res.Server, res.Keys, res.Stale())
	r.replace(ctx, q, chatID, messageID, view, kb)
	return nil
}

func (r *Router) updateKeyName(ctx context.Context, q *request, text string) error {
	address, err := requireField(q, conversation.FieldServerIP)
	if err != nil {
		return err
	}
	keyID, err := requireKeyID(q)
	if err != nil {
		return err
	}
	chatID, messageID := originMessage(q)
	q.session.Reset()

	k, err := r.keys.Rename(ctx, address, keyID, text)
	if err != nil {
		return err
	}
	view, kb := keyActionView(k)
	r.replace(ctx, q, chatID, messageID, view, kb)
	return nil
}

// updateKeyLimit sets the data limit of a key. "0", "off" and "none"
// remove it.
func (r *Router) updateKeyLimit(ctx context.Context, q *request, text string) error {
	var limit int64
	remove := false
	switch strings.ToLower(text) {
	case "0", "off", "none":
		remove = true
	default:
		v, err := shared.ParseBytes(text)
		if err != nil || v == 0 {
			r.prompt(ctx, q, msgWrongLimit)
			return nil
		}
		limit = v
	}

	address, err := requireField(q, conversation.FieldServerIP)
	if err != nil {
		return err
	}
	keyID, err := requireKeyID(q)
	if err != nil {
		return err
	}
	q.session.Reset()

	k, err := r.keys.Get(ctx, address, keyID)
	if err != nil {
		return err
	}

	if remove {
		if err := r.keys.ClearDataLimit(ctx, address, keyID); err != nil {
			return err
		}
		r.send(ctx, q, fmt.Sprintf("Data limit for %s removed.", k.DisplayName()), nil)
		return nil
	}

	if err := r.keys.SetDataLimit(ctx, address, keyID, limit); err != nil {
		return err
	}
	r.send(ctx, q, fmt.Sprintf("Data limit for %s set to %s.", k.DisplayName(), shared.FormatBytes(limit)), nil)
	return nil
}
