package handlers

import (
	"context"
	"fmt"
	"strconv"

	"github.com/dmitrijs2005/outlinebot/internal/bot/conversation"
	"github.com/dmitrijs2005/outlinebot/internal/bot/transport"
)

type callbackFunc func(r *Router, ctx context.Context, q *request, c transport.Callback) error

var callbacks = map[Action]callbackFunc{
	transport.ActionShowList:         (*Router).showList,
	transport.ActionChooseServer:     (*Router).chooseServer,
	transport.ActionEditServer:       (*Router).editServer,
	transport.ActionConfirmDelete:    (*Router).confirmDeleteServer,
	transport.ActionDeleteServer:     (*Router).deleteServer,
	transport.ActionShowKeys:         (*Router).showKeys,
	transport.ActionEditName:         (*Router).beginServerEdit,
	transport.ActionEditIP:           (*Router).beginServerEdit,
	transport.ActionEditURL:          (*Router).beginServerEdit,
	transport.ActionToggleState:      (*Router).toggleState,
	transport.ActionChooseKey:        (*Router).chooseKey,
	transport.ActionNewKey:           (*Router).newKey,
	transport.ActionSendKey:          (*Router).sendKey,
	transport.ActionRenameKey:        (*Router).beginKeyEdit,
	transport.ActionKeyLimit:         (*Router).beginKeyEdit,
	transport.ActionConfirmDeleteKey: (*Router).confirmDeleteKey,
	transport.ActionDeleteKey:        (*Router).deleteKey,
}

// handleCallback runs a menu button. Pressing any button ends the dialog in
// progress; the button may start a new one.
func (r *Router) handleCallback(ctx context.Context, q *request) {
	cq := q.ev.Callback
	fn, ok := callbacks[cq.Data.Action]
	if cq.Invalid || !ok {
		q.logger.Info(ctx, "unknown callback", "action", int(cq.Data.Action), "invalid", cq.Invalid)
		r.answer(ctx, q, msgStaleButton)
		return
	}

	r.answer(ctx, q, "")
	r.typing(ctx, q)
	q.session.Reset()

	if err := fn(r, ctx, q, cq.Data); err != nil {
		r.fail(ctx, q, err)
	}
}

// show replaces the message carrying the pressed button.
func (r *Router) show(ctx context.Context, q *request, text string, kb transport.Keyboard) {
	r.replace(ctx, q, q.chatID(), q.ev.Callback.MessageID, text, kb)
}

// origin returns the fields that let a dialog come back to the menu
// message it was started from.
func origin(q *request) map[string]string {
	return map[string]string{
		conversation.FieldMessageID: strconv.Itoa(q.ev.Callback.MessageID),
		conversation.FieldChatID:    strconv.FormatInt(q.chatID(), 10),
	}
}

func (r *Router) showList(ctx context.Context, q *request, _ transport.Callback) error {
	list, err := r.servers.List(ctx)
	if err != nil {
		return err
	}
	text, kb := serverListView(list)
	r.show(ctx, q, text, kb)
	return nil
}

func (r *Router) chooseServer(ctx context.Context, q *request, c transport.Callback) error {
	s, err := r.servers.Get(ctx, c.Address)
	if err != nil {
		return err
	}
	text, kb := serverActionView(s)
	r.show(ctx, q, text, kb)
	return nil
}

func (r *Router) editServer(ctx context.Context, q *request, c transport.Callback) error {
	s, err := r.servers.Get(ctx, c.Address)
	if err != nil {
		return err
	}
	text, kb := editServerView(s)
	r.show(ctx, q, text, kb)
	return nil
}

func (r *Router) confirmDeleteServer(ctx context.Context, q *request, c transport.Callback) error {
	s, err := r.servers.Get(ctx, c.Address)
	if err != nil {
		return err
	}
	text, kb := confirmDeleteServerView(s)
	r.show(ctx, q, text, kb)
	return nil
}

func (r *Router) deleteServer(ctx context.Context, q *request, c transport.Callback) error {
	if err := r.servers.Delete(ctx, c.Address); err != nil {
		return err
	}
	q.logger.Info(ctx, "Server deleted", "address", c.Address)
	return r.showList(ctx, q, c)
}

// showKeys reconciles the server's keys before listing them.
func (r *Router) showKeys(ctx context.Context, q *request, c transport.Callback) error {
	res, err := r.keys.Sync(ctx, c.Address)
	if err != nil {
		return err
	}
	text, kb := keysView(res.Server, res.Keys, res.Stale())
	r.show(ctx, q, text, kb)
	return nil
}

func (r *Router) beginServerEdit(ctx context.Context, q *request, c transport.Callback) error {
	s, err := r.servers.Get(ctx, c.Address)
	if err != nil {
		return err
	}

	fields := origin(q)
	fields[conversation.FieldServerName] = s.Name
	fields[conversation.FieldServerIP] = s.Address
	fields[conversation.FieldServerURL] = s.URL

	switch c.Action {
	case transport.ActionEditName:
		q.session.Begin(conversation.UpdateName, fields)
		r.prompt(ctx, q, fmt.Sprintf("OK. Please send new name of server %s.", s.Name))
	case transport.ActionEditIP:
		q.session.Begin(conversation.UpdateIP, fields)
		r.prompt(ctx, q, fmt.Sprintf("OK. Please send new server ip for %s.", s.Name))
	case transport.ActionEditURL:
		q.session.Begin(conversation.UpdateURL, fields)
		r.prompt(ctx, q, fmt.Sprintf("OK. Please send new url for %s.", s.Name))
	}
	return nil
}

func (r *Router) toggleState(ctx context.Context, q *request, c transport.Callback) error {
	s, err := r.servers.ToggleActive(ctx, c.Address)
	if err != nil {
		return err
	}
	text, kb := editServerView(s)
	r.show(ctx, q, text, kb)
	return nil
}

func (r *Router) chooseKey(ctx context.Context, q *request, c transport.Callback) error {
	k, err := r.keys.Get(ctx, c.Address, c.KeyID)
	if err != nil {
		return err
	}
	text, kb := keyActionView(k)
	r.show(ctx, q, text, kb)
	return nil
}

func (r *Router) newKey(ctx context.Context, q *request, c transport.Callback) error {
	if _, err := r.servers.Get(ctx, c.Address); err != nil {
		return err
	}
	fields := origin(q)
	fields[conversation.FieldServerIP] = c.Address
	q.session.Begin(conversation.EnterKeyName, fields)
	r.prompt(ctx, q, msgEnterKeyName)
	return nil
}

func (r *Router) sendKey(ctx context.Context, q *request, c transport.Callback) error {
	k, err := r.keys.Get(ctx, c.Address, c.KeyID)
	if err != nil {
		return err
	}
	r.sendInvite(ctx, q, k)
	return nil
}

func (r *Router) beginKeyEdit(ctx context.Context, q *request, c transport.Callback) error {
	k, err := r.keys.Get(ctx, c.Address, c.KeyID)
	if err != nil {
		return err
	}

	fields := origin(q)
	fields[conversation.FieldServerIP] = k.ServerAddress
	fields[conversation.FieldKeyID] = strconv.FormatInt(k.KeyID, 10)

	switch c.Action {
	case transport.ActionRenameKey:
		q.session.Begin(conversation.UpdateKeyName, fields)
		r.prompt(ctx, q, fmt.Sprintf("OK. Please send new key name for %s.", k.DisplayName()))
	case transport.ActionKeyLimit:
		q.session.Begin(conversation.UpdateKeyLimit, fields)
		r.prompt(ctx, q, fmt.Sprintf("OK. Please send a data limit for %s, e.g. 10GB. Send 0 to remove the limit.", k.DisplayName()))
	}
	return nil
}

func (r *Router) confirmDeleteKey(ctx context.Context, q *request, c transport.Callback) error {
	k, err := r.keys.Get(ctx, c.Address, c.KeyID)
	if err != nil {
		return err
	}
	text, kb := confirmDeleteKeyView(k)
	r.show(ctx, q, text, kb)
	return nil
}

func (r *Router) deleteKey(ctx context.Context, q *request, c transport.Callback) error {
	if err := r.keys.Delete(ctx, c.Address, c.KeyID); err != nil {
		return err
	}
	q.logger.Info(ctx, "Key deleted", "address", c.Address, "key_id", c.KeyID)
	return r.showKeys(ctx, q, c)
}
