package handlers

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/outlinebot/internal/bot/conversation"
	"github.com/dmitrijs2005/outlinebot/internal/bot/export"
)

const (
	cmdStart     = "start"
	cmdHelp      = "help"
	cmdNewServer = "newserver"
	cmdMyServers = "myservers"
	cmdCancel    = "cancel"
	cmdExport    = "export"
)

// handleCommand runs an admin command. Any command ends the dialog in
// progress before doing its own work.
func (r *Router) handleCommand(ctx context.Context, q *request) {
	r.typing(ctx, q)

	wasIdle := q.session.IsIdle()
	q.session.Reset()

	var err error
	switch q.ev.Command {
	case cmdStart:
		r.send(ctx, q, msgHelloAdmin, nil)
	case cmdHelp:
		r.send(ctx, q, msgCommands, nil)
	case cmdNewServer:
		q.session.Begin(conversation.EnterName, nil)
		r.prompt(ctx, q, msgEnterName)
	case cmdMyServers:
		err = r.myServers(ctx, q)
	case cmdCancel:
		if wasIdle {
			r.send(ctx, q, msgNothingToStop, nil)
		} else {
			r.send(ctx, q, msgCancelled, nil)
		}
	case cmdExport:
		err = r.exportKeys(ctx, q)
	default:
		r.send(ctx, q, msgUnknown, nil)
	}

	if err != nil {
		r.fail(ctx, q, err)
	}
}

func (r *Router) myServers(ctx context.Context, q *request) error {
	list, err := r.servers.List(ctx)
	if err != nil {
		return err
	}
	text, kb := serverListView(list)
	r.send(ctx, q, text, kb)
	return nil
}

func (r *Router) exportKeys(ctx context.Context, q *request) error {
	key, err := r.exporter.Keys(ctx)
	if errors.Is(err, export.ErrDisabled) {
		r.send(ctx, q, "Export is not configured.", nil)
		return nil
	}
	if err != nil {
		return err
	}
	q.logger.Info(ctx, "Key inventory exported", "object", key)
	r.send(ctx, q, "Key inventory uploaded: "+key, nil)
	return nil
}
