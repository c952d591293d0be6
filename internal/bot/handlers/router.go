// Package handlers turns chat events into bot actions: commands, menu
// callbacks and the text input of multi-step admin dialogs.
//
// Every event first goes through the membership tracker. Management is
// restricted to admins; other users only get a greeting. Events of one
// (chat, user) scope are handled one at a time and share a conversation
// session that is loaded before and saved after each event.
package handlers

import (
	"context"
	"errors"
	"runtime/debug"

	"github.com/dmitrijs2005/outlinebot/internal/bot/conversation"
	"github.com/dmitrijs2005/outlinebot/internal/bot/models"
	"github.com/dmitrijs2005/outlinebot/internal/bot/services"
	"github.com/dmitrijs2005/outlinebot/internal/bot/transport"
	"github.com/dmitrijs2005/outlinebot/internal/common"
	"github.com/dmitrijs2005/outlinebot/internal/logging"
	"github.com/google/uuid"
)

// Action is a menu callback code.
type Action = transport.Action

// Exporter uploads the key inventory and returns the object key.
type Exporter interface {
	Keys(ctx context.Context) (string, error)
}

type Router struct {
	msg      transport.Messenger
	servers  *services.ServerService
	keys     *services.KeyService
	tracker  *services.MembershipTracker
	sessions *conversation.Manager
	exporter Exporter
	logger   logging.Logger
}

func NewRouter(
	msg transport.Messenger,
	servers *services.ServerService,
	keys *services.KeyService,
	tracker *services.MembershipTracker,
	sessions *conversation.Manager,
	exporter Exporter,
	l logging.Logger,
) *Router {
	return &Router{
		msg:      msg,
		servers:  servers,
		keys:     keys,
		tracker:  tracker,
		sessions: sessions,
		exporter: exporter,
		logger:   l.With("module", "router"),
	}
}

// request is one event on its way through the handlers.
type request struct {
	ev      transport.Event
	user    *models.User
	session *conversation.Session
	logger  logging.Logger
}

func (q *request) chatID() int64 { return q.ev.Chat.ID }

// Handle processes one event. It never panics and never fails: problems
// are logged and, where it makes sense, reported to the chat.
func (r *Router) Handle(ctx context.Context, ev transport.Event) {
	l := r.logger.With(
		"update_id", ev.UpdateID,
		"request_id", uuid.NewString(),
		"chat_id", ev.Chat.ID,
		"user_id", ev.From.ID,
	)

	defer func() {
		if p := recover(); p != nil {
			l.Error(ctx, "panic while handling update", "panic", p, "stack", string(debug.Stack()))
		}
	}()

	user, err := r.tracker.Track(ctx, ev.Chat, ev.From)
	if err != nil {
		l.Error(ctx, "error tracking membership", "error", err)
		u := ev.From
		user = &u
	}

	if ev.IsServiceMessage() {
		r.handleServiceMessage(ctx, l, ev)
		return
	}

	q := &request{ev: ev, user: user, logger: l}

	if !r.tracker.IsAdmin(user) {
		r.handleGuest(ctx, q)
		return
	}

	scope := conversation.Scope{ChatID: ev.Chat.ID, UserID: ev.From.ID}
	unlock := r.sessions.Lock(scope)
	defer unlock()

	q.session, err = r.sessions.Load(ctx, scope)
	if err != nil {
		l.Error(ctx, "error loading conversation", "error", err)
		r.send(ctx, q, msgFailure, nil)
		return
	}

	switch {
	case ev.Callback != nil:
		r.handleCallback(ctx, q)
	case ev.Command != "":
		r.handleCommand(ctx, q)
	default:
		r.handleText(ctx, q)
	}

	if err := r.sessions.Save(ctx, scope, q.session); err != nil {
		l.Error(ctx, "error saving conversation", "error", err)
	}
}

func (r *Router) handleServiceMessage(ctx context.Context, l logging.Logger, ev transport.Event) {
	if len(ev.NewMembers) > 0 {
		if err := r.tracker.Joined(ctx, ev.Chat, ev.NewMembers); err != nil {
			l.Error(ctx, "error storing new chat members", "error", err)
		}
	}
	if ev.LeftMember != nil {
		if err := r.tracker.Left(ctx, ev.Chat, *ev.LeftMember); err != nil {
			l.Error(ctx, "error removing chat member", "error", err)
		}
	}
}

// handleGuest answers non-admins: commands get the user greeting, buttons
// are refused and plain text is ignored.
func (r *Router) handleGuest(ctx context.Context, q *request) {
	switch {
	case q.ev.Callback != nil:
		r.answer(ctx, q, msgAdminsOnly)
	case q.ev.Command != "":
		r.typing(ctx, q)
		r.send(ctx, q, msgHelloUser, nil)
	}
}

// fail reports err to the chat and ends the current dialog.
func (r *Router) fail(ctx context.Context, q *request, err error) {
	q.session.Reset()

	switch {
	case errors.Is(err, common.ErrorNotFound):
		q.logger.Warn(ctx, "object not found", "error", err)
		r.send(ctx, q, msgNotFound, nil)
	case errors.Is(err, common.ErrRemoteUnavailable):
		q.logger.Warn(ctx, "outline server failed", "error", err)
		r.send(ctx, q, msgRemoteFailure, nil)
	default:
		q.logger.Error(ctx, "error handling update", "error", err)
		r.send(ctx, q, msgFailure, nil)
	}
}

// Best-effort platform calls. Failures are logged and otherwise ignored.

func (r *Router) send(ctx context.Context, q *request, text string, kb transport.Keyboard) {
	if _, err := r.msg.Send(ctx, q.chatID(), text, kb); err != nil {
		q.logger.Warn(ctx, "error sending message", "error", err)
	}
}

func (r *Router) prompt(ctx context.Context, q *request, text string) {
	if _, err := r.msg.Prompt(ctx, q.chatID(), text); err != nil {
		q.logger.Warn(ctx, "error sending prompt", "error", err)
	}
}

func (r *Router) typing(ctx context.Context, q *request) {
	if err := r.msg.Typing(ctx, q.chatID()); err != nil {
		q.logger.Debug(ctx, "error sending chat action", "error", err)
	}
}

func (r *Router) answer(ctx context.Context, q *request, text string) {
	if err := r.msg.AnswerCallback(ctx, q.ev.Callback.ID, text); err != nil {
		q.logger.Debug(ctx, "error answering callback", "error", err)
	}
}

// replace shows a view in place of message messageID. When there is no
// such message or it cannot be edited the view is sent as a new message and
// the old one, if any, is removed so that only one live menu remains.
func (r *Router) replace(ctx context.Context, q *request, chatID int64, messageID int, text string, kb transport.Keyboard) {
	if chatID == 0 {
		chatID = q.chatID()
	}
	if messageID != 0 {
		err := r.msg.Edit(ctx, chatID, messageID, text, kb)
		if err == nil {
			return
		}
		q.logger.Warn(ctx, "error editing message, sending a new one", "error", err, "message_id", messageID)
	}
	if _, err := r.msg.Send(ctx, chatID, text, kb); err != nil {
		q.logger.Warn(ctx, "error sending message", "error", err)
		return
	}
	if messageID != 0 {
		if err := r.msg.Delete(ctx, chatID, messageID); err != nil {
			q.logger.Debug(ctx, "error deleting old message", "error", err, "message_id", messageID)
		}
	}
}
