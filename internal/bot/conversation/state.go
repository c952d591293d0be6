// Package conversation keeps the multi-step admin dialogs. A Session is
// stored per Scope, a (chat, user) pair, and survives between updates.
package conversation

import "strconv"

type State string

const (
	Idle           State = "idle"
	EnterName      State = "enter_name"
	UpdateName     State = "update_name"
	EnterIP        State = "enter_ip"
	UpdateIP       State = "update_ip"
	EnterURL       State = "enter_url"
	UpdateURL      State = "update_url"
	EnterKeyName   State = "enter_key_name"
	UpdateKeyName  State = "update_key_name"
	UpdateKeyLimit State = "update_key_limit"
)

// Field names carried between steps.
const (
	FieldServerName = "server_name"
	FieldServerIP   = "server_ip"
	FieldServerURL  = "server_url"
	FieldKeyID      = "key_id"
	FieldMessageID  = "message_id"
	FieldChatID     = "chat_id"
)

// Scope identifies whose dialog a session is. The same user talking in two
// chats has two sessions, and so do two users in one chat.
type Scope struct {
	ChatID int64
	UserID int64
}

type Session struct {
	State  State
	Fields map[string]string
}

// NewSession returns an idle session without fields.
func NewSession() *Session {
	return &Session{State: Idle, Fields: map[string]string{}}
}

// Begin enters state with only the given fields; anything pending from an
// earlier dialog is dropped.
func (s *Session) Begin(state State, fields map[string]string) {
	s.State = state
	s.Fields = make(map[string]string, len(fields))
	for k, v := range fields {
		s.Fields[k] = v
	}
}

// Reset returns to Idle and clears all fields.
func (s *Session) Reset() { s.Begin(Idle, nil) }

// Next moves to state and keeps the collected fields.
func (s *Session) Next(state State) { s.State = state }

func (s *Session) Get(name string) string { return s.Fields[name] }

func (s *Session) Set(name, value string) {
	if s.Fields == nil {
		s.Fields = map[string]string{}
	}
	s.Fields[name] = value
}

// Int64 parses a numeric field; ok is false when it is missing or invalid.
func (s *Session) Int64(name string) (v int64, ok bool) {
	raw, found := s.Fields[name]
	if !found {
		return 0, false
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	return v, err == nil
}

func (s *Session) SetInt64(name string, v int64) {
	s.Set(name, strconv.FormatInt(v, 10))
}

func (s *Session) IsIdle() bool { return s.State == Idle || s.State == "" }

func (s *Session) clone() *Session {
	c := &Session{}
	c.Begin(s.State, s.Fields)
	return c
}
