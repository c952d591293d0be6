package models

// Conversation is the stored form of a dialog state for one (chat, user)
// scope. Data holds the JSON encoded pending fields.
type Conversation struct {
	ChatID int64
	UserID int64
	State  string
	Data   []byte
}
