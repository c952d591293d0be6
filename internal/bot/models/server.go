// Package models defines the entities persisted by the bot.
package models

// Server is an Outline relay registered by an admin. Address is the
// canonical text form of its IP address and identifies the server.
type Server struct {
	Address  string
	URL      string
	Name     string
	IsActive bool
}

// ServerUpdate lists the server fields an update may change. Nil fields are
// left as they are.
type ServerUpdate struct {
	Address  *string
	URL      *string
	Name     *string
	IsActive *bool
}
