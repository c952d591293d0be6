// Package common contains shared constants and sentinel errors used across
// the bot, the maintenance CLI and the storage layer.
package common

// DefaultServerName is assigned to servers registered without a name.
const DefaultServerName = "my server"

// Roles stored on a user row.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)
