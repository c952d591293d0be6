package models

import "strconv"

// User is a chat platform account seen by the bot. ID is the platform id and
// needs the full 64 bits.
type User struct {
	ID          int64
	IsBot       bool
	FirstName   string
	LastName    string
	UserName    string
	LangCode    string
	Role        string
	IsSuperuser bool
}

func itoa(v int64) string { return strconv.FormatInt(v, 10) }
