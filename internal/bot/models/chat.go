package models

// Chat types.
const (
	ChatPrivate    = "private"
	ChatGroup      = "group"
	ChatSupergroup = "supergroup"
	ChatChannel    = "channel"
)

// Membership statuses reported by the chat platform.
const (
	MemberCreator       = "creator"
	MemberAdministrator = "administrator"
	MemberMember        = "member"
	MemberRestricted    = "restricted"
	MemberLeft          = "left"
	MemberKicked        = "kicked"
)

type Chat struct {
	ID       int64
	Type     string
	Title    string
	UserName string
}

// ChatMember links a user to a chat they currently belong to.
type ChatMember struct {
	ChatID int64
	UserID int64
	Status string
}

// IsPresent reports whether status means the user is in the chat. Left and
// kicked users, and empty statuses, are treated as absent.
func IsPresent(status string) bool {
	switch status {
	case MemberCreator, MemberAdministrator, MemberMember, MemberRestricted:
		return true
	default:
		return false
	}
}
