package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/outlinebot/internal/bot/repositories/chatmembers"
	"github.com/dmitrijs2005/outlinebot/internal/bot/repositories/chats"
	"github.com/dmitrijs2005/outlinebot/internal/bot/repositories/keys"
	"github.com/dmitrijs2005/outlinebot/internal/bot/repositories/servers"
	"github.com/dmitrijs2005/outlinebot/internal/bot/repositories/states"
	"github.com/dmitrijs2005/outlinebot/internal/bot/repositories/users"
	"github.com/dmitrijs2005/outlinebot/internal/dbx"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Servers(db dbx.DBTX) servers.Repository
	Keys(db dbx.DBTX) keys.Repository
	Users(db dbx.DBTX) users.Repository
	Chats(db dbx.DBTX) chats.Repository
	ChatMembers(db dbx.DBTX) chatmembers.Repository
	States(db dbx.DBTX) states.Repository
}
