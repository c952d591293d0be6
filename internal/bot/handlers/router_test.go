package handlers

import (
	"context"
	"sync"
	"testing"

	"github.com/dmitrijs2005/outlinebot/internal/bot/conversation"
	"github.com/dmitrijs2005/outlinebot/internal/bot/export"
	"github.com/dmitrijs2005/outlinebot/internal/bot/models"
	"github.com/dmitrijs2005/outlinebot/internal/bot/transport"
	"github.com/dmitrijs2005/outlinebot/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRouter_Start(t *testing.T) {
	f := newFixture(t)

	f.command(private(adminID), adminID, "start")
	assert.Equal(t, msgHelloAdmin, f.msg.last(t, "send").Text)

	f.command(private(guestID), guestID, "start")
	out := f.msg.last(t, "send")
	assert.Equal(t, msgHelloUser, out.Text)
	assert.Equal(t, guestID, out.ChatID)

	u, err := f.rm.Users(f.db).Get(context.Background(), guestID)
	require.NoError(t, err)
	assert.Equal(t, common.RoleUser, u.Role)
}

func TestRouter_NewServerDialog(t *testing.T) {
	f := newFixture(t)
	chat := private(adminID)

	f.command(chat, adminID, "newserver")
	assert.Equal(t, msgEnterName, f.msg.last(t, "prompt").Text)
	assert.Equal(t, conversation.EnterName, f.state(t, chat, adminID).State)

	f.text(chat, adminID, " Edge-1 ")
	assert.Equal(t, "Well, server name: Edge-1.\n"+msgEnterIP, f.msg.last(t, "prompt").Text)
	assert.Equal(t, conversation.EnterIP, f.state(t, chat, adminID).State)

	for _, bad := range []string{"300.1.1.1", "999.999.999.999"} {
		f.text(chat, adminID, bad)
		assert.Equal(t, msgWrongIP, f.msg.last(t, "prompt").Text)
		s := f.state(t, chat, adminID)
		assert.Equal(t, conversation.EnterIP, s.State)
		assert.Equal(t, "Edge-1", s.Get(conversation.FieldServerName))
	}

	f.text(chat, adminID, serverIP)
	assert.Equal(t, conversation.EnterURL, f.state(t, chat, adminID).State)

	f.text(chat, adminID, "mgmt.example/abc")
	assert.Equal(t, msgWrongURL, f.msg.last(t, "prompt").Text)
	assert.Equal(t, conversation.EnterURL, f.state(t, chat, adminID).State)

	f.text(chat, adminID, f.remote.URL())
	out := f.msg.last(t, "send")
	assert.Equal(t, "New server was added.\nServer name: Edge-1\nIP address: 203.0.113.9\nServer url: "+f.remote.URL()+"\nState: ✅ Active\n", out.Text)
	assert.Equal(t, []string{"📝 Name", "📝 IP", "📝 url", "✅ Active", "<< Back to server"}, buttons(out.Keyboard))
	assert.True(t, f.state(t, chat, adminID).IsIdle())

	stored, err := f.servers.Get(context.Background(), serverIP)
	require.NoError(t, err)
	assert.Equal(t, "Edge-1", stored.Name)
}

func TestRouter_NewServerAlreadyRegistered(t *testing.T) {
	f := newFixture(t)
	f.addServer(t)
	chat := private(adminID)

	f.command(chat, adminID, "newserver")
	f.text(chat, adminID, "Again")
	f.text(chat, adminID, serverIP)
	f.text(chat, adminID, f.remote.URL())

	assert.Equal(t, msgCreateFailure, f.msg.last(t, "send").Text)
	assert.True(t, f.state(t, chat, adminID).IsIdle())

	stored, err := f.servers.Get(context.Background(), serverIP)
	require.NoError(t, err)
	assert.Equal(t, "Edge-1", stored.Name)
}

func TestRouter_CommandEndsDialog(t *testing.T) {
	f := newFixture(t)
	chat := private(adminID)

	f.command(chat, adminID, "newserver")
	f.command(chat, adminID, "myservers")
	assert.Equal(t, msgNoServers, f.msg.last(t, "send").Text)
	assert.True(t, f.state(t, chat, adminID).IsIdle())

	n := f.msg.count()
	f.text(chat, adminID, "Edge-1")
	assert.Empty(t, f.msg.since(n))
}

func TestRouter_Cancel(t *testing.T) {
	f := newFixture(t)
	chat := private(adminID)

	f.command(chat, adminID, "cancel")
	assert.Equal(t, msgNothingToStop, f.msg.last(t, "send").Text)

	f.command(chat, adminID, "newserver")
	f.text(chat, adminID, "Edge-1")
	f.command(chat, adminID, "cancel")
	assert.Equal(t, msgCancelled, f.msg.last(t, "send").Text)
	assert.True(t, f.state(t, chat, adminID).IsIdle())
}

func TestRouter_ScopesAreIndependent(t *testing.T) {
	f := newFixture(t)

	f.command(group, adminID, "newserver")

	// another admin in the same chat
	n := f.msg.count()
	f.text(group, admin2ID, "hello")
	assert.Empty(t, f.msg.since(n))
	assert.True(t, f.state(t, group, admin2ID).IsIdle())

	// the same admin in a private chat
	f.text(private(adminID), adminID, "hello")
	assert.Empty(t, f.msg.since(n))

	f.text(group, adminID, "Edge-1")
	out := f.msg.last(t, "prompt")
	assert.Equal(t, groupID, out.ChatID)
	assert.Equal(t, conversation.EnterIP, f.state(t, group, adminID).State)
}

func TestRouter_ConcurrentDialogsKeepOwnFields(t *testing.T) {
	f := newFixture(t)

	f.command(group, adminID, "newserver")
	f.command(group, admin2ID, "newserver")

	var wg sync.WaitGroup
	for _, u := range []struct {
		id   int64
		name string
	}{{adminID, "Edge-A"}, {admin2ID, "Edge-B"}} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			f.text(group, u.id, u.name)
			f.text(group, u.id, "999.999.999.999")
		}()
	}
	wg.Wait()

	a, b := f.state(t, group, adminID), f.state(t, group, admin2ID)
	assert.Equal(t, conversation.EnterIP, a.State)
	assert.Equal(t, conversation.EnterIP, b.State)
	assert.Equal(t, "Edge-A", a.Get(conversation.FieldServerName))
	assert.Equal(t, "Edge-B", b.Get(conversation.FieldServerName))
}

func TestRouter_SessionSurvivesRestart(t *testing.T) {
	f := newFixture(t)
	chat := private(adminID)

	f.command(chat, adminID, "newserver")
	f.text(chat, adminID, "Edge-1")

	f.router = f.newRouter()
	f.text(chat, adminID, serverIP)

	s := f.state(t, chat, adminID)
	assert.Equal(t, conversation.EnterURL, s.State)
	assert.Equal(t, "Edge-1", s.Get(conversation.FieldServerName))
	assert.Equal(t, serverIP, s.Get(conversation.FieldServerIP))
}

func TestRouter_GuestCannotManage(t *testing.T) {
	f := newFixture(t)
	f.addServer(t)

	f.press(group, guestID, transport.ActionDeleteServer, serverIP, 0)
	assert.Equal(t, msgAdminsOnly, f.msg.last(t, "answer").Text)

	_, err := f.servers.Get(context.Background(), serverIP)
	assert.NoError(t, err)

	n := f.msg.count()
	f.text(group, guestID, "hello")
	assert.Empty(t, f.msg.since(n))

	f.command(group, guestID, "newserver")
	assert.Equal(t, msgHelloUser, f.msg.last(t, "send").Text)
	assert.True(t, f.state(t, group, guestID).IsIdle())
}

func TestRouter_StaleButton(t *testing.T) {
	f := newFixture(t)

	f.router.Handle(context.Background(), transport.Event{
		Chat:     private(adminID),
		From:     models.User{ID: adminID},
		Callback: &transport.CallbackQuery{ID: "cb", MessageID: menuMsg, Invalid: true},
	})
	assert.Equal(t, msgStaleButton, f.msg.last(t, "answer").Text)

	f.press(private(adminID), adminID, transport.ActionChooseServer, "198.51.100.1", 0)
	assert.Equal(t, msgNotFound, f.msg.last(t, "send").Text)
}

func TestRouter_GroupMembershipTracked(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.text(group, guestID, "hi")

	m, err := f.rm.ChatMembers(f.db).Get(ctx, groupID, guestID)
	require.NoError(t, err)
	assert.Equal(t, models.MemberMember, m.Status)

	f.router.Handle(ctx, transport.Event{
		Chat:       group,
		From:       models.User{ID: guestID},
		NewMembers: []models.User{{ID: 50, FirstName: "Carl"}},
	})
	_, err = f.rm.ChatMembers(f.db).Get(ctx, groupID, 50)
	require.NoError(t, err)

	f.router.Handle(ctx, transport.Event{
		Chat:       group,
		From:       models.User{ID: 50},
		LeftMember: &models.User{ID: 50},
	})
	_, err = f.rm.ChatMembers(f.db).Get(ctx, groupID, 50)
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestRouter_RecoversPanic(t *testing.T) {
	f := newFixture(t)
	f.msg.panics = true

	assert.NotPanics(t, func() {
		f.command(private(adminID), adminID, "start")
	})
}

func TestRouter_Export(t *testing.T) {
	f := newFixture(t)
	chat := private(adminID)

	f.exporter.key = "exports/2025/03/07/keys-1.csv"
	f.command(chat, adminID, "export")
	assert.Equal(t, "Key inventory uploaded: exports/2025/03/07/keys-1.csv", f.msg.last(t, "send").Text)

	f.exporter.err = export.ErrDisabled
	f.command(chat, adminID, "export")
	assert.Equal(t, "Export is not configured.", f.msg.last(t, "send").Text)

	f.exporter.err = errBoom
	f.command(chat, adminID, "export")
	assert.Equal(t, msgFailure, f.msg.last(t, "send").Text)
}

func TestRouter_UnknownCommand(t *testing.T) {
	f := newFixture(t)

	f.command(private(adminID), adminID, "frobnicate")
	assert.Equal(t, msgUnknown, f.msg.last(t, "send").Text)
}
