package handlers

import (
	"fmt"
	"strings"

	"github.com/dmitrijs2005/outlinebot/internal/bot/models"
	"github.com/dmitrijs2005/outlinebot/internal/bot/transport"
	"github.com/dmitrijs2005/outlinebot/internal/shared"
)

const (
	msgHelloAdmin    = "Hello, admin!"
	msgHelloUser     = "Hello, user!"
	msgAdminsOnly    = "Only admins can manage servers."
	msgStaleButton   = "This button is out of date."
	msgFailure       = "Something went wrong.\nPlease issue /myservers command again."
	msgCreateFailure = "Something went wrong.\nPlease issue /newserver command again."
	msgNotFound      = "Not found, it may have been deleted.\nPlease issue /myservers command again."
	msgRemoteFailure = "The Outline server did not respond.\nPlease try again later."
	msgCancelled     = "OK, cancelled."
	msgNothingToStop = "Nothing to cancel."
	msgUnknown       = "Unknown command.\n\n" + msgCommands
	msgCommands      = "/newserver - add an Outline server\n/myservers - manage servers and keys\n/export - upload the key inventory\n/cancel - stop the current dialog"

	msgEnterName     = "Please enter server name."
	msgEnterIP       = "Please enter server IP address."
	msgWrongIP       = "Wrong IP address.\nPlease enter correct server IP address."
	msgWrongURL      = "Wrong server manage url.\nPlease enter correct server manage url."
	msgEnterKeyName  = "Please enter key name."
	msgWrongLimit    = "Wrong size.\nPlease send a size like 500MB or 10GB, or 0 to remove the limit."
	msgNoPrivateChat = "I could not message you privately. Please start a chat with me and press the button again."

	msgChooseServer = "Choose a server from the list below:"
	msgNoServers    = "No servers yet. Use /newserver to add one."
)

func activeMark(active bool) string {
	if active {
		return "✅"
	}
	return "🚫"
}

func button(text string, action Action, address string, keyID int64) transport.Button {
	return transport.Button{Text: text, Callback: transport.Callback{Action: action, Address: address, KeyID: keyID}}
}

// grid lays buttons out two per row.
func grid(buttons []transport.Button) transport.Keyboard {
	var kb transport.Keyboard
	for i := 0; i < len(buttons); i += 2 {
		end := min(i+2, len(buttons))
		kb = append(kb, buttons[i:end])
	}
	return kb
}

func serverListView(servers []models.Server) (string, transport.Keyboard) {
	if len(servers) == 0 {
		return msgNoServers, nil
	}
	buttons := make([]transport.Button, 0, len(servers))
	for _, s := range servers {
		buttons = append(buttons, button(activeMark(s.IsActive)+" "+s.Name, transport.ActionChooseServer, s.Address, 0))
	}
	return msgChooseServer, grid(buttons)
}

func serverInfo(s *models.Server) string {
	return fmt.Sprintf("Server name: %s\nIP address: %s\nServer url: %s\nState: %s Active\n",
		s.Name, s.Address, s.URL, activeMark(s.IsActive))
}

func serverActionView(s *models.Server) (string, transport.Keyboard) {
	text := fmt.Sprintf("Now server is: %s (%s)\nWhat do you want to do?", s.Name, s.Address)
	return text, transport.Keyboard{
		transport.Row(
			button("📝 Edit", transport.ActionEditServer, s.Address, 0),
			button("🗑 Delete", transport.ActionConfirmDelete, s.Address, 0),
			button("🔑 Keys", transport.ActionShowKeys, s.Address, 0),
		),
		transport.Row(button("<< Back to servers list", transport.ActionShowList, "", 0)),
	}
}

func editServerView(s *models.Server) (string, transport.Keyboard) {
	return serverInfo(s), transport.Keyboard{
		transport.Row(
			button("📝 Name", transport.ActionEditName, s.Address, 0),
			button("📝 IP", transport.ActionEditIP, s.Address, 0),
			button("📝 url", transport.ActionEditURL, s.Address, 0),
			button(activeMark(s.IsActive)+" Active", transport.ActionToggleState, s.Address, 0),
		),
		transport.Row(button("<< Back to server", transport.ActionChooseServer, s.Address, 0)),
	}
}

func confirmKeyboard(address string, keyID int64, yes, no Action) transport.Keyboard {
	return transport.Keyboard{transport.Row(
		button("Yes", yes, address, keyID),
		button("No", no, address, keyID),
	)}
}

func confirmDeleteServerView(s *models.Server) (string, transport.Keyboard) {
	return "Are you sure delete the server?\n" + serverInfo(s),
		confirmKeyboard(s.Address, 0, transport.ActionDeleteServer, transport.ActionChooseServer)
}

func keyButtonText(k *models.Key) string {
	if k.Name == "" {
		return "<...>"
	}
	return k.Name
}

// keysView lists the keys of a server. stale marks a list that could not
// be refreshed from the server.
func keysView(s *models.Server, keys []models.Key, stale bool) (string, transport.Keyboard) {
	var b strings.Builder
	b.WriteString("Keys on " + s.Name)
	if stale {
		b.WriteString("\n\n⚠️ The server is unreachable, showing the last known keys.")
	}

	buttons := make([]transport.Button, 0, len(keys))
	for i := range keys {
		buttons = append(buttons, button(keyButtonText(&keys[i]), transport.ActionChooseKey, s.Address, keys[i].KeyID))
	}
	kb := grid(buttons)
	kb = append(kb,
		transport.Row(button("🔑 New key", transport.ActionNewKey, s.Address, 0)),
		transport.Row(button("<< Back to server", transport.ActionChooseServer, s.Address, 0)),
	)
	return b.String(), kb
}

func keyInfo(k *models.Key) string {
	return fmt.Sprintf("Key name: %s\nUsed bytes: %s\n", k.DisplayName(), shared.FormatBytes(k.UsedBytes))
}

func keyActionView(k *models.Key) (string, transport.Keyboard) {
	return keyInfo(k) + "What do you want to do?", transport.Keyboard{
		transport.Row(
			button("🔑 Send key", transport.ActionSendKey, k.ServerAddress, k.KeyID),
			button("📝 Rename", transport.ActionRenameKey, k.ServerAddress, k.KeyID),
			button("📶 Limit", transport.ActionKeyLimit, k.ServerAddress, k.KeyID),
			button("🗑 Delete", transport.ActionConfirmDeleteKey, k.ServerAddress, k.KeyID),
		),
		transport.Row(button("<< Back to keys", transport.ActionShowKeys, k.ServerAddress, 0)),
	}
}

func confirmDeleteKeyView(k *models.Key) (string, transport.Keyboard) {
	return keyInfo(k) + "\nAre you sure to delete this key?",
		confirmKeyboard(k.ServerAddress, k.KeyID, transport.ActionDeleteKey, transport.ActionChooseKey)
}

// inviteText is the message a key holder gets.
func inviteText(accessURL string) string {
	return "You are invited to connect to my Outline server. " +
		"Use it to access the open internet, no matter where you are. " +
		"Follow the instructions on the invitation link below to download the Outline app and get connected.\n\n" +
		shared.InviteURL(accessURL) + "\n\n" +
		"-----\n\n" +
		"Having trouble accessing the invitation link?\n\n" +
		"Copy your access key: " + accessURL + "\n" +
		"Follow our instructions on GitHub: https://github.com/Jigsaw-Code/outline-client/blob/master/docs/"
}
