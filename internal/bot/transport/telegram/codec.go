package telegram

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/outlinebot/internal/bot/transport"
)

// maxCallbackData is the Bot API limit for callback_data, in bytes.
const maxCallbackData = 64

// ErrCallbackTooLong is returned when a button payload exceeds the limit.
var ErrCallbackTooLong = errors.New("callback data too long")

// EncodeCallback packs a callback as "action|address|key_id". "|" is used
// because IPv6 addresses contain colons. A zero key id is left empty.
func EncodeCallback(c transport.Callback) (string, error) {
	key := ""
	if c.KeyID != 0 {
		key = strconv.FormatInt(c.KeyID, 10)
	}
	s := fmt.Sprintf("%02d|%s|%s", int(c.Action), c.Address, key)
	if len(s) > maxCallbackData {
		return "", fmt.Errorf("%w: %d bytes", ErrCallbackTooLong, len(s))
	}
	return s, nil
}

func DecodeCallback(s string) (transport.Callback, error) {
	parts := strings.Split(s, "|")
	if len(parts) != 3 {
		return transport.Callback{}, fmt.Errorf("malformed callback data %q", s)
	}

	action, err := strconv.Atoi(parts[0])
	if err != nil || action <= 0 {
		return transport.Callback{}, fmt.Errorf("malformed callback action %q", parts[0])
	}

	c := transport.Callback{Action: transport.Action(action), Address: parts[1]}
	if parts[2] != "" {
		c.KeyID, err = strconv.ParseInt(parts[2], 10, 64)
		if err != nil {
			return transport.Callback{}, fmt.Errorf("malformed callback key id %q", parts[2])
		}
	}
	return c, nil
}
