package telegram

import (
	"strings"
	"testing"

	"github.com/dmitrijs2005/outlinebot/internal/bot/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCallbackCodec(t *testing.T) {
	tests := []struct {
		name string
		in   transport.Callback
		want string
	}{
		{"list", transport.Callback{Action: transport.ActionShowList}, "01||"},
		{"server", transport.Callback{Action: transport.ActionChooseServer, Address: "203.0.113.9"}, "06|203.0.113.9|"},
		{"key", transport.Callback{Action: transport.ActionDeleteKey, Address: "2001:db8::1", KeyID: 17}, "76|2001:db8::1|17"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := EncodeCallback(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)

			back, err := DecodeCallback(got)
			require.NoError(t, err)
			assert.Equal(t, tt.in, back)
		})
	}
}

func TestEncodeCallback_LongestAddressFits(t *testing.T) {
	c := transport.Callback{
		Action:  transport.ActionConfirmDeleteKey,
		Address: "ffff:ffff:ffff:ffff:ffff:ffff:ffff:ffff",
		KeyID:   999999,
	}
	s, err := EncodeCallback(c)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(s), maxCallbackData)
}

func TestEncodeCallback_TooLong(t *testing.T) {
	_, err := EncodeCallback(transport.Callback{Action: transport.ActionChooseServer, Address: strings.Repeat("a", 64)})
	assert.ErrorIs(t, err, ErrCallbackTooLong)
}

func TestDecodeCallback_Malformed(t *testing.T) {
	for _, s := range []string{"", "06", "06|a", "xx|a|", "00|a|", "-1|a|", "06|a|b", "06|a|1|2"} {
		_, err := DecodeCallback(s)
		assert.Error(t, err, s)
	}
}
