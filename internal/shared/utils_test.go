package shared

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{0, "0 B"},
		{-5, "0 B"},
		{999, "999 B"},
		{1500, "1.5 kB"},
		{82854982, "83 MB"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatBytes(tt.in), tt.in)
	}
}

func TestParseBytes(t *testing.T) {
	tests := []struct {
		in   string
		want int64
	}{
		{"2048", 2048},
		{"500MB", 500_000_000},
		{"10 GB", 10_000_000_000},
		{"1 GiB", 1 << 30},
		{" 42 mb ", 42_000_000},
	}
	for _, tt := range tests {
		got, err := ParseBytes(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	for _, bad := range []string{"", "abc", "10 parsecs"} {
		_, err := ParseBytes(bad)
		assert.Error(t, err, bad)
	}
}

func TestInviteURL(t *testing.T) {
	got := InviteURL("ss://abc@203.0.113.9:443/?outline=1")
	assert.Equal(t, "https://s3.amazonaws.com/outline-vpn/invite.html#ss%3A//abc%40203.0.113.9%3A443/%3Foutline%3D1", got)
}
