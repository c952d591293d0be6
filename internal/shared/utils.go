// Package shared holds small formatting helpers used by the chat views and
// the maintenance CLI.
package shared

import (
	"fmt"
	"math"
	"strings"

	"github.com/dustin/go-humanize"
)

// FormatBytes renders a byte count in SI units, e.g. 83 MB. Negative
// values are shown as 0 B.
func FormatBytes(n int64) string {
	if n < 0 {
		n = 0
	}
	return humanize.Bytes(uint64(n))
}

// ParseBytes reads a size such as "500MB", "10 GiB" or "2048". The result
// must fit in an int64.
func ParseBytes(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty size")
	}
	v, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, err
	}
	if v > math.MaxInt64 {
		return 0, fmt.Errorf("size too large: %s", s)
	}
	return int64(v), nil
}

// InviteURL is the Outline landing page that imports accessURL into the
// client app.
func InviteURL(accessURL string) string {
	return "https://s3.amazonaws.com/outline-vpn/invite.html#" + urlQuote(accessURL)
}

// urlQuote percent-encodes everything except ASCII letters, digits and
// "_.-~/".
func urlQuote(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
			b.WriteByte(c)
		case strings.IndexByte("_.-~/", c) >= 0:
			b.WriteByte(c)
		default:
			fmt.Fprintf(&b, "%%%02X", c)
		}
	}
	return b.String()
}
