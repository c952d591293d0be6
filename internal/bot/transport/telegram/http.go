package telegram

import (
	"net/http"
	"time"
)

// newHTTPClient allows long polls to finish before the client gives up.
func newHTTPClient(pollTimeout time.Duration) *http.Client {
	return &http.Client{Timeout: pollTimeout + 30*time.Second}
}
