// Package outline is a client for the Outline server management REST API.
//
// Every Outline server exposes its API under a secret URL (the "management
// url" shown by the installer). Paths below are relative to that URL:
//
//	GET    /access-keys/                 list keys
//	POST   /access-keys/                 create a key
//	DELETE /access-keys/{id}             delete a key
//	PUT    /access-keys/{id}/name        rename a key
//	PUT    /access-keys/{id}/data-limit  set a transfer limit
//	DELETE /access-keys/{id}/data-limit  remove the limit
//	GET    /metrics/transfer             bytes used per key
package outline

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dmitrijs2005/outlinebot/internal/common"
)

const maxResponseSize = 8 << 20

// AccessKey is a key as reported by the server. IDs are numeric strings.
type AccessKey struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Password  string `json:"password"`
	Port      int    `json:"port"`
	Method    string `json:"method"`
	AccessURL string `json:"accessUrl"`
}

type accessKeysResponse struct {
	AccessKeys []AccessKey `json:"accessKeys"`
}

type transferResponse struct {
	BytesTransferredByUserID map[string]int64 `json:"bytesTransferredByUserId"`
}

// StatusError is returned when the server answers with a status other than
// the one the operation expects. It matches common.ErrRemoteUnavailable.
type StatusError struct {
	Method string
	Path   string
	Status int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("outline: %s %s: unexpected status %d", e.Method, e.Path, e.Status)
}

func (e *StatusError) Unwrap() error { return common.ErrRemoteUnavailable }

// NewHTTPClient returns the client shared by all Outline servers. Outline
// installs self-signed certificates, so verification is usually disabled.
func NewHTTPClient(insecure bool) *http.Client {
	tr := http.DefaultTransport.(*http.Transport).Clone()
	if insecure {
		tr.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec
	}
	return &http.Client{Transport: tr}
}

// Factory hands out clients bound to one management URL. All of them share
// the same http.Client and per-call timeout.
type Factory struct {
	hc      *http.Client
	timeout time.Duration
}

func NewFactory(hc *http.Client, timeout time.Duration) *Factory {
	return &Factory{hc: hc, timeout: timeout}
}

// Client returns a client for the server managed at apiURL.
func (f *Factory) Client(apiURL string) *Client {
	return NewClient(apiURL, f.hc, f.timeout)
}

type Client struct {
	apiURL  string
	hc      *http.Client
	timeout time.Duration
}

func NewClient(apiURL string, hc *http.Client, timeout time.Duration) *Client {
	if hc == nil {
		hc = http.DefaultClient
	}
	return &Client{apiURL: strings.TrimRight(apiURL, "/"), hc: hc, timeout: timeout}
}

// ListKeys returns all access keys of the server.
func (c *Client) ListKeys(ctx context.Context) ([]AccessKey, error) {
	var resp accessKeysResponse
	if err := c.do(ctx, http.MethodGet, "/access-keys/", nil, http.StatusOK, &resp); err != nil {
		return nil, err
	}
	if resp.AccessKeys == nil {
		return nil, fmt.Errorf("%w: outline: access key list missing", common.ErrRemoteUnavailable)
	}
	return resp.AccessKeys, nil
}

// TransferredBytes returns used bytes by key id. Keys that never carried
// traffic are absent.
func (c *Client) TransferredBytes(ctx context.Context) (map[string]int64, error) {
	var resp transferResponse
	if err := c.do(ctx, http.MethodGet, "/metrics/transfer", nil, http.StatusOK, &resp); err != nil {
		return nil, err
	}
	if resp.BytesTransferredByUserID == nil {
		return nil, fmt.Errorf("%w: outline: transfer metrics missing", common.ErrRemoteUnavailable)
	}
	return resp.BytesTransferredByUserID, nil
}

// CreateKey issues a new key with the server default name.
func (c *Client) CreateKey(ctx context.Context) (*AccessKey, error) {
	var key AccessKey
	if err := c.do(ctx, http.MethodPost, "/access-keys/", nil, http.StatusCreated, &key); err != nil {
		return nil, err
	}
	if key.ID == "" {
		return nil, fmt.Errorf("%w: outline: created key has no id", common.ErrRemoteUnavailable)
	}
	return &key, nil
}

func (c *Client) DeleteKey(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, keyPath(id), nil, http.StatusNoContent, nil)
}

func (c *Client) RenameKey(ctx context.Context, id, name string) error {
	body := map[string]string{"name": name}
	return c.do(ctx, http.MethodPut, keyPath(id)+"/name", body, http.StatusNoContent, nil)
}

// SetDataLimit caps the traffic of a key at limit bytes.
func (c *Client) SetDataLimit(ctx context.Context, id string, limit int64) error {
	body := map[string]any{"limit": map[string]int64{"bytes": limit}}
	return c.do(ctx, http.MethodPut, keyPath(id)+"/data-limit", body, http.StatusNoContent, nil)
}

func (c *Client) ClearDataLimit(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, keyPath(id)+"/data-limit", nil, http.StatusNoContent, nil)
}

func keyPath(id string) string {
	return "/access-keys/" + url.PathEscape(id)
}

// do sends one request under the client timeout. A status other than want
// yields a *StatusError; transport and decoding failures are wrapped with
// common.ErrRemoteUnavailable.
func (c *Client) do(ctx context.Context, method, path string, in any, want int, out any) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("outline: encoding request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.apiURL+path, body)
	if err != nil {
		return fmt.Errorf("%w: outline: %v", common.ErrRemoteUnavailable, err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("%w: outline: %s %s: %w", common.ErrRemoteUnavailable, method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != want {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseSize))
		return &StatusError{Method: method, Path: path, Status: resp.StatusCode}
	}

	if out == nil {
		return nil
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseSize)).Decode(out); err != nil {
		return fmt.Errorf("%w: outline: decoding %s %s: %w", common.ErrRemoteUnavailable, method, path, err)
	}
	return nil
}
