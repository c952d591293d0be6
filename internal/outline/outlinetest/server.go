// Package outlinetest runs an in-memory Outline management API for tests.
package outlinetest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/dmitrijs2005/outlinebot/internal/outline"
)

// Server fakes one Outline server. Its management URL is URL().
type Server struct {
	srv *httptest.Server

	mu     sync.Mutex
	nextID int
	keys   map[string]outline.AccessKey
	usage  map[string]int64
	limits map[string]int64
	fail   map[string]int
	calls  []string
}

func NewServer() *Server {
	s := &Server{
		nextID: 1,
		keys:   make(map[string]outline.AccessKey),
		usage:  make(map[string]int64),
		limits: make(map[string]int64),
		fail:   make(map[string]int),
	}
	s.srv = httptest.NewTLSServer(http.HandlerFunc(s.serve))
	return s
}

// URL is the management URL, including the secret path prefix.
func (s *Server) URL() string { return s.srv.URL + "/secret" }

func (s *Server) Close() { s.srv.Close() }

// AddKey stores a key as if it was created on the server console.
func (s *Server) AddKey(name string, usedBytes int64) outline.AccessKey {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addLocked(name, usedBytes)
}

// RemoveKey deletes a key behind the bot's back.
func (s *Server) RemoveKey(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.keys, id)
	delete(s.usage, id)
}

// RenameKey renames a key behind the bot's back.
func (s *Server) RenameKey(id, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := s.keys[id]
	k.Name = name
	s.keys[id] = k
}

func (s *Server) SetUsage(id string, bytes int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.usage[id] = bytes
}

// Fail makes every request whose "METHOD path" (path without the secret
// prefix) starts with prefix answer with status. Status 0 clears it.
func (s *Server) Fail(prefix string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if status == 0 {
		delete(s.fail, prefix)
		return
	}
	s.fail[prefix] = status
}

func (s *Server) Keys() []outline.AccessKey {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sortedLocked()
}

// Limit returns the data limit of a key and whether one is set.
func (s *Server) Limit(id string) (int64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.limits[id]
	return v, ok
}

// Calls lists handled requests as "METHOD path".
func (s *Server) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

func (s *Server) addLocked(name string, usedBytes int64) outline.AccessKey {
	id := strconv.Itoa(s.nextID)
	s.nextID++
	k := outline.AccessKey{
		ID:        id,
		Name:      name,
		Password:  "pw" + id,
		Port:      443,
		Method:    "chacha20-ietf-poly1305",
		AccessURL: "ss://key" + id + "@203.0.113.9:443/?outline=1",
	}
	s.keys[id] = k
	if usedBytes > 0 {
		s.usage[id] = usedBytes
	}
	return k
}

func (s *Server) sortedLocked() []outline.AccessKey {
	out := make([]outline.AccessKey, 0, len(s.keys))
	for _, k := range s.keys {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool {
		a, _ := strconv.Atoi(out[i].ID)
		b, _ := strconv.Atoi(out[j].ID)
		return a < b
	})
	return out
}

func (s *Server) serve(w http.ResponseWriter, r *http.Request) {
	path, ok := strings.CutPrefix(r.URL.Path, "/secret")
	if !ok {
		http.NotFound(w, r)
		return
	}
	call := r.Method + " " + path

	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, call)

	for prefix, status := range s.fail {
		if strings.HasPrefix(call, prefix) {
			w.WriteHeader(status)
			return
		}
	}

	switch {
	case call == "GET /access-keys/":
		writeJSON(w, http.StatusOK, map[string]any{"accessKeys": s.sortedLocked()})
	case call == "POST /access-keys/":
		writeJSON(w, http.StatusCreated, s.addLocked("", 0))
	case call == "GET /metrics/transfer":
		writeJSON(w, http.StatusOK, map[string]any{"bytesTransferredByUserId": s.usage})
	case strings.HasPrefix(path, "/access-keys/"):
		s.serveKey(w, r, strings.TrimPrefix(path, "/access-keys/"))
	default:
		http.NotFound(w, r)
	}
}

func (s *Server) serveKey(w http.ResponseWriter, r *http.Request, rest string) {
	id, sub, _ := strings.Cut(rest, "/")
	k, ok := s.keys[id]
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	switch {
	case sub == "" && r.Method == http.MethodDelete:
		delete(s.keys, id)
		delete(s.usage, id)
		delete(s.limits, id)
	case sub == "name" && r.Method == http.MethodPut:
		var body struct {
			Name string `json:"name"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		k.Name = body.Name
		s.keys[id] = k
	case sub == "data-limit" && r.Method == http.MethodPut:
		var body struct {
			Limit struct {
				Bytes int64 `json:"bytes"`
			} `json:"limit"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Limit.Bytes < 0 {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		s.limits[id] = body.Limit.Bytes
	case sub == "data-limit" && r.Method == http.MethodDelete:
		delete(s.limits, id)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
