// Package services contains the bot business logic on top of the
// repositories: the server registry, key reconciliation against Outline,
// membership tracking and the key inventory export.
package services

import (
	"context"
	"database/sql"
	"fmt"
	"net/netip"
	"net/url"
	"strings"

	"github.com/dmitrijs2005/outlinebot/internal/bot/models"
	"github.com/dmitrijs2005/outlinebot/internal/bot/repositories/repomanager"
	"github.com/dmitrijs2005/outlinebot/internal/common"
)

// ParseAddress validates an IPv4 or IPv6 address and returns its canonical
// text form.
func ParseAddress(s string) (string, error) {
	addr, err := netip.ParseAddr(strings.TrimSpace(s))
	if err != nil || addr.Zone() != "" {
		return "", fmt.Errorf("%w: invalid ip address %q", common.ErrorValidation, s)
	}
	return addr.Unmap().String(), nil
}

// ParseManagementURL accepts absolute http or https URLs with a host.
func ParseManagementURL(s string) (string, error) {
	s = strings.TrimSpace(s)
	u, err := url.Parse(s)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", fmt.Errorf("%w: invalid management url %q", common.ErrorValidation, s)
	}
	return s, nil
}

// ServerService manages the registry of Outline servers.
type ServerService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
}

func NewServerService(db *sql.DB, rm repomanager.RepositoryManager) *ServerService {
	return &ServerService{db: db, repomanager: rm}
}

// Create registers an active server. An empty name becomes
// common.DefaultServerName. A registered address yields
// common.ErrorAlreadyExists.
func (s *ServerService) Create(ctx context.Context, name, address, apiURL string) (*models.Server, error) {
	addr, err := ParseAddress(address)
	if err != nil {
		return nil, err
	}
	u, err := ParseManagementURL(apiURL)
	if err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = common.DefaultServerName
	}

	server := &models.Server{Address: addr, URL: u, Name: name, IsActive: true}
	if err := s.repomanager.Servers(s.db).Create(ctx, server); err != nil {
		return nil, fmt.Errorf("error creating server: %w", err)
	}
	return server, nil
}

func (s *ServerService) Get(ctx context.Context, address string) (*models.Server, error) {
	return s.repomanager.Servers(s.db).Get(ctx, address)
}

// List returns all servers ordered by name.
func (s *ServerService) List(ctx context.Context) ([]models.Server, error) {
	return s.repomanager.Servers(s.db).List(ctx)
}

func (s *ServerService) Rename(ctx context.Context, address, name string) (*models.Server, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: empty server name", common.ErrorValidation)
	}
	return s.update(ctx, address, models.ServerUpdate{Name: &name})
}

// ChangeAddress moves the server to a new address. Its keys follow through
// the cascading foreign key.
func (s *ServerService) ChangeAddress(ctx context.Context, address, newAddress string) (*models.Server, error) {
	addr, err := ParseAddress(newAddress)
	if err != nil {
		return nil, err
	}
	return s.update(ctx, address, models.ServerUpdate{Address: &addr})
}

func (s *ServerService) ChangeURL(ctx context.Context, address, apiURL string) (*models.Server, error) {
	u, err := ParseManagementURL(apiURL)
	if err != nil {
		return nil, err
	}
	return s.update(ctx, address, models.ServerUpdate{URL: &u})
}

// ToggleActive flips the active flag. Inactive servers are skipped by the
// periodic reconciliation.
func (s *ServerService) ToggleActive(ctx context.Context, address string) (*models.Server, error) {
	server, err := s.Get(ctx, address)
	if err != nil {
		return nil, err
	}
	active := !server.IsActive
	return s.update(ctx, address, models.ServerUpdate{IsActive: &active})
}

// Delete removes the server and, by cascade, its keys.
func (s *ServerService) Delete(ctx context.Context, address string) error {
	if err := s.repomanager.Servers(s.db).Delete(ctx, address); err != nil {
		return fmt.Errorf("error deleting server: %w", err)
	}
	return nil
}

func (s *ServerService) update(ctx context.Context, address string, upd models.ServerUpdate) (*models.Server, error) {
	server, err := s.repomanager.Servers(s.db).Update(ctx, address, upd)
	if err != nil {
		return nil, fmt.Errorf("error updating server: %w", err)
	}
	return server, nil
}
