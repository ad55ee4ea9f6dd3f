package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/GTDGit/gtd_systempay/internal/models"
	"github.com/GTDGit/gtd_systempay/internal/utils"
)

// ClientKeyRepository looks clients up by API key.
type ClientKeyRepository interface {
	GetByAPIKey(ctx context.Context, apiKey string) (*models.Client, error)
	GetBySandboxKey(ctx context.Context, sandboxKey string) (*models.Client, error)
}

// AuthService provides methods for authenticating and authorizing clients.
type AuthService struct {
	clientRepo ClientKeyRepository
}

// NewAuthService constructs a new AuthService.
func NewAuthService(clientRepo ClientKeyRepository) *AuthService {
	return &AuthService{clientRepo: clientRepo}
}

// ValidateAPIKey verifies the provided token against live and sandbox keys.
// Returns the client and whether the key is a sandbox key. Sandbox keys
// open payments in TEST mode.
func (s *AuthService) ValidateAPIKey(ctx context.Context, token string) (*models.Client, bool, error) {
	if token == "" {
		return nil, false, utils.ErrInvalidToken
	}

	// Try live key first
	if c, err := s.clientRepo.GetByAPIKey(ctx, token); err == nil && c != nil {
		return c, false, nil
	} else if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, false, err
	}

	if c, err := s.clientRepo.GetBySandboxKey(ctx, token); err == nil && c != nil {
		return c, true, nil
	} else if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, false, err
	}

	return nil, false, utils.ErrInvalidToken
}

// ValidateClientID checks if the provided clientID matches the client's registered ID.
func (s *AuthService) ValidateClientID(client *models.Client, clientID string) bool {
	if client == nil {
		return false
	}
	return client.ClientID == clientID
}

// IsIPAllowed returns true if the provided IP is present in the client's
// whitelist. An empty whitelist allows every address.
func (s *AuthService) IsIPAllowed(client *models.Client, ip string) bool {
	if client == nil {
		return false
	}
	if len(client.IPWhitelist) == 0 {
		return true
	}
	for _, allowed := range client.IPWhitelist {
		if allowed == ip {
			return true
		}
	}
	return false
}
