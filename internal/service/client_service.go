package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/GTDGit/gtd_systempay/internal/models"
	"github.com/GTDGit/gtd_systempay/internal/utils"
)

// ClientRepository stores order systems.
type ClientRepository interface {
	GetByID(ctx context.Context, id int) (*models.Client, error)
	GetByClientID(ctx context.Context, clientID string) (*models.Client, error)
	Create(ctx context.Context, client *models.Client) error
	Update(ctx context.Context, client *models.Client) error
	List(ctx context.Context) ([]*models.Client, error)
}

// ClientService handles client business logic.
type ClientService struct {
	clientRepo ClientRepository
}

// NewClientService constructs a ClientService.
func NewClientService(clientRepo ClientRepository) *ClientService {
	return &ClientService{clientRepo: clientRepo}
}

// CreateClientRequest represents the request to create a new client.
type CreateClientRequest struct {
	ClientID    string   `json:"clientId" binding:"required"`
	Name        string   `json:"name" binding:"required"`
	CallbackURL string   `json:"callbackUrl" binding:"omitempty,url"`
	IPWhitelist []string `json:"ipWhitelist"`
	IsActive    *bool    `json:"isActive"`
}

// UpdateClientRequest represents the request to update a client.
type UpdateClientRequest struct {
	Name        string   `json:"name"`
	CallbackURL string   `json:"callbackUrl" binding:"omitempty,url"`
	IPWhitelist []string `json:"ipWhitelist"`
	IsActive    *bool    `json:"isActive"`
}

// CreateClient creates a new client with auto-generated keys.
func (s *ClientService) CreateClient(ctx context.Context, req *CreateClientRequest) (*models.Client, error) {
	existing, err := s.clientRepo.GetByClientID(ctx, req.ClientID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if existing != nil {
		return nil, utils.ErrClientExists
	}

	liveKey, err := utils.GenerateLiveKey()
	if err != nil {
		return nil, err
	}
	sandboxKey, err := utils.GenerateSandboxKey()
	if err != nil {
		return nil, err
	}
	webhookSecret, err := utils.GenerateWebhookSecret()
	if err != nil {
		return nil, err
	}

	// default active true if not provided
	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}

	client := &models.Client{
		ClientID:       req.ClientID,
		Name:           req.Name,
		APIKey:         liveKey,
		SandboxKey:     sandboxKey,
		CallbackURL:    req.CallbackURL,
		CallbackSecret: webhookSecret,
		IPWhitelist:    req.IPWhitelist,
		IsActive:       active,
	}
	if client.IPWhitelist == nil {
		client.IPWhitelist = []string{}
	}

	if err := s.clientRepo.Create(ctx, client); err != nil {
		return nil, err
	}
	return client, nil
}

func (s *ClientService) get(ctx context.Context, id int) (*models.Client, error) {
	client, err := s.clientRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, utils.ErrClientNotFound
		}
		return nil, err
	}
	return client, nil
}

// GetClient retrieves a client by ID.
func (s *ClientService) GetClient(ctx context.Context, id int) (*models.Client, error) {
	return s.get(ctx, id)
}

// GetClientByClientID retrieves a client by client_id.
func (s *ClientService) GetClientByClientID(ctx context.Context, clientID string) (*models.Client, error) {
	client, err := s.clientRepo.GetByClientID(ctx, clientID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, utils.ErrClientNotFound
		}
		return nil, err
	}
	return client, nil
}

// ListClients retrieves all clients.
func (s *ClientService) ListClients(ctx context.Context) ([]*models.Client, error) {
	return s.clientRepo.List(ctx)
}

// UpdateClient updates a client.
func (s *ClientService) UpdateClient(ctx context.Context, id int, req *UpdateClientRequest) (*models.Client, error) {
	client, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != "" {
		client.Name = req.Name
	}
	if req.CallbackURL != "" {
		client.CallbackURL = req.CallbackURL
	}
	if req.IPWhitelist != nil {
		client.IPWhitelist = req.IPWhitelist
	}
	if req.IsActive != nil {
		client.IsActive = *req.IsActive
	}

	if err := s.clientRepo.Update(ctx, client); err != nil {
		return nil, err
	}
	return client, nil
}

// ErrInvalidKeyType is returned by RegenerateKeys for an unknown key type.
var ErrInvalidKeyType = errors.New("INVALID_KEY_TYPE")

// RegenerateKeys replaces the live key, the sandbox key or the webhook secret.
func (s *ClientService) RegenerateKeys(ctx context.Context, id int, keyType string) (*models.Client, error) {
	client, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}

	switch keyType {
	case "live":
		client.APIKey, err = utils.GenerateLiveKey()
	case "sandbox":
		client.SandboxKey, err = utils.GenerateSandboxKey()
	case "webhook":
		client.CallbackSecret, err = utils.GenerateWebhookSecret()
	default:
		return nil, ErrInvalidKeyType
	}
	if err != nil {
		return nil, err
	}

	if err := s.clientRepo.Update(ctx, client); err != nil {
		return nil, err
	}
	return client, nil
}
