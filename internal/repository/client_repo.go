package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/GTDGit/gtd_systempay/internal/models"
)

const clientColumns = `id, client_id, name, api_key, sandbox_key, callback_url, callback_secret,
	ip_whitelist, is_active, created_at, updated_at`

// ClientRepository provides data access methods for clients table.
type ClientRepository struct {
	db *sqlx.DB
}

// NewClientRepository creates a new ClientRepository.
func NewClientRepository(db *sqlx.DB) *ClientRepository {
	return &ClientRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

// scanClient reads one row of clientColumns; ip_whitelist is a TEXT[].
func scanClient(row rowScanner) (*models.Client, error) {
	var c models.Client
	if err := row.Scan(
		&c.ID,
		&c.ClientID,
		&c.Name,
		&c.APIKey,
		&c.SandboxKey,
		&c.CallbackURL,
		&c.CallbackSecret,
		pq.Array(&c.IPWhitelist),
		&c.IsActive,
		&c.CreatedAt,
		&c.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *ClientRepository) getBy(ctx context.Context, where string, arg any) (*models.Client, error) {
	stmt, err := r.db.PreparexContext(ctx, "SELECT "+clientColumns+" FROM clients WHERE "+where+" LIMIT 1")
	if err != nil {
		return nil, err
	}
	defer stmt.Close()

	c, err := scanClient(stmt.QueryRowxContext(ctx, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sql.ErrNoRows
	}
	return c, err
}

// GetByAPIKey finds a client by production API key.
func (r *ClientRepository) GetByAPIKey(ctx context.Context, apiKey string) (*models.Client, error) {
	return r.getBy(ctx, "api_key = $1", apiKey)
}

// GetBySandboxKey finds a client by sandbox key.
func (r *ClientRepository) GetBySandboxKey(ctx context.Context, sandboxKey string) (*models.Client, error) {
	return r.getBy(ctx, "sandbox_key = $1", sandboxKey)
}

// GetByClientID finds a client by public client identifier.
func (r *ClientRepository) GetByClientID(ctx context.Context, clientID string) (*models.Client, error) {
	return r.getBy(ctx, "client_id = $1", clientID)
}

// GetByID finds a client by numeric id.
func (r *ClientRepository) GetByID(ctx context.Context, id int) (*models.Client, error) {
	return r.getBy(ctx, "id = $1", id)
}

// Create inserts a client and fills its id and timestamps.
func (r *ClientRepository) Create(ctx context.Context, client *models.Client) error {
	const q = `INSERT INTO clients (client_id, name, api_key, sandbox_key, callback_url, callback_secret, ip_whitelist, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at`

	return r.db.QueryRowxContext(ctx, q,
		client.ClientID,
		client.Name,
		client.APIKey,
		client.SandboxKey,
		client.CallbackURL,
		client.CallbackSecret,
		pq.Array(client.IPWhitelist),
		client.IsActive,
	).Scan(&client.ID, &client.CreatedAt, &client.UpdatedAt)
}

// Update writes every mutable column of client.
func (r *ClientRepository) Update(ctx context.Context, client *models.Client) error {
	const q = `UPDATE clients
		SET name = $1, callback_url = $2, callback_secret = $3,
			ip_whitelist = $4, is_active = $5, api_key = $6, sandbox_key = $7, updated_at = NOW()
		WHERE id = $8
		RETURNING updated_at`

	return r.db.QueryRowxContext(ctx, q,
		client.Name,
		client.CallbackURL,
		client.CallbackSecret,
		pq.Array(client.IPWhitelist),
		client.IsActive,
		client.APIKey,
		client.SandboxKey,
		client.ID,
	).Scan(&client.UpdatedAt)
}

// List returns all clients, newest first.
func (r *ClientRepository) List(ctx context.Context) ([]*models.Client, error) {
	rows, err := r.db.QueryxContext(ctx, "SELECT "+clientColumns+" FROM clients ORDER BY created_at DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var clients []*models.Client
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, err
		}
		clients = append(clients, c)
	}
	return clients, rows.Err()
}
