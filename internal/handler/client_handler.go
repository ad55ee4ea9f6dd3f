package handler

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/GTDGit/gtd_systempay/internal/service"
	"github.com/GTDGit/gtd_systempay/internal/utils"
)

// ClientHandler handles client management HTTP endpoints.
type ClientHandler struct {
	clientService *service.ClientService
}

// NewClientHandler constructs a ClientHandler.
func NewClientHandler(clientService *service.ClientService) *ClientHandler {
	return &ClientHandler{clientService: clientService}
}

// CreateClient handles POST /v1/admin/clients
func (h *ClientHandler) CreateClient(c *gin.Context) {
	var req service.CreateClientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, 400, "INVALID_REQUEST", "Invalid request body")
		return
	}

	client, err := h.clientService.CreateClient(c.Request.Context(), &req)
	if err != nil {
		h.handleError(c, err, "Failed to create client")
		return
	}

	utils.Success(c, 201, "Client created successfully", client)
}

// GetClient handles GET /v1/admin/clients/:id
func (h *ClientHandler) GetClient(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		utils.Error(c, 400, "INVALID_ID", "Invalid client ID")
		return
	}

	client, err := h.clientService.GetClient(c.Request.Context(), id)
	if err != nil {
		h.handleError(c, err, "Failed to retrieve client")
		return
	}

	utils.Success(c, 200, "Client retrieved", client)
}

// GetClientByClientID handles GET /v1/admin/clients/by-client-id/:client_id
func (h *ClientHandler) GetClientByClientID(c *gin.Context) {
	client, err := h.clientService.GetClientByClientID(c.Request.Context(), c.Param("client_id"))
	if err != nil {
		h.handleError(c, err, "Failed to retrieve client")
		return
	}

	utils.Success(c, 200, "Client retrieved", client)
}

// ListClients handles GET /v1/admin/clients
func (h *ClientHandler) ListClients(c *gin.Context) {
	clients, err := h.clientService.ListClients(c.Request.Context())
	if err != nil {
		h.handleError(c, err, "Failed to retrieve clients")
		return
	}

	utils.Success(c, 200, "Clients retrieved", gin.H{
		"clients": clients,
		"total":   len(clients),
	})
}

// UpdateClient handles PUT /v1/admin/clients/:id
func (h *ClientHandler) UpdateClient(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		utils.Error(c, 400, "INVALID_ID", "Invalid client ID")
		return
	}

	var req service.UpdateClientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, 400, "INVALID_REQUEST", "Invalid request body")
		return
	}

	client, err := h.clientService.UpdateClient(c.Request.Context(), id, &req)
	if err != nil {
		h.handleError(c, err, "Failed to update client")
		return
	}

	utils.Success(c, 200, "Client updated successfully", client)
}

// RegenerateKeys handles POST /v1/admin/clients/:id/regenerate
func (h *ClientHandler) RegenerateKeys(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		utils.Error(c, 400, "INVALID_ID", "Invalid client ID")
		return
	}

	var req struct {
		KeyType string `json:"key_type" binding:"required"` // "live", "sandbox", or "webhook"
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, 400, "INVALID_REQUEST", "key_type is required")
		return
	}

	client, err := h.clientService.RegenerateKeys(c.Request.Context(), id, req.KeyType)
	if err != nil {
		h.handleError(c, err, "Failed to regenerate keys")
		return
	}

	utils.Success(c, 200, "Keys regenerated successfully", client)
}

func (h *ClientHandler) handleError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, utils.ErrClientNotFound):
		utils.Error(c, 404, "CLIENT_NOT_FOUND", "Client not found")
	case errors.Is(err, utils.ErrClientExists):
		utils.Error(c, 400, "CLIENT_EXISTS", "client_id already exists")
	case errors.Is(err, service.ErrInvalidKeyType):
		utils.Error(c, 400, "INVALID_KEY_TYPE", "key_type must be 'live', 'sandbox', or 'webhook'")
	default:
		log.Error().Err(err).Msg(fallback)
		utils.Error(c, 500, "INTERNAL_ERROR", fallback)
	}
}
