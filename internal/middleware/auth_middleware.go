package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/GTDGit/gtd_systempay/internal/models"
	"github.com/GTDGit/gtd_systempay/internal/utils"
)

// ClientAuthenticator resolves API keys to clients. *service.AuthService
// implements it.
type ClientAuthenticator interface {
	ValidateAPIKey(ctx context.Context, token string) (*models.Client, bool, error)
	ValidateClientID(client *models.Client, clientID string) bool
	IsIPAllowed(client *models.Client, ip string) bool
}

// AuthMiddleware handles API key authentication, client validation, and IP checks.
type AuthMiddleware struct {
	authService ClientAuthenticator
	rateLimiter *InvalidAuthRateLimiter
}

// NewAuthMiddleware constructs a new AuthMiddleware.
func NewAuthMiddleware(authService ClientAuthenticator, rateLimiter *InvalidAuthRateLimiter) *AuthMiddleware {
	return &AuthMiddleware{
		authService: authService,
		rateLimiter: rateLimiter,
	}
}

// Handle returns a Gin middleware function that enforces authentication.
func (m *AuthMiddleware) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			m.handleAuthError(c, "INVALID_TOKEN", "Missing or invalid authorization header")
			return
		}
		token := strings.TrimPrefix(authHeader, "Bearer ")

		// Live key signs in the configured mode, sandbox key always in TEST
		client, isSandbox, err := m.authService.ValidateAPIKey(c.Request.Context(), token)
		if err != nil || client == nil {
			m.handleAuthError(c, "INVALID_TOKEN", "Invalid API token")
			return
		}

		if !client.IsActive {
			m.handleAuthError(c, "INVALID_CLIENT", "Client is not active")
			return
		}

		if !m.authService.ValidateClientID(client, c.GetHeader("X-Client-Id")) {
			m.handleAuthError(c, "INVALID_CLIENT", "Client ID mismatch")
			return
		}

		if !m.authService.IsIPAllowed(client, c.ClientIP()) {
			m.handleAuthError(c, "INVALID_IP", "Request from unauthorized IP address")
			return
		}

		c.Set("client", client)
		c.Set("is_sandbox", isSandbox)
		c.Set("client_id", client.ID)

		c.Next()
	}
}

func (m *AuthMiddleware) handleAuthError(c *gin.Context, code, message string) {
	if m.rateLimiter != nil && !m.rateLimiter.Allow(c.ClientIP()) {
		utils.Error(c, 429, "TOO_MANY_REQUESTS", "Too many invalid authentication attempts")
		c.Abort()
		return
	}

	utils.Error(c, 401, code, message)
	c.Abort()
}

// GetClient returns the authenticated client from context.
func GetClient(c *gin.Context) *models.Client {
	v, ok := c.Get("client")
	if !ok {
		return nil
	}
	client, _ := v.(*models.Client)
	return client
}

// IsSandbox indicates whether the request is in sandbox mode.
func IsSandbox(c *gin.Context) bool {
	return c.GetBool("is_sandbox")
}
