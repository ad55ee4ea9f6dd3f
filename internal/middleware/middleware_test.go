package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GTDGit/gtd_systempay/internal/models"
	"github.com/GTDGit/gtd_systempay/internal/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeAuth struct {
	clients map[string]*models.Client
	sandbox map[string]bool
	ipOK    bool
}

func (f *fakeAuth) ValidateAPIKey(_ context.Context, token string) (*models.Client, bool, error) {
	client, ok := f.clients[token]
	if !ok {
		return nil, false, utils.ErrInvalidToken
	}
	return client, f.sandbox[token], nil
}

func (f *fakeAuth) ValidateClientID(client *models.Client, clientID string) bool {
	return clientID == "" || clientID == client.ClientID
}

func (f *fakeAuth) IsIPAllowed(_ *models.Client, _ string) bool {
	return f.ipOK
}

func authRouter(auth ClientAuthenticator, limiter *InvalidAuthRateLimiter) *gin.Engine {
	r := gin.New()
	r.Use(NewAuthMiddleware(auth, limiter).Handle())
	r.GET("/me", func(c *gin.Context) {
		client := GetClient(c)
		c.JSON(200, gin.H{"clientId": client.ClientID, "sandbox": IsSandbox(c), "id": c.GetInt("client_id")})
	})
	return r
}

func get(r http.Handler, path string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware(t *testing.T) {
	shop := &models.Client{ID: 7, ClientID: "shop-7", IsActive: true}
	idle := &models.Client{ID: 8, ClientID: "shop-8"}
	auth := &fakeAuth{
		clients: map[string]*models.Client{"sp_live_a": shop, "sp_test_a": shop, "sp_live_b": idle},
		sandbox: map[string]bool{"sp_test_a": true},
		ipOK:    true,
	}
	r := authRouter(auth, nil)

	w := get(r, "/me", map[string]string{"Authorization": "Bearer sp_test_a"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"clientId":"shop-7","sandbox":true,"id":7}`, w.Body.String())

	cases := []struct {
		name    string
		headers map[string]string
		code    string
	}{
		{"missing header", nil, "INVALID_TOKEN"},
		{"not bearer", map[string]string{"Authorization": "Basic abc"}, "INVALID_TOKEN"},
		{"unknown key", map[string]string{"Authorization": "Bearer sp_live_zzz"}, "INVALID_TOKEN"},
		{"inactive", map[string]string{"Authorization": "Bearer sp_live_b"}, "INVALID_CLIENT"},
		{"client id mismatch", map[string]string{"Authorization": "Bearer sp_live_a", "X-Client-Id": "other"}, "INVALID_CLIENT"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := get(r, "/me", tc.headers)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Contains(t, w.Body.String(), tc.code)
		})
	}

	auth.ipOK = false
	w = get(r, "/me", map[string]string{"Authorization": "Bearer sp_live_a"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "INVALID_IP")
}

func TestAuthMiddlewareRateLimit(t *testing.T) {
	r := authRouter(&fakeAuth{ipOK: true}, NewInvalidAuthRateLimiter(2, time.Minute))

	for i := 0; i < 2; i++ {
		assert.Equal(t, http.StatusUnauthorized, get(r, "/me", nil).Code)
	}
	assert.Equal(t, http.StatusTooManyRequests, get(r, "/me", nil).Code)
}

func TestInvalidAuthRateLimiterWindow(t *testing.T) {
	now := time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)
	l := NewInvalidAuthRateLimiter(1, time.Minute)
	l.now = func() time.Time { return now }

	assert.True(t, l.Allow("10.0.0.1"))
	assert.False(t, l.Allow("10.0.0.1"))
	assert.True(t, l.Allow("10.0.0.2"))

	now = now.Add(2 * time.Minute)
	l.prune()
	assert.Empty(t, l.attempts)
	assert.True(t, l.Allow("10.0.0.1"))
}

func TestCORSMiddleware(t *testing.T) {
	r := gin.New()
	r.Use(CORSMiddleware([]string{"admin.example.com"}))
	r.GET("/x", func(c *gin.Context) { c.Status(200) })

	w := get(r, "/x", map[string]string{"Origin": "https://admin.example.com:443"})
	assert.Equal(t, "https://admin.example.com:443", w.Header().Get("Access-Control-Allow-Origin"))

	w = get(r, "/x", map[string]string{"Origin": "https://evil.example.com"})
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))

	w = get(r, "/x", map[string]string{"Referer": "https://admin.example.com/transactions"})
	assert.Equal(t, "https://admin.example.com", w.Header().Get("Access-Control-Allow-Origin"))

	req := httptest.NewRequest(http.MethodOptions, "/x", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestJWTMiddleware(t *testing.T) {
	utils.InitJWT("test-secret", time.Hour)
	token, err := utils.GenerateJWT(3, "ops@example.com")
	require.NoError(t, err)

	r := gin.New()
	r.Use(NewJWTMiddleware().Handle())
	r.GET("/admin", func(c *gin.Context) {
		c.JSON(200, gin.H{"userId": c.GetInt("user_id"), "email": c.GetString("email")})
	})

	w := get(r, "/admin", map[string]string{"Authorization": "Bearer " + token})
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"userId":3,"email":"ops@example.com"}`, w.Body.String())

	assert.Equal(t, http.StatusUnauthorized, get(r, "/admin", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, get(r, "/admin", map[string]string{"Authorization": "Token " + token}).Code)
	assert.Equal(t, http.StatusUnauthorized, get(r, "/admin", map[string]string{"Authorization": "Bearer nope"}).Code)
}
