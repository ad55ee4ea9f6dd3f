package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/GTDGit/gtd_systempay/internal/models"
	"github.com/GTDGit/gtd_systempay/internal/utils"
)

func TestValidateAPIKey(t *testing.T) {
	repo := newFakeClientRepo(&models.Client{ID: 1, ClientID: "shop", APIKey: "sp_live_a", SandboxKey: "sp_test_a", IsActive: true})
	svc := NewAuthService(repo)
	ctx := context.Background()

	c, sandbox, err := svc.ValidateAPIKey(ctx, "sp_live_a")
	require.NoError(t, err)
	assert.Equal(t, "shop", c.ClientID)
	assert.False(t, sandbox)

	c, sandbox, err = svc.ValidateAPIKey(ctx, "sp_test_a")
	require.NoError(t, err)
	assert.Equal(t, 1, c.ID)
	assert.True(t, sandbox)

	_, _, err = svc.ValidateAPIKey(ctx, "nope")
	assert.ErrorIs(t, err, utils.ErrInvalidToken)
	_, _, err = svc.ValidateAPIKey(ctx, "")
	assert.ErrorIs(t, err, utils.ErrInvalidToken)
}

func TestIsIPAllowed(t *testing.T) {
	svc := NewAuthService(newFakeClientRepo())

	assert.True(t, svc.IsIPAllowed(&models.Client{}, "1.2.3.4"))
	c := &models.Client{IPWhitelist: []string{"10.0.0.1"}}
	assert.True(t, svc.IsIPAllowed(c, "10.0.0.1"))
	assert.False(t, svc.IsIPAllowed(c, "10.0.0.2"))
	assert.False(t, svc.IsIPAllowed(nil, "10.0.0.1"))

	assert.True(t, svc.ValidateClientID(&models.Client{ClientID: "shop"}, "shop"))
	assert.False(t, svc.ValidateClientID(&models.Client{ClientID: "shop"}, "other"))
}

type fakeAdminRepo struct {
	users   map[string]*models.AdminUser
	touched []int
}

func (r *fakeAdminRepo) GetByEmail(_ context.Context, email string) (*models.AdminUser, error) {
	u, ok := r.users[email]
	if !ok {
		return nil, errNoRows
	}
	return u, nil
}

func (r *fakeAdminRepo) Create(_ context.Context, user *models.AdminUser) error {
	user.ID = len(r.users) + 1
	r.users[user.Email] = user
	return nil
}

func (r *fakeAdminRepo) TouchLastLogin(_ context.Context, id int) error {
	r.touched = append(r.touched, id)
	return nil
}

func TestAdminLogin(t *testing.T) {
	utils.InitJWT("test-secret", time.Hour)
	repo := &fakeAdminRepo{users: map[string]*models.AdminUser{}}
	svc := NewAdminAuthService(repo)
	ctx := context.Background()

	created, err := svc.EnsureAdmin(ctx, "ops@example.com", "s3cret!", "Ops")
	require.NoError(t, err)
	assert.True(t, created)
	created, err = svc.EnsureAdmin(ctx, "ops@example.com", "other", "Ops")
	require.NoError(t, err)
	assert.False(t, created)

	user := repo.users["ops@example.com"]
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("s3cret!")))

	token, err := svc.Login(ctx, "ops@example.com", "s3cret!")
	require.NoError(t, err)
	claims, err := utils.ValidateJWT(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, []int{user.ID}, repo.touched)

	_, err = svc.Login(ctx, "ops@example.com", "wrong")
	assert.ErrorIs(t, err, utils.ErrInvalidCredentials)
	_, err = svc.Login(ctx, "nobody@example.com", "s3cret!")
	assert.ErrorIs(t, err, utils.ErrInvalidCredentials)

	user.IsActive = false
	_, err = svc.Login(ctx, "ops@example.com", "s3cret!")
	assert.ErrorIs(t, err, utils.ErrAccountInactive)
}

func TestClientService(t *testing.T) {
	repo := newFakeClientRepo()
	svc := NewClientService(repo)
	ctx := context.Background()

	c, err := svc.CreateClient(ctx, &CreateClientRequest{ClientID: "shop", Name: "Shop", CallbackURL: "https://shop.example/hook"})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(c.APIKey, "sp_live_"))
	assert.True(t, strings.HasPrefix(c.SandboxKey, "sp_test_"))
	assert.True(t, strings.HasPrefix(c.CallbackSecret, "sp_secret_"))
	assert.True(t, c.IsActive)
	assert.NotNil(t, c.IPWhitelist)

	_, err = svc.CreateClient(ctx, &CreateClientRequest{ClientID: "shop", Name: "Again"})
	assert.ErrorIs(t, err, utils.ErrClientExists)

	inactive := false
	updated, err := svc.UpdateClient(ctx, c.ID, &UpdateClientRequest{Name: "Shop SAS", IsActive: &inactive})
	require.NoError(t, err)
	assert.Equal(t, "Shop SAS", updated.Name)
	assert.False(t, updated.IsActive)
	assert.Equal(t, "https://shop.example/hook", updated.CallbackURL)

	regenerated, err := svc.RegenerateKeys(ctx, c.ID, "sandbox")
	require.NoError(t, err)
	assert.NotEqual(t, c.SandboxKey, regenerated.SandboxKey)
	assert.Equal(t, c.APIKey, regenerated.APIKey)

	_, err = svc.RegenerateKeys(ctx, c.ID, "master")
	assert.ErrorIs(t, err, ErrInvalidKeyType)
	_, err = svc.GetClient(ctx, 404)
	assert.ErrorIs(t, err, utils.ErrClientNotFound)
	_, err = svc.GetClientByClientID(ctx, "ghost")
	assert.ErrorIs(t, err, utils.ErrClientNotFound)

	list, err := svc.ListClients(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}
