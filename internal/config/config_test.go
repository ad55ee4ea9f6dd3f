package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GTDGit/gtd_systempay/pkg/systempay"
)

func setRequired(t *testing.T) {
	t.Setenv("DB_HOST", "localhost")
	t.Setenv("DB_USER", "postgres")
	t.Setenv("DB_NAME", "systempay")
	t.Setenv("JWT_SECRET", "secret")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "TEST", cfg.Systempay.CtxMode)
	assert.Equal(t, systempay.ValidationModeDefault, cfg.Systempay.ValidationMode)
	assert.Equal(t, 30*time.Second, cfg.Redis.LockTTL)
	assert.Equal(t, 30*time.Second, cfg.Worker.CallbackInterval)
	assert.False(t, cfg.Systempay.Policy.AllowInvalidParameters)
	assert.False(t, cfg.Systempay.Policy.AllowTerminalOverwrite)
	assert.Equal(t, "http://localhost:8080/payment/success", cfg.Return.SuccessURL)
	assert.Equal(t, 24*time.Hour, cfg.JWTTTL)
	assert.Equal(t, []string{"localhost:3000", "127.0.0.1:3000"}, cfg.CORSAllowedHosts)
	assert.Equal(t, "Administrator", cfg.Admin.Name)
	assert.Empty(t, cfg.Admin.Email)
}

func TestLoadBackOffice(t *testing.T) {
	setRequired(t)
	t.Setenv("JWT_TTL", "2h")
	t.Setenv("CORS_ALLOWED_HOSTS", "admin.example.com, ops.example.com")
	t.Setenv("ADMIN_EMAIL", "ops@example.com")
	t.Setenv("ADMIN_PASSWORD", "changeme")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 2*time.Hour, cfg.JWTTTL)
	assert.Equal(t, []string{"admin.example.com", "ops.example.com"}, cfg.CORSAllowedHosts)
	assert.Equal(t, AdminConfig{Email: "ops@example.com", Password: "changeme", Name: "Administrator"}, cfg.Admin)

	t.Setenv("JWT_TTL", "-1h")
	_, err = Load()
	assert.ErrorContains(t, err, "JWT_TTL")
}

func TestLoadRequiresDatabase(t *testing.T) {
	t.Setenv("DB_HOST", "")
	t.Setenv("JWT_SECRET", "secret")
	_, err := Load()
	assert.ErrorContains(t, err, "database configuration incomplete")
}

func TestLoadRequiresJWTSecret(t *testing.T) {
	setRequired(t)
	t.Setenv("JWT_SECRET", "")
	_, err := Load()
	assert.ErrorContains(t, err, "JWT_SECRET")
}

func TestLoadInvalidDuration(t *testing.T) {
	setRequired(t)
	t.Setenv("CALLBACK_RETRY_INTERVAL", "soon")
	_, err := Load()
	assert.ErrorContains(t, err, "CALLBACK_RETRY_INTERVAL")
}

func TestLoadSystempay(t *testing.T) {
	setRequired(t)
	t.Setenv("SYSTEMPAY_SITE_ID", "12345678")
	t.Setenv("SYSTEMPAY_KEY_TEST", "1111111111111111")
	t.Setenv("SYSTEMPAY_CTX_MODE", "production")
	t.Setenv("SYSTEMPAY_AVAILABLE_LANGUAGES", "fr; en ,de")
	t.Setenv("SYSTEMPAY_ALLOW_TERMINAL_OVERWRITE", "true")
	t.Setenv("PUBLIC_BASE_URL", "https://pay.example/")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "PRODUCTION", cfg.Systempay.CtxMode)
	assert.Equal(t, []string{"fr", "en", "de"}, cfg.Systempay.AvailableLanguages)
	assert.True(t, cfg.Systempay.Policy.AllowTerminalOverwrite)
	assert.Equal(t, "https://pay.example", cfg.PublicBaseURL)
}

func validSystempay() SystempayConfig {
	return SystempayConfig{
		SiteID:         "12345678",
		KeyTest:        "1111111111111111",
		KeyProd:        "2222222222222222",
		CtxMode:        "TEST",
		SignAlgo:       "SHA-256",
		Language:       "fr",
		ValidationMode: "-1",
		ReturnMode:     "GET",
	}
}

func TestMerchant(t *testing.T) {
	schema := systempay.BuildFieldSchema(systempay.FeatureFlags{Multi: true, SHA256: true})

	c := validSystempay()
	c.ThreeDSMinAmount = "50.00"
	m, err := c.Merchant(schema)
	require.NoError(t, err)
	assert.Equal(t, systempay.AlgorithmHMACSHA256, m.Algorithm)
	assert.Equal(t, systempay.EnvironmentTest, m.Environment)
	assert.Equal(t, "50", m.ThreeDSMinAmount.String())
	assert.Equal(t, systempay.Single{}, m.Mode)

	c.MultiEnabled = true
	c.MultiCount = 4
	c.MultiPeriod = 30
	c.MultiFirst = "25"
	m, err = c.Merchant(schema)
	require.NoError(t, err)
	plan, ok := m.Mode.(systempay.Installments)
	require.True(t, ok)
	assert.Equal(t, 4, plan.Count)
	assert.Equal(t, "25", plan.FirstPercent.String())
}

func TestMerchantErrors(t *testing.T) {
	schema := systempay.BuildFieldSchema(systempay.FeatureFlags{})

	c := validSystempay()
	c.SignAlgo = "MD5"
	_, err := c.Merchant(schema)
	assert.ErrorContains(t, err, "SYSTEMPAY_SIGN_ALGO")

	c = validSystempay()
	c.ThreeDSMinAmount = "fifty"
	_, err = c.Merchant(schema)
	assert.ErrorContains(t, err, "SYSTEMPAY_3DS_MIN_AMOUNT")

	c = validSystempay()
	c.MultiEnabled = true
	c.MultiCount = 3
	_, err = c.Merchant(schema)
	assert.ErrorContains(t, err, "not enabled")

	c = validSystempay()
	c.KeyTest = ""
	_, err = c.Merchant(schema)
	assert.ErrorIs(t, err, systempay.ErrMissingConfiguration)
}
