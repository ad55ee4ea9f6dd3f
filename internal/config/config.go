package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"github.com/GTDGit/gtd_systempay/pkg/systempay"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	Port          string
	Env           string
	JWTSecret     string
	JWTTTL        time.Duration
	PublicBaseURL string

	// CORSAllowedHosts are the back office origins, matched by host.
	CORSAllowedHosts []string

	DB        DatabaseConfig
	Redis     RedisConfig
	Systempay SystempayConfig
	Return    ReturnConfig
	Worker    WorkerConfig
	Admin     AdminConfig
}

// DatabaseConfig contains PostgreSQL connection parameters.
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

// RedisConfig contains Redis connection parameters.
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	// LockTTL bounds how long a callback may hold an order lock.
	LockTTL time.Duration
}

// SystempayConfig is the merchant account used to sign payment forms.
type SystempayConfig struct {
	SiteID     string
	KeyTest    string
	KeyProd    string
	CtxMode    string
	SignAlgo   string
	GatewayURL string
	Version    string
	Contrib    string

	Language           string
	AvailableLanguages []string
	PaymentCards       []string
	CaptureDelay       string
	ValidationMode     string
	ThreeDSMinAmount   string
	ReturnMode         string

	RedirectEnabled        bool
	RedirectSuccessTimeout string
	RedirectSuccessMessage string
	RedirectErrorTimeout   string
	RedirectErrorMessage   string

	MultiEnabled bool
	MultiCount   int
	MultiPeriod  int
	MultiFirst   string

	Features systempay.FeatureFlags
	Policy   systempay.Policy
}

// ReturnConfig holds where customers land after the payment page.
type ReturnConfig struct {
	SuccessURL string
	FailureURL string
}

// AdminConfig is the back office account created on first start.
type AdminConfig struct {
	Email    string
	Password string
	Name     string
}

// WorkerConfig contains interval configuration for background workers.
type WorkerConfig struct {
	CallbackInterval time.Duration
}

// Load reads configuration from environment variables. A .env file in the
// working directory is loaded first when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}

	cfg.Port = getEnv("PORT", "8080")
	cfg.Env = getEnv("ENV", "development")
	cfg.JWTSecret = getEnv("JWT_SECRET", "")
	cfg.PublicBaseURL = strings.TrimSuffix(getEnv("PUBLIC_BASE_URL", "http://localhost:8080"), "/")
	cfg.CORSAllowedHosts = getEnvList("CORS_ALLOWED_HOSTS")
	if len(cfg.CORSAllowedHosts) == 0 {
		cfg.CORSAllowedHosts = []string{"localhost:3000", "127.0.0.1:3000"}
	}

	cfg.DB = DatabaseConfig{
		Host:     getEnv("DB_HOST", ""),
		Port:     getEnv("DB_PORT", "5432"),
		User:     getEnv("DB_USER", ""),
		Password: getEnv("DB_PASSWORD", ""),
		Name:     getEnv("DB_NAME", ""),
		SSLMode:  getEnv("DB_SSLMODE", "disable"),
	}

	cfg.Redis = RedisConfig{
		Host:     getEnv("REDIS_HOST", "redis"),
		Port:     getEnv("REDIS_PORT", "6379"),
		Password: getEnv("REDIS_PASSWORD", ""),
		DB:       getEnvInt("REDIS_DB", 0),
	}

	cfg.Systempay = SystempayConfig{
		SiteID:     getEnv("SYSTEMPAY_SITE_ID", ""),
		KeyTest:    getEnv("SYSTEMPAY_KEY_TEST", ""),
		KeyProd:    getEnv("SYSTEMPAY_KEY_PROD", ""),
		CtxMode:    strings.ToUpper(getEnv("SYSTEMPAY_CTX_MODE", "TEST")),
		SignAlgo:   getEnv("SYSTEMPAY_SIGN_ALGO", "SHA-256"),
		GatewayURL: getEnv("SYSTEMPAY_GATEWAY_URL", "https://paiement.systempay.fr/vads-payment/"),
		Version:    getEnv("SYSTEMPAY_VERSION", "V2"),
		Contrib:    getEnv("SYSTEMPAY_CONTRIB", "gtd_systempay_1.0"),

		Language:           getEnv("SYSTEMPAY_LANGUAGE", "fr"),
		AvailableLanguages: getEnvList("SYSTEMPAY_AVAILABLE_LANGUAGES"),
		PaymentCards:       getEnvList("SYSTEMPAY_PAYMENT_CARDS"),
		CaptureDelay:       getEnv("SYSTEMPAY_CAPTURE_DELAY", ""),
		ValidationMode:     getEnv("SYSTEMPAY_VALIDATION_MODE", systempay.ValidationModeDefault),
		ThreeDSMinAmount:   getEnv("SYSTEMPAY_3DS_MIN_AMOUNT", ""),
		ReturnMode:         strings.ToUpper(getEnv("SYSTEMPAY_RETURN_MODE", "GET")),

		RedirectEnabled:        getEnvBool("SYSTEMPAY_REDIRECT_ENABLED", false),
		RedirectSuccessTimeout: getEnv("SYSTEMPAY_REDIRECT_SUCCESS_TIMEOUT", "5"),
		RedirectSuccessMessage: getEnv("SYSTEMPAY_REDIRECT_SUCCESS_MESSAGE", "Redirection to shop in a few seconds..."),
		RedirectErrorTimeout:   getEnv("SYSTEMPAY_REDIRECT_ERROR_TIMEOUT", "5"),
		RedirectErrorMessage:   getEnv("SYSTEMPAY_REDIRECT_ERROR_MESSAGE", "Redirection to shop in a few seconds..."),

		MultiEnabled: getEnvBool("SYSTEMPAY_MULTI_ENABLED", false),
		MultiCount:   getEnvInt("SYSTEMPAY_MULTI_COUNT", 3),
		MultiPeriod:  getEnvInt("SYSTEMPAY_MULTI_PERIOD", 30),
		MultiFirst:   getEnv("SYSTEMPAY_MULTI_FIRST", ""),

		Features: systempay.FeatureFlags{
			Multi:         getEnvBool("SYSTEMPAY_FEATURE_MULTI", true),
			RestrictMulti: getEnvBool("SYSTEMPAY_FEATURE_RESTRICTMULTI", false),
			Qualif:        getEnvBool("SYSTEMPAY_FEATURE_QUALIF", false),
			SHA256:        getEnvBool("SYSTEMPAY_FEATURE_SHATWO", true),
		},
		Policy: systempay.Policy{
			AllowInvalidParameters: getEnvBool("SYSTEMPAY_ALLOW_INVALID_PARAMETERS", false),
			AllowTerminalOverwrite: getEnvBool("SYSTEMPAY_ALLOW_TERMINAL_OVERWRITE", false),
		},
	}

	cfg.Return = ReturnConfig{
		SuccessURL: getEnv("RETURN_SUCCESS_URL", cfg.PublicBaseURL+"/payment/success"),
		FailureURL: getEnv("RETURN_FAILURE_URL", cfg.PublicBaseURL+"/payment/failure"),
	}

	cfg.Admin = AdminConfig{
		Email:    getEnv("ADMIN_EMAIL", ""),
		Password: getEnv("ADMIN_PASSWORD", ""),
		Name:     getEnv("ADMIN_NAME", "Administrator"),
	}

	var err error
	if cfg.Redis.LockTTL, err = parseDurationEnv("REDIS_LOCK_TTL", "30s"); err != nil {
		return nil, fmt.Errorf("invalid REDIS_LOCK_TTL: %w", err)
	}
	if cfg.JWTTTL, err = parseDurationEnv("JWT_TTL", "24h"); err != nil {
		return nil, fmt.Errorf("invalid JWT_TTL: %w", err)
	}
	if cfg.Worker.CallbackInterval, err = parseDurationEnv("CALLBACK_RETRY_INTERVAL", "30s"); err != nil {
		return nil, fmt.Errorf("invalid CALLBACK_RETRY_INTERVAL: %w", err)
	}

	if cfg.DB.Host == "" || cfg.DB.User == "" || cfg.DB.Name == "" {
		return nil, errors.New("database configuration incomplete: ensure DB_HOST, DB_USER, and DB_NAME are set")
	}
	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET must be set for authentication")
	}

	return cfg, nil
}

// Merchant converts the environment settings to a merchant configuration
// and checks it against the field schema.
func (c SystempayConfig) Merchant(schema systempay.FieldSchema) (systempay.MerchantConfig, error) {
	algo, err := systempay.ParseAlgorithm(c.SignAlgo)
	if err != nil {
		return systempay.MerchantConfig{}, fmt.Errorf("invalid SYSTEMPAY_SIGN_ALGO: %w", err)
	}

	m := systempay.MerchantConfig{
		SiteID:                 c.SiteID,
		KeyTest:                c.KeyTest,
		KeyProd:                c.KeyProd,
		Environment:            systempay.Environment(c.CtxMode),
		Algorithm:              algo,
		GatewayURL:             c.GatewayURL,
		Version:                c.Version,
		Contrib:                c.Contrib,
		Language:               c.Language,
		AvailableLanguages:     c.AvailableLanguages,
		PaymentCards:           c.PaymentCards,
		CaptureDelay:           c.CaptureDelay,
		ValidationMode:         c.ValidationMode,
		ReturnMode:             c.ReturnMode,
		RedirectEnabled:        c.RedirectEnabled,
		RedirectSuccessTimeout: c.RedirectSuccessTimeout,
		RedirectSuccessMessage: c.RedirectSuccessMessage,
		RedirectErrorTimeout:   c.RedirectErrorTimeout,
		RedirectErrorMessage:   c.RedirectErrorMessage,
		Mode:                   systempay.Single{},
	}

	if c.ThreeDSMinAmount != "" {
		d, err := decimal.NewFromString(c.ThreeDSMinAmount)
		if err != nil {
			return systempay.MerchantConfig{}, fmt.Errorf("invalid SYSTEMPAY_3DS_MIN_AMOUNT: %w", err)
		}
		m.ThreeDSMinAmount = &d
	}

	if c.MultiEnabled {
		plan := systempay.Installments{Count: c.MultiCount, PeriodDays: c.MultiPeriod}
		if c.MultiFirst != "" {
			d, err := decimal.NewFromString(c.MultiFirst)
			if err != nil {
				return systempay.MerchantConfig{}, fmt.Errorf("invalid SYSTEMPAY_MULTI_FIRST: %w", err)
			}
			plan.FirstPercent = &d
		}
		m.Mode = plan
	}

	if err := schema.Validate(m); err != nil {
		return systempay.MerchantConfig{}, fmt.Errorf("invalid systempay configuration: %w", err)
	}
	return m, nil
}

// getEnv returns the value of an environment variable or a default if empty.
func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// getEnvInt returns the value of an environment variable as an integer or a default if empty/invalid.
func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

// getEnvBool accepts the values understood by strconv.ParseBool.
func getEnvBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

// getEnvList splits a comma or semicolon separated variable.
func getEnvList(key string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.FieldsFunc(raw, func(r rune) bool { return r == ',' || r == ';' }) {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// parseDurationEnv reads an environment variable and parses it as time.Duration.
// If the variable is empty, it falls back to the provided default value.
func parseDurationEnv(key, def string) (time.Duration, error) {
	raw := getEnv(key, def)
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("duration must be >= 0")
	}
	return d, nil
}
