package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/GTDGit/gtd_systempay/internal/cache"
	"github.com/GTDGit/gtd_systempay/internal/config"
	"github.com/GTDGit/gtd_systempay/internal/database"
	"github.com/GTDGit/gtd_systempay/internal/handler"
	"github.com/GTDGit/gtd_systempay/internal/middleware"
	"github.com/GTDGit/gtd_systempay/internal/repository"
	"github.com/GTDGit/gtd_systempay/internal/service"
	"github.com/GTDGit/gtd_systempay/internal/sse"
	"github.com/GTDGit/gtd_systempay/internal/utils"
	"github.com/GTDGit/gtd_systempay/internal/worker"
	"github.com/GTDGit/gtd_systempay/pkg/systempay"
)

const (
	returnPath = "/payment/systempay/return"
	ipnPath    = "/payment/systempay/ipn"
)

// main is the entrypoint of the Systempay payment gateway.
func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	setupLogger(cfg.Env)
	log.Info().Str("env", cfg.Env).Msg("starting systempay gateway")

	// Merchant configuration is checked once against the field schema
	schema := systempay.BuildFieldSchema(cfg.Systempay.Features)
	merchant, err := cfg.Systempay.Merchant(schema)
	if err != nil {
		fail("invalid merchant configuration", err)
	}
	log.Info().
		Str("site_id", merchant.SiteID).
		Str("ctx_mode", string(merchant.CtxMode())).
		Str("sign_algo", string(merchant.Algorithm)).
		Str("key", utils.MaskSecret(merchant.Key())).
		Msg("merchant configured")
	if schema.MultiWarning {
		log.Warn().Msg("payment in installments requires the matching option on the gateway account")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := database.Connect(ctx, &cfg.DB)
	if err != nil {
		fail("database connection failed", err)
	}
	defer db.Close()

	if err := runMigrations(db.DB); err != nil {
		fail("migration failed", err)
	}
	log.Info().Msg("migrations completed successfully")

	redisClient, err := cache.NewRedisClient(&cfg.Redis)
	if err != nil {
		fail("redis connection failed", err)
	}
	defer redisClient.Close()
	log.Info().Msg("redis connected successfully")

	utils.InitJWT(cfg.JWTSecret, cfg.JWTTTL)

	// Repositories
	clientRepo := repository.NewClientRepository(db)
	trxRepo := repository.NewTransactionRepository(db)
	cbRepo := repository.NewCallbackRepository(db)
	adminRepo := repository.NewAdminUserRepository(db)

	// Payment core
	forms := cache.NewFormCache(redisClient)
	processor := systempay.NewProcessor(
		repository.NewTransactionStore(trxRepo),
		systempay.StaticMerchant(merchant),
		cache.NewOrderLock(redisClient, cfg.Redis.LockTTL),
		cfg.Systempay.Policy,
	)

	hub := sse.NewHub()
	notifier := sse.NewHubNotifier(hub)

	// Services
	authSvc := service.NewAuthService(clientRepo)
	adminAuthSvc := service.NewAdminAuthService(adminRepo)
	clientSvc := service.NewClientService(clientRepo)
	webhookSvc := service.NewWebhookService(clientRepo, cbRepo, trxRepo)
	paymentSvc := service.NewPaymentService(
		trxRepo, forms, notifier, systempay.NewBuilder(), merchant, schema,
		cfg.PublicBaseURL+returnPath,
	)
	gatewaySvc := service.NewGatewayService(
		processor, cbRepo, trxRepo, forms, webhookSvc, notifier,
		service.ReturnURLs{Success: cfg.Return.SuccessURL, Failure: cfg.Return.FailureURL},
	)
	adminTrxSvc := service.NewAdminTransactionService(trxRepo, cbRepo, webhookSvc)

	if cfg.Admin.Email != "" && cfg.Admin.Password != "" {
		created, err := adminAuthSvc.EnsureAdmin(ctx, cfg.Admin.Email, cfg.Admin.Password, cfg.Admin.Name)
		if err != nil {
			fail("admin bootstrap failed", err)
		}
		if created {
			log.Info().Str("email", cfg.Admin.Email).Msg("bootstrap admin created")
		}
	}

	handlers := &Handlers{
		Health:           handler.NewHealthHandler(db, handler.PingFunc(redisClient.Ping)),
		Payment:          handler.NewPaymentHandler(paymentSvc),
		Systempay:        handler.NewSystempayHandler(gatewaySvc),
		Client:           handler.NewClientHandler(clientSvc),
		AdminTransaction: handler.NewAdminTransactionHandler(adminTrxSvc),
		Merchant:         handler.NewMerchantHandler(schema, merchant),
		Auth:             handler.NewAuthHandler(adminAuthSvc),
		SSE:              handler.NewSSEHandler(hub),
	}

	rateLimiter := middleware.NewInvalidAuthRateLimiter(5, time.Minute)
	go rateLimiter.Cleanup(ctx, 5*time.Minute)
	authMw := middleware.NewAuthMiddleware(authSvc, rateLimiter)
	jwtMw := middleware.NewJWTMiddleware()

	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORSMiddleware(cfg.CORSAllowedHosts))
	router.Use(middleware.LoggingMiddleware())
	setupRoutes(router, handlers, authMw, jwtMw)

	go worker.NewCallbackWorker(webhookSvc, cfg.Worker.CallbackInterval).Start(ctx)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Str("ipn_url", cfg.PublicBaseURL+ipnPath).Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server exited")
}

// Handlers groups all HTTP handlers used by the server.
type Handlers struct {
	Health           *handler.HealthHandler
	Payment          *handler.PaymentHandler
	Systempay        *handler.SystempayHandler
	Client           *handler.ClientHandler
	AdminTransaction *handler.AdminTransactionHandler
	Merchant         *handler.MerchantHandler
	Auth             *handler.AuthHandler
	SSE              *handler.SSEHandler
}

// setupRoutes registers all routes.
func setupRoutes(router *gin.Engine, handlers *Handlers, authMiddleware *middleware.AuthMiddleware, jwtMiddleware *middleware.JWTMiddleware) {
	router.GET("/v1/health", handlers.Health.GetHealth)

	// Gateway endpoints, authenticated by the payload signature
	router.GET(returnPath, handlers.Systempay.Return)
	router.POST(returnPath, handlers.Systempay.Return)
	router.POST(ipnPath, handlers.Systempay.Notify)

	// Order system routes (protected with client API key)
	payments := router.Group("/v1/payments")
	payments.Use(authMiddleware.Handle())
	{
		payments.POST("", handlers.Payment.CreatePayment)
		payments.GET("/:transactionId", handlers.Payment.GetPayment)
		payments.GET("/:transactionId/form", handlers.Payment.GetForm)
	}

	admin := router.Group("/v1/admin")
	admin.POST("/auth/login", handlers.Auth.Login)
	// EventSource cannot send headers; the stream checks its own token
	admin.GET("/sse", handlers.SSE.Stream)
	admin.Use(jwtMiddleware.Handle())
	{
		admin.POST("/clients", handlers.Client.CreateClient)
		admin.GET("/clients", handlers.Client.ListClients)
		admin.GET("/clients/:id", handlers.Client.GetClient)
		admin.GET("/clients/by-client-id/:client_id", handlers.Client.GetClientByClientID)
		admin.PUT("/clients/:id", handlers.Client.UpdateClient)
		admin.POST("/clients/:id/regenerate", handlers.Client.RegenerateKeys)

		admin.GET("/transactions", handlers.AdminTransaction.ListTransactions)
		admin.GET("/transactions/stats", handlers.AdminTransaction.GetStats)
		admin.GET("/transactions/:id", handlers.AdminTransaction.GetTransaction)
		admin.GET("/transactions/:id/logs", handlers.AdminTransaction.GetTransactionLogs)
		admin.POST("/transactions/:id/resend-webhook", handlers.AdminTransaction.ResendWebhook)

		admin.GET("/systempay/schema", handlers.Merchant.GetSchema)
		admin.GET("/systempay/catalog", handlers.Merchant.GetCatalog)
	}
}

// runMigrations runs database migrations using golang-migrate.
func runMigrations(db *sql.DB) error {
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance("file://migrations", "postgres", driver)
	if err != nil {
		return fmt.Errorf("could not create migration instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", err)
	}
	return nil
}

func fail(msg string, err error) {
	log.Error().Err(err).Msg(msg)
	fmt.Fprintf(os.Stderr, "%s: %v\n", msg, err)
	os.Exit(1)
}

func setupLogger(env string) {
	if env == "production" {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
}
