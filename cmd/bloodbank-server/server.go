package main

import (
	"context"
	crypto_rand "crypto/rand"
	"encoding/hex"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"

	"github.com/bloodbank/bloodbank/internal/config"
	"github.com/bloodbank/bloodbank/internal/domain/account"
	"github.com/bloodbank/bloodbank/internal/domain/bloodgroup"
	"github.com/bloodbank/bloodbank/internal/domain/bloodrequest"
	"github.com/bloodbank/bloodbank/internal/domain/camp"
	"github.com/bloodbank/bloodbank/internal/domain/donation"
	"github.com/bloodbank/bloodbank/internal/domain/inventory"
	"github.com/bloodbank/bloodbank/internal/domain/report"
	"github.com/bloodbank/bloodbank/internal/platform/auth"
	"github.com/bloodbank/bloodbank/internal/platform/db"
	"github.com/bloodbank/bloodbank/internal/platform/metrics"
	"github.com/bloodbank/bloodbank/internal/platform/middleware"
	"github.com/bloodbank/bloodbank/internal/platform/websocket"
)

// services holds every domain service of one process.
type services struct {
	Accounts  *account.Service
	Inventory *inventory.Service
	Donations *donation.Service
	Requests  *bloodrequest.Service
	Camps     *camp.Service
	Reports   *report.Service
}

// newServices wires repositories and services over pool. tokens, revocations
// and m may be nil for commands that neither log users in nor serve metrics.
func newServices(pool *pgxpool.Pool, cfg *config.Config, tokens *auth.TokenIssuer, revocations auth.RevocationList, m *metrics.Metrics, logger zerolog.Logger) *services {
	var tx db.Transactor = db.NoTx{}
	if pool != nil {
		tx = db.NewTransactor(pool)
	}

	s := &services{}
	s.Accounts = account.NewService(account.NewRepo(pool), tokens, revocations, m, logger)
	s.Inventory = inventory.NewService(inventory.NewRepo(pool), m, logger)
	s.Donations = donation.NewService(donation.NewRepo(pool), s.Accounts, s.Inventory, tx, m, logger)
	s.Donations.SetIntervalDays(cfg.DonationIntervalDays)
	s.Requests = bloodrequest.NewService(bloodrequest.NewRepo(pool), s.Inventory, tx, m, logger)
	s.Camps = camp.NewService(camp.NewRepo(pool), logger)
	s.Reports = report.NewService(report.NewRepo(pool), report.Sources{
		Stock:     s.Inventory,
		Accounts:  s.Accounts,
		Donations: s.Donations,
		Requests:  s.Requests,
		Camps:     s.Camps,
	}, logger)
	s.Reports.SetWindowDays(cfg.ReportWindowDays)
	return s
}

// publishTo sends inventory, request and camp changes to hub.
func (s *services) publishTo(hub *websocket.Hub) {
	s.Inventory.SetPublisher(hub)
	s.Requests.SetPublisher(hub)
	s.Camps.SetPublisher(hub)
}

// signingKey returns the configured key. Development servers without one get
// a random key, so tokens do not survive a restart.
func signingKey(cfg *config.Config, logger zerolog.Logger) ([]byte, error) {
	if cfg.JWTSigningKey != "" {
		return []byte(cfg.JWTSigningKey), nil
	}
	key := make([]byte, config.MinSigningKeyLen)
	if _, err := crypto_rand.Read(key); err != nil {
		return nil, err
	}
	logger.Warn().Msg("JWT_SIGNING_KEY not set, using an ephemeral development key")
	return []byte(hex.EncodeToString(key)), nil
}

// serverDeps are the process-wide resources the HTTP server is built from.
type serverDeps struct {
	Config      *config.Config
	Logger      zerolog.Logger
	Pool        *pgxpool.Pool
	Tokens      *auth.TokenIssuer
	Revocations auth.RevocationList
	Registry    *prometheus.Registry
}

// newServer builds the echo instance with middleware and every route.
func newServer(d serverDeps) *echo.Echo {
	cfg, logger := d.Config, d.Logger
	m := metrics.New(d.Registry)
	svc := newServices(d.Pool, cfg, d.Tokens, d.Revocations, m, logger)
	hub := websocket.NewHub(logger)
	svc.publishTo(hub)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.Recovery(logger, m))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.Metrics(m))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", middleware.RequestIDHeader},
	}))
	headers := middleware.DefaultSecurityHeadersConfig()
	headers.HSTS = !cfg.IsDev()
	e.Use(middleware.SecurityHeaders(headers))
	e.Use(middleware.BodyLimit(cfg.BodyLimit))
	e.Use(middleware.RequestTimeout(cfg.RequestTimeout))

	// Auth middleware
	jwtMW := auth.JWTMiddleware(auth.JWTConfig{
		Tokens:      d.Tokens,
		Revocations: d.Revocations,
		Skipper:     auth.AuthSkipper,
	})
	if cfg.IsDev() {
		logger.Warn().
			Str("env", cfg.Env).
			Msg("development auth is active: requests without an Authorization header act as admin; set ENV=production for any shared deployment")
		e.Use(auth.DevAuthMiddleware(uuid.Nil.String(), auth.RoleAdmin, jwtMW))
	} else {
		e.Use(jwtMW)
	}

	rateLimitCfg := middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}
	if rateLimitCfg.RequestsPerSecond <= 0 {
		rateLimitCfg = middleware.DefaultRateLimitConfig()
	}
	rateLimit := middleware.RateLimit(rateLimitCfg)

	// Health and metrics
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": version,
		})
	})
	shipped, err := db.NewMigrator(d.Pool, migrationsFS(cfg)).LoadMigrations()
	if err != nil {
		logger.Warn().Err(err).Msg("could not read migrations, schema version check disabled")
	}
	e.GET("/health/db", db.HealthHandler(d.Pool, shipped))
	e.GET("/metrics", metrics.Handler(d.Registry))

	authGroup := e.Group("/auth", rateLimit)
	apiV1 := e.Group("/api/v1", rateLimit)

	accountHandler := account.NewHandler(svc.Accounts)
	accountHandler.RegisterAuthRoutes(authGroup)
	accountHandler.RegisterRoutes(apiV1)

	bloodgroup.NewHandler(logger, m).RegisterRoutes(apiV1)
	inventory.NewHandler(svc.Inventory).RegisterRoutes(apiV1)
	donation.NewHandler(svc.Donations).RegisterRoutes(apiV1)
	bloodrequest.NewHandler(svc.Requests).RegisterRoutes(apiV1)
	camp.NewHandler(svc.Camps).RegisterRoutes(apiV1)
	report.NewHandler(svc.Reports).RegisterRoutes(apiV1)
	websocket.NewHandler(hub, cfg.CORSOrigins).RegisterRoutes(apiV1)

	return e
}

func newRevocations(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (auth.RevocationList, func(), error) {
	if cfg.RedisURL == "" {
		mem := auth.NewMemoryRevocationList(5 * time.Minute)
		logger.Info().Msg("using in-memory token revocation list")
		return mem, mem.Close, nil
	}
	client, err := auth.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		return nil, nil, err
	}
	logger.Info().Msg("using redis token revocation list")
	return auth.NewRedisRevocationList(client), func() { client.Close() }, nil
}

func runServer(cfg *config.Config, logger zerolog.Logger) error {
	ctx := context.Background()

	// Database
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	revocations, closeRevocations, err := newRevocations(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to set up token revocation")
	}
	defer closeRevocations()

	key, err := signingKey(cfg, logger)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	e := newServer(serverDeps{
		Config:      cfg,
		Logger:      logger,
		Pool:        pool,
		Tokens:      auth.NewTokenIssuer(key, cfg.JWTIssuer, cfg.TokenTTL),
		Revocations: revocations,
		Registry:    reg,
	})

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("env", cfg.Env).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server shutdown failed")
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}
