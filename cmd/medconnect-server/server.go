package main

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/medconnect/medconnect/internal/config"
	"github.com/medconnect/medconnect/internal/domain/appointment"
	"github.com/medconnect/medconnect/internal/domain/document"
	"github.com/medconnect/medconnect/internal/domain/principal"
	"github.com/medconnect/medconnect/internal/domain/review"
	"github.com/medconnect/medconnect/internal/domain/specialization"
	"github.com/medconnect/medconnect/internal/platform/auth"
	"github.com/medconnect/medconnect/internal/platform/db"
	"github.com/medconnect/medconnect/internal/platform/middleware"
	"github.com/medconnect/medconnect/internal/platform/telemetry"
)

const (
	version      = "0.1.0"
	bodyLimit    = "1M"
	shutdownWait = 15 * time.Second
)

// database is what the server needs from the connection pool.
type database interface {
	db.Conn
	db.Pinger
}

type serverDeps struct {
	cfg     *config.Config
	logger  zerolog.Logger
	pool    database
	metrics *telemetry.Provider
	// federated is nil when Google login is not configured.
	federated principal.FederatedAuthenticator
}

func runServer() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)
	if err := cfg.Validate(); err != nil {
		logger.Error().Err(err).Msg("invalid configuration")
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL, db.PoolConfig{
		MaxConns: cfg.DBMaxConns,
		MinConns: cfg.DBMinConns,
	})
	if err != nil {
		logger.Error().Err(err).Msg("failed to connect to database")
		return err
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	deps := serverDeps{cfg: cfg, logger: logger, pool: pool, metrics: telemetry.NewProvider()}
	if cfg.GoogleEnabled() {
		discoverCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		google, err := auth.NewGoogleProvider(discoverCtx, auth.GoogleConfig{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURL:  cfg.GoogleRedirectURL,
			Issuer:       cfg.GoogleIssuer,
		}, &http.Client{Timeout: 10 * time.Second})
		cancel()
		if err != nil {
			logger.Error().Err(err).Msg("google discovery failed")
			return err
		}
		deps.federated = google
		logger.Info().Str("issuer", cfg.GoogleIssuer).Msg("google login enabled")
	}

	e, err := newServer(deps)
	if err != nil {
		return err
	}

	addr := ":" + cfg.Port
	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", addr).Bool("tls", cfg.TLSEnabled).Msg("starting server")
		var err error
		if cfg.TLSEnabled {
			err = e.StartTLS(addr, cfg.TLSCertFile, cfg.TLSKeyFile)
		} else {
			err = e.Start(addr)
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			logger.Error().Err(err).Msg("server failed")
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownWait)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}

// resolveTokenSecret returns the configured signing key, or a random one in
// development. The second return value is true when the key was generated.
func resolveTokenSecret(cfg *config.Config) ([]byte, bool, error) {
	key, err := cfg.TokenSecretBytes()
	if err != nil {
		return nil, false, err
	}
	if len(key) > 0 {
		return key, false, nil
	}
	if !cfg.IsDev() {
		return nil, false, fmt.Errorf("TOKEN_SECRET is required when ENV=%q", cfg.Env)
	}
	key = make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return nil, false, fmt.Errorf("failed to generate token secret: %w", err)
	}
	return key, true, nil
}

// newServer wires every component and registers all routes.
func newServer(d serverDeps) (*echo.Echo, error) {
	cfg, logger := d.cfg, d.logger

	secret, generated, err := resolveTokenSecret(cfg)
	if err != nil {
		return nil, err
	}
	if generated {
		logger.Warn().Msg("using a generated token secret; sessions will not survive a restart")
	}
	tokens, err := auth.NewTokenService(secret, auth.WithIssuer(cfg.TokenIssuer))
	if err != nil {
		return nil, err
	}
	guard := auth.NewGuard(logger, d.metrics)

	// Services
	principalRepo := principal.NewRepoPG(d.pool)
	principalSvc := principal.NewService(principalRepo, auth.NewHasher(cfg.BcryptCost), tokens, logger).
		WithMetrics(d.metrics)
	linker := principal.NewLinker(principalRepo, logger, d.metrics)
	authenticator := auth.NewAuthenticator(tokens, principalSvc, logger, d.metrics)

	specSvc := specialization.NewService(specialization.NewRepoPG(d.pool), guard, principalSvc)
	principalSvc.WithSpecializations(specSvc)
	apptSvc := appointment.NewService(appointment.NewRepoPG(d.pool), guard, principalSvc)
	docSvc := document.NewService(document.NewRepoPG(d.pool), guard, principalSvc)
	reviewSvc := review.NewService(review.NewRepoPG(d.pool), guard, apptSvc)

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.RequestID())
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.Logger(logger, auth.InfraSkipper))
	e.Use(middleware.SecurityHeaders(cfg.TLSEnabled))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:  cfg.CORSOrigins,
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders:  []string{echo.HeaderAuthorization, echo.HeaderContentType, middleware.RequestIDHeader},
		ExposeHeaders: []string{middleware.RequestIDHeader, "Retry-After"},
	}))
	e.Use(middleware.BodyLimit(bodyLimit))
	e.Use(middleware.RequestTimeout(cfg.RequestTimeout))
	e.Use(d.metrics.MetricsMiddleware())

	// Infrastructure endpoints
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok", "version": version})
	})
	e.GET("/health/db", db.HealthHandler(d.pool))
	if d.metrics != nil {
		e.GET("/metrics", d.metrics.Handler())
	}

	// Rate limiting
	general := middleware.DefaultRateLimitConfig()
	if cfg.RateLimitRPS > 0 {
		general.RequestsPerSecond = cfg.RateLimitRPS
		general.BurstSize = cfg.RateLimitBurst
	}
	strict := middleware.RateLimitConfig{
		RequestsPerSecond: cfg.AuthRateLimitRPS,
		BurstSize:         cfg.AuthRateLimitBurst,
		IdleTTL:           general.IdleTTL,
	}
	if strict.RequestsPerSecond <= 0 {
		strict.RequestsPerSecond, strict.BurstSize = 5, 10
	}

	api := e.Group("/api/v1", middleware.RateLimit(general))

	principal.NewHandler(principalSvc, linker, d.federated, cfg.TLSEnabled).
		RegisterRoutes(api, authenticator, middleware.RateLimit(strict))
	specialization.NewHandler(specSvc).RegisterRoutes(api, authenticator)
	appointment.NewHandler(apptSvc).RegisterRoutes(api, authenticator)
	document.NewHandler(docSvc).RegisterRoutes(api, authenticator)
	review.NewHandler(reviewSvc).RegisterRoutes(api, authenticator)

	return e, nil
}
