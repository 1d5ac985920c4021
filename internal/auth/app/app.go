package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	httpapi "github.com/presstronic/kalsumed/internal/auth/http"
	"github.com/presstronic/kalsumed/internal/auth/provider"
	"github.com/presstronic/kalsumed/internal/auth/registry"
	"github.com/presstronic/kalsumed/internal/auth/service"
	"github.com/presstronic/kalsumed/internal/auth/store"
	"github.com/presstronic/kalsumed/internal/auth/store/drivers/sqlite"
	"github.com/presstronic/kalsumed/pkg/cryptox"
	"github.com/presstronic/kalsumed/pkg/jwtx"
	"github.com/presstronic/kalsumed/pkg/slogx"
)

const (
	// BuildVersion should be set at build time via ldflags. Later problem
	BuildVersion = "v0.1.0"
)

// Application encapsulates the auth service with all its dependencies.
type Application struct {
	cfg    Config
	logger *slog.Logger

	db    store.Store
	redis *redis.Client

	tokenService *service.TokenService
	oauthService *service.OAuthService
	providers    *provider.Registry
	states       registry.StateStore

	server *http.Server
	router *httpapi.Router
}

// New creates an Application with all dependencies initialized and the
// database migrated and seeded.
func New(ctx context.Context, cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "kalsumed-auth",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	cryptox.SetPepperPath(cfg.PepperFile)

	if err := app.initDatabase(); err != nil {
		return nil, err
	}
	if err := app.initRedis(ctx); err != nil {
		return nil, err
	}
	if err := app.initServices(); err != nil {
		return nil, err
	}
	if err := app.initProviders(ctx); err != nil {
		return nil, err
	}

	seeder := &service.SeedService{
		Store:         app.db,
		AdminUsername: cfg.SeedAdminUsername,
		AdminPassword: cfg.SeedAdminPassword,
		AdminEmail:    cfg.SeedAdminEmail,
	}
	if err := seeder.Seed(ctx); err != nil {
		return nil, fmt.Errorf("seeding failed: %w", err)
	}

	app.initHTTP()

	return app, nil
}

// Run starts the application and blocks until shutdown is requested.
func (app *Application) Run() error {
	app.logger.Info("auth service starting", "port", app.cfg.Port, "version", BuildVersion)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)
		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown gracefully shuts down the application.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down auth service...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	if err := app.redis.Close(); err != nil {
		app.logger.Error("error closing redis client", "error", err)
	}

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("auth service stopped")
	return nil
}

func (app *Application) initDatabase() error {
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", app.cfg.DatabaseFile)
	db, err := sqlite.NewStore(dsn)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied successfully")
	return nil
}

func (app *Application) initRedis(ctx context.Context) error {
	app.redis = redis.NewClient(&redis.Options{
		Addr:     app.cfg.RedisAddr,
		Password: app.cfg.RedisPassword,
		DB:       app.cfg.RedisDB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := app.redis.Ping(pingCtx).Err(); err != nil {
		return fmt.Errorf("redis unreachable at %s: %w", app.cfg.RedisAddr, err)
	}

	app.states = registry.NewRedisStateStore(app.redis)
	return nil
}

func (app *Application) initServices() error {
	accessSigner, err := jwtx.NewSigner([]byte(app.cfg.AccessSecret))
	if err != nil {
		return fmt.Errorf("access secret: %w", err)
	}
	refreshSigner, err := jwtx.NewSigner([]byte(app.cfg.RefreshSecret))
	if err != nil {
		return fmt.Errorf("refresh secret: %w", err)
	}

	app.tokenService = &service.TokenService{
		Store:         app.db,
		Registry:      registry.NewRedisRegistry(app.redis),
		Credentials:   &service.CredentialService{Store: app.db},
		AccessSigner:  accessSigner,
		RefreshSigner: refreshSigner,
		RefreshVerifier: jwtx.NewVerifier(
			[]byte(app.cfg.RefreshSecret), app.cfg.Issuer, jwtx.TokenTypeRefresh),
		Issuer:     app.cfg.Issuer,
		AccessTTL:  app.cfg.AccessTTL,
		RefreshTTL: app.cfg.RefreshTTL,
	}

	app.oauthService = &service.OAuthService{
		Store:  app.db,
		Tokens: app.tokenService,
	}

	return nil
}

// initProviders builds the enabled OAuth providers. A provider without a
// client id is simply not registered; its routes answer 404.
func (app *Application) initProviders(ctx context.Context) error {
	var providers []provider.Provider

	if app.cfg.Google.Enabled() {
		p, err := provider.NewGoogle(ctx, app.cfg.Google)
		if err != nil {
			return err
		}
		providers = append(providers, p)
	}
	if app.cfg.Apple.Enabled() {
		p, err := provider.NewApple(ctx, app.cfg.Apple)
		if err != nil {
			return err
		}
		providers = append(providers, p)
	}
	if app.cfg.GitHub.Enabled() {
		p, err := provider.NewGitHub(app.cfg.GitHub)
		if err != nil {
			return err
		}
		providers = append(providers, p)
	}

	app.providers = provider.NewRegistry(providers...)
	app.logger.Info("oauth providers configured", "providers", app.providers.Names())
	return nil
}

func (app *Application) initHTTP() {
	accessVerifier := jwtx.NewVerifier(
		[]byte(app.cfg.AccessSecret), app.cfg.Issuer, jwtx.TokenTypeAccess)

	router := httpapi.NewRouter(
		accessVerifier,
		BuildVersion,
		app.db,
		func(ctx context.Context) error { return app.redis.Ping(ctx).Err() },
		app.logger,
	)

	router.Production = app.cfg.Production()
	router.OAuthSuccessURL = app.cfg.OAuthSuccessURL
	router.OAuthErrorURL = app.cfg.OAuthErrorURL
	router.StateTTL = app.cfg.OAuthStateTTL
	router.TokenService = app.tokenService
	router.OAuthService = app.oauthService
	router.Providers = app.providers
	router.States = app.states
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
