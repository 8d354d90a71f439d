// Package runtime assembles the configured application and manages the HTTP
// server lifecycle.
package runtime

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	app "github.com/Turistty/Simplifique-Application/internal/app"
	"github.com/Turistty/Simplifique-Application/internal/app/httpapi"
	"github.com/Turistty/Simplifique-Application/internal/app/metrics"
	catalogsvc "github.com/Turistty/Simplifique-Application/internal/app/services/catalog"
	"github.com/Turistty/Simplifique-Application/internal/app/storage/postgres"
	"github.com/Turistty/Simplifique-Application/internal/config"
	"github.com/Turistty/Simplifique-Application/internal/middleware"
	"github.com/Turistty/Simplifique-Application/internal/platform/migrations"
	"github.com/Turistty/Simplifique-Application/pkg/logger"
)

// Application wires core dependencies and manages the HTTP server lifecycle.
type Application struct {
	cfg   *config.Config
	log   *logger.Logger
	app   *app.Application
	httpd *http.Server
	db    *sqlx.DB
	redis *redis.Client
}

// NewApplication constructs a new application instance with default wiring.
func NewApplication() (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return NewApplicationWithConfig(cfg)
}

// NewApplicationWithConfig wires the application from an already loaded
// configuration.
func NewApplicationWithConfig(cfg *config.Config) (*Application, error) {
	log := logger.New(logger.LoggingConfig{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})

	stores, db, err := buildStores(cfg, log)
	if err != nil {
		return nil, fmt.Errorf("configure stores: %w", err)
	}

	opts := app.Options{
		TokenSecret: cfg.Auth.TokenSecret,
		TokenTTL:    cfg.Auth.TokenTTL.Std(),
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		opts.Cache = catalogsvc.NewRedisCache(redisClient, cfg.Redis.CacheTTL.Std(), log)
	}

	application, err := app.New(stores, opts, log)
	if err != nil {
		closeQuietly(db, redisClient, log)
		return nil, fmt.Errorf("build application: %w", err)
	}

	if cfg.Catalog.GroupedEndpoint != "" || cfg.Catalog.FallbackEndpoint != "" {
		source, err := catalogsvc.NewHTTPSource(
			&http.Client{Timeout: 15 * time.Second},
			cfg.Catalog.GroupedEndpoint,
			cfg.Catalog.FallbackEndpoint,
			cfg.Catalog.APIKey,
			log,
		)
		if err != nil {
			closeQuietly(db, redisClient, log)
			return nil, fmt.Errorf("configure catalog source: %w", err)
		}
		syncer := catalogsvc.NewSyncer(source, stores.Rewards, log).
			WithInterval(cfg.Catalog.SyncInterval.Std())
		if err := application.Attach(syncer); err != nil {
			closeQuietly(db, redisClient, log)
			return nil, fmt.Errorf("attach catalog syncer: %w", err)
		}
	}

	handler, err := buildHTTPHandler(cfg, application, log)
	if err != nil {
		closeQuietly(db, redisClient, log)
		return nil, err
	}

	httpd := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout.Std(),
		WriteTimeout: cfg.Server.WriteTimeout.Std(),
	}

	return &Application{
		cfg:   cfg,
		log:   log,
		app:   application,
		httpd: httpd,
		db:    db,
		redis: redisClient,
	}, nil
}

// App exposes the wired domain services, mainly for tests and tooling.
func (a *Application) App() *app.Application { return a.app }

// Run starts the background services and the HTTP server, blocking until the
// context is cancelled or ListenAndServe fails.
func (a *Application) Run(ctx context.Context) error {
	if err := a.app.Start(ctx); err != nil {
		return fmt.Errorf("start services: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		a.log.Infof("HTTP server listening on %s", a.cfg.Addr())
		if err := a.httpd.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		return err
	}
}

// Shutdown gracefully stops the HTTP server and background services.
func (a *Application) Shutdown(ctx context.Context) error {
	timeout := a.cfg.Server.ShutdownTimeout.Std()
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var first error
	if err := a.httpd.Shutdown(shutdownCtx); err != nil {
		first = err
	}
	if err := a.app.Stop(shutdownCtx); err != nil && first == nil {
		first = err
	}

	closeQuietly(a.db, a.redis, a.log)
	return first
}

func buildStores(cfg *config.Config, log *logger.Logger) (app.Stores, *sqlx.DB, error) {
	if cfg.Database.DSN == "" {
		log.Warn("DATABASE_DSN not set; using in-memory stores")
		return app.Stores{}, nil, nil
	}

	db, err := openDatabase(cfg.Database)
	if err != nil {
		return app.Stores{}, nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := migrations.Apply(ctx, db.DB); err != nil {
		db.Close()
		return app.Stores{}, nil, fmt.Errorf("apply migrations: %w", err)
	}

	store := postgres.New(db)
	return app.Stores{
		Users:     store,
		Rewards:   store,
		Ledger:    store,
		Movements: store,
	}, db, nil
}

func openDatabase(cfg config.DatabaseConfig) (*sqlx.DB, error) {
	db, err := sqlx.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, err
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Second)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func buildHTTPHandler(cfg *config.Config, application *app.Application, log *logger.Logger) (http.Handler, error) {
	guard := middleware.NewGuard(application.Identity, middleware.DefaultProtectedPrefixes, log)

	api, err := httpapi.NewHandler(application, guard, httpapi.Options{
		AuditFile:    cfg.Server.AuditFile,
		CookieSecure: cfg.Server.CookieSecure,
	})
	if err != nil {
		return nil, fmt.Errorf("build http handler: %w", err)
	}

	root := http.NewServeMux()
	root.Handle("/api/admin/", guard.RequireAdmin(httpapi.NewAdminRouter(application)))
	root.Handle("/metrics", metrics.Handler())
	root.Handle("/", guard.Handler(api))

	var handler http.Handler = root
	if cfg.Server.RateLimit > 0 {
		limiter := middleware.NewRateLimiter(cfg.Server.RateLimit, cfg.Server.RateBurst, log)
		limiter.StartCleanup(time.Minute)
		handler = limiter.Handler(handler)
	}

	origins := cfg.Server.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	handler = middleware.NewCORSMiddleware(origins).Handler(handler)
	handler = metrics.InstrumentHandler(handler)
	return handler, nil
}

func closeQuietly(db *sqlx.DB, redisClient *redis.Client, log *logger.Logger) {
	if db != nil {
		if err := db.Close(); err != nil {
			log.WithError(err).Warn("error closing database connection")
		}
	}
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			log.WithError(err).Warn("error closing redis client")
		}
	}
}
