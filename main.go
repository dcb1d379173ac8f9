// api/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	zlog "github.com/rs/zerolog/log"

	"investgroup/api/analytics"
	"investgroup/api/config"
	"investgroup/api/database"
	"investgroup/api/handlers"
	"investgroup/api/logger"
	"investgroup/api/middleware"
	"investgroup/api/store"
	"investgroup/api/utils"
)

// eventBackend is the event store chosen by EVENT_STORE plus its cleanup.
type eventBackend struct {
	store interface {
		analytics.EventStore
		handlers.Pinger
	}
	close func()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.LogLevel, cfg.LogFormat)

	if cfg.GinMode == gin.ReleaseMode || cfg.AppEnv == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	// --- Site database (admin accounts, article titles) ---
	var siteDB *database.DBClient
	if cfg.DatabaseURL != "" {
		siteDB, err = database.NewPostgresDB(cfg.DatabaseURL)
		if err != nil {
			zlog.Fatal().Err(err).Msg("failed to initialize PostgreSQL database")
		}
		defer siteDB.Close()
	}

	// --- Event store ---
	backend, err := openEventStore(cfg, siteDB)
	if err != nil {
		zlog.Fatal().Err(err).Str("event_store", cfg.EventStore).Msg("failed to initialize event store")
	}
	defer backend.close()

	writer := store.NewBreakerWriter(backend.store, store.BreakerConfig{
		Name:             "event-store",
		FailureThreshold: cfg.BreakerFailures,
		Timeout:          cfg.BreakerTimeout,
	})

	// --- Analytics core ---
	tracker := analytics.NewTracker(writer, analytics.WithIgnoredPaths(cfg.TrackIgnorePrefixes...))
	aggregator := analytics.NewAggregator(backend.store)
	if siteDB != nil {
		aggregator.WithTitles(store.NewArticleStore(siteDB.DB))
	}

	// --- Handlers ---
	if err := handlers.RegisterValidations(); err != nil {
		zlog.Fatal().Err(err).Msg("failed to register request validations")
	}
	analyticsHandlers := handlers.NewAnalyticsHandlers(tracker, aggregator, handlers.AnalyticsOptions{
		CountryHeader:  cfg.CountryHeader,
		TrackTimeout:   cfg.TrackTimeout,
		SummaryTimeout: cfg.SummaryTimeout,
	})

	var jwtManager *utils.JWTManager
	if cfg.JWTSecret != "" {
		jwtManager, err = utils.NewJWTManager(cfg.JWTSecret, cfg.JWTTTL)
		if err != nil {
			zlog.Fatal().Err(err).Msg("failed to configure JWT")
		}
	}

	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestID(), middleware.AccessLog())
	r.Use(middleware.CORSMiddleware(cfg.FrontendOrigin))

	r.GET("/healthz", handlers.Health(backend.store))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	{
		limiter := middleware.NewRateLimiter(cfg.TrackRateLimit, cfg.TrackRateBurst)
		api.POST("/analytics/track", limiter.Middleware(), analyticsHandlers.Track)

		admin := api.Group("/admin")
		if jwtManager != nil {
			authHandlers := handlers.NewAuthHandlers(store.NewUserStore(siteDB.DB), jwtManager, cfg.AppEnv == "prod")
			admin.POST("/login", authHandlers.Login)
			admin.POST("/logout", authHandlers.Logout)
		}

		protected := admin.Group("/analytics")
		protected.Use(middleware.AdminRequired(jwtManager, cfg.AdminAPIKey))
		{
			protected.GET("/summary", analyticsHandlers.Summary)
			protected.GET("/dashboard", analyticsHandlers.Dashboard)
		}
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		zlog.Info().Str("port", cfg.Port).Str("event_store", cfg.EventStore).Msg("analytics API starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Fatal().Err(err).Msg("analytics API failed to start")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zlog.Info().Msg("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		zlog.Error().Err(err).Msg("server forced to shutdown")
	}

	zlog.Info().Msg("server exiting")
}

// openEventStore connects the configured backend and creates its table.
// EVENT_STORE=postgres reuses the site database connection.
func openEventStore(cfg *config.Config, siteDB *database.DBClient) (*eventBackend, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	switch cfg.EventStore {
	case config.StoreClickHouse:
		ch, err := database.NewClickHouseDB(cfg.ClickHouse)
		if err != nil {
			return nil, err
		}
		s := store.NewClickHouseEventStore(ch.Conn)
		if err := s.Migrate(ctx); err != nil {
			ch.Close()
			return nil, err
		}
		return &eventBackend{store: s, close: ch.Close}, nil

	case config.StorePostgres:
		s := store.NewSQLEventStore(siteDB.DB, store.Postgres)
		if err := s.Migrate(ctx); err != nil {
			return nil, err
		}
		return &eventBackend{store: s, close: func() {}}, nil

	case config.StoreSQLite, config.StoreDuckDB:
		var (
			client *database.DBClient
			err    error
		)
		if cfg.EventStore == config.StoreSQLite {
			client, err = database.NewSQLiteDB(cfg.SQLitePath)
		} else {
			client, err = database.NewDuckDB(cfg.DuckDBPath)
		}
		if err != nil {
			return nil, err
		}
		dialect, err := store.DialectFor(cfg.EventStore)
		if err != nil {
			client.Close()
			return nil, err
		}
		s := store.NewSQLEventStore(client.DB, dialect)
		if err := s.Migrate(ctx); err != nil {
			client.Close()
			return nil, err
		}
		if cfg.EventStore != config.StoreSQLite || cfg.SQLitePath == ":memory:" {
			return &eventBackend{store: s, close: client.Close}, nil
		}

		// The writer keeps a single connection; summaries read through their
		// own pool so they never hold it.
		reader, err := database.NewSQLiteReader(cfg.SQLitePath, cfg.SQLiteReadConns)
		if err != nil {
			client.Close()
			return nil, err
		}
		s.WithReader(reader.DB)
		return &eventBackend{store: s, close: func() {
			reader.Close()
			client.Close()
		}}, nil

	default:
		return nil, fmt.Errorf("unsupported EVENT_STORE %q", cfg.EventStore)
	}
}
