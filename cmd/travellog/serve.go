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

	"github.com/spf13/cobra"

	"travellog/internal/appinfo"
	"travellog/internal/codec"
	"travellog/internal/config"
	"travellog/internal/database"
	"travellog/internal/handlers"
	"travellog/internal/middleware"
	"travellog/internal/session"
	"travellog/pkg/cache"
	"travellog/pkg/logger"
	"travellog/pkg/utils"
)

const shutdownTimeout = 15 * time.Second

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server (default)",
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("configuration: %w", err)
	}
	if cfg.App.Version == "" || Version != "dev" {
		cfg.App.Version = Version
	}

	if cfg.App.StartMessage {
		printBanner(cfg)
	}

	db, err := database.Open(cfg.Database.URL, database.Options{MaxOpenConns: cfg.Database.MaxOpenConns})
	if err != nil {
		return err
	}
	defer func() {
		if err := database.Close(db); err != nil {
			logger.LogWarn("Database close: %v", err)
		}
	}()

	repo := database.NewLocationRepo(db)
	count, size, err := repo.Stats(cmd.Context())
	if err != nil {
		logger.LogWarn("Could not load initial stats: %v", err)
	}
	appinfo.SetInitialStats(count, size)
	appinfo.StartTime = time.Now()

	store, err := session.OpenStore(cfg.Auth.SessionStore, cfg.Auth.SessionPath)
	if err != nil {
		return fmt.Errorf("session store: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.LogWarn("Session store close: %v", err)
		}
	}()
	sessions := session.NewService(store,
		session.NewMatcher(cfg.Auth.AccessCode, cfg.Auth.AccessCodeHash),
		cfg.SessionTTL())

	imgCodec := codec.New(codec.Options{
		MaxEdge:          cfg.Image.MaxEdge,
		Quality:          cfg.Image.Quality,
		ThumbnailSize:    cfg.Image.ThumbnailSize,
		ThumbnailQuality: cfg.Image.ThumbnailQuality,
		MaxPixels:        cfg.Image.MaxPixels,
	})

	thumbCache := cache.New(cfg.Cache.Enabled, int64(cfg.Cache.MaxCapacity)<<20, cfg.CacheTTL())

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("database handle: %w", err)
	}

	h := handlers.New(handlers.Deps{
		Config:    cfg,
		Sessions:  sessions,
		Locations: repo,
		Codec:     imgCodec,
		Cache:     thumbCache,
		Ping:      sqlDB.PingContext,
	})

	// Metrics sits directly on the mux so the matched route pattern is visible.
	var handler http.Handler = middleware.Metrics(h.Routes())
	if cfg.Security.RateLimit.Enabled {
		limiter := middleware.NewRateLimiter(
			cfg.Security.RateLimit.Requests,
			cfg.RateLimitWindow(),
			cfg.Security.RateLimit.Burst,
		)
		handler = limiter.Middleware(handler)
	}
	handler = middleware.CORS(cfg.Security.CorsOrigins)(handler)
	handler = middleware.Logger(handler)
	handler = middleware.RequestID(handler)

	read, write, idle := cfg.Timeouts()
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       read,
		WriteTimeout:      write,
		IdleTimeout:       idle,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.LogServerStart(cfg.Server.Port, cfg.GetBaseUrl(), cfg.Auth.SessionStore)
		logger.LogInfo("Upload limit %s, stored images up to %dpx", utils.FormatBytes(cfg.MaxUploadBytes()), cfg.Image.MaxEdge)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.LogInfo("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	logger.LogSuccess("Server stopped")
	return nil
}
