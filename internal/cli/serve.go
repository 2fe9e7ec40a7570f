package cli

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/agentsight/agentsight/internal/config"
	"github.com/agentsight/agentsight/internal/handlers"
	"github.com/agentsight/agentsight/internal/hub"
	"github.com/agentsight/agentsight/internal/logging"
	"github.com/agentsight/agentsight/internal/middleware"
	"github.com/agentsight/agentsight/internal/mirror"
	"github.com/agentsight/agentsight/internal/ratelimit"
	"github.com/agentsight/agentsight/internal/server"
	"github.com/agentsight/agentsight/internal/service"
	"github.com/agentsight/agentsight/internal/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the observability server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe() error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := logging.New(
		logging.ParseLevel(cfg.Logging.Level),
		cfg.Logging.Format,
	).With(logging.Service("agentsight"))
	logging.SetDefault(logger)

	slog.Info("starting server",
		slog.Int("port", cfg.Server.Port),
		slog.String("store_path", cfg.Store.Path),
		slog.String("log_level", cfg.Logging.Level),
	)

	// Durable event log
	st, err := store.Open(cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}

	if cfg.Store.RetentionDays > 0 {
		st.SetRetention(store.RetentionPolicy{
			MaxAge:          time.Duration(cfg.Store.RetentionDays) * 24 * time.Hour,
			CleanupInterval: cfg.Store.CleanupInterval,
		})
		slog.Info("retention enabled",
			slog.Int("days", cfg.Store.RetentionDays),
			slog.Duration("interval", cfg.Store.CleanupInterval),
		)
	}

	// Broadcast hub
	broadcastHub := hub.New(logger, hub.Options{
		QueueSize:    cfg.Broadcast.QueueSize,
		WriteTimeout: cfg.Broadcast.WriteTimeout,
	})

	// Optional rate limiter
	var limiter ratelimit.RateLimiter = &ratelimit.NoOpRateLimiter{}
	if cfg.Redis.Enabled && cfg.Ingestion.RateLimitEnabled {
		rl, err := ratelimit.NewRedisRateLimiter(
			cfg.Redis.URL,
			cfg.Ingestion.RateLimitRequests,
			cfg.Ingestion.RateLimitWindow,
		)
		if err != nil {
			slog.Warn("rate limiter unavailable, continuing without", logging.Error(err))
		} else {
			limiter = rl
			slog.Info("rate limiting enabled",
				slog.Int("requests", cfg.Ingestion.RateLimitRequests),
				slog.Duration("window", cfg.Ingestion.RateLimitWindow),
			)
		}
	}
	defer limiter.Close()

	// Optional NATS mirror
	var eventMirror service.Mirror
	if cfg.NATS.Enabled {
		pub, err := mirror.Connect(mirror.Config{
			URL:     cfg.NATS.URL,
			Subject: cfg.NATS.Subject,
		})
		if err != nil {
			slog.Warn("NATS mirror unavailable, continuing without", logging.Error(err))
		} else {
			eventMirror = pub
			defer pub.Close()
			slog.Info("NATS mirror enabled", slog.String("subject", cfg.NATS.Subject))
		}
	}

	coordinator := service.New(st, broadcastHub, eventMirror, logger)

	corsCfg := middleware.DefaultCORSConfig()
	if len(cfg.CORS.AllowedOrigins) > 0 {
		corsCfg.AllowedOrigins = cfg.CORS.AllowedOrigins
	}

	handler := handlers.New(coordinator, st, broadcastHub, limiter, cfg.Ingestion.MaxEventSize, logger)
	router := server.NewRouter(handler, corsCfg)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		slog.Info("listening", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", logging.Error(err))
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	// Shutdown order matters: stop accepting submissions and let
	// in-flight appends finish, then close observers, then release the
	// store. No event is lost mid-shutdown and no observer is abandoned
	// without a close frame.
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.WriteTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Warn("forced server shutdown", logging.Error(err))
	}

	broadcastHub.Shutdown()

	if err := st.Close(); err != nil {
		slog.Error("close store", logging.Error(err))
	}

	stats := coordinator.Stats()
	slog.Info("server stopped",
		slog.Int64("events_stored", stats.Stored),
		slog.Int64("events_rejected", stats.Rejected),
	)
	return nil
}
