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
	"go.uber.org/zap"

	"github.com/iwvelando/heloc-forecast/internal/cache"
	"github.com/iwvelando/heloc-forecast/internal/server"
	"github.com/iwvelando/heloc-forecast/internal/store"
	"github.com/iwvelando/heloc-forecast/internal/telemetry"
	"github.com/iwvelando/heloc-forecast/pkg/constants"
)

var flagServerConfig string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the forecast API over HTTP",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&flagServerConfig, "server-config", constants.DefaultServerConfigFile, "path to server configuration file")
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := server.LoadConfig(flagServerConfig)
	if err != nil {
		return err
	}

	logger, err := initializeLogger(cfg.Logging, flagLogLevel)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, cfg.OTelEndpoint)
	if err != nil {
		return fmt.Errorf("failed to set up tracing: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(flushCtx)
	}()

	var opts []server.Option
	if cfg.DBPath != "" {
		runs, err := store.Open(cfg.DBPath)
		if err != nil {
			return err
		}
		defer func() {
			_ = runs.Close()
		}()
		opts = append(opts, server.WithRunStore(runs))
	}
	opts = append(opts, server.WithCache(newCache(ctx, logger, cfg)))

	handler := server.NewHandler(logger, cfg, version, opts...)
	defer handler.Close()

	srv := &http.Server{
		Addr:              cfg.Address,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening",
			zap.String("op", "main.runServe"),
			zap.String("address", cfg.Address),
			zap.Bool("runHistory", cfg.DBPath != ""),
		)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	logger.Info("server shutting down", zap.String("op", "main.runServe"))
	return srv.Shutdown(shutdownCtx)
}

// newCache prefers Redis when configured and reachable, and falls back to an
// in-process cache.
func newCache(ctx context.Context, logger *zap.Logger, cfg *server.Config) cache.Cache {
	if cfg.RedisAddr == "" {
		return cache.NewMemory(cfg.CacheTTL())
	}
	redis := cache.NewRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.CacheTTL())
	if err := redis.Ping(ctx); err != nil {
		logger.Warn("redis unavailable, using in-memory cache",
			zap.String("op", "main.newCache"),
			zap.String("address", cfg.RedisAddr),
			zap.Error(err),
		)
		_ = redis.Close()
		return cache.NewMemory(cfg.CacheTTL())
	}
	return redis
}
