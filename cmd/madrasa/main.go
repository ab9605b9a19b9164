package main

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

	"github.com/hibiken/asynq"
	"github.com/spf13/cobra"

	"github.com/madrasa-erp/madrasa-erp/cmd/madrasa/cli"
	"github.com/madrasa-erp/madrasa-erp/internal/app"
	"github.com/madrasa-erp/madrasa-erp/internal/observability"
	"github.com/madrasa-erp/madrasa-erp/internal/platform/cache"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		var exit cli.ExitError
		if errors.As(err, &exit) {
			os.Exit(exit.Code)
		}
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "madrasa",
		Short:         "Madrasa ERP API server and operator tools",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context())
		},
	}
	cmd.AddCommand(
		cli.NewRBACCmd(openStore),
		cli.NewJobsCmd(openJobs),
	)
	return cmd
}

func openStore(ctx context.Context) (cli.SnapshotSource, func(), error) {
	cfg, err := app.LoadConfig()
	if err != nil {
		return nil, nil, err
	}
	store, closeFn, err := app.OpenStore(ctx, cfg, slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})))
	if err != nil {
		return nil, nil, err
	}
	return store, closeFn, nil
}

func openJobs(context.Context) (*cli.JobsCLI, error) {
	cfg, err := app.LoadConfig()
	if err != nil {
		return nil, err
	}
	return cli.NewJobsCLI(cfg.RedisAddr)
}

func serve(ctx context.Context) error {
	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		return err
	}

	logger := app.NewLogger(cfg)

	store, closeSource, err := app.OpenStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("load rbac data", slog.Any("error", err))
		return err
	}
	defer closeSource()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		return err
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	inspector := asynq.NewInspector(cache.QueueOptions(redisClient))
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	application := app.Build(app.Deps{
		Logger:    logger,
		Config:    cfg,
		Store:     store,
		Redis:     redisClient,
		Metrics:   observability.NewMetrics(),
		Inspector: inspector,
	})

	if cfg.WantsBootstrapAdmin() {
		if err := application.Users.Bootstrap(ctx, cfg.BootstrapAdminEmail, cfg.BootstrapAdminPassword); err != nil {
			logger.Error("bootstrap admin", slog.Any("error", err))
			return err
		}
		logger.Info("bootstrap admin ready", slog.String("email", cfg.BootstrapAdminEmail))
	}

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      application.Handler,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr), slog.Uint64("rbac_version", store.Snapshot().Version()))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		logger.Error("http server", slog.Any("error", err))
		return fmt.Errorf("http server: %w", err)
	}
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
		return err
	}
	return nil
}
