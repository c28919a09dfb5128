package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/JonMunkholm/sweeper/internal/config"
	"github.com/JonMunkholm/sweeper/internal/core"
	"github.com/JonMunkholm/sweeper/internal/logging"
	"github.com/JonMunkholm/sweeper/internal/metrics"
	"github.com/JonMunkholm/sweeper/internal/web"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}

func run() error {
	// .env values win over the inherited environment.
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("configuration loaded", "config", cfg.String())

	m := metrics.New()
	service := newService(cfg, m)
	m.TrackService(service)

	var names []string
	for _, f := range service.ListFormats() {
		names = append(names, string(f.Format))
	}
	slog.Info("formats registered", "formats", names)

	server := web.NewServer(cfg, service, m)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		service.StartWorkspaceSweeper(ctx, cfg.Workspace.SweepInterval)
		return nil
	})
	g.Go(server.Start)
	g.Go(func() error {
		<-ctx.Done()
		slog.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if active := service.Limiter().ActiveCount(); active > 0 {
			slog.Info("waiting for runs to complete", "active", active)
			if err := service.Limiter().WaitForDrain(shutdownCtx); err != nil {
				slog.Warn("runs did not complete in time", "error", err)
			}
		}
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func newService(cfg *config.Config, obs core.Observer) *core.Service {
	return core.NewService(core.ServiceConfig{
		PreviewRows:   cfg.Upload.PreviewRows,
		MaxConcurrent: cfg.Upload.MaxConcurrent,
		MaxWait:       cfg.Upload.MaxWaitTime,
		WorkspaceTTL:  cfg.Workspace.TTL,
		MaxWorkspaces: cfg.Workspace.Max,
		Chart: core.ChartOptions{
			Width:   cfg.Chart.Width,
			Height:  cfg.Chart.Height,
			MaxBars: cfg.Chart.MaxBars,
		},
		Observer: obs,
	})
}
