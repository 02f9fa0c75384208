package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hperssn/physiovr/internal/config"
	"github.com/hperssn/physiovr/internal/domain"
	httpapi "github.com/hperssn/physiovr/internal/http"
	"github.com/hperssn/physiovr/internal/metrics"
	"github.com/hperssn/physiovr/internal/platform/logging"
	"github.com/hperssn/physiovr/internal/runner"
	"github.com/hperssn/physiovr/internal/storage"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := logging.InitLogger(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	catalog, err := domain.LoadCatalog(cfg.CatalogPath)
	if err != nil {
		return err
	}
	logger.Info("catalog loaded", "exercises", catalog.Len(), "path", cfg.CatalogPath)

	repo, err := storage.Open(ctx, cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer repo.Close()

	manager := runner.NewSessionManager(runner.ManagerConfig{
		Catalog: catalog,
		Observer: runner.Observers{
			metrics.Observer{},
			storage.NewRecorder(repo, logger),
		},
		Logger:          logger,
		Countdown:       cfg.Countdown(),
		Unit:            cfg.StepUnit,
		IdleTTL:         cfg.IdleTTL,
		CleanupInterval: cfg.CleanupInterval,
	})
	defer manager.Close()

	if err := metrics.RegisterSessionCount(prometheus.DefaultRegisterer, manager.Len); err != nil {
		return err
	}

	router := httpapi.NewRouter(httpapi.RouterConfig{
		Manager:    manager,
		Repository: repo,
		Logger:     logger,
		DevUser:    cfg.DevUser,
		StaticDir:  cfg.StaticDir,
	})

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", srv.Addr, "database", cfg.DatabaseDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	// close machines first so open event streams end
	manager.Close()
	return srv.Shutdown(shutdownCtx)
}
