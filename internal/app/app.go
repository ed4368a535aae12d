// Package app wires the station index, the archive provider, the persistent
// cache, and the HTTP surface together and runs them until shutdown.
package app

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"go.uber.org/zap"

	"github.com/retrowetter/retrowetter/internal/controllers/restserver"
	"github.com/retrowetter/retrowetter/internal/dwd"
	"github.com/retrowetter/retrowetter/internal/log"
	"github.com/retrowetter/retrowetter/internal/scheduler"
	"github.com/retrowetter/retrowetter/internal/storage"
	"github.com/retrowetter/retrowetter/pkg/config"
)

// App represents the main application
type App struct {
	cfg    *config.ConfigData
	logger *zap.SugaredLogger
}

// New creates a new application instance
func New(cfg *config.ConfigData, logger *zap.SugaredLogger) *App {
	return &App{
		cfg:    cfg,
		logger: logger,
	}
}

// Run starts the application and blocks until shutdown
func (a *App) Run(ctx context.Context) error {
	var wg sync.WaitGroup

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// The station index must load; without it nothing can be served.
	index, err := dwd.LoadStations(a.cfg.StationsFile)
	if err != nil {
		return err
	}
	log.Infof("loaded %d stations from %s", len(index.List()), a.cfg.StationsFile)

	var store dwd.Store
	if a.cfg.Cache.Database != "" {
		sqlStore, err := storage.Open(a.cfg.Cache.Database)
		if err != nil {
			return err
		}
		defer sqlStore.Close()
		store = sqlStore
		log.Infof("persistent series cache at %s", a.cfg.Cache.Database)
	}

	provider := dwd.NewProvider(dwd.ProviderConfig{
		HistoricalURL: a.cfg.DWD.HistoricalURL,
		RecentURL:     a.cfg.DWD.RecentURL,
		Timeout:       a.cfg.DWD.Timeout.AsDuration(),
	}, index, store, a.logger)
	provider.WarmCache()

	restController, err := restserver.NewController(ctx, &wg, a.cfg.HTTP, index, provider, a.logger)
	if err != nil {
		return err
	}
	if err := restController.StartController(); err != nil {
		return err
	}

	if interval := a.cfg.Cache.RefreshInterval.AsDuration(); interval > 0 {
		refresh := scheduler.NewScheduler(ctx, &wg, interval, provider, a.logger)
		if err := refresh.Start(); err != nil {
			return err
		}
	}

	log.Info("Application started successfully")

	// Set up signal handling
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	// Wait for shutdown signal
	select {
	case <-sigs:
		log.Info("shutdown signal received, initiating graceful shutdown...")
	case <-ctx.Done():
		log.Info("context cancelled, shutting down...")
	}

	// Cancel context to signal all goroutines to stop
	cancel()

	// Wait for all workers to terminate
	log.Info("waiting for all workers to terminate...")
	wg.Wait()
	log.Info("shutdown complete")

	return nil
}
