// Package scheduler periodically refreshes cached station series so that
// long-running instances pick up newly published observations.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
	"go.uber.org/zap"
)

// Refresher re-downloads series data for stations already held in the cache.
type Refresher interface {
	CachedStations() []string
	Refresh(ctx context.Context, stationID string) error
}

// Scheduler runs the refresh job at a fixed interval.
type Scheduler struct {
	ctx       context.Context
	wg        *sync.WaitGroup
	scheduler *gocron.Scheduler
	refresher Refresher
	interval  time.Duration
	logger    *zap.SugaredLogger
}

// NewScheduler creates a refresh scheduler. It does nothing until Start is
// called.
func NewScheduler(ctx context.Context, wg *sync.WaitGroup, interval time.Duration, refresher Refresher, logger *zap.SugaredLogger) *Scheduler {
	return &Scheduler{
		ctx:       ctx,
		wg:        wg,
		scheduler: gocron.NewScheduler(time.UTC),
		refresher: refresher,
		interval:  interval,
		logger:    logger,
	}
}

// Start schedules the periodic refresh job and stops it when the context is
// cancelled.
func (s *Scheduler) Start() error {
	if _, err := s.scheduler.Every(s.interval).Do(s.refreshAll); err != nil {
		return err
	}
	s.scheduler.StartAsync()
	s.logger.Infof("refresh scheduler started, interval %s", s.interval)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		<-s.ctx.Done()
		s.logger.Info("stopping refresh scheduler")
		s.scheduler.Stop()
	}()
	return nil
}

// refreshAll re-fetches every cached station series. Individual failures are
// logged and skipped so one unreachable archive does not stall the rest.
func (s *Scheduler) refreshAll() {
	stations := s.refresher.CachedStations()
	if len(stations) == 0 {
		return
	}

	s.logger.Infof("refreshing %d cached station series", len(stations))
	for _, id := range stations {
		if s.ctx.Err() != nil {
			return
		}
		if err := s.refresher.Refresh(s.ctx, id); err != nil {
			s.logger.Warnf("refresh of station %s failed: %v", id, err)
		}
	}
}
