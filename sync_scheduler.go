package main

import (
	"context"
	"time"

	"github.com/mmdatafocus/manufacture_backend/queue"
	"github.com/mmdatafocus/manufacture_backend/utils"
	"github.com/sirupsen/logrus"
)

// SyncScheduler drives the periodic reconciliation against the ERP and
// fans a "refresh" out to the displays whenever a run reports an update.
type SyncScheduler struct {
	Cache    *queue.ProductionCache
	Notifier queue.Notifier
	Logger   *logrus.Logger
	Interval time.Duration
}

func NewSyncScheduler(cache *queue.ProductionCache, notifier queue.Notifier, logger *logrus.Logger) *SyncScheduler {
	interval := time.Duration(utils.EnvInt64("SYNC_INTERVAL_SECONDS", 180)) * time.Second
	return &SyncScheduler{
		Cache:    cache,
		Notifier: notifier,
		Logger:   logger,
		Interval: interval,
	}
}

// Run fires a reconciliation run every Interval until ctx is done. Ticks
// are not serialized: a run that outlasts the interval coexists with the
// next one. The cache's own critical sections keep that interleaving
// structurally safe, and the deployed displays are tuned to this cadence.
func (s *SyncScheduler) Run(ctx context.Context) {
	if s == nil || s.Cache == nil {
		return
	}
	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			go s.tick(ctx)
		}
	}
}

func (s *SyncScheduler) tick(ctx context.Context) {
	res := s.Cache.SyncDB(ctx)
	if res.Updated() {
		s.Notifier.Broadcast("refresh")
	}
	s.Logger.WithFields(logrus.Fields{
		"changed": res.Changed,
		"creates": res.Created,
	}).Debug("reconciliation run finished")
}
