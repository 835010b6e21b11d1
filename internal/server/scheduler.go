package server

import (
	"context"
	"log"
	"time"

	"github.com/gorhill/cronexpr"

	"github.com/mohammad-safakhou/vidsum/internal/cache"
	"github.com/mohammad-safakhou/vidsum/internal/store"
)

const (
	summaryRetention  = 7 * 24 * time.Hour
	pruneLockKey      = "prune:lock"
	pruneLockDuration = 10 * time.Minute
)

// Scheduler prunes aged summaries and orphaned transcript chunks on a cron
// cadence. A Redis lock keeps concurrent replicas from pruning twice.
type Scheduler struct {
	Store  *store.Store
	Cache  *cache.Cache
	Cron   string
	Stop   chan struct{}
	Logger *log.Logger

	lastRun *time.Time
}

func (s *Scheduler) Start() {
	if s.Logger == nil {
		s.Logger = log.New(log.Writer(), "[SCHED] ", log.LstdFlags)
	}
	ticker := time.NewTicker(1 * time.Hour)
	go func() {
		for {
			select {
			case <-s.Stop:
				ticker.Stop()
				return
			case <-ticker.C:
				s.tick()
			}
		}
	}()
}

func (s *Scheduler) tick() {
	if !isDue(s.Cron, s.lastRun) {
		return
	}
	ctx := context.Background()
	if s.Cache != nil && !s.Cache.AcquireLock(ctx, pruneLockKey, pruneLockDuration) {
		return
	}
	now := time.Now()
	s.lastRun = &now

	removed, err := s.Store.PruneSummaries(ctx, summaryRetention)
	if err != nil {
		s.Logger.Printf("WARN pruning summaries: %v", err)
		return
	}
	orphans, err := s.Store.PruneOrphanChunks(ctx)
	if err != nil {
		s.Logger.Printf("WARN pruning orphan chunks: %v", err)
		return
	}
	s.Logger.Printf("pruned %d summaries and %d orphan chunks", removed, orphans)
}

// isDue determines whether a cron spec should fire now given the last run
// time. Supports "@daily", "@hourly", and standard 5-field cron expressions;
// invalid specs fall back to @daily.
func isDue(cronSpec string, last *time.Time) bool {
	now := time.Now()
	switch cronSpec {
	case "@daily":
		if last == nil {
			return true
		}
		return now.Sub(*last) >= 24*time.Hour
	case "@hourly":
		if last == nil {
			return true
		}
		return now.Sub(*last) >= time.Hour
	default:
		expr, err := cronexpr.Parse(cronSpec)
		if err != nil {
			if last == nil {
				return true
			}
			return now.Sub(*last) >= 24*time.Hour
		}
		if last == nil {
			return true
		}
		next := expr.Next(*last)
		return !next.After(now)
	}
}
