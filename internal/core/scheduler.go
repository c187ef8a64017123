package core

// scheduler.go retries failed state saves in the background.
//
// Mutations never fail because storage is unavailable; they mark the state
// dirty instead. The scheduler flushes a dirty state on every tick and once
// more on shutdown.

import (
	"context"
	"log/slog"
	"time"
)

// DefaultPersistInterval is used when StartPersistScheduler gets a
// non-positive interval.
const DefaultPersistInterval = 30 * time.Second

// StartPersistScheduler blocks, flushing dirty state every interval until
// ctx is cancelled. A final flush runs after cancellation.
func (s *Service) StartPersistScheduler(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultPersistInterval
	}
	slog.Info("persist scheduler started", "interval", interval.String())

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.runPersistJob(context.WithoutCancel(ctx))
			slog.Info("persist scheduler stopped")
			return
		case <-ticker.C:
			s.runPersistJob(ctx)
		}
	}
}

// runPersistJob performs one flush attempt.
func (s *Service) runPersistJob(ctx context.Context) {
	if !s.Dirty() {
		return
	}
	start := time.Now()
	if err := s.Flush(ctx); err != nil {
		slog.Warn("persist retry failed", "error", err)
		return
	}
	slog.Info("persist retry succeeded", "duration_ms", time.Since(start).Milliseconds())
}
