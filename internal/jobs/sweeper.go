package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sevigo/bounty-warden/internal/core"
)

// Sweeper periodically queues every reviewing record for a poll.
type Sweeper struct {
	store      core.Store
	dispatcher core.JobDispatcher
	interval   time.Duration
	logger     *slog.Logger
}

// NewSweeper creates a sweeper. A non-positive interval disables Run.
func NewSweeper(store core.Store, dispatcher core.JobDispatcher, interval time.Duration, logger *slog.Logger) *Sweeper {
	return &Sweeper{store: store, dispatcher: dispatcher, interval: interval, logger: logger}
}

// Run sweeps on every tick until ctx is done.
func (s *Sweeper) Run(ctx context.Context) {
	if s.interval <= 0 {
		return
	}
	s.logger.Info("poll sweeper started", "interval", s.interval)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("poll sweeper stopped")
			return
		case <-ticker.C:
			if n, err := s.SweepOnce(ctx); err != nil {
				s.logger.Warn("poll sweep incomplete", "queued", n, "error", err)
			} else if n > 0 {
				s.logger.Debug("poll sweep queued records", "queued", n)
			}
		}
	}
}

// SweepOnce queues all reviewing records and returns how many were queued.
func (s *Sweeper) SweepOnce(ctx context.Context) (int, error) {
	recs, err := s.store.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list pull requests: %w", err)
	}

	queued := 0
	for _, rec := range recs {
		if rec.Status != core.StatusReviewing {
			continue
		}
		if err := s.dispatcher.Dispatch(ctx, rec.ID); err != nil {
			return queued, err
		}
		queued++
	}
	return queued, nil
}
