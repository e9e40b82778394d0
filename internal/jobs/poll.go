package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/sevigo/bounty-warden/internal/core"
	"github.com/sevigo/bounty-warden/internal/gateway"
)

// Poller is the part of the gateway a poll job needs.
type Poller interface {
	Poll(ctx context.Context, key string) (*gateway.Outcome, error)
}

// PollJob re-checks a single pull request for a bot review.
type PollJob struct {
	poller  Poller
	timeout time.Duration
	logger  *slog.Logger
}

// NewPollJob creates a core.Job that polls through p. Each run is bounded by timeout when positive.
func NewPollJob(p Poller, timeout time.Duration, logger *slog.Logger) *PollJob {
	return &PollJob{poller: p, timeout: timeout, logger: logger}
}

// Run implements core.Job.
func (j *PollJob) Run(ctx context.Context, key string) error {
	if j.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.timeout)
		defer cancel()
	}

	out, err := j.poller.Poll(ctx, key)
	if err != nil {
		return err
	}
	if out.Pending {
		j.logger.Debug("review still pending", "pr", key)
		return nil
	}
	j.logger.Info("poll settled pull request", "pr", key, "status", out.Record.Status)
	return nil
}

var _ core.Job = (*PollJob)(nil)
