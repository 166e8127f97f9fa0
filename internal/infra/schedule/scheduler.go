package schedule

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Resyncer re-fetches every open session from the backend.
type Resyncer interface {
	ResyncAll(ctx context.Context) error
}

// Scheduler runs the periodic resync that repairs views which missed a push.
type Scheduler struct {
	cron    *cron.Cron
	target  Resyncer
	timeout time.Duration
	logger  *slog.Logger
}

func NewScheduler(expr string, target Resyncer, timeout time.Duration, logger *slog.Logger) (*Scheduler, error) {
	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)
	s := &Scheduler{cron: c, target: target, timeout: timeout, logger: logger}
	if _, err := c.AddFunc(expr, s.runResync); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Scheduler) runResync() {
	ctx := context.Background()
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	start := time.Now()
	err := s.target.ResyncAll(ctx)
	if s.logger == nil {
		return
	}
	if err != nil {
		s.logger.Warn("scheduled resync failed", "error", err, "duration", time.Since(start))
		return
	}
	s.logger.Debug("scheduled resync finished", "duration", time.Since(start))
}

func (s *Scheduler) Start() {
	s.cron.Start()
	if s.logger != nil {
		s.logger.Info("resync scheduler started", "entries", len(s.cron.Entries()))
	}
}

// Stop waits for a running resync to finish or ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
	}
}

func (s *Scheduler) Next() time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}
