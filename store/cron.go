package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

var standardCronParser = cron.NewParser(
	cron.Minute |
		cron.Hour |
		cron.Dom |
		cron.Month |
		cron.Dow,
)

// ParseSchedule parses a UTC-only five-field cron expression.
func ParseSchedule(expr string) (cron.Schedule, error) {
	clean := strings.TrimSpace(expr)
	if clean == "" {
		return nil, fmt.Errorf("cron expression is required")
	}

	upper := strings.ToUpper(clean)
	if strings.Contains(upper, "CRON_TZ=") || strings.Contains(upper, "TZ=") {
		return nil, fmt.Errorf("cron expression must be UTC-only (timezone prefixes are not allowed)")
	}

	schedule, err := standardCronParser.Parse(clean)
	if err != nil {
		return nil, fmt.Errorf("invalid cron expression: %w", err)
	}
	return schedule, nil
}

// PruneSchedulerConfig configures the background retention pruner.
type PruneSchedulerConfig struct {
	Store    Store
	Schedule string
	Now      func() time.Time
	Logger   *slog.Logger
}

// PruneScheduler runs Store.Prune on a cron schedule.
type PruneScheduler struct {
	store    Store
	schedule cron.Schedule
	now      func() time.Time
	logger   *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewPruneScheduler creates a scheduler for the given store and cron
// expression.
func NewPruneScheduler(cfg PruneSchedulerConfig) (*PruneScheduler, error) {
	if cfg.Store == nil {
		return nil, errors.New("prune scheduler store is nil")
	}
	schedule, err := ParseSchedule(cfg.Schedule)
	if err != nil {
		return nil, err
	}
	if cfg.Now == nil {
		cfg.Now = func() time.Time { return time.Now().UTC() }
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &PruneScheduler{
		store:    cfg.Store,
		schedule: schedule,
		now:      cfg.Now,
		logger:   cfg.Logger,
	}, nil
}

// Start begins background pruning. Calling Start twice is a no-op.
func (s *PruneScheduler) Start(ctx context.Context) error {
	if s == nil {
		return errors.New("prune scheduler is nil")
	}

	s.mu.Lock()
	if s.cancel != nil {
		s.mu.Unlock()
		return nil
	}
	loopCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	s.cancel = cancel
	s.done = done
	s.mu.Unlock()

	go s.run(loopCtx, done)

	_ = ctx
	return nil
}

// Stop halts background pruning and waits for the loop to exit.
func (s *PruneScheduler) Stop(ctx context.Context) error {
	if s == nil {
		return nil
	}

	s.mu.Lock()
	cancel := s.cancel
	done := s.done
	s.cancel = nil
	s.done = nil
	s.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// run closes the done channel it was handed at Start; Stop nils the
// field, so the loop must not re-read it.
func (s *PruneScheduler) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	for {
		now := s.now().UTC()
		wait := s.schedule.Next(now).Sub(now)
		if wait < 0 {
			wait = 0
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		if err := s.store.Prune(ctx); err != nil {
			s.logger.Warn("store prune failed", "error", err)
		} else {
			s.logger.Debug("store pruned", "next", s.schedule.Next(s.now().UTC()))
		}
	}
}
