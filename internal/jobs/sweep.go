// Package jobs runs scheduled background work.
package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/tabortao/HomeRecord/internal/honor"
	"github.com/tabortao/HomeRecord/internal/model"
)

type UserLister interface {
	ListTopLevel(ctx context.Context) ([]model.User, error)
}

type Evaluator interface {
	Evaluate(ctx context.Context, userID int64) (*honor.Result, error)
}

// Sweeper evaluates honors for every top-level account on a cron schedule,
// so streak honors are granted even on days nobody triggers a check.
type Sweeper struct {
	mu     sync.Mutex
	cron   *cron.Cron
	users  UserLister
	engine Evaluator
	notify func(*honor.Result)
	cancel context.CancelFunc
	logger *slog.Logger
}

// NewSweeper creates a sweeper whose schedule is interpreted in loc. notify,
// if non-nil, is called for every evaluation that granted something.
func NewSweeper(users UserLister, engine Evaluator, notify func(*honor.Result), loc *time.Location, logger *slog.Logger) *Sweeper {
	cronLog := cron.PrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelDebug))
	return &Sweeper{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog)),
		),
		users:  users,
		engine: engine,
		notify: notify,
		logger: logger,
	}
}

// Start schedules the sweep with a standard five-field cron spec.
func (s *Sweeper) Start(ctx context.Context, spec string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	if _, err := s.cron.AddFunc(spec, func() { s.Run(ctx) }); err != nil {
		cancel()
		return fmt.Errorf("schedule sweep %q: %w", spec, err)
	}
	s.cancel = cancel
	s.cron.Start()
	s.logger.Info("honor sweep scheduled", "schedule", spec)
	return nil
}

// Stop cancels a running sweep and waits for it to return.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	<-s.cron.Stop().Done()
}

// Run evaluates every top-level account once. A failing account is logged
// and skipped.
func (s *Sweeper) Run(ctx context.Context) (evaluated, failed int) {
	start := time.Now()
	users, err := s.users.ListTopLevel(ctx)
	if err != nil {
		s.logger.Error("sweep: list users", "error", err)
		return 0, 0
	}

	granted := 0
	for _, u := range users {
		if ctx.Err() != nil {
			break
		}
		res, err := s.engine.Evaluate(ctx, u.ID)
		if err != nil {
			failed++
			s.logger.Warn("sweep: evaluate", "user_id", u.ID, "error", err)
			continue
		}
		evaluated++
		if len(res.Granted) > 0 {
			granted += len(res.Granted)
			if s.notify != nil {
				s.notify(res)
			}
		}
	}

	s.logger.Info("honor sweep finished",
		"users", evaluated,
		"failed", failed,
		"granted", granted,
		"duration", time.Since(start),
	)
	return evaluated, failed
}
