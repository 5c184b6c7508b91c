// Package backup runs the recurring database backup. The schedule lives in
// the app_settings table and is re-read on every tick; the audit trail is
// both the run log and the idempotency store deciding whether today's
// occurrence already happened. Exactly one scheduler must run against a
// given store/settings pair; multi-replica coordination is the deployment's
// responsibility.
package backup

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/avetra/backoffice/internal/audit"
	"github.com/avetra/backoffice/internal/settings"
	"github.com/avetra/backoffice/pkg/db/store"
	"github.com/avetra/backoffice/pkg/log"
)

// State is the scheduler's position in its run cycle.
type State int

const (
	StateIdle State = iota
	StateDue
	StateRunning
	StateSucceeded
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateDue:
		return "due"
	case StateRunning:
		return "running"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Result describes a completed backup run.
type Result struct {
	Artifact string
	Duration time.Duration
}

// Runner executes the actual backup procedure. Implementations are opaque
// to the scheduler.
type Runner interface {
	Run(ctx context.Context) (Result, error)
}

// Clock supplies the current instant; injectable for tests.
type Clock func() time.Time

// Scheduler evaluates the backup schedule on a fixed tick and triggers at
// most one run per scheduled occurrence per local calendar day.
type Scheduler struct {
	settings *settings.Store
	rec      *audit.Recorder
	runner   Runner
	log      log.LoggerService

	clock    Clock
	interval time.Duration

	mu    sync.Mutex
	state State
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithClock replaces the wall clock, used by tests to pin the tick instant.
func WithClock(clock Clock) Option {
	return func(s *Scheduler) {
		s.clock = clock
	}
}

// WithInterval sets the tick interval. The interval is a wake-up cadence,
// not a correctness parameter.
func WithInterval(interval time.Duration) Option {
	return func(s *Scheduler) {
		s.interval = interval
	}
}

// NewScheduler wires a scheduler to its collaborators.
func NewScheduler(cfg *settings.Store, rec *audit.Recorder, runner Runner, logger log.LoggerService, opts ...Option) *Scheduler {
	s := &Scheduler{
		settings: cfg,
		rec:      rec,
		runner:   runner,
		log:      logger,
		clock:    time.Now,
		interval: time.Minute,
		state:    StateIdle,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State returns the current scheduler state.
func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Start runs the tick loop until ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	s.log.Info("Backup scheduler started (interval: %s)", s.interval)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("Backup scheduler stopped")
			return
		case <-ticker.C:
			if err := s.Tick(ctx); err != nil {
				s.log.Error("Backup scheduler tick failed: %v", err)
			}
		}
	}
}

// Tick evaluates the schedule once. Runner failures are contained here and
// surface only as backup_failed audit events; the same day's window is
// retried on later ticks because a failed run leaves no backup_succeeded
// marker. Infrastructure errors (settings or audit store unavailable) are
// returned to the caller.
func (s *Scheduler) Tick(ctx context.Context) error {
	schedule, err := s.settings.BackupSchedule(ctx)
	if err != nil {
		return fmt.Errorf("failed to read backup schedule: %w", err)
	}
	if !schedule.Enabled {
		return nil
	}

	loc, err := time.LoadLocation(schedule.Timezone)
	if err != nil {
		return fmt.Errorf("invalid backup timezone %q: %w", schedule.Timezone, err)
	}

	now := s.clock().In(loc)
	scheduledAt := time.Date(now.Year(), now.Month(), now.Day(), schedule.Hour, schedule.Minute, 0, 0, loc)
	if now.Before(scheduledAt) {
		return nil
	}

	done, err := s.ranToday(ctx, now, loc)
	if err != nil {
		return err
	}
	if done {
		return nil
	}

	if !s.transition(StateDue) {
		// Another run is in flight; this tick is a no-op.
		return nil
	}
	return s.run(ctx)
}

// ranToday reports whether a successful backup is already recorded for the
// current local calendar day. Failed runs leave no success marker and are
// therefore retried.
func (s *Scheduler) ranToday(ctx context.Context, now time.Time, loc *time.Location) (bool, error) {
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)

	events, err := s.rec.Query(ctx, dayStart.UTC(), now.UTC(), store.AuditFilter{Action: "backup_succeeded"})
	if err != nil {
		return false, fmt.Errorf("failed to query backup history: %w", err)
	}
	return len(events) > 0, nil
}

// transition moves the scheduler out of Idle. It fails when a run is
// already in flight, guaranteeing at most one Running backup system-wide.
func (s *Scheduler) transition(next State) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateRunning || s.state == StateDue {
		return false
	}
	s.state = next
	return true
}

func (s *Scheduler) setState(next State) {
	s.mu.Lock()
	s.state = next
	s.mu.Unlock()
}

func (s *Scheduler) run(ctx context.Context) error {
	defer s.setState(StateIdle)

	s.setState(StateRunning)
	if err := s.rec.Record(ctx, audit.LevelInfo, audit.System(), "backup_started", "", nil); err != nil {
		// Without the started marker the run is not attempted; the next
		// tick retries the same window.
		return err
	}

	result, err := s.runner.Run(ctx)
	if err != nil {
		s.setState(StateFailed)
		s.log.Error("Backup failed: %v", err)

		if recErr := s.rec.Record(ctx, audit.LevelError, audit.System(), "backup_failed", "", map[string]any{
			"error": err.Error(),
		}); recErr != nil {
			return recErr
		}
		return nil
	}

	s.setState(StateSucceeded)
	s.log.Info("Backup succeeded: %s (%s)", result.Artifact, result.Duration)

	return s.rec.Record(ctx, audit.LevelInfo, audit.System(), "backup_succeeded", "", map[string]any{
		"artifact": result.Artifact,
		"duration": result.Duration.String(),
	})
}
