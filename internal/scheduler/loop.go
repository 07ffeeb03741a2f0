// Package scheduler drives periodic occurrence generation. It decides when a
// daily generation run is due and sweeps the upcoming horizon of dates.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/example/timetrack/internal/application"
	"github.com/example/timetrack/internal/recurrence"
)

// Generator materializes time entries for a single date.
type Generator interface {
	MaterializeForDate(ctx context.Context, date time.Time) (application.GenerationResult, error)
}

// Config controls loop timing.
type Config struct {
	// Tick is how often the loop wakes up to check whether a run is due.
	Tick time.Duration
	// Cooldown is the wait before retrying after a failed run.
	Cooldown time.Duration
	// HorizonDays is how many days past today each run generates for.
	HorizonDays int
	// RunAfter is the time of day, as an offset from midnight, before which
	// the daily run is held back.
	RunAfter time.Duration
}

func (c Config) withDefaults() Config {
	if c.Tick <= 0 {
		c.Tick = time.Hour
	}
	if c.Cooldown <= 0 {
		c.Cooldown = 5 * time.Minute
	}
	if c.HorizonDays < 0 {
		c.HorizonDays = 0
	}
	return c
}

// Loop runs occurrence generation once per day, sweeping today plus the
// configured horizon. A sweep that fails part-way is retried after the
// cooldown; generation itself is idempotent, so replays are harmless.
type Loop struct {
	generator Generator
	config    Config
	logger    *slog.Logger
	now       func() time.Time

	lastRun     time.Time
	nextAttempt time.Time
}

// NewLoop wires a generation loop.
func NewLoop(generator Generator, config Config, logger *slog.Logger, now func() time.Time) *Loop {
	if logger == nil {
		logger = slog.Default()
	}
	if now == nil {
		now = time.Now
	}
	return &Loop{
		generator: generator,
		config:    config.withDefaults(),
		logger:    logger,
		now:       now,
	}
}

// Run blocks until the context is cancelled, performing a generation sweep
// whenever one is due.
func (l *Loop) Run(ctx context.Context) error {
	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			l.runOnce(ctx)
			timer.Reset(l.nextWait())
		}
	}
}

// nextWait is the sleep until the next attempt: the regular tick, shortened
// to the remaining cooldown after a failed sweep so the retry does not wait
// for the next full cycle.
func (l *Loop) nextWait() time.Duration {
	wait := l.config.Tick
	if !l.nextAttempt.IsZero() {
		if remaining := l.nextAttempt.Sub(l.now()); remaining < wait {
			wait = remaining
		}
	}
	if wait < time.Millisecond {
		wait = time.Millisecond
	}
	return wait
}

func (l *Loop) runOnce(ctx context.Context) {
	now := l.now()
	if !l.shouldRun(now) {
		return
	}

	if err := l.sweep(ctx, now); err != nil {
		if ctx.Err() != nil {
			return
		}
		l.logger.Error("generation sweep failed", "error", err)
		// Leave lastRun untouched; shouldRun retries after the cooldown.
		l.nextAttempt = now.Add(l.config.Cooldown)
		return
	}

	l.lastRun = recurrence.DateOf(now)
	l.nextAttempt = time.Time{}
}

// shouldRun reports whether a sweep is due at the given instant. At most one
// successful sweep happens per calendar day, and never before the configured
// time of day — except that a loop which has never completed a sweep catches
// up immediately, so a restart shortly after midnight is not held back.
func (l *Loop) shouldRun(now time.Time) bool {
	today := recurrence.DateOf(now)
	if !l.lastRun.IsZero() && !l.lastRun.Before(today) {
		return false
	}
	if now.Before(l.nextAttempt) {
		return false
	}
	if l.lastRun.IsZero() {
		return true
	}
	return !now.Before(today.Add(l.config.RunAfter))
}

// sweep generates entries for today through today+HorizonDays.
func (l *Loop) sweep(ctx context.Context, now time.Time) error {
	today := recurrence.DateOf(now)
	for offset := 0; offset <= l.config.HorizonDays; offset++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		date := today.AddDate(0, 0, offset)
		result, err := l.generator.MaterializeForDate(ctx, date)
		if err != nil {
			return err
		}
		if result.Created > 0 {
			l.logger.Info("generated time entries",
				"date", date.Format(recurrence.DateFormat),
				"created", result.Created)
		}
	}
	return nil
}
