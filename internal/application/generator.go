package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/example/timetrack/internal/persistence"
	"github.com/example/timetrack/internal/recurrence"
)

// GenerationLedger captures the persistence interactions of a generation run.
type GenerationLedger interface {
	ListEnabledRecurringEntries(ctx context.Context) ([]RecurringEntrySnapshot, error)
	TimeEntryExists(ctx context.Context, recurringEntryID string, date time.Time) (bool, error)
	CreateTimeEntry(ctx context.Context, record TimeEntryRecord) error
	AdvanceWatermark(ctx context.Context, recurringEntryID string, date time.Time) error
}

// TimeEntryRecord is a concrete dated time entry produced by generation.
type TimeEntryRecord struct {
	ID               string
	RecurringEntryID string
	OwnerID          string
	ProjectID        string
	EntryDate        time.Time
	Start            time.Time
	End              time.Time
	Note             *string
	CreatedAt        time.Time
}

// GenerationResult summarizes one generation run for a single date.
type GenerationResult struct {
	Date    time.Time
	Entries int
	Created int
	Skipped int
	Failed  int
}

// Generator materializes time entries from enabled recurring entries. Runs
// are idempotent: an occurrence that already has a time entry is skipped, and
// the storage unique constraint on (recurring entry, date) catches races the
// existence probe misses.
type Generator struct {
	ledger      GenerationLedger
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewGenerator wires dependencies for occurrence generation.
func NewGenerator(ledger GenerationLedger, idGenerator func() string, now func() time.Time, logger *slog.Logger) *Generator {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &Generator{
		ledger:      ledger,
		idGenerator: idGenerator,
		now:         now,
		logger:      logger,
	}
}

// MaterializeForDate creates the missing time entries for every enabled
// recurring entry that recurs on the given date. A failure on one entry is
// logged and counted without aborting the rest of the run.
func (g *Generator) MaterializeForDate(ctx context.Context, date time.Time) (GenerationResult, error) {
	if g == nil || g.ledger == nil {
		return GenerationResult{}, fmt.Errorf("generation ledger not configured")
	}

	date = recurrence.DateOf(date)
	result := GenerationResult{Date: date}
	logger := serviceLogger(ctx, g.logger, "generator", "materialize", "date", date.Format(recurrence.DateFormat))

	snapshots, err := g.ledger.ListEnabledRecurringEntries(ctx)
	if err != nil {
		return result, fmt.Errorf("list enabled recurring entries: %w", err)
	}
	result.Entries = len(snapshots)

	for _, snapshot := range snapshots {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		created, err := g.materializeEntry(ctx, snapshot, date)
		switch {
		case err != nil:
			result.Failed++
			logger.Error("generation failed for entry", "entry_id", snapshot.ID, "error", err)
		case created:
			result.Created++
		default:
			result.Skipped++
		}
	}

	logger.Info("generation run finished",
		"entries", result.Entries,
		"created", result.Created,
		"skipped", result.Skipped,
		"failed", result.Failed)
	return result, nil
}

func (g *Generator) materializeEntry(ctx context.Context, snapshot RecurringEntrySnapshot, date time.Time) (bool, error) {
	entry, err := RehydrateRecurringEntry(snapshot)
	if err != nil {
		return false, err
	}

	occurrences := entry.Occurrences(date, date)
	if len(occurrences) == 0 {
		return false, nil
	}
	occurrence := occurrences[0]

	exists, err := g.ledger.TimeEntryExists(ctx, entry.ID(), date)
	if err != nil {
		return false, fmt.Errorf("check existing time entry: %w", err)
	}
	if exists {
		return false, nil
	}

	record := TimeEntryRecord{
		ID:               g.idGenerator(),
		RecurringEntryID: entry.ID(),
		OwnerID:          entry.OwnerID(),
		ProjectID:        entry.ProjectID(),
		EntryDate:        date,
		Start:            date.Add(occurrence.WindowStart),
		End:              date.Add(occurrence.WindowEnd),
		Note:             entry.Description(),
		CreatedAt:        g.now(),
	}

	if err := g.ledger.CreateTimeEntry(ctx, record); err != nil {
		if errors.Is(err, persistence.ErrDuplicate) {
			// Someone else generated this occurrence between the probe and
			// the insert. The outcome is the same as exists above.
			return false, nil
		}
		return false, fmt.Errorf("create time entry: %w", err)
	}

	if err := g.ledger.AdvanceWatermark(ctx, entry.ID(), date); err != nil {
		// The time entry is in place, so the run still counts it as created.
		// The watermark catches up on the next run.
		serviceLogger(ctx, g.logger, "generator", "materialize").Warn(
			"failed to advance watermark", "entry_id", entry.ID(), "error", err)
	}
	return true, nil
}
