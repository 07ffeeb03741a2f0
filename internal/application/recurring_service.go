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

// maxPreviewDays caps the preview range so unbounded patterns cannot be asked
// to enumerate years of occurrences in one request.
const maxPreviewDays = 366

// RecurringEntryRepository captures the persistence interactions needed by the service.
type RecurringEntryRepository interface {
	CreateRecurringEntry(ctx context.Context, snapshot RecurringEntrySnapshot) error
	GetRecurringEntry(ctx context.Context, ownerID, id string) (RecurringEntrySnapshot, error)
	UpdateRecurringEntry(ctx context.Context, snapshot RecurringEntrySnapshot) error
	DeleteRecurringEntry(ctx context.Context, ownerID, id string) error
	ListRecurringEntries(ctx context.Context, ownerID string, includeInactive bool) ([]RecurringEntrySnapshot, error)
}

// TimeEntryReader exposes the generated time entries for listing.
type TimeEntryReader interface {
	ListTimeEntries(ctx context.Context, ownerID string, from, to time.Time) ([]TimeEntryRecord, error)
}

// RecurringEntryService orchestrates validation and persistence for recurring
// entry operations.
type RecurringEntryService struct {
	entries     RecurringEntryRepository
	timeEntries TimeEntryReader
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewRecurringEntryService wires dependencies for recurring entry operations.
func NewRecurringEntryService(entries RecurringEntryRepository, timeEntries TimeEntryReader, idGenerator func() string, now func() time.Time, logger *slog.Logger) *RecurringEntryService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &RecurringEntryService{
		entries:     entries,
		timeEntries: timeEntries,
		idGenerator: idGenerator,
		now:         now,
		logger:      logger,
	}
}

// Create validates the input and stores a new enabled recurring entry.
func (s *RecurringEntryService) Create(ctx context.Context, ownerID string, input RecurringEntryInput) (*RecurringEntry, error) {
	if s == nil || s.entries == nil {
		return nil, fmt.Errorf("recurring entry repository not configured")
	}
	logger := serviceLogger(ctx, s.logger, "recurring_entries", "create", "owner_id", ownerID)

	entry, err := NewRecurringEntry(s.idGenerator(), ownerID, input, s.now())
	if err != nil {
		logger.Warn("recurring entry rejected", "error_kind", ErrorKind(err))
		return nil, err
	}

	if err := s.entries.CreateRecurringEntry(ctx, entry.Snapshot()); err != nil {
		return nil, mapRepoError(err)
	}

	logger.Info("recurring entry created", "entry_id", entry.ID())
	return entry, nil
}

// Get loads one entry scoped to its owner.
func (s *RecurringEntryService) Get(ctx context.Context, ownerID, id string) (*RecurringEntry, error) {
	if s == nil || s.entries == nil {
		return nil, fmt.Errorf("recurring entry repository not configured")
	}
	snapshot, err := s.entries.GetRecurringEntry(ctx, ownerID, id)
	if err != nil {
		return nil, mapRepoError(err)
	}
	return RehydrateRecurringEntry(snapshot)
}

// List returns the owner's entries, optionally including deactivated ones.
func (s *RecurringEntryService) List(ctx context.Context, ownerID string, includeInactive bool) ([]*RecurringEntry, error) {
	if s == nil || s.entries == nil {
		return nil, fmt.Errorf("recurring entry repository not configured")
	}
	snapshots, err := s.entries.ListRecurringEntries(ctx, ownerID, includeInactive)
	if err != nil {
		return nil, mapRepoError(err)
	}

	entries := make([]*RecurringEntry, 0, len(snapshots))
	for _, snapshot := range snapshots {
		entry, err := RehydrateRecurringEntry(snapshot)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// Update replaces the editable fields of an existing entry.
func (s *RecurringEntryService) Update(ctx context.Context, ownerID, id string, input RecurringEntryInput) (*RecurringEntry, error) {
	if s == nil || s.entries == nil {
		return nil, fmt.Errorf("recurring entry repository not configured")
	}
	logger := serviceLogger(ctx, s.logger, "recurring_entries", "update", "owner_id", ownerID, "entry_id", id)

	entry, err := s.Get(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}

	if err := entry.Update(input, s.now()); err != nil {
		logger.Warn("recurring entry update rejected", "error_kind", ErrorKind(err))
		return nil, err
	}

	if err := s.entries.UpdateRecurringEntry(ctx, entry.Snapshot()); err != nil {
		return nil, mapRepoError(err)
	}

	logger.Info("recurring entry updated")
	return entry, nil
}

// Delete removes an entry and its generated time entries.
func (s *RecurringEntryService) Delete(ctx context.Context, ownerID, id string) error {
	if s == nil || s.entries == nil {
		return fmt.Errorf("recurring entry repository not configured")
	}
	logger := serviceLogger(ctx, s.logger, "recurring_entries", "delete", "owner_id", ownerID, "entry_id", id)

	if err := s.entries.DeleteRecurringEntry(ctx, ownerID, id); err != nil {
		return mapRepoError(err)
	}
	logger.Info("recurring entry deleted")
	return nil
}

// Activate re-enables generation for a deactivated entry.
func (s *RecurringEntryService) Activate(ctx context.Context, ownerID, id string) (*RecurringEntry, error) {
	return s.setActive(ctx, ownerID, id, true)
}

// Deactivate stops generation for an entry without deleting it.
func (s *RecurringEntryService) Deactivate(ctx context.Context, ownerID, id string) (*RecurringEntry, error) {
	return s.setActive(ctx, ownerID, id, false)
}

func (s *RecurringEntryService) setActive(ctx context.Context, ownerID, id string, active bool) (*RecurringEntry, error) {
	if s == nil || s.entries == nil {
		return nil, fmt.Errorf("recurring entry repository not configured")
	}
	operation := "deactivate"
	if active {
		operation = "activate"
	}
	logger := serviceLogger(ctx, s.logger, "recurring_entries", operation, "owner_id", ownerID, "entry_id", id)

	entry, err := s.Get(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}

	if active {
		err = entry.Activate(s.now())
	} else {
		err = entry.Deactivate(s.now())
	}
	if err != nil {
		logger.Warn("state change rejected", "error_kind", ErrorKind(err))
		return nil, err
	}

	if err := s.entries.UpdateRecurringEntry(ctx, entry.Snapshot()); err != nil {
		return nil, mapRepoError(err)
	}

	logger.Info("recurring entry state changed", "enabled", entry.Enabled())
	return entry, nil
}

// PreviewOccurrences enumerates the dates an entry would generate within
// [from, to] without writing anything. Deactivated entries preview as empty.
func (s *RecurringEntryService) PreviewOccurrences(ctx context.Context, ownerID, id string, from, to time.Time) ([]Occurrence, error) {
	if s == nil || s.entries == nil {
		return nil, fmt.Errorf("recurring entry repository not configured")
	}

	if vErr := validatePreviewRange(from, to); vErr.HasErrors() {
		return nil, vErr
	}

	entry, err := s.Get(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	return entry.Occurrences(from, to), nil
}

func validatePreviewRange(from, to time.Time) *ValidationError {
	vErr := &ValidationError{}
	if from.IsZero() {
		vErr.add("from", "from date is required")
	}
	if to.IsZero() {
		vErr.add("to", "to date is required")
	}
	if vErr.HasErrors() {
		return vErr
	}

	from = recurrence.DateOf(from)
	to = recurrence.DateOf(to)
	if to.Before(from) {
		vErr.add("range", "to date must not be before from date")
	} else if to.Sub(from) > maxPreviewDays*24*time.Hour {
		vErr.add("range", fmt.Sprintf("range must be at most %d days", maxPreviewDays))
	}
	return vErr
}

// ListTimeEntries returns the owner's generated time entries dated within
// [from, to].
func (s *RecurringEntryService) ListTimeEntries(ctx context.Context, ownerID string, from, to time.Time) ([]TimeEntryRecord, error) {
	if s == nil || s.timeEntries == nil {
		return nil, fmt.Errorf("time entry repository not configured")
	}

	if vErr := validatePreviewRange(from, to); vErr.HasErrors() {
		return nil, vErr
	}

	records, err := s.timeEntries.ListTimeEntries(ctx, ownerID, recurrence.DateOf(from), recurrence.DateOf(to))
	if err != nil {
		return nil, mapRepoError(err)
	}
	return records, nil
}

func mapRepoError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, persistence.ErrNotFound) {
		return ErrNotFound
	}
	return err
}
