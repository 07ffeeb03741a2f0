package testfixtures

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/example/timetrack/internal/application"
	"github.com/example/timetrack/internal/persistence"
	"github.com/example/timetrack/internal/recurrence"
)

// Ledger is an in-memory store implementing the application repository and
// generation ledger interfaces. Error hooks let tests inject failures for
// specific operations.
type Ledger struct {
	mu      sync.Mutex
	entries map[string]application.RecurringEntrySnapshot
	records map[string]application.TimeEntryRecord

	// Hooks run before the corresponding operation; a non-nil return aborts it.
	CreateTimeEntryErr  func(record application.TimeEntryRecord) error
	AdvanceWatermarkErr func(recurringEntryID string) error
}

// NewLedger returns an empty in-memory ledger.
func NewLedger() *Ledger {
	return &Ledger{
		entries: make(map[string]application.RecurringEntrySnapshot),
		records: make(map[string]application.TimeEntryRecord),
	}
}

func recordKey(recurringEntryID string, date time.Time) string {
	return recurringEntryID + "|" + recurrence.DateOf(date).Format(recurrence.DateFormat)
}

// CreateRecurringEntry stores a new snapshot.
func (l *Ledger) CreateRecurringEntry(_ context.Context, snapshot application.RecurringEntrySnapshot) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.entries[snapshot.ID]; ok {
		return persistence.ErrDuplicate
	}
	l.entries[snapshot.ID] = snapshot
	return nil
}

// GetRecurringEntry loads a snapshot scoped to its owner.
func (l *Ledger) GetRecurringEntry(_ context.Context, ownerID, id string) (application.RecurringEntrySnapshot, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	snapshot, ok := l.entries[id]
	if !ok || snapshot.OwnerID != ownerID {
		return application.RecurringEntrySnapshot{}, persistence.ErrNotFound
	}
	return snapshot, nil
}

// UpdateRecurringEntry overwrites a stored snapshot.
func (l *Ledger) UpdateRecurringEntry(_ context.Context, snapshot application.RecurringEntrySnapshot) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	existing, ok := l.entries[snapshot.ID]
	if !ok || existing.OwnerID != snapshot.OwnerID {
		return persistence.ErrNotFound
	}
	l.entries[snapshot.ID] = snapshot
	return nil
}

// DeleteRecurringEntry removes a snapshot and its generated records.
func (l *Ledger) DeleteRecurringEntry(_ context.Context, ownerID, id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	existing, ok := l.entries[id]
	if !ok || existing.OwnerID != ownerID {
		return persistence.ErrNotFound
	}
	delete(l.entries, id)
	for key, record := range l.records {
		if record.RecurringEntryID == id {
			delete(l.records, key)
		}
	}
	return nil
}

// ListRecurringEntries returns the owner's snapshots, newest first.
func (l *Ledger) ListRecurringEntries(_ context.Context, ownerID string, includeInactive bool) ([]application.RecurringEntrySnapshot, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []application.RecurringEntrySnapshot
	for _, snapshot := range l.entries {
		if snapshot.OwnerID != ownerID {
			continue
		}
		if !includeInactive && !snapshot.Enabled {
			continue
		}
		out = append(out, snapshot)
	}
	sortSnapshots(out)
	return out, nil
}

// ListEnabledRecurringEntries returns every enabled snapshot across owners.
func (l *Ledger) ListEnabledRecurringEntries(_ context.Context) ([]application.RecurringEntrySnapshot, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []application.RecurringEntrySnapshot
	for _, snapshot := range l.entries {
		if snapshot.Enabled {
			out = append(out, snapshot)
		}
	}
	sortSnapshots(out)
	return out, nil
}

// AdvanceWatermark moves an entry's last generated date forward.
func (l *Ledger) AdvanceWatermark(_ context.Context, recurringEntryID string, date time.Time) error {
	if l.AdvanceWatermarkErr != nil {
		if err := l.AdvanceWatermarkErr(recurringEntryID); err != nil {
			return err
		}
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	snapshot, ok := l.entries[recurringEntryID]
	if !ok {
		return persistence.ErrNotFound
	}
	date = recurrence.DateOf(date)
	if snapshot.LastGeneratedDate == nil || snapshot.LastGeneratedDate.Before(date) {
		snapshot.LastGeneratedDate = &date
		l.entries[recurringEntryID] = snapshot
	}
	return nil
}

// CreateTimeEntry stores a generated record, enforcing one per recurring
// entry and date like the real storage's unique constraint.
func (l *Ledger) CreateTimeEntry(_ context.Context, record application.TimeEntryRecord) error {
	if l.CreateTimeEntryErr != nil {
		if err := l.CreateTimeEntryErr(record); err != nil {
			return err
		}
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	key := recordKey(record.RecurringEntryID, record.EntryDate)
	if _, ok := l.records[key]; ok {
		return persistence.ErrDuplicate
	}
	l.records[key] = record
	return nil
}

// TimeEntryExists reports whether a record exists for the entry and date.
func (l *Ledger) TimeEntryExists(_ context.Context, recurringEntryID string, date time.Time) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.records[recordKey(recurringEntryID, date)]
	return ok, nil
}

// ListTimeEntries returns the owner's records dated within [from, to].
func (l *Ledger) ListTimeEntries(_ context.Context, ownerID string, from, to time.Time) ([]application.TimeEntryRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	from = recurrence.DateOf(from)
	to = recurrence.DateOf(to)
	var out []application.TimeEntryRecord
	for _, record := range l.records {
		if record.OwnerID != ownerID {
			continue
		}
		date := recurrence.DateOf(record.EntryDate)
		if date.Before(from) || date.After(to) {
			continue
		}
		out = append(out, record)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].EntryDate.Equal(out[j].EntryDate) {
			return out[i].ID < out[j].ID
		}
		return out[i].EntryDate.Before(out[j].EntryDate)
	})
	return out, nil
}

// TimeEntryCount returns the number of stored records.
func (l *Ledger) TimeEntryCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.records)
}

// Snapshot returns the stored snapshot for an entry, ignoring owner scope.
func (l *Ledger) Snapshot(id string) (application.RecurringEntrySnapshot, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	snapshot, ok := l.entries[id]
	return snapshot, ok
}

func sortSnapshots(snapshots []application.RecurringEntrySnapshot) {
	sort.Slice(snapshots, func(i, j int) bool {
		if snapshots[i].CreatedAt.Equal(snapshots[j].CreatedAt) {
			return snapshots[i].ID > snapshots[j].ID
		}
		return snapshots[i].CreatedAt.After(snapshots[j].CreatedAt)
	})
}
