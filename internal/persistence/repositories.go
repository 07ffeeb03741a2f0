package persistence

import (
	"context"
	"time"
)

// RecurringEntryRepository stores recurring time-entry definitions.
type RecurringEntryRepository interface {
	CreateRecurringEntry(ctx context.Context, entry RecurringEntry) error
	GetRecurringEntry(ctx context.Context, ownerID, id string) (RecurringEntry, error)
	UpdateRecurringEntry(ctx context.Context, entry RecurringEntry) error
	DeleteRecurringEntry(ctx context.Context, ownerID, id string) error
	ListRecurringEntries(ctx context.Context, ownerID string, includeInactive bool) ([]RecurringEntry, error)
	ListEnabledRecurringEntries(ctx context.Context) ([]RecurringEntry, error)
	AdvanceWatermark(ctx context.Context, id string, date time.Time) error
}

// TimeEntryRepository stores the materialized time-entry ledger.
type TimeEntryRepository interface {
	CreateTimeEntry(ctx context.Context, entry TimeEntry) error
	TimeEntryExists(ctx context.Context, recurringEntryID string, date time.Time) (bool, error)
	ListTimeEntries(ctx context.Context, ownerID string, from, to time.Time) ([]TimeEntry, error)
}
