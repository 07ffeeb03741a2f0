package persistence

import "time"

// RecurringEntry is the stored form of a recurring time-entry definition.
type RecurringEntry struct {
	ID                 string
	OwnerID            string
	ProjectID          string
	Title              string
	Description        *string
	WindowStartMinutes int
	WindowEndMinutes   int
	Frequency          int
	Interval           int
	Weekdays           []time.Weekday
	DayOfMonth         int
	StartDate          time.Time
	EndDate            *time.Time
	MaxOccurrences     int
	Enabled            bool
	LastGeneratedDate  *time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// TimeEntry is a concrete dated record materialized from a recurring entry.
// The (RecurringEntryID, EntryDate) pair is unique in storage; that constraint
// is what makes repeated generation runs idempotent.
type TimeEntry struct {
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
