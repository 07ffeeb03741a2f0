// Package testfixtures provides deterministic clocks, identifiers, and
// domain fixtures shared by tests across packages.
package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/example/timetrack/internal/application"
	"github.com/example/timetrack/internal/recurrence"
)

var entryCounter uint64

var referenceTime = time.Date(2025, time.January, 2, 15, 4, 5, 0, time.UTC)

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
func ReferenceTime() time.Time {
	return referenceTime
}

// RecurringEntryFixture represents a deterministic recurring entry definition
// that can be materialised for application or persistence tests.
type RecurringEntryFixture struct {
	ID                string
	OwnerID           string
	ProjectID         string
	Title             string
	Description       *string
	WindowStart       time.Duration
	WindowEnd         time.Duration
	Pattern           recurrence.PatternSpec
	Enabled           bool
	LastGeneratedDate *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// RecurringEntryOption configures the generated fixture.
type RecurringEntryOption func(*RecurringEntryFixture)

// NewRecurringEntryFixture returns a deterministic recurring entry fixture
// with optional overrides. The default is a daily 09:00-10:00 entry starting
// on 2025-01-06.
func NewRecurringEntryFixture(opts ...RecurringEntryOption) RecurringEntryFixture {
	idx := atomic.AddUint64(&entryCounter, 1)
	created := referenceTime.Add(time.Duration(idx) * time.Minute)
	fixture := RecurringEntryFixture{
		ID:          fmt.Sprintf("entry-%03d", idx),
		OwnerID:     fmt.Sprintf("owner-%03d", idx),
		ProjectID:   fmt.Sprintf("project-%03d", idx),
		Title:       fmt.Sprintf("Recurring entry %03d", idx),
		WindowStart: 9 * time.Hour,
		WindowEnd:   10 * time.Hour,
		Pattern: recurrence.PatternSpec{
			Frequency: recurrence.FrequencyDaily,
			Interval:  1,
			StartDate: time.Date(2025, time.January, 6, 0, 0, 0, 0, time.UTC),
		},
		Enabled:   true,
		CreatedAt: created,
		UpdatedAt: created,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithEntryID overrides the generated entry ID.
func WithEntryID(id string) RecurringEntryOption {
	return func(f *RecurringEntryFixture) {
		f.ID = id
	}
}

// WithEntryOwner sets the owning user ID.
func WithEntryOwner(ownerID string) RecurringEntryOption {
	return func(f *RecurringEntryFixture) {
		f.OwnerID = ownerID
	}
}

// WithEntryProject sets the project ID.
func WithEntryProject(projectID string) RecurringEntryOption {
	return func(f *RecurringEntryFixture) {
		f.ProjectID = projectID
	}
}

// WithEntryTitle overrides the title.
func WithEntryTitle(title string) RecurringEntryOption {
	return func(f *RecurringEntryFixture) {
		f.Title = title
	}
}

// WithEntryDescription sets the optional description.
func WithEntryDescription(description string) RecurringEntryOption {
	return func(f *RecurringEntryFixture) {
		value := description
		f.Description = &value
	}
}

// WithEntryWindow sets the daily time window as offsets from midnight.
func WithEntryWindow(start, end time.Duration) RecurringEntryOption {
	return func(f *RecurringEntryFixture) {
		f.WindowStart = start
		f.WindowEnd = end
	}
}

// WithEntryPattern replaces the recurrence pattern spec.
func WithEntryPattern(spec recurrence.PatternSpec) RecurringEntryOption {
	return func(f *RecurringEntryFixture) {
		f.Pattern = spec
	}
}

// WithEntryEnabled sets the enabled flag.
func WithEntryEnabled(enabled bool) RecurringEntryOption {
	return func(f *RecurringEntryFixture) {
		f.Enabled = enabled
	}
}

// WithEntryLastGenerated sets the generation watermark.
func WithEntryLastGenerated(date time.Time) RecurringEntryOption {
	return func(f *RecurringEntryFixture) {
		value := recurrence.DateOf(date)
		f.LastGeneratedDate = &value
	}
}

// WithEntryTimestamps sets both created and updated timestamps.
func WithEntryTimestamps(created, updated time.Time) RecurringEntryOption {
	return func(f *RecurringEntryFixture) {
		f.CreatedAt = created
		f.UpdatedAt = updated
	}
}

// Input returns the fixture as an application.RecurringEntryInput.
func (f RecurringEntryFixture) Input() application.RecurringEntryInput {
	return application.RecurringEntryInput{
		ProjectID:   f.ProjectID,
		Title:       f.Title,
		Description: copyStringPtr(f.Description),
		WindowStart: f.WindowStart,
		WindowEnd:   f.WindowEnd,
		Pattern:     f.Pattern,
	}
}

// Snapshot returns the fixture as an application.RecurringEntrySnapshot.
func (f RecurringEntryFixture) Snapshot() application.RecurringEntrySnapshot {
	var lastGenerated *time.Time
	if f.LastGeneratedDate != nil {
		value := *f.LastGeneratedDate
		lastGenerated = &value
	}
	return application.RecurringEntrySnapshot{
		ID:                f.ID,
		OwnerID:           f.OwnerID,
		ProjectID:         f.ProjectID,
		Title:             f.Title,
		Description:       copyStringPtr(f.Description),
		WindowStart:       f.WindowStart,
		WindowEnd:         f.WindowEnd,
		Pattern:           f.Pattern,
		Enabled:           f.Enabled,
		LastGeneratedDate: lastGenerated,
		CreatedAt:         f.CreatedAt,
		UpdatedAt:         f.UpdatedAt,
	}
}

// helper to deep copy optional strings.
func copyStringPtr(src *string) *string {
	if src == nil {
		return nil
	}
	value := *src
	return &value
}
