package application

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/example/timetrack/internal/recurrence"
)

const (
	maxTitleLength       = 200
	maxDescriptionLength = 2000
)

// RecurringEntryInput carries the caller supplied fields for creating or
// updating a recurring entry.
type RecurringEntryInput struct {
	ProjectID   string
	Title       string
	Description *string
	// WindowStart and WindowEnd are offsets from midnight of the occurrence
	// date, e.g. 9h and 10h for a 09:00-10:00 entry.
	WindowStart time.Duration
	WindowEnd   time.Duration
	Pattern     recurrence.PatternSpec
}

// RecurringEntry is a validated recurring time-entry definition. It owns the
// recurrence pattern, the daily time window, and the generation watermark.
type RecurringEntry struct {
	id            string
	ownerID       string
	projectID     string
	title         string
	description   *string
	windowStart   time.Duration
	windowEnd     time.Duration
	pattern       recurrence.Pattern
	enabled       bool
	lastGenerated *time.Time
	createdAt     time.Time
	updatedAt     time.Time
}

// NewRecurringEntry validates the input and builds an enabled entry.
func NewRecurringEntry(id, ownerID string, input RecurringEntryInput, now time.Time) (*RecurringEntry, error) {
	pattern, vErr := validateEntryInput(input)
	if vErr.HasErrors() {
		return nil, vErr
	}

	entry := &RecurringEntry{
		id:          id,
		ownerID:     ownerID,
		projectID:   strings.TrimSpace(input.ProjectID),
		title:       strings.TrimSpace(input.Title),
		description: input.Description,
		windowStart: input.WindowStart,
		windowEnd:   input.WindowEnd,
		pattern:     pattern,
		enabled:     true,
		createdAt:   now,
		updatedAt:   now,
	}
	return entry, nil
}

func validateEntryInput(input RecurringEntryInput) (recurrence.Pattern, *ValidationError) {
	vErr := &ValidationError{}

	if strings.TrimSpace(input.ProjectID) == "" {
		vErr.add("project_id", "project is required")
	}

	title := strings.TrimSpace(input.Title)
	if title == "" {
		vErr.add("title", "title is required")
	} else if len(title) > maxTitleLength {
		vErr.add("title", fmt.Sprintf("title must be at most %d characters", maxTitleLength))
	}

	if input.Description != nil && len(*input.Description) > maxDescriptionLength {
		vErr.add("description", fmt.Sprintf("description must be at most %d characters", maxDescriptionLength))
	}

	validateWindow(input.WindowStart, input.WindowEnd, vErr)

	pattern, err := recurrence.NewPattern(input.Pattern)
	if err != nil {
		vErr.merge(patternFieldError(err))
	}

	return pattern, vErr
}

// patternFieldError attributes a pattern construction error to the input
// field that caused it. Cross-field conflicts stay under the pattern key.
func patternFieldError(err error) *ValidationError {
	field := "pattern"
	switch {
	case errors.Is(err, recurrence.ErrInvalidFrequency):
		field = "pattern.frequency"
	case errors.Is(err, recurrence.ErrInvalidInterval):
		field = "pattern.interval"
	case errors.Is(err, recurrence.ErrMissingStartDate):
		field = "pattern.start_date"
	case errors.Is(err, recurrence.ErrEndBeforeStart):
		field = "pattern.end_date"
	case errors.Is(err, recurrence.ErrInvalidMaxOccurrences):
		field = "pattern.max_occurrences"
	case errors.Is(err, recurrence.ErrMissingWeekdays), errors.Is(err, recurrence.ErrInvalidWeekday):
		field = "pattern.weekdays"
	case errors.Is(err, recurrence.ErrInvalidDayOfMonth):
		field = "pattern.day_of_month"
	}

	vErr := &ValidationError{}
	vErr.add(field, err.Error())
	return vErr
}

func validateWindow(start, end time.Duration, vErr *ValidationError) {
	day := 24 * time.Hour

	if start < 0 || start >= day {
		vErr.add("window_start", "window start must be within the day")
	}
	if end <= 0 || end > day {
		vErr.add("window_end", "window end must be within the day")
	}
	if start%time.Minute != 0 || end%time.Minute != 0 {
		vErr.add("window", "window times must be whole minutes")
	}
	if start >= 0 && end <= day && start >= end {
		vErr.add("window", "window start must be before window end")
	}
}

// Update replaces the caller editable fields after validation. The enabled
// flag, watermark, and creation time are untouched.
func (e *RecurringEntry) Update(input RecurringEntryInput, now time.Time) error {
	pattern, vErr := validateEntryInput(input)
	if vErr.HasErrors() {
		return vErr
	}

	e.projectID = strings.TrimSpace(input.ProjectID)
	e.title = strings.TrimSpace(input.Title)
	e.description = input.Description
	e.windowStart = input.WindowStart
	e.windowEnd = input.WindowEnd
	e.pattern = pattern
	e.updatedAt = now
	return nil
}

// Activate re-enables generation for the entry.
func (e *RecurringEntry) Activate(now time.Time) error {
	if e.enabled {
		return ErrAlreadyActive
	}
	e.enabled = true
	e.updatedAt = now
	return nil
}

// Deactivate stops generation without deleting history.
func (e *RecurringEntry) Deactivate(now time.Time) error {
	if !e.enabled {
		return ErrAlreadyInactive
	}
	e.enabled = false
	e.updatedAt = now
	return nil
}

// MarkGenerated advances the generation watermark. Earlier dates are ignored
// so replayed generation runs cannot move it backwards.
func (e *RecurringEntry) MarkGenerated(date, now time.Time) {
	date = recurrence.DateOf(date)
	if e.lastGenerated != nil && !e.lastGenerated.Before(date) {
		return
	}
	e.lastGenerated = &date
	e.updatedAt = now
}

// Occurrence is one concrete date an entry recurs on, with its time window.
type Occurrence struct {
	Date        time.Time
	WindowStart time.Duration
	WindowEnd   time.Duration
}

// Occurrences enumerates the entry's occurrence dates within [from, to],
// inclusive on both ends. Disabled entries have no occurrences.
func (e *RecurringEntry) Occurrences(from, to time.Time) []Occurrence {
	if !e.enabled {
		return nil
	}
	from = recurrence.DateOf(from)
	to = recurrence.DateOf(to)
	if to.Before(from) {
		return nil
	}

	count := e.occurrencesBefore(from)
	reference := from.AddDate(0, 0, -1)

	var out []Occurrence
	for {
		occurrence, ok := e.pattern.NextOccurrence(reference, count)
		if !ok || occurrence.After(to) {
			return out
		}
		reference = occurrence
		if occurrence.Before(from) {
			// The pattern's first occurrence can land just under the window.
			// Counting it keeps the enumeration strictly advancing.
			count++
			continue
		}
		out = append(out, Occurrence{
			Date:        occurrence,
			WindowStart: e.windowStart,
			WindowEnd:   e.windowEnd,
		})
		count++
	}
}

// occurrencesBefore counts occurrences strictly before date. Patterns without
// a max occurrence bound never need the count, so it is skipped for them.
func (e *RecurringEntry) occurrencesBefore(date time.Time) int {
	if _, bounded := e.pattern.MaxOccurrences(); !bounded {
		return 0
	}

	count := 0
	reference := e.pattern.StartDate().AddDate(0, 0, -1)
	for {
		occurrence, ok := e.pattern.NextOccurrence(reference, count)
		if !ok || !occurrence.Before(date) {
			return count
		}
		count++
		reference = occurrence
	}
}

// ID returns the entry identifier.
func (e *RecurringEntry) ID() string { return e.id }

// OwnerID returns the owning user's identifier.
func (e *RecurringEntry) OwnerID() string { return e.ownerID }

// ProjectID returns the project the generated entries book time against.
func (e *RecurringEntry) ProjectID() string { return e.projectID }

// Title returns the entry title.
func (e *RecurringEntry) Title() string { return e.title }

// Description returns the optional free-form description.
func (e *RecurringEntry) Description() *string { return e.description }

// WindowStart returns the offset from midnight at which the entry starts.
func (e *RecurringEntry) WindowStart() time.Duration { return e.windowStart }

// WindowEnd returns the offset from midnight at which the entry ends.
func (e *RecurringEntry) WindowEnd() time.Duration { return e.windowEnd }

// Pattern returns the recurrence pattern.
func (e *RecurringEntry) Pattern() recurrence.Pattern { return e.pattern }

// Enabled reports whether generation is active for the entry.
func (e *RecurringEntry) Enabled() bool { return e.enabled }

// LastGeneratedDate returns the generation watermark, nil before the first run.
func (e *RecurringEntry) LastGeneratedDate() *time.Time {
	if e.lastGenerated == nil {
		return nil
	}
	date := *e.lastGenerated
	return &date
}

// CreatedAt returns the creation timestamp.
func (e *RecurringEntry) CreatedAt() time.Time { return e.createdAt }

// UpdatedAt returns the last modification timestamp.
func (e *RecurringEntry) UpdatedAt() time.Time { return e.updatedAt }

// RecurringEntrySnapshot is the flat, storable form of a recurring entry.
type RecurringEntrySnapshot struct {
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

// Snapshot exports the entry for persistence.
func (e *RecurringEntry) Snapshot() RecurringEntrySnapshot {
	return RecurringEntrySnapshot{
		ID:                e.id,
		OwnerID:           e.ownerID,
		ProjectID:         e.projectID,
		Title:             e.title,
		Description:       e.description,
		WindowStart:       e.windowStart,
		WindowEnd:         e.windowEnd,
		Pattern:           e.pattern.Spec(),
		Enabled:           e.enabled,
		LastGeneratedDate: e.lastGenerated,
		CreatedAt:         e.createdAt,
		UpdatedAt:         e.updatedAt,
	}
}

// RehydrateRecurringEntry rebuilds an entry from its stored snapshot. Only
// the pattern is re-validated; the remaining fields were validated when the
// snapshot was taken.
func RehydrateRecurringEntry(snapshot RecurringEntrySnapshot) (*RecurringEntry, error) {
	pattern, err := recurrence.NewPattern(snapshot.Pattern)
	if err != nil {
		return nil, fmt.Errorf("rehydrate recurring entry %s: %w", snapshot.ID, err)
	}
	return &RecurringEntry{
		id:            snapshot.ID,
		ownerID:       snapshot.OwnerID,
		projectID:     snapshot.ProjectID,
		title:         snapshot.Title,
		description:   snapshot.Description,
		windowStart:   snapshot.WindowStart,
		windowEnd:     snapshot.WindowEnd,
		pattern:       pattern,
		enabled:       snapshot.Enabled,
		lastGenerated: snapshot.LastGeneratedDate,
		createdAt:     snapshot.CreatedAt,
		updatedAt:     snapshot.UpdatedAt,
	}, nil
}
