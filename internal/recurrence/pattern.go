// Package recurrence implements the pure date arithmetic behind recurring
// time-entry definitions: an immutable Pattern value type and the search for
// the next calendar date a pattern fires on.
package recurrence

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Frequency identifies the calendar unit a pattern repeats over.
type Frequency int

const (
	// FrequencyUnspecified indicates the frequency is not set.
	FrequencyUnspecified Frequency = iota
	// FrequencyDaily repeats every N days.
	FrequencyDaily
	// FrequencyWeekly repeats on selected weekdays of every N-th week.
	FrequencyWeekly
	// FrequencyMonthly repeats on a fixed day of every N-th month.
	FrequencyMonthly
)

// String returns the lower-case name of the frequency.
func (f Frequency) String() string {
	switch f {
	case FrequencyDaily:
		return "daily"
	case FrequencyWeekly:
		return "weekly"
	case FrequencyMonthly:
		return "monthly"
	default:
		return "unspecified"
	}
}

var (
	// ErrInvalidFrequency indicates the frequency is not one of daily, weekly or monthly.
	ErrInvalidFrequency = errors.New("recurrence: frequency must be daily, weekly or monthly")
	// ErrInvalidInterval indicates a non-positive repeat interval.
	ErrInvalidInterval = errors.New("recurrence: interval must be at least 1")
	// ErrMissingStartDate indicates the pattern has no start date.
	ErrMissingStartDate = errors.New("recurrence: start date is required")
	// ErrConflictingBounds indicates both an end date and a maximum occurrence count were supplied.
	ErrConflictingBounds = errors.New("recurrence: end date and max occurrences are mutually exclusive")
	// ErrEndBeforeStart indicates the end date does not lie after the start date.
	ErrEndBeforeStart = errors.New("recurrence: end date must be after start date")
	// ErrInvalidMaxOccurrences indicates a non-positive occurrence limit.
	ErrInvalidMaxOccurrences = errors.New("recurrence: max occurrences must be at least 1")
	// ErrMissingWeekdays indicates a weekly pattern without any selected weekday.
	ErrMissingWeekdays = errors.New("recurrence: weekly patterns require at least one weekday")
	// ErrInvalidWeekday indicates a weekday outside Sunday..Saturday.
	ErrInvalidWeekday = errors.New("recurrence: invalid weekday")
	// ErrInvalidDayOfMonth indicates a day outside the 1..31 range for monthly patterns.
	ErrInvalidDayOfMonth = errors.New("recurrence: day of month must be between 1 and 31")
)

// PatternSpec carries the caller supplied fields consumed by NewPattern.
//
// EndDate and MaxOccurrences bound the pattern and are mutually exclusive;
// leaving both unset yields an unbounded pattern. Weekdays is only meaningful
// for weekly patterns, DayOfMonth only for monthly ones.
type PatternSpec struct {
	Frequency      Frequency
	Interval       int
	Weekdays       []time.Weekday
	DayOfMonth     int
	StartDate      time.Time
	EndDate        *time.Time
	MaxOccurrences int
}

// Pattern is an immutable recurrence rule. Values are produced exclusively by
// NewPattern, which establishes every invariant; editing a rule means
// constructing a new Pattern.
type Pattern struct {
	frequency      Frequency
	interval       int
	weekdays       []time.Weekday
	dayOfMonth     int
	startDate      time.Time
	endDate        time.Time // zero when unbounded
	maxOccurrences int       // zero when unbounded
}

// NewPattern validates the spec and returns the resulting pattern value.
func NewPattern(spec PatternSpec) (Pattern, error) {
	switch spec.Frequency {
	case FrequencyDaily, FrequencyWeekly, FrequencyMonthly:
	default:
		return Pattern{}, ErrInvalidFrequency
	}

	if spec.Interval < 1 {
		return Pattern{}, ErrInvalidInterval
	}

	if spec.StartDate.IsZero() {
		return Pattern{}, ErrMissingStartDate
	}
	startDate := DateOf(spec.StartDate)

	if spec.MaxOccurrences < 0 {
		return Pattern{}, ErrInvalidMaxOccurrences
	}
	if spec.EndDate != nil && spec.MaxOccurrences > 0 {
		return Pattern{}, ErrConflictingBounds
	}

	var endDate time.Time
	if spec.EndDate != nil {
		endDate = DateOf(*spec.EndDate)
		if !endDate.After(startDate) {
			return Pattern{}, ErrEndBeforeStart
		}
	}

	var weekdays []time.Weekday
	if spec.Frequency == FrequencyWeekly {
		if len(spec.Weekdays) == 0 {
			return Pattern{}, ErrMissingWeekdays
		}
		for _, day := range spec.Weekdays {
			if day < time.Sunday || day > time.Saturday {
				return Pattern{}, ErrInvalidWeekday
			}
		}
		weekdays = normalizeWeekdays(spec.Weekdays)
	}

	dayOfMonth := 0
	if spec.Frequency == FrequencyMonthly {
		if spec.DayOfMonth < 1 || spec.DayOfMonth > 31 {
			return Pattern{}, ErrInvalidDayOfMonth
		}
		dayOfMonth = spec.DayOfMonth
	}

	return Pattern{
		frequency:      spec.Frequency,
		interval:       spec.Interval,
		weekdays:       weekdays,
		dayOfMonth:     dayOfMonth,
		startDate:      startDate,
		endDate:        endDate,
		maxOccurrences: spec.MaxOccurrences,
	}, nil
}

// Frequency returns the repeat unit of the pattern.
func (p Pattern) Frequency() Frequency { return p.frequency }

// Interval returns the repeat interval ("every N units").
func (p Pattern) Interval() int { return p.interval }

// Weekdays returns the selected weekdays of a weekly pattern, sorted ascending.
func (p Pattern) Weekdays() []time.Weekday {
	out := make([]time.Weekday, len(p.weekdays))
	copy(out, p.weekdays)
	return out
}

// DayOfMonth returns the target day of a monthly pattern, zero otherwise.
func (p Pattern) DayOfMonth() int { return p.dayOfMonth }

// StartDate returns the first date the pattern may fire on.
func (p Pattern) StartDate() time.Time { return p.startDate }

// EndDate returns the inclusive end bound and whether one is set.
func (p Pattern) EndDate() (time.Time, bool) {
	return p.endDate, !p.endDate.IsZero()
}

// MaxOccurrences returns the occurrence limit and whether one is set.
func (p Pattern) MaxOccurrences() (int, bool) {
	return p.maxOccurrences, p.maxOccurrences > 0
}

// Spec returns the pattern as a PatternSpec, suitable for persistence or for
// deriving an edited copy through NewPattern.
func (p Pattern) Spec() PatternSpec {
	spec := PatternSpec{
		Frequency:      p.frequency,
		Interval:       p.interval,
		Weekdays:       p.Weekdays(),
		DayOfMonth:     p.dayOfMonth,
		StartDate:      p.startDate,
		MaxOccurrences: p.maxOccurrences,
	}
	if end, ok := p.EndDate(); ok {
		spec.EndDate = &end
	}
	return spec
}

// NextOccurrence returns the earliest date satisfying the pattern that is
// strictly after reference. Two boundary cases are inclusive instead: when
// reference precedes the start date the search begins at the start date, and
// when reference equals the start date and nothing has been counted yet the
// start date itself may be returned. The boolean reports whether a date was
// found; it is false once the pattern has expired (end date exceeded or
// occurrence limit reached).
//
// Repeated calls that feed each result back as the new reference (with an
// incremented counter) therefore yield a strictly increasing date sequence.
func (p Pattern) NextOccurrence(reference time.Time, occurrenceCount int) (time.Time, bool) {
	reference = DateOf(reference)
	if p.expired(reference, occurrenceCount) {
		return time.Time{}, false
	}

	lower := reference.AddDate(0, 0, 1)
	if reference.Equal(p.startDate) && occurrenceCount == 0 {
		lower = reference
	}
	if lower.Before(p.startDate) {
		lower = p.startDate
	}

	switch p.frequency {
	case FrequencyDaily:
		return p.nextDaily(lower)
	case FrequencyWeekly:
		return p.nextWeekly(lower)
	case FrequencyMonthly:
		return p.nextMonthly(lower)
	default:
		return time.Time{}, false
	}
}

func (p Pattern) expired(reference time.Time, occurrenceCount int) bool {
	if !p.endDate.IsZero() && reference.After(p.endDate) {
		return true
	}
	if p.maxOccurrences > 0 && occurrenceCount >= p.maxOccurrences {
		return true
	}
	return false
}

// nextDaily finds the first start+k*interval date at or after lower.
func (p Pattern) nextDaily(lower time.Time) (time.Time, bool) {
	days := daysBetween(p.startDate, lower)
	steps := days / p.interval
	if days%p.interval != 0 {
		steps++
	}
	return p.bounded(p.startDate.AddDate(0, 0, steps*p.interval))
}

// nextWeekly scans forward day by day for a selected weekday inside an
// eligible interval week. The bound holds because the next eligible week
// begins within interval weeks of any candidate and each selected weekday
// occurs inside that seven-day span.
func (p Pattern) nextWeekly(lower time.Time) (time.Time, bool) {
	for i := 0; i <= 7*p.interval; i++ {
		candidate := lower.AddDate(0, 0, i)
		weeks := daysBetween(p.startDate, candidate) / 7
		if weeks%p.interval != 0 {
			continue
		}
		if !p.weekdaySelected(candidate.Weekday()) {
			continue
		}
		return p.bounded(candidate)
	}
	return time.Time{}, false
}

// nextMonthly finds the clamped target day in the first eligible interval
// month at or after lower, re-clamping after each month advance because month
// lengths differ.
func (p Pattern) nextMonthly(lower time.Time) (time.Time, bool) {
	months := monthsBetween(p.startDate, lower)
	if rem := months % p.interval; rem != 0 {
		months += p.interval - rem
	}
	candidate := p.monthlyCandidate(months)
	if candidate.Before(lower) {
		candidate = p.monthlyCandidate(months + p.interval)
	}
	return p.bounded(candidate)
}

func (p Pattern) monthlyCandidate(monthOffset int) time.Time {
	year, month, _ := p.startDate.Date()
	first := time.Date(year, month+time.Month(monthOffset), 1, 0, 0, 0, 0, time.UTC)
	day := p.dayOfMonth
	if last := daysInMonth(first); day > last {
		day = last
	}
	return first.AddDate(0, 0, day-1)
}

func (p Pattern) bounded(date time.Time) (time.Time, bool) {
	if !p.endDate.IsZero() && date.After(p.endDate) {
		return time.Time{}, false
	}
	return date, true
}

func (p Pattern) weekdaySelected(day time.Weekday) bool {
	for _, selected := range p.weekdays {
		if selected == day {
			return true
		}
	}
	return false
}

// Describe returns a human readable summary of the pattern, e.g.
// "every 2 weeks on Tue, Thu until 2025-06-30".
func (p Pattern) Describe() string {
	var b strings.Builder

	switch p.frequency {
	case FrequencyDaily:
		if p.interval == 1 {
			b.WriteString("every day")
		} else {
			fmt.Fprintf(&b, "every %d days", p.interval)
		}
	case FrequencyWeekly:
		if p.interval == 1 {
			b.WriteString("every week")
		} else {
			fmt.Fprintf(&b, "every %d weeks", p.interval)
		}
		names := make([]string, 0, len(p.weekdays))
		for _, day := range p.weekdays {
			names = append(names, day.String()[:3])
		}
		fmt.Fprintf(&b, " on %s", strings.Join(names, ", "))
	case FrequencyMonthly:
		if p.interval == 1 {
			fmt.Fprintf(&b, "every month on day %d", p.dayOfMonth)
		} else {
			fmt.Fprintf(&b, "every %d months on day %d", p.interval, p.dayOfMonth)
		}
	}

	if !p.endDate.IsZero() {
		fmt.Fprintf(&b, " until %s", p.endDate.Format(DateFormat))
	} else if p.maxOccurrences > 0 {
		fmt.Fprintf(&b, " (%dx)", p.maxOccurrences)
	}

	return b.String()
}

// DateFormat is the canonical textual form of a calendar date.
const DateFormat = "2006-01-02"

// DateOf truncates a timestamp to its calendar date, normalized to midnight UTC
// so that date arithmetic is exact.
func DateOf(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func daysBetween(from, to time.Time) int {
	return int(to.Sub(from) / (24 * time.Hour))
}

func monthsBetween(from, to time.Time) int {
	return (to.Year()-from.Year())*12 + int(to.Month()) - int(from.Month())
}

func daysInMonth(t time.Time) int {
	return time.Date(t.Year(), t.Month()+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func normalizeWeekdays(days []time.Weekday) []time.Weekday {
	seen := make(map[time.Weekday]struct{}, len(days))
	out := make([]time.Weekday, 0, len(days))
	for _, day := range days {
		if _, ok := seen[day]; ok {
			continue
		}
		seen[day] = struct{}{}
		out = append(out, day)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
