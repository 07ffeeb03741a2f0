package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/example/timetrack/internal/persistence"
)

const recurringEntryColumns = `id, owner_id, project_id, title, description,
	window_start_minutes, window_end_minutes, frequency, interval, weekdays,
	day_of_month, start_date, end_date, max_occurrences, enabled,
	last_generated_date, created_at, updated_at`

// CreateRecurringEntry inserts a new recurring entry definition.
func (s *Storage) CreateRecurringEntry(ctx context.Context, entry persistence.RecurringEntry) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO recurring_entries (`+recurringEntryColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID,
		entry.OwnerID,
		entry.ProjectID,
		entry.Title,
		nullableString(entry.Description),
		entry.WindowStartMinutes,
		entry.WindowEndMinutes,
		entry.Frequency,
		entry.Interval,
		encodeWeekdays(entry.Weekdays),
		entry.DayOfMonth,
		formatDate(entry.StartDate),
		formatNullableDate(entry.EndDate),
		entry.MaxOccurrences,
		entry.Enabled,
		formatNullableDate(entry.LastGeneratedDate),
		entry.CreatedAt.Format(timeFormat),
		entry.UpdatedAt.Format(timeFormat),
	)
	return mapError(err)
}

// GetRecurringEntry loads one entry scoped to its owner.
func (s *Storage) GetRecurringEntry(ctx context.Context, ownerID, id string) (persistence.RecurringEntry, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+recurringEntryColumns+`
		FROM recurring_entries WHERE id = ? AND owner_id = ?`, id, ownerID)
	return scanRecurringEntry(row)
}

// UpdateRecurringEntry overwrites a stored entry. The owner scope guards
// against cross-tenant writes.
func (s *Storage) UpdateRecurringEntry(ctx context.Context, entry persistence.RecurringEntry) error {
	result, err := s.db.ExecContext(ctx, `UPDATE recurring_entries SET
		project_id = ?, title = ?, description = ?,
		window_start_minutes = ?, window_end_minutes = ?,
		frequency = ?, interval = ?, weekdays = ?, day_of_month = ?,
		start_date = ?, end_date = ?, max_occurrences = ?, enabled = ?,
		last_generated_date = ?, updated_at = ?
		WHERE id = ? AND owner_id = ?`,
		entry.ProjectID,
		entry.Title,
		nullableString(entry.Description),
		entry.WindowStartMinutes,
		entry.WindowEndMinutes,
		entry.Frequency,
		entry.Interval,
		encodeWeekdays(entry.Weekdays),
		entry.DayOfMonth,
		formatDate(entry.StartDate),
		formatNullableDate(entry.EndDate),
		entry.MaxOccurrences,
		entry.Enabled,
		formatNullableDate(entry.LastGeneratedDate),
		entry.UpdatedAt.Format(timeFormat),
		entry.ID,
		entry.OwnerID,
	)
	if err != nil {
		return mapError(err)
	}
	return requireRowAffected(result)
}

// DeleteRecurringEntry removes an entry and, via the schema's cascade, its
// generated time entries.
func (s *Storage) DeleteRecurringEntry(ctx context.Context, ownerID, id string) error {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM recurring_entries WHERE id = ? AND owner_id = ?`, id, ownerID)
	if err != nil {
		return mapError(err)
	}
	return requireRowAffected(result)
}

// ListRecurringEntries returns the owner's entries, newest first.
func (s *Storage) ListRecurringEntries(ctx context.Context, ownerID string, includeInactive bool) ([]persistence.RecurringEntry, error) {
	query := `SELECT ` + recurringEntryColumns + `
		FROM recurring_entries WHERE owner_id = ?`
	if !includeInactive {
		query += ` AND enabled = 1`
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := s.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()
	return collectRecurringEntries(rows)
}

// ListEnabledRecurringEntries returns every enabled entry across all owners.
// The generation run uses it to find work.
func (s *Storage) ListEnabledRecurringEntries(ctx context.Context) ([]persistence.RecurringEntry, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+recurringEntryColumns+`
		FROM recurring_entries WHERE enabled = 1 ORDER BY created_at, id`)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()
	return collectRecurringEntries(rows)
}

// AdvanceWatermark moves last_generated_date forward. Dates at or behind the
// stored watermark are ignored, so retried runs cannot move it backwards.
func (s *Storage) AdvanceWatermark(ctx context.Context, id string, date time.Time) error {
	result, err := s.db.ExecContext(ctx, `UPDATE recurring_entries
		SET last_generated_date = ?
		WHERE id = ? AND (last_generated_date IS NULL OR last_generated_date < ?)`,
		formatDate(date), id, formatDate(date))
	if err != nil {
		return mapError(err)
	}
	// Zero affected rows is fine here: the watermark was already at or past
	// the given date.
	_ = result
	return nil
}

func requireRowAffected(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecurringEntry(row rowScanner) (persistence.RecurringEntry, error) {
	var (
		entry         persistence.RecurringEntry
		description   sql.NullString
		weekdays      string
		startDate     string
		endDate       sql.NullString
		lastGenerated sql.NullString
		createdAt     string
		updatedAt     string
	)
	err := row.Scan(
		&entry.ID,
		&entry.OwnerID,
		&entry.ProjectID,
		&entry.Title,
		&description,
		&entry.WindowStartMinutes,
		&entry.WindowEndMinutes,
		&entry.Frequency,
		&entry.Interval,
		&weekdays,
		&entry.DayOfMonth,
		&startDate,
		&endDate,
		&entry.MaxOccurrences,
		&entry.Enabled,
		&lastGenerated,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return persistence.RecurringEntry{}, mapError(err)
	}

	entry.Description = stringPointer(description)
	if entry.Weekdays, err = decodeWeekdays(weekdays); err != nil {
		return persistence.RecurringEntry{}, err
	}
	if entry.StartDate, err = parseDate(startDate); err != nil {
		return persistence.RecurringEntry{}, fmt.Errorf("sqlite: start_date: %w", err)
	}
	if entry.EndDate, err = parseNullableDate(endDate); err != nil {
		return persistence.RecurringEntry{}, fmt.Errorf("sqlite: end_date: %w", err)
	}
	if entry.LastGeneratedDate, err = parseNullableDate(lastGenerated); err != nil {
		return persistence.RecurringEntry{}, fmt.Errorf("sqlite: last_generated_date: %w", err)
	}
	if entry.CreatedAt, err = time.Parse(timeFormat, createdAt); err != nil {
		return persistence.RecurringEntry{}, fmt.Errorf("sqlite: created_at: %w", err)
	}
	if entry.UpdatedAt, err = time.Parse(timeFormat, updatedAt); err != nil {
		return persistence.RecurringEntry{}, fmt.Errorf("sqlite: updated_at: %w", err)
	}
	return entry, nil
}

func collectRecurringEntries(rows *sql.Rows) ([]persistence.RecurringEntry, error) {
	var entries []persistence.RecurringEntry
	for rows.Next() {
		entry, err := scanRecurringEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}
	return entries, nil
}
