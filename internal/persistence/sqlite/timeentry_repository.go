package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/example/timetrack/internal/persistence"
)

// CreateTimeEntry inserts a generated time entry. A second insert for the
// same recurring entry and date returns persistence.ErrDuplicate.
func (s *Storage) CreateTimeEntry(ctx context.Context, entry persistence.TimeEntry) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO time_entries
		(id, recurring_entry_id, owner_id, project_id, entry_date,
		 start_time, end_time, note, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID,
		entry.RecurringEntryID,
		entry.OwnerID,
		entry.ProjectID,
		formatDate(entry.EntryDate),
		entry.Start.Format(timeFormat),
		entry.End.Format(timeFormat),
		nullableString(entry.Note),
		entry.CreatedAt.Format(timeFormat),
	)
	return mapError(err)
}

// TimeEntryExists reports whether a time entry was already generated for the
// recurring entry on the given date.
func (s *Storage) TimeEntryExists(ctx context.Context, recurringEntryID string, date time.Time) (bool, error) {
	var exists int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM time_entries
		WHERE recurring_entry_id = ? AND entry_date = ?`,
		recurringEntryID, formatDate(date)).Scan(&exists)
	if err != nil {
		return false, mapError(err)
	}
	return exists > 0, nil
}

// ListTimeEntries returns the owner's entries dated within [from, to],
// ordered by date.
func (s *Storage) ListTimeEntries(ctx context.Context, ownerID string, from, to time.Time) ([]persistence.TimeEntry, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT
		id, recurring_entry_id, owner_id, project_id, entry_date,
		start_time, end_time, note, created_at
		FROM time_entries
		WHERE owner_id = ? AND entry_date >= ? AND entry_date <= ?
		ORDER BY entry_date, id`,
		ownerID, formatDate(from), formatDate(to))
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var entries []persistence.TimeEntry
	for rows.Next() {
		entry, err := scanTimeEntry(rows)
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

func scanTimeEntry(row rowScanner) (persistence.TimeEntry, error) {
	var (
		entry     persistence.TimeEntry
		entryDate string
		start     string
		end       string
		note      sql.NullString
		createdAt string
	)
	err := row.Scan(
		&entry.ID,
		&entry.RecurringEntryID,
		&entry.OwnerID,
		&entry.ProjectID,
		&entryDate,
		&start,
		&end,
		&note,
		&createdAt,
	)
	if err != nil {
		return persistence.TimeEntry{}, mapError(err)
	}

	entry.Note = stringPointer(note)
	if entry.EntryDate, err = parseDate(entryDate); err != nil {
		return persistence.TimeEntry{}, fmt.Errorf("sqlite: entry_date: %w", err)
	}
	if entry.Start, err = time.Parse(timeFormat, start); err != nil {
		return persistence.TimeEntry{}, fmt.Errorf("sqlite: start_time: %w", err)
	}
	if entry.End, err = time.Parse(timeFormat, end); err != nil {
		return persistence.TimeEntry{}, fmt.Errorf("sqlite: end_time: %w", err)
	}
	if entry.CreatedAt, err = time.Parse(timeFormat, createdAt); err != nil {
		return persistence.TimeEntry{}, fmt.Errorf("sqlite: created_at: %w", err)
	}
	return entry, nil
}
