// Package sqlite persists the recurring time-entry domain in a SQLite
// database using the pure-Go modernc.org/sqlite driver.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/example/timetrack/internal/persistence"
	_ "modernc.org/sqlite"
)

// Storage implements the persistence repositories on top of database/sql.
type Storage struct {
	db *sql.DB
}

// Open connects to the SQLite database identified by dsn.
func Open(dsn string) (*Storage, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %s: %w", dsn, err)
	}

	// A single writer avoids SQLITE_BUSY churn under concurrent generation
	// and API traffic.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA busy_timeout = 5000",
		"PRAGMA journal_mode = WAL",
		"PRAGMA foreign_keys = ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("sqlite: %s: %w", pragma, err)
		}
	}

	return &Storage{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Storage) Close() error {
	return s.db.Close()
}

// Migrate applies the schema. Statements are idempotent so the call is safe
// on every start.
func (s *Storage) Migrate(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS recurring_entries (
			id                   TEXT PRIMARY KEY,
			owner_id             TEXT NOT NULL,
			project_id           TEXT NOT NULL,
			title                TEXT NOT NULL,
			description          TEXT,
			window_start_minutes INTEGER NOT NULL,
			window_end_minutes   INTEGER NOT NULL,
			frequency            INTEGER NOT NULL,
			interval             INTEGER NOT NULL,
			weekdays             TEXT NOT NULL DEFAULT '',
			day_of_month         INTEGER NOT NULL DEFAULT 0,
			start_date           TEXT NOT NULL,
			end_date             TEXT,
			max_occurrences      INTEGER NOT NULL DEFAULT 0,
			enabled              INTEGER NOT NULL DEFAULT 1,
			last_generated_date  TEXT,
			created_at           TEXT NOT NULL,
			updated_at           TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_recurring_entries_owner
			ON recurring_entries(owner_id)`,
		`CREATE TABLE IF NOT EXISTS time_entries (
			id                 TEXT PRIMARY KEY,
			recurring_entry_id TEXT NOT NULL REFERENCES recurring_entries(id) ON DELETE CASCADE,
			owner_id           TEXT NOT NULL,
			project_id         TEXT NOT NULL,
			entry_date         TEXT NOT NULL,
			start_time         TEXT NOT NULL,
			end_time           TEXT NOT NULL,
			note               TEXT,
			created_at         TEXT NOT NULL,
			UNIQUE (recurring_entry_id, entry_date)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_time_entries_owner_date
			ON time_entries(owner_id, entry_date)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("sqlite: migrate: %w", err)
		}
	}
	return nil
}

const (
	dateFormat = "2006-01-02"
	timeFormat = time.RFC3339
)

func formatDate(t time.Time) string {
	return t.Format(dateFormat)
}

func parseDate(value string) (time.Time, error) {
	return time.ParseInLocation(dateFormat, value, time.UTC)
}

func formatNullableDate(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatDate(*t), Valid: true}
}

func parseNullableDate(value sql.NullString) (*time.Time, error) {
	if !value.Valid {
		return nil, nil
	}
	parsed, err := parseDate(value.String)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}

func nullableString(value *string) sql.NullString {
	if value == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *value, Valid: true}
}

func stringPointer(value sql.NullString) *string {
	if !value.Valid {
		return nil
	}
	out := value.String
	return &out
}

func encodeWeekdays(days []time.Weekday) string {
	if len(days) == 0 {
		return ""
	}
	parts := make([]string, 0, len(days))
	for _, day := range days {
		parts = append(parts, fmt.Sprintf("%d", int(day)))
	}
	return strings.Join(parts, ",")
}

func decodeWeekdays(value string) ([]time.Weekday, error) {
	if value == "" {
		return nil, nil
	}
	parts := strings.Split(value, ",")
	days := make([]time.Weekday, 0, len(parts))
	for _, part := range parts {
		var day int
		if _, err := fmt.Sscanf(strings.TrimSpace(part), "%d", &day); err != nil {
			return nil, fmt.Errorf("sqlite: invalid weekday %q: %w", part, err)
		}
		days = append(days, time.Weekday(day))
	}
	return days, nil
}

// mapError translates driver failures into persistence sentinels.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if err == sql.ErrNoRows {
		return persistence.ErrNotFound
	}
	if strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return persistence.ErrDuplicate
	}
	return err
}
