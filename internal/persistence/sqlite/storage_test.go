package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/timetrack/internal/persistence"
)

func openTestStorage(t *testing.T) *Storage {
	t.Helper()
	storage, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() {
		if err := storage.Close(); err != nil {
			t.Errorf("Close: %v", err)
		}
	})
	if err := storage.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	return storage
}

func testRecurringEntry(id, ownerID string) persistence.RecurringEntry {
	description := "weekly sync with the platform team"
	end := time.Date(2025, time.June, 30, 0, 0, 0, 0, time.UTC)
	return persistence.RecurringEntry{
		ID:                 id,
		OwnerID:            ownerID,
		ProjectID:          "project-1",
		Title:              "Platform sync",
		Description:        &description,
		WindowStartMinutes: 9 * 60,
		WindowEndMinutes:   10 * 60,
		Frequency:          2,
		Interval:           2,
		Weekdays:           []time.Weekday{time.Tuesday, time.Thursday},
		DayOfMonth:         0,
		StartDate:          time.Date(2025, time.January, 6, 0, 0, 0, 0, time.UTC),
		EndDate:            &end,
		MaxOccurrences:     0,
		Enabled:            true,
		CreatedAt:          time.Date(2025, time.January, 1, 8, 0, 0, 0, time.UTC),
		UpdatedAt:          time.Date(2025, time.January, 1, 8, 0, 0, 0, time.UTC),
	}
}

func TestStorage_RecurringEntryRoundTrip(t *testing.T) {
	storage := openTestStorage(t)
	ctx := context.Background()

	want := testRecurringEntry("entry-1", "owner-1")
	if err := storage.CreateRecurringEntry(ctx, want); err != nil {
		t.Fatalf("CreateRecurringEntry: %v", err)
	}

	got, err := storage.GetRecurringEntry(ctx, "owner-1", "entry-1")
	if err != nil {
		t.Fatalf("GetRecurringEntry: %v", err)
	}

	if got.Title != want.Title {
		t.Errorf("Title = %q, want %q", got.Title, want.Title)
	}
	if got.Description == nil || *got.Description != *want.Description {
		t.Errorf("Description = %v, want %q", got.Description, *want.Description)
	}
	if !got.StartDate.Equal(want.StartDate) {
		t.Errorf("StartDate = %v, want %v", got.StartDate, want.StartDate)
	}
	if got.EndDate == nil || !got.EndDate.Equal(*want.EndDate) {
		t.Errorf("EndDate = %v, want %v", got.EndDate, want.EndDate)
	}
	if len(got.Weekdays) != 2 || got.Weekdays[0] != time.Tuesday || got.Weekdays[1] != time.Thursday {
		t.Errorf("Weekdays = %v, want [Tuesday Thursday]", got.Weekdays)
	}
	if got.LastGeneratedDate != nil {
		t.Errorf("LastGeneratedDate = %v, want nil", got.LastGeneratedDate)
	}
	if !got.Enabled {
		t.Error("Enabled = false, want true")
	}
}

func TestStorage_GetRecurringEntry_WrongOwner(t *testing.T) {
	storage := openTestStorage(t)
	ctx := context.Background()

	if err := storage.CreateRecurringEntry(ctx, testRecurringEntry("entry-1", "owner-1")); err != nil {
		t.Fatalf("CreateRecurringEntry: %v", err)
	}

	_, err := storage.GetRecurringEntry(ctx, "owner-2", "entry-1")
	if !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("GetRecurringEntry with wrong owner: err = %v, want ErrNotFound", err)
	}
}

func TestStorage_UpdateRecurringEntry(t *testing.T) {
	storage := openTestStorage(t)
	ctx := context.Background()

	entry := testRecurringEntry("entry-1", "owner-1")
	if err := storage.CreateRecurringEntry(ctx, entry); err != nil {
		t.Fatalf("CreateRecurringEntry: %v", err)
	}

	entry.Title = "Renamed sync"
	entry.Enabled = false
	entry.UpdatedAt = entry.UpdatedAt.Add(time.Hour)
	if err := storage.UpdateRecurringEntry(ctx, entry); err != nil {
		t.Fatalf("UpdateRecurringEntry: %v", err)
	}

	got, err := storage.GetRecurringEntry(ctx, "owner-1", "entry-1")
	if err != nil {
		t.Fatalf("GetRecurringEntry: %v", err)
	}
	if got.Title != "Renamed sync" {
		t.Errorf("Title = %q, want %q", got.Title, "Renamed sync")
	}
	if got.Enabled {
		t.Error("Enabled = true, want false")
	}

	missing := testRecurringEntry("entry-2", "owner-1")
	if err := storage.UpdateRecurringEntry(ctx, missing); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("UpdateRecurringEntry for missing entry: err = %v, want ErrNotFound", err)
	}
}

func TestStorage_DeleteRecurringEntry_CascadesTimeEntries(t *testing.T) {
	storage := openTestStorage(t)
	ctx := context.Background()

	if err := storage.CreateRecurringEntry(ctx, testRecurringEntry("entry-1", "owner-1")); err != nil {
		t.Fatalf("CreateRecurringEntry: %v", err)
	}
	date := time.Date(2025, time.January, 7, 0, 0, 0, 0, time.UTC)
	if err := storage.CreateTimeEntry(ctx, testTimeEntry("te-1", "entry-1", "owner-1", date)); err != nil {
		t.Fatalf("CreateTimeEntry: %v", err)
	}

	if err := storage.DeleteRecurringEntry(ctx, "owner-1", "entry-1"); err != nil {
		t.Fatalf("DeleteRecurringEntry: %v", err)
	}

	exists, err := storage.TimeEntryExists(ctx, "entry-1", date)
	if err != nil {
		t.Fatalf("TimeEntryExists: %v", err)
	}
	if exists {
		t.Error("time entry survived deletion of its recurring entry")
	}

	if err := storage.DeleteRecurringEntry(ctx, "owner-1", "entry-1"); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("second delete: err = %v, want ErrNotFound", err)
	}
}

func TestStorage_ListRecurringEntries(t *testing.T) {
	storage := openTestStorage(t)
	ctx := context.Background()

	active := testRecurringEntry("entry-1", "owner-1")
	inactive := testRecurringEntry("entry-2", "owner-1")
	inactive.Enabled = false
	inactive.CreatedAt = inactive.CreatedAt.Add(time.Minute)
	other := testRecurringEntry("entry-3", "owner-2")
	for _, entry := range []persistence.RecurringEntry{active, inactive, other} {
		if err := storage.CreateRecurringEntry(ctx, entry); err != nil {
			t.Fatalf("CreateRecurringEntry(%s): %v", entry.ID, err)
		}
	}

	activeOnly, err := storage.ListRecurringEntries(ctx, "owner-1", false)
	if err != nil {
		t.Fatalf("ListRecurringEntries: %v", err)
	}
	if len(activeOnly) != 1 || activeOnly[0].ID != "entry-1" {
		t.Errorf("active list = %v, want just entry-1", entryIDs(activeOnly))
	}

	all, err := storage.ListRecurringEntries(ctx, "owner-1", true)
	if err != nil {
		t.Fatalf("ListRecurringEntries: %v", err)
	}
	if len(all) != 2 || all[0].ID != "entry-2" || all[1].ID != "entry-1" {
		t.Errorf("full list = %v, want newest first [entry-2 entry-1]", entryIDs(all))
	}

	enabled, err := storage.ListEnabledRecurringEntries(ctx)
	if err != nil {
		t.Fatalf("ListEnabledRecurringEntries: %v", err)
	}
	if len(enabled) != 2 {
		t.Errorf("enabled across owners = %v, want entry-1 and entry-3", entryIDs(enabled))
	}
}

func TestStorage_AdvanceWatermark(t *testing.T) {
	storage := openTestStorage(t)
	ctx := context.Background()

	if err := storage.CreateRecurringEntry(ctx, testRecurringEntry("entry-1", "owner-1")); err != nil {
		t.Fatalf("CreateRecurringEntry: %v", err)
	}

	first := time.Date(2025, time.January, 9, 0, 0, 0, 0, time.UTC)
	if err := storage.AdvanceWatermark(ctx, "entry-1", first); err != nil {
		t.Fatalf("AdvanceWatermark: %v", err)
	}

	// Moving backwards must be a no-op.
	earlier := time.Date(2025, time.January, 7, 0, 0, 0, 0, time.UTC)
	if err := storage.AdvanceWatermark(ctx, "entry-1", earlier); err != nil {
		t.Fatalf("AdvanceWatermark backwards: %v", err)
	}

	got, err := storage.GetRecurringEntry(ctx, "owner-1", "entry-1")
	if err != nil {
		t.Fatalf("GetRecurringEntry: %v", err)
	}
	if got.LastGeneratedDate == nil || !got.LastGeneratedDate.Equal(first) {
		t.Errorf("LastGeneratedDate = %v, want %v", got.LastGeneratedDate, first)
	}
}

func testTimeEntry(id, recurringID, ownerID string, date time.Time) persistence.TimeEntry {
	return persistence.TimeEntry{
		ID:               id,
		RecurringEntryID: recurringID,
		OwnerID:          ownerID,
		ProjectID:        "project-1",
		EntryDate:        date,
		Start:            date.Add(9 * time.Hour),
		End:              date.Add(10 * time.Hour),
		CreatedAt:        time.Date(2025, time.January, 1, 8, 0, 0, 0, time.UTC),
	}
}

func TestStorage_CreateTimeEntry_Duplicate(t *testing.T) {
	storage := openTestStorage(t)
	ctx := context.Background()

	if err := storage.CreateRecurringEntry(ctx, testRecurringEntry("entry-1", "owner-1")); err != nil {
		t.Fatalf("CreateRecurringEntry: %v", err)
	}

	date := time.Date(2025, time.January, 7, 0, 0, 0, 0, time.UTC)
	if err := storage.CreateTimeEntry(ctx, testTimeEntry("te-1", "entry-1", "owner-1", date)); err != nil {
		t.Fatalf("CreateTimeEntry: %v", err)
	}

	err := storage.CreateTimeEntry(ctx, testTimeEntry("te-2", "entry-1", "owner-1", date))
	if !errors.Is(err, persistence.ErrDuplicate) {
		t.Fatalf("second CreateTimeEntry for same date: err = %v, want ErrDuplicate", err)
	}

	// A different date for the same recurring entry is still allowed.
	other := date.AddDate(0, 0, 2)
	if err := storage.CreateTimeEntry(ctx, testTimeEntry("te-3", "entry-1", "owner-1", other)); err != nil {
		t.Fatalf("CreateTimeEntry for different date: %v", err)
	}
}

func TestStorage_ListTimeEntries(t *testing.T) {
	storage := openTestStorage(t)
	ctx := context.Background()

	if err := storage.CreateRecurringEntry(ctx, testRecurringEntry("entry-1", "owner-1")); err != nil {
		t.Fatalf("CreateRecurringEntry: %v", err)
	}

	dates := []time.Time{
		time.Date(2025, time.January, 7, 0, 0, 0, 0, time.UTC),
		time.Date(2025, time.January, 9, 0, 0, 0, 0, time.UTC),
		time.Date(2025, time.January, 21, 0, 0, 0, 0, time.UTC),
	}
	for i, date := range dates {
		entry := testTimeEntry(entryID(i), "entry-1", "owner-1", date)
		if err := storage.CreateTimeEntry(ctx, entry); err != nil {
			t.Fatalf("CreateTimeEntry(%s): %v", entry.ID, err)
		}
	}

	got, err := storage.ListTimeEntries(ctx, "owner-1",
		time.Date(2025, time.January, 8, 0, 0, 0, 0, time.UTC),
		time.Date(2025, time.January, 21, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("ListTimeEntries: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if !got[0].EntryDate.Equal(dates[1]) || !got[1].EntryDate.Equal(dates[2]) {
		t.Errorf("dates = [%v %v], want [%v %v]",
			got[0].EntryDate, got[1].EntryDate, dates[1], dates[2])
	}
	if !got[0].Start.Equal(dates[1].Add(9 * time.Hour)) {
		t.Errorf("Start = %v, want %v", got[0].Start, dates[1].Add(9*time.Hour))
	}
}

func entryID(i int) string {
	return string(rune('a'+i)) + "-entry"
}

func entryIDs(entries []persistence.RecurringEntry) []string {
	ids := make([]string, 0, len(entries))
	for _, entry := range entries {
		ids = append(ids, entry.ID)
	}
	return ids
}
