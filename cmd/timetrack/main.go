package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/example/timetrack/internal/application"
	"github.com/example/timetrack/internal/config"
	httptransport "github.com/example/timetrack/internal/http"
	"github.com/example/timetrack/internal/logging"
	"github.com/example/timetrack/internal/persistence"
	"github.com/example/timetrack/internal/persistence/sqlite"
	"github.com/example/timetrack/internal/recurrence"
	"github.com/example/timetrack/internal/scheduler"
)

func main() {
	logger := logging.NewLogger(os.Stdout, slog.LevelInfo)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	storage, err := sqlite.Open(cfg.SQLiteDSN)
	if err != nil {
		logger.Error("failed to open storage", "error", err)
		os.Exit(1)
	}
	defer func() {
		if cerr := storage.Close(); cerr != nil {
			logger.Error("failed to close storage", "error", cerr)
		}
	}()

	if err := storage.Migrate(context.Background()); err != nil {
		logger.Error("failed to apply migrations", "error", err)
		os.Exit(1)
	}

	idGenerator := uuid.NewString
	now := time.Now

	store := newStorageAdapter(storage)
	service := application.NewRecurringEntryService(store, store, idGenerator, now, logger)
	generator := application.NewGenerator(store, idGenerator, now, logger)

	loop := scheduler.NewLoop(generator, scheduler.Config{
		Tick:        cfg.GenerationTick,
		Cooldown:    cfg.GenerationCooldown,
		HorizonDays: cfg.GenerationHorizonDays,
		RunAfter:    cfg.GenerationRunAfter,
	}, logger, now)
	go func() {
		if err := loop.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("generation loop stopped", "error", err)
		}
	}()

	router := httptransport.NewRouter(httptransport.RouterConfig{
		RecurringEntries: httptransport.NewRecurringEntryHandler(service, logger),
		Generation:       httptransport.NewGenerationHandler(generator, now, logger),
		Middleware: []func(http.Handler) http.Handler{
			httptransport.RequestLogger(logger),
			httptransport.RequireOwner(logger),
		},
	})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to shutdown server", "error", err)
		}
	}()

	logger.Info("timetrack API listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server encountered error", "error", err)
		os.Exit(1)
	}
}

// storageAdapter bridges the application layer's snapshot types and the
// persistence layer's stored models over one sqlite storage handle.
type storageAdapter struct {
	entries     persistence.RecurringEntryRepository
	timeEntries persistence.TimeEntryRepository
}

func newStorageAdapter(storage *sqlite.Storage) *storageAdapter {
	return &storageAdapter{entries: storage, timeEntries: storage}
}

func (a *storageAdapter) CreateRecurringEntry(ctx context.Context, snapshot application.RecurringEntrySnapshot) error {
	return a.entries.CreateRecurringEntry(ctx, toStoredEntry(snapshot))
}

func (a *storageAdapter) GetRecurringEntry(ctx context.Context, ownerID, id string) (application.RecurringEntrySnapshot, error) {
	stored, err := a.entries.GetRecurringEntry(ctx, ownerID, id)
	if err != nil {
		return application.RecurringEntrySnapshot{}, err
	}
	return toEntrySnapshot(stored), nil
}

func (a *storageAdapter) UpdateRecurringEntry(ctx context.Context, snapshot application.RecurringEntrySnapshot) error {
	return a.entries.UpdateRecurringEntry(ctx, toStoredEntry(snapshot))
}

func (a *storageAdapter) DeleteRecurringEntry(ctx context.Context, ownerID, id string) error {
	return a.entries.DeleteRecurringEntry(ctx, ownerID, id)
}

func (a *storageAdapter) ListRecurringEntries(ctx context.Context, ownerID string, includeInactive bool) ([]application.RecurringEntrySnapshot, error) {
	stored, err := a.entries.ListRecurringEntries(ctx, ownerID, includeInactive)
	if err != nil {
		return nil, err
	}
	return toEntrySnapshots(stored), nil
}

func (a *storageAdapter) ListEnabledRecurringEntries(ctx context.Context) ([]application.RecurringEntrySnapshot, error) {
	stored, err := a.entries.ListEnabledRecurringEntries(ctx)
	if err != nil {
		return nil, err
	}
	return toEntrySnapshots(stored), nil
}

func (a *storageAdapter) AdvanceWatermark(ctx context.Context, recurringEntryID string, date time.Time) error {
	return a.entries.AdvanceWatermark(ctx, recurringEntryID, date)
}

func (a *storageAdapter) CreateTimeEntry(ctx context.Context, record application.TimeEntryRecord) error {
	return a.timeEntries.CreateTimeEntry(ctx, persistence.TimeEntry{
		ID:               record.ID,
		RecurringEntryID: record.RecurringEntryID,
		OwnerID:          record.OwnerID,
		ProjectID:        record.ProjectID,
		EntryDate:        record.EntryDate,
		Start:            record.Start,
		End:              record.End,
		Note:             cloneString(record.Note),
		CreatedAt:        record.CreatedAt,
	})
}

func (a *storageAdapter) TimeEntryExists(ctx context.Context, recurringEntryID string, date time.Time) (bool, error) {
	return a.timeEntries.TimeEntryExists(ctx, recurringEntryID, date)
}

func (a *storageAdapter) ListTimeEntries(ctx context.Context, ownerID string, from, to time.Time) ([]application.TimeEntryRecord, error) {
	stored, err := a.timeEntries.ListTimeEntries(ctx, ownerID, from, to)
	if err != nil {
		return nil, err
	}
	records := make([]application.TimeEntryRecord, 0, len(stored))
	for _, entry := range stored {
		records = append(records, application.TimeEntryRecord{
			ID:               entry.ID,
			RecurringEntryID: entry.RecurringEntryID,
			OwnerID:          entry.OwnerID,
			ProjectID:        entry.ProjectID,
			EntryDate:        entry.EntryDate,
			Start:            entry.Start,
			End:              entry.End,
			Note:             cloneString(entry.Note),
			CreatedAt:        entry.CreatedAt,
		})
	}
	return records, nil
}

func toStoredEntry(snapshot application.RecurringEntrySnapshot) persistence.RecurringEntry {
	return persistence.RecurringEntry{
		ID:                 snapshot.ID,
		OwnerID:            snapshot.OwnerID,
		ProjectID:          snapshot.ProjectID,
		Title:              snapshot.Title,
		Description:        cloneString(snapshot.Description),
		WindowStartMinutes: int(snapshot.WindowStart / time.Minute),
		WindowEndMinutes:   int(snapshot.WindowEnd / time.Minute),
		Frequency:          int(snapshot.Pattern.Frequency),
		Interval:           snapshot.Pattern.Interval,
		Weekdays:           append([]time.Weekday(nil), snapshot.Pattern.Weekdays...),
		DayOfMonth:         snapshot.Pattern.DayOfMonth,
		StartDate:          snapshot.Pattern.StartDate,
		EndDate:            cloneTime(snapshot.Pattern.EndDate),
		MaxOccurrences:     snapshot.Pattern.MaxOccurrences,
		Enabled:            snapshot.Enabled,
		LastGeneratedDate:  cloneTime(snapshot.LastGeneratedDate),
		CreatedAt:          snapshot.CreatedAt,
		UpdatedAt:          snapshot.UpdatedAt,
	}
}

func toEntrySnapshot(stored persistence.RecurringEntry) application.RecurringEntrySnapshot {
	return application.RecurringEntrySnapshot{
		ID:          stored.ID,
		OwnerID:     stored.OwnerID,
		ProjectID:   stored.ProjectID,
		Title:       stored.Title,
		Description: cloneString(stored.Description),
		WindowStart: time.Duration(stored.WindowStartMinutes) * time.Minute,
		WindowEnd:   time.Duration(stored.WindowEndMinutes) * time.Minute,
		Pattern: recurrence.PatternSpec{
			Frequency:      recurrence.Frequency(stored.Frequency),
			Interval:       stored.Interval,
			Weekdays:       append([]time.Weekday(nil), stored.Weekdays...),
			DayOfMonth:     stored.DayOfMonth,
			StartDate:      stored.StartDate,
			EndDate:        cloneTime(stored.EndDate),
			MaxOccurrences: stored.MaxOccurrences,
		},
		Enabled:           stored.Enabled,
		LastGeneratedDate: cloneTime(stored.LastGeneratedDate),
		CreatedAt:         stored.CreatedAt,
		UpdatedAt:         stored.UpdatedAt,
	}
}

func toEntrySnapshots(stored []persistence.RecurringEntry) []application.RecurringEntrySnapshot {
	if len(stored) == 0 {
		return nil
	}
	snapshots := make([]application.RecurringEntrySnapshot, 0, len(stored))
	for _, entry := range stored {
		snapshots = append(snapshots, toEntrySnapshot(entry))
	}
	return snapshots
}

func cloneString(value *string) *string {
	if value == nil {
		return nil
	}
	clone := *value
	return &clone
}

func cloneTime(value *time.Time) *time.Time {
	if value == nil {
		return nil
	}
	clone := *value
	return &clone
}
