package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/example/timetrack/internal/application"
	"github.com/example/timetrack/internal/recurrence"
)

var errInvalidRunDate = errors.New("invalid date, expected YYYY-MM-DD")

type generationRunner interface {
	MaterializeForDate(ctx context.Context, date time.Time) (application.GenerationResult, error)
}

type GenerationHandler struct {
	runner    generationRunner
	now       func() time.Time
	responder responder
}

func NewGenerationHandler(runner generationRunner, now func() time.Time, logger *slog.Logger) *GenerationHandler {
	if now == nil {
		now = time.Now
	}
	return &GenerationHandler{runner: runner, now: now, responder: newResponder(logger)}
}

// Run triggers a generation sweep for a single date, defaulting to today.
func (h *GenerationHandler) Run(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.runner == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	date := recurrence.DateOf(h.now())
	if raw := strings.TrimSpace(r.URL.Query().Get("date")); raw != "" {
		parsed, err := time.ParseInLocation(recurrence.DateFormat, raw, time.UTC)
		if err != nil {
			h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidRunDate)
			return
		}
		date = parsed
	}

	result, err := h.runner.MaterializeForDate(r.Context(), date)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, generationRunDTO{
		Date:    result.Date.Format(recurrence.DateFormat),
		Entries: result.Entries,
		Created: result.Created,
		Skipped: result.Skipped,
		Failed:  result.Failed,
	})
}

type generationRunDTO struct {
	Date    string `json:"date"`
	Entries int    `json:"entries"`
	Created int    `json:"created"`
	Skipped int    `json:"skipped"`
	Failed  int    `json:"failed"`
}
