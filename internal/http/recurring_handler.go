package http

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/example/timetrack/internal/application"
	"github.com/example/timetrack/internal/recurrence"
)

type recurringEntryService interface {
	Create(ctx context.Context, ownerID string, input application.RecurringEntryInput) (*application.RecurringEntry, error)
	Get(ctx context.Context, ownerID, id string) (*application.RecurringEntry, error)
	List(ctx context.Context, ownerID string, includeInactive bool) ([]*application.RecurringEntry, error)
	Update(ctx context.Context, ownerID, id string, input application.RecurringEntryInput) (*application.RecurringEntry, error)
	Delete(ctx context.Context, ownerID, id string) error
	Activate(ctx context.Context, ownerID, id string) (*application.RecurringEntry, error)
	Deactivate(ctx context.Context, ownerID, id string) (*application.RecurringEntry, error)
	PreviewOccurrences(ctx context.Context, ownerID, id string, from, to time.Time) ([]application.Occurrence, error)
	ListTimeEntries(ctx context.Context, ownerID string, from, to time.Time) ([]application.TimeEntryRecord, error)
}

type RecurringEntryHandler struct {
	service   recurringEntryService
	responder responder
}

func NewRecurringEntryHandler(service recurringEntryService, logger *slog.Logger) *RecurringEntryHandler {
	return &RecurringEntryHandler{service: service, responder: newResponder(logger)}
}

func (h *RecurringEntryHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req recurringEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	ownerID, _ := OwnerIDFromContext(r.Context())

	entry, err := h.service.Create(r.Context(), ownerID, req.toInput())
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusCreated, toRecurringEntryDTO(entry))
}

func (h *RecurringEntryHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	entryID, ok := EntryIDFromContext(r.Context())
	if !ok || strings.TrimSpace(entryID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidEntryID)
		return
	}

	ownerID, _ := OwnerIDFromContext(r.Context())

	entry, err := h.service.Get(r.Context(), ownerID, entryID)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, toRecurringEntryDTO(entry))
}

func (h *RecurringEntryHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	ownerID, _ := OwnerIDFromContext(r.Context())
	includeInactive := r.URL.Query().Get("include_inactive") == "true"

	entries, err := h.service.List(r.Context(), ownerID, includeInactive)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	dtos := make([]recurringEntryDTO, 0, len(entries))
	for _, entry := range entries {
		dtos = append(dtos, toRecurringEntryDTO(entry))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listRecurringEntriesResponse{RecurringEntries: dtos})
}

func (h *RecurringEntryHandler) Update(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	entryID, ok := EntryIDFromContext(r.Context())
	if !ok || strings.TrimSpace(entryID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidEntryID)
		return
	}

	var req recurringEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	ownerID, _ := OwnerIDFromContext(r.Context())

	entry, err := h.service.Update(r.Context(), ownerID, entryID, req.toInput())
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, toRecurringEntryDTO(entry))
}

func (h *RecurringEntryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	entryID, ok := EntryIDFromContext(r.Context())
	if !ok || strings.TrimSpace(entryID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidEntryID)
		return
	}

	ownerID, _ := OwnerIDFromContext(r.Context())
	if err := h.service.Delete(r.Context(), ownerID, entryID); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

func (h *RecurringEntryHandler) Activate(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, r, true)
}

func (h *RecurringEntryHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, r, false)
}

func (h *RecurringEntryHandler) setActive(w http.ResponseWriter, r *http.Request, active bool) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	entryID, ok := EntryIDFromContext(r.Context())
	if !ok || strings.TrimSpace(entryID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidEntryID)
		return
	}

	ownerID, _ := OwnerIDFromContext(r.Context())

	var (
		entry *application.RecurringEntry
		err   error
	)
	if active {
		entry, err = h.service.Activate(r.Context(), ownerID, entryID)
	} else {
		entry, err = h.service.Deactivate(r.Context(), ownerID, entryID)
	}
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, toRecurringEntryDTO(entry))
}

func (h *RecurringEntryHandler) PreviewOccurrences(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	entryID, ok := EntryIDFromContext(r.Context())
	if !ok || strings.TrimSpace(entryID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidEntryID)
		return
	}

	ownerID, _ := OwnerIDFromContext(r.Context())
	from, to := parseDateRange(r.URL.Query())

	occurrences, err := h.service.PreviewOccurrences(r.Context(), ownerID, entryID, from, to)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	dtos := make([]occurrenceDTO, 0, len(occurrences))
	for _, occurrence := range occurrences {
		dtos = append(dtos, occurrenceDTO{
			Date:  occurrence.Date.Format(recurrence.DateFormat),
			Start: formatWindow(occurrence.WindowStart),
			End:   formatWindow(occurrence.WindowEnd),
		})
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, previewOccurrencesResponse{Occurrences: dtos})
}

func (h *RecurringEntryHandler) ListTimeEntries(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	ownerID, _ := OwnerIDFromContext(r.Context())
	from, to := parseDateRange(r.URL.Query())

	records, err := h.service.ListTimeEntries(r.Context(), ownerID, from, to)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	dtos := make([]timeEntryDTO, 0, len(records))
	for _, record := range records {
		dtos = append(dtos, toTimeEntryDTO(record))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listTimeEntriesResponse{TimeEntries: dtos})
}

type recurringEntryRequest struct {
	ProjectID   string     `json:"project_id"`
	Title       string     `json:"title"`
	Description *string    `json:"description"`
	WindowStart string     `json:"window_start"`
	WindowEnd   string     `json:"window_end"`
	Pattern     patternDTO `json:"pattern"`
}

type patternDTO struct {
	Frequency      string   `json:"frequency"`
	Interval       int      `json:"interval"`
	Weekdays       []string `json:"weekdays,omitempty"`
	DayOfMonth     int      `json:"day_of_month,omitempty"`
	StartDate      string   `json:"start_date"`
	EndDate        *string  `json:"end_date,omitempty"`
	MaxOccurrences int      `json:"max_occurrences,omitempty"`
}

// toInput converts the request leniently: unparsable values become inputs
// the application layer rejects with field errors.
func (r recurringEntryRequest) toInput() application.RecurringEntryInput {
	return application.RecurringEntryInput{
		ProjectID:   strings.TrimSpace(r.ProjectID),
		Title:       r.Title,
		Description: r.Description,
		WindowStart: parseWindow(r.WindowStart),
		WindowEnd:   parseWindow(r.WindowEnd),
		Pattern:     r.Pattern.toSpec(),
	}
}

func (p patternDTO) toSpec() recurrence.PatternSpec {
	spec := recurrence.PatternSpec{
		Frequency:      parseFrequency(p.Frequency),
		Interval:       p.Interval,
		DayOfMonth:     p.DayOfMonth,
		StartDate:      parseDate(p.StartDate),
		MaxOccurrences: p.MaxOccurrences,
	}
	for _, name := range p.Weekdays {
		spec.Weekdays = append(spec.Weekdays, parseWeekday(name))
	}
	if p.EndDate != nil {
		end := parseDate(*p.EndDate)
		spec.EndDate = &end
	}
	return spec
}

type recurringEntryDTO struct {
	ID                string     `json:"id"`
	ProjectID         string     `json:"project_id"`
	Title             string     `json:"title"`
	Description       *string    `json:"description,omitempty"`
	WindowStart       string     `json:"window_start"`
	WindowEnd         string     `json:"window_end"`
	Pattern           patternDTO `json:"pattern"`
	Summary           string     `json:"summary"`
	Enabled           bool       `json:"enabled"`
	LastGeneratedDate *string    `json:"last_generated_date,omitempty"`
	CreatedAt         string     `json:"created_at"`
	UpdatedAt         string     `json:"updated_at"`
}

type listRecurringEntriesResponse struct {
	RecurringEntries []recurringEntryDTO `json:"recurring_entries"`
}

type occurrenceDTO struct {
	Date  string `json:"date"`
	Start string `json:"start"`
	End   string `json:"end"`
}

type previewOccurrencesResponse struct {
	Occurrences []occurrenceDTO `json:"occurrences"`
}

type timeEntryDTO struct {
	ID               string  `json:"id"`
	RecurringEntryID string  `json:"recurring_entry_id"`
	ProjectID        string  `json:"project_id"`
	Date             string  `json:"date"`
	Start            string  `json:"start"`
	End              string  `json:"end"`
	Note             *string `json:"note,omitempty"`
	CreatedAt        string  `json:"created_at"`
}

type listTimeEntriesResponse struct {
	TimeEntries []timeEntryDTO `json:"time_entries"`
}

func toRecurringEntryDTO(entry *application.RecurringEntry) recurringEntryDTO {
	pattern := entry.Pattern()
	dto := recurringEntryDTO{
		ID:          entry.ID(),
		ProjectID:   entry.ProjectID(),
		Title:       entry.Title(),
		Description: entry.Description(),
		WindowStart: formatWindow(entry.WindowStart()),
		WindowEnd:   formatWindow(entry.WindowEnd()),
		Pattern:     toPatternDTO(pattern),
		Summary:     pattern.Describe(),
		Enabled:     entry.Enabled(),
		CreatedAt:   entry.CreatedAt().Format(time.RFC3339),
		UpdatedAt:   entry.UpdatedAt().Format(time.RFC3339),
	}
	if last := entry.LastGeneratedDate(); last != nil {
		formatted := last.Format(recurrence.DateFormat)
		dto.LastGeneratedDate = &formatted
	}
	return dto
}

func toPatternDTO(pattern recurrence.Pattern) patternDTO {
	dto := patternDTO{
		Frequency:  pattern.Frequency().String(),
		Interval:   pattern.Interval(),
		DayOfMonth: pattern.DayOfMonth(),
		StartDate:  pattern.StartDate().Format(recurrence.DateFormat),
	}
	for _, day := range pattern.Weekdays() {
		dto.Weekdays = append(dto.Weekdays, strings.ToLower(day.String()))
	}
	if end, ok := pattern.EndDate(); ok {
		formatted := end.Format(recurrence.DateFormat)
		dto.EndDate = &formatted
	}
	if max, ok := pattern.MaxOccurrences(); ok {
		dto.MaxOccurrences = max
	}
	return dto
}

func toTimeEntryDTO(record application.TimeEntryRecord) timeEntryDTO {
	return timeEntryDTO{
		ID:               record.ID,
		RecurringEntryID: record.RecurringEntryID,
		ProjectID:        record.ProjectID,
		Date:             record.EntryDate.Format(recurrence.DateFormat),
		Start:            record.Start.Format(time.RFC3339),
		End:              record.End.Format(time.RFC3339),
		Note:             record.Note,
		CreatedAt:        record.CreatedAt.Format(time.RFC3339),
	}
}

// parseWindow converts an "HH:MM" time of day to an offset from midnight.
// Unparsable values map to a negative duration the validator rejects.
func parseWindow(value string) time.Duration {
	parsed, err := time.Parse("15:04", strings.TrimSpace(value))
	if err != nil {
		return -time.Minute
	}
	return time.Duration(parsed.Hour())*time.Hour + time.Duration(parsed.Minute())*time.Minute
}

func formatWindow(offset time.Duration) string {
	return fmt.Sprintf("%02d:%02d", int(offset/time.Hour), int(offset%time.Hour/time.Minute))
}

// parseDate is lenient: failures yield the zero time, which downstream
// validation reports as a missing or invalid date.
func parseDate(value string) time.Time {
	parsed, err := time.ParseInLocation(recurrence.DateFormat, strings.TrimSpace(value), time.UTC)
	if err != nil {
		return time.Time{}
	}
	return parsed
}

func parseDateRange(query url.Values) (time.Time, time.Time) {
	return parseDate(query.Get("from")), parseDate(query.Get("to"))
}

func parseFrequency(value string) recurrence.Frequency {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "daily":
		return recurrence.FrequencyDaily
	case "weekly":
		return recurrence.FrequencyWeekly
	case "monthly":
		return recurrence.FrequencyMonthly
	default:
		return recurrence.FrequencyUnspecified
	}
}

func parseWeekday(value string) time.Weekday {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "sunday":
		return time.Sunday
	case "monday":
		return time.Monday
	case "tuesday":
		return time.Tuesday
	case "wednesday":
		return time.Wednesday
	case "thursday":
		return time.Thursday
	case "friday":
		return time.Friday
	case "saturday":
		return time.Saturday
	default:
		// Out of range; pattern validation rejects it.
		return time.Weekday(-1)
	}
}
