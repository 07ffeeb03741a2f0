package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/example/timetrack/internal/application"
	"github.com/example/timetrack/internal/testfixtures"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()

	ledger := testfixtures.NewLedger()
	clock := testfixtures.NewClock(testfixtures.ReferenceTime())
	service := application.NewRecurringEntryService(ledger, ledger, testfixtures.NewIDGenerator("entry").NextFunc(), clock.NowFunc(), nil)
	generator := application.NewGenerator(ledger, testfixtures.NewIDGenerator("te").NextFunc(), clock.NowFunc(), nil)

	router := NewRouter(RouterConfig{
		RecurringEntries: NewRecurringEntryHandler(service, nil),
		Generation:       NewGenerationHandler(generator, clock.NowFunc(), nil),
		Middleware:       []func(http.Handler) http.Handler{RequireOwner(nil)},
	})
	return router
}

func doRequest(t *testing.T, router http.Handler, method, target, ownerID string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body == nil {
		reader = bytes.NewReader(nil)
	} else {
		encoded, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request body: %v", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req := httptest.NewRequest(method, target, reader)
	if ownerID != "" {
		req.Header.Set("X-User-ID", ownerID)
	}
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)
	return recorder
}

func decodeBody(t *testing.T, recorder *httptest.ResponseRecorder, target any) {
	t.Helper()
	if err := json.Unmarshal(recorder.Body.Bytes(), target); err != nil {
		t.Fatalf("decode response %q: %v", recorder.Body.String(), err)
	}
}

func validCreateRequest() map[string]any {
	return map[string]any{
		"project_id":   "project-1",
		"title":        "Daily standup",
		"window_start": "09:00",
		"window_end":   "09:15",
		"pattern": map[string]any{
			"frequency":  "daily",
			"interval":   1,
			"start_date": "2025-01-06",
		},
	}
}

func createEntry(t *testing.T, router http.Handler, ownerID string, body map[string]any) recurringEntryDTO {
	t.Helper()

	recorder := doRequest(t, router, http.MethodPost, "/recurring-entries", ownerID, body)
	if recorder.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body %q", recorder.Code, recorder.Body.String())
	}
	var dto recurringEntryDTO
	decodeBody(t, recorder, &dto)
	return dto
}

func TestCreateRecurringEntry(t *testing.T) {
	t.Parallel()
	router := newTestRouter(t)

	dto := createEntry(t, router, "owner-1", validCreateRequest())

	if dto.ID == "" {
		t.Error("expected a generated id")
	}
	if dto.Title != "Daily standup" {
		t.Errorf("title = %q", dto.Title)
	}
	if dto.WindowStart != "09:00" || dto.WindowEnd != "09:15" {
		t.Errorf("window = %s-%s", dto.WindowStart, dto.WindowEnd)
	}
	if !dto.Enabled {
		t.Error("new entries should be enabled")
	}
	if dto.Pattern.Frequency != "daily" || dto.Pattern.StartDate != "2025-01-06" {
		t.Errorf("pattern = %+v", dto.Pattern)
	}
	if dto.Summary == "" {
		t.Error("expected a pattern summary")
	}
}

func TestCreateRecurringEntry_ValidationErrors(t *testing.T) {
	t.Parallel()
	router := newTestRouter(t)

	body := validCreateRequest()
	body["title"] = "   "
	body["window_end"] = "25:00"

	recorder := doRequest(t, router, http.MethodPost, "/recurring-entries", "owner-1", body)
	if recorder.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, body %q", recorder.Code, recorder.Body.String())
	}

	var resp struct {
		Message string            `json:"message"`
		Errors  map[string]string `json:"errors"`
	}
	decodeBody(t, recorder, &resp)
	for _, field := range []string{"title", "window_end"} {
		if _, ok := resp.Errors[field]; !ok {
			t.Errorf("expected a field error for %q, got %v", field, resp.Errors)
		}
	}
}

func TestCreateRecurringEntry_MalformedBody(t *testing.T) {
	t.Parallel()
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/recurring-entries", strings.NewReader("{not json"))
	req.Header.Set("X-User-ID", "owner-1")
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)

	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", recorder.Code)
	}
}

func TestMissingOwnerHeader(t *testing.T) {
	t.Parallel()
	router := newTestRouter(t)

	recorder := doRequest(t, router, http.MethodGet, "/recurring-entries", "", nil)
	if recorder.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", recorder.Code)
	}
}

func TestGetRecurringEntry(t *testing.T) {
	t.Parallel()
	router := newTestRouter(t)

	created := createEntry(t, router, "owner-1", validCreateRequest())

	recorder := doRequest(t, router, http.MethodGet, "/recurring-entries/"+created.ID, "owner-1", nil)
	if recorder.Code != http.StatusOK {
		t.Fatalf("status = %d, body %q", recorder.Code, recorder.Body.String())
	}

	var dto recurringEntryDTO
	decodeBody(t, recorder, &dto)
	if dto.ID != created.ID {
		t.Errorf("id = %q, want %q", dto.ID, created.ID)
	}

	t.Run("other owners cannot see the entry", func(t *testing.T) {
		recorder := doRequest(t, router, http.MethodGet, "/recurring-entries/"+created.ID, "owner-2", nil)
		if recorder.Code != http.StatusNotFound {
			t.Fatalf("status = %d", recorder.Code)
		}
	})

	t.Run("unknown id yields not found", func(t *testing.T) {
		recorder := doRequest(t, router, http.MethodGet, "/recurring-entries/missing", "owner-1", nil)
		if recorder.Code != http.StatusNotFound {
			t.Fatalf("status = %d", recorder.Code)
		}
	})
}

func TestListRecurringEntries(t *testing.T) {
	t.Parallel()
	router := newTestRouter(t)

	first := createEntry(t, router, "owner-1", validCreateRequest())
	second := validCreateRequest()
	second["title"] = "Weekly review"
	createEntry(t, router, "owner-1", second)

	deactivate := doRequest(t, router, http.MethodPost, "/recurring-entries/"+first.ID+"/deactivate", "owner-1", nil)
	if deactivate.Code != http.StatusOK {
		t.Fatalf("deactivate status = %d", deactivate.Code)
	}

	recorder := doRequest(t, router, http.MethodGet, "/recurring-entries", "owner-1", nil)
	if recorder.Code != http.StatusOK {
		t.Fatalf("status = %d", recorder.Code)
	}
	var active listRecurringEntriesResponse
	decodeBody(t, recorder, &active)
	if len(active.RecurringEntries) != 1 {
		t.Fatalf("active entries = %d, want 1", len(active.RecurringEntries))
	}

	recorder = doRequest(t, router, http.MethodGet, "/recurring-entries?include_inactive=true", "owner-1", nil)
	var all listRecurringEntriesResponse
	decodeBody(t, recorder, &all)
	if len(all.RecurringEntries) != 2 {
		t.Fatalf("all entries = %d, want 2", len(all.RecurringEntries))
	}
}

func TestUpdateAndDeleteRecurringEntry(t *testing.T) {
	t.Parallel()
	router := newTestRouter(t)

	created := createEntry(t, router, "owner-1", validCreateRequest())

	update := validCreateRequest()
	update["title"] = "Renamed standup"
	recorder := doRequest(t, router, http.MethodPut, "/recurring-entries/"+created.ID, "owner-1", update)
	if recorder.Code != http.StatusOK {
		t.Fatalf("update status = %d, body %q", recorder.Code, recorder.Body.String())
	}
	var updated recurringEntryDTO
	decodeBody(t, recorder, &updated)
	if updated.Title != "Renamed standup" {
		t.Errorf("title = %q", updated.Title)
	}

	recorder = doRequest(t, router, http.MethodDelete, "/recurring-entries/"+created.ID, "owner-1", nil)
	if recorder.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", recorder.Code)
	}

	recorder = doRequest(t, router, http.MethodGet, "/recurring-entries/"+created.ID, "owner-1", nil)
	if recorder.Code != http.StatusNotFound {
		t.Fatalf("get after delete status = %d", recorder.Code)
	}
}

func TestActivateDeactivateConflicts(t *testing.T) {
	t.Parallel()
	router := newTestRouter(t)

	created := createEntry(t, router, "owner-1", validCreateRequest())

	recorder := doRequest(t, router, http.MethodPost, "/recurring-entries/"+created.ID+"/activate", "owner-1", nil)
	if recorder.Code != http.StatusConflict {
		t.Fatalf("activate active entry status = %d, want 409", recorder.Code)
	}

	recorder = doRequest(t, router, http.MethodPost, "/recurring-entries/"+created.ID+"/deactivate", "owner-1", nil)
	if recorder.Code != http.StatusOK {
		t.Fatalf("deactivate status = %d", recorder.Code)
	}

	recorder = doRequest(t, router, http.MethodPost, "/recurring-entries/"+created.ID+"/deactivate", "owner-1", nil)
	if recorder.Code != http.StatusConflict {
		t.Fatalf("deactivate inactive entry status = %d, want 409", recorder.Code)
	}
}

func TestPreviewOccurrences(t *testing.T) {
	t.Parallel()
	router := newTestRouter(t)

	body := validCreateRequest()
	body["pattern"] = map[string]any{
		"frequency":  "weekly",
		"interval":   2,
		"weekdays":   []string{"tuesday", "thursday"},
		"start_date": "2025-01-06",
	}
	created := createEntry(t, router, "owner-1", body)

	recorder := doRequest(t, router, http.MethodGet, "/recurring-entries/"+created.ID+"/occurrences?from=2025-01-06&to=2025-01-21", "owner-1", nil)
	if recorder.Code != http.StatusOK {
		t.Fatalf("status = %d, body %q", recorder.Code, recorder.Body.String())
	}

	var resp previewOccurrencesResponse
	decodeBody(t, recorder, &resp)
	want := []string{"2025-01-07", "2025-01-09", "2025-01-21"}
	if len(resp.Occurrences) != len(want) {
		t.Fatalf("occurrences = %+v, want dates %v", resp.Occurrences, want)
	}
	for i, occurrence := range resp.Occurrences {
		if occurrence.Date != want[i] {
			t.Errorf("occurrence[%d].date = %s, want %s", i, occurrence.Date, want[i])
		}
		if occurrence.Start != "09:00" || occurrence.End != "09:15" {
			t.Errorf("occurrence[%d] window = %s-%s", i, occurrence.Start, occurrence.End)
		}
	}

	t.Run("missing range is rejected", func(t *testing.T) {
		recorder := doRequest(t, router, http.MethodGet, "/recurring-entries/"+created.ID+"/occurrences", "owner-1", nil)
		if recorder.Code != http.StatusUnprocessableEntity {
			t.Fatalf("status = %d", recorder.Code)
		}
	})
}

func TestGenerationRun(t *testing.T) {
	t.Parallel()
	router := newTestRouter(t)

	createEntry(t, router, "owner-1", validCreateRequest())

	recorder := doRequest(t, router, http.MethodPost, "/generation/runs?date=2025-01-07", "owner-1", nil)
	if recorder.Code != http.StatusOK {
		t.Fatalf("status = %d, body %q", recorder.Code, recorder.Body.String())
	}

	var run generationRunDTO
	decodeBody(t, recorder, &run)
	if run.Date != "2025-01-07" || run.Entries != 1 || run.Created != 1 {
		t.Fatalf("run = %+v", run)
	}

	t.Run("repeat run skips existing entries", func(t *testing.T) {
		recorder := doRequest(t, router, http.MethodPost, "/generation/runs?date=2025-01-07", "owner-1", nil)
		var repeat generationRunDTO
		decodeBody(t, recorder, &repeat)
		if repeat.Created != 0 || repeat.Skipped != 1 {
			t.Fatalf("repeat run = %+v", repeat)
		}
	})

	t.Run("generated entries are listed", func(t *testing.T) {
		recorder := doRequest(t, router, http.MethodGet, "/time-entries?from=2025-01-01&to=2025-01-31", "owner-1", nil)
		if recorder.Code != http.StatusOK {
			t.Fatalf("status = %d", recorder.Code)
		}
		var resp listTimeEntriesResponse
		decodeBody(t, recorder, &resp)
		if len(resp.TimeEntries) != 1 {
			t.Fatalf("time entries = %+v, want 1", resp.TimeEntries)
		}
		entry := resp.TimeEntries[0]
		if entry.Date != "2025-01-07" {
			t.Errorf("date = %s", entry.Date)
		}
		if entry.Start != "2025-01-07T09:00:00Z" || entry.End != "2025-01-07T09:15:00Z" {
			t.Errorf("window = %s-%s", entry.Start, entry.End)
		}
	})

	t.Run("invalid date is rejected", func(t *testing.T) {
		recorder := doRequest(t, router, http.MethodPost, "/generation/runs?date=january", "owner-1", nil)
		if recorder.Code != http.StatusBadRequest {
			t.Fatalf("status = %d", recorder.Code)
		}
	})
}

func TestMethodNotAllowed(t *testing.T) {
	t.Parallel()
	router := newTestRouter(t)

	recorder := doRequest(t, router, http.MethodPatch, "/recurring-entries", "owner-1", nil)
	if recorder.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d", recorder.Code)
	}
	if allow := recorder.Header().Get("Allow"); !strings.Contains(allow, http.MethodPost) {
		t.Errorf("Allow header = %q", allow)
	}
}
