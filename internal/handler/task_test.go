package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"

	"github.com/Killgreck/agenda/internal/clock"
	"github.com/Killgreck/agenda/internal/holiday"
	"github.com/Killgreck/agenda/internal/ingest"
	"github.com/Killgreck/agenda/internal/model"
	"github.com/Killgreck/agenda/internal/notify"
	"github.com/Killgreck/agenda/internal/repository"
	"github.com/Killgreck/agenda/internal/telemetry"
)

var testNow = time.Date(2024, time.June, 9, 12, 0, 0, 0, time.UTC)

func newTestRouter(t *testing.T) (chi.Router, *repository.Memory) {
	t.Helper()

	repo := repository.NewMemory()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	clk := clock.Fixed(testNow)

	metrics, err := telemetry.NewMetrics(noop.NewMeterProvider().Meter("test"), func() int64 { return 0 })
	require.NoError(t, err)

	svc := ingest.NewService(repo, holiday.NewCalendar(), clk, notify.Discard{}, logger, ingest.Options{})
	h := NewTaskHandler(svc, repo, notify.Discard{}, clk, logger, metrics)

	r := chi.NewRouter()
	r.Get("/health", h.Health)
	r.Route("/api/v1", func(r chi.Router) {
		r.Mount("/tasks", h.Routes())
		r.Get("/slots", h.Slots)
	})
	return r, repo
}

func postTask(t *testing.T, r chi.Router, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/tasks", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func singleTaskBody(title, start, end string) string {
	return fmt.Sprintf(`{"user_id":"u1","title":%q,"date":%q,"end_date":%q}`, title, start, end)
}

func TestCreateTask(t *testing.T) {
	r, repo := newTestRouter(t)

	rec := postTask(t, r, singleTaskBody("Dentist", "2024-06-10T15:00:00Z", "2024-06-10T16:00:00Z"))
	require.Equal(t, http.StatusCreated, rec.Code)

	var created []model.Task
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&created))
	require.Len(t, created, 1)
	assert.NotEmpty(t, created[0].ID)
	assert.Equal(t, "Dentist", created[0].Title)

	n, err := repo.Count(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestCreateTaskInvalidBody(t *testing.T) {
	r, _ := newTestRouter(t)

	rec := postTask(t, r, `{"user_id":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateTaskValidationError(t *testing.T) {
	r, _ := newTestRouter(t)

	rec := postTask(t, r, `{"user_id":"u1","date":"2024-06-10T15:00:00Z"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var body map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "title", body["field"])
	assert.NotEmpty(t, body["message"])
}

func TestCreateTaskConflict(t *testing.T) {
	r, _ := newTestRouter(t)

	rec := postTask(t, r, singleTaskBody("Dentist", "2024-06-10T15:00:00Z", "2024-06-10T16:00:00Z"))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = postTask(t, r, singleTaskBody("Haircut", "2024-06-10T15:30:00Z", "2024-06-10T16:30:00Z"))
	require.Equal(t, http.StatusConflict, rec.Code)

	var body struct {
		Message    string                  `json:"message"`
		Conflicts  []model.ConflictingTask `json:"conflicts"`
		Suggestion *time.Time              `json:"suggestion"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	require.Len(t, body.Conflicts, 1)
	assert.Equal(t, "Dentist", body.Conflicts[0].Title)
	require.NotNil(t, body.Suggestion)
	assert.Contains(t, body.Message, "time conflict")
}

func TestCreateRecurringSeries(t *testing.T) {
	r, _ := newTestRouter(t)

	body := `{
		"user_id": "u1",
		"title": "Gym",
		"is_recurring": true,
		"recurrence_type": "weekly",
		"recurrence_start_date": "2024-06-03T07:00:00Z",
		"recurrence_end_date": "2024-06-14T00:00:00Z",
		"recurring_days": ["monday", "wednesday", "friday"]
	}`
	rec := postTask(t, r, body)
	require.Equal(t, http.StatusCreated, rec.Code)

	var created []model.Task
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&created))
	assert.Len(t, created, 6)
}

func TestListTasks(t *testing.T) {
	r, _ := newTestRouter(t)

	rec := postTask(t, r, singleTaskBody("Dentist", "2024-06-10T15:00:00Z", "2024-06-10T16:00:00Z"))
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = postTask(t, r, singleTaskBody("Review", "2024-06-11T10:00:00Z", "2024-06-11T11:00:00Z"))
	require.Equal(t, http.StatusCreated, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/tasks?user=u1&start=2024-06-10&end=2024-06-11", nil)
	out := httptest.NewRecorder()
	r.ServeHTTP(out, req)
	require.Equal(t, http.StatusOK, out.Code)

	var tasks []model.Task
	require.NoError(t, json.NewDecoder(out.Body).Decode(&tasks))
	require.Len(t, tasks, 1)
	assert.Equal(t, "Dentist", tasks[0].Title)
}

func TestListTasksBadRange(t *testing.T) {
	r, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/tasks?start=notadate", nil)
	out := httptest.NewRecorder()
	r.ServeHTTP(out, req)
	assert.Equal(t, http.StatusBadRequest, out.Code)
}

func TestGetTaskByID(t *testing.T) {
	r, _ := newTestRouter(t)

	rec := postTask(t, r, singleTaskBody("Dentist", "2024-06-10T15:00:00Z", "2024-06-10T16:00:00Z"))
	var created []model.Task
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&created))
	require.Len(t, created, 1)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/tasks/"+created[0].ID, nil)
	out := httptest.NewRecorder()
	r.ServeHTTP(out, req)
	require.Equal(t, http.StatusOK, out.Code)

	var got model.Task
	require.NoError(t, json.NewDecoder(out.Body).Decode(&got))
	assert.Equal(t, created[0].ID, got.ID)
}

func TestGetTaskNotFound(t *testing.T) {
	r, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/tasks/missing", nil)
	out := httptest.NewRecorder()
	r.ServeHTTP(out, req)
	assert.Equal(t, http.StatusNotFound, out.Code)
}

func TestDeleteTask(t *testing.T) {
	r, repo := newTestRouter(t)

	rec := postTask(t, r, singleTaskBody("Dentist", "2024-06-10T15:00:00Z", "2024-06-10T16:00:00Z"))
	var created []model.Task
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&created))
	require.Len(t, created, 1)

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/tasks/"+created[0].ID, nil)
	out := httptest.NewRecorder()
	r.ServeHTTP(out, req)
	require.Equal(t, http.StatusNoContent, out.Code)

	n, err := repo.Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)

	out = httptest.NewRecorder()
	r.ServeHTTP(out, httptest.NewRequest(http.MethodDelete, "/api/v1/tasks/"+created[0].ID, nil))
	assert.Equal(t, http.StatusNotFound, out.Code)
}

func TestSlots(t *testing.T) {
	r, _ := newTestRouter(t)

	rec := postTask(t, r, singleTaskBody("Standup", "2024-06-10T09:00:00Z", "2024-06-10T09:30:00Z"))
	require.Equal(t, http.StatusCreated, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/slots?user=u1&day=2024-06-10", nil)
	out := httptest.NewRecorder()
	r.ServeHTTP(out, req)
	require.Equal(t, http.StatusOK, out.Code)

	var body struct {
		Slots []time.Time `json:"slots"`
	}
	require.NoError(t, json.NewDecoder(out.Body).Decode(&body))
	require.NotEmpty(t, body.Slots)
	assert.Equal(t, 9, body.Slots[0].Hour())
	assert.Equal(t, 30, body.Slots[0].Minute())
}

func TestSlotsRequiresUser(t *testing.T) {
	r, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/slots", nil)
	out := httptest.NewRecorder()
	r.ServeHTTP(out, req)
	assert.Equal(t, http.StatusBadRequest, out.Code)
}

func TestHealth(t *testing.T) {
	r, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	out := httptest.NewRecorder()
	r.ServeHTTP(out, req)
	require.Equal(t, http.StatusOK, out.Code)

	var body map[string]string
	require.NoError(t, json.NewDecoder(out.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
}
