package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/Killgreck/agenda/internal/clock"
	"github.com/Killgreck/agenda/internal/ingest"
	"github.com/Killgreck/agenda/internal/model"
	"github.com/Killgreck/agenda/internal/notify"
	"github.com/Killgreck/agenda/internal/repository"
	"github.com/Killgreck/agenda/internal/telemetry"
)

var tracer = otel.Tracer("github.com/Killgreck/agenda/internal/handler")

// TaskHandler handles HTTP requests for tasks and slot suggestions.
type TaskHandler struct {
	ingestor *ingest.Service
	repo     repository.Repository
	notifier notify.Notifier
	clock    clock.Clock
	logger   *slog.Logger
	metrics  *telemetry.Metrics
}

// NewTaskHandler creates a new TaskHandler.
func NewTaskHandler(
	ingestor *ingest.Service,
	repo repository.Repository,
	notifier notify.Notifier,
	clk clock.Clock,
	logger *slog.Logger,
	metrics *telemetry.Metrics,
) *TaskHandler {
	return &TaskHandler{
		ingestor: ingestor,
		repo:     repo,
		notifier: notifier,
		clock:    clk,
		logger:   logger,
		metrics:  metrics,
	}
}

// Routes returns the chi router with task routes.
func (h *TaskHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/", h.Create)
	r.Get("/", h.List)
	r.Get("/{id}", h.GetByID)
	r.Delete("/{id}", h.Delete)

	return r
}

// Create ingests a task draft: a single event or a recurring series.
// Conflicting single events come back as 409 with the conflicting tasks
// and a suggested alternative slot.
func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()

	ctx, span := tracer.Start(ctx, "TaskHandler.Create")
	defer span.End()

	var draft model.TaskDraft
	if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
		h.logger.WarnContext(ctx, "invalid request body", slog.Any("error", err))
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		h.recordMetrics(ctx, "POST", "/api/v1/tasks", http.StatusBadRequest, start)
		return
	}

	created, err := h.ingestor.Ingest(ctx, &draft)
	if err != nil {
		var verr *model.ValidationError
		if errors.As(err, &verr) {
			h.logger.WarnContext(ctx, "validation failed", slog.Any("error", err))
			h.respondJSON(w, http.StatusBadRequest, map[string]any{
				"message": verr.Error(),
				"field":   verr.Field,
			})
			h.recordMetrics(ctx, "POST", "/api/v1/tasks", http.StatusBadRequest, start)
			return
		}
		var cerr *model.ConflictError
		if errors.As(err, &cerr) {
			h.logger.InfoContext(ctx, "task conflict detected",
				slog.String("user_id", draft.UserID),
				slog.Int("conflicts", len(cerr.Conflicts)),
			)
			h.metrics.ConflictCounter.Add(ctx, 1)
			h.respondJSON(w, http.StatusConflict, map[string]any{
				"message":    cerr.Error(),
				"conflicts":  cerr.Conflicts,
				"suggestion": cerr.Suggestion,
			})
			h.recordMetrics(ctx, "POST", "/api/v1/tasks", http.StatusConflict, start)
			return
		}
		h.logger.ErrorContext(ctx, "failed to create task", slog.Any("error", err))
		h.respondError(w, http.StatusInternalServerError, "failed to create task")
		h.recordMetrics(ctx, "POST", "/api/v1/tasks", http.StatusInternalServerError, start)
		return
	}

	span.SetAttributes(attribute.Int("task.count", len(created)))
	h.logger.InfoContext(ctx, "tasks created", slog.Int("count", len(created)))

	h.respondJSON(w, http.StatusCreated, created)
	h.recordMetrics(ctx, "POST", "/api/v1/tasks", http.StatusCreated, start)
}

// List returns a user's tasks within an optional [start, end) range.
func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()

	ctx, span := tracer.Start(ctx, "TaskHandler.List")
	defer span.End()

	userID := r.URL.Query().Get("user")
	rangeStart, ok := h.parseTimeParam(w, r, "start", time.Time{})
	if !ok {
		h.recordMetrics(ctx, "GET", "/api/v1/tasks", http.StatusBadRequest, start)
		return
	}
	rangeEnd, ok := h.parseTimeParam(w, r, "end", h.clock.Now().AddDate(1, 0, 0))
	if !ok {
		h.recordMetrics(ctx, "GET", "/api/v1/tasks", http.StatusBadRequest, start)
		return
	}

	tasks, err := h.repo.List(ctx, userID, rangeStart, rangeEnd)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list tasks", slog.Any("error", err))
		h.respondError(w, http.StatusInternalServerError, "failed to list tasks")
		h.recordMetrics(ctx, "GET", "/api/v1/tasks", http.StatusInternalServerError, start)
		return
	}

	span.SetAttributes(attribute.Int("task.count", len(tasks)))
	h.respondJSON(w, http.StatusOK, tasks)
	h.recordMetrics(ctx, "GET", "/api/v1/tasks", http.StatusOK, start)
}

// GetByID returns a task by ID.
func (h *TaskHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()
	id := chi.URLParam(r, "id")

	ctx, span := tracer.Start(ctx, "TaskHandler.GetByID",
		trace.WithAttributes(attribute.String("task.id", id)),
	)
	defer span.End()

	task, err := h.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, model.ErrTaskNotFound) {
			h.respondError(w, http.StatusNotFound, "task not found")
			h.recordMetrics(ctx, "GET", "/api/v1/tasks/{id}", http.StatusNotFound, start)
			return
		}
		h.logger.ErrorContext(ctx, "failed to get task", slog.Any("error", err))
		h.respondError(w, http.StatusInternalServerError, "failed to get task")
		h.recordMetrics(ctx, "GET", "/api/v1/tasks/{id}", http.StatusInternalServerError, start)
		return
	}

	h.respondJSON(w, http.StatusOK, task)
	h.recordMetrics(ctx, "GET", "/api/v1/tasks/{id}", http.StatusOK, start)
}

// Delete removes a task and broadcasts the deletion.
func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()
	id := chi.URLParam(r, "id")

	ctx, span := tracer.Start(ctx, "TaskHandler.Delete",
		trace.WithAttributes(attribute.String("task.id", id)),
	)
	defer span.End()

	if err := h.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, model.ErrTaskNotFound) {
			h.respondError(w, http.StatusNotFound, "task not found")
			h.recordMetrics(ctx, "DELETE", "/api/v1/tasks/{id}", http.StatusNotFound, start)
			return
		}
		h.logger.ErrorContext(ctx, "failed to delete task", slog.Any("error", err))
		h.respondError(w, http.StatusInternalServerError, "failed to delete task")
		h.recordMetrics(ctx, "DELETE", "/api/v1/tasks/{id}", http.StatusInternalServerError, start)
		return
	}

	if h.notifier != nil {
		ev := notify.Event{Type: notify.EventDeleteTask, TaskID: id, Timestamp: h.clock.Now()}
		if err := h.notifier.Publish(ctx, ev); err != nil {
			h.logger.WarnContext(ctx, "delete broadcast failed", slog.Any("error", err))
		}
	}

	h.logger.InfoContext(ctx, "task deleted", slog.String("id", id))

	w.WriteHeader(http.StatusNoContent)
	h.recordMetrics(ctx, "DELETE", "/api/v1/tasks/{id}", http.StatusNoContent, start)
}

// Slots returns ranked free slots for a user's day, the same suggestions
// embedded in conflict responses.
func (h *TaskHandler) Slots(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()

	ctx, span := tracer.Start(ctx, "TaskHandler.Slots")
	defer span.End()

	userID := r.URL.Query().Get("user")
	if userID == "" {
		h.respondError(w, http.StatusBadRequest, "user query parameter is required")
		h.recordMetrics(ctx, "GET", "/api/v1/slots", http.StatusBadRequest, start)
		return
	}
	day, ok := h.parseTimeParam(w, r, "day", h.clock.Now())
	if !ok {
		h.recordMetrics(ctx, "GET", "/api/v1/slots", http.StatusBadRequest, start)
		return
	}

	slots, err := h.ingestor.SuggestSlots(ctx, userID, day)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to find slots", slog.Any("error", err))
		h.respondError(w, http.StatusInternalServerError, "failed to find slots")
		h.recordMetrics(ctx, "GET", "/api/v1/slots", http.StatusInternalServerError, start)
		return
	}

	span.SetAttributes(attribute.Int("slot.count", len(slots)))
	h.respondJSON(w, http.StatusOK, map[string]any{"day": day, "slots": slots})
	h.recordMetrics(ctx, "GET", "/api/v1/slots", http.StatusOK, start)
}

// Health returns a health check response.
func (h *TaskHandler) Health(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// parseTimeParam reads an RFC 3339 instant or a bare YYYY-MM-DD date from
// the query, responding 400 on malformed input.
func (h *TaskHandler) parseTimeParam(w http.ResponseWriter, r *http.Request, name string, def time.Time) (time.Time, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, true
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, true
	}
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return t, true
	}
	h.respondError(w, http.StatusBadRequest, "invalid "+name+" parameter")
	return time.Time{}, false
}

func (h *TaskHandler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

func (h *TaskHandler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}

func (h *TaskHandler) recordMetrics(ctx context.Context, method, route string, status int, start time.Time) {
	duration := time.Since(start).Seconds()

	attrs := metric.WithAttributes(
		attribute.String("http.method", method),
		attribute.String("http.route", route),
		attribute.Int("http.status_code", status),
	)

	h.metrics.RequestCounter.Add(ctx, 1, attrs)
	h.metrics.RequestDuration.Record(ctx, duration, attrs)
}
