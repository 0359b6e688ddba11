package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/harutk/pricehunter/internal/aggregate"
	"github.com/harutk/pricehunter/internal/database"
	"github.com/harutk/pricehunter/internal/models"
	"github.com/harutk/pricehunter/internal/tasks"
)

type Handlers struct {
	manager      *tasks.Manager
	store        *database.TaskStore
	orchestrator *aggregate.Orchestrator
	logger       *slog.Logger
}

func NewHandlers(manager *tasks.Manager, store *database.TaskStore, orchestrator *aggregate.Orchestrator, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{
		manager:      manager,
		store:        store,
		orchestrator: orchestrator,
		logger:       logger.With("component", "api"),
	}
}

// CreateSearchResponse is returned on task submission.
type CreateSearchResponse struct {
	TaskID string `json:"task_id"`
	Status string `json:"status"`
}

// CreateSearch enqueues an aggregation task.
func (h *Handlers) CreateSearch(w http.ResponseWriter, r *http.Request) {
	var spec models.QuerySpec
	if err := json.NewDecoder(r.Body).Decode(&spec); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	task, err := h.manager.Submit(r.Context(), spec)
	if err != nil {
		if errors.Is(err, models.ErrEmptyQuerySpec) {
			h.respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("failed to create task", "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to create task")
		return
	}

	h.respondJSON(w, http.StatusCreated, CreateSearchResponse{
		TaskID: task.ID,
		Status: task.Status,
	})
}

// SearchTaskResponse combines task status with the result once the
// task has completed.
type SearchTaskResponse struct {
	Task   *database.SearchTask      `json:"task"`
	Result *models.AggregationResult `json:"result,omitempty"`
}

// GetSearch returns a task's status and, when done, its result.
func (h *Handlers) GetSearch(w http.ResponseWriter, r *http.Request) {
	taskID := chi.URLParam(r, "taskID")
	if taskID == "" {
		h.respondError(w, http.StatusBadRequest, "task ID is required")
		return
	}

	task, err := h.store.GetTask(r.Context(), taskID)
	if errors.Is(err, database.ErrTaskNotFound) {
		h.respondError(w, http.StatusNotFound, "task not found")
		return
	}
	if err != nil {
		h.logger.Error("failed to get task", "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to get task")
		return
	}

	resp := SearchTaskResponse{Task: task}
	if task.Status == database.TaskCompleted {
		result, err := h.store.GetResult(r.Context(), taskID)
		if err != nil && !errors.Is(err, database.ErrTaskNotFound) {
			h.logger.Error("failed to get result", "error", err)
			h.respondError(w, http.StatusInternalServerError, "failed to get result")
			return
		}
		resp.Result = result
	}

	h.respondJSON(w, http.StatusOK, resp)
}

// SearchNow runs an aggregation inline and returns the ranked items
// directly. The client holds the connection for up to the global
// aggregation deadline.
func (h *Handlers) SearchNow(w http.ResponseWriter, r *http.Request) {
	var spec models.QuerySpec
	if err := json.NewDecoder(r.Body).Decode(&spec); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.orchestrator.Aggregate(r.Context(), spec)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.respondJSON(w, http.StatusOK, result)
}

// GetStats returns task table counters.
func (h *Handlers) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.store.Stats(r.Context())
	if err != nil {
		h.logger.Error("failed to get stats", "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to get stats")
		return
	}

	h.respondJSON(w, http.StatusOK, stats)
}

func (h *Handlers) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handlers) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}
