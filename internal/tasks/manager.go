// Package tasks runs queued search tasks through the aggregation
// pipeline and persists their results. It is the only caller of the
// orchestrator in the server binary and the only writer to the
// result sink.
package tasks

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/harutk/pricehunter/internal/aggregate"
	"github.com/harutk/pricehunter/internal/database"
	"github.com/harutk/pricehunter/internal/events"
	"github.com/harutk/pricehunter/internal/models"
)

type Manager struct {
	store        *database.TaskStore
	orchestrator *aggregate.Orchestrator
	publisher    *events.Publisher
	logger       *slog.Logger
	pollInterval time.Duration
}

func NewManager(store *database.TaskStore, orchestrator *aggregate.Orchestrator, publisher *events.Publisher, logger *slog.Logger, pollInterval time.Duration) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	if pollInterval <= 0 {
		pollInterval = 5 * time.Second
	}
	return &Manager{
		store:        store,
		orchestrator: orchestrator,
		publisher:    publisher,
		logger:       logger.With("component", "task_manager"),
		pollInterval: pollInterval,
	}
}

// Submit enqueues a QuerySpec for background processing. The spec is
// resolved up front so that a caller gets the invalid-spec error at
// submit time, not buried in a failed task.
func (m *Manager) Submit(ctx context.Context, spec models.QuerySpec) (*database.SearchTask, error) {
	if _, err := spec.Resolve(); err != nil {
		return nil, err
	}
	return m.store.CreateTask(ctx, spec)
}

// StartWorker polls for pending tasks until ctx is cancelled. One
// task runs at a time; admission control beyond that belongs to the
// caller.
func (m *Manager) StartWorker(ctx context.Context) {
	m.logger.Info("task worker started", "poll_interval", m.pollInterval)

	ticker := time.NewTicker(m.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("task worker stopping")
			return
		case <-ticker.C:
			m.processNext(ctx)
		}
	}
}

func (m *Manager) processNext(ctx context.Context) {
	task, err := m.store.ClaimNextPending(ctx)
	if errors.Is(err, database.ErrTaskNotFound) {
		return
	}
	if err != nil {
		m.logger.Error("failed to claim task", "error", err)
		return
	}

	m.logger.Info("processing task", "id", task.ID)

	result, aggErr := m.orchestrator.Aggregate(ctx, task.Spec())
	if aggErr != nil {
		// Only an unresolvable QuerySpec lands here; adapter
		// failures are already folded into the result.
		m.logger.Error("task failed", "id", task.ID, "error", aggErr)
		m.finish(ctx, task.ID, nil, aggErr)
		return
	}

	if err := m.store.SaveResult(ctx, task.ID, result); err != nil {
		m.logger.Error("failed to save result", "id", task.ID, "error", err)
		m.finish(ctx, task.ID, nil, err)
		return
	}

	m.finish(ctx, task.ID, result, nil)
	m.logger.Info("task completed", "id", task.ID,
		"items", len(result.Items), "failed_platforms", len(result.Errors))
}

func (m *Manager) finish(ctx context.Context, taskID string, result *models.AggregationResult, taskErr error) {
	if err := m.store.CompleteTask(ctx, taskID, taskErr); err != nil {
		m.logger.Error("failed to update task status", "id", taskID, "error", err)
	}
	if err := m.publisher.PublishTaskCompleted(ctx, taskID, result, taskErr); err != nil {
		m.logger.Error("failed to publish task event", "id", taskID, "error", err)
	}
}
