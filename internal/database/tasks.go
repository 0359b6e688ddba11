package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/harutk/pricehunter/internal/models"
)

// Task statuses, in lifecycle order.
const (
	TaskPending   = "pending"
	TaskRunning   = "running"
	TaskCompleted = "completed"
	TaskFailed    = "failed"
)

var ErrTaskNotFound = errors.New("task not found")

// SearchTask is one queued aggregation request.
type SearchTask struct {
	ID          string     `json:"id"`
	JANCode     string     `json:"jan_code,omitempty"`
	ProductName string     `json:"product_name,omitempty"`
	FreeText    string     `json:"free_text,omitempty"`
	Limit       int        `json:"limit"`
	Status      string     `json:"status"`
	Error       string     `json:"error,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Spec reconstructs the QuerySpec the task was created from.
func (t *SearchTask) Spec() models.QuerySpec {
	return models.QuerySpec{
		JANCode:     t.JANCode,
		ProductName: t.ProductName,
		FreeText:    t.FreeText,
		Limit:       t.Limit,
	}
}

// TaskStats summarizes the task table for the stats endpoint.
type TaskStats struct {
	Total     int `json:"total"`
	Pending   int `json:"pending"`
	Running   int `json:"running"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
}

// TaskStore persists search tasks and their finished results. It is
// the result sink of the aggregation pipeline: one write per
// completed call, read back by the status API.
type TaskStore struct {
	db *DB
}

func NewTaskStore(db *DB) *TaskStore {
	return &TaskStore{db: db}
}

// CreateTask enqueues a new aggregation request.
func (s *TaskStore) CreateTask(ctx context.Context, spec models.QuerySpec) (*SearchTask, error) {
	task := &SearchTask{
		ID:          uuid.New().String(),
		JANCode:     spec.JANCode,
		ProductName: spec.ProductName,
		FreeText:    spec.FreeText,
		Limit:       spec.EffectiveLimit(),
		Status:      TaskPending,
		CreatedAt:   time.Now(),
	}

	query := `
		INSERT INTO search_tasks
		(id, jan_code, product_name, free_text, item_limit, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := s.db.Exec(ctx, query,
		task.ID, task.JANCode, task.ProductName, task.FreeText, task.Limit, task.Status, task.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	return task, nil
}

// GetTask retrieves a task by ID.
func (s *TaskStore) GetTask(ctx context.Context, taskID string) (*SearchTask, error) {
	query := `
		SELECT id, jan_code, product_name, free_text, item_limit, status,
		       COALESCE(error, ''), created_at, started_at, completed_at
		FROM search_tasks
		WHERE id = $1
	`

	task := &SearchTask{}
	err := s.db.QueryRow(ctx, query, taskID).Scan(
		&task.ID, &task.JANCode, &task.ProductName, &task.FreeText, &task.Limit, &task.Status,
		&task.Error, &task.CreatedAt, &task.StartedAt, &task.CompletedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrTaskNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get task: %w", err)
	}

	return task, nil
}

// ClaimNextPending atomically picks the oldest pending task and marks
// it running, so concurrent workers never grab the same task.
func (s *TaskStore) ClaimNextPending(ctx context.Context) (*SearchTask, error) {
	task := &SearchTask{}

	err := s.db.Transaction(ctx, func(tx pgx.Tx) error {
		query := `
			SELECT id, jan_code, product_name, free_text, item_limit, created_at
			FROM search_tasks
			WHERE status = 'pending'
			ORDER BY created_at
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		`
		err := tx.QueryRow(ctx, query).Scan(
			&task.ID, &task.JANCode, &task.ProductName, &task.FreeText, &task.Limit, &task.CreatedAt)
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrTaskNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to pick task: %w", err)
		}

		now := time.Now()
		task.Status = TaskRunning
		task.StartedAt = &now
		_, err = tx.Exec(ctx,
			`UPDATE search_tasks SET status = $1, started_at = $2 WHERE id = $3`,
			task.Status, now, task.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	return task, nil
}

// CompleteTask marks a task finished, with err deciding between
// completed and failed.
func (s *TaskStore) CompleteTask(ctx context.Context, taskID string, taskErr error) error {
	now := time.Now()

	if taskErr != nil {
		_, err := s.db.Exec(ctx,
			`UPDATE search_tasks SET status = $1, completed_at = $2, error = $3 WHERE id = $4`,
			TaskFailed, now, taskErr.Error(), taskID)
		return err
	}

	_, err := s.db.Exec(ctx,
		`UPDATE search_tasks SET status = $1, completed_at = $2 WHERE id = $3`,
		TaskCompleted, now, taskID)
	return err
}

// SaveResult persists a finished aggregation for later retrieval.
// Items, counts and errors go in as JSONB since the status API only
// ever reads them back whole.
func (s *TaskStore) SaveResult(ctx context.Context, taskID string, result *models.AggregationResult) error {
	items, err := json.Marshal(result.Items)
	if err != nil {
		return fmt.Errorf("failed to marshal items: %w", err)
	}
	counts, err := json.Marshal(result.PlatformCounts)
	if err != nil {
		return fmt.Errorf("failed to marshal platform counts: %w", err)
	}
	errMap, err := json.Marshal(result.Errors)
	if err != nil {
		return fmt.Errorf("failed to marshal errors: %w", err)
	}

	query := `
		INSERT INTO search_results
		(task_id, items, platform_counts, errors, total_found, after_dedup, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		ON CONFLICT (task_id) DO UPDATE SET
			items = EXCLUDED.items,
			platform_counts = EXCLUDED.platform_counts,
			errors = EXCLUDED.errors,
			total_found = EXCLUDED.total_found,
			after_dedup = EXCLUDED.after_dedup
	`

	_, err = s.db.Exec(ctx, query, taskID, items, counts, errMap, result.TotalFound, result.AfterDedup)
	if err != nil {
		return fmt.Errorf("failed to save result: %w", err)
	}

	return nil
}

// GetResult reads a stored aggregation result back.
func (s *TaskStore) GetResult(ctx context.Context, taskID string) (*models.AggregationResult, error) {
	query := `
		SELECT items, platform_counts, COALESCE(errors, 'null'), total_found, after_dedup
		FROM search_results
		WHERE task_id = $1
	`

	var items, counts, errMap []byte
	result := &models.AggregationResult{}
	err := s.db.QueryRow(ctx, query, taskID).Scan(
		&items, &counts, &errMap, &result.TotalFound, &result.AfterDedup)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrTaskNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get result: %w", err)
	}

	if err := json.Unmarshal(items, &result.Items); err != nil {
		return nil, fmt.Errorf("failed to unmarshal items: %w", err)
	}
	if err := json.Unmarshal(counts, &result.PlatformCounts); err != nil {
		return nil, fmt.Errorf("failed to unmarshal platform counts: %w", err)
	}
	if err := json.Unmarshal(errMap, &result.Errors); err != nil {
		return nil, fmt.Errorf("failed to unmarshal errors: %w", err)
	}

	return result, nil
}

// Stats counts tasks per status.
func (s *TaskStore) Stats(ctx context.Context) (*TaskStats, error) {
	query := `
		SELECT
			COUNT(*),
			COUNT(CASE WHEN status = 'pending' THEN 1 END),
			COUNT(CASE WHEN status = 'running' THEN 1 END),
			COUNT(CASE WHEN status = 'completed' THEN 1 END),
			COUNT(CASE WHEN status = 'failed' THEN 1 END)
		FROM search_tasks
	`

	stats := &TaskStats{}
	err := s.db.QueryRow(ctx, query).Scan(
		&stats.Total, &stats.Pending, &stats.Running, &stats.Completed, &stats.Failed)
	if err != nil {
		return nil, fmt.Errorf("failed to get stats: %w", err)
	}

	return stats, nil
}
