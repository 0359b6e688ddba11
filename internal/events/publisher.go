// Package events notifies external consumers (the task-list UI
// backend) when a search task finishes. Events go onto a Redis
// stream; publishing is best-effort and never fails a task.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/harutk/pricehunter/internal/models"
)

const Stream = "stream:search_tasks"

// EventType marks what happened to a task.
type EventType string

const (
	EventTaskCompleted EventType = "TASK_COMPLETED"
	EventTaskFailed    EventType = "TASK_FAILED"
)

// TaskEvent is the wire payload appended to the stream.
type TaskEvent struct {
	EventType  EventType `json:"event_type"`
	TaskID     string    `json:"task_id"`
	Timestamp  time.Time `json:"timestamp"`
	ItemCount  int       `json:"item_count"`
	TotalFound int       `json:"total_found"`
	Error      string    `json:"error,omitempty"`
}

type Publisher struct {
	redis  *redis.Client
	logger *slog.Logger
}

// NewPublisher creates a stream publisher. A nil Redis client yields
// a no-op publisher, which keeps the CLI usable without Redis.
func NewPublisher(rdb *redis.Client, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{
		redis:  rdb,
		logger: logger.With("component", "event_publisher"),
	}
}

// PublishTaskCompleted appends a completion event for the task. The
// result may be nil when the task failed before aggregation.
func (p *Publisher) PublishTaskCompleted(ctx context.Context, taskID string, result *models.AggregationResult, taskErr error) error {
	if p.redis == nil {
		return nil
	}

	event := TaskEvent{
		EventType: EventTaskCompleted,
		TaskID:    taskID,
		Timestamp: time.Now(),
	}
	if taskErr != nil {
		event.EventType = EventTaskFailed
		event.Error = taskErr.Error()
	}
	if result != nil {
		event.ItemCount = len(result.Items)
		event.TotalFound = result.TotalFound
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	err = p.redis.XAdd(ctx, &redis.XAddArgs{
		Stream: Stream,
		Values: map[string]interface{}{
			"event_type": string(event.EventType),
			"task_id":    taskID,
			"payload":    payload,
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to append to stream: %w", err)
	}

	p.logger.Info("event published", "type", event.EventType, "task_id", taskID)
	return nil
}
