// Package events defines the background tasks exchanged over the redis stream
// between the API, the scheduler and the worker.
package events

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

type Type string

const (
	TypeComplaintChanged Type = "complaint.changed"
	TypeRevocationPrune  Type = "revocations.prune"
	TypeAnalyticsRefresh Type = "analytics.refresh"
)

type Action string

const (
	ActionSubmitted Action = "submitted"
	ActionMutated   Action = "mutated"
	ActionRemoved   Action = "removed"
)

type Task struct {
	Type        Type
	ComplaintID string
	Action      Action
}

func (t Task) Values() map[string]any {
	values := map[string]any{"type": string(t.Type)}
	if t.ComplaintID != "" {
		values["complaintId"] = t.ComplaintID
	}
	if t.Action != "" {
		values["action"] = string(t.Action)
	}
	return values
}

// Decode reads a task back from stream message values.
func Decode(values map[string]any) (Task, error) {
	raw, ok := values["type"]
	if !ok {
		return Task{}, fmt.Errorf("task without type")
	}
	task := Task{Type: Type(fmt.Sprint(raw))}
	if v, ok := values["complaintId"]; ok {
		task.ComplaintID = fmt.Sprint(v)
	}
	if v, ok := values["action"]; ok {
		task.Action = Action(fmt.Sprint(v))
	}
	return task, nil
}

type Publisher interface {
	Publish(ctx context.Context, task Task) error
}

type StreamPublisher struct {
	client *redis.Client
	stream string
	maxLen int64
}

func NewStreamPublisher(client *redis.Client, stream string) *StreamPublisher {
	return &StreamPublisher{client: client, stream: stream, maxLen: 10000}
}

func (p *StreamPublisher) Publish(ctx context.Context, task Task) error {
	_, err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		MaxLen: p.maxLen,
		Approx: true,
		Values: task.Values(),
	}).Result()
	if err != nil {
		return fmt.Errorf("publish %s: %w", task.Type, err)
	}
	return nil
}

type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Task) error { return nil }
