package notify

import (
	"context"
	"errors"

	"github.com/hibiken/asynq"

	"github.com/noah-isme/backend-mithai/internal/events"
)

// Enqueuer is satisfied by *asynq.Client.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// TaskNotifier enqueues customer mail for order events.
type TaskNotifier struct {
	Client Enqueuer
}

// Sink names the notifier in event publish metrics.
func (TaskNotifier) Sink() string { return "tasks" }

// Notify implements events.Notifier.
func (n TaskNotifier) Notify(ctx context.Context, ev events.Event) error {
	if n.Client == nil {
		return nil
	}
	switch ev.Topic {
	case events.TopicOrderCreated, events.TopicOrderCancelled:
	default:
		return nil
	}
	task, err := NewOrderEmailTask(ev.AggregateID, ev.Topic)
	if err != nil {
		return err
	}
	_, err = n.Client.EnqueueContext(ctx, task)
	if errors.Is(err, asynq.ErrTaskIDConflict) || errors.Is(err, asynq.ErrDuplicateTask) {
		return nil
	}
	return err
}
