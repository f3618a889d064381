// Package notify turns domain events into background work: customer e-mails
// and periodic cart cleanup, run by the asynq worker.
package notify

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

// Task type names.
const (
	TypeOrderEmail = "order:email"
	TypeCartSweep  = "cart:sweep_expired"
)

// OrderEmailPayload identifies the order and the event that triggered the mail.
type OrderEmailPayload struct {
	OrderID string `json:"orderId"`
	Topic   string `json:"topic"`
}

// NewOrderEmailTask builds a mail task. The task id dedupes repeated events
// for the same order and topic.
func NewOrderEmailTask(orderID, topic string) (*asynq.Task, error) {
	payload, err := json.Marshal(OrderEmailPayload{OrderID: orderID, Topic: topic})
	if err != nil {
		return nil, fmt.Errorf("encode order email payload: %w", err)
	}
	return asynq.NewTask(TypeOrderEmail, payload,
		asynq.MaxRetry(5),
		asynq.Timeout(30*time.Second),
		asynq.TaskID(topic+":"+orderID),
	), nil
}

// NewCartSweepTask builds the periodic expired-cart sweep.
func NewCartSweepTask() *asynq.Task {
	return asynq.NewTask(TypeCartSweep, nil, asynq.MaxRetry(1), asynq.Timeout(time.Minute))
}
