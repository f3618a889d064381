package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-mithai/internal/common"
	"github.com/noah-isme/backend-mithai/internal/order"
)

// workerIdentity lets the worker read any order.
var workerIdentity = common.Identity{UserID: "worker", Admin: true}

// OrderReader loads orders for mail rendering.
type OrderReader interface {
	Get(ctx context.Context, id string, viewer common.Identity) (order.Order, error)
}

// CartSweeper deletes expired carts.
type CartSweeper interface {
	SweepExpired(ctx context.Context) (int64, error)
}

// Worker handles the background tasks.
type Worker struct {
	Orders OrderReader
	Cart   CartSweeper
	Mail   common.EmailSender
	Logger zerolog.Logger
}

// Register installs the task handlers on mux.
func (w Worker) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(TypeOrderEmail, w.HandleOrderEmail)
	mux.HandleFunc(TypeCartSweep, w.HandleCartSweep)
}

// HandleOrderEmail sends the customer mail for an order event. Malformed
// payloads and unknown orders are not retried.
func (w Worker) HandleOrderEmail(ctx context.Context, t *asynq.Task) error {
	var p OrderEmailPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil || p.OrderID == "" {
		return fmt.Errorf("decode order email payload: %v: %w", err, asynq.SkipRetry)
	}
	if w.Orders == nil || w.Mail == nil {
		return fmt.Errorf("order email worker not configured: %w", asynq.SkipRetry)
	}
	o, err := w.Orders.Get(ctx, p.OrderID, workerIdentity)
	if errors.Is(err, order.ErrNotFound) {
		w.Logger.Warn().Str("order_id", p.OrderID).Msg("order email skipped, order not found")
		return fmt.Errorf("order %s: %w", p.OrderID, asynq.SkipRetry)
	}
	if err != nil {
		return err
	}
	mail, err := ComposeOrderMail(p.Topic, o)
	if err != nil {
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	if err := w.Mail.Send(ctx, common.Email{To: mail.To, Subject: mail.Subject, HTML: mail.HTML}); err != nil {
		return fmt.Errorf("send order email: %w", err)
	}
	w.Logger.Info().Str("order_number", o.Number).Str("topic", p.Topic).Msg("order email sent")
	return nil
}

// HandleCartSweep deletes carts idle past their TTL.
func (w Worker) HandleCartSweep(ctx context.Context, _ *asynq.Task) error {
	if w.Cart == nil {
		return nil
	}
	n, err := w.Cart.SweepExpired(ctx)
	if err != nil {
		return fmt.Errorf("sweep carts: %w", err)
	}
	if n > 0 {
		w.Logger.Info().Int64("carts", n).Msg("expired carts swept")
	}
	return nil
}
