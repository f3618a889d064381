package order

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/noah-isme/backend-mithai/internal/common"
	"github.com/noah-isme/backend-mithai/internal/db"
	"github.com/noah-isme/backend-mithai/internal/events"
	"github.com/noah-isme/backend-mithai/internal/obs"
)

// Queries is the read and lifecycle surface over stored orders. *db.Queries satisfies it.
type Queries interface {
	GetOrder(ctx context.Context, id pgtype.UUID) (db.Order, error)
	ListOrders(ctx context.Context, arg db.OrderFilter) ([]db.Order, error)
	CountOrders(ctx context.Context, arg db.OrderFilter) (int64, error)
	ListOrderItemsByOrders(ctx context.Context, orderIDs []pgtype.UUID) ([]db.OrderItem, error)
	UpdateOrderStatus(ctx context.Context, arg db.UpdateOrderStatusParams) (db.Order, error)
	CancelOrder(ctx context.Context, id pgtype.UUID, userID string) (db.Order, error)
}

// ListParams filters order listings. UserID scopes the listing to one customer.
type ListParams struct {
	UserID        string
	Status        string
	PaymentStatus string
	PaymentMethod string
	Query         string
	Page          int
	Limit         int
}

// ListResult is one page of orders.
type ListResult struct {
	Orders []Order
	Total  int64
	Page   int
	Limit  int
}

// StatusUpdate carries an admin change. Nil fields are left untouched.
type StatusUpdate struct {
	Status        *Status        `json:"status"`
	PaymentStatus *PaymentStatus `json:"paymentStatus"`
}

func (s *Service) ready() error {
	if s == nil || s.Q == nil {
		return errors.New("order service not configured")
	}
	return nil
}

// List returns orders newest first.
func (s *Service) List(ctx context.Context, params ListParams) (ListResult, error) {
	if err := s.ready(); err != nil {
		return ListResult{}, err
	}
	if params.Page < 1 {
		params.Page = 1
	}
	if params.Limit < 1 {
		params.Limit = 20
	}
	if params.Status != "" && !Status(params.Status).Valid() {
		return ListResult{}, common.ValidationError("unknown status", map[string]any{"field": "status"})
	}
	if params.PaymentStatus != "" && !PaymentStatus(params.PaymentStatus).Valid() {
		return ListResult{}, common.ValidationError("unknown payment status", map[string]any{"field": "paymentStatus"})
	}
	filter := db.OrderFilter{
		UserID:        db.Text(params.UserID),
		Status:        db.Text(params.Status),
		PaymentStatus: db.Text(params.PaymentStatus),
		PaymentMethod: db.Text(params.PaymentMethod),
		Q:             db.Text(params.Query),
		Limit:         int32(params.Limit),
		Offset:        int32(common.Offset(params.Page, params.Limit)),
	}
	total, err := s.Q.CountOrders(ctx, filter)
	if err != nil {
		return ListResult{}, fmt.Errorf("count orders: %w", err)
	}
	rows, err := s.Q.ListOrders(ctx, filter)
	if err != nil {
		return ListResult{}, fmt.Errorf("list orders: %w", err)
	}
	orders, err := s.withItems(ctx, rows)
	if err != nil {
		return ListResult{}, err
	}
	return ListResult{Orders: orders, Total: total, Page: params.Page, Limit: params.Limit}, nil
}

// Get returns an order visible to viewer: its owner or an admin.
func (s *Service) Get(ctx context.Context, id string, viewer common.Identity) (Order, error) {
	if err := s.ready(); err != nil {
		return Order{}, err
	}
	row, err := s.load(ctx, id)
	if err != nil {
		return Order{}, err
	}
	if !viewer.Admin && row.UserID != viewer.UserID {
		return Order{}, notFound(id)
	}
	return s.one(ctx, row)
}

// Cancel cancels the caller's order unless it is delivered or already cancelled.
func (s *Service) Cancel(ctx context.Context, id, userID string) (Order, error) {
	if err := s.ready(); err != nil {
		return Order{}, err
	}
	oid, ok := db.ParseUUID(id)
	if !ok {
		return Order{}, notFound(id)
	}
	row, err := s.Q.CancelOrder(ctx, oid, userID)
	if errors.Is(err, pgx.ErrNoRows) {
		current, lerr := s.load(ctx, id)
		if lerr != nil {
			return Order{}, lerr
		}
		if current.UserID != userID {
			return Order{}, notFound(id)
		}
		return Order{}, invalidTransition(fmt.Sprintf("order is already %s", current.Status))
	}
	if err != nil {
		return Order{}, fmt.Errorf("cancel order: %w", err)
	}
	out, err := s.one(ctx, row)
	if err != nil {
		return Order{}, err
	}
	obs.Inc(obs.OrderStatusChangesTotal, "status", string(StatusCancelled))
	s.Logger.Info().Str("order_id", out.ID).Str("user_id", userID).Msg("order cancelled by customer")
	s.emit(ctx, events.TopicOrderCancelled, out)
	return out, nil
}

// UpdateStatus applies an admin status and/or payment change. Cancelled orders
// are final and delivered orders only accept payment updates.
func (s *Service) UpdateStatus(ctx context.Context, id string, change StatusUpdate) (Order, error) {
	if err := s.ready(); err != nil {
		return Order{}, err
	}
	if change.Status == nil && change.PaymentStatus == nil {
		return Order{}, common.ValidationError("status or paymentStatus is required", nil)
	}
	if change.Status != nil && !change.Status.Valid() {
		return Order{}, common.ValidationError("unknown status", map[string]any{"field": "status"})
	}
	if change.PaymentStatus != nil && !change.PaymentStatus.Valid() {
		return Order{}, common.ValidationError("unknown payment status", map[string]any{"field": "paymentStatus"})
	}
	current, err := s.load(ctx, id)
	if err != nil {
		return Order{}, err
	}
	from := Status(current.Status)
	to := from
	if change.Status != nil {
		to = *change.Status
	}
	pay := PaymentStatus(current.PaymentStatus)
	if change.PaymentStatus != nil {
		pay = *change.PaymentStatus
	}
	if err := checkTransition(from, to); err != nil {
		return Order{}, err
	}
	if to == from && pay == PaymentStatus(current.PaymentStatus) {
		return s.one(ctx, current)
	}
	row, err := s.Q.UpdateOrderStatus(ctx, db.UpdateOrderStatusParams{
		ID:             current.ID,
		Status:         string(to),
		PaymentStatus:  string(pay),
		ExpectedStatus: string(from),
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, invalidTransition("order changed while updating, reload and retry")
	}
	if err != nil {
		return Order{}, fmt.Errorf("update order status: %w", err)
	}
	out, err := s.one(ctx, row)
	if err != nil {
		return Order{}, err
	}
	if to != from {
		obs.Inc(obs.OrderStatusChangesTotal, "status", string(to))
	}
	if pay != PaymentStatus(current.PaymentStatus) {
		obs.Inc(obs.OrderStatusChangesTotal, "payment_status", string(pay))
	}
	s.Logger.Info().
		Str("order_id", out.ID).
		Str("from", string(from)).
		Str("to", string(to)).
		Str("payment_status", string(pay)).
		Msg("order status updated")
	topic := events.TopicOrderStatusChanged
	if to == StatusCancelled && from != StatusCancelled {
		topic = events.TopicOrderCancelled
	}
	s.emit(ctx, topic, out)
	return out, nil
}

func checkTransition(from, to Status) error {
	switch {
	case from == StatusCancelled:
		return invalidTransition("cancelled orders cannot be changed")
	case from == StatusDelivered && to != StatusDelivered:
		return invalidTransition("delivered orders only accept payment updates")
	}
	return nil
}

func (s *Service) load(ctx context.Context, id string) (db.Order, error) {
	oid, ok := db.ParseUUID(id)
	if !ok {
		return db.Order{}, notFound(id)
	}
	row, err := s.Q.GetOrder(ctx, oid)
	if errors.Is(err, pgx.ErrNoRows) {
		return db.Order{}, notFound(id)
	}
	if err != nil {
		return db.Order{}, fmt.Errorf("get order: %w", err)
	}
	return row, nil
}

func (s *Service) one(ctx context.Context, row db.Order) (Order, error) {
	orders, err := s.withItems(ctx, []db.Order{row})
	if err != nil {
		return Order{}, err
	}
	return orders[0], nil
}

func (s *Service) withItems(ctx context.Context, rows []db.Order) ([]Order, error) {
	out := make([]Order, 0, len(rows))
	if len(rows) == 0 {
		return out, nil
	}
	ids := make([]pgtype.UUID, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.ID)
	}
	itemRows, err := s.Q.ListOrderItemsByOrders(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("list order items: %w", err)
	}
	byOrder := make(map[[16]byte][]db.OrderItem, len(rows))
	for _, it := range itemRows {
		byOrder[it.OrderID.Bytes] = append(byOrder[it.OrderID.Bytes], it)
	}
	for _, r := range rows {
		out = append(out, fromRow(r, byOrder[r.ID.Bytes]))
	}
	return out, nil
}

func notFound(id string) *common.AppError {
	return common.NotFoundError("order not found", fmt.Errorf("%w: %s", ErrNotFound, strings.TrimSpace(id)))
}

func invalidTransition(message string) *common.AppError {
	return &common.AppError{Code: "INVALID_STATE", Message: message, HTTPStatus: http.StatusConflict, Err: ErrInvalidTransition}
}
