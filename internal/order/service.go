package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-mithai/internal/cart"
	"github.com/noah-isme/backend-mithai/internal/catalog"
	"github.com/noah-isme/backend-mithai/internal/common"
	"github.com/noah-isme/backend-mithai/internal/db"
	"github.com/noah-isme/backend-mithai/internal/events"
	"github.com/noah-isme/backend-mithai/internal/lock"
	"github.com/noah-isme/backend-mithai/internal/obs"
	"github.com/noah-isme/backend-mithai/internal/pricing"
)

var (
	// ErrEmptyCart is returned when checking out without cart lines.
	ErrEmptyCart = errors.New("cart is empty")
	// ErrTotalMismatch is returned when the client total disagrees with the
	// computed total and client totals are not trusted.
	ErrTotalMismatch = errors.New("order total mismatch")
	// ErrNotFound is returned for unknown orders and orders the caller may not see.
	ErrNotFound = errors.New("order not found")
	// ErrInvalidTransition is returned for lifecycle changes the order's state forbids.
	ErrInvalidTransition = errors.New("order state transition not allowed")
)

// Resolver resolves every cart product in one call, failing on any unknown id.
type Resolver interface {
	ResolveMany(ctx context.Context, ids []string) (map[string]catalog.Item, error)
}

// CartStore is the cart surface checkout reads from and drains.
type CartStore interface {
	Lines(ctx context.Context, userID string) ([]cart.Line, *time.Time, error)
	RemoveOrdered(ctx context.Context, userID string, lines []cart.Line) error
}

// Emitter publishes domain events.
type Emitter interface {
	Emit(ctx context.Context, topic string, aggregateID string, payload any) (events.Event, error)
}

// Locker serialises work on a key.
type Locker interface {
	WithLock(ctx context.Context, key string, ttl time.Duration, fn func(context.Context) error) error
}

// Service places orders and drives their lifecycle.
type Service struct {
	Q       Queries
	Tx      TxRunner
	Catalog Resolver
	Cart    CartStore
	Pricing pricing.Policy
	Events  Emitter
	Locker  Locker
	LockTTL time.Duration
	// TrustClientTotal accepts checkouts whose submitted total differs from
	// the computed one by more than Tolerance. The computed total is stored
	// either way.
	TrustClientTotal bool
	Tolerance        pricing.Money
	Now              func() time.Time
	Logger           zerolog.Logger
}

// Customer is the authenticated caller placing an order.
type Customer struct {
	UserID string
	Email  string
}

// CheckoutInput is the checkout request body.
type CheckoutInput struct {
	ShippingAddress Address        `json:"shippingAddress" validate:"required"`
	PaymentMethod   PaymentMethod  `json:"paymentMethod" validate:"required,oneof=cod upi"`
	Email           string         `json:"email" validate:"omitempty,email,max=254"`
	Total           *pricing.Money `json:"total" validate:"omitempty,gte=0"`
	Notes           string         `json:"notes" validate:"max=500"`
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// Checkout turns the customer's cart into a confirmed order. The cart is read
// server side, every product is re-resolved and re-priced, and the order
// number is drawn from the per-year sequence inside the order transaction.
func (s *Service) Checkout(ctx context.Context, customer Customer, in CheckoutInput) (Order, error) {
	if s == nil || s.Tx == nil || s.Catalog == nil || s.Cart == nil {
		return Order{}, errors.New("order service not configured")
	}
	if strings.TrimSpace(customer.UserID) == "" {
		return Order{}, common.NewAppError("UNAUTHORIZED", "authentication required", http.StatusUnauthorized, nil)
	}
	if err := common.ValidateStruct(in); err != nil {
		return Order{}, err
	}
	email := strings.TrimSpace(customer.Email)
	if email == "" {
		email = strings.TrimSpace(in.Email)
	}
	if email == "" {
		return Order{}, common.ValidationError("email is required", map[string]any{"field": "email"})
	}
	if s.Locker == nil {
		return s.place(ctx, customer.UserID, email, in)
	}
	var out Order
	err := s.Locker.WithLock(ctx, "checkout:"+customer.UserID, s.LockTTL, func(ctx context.Context) error {
		var err error
		out, err = s.place(ctx, customer.UserID, email, in)
		return err
	})
	if errors.Is(err, lock.ErrNotAcquired) {
		return Order{}, common.NewAppError("IDEMPOTENT_REPLAY", "a checkout is already in progress", http.StatusConflict, err)
	}
	return out, err
}

func (s *Service) place(ctx context.Context, userID, email string, in CheckoutInput) (Order, error) {
	lines, _, err := s.Cart.Lines(ctx, userID)
	if err != nil {
		return Order{}, fmt.Errorf("load cart: %w", err)
	}
	if len(lines) == 0 {
		return Order{}, &common.AppError{Code: "VALIDATION_ERROR", Message: "cart is empty", HTTPStatus: http.StatusBadRequest, Err: ErrEmptyCart}
	}
	ids := make([]string, 0, len(lines))
	for _, l := range lines {
		ids = append(ids, l.ProductID)
	}
	resolved, err := s.Catalog.ResolveMany(ctx, ids)
	if err != nil {
		return Order{}, err
	}

	items := make([]Item, 0, len(lines))
	priced := make([]pricing.Item, 0, len(lines))
	for _, l := range lines {
		product := resolved[catalog.CanonicalID(l.ProductID)]
		unit, tier, err := product.PriceFor(l.Tier)
		if err != nil {
			return Order{}, &common.AppError{
				Code:       "VALIDATION_ERROR",
				Message:    fmt.Sprintf("%s can no longer be priced as selected", product.Name),
				HTTPStatus: http.StatusBadRequest,
				Err:        err,
				Details:    map[string]any{"productId": product.ID},
			}
		}
		item := Item{
			ItemID:    product.ID,
			Kind:      string(product.Kind),
			Name:      product.Name,
			Image:     product.Thumbnail(),
			UnitPrice: unit,
			Quantity:  l.Quantity,
			LineTotal: unit * pricing.Money(l.Quantity),
		}
		if tier != nil {
			ref := tier.Ref()
			item.Tier = &ref
			item.TierLabel = ref.Label()
		}
		items = append(items, item)
		priced = append(priced, pricing.Item{Qty: l.Quantity, UnitPrice: unit})
	}
	summary := s.Pricing.ComputeItems(priced)
	if err := s.checkClientTotal(userID, in.Total, summary.Total); err != nil {
		return Order{}, err
	}

	address, err := json.Marshal(in.ShippingAddress)
	if err != nil {
		return Order{}, fmt.Errorf("encode address: %w", err)
	}
	now := s.now()
	orderID := uuid.New()
	status := StatusConfirmed
	var row db.Order
	err = s.Tx.InTx(ctx, func(q TxQueries) error {
		seq, err := q.NextOrderSequence(ctx, int32(now.Year()))
		if err != nil {
			return fmt.Errorf("next order sequence: %w", err)
		}
		row, err = q.CreateOrder(ctx, db.CreateOrderParams{
			ID:              db.UUID(orderID),
			Number:          FormatNumber(now.Year(), seq),
			UserID:          userID,
			Email:           email,
			ShippingAddress: address,
			PaymentMethod:   string(in.PaymentMethod),
			Subtotal:        summary.Subtotal,
			Shipping:        summary.Shipping,
			Tax:             summary.Tax,
			Total:           summary.Total,
			ClientTotal:     db.Int8Ptr(in.Total),
			Status:          string(status),
			PaymentStatus:   string(PaymentPending),
			Notes:           strings.TrimSpace(in.Notes),
		})
		if err != nil {
			return fmt.Errorf("create order: %w", err)
		}
		for i, it := range items {
			itemID, _ := db.ParseUUID(it.ItemID)
			params := db.InsertOrderItemParams{
				ID:        db.UUID(uuid.New()),
				OrderID:   row.ID,
				Position:  int32(i),
				ItemID:    itemID,
				Kind:      it.Kind,
				Name:      it.Name,
				Image:     db.Text(it.Image),
				UnitPrice: it.UnitPrice,
				Quantity:  int32(it.Quantity),
				LineTotal: it.LineTotal,
			}
			if it.Tier != nil {
				params.TierQuantity = pgtype.Int4{Int32: int32(it.Tier.Quantity), Valid: true}
				params.TierUnit = db.Text(string(it.Tier.Unit))
			}
			if err := q.InsertOrderItem(ctx, params); err != nil {
				return fmt.Errorf("insert order item: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Order{}, common.ConflictError("order number already taken, please retry", err)
		}
		return Order{}, err
	}

	out := fromRow(row, nil)
	out.Items = items
	obs.Inc(obs.OrdersCreatedTotal, string(out.PaymentMethod))
	obs.RecordOrderValue(ctx, out.Total, string(out.PaymentMethod))
	s.Logger.Info().
		Str("order_id", out.ID).
		Str("order_number", out.Number).
		Str("user_id", userID).
		Int64("total", out.Total).
		Msg("order placed")
	s.emit(ctx, events.TopicOrderCreated, out)

	if err := s.Cart.RemoveOrdered(ctx, userID, lines); err != nil {
		s.Logger.Warn().Err(err).Str("order_id", out.ID).Msg("clear cart after order")
	}
	return out, nil
}

func (s *Service) checkClientTotal(userID string, client *pricing.Money, total pricing.Money) error {
	if client == nil {
		return nil
	}
	diff := *client - total
	if diff < 0 {
		diff = -diff
	}
	if diff <= s.Tolerance {
		return nil
	}
	action := "accepted"
	if !s.TrustClientTotal {
		action = "rejected"
	}
	obs.Inc(obs.OrderTotalMismatchTotal, action)
	s.Logger.Warn().
		Str("user_id", userID).
		Int64("client_total", *client).
		Int64("server_total", total).
		Str("action", action).
		Msg("checkout total mismatch")
	if s.TrustClientTotal {
		return nil
	}
	return &common.AppError{
		Code:       "INVALID_STATE",
		Message:    "order total has changed, please review your cart",
		HTTPStatus: http.StatusConflict,
		Err:        ErrTotalMismatch,
		Details:    map[string]any{"total": total},
	}
}

func (s *Service) emit(ctx context.Context, topic string, o Order) {
	if s.Events == nil {
		return
	}
	payload := map[string]any{
		"orderId":       o.ID,
		"orderNumber":   o.Number,
		"userId":        o.UserID,
		"email":         o.Email,
		"total":         o.Total,
		"paymentMethod": o.PaymentMethod,
		"status":        o.Status,
		"paymentStatus": o.PaymentStatus,
		"itemCount":     len(o.Items),
	}
	if _, err := s.Events.Emit(ctx, topic, o.ID, payload); err != nil {
		s.Logger.Warn().Err(err).Str("topic", topic).Str("order_id", o.ID).Msg("emit order event")
	}
}
