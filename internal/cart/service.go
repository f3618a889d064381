package cart

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-mithai/internal/catalog"
	"github.com/noah-isme/backend-mithai/internal/common"
	"github.com/noah-isme/backend-mithai/internal/db"
	"github.com/noah-isme/backend-mithai/internal/obs"
	"github.com/noah-isme/backend-mithai/internal/pricing"
)

// ErrNotInCart is returned when updating a product the cart does not hold.
var ErrNotInCart = errors.New("product not in cart")

// ErrInvalidInput is returned when the provided payload is invalid.
var ErrInvalidInput = errors.New("invalid input")

// DefaultTTL is how long a cart lives after its last mutation.
const DefaultTTL = 20 * time.Minute

// MaxQuantity bounds a single cart line.
const MaxQuantity = 999

// Resolver looks up sellable items.
type Resolver interface {
	Resolve(ctx context.Context, id string) (catalog.Item, error)
	Available(ctx context.Context, ids []string) (map[string]catalog.Item, error)
}

// Service encapsulates cart domain operations. Every mutation is a single SQL
// statement so concurrent requests against one cart do not lose updates.
type Service struct {
	Q       Queries
	Catalog Resolver
	Pricing pricing.Policy
	TTL     time.Duration
	Now     func() time.Time
	Logger  zerolog.Logger
}

func (s *Service) ttl() time.Duration {
	if s == nil || s.TTL <= 0 {
		return DefaultTTL
	}
	return s.TTL
}

func (s *Service) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Service) configured() error {
	if s == nil || s.Q == nil {
		return errors.New("cart service not configured")
	}
	return nil
}

// Lines returns the user's cart lines in insertion order. Expired carts are
// dropped first and read as empty.
func (s *Service) Lines(ctx context.Context, userID string) ([]Line, *time.Time, error) {
	if err := s.configured(); err != nil {
		return nil, nil, err
	}
	if _, err := s.Q.PurgeExpiredCart(ctx, userID, db.Timestamptz(s.now())); err != nil {
		return nil, nil, fmt.Errorf("purge expired cart: %w", err)
	}
	rows, err := s.Q.ListCartItems(ctx, userID)
	if err != nil {
		return nil, nil, fmt.Errorf("list cart items: %w", err)
	}
	lines := make([]Line, 0, len(rows))
	for _, row := range rows {
		lines = append(lines, lineFromRow(row))
	}
	var expires *time.Time
	if len(lines) > 0 {
		cart, err := s.Q.GetCart(ctx, userID)
		if err == nil {
			t := cart.ExpiresAt.Time
			expires = &t
		} else if !errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, fmt.Errorf("get cart: %w", err)
		}
	}
	return lines, expires, nil
}

// Add appends a product or merges its quantity into the existing line. A
// supplied tier replaces the line's tier.
func (s *Service) Add(ctx context.Context, userID, productID string, qty int, tier *pricing.TierRef) (err error) {
	defer func() { s.record("add", err) }()
	if err := s.configured(); err != nil {
		return err
	}
	if qty < 1 {
		return invalid("quantity", "quantity must be at least 1")
	}
	if qty > MaxQuantity {
		return invalid("quantity", tooMany)
	}
	if tier != nil {
		unit, perr := pricing.ParseUnit(string(tier.Unit))
		if perr != nil || tier.Quantity <= 0 {
			return invalid("tier", "tier must have a positive quantity and a known unit")
		}
		tier = &pricing.TierRef{Quantity: tier.Quantity, Unit: unit}
	}
	if s.Catalog == nil {
		return errors.New("cart: catalog resolver not configured")
	}
	item, err := s.Catalog.Resolve(ctx, productID)
	if err != nil {
		return err
	}
	if _, _, err := item.PriceFor(tier); err != nil {
		return priceError(err)
	}
	now := s.now()
	if _, err := s.Q.PurgeExpiredCart(ctx, userID, db.Timestamptz(now)); err != nil {
		return fmt.Errorf("purge expired cart: %w", err)
	}
	params := db.UpsertCartItemParams{
		UserID:      userID,
		ProductID:   mustUUID(item.ID),
		Quantity:    int32(qty),
		ExpiresAt:   db.Timestamptz(now.Add(s.ttl())),
		MaxQuantity: MaxQuantity,
	}
	if tier != nil {
		params.TierQuantity = db.Int4Ptr(&tier.Quantity)
		params.TierUnit = db.Text(string(tier.Unit))
	}
	if _, err := s.Q.UpsertCartItem(ctx, params); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return invalid("quantity", tooMany)
		}
		return fmt.Errorf("upsert cart item: %w", err)
	}
	return nil
}

// Update sets a line's quantity. Zero removes the line.
func (s *Service) Update(ctx context.Context, userID, productID string, qty int) (err error) {
	defer func() { s.record("update", err) }()
	if err := s.configured(); err != nil {
		return err
	}
	if qty < 0 {
		return invalid("quantity", "quantity cannot be negative")
	}
	if qty > MaxQuantity {
		return invalid("quantity", tooMany)
	}
	if qty == 0 {
		return s.remove(ctx, userID, productID)
	}
	id, ok := db.ParseUUID(productID)
	if !ok {
		return common.NotFoundError("product not in cart", ErrNotInCart)
	}
	now := s.now()
	if _, err := s.Q.PurgeExpiredCart(ctx, userID, db.Timestamptz(now)); err != nil {
		return fmt.Errorf("purge expired cart: %w", err)
	}
	_, err = s.Q.UpdateCartItemQuantity(ctx, db.UpdateCartItemQuantityParams{UserID: userID, ProductID: id, Quantity: int32(qty)})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return common.NotFoundError("product not in cart", ErrNotInCart)
		}
		return fmt.Errorf("update cart item: %w", err)
	}
	return s.touch(ctx, userID, now)
}

// Remove deletes a line. Removing a product that is not in the cart is a no-op.
func (s *Service) Remove(ctx context.Context, userID, productID string) (err error) {
	defer func() { s.record("remove", err) }()
	if err := s.configured(); err != nil {
		return err
	}
	return s.remove(ctx, userID, productID)
}

func (s *Service) remove(ctx context.Context, userID, productID string) error {
	id, ok := db.ParseUUID(productID)
	if !ok {
		return nil
	}
	n, err := s.Q.DeleteCartItem(ctx, userID, id)
	if err != nil {
		return fmt.Errorf("delete cart item: %w", err)
	}
	if n == 0 {
		return nil
	}
	return s.touch(ctx, userID, s.now())
}

// Clear empties the user's cart.
func (s *Service) Clear(ctx context.Context, userID string) (err error) {
	defer func() { s.record("clear", err) }()
	if err := s.configured(); err != nil {
		return err
	}
	if err := s.Q.ClearCart(ctx, userID); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}

// RemoveOrdered takes the given lines' quantities out of the cart. Lines the
// cart gained after they were read are left in place.
func (s *Service) RemoveOrdered(ctx context.Context, userID string, lines []Line) (err error) {
	defer func() { s.record("remove_ordered", err) }()
	if err := s.configured(); err != nil {
		return err
	}
	arg := db.RemoveOrderedCartItemsParams{UserID: userID}
	for _, l := range lines {
		id, ok := db.ParseUUID(l.ProductID)
		if !ok || l.Quantity < 1 {
			continue
		}
		arg.ProductIDs = append(arg.ProductIDs, id)
		arg.Quantities = append(arg.Quantities, int32(min(l.Quantity, MaxQuantity)))
	}
	if len(arg.ProductIDs) == 0 {
		return nil
	}
	if err := s.Q.RemoveOrderedCartItems(ctx, arg); err != nil {
		return fmt.Errorf("remove ordered cart items: %w", err)
	}
	return nil
}

// SweepExpired removes every expired cart and returns how many were dropped.
func (s *Service) SweepExpired(ctx context.Context) (int64, error) {
	if err := s.configured(); err != nil {
		return 0, err
	}
	n, err := s.Q.DeleteExpiredCarts(ctx, db.Timestamptz(s.now()))
	if err != nil {
		return 0, fmt.Errorf("sweep expired carts: %w", err)
	}
	if n > 0 {
		s.Logger.Info().Int64("carts", n).Msg("expired carts swept")
	}
	return n, nil
}

func (s *Service) touch(ctx context.Context, userID string, now time.Time) error {
	if err := s.Q.TouchCart(ctx, userID, db.Timestamptz(now.Add(s.ttl()))); err != nil {
		return fmt.Errorf("touch cart: %w", err)
	}
	return nil
}

func (s *Service) record(op string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
		if common.IsAppError(err) {
			result = "rejected"
		}
	}
	obs.Inc(obs.CartMutationsTotal, op, result)
}

var tooMany = fmt.Sprintf("quantity cannot exceed %d per line", MaxQuantity)

func invalid(field, message string) error {
	return &common.AppError{
		Code:       "VALIDATION_ERROR",
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
		Err:        fmt.Errorf("%s: %w", message, ErrInvalidInput),
		Details:    map[string]any{"field": field},
	}
}

func priceError(err error) error {
	switch {
	case errors.Is(err, pricing.ErrTierNotFound):
		return &common.AppError{Code: "VALIDATION_ERROR", Message: "selected tier is not offered for this product", HTTPStatus: http.StatusBadRequest, Err: err, Details: map[string]any{"field": "tier"}}
	case errors.Is(err, pricing.ErrNoPrice):
		return &common.AppError{Code: "VALIDATION_ERROR", Message: "product has no price", HTTPStatus: http.StatusBadRequest, Err: err}
	default:
		return err
	}
}
