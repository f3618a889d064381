package cart

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/noah-isme/backend-mithai/internal/db"
	"github.com/noah-isme/backend-mithai/internal/pricing"
)

// Queries is the persistence surface the cart needs. *db.Queries satisfies it.
type Queries interface {
	GetCart(ctx context.Context, userID string) (db.Cart, error)
	ListCartItems(ctx context.Context, userID string) ([]db.CartItem, error)
	UpsertCartItem(ctx context.Context, arg db.UpsertCartItemParams) (db.CartItem, error)
	UpdateCartItemQuantity(ctx context.Context, arg db.UpdateCartItemQuantityParams) (db.CartItem, error)
	DeleteCartItem(ctx context.Context, userID string, productID pgtype.UUID) (int64, error)
	TouchCart(ctx context.Context, userID string, expiresAt pgtype.Timestamptz) error
	PurgeExpiredCart(ctx context.Context, userID string, now pgtype.Timestamptz) (int64, error)
	ClearCart(ctx context.Context, userID string) error
	RemoveOrderedCartItems(ctx context.Context, arg db.RemoveOrderedCartItemsParams) error
	DeleteExpiredCarts(ctx context.Context, now pgtype.Timestamptz) (int64, error)
}

// Line is one product entry in a cart.
type Line struct {
	ProductID string           `json:"productId"`
	Quantity  int              `json:"quantity"`
	Tier      *pricing.TierRef `json:"tier,omitempty"`
	AddedAt   time.Time        `json:"addedAt"`
}

func lineFromRow(row db.CartItem) Line {
	line := Line{
		ProductID: db.UUIDString(row.ProductID),
		Quantity:  int(row.Quantity),
		AddedAt:   row.CreatedAt.Time,
	}
	if row.TierQuantity.Valid && row.TierUnit.Valid {
		line.Tier = &pricing.TierRef{Quantity: int(row.TierQuantity.Int32), Unit: pricing.Unit(row.TierUnit.String)}
	}
	return line
}

func mustUUID(id string) pgtype.UUID {
	parsed, _ := db.ParseUUID(id)
	return parsed
}
