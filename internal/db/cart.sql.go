package db

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const getCart = `-- name: GetCart :one
SELECT user_id, expires_at, updated_at FROM carts WHERE user_id = $1`

func (q *Queries) GetCart(ctx context.Context, userID string) (Cart, error) {
	var c Cart
	err := q.db.QueryRow(ctx, getCart, userID).Scan(&c.UserID, &c.ExpiresAt, &c.UpdatedAt)
	return c, err
}

func scanCartItem(row pgx.Row) (CartItem, error) {
	var i CartItem
	err := row.Scan(&i.UserID, &i.ProductID, &i.Quantity, &i.TierQuantity, &i.TierUnit, &i.CreatedAt)
	return i, err
}

const listCartItems = `-- name: ListCartItems :many
SELECT user_id, product_id, quantity, tier_quantity, tier_unit, created_at
FROM cart_items
WHERE user_id = $1
ORDER BY position`

func (q *Queries) ListCartItems(ctx context.Context, userID string) ([]CartItem, error) {
	rows, err := q.db.Query(ctx, listCartItems, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []CartItem{}
	for rows.Next() {
		i, err := scanCartItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

type UpsertCartItemParams struct {
	UserID       string
	ProductID    pgtype.UUID
	Quantity     int32
	TierQuantity pgtype.Int4
	TierUnit     pgtype.Text
	ExpiresAt    pgtype.Timestamptz
	MaxQuantity  int32
}

// Adding an existing product merges quantities in the same statement so
// concurrent adds cannot lose an update. A merge that would pass $7 updates
// no row and the statement returns no rows.
const upsertCartItem = `-- name: UpsertCartItem :one
WITH cart AS (
    INSERT INTO carts (user_id, expires_at, updated_at)
    VALUES ($1, $6, now())
    ON CONFLICT (user_id) DO UPDATE SET expires_at = EXCLUDED.expires_at, updated_at = now()
    RETURNING user_id
)
INSERT INTO cart_items (user_id, product_id, quantity, tier_quantity, tier_unit)
SELECT user_id, $2, $3, $4, $5 FROM cart
ON CONFLICT (user_id, product_id) DO UPDATE SET
    quantity = cart_items.quantity + EXCLUDED.quantity,
    tier_quantity = COALESCE(EXCLUDED.tier_quantity, cart_items.tier_quantity),
    tier_unit = COALESCE(EXCLUDED.tier_unit, cart_items.tier_unit),
    updated_at = now()
WHERE cart_items.quantity + EXCLUDED.quantity <= $7
RETURNING user_id, product_id, quantity, tier_quantity, tier_unit, created_at`

func (q *Queries) UpsertCartItem(ctx context.Context, arg UpsertCartItemParams) (CartItem, error) {
	return scanCartItem(q.db.QueryRow(ctx, upsertCartItem,
		arg.UserID, arg.ProductID, arg.Quantity, arg.TierQuantity, arg.TierUnit, arg.ExpiresAt, arg.MaxQuantity,
	))
}

type UpdateCartItemQuantityParams struct {
	UserID    string
	ProductID pgtype.UUID
	Quantity  int32
}

const updateCartItemQuantity = `-- name: UpdateCartItemQuantity :one
UPDATE cart_items SET quantity = $3, updated_at = now()
WHERE user_id = $1 AND product_id = $2
RETURNING user_id, product_id, quantity, tier_quantity, tier_unit, created_at`

func (q *Queries) UpdateCartItemQuantity(ctx context.Context, arg UpdateCartItemQuantityParams) (CartItem, error) {
	return scanCartItem(q.db.QueryRow(ctx, updateCartItemQuantity, arg.UserID, arg.ProductID, arg.Quantity))
}

const deleteCartItem = `-- name: DeleteCartItem :execrows
DELETE FROM cart_items WHERE user_id = $1 AND product_id = $2`

func (q *Queries) DeleteCartItem(ctx context.Context, userID string, productID pgtype.UUID) (int64, error) {
	tag, err := q.db.Exec(ctx, deleteCartItem, userID, productID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

const touchCart = `-- name: TouchCart :exec
UPDATE carts SET expires_at = $2, updated_at = now() WHERE user_id = $1`

func (q *Queries) TouchCart(ctx context.Context, userID string, expiresAt pgtype.Timestamptz) error {
	_, err := q.db.Exec(ctx, touchCart, userID, expiresAt)
	return err
}

const purgeExpiredCart = `-- name: PurgeExpiredCart :execrows
WITH expired AS (
    DELETE FROM carts WHERE user_id = $1 AND expires_at <= $2 RETURNING user_id
)
DELETE FROM cart_items WHERE user_id IN (SELECT user_id FROM expired)`

// PurgeExpiredCart drops the user's cart when it expired at or before now.
func (q *Queries) PurgeExpiredCart(ctx context.Context, userID string, now pgtype.Timestamptz) (int64, error) {
	tag, err := q.db.Exec(ctx, purgeExpiredCart, userID, now)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

const clearCart = `-- name: ClearCart :exec
WITH dropped AS (
    DELETE FROM carts WHERE user_id = $1
)
DELETE FROM cart_items WHERE user_id = $1`

func (q *Queries) ClearCart(ctx context.Context, userID string) error {
	_, err := q.db.Exec(ctx, clearCart, userID)
	return err
}

type RemoveOrderedCartItemsParams struct {
	UserID     string
	ProductIDs []pgtype.UUID
	Quantities []int32
}

// Lines holding no more than the ordered quantity are deleted and the rest are
// decremented, so anything added after checkout read the cart stays.
const removeOrderedCartItems = `-- name: RemoveOrderedCartItems :exec
WITH ordered AS (
    SELECT o.product_id, o.quantity
    FROM unnest($2::uuid[], $3::int4[]) AS o(product_id, quantity)
), dropped AS (
    DELETE FROM cart_items ci USING ordered o
    WHERE ci.user_id = $1 AND ci.product_id = o.product_id AND ci.quantity <= o.quantity
)
UPDATE cart_items ci SET quantity = ci.quantity - o.quantity, updated_at = now()
FROM ordered o
WHERE ci.user_id = $1 AND ci.product_id = o.product_id AND ci.quantity > o.quantity`

func (q *Queries) RemoveOrderedCartItems(ctx context.Context, arg RemoveOrderedCartItemsParams) error {
	_, err := q.db.Exec(ctx, removeOrderedCartItems, arg.UserID, arg.ProductIDs, arg.Quantities)
	return err
}

const deleteExpiredCarts = `-- name: DeleteExpiredCarts :one
WITH expired AS (
    DELETE FROM carts WHERE expires_at <= $1 RETURNING user_id
), items AS (
    DELETE FROM cart_items WHERE user_id IN (SELECT user_id FROM expired)
)
SELECT count(*) FROM expired`

// DeleteExpiredCarts removes every cart that expired at or before now and
// returns how many carts were dropped.
func (q *Queries) DeleteExpiredCarts(ctx context.Context, now pgtype.Timestamptz) (int64, error) {
	var count int64
	err := q.db.QueryRow(ctx, deleteExpiredCarts, now).Scan(&count)
	return count, err
}
