package db

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const nextOrderSequence = `-- name: NextOrderSequence :one
INSERT INTO order_sequences (year, value) VALUES ($1, 1)
ON CONFLICT (year) DO UPDATE SET value = order_sequences.value + 1
RETURNING value`

// NextOrderSequence atomically increments and returns the counter for year.
// The row stays locked until the surrounding transaction ends.
func (q *Queries) NextOrderSequence(ctx context.Context, year int32) (int64, error) {
	var value int64
	err := q.db.QueryRow(ctx, nextOrderSequence, year).Scan(&value)
	return value, err
}

const orderColumns = `id, number, user_id, email, shipping_address, payment_method, subtotal, shipping, tax, total, client_total, status, payment_status, notes, created_at, updated_at`

func scanOrder(row pgx.Row) (Order, error) {
	var o Order
	err := row.Scan(
		&o.ID,
		&o.Number,
		&o.UserID,
		&o.Email,
		&o.ShippingAddress,
		&o.PaymentMethod,
		&o.Subtotal,
		&o.Shipping,
		&o.Tax,
		&o.Total,
		&o.ClientTotal,
		&o.Status,
		&o.PaymentStatus,
		&o.Notes,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
	return o, err
}

func collectOrders(rows pgx.Rows, err error) ([]Order, error) {
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	orders := []Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

type CreateOrderParams struct {
	ID              pgtype.UUID
	Number          string
	UserID          string
	Email           string
	ShippingAddress []byte
	PaymentMethod   string
	Subtotal        int64
	Shipping        int64
	Tax             int64
	Total           int64
	ClientTotal     pgtype.Int8
	Status          string
	PaymentStatus   string
	Notes           string
}

const createOrder = `-- name: CreateOrder :one
INSERT INTO orders (id, number, user_id, email, shipping_address, payment_method, subtotal, shipping, tax, total, client_total, status, payment_status, notes)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
RETURNING ` + orderColumns

func (q *Queries) CreateOrder(ctx context.Context, arg CreateOrderParams) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, createOrder,
		arg.ID, arg.Number, arg.UserID, arg.Email, arg.ShippingAddress, arg.PaymentMethod,
		arg.Subtotal, arg.Shipping, arg.Tax, arg.Total, arg.ClientTotal,
		arg.Status, arg.PaymentStatus, arg.Notes,
	))
}

type InsertOrderItemParams struct {
	ID           pgtype.UUID
	OrderID      pgtype.UUID
	Position     int32
	ItemID       pgtype.UUID
	Kind         string
	Name         string
	Image        pgtype.Text
	TierQuantity pgtype.Int4
	TierUnit     pgtype.Text
	UnitPrice    int64
	Quantity     int32
	LineTotal    int64
}

const insertOrderItem = `-- name: InsertOrderItem :exec
INSERT INTO order_items (id, order_id, position, item_id, kind, name, image, tier_quantity, tier_unit, unit_price, quantity, line_total)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

func (q *Queries) InsertOrderItem(ctx context.Context, arg InsertOrderItemParams) error {
	_, err := q.db.Exec(ctx, insertOrderItem,
		arg.ID, arg.OrderID, arg.Position, arg.ItemID, arg.Kind, arg.Name, arg.Image,
		arg.TierQuantity, arg.TierUnit, arg.UnitPrice, arg.Quantity, arg.LineTotal,
	)
	return err
}

const listOrderItemsByOrders = `-- name: ListOrderItemsByOrders :many
SELECT id, order_id, position, item_id, kind, name, image, tier_quantity, tier_unit, unit_price, quantity, line_total
FROM order_items
WHERE order_id = ANY($1::uuid[])
ORDER BY order_id, position`

func (q *Queries) ListOrderItemsByOrders(ctx context.Context, orderIDs []pgtype.UUID) ([]OrderItem, error) {
	rows, err := q.db.Query(ctx, listOrderItemsByOrders, orderIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []OrderItem{}
	for rows.Next() {
		var i OrderItem
		if err := rows.Scan(
			&i.ID,
			&i.OrderID,
			&i.Position,
			&i.ItemID,
			&i.Kind,
			&i.Name,
			&i.Image,
			&i.TierQuantity,
			&i.TierUnit,
			&i.UnitPrice,
			&i.Quantity,
			&i.LineTotal,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const getOrder = `-- name: GetOrder :one
SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

func (q *Queries) GetOrder(ctx context.Context, id pgtype.UUID) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, getOrder, id))
}

// OrderFilter narrows order listings. NULL fields do not filter.
type OrderFilter struct {
	UserID        pgtype.Text
	Status        pgtype.Text
	PaymentStatus pgtype.Text
	PaymentMethod pgtype.Text
	Q             pgtype.Text
	Limit         int32
	Offset        int32
}

const orderFilterWhere = `
WHERE ($1::text IS NULL OR user_id = $1)
  AND ($2::text IS NULL OR status = $2)
  AND ($3::text IS NULL OR payment_status = $3)
  AND ($4::text IS NULL OR payment_method = $4)
  AND ($5::text IS NULL OR number ILIKE '%' || $5 || '%' OR email ILIKE '%' || $5 || '%')`

const countOrders = `-- name: CountOrders :one
SELECT count(*) FROM orders` + orderFilterWhere

func (q *Queries) CountOrders(ctx context.Context, arg OrderFilter) (int64, error) {
	var count int64
	err := q.db.QueryRow(ctx, countOrders, arg.UserID, arg.Status, arg.PaymentStatus, arg.PaymentMethod, arg.Q).Scan(&count)
	return count, err
}

const listOrders = `-- name: ListOrders :many
SELECT ` + orderColumns + ` FROM orders` + orderFilterWhere + `
ORDER BY created_at DESC, id
LIMIT $6 OFFSET $7`

func (q *Queries) ListOrders(ctx context.Context, arg OrderFilter) ([]Order, error) {
	return collectOrders(q.db.Query(ctx, listOrders,
		arg.UserID, arg.Status, arg.PaymentStatus, arg.PaymentMethod, arg.Q, arg.Limit, arg.Offset,
	))
}

type UpdateOrderStatusParams struct {
	ID             pgtype.UUID
	Status         string
	PaymentStatus  string
	ExpectedStatus string
}

const updateOrderStatus = `-- name: UpdateOrderStatus :one
UPDATE orders SET status = $2, payment_status = $3, updated_at = now()
WHERE id = $1 AND status = $4
RETURNING ` + orderColumns

// UpdateOrderStatus applies the change only while the order is still in
// ExpectedStatus, returning pgx.ErrNoRows otherwise.
func (q *Queries) UpdateOrderStatus(ctx context.Context, arg UpdateOrderStatusParams) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, updateOrderStatus, arg.ID, arg.Status, arg.PaymentStatus, arg.ExpectedStatus))
}

const cancelOrder = `-- name: CancelOrder :one
UPDATE orders SET status = 'cancelled', updated_at = now()
WHERE id = $1 AND user_id = $2 AND status NOT IN ('delivered', 'cancelled')
RETURNING ` + orderColumns

func (q *Queries) CancelOrder(ctx context.Context, id pgtype.UUID, userID string) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, cancelOrder, id, userID))
}
