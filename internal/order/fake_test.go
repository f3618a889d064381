package order_test

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/noah-isme/backend-mithai/internal/cart"
	"github.com/noah-isme/backend-mithai/internal/catalog"
	"github.com/noah-isme/backend-mithai/internal/common"
	"github.com/noah-isme/backend-mithai/internal/db"
	"github.com/noah-isme/backend-mithai/internal/events"
	"github.com/noah-isme/backend-mithai/internal/order"
)

// memStore mirrors the order statements, including the per-year sequence upsert
// and the conditional status updates.
type memStore struct {
	mu     sync.Mutex
	seq    map[int32]int64
	orders []db.Order
	items  []db.OrderItem
	clock  time.Time

	failItemInsert bool
	beforeUpdate   func(m *memStore)
}

func newMemStore(clock time.Time) *memStore {
	return &memStore{seq: map[int32]int64{}, clock: clock}
}

func (m *memStore) InTx(_ context.Context, fn func(order.TxQueries) error) error {
	tx := &memTx{store: m}
	if err := fn(tx); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders = append(m.orders, tx.orders...)
	m.items = append(m.items, tx.items...)
	return nil
}

type memTx struct {
	store  *memStore
	orders []db.Order
	items  []db.OrderItem
}

func (t *memTx) NextOrderSequence(_ context.Context, year int32) (int64, error) {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	t.store.seq[year]++
	return t.store.seq[year], nil
}

func (t *memTx) CreateOrder(_ context.Context, arg db.CreateOrderParams) (db.Order, error) {
	row := db.Order{
		ID:              arg.ID,
		Number:          arg.Number,
		UserID:          arg.UserID,
		Email:           arg.Email,
		ShippingAddress: arg.ShippingAddress,
		PaymentMethod:   arg.PaymentMethod,
		Subtotal:        arg.Subtotal,
		Shipping:        arg.Shipping,
		Tax:             arg.Tax,
		Total:           arg.Total,
		ClientTotal:     arg.ClientTotal,
		Status:          arg.Status,
		PaymentStatus:   arg.PaymentStatus,
		Notes:           arg.Notes,
		CreatedAt:       db.Timestamptz(t.store.clock),
		UpdatedAt:       db.Timestamptz(t.store.clock),
	}
	t.orders = append(t.orders, row)
	return row, nil
}

func (t *memTx) InsertOrderItem(_ context.Context, arg db.InsertOrderItemParams) error {
	if t.store.failItemInsert {
		return errors.New("insert failed")
	}
	t.items = append(t.items, db.OrderItem{
		ID:           arg.ID,
		OrderID:      arg.OrderID,
		Position:     arg.Position,
		ItemID:       arg.ItemID,
		Kind:         arg.Kind,
		Name:         arg.Name,
		Image:        arg.Image,
		TierQuantity: arg.TierQuantity,
		TierUnit:     arg.TierUnit,
		UnitPrice:    arg.UnitPrice,
		Quantity:     arg.Quantity,
		LineTotal:    arg.LineTotal,
	})
	return nil
}

func (m *memStore) GetOrder(_ context.Context, id pgtype.UUID) (db.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.orders {
		if o.ID == id {
			return o, nil
		}
	}
	return db.Order{}, pgx.ErrNoRows
}

func (m *memStore) filter(arg db.OrderFilter) []db.Order {
	var out []db.Order
	for i := len(m.orders) - 1; i >= 0; i-- {
		o := m.orders[i]
		if arg.UserID.Valid && o.UserID != arg.UserID.String {
			continue
		}
		if arg.Status.Valid && o.Status != arg.Status.String {
			continue
		}
		if arg.PaymentStatus.Valid && o.PaymentStatus != arg.PaymentStatus.String {
			continue
		}
		if arg.PaymentMethod.Valid && o.PaymentMethod != arg.PaymentMethod.String {
			continue
		}
		if arg.Q.Valid && !strings.Contains(o.Number, arg.Q.String) && !strings.Contains(o.Email, arg.Q.String) {
			continue
		}
		out = append(out, o)
	}
	return out
}

func (m *memStore) CountOrders(_ context.Context, arg db.OrderFilter) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.filter(arg))), nil
}

func (m *memStore) ListOrders(_ context.Context, arg db.OrderFilter) ([]db.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := m.filter(arg)
	start := int(arg.Offset)
	if start > len(all) {
		start = len(all)
	}
	end := start + int(arg.Limit)
	if end > len(all) {
		end = len(all)
	}
	return append([]db.Order{}, all[start:end]...), nil
}

func (m *memStore) ListOrderItemsByOrders(_ context.Context, ids []pgtype.UUID) ([]db.OrderItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	want := map[pgtype.UUID]bool{}
	for _, id := range ids {
		want[id] = true
	}
	out := []db.OrderItem{}
	for _, it := range m.items {
		if want[it.OrderID] {
			out = append(out, it)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out, nil
}

func (m *memStore) UpdateOrderStatus(_ context.Context, arg db.UpdateOrderStatusParams) (db.Order, error) {
	if m.beforeUpdate != nil {
		m.beforeUpdate(m)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.orders {
		o := &m.orders[i]
		if o.ID == arg.ID && o.Status == arg.ExpectedStatus {
			o.Status = arg.Status
			o.PaymentStatus = arg.PaymentStatus
			return *o, nil
		}
	}
	return db.Order{}, pgx.ErrNoRows
}

func (m *memStore) CancelOrder(_ context.Context, id pgtype.UUID, userID string) (db.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.orders {
		o := &m.orders[i]
		if o.ID == id && o.UserID == userID && o.Status != "delivered" && o.Status != "cancelled" {
			o.Status = "cancelled"
			return *o, nil
		}
	}
	return db.Order{}, pgx.ErrNoRows
}

func (m *memStore) setStatus(id string, status string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	pid, _ := db.ParseUUID(id)
	for i := range m.orders {
		if m.orders[i].ID == pid {
			m.orders[i].Status = status
		}
	}
}

type stubCatalog map[string]catalog.Item

func (s stubCatalog) ResolveMany(_ context.Context, ids []string) (map[string]catalog.Item, error) {
	out := make(map[string]catalog.Item, len(ids))
	for _, id := range ids {
		it, ok := s[catalog.CanonicalID(id)]
		if !ok || !it.IsActive {
			return nil, common.NotFoundError("product not found", catalog.ErrNotFound)
		}
		out[catalog.CanonicalID(id)] = it
	}
	return out, nil
}

type stubCart struct {
	mu       sync.Mutex
	lines    map[string][]cart.Line
	cleared  []string
	clearErr error
	// afterRead runs once Lines has returned, standing in for a concurrent add.
	afterRead func(userID string)
}

func (c *stubCart) Lines(_ context.Context, userID string) ([]cart.Line, *time.Time, error) {
	c.mu.Lock()
	out := append([]cart.Line(nil), c.lines[userID]...)
	hook := c.afterRead
	c.mu.Unlock()
	if hook != nil {
		hook(userID)
	}
	return out, nil, nil
}

func (c *stubCart) RemoveOrdered(_ context.Context, userID string, ordered []cart.Line) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cleared = append(c.cleared, userID)
	if c.clearErr != nil {
		return c.clearErr
	}
	taken := map[string]int{}
	for _, l := range ordered {
		taken[l.ProductID] += l.Quantity
	}
	var kept []cart.Line
	for _, l := range c.lines[userID] {
		l.Quantity -= taken[l.ProductID]
		if l.Quantity > 0 {
			kept = append(kept, l)
		}
	}
	c.lines[userID] = kept
	return nil
}

func (c *stubCart) add(userID string, line cart.Line) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, l := range c.lines[userID] {
		if l.ProductID == line.ProductID {
			c.lines[userID][i].Quantity += line.Quantity
			return
		}
	}
	c.lines[userID] = append(c.lines[userID], line)
}

func (c *stubCart) set(userID string, lines ...cart.Line) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lines[userID] = lines
}

type recordingEmitter struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recordingEmitter) Emit(_ context.Context, topic, aggregateID string, _ any) (events.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ev := events.Event{ID: uuid.NewString(), Topic: topic, AggregateID: aggregateID}
	r.events = append(r.events, ev)
	return ev, nil
}

func (r *recordingEmitter) topics() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Topic)
	}
	return out
}
