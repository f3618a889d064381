package order_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-mithai/internal/common"
	"github.com/noah-isme/backend-mithai/internal/events"
	"github.com/noah-isme/backend-mithai/internal/order"
)

func placeOrder(t *testing.T, f *fixture, customer order.Customer) order.Order {
	t.Helper()
	f.fillCart(customer.UserID)
	out, err := f.svc.Checkout(context.Background(), customer, validInput(order.MethodCOD))
	require.NoError(t, err)
	return out
}

func statusPtr(s order.Status) *order.Status { return &s }

func paymentPtr(p order.PaymentStatus) *order.PaymentStatus { return &p }

func requireStatus(t *testing.T, err error, status int) {
	t.Helper()
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, status, appErr.HTTPStatus)
}

func TestCancelByOwner(t *testing.T) {
	f := newFixture(t)
	placed := placeOrder(t, f, asha)

	out, err := f.svc.Cancel(context.Background(), placed.ID, asha.UserID)
	require.NoError(t, err)
	require.Equal(t, order.StatusCancelled, out.Status)
	require.Len(t, out.Items, 2)
	require.Equal(t, []string{events.TopicOrderCreated, events.TopicOrderCancelled}, f.events.topics())

	_, err = f.svc.Cancel(context.Background(), placed.ID, asha.UserID)
	require.ErrorIs(t, err, order.ErrInvalidTransition)
	requireStatus(t, err, http.StatusConflict)
}

func TestCancelBlockedOnceDelivered(t *testing.T) {
	f := newFixture(t)
	placed := placeOrder(t, f, asha)
	f.store.setStatus(placed.ID, string(order.StatusDelivered))

	_, err := f.svc.Cancel(context.Background(), placed.ID, asha.UserID)
	require.ErrorIs(t, err, order.ErrInvalidTransition)
	requireStatus(t, err, http.StatusConflict)
}

func TestCancelOtherCustomersOrderIsNotFound(t *testing.T) {
	f := newFixture(t)
	placed := placeOrder(t, f, asha)

	_, err := f.svc.Cancel(context.Background(), placed.ID, "someone-else")
	require.ErrorIs(t, err, order.ErrNotFound)
	requireStatus(t, err, http.StatusNotFound)

	_, err = f.svc.Cancel(context.Background(), "not-a-uuid", asha.UserID)
	requireStatus(t, err, http.StatusNotFound)
}

func TestGetVisibility(t *testing.T) {
	f := newFixture(t)
	placed := placeOrder(t, f, asha)

	_, err := f.svc.Get(context.Background(), placed.ID, common.Identity{UserID: "intruder"})
	requireStatus(t, err, http.StatusNotFound)

	out, err := f.svc.Get(context.Background(), placed.ID, common.Identity{UserID: "admin-1", Admin: true})
	require.NoError(t, err)
	require.Equal(t, placed.Number, out.Number)
}

func TestAdminStatusTransitions(t *testing.T) {
	ctx := context.Background()

	t.Run("confirmed to delivered then paid", func(t *testing.T) {
		f := newFixture(t)
		placed := placeOrder(t, f, asha)

		out, err := f.svc.UpdateStatus(ctx, placed.ID, order.StatusUpdate{Status: statusPtr(order.StatusDelivered)})
		require.NoError(t, err)
		require.Equal(t, order.StatusDelivered, out.Status)
		require.Equal(t, order.PaymentPending, out.PaymentStatus)

		out, err = f.svc.UpdateStatus(ctx, placed.ID, order.StatusUpdate{PaymentStatus: paymentPtr(order.PaymentPaid)})
		require.NoError(t, err)
		require.Equal(t, order.StatusDelivered, out.Status)
		require.Equal(t, order.PaymentPaid, out.PaymentStatus)

		_, err = f.svc.UpdateStatus(ctx, placed.ID, order.StatusUpdate{Status: statusPtr(order.StatusCancelled)})
		require.ErrorIs(t, err, order.ErrInvalidTransition)
		_, err = f.svc.UpdateStatus(ctx, placed.ID, order.StatusUpdate{Status: statusPtr(order.StatusConfirmed)})
		require.ErrorIs(t, err, order.ErrInvalidTransition)
	})

	t.Run("cancelled is final", func(t *testing.T) {
		f := newFixture(t)
		placed := placeOrder(t, f, asha)

		out, err := f.svc.UpdateStatus(ctx, placed.ID, order.StatusUpdate{Status: statusPtr(order.StatusCancelled)})
		require.NoError(t, err)
		require.Equal(t, order.StatusCancelled, out.Status)
		require.Contains(t, f.events.topics(), events.TopicOrderCancelled)

		_, err = f.svc.UpdateStatus(ctx, placed.ID, order.StatusUpdate{PaymentStatus: paymentPtr(order.PaymentPaid)})
		require.ErrorIs(t, err, order.ErrInvalidTransition)
		requireStatus(t, err, http.StatusConflict)
	})

	t.Run("unknown values and empty change", func(t *testing.T) {
		f := newFixture(t)
		placed := placeOrder(t, f, asha)

		_, err := f.svc.UpdateStatus(ctx, placed.ID, order.StatusUpdate{})
		requireStatus(t, err, http.StatusBadRequest)
		_, err = f.svc.UpdateStatus(ctx, placed.ID, order.StatusUpdate{Status: statusPtr("shipped")})
		requireStatus(t, err, http.StatusBadRequest)
		_, err = f.svc.UpdateStatus(ctx, placed.ID, order.StatusUpdate{PaymentStatus: paymentPtr("refunded")})
		requireStatus(t, err, http.StatusBadRequest)
	})

	t.Run("concurrent change is detected", func(t *testing.T) {
		f := newFixture(t)
		placed := placeOrder(t, f, asha)
		f.store.beforeUpdate = func(m *memStore) {
			m.setStatus(placed.ID, string(order.StatusCancelled))
		}

		_, err := f.svc.UpdateStatus(ctx, placed.ID, order.StatusUpdate{Status: statusPtr(order.StatusDelivered)})
		require.ErrorIs(t, err, order.ErrInvalidTransition)
	})
}

func TestListScopesAndFilters(t *testing.T) {
	f := newFixture(t)
	first := placeOrder(t, f, asha)
	placeOrder(t, f, asha)
	placeOrder(t, f, order.Customer{UserID: "ravi", Email: "ravi@example.com"})
	_, err := f.svc.Cancel(context.Background(), first.ID, asha.UserID)
	require.NoError(t, err)

	mine, err := f.svc.List(context.Background(), order.ListParams{UserID: asha.UserID, Page: 1, Limit: 10})
	require.NoError(t, err)
	require.EqualValues(t, 2, mine.Total)
	require.Equal(t, "ORD-2026-0002", mine.Orders[0].Number)
	require.Len(t, mine.Orders[0].Items, 2)

	all, err := f.svc.List(context.Background(), order.ListParams{Page: 1, Limit: 2})
	require.NoError(t, err)
	require.EqualValues(t, 3, all.Total)
	require.Len(t, all.Orders, 2)

	cancelled, err := f.svc.List(context.Background(), order.ListParams{Status: "cancelled"})
	require.NoError(t, err)
	require.EqualValues(t, 1, cancelled.Total)
	require.Equal(t, first.Number, cancelled.Orders[0].Number)

	search, err := f.svc.List(context.Background(), order.ListParams{Query: "ravi@"})
	require.NoError(t, err)
	require.EqualValues(t, 1, search.Total)

	_, err = f.svc.List(context.Background(), order.ListParams{Status: "lost"})
	requireStatus(t, err, http.StatusBadRequest)
}
