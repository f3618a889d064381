package order_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-mithai/internal/cart"
	"github.com/noah-isme/backend-mithai/internal/catalog"
	"github.com/noah-isme/backend-mithai/internal/common"
	"github.com/noah-isme/backend-mithai/internal/events"
	"github.com/noah-isme/backend-mithai/internal/lock"
	"github.com/noah-isme/backend-mithai/internal/order"
	"github.com/noah-isme/backend-mithai/internal/pricing"
)

var checkoutClock = time.Date(2026, 3, 14, 10, 30, 0, 0, time.UTC)

type fixture struct {
	svc    *order.Service
	store  *memStore
	cart   *stubCart
	events *recordingEmitter
	kaju   catalog.Item
	box    catalog.Item
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	kaju := catalog.Item{
		ID:     uuid.NewString(),
		Kind:   catalog.KindProduct,
		Name:   "Kaju Katli",
		Images: []string{"kaju.jpg"},
		Tiers: []pricing.Tier{
			{Quantity: 500, Unit: pricing.UnitGram, Price: 55000},
			{Quantity: 1, Unit: pricing.UnitKilo, Price: 100000},
		},
		IsActive: true,
	}
	box := catalog.Item{
		ID:       uuid.NewString(),
		Kind:     catalog.KindBox,
		Name:     "Festive Bhaji Box",
		Price:    49900,
		Contents: []string{"Soan Papdi", "Besan Ladoo"},
		IsActive: true,
	}
	store := newMemStore(checkoutClock)
	carts := &stubCart{lines: map[string][]cart.Line{}}
	emitter := &recordingEmitter{}
	svc := &order.Service{
		Q:                store,
		Tx:               store,
		Catalog:          stubCatalog{kaju.ID: kaju, box.ID: box},
		Cart:             carts,
		Pricing:          pricing.DefaultPolicy(),
		Events:           emitter,
		TrustClientTotal: true,
		Tolerance:        100,
		Now:              func() time.Time { return checkoutClock },
		Logger:           zerolog.Nop(),
	}
	return &fixture{svc: svc, store: store, cart: carts, events: emitter, kaju: kaju, box: box}
}

func (f *fixture) fillCart(userID string) {
	f.cart.set(userID,
		cart.Line{ProductID: f.kaju.ID, Quantity: 1, Tier: &pricing.TierRef{Quantity: 1, Unit: pricing.UnitKilo}},
		cart.Line{ProductID: f.box.ID, Quantity: 2},
	)
}

func validInput(method order.PaymentMethod) order.CheckoutInput {
	return order.CheckoutInput{
		ShippingAddress: order.Address{
			Name:    "Asha Verma",
			Phone:   "9876543210",
			Line1:   "12 MG Road",
			City:    "Jaipur",
			State:   "Rajasthan",
			Pincode: "302001",
		},
		PaymentMethod: method,
	}
}

var asha = order.Customer{UserID: "user-asha", Email: "asha@example.com"}

func TestCheckoutSnapshotsCartAndTotals(t *testing.T) {
	f := newFixture(t)
	f.fillCart(asha.UserID)

	out, err := f.svc.Checkout(context.Background(), asha, validInput(order.MethodCOD))
	require.NoError(t, err)

	require.Equal(t, "ORD-2026-0001", out.Number)
	require.Equal(t, order.StatusConfirmed, out.Status)
	require.Equal(t, order.PaymentPending, out.PaymentStatus)
	require.Equal(t, "asha@example.com", out.Email)
	// 1kg kaju at ₹1000 plus two boxes at ₹499: free shipping, 18% GST rounded to rupees.
	require.Equal(t, pricing.Summary{Subtotal: 199800, Shipping: 0, Tax: 36000, Total: 235800}, out.Summary())

	require.Len(t, out.Items, 2)
	require.Equal(t, "Kaju Katli", out.Items[0].Name)
	require.Equal(t, "1kg", out.Items[0].TierLabel)
	require.Equal(t, "kaju.jpg", out.Items[0].Image)
	require.Equal(t, pricing.Money(100000), out.Items[0].LineTotal)
	require.Equal(t, "box", out.Items[1].Kind)
	require.Nil(t, out.Items[1].Tier)
	require.Equal(t, pricing.Money(99800), out.Items[1].LineTotal)

	require.Equal(t, []string{asha.UserID}, f.cart.cleared)
	require.Equal(t, []string{events.TopicOrderCreated}, f.events.topics())

	stored, err := f.svc.Get(context.Background(), out.ID, common.Identity{UserID: asha.UserID})
	require.NoError(t, err)
	require.Equal(t, out.Number, stored.Number)
	require.Equal(t, "Jaipur", stored.ShippingAddress.City)
	require.Len(t, stored.Items, 2)
	require.Equal(t, "1kg", stored.Items[0].TierLabel)
}

func TestCheckoutRejectsEmptyCart(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Checkout(context.Background(), asha, validInput(order.MethodCOD))
	require.ErrorIs(t, err, order.ErrEmptyCart)
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, http.StatusBadRequest, appErr.HTTPStatus)
}

func TestCheckoutUnknownProductIsNotFound(t *testing.T) {
	f := newFixture(t)
	f.cart.set(asha.UserID, cart.Line{ProductID: uuid.NewString(), Quantity: 1})

	_, err := f.svc.Checkout(context.Background(), asha, validInput(order.MethodUPI))
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, http.StatusNotFound, appErr.HTTPStatus)
	require.Empty(t, f.store.orders)
	require.Empty(t, f.cart.cleared)
}

func TestCheckoutRejectsWithdrawnTier(t *testing.T) {
	f := newFixture(t)
	f.cart.set(asha.UserID, cart.Line{ProductID: f.kaju.ID, Quantity: 1, Tier: &pricing.TierRef{Quantity: 2, Unit: pricing.UnitKilo}})

	_, err := f.svc.Checkout(context.Background(), asha, validInput(order.MethodCOD))
	require.ErrorIs(t, err, pricing.ErrTierNotFound)
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, http.StatusBadRequest, appErr.HTTPStatus)
}

func TestCheckoutValidatesAddress(t *testing.T) {
	f := newFixture(t)
	f.fillCart(asha.UserID)
	in := validInput(order.MethodCOD)
	in.ShippingAddress.Pincode = "30A"

	_, err := f.svc.Checkout(context.Background(), asha, in)
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, "VALIDATION_ERROR", appErr.Code)

	in = validInput("card")
	_, err = f.svc.Checkout(context.Background(), asha, in)
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, "VALIDATION_ERROR", appErr.Code)
}

func TestCheckoutClientTotalMismatch(t *testing.T) {
	t.Run("trusted mismatch is accepted and server total stored", func(t *testing.T) {
		f := newFixture(t)
		f.fillCart(asha.UserID)
		in := validInput(order.MethodUPI)
		stale := pricing.Money(200000)
		in.Total = &stale

		out, err := f.svc.Checkout(context.Background(), asha, in)
		require.NoError(t, err)
		require.Equal(t, pricing.Money(235800), out.Total)
		require.NotNil(t, out.ClientTotal)
		require.Equal(t, stale, *out.ClientTotal)
	})

	t.Run("within tolerance", func(t *testing.T) {
		f := newFixture(t)
		f.svc.TrustClientTotal = false
		f.fillCart(asha.UserID)
		in := validInput(order.MethodCOD)
		near := pricing.Money(235750)
		in.Total = &near

		_, err := f.svc.Checkout(context.Background(), asha, in)
		require.NoError(t, err)
	})

	t.Run("untrusted mismatch is rejected", func(t *testing.T) {
		f := newFixture(t)
		f.svc.TrustClientTotal = false
		f.fillCart(asha.UserID)
		in := validInput(order.MethodCOD)
		stale := pricing.Money(200000)
		in.Total = &stale

		_, err := f.svc.Checkout(context.Background(), asha, in)
		require.ErrorIs(t, err, order.ErrTotalMismatch)
		var appErr *common.AppError
		require.ErrorAs(t, err, &appErr)
		require.Equal(t, http.StatusConflict, appErr.HTTPStatus)
		require.Empty(t, f.store.orders)
		require.Empty(t, f.cart.cleared)
	})
}

func TestCheckoutSurvivesCartClearFailure(t *testing.T) {
	f := newFixture(t)
	f.fillCart(asha.UserID)
	f.cart.clearErr = errors.New("redis down")

	out, err := f.svc.Checkout(context.Background(), asha, validInput(order.MethodCOD))
	require.NoError(t, err)
	require.NotEmpty(t, out.ID)
	require.Len(t, f.store.orders, 1)
}

func TestCheckoutKeepsItemsAddedDuringCheckout(t *testing.T) {
	f := newFixture(t)
	f.fillCart(asha.UserID)
	f.cart.afterRead = func(userID string) {
		f.cart.add(userID, cart.Line{ProductID: f.box.ID, Quantity: 1})
		f.cart.add(userID, cart.Line{ProductID: "d7f0c1d2-5a55-4d7e-9a53-3b1f1c0e9a11", Quantity: 4})
	}

	out, err := f.svc.Checkout(context.Background(), asha, validInput(order.MethodCOD))
	require.NoError(t, err)
	require.Len(t, out.Items, 2)

	require.Equal(t, []cart.Line{
		{ProductID: f.box.ID, Quantity: 1},
		{ProductID: "d7f0c1d2-5a55-4d7e-9a53-3b1f1c0e9a11", Quantity: 4},
	}, f.cart.lines[asha.UserID])
}

func TestCheckoutFailedTransactionLeavesNoOrder(t *testing.T) {
	f := newFixture(t)
	f.fillCart(asha.UserID)
	f.store.failItemInsert = true

	_, err := f.svc.Checkout(context.Background(), asha, validInput(order.MethodCOD))
	require.Error(t, err)
	require.Empty(t, f.store.orders)
	require.Empty(t, f.events.topics())
	require.Empty(t, f.cart.cleared)
}

func TestConcurrentCheckoutsGetDistinctNumbers(t *testing.T) {
	f := newFixture(t)
	const n = 25
	for i := 0; i < n; i++ {
		f.fillCart(fmt.Sprintf("user-%02d", i))
	}

	var wg sync.WaitGroup
	numbers := make(chan string, n)
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			customer := order.Customer{UserID: fmt.Sprintf("user-%02d", i), Email: fmt.Sprintf("u%d@example.com", i)}
			out, err := f.svc.Checkout(context.Background(), customer, validInput(order.MethodCOD))
			if err != nil {
				errs <- err
				return
			}
			numbers <- out.Number
		}(i)
	}
	wg.Wait()
	close(numbers)
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	seen := map[string]bool{}
	for num := range numbers {
		require.False(t, seen[num], "duplicate order number %s", num)
		seen[num] = true
	}
	require.Len(t, seen, n)
	for i := 1; i <= n; i++ {
		require.True(t, seen[order.FormatNumber(2026, int64(i))])
	}
}

func TestOrderNumbersRestartEachYear(t *testing.T) {
	f := newFixture(t)
	f.fillCart("a")
	first, err := f.svc.Checkout(context.Background(), order.Customer{UserID: "a", Email: "a@example.com"}, validInput(order.MethodCOD))
	require.NoError(t, err)

	next := time.Date(2027, 1, 1, 0, 0, 1, 0, time.UTC)
	f.svc.Now = func() time.Time { return next }
	f.fillCart("b")
	second, err := f.svc.Checkout(context.Background(), order.Customer{UserID: "b", Email: "b@example.com"}, validInput(order.MethodCOD))
	require.NoError(t, err)

	require.Equal(t, "ORD-2026-0001", first.Number)
	require.Equal(t, "ORD-2027-0001", second.Number)
	require.Equal(t, "ORD-2026-12345", order.FormatNumber(2026, 12345))
}

func TestCheckoutHeldLockIsConflict(t *testing.T) {
	f := newFixture(t)
	f.fillCart(asha.UserID)

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	f.svc.Locker = lock.Locker{R: client, RetryBackoff: 5 * time.Millisecond, Wait: 20 * time.Millisecond}
	f.svc.LockTTL = time.Second

	require.NoError(t, mr.Set("lock:checkout:"+asha.UserID, "other-request"))
	_, err = f.svc.Checkout(context.Background(), asha, validInput(order.MethodCOD))
	require.ErrorIs(t, err, lock.ErrNotAcquired)
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, http.StatusConflict, appErr.HTTPStatus)

	mr.Del("lock:checkout:" + asha.UserID)
	out, err := f.svc.Checkout(context.Background(), asha, validInput(order.MethodCOD))
	require.NoError(t, err)
	require.Equal(t, "ORD-2026-0001", out.Number)
	require.False(t, mr.Exists("lock:checkout:"+asha.UserID))
}
