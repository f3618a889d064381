package pricing_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-mithai/internal/pricing"
)

func TestComputeScenarios(t *testing.T) {
	policy := pricing.DefaultPolicy()

	cases := []struct {
		name     string
		subtotal pricing.Money
		want     pricing.Summary
	}{
		{"empty cart", 0, pricing.Summary{Subtotal: 0, Shipping: 5900, Tax: 0, Total: 5900}},
		{"just below free shipping", 99900, pricing.Summary{Subtotal: 99900, Shipping: 5900, Tax: 18000, Total: 123800}},
		{"free shipping threshold", 100000, pricing.Summary{Subtotal: 100000, Shipping: 0, Tax: 18000, Total: 118000}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, policy.Compute(tc.subtotal))
		})
	}
}

func TestShippingRule(t *testing.T) {
	policy := pricing.DefaultPolicy()
	for s := pricing.Money(0); s <= 200000; s += 2500 {
		got := policy.Shipping(s)
		if s >= 100000 {
			require.Zero(t, got, "subtotal %d", s)
		} else {
			require.Equal(t, pricing.Money(5900), got, "subtotal %d", s)
		}
	}
}

func TestTaxRoundsHalfAwayFromZeroToRupees(t *testing.T) {
	policy := pricing.DefaultPolicy()

	// ₹2.50 of tax rounds up to ₹3, ₹2.49 rounds down to ₹2.
	require.Equal(t, pricing.Money(300), policy.Tax(1389))
	require.Equal(t, pricing.Money(200), policy.Tax(1383))
	require.Equal(t, pricing.Money(0), policy.Tax(0))
	// 18% of ₹999 is ₹179.82.
	require.Equal(t, pricing.Money(18000), policy.Tax(99900))

	exact := policy
	exact.TaxRoundingUnit = 1
	require.Equal(t, pricing.Money(17982), exact.Tax(99900))
}

func TestTotalIsSumOfParts(t *testing.T) {
	policy := pricing.DefaultPolicy()
	for s := pricing.Money(0); s <= 500000; s += 1237 {
		sum := policy.Compute(s)
		require.Equal(t, sum.Subtotal+sum.Shipping+sum.Tax, sum.Total)
		require.Zero(t, sum.Tax%100)
	}
}

func TestComputeItemsSkipsInvalidQuantities(t *testing.T) {
	policy := pricing.DefaultPolicy()
	sum := policy.ComputeItems([]pricing.Item{
		{Qty: 2, UnitPrice: 25000},
		{Qty: 0, UnitPrice: 99999},
		{Qty: 1, UnitPrice: 50000},
	})
	require.Equal(t, pricing.Money(100000), sum.Subtotal)
	require.Zero(t, sum.Shipping)
}

func TestRupeesRoundTrip(t *testing.T) {
	require.Equal(t, "1238.00", pricing.Rupees(123800))
	require.Equal(t, "₹0.59", pricing.FormatINR(59))

	paise, err := pricing.ParseRupees("1238.5")
	require.NoError(t, err)
	require.Equal(t, pricing.Money(123850), paise)

	_, err = pricing.ParseRupees("1.005")
	require.ErrorIs(t, err, pricing.ErrInvalidAmount)
	_, err = pricing.ParseRupees("abc")
	require.ErrorIs(t, err, pricing.ErrInvalidAmount)
}
