package pricing

// Money represents a monetary value stored in minor units (paise).
type Money = int64

// Item describes a line item used for pricing calculation.
type Item struct {
	Qty       int
	UnitPrice Money
}

// Policy carries the storefront pricing rules. All amounts are in paise.
type Policy struct {
	FreeShippingThreshold Money
	ShippingFlat          Money
	TaxBps                int64
	// TaxRoundingUnit is the granularity tax is rounded to, 100 rounds to whole rupees.
	TaxRoundingUnit Money
}

// DefaultPolicy is free shipping from ₹1000, ₹59 flat shipping otherwise and 18% GST
// rounded to whole rupees.
func DefaultPolicy() Policy {
	return Policy{
		FreeShippingThreshold: 100000,
		ShippingFlat:          5900,
		TaxBps:                1800,
		TaxRoundingUnit:       100,
	}
}

// Summary aggregates computed pricing components.
type Summary struct {
	Subtotal Money `json:"subtotal"`
	Shipping Money `json:"shipping"`
	Tax      Money `json:"tax"`
	Total    Money `json:"total"`
}

// Subtotal sums quantity times unit price, ignoring non-positive quantities.
func Subtotal(items []Item) Money {
	var subtotal Money
	for _, it := range items {
		if it.Qty <= 0 {
			continue
		}
		subtotal += Money(it.Qty) * it.UnitPrice
	}
	return subtotal
}

// Shipping returns the delivery charge for subtotal.
func (p Policy) Shipping(subtotal Money) Money {
	if subtotal >= p.FreeShippingThreshold {
		return 0
	}
	return p.ShippingFlat
}

// Tax returns subtotal × rate rounded half away from zero to TaxRoundingUnit.
func (p Policy) Tax(subtotal Money) Money {
	unit := p.TaxRoundingUnit
	if unit <= 0 {
		unit = 1
	}
	denom := 10000 * unit
	scaled := subtotal * p.TaxBps
	q := (abs(scaled) + denom/2) / denom
	if scaled < 0 {
		q = -q
	}
	return q * unit
}

// Compute is the single totals function shared by cart preview, checkout and the
// UPI payment screen.
func (p Policy) Compute(subtotal Money) Summary {
	shipping := p.Shipping(subtotal)
	tax := p.Tax(subtotal)
	return Summary{
		Subtotal: subtotal,
		Shipping: shipping,
		Tax:      tax,
		Total:    subtotal + shipping + tax,
	}
}

// ComputeItems totals the provided line items.
func (p Policy) ComputeItems(items []Item) Summary {
	return p.Compute(Subtotal(items))
}

func abs(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
