package cart

import (
	"context"
	"time"

	"github.com/noah-isme/backend-mithai/internal/catalog"
	"github.com/noah-isme/backend-mithai/internal/pricing"
)

// ViewLine is a cart line joined with catalog data and its price.
type ViewLine struct {
	ProductID string           `json:"productId"`
	Kind      catalog.Kind     `json:"kind,omitempty"`
	Name      string           `json:"name,omitempty"`
	Image     string           `json:"image,omitempty"`
	Tier      *pricing.TierRef `json:"tier,omitempty"`
	TierLabel string           `json:"tierLabel,omitempty"`
	UnitPrice pricing.Money    `json:"unitPrice"`
	Quantity  int              `json:"quantity"`
	LineTotal pricing.Money    `json:"lineTotal"`
	Available bool             `json:"available"`
}

// View is the cart preview returned to the storefront.
type View struct {
	Items     []ViewLine      `json:"items"`
	Totals    pricing.Summary `json:"totals"`
	ItemCount int             `json:"itemCount"`
	ExpiresAt *time.Time      `json:"expiresAt,omitempty"`
}

// View prices the user's cart with the shared totals calculator. Lines whose
// product is gone or no longer priced are flagged unavailable and left out of
// the totals.
func (s *Service) View(ctx context.Context, userID string) (View, error) {
	lines, expires, err := s.Lines(ctx, userID)
	if err != nil {
		return View{}, err
	}
	ids := make([]string, 0, len(lines))
	for _, l := range lines {
		ids = append(ids, l.ProductID)
	}
	items := map[string]catalog.Item{}
	if len(ids) > 0 && s.Catalog != nil {
		items, err = s.Catalog.Available(ctx, ids)
		if err != nil {
			return View{}, err
		}
	}
	view := View{Items: make([]ViewLine, 0, len(lines)), ExpiresAt: expires}
	priced := make([]pricing.Item, 0, len(lines))
	for _, l := range lines {
		vl := ViewLine{ProductID: l.ProductID, Tier: l.Tier, Quantity: l.Quantity}
		if item, ok := items[l.ProductID]; ok {
			vl.Kind = item.Kind
			vl.Name = item.Name
			vl.Image = item.Thumbnail()
			if price, tier, err := item.PriceFor(l.Tier); err == nil {
				vl.Available = true
				vl.UnitPrice = price
				vl.LineTotal = price * pricing.Money(l.Quantity)
				if tier != nil {
					ref := tier.Ref()
					vl.Tier = &ref
					vl.TierLabel = ref.Label()
				}
				priced = append(priced, pricing.Item{Qty: l.Quantity, UnitPrice: price})
				view.ItemCount += l.Quantity
			}
		}
		view.Items = append(view.Items, vl)
	}
	view.Totals = s.Pricing.ComputeItems(priced)
	return view, nil
}
