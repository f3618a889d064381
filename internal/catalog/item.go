package catalog

import (
	"encoding/json"
	"time"

	"github.com/noah-isme/backend-mithai/internal/db"
	"github.com/noah-isme/backend-mithai/internal/pricing"
)

// Kind tags which shape of sellable item a catalog entry is.
type Kind string

const (
	KindProduct Kind = "product"
	KindNamkeen Kind = "namkeen"
	KindBox     Kind = "box"
)

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	switch k {
	case KindProduct, KindNamkeen, KindBox:
		return true
	}
	return false
}

// Tiered reports whether items of kind k are sold in pricing tiers.
func (k Kind) Tiered() bool {
	return k == KindProduct || k == KindNamkeen
}

// Item is the unified catalog entry for sweets, namkeens and bhaji boxes.
type Item struct {
	ID          string         `json:"id"`
	Kind        Kind           `json:"kind"`
	Name        string         `json:"name"`
	Slug        string         `json:"slug"`
	Description string         `json:"description"`
	Category    string         `json:"category"`
	Images      []string       `json:"images"`
	Price       pricing.Money  `json:"price"`
	Tiers       []pricing.Tier `json:"tiers"`
	Contents    []string       `json:"contents,omitempty"`
	IsActive    bool           `json:"isActive"`
	IsFeatured  bool           `json:"isFeatured"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
}

// Thumbnail returns the first image, if any.
func (i Item) Thumbnail() string {
	if len(i.Images) == 0 {
		return ""
	}
	return i.Images[0]
}

// PriceFor returns the unit price for the selected tier, or the default price.
func (i Item) PriceFor(tier *pricing.TierRef) (pricing.Money, *pricing.Tier, error) {
	return pricing.SelectPrice(i.Price, i.Tiers, tier)
}

func fromRow(row db.CatalogItem) Item {
	item := Item{
		ID:          db.UUIDString(row.ID),
		Kind:        Kind(row.Kind),
		Name:        row.Name,
		Slug:        row.Slug,
		Description: row.Description,
		Category:    row.Category,
		Images:      nonNil(row.Images),
		Price:       row.Price,
		Tiers:       []pricing.Tier{},
		Contents:    row.Contents,
		IsActive:    row.IsActive,
		IsFeatured:  row.IsFeatured,
		CreatedAt:   row.CreatedAt.Time,
		UpdatedAt:   row.UpdatedAt.Time,
	}
	if len(row.Tiers) > 0 {
		var tiers []pricing.Tier
		if err := json.Unmarshal(row.Tiers, &tiers); err == nil && tiers != nil {
			item.Tiers = tiers
		}
	}
	return item
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
