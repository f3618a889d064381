package pricing

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Unit is the measure a pricing tier is sold in.
type Unit string

const (
	UnitGram  Unit = "gm"
	UnitKilo  Unit = "kg"
	UnitPiece Unit = "piece"
	UnitDozen Unit = "dozen"
)

var (
	// ErrTierNotFound is returned when the selected tier is not offered by the item.
	ErrTierNotFound = errors.New("pricing tier not offered")
	// ErrNoPrice is returned when an item has neither a flat price nor tiers.
	ErrNoPrice = errors.New("item has no price")
	// ErrInvalidTier is returned for malformed tier definitions.
	ErrInvalidTier = errors.New("invalid pricing tier")
)

// ParseUnit normalises common spellings into a Unit.
func ParseUnit(raw string) (Unit, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "gm", "g", "gram", "grams":
		return UnitGram, nil
	case "kg", "kgs", "kilo":
		return UnitKilo, nil
	case "piece", "pieces", "pc", "pcs":
		return UnitPiece, nil
	case "dozen", "dz":
		return UnitDozen, nil
	}
	return "", fmt.Errorf("%w: unknown unit %q", ErrInvalidTier, raw)
}

// Valid reports whether u is a known unit.
func (u Unit) Valid() bool {
	switch u {
	case UnitGram, UnitKilo, UnitPiece, UnitDozen:
		return true
	}
	return false
}

// Tier is one (quantity, unit, price) option an item is sold in.
type Tier struct {
	Quantity int   `json:"quantity"`
	Unit     Unit  `json:"unit"`
	Price    Money `json:"price"`
}

// TierRef identifies a tier by its quantity and unit.
type TierRef struct {
	Quantity int  `json:"quantity"`
	Unit     Unit `json:"unit"`
}

// Ref returns the identifying part of the tier.
func (t Tier) Ref() TierRef { return TierRef{Quantity: t.Quantity, Unit: t.Unit} }

// Label renders the tier as shown on packaging, e.g. "500gm" or "1 dozen".
func (r TierRef) Label() string {
	switch r.Unit {
	case UnitGram, UnitKilo:
		return strconv.Itoa(r.Quantity) + string(r.Unit)
	default:
		return strconv.Itoa(r.Quantity) + " " + string(r.Unit)
	}
}

// Matches reports whether t is identified by ref.
func (t Tier) Matches(ref TierRef) bool {
	return t.Quantity == ref.Quantity && t.Unit == ref.Unit
}

// ValidateTiers checks each tier and rejects duplicates.
func ValidateTiers(tiers []Tier) error {
	seen := make(map[TierRef]struct{}, len(tiers))
	for i, t := range tiers {
		if t.Quantity <= 0 {
			return fmt.Errorf("%w: tier %d quantity must be positive", ErrInvalidTier, i)
		}
		if !t.Unit.Valid() {
			return fmt.Errorf("%w: tier %d has unknown unit %q", ErrInvalidTier, i, t.Unit)
		}
		if t.Price <= 0 {
			return fmt.Errorf("%w: tier %d price must be positive", ErrInvalidTier, i)
		}
		if _, dup := seen[t.Ref()]; dup {
			return fmt.Errorf("%w: duplicate tier %s", ErrInvalidTier, t.Ref().Label())
		}
		seen[t.Ref()] = struct{}{}
	}
	return nil
}

// SelectPrice picks the unit price for an item. A selected tier must be one of
// tiers. Without a selection the flat price is used, falling back to the first
// tier when no flat price is set.
func SelectPrice(flat Money, tiers []Tier, selected *TierRef) (Money, *Tier, error) {
	if selected != nil {
		for i := range tiers {
			if tiers[i].Matches(*selected) {
				t := tiers[i]
				return t.Price, &t, nil
			}
		}
		return 0, nil, fmt.Errorf("%w: %s", ErrTierNotFound, selected.Label())
	}
	if flat > 0 {
		return flat, nil, nil
	}
	if len(tiers) > 0 {
		t := tiers[0]
		return t.Price, &t, nil
	}
	return 0, nil, ErrNoPrice
}
