// Package sawamani implements the bulk order form: per-packing weights are
// converted into box counts under a total weight cap.
package sawamani

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-mithai/internal/common"
)

// DefaultMaxGrams is the 50 kg cap on a single request.
const DefaultMaxGrams int64 = 50000

var (
	ErrUnknownPacking = errors.New("unknown packing")
	ErrNegativeWeight = errors.New("weight must not be negative")
	ErrFractionalGram = errors.New("weight must be a whole number of grams")
	ErrNotMultiple    = errors.New("weight is not a whole number of boxes")
	ErrNoWeight       = errors.New("total weight must be greater than zero")
	ErrOverCap        = errors.New("total weight exceeds the limit")
)

var thousand = decimal.NewFromInt(1000)

// Packing is one box format the shop packs bulk orders in.
type Packing struct {
	Code  string `json:"code"`
	Label string `json:"label"`
	Grams int64  `json:"grams"`
}

// Packings builds box formats from sizes in grams, smallest first. Non-positive
// and repeated sizes are dropped.
func Packings(grams []int64) []Packing {
	sizes := append([]int64(nil), grams...)
	sort.Slice(sizes, func(i, j int) bool { return sizes[i] < sizes[j] })
	out := make([]Packing, 0, len(sizes))
	for i, g := range sizes {
		if g <= 0 || (i > 0 && sizes[i-1] == g) {
			continue
		}
		code := sizeCode(g)
		out = append(out, Packing{Code: code, Label: code + " box", Grams: g})
	}
	return out
}

func sizeCode(grams int64) string {
	if grams%1000 == 0 {
		return fmt.Sprintf("%dkg", grams/1000)
	}
	if grams > 1000 {
		return decimal.New(grams, -3).String() + "kg"
	}
	return fmt.Sprintf("%dg", grams)
}

// Weight is the requested weight for one packing. Kg accepts JSON numbers and
// decimal strings.
type Weight struct {
	Packing string          `json:"packing"`
	Kg      decimal.Decimal `json:"kg"`
}

// Allocation is the outcome for one packing.
type Allocation struct {
	Packing     string `json:"packing"`
	Label       string `json:"label"`
	PackGrams   int64  `json:"packGrams"`
	WeightGrams int64  `json:"weightGrams"`
	Boxes       int64  `json:"boxes"`
}

// Result is a full allocation.
type Result struct {
	Allocations []Allocation `json:"allocations"`
	TotalGrams  int64        `json:"totalGrams"`
	TotalKg     string       `json:"totalKg"`
	MaxGrams    int64        `json:"maxGrams"`
}

// Allocator turns weights into box counts.
type Allocator struct {
	Packings []Packing
	MaxGrams int64
}

// NewAllocator returns an allocator over the given sizes in grams.
func NewAllocator(sizes []int64, maxGrams int64) Allocator {
	if maxGrams <= 0 {
		maxGrams = DefaultMaxGrams
	}
	return Allocator{Packings: Packings(sizes), MaxGrams: maxGrams}
}

func (a Allocator) packing(code string) (Packing, bool) {
	code = strings.ToLower(strings.TrimSpace(code))
	for _, p := range a.Packings {
		if p.Code == code {
			return p, true
		}
	}
	return Packing{}, false
}

// Allocate validates weights and computes boxes per packing. Zero weights are
// accepted and left out of the result. Repeated packings are summed.
func (a Allocator) Allocate(weights []Weight) (Result, error) {
	maxGrams := a.MaxGrams
	if maxGrams <= 0 {
		maxGrams = DefaultMaxGrams
	}
	byCode := map[string]int{}
	var out []Allocation
	var total int64
	for i, w := range weights {
		field := fmt.Sprintf("weights[%d]", i)
		p, ok := a.packing(w.Packing)
		if !ok {
			return Result{}, invalid(field+".packing", ErrUnknownPacking, fmt.Sprintf("unknown packing %q", w.Packing))
		}
		if w.Kg.IsNegative() {
			return Result{}, invalid(field+".kg", ErrNegativeWeight, "weight must not be negative")
		}
		grams := w.Kg.Mul(thousand)
		if !grams.IsInteger() {
			return Result{}, invalid(field+".kg", ErrFractionalGram, "weight must be a whole number of grams")
		}
		if !grams.LessThanOrEqual(decimal.NewFromInt(maxGrams)) {
			return Result{}, overCap(maxGrams)
		}
		g := grams.IntPart()
		if g%p.Grams != 0 {
			return Result{}, invalid(field+".kg", ErrNotMultiple,
				fmt.Sprintf("%s must be a multiple of %s", p.Label, decimal.New(p.Grams, -3).String()+" kg"))
		}
		total += g
		if total > maxGrams {
			return Result{}, overCap(maxGrams)
		}
		if g == 0 {
			continue
		}
		if idx, seen := byCode[p.Code]; seen {
			out[idx].WeightGrams += g
			out[idx].Boxes += g / p.Grams
			continue
		}
		byCode[p.Code] = len(out)
		out = append(out, Allocation{Packing: p.Code, Label: p.Label, PackGrams: p.Grams, WeightGrams: g, Boxes: g / p.Grams})
	}
	if total == 0 {
		return Result{}, invalid("weights", ErrNoWeight, "enter a weight for at least one packing")
	}
	return Result{Allocations: out, TotalGrams: total, TotalKg: decimal.New(total, -3).String(), MaxGrams: maxGrams}, nil
}

func invalid(field string, err error, message string) *common.AppError {
	appErr := common.ValidationError(message, map[string]any{"field": field})
	appErr.Err = err
	return appErr
}

func overCap(maxGrams int64) *common.AppError {
	return invalid("weights", ErrOverCap, fmt.Sprintf("total weight must not exceed %s kg", decimal.New(maxGrams, -3).String()))
}
