package order

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/noah-isme/backend-mithai/internal/db"
	"github.com/noah-isme/backend-mithai/internal/pricing"
)

// Status is the fulfilment state of an order.
type Status string

const (
	StatusConfirmed Status = "confirmed"
	StatusDelivered Status = "delivered"
	StatusCancelled Status = "cancelled"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusConfirmed, StatusDelivered, StatusCancelled:
		return true
	}
	return false
}

// PaymentStatus tracks whether the order has been paid for.
type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentPaid    PaymentStatus = "paid"
)

// Valid reports whether p is a known payment status.
func (p PaymentStatus) Valid() bool {
	return p == PaymentPending || p == PaymentPaid
}

// PaymentMethod is how the customer pays.
type PaymentMethod string

const (
	MethodCOD PaymentMethod = "cod"
	MethodUPI PaymentMethod = "upi"
)

// Address is the delivery address captured at checkout.
type Address struct {
	Name    string `json:"name" validate:"required,max=120"`
	Phone   string `json:"phone" validate:"required,min=7,max=20"`
	Line1   string `json:"line1" validate:"required,max=200"`
	Line2   string `json:"line2,omitempty" validate:"max=200"`
	City    string `json:"city" validate:"required,max=80"`
	State   string `json:"state" validate:"required,max=80"`
	Pincode string `json:"pincode" validate:"required,len=6,numeric"`
}

// Item is the immutable snapshot of one purchased line.
type Item struct {
	ItemID    string           `json:"itemId"`
	Kind      string           `json:"kind"`
	Name      string           `json:"name"`
	Image     string           `json:"image,omitempty"`
	Tier      *pricing.TierRef `json:"tier,omitempty"`
	TierLabel string           `json:"tierLabel,omitempty"`
	UnitPrice pricing.Money    `json:"unitPrice"`
	Quantity  int              `json:"quantity"`
	LineTotal pricing.Money    `json:"lineTotal"`
}

// Order is a placed order with its item snapshots.
type Order struct {
	ID              string         `json:"id"`
	Number          string         `json:"orderNumber"`
	UserID          string         `json:"userId"`
	Email           string         `json:"email"`
	Items           []Item         `json:"items"`
	ShippingAddress Address        `json:"shippingAddress"`
	PaymentMethod   PaymentMethod  `json:"paymentMethod"`
	Subtotal        pricing.Money  `json:"subtotal"`
	Shipping        pricing.Money  `json:"shipping"`
	Tax             pricing.Money  `json:"tax"`
	Total           pricing.Money  `json:"total"`
	ClientTotal     *pricing.Money `json:"clientTotal,omitempty"`
	Status          Status         `json:"status"`
	PaymentStatus   PaymentStatus  `json:"paymentStatus"`
	Notes           string         `json:"notes,omitempty"`
	CreatedAt       time.Time      `json:"createdAt"`
	UpdatedAt       time.Time      `json:"updatedAt"`
}

// Summary returns the order's totals breakdown.
func (o Order) Summary() pricing.Summary {
	return pricing.Summary{Subtotal: o.Subtotal, Shipping: o.Shipping, Tax: o.Tax, Total: o.Total}
}

// FormatNumber renders the display number for the seq-th order of year.
func FormatNumber(year int, seq int64) string {
	return fmt.Sprintf("ORD-%d-%04d", year, seq)
}

func fromRow(row db.Order, items []db.OrderItem) Order {
	o := Order{
		ID:            db.UUIDString(row.ID),
		Number:        row.Number,
		UserID:        row.UserID,
		Email:         row.Email,
		Items:         make([]Item, 0, len(items)),
		PaymentMethod: PaymentMethod(row.PaymentMethod),
		Subtotal:      row.Subtotal,
		Shipping:      row.Shipping,
		Tax:           row.Tax,
		Total:         row.Total,
		Status:        Status(row.Status),
		PaymentStatus: PaymentStatus(row.PaymentStatus),
		Notes:         row.Notes,
		CreatedAt:     row.CreatedAt.Time,
		UpdatedAt:     row.UpdatedAt.Time,
	}
	if row.ClientTotal.Valid {
		v := row.ClientTotal.Int64
		o.ClientTotal = &v
	}
	if len(row.ShippingAddress) > 0 {
		_ = json.Unmarshal(row.ShippingAddress, &o.ShippingAddress)
	}
	for _, it := range items {
		o.Items = append(o.Items, itemFromRow(it))
	}
	return o
}

func itemFromRow(row db.OrderItem) Item {
	item := Item{
		ItemID:    db.UUIDString(row.ItemID),
		Kind:      row.Kind,
		Name:      row.Name,
		Image:     row.Image.String,
		UnitPrice: row.UnitPrice,
		Quantity:  int(row.Quantity),
		LineTotal: row.LineTotal,
	}
	if row.TierQuantity.Valid && row.TierUnit.Valid {
		ref := pricing.TierRef{Quantity: int(row.TierQuantity.Int32), Unit: pricing.Unit(row.TierUnit.String)}
		item.Tier = &ref
		item.TierLabel = ref.Label()
	}
	return item
}
