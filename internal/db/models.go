package db

import (
	"github.com/jackc/pgx/v5/pgtype"
)

type CatalogItem struct {
	ID          pgtype.UUID
	Kind        string
	Name        string
	Slug        string
	Description string
	Category    string
	Images      []string
	Price       int64
	Tiers       []byte
	Contents    []string
	IsActive    bool
	IsFeatured  bool
	CreatedAt   pgtype.Timestamptz
	UpdatedAt   pgtype.Timestamptz
}

type Cart struct {
	UserID    string
	ExpiresAt pgtype.Timestamptz
	UpdatedAt pgtype.Timestamptz
}

type CartItem struct {
	UserID       string
	ProductID    pgtype.UUID
	Quantity     int32
	TierQuantity pgtype.Int4
	TierUnit     pgtype.Text
	CreatedAt    pgtype.Timestamptz
}

type Order struct {
	ID              pgtype.UUID
	Number          string
	UserID          string
	Email           string
	ShippingAddress []byte
	PaymentMethod   string
	Subtotal        int64
	Shipping        int64
	Tax             int64
	Total           int64
	ClientTotal     pgtype.Int8
	Status          string
	PaymentStatus   string
	Notes           string
	CreatedAt       pgtype.Timestamptz
	UpdatedAt       pgtype.Timestamptz
}

type OrderItem struct {
	ID           pgtype.UUID
	OrderID      pgtype.UUID
	Position     int32
	ItemID       pgtype.UUID
	Kind         string
	Name         string
	Image        pgtype.Text
	TierQuantity pgtype.Int4
	TierUnit     pgtype.Text
	UnitPrice    int64
	Quantity     int32
	LineTotal    int64
}

type Enquiry struct {
	ID         pgtype.UUID
	Name       string
	Email      string
	Phone      string
	Subject    string
	Message    string
	Status     string
	AdminNotes string
	ClientIP   string
	CreatedAt  pgtype.Timestamptz
	UpdatedAt  pgtype.Timestamptz
}

type SawamaniRequest struct {
	ID          pgtype.UUID
	Name        string
	Phone       string
	Email       string
	EventDate   pgtype.Date
	ItemID      pgtype.UUID
	Allocations []byte
	TotalGrams  int32
	Status      string
	Notes       string
	AdminNotes  string
	CreatedAt   pgtype.Timestamptz
	UpdatedAt   pgtype.Timestamptz
}

type DomainEvent struct {
	ID          pgtype.UUID
	Topic       string
	AggregateID pgtype.UUID
	Payload     []byte
	OccurredAt  pgtype.Timestamptz
}
