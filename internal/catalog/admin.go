package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/noah-isme/backend-mithai/internal/common"
	"github.com/noah-isme/backend-mithai/internal/db"
	"github.com/noah-isme/backend-mithai/internal/pricing"
)

// ItemInput is the admin payload for creating or replacing a catalog item.
type ItemInput struct {
	Kind        Kind           `json:"kind" validate:"required,oneof=product namkeen box"`
	Name        string         `json:"name" validate:"required,max=160"`
	Slug        string         `json:"slug" validate:"omitempty,max=160"`
	Description string         `json:"description" validate:"max=4000"`
	Category    string         `json:"category" validate:"max=80"`
	Images      []string       `json:"images" validate:"max=12,dive,url"`
	Price       pricing.Money  `json:"price" validate:"gte=0"`
	Tiers       []pricing.Tier `json:"tiers" validate:"max=12"`
	Contents    []string       `json:"contents" validate:"max=40,dive,required,max=120"`
	IsActive    *bool          `json:"isActive"`
	IsFeatured  bool           `json:"isFeatured"`
}

var slugUnsafe = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify derives a URL slug from a display name.
func Slugify(name string) string {
	return strings.Trim(slugUnsafe.ReplaceAllString(strings.ToLower(name), "-"), "-")
}

func (in *ItemInput) normalize() error {
	in.Name = strings.TrimSpace(in.Name)
	in.Category = strings.TrimSpace(in.Category)
	in.Description = strings.TrimSpace(in.Description)
	in.Slug = Slugify(in.Slug)
	if in.Slug == "" {
		in.Slug = Slugify(in.Name)
	}
	if err := common.ValidateStruct(in); err != nil {
		return err
	}
	if in.Slug == "" {
		return common.ValidationError("invalid payload", map[string]any{"fields": map[string]string{"slug": "is required"}})
	}
	if in.Kind == KindBox {
		if len(in.Tiers) > 0 {
			return common.ValidationError("boxes are sold at a flat price", map[string]any{"fields": map[string]string{"tiers": "must be empty for boxes"}})
		}
		if in.Price <= 0 {
			return common.ValidationError("boxes need a price", map[string]any{"fields": map[string]string{"price": "must be positive"}})
		}
		return nil
	}
	if len(in.Contents) > 0 {
		return common.ValidationError("only boxes list contents", map[string]any{"fields": map[string]string{"contents": "must be empty"}})
	}
	if err := pricing.ValidateTiers(in.Tiers); err != nil {
		return common.ValidationError(err.Error(), map[string]any{"fields": map[string]string{"tiers": "invalid"}})
	}
	if in.Price <= 0 && len(in.Tiers) == 0 {
		return common.ValidationError("item has no price", map[string]any{"fields": map[string]string{"tiers": "add a tier or a price"}})
	}
	return nil
}

func (in ItemInput) params(id uuid.UUID) (db.UpsertCatalogItemParams, error) {
	tiers := in.Tiers
	if tiers == nil {
		tiers = []pricing.Tier{}
	}
	encoded, err := json.Marshal(tiers)
	if err != nil {
		return db.UpsertCatalogItemParams{}, fmt.Errorf("encode tiers: %w", err)
	}
	active := true
	if in.IsActive != nil {
		active = *in.IsActive
	}
	return db.UpsertCatalogItemParams{
		ID:          db.UUID(id),
		Kind:        string(in.Kind),
		Name:        in.Name,
		Slug:        in.Slug,
		Description: in.Description,
		Category:    in.Category,
		Images:      nonNil(in.Images),
		Price:       in.Price,
		Tiers:       encoded,
		Contents:    nonNil(in.Contents),
		IsActive:    active,
		IsFeatured:  in.IsFeatured,
	}, nil
}

// Create validates and stores a new catalog item.
func (s *Service) Create(ctx context.Context, in ItemInput) (Item, error) {
	if err := in.normalize(); err != nil {
		return Item{}, err
	}
	params, err := in.params(uuid.New())
	if err != nil {
		return Item{}, err
	}
	row, err := s.queries.CreateCatalogItem(ctx, params)
	if err != nil {
		return Item{}, mapWriteError(err, in.Slug)
	}
	s.invalidate(ctx)
	return fromRow(row), nil
}

// Update replaces the item identified by id.
func (s *Service) Update(ctx context.Context, id string, in ItemInput) (Item, error) {
	key, ok := db.ParseUUID(id)
	if !ok {
		return Item{}, notFound(id)
	}
	if err := in.normalize(); err != nil {
		return Item{}, err
	}
	params, err := in.params(uuid.UUID(key.Bytes))
	if err != nil {
		return Item{}, err
	}
	row, err := s.queries.UpdateCatalogItem(ctx, params)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Item{}, notFound(id)
		}
		return Item{}, mapWriteError(err, in.Slug)
	}
	s.invalidate(ctx)
	return fromRow(row), nil
}

// Delete removes an item. Carts holding it lose the line.
func (s *Service) Delete(ctx context.Context, id string) error {
	key, ok := db.ParseUUID(id)
	if !ok {
		return notFound(id)
	}
	n, err := s.queries.DeleteCatalogItem(ctx, key)
	if err != nil {
		return fmt.Errorf("delete catalog item: %w", err)
	}
	if n == 0 {
		return notFound(id)
	}
	s.invalidate(ctx)
	return nil
}

// AdminGet returns an item regardless of its active flag.
func (s *Service) AdminGet(ctx context.Context, id string) (Item, error) {
	return s.byID(ctx, id)
}

func (s *Service) invalidate(ctx context.Context) {
	_ = s.cache.Invalidate(ctx)
}

func mapWriteError(err error, slug string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return common.ConflictError("slug already in use: "+slug, err)
	}
	return fmt.Errorf("write catalog item: %w", err)
}
