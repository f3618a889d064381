package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/noah-isme/backend-mithai/internal/common"
	"github.com/noah-isme/backend-mithai/internal/db"
)

// ErrNotFound is wrapped by every lookup miss, including inactive items seen by customers.
var ErrNotFound = errors.New("catalog item not found")

type queryProvider interface {
	GetCatalogItem(ctx context.Context, id pgtype.UUID) (db.CatalogItem, error)
	GetCatalogItemBySlug(ctx context.Context, slug string) (db.CatalogItem, error)
	GetCatalogItemsByIDs(ctx context.Context, ids []pgtype.UUID) ([]db.CatalogItem, error)
	CountCatalogItems(ctx context.Context, arg db.CatalogFilter) (int64, error)
	ListCatalogItems(ctx context.Context, arg db.CatalogFilter) ([]db.CatalogItem, error)
	CreateCatalogItem(ctx context.Context, arg db.UpsertCatalogItemParams) (db.CatalogItem, error)
	UpdateCatalogItem(ctx context.Context, arg db.UpsertCatalogItemParams) (db.CatalogItem, error)
	DeleteCatalogItem(ctx context.Context, id pgtype.UUID) (int64, error)
}

// Service resolves, lists and administers catalog items.
type Service struct {
	queries      queryProvider
	cache        *Cache
	defaultLimit int
	maxLimit     int
}

// ServiceConfig groups Service dependencies.
type ServiceConfig struct {
	Queries      queryProvider
	Cache        *Cache
	DefaultLimit int
	MaxLimit     int
}

// ListParams captures filters for catalog listing.
type ListParams struct {
	Kind            Kind
	Category        string
	Query           string
	Featured        *bool
	IncludeInactive bool
	Page            int
	Limit           int
}

// ListResult contains list data and pagination metadata.
type ListResult struct {
	Items []Item `json:"items"`
	Total int64  `json:"total"`
	Page  int    `json:"-"`
	Limit int    `json:"-"`
}

// NewService constructs a Service instance.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Queries == nil {
		return nil, errors.New("catalog: queries provider is required")
	}
	maxLimit := cfg.MaxLimit
	if maxLimit < 1 {
		maxLimit = 100
	}
	defaultLimit := cfg.DefaultLimit
	if defaultLimit < 1 {
		defaultLimit = 20
	}
	if defaultLimit > maxLimit {
		defaultLimit = maxLimit
	}
	return &Service{
		queries:      cfg.Queries,
		cache:        cfg.Cache,
		defaultLimit: defaultLimit,
		maxLimit:     maxLimit,
	}, nil
}

// ParseListParams normalises raw query values into typed filters.
func (s *Service) ParseListParams(values url.Values) (ListParams, error) {
	params := ListParams{Page: 1, Limit: s.defaultLimit}
	params.Category = strings.TrimSpace(values.Get("category"))
	params.Query = strings.TrimSpace(values.Get("q"))

	if v := strings.TrimSpace(values.Get("kind")); v != "" {
		kind := Kind(strings.ToLower(v))
		if !kind.Valid() {
			return params, badRequest("kind", "kind must be one of product, namkeen, box", nil)
		}
		params.Kind = kind
	}
	if v := strings.TrimSpace(values.Get("page")); v != "" {
		page, err := strconv.Atoi(v)
		if err != nil || page < 1 {
			return params, badRequest("page", "page must be a positive integer", err)
		}
		params.Page = page
	}
	if v := strings.TrimSpace(values.Get("limit")); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 1 {
			return params, badRequest("limit", "limit must be a positive integer", err)
		}
		params.Limit = min(limit, s.maxLimit)
	}
	if v := strings.TrimSpace(values.Get("featured")); v != "" {
		featured, err := strconv.ParseBool(v)
		if err != nil {
			return params, badRequest("featured", "featured must be true or false", err)
		}
		params.Featured = &featured
	}
	return params, nil
}

// Resolve looks up a sellable item by id with a single indexed query. Unknown
// and inactive ids both yield a NOT_FOUND error wrapping ErrNotFound.
func (s *Service) Resolve(ctx context.Context, id string) (Item, error) {
	item, err := s.byID(ctx, id)
	if err != nil {
		return Item{}, err
	}
	if !item.IsActive {
		return Item{}, notFound(id)
	}
	return item, nil
}

// Available returns the active items among ids, keyed by canonical id. Unknown,
// malformed and inactive ids are left out.
func (s *Service) Available(ctx context.Context, ids []string) (map[string]Item, error) {
	keys := make([]pgtype.UUID, 0, len(ids))
	for _, raw := range ids {
		if id, ok := db.ParseUUID(raw); ok {
			keys = append(keys, id)
		}
	}
	found := make(map[string]Item, len(keys))
	if len(keys) == 0 {
		return found, nil
	}
	rows, err := s.queries.GetCatalogItemsByIDs(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("resolve catalog items: %w", err)
	}
	for _, row := range rows {
		item := fromRow(row)
		if item.IsActive {
			found[item.ID] = item
		}
	}
	return found, nil
}

// ResolveMany resolves ids in one round trip. Missing or inactive ids fail the whole call.
func (s *Service) ResolveMany(ctx context.Context, ids []string) (map[string]Item, error) {
	found, err := s.Available(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, raw := range ids {
		if _, ok := found[CanonicalID(raw)]; !ok {
			return nil, notFound(raw)
		}
	}
	return found, nil
}

// CanonicalID lower-cases and trims an id so it matches the keys returned by
// Available and ResolveMany.
func CanonicalID(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// Get returns an active item by id or slug for the storefront.
func (s *Service) Get(ctx context.Context, idOrSlug string) (Item, error) {
	idOrSlug = strings.TrimSpace(idOrSlug)
	if idOrSlug == "" {
		return Item{}, badRequest("id", "id or slug is required", nil)
	}
	key := detailCacheKey(idOrSlug)
	var cached Item
	if ok, err := s.cache.GetJSON(ctx, key, &cached); err == nil && ok {
		return cached, nil
	}
	var (
		item Item
		err  error
	)
	if _, isID := db.ParseUUID(idOrSlug); isID {
		item, err = s.byID(ctx, idOrSlug)
	} else {
		item, err = s.bySlug(ctx, idOrSlug)
	}
	if err != nil {
		return Item{}, err
	}
	if !item.IsActive {
		return Item{}, notFound(idOrSlug)
	}
	_ = s.cache.SetJSON(ctx, key, item)
	return item, nil
}

// List returns a filtered page of items. The first page of an unfiltered
// listing per kind is cached.
func (s *Service) List(ctx context.Context, params ListParams) (ListResult, error) {
	if params.Page < 1 {
		params.Page = 1
	}
	if params.Limit < 1 {
		params.Limit = s.defaultLimit
	}
	key, cacheable := s.listCacheKey(params)
	if cacheable {
		var cached ListResult
		if ok, err := s.cache.GetJSON(ctx, key, &cached); err == nil && ok {
			cached.Page, cached.Limit = params.Page, params.Limit
			return cached, nil
		}
	}
	filter := db.CatalogFilter{
		Kind:            db.Text(string(params.Kind)),
		Category:        db.Text(params.Category),
		Q:               db.Text(params.Query),
		Featured:        db.BoolPtr(params.Featured),
		IncludeInactive: params.IncludeInactive,
		Limit:           int32(params.Limit),
		Offset:          int32(common.Offset(params.Page, params.Limit)),
	}
	total, err := s.queries.CountCatalogItems(ctx, filter)
	if err != nil {
		return ListResult{}, fmt.Errorf("count catalog items: %w", err)
	}
	rows, err := s.queries.ListCatalogItems(ctx, filter)
	if err != nil {
		return ListResult{}, fmt.Errorf("list catalog items: %w", err)
	}
	items := make([]Item, 0, len(rows))
	for _, row := range rows {
		items = append(items, fromRow(row))
	}
	result := ListResult{Items: items, Total: total, Page: params.Page, Limit: params.Limit}
	if cacheable {
		_ = s.cache.SetJSON(ctx, key, result)
	}
	return result, nil
}

func (s *Service) byID(ctx context.Context, raw string) (Item, error) {
	id, ok := db.ParseUUID(raw)
	if !ok {
		return Item{}, notFound(raw)
	}
	row, err := s.queries.GetCatalogItem(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Item{}, notFound(raw)
		}
		return Item{}, fmt.Errorf("get catalog item: %w", err)
	}
	return fromRow(row), nil
}

func (s *Service) bySlug(ctx context.Context, slug string) (Item, error) {
	row, err := s.queries.GetCatalogItemBySlug(ctx, strings.ToLower(slug))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Item{}, notFound(slug)
		}
		return Item{}, fmt.Errorf("get catalog item by slug: %w", err)
	}
	return fromRow(row), nil
}

func (s *Service) listCacheKey(params ListParams) (string, bool) {
	if params.Page != 1 || params.Limit != s.defaultLimit || params.IncludeInactive {
		return "", false
	}
	if params.Category != "" || params.Query != "" || params.Featured != nil {
		return "", false
	}
	kind := string(params.Kind)
	if kind == "" {
		kind = "all"
	}
	return "list:" + kind, true
}

func detailCacheKey(idOrSlug string) string {
	return "detail:" + strings.ToLower(idOrSlug)
}

func notFound(id string) *common.AppError {
	return common.NotFoundError("product not found", fmt.Errorf("%w: %s", ErrNotFound, id))
}

func badRequest(field, message string, err error) *common.AppError {
	return &common.AppError{
		Code:       "BAD_REQUEST",
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
		Err:        err,
		Details: map[string]any{
			"field": field,
		},
	}
}
