package catalog_test

import (
	"context"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/noah-isme/backend-mithai/internal/db"
)

type fakeCatalogQueries struct {
	mu     sync.Mutex
	items  map[pgtype.UUID]db.CatalogItem
	gets   int
	lists  int
	clock  time.Time
	orderd []pgtype.UUID
}

func newFakeCatalogQueries(t *testing.T) *fakeCatalogQueries {
	t.Helper()
	return &fakeCatalogQueries{items: map[pgtype.UUID]db.CatalogItem{}, clock: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (f *fakeCatalogQueries) seed(kind, name, slug string, price int64, tiers string, active bool) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := db.UUID(uuid.New())
	f.clock = f.clock.Add(time.Minute)
	f.items[id] = db.CatalogItem{
		ID:        id,
		Kind:      kind,
		Name:      name,
		Slug:      slug,
		Category:  "sweets",
		Images:    []string{"https://cdn.example/" + slug + ".jpg"},
		Price:     price,
		Tiers:     []byte(tiers),
		IsActive:  active,
		CreatedAt: db.Timestamptz(f.clock),
		UpdatedAt: db.Timestamptz(f.clock),
	}
	f.orderd = append(f.orderd, id)
	return db.UUIDString(id)
}

func (f *fakeCatalogQueries) GetCatalogItem(_ context.Context, id pgtype.UUID) (db.CatalogItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gets++
	item, ok := f.items[id]
	if !ok {
		return db.CatalogItem{}, pgx.ErrNoRows
	}
	return item, nil
}

func (f *fakeCatalogQueries) GetCatalogItemBySlug(_ context.Context, slug string) (db.CatalogItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gets++
	for _, item := range f.items {
		if item.Slug == slug {
			return item, nil
		}
	}
	return db.CatalogItem{}, pgx.ErrNoRows
}

func (f *fakeCatalogQueries) GetCatalogItemsByIDs(_ context.Context, ids []pgtype.UUID) ([]db.CatalogItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []db.CatalogItem
	for _, id := range ids {
		if item, ok := f.items[id]; ok {
			out = append(out, item)
		}
	}
	return out, nil
}

func (f *fakeCatalogQueries) filtered(arg db.CatalogFilter) []db.CatalogItem {
	var out []db.CatalogItem
	for _, id := range f.orderd {
		item, ok := f.items[id]
		if !ok {
			continue
		}
		if arg.Kind.Valid && item.Kind != arg.Kind.String {
			continue
		}
		if arg.Category.Valid && item.Category != arg.Category.String {
			continue
		}
		if arg.Q.Valid && !strings.Contains(strings.ToLower(item.Name), strings.ToLower(arg.Q.String)) {
			continue
		}
		if arg.Featured.Valid && item.IsFeatured != arg.Featured.Bool {
			continue
		}
		if !arg.IncludeInactive && !item.IsActive {
			continue
		}
		out = append(out, item)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Time.After(out[j].CreatedAt.Time) })
	return out
}

func (f *fakeCatalogQueries) CountCatalogItems(_ context.Context, arg db.CatalogFilter) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.filtered(arg))), nil
}

func (f *fakeCatalogQueries) ListCatalogItems(_ context.Context, arg db.CatalogFilter) ([]db.CatalogItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lists++
	all := f.filtered(arg)
	start := min(int(arg.Offset), len(all))
	end := min(start+int(arg.Limit), len(all))
	return all[start:end], nil
}

func (f *fakeCatalogQueries) CreateCatalogItem(_ context.Context, arg db.UpsertCatalogItemParams) (db.CatalogItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, item := range f.items {
		if item.Slug == arg.Slug {
			return db.CatalogItem{}, &pgconn.PgError{Code: "23505", Message: "duplicate key"}
		}
	}
	f.clock = f.clock.Add(time.Minute)
	row := rowFromParams(arg, f.clock)
	f.items[arg.ID] = row
	f.orderd = append(f.orderd, arg.ID)
	return row, nil
}

func (f *fakeCatalogQueries) UpdateCatalogItem(_ context.Context, arg db.UpsertCatalogItemParams) (db.CatalogItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	existing, ok := f.items[arg.ID]
	if !ok {
		return db.CatalogItem{}, pgx.ErrNoRows
	}
	f.clock = f.clock.Add(time.Minute)
	row := rowFromParams(arg, f.clock)
	row.CreatedAt = existing.CreatedAt
	f.items[arg.ID] = row
	return row, nil
}

func (f *fakeCatalogQueries) DeleteCatalogItem(_ context.Context, id pgtype.UUID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.items[id]; !ok {
		return 0, nil
	}
	delete(f.items, id)
	return 1, nil
}

func rowFromParams(arg db.UpsertCatalogItemParams, at time.Time) db.CatalogItem {
	return db.CatalogItem{
		ID:          arg.ID,
		Kind:        arg.Kind,
		Name:        arg.Name,
		Slug:        arg.Slug,
		Description: arg.Description,
		Category:    arg.Category,
		Images:      arg.Images,
		Price:       arg.Price,
		Tiers:       arg.Tiers,
		Contents:    arg.Contents,
		IsActive:    arg.IsActive,
		IsFeatured:  arg.IsFeatured,
		CreatedAt:   db.Timestamptz(at),
		UpdatedAt:   db.Timestamptz(at),
	}
}
