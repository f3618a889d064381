package db

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const catalogItemColumns = `id, kind, name, slug, description, category, images, price, tiers, contents, is_active, is_featured, created_at, updated_at`

func scanCatalogItem(row pgx.Row) (CatalogItem, error) {
	var i CatalogItem
	err := row.Scan(
		&i.ID,
		&i.Kind,
		&i.Name,
		&i.Slug,
		&i.Description,
		&i.Category,
		&i.Images,
		&i.Price,
		&i.Tiers,
		&i.Contents,
		&i.IsActive,
		&i.IsFeatured,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const getCatalogItem = `-- name: GetCatalogItem :one
SELECT ` + catalogItemColumns + ` FROM catalog_items WHERE id = $1`

func (q *Queries) GetCatalogItem(ctx context.Context, id pgtype.UUID) (CatalogItem, error) {
	return scanCatalogItem(q.db.QueryRow(ctx, getCatalogItem, id))
}

const getCatalogItemBySlug = `-- name: GetCatalogItemBySlug :one
SELECT ` + catalogItemColumns + ` FROM catalog_items WHERE slug = $1`

func (q *Queries) GetCatalogItemBySlug(ctx context.Context, slug string) (CatalogItem, error) {
	return scanCatalogItem(q.db.QueryRow(ctx, getCatalogItemBySlug, slug))
}

const getCatalogItemsByIDs = `-- name: GetCatalogItemsByIDs :many
SELECT ` + catalogItemColumns + ` FROM catalog_items WHERE id = ANY($1::uuid[])`

func (q *Queries) GetCatalogItemsByIDs(ctx context.Context, ids []pgtype.UUID) ([]CatalogItem, error) {
	rows, err := q.db.Query(ctx, getCatalogItemsByIDs, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []CatalogItem
	for rows.Next() {
		i, err := scanCatalogItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

// CatalogFilter narrows catalog listings. NULL fields do not filter.
type CatalogFilter struct {
	Kind            pgtype.Text
	Category        pgtype.Text
	Q               pgtype.Text
	Featured        pgtype.Bool
	IncludeInactive bool
	Limit           int32
	Offset          int32
}

const catalogFilterWhere = `
WHERE ($1::text IS NULL OR kind = $1)
  AND ($2::text IS NULL OR category = $2)
  AND ($3::text IS NULL OR name ILIKE '%' || $3 || '%' OR description ILIKE '%' || $3 || '%')
  AND ($4::bool IS NULL OR is_featured = $4)
  AND ($5::bool OR is_active)`

const countCatalogItems = `-- name: CountCatalogItems :one
SELECT count(*) FROM catalog_items` + catalogFilterWhere

func (q *Queries) CountCatalogItems(ctx context.Context, arg CatalogFilter) (int64, error) {
	var count int64
	err := q.db.QueryRow(ctx, countCatalogItems, arg.Kind, arg.Category, arg.Q, arg.Featured, arg.IncludeInactive).Scan(&count)
	return count, err
}

const listCatalogItems = `-- name: ListCatalogItems :many
SELECT ` + catalogItemColumns + ` FROM catalog_items` + catalogFilterWhere + `
ORDER BY is_featured DESC, created_at DESC, id
LIMIT $6 OFFSET $7`

func (q *Queries) ListCatalogItems(ctx context.Context, arg CatalogFilter) ([]CatalogItem, error) {
	rows, err := q.db.Query(ctx, listCatalogItems, arg.Kind, arg.Category, arg.Q, arg.Featured, arg.IncludeInactive, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []CatalogItem{}
	for rows.Next() {
		i, err := scanCatalogItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

type UpsertCatalogItemParams struct {
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
}

const createCatalogItem = `-- name: CreateCatalogItem :one
INSERT INTO catalog_items (id, kind, name, slug, description, category, images, price, tiers, contents, is_active, is_featured)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
RETURNING ` + catalogItemColumns

func (q *Queries) CreateCatalogItem(ctx context.Context, arg UpsertCatalogItemParams) (CatalogItem, error) {
	return scanCatalogItem(q.db.QueryRow(ctx, createCatalogItem,
		arg.ID, arg.Kind, arg.Name, arg.Slug, arg.Description, arg.Category,
		arg.Images, arg.Price, arg.Tiers, arg.Contents, arg.IsActive, arg.IsFeatured,
	))
}

const updateCatalogItem = `-- name: UpdateCatalogItem :one
UPDATE catalog_items
SET kind = $2, name = $3, slug = $4, description = $5, category = $6, images = $7,
    price = $8, tiers = $9, contents = $10, is_active = $11, is_featured = $12, updated_at = now()
WHERE id = $1
RETURNING ` + catalogItemColumns

func (q *Queries) UpdateCatalogItem(ctx context.Context, arg UpsertCatalogItemParams) (CatalogItem, error) {
	return scanCatalogItem(q.db.QueryRow(ctx, updateCatalogItem,
		arg.ID, arg.Kind, arg.Name, arg.Slug, arg.Description, arg.Category,
		arg.Images, arg.Price, arg.Tiers, arg.Contents, arg.IsActive, arg.IsFeatured,
	))
}

const deleteCatalogItem = `-- name: DeleteCatalogItem :execrows
DELETE FROM catalog_items WHERE id = $1`

func (q *Queries) DeleteCatalogItem(ctx context.Context, id pgtype.UUID) (int64, error) {
	tag, err := q.db.Exec(ctx, deleteCatalogItem, id)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
