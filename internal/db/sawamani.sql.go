package db

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const sawamaniColumns = `id, name, phone, email, event_date, item_id, allocations, total_grams, status, notes, admin_notes, created_at, updated_at`

func scanSawamani(row pgx.Row) (SawamaniRequest, error) {
	var s SawamaniRequest
	err := row.Scan(
		&s.ID,
		&s.Name,
		&s.Phone,
		&s.Email,
		&s.EventDate,
		&s.ItemID,
		&s.Allocations,
		&s.TotalGrams,
		&s.Status,
		&s.Notes,
		&s.AdminNotes,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	return s, err
}

type CreateSawamaniParams struct {
	ID          pgtype.UUID
	Name        string
	Phone       string
	Email       string
	EventDate   pgtype.Date
	ItemID      pgtype.UUID
	Allocations []byte
	TotalGrams  int32
	Notes       string
}

const createSawamani = `-- name: CreateSawamani :one
INSERT INTO sawamani_requests (id, name, phone, email, event_date, item_id, allocations, total_grams, notes)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
RETURNING ` + sawamaniColumns

func (q *Queries) CreateSawamani(ctx context.Context, arg CreateSawamaniParams) (SawamaniRequest, error) {
	return scanSawamani(q.db.QueryRow(ctx, createSawamani,
		arg.ID, arg.Name, arg.Phone, arg.Email, arg.EventDate, arg.ItemID,
		arg.Allocations, arg.TotalGrams, arg.Notes,
	))
}

const getSawamani = `-- name: GetSawamani :one
SELECT ` + sawamaniColumns + ` FROM sawamani_requests WHERE id = $1`

func (q *Queries) GetSawamani(ctx context.Context, id pgtype.UUID) (SawamaniRequest, error) {
	return scanSawamani(q.db.QueryRow(ctx, getSawamani, id))
}

type SawamaniFilter struct {
	Status pgtype.Text
	Q      pgtype.Text
	Limit  int32
	Offset int32
}

const sawamaniFilterWhere = `
WHERE ($1::text IS NULL OR status = $1)
  AND ($2::text IS NULL OR name ILIKE '%' || $2 || '%' OR phone ILIKE '%' || $2 || '%' OR email ILIKE '%' || $2 || '%')`

const countSawamani = `-- name: CountSawamani :one
SELECT count(*) FROM sawamani_requests` + sawamaniFilterWhere

func (q *Queries) CountSawamani(ctx context.Context, arg SawamaniFilter) (int64, error) {
	var count int64
	err := q.db.QueryRow(ctx, countSawamani, arg.Status, arg.Q).Scan(&count)
	return count, err
}

const listSawamani = `-- name: ListSawamani :many
SELECT ` + sawamaniColumns + ` FROM sawamani_requests` + sawamaniFilterWhere + `
ORDER BY created_at DESC, id
LIMIT $3 OFFSET $4`

func (q *Queries) ListSawamani(ctx context.Context, arg SawamaniFilter) ([]SawamaniRequest, error) {
	rows, err := q.db.Query(ctx, listSawamani, arg.Status, arg.Q, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []SawamaniRequest{}
	for rows.Next() {
		s, err := scanSawamani(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, s)
	}
	return list, rows.Err()
}

type UpdateSawamaniParams struct {
	ID         pgtype.UUID
	Status     pgtype.Text
	AdminNotes pgtype.Text
}

const updateSawamani = `-- name: UpdateSawamani :one
UPDATE sawamani_requests
SET status = COALESCE($2, status), admin_notes = COALESCE($3, admin_notes), updated_at = now()
WHERE id = $1
RETURNING ` + sawamaniColumns

func (q *Queries) UpdateSawamani(ctx context.Context, arg UpdateSawamaniParams) (SawamaniRequest, error) {
	return scanSawamani(q.db.QueryRow(ctx, updateSawamani, arg.ID, arg.Status, arg.AdminNotes))
}

const deleteSawamani = `-- name: DeleteSawamani :execrows
DELETE FROM sawamani_requests WHERE id = $1`

func (q *Queries) DeleteSawamani(ctx context.Context, id pgtype.UUID) (int64, error) {
	tag, err := q.db.Exec(ctx, deleteSawamani, id)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
