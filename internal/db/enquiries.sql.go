package db

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const enquiryColumns = `id, name, email, phone, subject, message, status, admin_notes, client_ip, created_at, updated_at`

func scanEnquiry(row pgx.Row) (Enquiry, error) {
	var e Enquiry
	err := row.Scan(
		&e.ID,
		&e.Name,
		&e.Email,
		&e.Phone,
		&e.Subject,
		&e.Message,
		&e.Status,
		&e.AdminNotes,
		&e.ClientIP,
		&e.CreatedAt,
		&e.UpdatedAt,
	)
	return e, err
}

type CreateEnquiryParams struct {
	ID       pgtype.UUID
	Name     string
	Email    string
	Phone    string
	Subject  string
	Message  string
	ClientIP string
}

const createEnquiry = `-- name: CreateEnquiry :one
INSERT INTO enquiries (id, name, email, phone, subject, message, client_ip)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING ` + enquiryColumns

func (q *Queries) CreateEnquiry(ctx context.Context, arg CreateEnquiryParams) (Enquiry, error) {
	return scanEnquiry(q.db.QueryRow(ctx, createEnquiry,
		arg.ID, arg.Name, arg.Email, arg.Phone, arg.Subject, arg.Message, arg.ClientIP,
	))
}

const getEnquiry = `-- name: GetEnquiry :one
SELECT ` + enquiryColumns + ` FROM enquiries WHERE id = $1`

func (q *Queries) GetEnquiry(ctx context.Context, id pgtype.UUID) (Enquiry, error) {
	return scanEnquiry(q.db.QueryRow(ctx, getEnquiry, id))
}

type EnquiryFilter struct {
	Status pgtype.Text
	Q      pgtype.Text
	Limit  int32
	Offset int32
}

const enquiryFilterWhere = `
WHERE ($1::text IS NULL OR status = $1)
  AND ($2::text IS NULL OR name ILIKE '%' || $2 || '%' OR email ILIKE '%' || $2 || '%' OR subject ILIKE '%' || $2 || '%')`

const countEnquiries = `-- name: CountEnquiries :one
SELECT count(*) FROM enquiries` + enquiryFilterWhere

func (q *Queries) CountEnquiries(ctx context.Context, arg EnquiryFilter) (int64, error) {
	var count int64
	err := q.db.QueryRow(ctx, countEnquiries, arg.Status, arg.Q).Scan(&count)
	return count, err
}

const listEnquiries = `-- name: ListEnquiries :many
SELECT ` + enquiryColumns + ` FROM enquiries` + enquiryFilterWhere + `
ORDER BY created_at DESC, id
LIMIT $3 OFFSET $4`

func (q *Queries) ListEnquiries(ctx context.Context, arg EnquiryFilter) ([]Enquiry, error) {
	rows, err := q.db.Query(ctx, listEnquiries, arg.Status, arg.Q, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []Enquiry{}
	for rows.Next() {
		e, err := scanEnquiry(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, e)
	}
	return list, rows.Err()
}

type UpdateEnquiryParams struct {
	ID         pgtype.UUID
	Status     pgtype.Text
	AdminNotes pgtype.Text
}

const updateEnquiry = `-- name: UpdateEnquiry :one
UPDATE enquiries
SET status = COALESCE($2, status), admin_notes = COALESCE($3, admin_notes), updated_at = now()
WHERE id = $1
RETURNING ` + enquiryColumns

func (q *Queries) UpdateEnquiry(ctx context.Context, arg UpdateEnquiryParams) (Enquiry, error) {
	return scanEnquiry(q.db.QueryRow(ctx, updateEnquiry, arg.ID, arg.Status, arg.AdminNotes))
}

const deleteEnquiry = `-- name: DeleteEnquiry :execrows
DELETE FROM enquiries WHERE id = $1`

func (q *Queries) DeleteEnquiry(ctx context.Context, id pgtype.UUID) (int64, error) {
	tag, err := q.db.Exec(ctx, deleteEnquiry, id)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
