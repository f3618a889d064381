// Package enquiry handles the public contact form and its admin inbox.
package enquiry

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-mithai/internal/common"
	"github.com/noah-isme/backend-mithai/internal/db"
	"github.com/noah-isme/backend-mithai/internal/events"
	"github.com/noah-isme/backend-mithai/internal/obs"
)

// ErrNotFound is returned for unknown enquiries.
var ErrNotFound = errors.New("enquiry not found")

// Status tracks how far the shop has handled an enquiry.
type Status string

const (
	StatusNew        Status = "new"
	StatusInProgress Status = "in-progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusNew, StatusInProgress, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Enquiry is one contact form submission.
type Enquiry struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Phone      string    `json:"phone,omitempty"`
	Subject    string    `json:"subject,omitempty"`
	Message    string    `json:"message"`
	Status     Status    `json:"status"`
	AdminNotes string    `json:"adminNotes,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

func fromRow(row db.Enquiry) Enquiry {
	return Enquiry{
		ID:         db.UUIDString(row.ID),
		Name:       row.Name,
		Email:      row.Email,
		Phone:      row.Phone,
		Subject:    row.Subject,
		Message:    row.Message,
		Status:     Status(row.Status),
		AdminNotes: row.AdminNotes,
		CreatedAt:  row.CreatedAt.Time,
		UpdatedAt:  row.UpdatedAt.Time,
	}
}

// Queries is the persistence surface. *db.Queries satisfies it.
type Queries interface {
	CreateEnquiry(ctx context.Context, arg db.CreateEnquiryParams) (db.Enquiry, error)
	GetEnquiry(ctx context.Context, id pgtype.UUID) (db.Enquiry, error)
	CountEnquiries(ctx context.Context, arg db.EnquiryFilter) (int64, error)
	ListEnquiries(ctx context.Context, arg db.EnquiryFilter) ([]db.Enquiry, error)
	UpdateEnquiry(ctx context.Context, arg db.UpdateEnquiryParams) (db.Enquiry, error)
	DeleteEnquiry(ctx context.Context, id pgtype.UUID) (int64, error)
}

// Emitter publishes domain events.
type Emitter interface {
	Emit(ctx context.Context, topic string, aggregateID string, payload any) (events.Event, error)
}

// Service implements enquiry operations.
type Service struct {
	Q      Queries
	Events Emitter
	Logger zerolog.Logger
}

// Input is the public form payload.
type Input struct {
	Name    string `json:"name" validate:"required,max=120"`
	Email   string `json:"email" validate:"required,email,max=254"`
	Phone   string `json:"phone" validate:"omitempty,min=7,max=20"`
	Subject string `json:"subject" validate:"max=200"`
	Message string `json:"message" validate:"required,min=10,max=5000"`
}

func (in *Input) trim() {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Phone = strings.TrimSpace(in.Phone)
	in.Subject = strings.TrimSpace(in.Subject)
	in.Message = strings.TrimSpace(in.Message)
}

// Update carries an admin change. Nil fields are left untouched.
type Update struct {
	Status     *Status `json:"status"`
	AdminNotes *string `json:"adminNotes" validate:"omitempty,max=2000"`
}

// ListParams filters the admin inbox.
type ListParams struct {
	Status string
	Query  string
	Page   int
	Limit  int
}

func (s *Service) ready() error {
	if s == nil || s.Q == nil {
		return errors.New("enquiry service not configured")
	}
	return nil
}

// Create stores a public submission.
func (s *Service) Create(ctx context.Context, in Input, clientIP string) (Enquiry, error) {
	if err := s.ready(); err != nil {
		return Enquiry{}, err
	}
	in.trim()
	if err := common.ValidateStruct(in); err != nil {
		obs.Inc(obs.EnquiriesTotal, "enquiry", "invalid")
		return Enquiry{}, err
	}
	row, err := s.Q.CreateEnquiry(ctx, db.CreateEnquiryParams{
		ID:       db.UUID(uuid.New()),
		Name:     in.Name,
		Email:    in.Email,
		Phone:    in.Phone,
		Subject:  in.Subject,
		Message:  in.Message,
		ClientIP: clientIP,
	})
	if err != nil {
		obs.Inc(obs.EnquiriesTotal, "enquiry", "error")
		return Enquiry{}, fmt.Errorf("create enquiry: %w", err)
	}
	obs.Inc(obs.EnquiriesTotal, "enquiry", "ok")
	out := fromRow(row)
	s.Logger.Info().Str("enquiry_id", out.ID).Str("client_ip", clientIP).Msg("enquiry received")
	if s.Events != nil {
		payload := map[string]any{"enquiryId": out.ID, "name": out.Name, "email": out.Email, "subject": out.Subject}
		if _, err := s.Events.Emit(ctx, events.TopicEnquiryCreated, out.ID, payload); err != nil {
			s.Logger.Warn().Err(err).Str("enquiry_id", out.ID).Msg("emit enquiry event")
		}
	}
	return out, nil
}

// Get returns one enquiry.
func (s *Service) Get(ctx context.Context, id string) (Enquiry, error) {
	if err := s.ready(); err != nil {
		return Enquiry{}, err
	}
	eid, ok := db.ParseUUID(id)
	if !ok {
		return Enquiry{}, notFound(id)
	}
	row, err := s.Q.GetEnquiry(ctx, eid)
	if errors.Is(err, pgx.ErrNoRows) {
		return Enquiry{}, notFound(id)
	}
	if err != nil {
		return Enquiry{}, fmt.Errorf("get enquiry: %w", err)
	}
	return fromRow(row), nil
}

// List returns enquiries newest first.
func (s *Service) List(ctx context.Context, params ListParams) ([]Enquiry, int64, error) {
	if err := s.ready(); err != nil {
		return nil, 0, err
	}
	if params.Status != "" && !Status(params.Status).Valid() {
		return nil, 0, common.ValidationError("unknown status", map[string]any{"field": "status"})
	}
	if params.Limit < 1 {
		params.Limit = 20
	}
	filter := db.EnquiryFilter{
		Status: db.Text(params.Status),
		Q:      db.Text(params.Query),
		Limit:  int32(params.Limit),
		Offset: int32(common.Offset(params.Page, params.Limit)),
	}
	total, err := s.Q.CountEnquiries(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("count enquiries: %w", err)
	}
	rows, err := s.Q.ListEnquiries(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("list enquiries: %w", err)
	}
	out := make([]Enquiry, 0, len(rows))
	for _, row := range rows {
		out = append(out, fromRow(row))
	}
	return out, total, nil
}

// Update changes status and/or admin notes.
func (s *Service) Update(ctx context.Context, id string, change Update) (Enquiry, error) {
	if err := s.ready(); err != nil {
		return Enquiry{}, err
	}
	if change.Status == nil && change.AdminNotes == nil {
		return Enquiry{}, common.ValidationError("status or adminNotes is required", nil)
	}
	if change.Status != nil && !change.Status.Valid() {
		return Enquiry{}, common.ValidationError("unknown status", map[string]any{"field": "status"})
	}
	if err := common.ValidateStruct(change); err != nil {
		return Enquiry{}, err
	}
	eid, ok := db.ParseUUID(id)
	if !ok {
		return Enquiry{}, notFound(id)
	}
	params := db.UpdateEnquiryParams{ID: eid}
	if change.Status != nil {
		params.Status = pgtype.Text{String: string(*change.Status), Valid: true}
	}
	if change.AdminNotes != nil {
		// A blank value clears the notes.
		params.AdminNotes = pgtype.Text{String: strings.TrimSpace(*change.AdminNotes), Valid: true}
	}
	row, err := s.Q.UpdateEnquiry(ctx, params)
	if errors.Is(err, pgx.ErrNoRows) {
		return Enquiry{}, notFound(id)
	}
	if err != nil {
		return Enquiry{}, fmt.Errorf("update enquiry: %w", err)
	}
	return fromRow(row), nil
}

// Delete removes an enquiry.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.ready(); err != nil {
		return err
	}
	eid, ok := db.ParseUUID(id)
	if !ok {
		return notFound(id)
	}
	n, err := s.Q.DeleteEnquiry(ctx, eid)
	if err != nil {
		return fmt.Errorf("delete enquiry: %w", err)
	}
	if n == 0 {
		return notFound(id)
	}
	return nil
}

func notFound(id string) *common.AppError {
	return common.NotFoundError("enquiry not found", fmt.Errorf("%w: %s", ErrNotFound, id))
}
