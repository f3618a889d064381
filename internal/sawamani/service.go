package sawamani

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-mithai/internal/catalog"
	"github.com/noah-isme/backend-mithai/internal/common"
	"github.com/noah-isme/backend-mithai/internal/db"
	"github.com/noah-isme/backend-mithai/internal/events"
	"github.com/noah-isme/backend-mithai/internal/obs"
)

const dateLayout = "2006-01-02"

// ErrNotFound is returned for unknown requests.
var ErrNotFound = errors.New("sawamani request not found")

// Status tracks a bulk order through the shop's workflow.
type Status string

const (
	StatusNew        Status = "new"
	StatusConfirmed  Status = "confirmed"
	StatusInProgress Status = "in-progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusNew, StatusConfirmed, StatusInProgress, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Request is a stored bulk order request.
type Request struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Phone       string       `json:"phone"`
	Email       string       `json:"email,omitempty"`
	EventDate   string       `json:"eventDate,omitempty"`
	ItemID      string       `json:"itemId,omitempty"`
	Allocations []Allocation `json:"allocations"`
	TotalGrams  int64        `json:"totalGrams"`
	Status      Status       `json:"status"`
	Notes       string       `json:"notes,omitempty"`
	AdminNotes  string       `json:"adminNotes,omitempty"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
}

func fromRow(row db.SawamaniRequest) (Request, error) {
	out := Request{
		ID:         db.UUIDString(row.ID),
		Name:       row.Name,
		Phone:      row.Phone,
		Email:      row.Email,
		TotalGrams: int64(row.TotalGrams),
		Status:     Status(row.Status),
		Notes:      row.Notes,
		AdminNotes: row.AdminNotes,
		CreatedAt:  row.CreatedAt.Time,
		UpdatedAt:  row.UpdatedAt.Time,
	}
	if row.EventDate.Valid {
		out.EventDate = row.EventDate.Time.Format(dateLayout)
	}
	if row.ItemID.Valid {
		out.ItemID = db.UUIDString(row.ItemID)
	}
	if err := json.Unmarshal(row.Allocations, &out.Allocations); err != nil {
		return Request{}, fmt.Errorf("decode allocations: %w", err)
	}
	return out, nil
}

// Queries is the persistence surface. *db.Queries satisfies it.
type Queries interface {
	CreateSawamani(ctx context.Context, arg db.CreateSawamaniParams) (db.SawamaniRequest, error)
	GetSawamani(ctx context.Context, id pgtype.UUID) (db.SawamaniRequest, error)
	CountSawamani(ctx context.Context, arg db.SawamaniFilter) (int64, error)
	ListSawamani(ctx context.Context, arg db.SawamaniFilter) ([]db.SawamaniRequest, error)
	UpdateSawamani(ctx context.Context, arg db.UpdateSawamaniParams) (db.SawamaniRequest, error)
	DeleteSawamani(ctx context.Context, id pgtype.UUID) (int64, error)
}

// Resolver looks up the sweet a request is for.
type Resolver interface {
	Resolve(ctx context.Context, id string) (catalog.Item, error)
}

// Emitter publishes domain events.
type Emitter interface {
	Emit(ctx context.Context, topic string, aggregateID string, payload any) (events.Event, error)
}

// Service implements the bulk order workflow.
type Service struct {
	Q         Queries
	Catalog   Resolver
	Allocator Allocator
	Events    Emitter
	Now       func() time.Time
	Logger    zerolog.Logger
}

// Input is the public form payload.
type Input struct {
	Name      string   `json:"name" validate:"required,max=120"`
	Phone     string   `json:"phone" validate:"required,min=7,max=20"`
	Email     string   `json:"email" validate:"omitempty,email,max=254"`
	EventDate string   `json:"eventDate"`
	ItemID    string   `json:"itemId"`
	Weights   []Weight `json:"weights" validate:"required,min=1"`
	Notes     string   `json:"notes" validate:"max=1000"`
}

// Preview is the allocation shown before submitting, optionally with the item.
type Preview struct {
	Result
	Item *catalog.Item `json:"item,omitempty"`
}

// Update carries an admin change. Nil fields are left untouched.
type Update struct {
	Status     *Status `json:"status"`
	AdminNotes *string `json:"adminNotes" validate:"omitempty,max=2000"`
}

// ListParams filters the admin list.
type ListParams struct {
	Status string
	Query  string
	Page   int
	Limit  int
}

func (s *Service) ready() error {
	if s == nil || s.Q == nil {
		return errors.New("sawamani service not configured")
	}
	return nil
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Packings lists the configured box formats.
func (s *Service) Packings() []Packing {
	return s.Allocator.Packings
}

// Preview allocates weights without storing anything.
func (s *Service) Preview(ctx context.Context, weights []Weight, itemID string) (Preview, error) {
	res, err := s.Allocator.Allocate(weights)
	if err != nil {
		return Preview{}, err
	}
	out := Preview{Result: res}
	if strings.TrimSpace(itemID) != "" {
		item, err := s.item(ctx, itemID)
		if err != nil {
			return Preview{}, err
		}
		out.Item = &item
	}
	return out, nil
}

func (s *Service) item(ctx context.Context, id string) (catalog.Item, error) {
	if s.Catalog == nil {
		return catalog.Item{}, common.ValidationError("itemId is not supported", map[string]any{"field": "itemId"})
	}
	return s.Catalog.Resolve(ctx, strings.TrimSpace(id))
}

func (s *Service) eventDate(raw string) (pgtype.Date, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return pgtype.Date{}, nil
	}
	day, err := time.Parse(dateLayout, raw)
	if err != nil {
		return pgtype.Date{}, common.ValidationError("eventDate must be YYYY-MM-DD", map[string]any{"field": "eventDate"})
	}
	now := s.now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if day.Before(today) {
		return pgtype.Date{}, common.ValidationError("eventDate must not be in the past", map[string]any{"field": "eventDate"})
	}
	return pgtype.Date{Time: day, Valid: true}, nil
}

// Create validates and stores a public request.
func (s *Service) Create(ctx context.Context, in Input) (Request, error) {
	if err := s.ready(); err != nil {
		return Request{}, err
	}
	in.Name = strings.TrimSpace(in.Name)
	in.Phone = strings.TrimSpace(in.Phone)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Notes = strings.TrimSpace(in.Notes)
	if err := common.ValidateStruct(in); err != nil {
		obs.Inc(obs.EnquiriesTotal, "sawamani", "invalid")
		return Request{}, err
	}
	res, err := s.Allocator.Allocate(in.Weights)
	if err != nil {
		obs.Inc(obs.EnquiriesTotal, "sawamani", "invalid")
		return Request{}, err
	}
	date, err := s.eventDate(in.EventDate)
	if err != nil {
		obs.Inc(obs.EnquiriesTotal, "sawamani", "invalid")
		return Request{}, err
	}
	var itemID pgtype.UUID
	if strings.TrimSpace(in.ItemID) != "" {
		item, err := s.item(ctx, in.ItemID)
		if err != nil {
			obs.Inc(obs.EnquiriesTotal, "sawamani", "invalid")
			return Request{}, err
		}
		itemID, _ = db.ParseUUID(item.ID)
	}
	allocations, err := json.Marshal(res.Allocations)
	if err != nil {
		return Request{}, fmt.Errorf("encode allocations: %w", err)
	}
	row, err := s.Q.CreateSawamani(ctx, db.CreateSawamaniParams{
		ID:          db.UUID(uuid.New()),
		Name:        in.Name,
		Phone:       in.Phone,
		Email:       in.Email,
		EventDate:   date,
		ItemID:      itemID,
		Allocations: allocations,
		TotalGrams:  int32(res.TotalGrams),
		Notes:       in.Notes,
	})
	if err != nil {
		obs.Inc(obs.EnquiriesTotal, "sawamani", "error")
		return Request{}, fmt.Errorf("create sawamani: %w", err)
	}
	obs.Inc(obs.EnquiriesTotal, "sawamani", "ok")
	out, err := fromRow(row)
	if err != nil {
		return Request{}, err
	}
	s.Logger.Info().Str("sawamani_id", out.ID).Int64("total_grams", out.TotalGrams).Msg("sawamani request received")
	if s.Events != nil {
		payload := map[string]any{"requestId": out.ID, "name": out.Name, "phone": out.Phone, "totalGrams": out.TotalGrams, "eventDate": out.EventDate}
		if _, err := s.Events.Emit(ctx, events.TopicSawamaniCreated, out.ID, payload); err != nil {
			s.Logger.Warn().Err(err).Str("sawamani_id", out.ID).Msg("emit sawamani event")
		}
	}
	return out, nil
}

// Get returns one request.
func (s *Service) Get(ctx context.Context, id string) (Request, error) {
	if err := s.ready(); err != nil {
		return Request{}, err
	}
	rid, ok := db.ParseUUID(id)
	if !ok {
		return Request{}, notFound(id)
	}
	row, err := s.Q.GetSawamani(ctx, rid)
	if errors.Is(err, pgx.ErrNoRows) {
		return Request{}, notFound(id)
	}
	if err != nil {
		return Request{}, fmt.Errorf("get sawamani: %w", err)
	}
	return fromRow(row)
}

// List returns requests newest first.
func (s *Service) List(ctx context.Context, params ListParams) ([]Request, int64, error) {
	if err := s.ready(); err != nil {
		return nil, 0, err
	}
	if params.Status != "" && !Status(params.Status).Valid() {
		return nil, 0, common.ValidationError("unknown status", map[string]any{"field": "status"})
	}
	if params.Limit < 1 {
		params.Limit = 20
	}
	filter := db.SawamaniFilter{
		Status: db.Text(params.Status),
		Q:      db.Text(params.Query),
		Limit:  int32(params.Limit),
		Offset: int32(common.Offset(params.Page, params.Limit)),
	}
	total, err := s.Q.CountSawamani(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("count sawamani: %w", err)
	}
	rows, err := s.Q.ListSawamani(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("list sawamani: %w", err)
	}
	out := make([]Request, 0, len(rows))
	for _, row := range rows {
		req, err := fromRow(row)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, req)
	}
	return out, total, nil
}

// Update changes status and/or admin notes.
func (s *Service) Update(ctx context.Context, id string, change Update) (Request, error) {
	if err := s.ready(); err != nil {
		return Request{}, err
	}
	if change.Status == nil && change.AdminNotes == nil {
		return Request{}, common.ValidationError("status or adminNotes is required", nil)
	}
	if change.Status != nil && !change.Status.Valid() {
		return Request{}, common.ValidationError("unknown status", map[string]any{"field": "status"})
	}
	if err := common.ValidateStruct(change); err != nil {
		return Request{}, err
	}
	rid, ok := db.ParseUUID(id)
	if !ok {
		return Request{}, notFound(id)
	}
	params := db.UpdateSawamaniParams{ID: rid}
	if change.Status != nil {
		params.Status = pgtype.Text{String: string(*change.Status), Valid: true}
	}
	if change.AdminNotes != nil {
		params.AdminNotes = pgtype.Text{String: strings.TrimSpace(*change.AdminNotes), Valid: true}
	}
	row, err := s.Q.UpdateSawamani(ctx, params)
	if errors.Is(err, pgx.ErrNoRows) {
		return Request{}, notFound(id)
	}
	if err != nil {
		return Request{}, fmt.Errorf("update sawamani: %w", err)
	}
	return fromRow(row)
}

// Delete removes a request.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.ready(); err != nil {
		return err
	}
	rid, ok := db.ParseUUID(id)
	if !ok {
		return notFound(id)
	}
	n, err := s.Q.DeleteSawamani(ctx, rid)
	if err != nil {
		return fmt.Errorf("delete sawamani: %w", err)
	}
	if n == 0 {
		return notFound(id)
	}
	return nil
}

func notFound(id string) *common.AppError {
	return common.NotFoundError("sawamani request not found", fmt.Errorf("%w: %s", ErrNotFound, id))
}
