package sawamani_test

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/noah-isme/backend-mithai/internal/catalog"
	"github.com/noah-isme/backend-mithai/internal/common"
	"github.com/noah-isme/backend-mithai/internal/db"
	"github.com/noah-isme/backend-mithai/internal/events"
)

type memQueries struct {
	mu   sync.Mutex
	rows []db.SawamaniRequest
}

func (m *memQueries) CreateSawamani(_ context.Context, arg db.CreateSawamaniParams) (db.SawamaniRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := db.Timestamptz(time.Date(2026, 3, 14, 10, 0, len(m.rows), 0, time.UTC))
	row := db.SawamaniRequest{
		ID:          arg.ID,
		Name:        arg.Name,
		Phone:       arg.Phone,
		Email:       arg.Email,
		EventDate:   arg.EventDate,
		ItemID:      arg.ItemID,
		Allocations: arg.Allocations,
		TotalGrams:  arg.TotalGrams,
		Status:      "new",
		Notes:       arg.Notes,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	m.rows = append(m.rows, row)
	return row, nil
}

func (m *memQueries) GetSawamani(_ context.Context, id pgtype.UUID) (db.SawamaniRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, row := range m.rows {
		if row.ID == id {
			return row, nil
		}
	}
	return db.SawamaniRequest{}, pgx.ErrNoRows
}

func (m *memQueries) match(arg db.SawamaniFilter) []db.SawamaniRequest {
	var out []db.SawamaniRequest
	for i := len(m.rows) - 1; i >= 0; i-- {
		row := m.rows[i]
		if arg.Status.Valid && row.Status != arg.Status.String {
			continue
		}
		if arg.Q.Valid && !strings.Contains(row.Name+row.Phone+row.Email, arg.Q.String) {
			continue
		}
		out = append(out, row)
	}
	return out
}

func (m *memQueries) CountSawamani(_ context.Context, arg db.SawamaniFilter) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.match(arg))), nil
}

func (m *memQueries) ListSawamani(_ context.Context, arg db.SawamaniFilter) ([]db.SawamaniRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := m.match(arg)
	start := min(int(arg.Offset), len(all))
	end := min(start+int(arg.Limit), len(all))
	return all[start:end], nil
}

func (m *memQueries) UpdateSawamani(_ context.Context, arg db.UpdateSawamaniParams) (db.SawamaniRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.rows {
		row := &m.rows[i]
		if row.ID != arg.ID {
			continue
		}
		if arg.Status.Valid {
			row.Status = arg.Status.String
		}
		if arg.AdminNotes.Valid {
			row.AdminNotes = arg.AdminNotes.String
		}
		return *row, nil
	}
	return db.SawamaniRequest{}, pgx.ErrNoRows
}

func (m *memQueries) DeleteSawamani(_ context.Context, id pgtype.UUID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, row := range m.rows {
		if row.ID == id {
			m.rows = append(m.rows[:i], m.rows[i+1:]...)
			return 1, nil
		}
	}
	return 0, nil
}

type stubCatalog map[string]catalog.Item

func (s stubCatalog) Resolve(_ context.Context, id string) (catalog.Item, error) {
	it, ok := s[id]
	if !ok || !it.IsActive {
		return catalog.Item{}, common.NotFoundError("product not found", catalog.ErrNotFound)
	}
	return it, nil
}

type recordingEmitter struct {
	mu     sync.Mutex
	topics []string
}

func (r *recordingEmitter) Emit(_ context.Context, topic, aggregateID string, _ any) (events.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.topics = append(r.topics, topic)
	return events.Event{ID: uuid.NewString(), Topic: topic, AggregateID: aggregateID}, nil
}
