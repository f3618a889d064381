package enquiry_test

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/noah-isme/backend-mithai/internal/db"
	"github.com/noah-isme/backend-mithai/internal/events"
)

type memQueries struct {
	mu   sync.Mutex
	rows []db.Enquiry
}

func (m *memQueries) CreateEnquiry(_ context.Context, arg db.CreateEnquiryParams) (db.Enquiry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := db.Timestamptz(time.Date(2026, 3, 14, 10, 0, len(m.rows), 0, time.UTC))
	row := db.Enquiry{
		ID:        arg.ID,
		Name:      arg.Name,
		Email:     arg.Email,
		Phone:     arg.Phone,
		Subject:   arg.Subject,
		Message:   arg.Message,
		Status:    "new",
		ClientIP:  arg.ClientIP,
		CreatedAt: now,
		UpdatedAt: now,
	}
	m.rows = append(m.rows, row)
	return row, nil
}

func (m *memQueries) GetEnquiry(_ context.Context, id pgtype.UUID) (db.Enquiry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, row := range m.rows {
		if row.ID == id {
			return row, nil
		}
	}
	return db.Enquiry{}, pgx.ErrNoRows
}

func (m *memQueries) match(arg db.EnquiryFilter) []db.Enquiry {
	var out []db.Enquiry
	for i := len(m.rows) - 1; i >= 0; i-- {
		row := m.rows[i]
		if arg.Status.Valid && row.Status != arg.Status.String {
			continue
		}
		if arg.Q.Valid && !strings.Contains(row.Name+row.Email+row.Subject, arg.Q.String) {
			continue
		}
		out = append(out, row)
	}
	return out
}

func (m *memQueries) CountEnquiries(_ context.Context, arg db.EnquiryFilter) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.match(arg))), nil
}

func (m *memQueries) ListEnquiries(_ context.Context, arg db.EnquiryFilter) ([]db.Enquiry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := m.match(arg)
	start := min(int(arg.Offset), len(all))
	end := min(start+int(arg.Limit), len(all))
	return all[start:end], nil
}

func (m *memQueries) UpdateEnquiry(_ context.Context, arg db.UpdateEnquiryParams) (db.Enquiry, error) {
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
	return db.Enquiry{}, pgx.ErrNoRows
}

func (m *memQueries) DeleteEnquiry(_ context.Context, id pgtype.UUID) (int64, error) {
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
