package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/dayboard/internal/models"
)

const eventColumns = "id, title, type, start_date, created_at"

// EventRepository reads and writes the events table.
type EventRepository struct {
	db  *sqlx.DB
	now func() time.Time
}

// NewEventRepository constructs an event repository.
func NewEventRepository(db *sqlx.DB) *EventRepository {
	return &EventRepository{db: db, now: time.Now}
}

// ListAll returns every row ordered by start_date, oldest first. created_at breaks ties so that
// equal timestamps come back in insertion order.
func (r *EventRepository) ListAll(ctx context.Context) ([]models.Event, error) {
	query := fmt.Sprintf("SELECT %s FROM events ORDER BY start_date ASC, created_at ASC", eventColumns)
	var events []models.Event
	if err := r.db.SelectContext(ctx, &events, query); err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	if events == nil {
		events = []models.Event{}
	}
	return events, nil
}

// Create inserts one row; the id is generated here so the caller gets the stored identity back.
func (r *EventRepository) Create(ctx context.Context, event *models.Event) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = r.now().UTC()
	}
	const query = `INSERT INTO events (id, title, type, start_date, created_at)
VALUES (:id, :title, :type, :start_date, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, event); err != nil {
		return fmt.Errorf("create event: %w", err)
	}
	return nil
}

// Ping checks connectivity for readiness probes.
func (r *EventRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}
