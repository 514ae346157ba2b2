package service

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/dayboard/internal/models"
	appErrors "github.com/noah-isme/dayboard/pkg/errors"
)

type eventRepository interface {
	ListAll(ctx context.Context) ([]models.Event, error)
	Create(ctx context.Context, event *models.Event) error
}

type changePublisher interface {
	Publish(ctx context.Context, change models.Change) error
}

// CreateEventRequest is the add-item form payload.
type CreateEventRequest struct {
	Title string `json:"title" validate:"required,max=200"`
	Type  string `json:"type" validate:"required,event_type"`
}

// EventStoreService wraps fetch-all and insert against the events table.
type EventStoreService struct {
	repo      eventRepository
	publisher changePublisher
	validator *validator.Validate
	metrics   *MetricsService
	logger    *zap.Logger
	now       func() time.Time
}

// EventStoreParams groups constructor dependencies. Publisher is only set for the Redis realtime driver;
// the Postgres driver relies on the table trigger.
type EventStoreParams struct {
	Repo      eventRepository
	Publisher changePublisher
	Validator *validator.Validate
	Metrics   *MetricsService
	Logger    *zap.Logger
}

// NewEventStoreService constructs the service.
func NewEventStoreService(params EventStoreParams) *EventStoreService {
	validate := params.Validator
	if validate == nil {
		validate = validator.New()
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &EventStoreService{
		repo:      params.Repo,
		publisher: params.Publisher,
		validator: validate,
		metrics:   params.Metrics,
		logger:    logger,
		now:       time.Now,
	}
	_ = svc.validator.RegisterValidation("event_type", func(fl validator.FieldLevel) bool {
		_, err := models.ParseEventType(fl.Field().String())
		return err == nil
	})
	return svc
}

// FetchAll loads every event ordered by start_date. Rows that break the Event invariants are logged and
// skipped rather than failing the whole load.
func (s *EventStoreService) FetchAll(ctx context.Context) ([]models.Event, error) {
	start := time.Now()
	events, err := s.repo.ListAll(ctx)
	s.metrics.ObserveDBQuery("events_list", time.Since(start), err)
	if err != nil {
		return nil, appErrors.Store(err, "failed to load events")
	}

	valid := events[:0]
	for _, ev := range events {
		if verr := ev.Validate(); verr != nil {
			s.logger.Warn("skipping invalid event row", zap.String("id", ev.ID), zap.Error(verr))
			continue
		}
		valid = append(valid, ev)
	}
	return valid, nil
}

// Create inserts a new item stamped with the current time. The stored row is returned, but the live
// collection only learns about it through the change feed.
func (s *EventStoreService) Create(ctx context.Context, req CreateEventRequest) (*models.Event, error) {
	req.Title = strings.TrimSpace(req.Title)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	kind, err := models.ParseEventType(req.Type)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}

	event := &models.Event{
		Title:     req.Title,
		Type:      kind,
		StartDate: s.now().UTC(),
	}
	start := time.Now()
	err = s.repo.Create(ctx, event)
	s.metrics.ObserveDBQuery("events_insert", time.Since(start), err)
	if err != nil {
		return nil, appErrors.Store(err, "failed to save event")
	}

	if s.publisher != nil {
		change := models.Change{Kind: models.ChangeInsert, Table: models.EventsTable, New: event}
		if perr := s.publisher.Publish(ctx, change); perr != nil {
			s.logger.Warn("event saved but change relay failed", zap.String("id", event.ID), zap.Error(perr))
		}
	}
	s.logger.Info("event created", zap.String("id", event.ID), zap.String("type", string(event.Type)))
	return event, nil
}
