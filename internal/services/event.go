package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"campusevents/internal/domain"
	"campusevents/internal/metrics"
)

type eventService struct {
	events         domain.EventRepository
	notifier       domain.Notifier
	mirror         domain.EventMirror
	clock          domain.Clock
	logger         *slog.Logger
	contextTimeout time.Duration
}

// NewEventService wires the event lifecycle manager. The notifier and mirror
// calls are best-effort side channels; a failure there never rejects the
// lifecycle operation itself.
func NewEventService(events domain.EventRepository, notifier domain.Notifier, mirror domain.EventMirror, clock domain.Clock, logger *slog.Logger, timeout time.Duration) domain.EventService {
	return &eventService{
		events:         events,
		notifier:       notifier,
		mirror:         mirror,
		clock:          clock,
		logger:         logger,
		contextTimeout: timeout,
	}
}

func (s *eventService) Create(ctx context.Context, input domain.CreateEventInput) (*domain.EventWithCreator, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if err := validateEventFields(input.Title, input.Date, input.Time, input.Place); err != nil {
		return nil, err
	}
	if input.CreatedBy == 0 {
		return nil, fmt.Errorf("%w: event creator is required", domain.ErrValidation)
	}

	event := &domain.Event{
		Title:     input.Title,
		Date:      input.Date,
		Time:      input.Time,
		Place:     input.Place,
		Comment:   input.Comment,
		CreatedBy: input.CreatedBy,
		CreatedAt: s.clock.Now(),
	}
	if err := s.events.Create(ctx, event); err != nil {
		return nil, fmt.Errorf("create event: %w", err)
	}
	metrics.EventsCreated.Inc()

	created, err := s.events.GetByID(ctx, event.ID)
	if err != nil {
		return nil, fmt.Errorf("load created event: %w", err)
	}

	if err := s.notifier.Announce(ctx, created); err != nil {
		s.logger.Warn("new event announcement failed", "event_id", created.ID, "err", err)
	}
	if err := s.mirror.Append(ctx, created); err != nil {
		s.logger.Warn("sheet mirror append failed", "event_id", created.ID, "err", err)
	}

	return created, nil
}

func (s *eventService) Get(ctx context.Context, id int64) (*domain.EventWithCreator, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()
	return s.events.GetByID(ctx, id)
}

func (s *eventService) ListUpcoming(ctx context.Context) ([]*domain.EventWithCreator, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()
	return s.events.ListUpcoming(ctx)
}

func (s *eventService) ListMine(ctx context.Context, userID int64) ([]*domain.EventWithCreator, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()
	return s.events.ListByCreator(ctx, userID)
}

// Edit updates an existing, non-cancelled event. Rescheduling deliberately
// leaves prior receipts alone: moving later re-opens only the unreceipted
// thresholds, moving earlier keeps receipted ones suppressed even if their
// new window already closed.
func (s *eventService) Edit(ctx context.Context, id int64, patch domain.EventPatch) (*domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if patch.IsEmpty() {
		return nil, fmt.Errorf("%w: nothing to change", domain.ErrValidation)
	}
	if err := validatePatch(patch); err != nil {
		return nil, err
	}

	current, err := s.events.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	if current.Cancelled {
		return nil, domain.ErrNotFound
	}

	updated, err := s.events.Update(ctx, id, patch)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("update event: %w", err)
	}

	if refreshed, err := s.events.GetByID(ctx, id); err == nil {
		if err := s.mirror.Update(ctx, refreshed); err != nil {
			s.logger.Warn("sheet mirror update failed", "event_id", id, "err", err)
		}
	}

	return updated, nil
}

// Cancel marks the event cancelled. The dispatch predicate excludes cancelled
// events, so no receipt cleanup is needed.
func (s *eventService) Cancel(ctx context.Context, id int64) error {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if err := s.events.Cancel(ctx, id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("cancel event: %w", err)
	}
	metrics.EventsCancelled.Inc()

	if err := s.mirror.MarkCancelled(ctx, id); err != nil {
		s.logger.Warn("sheet mirror cancel mark failed", "event_id", id, "err", err)
	}
	return nil
}

// SweepPast collects non-cancelled events whose start already passed and asks
// the mirror to gray their rows. Runs from the daily maintenance job.
func (s *eventService) SweepPast(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	events, err := s.events.ListUpcoming(ctx)
	if err != nil {
		return fmt.Errorf("list events for sweep: %w", err)
	}
	now := s.clock.Now()
	var past []int64
	for _, ev := range events {
		occursAt, err := ev.OccursAt(s.clock.Location())
		if err != nil {
			s.logger.Warn("skipping event with unparseable schedule in sweep", "event_id", ev.ID, "err", err)
			continue
		}
		if !occursAt.After(now) {
			past = append(past, ev.ID)
		}
	}
	if len(past) == 0 {
		return nil
	}
	if err := s.mirror.MarkPast(ctx, past); err != nil {
		return fmt.Errorf("mark past events in mirror: %w", err)
	}
	s.logger.Info("past events swept in mirror", "count", len(past))
	return nil
}

func validateEventFields(title, date, tm, place string) error {
	if err := domain.ValidateText("title", title); err != nil {
		return err
	}
	if err := domain.ValidateDate(date); err != nil {
		return err
	}
	if err := domain.ValidateTime(tm); err != nil {
		return err
	}
	return domain.ValidateText("place", place)
}

func validatePatch(patch domain.EventPatch) error {
	if patch.Title != nil {
		if err := domain.ValidateText("title", *patch.Title); err != nil {
			return err
		}
	}
	if patch.Date != nil {
		if err := domain.ValidateDate(*patch.Date); err != nil {
			return err
		}
	}
	if patch.Time != nil {
		if err := domain.ValidateTime(*patch.Time); err != nil {
			return err
		}
	}
	if patch.Place != nil {
		if err := domain.ValidateText("place", *patch.Place); err != nil {
			return err
		}
	}
	return nil
}
