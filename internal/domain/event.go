package domain

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrNotFound is returned when a referenced event does not exist or is already cancelled.
var ErrNotFound = errors.New("event not found")

// ErrValidation is returned when create/edit input is malformed.
var ErrValidation = errors.New("invalid event fields")

// DateLayout and TimeLayout are the wire formats events are entered and stored in.
const (
	DateLayout = "02.01.2006"
	TimeLayout = "15:04"
)

// Event represents a scheduled university event.
type Event struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Date      string    `json:"date"` // DD.MM.YYYY
	Time      string    `json:"time"` // HH:MM, 24-hour
	Place     string    `json:"place"`
	Comment   string    `json:"comment,omitempty"`
	CreatedBy int64     `json:"created_by"`
	Cancelled bool      `json:"cancelled"`
	CreatedAt time.Time `json:"created_at"`
}

// EventWithCreator bundles an event with the creator fields needed for notifications.
type EventWithCreator struct {
	Event
	CreatorName       string `json:"creator_name"`
	CreatorDepartment string `json:"creator_department"`
	CreatorPhone      string `json:"creator_phone"`
}

// OccursAt derives the single absolute timestamp the event starts at,
// interpreting the stored date and time in loc. All scheduling arithmetic
// uses this value.
func (e *Event) OccursAt(loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout+" "+TimeLayout, e.Date+" "+e.Time, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse event datetime %q %q: %w", e.Date, e.Time, err)
	}
	return t, nil
}

// ValidateDate checks that s is a real calendar date in DD.MM.YYYY form.
func ValidateDate(s string) error {
	if _, err := time.Parse(DateLayout, s); err != nil {
		return fmt.Errorf("%w: date %q", ErrValidation, s)
	}
	return nil
}

// ValidateTime checks that s is a valid 24-hour time in HH:MM form.
func ValidateTime(s string) error {
	if _, err := time.Parse(TimeLayout, s); err != nil {
		return fmt.Errorf("%w: time %q", ErrValidation, s)
	}
	return nil
}

// ValidateText checks that a required text field is non-empty.
func ValidateText(field, s string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s must not be empty", ErrValidation, field)
	}
	return nil
}

// EventPatch carries the fields an edit may change. Nil means "leave as is".
type EventPatch struct {
	Title   *string
	Date    *string
	Time    *string
	Place   *string
	Comment *string
}

// IsEmpty reports whether the patch changes nothing.
func (p EventPatch) IsEmpty() bool {
	return p.Title == nil && p.Date == nil && p.Time == nil && p.Place == nil && p.Comment == nil
}

// EventRepository defines the interface for event storage.
// Events are never physically deleted; cancellation is a soft flag so
// receipt history stays intact.
type EventRepository interface {
	Create(ctx context.Context, event *Event) error
	GetByID(ctx context.Context, id int64) (*EventWithCreator, error)
	// ListUpcoming returns all non-cancelled events joined with their creator,
	// ordered by date then time. The dispatch engine applies the time window
	// itself so the store needs no clock.
	ListUpcoming(ctx context.Context) ([]*EventWithCreator, error)
	ListByCreator(ctx context.Context, userID int64) ([]*EventWithCreator, error)
	Update(ctx context.Context, id int64, patch EventPatch) (*Event, error)
	Cancel(ctx context.Context, id int64) error
	CountActive(ctx context.Context) (int, error)
	CountByDepartment(ctx context.Context) (map[string]int, error)
}

// EventService defines the event lifecycle operations (create, edit, cancel).
type EventService interface {
	Create(ctx context.Context, input CreateEventInput) (*EventWithCreator, error)
	Get(ctx context.Context, id int64) (*EventWithCreator, error)
	ListUpcoming(ctx context.Context) ([]*EventWithCreator, error)
	ListMine(ctx context.Context, userID int64) ([]*EventWithCreator, error)
	Edit(ctx context.Context, id int64, patch EventPatch) (*Event, error)
	Cancel(ctx context.Context, id int64) error
	// SweepPast marks already-started events as past in the spreadsheet
	// mirror. Invoked by the daily maintenance job.
	SweepPast(ctx context.Context) error
}

// CreateEventInput carries the validated user submission for a new event.
type CreateEventInput struct {
	Title     string
	Date      string
	Time      string
	Place     string
	Comment   string
	CreatedBy int64
}
