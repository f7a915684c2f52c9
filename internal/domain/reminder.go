package domain

import (
	"context"
	"errors"
	"time"
)

// ErrSinkUnavailable is returned when the notification sink cannot deliver.
// Delivery is retried on the next dispatch cycle; the error is never escalated.
var ErrSinkUnavailable = errors.New("notification sink unavailable")

// ReminderKind identifies one of the fixed lead-time thresholds before an event.
type ReminderKind string

const (
	Reminder24h ReminderKind = "24h"
	Reminder3h  ReminderKind = "3h"
	Reminder1h  ReminderKind = "1h"
	Reminder30m ReminderKind = "30m"
	Reminder10m ReminderKind = "10m"
)

// ReminderKinds lists every threshold in decreasing lead-time order,
// which is also the delivery order for a single event.
var ReminderKinds = []ReminderKind{Reminder24h, Reminder3h, Reminder1h, Reminder30m, Reminder10m}

// Lead returns the threshold's lead time before the event start.
func (k ReminderKind) Lead() time.Duration {
	switch k {
	case Reminder24h:
		return 24 * time.Hour
	case Reminder3h:
		return 3 * time.Hour
	case Reminder1h:
		return time.Hour
	case Reminder30m:
		return 30 * time.Minute
	case Reminder10m:
		return 10 * time.Minute
	}
	return 0
}

// ReminderReceipt proves that a specific threshold reminder was delivered for
// a specific event. (event_id, kind) is unique; receipts are append-only and
// are the sole source of truth for "already sent".
type ReminderReceipt struct {
	EventID int64        `json:"event_id"`
	Kind    ReminderKind `json:"kind"`
	SentAt  time.Time    `json:"sent_at"`
}

// ReceiptRepository defines storage for reminder receipts.
type ReceiptRepository interface {
	// Kinds returns the set of thresholds already receipted for the event.
	Kinds(ctx context.Context, eventID int64) (map[ReminderKind]struct{}, error)
	// Write records a receipt. Writing an already-existing (event, kind) pair
	// is a no-op, never an error.
	Write(ctx context.Context, eventID int64, kind ReminderKind, sentAt time.Time) error
	ListByEvent(ctx context.Context, eventID int64) ([]*ReminderReceipt, error)
}

// Notifier delivers formatted messages to the fixed media-team destination.
type Notifier interface {
	// Remind delivers the threshold reminder for the event.
	Remind(ctx context.Context, event *EventWithCreator, kind ReminderKind) error
	// Announce delivers the immediate "new event" notification sent on creation.
	Announce(ctx context.Context, event *EventWithCreator) error
}

// EventMirror is the write-behind spreadsheet sink. Every call is best-effort;
// failures are logged by callers and never block the store or the dispatcher.
type EventMirror interface {
	Append(ctx context.Context, event *EventWithCreator) error
	Update(ctx context.Context, event *EventWithCreator) error
	MarkCancelled(ctx context.Context, eventID int64) error
	// MarkPast re-colors the rows of events that already took place.
	MarkPast(ctx context.Context, eventIDs []int64) error
}
