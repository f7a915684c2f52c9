package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"campusevents/internal/domain"
	"campusevents/internal/metrics"
)

// receiptWriteAttempts bounds the synchronous retries of a receipt write after
// a confirmed delivery. Exhaustion means the pair may double-send once on the
// next cycle; that edge case is logged, not hidden.
const receiptWriteAttempts = 3

// Dispatcher is the reminder dispatch engine. On every wake-up it computes
// which (event, threshold) pairs have entered their notification window, have
// not yet passed the event start, and carry no receipt, then delivers exactly
// one notification per pair and records a receipt on success.
//
// The engine keeps no delivery state in memory between cycles; persisted
// receipts are the only source of truth, which makes it safe to restart at
// any point.
type Dispatcher struct {
	events   domain.EventRepository
	receipts domain.ReceiptRepository
	notifier domain.Notifier
	clock    domain.Clock
	logger   *slog.Logger

	// running is the only cycle-scoped state: set while a cycle is in
	// flight so overlapping wake-ups are skipped, never run concurrently.
	running atomic.Bool
}

// NewDispatcher wires a Dispatcher.
func NewDispatcher(events domain.EventRepository, receipts domain.ReceiptRepository, notifier domain.Notifier, clock domain.Clock, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		events:   events,
		receipts: receipts,
		notifier: notifier,
		clock:    clock,
		logger:   logger,
	}
}

// duePair is one qualifying (event, threshold) pair within a cycle.
type duePair struct {
	event    *domain.EventWithCreator
	kind     domain.ReminderKind
	occursAt time.Time
}

// RunCycle executes one poll-and-dispatch pass. It never panics the loop:
// per-pair failures are logged and the pass continues; the returned error
// covers only a failed event listing, which the scheduler logs and retries
// on the next wake-up.
func (d *Dispatcher) RunCycle(ctx context.Context) error {
	if !d.running.CompareAndSwap(false, true) {
		metrics.DispatchCyclesSkipped.Inc()
		d.logger.Warn("dispatch cycle still running, skipping wake-up")
		return nil
	}
	defer d.running.Store(false)

	start := time.Now()
	cycleID := uuid.NewString()[:8]
	log := d.logger.With("cycle_id", cycleID)

	// One clock read per cycle; every pair in this pass is judged against
	// the same instant.
	now := d.clock.Now()

	events, err := d.events.ListUpcoming(ctx)
	if err != nil {
		return fmt.Errorf("list upcoming events: %w", err)
	}
	d.refreshStats(ctx, log, len(events))

	due := d.collectDue(ctx, log, events, now)

	// Nearest event first; within one event, longest lead first; ties by id.
	sort.Slice(due, func(i, j int) bool {
		if !due[i].occursAt.Equal(due[j].occursAt) {
			return due[i].occursAt.Before(due[j].occursAt)
		}
		if due[i].kind.Lead() != due[j].kind.Lead() {
			return due[i].kind.Lead() > due[j].kind.Lead()
		}
		return due[i].event.ID < due[j].event.ID
	})

	sent := 0
	for _, pair := range due {
		if err := d.dispatchPair(ctx, log, pair, now); err != nil {
			continue
		}
		sent++
	}

	metrics.DispatchCycles.Inc()
	metrics.DispatchDuration.Observe(float64(time.Since(start).Milliseconds()))
	if len(due) > 0 || sent > 0 {
		log.Info("dispatch cycle finished", "due", len(due), "sent", sent, "events", len(events))
	} else {
		log.Debug("dispatch cycle finished, nothing due", "events", len(events))
	}
	return nil
}

// refreshStats updates the inventory gauges. Stats are informational; a
// failure here never affects the dispatch pass.
func (d *Dispatcher) refreshStats(ctx context.Context, log *slog.Logger, active int) {
	metrics.ActiveEvents.Set(float64(active))
	counts, err := d.events.CountByDepartment(ctx)
	if err != nil {
		log.Warn("failed to refresh department stats", "err", err)
		return
	}
	metrics.EventsByDepartment.Reset()
	for dept, n := range counts {
		metrics.EventsByDepartment.WithLabelValues(dept).Set(float64(n))
	}
}

// collectDue applies the window predicate to every event and threshold:
// the window has opened (occursAt - lead <= now), the event has not started
// (now < occursAt), and no receipt exists for the pair.
func (d *Dispatcher) collectDue(ctx context.Context, log *slog.Logger, events []*domain.EventWithCreator, now time.Time) []duePair {
	var due []duePair
	for _, ev := range events {
		occursAt, err := ev.OccursAt(d.clock.Location())
		if err != nil {
			log.Warn("skipping event with unparseable schedule", "event_id", ev.ID, "err", err)
			continue
		}
		// A threshold is never fired retroactively once the event started.
		if !now.Before(occursAt) {
			continue
		}

		receipted, err := d.receipts.Kinds(ctx, ev.ID)
		if err != nil {
			log.Error("failed to load receipts, skipping event this cycle", "event_id", ev.ID, "err", err)
			continue
		}

		for _, kind := range domain.ReminderKinds {
			if now.Before(occursAt.Add(-kind.Lead())) {
				continue // window not open yet
			}
			if _, ok := receipted[kind]; ok {
				continue // already delivered
			}
			due = append(due, duePair{event: ev, kind: kind, occursAt: occursAt})
		}
	}
	return due
}

// dispatchPair delivers one reminder and records its receipt. A delivery
// failure leaves the pair eligible for the next cycle; a receipt write is
// retried synchronously because losing it would double-send.
func (d *Dispatcher) dispatchPair(ctx context.Context, log *slog.Logger, pair duePair, now time.Time) error {
	if err := d.notifier.Remind(ctx, pair.event, pair.kind); err != nil {
		metrics.DeliveryFailures.Inc()
		if errors.Is(err, domain.ErrSinkUnavailable) {
			log.Warn("sink unavailable, will retry next cycle",
				"event_id", pair.event.ID, "kind", string(pair.kind))
		} else {
			log.Error("delivery failed, will retry next cycle",
				"event_id", pair.event.ID, "kind", string(pair.kind), "err", err)
		}
		return err
	}

	var writeErr error
	for attempt := 1; attempt <= receiptWriteAttempts; attempt++ {
		writeErr = d.receipts.Write(ctx, pair.event.ID, pair.kind, now)
		if writeErr == nil {
			break
		}
		log.Warn("receipt write failed",
			"event_id", pair.event.ID, "kind", string(pair.kind),
			"attempt", attempt, "err", writeErr)
	}
	if writeErr != nil {
		// Sent but unrecorded: at most one duplicate can follow next cycle.
		metrics.ReceiptWriteFailures.Inc()
		log.Error("receipt write exhausted retries, reminder sent but unrecorded",
			"event_id", pair.event.ID, "kind", string(pair.kind), "err", writeErr)
		return writeErr
	}

	metrics.RemindersSent.WithLabelValues(string(pair.kind)).Inc()
	log.Info("reminder delivered",
		"event_id", pair.event.ID, "kind", string(pair.kind),
		"title", pair.event.Title, "occurs_at", pair.occursAt)
	return nil
}
