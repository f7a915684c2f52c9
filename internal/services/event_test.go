package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campusevents/internal/domain"
)

func newTestEventService(t *testing.T) (domain.EventService, *fakeEventRepo, *fakeNotifier, *fakeMirror, *fakeClock) {
	t.Helper()
	events := newFakeEventRepo()
	notifier := &fakeNotifier{}
	mirror := &fakeMirror{}
	clock := newFakeClock(time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC))
	svc := NewEventService(events, notifier, mirror, clock, testLogger(), time.Second)
	return svc, events, notifier, mirror, clock
}

func validInput() domain.CreateEventInput {
	return domain.CreateEventInput{
		Title:     "Ochiq eshiklar kuni",
		Date:      "10.03.2025",
		Time:      "15:00",
		Place:     "Bosh bino, 2-qavat",
		Comment:   "Fotosessiya kerak",
		CreatedBy: 100,
	}
}

func TestEventService_Create(t *testing.T) {
	ctx := context.Background()
	svc, _, notifier, mirror, clock := newTestEventService(t)

	created, err := svc.Create(ctx, validInput())
	require.NoError(t, err)
	assert.NotZero(t, created.ID)
	assert.Equal(t, "Ochiq eshiklar kuni", created.Title)
	assert.False(t, created.Cancelled)
	assert.Equal(t, clock.Now(), created.CreatedAt)

	// Creation announces to the media team and mirrors to the sheet.
	assert.Equal(t, []int64{created.ID}, notifier.announced)
	assert.Equal(t, []int64{created.ID}, mirror.appended)
}

func TestEventService_CreateValidation(t *testing.T) {
	ctx := context.Background()
	svc, _, notifier, _, _ := newTestEventService(t)

	tests := []struct {
		name   string
		mutate func(*domain.CreateEventInput)
	}{
		{"empty title", func(in *domain.CreateEventInput) { in.Title = "  " }},
		{"impossible date", func(in *domain.CreateEventInput) { in.Date = "31.02.2025" }},
		{"wrong date format", func(in *domain.CreateEventInput) { in.Date = "2025-03-10" }},
		{"invalid hour", func(in *domain.CreateEventInput) { in.Time = "25:00" }},
		{"invalid minute", func(in *domain.CreateEventInput) { in.Time = "12:61" }},
		{"empty place", func(in *domain.CreateEventInput) { in.Place = "" }},
		{"missing creator", func(in *domain.CreateEventInput) { in.CreatedBy = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := validInput()
			tt.mutate(&input)
			_, err := svc.Create(ctx, input)
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrValidation)
		})
	}
	// Rejected submissions produce no announcements.
	assert.Empty(t, notifier.announced)
}

func TestEventService_CreateSurvivesAnnounceFailure(t *testing.T) {
	ctx := context.Background()
	svc, _, notifier, mirror, _ := newTestEventService(t)
	notifier.announceErr = domain.ErrSinkUnavailable

	created, err := svc.Create(ctx, validInput())
	require.NoError(t, err)
	assert.NotZero(t, created.ID)
	assert.Equal(t, []int64{created.ID}, mirror.appended)
}

func TestEventService_Edit(t *testing.T) {
	ctx := context.Background()
	svc, _, _, mirror, _ := newTestEventService(t)
	created, err := svc.Create(ctx, validInput())
	require.NoError(t, err)

	newTime := "18:30"
	updated, err := svc.Edit(ctx, created.ID, domain.EventPatch{Time: &newTime})
	require.NoError(t, err)
	assert.Equal(t, "18:30", updated.Time)
	assert.Equal(t, created.Date, updated.Date)
	assert.Equal(t, []int64{created.ID}, mirror.updated)
}

func TestEventService_EditErrors(t *testing.T) {
	ctx := context.Background()
	svc, events, _, _, _ := newTestEventService(t)
	created, err := svc.Create(ctx, validInput())
	require.NoError(t, err)

	newTitle := "Yangi nom"
	badDate := "99.99.2025"

	t.Run("unknown event", func(t *testing.T) {
		_, err := svc.Edit(ctx, 12345, domain.EventPatch{Title: &newTitle})
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("empty patch", func(t *testing.T) {
		_, err := svc.Edit(ctx, created.ID, domain.EventPatch{})
		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("invalid date", func(t *testing.T) {
		_, err := svc.Edit(ctx, created.ID, domain.EventPatch{Date: &badDate})
		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("cancelled event", func(t *testing.T) {
		require.NoError(t, events.Cancel(ctx, created.ID))
		_, err := svc.Edit(ctx, created.ID, domain.EventPatch{Title: &newTitle})
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestEventService_Cancel(t *testing.T) {
	ctx := context.Background()
	svc, events, _, mirror, _ := newTestEventService(t)
	created, err := svc.Create(ctx, validInput())
	require.NoError(t, err)

	require.NoError(t, svc.Cancel(ctx, created.ID))
	stored, err := events.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, stored.Cancelled)
	assert.Equal(t, []int64{created.ID}, mirror.cancelled)

	// Cancelling again or cancelling an unknown id reports not found.
	assert.ErrorIs(t, svc.Cancel(ctx, created.ID), domain.ErrNotFound)
	assert.ErrorIs(t, svc.Cancel(ctx, 999), domain.ErrNotFound)
}

func TestEventService_CancelSurvivesMirrorFailure(t *testing.T) {
	ctx := context.Background()
	svc, events, _, mirror, _ := newTestEventService(t)
	created, err := svc.Create(ctx, validInput())
	require.NoError(t, err)

	mirror.err = errors.New("injected mirror failure")
	require.NoError(t, svc.Cancel(ctx, created.ID))
	stored, err := events.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, stored.Cancelled)
}

func TestEventService_SweepPast(t *testing.T) {
	ctx := context.Background()
	svc, events, _, mirror, clock := newTestEventService(t)

	past := events.addEvent("28.02.2025", "09:00")
	events.addEvent("10.03.2025", "15:00") // still upcoming
	cancelled := events.addEvent("27.02.2025", "09:00")
	require.NoError(t, events.Cancel(ctx, cancelled))

	clock.Set(time.Date(2025, 3, 1, 0, 5, 0, 0, time.UTC))
	require.NoError(t, svc.SweepPast(ctx))

	require.Len(t, mirror.past, 1)
	assert.Equal(t, []int64{past}, mirror.past[0])
}

func TestEventService_SweepPastNothingToDo(t *testing.T) {
	ctx := context.Background()
	svc, events, _, mirror, _ := newTestEventService(t)
	events.addEvent("10.03.2025", "15:00")

	require.NoError(t, svc.SweepPast(ctx))
	assert.Empty(t, mirror.past)
}
