package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"campusevents/internal/domain"
)

// fakeClock is a deterministic Clock for tests.
type fakeClock struct {
	now time.Time
	loc *time.Location
}

func newFakeClock(now time.Time) *fakeClock {
	return &fakeClock{now: now, loc: now.Location()}
}

func (c *fakeClock) Now() time.Time           { return c.now }
func (c *fakeClock) Location() *time.Location { return c.loc }
func (c *fakeClock) Set(t time.Time)          { c.now = t }
func (c *fakeClock) Advance(d time.Duration)  { c.now = c.now.Add(d) }

// fakeEventRepo is an in-memory EventRepository.
type fakeEventRepo struct {
	byID    map[int64]*domain.EventWithCreator
	nextID  int64
	listErr error
}

func newFakeEventRepo() *fakeEventRepo {
	return &fakeEventRepo{
		byID:   make(map[int64]*domain.EventWithCreator),
		nextID: 1,
	}
}

func (f *fakeEventRepo) Create(ctx context.Context, e *domain.Event) error {
	e.ID = f.nextID
	f.nextID++
	f.byID[e.ID] = &domain.EventWithCreator{
		Event:             *e,
		CreatorName:       "Aziz Karimov",
		CreatorDepartment: "Media markazi",
		CreatorPhone:      "+998901234567",
	}
	return nil
}

func (f *fakeEventRepo) GetByID(ctx context.Context, id int64) (*domain.EventWithCreator, error) {
	if e, ok := f.byID[id]; ok {
		copied := *e
		return &copied, nil
	}
	return nil, domain.ErrNotFound
}

func (f *fakeEventRepo) ListUpcoming(ctx context.Context) ([]*domain.EventWithCreator, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []*domain.EventWithCreator
	for _, e := range f.byID {
		if e.Cancelled {
			continue
		}
		copied := *e
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeEventRepo) ListByCreator(ctx context.Context, userID int64) ([]*domain.EventWithCreator, error) {
	var out []*domain.EventWithCreator
	for _, e := range f.byID {
		if e.CreatedBy == userID && !e.Cancelled {
			copied := *e
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (f *fakeEventRepo) Update(ctx context.Context, id int64, patch domain.EventPatch) (*domain.Event, error) {
	e, ok := f.byID[id]
	if !ok || e.Cancelled {
		return nil, domain.ErrNotFound
	}
	if patch.Title != nil {
		e.Title = *patch.Title
	}
	if patch.Date != nil {
		e.Date = *patch.Date
	}
	if patch.Time != nil {
		e.Time = *patch.Time
	}
	if patch.Place != nil {
		e.Place = *patch.Place
	}
	if patch.Comment != nil {
		e.Comment = *patch.Comment
	}
	copied := e.Event
	return &copied, nil
}

func (f *fakeEventRepo) Cancel(ctx context.Context, id int64) error {
	e, ok := f.byID[id]
	if !ok || e.Cancelled {
		return domain.ErrNotFound
	}
	e.Cancelled = true
	return nil
}

func (f *fakeEventRepo) CountActive(ctx context.Context) (int, error) {
	n := 0
	for _, e := range f.byID {
		if !e.Cancelled {
			n++
		}
	}
	return n, nil
}

func (f *fakeEventRepo) CountByDepartment(ctx context.Context) (map[string]int, error) {
	counts := make(map[string]int)
	for _, e := range f.byID {
		if !e.Cancelled {
			counts[e.CreatorDepartment]++
		}
	}
	return counts, nil
}

// addEvent seeds an event with the given schedule and returns its id.
func (f *fakeEventRepo) addEvent(date, tm string) int64 {
	e := &domain.Event{
		Title:     fmt.Sprintf("Tadbir %d", f.nextID),
		Date:      date,
		Time:      tm,
		Place:     "Bosh bino",
		CreatedBy: 100,
	}
	_ = f.Create(context.Background(), e)
	return e.ID
}

// fakeReceiptRepo is an in-memory ReceiptRepository with injectable failures.
type fakeReceiptRepo struct {
	receipts   map[string]*domain.ReminderReceipt
	writeCalls int
	failWrites int // fail this many writes before succeeding
	kindsErr   error
}

func newFakeReceiptRepo() *fakeReceiptRepo {
	return &fakeReceiptRepo{receipts: make(map[string]*domain.ReminderReceipt)}
}

func receiptKey(eventID int64, kind domain.ReminderKind) string {
	return fmt.Sprintf("%d/%s", eventID, kind)
}

func (f *fakeReceiptRepo) Kinds(ctx context.Context, eventID int64) (map[domain.ReminderKind]struct{}, error) {
	if f.kindsErr != nil {
		return nil, f.kindsErr
	}
	kinds := make(map[domain.ReminderKind]struct{})
	for _, r := range f.receipts {
		if r.EventID == eventID {
			kinds[r.Kind] = struct{}{}
		}
	}
	return kinds, nil
}

func (f *fakeReceiptRepo) Write(ctx context.Context, eventID int64, kind domain.ReminderKind, sentAt time.Time) error {
	f.writeCalls++
	if f.failWrites > 0 {
		f.failWrites--
		return fmt.Errorf("injected receipt write failure")
	}
	key := receiptKey(eventID, kind)
	if _, ok := f.receipts[key]; ok {
		return nil // idempotent, like ON CONFLICT DO NOTHING
	}
	f.receipts[key] = &domain.ReminderReceipt{EventID: eventID, Kind: kind, SentAt: sentAt}
	return nil
}

func (f *fakeReceiptRepo) ListByEvent(ctx context.Context, eventID int64) ([]*domain.ReminderReceipt, error) {
	var out []*domain.ReminderReceipt
	for _, r := range f.receipts {
		if r.EventID == eventID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeReceiptRepo) has(eventID int64, kind domain.ReminderKind) bool {
	_, ok := f.receipts[receiptKey(eventID, kind)]
	return ok
}

type delivery struct {
	eventID int64
	kind    domain.ReminderKind
}

// fakeNotifier records deliveries and can fail a number of attempts.
type fakeNotifier struct {
	delivered   []delivery
	announced   []int64
	failRemind  int // fail this many Remind calls before succeeding
	announceErr error
}

func (f *fakeNotifier) Remind(ctx context.Context, event *domain.EventWithCreator, kind domain.ReminderKind) error {
	if f.failRemind > 0 {
		f.failRemind--
		return domain.ErrSinkUnavailable
	}
	f.delivered = append(f.delivered, delivery{eventID: event.ID, kind: kind})
	return nil
}

func (f *fakeNotifier) Announce(ctx context.Context, event *domain.EventWithCreator) error {
	if f.announceErr != nil {
		return f.announceErr
	}
	f.announced = append(f.announced, event.ID)
	return nil
}

// fakeMirror records mirror calls.
type fakeMirror struct {
	appended  []int64
	updated   []int64
	cancelled []int64
	past      [][]int64
	err       error
}

func (f *fakeMirror) Append(ctx context.Context, event *domain.EventWithCreator) error {
	if f.err != nil {
		return f.err
	}
	f.appended = append(f.appended, event.ID)
	return nil
}

func (f *fakeMirror) Update(ctx context.Context, event *domain.EventWithCreator) error {
	if f.err != nil {
		return f.err
	}
	f.updated = append(f.updated, event.ID)
	return nil
}

func (f *fakeMirror) MarkCancelled(ctx context.Context, eventID int64) error {
	if f.err != nil {
		return f.err
	}
	f.cancelled = append(f.cancelled, eventID)
	return nil
}

func (f *fakeMirror) MarkPast(ctx context.Context, eventIDs []int64) error {
	if f.err != nil {
		return f.err
	}
	f.past = append(f.past, eventIDs)
	return nil
}

// fakeUserRepo is an in-memory UserRepository.
type fakeUserRepo struct {
	byID map[int64]*domain.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{byID: make(map[int64]*domain.User)}
}

func (f *fakeUserRepo) Create(ctx context.Context, u *domain.User) error {
	if _, ok := f.byID[u.TelegramID]; ok {
		return domain.ErrDuplicateUser
	}
	copied := *u
	f.byID[u.TelegramID] = &copied
	return nil
}

func (f *fakeUserRepo) GetByID(ctx context.Context, telegramID int64) (*domain.User, error) {
	if u, ok := f.byID[telegramID]; ok {
		copied := *u
		return &copied, nil
	}
	return nil, domain.ErrUserNotFound
}
