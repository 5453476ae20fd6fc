package theater

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/clinicore/clinicore/internal/platform/apperr"
	"github.com/clinicore/clinicore/internal/platform/audit"
	"github.com/clinicore/clinicore/internal/platform/auth"
)

type mockTheaterRepo struct {
	theaters map[uuid.UUID]*Theater
}

func newMockTheaterRepo() *mockTheaterRepo {
	return &mockTheaterRepo{theaters: make(map[uuid.UUID]*Theater)}
}

func (m *mockTheaterRepo) Create(ctx context.Context, t *Theater) error {
	t.ID = uuid.New()
	cp := *t
	m.theaters[t.ID] = &cp
	return nil
}

func (m *mockTheaterRepo) GetByID(ctx context.Context, id uuid.UUID) (*Theater, error) {
	t, ok := m.theaters[id]
	if !ok {
		return nil, errors.New("no rows")
	}
	cp := *t
	return &cp, nil
}

func (m *mockTheaterRepo) Update(ctx context.Context, t *Theater) error {
	cp := *t
	m.theaters[t.ID] = &cp
	return nil
}

func (m *mockTheaterRepo) List(ctx context.Context, limit, offset int) ([]*Theater, int, error) {
	var items []*Theater
	for _, t := range m.theaters {
		cp := *t
		items = append(items, &cp)
	}
	return items, len(items), nil
}

type mockBookingRepo struct {
	bookings map[uuid.UUID]*TheaterBooking
}

func newMockBookingRepo() *mockBookingRepo {
	return &mockBookingRepo{bookings: make(map[uuid.UUID]*TheaterBooking)}
}

func (m *mockBookingRepo) Create(ctx context.Context, b *TheaterBooking) error {
	b.ID = uuid.New()
	cp := *b
	m.bookings[b.ID] = &cp
	return nil
}

func (m *mockBookingRepo) GetByID(ctx context.Context, id uuid.UUID) (*TheaterBooking, error) {
	b, ok := m.bookings[id]
	if !ok {
		return nil, errors.New("no rows")
	}
	cp := *b
	return &cp, nil
}

func (m *mockBookingRepo) Update(ctx context.Context, b *TheaterBooking) error {
	cp := *b
	m.bookings[b.ID] = &cp
	return nil
}

func (m *mockBookingRepo) FindOverlapping(ctx context.Context, theaterID uuid.UUID, start, end time.Time) ([]*TheaterBooking, error) {
	var items []*TheaterBooking
	for _, b := range m.bookings {
		if b.TheaterID == theaterID && b.Status != StatusCancelled && b.Overlaps(start, end) {
			cp := *b
			items = append(items, &cp)
		}
	}
	return items, nil
}

func (m *mockBookingRepo) FindLiveByCase(ctx context.Context, caseID uuid.UUID) ([]*TheaterBooking, error) {
	var items []*TheaterBooking
	for _, b := range m.bookings {
		if b.CaseID == caseID && b.Status != StatusCancelled {
			cp := *b
			items = append(items, &cp)
		}
	}
	return items, nil
}

func (m *mockBookingRepo) DeleteForCase(ctx context.Context, caseID, keep uuid.UUID) error {
	for id, b := range m.bookings {
		if b.CaseID == caseID && id != keep {
			delete(m.bookings, id)
		}
	}
	return nil
}

func (m *mockBookingRepo) ActiveLocksByUser(ctx context.Context, userID, excludeCase uuid.UUID, now time.Time) ([]*TheaterBooking, error) {
	var items []*TheaterBooking
	for _, b := range m.bookings {
		if b.LockedBy == userID && b.CaseID != excludeCase && b.Status == StatusProvisional && !b.Expired(now) {
			cp := *b
			items = append(items, &cp)
		}
	}
	return items, nil
}

func (m *mockBookingRepo) ListByTheater(ctx context.Context, theaterID uuid.UUID, from, to time.Time) ([]*TheaterBooking, error) {
	var items []*TheaterBooking
	for _, b := range m.bookings {
		if b.TheaterID == theaterID && b.Overlaps(from, to) {
			cp := *b
			items = append(items, &cp)
		}
	}
	return items, nil
}

type schedulerCall struct {
	caseID uuid.UUID
	action string
	reason string
}

type mockScheduler struct {
	calls []schedulerCall
}

func (m *mockScheduler) MarkScheduled(ctx context.Context, caseID uuid.UUID, actor auth.Actor) error {
	m.calls = append(m.calls, schedulerCall{caseID: caseID, action: "scheduled"})
	return nil
}

func (m *mockScheduler) ReturnToBookablePool(ctx context.Context, caseID uuid.UUID, reason string, actor auth.Actor) error {
	m.calls = append(m.calls, schedulerCall{caseID: caseID, action: "returned", reason: reason})
	return nil
}

type captureSink struct {
	events []audit.Event
}

func (s *captureSink) Write(ctx context.Context, ev audit.Event) error {
	s.events = append(s.events, ev)
	return nil
}

type fixture struct {
	ledger    *Ledger
	theaters  *mockTheaterRepo
	bookings  *mockBookingRepo
	scheduler *mockScheduler
	sink      *captureSink
	clock     time.Time
	theaterID uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		theaters:  newMockTheaterRepo(),
		bookings:  newMockBookingRepo(),
		scheduler: &mockScheduler{},
		sink:      &captureSink{},
		clock:     time.Date(2026, 3, 9, 8, 0, 0, 0, time.UTC),
	}
	f.ledger = NewLedger(nil, f.theaters, f.bookings, f.scheduler,
		audit.NewRecorder(f.sink, zerolog.Nop()), zerolog.Nop(), DefaultLockTTL, DefaultLockQuota)
	f.ledger.runTx = func(ctx context.Context, fn func(ctx context.Context) error) error {
		return fn(ctx)
	}
	f.ledger.now = func() time.Time { return f.clock }

	th := &Theater{Name: "Theater 1", Location: "Level 2"}
	if err := f.ledger.CreateTheater(context.Background(), th); err != nil {
		t.Fatalf("create theater: %v", err)
	}
	f.theaterID = th.ID
	return f
}

func (f *fixture) slot(startHour, endHour int) (time.Time, time.Time) {
	day := time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)
	return day.Add(time.Duration(startHour) * time.Hour), day.Add(time.Duration(endHour) * time.Hour)
}

func (f *fixture) lock(t *testing.T, caseID, userID uuid.UUID, startHour, endHour int) *TheaterBooking {
	t.Helper()
	start, end := f.slot(startHour, endHour)
	b, err := f.ledger.LockSlot(context.Background(), LockRequest{
		CaseID: caseID, TheaterID: f.theaterID, Start: start, End: end, UserID: userID,
	})
	if err != nil {
		t.Fatalf("lock slot: %v", err)
	}
	return b
}

func TestLockSlot_CreatesProvisionalHold(t *testing.T) {
	f := newFixture(t)
	userID := uuid.New()

	b := f.lock(t, uuid.New(), userID, 9, 11)

	if b.Status != StatusProvisional {
		t.Fatalf("status = %q, want PROVISIONAL", b.Status)
	}
	if b.LockExpiresAt == nil || !b.LockExpiresAt.Equal(f.clock.Add(DefaultLockTTL)) {
		t.Fatalf("lock_expires_at = %v, want %v", b.LockExpiresAt, f.clock.Add(DefaultLockTTL))
	}
	if b.LockedBy != userID {
		t.Fatalf("locked_by = %v, want %v", b.LockedBy, userID)
	}
}

func TestLockSlot_IdempotentRetryDoesNotExtendTTL(t *testing.T) {
	f := newFixture(t)
	caseID, userID := uuid.New(), uuid.New()

	first := f.lock(t, caseID, userID, 9, 11)
	f.clock = f.clock.Add(2 * time.Minute)
	second := f.lock(t, caseID, userID, 9, 11)

	if second.ID != first.ID {
		t.Fatalf("retry created a new booking %v, want %v", second.ID, first.ID)
	}
	if !second.LockExpiresAt.Equal(*first.LockExpiresAt) {
		t.Fatalf("retry extended the TTL from %v to %v", first.LockExpiresAt, second.LockExpiresAt)
	}
	if len(f.bookings.bookings) != 1 {
		t.Fatalf("got %d bookings, want 1", len(f.bookings.bookings))
	}
}

func TestLockSlot_QuotaEnforcedPerUser(t *testing.T) {
	f := newFixture(t)
	userID := uuid.New()

	f.lock(t, uuid.New(), userID, 8, 9)
	f.lock(t, uuid.New(), userID, 9, 10)
	f.lock(t, uuid.New(), userID, 10, 11)

	start, end := f.slot(11, 12)
	_, err := f.ledger.LockSlot(context.Background(), LockRequest{
		CaseID: uuid.New(), TheaterID: f.theaterID, Start: start, End: end, UserID: userID,
	})
	if !errors.Is(err, ErrLockQuota) {
		t.Fatalf("err = %v, want ErrLockQuota", err)
	}
	if apperr.KindOf(err) != apperr.KindQuotaExceeded {
		t.Fatalf("kind = %v, want KindQuotaExceeded", apperr.KindOf(err))
	}

	// Another user is unaffected by the first user's quota.
	f.lock(t, uuid.New(), uuid.New(), 11, 12)
}

func TestLockSlot_RetryDoesNotConsumeQuota(t *testing.T) {
	f := newFixture(t)
	userID := uuid.New()
	caseID := uuid.New()

	f.lock(t, caseID, userID, 8, 9)
	f.lock(t, caseID, userID, 8, 9)
	f.lock(t, caseID, userID, 8, 9)
	f.lock(t, uuid.New(), userID, 9, 10)
	f.lock(t, uuid.New(), userID, 10, 11)
}

func TestLockSlot_ConflictsWithLiveBookings(t *testing.T) {
	f := newFixture(t)

	f.lock(t, uuid.New(), uuid.New(), 9, 11)

	start, end := f.slot(10, 12)
	_, err := f.ledger.LockSlot(context.Background(), LockRequest{
		CaseID: uuid.New(), TheaterID: f.theaterID, Start: start, End: end, UserID: uuid.New(),
	})
	if !errors.Is(err, ErrSlotConflict) {
		t.Fatalf("err = %v, want ErrSlotConflict", err)
	}
}

func TestLockSlot_ExpiredHoldDoesNotBlock(t *testing.T) {
	f := newFixture(t)

	f.lock(t, uuid.New(), uuid.New(), 9, 11)
	f.clock = f.clock.Add(DefaultLockTTL + time.Second)

	f.lock(t, uuid.New(), uuid.New(), 9, 11)
}

func TestLockSlot_AbuttingSlotsDoNotConflict(t *testing.T) {
	f := newFixture(t)

	f.lock(t, uuid.New(), uuid.New(), 9, 11)
	f.lock(t, uuid.New(), uuid.New(), 11, 13)
}

func TestLockSlot_SupersedesStaleBookingForCase(t *testing.T) {
	f := newFixture(t)
	caseID, userID := uuid.New(), uuid.New()

	old := f.lock(t, caseID, userID, 9, 11)
	fresh := f.lock(t, caseID, userID, 13, 15)

	if _, ok := f.bookings.bookings[old.ID]; ok {
		t.Fatal("stale booking survived re-lock")
	}
	if _, ok := f.bookings.bookings[fresh.ID]; !ok {
		t.Fatal("fresh booking missing")
	}
}

func TestLockSlot_InactiveTheaterRejected(t *testing.T) {
	f := newFixture(t)
	th, _ := f.theaters.GetByID(context.Background(), f.theaterID)
	th.IsActive = false
	f.theaters.Update(context.Background(), th)

	start, end := f.slot(9, 11)
	_, err := f.ledger.LockSlot(context.Background(), LockRequest{
		CaseID: uuid.New(), TheaterID: f.theaterID, Start: start, End: end, UserID: uuid.New(),
	})
	if apperr.KindOf(err) != apperr.KindValidation {
		t.Fatalf("kind = %v, want KindValidation", apperr.KindOf(err))
	}
}

func TestConfirmBooking_HolderConfirms(t *testing.T) {
	f := newFixture(t)
	caseID, userID := uuid.New(), uuid.New()
	b := f.lock(t, caseID, userID, 9, 11)

	got, err := f.ledger.ConfirmBooking(context.Background(), b.ID, auth.Actor{ID: userID, Role: auth.RoleScheduler})
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if got.Status != StatusConfirmed {
		t.Fatalf("status = %q, want CONFIRMED", got.Status)
	}
	if got.ConfirmedBy == nil || *got.ConfirmedBy != userID {
		t.Fatalf("confirmed_by = %v, want %v", got.ConfirmedBy, userID)
	}
	if len(f.scheduler.calls) != 1 || f.scheduler.calls[0].action != "scheduled" || f.scheduler.calls[0].caseID != caseID {
		t.Fatalf("scheduler calls = %+v, want one MarkScheduled for %v", f.scheduler.calls, caseID)
	}
}

func TestConfirmBooking_ExpiredLockFails(t *testing.T) {
	f := newFixture(t)
	userID := uuid.New()
	b := f.lock(t, uuid.New(), userID, 9, 11)

	f.clock = f.clock.Add(DefaultLockTTL + time.Second)

	_, err := f.ledger.ConfirmBooking(context.Background(), b.ID, auth.Actor{ID: userID, Role: auth.RoleScheduler})
	if !errors.Is(err, ErrLockExpired) {
		t.Fatalf("err = %v, want ErrLockExpired", err)
	}
	if len(f.scheduler.calls) != 0 {
		t.Fatalf("scheduler was called on a failed confirm: %+v", f.scheduler.calls)
	}
	stored, _ := f.bookings.GetByID(context.Background(), b.ID)
	if stored.Status != StatusProvisional {
		t.Fatalf("status = %q, want PROVISIONAL untouched", stored.Status)
	}
}

func TestConfirmBooking_NonHolderForbidden(t *testing.T) {
	f := newFixture(t)
	b := f.lock(t, uuid.New(), uuid.New(), 9, 11)

	_, err := f.ledger.ConfirmBooking(context.Background(), b.ID, auth.Actor{ID: uuid.New(), Role: auth.RoleScheduler})
	if apperr.KindOf(err) != apperr.KindForbidden {
		t.Fatalf("kind = %v, want KindForbidden", apperr.KindOf(err))
	}
}

func TestConfirmBooking_AdminOverrideAudited(t *testing.T) {
	f := newFixture(t)
	b := f.lock(t, uuid.New(), uuid.New(), 9, 11)
	admin := auth.Actor{ID: uuid.New(), Role: auth.RoleAdmin}

	got, err := f.ledger.ConfirmBooking(context.Background(), b.ID, admin)
	if err != nil {
		t.Fatalf("admin confirm: %v", err)
	}
	if got.Status != StatusConfirmed {
		t.Fatalf("status = %q, want CONFIRMED", got.Status)
	}
	var overrideSeen bool
	for _, ev := range f.sink.events {
		if ev.Action == "booking.confirm_override" && ev.ActorID == admin.ID {
			overrideSeen = true
		}
	}
	if !overrideSeen {
		t.Fatal("admin override was not audited")
	}
}

func TestConfirmBooking_AlreadyConfirmedNoOp(t *testing.T) {
	f := newFixture(t)
	userID := uuid.New()
	actor := auth.Actor{ID: userID, Role: auth.RoleScheduler}
	b := f.lock(t, uuid.New(), userID, 9, 11)

	if _, err := f.ledger.ConfirmBooking(context.Background(), b.ID, actor); err != nil {
		t.Fatalf("first confirm: %v", err)
	}
	if _, err := f.ledger.ConfirmBooking(context.Background(), b.ID, actor); err != nil {
		t.Fatalf("second confirm: %v", err)
	}
	if len(f.scheduler.calls) != 1 {
		t.Fatalf("scheduler called %d times, want 1", len(f.scheduler.calls))
	}
}

func TestConfirmBooking_CancelledRejected(t *testing.T) {
	f := newFixture(t)
	userID := uuid.New()
	actor := auth.Actor{ID: userID, Role: auth.RoleScheduler}
	b := f.lock(t, uuid.New(), userID, 9, 11)

	if _, err := f.ledger.CancelBooking(context.Background(), b.ID, "plans changed", actor); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	_, err := f.ledger.ConfirmBooking(context.Background(), b.ID, actor)
	if !errors.Is(err, ErrNotProvisional) {
		t.Fatalf("err = %v, want ErrNotProvisional", err)
	}
}

func TestCancelBooking_ConfirmedReturnsCaseToPool(t *testing.T) {
	f := newFixture(t)
	caseID, userID := uuid.New(), uuid.New()
	actor := auth.Actor{ID: userID, Role: auth.RoleScheduler}
	b := f.lock(t, caseID, userID, 9, 11)
	if _, err := f.ledger.ConfirmBooking(context.Background(), b.ID, actor); err != nil {
		t.Fatalf("confirm: %v", err)
	}

	got, err := f.ledger.CancelBooking(context.Background(), b.ID, "patient unwell", actor)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if got.Status != StatusCancelled || got.CancelReason != "patient unwell" {
		t.Fatalf("booking = %+v, want cancelled with reason", got)
	}
	last := f.scheduler.calls[len(f.scheduler.calls)-1]
	if last.action != "returned" || last.caseID != caseID || last.reason != "patient unwell" {
		t.Fatalf("scheduler call = %+v, want ReturnToBookablePool", last)
	}
}

func TestCancelBooking_ProvisionalDoesNotTouchCase(t *testing.T) {
	f := newFixture(t)
	userID := uuid.New()
	b := f.lock(t, uuid.New(), userID, 9, 11)

	if _, err := f.ledger.CancelBooking(context.Background(), b.ID, "", auth.Actor{ID: userID, Role: auth.RoleScheduler}); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if len(f.scheduler.calls) != 0 {
		t.Fatalf("scheduler calls = %+v, want none", f.scheduler.calls)
	}
	// Cancelled slot is free again.
	f.lock(t, uuid.New(), uuid.New(), 9, 11)
}

func TestBookSlot_CreatesConfirmedBooking(t *testing.T) {
	f := newFixture(t)
	caseID, userID := uuid.New(), uuid.New()

	start, end := f.slot(9, 11)
	b, err := f.ledger.BookSlot(context.Background(), LockRequest{
		CaseID: caseID, TheaterID: f.theaterID, Start: start, End: end, UserID: userID,
	})
	if err != nil {
		t.Fatalf("book: %v", err)
	}
	if b.Status != StatusConfirmed {
		t.Fatalf("status = %q, want CONFIRMED", b.Status)
	}
	if b.LockExpiresAt != nil {
		t.Fatalf("lock_expires_at = %v, want nil", b.LockExpiresAt)
	}
	if len(f.scheduler.calls) != 1 || f.scheduler.calls[0].caseID != caseID {
		t.Fatalf("scheduler calls = %+v, want one MarkScheduled", f.scheduler.calls)
	}
}

func TestBookSlot_ExpiredHoldStillConflicts(t *testing.T) {
	f := newFixture(t)

	f.lock(t, uuid.New(), uuid.New(), 9, 11)
	f.clock = f.clock.Add(DefaultLockTTL + time.Second)

	start, end := f.slot(9, 11)
	_, err := f.ledger.BookSlot(context.Background(), LockRequest{
		CaseID: uuid.New(), TheaterID: f.theaterID, Start: start, End: end, UserID: uuid.New(),
	})
	if !errors.Is(err, ErrSlotConflict) {
		t.Fatalf("err = %v, want ErrSlotConflict", err)
	}
}

func TestLockSlot_ValidatesInput(t *testing.T) {
	f := newFixture(t)
	start, end := f.slot(11, 9)

	_, err := f.ledger.LockSlot(context.Background(), LockRequest{
		CaseID: uuid.New(), TheaterID: f.theaterID, Start: start, End: end, UserID: uuid.New(),
	})
	if apperr.KindOf(err) != apperr.KindValidation {
		t.Fatalf("kind = %v, want KindValidation", apperr.KindOf(err))
	}
}
