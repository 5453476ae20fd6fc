package theater

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/clinicore/clinicore/internal/platform/apperr"
	"github.com/clinicore/clinicore/internal/platform/audit"
	"github.com/clinicore/clinicore/internal/platform/auth"
	"github.com/clinicore/clinicore/internal/platform/db"
)

// Defaults for provisional holds.
const (
	DefaultLockTTL   = 5 * time.Minute
	DefaultLockQuota = 3
)

// Sentinel errors callers branch on with errors.Is.
var (
	ErrSlotConflict   = apperr.Conflict("slot conflicts with an existing booking")
	ErrLockQuota      = apperr.QuotaExceeded("provisional lock limit reached")
	ErrLockExpired    = apperr.Conflict("provisional lock has expired")
	ErrNotProvisional = apperr.Conflict("booking is not provisional")
)

// CaseScheduler is the single path by which bookings drive case status.
// Satisfied by surgcase.Service.
type CaseScheduler interface {
	MarkScheduled(ctx context.Context, caseID uuid.UUID, actor auth.Actor) error
	ReturnToBookablePool(ctx context.Context, caseID uuid.UUID, reason string, actor auth.Actor) error
}

// Ledger implements the two-phase lock/confirm booking protocol. Each
// mutating operation runs its check-then-act sequence inside one
// serializable transaction; without that isolation two concurrent lockers
// could both pass the conflict check and double-book a theater.
type Ledger struct {
	theaters  TheaterRepository
	bookings  BookingRepository
	scheduler CaseScheduler
	auditor   *audit.Recorder
	logger    zerolog.Logger

	lockTTL   time.Duration
	lockQuota int

	runTx func(ctx context.Context, fn func(ctx context.Context) error) error
	now   func() time.Time
}

func NewLedger(pool *pgxpool.Pool, theaters TheaterRepository, bookings BookingRepository,
	scheduler CaseScheduler, auditor *audit.Recorder, logger zerolog.Logger,
	lockTTL time.Duration, lockQuota int) *Ledger {
	if lockTTL <= 0 {
		lockTTL = DefaultLockTTL
	}
	if lockQuota <= 0 {
		lockQuota = DefaultLockQuota
	}
	return &Ledger{
		theaters:  theaters,
		bookings:  bookings,
		scheduler: scheduler,
		auditor:   auditor,
		logger:    logger,
		lockTTL:   lockTTL,
		lockQuota: lockQuota,
		runTx: func(ctx context.Context, fn func(ctx context.Context) error) error {
			return db.RunSerializable(ctx, pool, fn)
		},
		now: time.Now,
	}
}

// LockRequest identifies the slot a caller wants to hold.
type LockRequest struct {
	CaseID    uuid.UUID `json:"case_id"`
	TheaterID uuid.UUID `json:"theater_id"`
	Start     time.Time `json:"start_time"`
	End       time.Time `json:"end_time"`
	UserID    uuid.UUID `json:"-"`
}

func (req *LockRequest) validate() error {
	if req.CaseID == uuid.Nil || req.TheaterID == uuid.Nil || req.UserID == uuid.Nil {
		return apperr.Validation("case_id, theater_id and user are required")
	}
	if req.Start.IsZero() || req.End.IsZero() {
		return apperr.Validation("start_time and end_time are required")
	}
	if !req.End.After(req.Start) {
		return apperr.Validation("end_time must be after start_time")
	}
	return nil
}

// LockSlot places a provisional hold on a theater slot. Retrying with the
// identical case, theater, slot and user returns the existing hold
// unchanged; the TTL is deliberately not extended, so a caller near expiry
// must cancel and re-lock. A stale booking for the same case is superseded.
func (l *Ledger) LockSlot(ctx context.Context, req LockRequest) (*TheaterBooking, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	var result *TheaterBooking
	err := l.runTx(ctx, func(ctx context.Context) error {
		now := l.now().UTC()

		th, err := l.theaters.GetByID(ctx, req.TheaterID)
		if err != nil {
			return apperr.NotFound("theater")
		}
		if !th.IsActive {
			return apperr.Validation("theater is not bookable")
		}

		// Idempotent retry: the identical unexpired hold is returned as-is.
		live, err := l.bookings.FindLiveByCase(ctx, req.CaseID)
		if err != nil {
			return apperr.Internal("load case bookings failed", err)
		}
		for _, b := range live {
			if b.Status == StatusProvisional && !b.Expired(now) &&
				b.LockedBy == req.UserID && b.TheaterID == req.TheaterID &&
				b.StartTime.Equal(req.Start) && b.EndTime.Equal(req.End) {
				result = b
				return nil
			}
		}

		locks, err := l.bookings.ActiveLocksByUser(ctx, req.UserID, req.CaseID, now)
		if err != nil {
			return apperr.Internal("count active locks failed", err)
		}
		if len(locks) >= l.lockQuota {
			return ErrLockQuota
		}

		overlapping, err := l.bookings.FindOverlapping(ctx, req.TheaterID, req.Start, req.End)
		if err != nil {
			return apperr.Internal("conflict scan failed", err)
		}
		for _, b := range overlapping {
			if b.CaseID == req.CaseID {
				continue // superseded below
			}
			if b.Status == StatusConfirmed || (b.Status == StatusProvisional && !b.Expired(now)) {
				return ErrSlotConflict
			}
		}

		if err := l.bookings.DeleteForCase(ctx, req.CaseID, uuid.Nil); err != nil {
			return apperr.Internal("supersede stale bookings failed", err)
		}

		expires := now.Add(l.lockTTL)
		result = &TheaterBooking{
			CaseID:        req.CaseID,
			TheaterID:     req.TheaterID,
			StartTime:     req.Start,
			EndTime:       req.End,
			Status:        StatusProvisional,
			LockedBy:      req.UserID,
			LockedAt:      now,
			LockExpiresAt: &expires,
		}
		return l.bookings.Create(ctx, result)
	})
	if err != nil {
		return nil, err
	}

	l.auditBooking(ctx, auth.Actor{ID: req.UserID}, result, "booking.lock", audit.OutcomeSuccess, nil)
	return result, nil
}

// ConfirmBooking makes a provisional hold durable and moves the owning case
// to SCHEDULED in the same transaction. Confirming an already-confirmed
// booking is a no-op. Only the lock holder may confirm, except an admin
// override, which is routed through the audit sink.
func (l *Ledger) ConfirmBooking(ctx context.Context, bookingID uuid.UUID, actor auth.Actor) (*TheaterBooking, error) {
	var (
		result   *TheaterBooking
		override bool
		noop     bool
	)
	err := l.runTx(ctx, func(ctx context.Context) error {
		now := l.now().UTC()

		b, err := l.bookings.GetByID(ctx, bookingID)
		if err != nil {
			return apperr.NotFound("booking")
		}
		if b.Status == StatusConfirmed {
			result, noop = b, true
			return nil
		}
		if b.Status != StatusProvisional {
			return ErrNotProvisional
		}
		if b.Expired(now) {
			return ErrLockExpired
		}
		if b.LockedBy != actor.ID {
			if actor.Role != auth.RoleAdmin {
				return apperr.Forbidden("only the lock holder may confirm this booking")
			}
			override = true
		}

		b.Status = StatusConfirmed
		b.ConfirmedBy = &actor.ID
		b.ConfirmedAt = &now
		if err := l.bookings.Update(ctx, b); err != nil {
			return apperr.Internal("confirm booking failed", err)
		}
		if err := l.scheduler.MarkScheduled(ctx, b.CaseID, actor); err != nil {
			return err
		}
		result = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	if noop {
		return result, nil
	}

	l.auditBooking(ctx, actor, result, "booking.confirm", audit.OutcomeSuccess, nil)
	if override {
		l.auditBooking(ctx, actor, result, "booking.confirm_override", audit.OutcomeSuccess,
			map[string]any{"lock_holder": result.LockedBy.String()})
	}
	return result, nil
}

// CancelBooking releases a booking and, when it was confirmed, returns the
// case to the bookable pool.
func (l *Ledger) CancelBooking(ctx context.Context, bookingID uuid.UUID, reason string, actor auth.Actor) (*TheaterBooking, error) {
	var result *TheaterBooking
	err := l.runTx(ctx, func(ctx context.Context) error {
		b, err := l.bookings.GetByID(ctx, bookingID)
		if err != nil {
			return apperr.NotFound("booking")
		}
		if b.Status == StatusCancelled {
			result = b
			return nil
		}
		wasConfirmed := b.Status == StatusConfirmed

		b.Status = StatusCancelled
		b.CancelReason = reason
		if err := l.bookings.Update(ctx, b); err != nil {
			return apperr.Internal("cancel booking failed", err)
		}
		if wasConfirmed {
			if err := l.scheduler.ReturnToBookablePool(ctx, b.CaseID, reason, actor); err != nil {
				return err
			}
		}
		result = b
		return nil
	})
	if err != nil {
		return nil, err
	}

	l.auditBooking(ctx, actor, result, "booking.cancel", audit.OutcomeSuccess,
		map[string]any{"reason": reason})
	return result, nil
}

// BookSlot is the legacy one-step booking path. It is stricter than
// lock/confirm: any non-cancelled overlap, even an expired provisional
// hold, is a hard conflict. On success the booking is created CONFIRMED and
// the case moves to SCHEDULED atomically.
func (l *Ledger) BookSlot(ctx context.Context, req LockRequest) (*TheaterBooking, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	var result *TheaterBooking
	err := l.runTx(ctx, func(ctx context.Context) error {
		now := l.now().UTC()

		th, err := l.theaters.GetByID(ctx, req.TheaterID)
		if err != nil {
			return apperr.NotFound("theater")
		}
		if !th.IsActive {
			return apperr.Validation("theater is not bookable")
		}

		overlapping, err := l.bookings.FindOverlapping(ctx, req.TheaterID, req.Start, req.End)
		if err != nil {
			return apperr.Internal("conflict scan failed", err)
		}
		for _, b := range overlapping {
			if b.CaseID != req.CaseID {
				return ErrSlotConflict
			}
		}

		if err := l.bookings.DeleteForCase(ctx, req.CaseID, uuid.Nil); err != nil {
			return apperr.Internal("supersede stale bookings failed", err)
		}

		result = &TheaterBooking{
			CaseID:      req.CaseID,
			TheaterID:   req.TheaterID,
			StartTime:   req.Start,
			EndTime:     req.End,
			Status:      StatusConfirmed,
			LockedBy:    req.UserID,
			LockedAt:    now,
			ConfirmedBy: &req.UserID,
			ConfirmedAt: &now,
		}
		if err := l.bookings.Create(ctx, result); err != nil {
			return apperr.Internal("create booking failed", err)
		}
		return l.scheduler.MarkScheduled(ctx, result.CaseID, auth.Actor{ID: req.UserID})
	})
	if err != nil {
		return nil, err
	}

	l.auditBooking(ctx, auth.Actor{ID: req.UserID}, result, "booking.book", audit.OutcomeSuccess, nil)
	return result, nil
}

func (l *Ledger) GetBooking(ctx context.Context, id uuid.UUID) (*TheaterBooking, error) {
	b, err := l.bookings.GetByID(ctx, id)
	if err != nil {
		return nil, apperr.NotFound("booking")
	}
	return b, nil
}

// -- Theater directory --

func (l *Ledger) CreateTheater(ctx context.Context, t *Theater) error {
	if t.Name == "" {
		return apperr.Validation("name is required")
	}
	t.IsActive = true
	return l.theaters.Create(ctx, t)
}

func (l *Ledger) GetTheater(ctx context.Context, id uuid.UUID) (*Theater, error) {
	t, err := l.theaters.GetByID(ctx, id)
	if err != nil {
		return nil, apperr.NotFound("theater")
	}
	return t, nil
}

func (l *Ledger) UpdateTheater(ctx context.Context, t *Theater) error {
	if _, err := l.theaters.GetByID(ctx, t.ID); err != nil {
		return apperr.NotFound("theater")
	}
	return l.theaters.Update(ctx, t)
}

func (l *Ledger) ListTheaters(ctx context.Context, limit, offset int) ([]*Theater, int, error) {
	return l.theaters.List(ctx, limit, offset)
}

// TheaterSchedule returns the bookings touching [from, to) for a theater.
func (l *Ledger) TheaterSchedule(ctx context.Context, theaterID uuid.UUID, from, to time.Time) ([]*TheaterBooking, error) {
	if _, err := l.theaters.GetByID(ctx, theaterID); err != nil {
		return nil, apperr.NotFound("theater")
	}
	return l.bookings.ListByTheater(ctx, theaterID, from, to)
}

func (l *Ledger) auditBooking(ctx context.Context, actor auth.Actor, b *TheaterBooking, action, outcome string, detail map[string]any) {
	if detail == nil {
		detail = map[string]any{}
	}
	detail["case_id"] = b.CaseID.String()
	detail["theater_id"] = b.TheaterID.String()
	l.auditor.Record(ctx, audit.Event{
		ActorID:    actor.ID,
		ActorRole:  actor.Role,
		Action:     action,
		EntityType: "theater_booking",
		EntityID:   b.ID,
		Outcome:    outcome,
		Detail:     detail,
	})
}
