package theater

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type TheaterRepository interface {
	Create(ctx context.Context, t *Theater) error
	GetByID(ctx context.Context, id uuid.UUID) (*Theater, error)
	Update(ctx context.Context, t *Theater) error
	List(ctx context.Context, limit, offset int) ([]*Theater, int, error)
}

type BookingRepository interface {
	Create(ctx context.Context, b *TheaterBooking) error
	GetByID(ctx context.Context, id uuid.UUID) (*TheaterBooking, error)
	Update(ctx context.Context, b *TheaterBooking) error
	// FindOverlapping returns all non-cancelled bookings for the theater
	// whose [start_time, end_time) window intersects [start, end).
	FindOverlapping(ctx context.Context, theaterID uuid.UUID, start, end time.Time) ([]*TheaterBooking, error)
	// FindLiveByCase returns the case's non-cancelled bookings.
	FindLiveByCase(ctx context.Context, caseID uuid.UUID) ([]*TheaterBooking, error)
	// DeleteForCase removes every booking row belonging to the case except
	// the one identified by keep (pass uuid.Nil to remove all).
	DeleteForCase(ctx context.Context, caseID, keep uuid.UUID) error
	// ActiveLocksByUser returns the user's unexpired PROVISIONAL bookings,
	// excluding those belonging to excludeCase.
	ActiveLocksByUser(ctx context.Context, userID, excludeCase uuid.UUID, now time.Time) ([]*TheaterBooking, error)
	ListByTheater(ctx context.Context, theaterID uuid.UUID, from, to time.Time) ([]*TheaterBooking, error)
}
