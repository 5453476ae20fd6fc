package theater

import (
	"time"

	"github.com/google/uuid"
)

// Booking statuses.
const (
	StatusProvisional = "PROVISIONAL"
	StatusConfirmed   = "CONFIRMED"
	StatusCancelled   = "CANCELLED"
)

// Theater is a bookable operating room.
type Theater struct {
	ID        uuid.UUID `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Location  string    `db:"location" json:"location"`
	IsActive  bool      `db:"is_active" json:"is_active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// TheaterBooking reserves a theater for [StartTime, EndTime). A booking is
// created PROVISIONAL by a lock request and becomes CONFIRMED or CANCELLED.
// LockExpiresAt is the canonical expiry for a provisional hold; expiry is
// evaluated lazily at read time, never by a background sweep.
type TheaterBooking struct {
	ID            uuid.UUID  `db:"id" json:"id"`
	CaseID        uuid.UUID  `db:"case_id" json:"case_id"`
	TheaterID     uuid.UUID  `db:"theater_id" json:"theater_id"`
	StartTime     time.Time  `db:"start_time" json:"start_time"`
	EndTime       time.Time  `db:"end_time" json:"end_time"`
	Status        string     `db:"status" json:"status"`
	LockedBy      uuid.UUID  `db:"locked_by" json:"locked_by"`
	LockedAt      time.Time  `db:"locked_at" json:"locked_at"`
	LockExpiresAt *time.Time `db:"lock_expires_at" json:"lock_expires_at,omitempty"`
	ConfirmedBy   *uuid.UUID `db:"confirmed_by" json:"confirmed_by,omitempty"`
	ConfirmedAt   *time.Time `db:"confirmed_at" json:"confirmed_at,omitempty"`
	CancelReason  string     `db:"cancel_reason" json:"cancel_reason,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updated_at"`
}

// Expired reports whether a provisional hold has lapsed at the given time.
func (b *TheaterBooking) Expired(now time.Time) bool {
	if b.Status != StatusProvisional {
		return false
	}
	return b.LockExpiresAt != nil && !b.LockExpiresAt.After(now)
}

// Overlaps is the half-open interval test shared by all conflict checks.
func (b *TheaterBooking) Overlaps(start, end time.Time) bool {
	return start.Before(b.EndTime) && end.After(b.StartTime)
}
