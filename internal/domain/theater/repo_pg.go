package theater

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinicore/clinicore/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

// =========== Theater Repository ===========

type theaterRepoPG struct{ pool *pgxpool.Pool }

func NewTheaterRepoPG(pool *pgxpool.Pool) TheaterRepository { return &theaterRepoPG{pool: pool} }

func (r *theaterRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const theaterCols = `id, name, location, is_active, created_at, updated_at`

func (r *theaterRepoPG) scanTheater(row pgx.Row) (*Theater, error) {
	var t Theater
	err := row.Scan(&t.ID, &t.Name, &t.Location, &t.IsActive, &t.CreatedAt, &t.UpdatedAt)
	return &t, err
}

func (r *theaterRepoPG) Create(ctx context.Context, t *Theater) error {
	t.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO theater (id, name, location, is_active)
		VALUES ($1,$2,$3,$4)`,
		t.ID, t.Name, t.Location, t.IsActive)
	return err
}

func (r *theaterRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Theater, error) {
	return r.scanTheater(r.conn(ctx).QueryRow(ctx, `SELECT `+theaterCols+` FROM theater WHERE id = $1`, id))
}

func (r *theaterRepoPG) Update(ctx context.Context, t *Theater) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE theater SET name=$2, location=$3, is_active=$4, updated_at=NOW()
		WHERE id = $1`,
		t.ID, t.Name, t.Location, t.IsActive)
	return err
}

func (r *theaterRepoPG) List(ctx context.Context, limit, offset int) ([]*Theater, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM theater`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+theaterCols+` FROM theater ORDER BY name LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Theater
	for rows.Next() {
		t, err := r.scanTheater(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, t)
	}
	return items, total, nil
}

// =========== Booking Repository ===========

type bookingRepoPG struct{ pool *pgxpool.Pool }

func NewBookingRepoPG(pool *pgxpool.Pool) BookingRepository { return &bookingRepoPG{pool: pool} }

func (r *bookingRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const bookingCols = `id, case_id, theater_id, start_time, end_time, status, locked_by, locked_at,
	lock_expires_at, confirmed_by, confirmed_at, COALESCE(cancel_reason,''), created_at, updated_at`

func (r *bookingRepoPG) scanBooking(row pgx.Row) (*TheaterBooking, error) {
	var b TheaterBooking
	err := row.Scan(&b.ID, &b.CaseID, &b.TheaterID, &b.StartTime, &b.EndTime, &b.Status,
		&b.LockedBy, &b.LockedAt, &b.LockExpiresAt, &b.ConfirmedBy, &b.ConfirmedAt,
		&b.CancelReason, &b.CreatedAt, &b.UpdatedAt)
	return &b, err
}

func (r *bookingRepoPG) Create(ctx context.Context, b *TheaterBooking) error {
	b.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO theater_booking (id, case_id, theater_id, start_time, end_time, status,
			locked_by, locked_at, lock_expires_at, confirmed_by, confirmed_at, cancel_reason)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,NULLIF($12,''))`,
		b.ID, b.CaseID, b.TheaterID, b.StartTime, b.EndTime, b.Status,
		b.LockedBy, b.LockedAt, b.LockExpiresAt, b.ConfirmedBy, b.ConfirmedAt, b.CancelReason)
	return err
}

func (r *bookingRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*TheaterBooking, error) {
	return r.scanBooking(r.conn(ctx).QueryRow(ctx, `
		SELECT `+bookingCols+` FROM theater_booking WHERE id = $1`, id))
}

func (r *bookingRepoPG) Update(ctx context.Context, b *TheaterBooking) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE theater_booking SET status=$2, lock_expires_at=$3, confirmed_by=$4,
			confirmed_at=$5, cancel_reason=NULLIF($6,''), updated_at=NOW()
		WHERE id = $1`,
		b.ID, b.Status, b.LockExpiresAt, b.ConfirmedBy, b.ConfirmedAt, b.CancelReason)
	return err
}

// FOR UPDATE pins the candidate conflict rows so two concurrent lock
// attempts for overlapping windows serialize against each other.
func (r *bookingRepoPG) FindOverlapping(ctx context.Context, theaterID uuid.UUID, start, end time.Time) ([]*TheaterBooking, error) {
	return r.queryBookings(ctx, `
		SELECT `+bookingCols+` FROM theater_booking
		WHERE theater_id = $1 AND status <> 'CANCELLED'
			AND start_time < $3 AND end_time > $2
		FOR UPDATE`,
		theaterID, start, end)
}

func (r *bookingRepoPG) FindLiveByCase(ctx context.Context, caseID uuid.UUID) ([]*TheaterBooking, error) {
	return r.queryBookings(ctx, `
		SELECT `+bookingCols+` FROM theater_booking
		WHERE case_id = $1 AND status <> 'CANCELLED'`,
		caseID)
}

func (r *bookingRepoPG) DeleteForCase(ctx context.Context, caseID, keep uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `
		DELETE FROM theater_booking WHERE case_id = $1 AND id <> $2`, caseID, keep)
	return err
}

func (r *bookingRepoPG) ActiveLocksByUser(ctx context.Context, userID, excludeCase uuid.UUID, now time.Time) ([]*TheaterBooking, error) {
	return r.queryBookings(ctx, `
		SELECT `+bookingCols+` FROM theater_booking
		WHERE locked_by = $1 AND case_id <> $2 AND status = 'PROVISIONAL'
			AND lock_expires_at > $3
		FOR UPDATE`,
		userID, excludeCase, now)
}

func (r *bookingRepoPG) ListByTheater(ctx context.Context, theaterID uuid.UUID, from, to time.Time) ([]*TheaterBooking, error) {
	return r.queryBookings(ctx, `
		SELECT `+bookingCols+` FROM theater_booking
		WHERE theater_id = $1 AND start_time < $3 AND end_time > $2
		ORDER BY start_time`,
		theaterID, from, to)
}

func (r *bookingRepoPG) queryBookings(ctx context.Context, sql string, args ...interface{}) ([]*TheaterBooking, error) {
	rows, err := r.conn(ctx).Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*TheaterBooking
	for rows.Next() {
		b, err := r.scanBooking(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, b)
	}
	return items, nil
}
