package schedule

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

type blockRepoPG struct{ pool *pgxpool.Pool }

func NewBlockRepoPG(pool *pgxpool.Pool) BlockRepository { return &blockRepoPG{pool: pool} }

func (r *blockRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const blockCols = `id, doctor_id, start_date, end_date, COALESCE(start_time,''), COALESCE(end_time,''), block_type, reason, created_at`

func (r *blockRepoPG) scanBlock(row pgx.Row) (*ScheduleBlock, error) {
	var b ScheduleBlock
	err := row.Scan(&b.ID, &b.DoctorID, &b.StartDate, &b.EndDate, &b.StartTime, &b.EndTime,
		&b.BlockType, &b.Reason, &b.CreatedAt)
	return &b, err
}

func (r *blockRepoPG) Create(ctx context.Context, b *ScheduleBlock) error {
	b.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO schedule_block (id, doctor_id, start_date, end_date, start_time, end_time, block_type, reason)
		VALUES ($1,$2,$3,$4,NULLIF($5,''),NULLIF($6,''),$7,$8)`,
		b.ID, b.DoctorID, b.StartDate, b.EndDate, b.StartTime, b.EndTime, b.BlockType, b.Reason)
	return err
}

func (r *blockRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*ScheduleBlock, error) {
	return r.scanBlock(r.conn(ctx).QueryRow(ctx, `SELECT `+blockCols+` FROM schedule_block WHERE id = $1`, id))
}

func (r *blockRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM schedule_block WHERE id = $1`, id)
	return err
}

func (r *blockRepoPG) FindOverlappingDates(ctx context.Context, doctorID uuid.UUID, startDate, endDate time.Time) ([]*ScheduleBlock, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+blockCols+` FROM schedule_block
		WHERE doctor_id = $1 AND start_date <= $3 AND end_date >= $2
		ORDER BY start_date`,
		doctorID, startDate, endDate)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*ScheduleBlock
	for rows.Next() {
		b, err := r.scanBlock(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, b)
	}
	return items, nil
}

func (r *blockRepoPG) ListByDoctor(ctx context.Context, doctorID uuid.UUID, from, to time.Time, limit, offset int) ([]*ScheduleBlock, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `
		SELECT COUNT(*) FROM schedule_block
		WHERE doctor_id = $1 AND start_date <= $3 AND end_date >= $2`,
		doctorID, from, to).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+blockCols+` FROM schedule_block
		WHERE doctor_id = $1 AND start_date <= $3 AND end_date >= $2
		ORDER BY start_date LIMIT $4 OFFSET $5`,
		doctorID, from, to, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*ScheduleBlock
	for rows.Next() {
		b, err := r.scanBlock(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, b)
	}
	return items, total, nil
}
