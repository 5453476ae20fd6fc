package checklist

import (
	"context"
	"errors"

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

type recordRepoPG struct{ pool *pgxpool.Pool }

func NewRecordRepoPG(pool *pgxpool.Pool) RecordRepository { return &recordRepoPG{pool: pool} }

func (r *recordRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const recordCols = `id, case_id, phase, items, completed, completed_by, completed_at, created_at`

func (r *recordRepoPG) scanRecord(row pgx.Row) (*Record, error) {
	var rec Record
	err := row.Scan(&rec.ID, &rec.CaseID, &rec.Phase, &rec.Items, &rec.Completed,
		&rec.CompletedBy, &rec.CompletedAt, &rec.CreatedAt)
	return &rec, err
}

func (r *recordRepoPG) Create(ctx context.Context, rec *Record) error {
	rec.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO checklist_record (id, case_id, phase, items, completed, completed_by, completed_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		rec.ID, rec.CaseID, rec.Phase, rec.Items, rec.Completed, rec.CompletedBy, rec.CompletedAt)
	return err
}

func (r *recordRepoPG) Update(ctx context.Context, rec *Record) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE checklist_record SET items=$2, completed=$3, completed_by=$4, completed_at=$5
		WHERE id = $1`,
		rec.ID, rec.Items, rec.Completed, rec.CompletedBy, rec.CompletedAt)
	return err
}

func (r *recordRepoPG) GetByCaseAndPhase(ctx context.Context, caseID uuid.UUID, phase Phase) (*Record, error) {
	rec, err := r.scanRecord(r.conn(ctx).QueryRow(ctx, `
		SELECT `+recordCols+` FROM checklist_record WHERE case_id = $1 AND phase = $2`,
		caseID, phase))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (r *recordRepoPG) ListByCase(ctx context.Context, caseID uuid.UUID) ([]*Record, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+recordCols+` FROM checklist_record WHERE case_id = $1 ORDER BY created_at`,
		caseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Record
	for rows.Next() {
		rec, err := r.scanRecord(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, rec)
	}
	return items, nil
}
