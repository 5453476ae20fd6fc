package surgcase

import (
	"context"

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

func conn(ctx context.Context, pool *pgxpool.Pool) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return pool
}

// =========== Case Repository ===========

type caseRepoPG struct{ pool *pgxpool.Pool }

func NewCaseRepoPG(pool *pgxpool.Pool) CaseRepository { return &caseRepoPG{pool: pool} }

const caseCols = `id, patient_id, doctor_id, status, created_at, updated_at`

func (r *caseRepoPG) scanCase(row pgx.Row) (*SurgicalCase, error) {
	var sc SurgicalCase
	err := row.Scan(&sc.ID, &sc.PatientID, &sc.DoctorID, &sc.Status, &sc.CreatedAt, &sc.UpdatedAt)
	return &sc, err
}

func (r *caseRepoPG) Create(ctx context.Context, sc *SurgicalCase) error {
	sc.ID = uuid.New()
	_, err := conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO surgical_case (id, patient_id, doctor_id, status)
		VALUES ($1,$2,$3,$4)`,
		sc.ID, sc.PatientID, sc.DoctorID, sc.Status)
	return err
}

func (r *caseRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*SurgicalCase, error) {
	return r.scanCase(conn(ctx, r.pool).QueryRow(ctx, `SELECT `+caseCols+` FROM surgical_case WHERE id = $1`, id))
}

func (r *caseRepoPG) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	_, err := conn(ctx, r.pool).Exec(ctx, `
		UPDATE surgical_case SET status=$2, updated_at=NOW() WHERE id = $1`, id, status)
	return err
}

func (r *caseRepoPG) List(ctx context.Context, limit, offset int) ([]*SurgicalCase, int, error) {
	var total int
	if err := conn(ctx, r.pool).QueryRow(ctx, `SELECT COUNT(*) FROM surgical_case`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := conn(ctx, r.pool).Query(ctx, `
		SELECT `+caseCols+` FROM surgical_case ORDER BY created_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*SurgicalCase
	for rows.Next() {
		sc, err := r.scanCase(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, sc)
	}
	return items, total, nil
}

// =========== Plan Repository ===========

type planRepoPG struct{ pool *pgxpool.Pool }

func NewPlanRepoPG(pool *pgxpool.Pool) PlanRepository { return &planRepoPG{pool: pool} }

const planCols = `id, case_id, procedure_plan, risk_factors, planned_anesthesia, implant_details, readiness_status, ready_for_surgery, created_at, updated_at`

func (r *planRepoPG) scanPlan(row pgx.Row) (*CasePlan, error) {
	var p CasePlan
	err := row.Scan(&p.ID, &p.CaseID, &p.ProcedurePlan, &p.RiskFactors, &p.PlannedAnesthesia,
		&p.ImplantDetails, &p.ReadinessStatus, &p.ReadyForSurgery, &p.CreatedAt, &p.UpdatedAt)
	return &p, err
}

func (r *planRepoPG) Create(ctx context.Context, p *CasePlan) error {
	p.ID = uuid.New()
	_, err := conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO case_plan (id, case_id, procedure_plan, risk_factors, planned_anesthesia, implant_details, readiness_status, ready_for_surgery)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		p.ID, p.CaseID, p.ProcedurePlan, p.RiskFactors, p.PlannedAnesthesia,
		p.ImplantDetails, p.ReadinessStatus, p.ReadyForSurgery)
	return err
}

func (r *planRepoPG) GetByCaseID(ctx context.Context, caseID uuid.UUID) (*CasePlan, error) {
	return r.scanPlan(conn(ctx, r.pool).QueryRow(ctx, `SELECT `+planCols+` FROM case_plan WHERE case_id = $1`, caseID))
}

func (r *planRepoPG) Update(ctx context.Context, p *CasePlan) error {
	_, err := conn(ctx, r.pool).Exec(ctx, `
		UPDATE case_plan SET procedure_plan=$2, risk_factors=$3, planned_anesthesia=$4,
			implant_details=$5, readiness_status=$6, ready_for_surgery=$7, updated_at=NOW()
		WHERE id = $1`,
		p.ID, p.ProcedurePlan, p.RiskFactors, p.PlannedAnesthesia,
		p.ImplantDetails, p.ReadinessStatus, p.ReadyForSurgery)
	return err
}

func (r *planRepoPG) AddConsent(ctx context.Context, c *Consent) error {
	c.ID = uuid.New()
	_, err := conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO case_consent (id, plan_id, document_name, signed, signed_at)
		VALUES ($1,$2,$3,$4,$5)`,
		c.ID, c.PlanID, c.DocumentName, c.Signed, c.SignedAt)
	return err
}

func (r *planRepoPG) GetConsent(ctx context.Context, id uuid.UUID) (*Consent, error) {
	var c Consent
	err := conn(ctx, r.pool).QueryRow(ctx, `
		SELECT id, plan_id, document_name, signed, signed_at FROM case_consent WHERE id = $1`, id).
		Scan(&c.ID, &c.PlanID, &c.DocumentName, &c.Signed, &c.SignedAt)
	return &c, err
}

func (r *planRepoPG) UpdateConsent(ctx context.Context, c *Consent) error {
	_, err := conn(ctx, r.pool).Exec(ctx, `
		UPDATE case_consent SET signed=$2, signed_at=$3 WHERE id = $1`,
		c.ID, c.Signed, c.SignedAt)
	return err
}

func (r *planRepoPG) ListConsents(ctx context.Context, planID uuid.UUID) ([]*Consent, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, `
		SELECT id, plan_id, document_name, signed, signed_at FROM case_consent WHERE plan_id = $1`, planID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Consent
	for rows.Next() {
		var c Consent
		if err := rows.Scan(&c.ID, &c.PlanID, &c.DocumentName, &c.Signed, &c.SignedAt); err != nil {
			return nil, err
		}
		items = append(items, &c)
	}
	return items, nil
}

func (r *planRepoPG) AddImage(ctx context.Context, img *CaseImage) error {
	img.ID = uuid.New()
	_, err := conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO case_image (id, plan_id, timepoint, url)
		VALUES ($1,$2,$3,$4)`,
		img.ID, img.PlanID, img.Timepoint, img.URL)
	return err
}

func (r *planRepoPG) ListImages(ctx context.Context, planID uuid.UUID) ([]*CaseImage, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, `
		SELECT id, plan_id, timepoint, url, created_at FROM case_image WHERE plan_id = $1`, planID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*CaseImage
	for rows.Next() {
		var img CaseImage
		if err := rows.Scan(&img.ID, &img.PlanID, &img.Timepoint, &img.URL, &img.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, &img)
	}
	return items, nil
}

// =========== Status Change Repository ===========

type statusChangeRepoPG struct{ pool *pgxpool.Pool }

func NewStatusChangeRepoPG(pool *pgxpool.Pool) StatusChangeRepository {
	return &statusChangeRepoPG{pool: pool}
}

func (r *statusChangeRepoPG) Create(ctx context.Context, ch *StatusChange) error {
	ch.ID = uuid.New()
	_, err := conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO case_status_change (id, case_id, actor_id, actor_role, from_status, to_status, outcome, reason)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		ch.ID, ch.CaseID, ch.ActorID, ch.ActorRole, ch.FromStatus, ch.ToStatus, ch.Outcome, ch.Reason)
	return err
}

func (r *statusChangeRepoPG) ListByCase(ctx context.Context, caseID uuid.UUID) ([]*StatusChange, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, `
		SELECT id, case_id, actor_id, actor_role, from_status, to_status, outcome, reason, created_at
		FROM case_status_change WHERE case_id = $1 ORDER BY created_at`, caseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*StatusChange
	for rows.Next() {
		var ch StatusChange
		if err := rows.Scan(&ch.ID, &ch.CaseID, &ch.ActorID, &ch.ActorRole, &ch.FromStatus,
			&ch.ToStatus, &ch.Outcome, &ch.Reason, &ch.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, &ch)
	}
	return items, nil
}
