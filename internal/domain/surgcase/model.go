package surgcase

import (
	"time"

	"github.com/google/uuid"
)

// Case statuses, in day-of-operations order. CANCELLED is terminal.
const (
	StatusPlanning           = "PLANNING"
	StatusReadyForScheduling = "READY_FOR_SCHEDULING"
	StatusScheduled          = "SCHEDULED"
	StatusInPrep             = "IN_PREP"
	StatusInTheater          = "IN_THEATER"
	StatusRecovery           = "RECOVERY"
	StatusCompleted          = "COMPLETED"
	StatusCancelled          = "CANCELLED"
)

// Nurse readiness values on the case plan.
const (
	ReadinessNotReady = "NOT_READY"
	ReadinessReady    = "READY"
)

// TimepointPreOp tags images captured before the procedure. At least one
// pre-op image is part of the doctor-plan completeness predicate.
const TimepointPreOp = "PRE_OP"

// Actions accepted by TransitionCase.
const (
	ActionBeginPrep        = "begin_prep"
	ActionEnterTheater     = "enter_theater"
	ActionBeginRecovery    = "begin_recovery"
	ActionComplete         = "complete"
	ActionReturnToPlanning = "return_to_planning"
	ActionCancel           = "cancel"
)

// actionTargets maps each action to the status it requests.
var actionTargets = map[string]string{
	ActionBeginPrep:        StatusInPrep,
	ActionEnterTheater:     StatusInTheater,
	ActionBeginRecovery:    StatusRecovery,
	ActionComplete:         StatusCompleted,
	ActionReturnToPlanning: StatusPlanning,
	ActionCancel:           StatusCancelled,
}

// legalTransitions is the fixed edge table for TransitionCase. Intermediate
// states cannot be skipped, and no action may move a case into
// READY_FOR_SCHEDULING; only the dual-readiness evaluation does that.
var legalTransitions = map[string][]string{
	StatusScheduled: {StatusInPrep, StatusPlanning, StatusCancelled},
	StatusInPrep:    {StatusInTheater, StatusPlanning, StatusCancelled},
	StatusInTheater: {StatusRecovery},
	StatusRecovery:  {StatusCompleted},
}

func transitionAllowed(from, to string) bool {
	for _, t := range legalTransitions[from] {
		if t == to {
			return true
		}
	}
	return false
}

// SurgicalCase is the aggregate root for a patient's procedure. Rows are
// never deleted; status history lives in case_status_change.
type SurgicalCase struct {
	ID        uuid.UUID `db:"id" json:"id"`
	PatientID uuid.UUID `db:"patient_id" json:"patient_id"`
	DoctorID  uuid.UUID `db:"doctor_id" json:"doctor_id"`
	Status    string    `db:"status" json:"status"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// CasePlan is the doctor's planning record plus the nurse readiness flags.
type CasePlan struct {
	ID                uuid.UUID `db:"id" json:"id"`
	CaseID            uuid.UUID `db:"case_id" json:"case_id"`
	ProcedurePlan     string    `db:"procedure_plan" json:"procedure_plan"`
	RiskFactors       string    `db:"risk_factors" json:"risk_factors"`
	PlannedAnesthesia string    `db:"planned_anesthesia" json:"planned_anesthesia"`
	ImplantDetails    string    `db:"implant_details" json:"implant_details"`
	ReadinessStatus   string    `db:"readiness_status" json:"readiness_status"`
	ReadyForSurgery   bool      `db:"ready_for_surgery" json:"ready_for_surgery"`
	CreatedAt         time.Time `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time `db:"updated_at" json:"updated_at"`
}

// Consent is an attached consent document with its signed state.
type Consent struct {
	ID           uuid.UUID  `db:"id" json:"id"`
	PlanID       uuid.UUID  `db:"plan_id" json:"plan_id"`
	DocumentName string     `db:"document_name" json:"document_name"`
	Signed       bool       `db:"signed" json:"signed"`
	SignedAt     *time.Time `db:"signed_at" json:"signed_at,omitempty"`
}

// CaseImage is an image attached to the plan, tagged by timepoint.
type CaseImage struct {
	ID        uuid.UUID `db:"id" json:"id"`
	PlanID    uuid.UUID `db:"plan_id" json:"plan_id"`
	Timepoint string    `db:"timepoint" json:"timepoint"`
	URL       string    `db:"url" json:"url"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// StatusChange is one immutable row of transition history; blocked attempts
// are recorded alongside successful ones.
type StatusChange struct {
	ID         uuid.UUID `db:"id" json:"id"`
	CaseID     uuid.UUID `db:"case_id" json:"case_id"`
	ActorID    uuid.UUID `db:"actor_id" json:"actor_id"`
	ActorRole  string    `db:"actor_role" json:"actor_role"`
	FromStatus string    `db:"from_status" json:"from_status"`
	ToStatus   string    `db:"to_status" json:"to_status"`
	Outcome    string    `db:"outcome" json:"outcome"`
	Reason     string    `db:"reason" json:"reason"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// Status change outcomes.
const (
	ChangeApplied = "applied"
	ChangeBlocked = "blocked"
)
