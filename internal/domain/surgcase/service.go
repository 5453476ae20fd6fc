package surgcase

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/clinicore/clinicore/internal/domain/checklist"
	"github.com/clinicore/clinicore/internal/platform/apperr"
	"github.com/clinicore/clinicore/internal/platform/audit"
	"github.com/clinicore/clinicore/internal/platform/auth"
)

// ChecklistGate answers whether a safety phase is complete for a case and,
// if not, which items are unmet. Satisfied by checklist.Service.
type ChecklistGate interface {
	PhaseComplete(ctx context.Context, caseID uuid.UUID, phase checklist.Phase) (bool, []string, error)
}

// DoctorDirectory verifies that a case's doctor exists in the staff registry.
type DoctorDirectory interface {
	DoctorExists(ctx context.Context, id uuid.UUID) (bool, error)
}

type Service struct {
	cases   CaseRepository
	plans   PlanRepository
	changes StatusChangeRepository
	gate    ChecklistGate
	doctors DoctorDirectory
	auditor *audit.Recorder
	logger  zerolog.Logger
}

func NewService(cases CaseRepository, plans PlanRepository, changes StatusChangeRepository,
	gate ChecklistGate, doctors DoctorDirectory, auditor *audit.Recorder, logger zerolog.Logger) *Service {
	return &Service{
		cases: cases, plans: plans, changes: changes,
		gate: gate, doctors: doctors, auditor: auditor, logger: logger,
	}
}

// CreateCase opens a case in PLANNING with an empty plan attached.
func (s *Service) CreateCase(ctx context.Context, patientID, doctorID uuid.UUID, actor auth.Actor) (*SurgicalCase, error) {
	if patientID == uuid.Nil {
		return nil, apperr.Validation("patient_id is required")
	}
	exists, err := s.doctors.DoctorExists(ctx, doctorID)
	if err != nil {
		return nil, apperr.Internal("doctor lookup failed", err)
	}
	if !exists {
		return nil, apperr.NotFound("doctor")
	}

	sc := &SurgicalCase{PatientID: patientID, DoctorID: doctorID, Status: StatusPlanning}
	if err := s.cases.Create(ctx, sc); err != nil {
		return nil, apperr.Internal("create case failed", err)
	}
	plan := &CasePlan{CaseID: sc.ID, ReadinessStatus: ReadinessNotReady}
	if err := s.plans.Create(ctx, plan); err != nil {
		return nil, apperr.Internal("create case plan failed", err)
	}

	s.recordChange(ctx, sc.ID, actor, "", StatusPlanning, ChangeApplied, "case intake")
	s.auditCase(ctx, actor, sc.ID, "case.create", audit.OutcomeSuccess, nil)
	return sc, nil
}

func (s *Service) GetCase(ctx context.Context, id uuid.UUID) (*SurgicalCase, error) {
	sc, err := s.cases.GetByID(ctx, id)
	if err != nil {
		return nil, apperr.NotFound("surgical case")
	}
	return sc, nil
}

func (s *Service) ListCases(ctx context.Context, limit, offset int) ([]*SurgicalCase, int, error) {
	return s.cases.List(ctx, limit, offset)
}

func (s *Service) StatusHistory(ctx context.Context, caseID uuid.UUID) ([]*StatusChange, error) {
	if _, err := s.cases.GetByID(ctx, caseID); err != nil {
		return nil, apperr.NotFound("surgical case")
	}
	return s.changes.ListByCase(ctx, caseID)
}

// PlanDetail bundles the plan with its consents and images.
type PlanDetail struct {
	Plan     *CasePlan    `json:"plan"`
	Consents []*Consent   `json:"consents"`
	Images   []*CaseImage `json:"images"`
}

func (s *Service) GetPlan(ctx context.Context, caseID uuid.UUID) (*PlanDetail, error) {
	plan, err := s.plans.GetByCaseID(ctx, caseID)
	if err != nil {
		return nil, apperr.NotFound("case plan")
	}
	consents, err := s.plans.ListConsents(ctx, plan.ID)
	if err != nil {
		return nil, apperr.Internal("load consents failed", err)
	}
	images, err := s.plans.ListImages(ctx, plan.ID)
	if err != nil {
		return nil, apperr.Internal("load images failed", err)
	}
	return &PlanDetail{Plan: plan, Consents: consents, Images: images}, nil
}

// PlanUpdate carries the doctor-editable plan fields.
type PlanUpdate struct {
	ProcedurePlan     string `json:"procedure_plan"`
	RiskFactors       string `json:"risk_factors"`
	PlannedAnesthesia string `json:"planned_anesthesia"`
	ImplantDetails    string `json:"implant_details"`
}

// UpdatePlan persists the doctor's plan fields and re-evaluates the dual
// readiness condition: a consent signed or field filled in later may be the
// change that finally moves the case out of PLANNING.
func (s *Service) UpdatePlan(ctx context.Context, caseID uuid.UUID, upd PlanUpdate, actor auth.Actor) (*CasePlan, error) {
	if actor.Role != auth.RoleDoctor && actor.Role != auth.RoleAdmin {
		return nil, apperr.Forbidden("only the doctor may edit the case plan")
	}
	plan, err := s.plans.GetByCaseID(ctx, caseID)
	if err != nil {
		return nil, apperr.NotFound("case plan")
	}

	plan.ProcedurePlan = upd.ProcedurePlan
	plan.RiskFactors = upd.RiskFactors
	plan.PlannedAnesthesia = upd.PlannedAnesthesia
	plan.ImplantDetails = upd.ImplantDetails
	if err := s.plans.Update(ctx, plan); err != nil {
		return nil, apperr.Internal("update case plan failed", err)
	}

	s.auditCase(ctx, actor, caseID, "case.update_plan", audit.OutcomeSuccess, nil)
	if err := s.evaluateReadiness(ctx, caseID, plan, actor); err != nil {
		return nil, err
	}
	return plan, nil
}

// UpdateReadiness records the nurse's readiness value. The value is always
// persisted; the transition to READY_FOR_SCHEDULING happens only when the
// doctor plan is simultaneously complete.
func (s *Service) UpdateReadiness(ctx context.Context, caseID uuid.UUID, readiness string, actor auth.Actor) (*CasePlan, error) {
	if actor.Role != auth.RoleNurse && actor.Role != auth.RoleAdmin {
		return nil, apperr.Forbidden("only nursing may set readiness")
	}
	if readiness != ReadinessReady && readiness != ReadinessNotReady {
		return nil, apperr.Newf(apperr.KindValidation, "invalid readiness_status: %s", readiness)
	}
	plan, err := s.plans.GetByCaseID(ctx, caseID)
	if err != nil {
		return nil, apperr.NotFound("case plan")
	}

	plan.ReadinessStatus = readiness
	plan.ReadyForSurgery = readiness == ReadinessReady
	if err := s.plans.Update(ctx, plan); err != nil {
		return nil, apperr.Internal("update readiness failed", err)
	}

	s.auditCase(ctx, actor, caseID, "case.update_readiness", audit.OutcomeSuccess,
		map[string]any{"readiness_status": readiness})
	if err := s.evaluateReadiness(ctx, caseID, plan, actor); err != nil {
		return nil, err
	}
	return plan, nil
}

// AddConsent attaches an unsigned consent document to the plan.
func (s *Service) AddConsent(ctx context.Context, caseID uuid.UUID, documentName string, actor auth.Actor) (*Consent, error) {
	if documentName == "" {
		return nil, apperr.Validation("document_name is required")
	}
	plan, err := s.plans.GetByCaseID(ctx, caseID)
	if err != nil {
		return nil, apperr.NotFound("case plan")
	}
	c := &Consent{PlanID: plan.ID, DocumentName: documentName}
	if err := s.plans.AddConsent(ctx, c); err != nil {
		return nil, apperr.Internal("add consent failed", err)
	}
	s.auditCase(ctx, actor, caseID, "case.consent_add", audit.OutcomeSuccess,
		map[string]any{"document": documentName})
	return c, nil
}

// SignConsent marks a consent signed and re-evaluates readiness.
func (s *Service) SignConsent(ctx context.Context, caseID, consentID uuid.UUID, actor auth.Actor) (*Consent, error) {
	plan, err := s.plans.GetByCaseID(ctx, caseID)
	if err != nil {
		return nil, apperr.NotFound("case plan")
	}
	c, err := s.plans.GetConsent(ctx, consentID)
	if err != nil || c.PlanID != plan.ID {
		return nil, apperr.NotFound("consent")
	}
	if !c.Signed {
		now := time.Now().UTC()
		c.Signed = true
		c.SignedAt = &now
		if err := s.plans.UpdateConsent(ctx, c); err != nil {
			return nil, apperr.Internal("sign consent failed", err)
		}
	}
	s.auditCase(ctx, actor, caseID, "case.consent_sign", audit.OutcomeSuccess,
		map[string]any{"document": c.DocumentName})
	if err := s.evaluateReadiness(ctx, caseID, plan, actor); err != nil {
		return nil, err
	}
	return c, nil
}

// AddImage attaches an image to the plan and re-evaluates readiness.
func (s *Service) AddImage(ctx context.Context, caseID uuid.UUID, timepoint, url string, actor auth.Actor) (*CaseImage, error) {
	if timepoint == "" || url == "" {
		return nil, apperr.Validation("timepoint and url are required")
	}
	plan, err := s.plans.GetByCaseID(ctx, caseID)
	if err != nil {
		return nil, apperr.NotFound("case plan")
	}
	img := &CaseImage{PlanID: plan.ID, Timepoint: timepoint, URL: url}
	if err := s.plans.AddImage(ctx, img); err != nil {
		return nil, apperr.Internal("add image failed", err)
	}
	s.auditCase(ctx, actor, caseID, "case.image_add", audit.OutcomeSuccess,
		map[string]any{"timepoint": timepoint})
	if err := s.evaluateReadiness(ctx, caseID, plan, actor); err != nil {
		return nil, err
	}
	return img, nil
}

// TransitionCase applies an explicit day-of-surgery action against the fixed
// transition table. Illegal edges fail as StateMachineViolation; checklist
// gates fail as GateIncomplete with the unmet item names. Every attempt,
// applied or blocked, leaves a status-change row and an audit event.
func (s *Service) TransitionCase(ctx context.Context, caseID uuid.UUID, action, reason string, actor auth.Actor) (*SurgicalCase, error) {
	sc, err := s.cases.GetByID(ctx, caseID)
	if err != nil {
		return nil, apperr.NotFound("surgical case")
	}

	if actor.Role != auth.RoleTechnician && actor.Role != auth.RoleAdmin {
		s.recordChange(ctx, caseID, actor, sc.Status, "", ChangeBlocked, "actor not permitted")
		s.auditCase(ctx, actor, caseID, "case.transition", audit.OutcomeDenied,
			map[string]any{"action": action})
		return nil, apperr.Forbidden("case transitions are restricted to theater technicians")
	}

	target, ok := actionTargets[action]
	if !ok {
		return nil, apperr.Newf(apperr.KindValidation, "unknown action: %s", action)
	}

	if !transitionAllowed(sc.Status, target) {
		s.recordChange(ctx, caseID, actor, sc.Status, target, ChangeBlocked, reason)
		s.auditCase(ctx, actor, caseID, "case.transition", audit.OutcomeDenied,
			map[string]any{"action": action, "from": sc.Status, "to": target})
		return nil, apperr.Newf(apperr.KindStateMachineViolation,
			"cannot %s a case in %s", action, sc.Status)
	}

	var gatePhase checklist.Phase
	switch target {
	case StatusInTheater:
		gatePhase = checklist.PhaseSignIn
	case StatusRecovery:
		gatePhase = checklist.PhaseSignOut
	}
	if gatePhase != "" {
		done, missing, err := s.gate.PhaseComplete(ctx, caseID, gatePhase)
		if err != nil {
			return nil, err
		}
		if !done {
			s.recordChange(ctx, caseID, actor, sc.Status, target, ChangeBlocked,
				string(gatePhase)+" incomplete")
			s.auditCase(ctx, actor, caseID, "case.transition", audit.OutcomeDenied,
				map[string]any{"action": action, "gate": string(gatePhase), "missing": missing})
			return nil, apperr.GateIncomplete(string(gatePhase)+" checklist incomplete", missing)
		}
	}

	if err := s.cases.UpdateStatus(ctx, caseID, target); err != nil {
		return nil, apperr.Internal("update case status failed", err)
	}
	s.recordChange(ctx, caseID, actor, sc.Status, target, ChangeApplied, reason)
	s.auditCase(ctx, actor, caseID, "case.transition", audit.OutcomeSuccess,
		map[string]any{"action": action, "from": sc.Status, "to": target})

	sc.Status = target
	return sc, nil
}

// MarkScheduled moves a case to SCHEDULED. Only the theater booking ledger
// calls this, on booking confirmation; no other path performs this edge.
func (s *Service) MarkScheduled(ctx context.Context, caseID uuid.UUID, actor auth.Actor) error {
	sc, err := s.cases.GetByID(ctx, caseID)
	if err != nil {
		return apperr.NotFound("surgical case")
	}
	if sc.Status == StatusScheduled {
		return nil
	}
	if sc.Status != StatusReadyForScheduling {
		s.recordChange(ctx, caseID, actor, sc.Status, StatusScheduled, ChangeBlocked, "booking confirmed")
		return apperr.Newf(apperr.KindStateMachineViolation,
			"case in %s cannot be scheduled", sc.Status)
	}
	if err := s.cases.UpdateStatus(ctx, caseID, StatusScheduled); err != nil {
		return apperr.Internal("update case status failed", err)
	}
	s.recordChange(ctx, caseID, actor, sc.Status, StatusScheduled, ChangeApplied, "booking confirmed")
	s.auditCase(ctx, actor, caseID, "case.mark_scheduled", audit.OutcomeSuccess, nil)
	return nil
}

// ReturnToBookablePool reverts a scheduled case to READY_FOR_SCHEDULING when
// its booking is cancelled.
func (s *Service) ReturnToBookablePool(ctx context.Context, caseID uuid.UUID, reason string, actor auth.Actor) error {
	sc, err := s.cases.GetByID(ctx, caseID)
	if err != nil {
		return apperr.NotFound("surgical case")
	}
	if sc.Status == StatusReadyForScheduling {
		return nil
	}
	if sc.Status != StatusScheduled {
		return apperr.Newf(apperr.KindStateMachineViolation,
			"case in %s cannot return to the bookable pool", sc.Status)
	}
	if err := s.cases.UpdateStatus(ctx, caseID, StatusReadyForScheduling); err != nil {
		return apperr.Internal("update case status failed", err)
	}
	s.recordChange(ctx, caseID, actor, sc.Status, StatusReadyForScheduling, ChangeApplied, reason)
	s.auditCase(ctx, actor, caseID, "case.return_to_pool", audit.OutcomeSuccess,
		map[string]any{"reason": reason})
	return nil
}

// evaluateReadiness applies the dual-readiness rule: nurse readiness READY
// and a complete doctor plan, checked fresh, move a PLANNING case to
// READY_FOR_SCHEDULING. Anything short of both leaves the case untouched.
func (s *Service) evaluateReadiness(ctx context.Context, caseID uuid.UUID, plan *CasePlan, actor auth.Actor) error {
	sc, err := s.cases.GetByID(ctx, caseID)
	if err != nil {
		return apperr.NotFound("surgical case")
	}
	if sc.Status != StatusPlanning {
		return nil
	}
	if plan.ReadinessStatus != ReadinessReady {
		return nil
	}
	complete, _, err := s.planComplete(ctx, plan)
	if err != nil {
		return err
	}
	if !complete {
		return nil
	}

	if err := s.cases.UpdateStatus(ctx, caseID, StatusReadyForScheduling); err != nil {
		return apperr.Internal("update case status failed", err)
	}
	s.recordChange(ctx, caseID, actor, StatusPlanning, StatusReadyForScheduling, ChangeApplied,
		"dual readiness met")
	s.auditCase(ctx, actor, caseID, "case.ready_for_scheduling", audit.OutcomeSuccess, nil)
	return nil
}

// planComplete is the doctor-side completeness predicate: procedure plan,
// risk factors, anesthesia, at least one signed consent and one pre-op image.
func (s *Service) planComplete(ctx context.Context, plan *CasePlan) (bool, []string, error) {
	var missing []string
	if plan.ProcedurePlan == "" {
		missing = append(missing, "procedure plan")
	}
	if plan.RiskFactors == "" {
		missing = append(missing, "risk factors")
	}
	if plan.PlannedAnesthesia == "" {
		missing = append(missing, "planned anesthesia")
	}

	consents, err := s.plans.ListConsents(ctx, plan.ID)
	if err != nil {
		return false, nil, apperr.Internal("load consents failed", err)
	}
	signed := false
	for _, c := range consents {
		if c.Signed {
			signed = true
			break
		}
	}
	if !signed {
		missing = append(missing, "signed consent")
	}

	images, err := s.plans.ListImages(ctx, plan.ID)
	if err != nil {
		return false, nil, apperr.Internal("load images failed", err)
	}
	preOp := false
	for _, img := range images {
		if img.Timepoint == TimepointPreOp {
			preOp = true
			break
		}
	}
	if !preOp {
		missing = append(missing, "pre-op image")
	}

	return len(missing) == 0, missing, nil
}

func (s *Service) recordChange(ctx context.Context, caseID uuid.UUID, actor auth.Actor, from, to, outcome, reason string) {
	ch := &StatusChange{
		CaseID:     caseID,
		ActorID:    actor.ID,
		ActorRole:  actor.Role,
		FromStatus: from,
		ToStatus:   to,
		Outcome:    outcome,
		Reason:     reason,
	}
	if err := s.changes.Create(ctx, ch); err != nil {
		s.logger.Error().Err(err).Str("case_id", caseID.String()).Msg("status change write failed")
	}
}

func (s *Service) auditCase(ctx context.Context, actor auth.Actor, caseID uuid.UUID, action, outcome string, detail map[string]any) {
	s.auditor.Record(ctx, audit.Event{
		ActorID:    actor.ID,
		ActorRole:  actor.Role,
		Action:     action,
		EntityType: "surgical_case",
		EntityID:   caseID,
		Outcome:    outcome,
		Detail:     detail,
	})
}
