package checklist

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/clinicore/clinicore/internal/platform/apperr"
	"github.com/clinicore/clinicore/internal/platform/audit"
	"github.com/clinicore/clinicore/internal/platform/auth"
)

type Service struct {
	records RecordRepository
	auditor *audit.Recorder
	logger  zerolog.Logger
}

func NewService(records RecordRepository, auditor *audit.Recorder, logger zerolog.Logger) *Service {
	return &Service{records: records, auditor: auditor, logger: logger}
}

// CompletePhase records a phase's confirmations. It succeeds only when every
// submitted item is confirmed; otherwise it fails naming the unconfirmed
// items. Re-submitting an already-complete phase is an idempotent no-op
// returning the stored record. Both outcomes are audited.
func (s *Service) CompletePhase(ctx context.Context, caseID uuid.UUID, phase Phase, items []Item, actor auth.Actor) (*Record, error) {
	if !ValidPhase(phase) {
		return nil, apperr.Newf(apperr.KindValidation, "unknown checklist phase: %s", phase)
	}
	if len(items) == 0 {
		return nil, apperr.Validation("at least one checklist item is required")
	}

	existing, err := s.records.GetByCaseAndPhase(ctx, caseID, phase)
	if err != nil {
		return nil, apperr.Internal("load checklist record failed", err)
	}
	if existing != nil && existing.Completed {
		s.audit(ctx, actor, caseID, phase, audit.OutcomeSuccess, map[string]any{"idempotent": true})
		return existing, nil
	}

	// Earlier phases must be completed first.
	if prev, ok := Predecessor(phase); ok {
		done, missing, err := s.PhaseComplete(ctx, caseID, prev)
		if err != nil {
			return nil, err
		}
		if !done {
			s.audit(ctx, actor, caseID, phase, audit.OutcomeDenied, map[string]any{"blocked_by": string(prev)})
			return nil, apperr.GateIncomplete(string(prev)+" must be completed first", missing)
		}
	}

	var unconfirmed []string
	for _, it := range items {
		if !it.Confirmed {
			unconfirmed = append(unconfirmed, it.Name)
		}
	}
	if len(unconfirmed) > 0 {
		s.audit(ctx, actor, caseID, phase, audit.OutcomeDenied, map[string]any{"unconfirmed": unconfirmed})
		return nil, &apperr.Error{
			Kind:    apperr.KindValidation,
			Msg:     "all checklist items must be confirmed",
			Missing: unconfirmed,
		}
	}

	now := time.Now().UTC()
	if existing == nil {
		existing = &Record{CaseID: caseID, Phase: phase}
	}
	existing.Items = items
	existing.Completed = true
	existing.CompletedBy = &actor.ID
	existing.CompletedAt = &now

	if existing.ID == uuid.Nil {
		err = s.records.Create(ctx, existing)
	} else {
		err = s.records.Update(ctx, existing)
	}
	if err != nil {
		return nil, apperr.Internal("store checklist record failed", err)
	}

	s.audit(ctx, actor, caseID, phase, audit.OutcomeSuccess, nil)
	return existing, nil
}

// PhaseComplete reports whether the phase is complete for the case and, if
// not, which item names are still unmet. When nothing has been submitted
// yet the canonical item set for the phase is reported.
func (s *Service) PhaseComplete(ctx context.Context, caseID uuid.UUID, phase Phase) (bool, []string, error) {
	if !ValidPhase(phase) {
		return false, nil, apperr.Newf(apperr.KindValidation, "unknown checklist phase: %s", phase)
	}
	rec, err := s.records.GetByCaseAndPhase(ctx, caseID, phase)
	if err != nil {
		return false, nil, apperr.Internal("load checklist record failed", err)
	}
	if rec == nil {
		return false, CanonicalItems(phase), nil
	}
	if rec.Completed {
		return true, nil, nil
	}
	var missing []string
	for _, it := range rec.Items {
		if !it.Confirmed {
			missing = append(missing, it.Name)
		}
	}
	if len(missing) == 0 {
		missing = CanonicalItems(phase)
	}
	return false, missing, nil
}

// GetChecklist returns all phase records for a case.
func (s *Service) GetChecklist(ctx context.Context, caseID uuid.UUID) ([]*Record, error) {
	recs, err := s.records.ListByCase(ctx, caseID)
	if err != nil {
		return nil, apperr.Internal("load checklist failed", err)
	}
	return recs, nil
}

func (s *Service) audit(ctx context.Context, actor auth.Actor, caseID uuid.UUID, phase Phase, outcome string, detail map[string]any) {
	if detail == nil {
		detail = map[string]any{}
	}
	detail["phase"] = string(phase)
	s.auditor.Record(ctx, audit.Event{
		ActorID:    actor.ID,
		ActorRole:  actor.Role,
		Action:     "checklist.complete_phase",
		EntityType: "surgical_case",
		EntityID:   caseID,
		Outcome:    outcome,
		Detail:     detail,
	})
}
