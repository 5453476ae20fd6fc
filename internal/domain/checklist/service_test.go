package checklist

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/clinicore/clinicore/internal/platform/apperr"
	"github.com/clinicore/clinicore/internal/platform/audit"
	"github.com/clinicore/clinicore/internal/platform/auth"
)

type recordKey struct {
	caseID uuid.UUID
	phase  Phase
}

type mockRecordRepo struct {
	records map[recordKey]*Record
}

func newMockRecordRepo() *mockRecordRepo {
	return &mockRecordRepo{records: make(map[recordKey]*Record)}
}

func (m *mockRecordRepo) Create(ctx context.Context, r *Record) error {
	r.ID = uuid.New()
	cp := *r
	m.records[recordKey{r.CaseID, r.Phase}] = &cp
	return nil
}

func (m *mockRecordRepo) Update(ctx context.Context, r *Record) error {
	cp := *r
	m.records[recordKey{r.CaseID, r.Phase}] = &cp
	return nil
}

func (m *mockRecordRepo) GetByCaseAndPhase(ctx context.Context, caseID uuid.UUID, phase Phase) (*Record, error) {
	r, ok := m.records[recordKey{caseID, phase}]
	if !ok {
		return nil, nil
	}
	cp := *r
	return &cp, nil
}

func (m *mockRecordRepo) ListByCase(ctx context.Context, caseID uuid.UUID) ([]*Record, error) {
	var items []*Record
	for k, r := range m.records {
		if k.caseID == caseID {
			cp := *r
			items = append(items, &cp)
		}
	}
	return items, nil
}

func confirmedItems(names ...string) []Item {
	items := make([]Item, len(names))
	for i, n := range names {
		items[i] = Item{Name: n, Confirmed: true}
	}
	return items
}

func newTestService() (*Service, *mockRecordRepo, *captureSink) {
	repo := newMockRecordRepo()
	sink := &captureSink{}
	svc := NewService(repo, audit.NewRecorder(sink, zerolog.Nop()), zerolog.Nop())
	return svc, repo, sink
}

type captureSink struct {
	events []audit.Event
}

func (s *captureSink) Write(ctx context.Context, ev audit.Event) error {
	s.events = append(s.events, ev)
	return nil
}

var nurse = auth.Actor{ID: uuid.New(), Role: auth.RoleNurse}

func TestCompletePhase_AllConfirmed(t *testing.T) {
	svc, _, sink := newTestService()
	caseID := uuid.New()

	rec, err := svc.CompletePhase(context.Background(), caseID, PhaseSignIn,
		confirmedItems("patient identity confirmed", "surgical site marked"), nurse)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !rec.Completed {
		t.Error("expected record to be completed")
	}
	if rec.CompletedBy == nil || *rec.CompletedBy != nurse.ID {
		t.Error("expected completed_by to be the acting nurse")
	}
	if len(sink.events) != 1 || sink.events[0].Outcome != audit.OutcomeSuccess {
		t.Fatalf("expected one success audit event, got %+v", sink.events)
	}
}

func TestCompletePhase_UnconfirmedItemsRejected(t *testing.T) {
	svc, _, sink := newTestService()
	caseID := uuid.New()

	_, err := svc.CompletePhase(context.Background(), caseID, PhaseSignIn, []Item{
		{Name: "patient identity confirmed", Confirmed: true},
		{Name: "surgical site marked", Confirmed: false},
		{Name: "known allergies reviewed", Confirmed: false},
	}, nurse)

	if !apperr.IsKind(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	missing := apperr.MissingItems(err)
	if len(missing) != 2 || missing[0] != "surgical site marked" || missing[1] != "known allergies reviewed" {
		t.Fatalf("unexpected missing items: %v", missing)
	}
	if len(sink.events) != 1 || sink.events[0].Outcome != audit.OutcomeDenied {
		t.Fatalf("expected one denied audit event, got %+v", sink.events)
	}
}

func TestCompletePhase_IdempotentResubmission(t *testing.T) {
	svc, _, sink := newTestService()
	caseID := uuid.New()

	first, err := svc.CompletePhase(context.Background(), caseID, PhaseSignIn,
		confirmedItems("patient identity confirmed"), nurse)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Re-submitting, even with different items, returns the stored record.
	second, err := svc.CompletePhase(context.Background(), caseID, PhaseSignIn,
		confirmedItems("something else entirely"), nurse)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if second.ID != first.ID {
		t.Error("expected the same record back")
	}
	if len(second.Items) != 1 || second.Items[0].Name != "patient identity confirmed" {
		t.Error("expected stored items to be unchanged")
	}
	if len(sink.events) != 2 {
		t.Fatalf("expected both submissions audited, got %d events", len(sink.events))
	}
}

func TestCompletePhase_EnforcesPhaseOrder(t *testing.T) {
	svc, _, _ := newTestService()
	caseID := uuid.New()

	_, err := svc.CompletePhase(context.Background(), caseID, PhaseTimeOut,
		confirmedItems("all team members introduced"), nurse)
	if !apperr.IsKind(err, apperr.KindGateIncomplete) {
		t.Fatalf("expected gate incomplete, got %v", err)
	}
	if len(apperr.MissingItems(err)) == 0 {
		t.Error("expected missing sign-in items to be reported")
	}

	if _, err := svc.CompletePhase(context.Background(), caseID, PhaseSignIn,
		confirmedItems("patient identity confirmed"), nurse); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.CompletePhase(context.Background(), caseID, PhaseTimeOut,
		confirmedItems("all team members introduced"), nurse); err != nil {
		t.Fatalf("expected time-out to succeed after sign-in, got %v", err)
	}
}

func TestCompletePhase_RejectsUnknownPhaseAndEmptyItems(t *testing.T) {
	svc, _, _ := newTestService()
	caseID := uuid.New()

	_, err := svc.CompletePhase(context.Background(), caseID, Phase("DEBRIEF"),
		confirmedItems("x"), nurse)
	if !apperr.IsKind(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}

	_, err = svc.CompletePhase(context.Background(), caseID, PhaseSignIn, nil, nurse)
	if !apperr.IsKind(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestPhaseComplete_ReportsCanonicalItemsWhenUnsubmitted(t *testing.T) {
	svc, _, _ := newTestService()
	caseID := uuid.New()

	done, missing, err := svc.PhaseComplete(context.Background(), caseID, PhaseSignIn)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if done {
		t.Error("expected phase to be incomplete")
	}
	if len(missing) != len(CanonicalItems(PhaseSignIn)) {
		t.Errorf("expected canonical item set, got %v", missing)
	}
}

func TestPhaseComplete_AfterCompletion(t *testing.T) {
	svc, _, _ := newTestService()
	caseID := uuid.New()

	if _, err := svc.CompletePhase(context.Background(), caseID, PhaseSignIn,
		confirmedItems("patient identity confirmed"), nurse); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	done, missing, err := svc.PhaseComplete(context.Background(), caseID, PhaseSignIn)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !done || missing != nil {
		t.Errorf("expected complete with no missing items, got done=%v missing=%v", done, missing)
	}
}
