package audit

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type captureSink struct {
	events []Event
	err    error
}

func (s *captureSink) Write(ctx context.Context, ev Event) error {
	if s.err != nil {
		return s.err
	}
	s.events = append(s.events, ev)
	return nil
}

func TestRecorder_FillsDefaults(t *testing.T) {
	sink := &captureSink{}
	rec := NewRecorder(sink, zerolog.Nop())

	rec.Record(context.Background(), Event{
		ActorID:    uuid.New(),
		ActorRole:  "nurse",
		Action:     "checklist.complete",
		EntityType: "surgical_case",
		EntityID:   uuid.New(),
		Outcome:    OutcomeSuccess,
	})

	if len(sink.events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(sink.events))
	}
	ev := sink.events[0]
	if ev.ID == uuid.Nil {
		t.Error("expected generated event ID")
	}
	if ev.RecordedAt.IsZero() {
		t.Error("expected recorded_at to be set")
	}
}

func TestRecorder_SwallowsWriteFailure(t *testing.T) {
	sink := &captureSink{err: errors.New("connection refused")}
	rec := NewRecorder(sink, zerolog.Nop())

	// Must not panic or propagate the sink error.
	rec.Record(context.Background(), Event{
		Action:  "booking.confirm",
		Outcome: OutcomeFailure,
	})
}

func TestNopSink(t *testing.T) {
	if err := (NopSink{}).Write(context.Background(), Event{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
