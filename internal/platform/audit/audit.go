// Package audit records an append-only trail of coordination events.
//
// Audit writes are best-effort: a failed write is logged and dropped, it
// never fails the operation that produced it.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// Outcome classifies how the audited operation ended.
const (
	OutcomeSuccess = "success"
	OutcomeDenied  = "denied"
	OutcomeFailure = "failure"
)

// Event is a single audit trail entry.
type Event struct {
	ID         uuid.UUID      `db:"id" json:"id"`
	ActorID    uuid.UUID      `db:"actor_id" json:"actor_id"`
	ActorRole  string         `db:"actor_role" json:"actor_role"`
	Action     string         `db:"action" json:"action"`
	EntityType string         `db:"entity_type" json:"entity_type"`
	EntityID   uuid.UUID      `db:"entity_id" json:"entity_id"`
	Outcome    string         `db:"outcome" json:"outcome"`
	Detail     map[string]any `db:"detail" json:"detail,omitempty"`
	RecordedAt time.Time      `db:"recorded_at" json:"recorded_at"`
}

// Sink persists audit events.
type Sink interface {
	Write(ctx context.Context, ev Event) error
}

// Recorder writes events to a sink and swallows write failures.
type Recorder struct {
	sink   Sink
	logger zerolog.Logger
}

func NewRecorder(sink Sink, logger zerolog.Logger) *Recorder {
	return &Recorder{sink: sink, logger: logger}
}

// Record persists the event. Failures are logged, never returned, so a
// broken audit store cannot block clinical operations.
func (r *Recorder) Record(ctx context.Context, ev Event) {
	if ev.ID == uuid.Nil {
		ev.ID = uuid.New()
	}
	if ev.RecordedAt.IsZero() {
		ev.RecordedAt = time.Now().UTC()
	}

	if err := r.sink.Write(ctx, ev); err != nil {
		r.logger.Error().
			Err(err).
			Str("action", ev.Action).
			Str("entity_type", ev.EntityType).
			Str("entity_id", ev.EntityID.String()).
			Str("outcome", ev.Outcome).
			Msg("audit write failed, event dropped")
	}
}

// PGSink stores audit events in Postgres.
type PGSink struct {
	pool *pgxpool.Pool
}

func NewPGSink(pool *pgxpool.Pool) *PGSink {
	return &PGSink{pool: pool}
}

func (s *PGSink) Write(ctx context.Context, ev Event) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO audit_event (
			id, actor_id, actor_role, action, entity_type, entity_id,
			outcome, detail, recorded_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		ev.ID, ev.ActorID, ev.ActorRole, ev.Action, ev.EntityType, ev.EntityID,
		ev.Outcome, ev.Detail, ev.RecordedAt,
	)
	return err
}

// NopSink discards every event. Used in tests and tooling commands.
type NopSink struct{}

func (NopSink) Write(ctx context.Context, ev Event) error { return nil }
