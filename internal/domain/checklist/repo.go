package checklist

import (
	"context"

	"github.com/google/uuid"
)

type RecordRepository interface {
	Create(ctx context.Context, r *Record) error
	Update(ctx context.Context, r *Record) error
	// GetByCaseAndPhase returns (nil, nil) when no record exists yet.
	GetByCaseAndPhase(ctx context.Context, caseID uuid.UUID, phase Phase) (*Record, error)
	ListByCase(ctx context.Context, caseID uuid.UUID) ([]*Record, error)
}
