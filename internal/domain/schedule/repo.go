package schedule

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type BlockRepository interface {
	Create(ctx context.Context, b *ScheduleBlock) error
	GetByID(ctx context.Context, id uuid.UUID) (*ScheduleBlock, error)
	Delete(ctx context.Context, id uuid.UUID) error
	// FindOverlappingDates returns the doctor's blocks whose date ranges
	// intersect [startDate, endDate] (dates inclusive).
	FindOverlappingDates(ctx context.Context, doctorID uuid.UUID, startDate, endDate time.Time) ([]*ScheduleBlock, error)
	ListByDoctor(ctx context.Context, doctorID uuid.UUID, from, to time.Time, limit, offset int) ([]*ScheduleBlock, int, error)
}
