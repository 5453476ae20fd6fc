package schedule

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/clinicore/clinicore/internal/platform/apperr"
)

// DoctorDirectory is the staff lookup the validator needs.
type DoctorDirectory interface {
	DoctorExists(ctx context.Context, id uuid.UUID) (bool, error)
}

var validBlockTypes = map[string]bool{
	BlockLeave: true, BlockSurgery: true, BlockClinic: true,
	BlockAdmin: true, BlockTraining: true,
}

type Service struct {
	blocks  BlockRepository
	doctors DoctorDirectory
}

func NewService(blocks BlockRepository, doctors DoctorDirectory) *Service {
	return &Service{blocks: blocks, doctors: doctors}
}

// CreateBlock validates the candidate block against the doctor's existing
// blocks and persists it. Conflict detection is two-axis: date ranges first,
// then time-of-day within each shared calendar day. A full-day block behaves
// as a wildcard across the whole time-of-day axis.
func (s *Service) CreateBlock(ctx context.Context, b *ScheduleBlock) error {
	exists, err := s.doctors.DoctorExists(ctx, b.DoctorID)
	if err != nil {
		return apperr.Internal("doctor lookup failed", err)
	}
	if !exists {
		return apperr.NotFound("doctor")
	}

	b.StartDate = dateOnly(b.StartDate)
	b.EndDate = dateOnly(b.EndDate)
	if b.StartDate.IsZero() || b.EndDate.IsZero() {
		return apperr.Validation("start_date and end_date are required")
	}
	if b.EndDate.Before(b.StartDate) {
		return apperr.Validation("end_date must not be before start_date")
	}
	if !validBlockTypes[b.BlockType] {
		return apperr.Newf(apperr.KindValidation, "invalid block_type: %s", b.BlockType)
	}

	var candStart, candEnd int
	if !b.FullDay() {
		if b.StartTime == "" || b.EndTime == "" {
			return apperr.Validation("start_time and end_time must both be set or both be empty")
		}
		candStart, err = parseClock(b.StartTime)
		if err != nil {
			return apperr.Newf(apperr.KindValidation, "invalid start_time: %s (expected HH:mm)", b.StartTime)
		}
		candEnd, err = parseClock(b.EndTime)
		if err != nil {
			return apperr.Newf(apperr.KindValidation, "invalid end_time: %s (expected HH:mm)", b.EndTime)
		}
		if candEnd <= candStart {
			return apperr.Validation("end_time must be after start_time")
		}
		if !b.StartDate.Equal(b.EndDate) {
			return apperr.Validation("custom hours are only allowed on single-day blocks")
		}
	}

	existing, err := s.blocks.FindOverlappingDates(ctx, b.DoctorID, b.StartDate, b.EndDate)
	if err != nil {
		return apperr.Internal("load schedule blocks failed", err)
	}

	if b.FullDay() {
		for _, other := range existing {
			if !other.FullDay() {
				return apperr.Newf(apperr.KindConflict,
					"full-day block overlaps an existing %s block starting %s",
					other.BlockType, other.StartDate.Format("2006-01-02"))
			}
		}
		if len(existing) > 0 {
			return apperr.Newf(apperr.KindConflict,
				"full-day block exists for %s", existing[0].StartDate.Format("2006-01-02"))
		}
		return s.blocks.Create(ctx, b)
	}

	for _, other := range existing {
		if other.FullDay() {
			return apperr.Newf(apperr.KindConflict,
				"full-day block exists for %s", b.StartDate.Format("2006-01-02"))
		}
	}

	// Partial vs partial: walk each day the candidate spans and compare
	// minute offsets on days shared with an existing block.
	for day := b.StartDate; !day.After(b.EndDate); day = day.AddDate(0, 0, 1) {
		for _, other := range existing {
			if day.Before(other.StartDate) || day.After(other.EndDate) {
				continue
			}
			otherStart, err := parseClock(other.StartTime)
			if err != nil {
				return apperr.Internal("stored block has malformed start_time", err)
			}
			otherEnd, err := parseClock(other.EndTime)
			if err != nil {
				return apperr.Internal("stored block has malformed end_time", err)
			}
			if candStart < otherEnd && candEnd > otherStart {
				return apperr.Newf(apperr.KindConflict,
					"time conflict with existing %s block on %s",
					other.BlockType, day.Format("2006-01-02"))
			}
		}
	}

	return s.blocks.Create(ctx, b)
}

func (s *Service) GetBlock(ctx context.Context, id uuid.UUID) (*ScheduleBlock, error) {
	b, err := s.blocks.GetByID(ctx, id)
	if err != nil {
		return nil, apperr.NotFound("schedule block")
	}
	return b, nil
}

func (s *Service) DeleteBlock(ctx context.Context, id uuid.UUID) error {
	if _, err := s.blocks.GetByID(ctx, id); err != nil {
		return apperr.NotFound("schedule block")
	}
	return s.blocks.Delete(ctx, id)
}

func (s *Service) ListBlocks(ctx context.Context, doctorID uuid.UUID, from, to time.Time, limit, offset int) ([]*ScheduleBlock, int, error) {
	return s.blocks.ListByDoctor(ctx, doctorID, dateOnly(from), dateOnly(to), limit, offset)
}

// parseClock converts an HH:mm string to minutes since midnight.
func parseClock(v string) (int, error) {
	t, err := time.Parse("15:04", v)
	if err != nil {
		return 0, err
	}
	return t.Hour()*60 + t.Minute(), nil
}

func dateOnly(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
