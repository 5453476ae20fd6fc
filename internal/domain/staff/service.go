package staff

import (
	"context"

	"github.com/google/uuid"

	"github.com/clinicore/clinicore/internal/platform/apperr"
)

type Service struct {
	doctors DoctorRepository
}

func NewService(doctors DoctorRepository) *Service {
	return &Service{doctors: doctors}
}

func (s *Service) CreateDoctor(ctx context.Context, d *Doctor) error {
	if d.Name == "" {
		return apperr.Validation("name is required")
	}
	d.IsActive = true
	return s.doctors.Create(ctx, d)
}

func (s *Service) GetDoctor(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	d, err := s.doctors.GetByID(ctx, id)
	if err != nil {
		return nil, apperr.NotFound("doctor")
	}
	return d, nil
}

func (s *Service) ListDoctors(ctx context.Context, limit, offset int) ([]*Doctor, int, error) {
	return s.doctors.List(ctx, limit, offset)
}

// DeactivateDoctor removes a doctor from the active directory. The row is
// kept because cases and schedule blocks reference it.
func (s *Service) DeactivateDoctor(ctx context.Context, id uuid.UUID) error {
	d, err := s.doctors.GetByID(ctx, id)
	if err != nil {
		return apperr.NotFound("doctor")
	}
	d.IsActive = false
	return s.doctors.Update(ctx, d)
}

// DoctorExists reports whether an active doctor with the given id is on file.
func (s *Service) DoctorExists(ctx context.Context, id uuid.UUID) (bool, error) {
	return s.doctors.Exists(ctx, id)
}
