package staff

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/clinicore/clinicore/internal/platform/apperr"
)

type mockDoctorRepo struct {
	doctors map[uuid.UUID]*Doctor
}

func newMockDoctorRepo() *mockDoctorRepo {
	return &mockDoctorRepo{doctors: make(map[uuid.UUID]*Doctor)}
}

func (m *mockDoctorRepo) Create(ctx context.Context, d *Doctor) error {
	d.ID = uuid.New()
	cp := *d
	m.doctors[d.ID] = &cp
	return nil
}

func (m *mockDoctorRepo) GetByID(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	d, ok := m.doctors[id]
	if !ok {
		return nil, apperr.NotFound("doctor")
	}
	cp := *d
	return &cp, nil
}

func (m *mockDoctorRepo) Update(ctx context.Context, d *Doctor) error {
	cp := *d
	m.doctors[d.ID] = &cp
	return nil
}

func (m *mockDoctorRepo) List(ctx context.Context, limit, offset int) ([]*Doctor, int, error) {
	var items []*Doctor
	for _, d := range m.doctors {
		cp := *d
		items = append(items, &cp)
	}
	return items, len(m.doctors), nil
}

func (m *mockDoctorRepo) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	d, ok := m.doctors[id]
	return ok && d.IsActive, nil
}

func TestCreateDoctor_RequiresName(t *testing.T) {
	svc := NewService(newMockDoctorRepo())
	err := svc.CreateDoctor(context.Background(), &Doctor{})
	if !apperr.IsKind(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCreateDoctor_ActivatesAndStores(t *testing.T) {
	repo := newMockDoctorRepo()
	svc := NewService(repo)

	d := &Doctor{Name: "Dr. Osei", Specialty: "orthopedics"}
	if err := svc.CreateDoctor(context.Background(), d); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !d.IsActive {
		t.Error("expected new doctor to be active")
	}

	ok, err := svc.DoctorExists(context.Background(), d.ID)
	if err != nil || !ok {
		t.Fatalf("expected doctor to exist, ok=%v err=%v", ok, err)
	}
}

func TestDeactivateDoctor(t *testing.T) {
	repo := newMockDoctorRepo()
	svc := NewService(repo)

	d := &Doctor{Name: "Dr. Osei"}
	if err := svc.CreateDoctor(context.Background(), d); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := svc.DeactivateDoctor(context.Background(), d.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ok, _ := svc.DoctorExists(context.Background(), d.ID)
	if ok {
		t.Error("expected deactivated doctor to fail existence check")
	}
}

func TestGetDoctor_NotFound(t *testing.T) {
	svc := NewService(newMockDoctorRepo())
	_, err := svc.GetDoctor(context.Background(), uuid.New())
	if !apperr.IsKind(err, apperr.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
