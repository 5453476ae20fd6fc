package surgcase

import (
	"context"

	"github.com/google/uuid"
)

type CaseRepository interface {
	Create(ctx context.Context, sc *SurgicalCase) error
	GetByID(ctx context.Context, id uuid.UUID) (*SurgicalCase, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
	List(ctx context.Context, limit, offset int) ([]*SurgicalCase, int, error)
}

type PlanRepository interface {
	Create(ctx context.Context, p *CasePlan) error
	GetByCaseID(ctx context.Context, caseID uuid.UUID) (*CasePlan, error)
	Update(ctx context.Context, p *CasePlan) error
	AddConsent(ctx context.Context, c *Consent) error
	GetConsent(ctx context.Context, id uuid.UUID) (*Consent, error)
	UpdateConsent(ctx context.Context, c *Consent) error
	ListConsents(ctx context.Context, planID uuid.UUID) ([]*Consent, error)
	AddImage(ctx context.Context, img *CaseImage) error
	ListImages(ctx context.Context, planID uuid.UUID) ([]*CaseImage, error)
}

type StatusChangeRepository interface {
	Create(ctx context.Context, ch *StatusChange) error
	ListByCase(ctx context.Context, caseID uuid.UUID) ([]*StatusChange, error)
}
