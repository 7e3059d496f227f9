package ports

import (
	"context"

	"github.com/google/uuid"

	"github.com/rabble-claw/studio-coop/internal/domain"
)

type OrganizationRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Organization, error)
	FindBySlug(ctx context.Context, slug string) (*domain.Organization, error)
	Create(ctx context.Context, org *domain.Organization) (*domain.Organization, error)
	List(ctx context.Context, limit, offset int) ([]domain.Organization, error)
}
