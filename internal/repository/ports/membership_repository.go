package ports

import (
	"context"

	"github.com/google/uuid"

	"github.com/rabble-claw/studio-coop/internal/domain"
)

type MembershipRepository interface {
	FindByUserAndOrg(ctx context.Context, userID, orgID uuid.UUID) (*domain.Membership, error)
	Create(ctx context.Context, membership *domain.Membership) (*domain.Membership, error)
	ListByOrganization(ctx context.Context, orgID uuid.UUID, limit, offset int) ([]domain.Membership, error)
	CountByOrganization(ctx context.Context, orgID uuid.UUID) (int64, error)
}
