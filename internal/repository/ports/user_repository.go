package ports

import (
	"context"

	"github.com/google/uuid"

	"github.com/rabble-claw/studio-coop/internal/domain"
)

type UserRepository interface {
	Create(ctx context.Context, email string, fullName *string, phone *string) (*domain.User, error)
	CreateEmailUser(ctx context.Context, email string, passwordHash, passwordSalt []byte) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	List(ctx context.Context, limit, offset int) ([]domain.User, error)
}
