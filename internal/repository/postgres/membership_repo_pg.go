package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/rabble-claw/studio-coop/internal/domain"
	"github.com/rabble-claw/studio-coop/internal/repository/ports"
)

type MembershipRepository struct {
	db *sqlx.DB
}

func NewMembershipRepo(db *sqlx.DB) *MembershipRepository {
	return &MembershipRepository{db: db}
}

func (r *MembershipRepository) FindByUserAndOrg(ctx context.Context, userID, orgID uuid.UUID) (*domain.Membership, error) {
	const query = `
        SELECT id, user_account_id, organization_id, role, status, joined_at, created_at, updated_at
        FROM membership
        WHERE user_account_id = $1 AND organization_id = $2
    `
	var membership domain.Membership
	if err := r.db.GetContext(ctx, &membership, query, userID, orgID); err != nil {
		return nil, err
	}
	return &membership, nil
}

// Create relies on the unique (user_account_id, organization_id) constraint to
// reject concurrent duplicates; callers treat a conflict as a row failure.
func (r *MembershipRepository) Create(ctx context.Context, membership *domain.Membership) (*domain.Membership, error) {
	const query = `
        INSERT INTO membership (user_account_id, organization_id, role, status, joined_at)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING id, user_account_id, organization_id, role, status, joined_at, created_at, updated_at
    `
	row := r.db.QueryRowxContext(ctx, query,
		membership.UserID,
		membership.OrganizationID,
		membership.Role,
		membership.Status,
		membership.JoinedAt,
	)
	var inserted domain.Membership
	if err := row.StructScan(&inserted); err != nil {
		return nil, err
	}
	return &inserted, nil
}

func (r *MembershipRepository) ListByOrganization(ctx context.Context, orgID uuid.UUID, limit, offset int) ([]domain.Membership, error) {
	const query = `
        SELECT id, user_account_id, organization_id, role, status, joined_at, created_at, updated_at
        FROM membership
        WHERE organization_id = $1
        ORDER BY joined_at DESC, id DESC
        LIMIT $2 OFFSET $3
    `
	rows, err := r.db.QueryxContext(ctx, query, orgID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	memberships := make([]domain.Membership, 0)
	for rows.Next() {
		var m domain.Membership
		if err := rows.StructScan(&m); err != nil {
			return nil, err
		}
		memberships = append(memberships, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return memberships, nil
}

func (r *MembershipRepository) CountByOrganization(ctx context.Context, orgID uuid.UUID) (int64, error) {
	const query = `
        SELECT COUNT(*)
        FROM membership
        WHERE organization_id = $1
    `
	var count int64
	if err := r.db.GetContext(ctx, &count, query, orgID); err != nil {
		return 0, err
	}
	return count, nil
}

var _ ports.MembershipRepository = (*MembershipRepository)(nil)
