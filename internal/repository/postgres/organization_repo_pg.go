package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/rabble-claw/studio-coop/internal/domain"
	"github.com/rabble-claw/studio-coop/internal/repository/ports"
)

type OrganizationRepository struct {
	db *sqlx.DB
}

func NewOrganizationRepo(db *sqlx.DB) *OrganizationRepository {
	return &OrganizationRepository{db: db}
}

func (r *OrganizationRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Organization, error) {
	const query = `
        SELECT id, name, slug, tags, created_at, updated_at
        FROM organization
        WHERE id = $1
    `
	return r.scanOne(ctx, query, id)
}

func (r *OrganizationRepository) FindBySlug(ctx context.Context, slug string) (*domain.Organization, error) {
	const query = `
        SELECT id, name, slug, tags, created_at, updated_at
        FROM organization
        WHERE slug = $1
    `
	return r.scanOne(ctx, query, slug)
}

func (r *OrganizationRepository) Create(ctx context.Context, org *domain.Organization) (*domain.Organization, error) {
	const query = `
        INSERT INTO organization (name, slug, tags)
        VALUES ($1, $2, $3)
        RETURNING id, name, slug, tags, created_at, updated_at
    `
	row := r.db.QueryRowxContext(ctx, query, org.Name, org.Slug, pq.Array(org.Tags))
	return scanOrganization(row)
}

func (r *OrganizationRepository) List(ctx context.Context, limit, offset int) ([]domain.Organization, error) {
	const query = `
        SELECT id, name, slug, tags, created_at, updated_at
        FROM organization
        ORDER BY name ASC, id ASC
        LIMIT $1 OFFSET $2
    `
	rows, err := r.db.QueryxContext(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	orgs := make([]domain.Organization, 0)
	for rows.Next() {
		org, err := scanOrganization(rows)
		if err != nil {
			return nil, err
		}
		orgs = append(orgs, *org)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return orgs, nil
}

func (r *OrganizationRepository) scanOne(ctx context.Context, query string, arg any) (*domain.Organization, error) {
	return scanOrganization(r.db.QueryRowxContext(ctx, query, arg))
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrganization(row rowScanner) (*domain.Organization, error) {
	var org domain.Organization
	if err := row.Scan(
		&org.ID,
		&org.Name,
		&org.Slug,
		pq.Array(&org.Tags),
		&org.CreatedAt,
		&org.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &org, nil
}

var _ ports.OrganizationRepository = (*OrganizationRepository)(nil)
