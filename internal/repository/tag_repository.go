package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/unclebandit/nanis-backend/internal/model"
)

type TagRepositoryInterface interface {
	ListByOrganization(ctx context.Context, orgID uuid.UUID) ([]model.Tag, error)
}

type TagRepository struct {
	DB *sql.DB
}

// ListByOrganization returns the organization's tags ordered by name.
func (r *TagRepository) ListByOrganization(ctx context.Context, orgID uuid.UUID) ([]model.Tag, error) {
	query := `
        SELECT id, organization_id, name, color, created_at
        FROM contact_tags
        WHERE organization_id = $1
        ORDER BY name ASC
    `
	rows, err := r.DB.QueryContext(ctx, query, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tags := []model.Tag{}
	for rows.Next() {
		var t model.Tag
		if err := rows.Scan(&t.ID, &t.OrganizationID, &t.Name, &t.Color, &t.CreatedAt); err != nil {
			return nil, err
		}
		tags = append(tags, t)
	}
	return tags, rows.Err()
}

var _ TagRepositoryInterface = (*TagRepository)(nil)
