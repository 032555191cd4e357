package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
)

type OrganizationRepositoryInterface interface {
	IsMember(ctx context.Context, orgID uuid.UUID, userID string) (bool, error)
}

type OrganizationRepository struct {
	DB *sql.DB
}

func (r *OrganizationRepository) IsMember(ctx context.Context, orgID uuid.UUID, userID string) (bool, error) {
	var exists bool
	err := r.DB.QueryRowContext(ctx, `
        SELECT EXISTS (
            SELECT 1 FROM organization_members
            WHERE organization_id = $1 AND user_id = $2
        )`, orgID, userID).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}

var _ OrganizationRepositoryInterface = (*OrganizationRepository)(nil)
