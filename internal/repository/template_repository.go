package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	appErrors "github.com/unclebandit/nanis-backend/internal/errors"
	"github.com/unclebandit/nanis-backend/internal/model"
)

type TemplateRepositoryInterface interface {
	GetByID(ctx context.Context, orgID, id uuid.UUID) (*model.Template, error)
}

type TemplateRepository struct {
	DB *sql.DB
}

func (r *TemplateRepository) GetByID(ctx context.Context, orgID, id uuid.UUID) (*model.Template, error) {
	query := `
        SELECT id, organization_id, name, subject_line, COALESCE(content_html, ''), created_at
        FROM templates
        WHERE id = $1 AND organization_id = $2
    `
	var t model.Template
	err := r.DB.QueryRowContext(ctx, query, id, orgID).Scan(
		&t.ID, &t.OrganizationID, &t.Name, &t.SubjectLine, &t.ContentHTML, &t.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.NewNotFound("template")
		}
		return nil, err
	}
	return &t, nil
}

var _ TemplateRepositoryInterface = (*TemplateRepository)(nil)
