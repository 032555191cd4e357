package service

import (
	"context"

	"github.com/google/uuid"

	appErrors "github.com/unclebandit/nanis-backend/internal/errors"
	"github.com/unclebandit/nanis-backend/internal/model"
	"github.com/unclebandit/nanis-backend/internal/repository"
)

type TagService struct {
	TagRepo repository.TagRepositoryInterface
}

func (s *TagService) ListTags(ctx context.Context, orgID uuid.UUID) ([]model.Tag, error) {
	tags, err := s.TagRepo.ListByOrganization(ctx, orgID)
	if err != nil {
		return nil, appErrors.NewStorage("list tags", err)
	}
	return tags, nil
}
