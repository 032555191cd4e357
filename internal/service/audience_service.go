// internal/service/audience_service.go
package service

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	appErrors "github.com/unclebandit/nanis-backend/internal/errors"
	"github.com/unclebandit/nanis-backend/internal/metrics"
	"github.com/unclebandit/nanis-backend/internal/model"
	"github.com/unclebandit/nanis-backend/internal/repository"
)

var validate = validator.New()

// CountCache stores audience totals between page requests. Implementations
// must ignore page and limit when keying.
type CountCache interface {
	GetCount(ctx context.Context, orgID uuid.UUID, f model.AudienceFilter) (int, bool, error)
	SetCount(ctx context.Context, orgID uuid.UUID, f model.AudienceFilter, total int) error
}

// AudiencePage is one page of a resolved audience.
type AudiencePage struct {
	Data       []*model.Contact `json:"data"`
	Page       int              `json:"page"`
	Limit      int              `json:"limit"`
	Total      int              `json:"total"`
	TotalPages int              `json:"totalPages"`
}

type AudienceService struct {
	ContactRepo repository.ContactRepositoryInterface
	Cache       CountCache
	Logger      *zap.Logger
}

// NewAudienceService wires the resolver. cache may be nil.
func NewAudienceService(repo repository.ContactRepositoryInterface, cache CountCache, log *zap.Logger) *AudienceService {
	if log == nil {
		log = zap.NewNop()
	}
	return &AudienceService{ContactRepo: repo, Cache: cache, Logger: log}
}

// Resolve evaluates f against orgID's contacts and returns the requested page,
// ordered newest first. A page past the end is empty with an accurate total.
// The total may come from the count cache.
func (s *AudienceService) Resolve(ctx context.Context, orgID uuid.UUID, f model.AudienceFilter) (*AudiencePage, error) {
	return s.resolve(ctx, orgID, f, true)
}

// ResolveFresh is Resolve with the total always counted from the store. The
// fresh total is written back to the cache.
func (s *AudienceService) ResolveFresh(ctx context.Context, orgID uuid.UUID, f model.AudienceFilter) (*AudiencePage, error) {
	return s.resolve(ctx, orgID, f, false)
}

func (s *AudienceService) resolve(ctx context.Context, orgID uuid.UUID, f model.AudienceFilter, cached bool) (*AudiencePage, error) {
	start := time.Now()
	result := "ok"
	defer func() {
		metrics.AudienceResolveDuration.WithLabelValues(result).Observe(time.Since(start).Seconds())
	}()

	if err := validate.Struct(f); err != nil {
		result = "invalid"
		return nil, appErrors.NewValidation("page or limit out of range", err)
	}

	page := &AudiencePage{Data: []*model.Contact{}, Page: f.Page, Limit: f.Limit}

	if f.Unsatisfiable() {
		result = "unsatisfiable"
		return page, nil
	}

	total, err := s.count(ctx, orgID, f, cached)
	if err != nil {
		result = "error"
		return nil, appErrors.NewStorage("count contacts", err)
	}
	page.Total = total
	page.TotalPages = (total + f.Limit - 1) / f.Limit

	if f.Offset() >= total {
		return page, nil
	}

	contacts, err := s.ContactRepo.ListByFilter(ctx, orgID, f)
	if err != nil {
		result = "error"
		return nil, appErrors.NewStorage("list contacts", err)
	}
	if !f.IncludeCustomFields {
		for _, c := range contacts {
			c.CustomFields = nil
		}
	}
	page.Data = contacts
	return page, nil
}

// GetContact returns one contact of the organization with its custom fields.
func (s *AudienceService) GetContact(ctx context.Context, orgID, contactID uuid.UUID) (*model.Contact, error) {
	c, err := s.ContactRepo.GetByID(ctx, orgID, contactID)
	if err != nil {
		if appErrors.IsNotFound(err) {
			return nil, err
		}
		return nil, appErrors.NewStorage("get contact", err)
	}
	return c, nil
}

func (s *AudienceService) count(ctx context.Context, orgID uuid.UUID, f model.AudienceFilter, cached bool) (int, error) {
	if s.Cache != nil && cached {
		total, ok, err := s.Cache.GetCount(ctx, orgID, f)
		if err != nil {
			s.Logger.Warn("audience count cache read failed", zap.String("organization_id", orgID.String()), zap.Error(err))
		} else if ok {
			return total, nil
		}
	}

	total, err := s.ContactRepo.CountByFilter(ctx, orgID, f)
	if err != nil {
		return 0, err
	}

	if s.Cache != nil {
		if err := s.Cache.SetCount(ctx, orgID, f, total); err != nil {
			s.Logger.Warn("audience count cache write failed", zap.String("organization_id", orgID.String()), zap.Error(err))
		}
	}
	return total, nil
}
