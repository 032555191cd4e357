// internal/service/campaign_service.go
package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	appErrors "github.com/unclebandit/nanis-backend/internal/errors"
	"github.com/unclebandit/nanis-backend/internal/model"
	"github.com/unclebandit/nanis-backend/internal/repository"
)

type CampaignService struct {
	CampaignRepo  repository.CampaignRepositoryInterface
	RecipientRepo repository.RecipientRepositoryInterface
	TemplateRepo  repository.TemplateRepositoryInterface
	Audience      *AudienceService
	Logger        *zap.Logger
}

type CreateCampaignInput struct {
	Name        string     `json:"name" validate:"required,max=200"`
	TemplateID  *uuid.UUID `json:"template_id"`
	SubjectLine *string    `json:"subject_line" validate:"omitempty,max=300"`
	ScheduledAt *string    `json:"scheduled_at"`
}

// UpdateCampaignInput is a partial update. An empty scheduled_at clears the schedule.
type UpdateCampaignInput struct {
	Name        *string    `json:"name" validate:"omitempty,min=1,max=200"`
	TemplateID  *uuid.UUID `json:"template_id"`
	SubjectLine *string    `json:"subject_line" validate:"omitempty,max=300"`
	Status      *string    `json:"status" validate:"omitempty,oneof=draft scheduled paused"`
	ScheduledAt *string    `json:"scheduled_at"`
}

type TargetRulesInput struct {
	IncludeTags         []string `json:"include_tags" validate:"dive,max=64"`
	ExcludeTags         []string `json:"exclude_tags" validate:"dive,max=64"`
	ExcludeCountries    []string `json:"exclude_countries" validate:"dive,max=8"`
	ExcludeUnsubscribed *bool    `json:"exclude_unsubscribed"`
	ExcludeInactive     *bool    `json:"exclude_inactive"`
	ExcludeBounced      *bool    `json:"exclude_bounced"`
}

type CampaignDetails struct {
	*model.Campaign
	Stats map[string]int `json:"stats"`
}

type PrepareResult struct {
	CampaignID uuid.UUID `json:"campaign_id"`
	Matched    int       `json:"matched"`
	Inserted   int       `json:"inserted"`
}

type PreviewResult struct {
	ContactID    uuid.UUID `json:"contact_id"`
	SubjectLine  string    `json:"subject_line"`
	Rendered     string    `json:"rendered_message"`
	UsedOverride bool      `json:"used_override"`
}

// editableStatuses are the states a campaign can be edited or prepared in.
var editableStatuses = map[string]bool{
	model.CampaignStatusDraft:     true,
	model.CampaignStatusScheduled: true,
	model.CampaignStatusPaused:    true,
}

func (s *CampaignService) logger() *zap.Logger {
	if s.Logger == nil {
		return zap.NewNop()
	}
	return s.Logger
}

func parseScheduledAt(raw *string) (*time.Time, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, strings.TrimSpace(*raw))
	if err != nil {
		return nil, appErrors.NewValidation("scheduled_at must be an RFC3339 timestamp", err)
	}
	t = t.UTC()
	return &t, nil
}

// CreateCampaign stores a new draft campaign.
func (s *CampaignService) CreateCampaign(ctx context.Context, orgID uuid.UUID, userID string, in CreateCampaignInput) (*model.Campaign, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := validate.Struct(in); err != nil {
		return nil, appErrors.NewValidation("invalid campaign", err)
	}
	scheduledAt, err := parseScheduledAt(in.ScheduledAt)
	if err != nil {
		return nil, err
	}

	c := &model.Campaign{
		OrganizationID: orgID,
		Name:           in.Name,
		TemplateID:     in.TemplateID,
		SubjectLine:    in.SubjectLine,
		Status:         model.CampaignStatusDraft,
		ScheduledAt:    scheduledAt,
		CreatedBy:      userID,
	}
	if err := s.CampaignRepo.Create(ctx, c); err != nil {
		return nil, appErrors.NewStorage("create campaign", err)
	}
	s.logger().Info("campaign created", zap.String("campaign_id", c.ID.String()), zap.String("organization_id", orgID.String()))
	return c, nil
}

// ListCampaigns fetches campaigns with pagination
func (s *CampaignService) ListCampaigns(ctx context.Context, orgID uuid.UUID, page, pageSize int, status string) ([]model.Campaign, map[string]int, error) {
	page, pageSize = clampPage(page, pageSize)
	offset := (page - 1) * pageSize

	ptrs, total, err := s.CampaignRepo.ListCampaigns(ctx, orgID, offset, pageSize, status)
	if err != nil {
		return nil, nil, appErrors.NewStorage("list campaigns", err)
	}

	campaigns := make([]model.Campaign, len(ptrs))
	for i, c := range ptrs {
		campaigns[i] = *c
	}

	return campaigns, paginationOf(page, pageSize, total), nil
}

// ListRecipients pages through a campaign's recipient rows, optionally only
// those in one status.
func (s *CampaignService) ListRecipients(ctx context.Context, orgID, campaignID uuid.UUID, page, pageSize int, status string) ([]model.CampaignRecipient, map[string]int, error) {
	if status != "" && !recipientStatuses[status] {
		return nil, nil, appErrors.NewValidation("unknown recipient status "+status, nil)
	}
	if _, err := s.getCampaign(ctx, orgID, campaignID); err != nil {
		return nil, nil, err
	}
	page, pageSize = clampPage(page, pageSize)
	offset := (page - 1) * pageSize

	ptrs, total, err := s.RecipientRepo.ListByCampaign(ctx, orgID, campaignID, offset, pageSize, status)
	if err != nil {
		return nil, nil, appErrors.NewStorage("list recipients", err)
	}

	recipients := make([]model.CampaignRecipient, len(ptrs))
	for i, r := range ptrs {
		recipients[i] = *r
	}

	return recipients, paginationOf(page, pageSize, total), nil
}

var recipientStatuses = map[string]bool{
	model.RecipientStatusPending:   true,
	model.RecipientStatusSent:      true,
	model.RecipientStatusDelivered: true,
	model.RecipientStatusBounced:   true,
	model.RecipientStatusOpened:    true,
	model.RecipientStatusClicked:   true,
	model.RecipientStatusFailed:    true,
}

func clampPage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > MaxLimit {
		pageSize = MaxLimit
	}
	return page, pageSize
}

func paginationOf(page, pageSize, total int) map[string]int {
	return map[string]int{
		"page":        page,
		"page_size":   pageSize,
		"total_count": total,
		"total_pages": (total + pageSize - 1) / pageSize,
	}
}

func (s *CampaignService) getCampaign(ctx context.Context, orgID, campaignID uuid.UUID) (*model.Campaign, error) {
	c, err := s.CampaignRepo.GetByID(ctx, orgID, campaignID)
	if err != nil {
		if appErrors.IsNotFound(err) {
			return nil, err
		}
		return nil, appErrors.NewStorage("get campaign", err)
	}
	return c, nil
}

// GetCampaignDetailsWithStats returns the campaign and its recipient counts by status.
func (s *CampaignService) GetCampaignDetailsWithStats(ctx context.Context, orgID, campaignID uuid.UUID) (*CampaignDetails, error) {
	campaign, err := s.getCampaign(ctx, orgID, campaignID)
	if err != nil {
		return nil, err
	}
	stats, err := s.CampaignRepo.GetCampaignStats(ctx, campaignID)
	if err != nil {
		return nil, appErrors.NewStorage("get campaign stats", err)
	}
	return &CampaignDetails{Campaign: campaign, Stats: stats}, nil
}

// UpdateCampaign applies a partial update. Campaigns that are sending or
// finished cannot be edited, and status can only be set to draft, scheduled
// or paused; sending is reached through the scheduler. An edit that loses a
// race with the scheduler fails with a conflict and changes nothing.
func (s *CampaignService) UpdateCampaign(ctx context.Context, orgID, campaignID uuid.UUID, in UpdateCampaignInput) (*model.Campaign, error) {
	if err := validate.Struct(in); err != nil {
		return nil, appErrors.NewValidation("invalid campaign update", err)
	}
	c, err := s.getCampaign(ctx, orgID, campaignID)
	if err != nil {
		return nil, err
	}
	if !editableStatuses[c.Status] {
		return nil, appErrors.NewConflict("campaign cannot be edited in status " + c.Status)
	}
	readStatus := c.Status

	if in.Name != nil {
		c.Name = strings.TrimSpace(*in.Name)
	}
	if in.TemplateID != nil {
		c.TemplateID = in.TemplateID
	}
	if in.SubjectLine != nil {
		c.SubjectLine = in.SubjectLine
	}
	if in.ScheduledAt != nil {
		if c.ScheduledAt, err = parseScheduledAt(in.ScheduledAt); err != nil {
			return nil, err
		}
	}
	if in.Status != nil {
		c.Status = *in.Status
	}

	if err := s.CampaignRepo.Update(ctx, c, readStatus); err != nil {
		if appErrors.IsNotFound(err) || appErrors.IsConflict(err) {
			return nil, err
		}
		return nil, appErrors.NewStorage("update campaign", err)
	}
	return c, nil
}

// GetTargetRules returns the saved rules, or the defaults when none are saved.
func (s *CampaignService) GetTargetRules(ctx context.Context, orgID, campaignID uuid.UUID) (*model.CampaignTargetRules, error) {
	if _, err := s.getCampaign(ctx, orgID, campaignID); err != nil {
		return nil, err
	}
	rules, err := s.CampaignRepo.GetTargetRules(ctx, orgID, campaignID)
	if err != nil {
		return nil, appErrors.NewStorage("get target rules", err)
	}
	if rules == nil {
		return model.DefaultTargetRules(orgID, campaignID), nil
	}
	return rules, nil
}

// SaveTargetRules replaces the campaign's rules. Omitted flags keep their
// current value. Tag sets are de-duplicated and countries lowercased.
func (s *CampaignService) SaveTargetRules(ctx context.Context, orgID, campaignID uuid.UUID, in TargetRulesInput) (*model.CampaignTargetRules, error) {
	if err := validate.Struct(in); err != nil {
		return nil, appErrors.NewValidation("invalid target rules", err)
	}
	rules, err := s.GetTargetRules(ctx, orgID, campaignID)
	if err != nil {
		return nil, err
	}

	countries := make([]string, 0, len(in.ExcludeCountries))
	for _, c := range in.ExcludeCountries {
		if n := model.NormalizeCountry(c); n != nil {
			countries = append(countries, *n)
		}
	}
	rules.IncludeTags = []string(model.NewStringSet(trimAll(in.IncludeTags)...))
	rules.ExcludeTags = []string(model.NewStringSet(trimAll(in.ExcludeTags)...))
	rules.ExcludeCountries = []string(model.NewStringSet(countries...))
	if in.ExcludeUnsubscribed != nil {
		rules.ExcludeUnsubscribed = *in.ExcludeUnsubscribed
	}
	if in.ExcludeInactive != nil {
		rules.ExcludeInactive = *in.ExcludeInactive
	}
	if in.ExcludeBounced != nil {
		rules.ExcludeBounced = *in.ExcludeBounced
	}

	if err := s.CampaignRepo.UpsertTargetRules(ctx, rules); err != nil {
		return nil, appErrors.NewStorage("save target rules", err)
	}
	return rules, nil
}

func trimAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		out = append(out, strings.TrimSpace(v))
	}
	return out
}

// PreviewAudience resolves one page of the campaign's recipients.
func (s *CampaignService) PreviewAudience(ctx context.Context, orgID, campaignID uuid.UUID, page, limit int) (*AudiencePage, error) {
	rules, err := s.GetTargetRules(ctx, orgID, campaignID)
	if err != nil {
		return nil, err
	}
	return s.Audience.Resolve(ctx, orgID, rules.AudienceFilter(page, limit))
}

// PrepareRecipients materializes the resolved audience as pending recipient
// rows. Running it again only adds contacts that became eligible since.
// Totals are counted fresh so a stale cached count cannot cut the loop short.
func (s *CampaignService) PrepareRecipients(ctx context.Context, orgID, campaignID uuid.UUID) (*PrepareResult, error) {
	campaign, err := s.getCampaign(ctx, orgID, campaignID)
	if err != nil {
		return nil, err
	}
	if !editableStatuses[campaign.Status] {
		return nil, appErrors.NewConflict("campaign cannot be prepared in status " + campaign.Status)
	}
	rules, err := s.GetTargetRules(ctx, orgID, campaignID)
	if err != nil {
		return nil, err
	}

	res := &PrepareResult{CampaignID: campaignID}
	for page := 1; page <= MaxPage; page++ {
		p, err := s.Audience.ResolveFresh(ctx, orgID, rules.AudienceFilter(page, MaxLimit))
		if err != nil {
			return nil, err
		}
		ids := make([]uuid.UUID, len(p.Data))
		for i, c := range p.Data {
			ids[i] = c.ID
		}
		inserted, err := s.RecipientRepo.CreatePending(ctx, orgID, campaignID, ids)
		if err != nil {
			return nil, appErrors.NewStorage("create recipients", err)
		}
		res.Matched += len(ids)
		res.Inserted += inserted

		if page >= p.TotalPages {
			break
		}
	}

	s.logger().Info("campaign recipients prepared",
		zap.String("campaign_id", campaignID.String()),
		zap.Int("matched", res.Matched),
		zap.Int("inserted", res.Inserted),
	)
	return res, nil
}

// RenderPreview personalizes the campaign's template for one contact.
// A non-blank overrideTemplate is rendered instead of the stored template.
func (s *CampaignService) RenderPreview(ctx context.Context, orgID, campaignID, contactID uuid.UUID, overrideTemplate *string) (*PreviewResult, error) {
	campaign, err := s.getCampaign(ctx, orgID, campaignID)
	if err != nil {
		return nil, err
	}
	contact, err := s.Audience.GetContact(ctx, orgID, contactID)
	if err != nil {
		return nil, err
	}

	var body, subject string
	if campaign.SubjectLine != nil {
		subject = *campaign.SubjectLine
	}
	if campaign.TemplateID != nil {
		tpl, err := s.TemplateRepo.GetByID(ctx, orgID, *campaign.TemplateID)
		if err != nil && !appErrors.IsNotFound(err) {
			return nil, appErrors.NewStorage("get template", err)
		}
		if tpl != nil {
			body = tpl.ContentHTML
			if subject == "" && tpl.SubjectLine != nil {
				subject = *tpl.SubjectLine
			}
		}
	}

	used := false
	if overrideTemplate != nil && strings.TrimSpace(*overrideTemplate) != "" {
		body = *overrideTemplate
		used = true
	}
	if strings.TrimSpace(body) == "" {
		return nil, appErrors.NewValidation("template cannot be empty", nil)
	}

	vars := contact.TemplateVars()
	return &PreviewResult{
		ContactID:    contact.ID,
		SubjectLine:  RenderTemplate(subject, vars),
		Rendered:     RenderTemplate(body, vars),
		UsedOverride: used,
	}, nil
}
