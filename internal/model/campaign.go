// internal/model/campaign.go
package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	CampaignStatusDraft     = "draft"
	CampaignStatusScheduled = "scheduled"
	CampaignStatusSending   = "sending"
	CampaignStatusSent      = "sent"
	CampaignStatusFailed    = "failed"
	CampaignStatusPaused    = "paused"
)

type Campaign struct {
	ID             uuid.UUID  `db:"id" json:"id"`
	OrganizationID uuid.UUID  `db:"organization_id" json:"organization_id"`
	Name           string     `db:"name" json:"name"`
	TemplateID     *uuid.UUID `db:"template_id" json:"template_id,omitempty"`
	SubjectLine    *string    `db:"subject_line" json:"subject_line,omitempty"`
	Status         string     `db:"status" json:"status"`
	ScheduledAt    *time.Time `db:"scheduled_at" json:"scheduled_at,omitempty"`
	SentAt         *time.Time `db:"sent_at" json:"sent_at,omitempty"`
	CreatedBy      string     `db:"created_by" json:"created_by,omitempty"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt      *time.Time `db:"updated_at" json:"updated_at,omitempty"`
}

// CampaignTargetRules is the persisted targeting of one campaign.
type CampaignTargetRules struct {
	CampaignID          uuid.UUID `db:"campaign_id" json:"campaign_id"`
	OrganizationID      uuid.UUID `db:"organization_id" json:"organization_id"`
	IncludeTags         []string  `db:"include_tags" json:"include_tags" validate:"dive,max=64"`
	ExcludeTags         []string  `db:"exclude_tags" json:"exclude_tags" validate:"dive,max=64"`
	ExcludeCountries    []string  `db:"exclude_countries" json:"exclude_countries" validate:"dive,max=8"`
	ExcludeUnsubscribed bool      `db:"exclude_unsubscribed" json:"exclude_unsubscribed"`
	ExcludeInactive     bool      `db:"exclude_inactive" json:"exclude_inactive"`
	ExcludeBounced      bool      `db:"exclude_bounced" json:"exclude_bounced"`
}

// DefaultTargetRules is what a campaign targets before rules are saved.
func DefaultTargetRules(orgID, campaignID uuid.UUID) *CampaignTargetRules {
	return &CampaignTargetRules{
		CampaignID:          campaignID,
		OrganizationID:      orgID,
		IncludeTags:         []string{},
		ExcludeTags:         []string{},
		ExcludeCountries:    []string{},
		ExcludeUnsubscribed: true,
		ExcludeInactive:     true,
	}
}

// AudienceFilter converts saved rules into the canonical filter used by the resolver.
func (r *CampaignTargetRules) AudienceFilter(page, limit int) AudienceFilter {
	countries := make([]string, 0, len(r.ExcludeCountries))
	for _, c := range r.ExcludeCountries {
		if n := NormalizeCountry(c); n != nil {
			countries = append(countries, *n)
		}
	}
	return AudienceFilter{
		IncludeTags:      NewStringSet(r.IncludeTags...),
		ExcludeTags:      NewStringSet(r.ExcludeTags...),
		ExcludeCountries: NewStringSet(countries...),
		Page:             page,
		Limit:            limit,
		OnlyActive:       r.ExcludeInactive,
		OnlySubscribed:   r.ExcludeUnsubscribed,
		RequireEmail:     true,
		ExcludeBounced:   r.ExcludeBounced,
	}
}
