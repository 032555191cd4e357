package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	appErrors "github.com/unclebandit/nanis-backend/internal/errors"
	"github.com/unclebandit/nanis-backend/internal/model"
)

type CampaignRepositoryInterface interface {
	// Campaign CRUD
	Create(ctx context.Context, c *model.Campaign) error
	Update(ctx context.Context, c *model.Campaign, fromStatus string) error
	GetByID(ctx context.Context, orgID, id uuid.UUID) (*model.Campaign, error)
	ListCampaigns(ctx context.Context, orgID uuid.UUID, offset, limit int, status string) ([]*model.Campaign, int, error)

	// Scheduling
	ListDueScheduled(ctx context.Context, now time.Time, limit int) ([]*model.Campaign, error)
	TransitionStatus(ctx context.Context, id uuid.UUID, from, to string) (bool, error)

	// Targeting and recipients
	GetTargetRules(ctx context.Context, orgID, campaignID uuid.UUID) (*model.CampaignTargetRules, error)
	UpsertTargetRules(ctx context.Context, rules *model.CampaignTargetRules) error
	GetCampaignStats(ctx context.Context, campaignID uuid.UUID) (map[string]int, error)
}

type CampaignRepository struct {
	DB *sql.DB
}

const campaignColumns = `id, organization_id, name, template_id, subject_line, status,
    scheduled_at, sent_at, COALESCE(created_by, ''), created_at, updated_at`

func scanCampaign(row rowScanner) (*model.Campaign, error) {
	var c model.Campaign
	err := row.Scan(
		&c.ID, &c.OrganizationID, &c.Name, &c.TemplateID, &c.SubjectLine, &c.Status,
		&c.ScheduledAt, &c.SentAt, &c.CreatedBy, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ====================== Campaign CRUD ======================

func (r *CampaignRepository) Create(ctx context.Context, c *model.Campaign) error {
	if c.Status == "" {
		c.Status = model.CampaignStatusDraft
	}
	query := `
        INSERT INTO campaigns (organization_id, name, template_id, subject_line, status, scheduled_at, created_by, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
        RETURNING id, created_at
    `
	return r.DB.QueryRowContext(ctx, query,
		c.OrganizationID, c.Name, c.TemplateID, c.SubjectLine, c.Status, c.ScheduledAt, c.CreatedBy,
	).Scan(&c.ID, &c.CreatedAt)
}

// Update writes c only while the stored status still equals fromStatus. A row
// that moved on in between (for example picked up by the scheduler) is
// reported as a conflict and left untouched.
func (r *CampaignRepository) Update(ctx context.Context, c *model.Campaign, fromStatus string) error {
	query := `
        UPDATE campaigns
        SET name=$1, template_id=$2, subject_line=$3, status=$4, scheduled_at=$5, updated_at=NOW()
        WHERE id=$6 AND organization_id=$7 AND status=$8
        RETURNING updated_at
    `
	err := r.DB.QueryRowContext(ctx, query,
		c.Name, c.TemplateID, c.SubjectLine, c.Status, c.ScheduledAt, c.ID, c.OrganizationID, fromStatus,
	).Scan(&c.UpdatedAt)
	if err == sql.ErrNoRows {
		return appErrors.NewConflict("campaign " + c.ID.String() + " changed status while being edited")
	}
	return err
}

func (r *CampaignRepository) GetByID(ctx context.Context, orgID, id uuid.UUID) (*model.Campaign, error) {
	query := `SELECT ` + campaignColumns + ` FROM campaigns WHERE id=$1 AND organization_id=$2`
	c, err := scanCampaign(r.DB.QueryRowContext(ctx, query, id, orgID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.NewCampaignNotFound(id)
		}
		return nil, err
	}
	return c, nil
}

func (r *CampaignRepository) ListCampaigns(ctx context.Context, orgID uuid.UUID, offset, limit int, status string) ([]*model.Campaign, int, error) {
	campaigns := []*model.Campaign{}
	where := ` WHERE organization_id=$1`
	args := []interface{}{orgID}
	argPos := 2

	if status != "" {
		where += fmt.Sprintf(" AND status=$%d", argPos)
		args = append(args, status)
		argPos++
	}

	query := `SELECT ` + campaignColumns + ` FROM campaigns` + where +
		fmt.Sprintf(" ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d", argPos, argPos+1)

	rows, err := r.DB.QueryContext(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, 0, err
		}
		campaigns = append(campaigns, c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	// Count total
	var total int
	if err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM campaigns`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	return campaigns, total, nil
}

// ====================== Scheduling ======================

// ListDueScheduled returns scheduled campaigns whose scheduled_at is null or not after now,
// oldest schedule first.
func (r *CampaignRepository) ListDueScheduled(ctx context.Context, now time.Time, limit int) ([]*model.Campaign, error) {
	query := `SELECT ` + campaignColumns + `
        FROM campaigns
        WHERE status = 'scheduled' AND (scheduled_at IS NULL OR scheduled_at <= $1)
        ORDER BY scheduled_at ASC NULLS FIRST, id ASC
        LIMIT $2`
	rows, err := r.DB.QueryContext(ctx, query, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	campaigns := []*model.Campaign{}
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, err
		}
		campaigns = append(campaigns, c)
	}
	return campaigns, rows.Err()
}

// TransitionStatus moves a campaign from one status to another only if it is
// still in the from status. It reports whether this call made the change.
func (r *CampaignRepository) TransitionStatus(ctx context.Context, id uuid.UUID, from, to string) (bool, error) {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE campaigns SET status=$1, updated_at=NOW() WHERE id=$2 AND status=$3`,
		to, id, from,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// ====================== Target rules ======================

// GetTargetRules returns nil when the campaign has no saved rules.
func (r *CampaignRepository) GetTargetRules(ctx context.Context, orgID, campaignID uuid.UUID) (*model.CampaignTargetRules, error) {
	query := `
        SELECT campaign_id, organization_id, include_tags, exclude_tags, exclude_countries,
               exclude_unsubscribed, exclude_inactive, exclude_bounced
        FROM campaign_target_rules
        WHERE campaign_id=$1 AND organization_id=$2
    `
	var rules model.CampaignTargetRules
	err := r.DB.QueryRowContext(ctx, query, campaignID, orgID).Scan(
		&rules.CampaignID, &rules.OrganizationID,
		pq.Array(&rules.IncludeTags), pq.Array(&rules.ExcludeTags), pq.Array(&rules.ExcludeCountries),
		&rules.ExcludeUnsubscribed, &rules.ExcludeInactive, &rules.ExcludeBounced,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &rules, nil
}

func (r *CampaignRepository) UpsertTargetRules(ctx context.Context, rules *model.CampaignTargetRules) error {
	query := `
        INSERT INTO campaign_target_rules
            (campaign_id, organization_id, include_tags, exclude_tags, exclude_countries,
             exclude_unsubscribed, exclude_inactive, exclude_bounced)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        ON CONFLICT (campaign_id) DO UPDATE SET
            include_tags = EXCLUDED.include_tags,
            exclude_tags = EXCLUDED.exclude_tags,
            exclude_countries = EXCLUDED.exclude_countries,
            exclude_unsubscribed = EXCLUDED.exclude_unsubscribed,
            exclude_inactive = EXCLUDED.exclude_inactive,
            exclude_bounced = EXCLUDED.exclude_bounced
    `
	_, err := r.DB.ExecContext(ctx, query,
		rules.CampaignID, rules.OrganizationID,
		pq.Array(rules.IncludeTags), pq.Array(rules.ExcludeTags), pq.Array(rules.ExcludeCountries),
		rules.ExcludeUnsubscribed, rules.ExcludeInactive, rules.ExcludeBounced,
	)
	return err
}

// GetCampaignStats counts recipients per status. Known statuses are always present.
func (r *CampaignRepository) GetCampaignStats(ctx context.Context, campaignID uuid.UUID) (map[string]int, error) {
	query := `SELECT status, COUNT(*) FROM campaign_recipients WHERE campaign_id=$1 GROUP BY status`
	rows, err := r.DB.QueryContext(ctx, query, campaignID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats := map[string]int{
		"total":                       0,
		model.RecipientStatusPending: 0,
		model.RecipientStatusSent:    0,
		model.RecipientStatusBounced: 0,
		model.RecipientStatusFailed:  0,
	}
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[status] = count
		stats["total"] += count
	}
	return stats, rows.Err()
}

var _ CampaignRepositoryInterface = (*CampaignRepository)(nil)
