package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/unclebandit/nanis-backend/internal/model"
)

type RecipientRepositoryInterface interface {
	CreatePending(ctx context.Context, orgID, campaignID uuid.UUID, contactIDs []uuid.UUID) (int, error)
	ListByCampaign(ctx context.Context, orgID, campaignID uuid.UUID, offset, limit int, status string) ([]*model.CampaignRecipient, int, error)
}

type RecipientRepository struct {
	DB *sql.DB
}

// CreatePending inserts a pending recipient row per contact. Rows that already
// exist are left untouched, so repeated calls are idempotent. It returns the
// number of rows actually inserted.
func (r *RecipientRepository) CreatePending(ctx context.Context, orgID, campaignID uuid.UUID, contactIDs []uuid.UUID) (int, error) {
	if len(contactIDs) == 0 {
		return 0, nil
	}
	ids := make([]string, len(contactIDs))
	for i, id := range contactIDs {
		ids[i] = id.String()
	}

	query := `
        INSERT INTO campaign_recipients (campaign_id, contact_id, organization_id, status, created_at)
        SELECT $1, contact_id, $2, 'pending', NOW()
        FROM unnest($3::uuid[]) AS contact_id
        ON CONFLICT (campaign_id, contact_id) DO NOTHING
    `
	res, err := r.DB.ExecContext(ctx, query, campaignID, orgID, pq.Array(ids))
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

// ListByCampaign returns one page of the campaign's recipients, newest first,
// and the total across all pages. An empty status lists every status.
func (r *RecipientRepository) ListByCampaign(ctx context.Context, orgID, campaignID uuid.UUID, offset, limit int, status string) ([]*model.CampaignRecipient, int, error) {
	recipients := []*model.CampaignRecipient{}
	where := ` WHERE campaign_id=$1 AND organization_id=$2`
	args := []interface{}{campaignID, orgID}
	argPos := 3

	if status != "" {
		where += fmt.Sprintf(" AND status=$%d", argPos)
		args = append(args, status)
		argPos++
	}

	query := `SELECT id, campaign_id, contact_id, organization_id, status, sent_at, created_at
        FROM campaign_recipients` + where +
		fmt.Sprintf(" ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d", argPos, argPos+1)

	rows, err := r.DB.QueryContext(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	for rows.Next() {
		var cr model.CampaignRecipient
		if err := rows.Scan(&cr.ID, &cr.CampaignID, &cr.ContactID, &cr.OrganizationID, &cr.Status, &cr.SentAt, &cr.CreatedAt); err != nil {
			return nil, 0, err
		}
		recipients = append(recipients, &cr)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	var total int
	if err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM campaign_recipients`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	return recipients, total, nil
}

var _ RecipientRepositoryInterface = (*RecipientRepository)(nil)
