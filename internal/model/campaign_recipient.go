// internal/model/campaign_recipient.go
package model

import (
	"time"

	"github.com/google/uuid"
)

// Recipient statuses. Rows are created pending; the send pipeline moves them on.
const (
	RecipientStatusPending   = "pending"
	RecipientStatusSent      = "sent"
	RecipientStatusDelivered = "delivered"
	RecipientStatusBounced   = "bounced"
	RecipientStatusOpened    = "opened"
	RecipientStatusClicked   = "clicked"
	RecipientStatusFailed    = "failed"
)

// CampaignRecipient is one contact materialized for a campaign send.
type CampaignRecipient struct {
	ID             uuid.UUID  `db:"id" json:"id"`
	CampaignID     uuid.UUID  `db:"campaign_id" json:"campaign_id"`
	ContactID      uuid.UUID  `db:"contact_id" json:"contact_id"`
	OrganizationID uuid.UUID  `db:"organization_id" json:"organization_id"`
	Status         string     `db:"status" json:"status"`
	SentAt         *time.Time `db:"sent_at" json:"sent_at,omitempty"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
}
