// internal/model/tag.go
package model

import (
	"time"

	"github.com/google/uuid"
)

type Tag struct {
	ID             uuid.UUID `db:"id" json:"id"`
	OrganizationID uuid.UUID `db:"organization_id" json:"organization_id"`
	Name           string    `db:"name" json:"name"`
	Color          *string   `db:"color" json:"color,omitempty"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}
