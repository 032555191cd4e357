package model

import (
	"time"

	"github.com/google/uuid"
)

type Template struct {
	ID             uuid.UUID `db:"id" json:"id"`
	OrganizationID uuid.UUID `db:"organization_id" json:"organization_id"`
	Name           string    `db:"name" json:"name"`
	SubjectLine    *string   `db:"subject_line" json:"subject_line,omitempty"`
	ContentHTML    string    `db:"content_html" json:"content_html"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}
