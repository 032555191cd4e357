// internal/model/contact.go
package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type Contact struct {
	ID             uuid.UUID      `db:"id" json:"id"`
	OrganizationID uuid.UUID      `db:"organization_id" json:"organization_id"`
	Email          *string        `db:"email" json:"email"`
	FirstName      *string        `db:"first_name" json:"first_name"`
	LastName       *string        `db:"last_name" json:"last_name"`
	Mobile         *string        `db:"mobile" json:"mobile"`
	Country        *string        `db:"country" json:"country"`
	Source         string         `db:"source" json:"source"`
	IsActive       bool           `db:"is_active" json:"is_active"`
	IsSubscribed   bool           `db:"is_subscribed" json:"is_subscribed"`
	CustomFields   map[string]any `db:"custom_fields" json:"custom_fields,omitempty"`
	TagIDs         []string       `db:"tag_ids" json:"tag_ids"`
	TagNames       []string       `db:"tag_names" json:"tag_names"`
	CreatedAt      time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt      *time.Time     `db:"updated_at" json:"updated_at,omitempty"`
	DeletedAt      *time.Time     `db:"deleted_at" json:"-"`
}

// NormalizeCountry trims and lowercases a country code. Blank input is nil.
func NormalizeCountry(country string) *string {
	c := strings.ToLower(strings.TrimSpace(country))
	if c == "" {
		return nil
	}
	return &c
}

// TemplateVars returns the placeholders a template may reference for this contact.
func (c *Contact) TemplateVars() map[string]string {
	return map[string]string{
		"first_name": deref(c.FirstName),
		"last_name":  deref(c.LastName),
		"email":      deref(c.Email),
		"country":    deref(c.Country),
		"mobile":     deref(c.Mobile),
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}
