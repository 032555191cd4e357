package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"

	appErrors "github.com/unclebandit/nanis-backend/internal/errors"
	"github.com/unclebandit/nanis-backend/internal/model"
)

// ContactRepositoryInterface is the read side of the contact store used by the audience resolver.
type ContactRepositoryInterface interface {
	ListByFilter(ctx context.Context, orgID uuid.UUID, f model.AudienceFilter) ([]*model.Contact, error)
	CountByFilter(ctx context.Context, orgID uuid.UUID, f model.AudienceFilter) (int, error)
	GetByID(ctx context.Context, orgID, id uuid.UUID) (*model.Contact, error)
}

type ContactRepository struct {
	DB *sql.DB
}

const contactColumns = `
    c.id, c.organization_id, c.email, c.first_name, c.last_name, c.mobile, c.country,
    c.source, c.is_active, c.is_subscribed, c.custom_fields, c.created_at, c.updated_at,
    COALESCE(
        (SELECT array_agg(a.tag_id::text ORDER BY a.tag_id)
         FROM contact_tag_assignments a
         WHERE a.contact_id = c.id AND a.organization_id = c.organization_id),
        '{}'
    ) AS tag_ids,
    COALESCE(
        (SELECT array_agg(t.name ORDER BY t.name)
         FROM contact_tag_assignments a
         JOIN contact_tags t ON t.id = a.tag_id AND t.organization_id = c.organization_id
         WHERE a.contact_id = c.id AND a.organization_id = c.organization_id),
        '{}'
    ) AS tag_names`

// ListByFilter returns one page of matching contacts, newest first.
func (r *ContactRepository) ListByFilter(ctx context.Context, orgID uuid.UUID, f model.AudienceFilter) ([]*model.Contact, error) {
	where, args := buildContactWhere(orgID, f)

	argPos := len(args) + 1
	query := fmt.Sprintf(
		`SELECT %s FROM contacts c WHERE %s ORDER BY c.created_at DESC, c.id DESC LIMIT $%d OFFSET $%d`,
		contactColumns, where, argPos, argPos+1,
	)
	args = append(args, f.Limit, f.Offset())

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	contacts := []*model.Contact{}
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, err
		}
		contacts = append(contacts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return contacts, nil
}

// CountByFilter counts every matching contact, ignoring page and limit.
func (r *ContactRepository) CountByFilter(ctx context.Context, orgID uuid.UUID, f model.AudienceFilter) (int, error) {
	where, args := buildContactWhere(orgID, f)
	query := `SELECT COUNT(*) FROM contacts c WHERE ` + where

	var total int
	if err := r.DB.QueryRowContext(ctx, query, args...).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

func (r *ContactRepository) GetByID(ctx context.Context, orgID, id uuid.UUID) (*model.Contact, error) {
	query := `SELECT ` + contactColumns + `
        FROM contacts c
        WHERE c.organization_id = $1 AND c.id = $2 AND c.deleted_at IS NULL`

	c, err := scanContact(r.DB.QueryRowContext(ctx, query, orgID, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.NewNotFound("contact")
		}
		return nil, err
	}
	return c, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanContact(row rowScanner) (*model.Contact, error) {
	var (
		c            model.Contact
		customFields []byte
		tagIDs       []string
		tagNames     []string
	)
	err := row.Scan(
		&c.ID, &c.OrganizationID, &c.Email, &c.FirstName, &c.LastName, &c.Mobile, &c.Country,
		&c.Source, &c.IsActive, &c.IsSubscribed, &customFields, &c.CreatedAt, &c.UpdatedAt,
		pq.Array(&tagIDs), pq.Array(&tagNames),
	)
	if err != nil {
		return nil, err
	}
	if len(customFields) > 0 {
		if err := json.Unmarshal(customFields, &c.CustomFields); err != nil {
			return nil, fmt.Errorf("decode custom_fields for contact %s: %w", c.ID, err)
		}
	}
	if tagIDs == nil {
		tagIDs = []string{}
	}
	if tagNames == nil {
		tagNames = []string{}
	}
	c.TagIDs = tagIDs
	c.TagNames = tagNames
	return &c, nil
}

// buildContactWhere renders the filter as a WHERE clause over contacts aliased c.
// Tag entries match a tag id or a tag name. Tag lookups join contact_tags on the
// caller's organization so a foreign tag never matches.
func buildContactWhere(orgID uuid.UUID, f model.AudienceFilter) (string, []any) {
	args := []any{orgID}
	param := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	conds := []string{"c.organization_id = $1", "c.deleted_at IS NULL"}

	if len(f.IncludeTags) > 0 {
		conds = append(conds, "EXISTS ("+tagMatchSubquery(param(pq.Array([]string(f.IncludeTags))))+")")
	}
	if len(f.ExcludeTags) > 0 {
		conds = append(conds, "NOT EXISTS ("+tagMatchSubquery(param(pq.Array([]string(f.ExcludeTags))))+")")
	}
	if len(f.ExcludeCountries) > 0 {
		conds = append(conds, fmt.Sprintf("(c.country IS NULL OR c.country <> ALL(%s))",
			param(pq.Array([]string(f.ExcludeCountries)))))
	}
	if f.OnlyActive {
		conds = append(conds, "c.is_active = TRUE")
	}
	if f.OnlySubscribed {
		conds = append(conds, "c.is_subscribed = TRUE")
	}
	if f.RequireEmail {
		conds = append(conds, "c.email IS NOT NULL AND btrim(c.email) <> ''")
	}
	if f.ExcludeBounced {
		conds = append(conds, `NOT EXISTS (
            SELECT 1 FROM campaign_recipients cr
            WHERE cr.contact_id = c.id AND cr.organization_id = c.organization_id AND cr.status = 'bounced')`)
	}
	if f.Search != nil {
		p := param("%" + escapeLike(*f.Search) + "%")
		conds = append(conds, fmt.Sprintf("(c.email ILIKE %s OR c.first_name ILIKE %s OR c.last_name ILIKE %s)", p, p, p))
	}

	return strings.Join(conds, " AND "), args
}

func tagMatchSubquery(arrayParam string) string {
	return `SELECT 1 FROM contact_tag_assignments a
            JOIN contact_tags t ON t.id = a.tag_id AND t.organization_id = c.organization_id
            WHERE a.contact_id = c.id
            AND (t.id::text = ANY(` + arrayParam + `) OR t.name = ANY(` + arrayParam + `))`
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike makes user input literal inside an ILIKE pattern.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

var _ ContactRepositoryInterface = (*ContactRepository)(nil)
