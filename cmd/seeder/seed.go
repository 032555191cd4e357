// cmd/seeder/seed.go
package main

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/unclebandit/nanis-backend/internal/model"
)

type seedContact struct {
	Email     string
	FirstName string
	LastName  string
	Country   string
	Active    bool
	Subscribe bool
	Tags      []string
}

var seedTags = []string{"vip", "newsletter", "churned"}

// Country codes are deliberately mixed case; they are lowercased on insert.
var seedContacts = []seedContact{
	{"amina@example.com", "Amina", "Otieno", "KE", true, true, []string{"vip", "newsletter"}},
	{"brian@example.com", "Brian", "Mwangi", "ke", true, true, []string{"newsletter"}},
	{"carla@example.com", "Carla", "Diaz", "US", true, true, []string{"vip"}},
	{"deepak@example.com", "Deepak", "Rao", "In", true, true, []string{"vip", "churned"}},
	{"emma@example.com", "Emma", "Schulz", "de", true, false, []string{"newsletter"}},
	{"femi@example.com", "Femi", "Adeyemi", "NG", false, true, []string{"churned"}},
	{"grace@example.com", "Grace", "Hopper", "", true, true, []string{"vip"}},
	{"hiro@example.com", "Hiro", "Tanaka", "jp", true, true, nil},
}

type seedResult struct {
	OrganizationID uuid.UUID
	Contacts       int
}

// seed creates the development organization and its data in one transaction.
// Contacts are only inserted into an organization that has none.
func seed(ctx context.Context, db *sql.DB, ownerID string, log *zap.Logger) (*seedResult, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	var orgID uuid.UUID
	err = tx.QueryRowContext(ctx, `
        INSERT INTO organizations (name, slug) VALUES ($1, $2)
        ON CONFLICT (slug) DO UPDATE SET name = EXCLUDED.name
        RETURNING id`, "Development", "dev").Scan(&orgID)
	if err != nil {
		return nil, fmt.Errorf("seed organization: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
        INSERT INTO organization_members (organization_id, user_id, role) VALUES ($1, $2, 'owner')
        ON CONFLICT (organization_id, user_id) DO NOTHING`, orgID, ownerID); err != nil {
		return nil, fmt.Errorf("seed membership: %w", err)
	}

	tagIDs := make(map[string]uuid.UUID, len(seedTags))
	for _, name := range seedTags {
		var id uuid.UUID
		err := tx.QueryRowContext(ctx, `
            INSERT INTO contact_tags (organization_id, name) VALUES ($1, $2)
            ON CONFLICT (organization_id, name) DO UPDATE SET name = EXCLUDED.name
            RETURNING id`, orgID, name).Scan(&id)
		if err != nil {
			return nil, fmt.Errorf("seed tag %s: %w", name, err)
		}
		tagIDs[name] = id
	}

	var existing int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM contacts WHERE organization_id = $1`, orgID).Scan(&existing); err != nil {
		return nil, fmt.Errorf("count contacts: %w", err)
	}

	res := &seedResult{OrganizationID: orgID}
	if existing == 0 {
		for _, c := range seedContacts {
			var contactID uuid.UUID
			err := tx.QueryRowContext(ctx, `
                INSERT INTO contacts (organization_id, email, first_name, last_name, country, source, is_active, is_subscribed, created_by)
                VALUES ($1, $2, $3, $4, $5, 'seed', $6, $7, $8)
                RETURNING id`,
				orgID, c.Email, c.FirstName, c.LastName, model.NormalizeCountry(c.Country), c.Active, c.Subscribe, ownerID,
			).Scan(&contactID)
			if err != nil {
				return nil, fmt.Errorf("seed contact %s: %w", c.Email, err)
			}
			for _, tag := range c.Tags {
				if _, err := tx.ExecContext(ctx, `
                    INSERT INTO contact_tag_assignments (contact_id, tag_id, organization_id) VALUES ($1, $2, $3)
                    ON CONFLICT (contact_id, tag_id) DO NOTHING`, contactID, tagIDs[tag], orgID); err != nil {
					return nil, fmt.Errorf("tag contact %s: %w", c.Email, err)
				}
			}
			res.Contacts++
		}
	} else {
		log.Info("organization already has contacts, skipping", zap.Int("contacts", existing))
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return res, nil
}
