package controller_test

import (
	"context"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	appErrors "github.com/unclebandit/nanis-backend/internal/errors"
	"github.com/unclebandit/nanis-backend/internal/handler"
	"github.com/unclebandit/nanis-backend/internal/model"
)

// withRoute attaches the organization and chi URL params a routed request would carry.
func withRoute(req *http.Request, orgID uuid.UUID, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for k, v := range params {
		rctx.URLParams.Add(k, v)
	}
	ctx := context.WithValue(req.Context(), chi.RouteCtxKey, rctx)
	ctx = handler.WithOrgID(ctx, orgID)
	ctx = handler.WithUserID(ctx, "user-1")
	return req.WithContext(ctx)
}

func strPtr(s string) *string { return &s }

// --- Mock Repositories ---

type MockContactRepo struct {
	contacts []*model.Contact
}

func (m *MockContactRepo) matching(orgID uuid.UUID, f model.AudienceFilter) []*model.Contact {
	var out []*model.Contact
	for _, c := range m.contacts {
		if f.Matches(orgID, c) {
			out = append(out, c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (m *MockContactRepo) ListByFilter(ctx context.Context, orgID uuid.UUID, f model.AudienceFilter) ([]*model.Contact, error) {
	all := m.matching(orgID, f)
	start := min(f.Offset(), len(all))
	end := min(start+f.Limit, len(all))
	out := make([]*model.Contact, 0, end-start)
	for _, c := range all[start:end] {
		cp := *c
		out = append(out, &cp)
	}
	return out, nil
}

func (m *MockContactRepo) CountByFilter(ctx context.Context, orgID uuid.UUID, f model.AudienceFilter) (int, error) {
	return len(m.matching(orgID, f)), nil
}

func (m *MockContactRepo) GetByID(ctx context.Context, orgID, id uuid.UUID) (*model.Contact, error) {
	for _, c := range m.contacts {
		if c.ID == id && c.OrganizationID == orgID {
			cp := *c
			return &cp, nil
		}
	}
	return nil, appErrors.NewNotFound("contact")
}

type MockCampaignRepo struct {
	mu        sync.Mutex
	campaigns []*model.Campaign
	rules     map[uuid.UUID]*model.CampaignTargetRules
}

func (m *MockCampaignRepo) find(orgID, id uuid.UUID) *model.Campaign {
	for _, c := range m.campaigns {
		if c.ID == id && c.OrganizationID == orgID {
			return c
		}
	}
	return nil
}

func (m *MockCampaignRepo) Create(ctx context.Context, c *model.Campaign) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c.ID = uuid.New()
	c.CreatedAt = time.Now().UTC()
	m.campaigns = append(m.campaigns, c)
	return nil
}

func (m *MockCampaignRepo) Update(ctx context.Context, c *model.Campaign, fromStatus string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing := m.find(c.OrganizationID, c.ID)
	if existing == nil {
		return appErrors.NewCampaignNotFound(c.ID)
	}
	if existing.Status != fromStatus {
		return appErrors.NewConflict("campaign changed status while being edited")
	}
	*existing = *c
	return nil
}

func (m *MockCampaignRepo) GetByID(ctx context.Context, orgID, id uuid.UUID) (*model.Campaign, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := m.find(orgID, id)
	if c == nil {
		return nil, appErrors.NewCampaignNotFound(id)
	}
	cp := *c
	return &cp, nil
}

func (m *MockCampaignRepo) ListCampaigns(ctx context.Context, orgID uuid.UUID, offset, limit int, status string) ([]*model.Campaign, int, error) {
	var filtered []*model.Campaign
	for _, c := range m.campaigns {
		if c.OrganizationID != orgID {
			continue
		}
		if status != "" && c.Status != status {
			continue
		}
		filtered = append(filtered, c)
	}
	total := len(filtered)

	// Simulate pagination
	start := min(offset, total)
	end := min(offset+limit, total)
	return filtered[start:end], total, nil
}

func (m *MockCampaignRepo) ListDueScheduled(ctx context.Context, now time.Time, limit int) ([]*model.Campaign, error) {
	return nil, nil
}

func (m *MockCampaignRepo) TransitionStatus(ctx context.Context, id uuid.UUID, from, to string) (bool, error) {
	return false, nil
}

func (m *MockCampaignRepo) GetTargetRules(ctx context.Context, orgID, campaignID uuid.UUID) (*model.CampaignTargetRules, error) {
	if r, ok := m.rules[campaignID]; ok {
		return r, nil
	}
	return nil, nil
}

func (m *MockCampaignRepo) UpsertTargetRules(ctx context.Context, rules *model.CampaignTargetRules) error {
	if m.rules == nil {
		m.rules = map[uuid.UUID]*model.CampaignTargetRules{}
	}
	m.rules[rules.CampaignID] = rules
	return nil
}

func (m *MockCampaignRepo) GetCampaignStats(ctx context.Context, campaignID uuid.UUID) (map[string]int, error) {
	return map[string]int{"total": 1, "pending": 1, "sent": 0, "bounced": 0, "failed": 0}, nil
}

type MockRecipientRepo struct {
	rows       map[uuid.UUID]bool
	recipients []*model.CampaignRecipient
}

func (m *MockRecipientRepo) CreatePending(ctx context.Context, orgID, campaignID uuid.UUID, contactIDs []uuid.UUID) (int, error) {
	if m.rows == nil {
		m.rows = map[uuid.UUID]bool{}
	}
	n := 0
	for _, id := range contactIDs {
		if !m.rows[id] {
			m.rows[id] = true
			m.recipients = append(m.recipients, &model.CampaignRecipient{
				ID: uuid.New(), CampaignID: campaignID, ContactID: id, OrganizationID: orgID,
				Status: model.RecipientStatusPending, CreatedAt: time.Now().UTC(),
			})
			n++
		}
	}
	return n, nil
}

func (m *MockRecipientRepo) ListByCampaign(ctx context.Context, orgID, campaignID uuid.UUID, offset, limit int, status string) ([]*model.CampaignRecipient, int, error) {
	var filtered []*model.CampaignRecipient
	for _, r := range m.recipients {
		if r.CampaignID == campaignID && r.OrganizationID == orgID && (status == "" || r.Status == status) {
			filtered = append(filtered, r)
		}
	}
	total := len(filtered)
	start := min(offset, total)
	end := min(offset+limit, total)
	return filtered[start:end], total, nil
}

type MockTemplateRepo struct {
	templates map[uuid.UUID]*model.Template
}

func (m *MockTemplateRepo) GetByID(ctx context.Context, orgID, id uuid.UUID) (*model.Template, error) {
	if t, ok := m.templates[id]; ok {
		return t, nil
	}
	return nil, appErrors.NewNotFound("template")
}
