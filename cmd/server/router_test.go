package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/unclebandit/nanis-backend/internal/controller"
	"github.com/unclebandit/nanis-backend/internal/handler"
	"github.com/unclebandit/nanis-backend/internal/model"
	"github.com/unclebandit/nanis-backend/internal/service"
)

type memberRepo struct {
	org  uuid.UUID
	user string
}

func (m *memberRepo) IsMember(ctx context.Context, orgID uuid.UUID, userID string) (bool, error) {
	return orgID == m.org && userID == m.user, nil
}

type tagRepo struct {
	tags []model.Tag
}

func (t *tagRepo) ListByOrganization(ctx context.Context, orgID uuid.UUID) ([]model.Tag, error) {
	var out []model.Tag
	for _, tag := range t.tags {
		if tag.OrganizationID == orgID {
			out = append(out, tag)
		}
	}
	return out, nil
}

type noopProcessor struct{}

func (noopProcessor) ProcessDue(ctx context.Context, now time.Time, maxCampaigns int) (*service.ProcessResult, error) {
	return &service.ProcessResult{CampaignIDs: []uuid.UUID{}}, nil
}

func testRouter(org uuid.UUID) http.Handler {
	log := zap.NewNop()
	tags := &tagRepo{tags: []model.Tag{{ID: uuid.New(), OrganizationID: org, Name: "vip"}}}
	return newRouter(routes{
		Auth:     handler.NewAuthenticator("secret", "authenticated", log),
		Orgs:     &memberRepo{org: org, user: "user-1"},
		Tags:     &controller.TagController{TagService: &service.TagService{TagRepo: tags}, Logger: log},
		Internal: &handler.InternalHandler{Scheduler: noopProcessor{}, CronSecret: "cron", Logger: log},
		Logger:   log,
	})
}

func bearer(t *testing.T, sub string) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   sub,
		Audience:  jwt.ClaimStrings{"authenticated"},
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte("secret"))
	require.NoError(t, err)
	return "Bearer " + tok
}

func TestHealthAndMetrics(t *testing.T) {
	r := testRouter(uuid.New())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "http_requests_total"))
}

func TestOrganizationRoutesRequireAuthAndMembership(t *testing.T) {
	org := uuid.New()
	r := testRouter(org)
	path := "/api/v1/organizations/" + org.String() + "/tags"

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.Header.Set("Authorization", bearer(t, "user-2"))
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)

	req = httptest.NewRequest(http.MethodGet, path, nil)
	req.Header.Set("Authorization", bearer(t, "user-1"))
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"name":"vip"`)
}

func TestCampaignRoutesRegistered(t *testing.T) {
	routes, ok := testRouter(uuid.New()).(chi.Routes)
	require.True(t, ok)

	registered := map[string]bool{}
	err := chi.Walk(routes, func(method, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		registered[method+" "+route] = true
		return nil
	})
	require.NoError(t, err)

	for _, want := range []string{
		"GET /api/v1/organizations/{orgID}/campaigns/{id}",
		"PATCH /api/v1/organizations/{orgID}/campaigns/{id}",
		"GET /api/v1/organizations/{orgID}/campaigns/{id}/audience",
		"POST /api/v1/organizations/{orgID}/campaigns/{id}/prepare",
		"GET /api/v1/organizations/{orgID}/campaigns/{id}/recipients",
	} {
		assert.True(t, registered[want], "missing route %s", want)
	}
}

func TestInternalRouteUsesCronSecret(t *testing.T) {
	r := testRouter(uuid.New())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/internal/process-scheduled-campaigns", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req = httptest.NewRequest(http.MethodPost, "/api/v1/internal/process-scheduled-campaigns?max_campaigns=3", nil)
	req.Header.Set("X-Cron-Secret", "cron")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}
