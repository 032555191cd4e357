// cmd/server/router.go
package main

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/unclebandit/nanis-backend/internal/controller"
	"github.com/unclebandit/nanis-backend/internal/handler"
	"github.com/unclebandit/nanis-backend/internal/repository"
)

type routes struct {
	Auth      *handler.Authenticator
	Orgs      repository.OrganizationRepositoryInterface
	Contacts  *controller.ContactController
	Tags      *controller.TagController
	Campaigns *controller.CampaignController
	Details   *handler.CampaignHandler
	Internal  *handler.InternalHandler
	Timeout   time.Duration
	Logger    *zap.Logger
}

func newRouter(rt routes) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(handler.RequestLogger(rt.Logger))
	r.Use(chimw.Recoverer)
	r.Use(handler.Metrics)
	if rt.Timeout > 0 {
		r.Use(chimw.Timeout(rt.Timeout))
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		handler.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/internal/process-scheduled-campaigns", rt.Internal.ProcessScheduledCampaigns)

		r.Group(func(r chi.Router) {
			r.Use(rt.Auth.Middleware)

			r.Route("/organizations/{orgID}", func(r chi.Router) {
				r.Use(handler.RequireOrgMember(rt.Orgs, rt.Logger))

				// Contact routes
				r.Get("/contacts", rt.Contacts.ListContacts)
				r.Get("/contacts/{contactID}", rt.Contacts.GetContact)
				r.Get("/tags", rt.Tags.ListTags)

				// Campaign routes
				r.Post("/campaigns", rt.Campaigns.CreateCampaign)
				r.Get("/campaigns", rt.Campaigns.ListCampaigns)
				r.Get("/campaigns/{id}", rt.Details.GetCampaignHandlerWithStats)
				r.Patch("/campaigns/{id}", rt.Campaigns.UpdateCampaign)
				r.Get("/campaigns/{id}/target-rules", rt.Campaigns.GetTargetRules)
				r.Put("/campaigns/{id}/target-rules", rt.Campaigns.PutTargetRules)
				r.Get("/campaigns/{id}/audience", rt.Campaigns.PreviewAudience)
				r.Post("/campaigns/{id}/prepare", rt.Campaigns.PrepareRecipients)
				r.Get("/campaigns/{id}/recipients", rt.Campaigns.ListRecipients)
				r.Post("/campaigns/{id}/preview", rt.Campaigns.PersonalizedPreview)
			})
		})
	})

	return r
}
