// internal/controller/contact_controller.go
package controller

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/unclebandit/nanis-backend/internal/handler"
	"github.com/unclebandit/nanis-backend/internal/service"
)

type ContactController struct {
	Audience *service.AudienceService
	Logger   *zap.Logger
}

// ListContacts resolves the audience described by the query string.
func (c *ContactController) ListContacts(w http.ResponseWriter, r *http.Request) {
	filter, err := service.NormalizeAudienceFilter(r.URL.Query())
	if err != nil {
		handler.WriteError(w, c.Logger, err)
		return
	}

	page, err := c.Audience.Resolve(r.Context(), handler.OrgIDFromContext(r.Context()), filter)
	if err != nil {
		handler.WriteError(w, c.Logger, err)
		return
	}

	handler.WriteJSON(w, http.StatusOK, page)
}

func (c *ContactController) GetContact(w http.ResponseWriter, r *http.Request) {
	id, err := handler.ParseIDParam(r, "contactID")
	if err != nil {
		handler.WriteError(w, c.Logger, err)
		return
	}

	contact, err := c.Audience.GetContact(r.Context(), handler.OrgIDFromContext(r.Context()), id)
	if err != nil {
		handler.WriteError(w, c.Logger, err)
		return
	}

	handler.WriteJSON(w, http.StatusOK, contact)
}
