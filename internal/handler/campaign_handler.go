// internal/handler/campaign_handler.go
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	appErrors "github.com/unclebandit/nanis-backend/internal/errors"
	"github.com/unclebandit/nanis-backend/internal/service"
)

// CampaignHandler holds the dependencies for campaign-related HTTP handlers
type CampaignHandler struct {
	Service *service.CampaignService
	Logger  *zap.Logger
}

// ParseIDParam reads a UUID route parameter.
func ParseIDParam(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		return uuid.Nil, appErrors.NewValidation("invalid "+name, err)
	}
	return id, nil
}

// GetCampaignHandlerWithStats returns one campaign with its recipient counts.
func (h *CampaignHandler) GetCampaignHandlerWithStats(w http.ResponseWriter, r *http.Request) {
	id, err := ParseIDParam(r, "id")
	if err != nil {
		WriteError(w, h.Logger, err)
		return
	}

	details, err := h.Service.GetCampaignDetailsWithStats(r.Context(), OrgIDFromContext(r.Context()), id)
	if err != nil {
		WriteError(w, h.Logger, err)
		return
	}

	h.Logger.Debug("returning campaign details", zap.String("campaign_id", id.String()), zap.Any("stats", details.Stats))
	WriteJSON(w, http.StatusOK, details)
}
