// internal/controller/campaign_controller.go
package controller

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/unclebandit/nanis-backend/internal/handler"
	"github.com/unclebandit/nanis-backend/internal/service"
)

type CampaignController struct {
	CampaignService *service.CampaignService
	Logger          *zap.Logger
}

func (c *CampaignController) PersonalizedPreview(w http.ResponseWriter, r *http.Request) {
	campaignID, err := handler.ParseIDParam(r, "id")
	if err != nil {
		handler.WriteError(w, c.Logger, err)
		return
	}

	var body struct {
		ContactID        uuid.UUID `json:"contact_id"`
		OverrideTemplate *string   `json:"override_template"`
	}
	if err := handler.DecodeJSON(r, &body); err != nil {
		handler.WriteError(w, c.Logger, err)
		return
	}

	preview, err := c.CampaignService.RenderPreview(r.Context(), handler.OrgIDFromContext(r.Context()), campaignID, body.ContactID, body.OverrideTemplate)
	if err != nil {
		handler.WriteError(w, c.Logger, err)
		return
	}

	handler.WriteJSON(w, http.StatusOK, preview)
}

func (c *CampaignController) CreateCampaign(w http.ResponseWriter, r *http.Request) {
	var body service.CreateCampaignInput
	if err := handler.DecodeJSON(r, &body); err != nil {
		handler.WriteError(w, c.Logger, err)
		return
	}

	ctx := r.Context()
	campaign, err := c.CampaignService.CreateCampaign(ctx, handler.OrgIDFromContext(ctx), handler.UserIDFromContext(ctx), body)
	if err != nil {
		handler.WriteError(w, c.Logger, err)
		return
	}

	handler.WriteJSON(w, http.StatusCreated, campaign)
}

func (c *CampaignController) ListCampaigns(w http.ResponseWriter, r *http.Request) {
	// Parse query parameters; the service applies defaults
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("page_size"))
	status := r.URL.Query().Get("status")

	campaigns, pagination, err := c.CampaignService.ListCampaigns(r.Context(), handler.OrgIDFromContext(r.Context()), page, pageSize, status)
	if err != nil {
		handler.WriteError(w, c.Logger, err)
		return
	}

	handler.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"data":       campaigns,
		"pagination": pagination, // page, page_size, total_count, total_pages
	})
}

func (c *CampaignController) UpdateCampaign(w http.ResponseWriter, r *http.Request) {
	id, err := handler.ParseIDParam(r, "id")
	if err != nil {
		handler.WriteError(w, c.Logger, err)
		return
	}

	var body service.UpdateCampaignInput
	if err := handler.DecodeJSON(r, &body); err != nil {
		handler.WriteError(w, c.Logger, err)
		return
	}

	campaign, err := c.CampaignService.UpdateCampaign(r.Context(), handler.OrgIDFromContext(r.Context()), id, body)
	if err != nil {
		handler.WriteError(w, c.Logger, err)
		return
	}

	handler.WriteJSON(w, http.StatusOK, campaign)
}

func (c *CampaignController) GetTargetRules(w http.ResponseWriter, r *http.Request) {
	id, err := handler.ParseIDParam(r, "id")
	if err != nil {
		handler.WriteError(w, c.Logger, err)
		return
	}

	rules, err := c.CampaignService.GetTargetRules(r.Context(), handler.OrgIDFromContext(r.Context()), id)
	if err != nil {
		handler.WriteError(w, c.Logger, err)
		return
	}

	handler.WriteJSON(w, http.StatusOK, rules)
}

func (c *CampaignController) PutTargetRules(w http.ResponseWriter, r *http.Request) {
	id, err := handler.ParseIDParam(r, "id")
	if err != nil {
		handler.WriteError(w, c.Logger, err)
		return
	}

	var body service.TargetRulesInput
	if err := handler.DecodeJSON(r, &body); err != nil {
		handler.WriteError(w, c.Logger, err)
		return
	}

	rules, err := c.CampaignService.SaveTargetRules(r.Context(), handler.OrgIDFromContext(r.Context()), id, body)
	if err != nil {
		handler.WriteError(w, c.Logger, err)
		return
	}

	handler.WriteJSON(w, http.StatusOK, rules)
}

// PreviewAudience returns one page of the contacts the campaign would reach.
// page and limit follow the same rules as the contact listing.
func (c *CampaignController) PreviewAudience(w http.ResponseWriter, r *http.Request) {
	id, err := handler.ParseIDParam(r, "id")
	if err != nil {
		handler.WriteError(w, c.Logger, err)
		return
	}

	paging, err := service.NormalizeAudienceFilter(r.URL.Query())
	if err != nil {
		handler.WriteError(w, c.Logger, err)
		return
	}

	page, err := c.CampaignService.PreviewAudience(r.Context(), handler.OrgIDFromContext(r.Context()), id, paging.Page, paging.Limit)
	if err != nil {
		handler.WriteError(w, c.Logger, err)
		return
	}

	handler.WriteJSON(w, http.StatusOK, page)
}

func (c *CampaignController) PrepareRecipients(w http.ResponseWriter, r *http.Request) {
	id, err := handler.ParseIDParam(r, "id")
	if err != nil {
		handler.WriteError(w, c.Logger, err)
		return
	}

	result, err := c.CampaignService.PrepareRecipients(r.Context(), handler.OrgIDFromContext(r.Context()), id)
	if err != nil {
		handler.WriteError(w, c.Logger, err)
		return
	}

	handler.WriteJSON(w, http.StatusOK, result)
}

// ListRecipients pages through the campaign's recipient rows. An optional
// status query parameter narrows the list to one recipient status.
func (c *CampaignController) ListRecipients(w http.ResponseWriter, r *http.Request) {
	id, err := handler.ParseIDParam(r, "id")
	if err != nil {
		handler.WriteError(w, c.Logger, err)
		return
	}

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("page_size"))
	status := r.URL.Query().Get("status")

	recipients, pagination, err := c.CampaignService.ListRecipients(r.Context(), handler.OrgIDFromContext(r.Context()), id, page, pageSize, status)
	if err != nil {
		handler.WriteError(w, c.Logger, err)
		return
	}

	handler.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"data":       recipients,
		"pagination": pagination,
	})
}
