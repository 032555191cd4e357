package handler

import (
	"crypto/subtle"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	appErrors "github.com/unclebandit/nanis-backend/internal/errors"
	"github.com/unclebandit/nanis-backend/internal/service"
)

const (
	defaultMaxCampaigns = 5
	maxMaxCampaigns     = 20
)

// InternalHandler serves endpoints called by the platform cron, not by users.
type InternalHandler struct {
	Scheduler  service.DueProcessor
	CronSecret string
	Now        func() time.Time
	Logger     *zap.Logger
}

// ProcessScheduledCampaigns runs one scheduler pass. It requires X-Cron-Secret
// to equal the configured secret.
func (h *InternalHandler) ProcessScheduledCampaigns(w http.ResponseWriter, r *http.Request) {
	if h.CronSecret == "" {
		WriteError(w, h.Logger, appErrors.NewUnavailable("cron secret is not configured"))
		return
	}
	got := r.Header.Get("X-Cron-Secret")
	if subtle.ConstantTimeCompare([]byte(got), []byte(h.CronSecret)) != 1 {
		WriteError(w, h.Logger, appErrors.NewUnauthorized("invalid cron secret"))
		return
	}

	maxCampaigns := defaultMaxCampaigns
	if raw := strings.TrimSpace(r.URL.Query().Get("max_campaigns")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxMaxCampaigns {
			WriteError(w, h.Logger, appErrors.NewValidation("max_campaigns must be between 1 and 20", err))
			return
		}
		maxCampaigns = n
	}

	now := time.Now
	if h.Now != nil {
		now = h.Now
	}
	res, err := h.Scheduler.ProcessDue(r.Context(), now().UTC(), maxCampaigns)
	if err != nil {
		WriteError(w, h.Logger, err)
		return
	}
	WriteJSON(w, http.StatusOK, res)
}
