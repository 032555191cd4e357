// internal/controller/tag_controller.go
package controller

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/unclebandit/nanis-backend/internal/handler"
	"github.com/unclebandit/nanis-backend/internal/service"
)

type TagController struct {
	TagService *service.TagService
	Logger     *zap.Logger
}

func (c *TagController) ListTags(w http.ResponseWriter, r *http.Request) {
	tags, err := c.TagService.ListTags(r.Context(), handler.OrgIDFromContext(r.Context()))
	if err != nil {
		handler.WriteError(w, c.Logger, err)
		return
	}

	handler.WriteJSON(w, http.StatusOK, map[string]interface{}{"data": tags})
}
