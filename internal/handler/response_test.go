package handler_test

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	appErrors "github.com/unclebandit/nanis-backend/internal/errors"
	"github.com/unclebandit/nanis-backend/internal/handler"
)

func TestWriteErrorClientError(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	w := httptest.NewRecorder()

	handler.WriteError(w, zap.New(core), appErrors.NewMalformedFilter("limit", "abc"))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.Equal(t, "validation_error", string(decodeError(t, w).Error))
	assert.Zero(t, logs.Len())
}

func TestWriteErrorLogsServerErrors(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	w := httptest.NewRecorder()

	handler.WriteError(w, zap.New(core), fmt.Errorf("wrapped: %w", appErrors.NewStorage("count contacts", fmt.Errorf("pq: relation missing"))))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	body := decodeError(t, w)
	assert.Equal(t, "count contacts failed", body.Message)
	require.Equal(t, 1, logs.Len())
	assert.Contains(t, logs.All()[0].ContextMap()["error"], "relation missing")
}

func TestDecodeJSONRejectsUnknownFields(t *testing.T) {
	var body struct {
		Name string `json:"name"`
	}
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"x","extra":1}`))

	err := handler.DecodeJSON(req, &body)

	assert.Equal(t, http.StatusBadRequest, appErrors.HTTPStatus(err))
}
