package handler

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	appErrors "github.com/unclebandit/nanis-backend/internal/errors"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error   appErrors.Code `json:"error"`
	Message string         `json:"message"`
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError maps err to its status and public code. Server errors are logged
// with their cause, which is never sent to the client.
func WriteError(w http.ResponseWriter, log *zap.Logger, err error) {
	status := appErrors.HTTPStatus(err)
	if status >= http.StatusInternalServerError && log != nil {
		log.Error("request failed", zap.Int("status", status), zap.Error(err))
	}
	WriteJSON(w, status, ErrorResponse{
		Error:   appErrors.PublicCode(err),
		Message: appErrors.PublicMessage(err),
	})
}

// DecodeJSON reads a JSON body into v, rejecting unknown fields.
func DecodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return appErrors.NewValidation("invalid request body", err)
	}
	return nil
}
