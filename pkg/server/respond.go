package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	cerrors "github.com/matzehuels/cardcrop/pkg/errors"
	"github.com/matzehuels/cardcrop/pkg/observability"
)

// errorResponse is the JSON body of every failed request.
type errorResponse struct {
	Code    cerrors.Code `json:"code"`
	Message string       `json:"message"`
}

// statusFor maps an error code to an HTTP status.
func statusFor(err error) int {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}

	switch cerrors.GetCode(err) {
	case cerrors.ErrCodeConfig, cerrors.ErrCodeInvalidInput, cerrors.ErrCodeInvalidFormat,
		cerrors.ErrCodeInvalidPath, cerrors.ErrCodeUnsupported:
		return http.StatusBadRequest
	case cerrors.ErrCodeSource:
		return http.StatusUnprocessableEntity
	case cerrors.ErrCodeNotFound, cerrors.ErrCodeFileNotFound:
		return http.StatusNotFound
	case cerrors.ErrCodeTimeout:
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	code := cerrors.GetCode(err)
	if code == "" {
		code = cerrors.ErrCodeInternal
		if status == http.StatusRequestEntityTooLarge {
			code = cerrors.ErrCodeInvalidInput
		}
	}

	route := r.URL.Path
	if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
		route = rctx.RoutePattern()
	}
	observability.HTTP().OnError(r.Context(), r.Method, route, err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "route", route, "error", err)
	} else {
		s.logger.Debug("request rejected", "route", route, "code", code, "error", err)
	}

	writeJSON(w, status, errorResponse{Code: code, Message: cerrors.UserMessage(err)})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
