package web

// errors.go maps errors to HTTP responses.
//
// The technical error is logged with the request ID; the client gets the
// message, action and code from core.MapError.

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/JonMunkholm/mongoetl/internal/core"
	"github.com/JonMunkholm/mongoetl/internal/logging"
)

// ErrorResponse is the JSON body of every error response.
type ErrorResponse struct {
	Error   string    `json:"error"`
	Message string    `json:"message"`
	Action  string    `json:"action,omitempty"`
	Code    string    `json:"code"`
	Run     *core.Run `json:"run,omitempty"`
}

// respondError logs err and writes its mapped message.
func respondError(w http.ResponseWriter, r *http.Request, err error, status int) {
	writeError(w, r, err, status, nil)
}

// respondRunError is respondError for a failed run; the run is included so
// callers see which step failed.
func respondRunError(w http.ResponseWriter, r *http.Request, err error, run core.Run) {
	writeError(w, r, err, statusFor(err), &run)
}

func writeError(w http.ResponseWriter, r *http.Request, err error, status int, run *core.Run) {
	msg := core.MapError(err)

	logging.FromContext(r.Context()).Error("request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"error", err.Error(),
		"code", msg.Code,
		"request_id", middleware.GetReqID(r.Context()),
	)

	writeJSON(w, status, ErrorResponse{
		Error:   msg.Message,
		Message: msg.Message,
		Action:  msg.Action,
		Code:    msg.Code,
		Run:     run,
	})
}

// statusFor picks the HTTP status for an error returned by the service.
func statusFor(err error) int {
	switch {
	case errors.Is(err, core.ErrRunInProgress):
		return http.StatusConflict
	case errors.Is(err, core.ErrRunNotFound), errors.Is(err, core.ErrUnknownStep):
		return http.StatusNotFound
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, core.ErrQualityGate):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
