package http

import (
	"errors"
	"net/http"

	"github.com/elysion/userd/internal/user/service"
	"github.com/elysion/userd/pkg/httpx"
	"github.com/elysion/userd/pkg/slogx"
)

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error       string `json:"error"`
	Description string `json:"error_description,omitempty"`
}

// HealthResponse is returned by the livez/readyz probes.
type HealthResponse struct {
	Status  string        `json:"status"`
	Uptime  string        `json:"uptime"`
	Version string        `json:"version"`
	Checks  *HealthChecks `json:"checks,omitempty"`
}

type HealthChecks struct {
	Database string `json:"database"`
}

func writeError(w http.ResponseWriter, code int, err, desc string) {
	httpx.WriteJSON(w, code, ErrorResponse{Error: err, Description: desc})
}

// writeServiceError maps service errors onto HTTP responses. Unknown-user
// and bad-password cases share one generic body so responses don't leak
// which accounts exist.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrUserNotFound),
		errors.Is(err, service.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "authentication_failed", "authentication failed")

	case errors.Is(err, service.ErrAccessDenied):
		writeError(w, http.StatusForbidden, "access_denied", "account is not permitted to sign in")

	case errors.Is(err, service.ErrTwoFACodeRequired):
		writeError(w, http.StatusUnauthorized, "twofa_required", "a two-factor code is required")

	case errors.Is(err, service.ErrTwoFAInvalidFormat),
		errors.Is(err, service.ErrTwoFAInvalidCode):
		writeError(w, http.StatusUnauthorized, "twofa_invalid", "two-factor code rejected")

	case errors.Is(err, service.ErrTwoFANotSetup):
		writeError(w, http.StatusBadRequest, "twofa_not_setup", "two-factor authentication has not been set up")

	case errors.Is(err, service.ErrTooManyAttempts):
		writeError(w, http.StatusTooManyRequests, "too_many_attempts", "login attempt limit reached, try again later")

	case errors.Is(err, service.ErrSuspiciousActivity):
		writeError(w, http.StatusTooManyRequests, "suspicious_activity", "request volume from this client looks abusive")

	case errors.Is(err, service.ErrTokenNotFound),
		errors.Is(err, service.ErrTokenExpiredOrRevoked):
		writeError(w, http.StatusUnauthorized, "invalid_refresh_token", "refresh token rejected")

	case errors.Is(err, service.ErrEmailTaken):
		writeError(w, http.StatusConflict, "email_taken", "an account with this email already exists")

	case errors.Is(err, service.ErrWeakPassword),
		errors.Is(err, service.ErrMissingEmail),
		errors.Is(err, service.ErrMissingPassword):
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())

	case errors.Is(err, service.ErrUnknownToken),
		errors.Is(err, service.ErrTokenExpired):
		writeError(w, http.StatusBadRequest, "invalid_token", "token is unknown or expired")

	case errors.Is(err, service.ErrAlreadyActive):
		writeError(w, http.StatusConflict, "already_active", "account is already active")

	default:
		slogx.FromContext(r.Context()).Error("unhandled service error", "err", err)
		writeError(w, http.StatusInternalServerError, "server_error", "")
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := decodeBody(r, v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "malformed JSON body")
		return false
	}
	return true
}
