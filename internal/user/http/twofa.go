package http

import (
	"net/http"

	"github.com/elysion/userd/internal/user/service"
	"github.com/elysion/userd/pkg/httpx"
)

// TwoFAHandler covers TOTP enrolment for the authenticated user.
type TwoFAHandler struct {
	TwoFA *service.TwoFAService
}

// HandleSetup handles POST /v1/2fa/setup. Returns the fresh secret and the
// otpauth provisioning URI for QR rendering.
func (h *TwoFAHandler) HandleSetup(w http.ResponseWriter, r *http.Request) {
	userID := httpx.UserIDFromContext(r.Context())

	setup, err := h.TwoFA.Setup(r.Context(), userID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, setup)
}

type twoFACodeRequest struct {
	Code string `json:"code"`
}

// HandleVerify handles POST /v1/2fa/verify. Checks a code without changing
// enrolment state.
func (h *TwoFAHandler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	var req twoFACodeRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.TwoFA.Verify(r.Context(), httpx.UserIDFromContext(r.Context()), req.Code); err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]bool{"valid": true})
}

// HandleEnable handles POST /v1/2fa/enable.
func (h *TwoFAHandler) HandleEnable(w http.ResponseWriter, r *http.Request) {
	var req twoFACodeRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.TwoFA.Enable(r.Context(), httpx.UserIDFromContext(r.Context()), req.Code); err != nil {
		writeServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleDisable handles POST /v1/2fa/disable.
func (h *TwoFAHandler) HandleDisable(w http.ResponseWriter, r *http.Request) {
	var req twoFACodeRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.TwoFA.Disable(r.Context(), httpx.UserIDFromContext(r.Context()), req.Code); err != nil {
		writeServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
