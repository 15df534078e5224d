package http

import (
	"errors"
	"net/http"

	"github.com/elysion/userd/internal/user/service"
	"github.com/elysion/userd/pkg/httpx"
)

// AuthHandler covers registration, login and session endpoints.
type AuthHandler struct {
	Auth         *service.AuthService
	Registration *service.RegistrationService
}

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

// HandleRegister handles POST /v1/auth/register.
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := h.Registration.Register(r.Context(), req.Email, req.Password, req.Name)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, map[string]string{
		"id":    user.ID,
		"email": user.Email,
	})
}

type loginRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	TwoFACode string `json:"twofa_code,omitempty"`
}

// HandleLogin handles POST /v1/auth/login. The caller's IP is the throttle
// key.
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	pair, err := h.Auth.Login(r.Context(), req.Email, req.Password, req.TwoFACode, httpx.IPKeyExtractor(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, pair)
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// HandleRefresh handles POST /v1/auth/refresh.
func (h *AuthHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	pair, err := h.Auth.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, pair)
}

// HandleLogout handles POST /v1/auth/logout. Always 204: logout is
// idempotent and silent about unknown tokens.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.Auth.Logout(r.Context(), req.RefreshToken); err != nil {
		writeServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type confirmRequest struct {
	Token string `json:"token"`
}

// HandleConfirm handles POST /v1/auth/confirm.
func (h *AuthHandler) HandleConfirm(w http.ResponseWriter, r *http.Request) {
	var req confirmRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.Registration.ConfirmEmail(r.Context(), req.Token); err != nil {
		writeServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type forgotRequest struct {
	Email string `json:"email"`
}

// HandleForgot handles POST /v1/auth/forgot. Unknown emails get the same
// 202 as known ones so the endpoint cannot be used for account enumeration.
func (h *AuthHandler) HandleForgot(w http.ResponseWriter, r *http.Request) {
	var req forgotRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	err := h.Registration.ForgotPassword(r.Context(), req.Email)
	if err != nil && !errors.Is(err, service.ErrUserNotFound) {
		writeServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusAccepted)
}

type resetRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

// HandleReset handles POST /v1/auth/reset.
func (h *AuthHandler) HandleReset(w http.ResponseWriter, r *http.Request) {
	var req resetRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.Registration.ResetPassword(r.Context(), req.Token, req.NewPassword); err != nil {
		writeServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
