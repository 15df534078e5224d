package http

import (
	"net/http"
	"strconv"

	"github.com/elysion/userd/internal/user/service"
	"github.com/elysion/userd/pkg/httpx"
)

// UsersHandler covers profile, export and admin account management.
type UsersHandler struct {
	Users *service.UserService
	Audit *service.AuditService
}

// HandleMe handles GET /v1/users/me.
func (h *UsersHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	profile, err := h.Users.GetProfile(r.Context(), httpx.UserIDFromContext(r.Context()))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, profile)
}

type updateMeRequest struct {
	Name string `json:"name"`
}

// HandleUpdateMe handles PATCH /v1/users/me.
func (h *UsersHandler) HandleUpdateMe(w http.ResponseWriter, r *http.Request) {
	var req updateMeRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	profile, err := h.Users.UpdateName(r.Context(), httpx.UserIDFromContext(r.Context()), req.Name)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, profile)
}

// HandleDeleteMe handles DELETE /v1/users/me.
func (h *UsersHandler) HandleDeleteMe(w http.ResponseWriter, r *http.Request) {
	if err := h.Users.Delete(r.Context(), httpx.UserIDFromContext(r.Context())); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleExport handles GET /v1/users/me/export.
func (h *UsersHandler) HandleExport(w http.ResponseWriter, r *http.Request) {
	export, err := h.Users.Export(r.Context(), httpx.UserIDFromContext(r.Context()))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, export)
}

// HandleList handles GET /v1/users (admin).
func (h *UsersHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)
	profiles, err := h.Users.List(r.Context(), limit, offset)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, profiles)
}

type assignRolesRequest struct {
	Roles []string `json:"roles"`
}

// HandleAssignRoles handles PUT /v1/users/{id}/roles (admin).
func (h *UsersHandler) HandleAssignRoles(w http.ResponseWriter, r *http.Request) {
	var req assignRolesRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.Users.AssignRoles(r.Context(), r.PathValue("id"), req.Roles); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type banRequest struct {
	Banned bool `json:"banned"`
}

// HandleBan handles PUT /v1/users/{id}/ban (admin).
func (h *UsersHandler) HandleBan(w http.ResponseWriter, r *http.Request) {
	var req banRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.Users.SetBanned(r.Context(), r.PathValue("id"), req.Banned); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleDelete handles DELETE /v1/users/{id} (admin).
func (h *UsersHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.Users.Delete(r.Context(), r.PathValue("id")); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleAuditLog handles GET /v1/users/{id}/audit (admin).
func (h *UsersHandler) HandleAuditLog(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)
	entries, err := h.Audit.ListForUser(r.Context(), r.PathValue("id"), limit, offset)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, entries)
}

func pagination(r *http.Request) (limit, offset int) {
	limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ = strconv.Atoi(r.URL.Query().Get("offset"))
	return limit, offset
}
