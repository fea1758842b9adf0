package api

import (
	"net/http"

	"github.com/erazemk/depot/internal/assignment"
)

// UsersHandler handles user directory endpoints. Who may do what is
// decided by the assignment service.
type UsersHandler struct {
	Assignments *assignment.Service
}

type updateUserRequest struct {
	DisplayName *string `json:"displayName"`
	Role        *string `json:"role"`
}

// List handles GET /api/users.
func (h *UsersHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.Assignments.ListUsers(r.Context(), GetSession(r.Context()))
	if err != nil {
		writeError(w, err, "failed to load users")
		return
	}
	jsonResponse(w, http.StatusOK, users)
}

// Get handles GET /api/users/{id}.
func (h *UsersHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, err := h.Assignments.GetUser(r.Context(), GetSession(r.Context()), r.PathValue("id"))
	if err != nil {
		writeError(w, err, "failed to load user")
		return
	}
	jsonResponse(w, http.StatusOK, user)
}

// Update handles PUT /api/users/{id}.
func (h *UsersHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req updateUserRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := h.Assignments.UpdateUser(r.Context(), GetSession(r.Context()), r.PathValue("id"),
		assignment.UserUpdate{DisplayName: req.DisplayName, Role: req.Role})
	if err != nil {
		writeError(w, err, "failed to update user")
		return
	}
	jsonResponse(w, http.StatusOK, user)
}

// Delete handles DELETE /api/users/{id}.
func (h *UsersHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.Assignments.DeleteUser(r.Context(), GetSession(r.Context()), r.PathValue("id")); err != nil {
		writeError(w, err, "failed to delete user")
		return
	}
	jsonResponse(w, http.StatusOK, map[string]string{"message": "user deleted"})
}
