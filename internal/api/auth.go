package api

import (
	"log/slog"
	"net/http"

	"github.com/erazemk/depot/internal/assignment"
	"github.com/erazemk/depot/internal/identity"
	"github.com/erazemk/depot/internal/model"
)

// AuthHandler handles authentication endpoints.
type AuthHandler struct {
	Identity    *identity.Provider
	Assignments *assignment.Service
}

type signUpRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"displayName"`
}

type signInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type signInResponse struct {
	Token string         `json:"token"`
	User  *model.Account `json:"user"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// SignUp handles POST /api/auth/signup.
func (h *AuthHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	var req signUpRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	acct, err := h.Identity.SignUp(r.Context(), req.Email, req.Password, req.DisplayName)
	if err != nil {
		writeError(w, err, "failed to create account")
		return
	}

	jsonResponse(w, http.StatusCreated, acct)
}

// SignIn handles POST /api/auth/signin.
func (h *AuthHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req signInRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Email == "" || req.Password == "" {
		jsonError(w, http.StatusBadRequest, "email and password required")
		return
	}

	token, acct, err := h.Identity.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		slog.Warn("sign in failed", "email", req.Email, "remote", r.RemoteAddr, "error", err)
		writeError(w, err, "failed to sign in")
		return
	}

	slog.Info("user signed in", "user", acct.ID, "email", acct.Email)
	jsonResponse(w, http.StatusOK, signInResponse{Token: token, User: acct})
}

// SignOut handles POST /api/auth/signout.
func (h *AuthHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	if err := h.Identity.SignOut(r.Context(), getToken(r.Context())); err != nil {
		writeError(w, err, "failed to sign out")
		return
	}

	slog.Info("user signed out", "user", GetSession(r.Context()).UserID)
	jsonResponse(w, http.StatusOK, map[string]string{"message": "signed out"})
}

// Me handles GET /api/auth/me.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	sess := GetSession(r.Context())
	user, err := h.Assignments.GetUser(r.Context(), sess, sess.UserID)
	if err != nil {
		writeError(w, err, "failed to load user")
		return
	}
	jsonResponse(w, http.StatusOK, user)
}

// ChangePassword handles PUT /api/auth/password.
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req changePasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.CurrentPassword == "" || req.NewPassword == "" {
		jsonError(w, http.StatusBadRequest, "current and new password required")
		return
	}

	sess := GetSession(r.Context())
	err := h.Identity.ChangePassword(r.Context(), sess.UserID, req.CurrentPassword, req.NewPassword)
	if err != nil {
		writeError(w, err, "failed to update password")
		return
	}

	slog.Info("user changed own password", "user", sess.UserID)
	jsonResponse(w, http.StatusOK, map[string]string{"message": "password updated"})
}
