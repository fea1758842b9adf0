package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/erazemk/depot/internal/assignment"
	"github.com/erazemk/depot/internal/identity"
	"github.com/erazemk/depot/internal/imaging"
)

// jsonResponse writes a JSON response with the given status code.
func jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("failed to encode response", "error", err)
		}
	}
}

// jsonError writes a JSON error response.
func jsonError(w http.ResponseWriter, status int, message string) {
	jsonResponse(w, status, map[string]string{"error": message})
}

// decodeJSON decodes a JSON request body into the given target.
func decodeJSON(r *http.Request, target any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(target)
}

// errorStatus lists the errors whose message is shown to the client.
var errorStatus = []struct {
	err    error
	status int
}{
	{errBadForm, http.StatusBadRequest},
	{assignment.ErrForbidden, http.StatusForbidden},
	{assignment.ErrNotFound, http.StatusNotFound},
	{assignment.ErrUserNotFound, http.StatusNotFound},
	{assignment.ErrConflict, http.StatusConflict},
	{assignment.ErrNoPending, http.StatusConflict},
	{assignment.ErrSameCandidate, http.StatusConflict},
	{assignment.ErrCandidateIsHolder, http.StatusConflict},
	{assignment.ErrLastAdmin, http.StatusConflict},
	{assignment.ErrUnknownUser, http.StatusBadRequest},
	{assignment.ErrNameRequired, http.StatusBadRequest},
	{assignment.ErrInvalidRole, http.StatusBadRequest},
	{assignment.ErrSelfDelete, http.StatusBadRequest},
	{imaging.ErrUnsupported, http.StatusBadRequest},
	{imaging.ErrTooLarge, http.StatusRequestEntityTooLarge},
	{identity.ErrInvalidCredential, http.StatusUnauthorized},
	{identity.ErrAccountNotFound, http.StatusUnauthorized},
	{identity.ErrUnauthenticated, http.StatusUnauthorized},
	{identity.ErrEmailTaken, http.StatusConflict},
	{identity.ErrInvalidEmail, http.StatusBadRequest},
	{identity.ErrWeakPassword, http.StatusBadRequest},
}

// writeError maps a service error onto a status code. Unknown errors are
// logged and reported with the generic message.
func writeError(w http.ResponseWriter, err error, generic string) {
	for _, e := range errorStatus {
		if errors.Is(err, e.err) {
			jsonError(w, e.status, e.err.Error())
			return
		}
	}
	slog.Error(generic, "error", err)
	jsonError(w, http.StatusInternalServerError, generic)
}
