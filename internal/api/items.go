package api

import (
	"errors"
	"mime"
	"net/http"
	"strconv"

	"github.com/erazemk/depot/internal/assignment"
	"github.com/erazemk/depot/internal/imaging"
)

// ItemsHandler handles the item catalog and assignment endpoints.
type ItemsHandler struct {
	Assignments *assignment.Service
	// MaxUpload bounds multipart request bodies.
	MaxUpload int64
}

type itemRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	RemoveImage bool   `json:"removeImage"`
}

type proposeRequest struct {
	UserID string `json:"userId"`
}

// List handles GET /api/items.
func (h *ItemsHandler) List(w http.ResponseWriter, r *http.Request) {
	opts := assignment.ListOptions{PendingOnly: r.URL.Query().Get("pending") == "true"}
	h.list(w, r, opts)
}

// ListAssignments handles GET /api/assignments: items with an open request.
func (h *ItemsHandler) ListAssignments(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, assignment.ListOptions{PendingOnly: true})
}

func (h *ItemsHandler) list(w http.ResponseWriter, r *http.Request, opts assignment.ListOptions) {
	views, err := h.Assignments.List(r.Context(), GetSession(r.Context()), opts)
	if err != nil {
		writeError(w, err, "failed to load items")
		return
	}
	jsonResponse(w, http.StatusOK, views)
}

// Create handles POST /api/items. The body is JSON, or a multipart form
// with an optional "image" file.
func (h *ItemsHandler) Create(w http.ResponseWriter, r *http.Request) {
	in, cleanup, err := h.readItem(w, r)
	if err != nil {
		writeError(w, err, "invalid request body")
		return
	}
	defer cleanup()

	item, err := h.Assignments.CreateItem(r.Context(), GetSession(r.Context()), in)
	if err != nil {
		writeError(w, err, "failed to create item")
		return
	}
	jsonResponse(w, http.StatusCreated, item)
}

// Get handles GET /api/items/{id}.
func (h *ItemsHandler) Get(w http.ResponseWriter, r *http.Request) {
	view, err := h.Assignments.Get(r.Context(), GetSession(r.Context()), r.PathValue("id"))
	if err != nil {
		writeError(w, err, "failed to load item")
		return
	}
	jsonResponse(w, http.StatusOK, view)
}

// Update handles PUT /api/items/{id}.
func (h *ItemsHandler) Update(w http.ResponseWriter, r *http.Request) {
	in, cleanup, err := h.readItem(w, r)
	if err != nil {
		writeError(w, err, "invalid request body")
		return
	}
	defer cleanup()

	item, err := h.Assignments.UpdateItem(r.Context(), GetSession(r.Context()), r.PathValue("id"), in)
	if err != nil {
		writeError(w, err, "failed to update item")
		return
	}
	jsonResponse(w, http.StatusOK, item)
}

// Delete handles DELETE /api/items/{id}.
func (h *ItemsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.Assignments.Delete(r.Context(), GetSession(r.Context()), r.PathValue("id")); err != nil {
		writeError(w, err, "failed to delete item")
		return
	}
	jsonResponse(w, http.StatusOK, map[string]string{"message": "item deleted"})
}

// Propose handles POST /api/items/{id}/propose. An empty userId
// withdraws the open request.
func (h *ItemsHandler) Propose(w http.ResponseWriter, r *http.Request) {
	var req proposeRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	item, err := h.Assignments.Propose(r.Context(), GetSession(r.Context()), r.PathValue("id"), req.UserID)
	if err != nil {
		writeError(w, err, "failed to update assignment")
		return
	}
	jsonResponse(w, http.StatusOK, item)
}

// Accept handles POST /api/items/{id}/accept.
func (h *ItemsHandler) Accept(w http.ResponseWriter, r *http.Request) {
	item, err := h.Assignments.Accept(r.Context(), GetSession(r.Context()), r.PathValue("id"))
	if err != nil {
		writeError(w, err, "failed to update assignment")
		return
	}
	jsonResponse(w, http.StatusOK, item)
}

// Reject handles POST /api/items/{id}/reject.
func (h *ItemsHandler) Reject(w http.ResponseWriter, r *http.Request) {
	item, err := h.Assignments.Reject(r.Context(), GetSession(r.Context()), r.PathValue("id"))
	if err != nil {
		writeError(w, err, "failed to update assignment")
		return
	}
	jsonResponse(w, http.StatusOK, item)
}

var errBadForm = errors.New("invalid request body")

// readItem parses an item from a JSON or multipart body. The returned
// cleanup releases multipart temporary files.
func (h *ItemsHandler) readItem(w http.ResponseWriter, r *http.Request) (assignment.ItemInput, func(), error) {
	noop := func() {}

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		var req itemRequest
		if err := decodeJSON(r, &req); err != nil {
			return assignment.ItemInput{}, noop, errBadForm
		}
		return assignment.ItemInput{
			Name:        req.Name,
			Description: req.Description,
			RemoveImage: req.RemoveImage,
		}, noop, nil
	}

	maxUpload := h.MaxUpload
	if maxUpload <= 0 {
		maxUpload = imaging.DefaultMaxBytes
	}
	// Leave room for the other form fields.
	r.Body = http.MaxBytesReader(w, r.Body, maxUpload+1<<20)

	if err := r.ParseMultipartForm(maxUpload); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return assignment.ItemInput{}, noop, imaging.ErrTooLarge
		}
		return assignment.ItemInput{}, noop, errBadForm
	}
	cleanup := func() { r.MultipartForm.RemoveAll() }

	removeImage, _ := strconv.ParseBool(r.FormValue("removeImage"))
	in := assignment.ItemInput{
		Name:        r.FormValue("name"),
		Description: r.FormValue("description"),
		RemoveImage: removeImage,
	}

	file, header, err := r.FormFile("image")
	switch {
	case errors.Is(err, http.ErrMissingFile):
	case err != nil:
		cleanup()
		return assignment.ItemInput{}, noop, errBadForm
	default:
		in.Image = &assignment.ImageUpload{Filename: header.Filename, Data: file}
		cleanup = func() {
			file.Close()
			r.MultipartForm.RemoveAll()
		}
	}
	return in, cleanup, nil
}
