package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/erazemk/depot/internal/blob"
)

// BlobsHandler serves stored item images.
type BlobsHandler struct {
	Blobs *blob.Store
}

// Get handles GET /blobs/{path...}.
func (h *BlobsHandler) Get(w http.ResponseWriter, r *http.Request) {
	data, mime, err := h.Blobs.Open(r.Context(), r.PathValue("path"))
	switch {
	case errors.Is(err, blob.ErrNotFound), errors.Is(err, blob.ErrInvalidPath):
		http.NotFound(w, r)
		return
	case err != nil:
		writeError(w, err, "failed to load file")
		return
	}

	w.Header().Set("Content-Type", mime)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	// Blob paths are never reused, so content never changes.
	w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	w.Write(data)
}
