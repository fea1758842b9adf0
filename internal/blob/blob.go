// Package blob stores uploaded files and hands out URLs for them.
package blob

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/erazemk/depot/internal/store"
)

// URLPrefix is the path under which stored blobs are served.
const URLPrefix = "/blobs/"

// ErrNotFound is returned when no blob exists at a path.
var ErrNotFound = errors.New("blob not found")

// ErrInvalidPath is returned for empty or escaping paths.
var ErrInvalidPath = errors.New("invalid blob path")

// Store keeps blobs in the database.
type Store struct {
	DB *sql.DB
}

// Upload stores data at p and returns the URL it can be fetched from.
// The MIME type is sniffed from the bytes.
func (s *Store) Upload(ctx context.Context, p string, data []byte) (string, error) {
	clean, err := cleanPath(p)
	if err != nil {
		return "", err
	}

	mime := http.DetectContentType(data)
	if err := store.PutBlob(ctx, s.DB, clean, data, mime); err != nil {
		return "", fmt.Errorf("uploading blob: %w", err)
	}
	return URLPrefix + clean, nil
}

// Open returns the data and MIME type stored at p.
func (s *Store) Open(ctx context.Context, p string) ([]byte, string, error) {
	clean, err := cleanPath(p)
	if err != nil {
		return nil, "", err
	}

	data, mime, err := store.GetBlob(ctx, s.DB, clean)
	if err != nil {
		return nil, "", err
	}
	if data == nil {
		return nil, "", ErrNotFound
	}
	return data, mime, nil
}

// Delete removes the blob a URL points to. URLs that do not point into
// this store are ignored.
func (s *Store) Delete(ctx context.Context, url string) error {
	p, ok := strings.CutPrefix(url, URLPrefix)
	if !ok {
		return nil
	}
	clean, err := cleanPath(p)
	if err != nil {
		return err
	}
	return store.DeleteBlob(ctx, s.DB, clean)
}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// ItemImagePath builds the storage path for an uploaded item image:
// items/<unix millis>_<random id>_<sanitized file name>. Every call
// returns a fresh path, so uploads never share a blob.
func ItemImagePath(now time.Time, filename string) string {
	name := unsafeChars.ReplaceAllString(path.Base(filename), "_")
	name = strings.Trim(name, "._")
	if name == "" {
		name = "image"
	}
	return fmt.Sprintf("items/%d_%s_%s", now.UnixMilli(), uuid.NewString(), name)
}

func cleanPath(p string) (string, error) {
	if p == "" {
		return "", ErrInvalidPath
	}
	clean := path.Clean("/" + p)[1:]
	if clean == "" || clean != strings.TrimPrefix(p, "/") {
		return "", ErrInvalidPath
	}
	return clean, nil
}
