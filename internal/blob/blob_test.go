package blob

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"regexp"
	"testing"
	"time"

	"github.com/erazemk/depot/internal/db"
)

func testPNG(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 2, 2))); err != nil {
		t.Fatalf("encoding png: %v", err)
	}
	return buf.Bytes()
}

func TestUploadAndOpen(t *testing.T) {
	s := &Store{DB: db.NewTestDB(t)}
	ctx := context.Background()
	data := testPNG(t)

	url, err := s.Upload(ctx, "items/1_chair.png", data)
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if url != "/blobs/items/1_chair.png" {
		t.Errorf("unexpected url %q", url)
	}

	got, mime, err := s.Open(ctx, "items/1_chair.png")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Error("expected stored bytes back")
	}
	if mime != "image/png" {
		t.Errorf("expected sniffed mime image/png, got %q", mime)
	}

	if err := s.Delete(ctx, url); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, _, err := s.Open(ctx, "items/1_chair.png"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestDeleteForeignURLIgnored(t *testing.T) {
	s := &Store{DB: db.NewTestDB(t)}
	if err := s.Delete(context.Background(), "https://cdn.example.com/x.png"); err != nil {
		t.Errorf("expected foreign url to be ignored, got %v", err)
	}
}

func TestInvalidPaths(t *testing.T) {
	s := &Store{DB: db.NewTestDB(t)}
	ctx := context.Background()

	for _, p := range []string{"", "../etc/passwd", "items/../../x", "items//x"} {
		if _, err := s.Upload(ctx, p, []byte("x")); !errors.Is(err, ErrInvalidPath) {
			t.Errorf("Upload(%q) error = %v, want ErrInvalidPath", p, err)
		}
	}
}

func TestItemImagePath(t *testing.T) {
	now := time.UnixMilli(1700000000000)
	const id = `[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}`

	tests := []struct {
		filename string
		pattern  string
	}{
		{"chair.jpg", `^items/1700000000000_` + id + `_chair\.jpg$`},
		{"my photo (1).png", `^items/1700000000000_` + id + `_my_photo_1_\.png$`},
		{"../../secret.png", `^items/1700000000000_` + id + `_secret\.png$`},
		{"", `^items/1700000000000_` + id + `_image$`},
	}

	for _, tt := range tests {
		got := ItemImagePath(now, tt.filename)
		if !regexp.MustCompile(tt.pattern).MatchString(got) {
			t.Errorf("ItemImagePath(%q) = %q, want match for %s", tt.filename, got, tt.pattern)
		}
	}

	if a, b := ItemImagePath(now, "chair.jpg"), ItemImagePath(now, "chair.jpg"); a == b {
		t.Errorf("expected distinct paths for the same name and time, got %q twice", a)
	}
}
