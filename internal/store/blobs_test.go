package store

import (
	"context"
	"testing"

	"github.com/erazemk/depot/internal/db"
)

func TestBlobRoundTrip(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	if err := PutBlob(ctx, database, "items/1_a.jpg", []byte("fake image data"), "image/jpeg"); err != nil {
		t.Fatalf("PutBlob: %v", err)
	}

	data, mime, err := GetBlob(ctx, database, "items/1_a.jpg")
	if err != nil {
		t.Fatalf("GetBlob: %v", err)
	}
	if string(data) != "fake image data" {
		t.Errorf("expected blob data, got %q", string(data))
	}
	if mime != "image/jpeg" {
		t.Errorf("expected mime 'image/jpeg', got %q", mime)
	}

	// Overwrite keeps a single entry.
	PutBlob(ctx, database, "items/1_a.jpg", []byte("second"), "image/png")
	data, mime, _ = GetBlob(ctx, database, "items/1_a.jpg")
	if string(data) != "second" || mime != "image/png" {
		t.Errorf("expected overwritten blob, got %q %q", data, mime)
	}

	if err := DeleteBlob(ctx, database, "items/1_a.jpg"); err != nil {
		t.Fatalf("DeleteBlob: %v", err)
	}
	data, _, _ = GetBlob(ctx, database, "items/1_a.jpg")
	if data != nil {
		t.Error("expected blob to be gone")
	}
}
