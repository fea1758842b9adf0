package store

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/erazemk/depot/internal/db"
	"github.com/erazemk/depot/internal/model"
)

func mustPutUser(t *testing.T, database *sql.DB, id, email string) {
	t.Helper()
	if _, err := PutUser(context.Background(), database, id, email, "", model.RoleUser); err != nil {
		t.Fatalf("PutUser: %v", err)
	}
}

func TestCreateAndGetItem(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	item, err := CreateItem(ctx, database, "Laptop", "Dell XPS 15", "")
	if err != nil {
		t.Fatalf("CreateItem: %v", err)
	}
	if item.ID == "" {
		t.Fatal("expected generated id")
	}
	if item.Name != "Laptop" {
		t.Errorf("expected name 'Laptop', got %q", item.Name)
	}
	if item.State() != model.StateUnassigned {
		t.Errorf("expected new item to be unassigned, got %s", item.State())
	}
	if item.Version != 1 {
		t.Errorf("expected version 1, got %d", item.Version)
	}

	missing, err := GetItem(ctx, database, "does-not-exist")
	if err != nil {
		t.Fatalf("GetItem: %v", err)
	}
	if missing != nil {
		t.Error("expected nil for missing item")
	}
}

func TestListItemsVisibleTo(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	mustPutUser(t, database, "u1", "u1@example.com")
	mustPutUser(t, database, "u2", "u2@example.com")

	held, _ := CreateItem(ctx, database, "Held", "", "")
	pending, _ := CreateItem(ctx, database, "Pending", "", "")
	CreateItem(ctx, database, "Other", "", "")

	SetPendingAssignment(ctx, database, held.ID, &model.PendingAssignment{UserID: "u1", RequestedAt: time.Now()}, held.Version)
	AcceptPendingAssignment(ctx, database, held.ID, held.Version+1)
	SetPendingAssignment(ctx, database, pending.ID, &model.PendingAssignment{UserID: "u1", RequestedAt: time.Now()}, pending.Version)

	all, _ := ListItems(ctx, database, ItemFilter{})
	if len(all) != 3 {
		t.Errorf("expected 3 items, got %d", len(all))
	}

	mine, err := ListItems(ctx, database, ItemFilter{VisibleTo: "u1"})
	if err != nil {
		t.Fatalf("ListItems: %v", err)
	}
	if len(mine) != 2 {
		t.Errorf("expected 2 items visible to u1, got %d", len(mine))
	}

	none, _ := ListItems(ctx, database, ItemFilter{VisibleTo: "u2"})
	if len(none) != 0 {
		t.Errorf("expected no items visible to u2, got %d", len(none))
	}

	open, _ := ListItems(ctx, database, ItemFilter{PendingOnly: true})
	if len(open) != 1 || open[0].ID != pending.ID {
		t.Errorf("expected only the pending item, got %v", open)
	}
}

func TestUpdateItem(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	item, _ := CreateItem(ctx, database, "Old", "", "")
	if err := UpdateItem(ctx, database, item.ID, "New", "desc", "/blobs/items/x.jpg"); err != nil {
		t.Fatalf("UpdateItem: %v", err)
	}

	got, _ := GetItem(ctx, database, item.ID)
	if got.Name != "New" || got.Description != "desc" || got.ImageURL != "/blobs/items/x.jpg" {
		t.Errorf("unexpected item after update: %+v", got)
	}
	if got.Version != item.Version+1 {
		t.Errorf("expected version bump, got %d", got.Version)
	}

	err := UpdateItem(ctx, database, "missing", "x", "", "")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestHardDeleteItem(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	item, _ := CreateItem(ctx, database, "Delete Me", "", "")
	if err := DeleteItem(ctx, database, item.ID); err != nil {
		t.Fatalf("DeleteItem: %v", err)
	}

	items, _ := ListItems(ctx, database, ItemFilter{})
	if len(items) != 0 {
		t.Errorf("expected 0 items after delete, got %d", len(items))
	}

	got, _ := GetItem(ctx, database, item.ID)
	if got != nil {
		t.Error("expected deleted item to be gone")
	}

	if err := DeleteItem(ctx, database, item.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestPendingAssignmentLifecycle(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	mustPutUser(t, database, "u1", "u1@example.com")

	item, _ := CreateItem(ctx, database, "Widget", "", "")
	requested := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	err := SetPendingAssignment(ctx, database, item.ID, &model.PendingAssignment{UserID: "u1", RequestedAt: requested}, item.Version)
	if err != nil {
		t.Fatalf("SetPendingAssignment: %v", err)
	}

	got, _ := GetItem(ctx, database, item.ID)
	if got.PendingAssignment == nil || got.PendingAssignment.UserID != "u1" {
		t.Fatalf("expected pending request for u1, got %+v", got.PendingAssignment)
	}
	if !got.PendingAssignment.RequestedAt.Equal(requested) {
		t.Errorf("expected requestedAt %v, got %v", requested, got.PendingAssignment.RequestedAt)
	}
	if got.AssignedTo != nil {
		t.Error("setting a request must not touch the holder")
	}

	if err := AcceptPendingAssignment(ctx, database, item.ID, got.Version); err != nil {
		t.Fatalf("AcceptPendingAssignment: %v", err)
	}

	got, _ = GetItem(ctx, database, item.ID)
	if got.Holder() != "u1" || got.PendingAssignment != nil {
		t.Errorf("expected u1 holding with no request, got %+v", got)
	}
}

func TestSetPendingAssignmentVersionMismatch(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	mustPutUser(t, database, "u1", "u1@example.com")

	item, _ := CreateItem(ctx, database, "Widget", "", "")
	pending := &model.PendingAssignment{UserID: "u1", RequestedAt: time.Now()}

	if err := SetPendingAssignment(ctx, database, item.ID, pending, item.Version); err != nil {
		t.Fatalf("first write: %v", err)
	}

	// Same stale version again loses.
	err := SetPendingAssignment(ctx, database, item.ID, nil, item.Version)
	if !errors.Is(err, ErrVersionMismatch) {
		t.Errorf("expected ErrVersionMismatch, got %v", err)
	}

	err = SetPendingAssignment(ctx, database, "missing", nil, 1)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestPendingAssignmentUnknownUserRejected(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	item, _ := CreateItem(ctx, database, "Widget", "", "")
	err := SetPendingAssignment(ctx, database, item.ID, &model.PendingAssignment{UserID: "ghost", RequestedAt: time.Now()}, item.Version)
	if err == nil {
		t.Error("expected foreign key error for unknown candidate")
	}
}

func TestExpirePendingAssignments(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	mustPutUser(t, database, "u1", "u1@example.com")

	now := time.Now()
	stale, _ := CreateItem(ctx, database, "Stale", "", "")
	fresh, _ := CreateItem(ctx, database, "Fresh", "", "")
	SetPendingAssignment(ctx, database, stale.ID, &model.PendingAssignment{UserID: "u1", RequestedAt: now.Add(-2 * time.Hour)}, stale.Version)
	SetPendingAssignment(ctx, database, fresh.ID, &model.PendingAssignment{UserID: "u1", RequestedAt: now}, fresh.Version)

	n, err := ExpirePendingAssignments(ctx, database, now.Add(-time.Hour))
	if err != nil {
		t.Fatalf("ExpirePendingAssignments: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 expired request, got %d", n)
	}

	got, _ := GetItem(ctx, database, stale.ID)
	if got.PendingAssignment != nil {
		t.Error("expected stale request to be cleared")
	}
	got, _ = GetItem(ctx, database, fresh.ID)
	if got.PendingAssignment == nil {
		t.Error("expected fresh request to survive")
	}
}
