package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/erazemk/depot/internal/model"
)

// ErrNotFound is returned by writes that target a missing row.
var ErrNotFound = errors.New("not found")

// ErrVersionMismatch is returned by conditional writes when the row
// changed since the caller read it.
var ErrVersionMismatch = errors.New("version mismatch")

const itemColumns = `id, name, description, image_url, assigned_to,
	pending_user_id, pending_requested_at, version, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanItem(s scanner) (*model.Item, error) {
	item := &model.Item{}
	var description, imageURL, assignedTo, pendingUser sql.NullString
	var requestedAt sql.NullInt64
	err := s.Scan(&item.ID, &item.Name, &description, &imageURL, &assignedTo,
		&pendingUser, &requestedAt, &item.Version, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return nil, err
	}
	item.Description = description.String
	item.ImageURL = imageURL.String
	if assignedTo.Valid {
		holder := assignedTo.String
		item.AssignedTo = &holder
	}
	if pendingUser.Valid {
		item.PendingAssignment = &model.PendingAssignment{
			UserID:      pendingUser.String,
			RequestedAt: time.UnixMilli(requestedAt.Int64).UTC(),
		}
	}
	return item, nil
}

// CreateItem creates a new unassigned item.
func CreateItem(ctx context.Context, db *sql.DB, name, description, imageURL string) (*model.Item, error) {
	id := uuid.NewString()
	_, err := db.ExecContext(ctx,
		`INSERT INTO items (id, name, description, image_url) VALUES (?, ?, ?, ?)`,
		id, name, nullString(description), nullString(imageURL),
	)
	if err != nil {
		return nil, fmt.Errorf("creating item: %w", err)
	}

	return GetItem(ctx, db, id)
}

// GetItem returns an item by ID.
func GetItem(ctx context.Context, db *sql.DB, id string) (*model.Item, error) {
	item, err := scanItem(db.QueryRowContext(ctx,
		`SELECT `+itemColumns+` FROM items WHERE id = ?`, id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting item: %w", err)
	}
	return item, nil
}

// ItemFilter narrows ListItems. The zero value lists every item.
type ItemFilter struct {
	// VisibleTo limits the result to items the user holds or is the
	// pending candidate for.
	VisibleTo string
	// PendingOnly limits the result to items with an open request.
	PendingOnly bool
}

// ListItems returns items matching the filter, ordered by name.
func ListItems(ctx context.Context, db *sql.DB, filter ItemFilter) ([]model.Item, error) {
	query := `SELECT ` + itemColumns + ` FROM items WHERE 1=1`
	var args []any

	if filter.VisibleTo != "" {
		query += ` AND (assigned_to = ? OR pending_user_id = ?)`
		args = append(args, filter.VisibleTo, filter.VisibleTo)
	}
	if filter.PendingOnly {
		query += ` AND pending_user_id IS NOT NULL`
	}

	query += ` ORDER BY name, id`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing items: %w", err)
	}
	defer rows.Close()

	var items []model.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning item: %w", err)
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

// UpdateItem updates an item's catalog fields. Assignment fields are
// only changed through the pending-assignment functions.
func UpdateItem(ctx context.Context, db *sql.DB, id, name, description, imageURL string) error {
	result, err := db.ExecContext(ctx,
		`UPDATE items SET name = ?, description = ?, image_url = ?,
		        version = version + 1, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		name, nullString(description), nullString(imageURL), id,
	)
	if err != nil {
		return fmt.Errorf("updating item: %w", err)
	}
	return requireAffected(result, "updating item")
}

// DeleteItem removes an item permanently.
func DeleteItem(ctx context.Context, db *sql.DB, id string) error {
	result, err := db.ExecContext(ctx, `DELETE FROM items WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting item: %w", err)
	}
	return requireAffected(result, "deleting item")
}

// SetPendingAssignment opens, replaces or (with a nil pending) clears the
// pending request of an item. The write only applies if the item is still
// at version.
func SetPendingAssignment(ctx context.Context, db *sql.DB, id string, pending *model.PendingAssignment, version int64) error {
	var userID sql.NullString
	var requestedAt sql.NullInt64
	if pending != nil {
		userID = sql.NullString{String: pending.UserID, Valid: true}
		requestedAt = sql.NullInt64{Int64: pending.RequestedAt.UnixMilli(), Valid: true}
	}

	result, err := db.ExecContext(ctx,
		`UPDATE items SET pending_user_id = ?, pending_requested_at = ?,
		        version = version + 1, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND version = ?`,
		userID, requestedAt, id, version,
	)
	if err != nil {
		return fmt.Errorf("setting pending assignment: %w", err)
	}
	return checkVersioned(ctx, db, result, id, "setting pending assignment")
}

// ClearPendingAssignment drops the pending request of an item at version.
func ClearPendingAssignment(ctx context.Context, db *sql.DB, id string, version int64) error {
	return SetPendingAssignment(ctx, db, id, nil, version)
}

// AcceptPendingAssignment moves the pending candidate into assigned_to and
// clears the request in a single statement.
func AcceptPendingAssignment(ctx context.Context, db *sql.DB, id string, version int64) error {
	result, err := db.ExecContext(ctx,
		`UPDATE items SET assigned_to = pending_user_id,
		        pending_user_id = NULL, pending_requested_at = NULL,
		        version = version + 1, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND version = ? AND pending_user_id IS NOT NULL`,
		id, version,
	)
	if err != nil {
		return fmt.Errorf("accepting pending assignment: %w", err)
	}
	return checkVersioned(ctx, db, result, id, "accepting pending assignment")
}

// ExpirePendingAssignments clears every pending request made before the
// cutoff and returns how many were cleared.
func ExpirePendingAssignments(ctx context.Context, db *sql.DB, before time.Time) (int64, error) {
	result, err := db.ExecContext(ctx,
		`UPDATE items SET pending_user_id = NULL, pending_requested_at = NULL,
		        version = version + 1, updated_at = CURRENT_TIMESTAMP
		 WHERE pending_requested_at IS NOT NULL AND pending_requested_at < ?`,
		before.UnixMilli(),
	)
	if err != nil {
		return 0, fmt.Errorf("expiring pending assignments: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("expiring pending assignments: %w", err)
	}
	return n, nil
}

// checkVersioned turns a zero-row conditional update into ErrNotFound or
// ErrVersionMismatch.
func checkVersioned(ctx context.Context, db *sql.DB, result sql.Result, id, op string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n > 0 {
		return nil
	}

	var exists int
	err = db.QueryRowContext(ctx, `SELECT COUNT(*) FROM items WHERE id = ?`, id).Scan(&exists)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if exists == 0 {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return fmt.Errorf("%s: %w", op, ErrVersionMismatch)
}

func requireAffected(result sql.Result, op string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
