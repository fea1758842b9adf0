package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/erazemk/depot/internal/model"
)

// PutUser creates the user document for an account, or merges email and
// display name into an existing one. An existing role is kept.
func PutUser(ctx context.Context, db *sql.DB, id, email, displayName, role string) (*model.User, error) {
	_, err := db.ExecContext(ctx,
		`INSERT INTO users (id, email, display_name, role) VALUES (?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET
		     email = excluded.email,
		     display_name = COALESCE(excluded.display_name, users.display_name)`,
		id, email, nullString(displayName), role,
	)
	if err != nil {
		return nil, fmt.Errorf("putting user: %w", err)
	}

	return GetUser(ctx, db, id)
}

// GetUser returns a user by ID.
func GetUser(ctx context.Context, db *sql.DB, id string) (*model.User, error) {
	u, err := scanUser(db.QueryRowContext(ctx,
		`SELECT id, email, display_name, role, created_at FROM users WHERE id = ?`, id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting user: %w", err)
	}
	return u, nil
}

// GetUserByEmail returns a user by email.
func GetUserByEmail(ctx context.Context, db *sql.DB, email string) (*model.User, error) {
	u, err := scanUser(db.QueryRowContext(ctx,
		`SELECT id, email, display_name, role, created_at FROM users WHERE email = ?`, email,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting user by email: %w", err)
	}
	return u, nil
}

// ListUsers returns all users ordered by email.
func ListUsers(ctx context.Context, db *sql.DB) ([]model.User, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, email, display_name, role, created_at FROM users ORDER BY email`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning user: %w", err)
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

// UpdateUser updates a user's display name and role.
func UpdateUser(ctx context.Context, db *sql.DB, id, displayName, role string) error {
	result, err := db.ExecContext(ctx,
		`UPDATE users SET display_name = ?, role = ? WHERE id = ?`,
		nullString(displayName), role, id,
	)
	if err != nil {
		return fmt.Errorf("updating user: %w", err)
	}
	return requireAffected(result, "updating user")
}

// DeleteUser removes a user document. Items held by the user return to
// the depot and requests addressed to the user are dropped, so no item is
// left pointing at a missing user.
func DeleteUser(ctx context.Context, db *sql.DB, id string) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`UPDATE items SET assigned_to = NULL, version = version + 1, updated_at = CURRENT_TIMESTAMP
		 WHERE assigned_to = ?`, id,
	)
	if err != nil {
		return fmt.Errorf("releasing held items: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE items SET pending_user_id = NULL, pending_requested_at = NULL,
		        version = version + 1, updated_at = CURRENT_TIMESTAMP
		 WHERE pending_user_id = ?`, id,
	)
	if err != nil {
		return fmt.Errorf("dropping pending requests: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id); err != nil {
		return fmt.Errorf("deleting user: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing user deletion: %w", err)
	}
	return nil
}

func scanUser(s scanner) (*model.User, error) {
	u := &model.User{}
	var displayName sql.NullString
	if err := s.Scan(&u.ID, &u.Email, &displayName, &u.Role, &u.CreatedAt); err != nil {
		return nil, err
	}
	u.DisplayName = displayName.String
	return u, nil
}
