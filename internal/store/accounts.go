package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/erazemk/depot/internal/model"
)

// ErrDuplicateEmail is returned when an account with the email exists.
var ErrDuplicateEmail = errors.New("email already registered")

// CreateAccount creates a credential record with a fresh opaque ID.
func CreateAccount(ctx context.Context, db *sql.DB, email, passwordHash, displayName string) (*model.Account, error) {
	id := uuid.NewString()
	_, err := db.ExecContext(ctx,
		`INSERT INTO accounts (id, email, password_hash, display_name) VALUES (?, ?, ?, ?)`,
		id, email, passwordHash, nullString(displayName),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("creating account: %w", err)
	}

	return GetAccount(ctx, db, id)
}

// GetAccount returns an account by ID.
func GetAccount(ctx context.Context, db *sql.DB, id string) (*model.Account, error) {
	a, err := scanAccount(db.QueryRowContext(ctx,
		`SELECT id, email, password_hash, display_name, created_at FROM accounts WHERE id = ?`, id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting account: %w", err)
	}
	return a, nil
}

// GetAccountByEmail returns an account by email.
func GetAccountByEmail(ctx context.Context, db *sql.DB, email string) (*model.Account, error) {
	a, err := scanAccount(db.QueryRowContext(ctx,
		`SELECT id, email, password_hash, display_name, created_at FROM accounts WHERE email = ?`, email,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting account by email: %w", err)
	}
	return a, nil
}

// UpdateAccountPassword updates an account's password hash.
func UpdateAccountPassword(ctx context.Context, db *sql.DB, id, passwordHash string) error {
	result, err := db.ExecContext(ctx,
		`UPDATE accounts SET password_hash = ? WHERE id = ?`,
		passwordHash, id,
	)
	if err != nil {
		return fmt.Errorf("updating account password: %w", err)
	}
	return requireAffected(result, "updating account password")
}

// DeleteAccount removes an account.
func DeleteAccount(ctx context.Context, db *sql.DB, id string) error {
	result, err := db.ExecContext(ctx, `DELETE FROM accounts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting account: %w", err)
	}
	return requireAffected(result, "deleting account")
}

func scanAccount(s scanner) (*model.Account, error) {
	a := &model.Account{}
	var displayName sql.NullString
	if err := s.Scan(&a.ID, &a.Email, &a.PasswordHash, &displayName, &a.CreatedAt); err != nil {
		return nil, err
	}
	a.DisplayName = displayName.String
	return a, nil
}
