package assignment

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/erazemk/depot/internal/identity"
	"github.com/erazemk/depot/internal/model"
	"github.com/erazemk/depot/internal/store"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrInvalidRole  = errors.New("invalid role")
	ErrSelfDelete   = errors.New("cannot delete yourself")
	ErrLastAdmin    = errors.New("cannot remove the last admin")
)

// UserUpdate holds the user fields to change. Nil fields are kept.
type UserUpdate struct {
	DisplayName *string
	Role        *string
}

// ListUsers returns every user, for choosing a candidate.
func (s *Service) ListUsers(ctx context.Context, sess model.Session) ([]model.User, error) {
	if !sess.Valid() {
		return nil, ErrForbidden
	}
	users, err := store.ListUsers(ctx, s.DB)
	if err != nil {
		return nil, err
	}
	if users == nil {
		users = []model.User{}
	}
	return users, nil
}

// GetUser returns a user. Admins may read anyone, users only themselves.
func (s *Service) GetUser(ctx context.Context, sess model.Session, id string) (*model.User, error) {
	if !sess.Valid() || (!sess.IsAdmin() && sess.UserID != id) {
		return nil, ErrForbidden
	}
	u, err := store.GetUser(ctx, s.DB, id)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, ErrUserNotFound
	}
	return u, nil
}

// UpdateUser changes a user's display name or role. Users may change
// their own display name; roles are changed by admins only.
func (s *Service) UpdateUser(ctx context.Context, sess model.Session, id string, upd UserUpdate) (*model.User, error) {
	u, err := s.GetUser(ctx, sess, id)
	if err != nil {
		return nil, err
	}

	displayName := u.DisplayName
	if upd.DisplayName != nil {
		displayName = strings.TrimSpace(*upd.DisplayName)
	}

	role := u.Role
	if upd.Role != nil && *upd.Role != u.Role {
		if !sess.IsAdmin() {
			return nil, ErrForbidden
		}
		if !model.ValidRole(*upd.Role) {
			return nil, ErrInvalidRole
		}
		if u.Role == model.RoleAdmin {
			if err := s.requireOtherAdmin(ctx, u.ID); err != nil {
				return nil, err
			}
		}
		role = *upd.Role
	}

	if err := store.UpdateUser(ctx, s.DB, u.ID, displayName, role); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	if role != u.Role {
		slog.Info("user role updated", "actor", sess.UserID, "user", u.ID, "role", role)
	}
	return store.GetUser(ctx, s.DB, u.ID)
}

// DeleteUser deletes a user's account. Items they hold return to the
// depot and requests addressed to them are dropped. Admin only.
func (s *Service) DeleteUser(ctx context.Context, sess model.Session, id string) error {
	if !sess.Valid() || !sess.IsAdmin() {
		return ErrForbidden
	}
	if sess.UserID == id {
		return ErrSelfDelete
	}

	u, err := store.GetUser(ctx, s.DB, id)
	if err != nil {
		return err
	}
	if u == nil {
		return ErrUserNotFound
	}
	if u.Role == model.RoleAdmin {
		if err := s.requireOtherAdmin(ctx, u.ID); err != nil {
			return err
		}
	}

	switch err := s.deleteAccount(ctx, id); {
	case errors.Is(err, identity.ErrAccountNotFound):
		// Directory entry without an account; remove it directly.
		if err := store.DeleteUser(ctx, s.DB, id); err != nil {
			return err
		}
	case err != nil:
		return err
	}

	slog.Info("user deleted", "actor", sess.UserID, "user", id, "email", u.Email)
	return nil
}

func (s *Service) deleteAccount(ctx context.Context, id string) error {
	if s.Identity == nil {
		return identity.ErrAccountNotFound
	}
	return s.Identity.DeleteAccount(ctx, id)
}

func (s *Service) requireOtherAdmin(ctx context.Context, id string) error {
	users, err := store.ListUsers(ctx, s.DB)
	if err != nil {
		return err
	}
	for _, u := range users {
		if u.Role == model.RoleAdmin && u.ID != id {
			return nil
		}
	}
	return ErrLastAdmin
}
