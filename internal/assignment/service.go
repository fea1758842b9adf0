// Package assignment implements the item assignment workflow: an item is
// held by the depot or by one user, and moves to another user only after
// that user accepts a pending request.
package assignment

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/erazemk/depot/internal/blob"
	"github.com/erazemk/depot/internal/identity"
	"github.com/erazemk/depot/internal/model"
	"github.com/erazemk/depot/internal/store"
)

var (
	ErrForbidden         = errors.New("not allowed")
	ErrNotFound          = errors.New("item not found")
	ErrNoPending         = errors.New("item has no pending assignment")
	ErrSameCandidate     = errors.New("a request to this user is already pending")
	ErrCandidateIsHolder = errors.New("user already holds this item")
	ErrUnknownUser       = errors.New("unknown user")
	ErrConflict          = errors.New("item was changed by someone else, reload and try again")
	ErrNameRequired      = errors.New("name is required")
)

// Service runs assignment transitions and catalog operations on behalf of
// an explicit session.
type Service struct {
	DB    *sql.DB
	Blobs *blob.Store
	// Identity is used to delete accounts; may be nil when user
	// administration is not needed.
	Identity *identity.Provider
	// MaxImageBytes bounds uploaded images; zero uses the imaging default.
	MaxImageBytes int64
	Now           func() time.Time
}

// New creates a service over db.
func New(db *sql.DB, blobs *blob.Store, idp *identity.Provider) *Service {
	return &Service{DB: db, Blobs: blobs, Identity: idp, Now: time.Now}
}

func (s *Service) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

// load reads an item, translating a missing row into ErrNotFound.
func (s *Service) load(ctx context.Context, id string) (*model.Item, error) {
	item, err := store.GetItem(ctx, s.DB, id)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, ErrNotFound
	}
	return item, nil
}

// loadVisible loads an item for a transition. Items the session cannot
// see are reported as not found, the same as Get does.
func (s *Service) loadVisible(ctx context.Context, sess model.Session, itemID string) (*model.Item, error) {
	if !sess.Valid() {
		return nil, ErrForbidden
	}
	item, err := s.load(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if !CanView(sess, item) {
		return nil, ErrNotFound
	}
	return item, nil
}

// writeErr maps store write errors onto service errors.
func writeErr(err error) error {
	switch {
	case errors.Is(err, store.ErrVersionMismatch):
		return ErrConflict
	case errors.Is(err, store.ErrNotFound):
		return ErrNotFound
	}
	return err
}

// Propose opens a request for candidate to take over the item. An empty
// candidate withdraws the current request. The holder never changes.
func (s *Service) Propose(ctx context.Context, sess model.Session, itemID, candidate string) (*model.Item, error) {
	item, err := s.loadVisible(ctx, sess, itemID)
	if err != nil {
		return nil, err
	}
	if !CanPropose(sess, item) {
		return nil, ErrForbidden
	}

	current := ""
	if item.PendingAssignment != nil {
		current = item.PendingAssignment.UserID
	}

	var pending *model.PendingAssignment
	switch {
	case candidate == "" && current == "":
		return nil, ErrNoPending
	case candidate == current:
		return nil, ErrSameCandidate
	case candidate == "":
		// withdraw
	case item.HeldBy(candidate):
		return nil, ErrCandidateIsHolder
	default:
		u, err := store.GetUser(ctx, s.DB, candidate)
		if err != nil {
			return nil, err
		}
		if u == nil {
			return nil, ErrUnknownUser
		}
		pending = &model.PendingAssignment{UserID: candidate, RequestedAt: s.now()}
	}

	if err := store.SetPendingAssignment(ctx, s.DB, item.ID, pending, item.Version); err != nil {
		return nil, writeErr(err)
	}

	if pending == nil {
		slog.Info("assignment request withdrawn", "item", item.ID, "actor", sess.UserID, "candidate", current)
	} else {
		slog.Info("assignment proposed", "item", item.ID, "actor", sess.UserID,
			"holder", item.Holder(), "candidate", candidate)
	}
	return s.load(ctx, item.ID)
}

// Accept makes the candidate the holder and closes the request. Only the
// candidate may accept.
func (s *Service) Accept(ctx context.Context, sess model.Session, itemID string) (*model.Item, error) {
	item, err := s.loadVisible(ctx, sess, itemID)
	if err != nil {
		return nil, err
	}
	if item.PendingAssignment == nil {
		return nil, ErrNoPending
	}
	if !CanAccept(sess, item) {
		return nil, ErrForbidden
	}

	if err := store.AcceptPendingAssignment(ctx, s.DB, item.ID, item.Version); err != nil {
		return nil, writeErr(err)
	}

	slog.Info("assignment accepted", "item", item.ID, "actor", sess.UserID, "previous_holder", item.Holder())
	return s.load(ctx, item.ID)
}

// Reject closes the request and leaves the holder unchanged. The
// candidate may reject; an admin may withdraw the request the same way.
func (s *Service) Reject(ctx context.Context, sess model.Session, itemID string) (*model.Item, error) {
	item, err := s.loadVisible(ctx, sess, itemID)
	if err != nil {
		return nil, err
	}
	if item.PendingAssignment == nil {
		return nil, ErrNoPending
	}
	if !CanReject(sess, item) {
		return nil, ErrForbidden
	}

	if err := store.ClearPendingAssignment(ctx, s.DB, item.ID, item.Version); err != nil {
		return nil, writeErr(err)
	}

	slog.Info("assignment rejected", "item", item.ID, "actor", sess.UserID,
		"candidate", item.PendingAssignment.UserID)
	return s.load(ctx, item.ID)
}

// Delete removes an item and its stored image. Admin only.
func (s *Service) Delete(ctx context.Context, sess model.Session, itemID string) error {
	if !sess.Valid() || !sess.IsAdmin() {
		return ErrForbidden
	}

	item, err := s.load(ctx, itemID)
	if err != nil {
		return err
	}

	if err := store.DeleteItem(ctx, s.DB, item.ID); err != nil {
		return writeErr(err)
	}

	if item.ImageURL != "" && s.Blobs != nil {
		if err := s.Blobs.Delete(ctx, item.ImageURL); err != nil {
			slog.Error("failed to delete item image", "item", item.ID, "url", item.ImageURL, "error", err)
		}
	}

	slog.Info("item deleted", "item", item.ID, "actor", sess.UserID)
	return nil
}

// Get returns an item the session may see. Items a user neither holds nor
// is a candidate for are reported as not found.
func (s *Service) Get(ctx context.Context, sess model.Session, itemID string) (*ItemView, error) {
	if !sess.Valid() {
		return nil, ErrForbidden
	}
	item, err := s.load(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if !CanView(sess, item) {
		return nil, ErrNotFound
	}

	labels, err := s.userLabels(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading users: %w", err)
	}
	v := newView(sess, *item, labels)
	return &v, nil
}
