package assignment

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/erazemk/depot/internal/blob"
	"github.com/erazemk/depot/internal/imaging"
	"github.com/erazemk/depot/internal/model"
	"github.com/erazemk/depot/internal/store"
)

// ImageUpload is an image file sent with an item.
type ImageUpload struct {
	Filename string
	Data     io.Reader
}

// ItemInput holds the catalog fields of an item.
type ItemInput struct {
	Name        string
	Description string
	Image       *ImageUpload
	// RemoveImage drops the current image when no new one is given.
	RemoveImage bool
}

// CreateItem adds an unassigned item to the catalog. Admin only.
func (s *Service) CreateItem(ctx context.Context, sess model.Session, in ItemInput) (*model.Item, error) {
	if !sess.Valid() || !sess.IsAdmin() {
		return nil, ErrForbidden
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, ErrNameRequired
	}

	imageURL, err := s.storeImage(ctx, in.Image)
	if err != nil {
		return nil, err
	}

	item, err := store.CreateItem(ctx, s.DB, name, strings.TrimSpace(in.Description), imageURL)
	if err != nil {
		s.dropImage(ctx, imageURL)
		return nil, err
	}

	slog.Info("item created", "item", item.ID, "name", item.Name, "actor", sess.UserID)
	return item, nil
}

// UpdateItem changes the catalog fields of an item. Assignment state is
// left alone. Admin only.
func (s *Service) UpdateItem(ctx context.Context, sess model.Session, itemID string, in ItemInput) (*model.Item, error) {
	if !sess.Valid() || !sess.IsAdmin() {
		return nil, ErrForbidden
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, ErrNameRequired
	}

	item, err := s.load(ctx, itemID)
	if err != nil {
		return nil, err
	}

	imageURL := item.ImageURL
	if in.Image != nil {
		if imageURL, err = s.storeImage(ctx, in.Image); err != nil {
			return nil, err
		}
	} else if in.RemoveImage {
		imageURL = ""
	}

	if err := store.UpdateItem(ctx, s.DB, item.ID, name, strings.TrimSpace(in.Description), imageURL); err != nil {
		if imageURL != item.ImageURL {
			s.dropImage(ctx, imageURL)
		}
		return nil, writeErr(err)
	}
	if imageURL != item.ImageURL {
		s.dropImage(ctx, item.ImageURL)
	}

	slog.Info("item updated", "item", item.ID, "actor", sess.UserID)
	return s.load(ctx, item.ID)
}

func (s *Service) storeImage(ctx context.Context, up *ImageUpload) (string, error) {
	if up == nil {
		return "", nil
	}
	if s.Blobs == nil {
		return "", fmt.Errorf("storing image: no blob store configured")
	}

	img, err := imaging.Process(up.Data, up.Filename, s.MaxImageBytes)
	if err != nil {
		return "", err
	}

	url, err := s.Blobs.Upload(ctx, blob.ItemImagePath(s.now(), img.Filename), img.Data)
	if err != nil {
		return "", fmt.Errorf("storing image: %w", err)
	}
	return url, nil
}

func (s *Service) dropImage(ctx context.Context, url string) {
	if url == "" || s.Blobs == nil {
		return
	}
	if err := s.Blobs.Delete(ctx, url); err != nil {
		slog.Error("failed to delete image", "url", url, "error", err)
	}
}
