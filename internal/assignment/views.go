package assignment

import (
	"context"
	"fmt"

	"github.com/erazemk/depot/internal/model"
	"github.com/erazemk/depot/internal/store"
)

// DepotLabel names the holder of unassigned items.
const DepotLabel = "Depot"

// ItemView is an item joined with the names of its holder and candidate
// and the actions the viewing session may take.
type ItemView struct {
	model.Item
	State          string  `json:"state"`
	HolderLabel    string  `json:"holderLabel"`
	CandidateLabel string  `json:"candidateLabel,omitempty"`
	Actions        Actions `json:"actions"`
}

// ListOptions narrows List.
type ListOptions struct {
	// PendingOnly returns only items with an open request.
	PendingOnly bool
}

// List returns the items sess may see. Non-admin filtering happens in the
// query, so other users' items never leave the store.
func (s *Service) List(ctx context.Context, sess model.Session, opts ListOptions) ([]ItemView, error) {
	if !sess.Valid() {
		return nil, ErrForbidden
	}

	filter := store.ItemFilter{PendingOnly: opts.PendingOnly}
	if !sess.IsAdmin() {
		filter.VisibleTo = sess.UserID
	}

	items, err := store.ListItems(ctx, s.DB, filter)
	if err != nil {
		return nil, fmt.Errorf("loading items: %w", err)
	}

	labels, err := s.userLabels(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading users: %w", err)
	}

	views := make([]ItemView, 0, len(items))
	for _, item := range items {
		views = append(views, newView(sess, item, labels))
	}
	return views, nil
}

func (s *Service) userLabels(ctx context.Context) (map[string]string, error) {
	users, err := store.ListUsers(ctx, s.DB)
	if err != nil {
		return nil, err
	}
	labels := make(map[string]string, len(users))
	for i := range users {
		labels[users[i].ID] = users[i].Label()
	}
	return labels, nil
}

func newView(sess model.Session, item model.Item, labels map[string]string) ItemView {
	v := ItemView{
		Item:        item,
		State:       item.State().String(),
		HolderLabel: DepotLabel,
		Actions:     ActionsFor(sess, &item),
	}
	if holder := item.Holder(); holder != "" {
		v.HolderLabel = label(labels, holder)
	}
	if item.PendingAssignment != nil {
		v.CandidateLabel = label(labels, item.PendingAssignment.UserID)
	}
	return v
}

func label(labels map[string]string, id string) string {
	if l, ok := labels[id]; ok {
		return l
	}
	return id
}
