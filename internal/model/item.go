package model

import "time"

// Item represents a single tracked asset. An item is held by at most one
// user at a time; a nil AssignedTo means it sits in the depot.
type Item struct {
	ID                string             `json:"id"`
	Name              string             `json:"name"`
	Description       string             `json:"description,omitempty"`
	ImageURL          string             `json:"imageUrl,omitempty"`
	AssignedTo        *string            `json:"assignedTo"`
	PendingAssignment *PendingAssignment `json:"pendingAssignment"`
	Version           int64              `json:"version"`
	CreatedAt         time.Time          `json:"createdAt"`
	UpdatedAt         time.Time          `json:"updatedAt"`
}

// PendingAssignment is an unconfirmed transfer request waiting for the
// candidate to accept or reject it.
type PendingAssignment struct {
	UserID      string    `json:"userId"`
	RequestedAt time.Time `json:"requestedAt"`
}

// State is the assignment state derived from an item's ownership fields.
type State int

// Assignment states.
const (
	StateUnassigned State = iota
	StateHeld
	StatePending
)

func (s State) String() string {
	switch s {
	case StateUnassigned:
		return "unassigned"
	case StateHeld:
		return "held"
	case StatePending:
		return "pending"
	default:
		return "unknown"
	}
}

// State derives the item's assignment state. A pending request wins over
// the holder because the holder is unchanged while a request is open.
func (i *Item) State() State {
	switch {
	case i.PendingAssignment != nil:
		return StatePending
	case i.AssignedTo != nil:
		return StateHeld
	default:
		return StateUnassigned
	}
}

// HeldBy reports whether userID is the current holder.
func (i *Item) HeldBy(userID string) bool {
	return userID != "" && i.AssignedTo != nil && *i.AssignedTo == userID
}

// PendingFor reports whether userID is the candidate of the open request.
func (i *Item) PendingFor(userID string) bool {
	return userID != "" && i.PendingAssignment != nil && i.PendingAssignment.UserID == userID
}

// Holder returns the holder id, or "" when the item is in the depot.
func (i *Item) Holder() string {
	if i.AssignedTo == nil {
		return ""
	}
	return *i.AssignedTo
}
