package assignment

import "github.com/erazemk/depot/internal/model"

// CanView reports whether sess may see the item: admins see everything,
// users see items they hold or are asked to take.
func CanView(sess model.Session, item *model.Item) bool {
	if !sess.Valid() {
		return false
	}
	return sess.IsAdmin() || item.HeldBy(sess.UserID) || item.PendingFor(sess.UserID)
}

// CanPropose reports whether sess may open or withdraw a request on the item.
func CanPropose(sess model.Session, item *model.Item) bool {
	if !sess.Valid() {
		return false
	}
	return sess.IsAdmin() || item.HeldBy(sess.UserID)
}

// CanAccept reports whether sess may accept the item's pending request.
func CanAccept(sess model.Session, item *model.Item) bool {
	return sess.Valid() && item.PendingFor(sess.UserID)
}

// CanReject reports whether sess may reject the item's pending request.
func CanReject(sess model.Session, item *model.Item) bool {
	if !sess.Valid() || item.PendingAssignment == nil {
		return false
	}
	return sess.IsAdmin() || item.PendingFor(sess.UserID)
}

// CanRespond reports whether sess is the candidate of the item's request.
func CanRespond(sess model.Session, item *model.Item) bool {
	return CanAccept(sess, item)
}

// Actions lists what a session may do with an item.
type Actions struct {
	Propose bool `json:"propose"`
	Accept  bool `json:"accept"`
	Reject  bool `json:"reject"`
	Edit    bool `json:"edit"`
	Delete  bool `json:"delete"`
}

// ActionsFor computes the allowed actions of sess on item.
func ActionsFor(sess model.Session, item *model.Item) Actions {
	admin := sess.Valid() && sess.IsAdmin()
	return Actions{
		Propose: CanPropose(sess, item),
		Accept:  CanAccept(sess, item),
		Reject:  CanReject(sess, item),
		Edit:    admin,
		Delete:  admin,
	}
}
