package model

// Session identifies the actor behind a request. It is passed explicitly
// into every assignment operation so authorization never depends on
// ambient state.
type Session struct {
	UserID string
	Role   string
}

// IsAdmin reports whether the session carries the admin role.
func (s Session) IsAdmin() bool {
	return s.Role == RoleAdmin
}

// Valid reports whether the session names a user with a known role.
func (s Session) Valid() bool {
	return s.UserID != "" && ValidRole(s.Role)
}
