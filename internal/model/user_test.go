package model

import "testing"

func TestValidRole(t *testing.T) {
	tests := []struct {
		role     string
		expected bool
	}{
		{RoleAdmin, true},
		{RoleUser, true},
		// Unknown roles fail-closed.
		{"manager", false},
		{"Admin", false},
		{"", false},
	}

	for _, tt := range tests {
		got := ValidRole(tt.role)
		if got != tt.expected {
			t.Errorf("ValidRole(%q) = %v, want %v", tt.role, got, tt.expected)
		}
	}
}

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		password string
		wantErr  bool
	}{
		{"", true},
		{"short", true},
		{"1234567", true},
		{"12345678", false},
		{"a-valid-password", false},
	}

	for _, tt := range tests {
		err := ValidatePassword(tt.password)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidatePassword(%q) error = %v, wantErr %v", tt.password, err, tt.wantErr)
		}
	}
}

func TestValidateEmail(t *testing.T) {
	tests := []struct {
		email   string
		wantErr bool
	}{
		{"", true},
		{"not-an-email", true},
		{"Ana <ana@example.com>", true},
		{"ana@example.com", false},
	}

	for _, tt := range tests {
		err := ValidateEmail(tt.email)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateEmail(%q) error = %v, wantErr %v", tt.email, err, tt.wantErr)
		}
	}
}

func TestUserLabel(t *testing.T) {
	u := &User{Email: "ana@example.com"}
	if got := u.Label(); got != "ana@example.com" {
		t.Errorf("expected email label, got %q", got)
	}
	u.DisplayName = "Ana"
	if got := u.Label(); got != "Ana" {
		t.Errorf("expected display name label, got %q", got)
	}
}

func TestItemState(t *testing.T) {
	u1 := "u1"

	item := &Item{}
	if item.State() != StateUnassigned {
		t.Errorf("expected unassigned, got %s", item.State())
	}

	item.AssignedTo = &u1
	if item.State() != StateHeld {
		t.Errorf("expected held, got %s", item.State())
	}
	if !item.HeldBy("u1") || item.HeldBy("u2") || item.HeldBy("") {
		t.Error("HeldBy mismatch")
	}

	item.PendingAssignment = &PendingAssignment{UserID: "u2"}
	if item.State() != StatePending {
		t.Errorf("expected pending, got %s", item.State())
	}
	if !item.PendingFor("u2") || item.PendingFor("u1") {
		t.Error("PendingFor mismatch")
	}
}
