package model

import "time"

// Account is an identity-provider credential record. Its ID is the
// identifier every other part of the system uses for the person.
type Account struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	DisplayName  string    `json:"displayName,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}
