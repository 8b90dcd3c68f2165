package domain

import (
	"strings"
	"time"
)

// User is a registered identity. Its ID is the owner id that accounts are keyed by.
type User struct {
	ID           string
	Email        string
	FirstName    string
	LastName     string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewUser creates a user with a normalized email and UTC timestamps.
func NewUser(id, email, firstName, lastName, passwordHash string, now time.Time) *User {
	now = now.UTC()
	return &User{
		ID:           id,
		Email:        NormalizeEmail(email),
		FirstName:    strings.TrimSpace(firstName),
		LastName:     strings.TrimSpace(lastName),
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// NormalizeEmail lower-cases and trims an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Public returns a copy without the password hash.
func (u *User) Public() *User {
	cp := *u
	cp.PasswordHash = ""
	return &cp
}
