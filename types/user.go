package types

import "time"

// Roles a user account can hold.
const (
	RoleUser    = "user"
	RoleTrainer = "trainer"
	RoleAdmin   = "admin"
)

// ValidRole reports whether role is one of the known account roles.
func ValidRole(role string) bool {
	switch role {
	case RoleUser, RoleTrainer, RoleAdmin:
		return true
	}
	return false
}

// User represents an account in the system.
// It contains identity, role, and password-reset metadata.
type User struct {
	// ID is the unique identifier of the user.
	ID int `json:"id" db:"id"`

	// Name is the user's display or full name.
	Name string `json:"name" db:"name"`

	// Email is the user's email address. Globally unique.
	Email string `json:"email" db:"email"`

	// Role indicates the user's authorization level within the system
	// ("user", "trainer" or "admin").
	Role string `json:"role" db:"role"`

	// PasswordHash stores the bcrypt hash of the user's password.
	// This field is never exposed in API responses.
	PasswordHash string `json:"-" db:"password_hash"`

	// ResetTokenHash is the SHA-256 hex digest of an outstanding
	// password-reset token. Empty when no reset is pending and never
	// exposed in API responses.
	ResetTokenHash string `json:"-" db:"reset_token_hash"`

	// ResetTokenExpires is the instant the outstanding reset token stops
	// being accepted. Zero when no reset is pending.
	ResetTokenExpires time.Time `json:"-" db:"reset_token_expires"`

	// CreatedAt is the timestamp when the user account was created.
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent update to the account.
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// UserSummary is the public slice of a user attached to other resources
// (orders, plans) when they are returned populated.
type UserSummary struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Summary returns the public fields of the user.
func (u User) Summary() UserSummary {
	return UserSummary{ID: u.ID, Name: u.Name, Email: u.Email}
}
