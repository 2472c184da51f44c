package types

import (
	"time"

	"github.com/google/uuid"
)

// User represents an account in the system.
// It contains identity, role, and audit metadata.
type User struct {
	// ID is the unique identifier of the account.
	ID uuid.UUID `json:"user_id" db:"user_id"`

	// Email is the unique address used as the login key.
	// It is stored exactly as registered (trimmed, case preserved).
	Email string `json:"email" db:"email"`

	// PasswordHash stores the hashed representation of the user's password.
	// This field is never exposed in API responses.
	PasswordHash string `json:"-" db:"password_hash"`

	// Role indicates the user's authorization level within the
	// system (e.g., "admin", "user").
	Role string `json:"role" db:"role"`

	// IsActive marks whether the account may log in. Accounts are
	// deactivated rather than deleted.
	IsActive bool `json:"is_active" db:"is_active"`

	// LastLogin is the timestamp of the most recent successful login,
	// or nil if the user has never logged in.
	LastLogin *time.Time `json:"last_login" db:"last_login"`

	// CreatedAt is the timestamp when the account was created.
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
