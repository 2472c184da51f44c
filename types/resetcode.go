package types

import (
	"time"

	"github.com/google/uuid"
)

// ResetCode is one issued password-reset verification code. Codes are
// append-only: issuing a new code for an email does not invalidate
// earlier ones, and the most recently created code is authoritative.
type ResetCode struct {
	// ID is the unique identifier of the record.
	ID uuid.UUID `json:"code_id" db:"code_id"`

	// Email is the address the code was issued for. It is not required
	// to reference an existing account at write time.
	Email string `json:"email" db:"email"`

	// Code is the 6-digit numeric secret, zero-padded ("000000"–"999999").
	Code string `json:"code" db:"code"`

	// ExpiresAt is the absolute expiry instant, five minutes after issuance.
	ExpiresAt time.Time `json:"expires_at" db:"expires_at"`

	// CreatedAt is the issuance timestamp.
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
