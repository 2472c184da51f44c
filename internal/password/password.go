// Package password provides one-way credential hashing. Hashing policy
// lives here so the auth service never touches bcrypt directly.
package password

import "golang.org/x/crypto/bcrypt"

// Hasher produces and verifies salted bcrypt digests.
type Hasher struct {
	cost int
}

func NewHasher() *Hasher {
	return &Hasher{cost: bcrypt.DefaultCost}
}

// Hash returns a salted digest of the plaintext. A fresh salt is drawn
// on every call, so equal plaintexts hash to different strings.
func (h *Hasher) Hash(plaintext string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// Verify reports whether plaintext matches the stored digest. A
// malformed digest fails closed: the result is false, never an error
// distinguishable by the caller.
func (h *Hasher) Verify(plaintext, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)) == nil
}
