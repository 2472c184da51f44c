package services

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/authcore/apiserver/internal/logging"
	"github.com/authcore/apiserver/internal/mailer"
	"github.com/authcore/apiserver/internal/session"
	"github.com/authcore/apiserver/internal/store"
	"github.com/authcore/apiserver/types"
	"github.com/google/uuid"
)

// Business-rule failures surfaced to the HTTP layer. Each maps to a
// stable status there; nothing is retried.
var (
	ErrEmailTaken         = errors.New("email already registered")
	ErrWeakPassword       = errors.New("password must be at least 8 characters")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUnauthenticated    = errors.New("authentication required")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCode        = errors.New("invalid verification code")
	ErrCodeExpired        = errors.New("verification code expired")
)

const (
	minPasswordLength = 8
	resetCodeTTL      = 5 * time.Minute
	defaultUserRole   = "user"

	resetMailSubject = "Your password reset verification code"
)

// A valid bcrypt digest that no real account stores. Login runs a
// compare against it when the email is unknown so the unknown-email and
// wrong-password paths take the same time.
const dummyPasswordHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

// UserRepository defines persistence operations for accounts.
type UserRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (types.User, error)
	GetByEmail(ctx context.Context, email string) (types.User, error)
	Create(ctx context.Context, user types.User) (types.User, error)
	UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error
	UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error
}

// ResetCodeRepository defines persistence operations for reset codes.
type ResetCodeRepository interface {
	Create(ctx context.Context, code types.ResetCode) (types.ResetCode, error)
	LatestByEmail(ctx context.Context, email string) (types.ResetCode, error)
	LatestByEmailAndCode(ctx context.Context, email, code string) (types.ResetCode, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// PasswordHasher produces and verifies one-way credential digests.
type PasswordHasher interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, hash string) bool
}

// Session is the per-request identity binding injected by the HTTP
// layer. The service is the only component that decides when a binding
// is created or torn down.
type Session interface {
	Bind(user types.User)
	Identity() (session.Identity, bool)
	Clear()
}

// AuthService owns every business invariant of the credential and
// password-reset lifecycle. The repositories, hasher, session, and
// mailer are mechanism; policy lives here.
type AuthService struct {
	users  UserRepository
	codes  ResetCodeRepository
	hasher PasswordHasher
	mailer mailer.Mailer
	log    logging.Logger

	// now is the single time source; always read as UTC.
	now func() time.Time
}

func NewAuthService(
	users UserRepository,
	codes ResetCodeRepository,
	hasher PasswordHasher,
	m mailer.Mailer,
	log logging.Logger,
) *AuthService {
	return &AuthService{
		users:  users,
		codes:  codes,
		hasher: hasher,
		mailer: m,
		log:    log,
		now:    time.Now,
	}
}

// CheckEmail reports whether no account uses the email. No side effect.
func (s *AuthService) CheckEmail(ctx context.Context, email string) (bool, error) {
	_, err := s.users.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return true, nil
		}
		return false, err
	}
	return false, nil
}

// Register creates a new account. The uniqueness pre-check is an
// optimization; the store's unique constraint is the final authority,
// so a lost race still comes back as ErrEmailTaken. No session is
// started.
func (s *AuthService) Register(ctx context.Context, email, plaintext string) (types.User, error) {
	email = strings.TrimSpace(email)

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return types.User{}, ErrEmailTaken
	} else if !errors.Is(err, store.ErrNotFound) {
		return types.User{}, err
	}

	if len(plaintext) < minPasswordLength {
		return types.User{}, ErrWeakPassword
	}

	hash, err := s.hasher.Hash(plaintext)
	if err != nil {
		return types.User{}, err
	}

	user, err := s.users.Create(ctx, types.User{
		Email:        email,
		PasswordHash: hash,
		Role:         defaultUserRole,
		IsActive:     true,
	})
	if err != nil {
		if errors.Is(err, store.ErrDuplicateEmail) {
			return types.User{}, ErrEmailTaken
		}
		return types.User{}, err
	}
	return user, nil
}

// Login verifies credentials, binds the session, and records the login
// time. Unknown email and wrong password yield the identical error.
func (s *AuthService) Login(ctx context.Context, sess Session, email, plaintext string) (types.User, error) {
	user, err := s.users.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.hasher.Verify(plaintext, dummyPasswordHash)
			return types.User{}, ErrInvalidCredentials
		}
		return types.User{}, err
	}

	if !s.hasher.Verify(plaintext, user.PasswordHash) {
		return types.User{}, ErrInvalidCredentials
	}

	sess.Bind(user)

	now := s.now().UTC()
	if err := s.users.UpdateLastLogin(ctx, user.ID, now); err != nil {
		return types.User{}, err
	}
	user.LastLogin = &now
	return user, nil
}

// Logout clears the session binding. Succeeds even when none existed.
func (s *AuthService) Logout(sess Session) {
	sess.Clear()
}

// CurrentUser resolves the session's account. A session naming an
// account that no longer exists is cleared so the client recovers on
// its own.
func (s *AuthService) CurrentUser(ctx context.Context, sess Session) (types.User, error) {
	id, ok := sess.Identity()
	if !ok {
		return types.User{}, ErrUnauthenticated
	}

	user, err := s.users.GetByID(ctx, id.AccountID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			sess.Clear()
			return types.User{}, ErrUnauthenticated
		}
		return types.User{}, err
	}
	return user, nil
}

// ChangePassword rotates the credential for the session's account. The
// session stays valid afterwards.
func (s *AuthService) ChangePassword(ctx context.Context, sess Session, current, next string) error {
	id, ok := sess.Identity()
	if !ok {
		return ErrUnauthenticated
	}

	user, err := s.users.GetByID(ctx, id.AccountID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}

	if !s.hasher.Verify(current, user.PasswordHash) {
		return ErrInvalidCredentials
	}
	if len(next) < minPasswordLength {
		return ErrWeakPassword
	}

	hash, err := s.hasher.Hash(next)
	if err != nil {
		return err
	}
	return s.users.UpdatePassword(ctx, user.ID, hash)
}

// RequestPasswordReset issues a fresh 6-digit code valid for five
// minutes and schedules its delivery. Earlier codes for the email stay
// valid. Delivery runs after this call returns and its outcome never
// reaches the caller.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) error {
	email = strings.TrimSpace(email)

	if _, err := s.users.GetByEmail(ctx, email); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}

	code, err := generateResetCode()
	if err != nil {
		return err
	}

	record := types.ResetCode{
		Email:     email,
		Code:      code,
		ExpiresAt: s.now().UTC().Add(resetCodeTTL),
	}
	if _, err := s.codes.Create(ctx, record); err != nil {
		return err
	}

	body := fmt.Sprintf("Verification code: %s\nEnter it within 5 minutes.", code)
	mailCtx := context.WithoutCancel(ctx)
	go func() {
		if err := s.mailer.Send(mailCtx, email, resetMailSubject, body); err != nil {
			s.log.Error(mailCtx, "reset mail delivery failed", "to", email, "error", err)
		}
	}()

	return nil
}

// VerifyResetCode checks the most recent matching code. Advisory only:
// success neither consumes nor marks the record, and confirm re-checks
// nothing.
func (s *AuthService) VerifyResetCode(ctx context.Context, email, code string) error {
	record, err := s.codes.LatestByEmailAndCode(ctx, strings.TrimSpace(email), code)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrInvalidCode
		}
		return err
	}
	if record.ExpiresAt.Before(s.now().UTC()) {
		return ErrCodeExpired
	}
	return nil
}

// ConfirmPasswordReset sets a new password for the account and deletes
// the latest code for the email as cleanup. It deliberately does not
// re-validate the code or require a prior VerifyResetCode call; that
// matches the deployed contract and is pinned by tests.
func (s *AuthService) ConfirmPasswordReset(ctx context.Context, email, next string) error {
	email = strings.TrimSpace(email)

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}

	if len(next) < minPasswordLength {
		return ErrWeakPassword
	}

	hash, err := s.hasher.Hash(next)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePassword(ctx, user.ID, hash); err != nil {
		return err
	}

	// Cleanup is best-effort; the password change above already took
	// effect and must not be rolled back by a failed delete.
	record, err := s.codes.LatestByEmail(ctx, email)
	if err == nil {
		if err := s.codes.Delete(ctx, record.ID); err != nil {
			s.log.Warn(ctx, "reset code cleanup failed", "email", email, "error", err)
		}
	} else if !errors.Is(err, store.ErrNotFound) {
		s.log.Warn(ctx, "reset code lookup failed during cleanup", "email", email, "error", err)
	}

	return nil
}

// generateResetCode draws a uniformly random code in "000000"–"999999".
func generateResetCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
