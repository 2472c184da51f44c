package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/authcore/apiserver/types"
	"github.com/google/uuid"
)

// MemoryUserRepository is an in-memory UserRepository used by tests and
// local experiments. It enforces the same email-uniqueness semantics as
// the Postgres implementation.
type MemoryUserRepository struct {
	mu    sync.RWMutex
	users map[uuid.UUID]types.User
}

func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{users: make(map[uuid.UUID]types.User)}
}

func (r *MemoryUserRepository) GetByID(_ context.Context, id uuid.UUID) (types.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	user, ok := r.users[id]
	if !ok {
		return types.User{}, ErrNotFound
	}
	return user, nil
}

func (r *MemoryUserRepository) GetByEmail(_ context.Context, email string) (types.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, user := range r.users {
		if user.Email == email {
			return user, nil
		}
	}
	return types.User{}, ErrNotFound
}

func (r *MemoryUserRepository) Create(_ context.Context, user types.User) (types.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if existing.Email == user.Email {
			return types.User{}, ErrDuplicateEmail
		}
	}
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	user.CreatedAt = time.Now().UTC()
	r.users[user.ID] = user
	return user, nil
}

func (r *MemoryUserRepository) UpdatePassword(_ context.Context, id uuid.UUID, passwordHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return ErrNotFound
	}
	user.PasswordHash = passwordHash
	r.users[id] = user
	return nil
}

func (r *MemoryUserRepository) UpdateLastLogin(_ context.Context, id uuid.UUID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return ErrNotFound
	}
	at = at.UTC()
	user.LastLogin = &at
	r.users[id] = user
	return nil
}

// Delete removes an account. Not exposed over HTTP; tests use it to
// simulate sessions that outlive their account.
func (r *MemoryUserRepository) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[id]; !ok {
		return ErrNotFound
	}
	delete(r.users, id)
	return nil
}

// MemoryResetCodeRepository is an in-memory ResetCodeRepository.
type MemoryResetCodeRepository struct {
	mu    sync.RWMutex
	codes []types.ResetCode
}

func NewMemoryResetCodeRepository() *MemoryResetCodeRepository {
	return &MemoryResetCodeRepository{}
}

func (r *MemoryResetCodeRepository) Create(_ context.Context, code types.ResetCode) (types.ResetCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if code.ID == uuid.Nil {
		code.ID = uuid.New()
	}
	if code.CreatedAt.IsZero() {
		code.CreatedAt = time.Now().UTC()
	}
	r.codes = append(r.codes, code)
	return code, nil
}

func (r *MemoryResetCodeRepository) LatestByEmail(_ context.Context, email string) (types.ResetCode, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return latest(r.codes, func(c types.ResetCode) bool {
		return c.Email == email
	})
}

func (r *MemoryResetCodeRepository) LatestByEmailAndCode(_ context.Context, email, code string) (types.ResetCode, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return latest(r.codes, func(c types.ResetCode) bool {
		return c.Email == email && c.Code == code
	})
}

func (r *MemoryResetCodeRepository) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, c := range r.codes {
		if c.ID == id {
			r.codes = append(r.codes[:i], r.codes[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

func latest(codes []types.ResetCode, match func(types.ResetCode) bool) (types.ResetCode, error) {
	var matched []types.ResetCode
	for _, c := range codes {
		if match(c) {
			matched = append(matched, c)
		}
	}
	if len(matched) == 0 {
		return types.ResetCode{}, ErrNotFound
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})
	return matched[0], nil
}
