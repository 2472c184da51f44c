package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/authcore/apiserver/types"
	"github.com/google/uuid"
)

// ResetCodeRepository handles persistence for password-reset codes.
// The table is an append-only log; "latest" lookups order by creation
// time descending.
type ResetCodeRepository struct {
	db *sql.DB
}

func NewResetCodeRepository(db *sql.DB) *ResetCodeRepository {
	return &ResetCodeRepository{db: db}
}

func (r *ResetCodeRepository) Create(ctx context.Context, code types.ResetCode) (types.ResetCode, error) {
	if code.ID == uuid.Nil {
		code.ID = uuid.New()
	}
	code.CreatedAt = time.Now().UTC()

	const query = `
		INSERT INTO password_reset_codes (code_id, email, code, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5)`
	_, err := r.db.ExecContext(
		ctx,
		query,
		code.ID,
		code.Email,
		code.Code,
		code.ExpiresAt.UTC(),
		code.CreatedAt,
	)
	if err != nil {
		return types.ResetCode{}, err
	}
	return code, nil
}

// LatestByEmail returns the most recently issued code for the email.
func (r *ResetCodeRepository) LatestByEmail(ctx context.Context, email string) (types.ResetCode, error) {
	const query = `
		SELECT code_id, email, code, expires_at, created_at
		FROM password_reset_codes
		WHERE email = $1
		ORDER BY created_at DESC
		LIMIT 1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, email))
}

// LatestByEmailAndCode returns the most recent record matching both
// email and code.
func (r *ResetCodeRepository) LatestByEmailAndCode(ctx context.Context, email, code string) (types.ResetCode, error) {
	const query = `
		SELECT code_id, email, code, expires_at, created_at
		FROM password_reset_codes
		WHERE email = $1 AND code = $2
		ORDER BY created_at DESC
		LIMIT 1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, email, code))
}

func (r *ResetCodeRepository) Delete(ctx context.Context, id uuid.UUID) error {
	const query = `DELETE FROM password_reset_codes WHERE code_id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	return requireAffected(result)
}

func (r *ResetCodeRepository) scanOne(row *sql.Row) (types.ResetCode, error) {
	var code types.ResetCode
	err := row.Scan(
		&code.ID,
		&code.Email,
		&code.Code,
		&code.ExpiresAt,
		&code.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.ResetCode{}, ErrNotFound
		}
		return types.ResetCode{}, err
	}
	return code, nil
}
