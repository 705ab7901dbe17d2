package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"

	"github.com/chefserve/chef-vendor/internal/domain"
)

// OtpRepository stores issued verification codes. Codes are bcrypt-hashed
// at rest; only the newest unexpired code per identifier is checkable.
type OtpRepository interface {
	Create(ctx context.Context, identifier, codeHash string, expiresAt time.Time) error
	CheckCode(ctx context.Context, identifier, code string) (bool, error)
	DeleteExpired(ctx context.Context) (int64, error)
}

type otpRepository struct {
	pool *pgxpool.Pool
}

func NewOtpRepository(pool *pgxpool.Pool) OtpRepository {
	return &otpRepository{pool: pool}
}

func (r *otpRepository) Create(ctx context.Context, identifier, codeHash string, expiresAt time.Time) error {
	const q = `
		INSERT INTO otp_codes (identifier, code_hash, expires_at)
		VALUES ($1, $2, $3)`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	_, err := r.pool.Exec(ctx, q, identifier, codeHash, expiresAt)
	return err
}

func (r *otpRepository) CheckCode(ctx context.Context, identifier, code string) (bool, error) {
	const q = `
		SELECT id, code_hash, expires_at, used_at, attempts
		FROM otp_codes
		WHERE lower(identifier) = lower($1)
		ORDER BY id DESC
		LIMIT 1`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var (
		id       int64
		hash     string
		expires  time.Time
		used     *time.Time
		attempts int
	)

	err := r.pool.QueryRow(ctx, q, identifier).Scan(&id, &hash, &expires, &used, &attempts)
	if err != nil {
		if err == pgx.ErrNoRows {
			return false, nil
		}
		return false, err
	}

	if used != nil || time.Now().After(expires) || attempts >= domain.MaxOtpAttempts {
		return false, nil
	}

	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(code)); err != nil {
		_, _ = r.pool.Exec(ctx, `UPDATE otp_codes SET attempts = attempts + 1 WHERE id = $1`, id)
		return false, nil
	}

	_, _ = r.pool.Exec(ctx, `UPDATE otp_codes SET used_at = now() WHERE id = $1`, id)
	return true, nil
}

func (r *otpRepository) DeleteExpired(ctx context.Context) (int64, error) {
	const q = `
		DELETE FROM otp_codes
		WHERE (used_at IS NOT NULL AND used_at < now() - interval '1 day')
		   OR (used_at IS NULL AND expires_at < now() - interval '1 day')`

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	result, err := r.pool.Exec(ctx, q)
	if err != nil {
		return 0, err
	}

	return result.RowsAffected(), nil
}
