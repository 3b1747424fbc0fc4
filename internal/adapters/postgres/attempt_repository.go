package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sepantapay/payment-service/internal/domain"
	"github.com/sepantapay/payment-service/internal/domain/ports"
)

// Schema:
//
//	CREATE TABLE payment_attempts (
//	    id               UUID PRIMARY KEY,
//	    reference_number TEXT NOT NULL UNIQUE,
//	    terminal_id      TEXT NOT NULL,
//	    amount           BIGINT NOT NULL CHECK (amount > 0),
//	    token            TEXT NOT NULL DEFAULT '',
//	    ref_num          TEXT NOT NULL DEFAULT '',
//	    state            TEXT NOT NULL,
//	    failure_code     TEXT NOT NULL DEFAULT '',
//	    created_at       TIMESTAMPTZ NOT NULL,
//	    updated_at       TIMESTAMPTZ NOT NULL
//	);
//
// The UNIQUE constraint on reference_number is what makes client-side
// reference generation safe: a collision surfaces as
// STORAGE_DUPLICATE_REFERENCE and the caller generates a fresh number.

const uniqueViolationCode = "23505"

// AttemptRepository implements ports.AttemptRepository on PostgreSQL
type AttemptRepository struct {
	pool *pgxpool.Pool
}

// NewAttemptRepository creates a new attempt repository
func NewAttemptRepository(pool *pgxpool.Pool) *AttemptRepository {
	return &AttemptRepository{pool: pool}
}

// Create persists a new attempt, enforcing reference-number uniqueness
func (r *AttemptRepository) Create(ctx context.Context, attempt *domain.PaymentAttempt) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO payment_attempts
			(id, reference_number, terminal_id, amount, token, ref_num, state, failure_code, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		attempt.ID,
		attempt.ReferenceNumber,
		attempt.TerminalID,
		attempt.Amount,
		attempt.Token,
		attempt.RefNum,
		string(attempt.State),
		attempt.FailureCode,
		attempt.CreatedAt,
		attempt.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return domain.ErrDuplicateReference.
				WithDetail("reference_number", attempt.ReferenceNumber)
		}
		return domain.WrapError(domain.ErrorCodeStorageError, "create attempt", err)
	}
	return nil
}

// GetByReferenceNumber loads an attempt by its merchant reference number
func (r *AttemptRepository) GetByReferenceNumber(ctx context.Context, referenceNumber string) (*domain.PaymentAttempt, error) {
	var attempt domain.PaymentAttempt
	var state string
	err := r.pool.QueryRow(ctx, `
		SELECT id, reference_number, terminal_id, amount, token, ref_num, state, failure_code, created_at, updated_at
		FROM payment_attempts
		WHERE reference_number = $1`,
		referenceNumber,
	).Scan(
		&attempt.ID,
		&attempt.ReferenceNumber,
		&attempt.TerminalID,
		&attempt.Amount,
		&attempt.Token,
		&attempt.RefNum,
		&state,
		&attempt.FailureCode,
		&attempt.CreatedAt,
		&attempt.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrAttemptNotFound.
				WithDetail("reference_number", referenceNumber)
		}
		return nil, domain.WrapError(domain.ErrorCodeStorageError, "get attempt", err)
	}
	attempt.State = domain.AttemptState(state)
	return &attempt, nil
}

// Update stores the attempt's current state, token, RefNum and failure code
func (r *AttemptRepository) Update(ctx context.Context, attempt *domain.PaymentAttempt) error {
	attempt.UpdatedAt = time.Now()
	tag, err := r.pool.Exec(ctx, `
		UPDATE payment_attempts
		SET token = $2, ref_num = $3, state = $4, failure_code = $5, updated_at = $6
		WHERE reference_number = $1`,
		attempt.ReferenceNumber,
		attempt.Token,
		attempt.RefNum,
		string(attempt.State),
		attempt.FailureCode,
		attempt.UpdatedAt,
	)
	if err != nil {
		return domain.WrapError(domain.ErrorCodeStorageError, "update attempt", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAttemptNotFound.
			WithDetail("reference_number", attempt.ReferenceNumber)
	}
	return nil
}

var _ ports.AttemptRepository = (*AttemptRepository)(nil)
