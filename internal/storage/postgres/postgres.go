package postgres

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Pool wraps pgxpool.Pool for dependency injection.
type Pool struct {
	*pgxpool.Pool
}

// NewPool creates a new Postgres connection pool.
func NewPool(ctx context.Context, dsn string) (*Pool, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return &Pool{Pool: pool}, nil
}

// Close closes the connection pool.
func (p *Pool) Close() {
	p.Pool.Close()
}

// PostgreSQL error codes
const (
	pgErrUniqueViolation      = "23505" // unique_violation
	pgErrSerializationFailure = "40001" // serialization_failure
	pgErrDeadlockDetected     = "40P01" // deadlock_detected
)

// isDuplicateKeyError checks if error is a unique constraint violation.
func isDuplicateKeyError(err error) bool {
	return pgErrorCode(err) == pgErrUniqueViolation
}

// isRetryableError checks if the transaction may succeed when run again.
func isRetryableError(err error) bool {
	switch pgErrorCode(err) {
	case pgErrSerializationFailure, pgErrDeadlockDetected:
		return true
	}
	return false
}

func pgErrorCode(err error) string {
	if err == nil {
		return ""
	}

	// Use pgconn.PgError for reliable error code detection
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// isNotFoundError checks if error indicates no rows found.
func isNotFoundError(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

// numeric encodes an unsigned amount for a NUMERIC(20,0) column.
func numeric(v uint64) pgtype.Numeric {
	return pgtype.Numeric{Int: new(big.Int).SetUint64(v), Valid: true}
}

var bigTen = big.NewInt(10)

// uint64FromNumeric decodes a NUMERIC(20,0) column.
func uint64FromNumeric(n pgtype.Numeric) (uint64, error) {
	if !n.Valid || n.NaN || n.InfinityModifier != pgtype.Finite || n.Int == nil {
		return 0, fmt.Errorf("numeric is not a finite value")
	}

	v := new(big.Int).Set(n.Int)
	switch {
	case n.Exp > 0:
		v.Mul(v, new(big.Int).Exp(bigTen, big.NewInt(int64(n.Exp)), nil))
	case n.Exp < 0:
		div := new(big.Int).Exp(bigTen, big.NewInt(int64(-n.Exp)), nil)
		var rem big.Int
		v.QuoRem(v, div, &rem)
		if rem.Sign() != 0 {
			return 0, fmt.Errorf("numeric has a fractional part")
		}
	}

	if v.Sign() < 0 || !v.IsUint64() {
		return 0, fmt.Errorf("numeric %s out of uint64 range", v)
	}
	return v.Uint64(), nil
}
