package repository

import (
	"context"
	"errors"
	"fmt"

	"storefront/internal/model"

	"github.com/jackc/pgx/v5/pgconn"
)

// Postgres error codes treated specially.
const (
	pgUniqueViolation      = "23505"
	pgCheckViolation       = "23514"
	pgNumericOutOfRange    = "22003"
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
)

// quantityConstraints are the CHECK constraints guarding cart_lines.quantity.
var quantityConstraints = map[string]bool{
	"cart_lines_quantity_check": true,
	"cart_lines_quantity_max":   true,
}

// classify maps a storage failure onto the cart error taxonomy.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}

	var domainErr *model.DomainError
	if errors.As(err, &domainErr) {
		return err
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", op, err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return fmt.Errorf("%w: %s: %w", model.ErrMergeConflict, op, err)
		case pgNumericOutOfRange:
			return fmt.Errorf("%w: %s: %w", model.ErrInvalidQuantity, op, err)
		case pgCheckViolation:
			if quantityConstraints[pgErr.ConstraintName] {
				return fmt.Errorf("%w: %s: %w", model.ErrInvalidQuantity, op, err)
			}
			return fmt.Errorf("%s: %w", op, err)
		case pgSerializationFailure, pgDeadlockDetected:
			return fmt.Errorf("%w: %s: %w", model.ErrStorage, op, err)
		default:
			// Constraint and syntax errors will not go away on retry.
			return fmt.Errorf("%s: %w", op, err)
		}
	}

	return fmt.Errorf("%w: %s: %w", model.ErrStorage, op, err)
}
