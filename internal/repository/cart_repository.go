package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"storefront/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// cartRepository implements the CartRepository interface using PostgreSQL.
//
// Each mutation runs in its own transaction which first takes a transaction
// scoped advisory lock on the owner key, so operations on one cart are
// serialised while different carts proceed in parallel.
type cartRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewCartRepository creates a new PostgreSQL-backed cart repository.
func NewCartRepository(pool *pgxpool.Pool, logger zerolog.Logger) CartRepository {
	return &cartRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "cart").Logger(),
	}
}

const selectLineColumns = `
	SELECT id, user_id, session_id, product_id, product_name, product_image,
	       quantity, options, unit_price, total_price, created_at, updated_at
	FROM cart_lines
`

// ownerColumn returns the column holding the owner's identity and its value.
func ownerColumn(owner model.Owner) (string, string) {
	if owner.IsUser() {
		return "user_id", owner.UserID
	}
	return "session_id", owner.SessionID
}

// GetLines returns the owner's lines in insertion order.
func (r *cartRepository) GetLines(ctx context.Context, owner model.Owner) ([]model.CartLine, error) {
	lines, err := r.queryLines(ctx, r.pool, owner)
	if err != nil {
		r.logger.Error().Err(err).Str("owner", owner.Key()).Msg("failed to query cart lines")
		return nil, classify("get cart lines", err)
	}
	return lines, nil
}

// AddLine inserts the line or increments the matching line's quantity.
// An increment past MaxLineQuantity leaves the line untouched and fails
// with ErrInvalidQuantity.
func (r *cartRepository) AddLine(ctx context.Context, owner model.Owner, line model.CartLine) ([]model.CartLine, error) {
	column, id := ownerColumn(owner)

	optionsJSON, err := json.Marshal(line.Options)
	if err != nil {
		return nil, fmt.Errorf("failed to encode options: %w", err)
	}
	if line.Options == nil {
		optionsJSON = []byte("{}")
	}

	query := fmt.Sprintf(`
		INSERT INTO cart_lines (
			id, %[1]s, product_id, product_name, product_image,
			quantity, options, signature, unit_price, total_price,
			created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW(), NOW())
		ON CONFLICT (%[1]s, product_id, signature) WHERE %[1]s IS NOT NULL
		DO UPDATE SET
			quantity    = cart_lines.quantity + EXCLUDED.quantity,
			total_price = cart_lines.unit_price * (cart_lines.quantity + EXCLUDED.quantity),
			updated_at  = NOW()
		WHERE cart_lines.quantity + EXCLUDED.quantity <= $11
	`, column)

	if line.ID == uuid.Nil {
		line.ID = uuid.New()
	}

	var lines []model.CartLine
	err = r.withOwnerLocks(ctx, []model.Owner{owner}, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, query,
			line.ID,
			id,
			line.ProductID,
			line.ProductName,
			line.ProductImage,
			line.Quantity,
			optionsJSON,
			line.Options.Signature(),
			line.UnitPrice,
			model.LineTotal(line.UnitPrice, line.Quantity),
			model.MaxLineQuantity,
		)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("%w: line would exceed %d", model.ErrInvalidQuantity, model.MaxLineQuantity)
		}

		lines, err = r.queryLines(ctx, tx, owner)
		return err
	})
	if err != nil {
		if !errors.Is(err, model.ErrInvalidQuantity) {
			r.logger.Error().Err(err).
				Str("owner", owner.Key()).
				Str("product_id", line.ProductID).
				Msg("failed to add cart line")
		}
		return nil, classify("add cart line", err)
	}

	r.logger.Debug().
		Str("owner", owner.Key()).
		Str("product_id", line.ProductID).
		Int("quantity", line.Quantity).
		Msg("cart line added")

	return lines, nil
}

// SetQuantity replaces the quantity of one of the owner's lines.
func (r *cartRepository) SetQuantity(ctx context.Context, owner model.Owner, lineID uuid.UUID, quantity int) ([]model.CartLine, error) {
	column, id := ownerColumn(owner)

	query := fmt.Sprintf(`
		UPDATE cart_lines
		SET quantity = $1, total_price = unit_price * $1, updated_at = NOW()
		WHERE id = $2 AND %s = $3
	`, column)

	var lines []model.CartLine
	err := r.withOwnerLocks(ctx, []model.Owner{owner}, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, query, quantity, lineID, id)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return model.ErrLineNotFound
		}

		lines, err = r.queryLines(ctx, tx, owner)
		return err
	})
	if err != nil {
		if !errors.Is(err, model.ErrLineNotFound) {
			r.logger.Error().Err(err).
				Str("owner", owner.Key()).
				Str("line_id", lineID.String()).
				Msg("failed to update cart line quantity")
		}
		return nil, classify("update cart line", err)
	}

	return lines, nil
}

// DeleteLine removes one of the owner's lines.
func (r *cartRepository) DeleteLine(ctx context.Context, owner model.Owner, lineID uuid.UUID) ([]model.CartLine, error) {
	column, id := ownerColumn(owner)

	query := fmt.Sprintf(`DELETE FROM cart_lines WHERE id = $1 AND %s = $2`, column)

	var lines []model.CartLine
	err := r.withOwnerLocks(ctx, []model.Owner{owner}, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, query, lineID, id)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return model.ErrLineNotFound
		}

		lines, err = r.queryLines(ctx, tx, owner)
		return err
	})
	if err != nil {
		if !errors.Is(err, model.ErrLineNotFound) {
			r.logger.Error().Err(err).
				Str("owner", owner.Key()).
				Str("line_id", lineID.String()).
				Msg("failed to delete cart line")
		}
		return nil, classify("delete cart line", err)
	}

	return lines, nil
}

// DeleteAll removes every line of the owner.
func (r *cartRepository) DeleteAll(ctx context.Context, owner model.Owner) error {
	column, id := ownerColumn(owner)

	query := fmt.Sprintf(`DELETE FROM cart_lines WHERE %s = $1`, column)

	var removed int64
	err := r.withOwnerLocks(ctx, []model.Owner{owner}, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, query, id)
		removed = tag.RowsAffected()
		return err
	})
	if err != nil {
		r.logger.Error().Err(err).Str("owner", owner.Key()).Msg("failed to clear cart")
		return classify("clear cart", err)
	}

	r.logger.Debug().Str("owner", owner.Key()).Int64("removed", removed).Msg("cart cleared")
	return nil
}

// MergeSessionIntoUser folds the session cart into the user cart.
//
// Colliding lines keep the user's unit price snapshot and take the summed
// quantity, clamped to MaxLineQuantity. Both owner locks are held for the
// whole transaction, so the merge is all-or-nothing and never interleaves
// with a mutation on either cart.
func (r *cartRepository) MergeSessionIntoUser(ctx context.Context, sessionID, userID string) (MergeResult, error) {
	const foldQuery = `
		UPDATE cart_lines AS u
		SET quantity    = LEAST(u.quantity + s.quantity, $3),
		    total_price = u.unit_price * LEAST(u.quantity + s.quantity, $3),
		    updated_at  = NOW()
		FROM cart_lines AS s
		WHERE s.session_id = $1
		  AND u.user_id = $2
		  AND u.product_id = s.product_id
		  AND u.signature = s.signature
	`
	const dropFoldedQuery = `
		DELETE FROM cart_lines AS s
		WHERE s.session_id = $1
		  AND EXISTS (
			SELECT 1 FROM cart_lines AS u
			WHERE u.user_id = $2
			  AND u.product_id = s.product_id
			  AND u.signature = s.signature
		  )
	`
	const reassignQuery = `
		UPDATE cart_lines
		SET user_id = $2, session_id = NULL, updated_at = NOW()
		WHERE session_id = $1
	`

	owners := []model.Owner{model.SessionOwner(sessionID), model.UserOwner(userID)}

	var result MergeResult
	err := r.withOwnerLocks(ctx, owners, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, foldQuery, sessionID, userID, model.MaxLineQuantity)
		if err != nil {
			return fmt.Errorf("fold colliding lines: %w", err)
		}
		result.Combined = int(tag.RowsAffected())

		if _, err := tx.Exec(ctx, dropFoldedQuery, sessionID, userID); err != nil {
			return fmt.Errorf("drop folded lines: %w", err)
		}

		tag, err = tx.Exec(ctx, reassignQuery, sessionID, userID)
		if err != nil {
			return fmt.Errorf("reassign lines: %w", err)
		}
		result.Moved = int(tag.RowsAffected())
		return nil
	})
	if err != nil {
		r.logger.Error().Err(err).
			Str("session_id", sessionID).
			Str("user_id", userID).
			Msg("failed to merge session cart")
		return MergeResult{}, classify("merge session cart", err)
	}

	r.logger.Info().
		Str("session_id", sessionID).
		Str("user_id", userID).
		Int("moved", result.Moved).
		Int("combined", result.Combined).
		Msg("session cart merged")

	return result, nil
}

// withOwnerLocks runs fn in a transaction holding the advisory lock of every
// owner. Locks are taken in key order so concurrent merges cannot deadlock.
func (r *cartRepository) withOwnerLocks(ctx context.Context, owners []model.Owner, fn func(pgx.Tx) error) error {
	keys := make([]string, 0, len(owners))
	for _, o := range owners {
		keys = append(keys, o.Key())
	}
	sort.Strings(keys)

	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		for _, key := range keys {
			if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, key); err != nil {
				return fmt.Errorf("lock %s: %w", key, err)
			}
		}
		return fn(tx)
	})
}

// querier is satisfied by both the pool and a transaction.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func (r *cartRepository) queryLines(ctx context.Context, q querier, owner model.Owner) ([]model.CartLine, error) {
	column, id := ownerColumn(owner)

	query := selectLineColumns + fmt.Sprintf(`WHERE %s = $1 ORDER BY seq`, column)

	rows, err := q.Query(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query cart lines: %w", err)
	}
	defer rows.Close()

	lines := []model.CartLine{}
	for rows.Next() {
		var l model.CartLine
		err := rows.Scan(
			&l.ID,
			&l.UserID,
			&l.SessionID,
			&l.ProductID,
			&l.ProductName,
			&l.ProductImage,
			&l.Quantity,
			&l.Options,
			&l.UnitPrice,
			&l.TotalPrice,
			&l.CreatedAt,
			&l.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan cart line: %w", err)
		}
		lines = append(lines, l)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating cart lines: %w", err)
	}

	return lines, nil
}
