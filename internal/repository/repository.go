package repository

import (
	"context"

	"storefront/internal/model"

	"github.com/google/uuid"
)

// ProductRepository defines the interface for product data access operations.
type ProductRepository interface {
	// GetAll retrieves active products with pagination support.
	GetAll(ctx context.Context, limit, offset int) ([]model.Product, error)

	// GetByID retrieves a single product by its ID, active or not.
	// Returns nil without error when the product does not exist.
	GetByID(ctx context.Context, id string) (*model.Product, error)

	// Upsert inserts or replaces products and returns how many were written.
	Upsert(ctx context.Context, products []model.Product) (int, error)
}

// CartRepository defines the interface for cart line persistence.
//
// Every mutation of one owner's cart runs under an exclusive per-owner lock
// and returns the owner's lines as they are after the mutation, in insertion
// order.
type CartRepository interface {
	// GetLines returns the owner's lines in insertion order.
	GetLines(ctx context.Context, owner model.Owner) ([]model.CartLine, error)

	// AddLine inserts line, or adds its quantity to the owner's existing line
	// with the same product and option signature.
	AddLine(ctx context.Context, owner model.Owner, line model.CartLine) ([]model.CartLine, error)

	// SetQuantity replaces the quantity of one of the owner's lines.
	// Returns model.ErrLineNotFound when the owner has no such line.
	SetQuantity(ctx context.Context, owner model.Owner, lineID uuid.UUID, quantity int) ([]model.CartLine, error)

	// DeleteLine removes one of the owner's lines.
	// Returns model.ErrLineNotFound when the owner has no such line.
	DeleteLine(ctx context.Context, owner model.Owner, lineID uuid.UUID) ([]model.CartLine, error)

	// DeleteAll removes every line of the owner.
	DeleteAll(ctx context.Context, owner model.Owner) error

	// MergeSessionIntoUser moves all session lines to the user in one
	// transaction, summing quantities into the user's line where signatures
	// collide.
	MergeSessionIntoUser(ctx context.Context, sessionID, userID string) (MergeResult, error)
}

// MergeResult reports what a merge did.
type MergeResult struct {
	// Moved counts session lines reassigned to the user unchanged.
	Moved int
	// Combined counts session lines folded into an existing user line.
	Combined int
}
