package service

import (
	"context"

	"storefront/internal/model"
	"storefront/internal/repository"

	"github.com/google/uuid"
)

// ProductService defines read operations on the catalogue.
type ProductService interface {
	// GetAll retrieves active products with pagination.
	GetAll(ctx context.Context, limit, offset int) ([]model.Product, error)

	// GetByID retrieves a single product by ID.
	GetByID(ctx context.Context, id string) (*model.Product, error)
}

// CartService defines operations on one owner's cart.
// Every operation returns the full cart snapshot after it took effect.
type CartService interface {
	// GetCart returns the owner's cart, empty when it has no lines.
	GetCart(ctx context.Context, owner model.Owner) (*model.CartSnapshot, error)

	// AddLine prices the requested configuration and adds it to the cart.
	AddLine(ctx context.Context, owner model.Owner, req *model.AddLineRequest) (*model.CartSnapshot, error)

	// UpdateQuantity sets the quantity of a line. Quantities below 1 are rejected.
	UpdateQuantity(ctx context.Context, owner model.Owner, lineID uuid.UUID, quantity int) (*model.CartSnapshot, error)

	// RemoveLine deletes a line owned by owner.
	RemoveLine(ctx context.Context, owner model.Owner, lineID uuid.UUID) (*model.CartSnapshot, error)

	// ClearCart deletes every line of the owner.
	ClearCart(ctx context.Context, owner model.Owner) (*model.CartSnapshot, error)

	// MergeSessionIntoUser folds an anonymous session cart into a user's cart.
	MergeSessionIntoUser(ctx context.Context, sessionID, userID string) (repository.MergeResult, error)
}
