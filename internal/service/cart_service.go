package service

import (
	"context"
	"errors"
	"fmt"

	"storefront/internal/config"
	"storefront/internal/model"
	"storefront/internal/pricing"
	"storefront/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

var errInvalidOwner = errors.New("cart owner must be exactly one of user or session")

// cartService implements CartService.
type cartService struct {
	cartRepo    repository.CartRepository
	productRepo repository.ProductRepository
	tolerance   decimal.Decimal
	attempts    int
	logger      zerolog.Logger
}

// NewCartService creates a new cart service.
func NewCartService(
	cartRepo repository.CartRepository,
	productRepo repository.ProductRepository,
	cfg config.CartConfig,
	logger zerolog.Logger,
) CartService {
	tolerance := cfg.PriceTolerance
	if tolerance.IsZero() {
		tolerance = pricing.DefaultTolerance
	}

	return &cartService{
		cartRepo:    cartRepo,
		productRepo: productRepo,
		tolerance:   tolerance,
		attempts:    cfg.MaxRetries,
		logger:      logger.With().Str("service", "cart").Logger(),
	}
}

// GetCart returns the owner's cart.
func (s *cartService) GetCart(ctx context.Context, owner model.Owner) (*model.CartSnapshot, error) {
	if !owner.Valid() {
		return nil, errInvalidOwner
	}

	lines, err := retry(ctx, s.attempts, func() ([]model.CartLine, error) {
		return s.cartRepo.GetLines(ctx, owner)
	})
	if err != nil {
		s.logger.Error().Err(err).Str("owner", owner.Key()).Msg("failed to get cart")
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}

	return model.NewSnapshot(lines), nil
}

// AddLine validates and prices the request, then adds it to the cart.
//
// The unit price is always the server's resolution of the product and its
// options. A client supplied price that differs by more than the tolerance
// is rejected rather than corrected.
func (s *cartService) AddLine(ctx context.Context, owner model.Owner, req *model.AddLineRequest) (*model.CartSnapshot, error) {
	if !owner.Valid() {
		return nil, errInvalidOwner
	}
	if err := validateAddLine(req); err != nil {
		return nil, err
	}

	product, err := retry(ctx, s.attempts, func() (*model.Product, error) {
		return s.productRepo.GetByID(ctx, req.ProductID)
	})
	if err != nil {
		s.logger.Error().Err(err).Str("product_id", req.ProductID).Msg("failed to load product")
		return nil, fmt.Errorf("failed to load product: %w", err)
	}
	if product == nil || !product.IsActive {
		s.logger.Debug().Str("product_id", req.ProductID).Msg("product not found")
		return nil, fmt.Errorf("%w: %s", model.ErrProductNotFound, req.ProductID)
	}

	unitPrice, err := pricing.Resolve(*product, req.Options)
	if err != nil {
		s.logger.Warn().Err(err).Str("product_id", req.ProductID).Msg("invalid options")
		return nil, err
	}

	if err := pricing.Verify(*req.UnitPrice, unitPrice, s.tolerance); err != nil {
		s.logger.Warn().
			Str("product_id", req.ProductID).
			Str("claimed", req.UnitPrice.String()).
			Str("resolved", unitPrice.String()).
			Msg("client price rejected")
		return nil, err
	}

	// The ID is fixed before the retry loop so every attempt carries the
	// same one. The store does not dedupe on it yet, so a retry after an
	// ambiguous commit still increments an existing line twice.
	line := model.CartLine{
		ID:           uuid.New(),
		ProductID:    product.ID,
		ProductName:  product.Name,
		ProductImage: product.Image,
		Quantity:     req.Quantity,
		Options:      req.Options,
		UnitPrice:    unitPrice,
	}

	lines, err := retry(ctx, s.attempts, func() ([]model.CartLine, error) {
		return s.cartRepo.AddLine(ctx, owner, line)
	})
	if err != nil {
		s.logger.Error().Err(err).
			Str("owner", owner.Key()).
			Str("product_id", req.ProductID).
			Msg("failed to add cart line")
		return nil, fmt.Errorf("failed to add to cart: %w", err)
	}

	s.logger.Info().
		Str("owner", owner.Key()).
		Str("product_id", product.ID).
		Int("quantity", req.Quantity).
		Str("unit_price", unitPrice.String()).
		Msg("added to cart")

	return model.NewSnapshot(lines), nil
}

// UpdateQuantity sets a line's quantity.
func (s *cartService) UpdateQuantity(ctx context.Context, owner model.Owner, lineID uuid.UUID, quantity int) (*model.CartSnapshot, error) {
	if !owner.Valid() {
		return nil, errInvalidOwner
	}
	if !model.ValidQuantity(quantity) {
		s.logger.Warn().
			Str("owner", owner.Key()).
			Str("line_id", lineID.String()).
			Int("quantity", quantity).
			Msg("invalid quantity")
		return nil, model.ErrInvalidQuantity
	}

	lines, err := retry(ctx, s.attempts, func() ([]model.CartLine, error) {
		return s.cartRepo.SetQuantity(ctx, owner, lineID, quantity)
	})
	if err != nil {
		return nil, s.mutationError(err, owner, lineID, "update quantity")
	}

	return model.NewSnapshot(lines), nil
}

// RemoveLine deletes one line.
func (s *cartService) RemoveLine(ctx context.Context, owner model.Owner, lineID uuid.UUID) (*model.CartSnapshot, error) {
	if !owner.Valid() {
		return nil, errInvalidOwner
	}

	lines, err := retry(ctx, s.attempts, func() ([]model.CartLine, error) {
		return s.cartRepo.DeleteLine(ctx, owner, lineID)
	})
	if err != nil {
		return nil, s.mutationError(err, owner, lineID, "remove line")
	}

	return model.NewSnapshot(lines), nil
}

// ClearCart deletes every line and returns the empty cart.
func (s *cartService) ClearCart(ctx context.Context, owner model.Owner) (*model.CartSnapshot, error) {
	if !owner.Valid() {
		return nil, errInvalidOwner
	}

	_, err := retry(ctx, s.attempts, func() (struct{}, error) {
		return struct{}{}, s.cartRepo.DeleteAll(ctx, owner)
	})
	if err != nil {
		s.logger.Error().Err(err).Str("owner", owner.Key()).Msg("failed to clear cart")
		return nil, fmt.Errorf("failed to clear cart: %w", err)
	}

	s.logger.Info().Str("owner", owner.Key()).Msg("cart cleared")
	return model.NewSnapshot(nil), nil
}

// MergeSessionIntoUser moves a guest cart into the user's cart.
// The whole merge transaction is retried on transient failures.
func (s *cartService) MergeSessionIntoUser(ctx context.Context, sessionID, userID string) (repository.MergeResult, error) {
	if sessionID == "" || userID == "" {
		return repository.MergeResult{}, errInvalidOwner
	}

	result, err := retry(ctx, s.attempts, func() (repository.MergeResult, error) {
		return s.cartRepo.MergeSessionIntoUser(ctx, sessionID, userID)
	})
	if err != nil {
		s.logger.Error().Err(err).
			Str("session_id", sessionID).
			Str("user_id", userID).
			Msg("failed to merge session cart")
		return repository.MergeResult{}, fmt.Errorf("failed to merge cart: %w", err)
	}

	return result, nil
}

func (s *cartService) mutationError(err error, owner model.Owner, lineID uuid.UUID, op string) error {
	if errors.Is(err, model.ErrLineNotFound) {
		s.logger.Debug().
			Str("owner", owner.Key()).
			Str("line_id", lineID.String()).
			Msg("cart line not found")
		return err
	}

	s.logger.Error().Err(err).
		Str("owner", owner.Key()).
		Str("line_id", lineID.String()).
		Msgf("failed to %s", op)
	return fmt.Errorf("failed to %s: %w", op, err)
}

// validateAddLine checks the request shape before any lookup.
func validateAddLine(req *model.AddLineRequest) error {
	if req == nil {
		return model.NewDomainError(model.ErrCodeMissingField, "request body is required")
	}
	if req.ProductID == "" {
		return model.NewDomainError(model.ErrCodeMissingField, "productId is required")
	}
	if req.UnitPrice == nil {
		return model.NewDomainError(model.ErrCodeMissingField, "unitPrice is required")
	}
	if !model.ValidQuantity(req.Quantity) {
		return model.ErrInvalidQuantity
	}
	return nil
}
