package repository

import (
	"context"
	"fmt"
	"maps"
	"sort"
	"sync"
	"time"

	"storefront/internal/model"

	"github.com/google/uuid"
)

// MemoryCartRepository implements CartRepository with in-memory storage.
// A single mutex serialises every mutation, which covers the per-owner
// exclusivity the Postgres implementation gets from advisory locks.
type MemoryCartRepository struct {
	mu    sync.Mutex
	carts map[string][]*model.CartLine // owner key -> lines in insertion order
}

// NewMemoryCartRepository creates a new in-memory cart repository.
func NewMemoryCartRepository() *MemoryCartRepository {
	return &MemoryCartRepository{
		carts: make(map[string][]*model.CartLine),
	}
}

// GetLines returns a copy of the owner's lines.
func (s *MemoryCartRepository) GetLines(_ context.Context, owner model.Owner) ([]model.CartLine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.snapshot(owner.Key()), nil
}

// AddLine inserts the line or increments the matching line's quantity.
func (s *MemoryCartRepository) AddLine(_ context.Context, owner model.Owner, line model.CartLine) ([]model.CartLine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !model.ValidQuantity(line.Quantity) {
		return nil, model.ErrInvalidQuantity
	}

	key := owner.Key()
	now := time.Now()

	for _, existing := range s.carts[key] {
		if existing.Signature() == line.Signature() {
			if line.Quantity > model.MaxLineQuantity-existing.Quantity {
				return nil, fmt.Errorf("%w: line already holds %d", model.ErrInvalidQuantity, existing.Quantity)
			}
			existing.Quantity += line.Quantity
			existing.TotalPrice = model.LineTotal(existing.UnitPrice, existing.Quantity)
			existing.UpdatedAt = now
			return s.snapshot(key), nil
		}
	}

	stored := cloneLine(line)
	if stored.ID == uuid.Nil {
		stored.ID = uuid.New()
	}
	stored.UserID, stored.SessionID = ownerPointers(owner)
	stored.TotalPrice = model.LineTotal(stored.UnitPrice, stored.Quantity)
	stored.CreatedAt = now
	stored.UpdatedAt = now
	s.carts[key] = append(s.carts[key], &stored)

	return s.snapshot(key), nil
}

// SetQuantity replaces the quantity of one of the owner's lines.
func (s *MemoryCartRepository) SetQuantity(_ context.Context, owner model.Owner, lineID uuid.UUID, quantity int) ([]model.CartLine, error) {
	if !model.ValidQuantity(quantity) {
		return nil, model.ErrInvalidQuantity
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := owner.Key()
	for _, line := range s.carts[key] {
		if line.ID == lineID {
			line.Quantity = quantity
			line.TotalPrice = model.LineTotal(line.UnitPrice, quantity)
			line.UpdatedAt = time.Now()
			return s.snapshot(key), nil
		}
	}
	return nil, model.ErrLineNotFound
}

// DeleteLine removes one of the owner's lines.
func (s *MemoryCartRepository) DeleteLine(_ context.Context, owner model.Owner, lineID uuid.UUID) ([]model.CartLine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := owner.Key()
	lines := s.carts[key]
	for i, line := range lines {
		if line.ID == lineID {
			s.carts[key] = append(lines[:i:i], lines[i+1:]...)
			return s.snapshot(key), nil
		}
	}
	return nil, model.ErrLineNotFound
}

// DeleteAll removes every line of the owner.
func (s *MemoryCartRepository) DeleteAll(_ context.Context, owner model.Owner) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.carts, owner.Key())
	return nil
}

// MergeSessionIntoUser folds the session cart into the user cart. Summed
// quantities are clamped to MaxLineQuantity.
func (s *MemoryCartRepository) MergeSessionIntoUser(_ context.Context, sessionID, userID string) (MergeResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sessionKey := model.SessionOwner(sessionID).Key()
	userOwner := model.UserOwner(userID)
	userKey := userOwner.Key()

	var result MergeResult
	now := time.Now()

	for _, incoming := range s.carts[sessionKey] {
		folded := false
		for _, existing := range s.carts[userKey] {
			if existing.Signature() == incoming.Signature() {
				existing.Quantity = min(existing.Quantity+incoming.Quantity, model.MaxLineQuantity)
				existing.TotalPrice = model.LineTotal(existing.UnitPrice, existing.Quantity)
				existing.UpdatedAt = now
				folded = true
				break
			}
		}
		if folded {
			result.Combined++
			continue
		}

		incoming.UserID, incoming.SessionID = ownerPointers(userOwner)
		incoming.UpdatedAt = now
		s.carts[userKey] = append(s.carts[userKey], incoming)
		result.Moved++
	}
	delete(s.carts, sessionKey)

	return result, nil
}

func (s *MemoryCartRepository) snapshot(key string) []model.CartLine {
	lines := make([]model.CartLine, 0, len(s.carts[key]))
	for _, line := range s.carts[key] {
		lines = append(lines, cloneLine(*line))
	}
	return lines
}

func cloneLine(line model.CartLine) model.CartLine {
	line.Options = maps.Clone(line.Options)
	return line
}

func ownerPointers(owner model.Owner) (*string, *string) {
	if owner.IsUser() {
		id := owner.UserID
		return &id, nil
	}
	id := owner.SessionID
	return nil, &id
}

// MemoryProductRepository implements ProductRepository with in-memory storage.
type MemoryProductRepository struct {
	mu       sync.RWMutex
	products map[string]model.Product
}

// NewMemoryProductRepository creates a new in-memory product repository.
func NewMemoryProductRepository() *MemoryProductRepository {
	return &MemoryProductRepository{
		products: make(map[string]model.Product),
	}
}

// GetAll returns active products ordered by name.
func (s *MemoryProductRepository) GetAll(_ context.Context, limit, offset int) ([]model.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var active []model.Product
	for _, p := range s.products {
		if p.IsActive {
			active = append(active, p)
		}
	}
	sort.Slice(active, func(i, j int) bool { return active[i].Name < active[j].Name })

	if offset >= len(active) {
		return nil, nil
	}
	end := min(offset+limit, len(active))
	return active[offset:end], nil
}

// GetByID returns the product or nil when it does not exist.
func (s *MemoryProductRepository) GetByID(_ context.Context, id string) (*model.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.products[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

// Upsert replaces products by ID.
func (s *MemoryProductRepository) Upsert(_ context.Context, products []model.Product) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for _, p := range products {
		if existing, ok := s.products[p.ID]; ok {
			p.CreatedAt = existing.CreatedAt
		} else if p.CreatedAt.IsZero() {
			p.CreatedAt = now
		}
		s.products[p.ID] = p
	}
	return len(products), nil
}

var (
	_ CartRepository    = (*MemoryCartRepository)(nil)
	_ ProductRepository = (*MemoryProductRepository)(nil)
)
