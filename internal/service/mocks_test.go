package service

import (
	"context"

	"storefront/internal/model"
	"storefront/internal/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockProductRepository is a mock implementation of ProductRepository.
type MockProductRepository struct {
	mock.Mock
}

func (m *MockProductRepository) GetAll(ctx context.Context, limit, offset int) ([]model.Product, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Product), args.Error(1)
}

func (m *MockProductRepository) GetByID(ctx context.Context, id string) (*model.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Product), args.Error(1)
}

func (m *MockProductRepository) Upsert(ctx context.Context, products []model.Product) (int, error) {
	args := m.Called(ctx, products)
	return args.Int(0), args.Error(1)
}

// MockCartRepository is a mock implementation of CartRepository.
type MockCartRepository struct {
	mock.Mock
}

func (m *MockCartRepository) lines(args mock.Arguments) ([]model.CartLine, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.CartLine), args.Error(1)
}

func (m *MockCartRepository) GetLines(ctx context.Context, owner model.Owner) ([]model.CartLine, error) {
	return m.lines(m.Called(ctx, owner))
}

func (m *MockCartRepository) AddLine(ctx context.Context, owner model.Owner, line model.CartLine) ([]model.CartLine, error) {
	return m.lines(m.Called(ctx, owner, line))
}

func (m *MockCartRepository) SetQuantity(ctx context.Context, owner model.Owner, lineID uuid.UUID, quantity int) ([]model.CartLine, error) {
	return m.lines(m.Called(ctx, owner, lineID, quantity))
}

func (m *MockCartRepository) DeleteLine(ctx context.Context, owner model.Owner, lineID uuid.UUID) ([]model.CartLine, error) {
	return m.lines(m.Called(ctx, owner, lineID))
}

func (m *MockCartRepository) DeleteAll(ctx context.Context, owner model.Owner) error {
	return m.Called(ctx, owner).Error(0)
}

func (m *MockCartRepository) MergeSessionIntoUser(ctx context.Context, sessionID, userID string) (repository.MergeResult, error) {
	args := m.Called(ctx, sessionID, userID)
	return args.Get(0).(repository.MergeResult), args.Error(1)
}
