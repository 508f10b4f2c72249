package handler

import (
	"context"

	"storefront/internal/model"
	"storefront/internal/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockProductService is a mock implementation of ProductService.
type MockProductService struct {
	mock.Mock
}

func (m *MockProductService) GetAll(ctx context.Context, limit, offset int) ([]model.Product, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Product), args.Error(1)
}

func (m *MockProductService) GetByID(ctx context.Context, id string) (*model.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Product), args.Error(1)
}

// MockCartService is a mock implementation of CartService.
type MockCartService struct {
	mock.Mock
}

func (m *MockCartService) snapshot(args mock.Arguments) (*model.CartSnapshot, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.CartSnapshot), args.Error(1)
}

func (m *MockCartService) GetCart(ctx context.Context, owner model.Owner) (*model.CartSnapshot, error) {
	return m.snapshot(m.Called(ctx, owner))
}

func (m *MockCartService) AddLine(ctx context.Context, owner model.Owner, req *model.AddLineRequest) (*model.CartSnapshot, error) {
	return m.snapshot(m.Called(ctx, owner, req))
}

func (m *MockCartService) UpdateQuantity(ctx context.Context, owner model.Owner, lineID uuid.UUID, quantity int) (*model.CartSnapshot, error) {
	return m.snapshot(m.Called(ctx, owner, lineID, quantity))
}

func (m *MockCartService) RemoveLine(ctx context.Context, owner model.Owner, lineID uuid.UUID) (*model.CartSnapshot, error) {
	return m.snapshot(m.Called(ctx, owner, lineID))
}

func (m *MockCartService) ClearCart(ctx context.Context, owner model.Owner) (*model.CartSnapshot, error) {
	return m.snapshot(m.Called(ctx, owner))
}

func (m *MockCartService) MergeSessionIntoUser(ctx context.Context, sessionID, userID string) (repository.MergeResult, error) {
	args := m.Called(ctx, sessionID, userID)
	return args.Get(0).(repository.MergeResult), args.Error(1)
}

// MockImporter is a mock implementation of CatalogImporter.
type MockImporter struct {
	mock.Mock
}

func (m *MockImporter) Import(ctx context.Context, paths []string) (int, error) {
	args := m.Called(ctx, paths)
	return args.Int(0), args.Error(1)
}
