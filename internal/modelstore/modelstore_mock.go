package modelstore

import (
	"context"

	"github.com/huangsam/prosoul/internal/contract"
	"github.com/huangsam/prosoul/schema"
	"github.com/stretchr/testify/mock"
)

// MockModelStore is a mock implementation of ModelStore for testing.
type MockModelStore struct {
	mock.Mock
}

var _ contract.ModelStore = &MockModelStore{} // Compile-time check

// GetModel implements the ModelStore interface.
func (m *MockModelStore) GetModel(ctx context.Context, name string) (*schema.QualityModel, error) {
	args := m.Called(ctx, name)
	model, _ := args.Get(0).(*schema.QualityModel)
	return model, args.Error(1)
}

// ListModels implements the ModelStore interface.
func (m *MockModelStore) ListModels(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	names, _ := args.Get(0).([]string)
	return names, args.Error(1)
}

// SaveModel implements the ModelStore interface.
func (m *MockModelStore) SaveModel(ctx context.Context, model *schema.QualityModel) error {
	args := m.Called(ctx, model)
	return args.Error(0)
}

// DeleteModel implements the ModelStore interface.
func (m *MockModelStore) DeleteModel(ctx context.Context, name string) error {
	args := m.Called(ctx, name)
	return args.Error(0)
}

// GetStatus implements the ModelStore interface.
func (m *MockModelStore) GetStatus(ctx context.Context) (schema.ModelStoreStatus, error) {
	args := m.Called(ctx)
	return args.Get(0).(schema.ModelStoreStatus), args.Error(1)
}

// Close implements the ModelStore interface.
func (m *MockModelStore) Close() error {
	args := m.Called()
	return args.Error(0)
}
