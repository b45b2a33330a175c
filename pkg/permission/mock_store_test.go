package permission

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockStore implements Store for testing using testify/mock
type MockStore struct {
	mock.Mock
}

func (m *MockStore) Transaction(ctx context.Context, fn func(Store) error) error {
	args := m.Called(ctx, fn)
	if err := args.Error(0); err != nil {
		return err
	}
	return fn(m)
}

func (m *MockStore) Catalog(ctx context.Context, organizationID string) ([]Permission, error) {
	args := m.Called(ctx, organizationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Permission), args.Error(1)
}

func (m *MockStore) Grants(ctx context.Context, target Target) ([]Grant, error) {
	args := m.Called(ctx, target)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Grant), args.Error(1)
}

func (m *MockStore) UserSources(ctx context.Context, organizationID, userID string) ([]SourcedGrant, error) {
	args := m.Called(ctx, organizationID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]SourcedGrant), args.Error(1)
}

func (m *MockStore) DeleteGrants(ctx context.Context, target Target) error {
	args := m.Called(ctx, target)
	return args.Error(0)
}

func (m *MockStore) InsertGrants(ctx context.Context, target Target, grants []Grant) error {
	args := m.Called(ctx, target, grants)
	return args.Error(0)
}

// MockObserver records resolver operations.
type MockObserver struct {
	mock.Mock
}

func (m *MockObserver) Observe(operation string, targetType TargetType, err error, seconds float64) {
	m.Called(operation, targetType, err, seconds)
}
