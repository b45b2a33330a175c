package endpoints

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/doodlesbykumbi/orgperm/pkg/permission"
)

// MockPermissionService implements server.PermissionService for testing using testify/mock
type MockPermissionService struct {
	mock.Mock
}

func (m *MockPermissionService) Catalog(ctx context.Context, organizationID string) ([]permission.SuiteGroup, error) {
	args := m.Called(organizationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]permission.SuiteGroup), args.Error(1)
}

func (m *MockPermissionService) Load(ctx context.Context, target permission.Target) (*permission.Matrix, error) {
	args := m.Called(target)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*permission.Matrix), args.Error(1)
}

func (m *MockPermissionService) Save(ctx context.Context, target permission.Target, selected []string) (*permission.SaveResult, error) {
	args := m.Called(target, selected)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*permission.SaveResult), args.Error(1)
}

func (m *MockPermissionService) Effective(ctx context.Context, organizationID, userID string) (permission.IDSet, error) {
	args := m.Called(organizationID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(permission.IDSet), args.Error(1)
}

func (m *MockPermissionService) Check(ctx context.Context, organizationID, userID, permissionKey string) (bool, error) {
	args := m.Called(organizationID, userID, permissionKey)
	return args.Bool(0), args.Error(1)
}

// MockHealthStore implements store.HealthStore for testing using testify/mock
type MockHealthStore struct {
	mock.Mock
}

func (m *MockHealthStore) CheckConnectivity(ctx context.Context) error {
	args := m.Called()
	return args.Error(0)
}
