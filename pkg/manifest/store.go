package manifest

import (
	"context"

	"github.com/doodlesbykumbi/orgperm/pkg/permission"
)

// Store abstracts the writes a manifest needs besides grants.
type Store interface {
	// Transaction wraps operations in a database transaction.
	// If the function returns an error, the transaction is rolled back.
	Transaction(ctx context.Context, fn func(Store) error) error

	// Permissions returns the grant store bound to the same transaction.
	Permissions() permission.Store

	// UpsertPermission creates or updates a catalog entry.
	UpsertPermission(ctx context.Context, p permission.Permission) error

	// AllowPermissions adds ids to the organization's allow-list.
	AllowPermissions(ctx context.Context, organizationID string, ids []string) error

	UpsertRole(ctx context.Context, organizationID, id, name string) error
	UpsertDepartment(ctx context.Context, organizationID, id, name string) error

	// UpsertEmployee sets a user's role and department. Empty values clear
	// the assignment.
	UpsertEmployee(ctx context.Context, organizationID string, e Employee) error
}
