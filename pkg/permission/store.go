package permission

import "context"

// Grant is one stored row for a target. Allowed is false only for user
// denials.
type Grant struct {
	PermissionID string
	Allowed      bool
}

// SourcedGrant is a row that reaches a user, tagged with where it came from:
// TargetRole and TargetDepartment rows are inherited, TargetUser rows are
// the user's own.
type SourcedGrant struct {
	Source       TargetType
	PermissionID string
	Allowed      bool
}

// Store is the persistence the resolver needs. Every call is scoped to one
// organization.
type Store interface {
	// Transaction runs fn against a Store bound to one database transaction.
	// The transaction is rolled back if fn returns an error.
	Transaction(ctx context.Context, fn func(Store) error) error

	// Catalog returns the permissions on the organization's allow-list.
	Catalog(ctx context.Context, organizationID string) ([]Permission, error)

	// Grants returns the target's own rows.
	Grants(ctx context.Context, target Target) ([]Grant, error)

	// UserSources returns, in one round trip, the grants of the user's
	// role, the grants of the user's department and the user's own rows.
	UserSources(ctx context.Context, organizationID, userID string) ([]SourcedGrant, error)

	DeleteGrants(ctx context.Context, target Target) error
	InsertGrants(ctx context.Context, target Target, grants []Grant) error
}

// Cache holds computed effective sets. Implementations may drop entries at
// any time.
type Cache interface {
	// GetEffective returns the cached set, or ok=false on a miss. The
	// returned generation identifies the organization state the lookup saw;
	// a set computed after a miss is stored under it.
	GetEffective(ctx context.Context, organizationID, userID string) (ids IDSet, generation int64, ok bool, err error)

	// SetEffective stores ids unless the organization was invalidated after
	// generation was read, in which case the set is dropped.
	SetEffective(ctx context.Context, organizationID, userID string, generation int64, ids IDSet) error

	// InvalidateOrganization discards every cached set of the organization.
	InvalidateOrganization(ctx context.Context, organizationID string) error
}

// Observer is told about every resolver operation.
type Observer interface {
	Observe(operation string, targetType TargetType, err error, seconds float64)
}
