package permission

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Matrix is the editable view of one target's permissions.
type Matrix struct {
	Target            Target       `json:"target"`
	Groups            []SuiteGroup `json:"groups"`
	InheritedFromRole IDSet        `json:"inherited_from_role"`
	InheritedFromDept IDSet        `json:"inherited_from_department"`
	Selected          IDSet        `json:"selected"`

	// Denied holds the inherited permissions a user has been denied. It is
	// always empty for roles and departments.
	Denied IDSet `json:"denied"`
}

// SaveResult reports the rows written by Save.
type SaveResult struct {
	Target  Target   `json:"target"`
	Granted []string `json:"granted"`
	Denied  []string `json:"denied"`
}

// Resolver reads and writes permission matrices.
type Resolver struct {
	store    Store
	cache    Cache
	observer Observer
	logger   *zap.Logger
}

func NewResolver(store Store) *Resolver {
	return &Resolver{
		store:  store,
		logger: zap.NewNop(),
	}
}

// WithCache enables the effective-set cache.
func (r *Resolver) WithCache(cache Cache) *Resolver {
	r.cache = cache
	return r
}

func (r *Resolver) WithObserver(observer Observer) *Resolver {
	r.observer = observer
	return r
}

func (r *Resolver) WithLogger(logger *zap.Logger) *Resolver {
	if logger != nil {
		r.logger = logger
	}
	return r
}

// Catalog returns the organization's catalog grouped by display suite.
func (r *Resolver) Catalog(ctx context.Context, organizationID string) ([]SuiteGroup, error) {
	if organizationID == "" {
		return nil, fmt.Errorf("%w: organization id is empty", ErrInvalidTarget)
	}
	catalog, err := r.store.Catalog(ctx, organizationID)
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %w", organizationID, err)
	}
	return GroupBySuite(catalog, nil), nil
}

// Load builds the matrix for target. The catalog and the target's grant
// sources are fetched concurrently; any failure fails the whole load.
func (r *Resolver) Load(ctx context.Context, target Target) (matrix *Matrix, err error) {
	start := time.Now()
	defer func() { r.observe("load", target.Type, err, start) }()

	if err := target.Validate(); err != nil {
		return nil, err
	}

	var (
		catalog []Permission
		own     []Grant
		parent  []Grant
		sources []SourcedGrant
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		catalog, err = r.store.Catalog(gctx, target.OrganizationID)
		return err
	})
	switch target.Type {
	case TargetUser:
		g.Go(func() error {
			var err error
			sources, err = r.store.UserSources(gctx, target.OrganizationID, target.ID)
			return err
		})
	default:
		g.Go(func() error {
			var err error
			own, err = r.store.Grants(gctx, target)
			return err
		})
		if target.Type == TargetDepartment && target.ParentRoleID != "" {
			g.Go(func() error {
				var err error
				parent, err = r.store.Grants(gctx, Target{
					Type:           TargetRole,
					ID:             target.ParentRoleID,
					OrganizationID: target.OrganizationID,
				})
				return err
			})
		}
	}
	if err := g.Wait(); err != nil {
		r.logger.Error("failed to load permissions", zap.Stringer("target", target), zap.Error(err))
		return nil, fmt.Errorf("load %s: %w", target, err)
	}

	allowed := catalogIDs(catalog)
	matrix = &Matrix{
		Target:            target,
		InheritedFromRole: NewIDSet(),
		InheritedFromDept: NewIDSet(),
		Selected:          NewIDSet(),
		Denied:            NewIDSet(),
	}

	switch target.Type {
	case TargetRole:
		matrix.Selected = allowedIDs(own).Intersect(allowed)
	case TargetDepartment:
		matrix.InheritedFromRole = allowedIDs(parent).Intersect(allowed)
		matrix.Selected = allowedIDs(own).Union(matrix.InheritedFromRole).Intersect(allowed)
	case TargetUser:
		merged := mergeUserSources(sources)
		matrix.InheritedFromRole = merged.role.Intersect(allowed)
		matrix.InheritedFromDept = merged.dept.Intersect(allowed)
		matrix.Selected = merged.effective().Intersect(allowed)
		matrix.Denied = merged.deny.Intersect(matrix.InheritedFromRole.Union(matrix.InheritedFromDept))
	}

	matrix.Groups = GroupBySuite(catalog, func(e *Entry) {
		e.Selected = matrix.Selected.Has(e.ID)
		e.Badge = BadgeFor(e.ID, matrix.InheritedFromRole, matrix.InheritedFromDept, target.Type)
	})
	return matrix, nil
}

// Save replaces the target's grants with selected. The delete and the
// inserts run in one transaction, so readers see either the old rows or the
// new ones. For a user, every permission inherited from the role or the
// department that is not selected is written as a denial; the inherited
// sets are read inside the same transaction.
func (r *Resolver) Save(ctx context.Context, target Target, selected []string) (result *SaveResult, err error) {
	start := time.Now()
	defer func() { r.observe("save", target.Type, err, start) }()

	if err := target.Validate(); err != nil {
		return nil, err
	}
	selection := NewIDSet(selected...)
	result = &SaveResult{Target: target}

	err = r.store.Transaction(ctx, func(tx Store) error {
		catalog, err := tx.Catalog(ctx, target.OrganizationID)
		if err != nil {
			return err
		}
		allowed := catalogIDs(catalog)
		if unknown := selection.Difference(allowed); len(unknown) > 0 {
			return fmt.Errorf("%w: %v", ErrUnknownPermission, unknown.Sorted())
		}

		denied := NewIDSet()
		if target.Type == TargetUser {
			sources, err := tx.UserSources(ctx, target.OrganizationID, target.ID)
			if err != nil {
				return err
			}
			merged := mergeUserSources(sources)
			denied = merged.role.Union(merged.dept).Intersect(allowed).Difference(selection)
		}

		if err := tx.DeleteGrants(ctx, target); err != nil {
			return err
		}

		result.Granted = selection.Sorted()
		result.Denied = denied.Sorted()
		grants := make([]Grant, 0, len(result.Granted)+len(result.Denied))
		for _, id := range result.Granted {
			grants = append(grants, Grant{PermissionID: id, Allowed: true})
		}
		for _, id := range result.Denied {
			grants = append(grants, Grant{PermissionID: id, Allowed: false})
		}
		return tx.InsertGrants(ctx, target, grants)
	})
	if err != nil {
		r.logger.Error("failed to save permissions", zap.Stringer("target", target), zap.Error(err))
		return nil, fmt.Errorf("save %s: %w", target, err)
	}

	r.logger.Info("saved permissions",
		zap.Stringer("target", target),
		zap.Int("granted", len(result.Granted)),
		zap.Int("denied", len(result.Denied)),
	)
	r.invalidate(ctx, target.OrganizationID)
	return result, nil
}

// Effective returns the permissions a user actually holds.
func (r *Resolver) Effective(ctx context.Context, organizationID, userID string) (ids IDSet, err error) {
	start := time.Now()
	defer func() { r.observe("effective", TargetUser, err, start) }()

	target := Target{Type: TargetUser, ID: userID, OrganizationID: organizationID}
	if err := target.Validate(); err != nil {
		return nil, err
	}
	ids, _, err = r.effective(ctx, target)
	return ids, err
}

// effective computes the user's set, through the cache when one is
// configured. It also returns the catalog when it had to read it, so
// callers that need the catalog on a miss read it once.
func (r *Resolver) effective(ctx context.Context, target Target) (IDSet, []Permission, error) {
	var (
		generation int64
		cacheable  bool
	)
	if r.cache != nil {
		// The generation is read before the grants, so a save committing
		// in between makes the write below a no-op instead of caching a
		// set that predates it.
		ids, gen, ok, err := r.cache.GetEffective(ctx, target.OrganizationID, target.ID)
		switch {
		case err != nil:
			r.logger.Warn("effective cache read failed", zap.Stringer("target", target), zap.Error(err))
		case ok:
			return ids, nil, nil
		default:
			generation, cacheable = gen, true
		}
	}

	var (
		catalog []Permission
		sources []SourcedGrant
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		catalog, err = r.store.Catalog(gctx, target.OrganizationID)
		return err
	})
	g.Go(func() error {
		var err error
		sources, err = r.store.UserSources(gctx, target.OrganizationID, target.ID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, fmt.Errorf("effective %s: %w", target, err)
	}

	ids := mergeUserSources(sources).effective().Intersect(catalogIDs(catalog))
	if cacheable {
		if err := r.cache.SetEffective(ctx, target.OrganizationID, target.ID, generation, ids); err != nil {
			r.logger.Warn("effective cache write failed", zap.Stringer("target", target), zap.Error(err))
		}
	}
	return ids, catalog, nil
}

// Check reports whether the user holds the permission with the given key.
func (r *Resolver) Check(ctx context.Context, organizationID, userID, permissionKey string) (allowed bool, err error) {
	start := time.Now()
	defer func() { r.observe("check", TargetUser, err, start) }()

	target := Target{Type: TargetUser, ID: userID, OrganizationID: organizationID}
	if err := target.Validate(); err != nil {
		return false, err
	}

	ids, catalog, err := r.effective(ctx, target)
	if err != nil {
		return false, err
	}
	if catalog == nil {
		if catalog, err = r.store.Catalog(ctx, organizationID); err != nil {
			return false, fmt.Errorf("check %s: %w", target, err)
		}
	}

	for _, p := range catalog {
		if p.Key == permissionKey {
			return ids.Has(p.ID), nil
		}
	}
	return false, fmt.Errorf("%w: %s", ErrUnknownPermission, permissionKey)
}

func (r *Resolver) invalidate(ctx context.Context, organizationID string) {
	if r.cache == nil {
		return
	}
	if err := r.cache.InvalidateOrganization(ctx, organizationID); err != nil {
		r.logger.Warn("effective cache invalidation failed", zap.String("organization", organizationID), zap.Error(err))
	}
}

func (r *Resolver) observe(operation string, targetType TargetType, err error, start time.Time) {
	if r.observer != nil {
		r.observer.Observe(operation, targetType, err, time.Since(start).Seconds())
	}
}

func allowedIDs(grants []Grant) IDSet {
	ids := NewIDSet()
	for _, g := range grants {
		if g.Allowed {
			ids.Add(g.PermissionID)
		}
	}
	return ids
}

type userSources struct {
	role  IDSet
	dept  IDSet
	allow IDSet
	deny  IDSet
}

func mergeUserSources(rows []SourcedGrant) userSources {
	s := userSources{
		role:  NewIDSet(),
		dept:  NewIDSet(),
		allow: NewIDSet(),
		deny:  NewIDSet(),
	}
	for _, row := range rows {
		switch row.Source {
		case TargetRole:
			s.role.Add(row.PermissionID)
		case TargetDepartment:
			s.dept.Add(row.PermissionID)
		case TargetUser:
			if row.Allowed {
				s.allow.Add(row.PermissionID)
			} else {
				s.deny.Add(row.PermissionID)
			}
		}
	}
	return s
}

// effective applies the user's own rows over what the department and the
// role give. A user row is either an allow or a denial, never both.
func (s userSources) effective() IDSet {
	return s.role.Union(s.dept, s.allow).Difference(s.deny)
}
