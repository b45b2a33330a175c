package manifest

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/doodlesbykumbi/orgperm/pkg/permission"
)

var errDryRun = errors.New("dry run rollback")

// Result reports what an apply wrote, or would have written on a dry run.
type Result struct {
	Organization string                   `json:"organization"`
	Permissions  int                      `json:"permissions"`
	Roles        int                      `json:"roles"`
	Departments  int                      `json:"departments"`
	Employees    int                      `json:"employees"`
	Saved        []*permission.SaveResult `json:"saved"`
	DryRun       bool                     `json:"dry_run"`
}

// Applier writes a manifest to the database.
type Applier struct {
	store  Store
	cache  permission.Cache
	logger *zap.Logger
	dryRun bool
}

// NewApplier creates a new manifest applier.
func NewApplier(store Store) *Applier {
	return &Applier{
		store:  store,
		logger: zap.NewNop(),
	}
}

// WithCache sets the effective-set cache invalidated after a successful apply.
func (a *Applier) WithCache(cache permission.Cache) *Applier {
	a.cache = cache
	return a
}

func (a *Applier) WithLogger(logger *zap.Logger) *Applier {
	if logger != nil {
		a.logger = logger
	}
	return a
}

// WithDryRun sets whether to validate only without applying changes.
func (a *Applier) WithDryRun(dryRun bool) *Applier {
	a.dryRun = dryRun
	return a
}

// ApplyFromReader parses and applies a manifest from an io.Reader.
func (a *Applier) ApplyFromReader(ctx context.Context, r io.Reader) (*Result, error) {
	m, err := Parse(r)
	if err != nil {
		return nil, err
	}
	return a.Apply(ctx, m)
}

// Apply writes the manifest in one transaction, in dependency order:
// catalog, directory, then role, department and user grants. User denials
// are therefore computed against the role and department grants written by
// the same manifest.
func (a *Applier) Apply(ctx context.Context, m *Manifest) (*Result, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	org := m.Organization
	resolve := m.resolver()
	result := &Result{Organization: org, DryRun: a.dryRun}

	err := a.store.Transaction(ctx, func(tx Store) error {
		ids := make([]string, 0, len(m.Permissions))
		for _, p := range m.Permissions {
			err := tx.UpsertPermission(ctx, permission.Permission{
				ID:       p.ID,
				Key:      p.Key,
				Name:     p.Name,
				SuiteKey: p.Suite,
				Category: p.Category,
			})
			if err != nil {
				return err
			}
			ids = append(ids, p.ID)
		}
		if err := tx.AllowPermissions(ctx, org, ids); err != nil {
			return err
		}
		result.Permissions = len(ids)

		for _, r := range m.Roles {
			if err := tx.UpsertRole(ctx, org, r.ID, nameOr(r.Name, r.ID)); err != nil {
				return err
			}
		}
		result.Roles = len(m.Roles)

		for _, d := range m.Departments {
			if err := tx.UpsertDepartment(ctx, org, d.ID, nameOr(d.Name, d.ID)); err != nil {
				return err
			}
		}
		result.Departments = len(m.Departments)

		for _, e := range m.Employees {
			if err := tx.UpsertEmployee(ctx, org, e); err != nil {
				return err
			}
		}
		result.Employees = len(m.Employees)

		resolver := permission.NewResolver(tx.Permissions()).WithLogger(a.logger)
		save := func(target permission.Target, refs []string) error {
			saved, err := resolver.Save(ctx, target, resolve(refs))
			if err != nil {
				return err
			}
			result.Saved = append(result.Saved, saved)
			return nil
		}

		for _, r := range m.Roles {
			if r.Permissions == nil {
				continue
			}
			target := permission.Target{Type: permission.TargetRole, ID: r.ID, OrganizationID: org}
			if err := save(target, r.Permissions); err != nil {
				return err
			}
		}
		for _, d := range m.Departments {
			if d.Permissions == nil {
				continue
			}
			target := permission.Target{
				Type:           permission.TargetDepartment,
				ID:             d.ID,
				OrganizationID: org,
				ParentRoleID:   d.ParentRole,
			}
			if err := save(target, d.Permissions); err != nil {
				return err
			}
		}
		for _, u := range m.Users {
			if u.Permissions == nil {
				continue
			}
			target := permission.Target{Type: permission.TargetUser, ID: u.ID, OrganizationID: org}
			if err := save(target, u.Permissions); err != nil {
				return err
			}
		}

		if a.dryRun {
			return errDryRun
		}
		return nil
	})

	if a.dryRun && errors.Is(err, errDryRun) {
		a.logger.Info("manifest validated", zap.String("organization", org), zap.Int("targets", len(result.Saved)))
		return result, nil
	}
	if err != nil {
		a.logger.Error("failed to apply manifest", zap.String("organization", org), zap.Error(err))
		return nil, fmt.Errorf("apply manifest for %s: %w", org, err)
	}

	if a.cache != nil {
		if err := a.cache.InvalidateOrganization(ctx, org); err != nil {
			a.logger.Warn("effective cache invalidation failed", zap.String("organization", org), zap.Error(err))
		}
	}
	a.logger.Info("manifest applied",
		zap.String("organization", org),
		zap.Int("permissions", result.Permissions),
		zap.Int("targets", len(result.Saved)),
	)
	return result, nil
}

func nameOr(name, id string) string {
	if name == "" {
		return id
	}
	return name
}
