package gorm

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/doodlesbykumbi/orgperm/pkg/model"
	"github.com/doodlesbykumbi/orgperm/pkg/permission"
)

// Ensure PermissionStore implements permission.Store
var _ permission.Store = (*PermissionStore)(nil)

// PermissionStore implements permission.Store using GORM
type PermissionStore struct {
	db *gorm.DB
}

// NewPermissionStore creates a new PermissionStore
func NewPermissionStore(db *gorm.DB) *PermissionStore {
	return &PermissionStore{db: db}
}

// Transaction runs fn against a store bound to a single transaction.
func (s *PermissionStore) Transaction(ctx context.Context, fn func(permission.Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&PermissionStore{db: tx})
	})
}

// Catalog returns the permissions on the organization's allow-list
func (s *PermissionStore) Catalog(ctx context.Context, organizationID string) ([]permission.Permission, error) {
	var rows []model.Permission
	err := s.db.WithContext(ctx).Raw(`
		SELECT p.id, p.key, p.name, p.suite_key, p.category
		FROM permissions p JOIN organization_permissions op ON op.permission_id = p.id
		WHERE op.organization_id = ?
		ORDER BY p.suite_key, p.category, p.name
	`, organizationID).Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch catalog: %w", err)
	}

	catalog := make([]permission.Permission, 0, len(rows))
	for _, row := range rows {
		catalog = append(catalog, permission.Permission{
			ID:       row.ID,
			Key:      row.Key,
			Name:     row.Name,
			SuiteKey: row.SuiteKey,
			Category: row.Category,
		})
	}
	return catalog, nil
}

// Grants returns the target's own rows
func (s *PermissionStore) Grants(ctx context.Context, target permission.Target) ([]permission.Grant, error) {
	db := s.db.WithContext(ctx)
	var grants []permission.Grant

	switch target.Type {
	case permission.TargetRole:
		var rows []model.RoleGrant
		if err := db.Where("role_id = ? AND organization_id = ?", target.ID, target.OrganizationID).Find(&rows).Error; err != nil {
			return nil, fmt.Errorf("failed to fetch role grants: %w", err)
		}
		for _, row := range rows {
			grants = append(grants, permission.Grant{PermissionID: row.PermissionID, Allowed: true})
		}
	case permission.TargetDepartment:
		var rows []model.DepartmentGrant
		if err := db.Where("department_id = ? AND organization_id = ?", target.ID, target.OrganizationID).Find(&rows).Error; err != nil {
			return nil, fmt.Errorf("failed to fetch department grants: %w", err)
		}
		for _, row := range rows {
			grants = append(grants, permission.Grant{PermissionID: row.PermissionID, Allowed: true})
		}
	case permission.TargetUser:
		var rows []model.UserGrant
		if err := db.Where("user_id = ? AND organization_id = ?", target.ID, target.OrganizationID).Find(&rows).Error; err != nil {
			return nil, fmt.Errorf("failed to fetch user grants: %w", err)
		}
		for _, row := range rows {
			grants = append(grants, permission.Grant{PermissionID: row.PermissionID, Allowed: row.IsAllowed})
		}
	default:
		return nil, fmt.Errorf("%w: %s", permission.ErrInvalidTarget, target.Type)
	}
	return grants, nil
}

type sourceRow struct {
	Source       string
	PermissionID string
	IsAllowed    bool
}

// UserSources returns role, department and own rows for a user in one query.
// A user without an employee row only gets own rows.
func (s *PermissionStore) UserSources(ctx context.Context, organizationID, userID string) ([]permission.SourcedGrant, error) {
	var rows []sourceRow
	err := s.db.WithContext(ctx).Raw(`
		SELECT 'role' AS source, rp.permission_id, TRUE AS is_allowed
		FROM employees e JOIN role_permissions rp
			ON rp.role_id = e.role_id AND rp.organization_id = e.organization_id
		WHERE e.organization_id = ? AND e.user_id = ?
		UNION ALL
		SELECT 'department' AS source, dp.permission_id, TRUE AS is_allowed
		FROM employees e JOIN department_permissions dp
			ON dp.department_id = e.department_id AND dp.organization_id = e.organization_id
		WHERE e.organization_id = ? AND e.user_id = ?
		UNION ALL
		SELECT 'user' AS source, up.permission_id, up.is_allowed
		FROM user_permissions up
		WHERE up.organization_id = ? AND up.user_id = ?
	`, organizationID, userID, organizationID, userID, organizationID, userID).Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch user permission sources: %w", err)
	}

	grants := make([]permission.SourcedGrant, 0, len(rows))
	for _, row := range rows {
		source, err := permission.TargetTypeString(row.Source)
		if err != nil {
			return nil, err
		}
		grants = append(grants, permission.SourcedGrant{
			Source:       source,
			PermissionID: row.PermissionID,
			Allowed:      row.IsAllowed,
		})
	}
	return grants, nil
}

// DeleteGrants removes every row of the target
func (s *PermissionStore) DeleteGrants(ctx context.Context, target permission.Target) error {
	db := s.db.WithContext(ctx)
	var err error

	switch target.Type {
	case permission.TargetRole:
		err = db.Where("role_id = ? AND organization_id = ?", target.ID, target.OrganizationID).Delete(&model.RoleGrant{}).Error
	case permission.TargetDepartment:
		err = db.Where("department_id = ? AND organization_id = ?", target.ID, target.OrganizationID).Delete(&model.DepartmentGrant{}).Error
	case permission.TargetUser:
		err = db.Where("user_id = ? AND organization_id = ?", target.ID, target.OrganizationID).Delete(&model.UserGrant{}).Error
	default:
		return fmt.Errorf("%w: %s", permission.ErrInvalidTarget, target.Type)
	}
	if err != nil {
		return fmt.Errorf("failed to delete %s grants: %w", target.Type, err)
	}
	return nil
}

// InsertGrants writes the rows in a single statement
func (s *PermissionStore) InsertGrants(ctx context.Context, target permission.Target, grants []permission.Grant) error {
	if len(grants) == 0 {
		return nil
	}
	db := s.db.WithContext(ctx)
	var err error

	switch target.Type {
	case permission.TargetRole:
		rows := make([]model.RoleGrant, 0, len(grants))
		for _, g := range grants {
			if !g.Allowed {
				return fmt.Errorf("denial of %s: only users carry denials", g.PermissionID)
			}
			rows = append(rows, model.RoleGrant{RoleID: target.ID, PermissionID: g.PermissionID, OrganizationID: target.OrganizationID})
		}
		err = db.Create(&rows).Error
	case permission.TargetDepartment:
		rows := make([]model.DepartmentGrant, 0, len(grants))
		for _, g := range grants {
			if !g.Allowed {
				return fmt.Errorf("denial of %s: only users carry denials", g.PermissionID)
			}
			rows = append(rows, model.DepartmentGrant{DepartmentID: target.ID, PermissionID: g.PermissionID, OrganizationID: target.OrganizationID})
		}
		err = db.Create(&rows).Error
	case permission.TargetUser:
		rows := make([]model.UserGrant, 0, len(grants))
		for _, g := range grants {
			rows = append(rows, model.UserGrant{UserID: target.ID, PermissionID: g.PermissionID, OrganizationID: target.OrganizationID, IsAllowed: g.Allowed})
		}
		err = db.Create(&rows).Error
	default:
		return fmt.Errorf("%w: %s", permission.ErrInvalidTarget, target.Type)
	}
	if err != nil {
		return fmt.Errorf("failed to insert %s grants: %w", target.Type, err)
	}
	return nil
}
