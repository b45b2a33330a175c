package manifest

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/doodlesbykumbi/orgperm/pkg/model"
	"github.com/doodlesbykumbi/orgperm/pkg/permission"
	gormstore "github.com/doodlesbykumbi/orgperm/pkg/server/store/gorm"
)

// Ensure GormStore implements Store
var _ Store = (*GormStore)(nil)

// GormStore implements Store using GORM for database operations.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GormStore.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// Transaction wraps operations in a database transaction.
func (s *GormStore) Transaction(ctx context.Context, fn func(Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormStore{db: tx})
	})
}

// Permissions returns a grant store on the same connection or transaction.
func (s *GormStore) Permissions() permission.Store {
	return gormstore.NewPermissionStore(s.db)
}

// UpsertPermission creates or updates a catalog entry.
func (s *GormStore) UpsertPermission(ctx context.Context, p permission.Permission) error {
	row := model.Permission{
		ID:       p.ID,
		Key:      p.Key,
		Name:     p.Name,
		SuiteKey: p.SuiteKey,
		Category: p.Category,
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"key", "name", "suite_key", "category"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("failed to upsert permission %s: %w", p.ID, err)
	}
	return nil
}

// AllowPermissions adds ids to the organization's allow-list.
func (s *GormStore) AllowPermissions(ctx context.Context, organizationID string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	rows := make([]model.OrganizationPermission, 0, len(ids))
	for _, id := range ids {
		rows = append(rows, model.OrganizationPermission{OrganizationID: organizationID, PermissionID: id})
	}
	if err := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error; err != nil {
		return fmt.Errorf("failed to allow permissions: %w", err)
	}
	return nil
}

// UpsertRole creates a role or renames it.
func (s *GormStore) UpsertRole(ctx context.Context, organizationID, id, name string) error {
	row := model.Role{ID: id, OrganizationID: organizationID, Name: name}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}, {Name: "organization_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("failed to upsert role %s: %w", id, err)
	}
	return nil
}

// UpsertDepartment creates a department or renames it.
func (s *GormStore) UpsertDepartment(ctx context.Context, organizationID, id, name string) error {
	row := model.Department{ID: id, OrganizationID: organizationID, Name: name}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}, {Name: "organization_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("failed to upsert department %s: %w", id, err)
	}
	return nil
}

// UpsertEmployee sets a user's role and department.
func (s *GormStore) UpsertEmployee(ctx context.Context, organizationID string, e Employee) error {
	row := model.Employee{
		UserID:         e.User,
		OrganizationID: organizationID,
		Name:           e.Name,
		RoleID:         optional(e.Role),
		DepartmentID:   optional(e.Department),
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "organization_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "role_id", "department_id"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("failed to upsert employee %s: %w", e.User, err)
	}
	return nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
