package model

// RoleGrant gives every holder of a role a permission.
type RoleGrant struct {
	RoleID         string `gorm:"column:role_id;primaryKey"`
	PermissionID   string `gorm:"column:permission_id;primaryKey"`
	OrganizationID string `gorm:"column:organization_id;primaryKey"`
}

func (RoleGrant) TableName() string {
	return "role_permissions"
}

// DepartmentGrant gives every member of a department a permission.
type DepartmentGrant struct {
	DepartmentID   string `gorm:"column:department_id;primaryKey"`
	PermissionID   string `gorm:"column:permission_id;primaryKey"`
	OrganizationID string `gorm:"column:organization_id;primaryKey"`
}

func (DepartmentGrant) TableName() string {
	return "department_permissions"
}

// UserGrant is an explicit per-user row. IsAllowed=false records a denial
// of a permission the user would otherwise inherit.
type UserGrant struct {
	UserID         string `gorm:"column:user_id;primaryKey"`
	PermissionID   string `gorm:"column:permission_id;primaryKey"`
	OrganizationID string `gorm:"column:organization_id;primaryKey"`
	IsAllowed      bool   `gorm:"column:is_allowed;not null"`
}

func (UserGrant) TableName() string {
	return "user_permissions"
}
