package model

// Permission is a catalog entry. Whether an organization may use it is
// decided by OrganizationPermission.
type Permission struct {
	ID       string `gorm:"column:id;primaryKey"`
	Key      string `gorm:"column:key;not null"`
	Name     string `gorm:"column:name;not null"`
	SuiteKey string `gorm:"column:suite_key;not null"`
	Category string `gorm:"column:category;not null"`
}

func (Permission) TableName() string {
	return "permissions"
}

// OrganizationPermission is one row of an organization's allow-list.
type OrganizationPermission struct {
	OrganizationID string `gorm:"column:organization_id;primaryKey"`
	PermissionID   string `gorm:"column:permission_id;primaryKey"`
}

func (OrganizationPermission) TableName() string {
	return "organization_permissions"
}
