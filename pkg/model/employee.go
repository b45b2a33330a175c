package model

// Employee links a user to at most one role and one department inside an
// organization. Users without a row inherit nothing.
type Employee struct {
	UserID         string  `gorm:"column:user_id;primaryKey"`
	OrganizationID string  `gorm:"column:organization_id;primaryKey"`
	Name           string  `gorm:"column:name"`
	RoleID         *string `gorm:"column:role_id"`
	DepartmentID   *string `gorm:"column:department_id"`
}

func (Employee) TableName() string {
	return "employees"
}
