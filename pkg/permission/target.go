package permission

import "fmt"

//go:generate go run github.com/dmarkham/enumer -type TargetType -trimprefix Target -transform lower -json -yaml -output target_type.gen.go

// TargetType is the kind of principal whose grants are edited.
type TargetType int

const (
	TargetRole TargetType = iota
	TargetDepartment
	TargetUser
)

// Target identifies whose grants are loaded or saved.
type Target struct {
	Type           TargetType `json:"type" yaml:"type"`
	ID             string     `json:"id" yaml:"id"`
	OrganizationID string     `json:"organization_id" yaml:"organization_id"`

	// ParentRoleID is the role a department sits under. Only department
	// targets use it; it is ignored for roles and users.
	ParentRoleID string `json:"parent_role_id,omitempty" yaml:"parent_role_id,omitempty"`
}

// Validate reports ErrInvalidTarget when the target cannot be resolved.
func (t Target) Validate() error {
	if !t.Type.IsATargetType() {
		return fmt.Errorf("%w: unknown type %d", ErrInvalidTarget, int(t.Type))
	}
	if t.ID == "" {
		return fmt.Errorf("%w: %s id is empty", ErrInvalidTarget, t.Type)
	}
	if t.OrganizationID == "" {
		return fmt.Errorf("%w: organization id is empty", ErrInvalidTarget)
	}
	return nil
}

func (t Target) String() string {
	return fmt.Sprintf("%s:%s@%s", t.Type, t.ID, t.OrganizationID)
}
