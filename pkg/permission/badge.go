package permission

// Badge annotates a matrix entry with where it is inherited from.
type Badge struct {
	Role bool `json:"role"`
	Dept bool `json:"department"`
	Bold bool `json:"bold"`
}

// BadgeFor computes the badge for a permission. The department badge is
// shown on user targets only; a department never shows its own grants as
// inherited.
func BadgeFor(permissionID string, inheritedRole, inheritedDept IDSet, targetType TargetType) Badge {
	role := inheritedRole.Has(permissionID)
	dept := inheritedDept.Has(permissionID)
	return Badge{
		Role: role,
		Dept: dept && targetType == TargetUser,
		Bold: role || dept,
	}
}

// Labels returns the badge texts in display order.
func (b Badge) Labels() []string {
	var labels []string
	if b.Role {
		labels = append(labels, "ROLE")
	}
	if b.Dept {
		labels = append(labels, "DEPT")
	}
	return labels
}
