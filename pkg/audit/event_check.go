package audit

import "fmt"

// CheckEvent represents a permission check audit event
type CheckEvent struct {
	OperatorID     string
	ClientIP       string
	OrganizationID string
	UserID         string
	PermissionKey  string
	Allowed        bool
}

func (e CheckEvent) MessageID() string {
	return "check"
}

func (e CheckEvent) Message() string {
	if e.Allowed {
		return fmt.Sprintf("%s checked permission %s of %s in %s: allowed", e.OperatorID, e.PermissionKey, e.UserID, e.OrganizationID)
	}
	return fmt.Sprintf("%s checked permission %s of %s in %s: denied", e.OperatorID, e.PermissionKey, e.UserID, e.OrganizationID)
}

func (e CheckEvent) Severity() Severity {
	return SeverityInfo
}

func (e CheckEvent) Facility() int {
	return FacilityAuthPriv
}

func (e CheckEvent) StructuredData() map[string]map[string]string {
	result := "success"
	if !e.Allowed {
		result = "failure"
	}
	return map[string]map[string]string{
		SDIDAuth: {
			"user": e.OperatorID,
		},
		SDIDSubject: {
			"organization": e.OrganizationID,
			"user":         e.UserID,
			"permission":   e.PermissionKey,
		},
		SDIDClient: {
			"ip": e.ClientIP,
		},
		SDIDAction: {
			"operation": "check",
			"result":    result,
		},
	}
}
