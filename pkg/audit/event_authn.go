package audit

import "fmt"

// AuthenticateEvent represents an operator token check
type AuthenticateEvent struct {
	Subject        string
	OrganizationID string
	ClientIP       string
	Success        bool
	ErrorMessage   string
}

func (e AuthenticateEvent) MessageID() string {
	return "authn"
}

func (e AuthenticateEvent) Message() string {
	subject := e.Subject
	if subject == "" {
		subject = "anonymous"
	}
	if e.Success {
		return fmt.Sprintf("%s successfully authenticated for organization %s", subject, e.OrganizationID)
	}
	msg := fmt.Sprintf("%s failed to authenticate for organization %s", subject, e.OrganizationID)
	if e.ErrorMessage != "" {
		msg += ": " + e.ErrorMessage
	}
	return msg
}

func (e AuthenticateEvent) Severity() Severity {
	if e.Success {
		return SeverityInfo
	}
	return SeverityWarning
}

func (e AuthenticateEvent) Facility() int {
	return FacilityAuth
}

func (e AuthenticateEvent) StructuredData() map[string]map[string]string {
	return map[string]map[string]string{
		SDIDAuth: {
			"user":         e.Subject,
			"organization": e.OrganizationID,
		},
		SDIDClient: {
			"ip": e.ClientIP,
		},
	}
}
