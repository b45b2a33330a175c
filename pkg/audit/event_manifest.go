package audit

import (
	"fmt"
	"strconv"
)

// ManifestEvent represents a manifest apply audit event
type ManifestEvent struct {
	OperatorID     string
	Path           string
	OrganizationID string
	Targets        int
	Success        bool
	ErrorMessage   string
}

func (e ManifestEvent) MessageID() string {
	return "manifest"
}

func (e ManifestEvent) Message() string {
	if e.Success {
		return fmt.Sprintf("%s applied manifest %s to %s (%d targets)", e.OperatorID, e.Path, e.OrganizationID, e.Targets)
	}
	msg := fmt.Sprintf("%s tried to apply manifest %s to %s", e.OperatorID, e.Path, e.OrganizationID)
	if e.ErrorMessage != "" {
		msg += ": " + e.ErrorMessage
	}
	return msg
}

func (e ManifestEvent) Severity() Severity {
	if e.Success {
		return SeverityNotice
	}
	return SeverityWarning
}

func (e ManifestEvent) Facility() int {
	return FacilityAuthPriv
}

func (e ManifestEvent) StructuredData() map[string]map[string]string {
	result := "success"
	if !e.Success {
		result = "failure"
	}
	return map[string]map[string]string{
		SDIDAuth: {
			"user": e.OperatorID,
		},
		SDIDManifest: {
			"path":         e.Path,
			"organization": e.OrganizationID,
			"targets":      strconv.Itoa(e.Targets),
		},
		SDIDAction: {
			"operation": "apply",
			"result":    result,
		},
	}
}
