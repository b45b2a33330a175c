package audit

import (
	"fmt"
	"strconv"
)

// MatrixSaveEvent records a replacement of a target's grants
type MatrixSaveEvent struct {
	OperatorID     string
	ClientIP       string
	RequestID      string
	OrganizationID string
	TargetType     string
	TargetID       string
	Granted        int
	Denied         int
	Success        bool
	ErrorMessage   string
}

func (e MatrixSaveEvent) MessageID() string {
	return "matrix-save"
}

func (e MatrixSaveEvent) Message() string {
	if e.Success {
		return fmt.Sprintf("%s saved permissions of %s %s in %s (%d granted, %d denied)",
			e.OperatorID, e.TargetType, e.TargetID, e.OrganizationID, e.Granted, e.Denied)
	}
	msg := fmt.Sprintf("%s tried to save permissions of %s %s in %s", e.OperatorID, e.TargetType, e.TargetID, e.OrganizationID)
	if e.ErrorMessage != "" {
		msg += ": " + e.ErrorMessage
	}
	return msg
}

func (e MatrixSaveEvent) Severity() Severity {
	if e.Success {
		return SeverityNotice
	}
	return SeverityWarning
}

func (e MatrixSaveEvent) Facility() int {
	return FacilityAuthPriv
}

func (e MatrixSaveEvent) StructuredData() map[string]map[string]string {
	sd := map[string]map[string]string{
		SDIDAuth: {
			"user": e.OperatorID,
		},
		SDIDSubject: {
			"organization": e.OrganizationID,
			"type":         e.TargetType,
			"id":           e.TargetID,
		},
		SDIDClient: {
			"ip": e.ClientIP,
		},
		SDIDAction: {
			"operation": "save",
			"granted":   strconv.Itoa(e.Granted),
			"denied":    strconv.Itoa(e.Denied),
		},
	}
	if e.RequestID != "" {
		sd[SDIDClient]["request"] = e.RequestID
	}
	if e.Success {
		sd[SDIDAction]["result"] = "success"
	} else {
		sd[SDIDAction]["result"] = "failure"
	}
	return sd
}
