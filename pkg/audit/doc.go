// Package audit provides audit logging for permission changes.
//
// Events are written as RFC5424 syslog lines to stdout and, when
// AUDIT_DATABASE_URL is set, to the messages table of that database.
//
// # Event Types
//
//   - AuthenticateEvent: operator token presented to the wrong organization
//   - MatrixSaveEvent: a role, department or user matrix was replaced
//   - CheckEvent: an effective permission was checked
//   - ManifestEvent: a manifest was applied
//
// # Usage
//
//	audit.Log(audit.MatrixSaveEvent{
//	    OperatorID:     "alice",
//	    OrganizationID: "acme",
//	    TargetType:     "user",
//	    TargetID:       "u1",
//	    Success:        true,
//	})
package audit
