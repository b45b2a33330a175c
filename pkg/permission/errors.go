package permission

import "errors"

var (
	// ErrInvalidTarget is returned for a target with an unknown type or a
	// missing id or organization.
	ErrInvalidTarget = errors.New("invalid target")

	// ErrUnknownPermission is returned when an id or key is not in the
	// organization's catalog.
	ErrUnknownPermission = errors.New("permission not in organization catalog")
)
