package access

import "errors"

var (
	// ErrPermissionDenied indicates the acting user resolved fine but the
	// requested operation violates ownership or role policy.
	ErrPermissionDenied = errors.New("access: permission denied")
	// ErrWrongDataManipulator indicates a strategy was paired with a record
	// kind it does not support. This is a programming error, not a runtime
	// authorization decision.
	ErrWrongDataManipulator = errors.New("access: wrong data manipulator for record kind")
	// ErrUnknownUserAccount indicates a service lookup by username or token
	// found no match.
	ErrUnknownUserAccount = errors.New("access: unknown user account")
	// ErrServiceUserNotConfigured indicates the bridge service account
	// credentials were never provided.
	ErrServiceUserNotConfigured = errors.New("access: service user not configured")
	// ErrInvalidRecord indicates a record failed field validation.
	ErrInvalidRecord = errors.New("access: invalid record")
)
