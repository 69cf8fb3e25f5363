package services

import "errors"

// Validation errors reported back to the caller with a 400.
var (
	ErrMissingFields    = errors.New("missing required fields")
	ErrInvalidEmail     = errors.New("invalid email address")
	ErrWeakPassword     = errors.New("password must be at least 8 characters")
	ErrShortPassword    = errors.New("password must be at least 6 characters")
	ErrSamePassword     = errors.New("new password must be different from current password")
	ErrInvalidRole      = errors.New("invalid role")
	ErrInvalidDateRange = errors.New("end date must be after start date")
	ErrEmptyReason      = errors.New("reason is required")

	ErrInvalidStatusFilter = errors.New("invalid status filter")
)

// Authorization and lifecycle errors.
var (
	// ErrInvalidCredentials never reveals which field was wrong.
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNotAuthorized      = errors.New("not authorized")
	ErrSelfDelete         = errors.New("cannot delete own account")
	ErrAlreadyFinalized   = errors.New("request has already been approved or rejected")
	ErrNotPending         = errors.New("only pending requests can be deleted")
)

// Hierarchy errors.
var (
	ErrNotSupervisorRole = errors.New("selected user is not authorized to be a supervisor")
	ErrSelfSupervision   = errors.New("user cannot supervise themselves")
	ErrSupervisionCycle  = errors.New("assignment would create a supervision cycle")
)
