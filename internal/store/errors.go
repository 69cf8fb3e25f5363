package store

import (
	"errors"
	"strings"

	"github.com/lib/pq"
)

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateEmployeeID is returned when the employee id unique
	// constraint fires.
	ErrDuplicateEmployeeID = errors.New("employee id already exists")

	// ErrDuplicateEmail is returned when the email unique constraint fires.
	ErrDuplicateEmail = errors.New("email already exists")

	// ErrDuplicate is returned for a uniqueness violation that cannot be
	// attributed to a specific field.
	ErrDuplicate = errors.New("already exists")

	// ErrUnavailable is returned when the database cannot be reached.
	ErrUnavailable = errors.New("database unavailable")
)

const (
	pqUniqueViolation = "23505"

	constraintEmployeeID = "users_employee_id_key"
	constraintEmail      = "users_email_key"
)

// translateError maps driver errors onto the store sentinels. The unique
// constraint is the authoritative uniqueness guard, so a racing insert
// surfaces as a duplicate error here rather than a raw driver error.
func translateError(err error) error {
	if err == nil {
		return nil
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch {
		case pqErr.Code == pqUniqueViolation && pqErr.Constraint == constraintEmployeeID:
			return ErrDuplicateEmployeeID
		case pqErr.Code == pqUniqueViolation && pqErr.Constraint == constraintEmail:
			return ErrDuplicateEmail
		case pqErr.Code == pqUniqueViolation:
			return ErrDuplicate
		case pqErr.Code.Class() == "08": // connection exceptions
			return ErrUnavailable
		}
		return err
	}

	if strings.Contains(err.Error(), "connection refused") {
		return ErrUnavailable
	}
	return err
}
