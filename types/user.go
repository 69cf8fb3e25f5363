package types

import (
	"strings"
	"time"
)

// Role is the closed set of authorization levels in the system.
type Role string

const (
	RoleEmployee   Role = "EMPLOYEE"
	RoleSupervisor Role = "SUPERVISOR"
	RoleAdmin      Role = "ADMIN"
)

// ValidRole reports whether role is one of the known roles.
func ValidRole(role Role) bool {
	switch role {
	case RoleEmployee, RoleSupervisor, RoleAdmin:
		return true
	default:
		return false
	}
}

// User represents an account in the system.
// It contains identity, role, hierarchy, and audit metadata.
type User struct {
	// ID is the unique identifier of the user.
	ID int `json:"id" db:"id"`

	// EmployeeID is the unique company-issued employee identifier.
	EmployeeID string `json:"employee_id" db:"employee_id"`

	// Email is the user's email address, stored lowercase and unique.
	Email string `json:"email" db:"email"`

	// FirstName, MiddleName, and LastName compose the user's legal name.
	// MiddleName may be empty.
	FirstName  string `json:"first_name" db:"first_name"`
	MiddleName string `json:"middle_name,omitempty" db:"middle_name"`
	LastName   string `json:"last_name" db:"last_name"`

	// Phone is an optional contact number.
	Phone string `json:"phone,omitempty" db:"phone"`

	// Role indicates the user's authorization level within the system.
	Role Role `json:"role" db:"role"`

	// SupervisorID references the user this employee reports to.
	// Nil for users with no supervisor; always nil for admins.
	SupervisorID *int `json:"supervisor_id,omitempty" db:"supervisor_id"`

	// PasswordHash stores the hashed representation of the user's password.
	// This field is never exposed in API responses.
	PasswordHash string `json:"-" db:"password_hash"`

	// HR enrichment fields imported from payroll records. Informational
	// only; none of them affect the leave lifecycle.
	Nationality string `json:"nationality,omitempty" db:"nationality"`
	JobTitle    string `json:"job_title,omitempty" db:"job_title"`
	StoreCode   string `json:"store_code,omitempty" db:"store_code"`
	NationalID  string `json:"national_id,omitempty" db:"national_id"`
	GosiType    string `json:"gosi_type,omitempty" db:"gosi_type"`

	// CreatedAt is the timestamp when the user account was created.
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent update to the user account.
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// FullName renders the user's display name, skipping an empty middle name.
func (u User) FullName() string {
	parts := make([]string, 0, 3)
	for _, part := range []string{u.FirstName, u.MiddleName, u.LastName} {
		if strings.TrimSpace(part) != "" {
			parts = append(parts, strings.TrimSpace(part))
		}
	}
	return strings.Join(parts, " ")
}
