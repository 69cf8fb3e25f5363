package types

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// LeaveStatus is the lifecycle state of a leave request.
type LeaveStatus string

const (
	StatusPending  LeaveStatus = "PENDING"
	StatusApproved LeaveStatus = "APPROVED"
	StatusRejected LeaveStatus = "REJECTED"
)

// ValidStatus reports whether status is one of the known lifecycle states.
func ValidStatus(status LeaveStatus) bool {
	switch status {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	default:
		return false
	}
}

// Terminal reports whether the status permits no further transitions.
func (s LeaveStatus) Terminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// LeaveRequest is a time-bounded absence request owned by one user.
type LeaveRequest struct {
	ID        int         `json:"id" db:"id"`
	UserID    int         `json:"user_id" db:"user_id"`
	StartDate time.Time   `json:"start_date" db:"start_date"`
	EndDate   time.Time   `json:"end_date" db:"end_date"`
	Reason    string      `json:"reason" db:"reason"`
	Status    LeaveStatus `json:"status" db:"status"`
	CreatedAt time.Time   `json:"created_at" db:"created_at"`

	// Owner carries the owning user's listing fields when the request was
	// loaded with its owner joined in. Nil otherwise.
	Owner *RequestOwner `json:"owner,omitempty"`
}

// MarshalJSON includes the derived day span alongside the stored fields.
func (r LeaveRequest) MarshalJSON() ([]byte, error) {
	type plain LeaveRequest
	return json.Marshal(struct {
		plain
		DaysRequested int `json:"days_requested"`
	}{plain(r), r.DaysRequested()})
}

// RequestOwner is the subset of User columns joined into request listings.
type RequestOwner struct {
	ID           int    `json:"id"`
	EmployeeID   string `json:"employee_id"`
	FirstName    string `json:"first_name"`
	MiddleName   string `json:"middle_name,omitempty"`
	LastName     string `json:"last_name"`
	Email        string `json:"email"`
	Role         Role   `json:"role"`
	SupervisorID *int   `json:"supervisor_id,omitempty"`

	// SupervisorName is the owner's supervisor's display name, empty when
	// the owner has no supervisor.
	SupervisorName string `json:"supervisor_name,omitempty"`
}

// FullName renders the owner's display name, skipping an empty middle name.
func (o RequestOwner) FullName() string {
	parts := make([]string, 0, 3)
	for _, part := range []string{o.FirstName, o.MiddleName, o.LastName} {
		if strings.TrimSpace(part) != "" {
			parts = append(parts, strings.TrimSpace(part))
		}
	}
	return strings.Join(parts, " ")
}

// DaysRequested returns the inclusive day span of the request:
// ceil((end-start)/24h) + 1.
func (r LeaveRequest) DaysRequested() int {
	diff := r.EndDate.Sub(r.StartDate)
	days := int(diff / (24 * time.Hour))
	if diff%(24*time.Hour) != 0 {
		days++
	}
	return days + 1
}

// DurationBreakdown renders the raw span as a human-readable days/hours/minutes
// string, largest unit first.
func (r LeaveRequest) DurationBreakdown() string {
	diff := r.EndDate.Sub(r.StartDate)
	if diff <= 0 {
		return "invalid: end must be after start"
	}

	totalMinutes := int(diff / time.Minute)
	totalHours := totalMinutes / 60
	days := totalHours / 24
	hours := totalHours % 24
	minutes := totalMinutes % 60

	switch {
	case days > 0:
		if hours > 0 || minutes > 0 {
			return fmt.Sprintf("%s, %s, %s", plural(days, "day"), plural(hours, "hour"), plural(minutes, "minute"))
		}
		return plural(days, "day")
	case totalHours > 0:
		if minutes > 0 {
			return fmt.Sprintf("%s, %s", plural(totalHours, "hour"), plural(minutes, "minute"))
		}
		return plural(totalHours, "hour")
	default:
		return plural(totalMinutes, "minute")
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
