package types

// UserOverview is a user joined with the aggregates shown in admin listings
// and the users report.
type UserOverview struct {
	User           User   `json:"user"`
	SupervisorName string `json:"supervisor_name,omitempty"`

	// LeaveRequestCount is the total number of requests the user has filed.
	LeaveRequestCount int `json:"leave_request_count"`

	// DirectReportCount is the number of users reporting to this user.
	DirectReportCount int `json:"direct_report_count"`
}

// DashboardStats summarizes the requests visible to a caller. The pointer
// fields are populated only for the roles they apply to.
type DashboardStats struct {
	Pending           int  `json:"pending"`
	ApprovedThisMonth int  `json:"approved_this_month"`
	Rejected          int  `json:"rejected"`
	Total             int  `json:"total"`
	EmployeesUnder    *int `json:"employees_under,omitempty"`
	RequestsToday     *int `json:"requests_today,omitempty"`
	TotalEmployees    *int `json:"total_employees,omitempty"`
	UnassignedCount   *int `json:"unassigned_employees,omitempty"`
}
