package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/leavedesk/apiserver/internal/storage"
	"github.com/leavedesk/apiserver/internal/store"
	"github.com/leavedesk/apiserver/types"
)

// Export formats and report types accepted by the export endpoint.
const (
	FormatCSV  = "csv"
	FormatJSON = "json"

	ReportLeaveRequests = "leave-requests"
	ReportUsers         = "users"
)

// ExportParams narrows an export.
type ExportParams struct {
	Format      string
	Type        string
	CreatedFrom time.Time
	CreatedTo   time.Time
}

// Export is a finished report document.
type Export struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Errors specific to report building.
var (
	ErrInvalidFormat     = fmt.Errorf("invalid format, use %s or %s", FormatCSV, FormatJSON)
	ErrInvalidReportType = fmt.Errorf("invalid report type, use %s or %s", ReportLeaveRequests, ReportUsers)
)

// ReportService builds read-only CSV/JSON projections of requests and users.
type ReportService struct {
	leaves  LeaveRepository
	users   UserRepository
	archive *storage.Archive
}

func NewReportService(leaves LeaveRepository, users UserRepository, archive *storage.Archive) *ReportService {
	return &ReportService{leaves: leaves, users: users, archive: archive}
}

// Export builds the requested report for the caller. Supervisors only see
// their direct reports' requests; the users report is admin-only. The export
// is archived to object storage when a backend is configured, best-effort.
func (s *ReportService) Export(ctx context.Context, caller types.User, params ExportParams) (Export, error) {
	if caller.Role != types.RoleAdmin && caller.Role != types.RoleSupervisor {
		return Export{}, ErrNotAuthorized
	}
	if params.Format != FormatCSV && params.Format != FormatJSON {
		return Export{}, ErrInvalidFormat
	}

	var (
		export Export
		err    error
	)
	switch params.Type {
	case ReportLeaveRequests:
		export, err = s.leaveRequestsReport(ctx, caller, params)
	case ReportUsers:
		if caller.Role != types.RoleAdmin {
			return Export{}, ErrNotAuthorized
		}
		export, err = s.usersReport(ctx, params)
	default:
		return Export{}, ErrInvalidReportType
	}
	if err != nil {
		return Export{}, err
	}

	if s.archive.Enabled() {
		if archiveErr := s.archive.SaveReport(ctx, export.Filename, export.ContentType, export.Data); archiveErr != nil {
			log.Printf("report: archive %s: %v", export.Filename, archiveErr)
		}
	}
	return export, nil
}

type leaveReportRow struct {
	RequestID     int    `json:"Request ID"`
	EmployeeName  string `json:"Employee Name"`
	EmployeeID    string `json:"Employee ID"`
	Email         string `json:"Email"`
	Role          string `json:"Role"`
	Supervisor    string `json:"Supervisor"`
	StartDate     string `json:"Start Date"`
	EndDate       string `json:"End Date"`
	Reason        string `json:"Reason"`
	Status        string `json:"Status"`
	CreatedAt     string `json:"Created At"`
	DaysRequested int    `json:"Days Requested"`
}

var leaveReportHeaders = []string{
	"Request ID", "Employee Name", "Employee ID", "Email", "Role", "Supervisor",
	"Start Date", "End Date", "Reason", "Status", "Created At", "Days Requested",
}

func (s *ReportService) leaveRequestsReport(ctx context.Context, caller types.User, params ExportParams) (Export, error) {
	filter := store.LeaveFilter{
		CreatedFrom: params.CreatedFrom,
		CreatedTo:   params.CreatedTo,
	}
	if caller.Role == types.RoleSupervisor {
		filter.SupervisorID = &caller.ID
	}

	requests, err := s.leaves.List(ctx, filter)
	if err != nil {
		return Export{}, err
	}

	rows := make([]leaveReportRow, 0, len(requests))
	for _, request := range requests {
		row := leaveReportRow{
			RequestID:     request.ID,
			Supervisor:    "N/A",
			StartDate:     request.StartDate.Format("2006-01-02"),
			EndDate:       request.EndDate.Format("2006-01-02"),
			Reason:        request.Reason,
			Status:        string(request.Status),
			CreatedAt:     request.CreatedAt.Format("2006-01-02"),
			DaysRequested: request.DaysRequested(),
		}
		if owner := request.Owner; owner != nil {
			row.EmployeeName = owner.FullName()
			row.EmployeeID = owner.EmployeeID
			row.Email = owner.Email
			row.Role = string(owner.Role)
			if owner.SupervisorName != "" {
				row.Supervisor = owner.SupervisorName
			}
		}
		rows = append(rows, row)
	}

	filename := fmt.Sprintf("leave-requests-%s", time.Now().Format("2006-01-02"))
	return renderExport(filename, params.Format, leaveReportHeaders, func() [][]string {
		cells := make([][]string, len(rows))
		for i, row := range rows {
			cells[i] = []string{
				fmt.Sprint(row.RequestID), row.EmployeeName, row.EmployeeID, row.Email,
				row.Role, row.Supervisor, row.StartDate, row.EndDate, row.Reason,
				row.Status, row.CreatedAt, fmt.Sprint(row.DaysRequested),
			}
		}
		return cells
	}, rows)
}

type userReportRow struct {
	UserID         int    `json:"User ID"`
	Name           string `json:"Name"`
	EmployeeID     string `json:"Employee ID"`
	Email          string `json:"Email"`
	Phone          string `json:"Phone"`
	Role           string `json:"Role"`
	Supervisor     string `json:"Supervisor"`
	TotalRequests  int    `json:"Total Leave Requests"`
	EmployeesUnder int    `json:"Employees Under Management"`
	CreatedAt      string `json:"Created At"`
}

var userReportHeaders = []string{
	"User ID", "Name", "Employee ID", "Email", "Phone", "Role", "Supervisor",
	"Total Leave Requests", "Employees Under Management", "Created At",
}

func (s *ReportService) usersReport(ctx context.Context, params ExportParams) (Export, error) {
	overviews, err := s.users.ListOverviews(ctx)
	if err != nil {
		return Export{}, err
	}

	rows := make([]userReportRow, 0, len(overviews))
	for _, overview := range overviews {
		user := overview.User
		row := userReportRow{
			UserID:         user.ID,
			Name:           user.FullName(),
			EmployeeID:     user.EmployeeID,
			Email:          user.Email,
			Phone:          user.Phone,
			Role:           string(user.Role),
			Supervisor:     overview.SupervisorName,
			TotalRequests:  overview.LeaveRequestCount,
			EmployeesUnder: overview.DirectReportCount,
			CreatedAt:      user.CreatedAt.Format("2006-01-02"),
		}
		if row.Phone == "" {
			row.Phone = "N/A"
		}
		if row.Supervisor == "" {
			row.Supervisor = "N/A"
		}
		rows = append(rows, row)
	}

	filename := fmt.Sprintf("users-report-%s", time.Now().Format("2006-01-02"))
	return renderExport(filename, params.Format, userReportHeaders, func() [][]string {
		cells := make([][]string, len(rows))
		for i, row := range rows {
			cells[i] = []string{
				fmt.Sprint(row.UserID), row.Name, row.EmployeeID, row.Email, row.Phone,
				row.Role, row.Supervisor, fmt.Sprint(row.TotalRequests),
				fmt.Sprint(row.EmployeesUnder), row.CreatedAt,
			}
		}
		return cells
	}, rows)
}

func renderExport(filename, format string, headers []string, cells func() [][]string, rows any) (Export, error) {
	switch format {
	case FormatCSV:
		return Export{
			Filename:    filename + ".csv",
			ContentType: "text/csv",
			Data:        []byte(encodeCSV(headers, cells())),
		}, nil
	case FormatJSON:
		data, err := json.MarshalIndent(rows, "", "  ")
		if err != nil {
			return Export{}, err
		}
		return Export{
			Filename:    filename + ".json",
			ContentType: "application/json",
			Data:        data,
		}, nil
	default:
		return Export{}, ErrInvalidFormat
	}
}

// encodeCSV renders a quoted header row plus one quoted row per record.
// Every field is double-quoted with embedded quotes doubled. An empty record
// set renders as an empty document.
func encodeCSV(headers []string, rows [][]string) string {
	if len(rows) == 0 {
		return ""
	}

	lines := make([]string, 0, len(rows)+1)
	lines = append(lines, quoteRow(headers))
	for _, row := range rows {
		lines = append(lines, quoteRow(row))
	}
	return strings.Join(lines, "\n")
}

func quoteRow(fields []string) string {
	quoted := make([]string, len(fields))
	for i, field := range fields {
		quoted[i] = `"` + strings.ReplaceAll(field, `"`, `""`) + `"`
	}
	return strings.Join(quoted, ",")
}
