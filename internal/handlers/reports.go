package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/leavedesk/apiserver/internal/services"
	"github.com/leavedesk/apiserver/types"
)

// ReportHandler provides report export endpoints.
type ReportHandler struct {
	reportService *services.ReportService
}

// NewReportHandler constructs a ReportHandler with the provided dependencies.
func NewReportHandler(reportService *services.ReportService) *ReportHandler {
	return &ReportHandler{reportService: reportService}
}

// ReportRouter registers report routes. Exports are limited to supervisors
// and admins; the service narrows further per report type.
func ReportRouter(r chi.Router, reportService *services.ReportService, authMiddleware func(http.Handler) http.Handler) {
	handler := NewReportHandler(reportService)

	r.With(authMiddleware, requireRole(types.RoleSupervisor, types.RoleAdmin)).Get("/export", handler.Export)
}

// Export streams a CSV or JSON report as a file download. Query parameters:
// type (leave-requests or users), format (csv or json), and optional
// start_date/end_date bounds on creation time.
func (h *ReportHandler) Export(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	query := r.URL.Query()
	params := services.ExportParams{
		Format: strings.ToLower(strings.TrimSpace(query.Get("format"))),
		Type:   strings.ToLower(strings.TrimSpace(query.Get("type"))),
	}
	if params.Format == "" {
		params.Format = services.FormatCSV
	}
	if params.Type == "" {
		params.Type = services.ReportLeaveRequests
	}

	if raw := strings.TrimSpace(query.Get("start_date")); raw != "" {
		from, err := parseDate(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid start date")
			return
		}
		params.CreatedFrom = from
	}
	if raw := strings.TrimSpace(query.Get("end_date")); raw != "" {
		to, err := parseDate(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid end date")
			return
		}
		// The stored bound is exclusive; include the whole end day.
		params.CreatedTo = to.AddDate(0, 0, 1)
	}

	export, err := h.reportService.Export(r.Context(), user, params)
	if err != nil {
		writeServiceError(w, err, "failed to build report")
		return
	}

	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.Filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(export.Data)
}
