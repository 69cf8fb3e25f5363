package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/leavedesk/apiserver/internal/services"
	"github.com/leavedesk/apiserver/types"
)

// LeaveHandler provides leave request endpoints.
type LeaveHandler struct {
	leaveService *services.LeaveService
}

// NewLeaveHandler constructs a LeaveHandler with the provided dependencies.
func NewLeaveHandler(leaveService *services.LeaveService) *LeaveHandler {
	return &LeaveHandler{leaveService: leaveService}
}

// LeaveRouter registers leave request routes. All routes require
// authentication; the service layer enforces role scoping.
func LeaveRouter(r chi.Router, leaveService *services.LeaveService, authMiddleware func(http.Handler) http.Handler) {
	handler := NewLeaveHandler(leaveService)

	r.Use(authMiddleware)
	r.Get("/", handler.ListRequests)
	r.Post("/", handler.CreateRequest)
	r.Get("/stats", handler.Stats)
	r.Route("/{requestID}", func(r chi.Router) {
		r.Patch("/status", handler.UpdateStatus)
		r.Delete("/", handler.DeleteRequest)
	})
}

type CreateLeaveRequest struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	Reason    string `json:"reason"`
}

type UpdateStatusRequest struct {
	Status string `json:"status"`
}

// CreateRequest submits a new leave request for the caller. Dates accept
// either YYYY-MM-DD or RFC 3339.
func (h *LeaveHandler) CreateRequest(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req CreateLeaveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	start, err := parseDate(req.StartDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid start date")
		return
	}
	end, err := parseDate(req.EndDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid end date")
		return
	}

	created, err := h.leaveService.Create(r.Context(), user.ID, start, end, req.Reason)
	if err != nil {
		writeServiceError(w, err, "failed to create request")
		return
	}

	writeJSON(w, http.StatusCreated, created)
}

// ListRequests returns the requests visible to the caller. Supervisors and
// admins may filter by owner name and status.
func (h *LeaveHandler) ListRequests(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	filter := services.ListFilter{
		Name:   strings.TrimSpace(r.URL.Query().Get("name")),
		Status: types.LeaveStatus(strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("status")))),
	}

	requests, err := h.leaveService.ListFor(r.Context(), user, filter)
	if err != nil {
		writeServiceError(w, err, "failed to list requests")
		return
	}

	writeJSON(w, http.StatusOK, requests)
}

// UpdateStatus approves or rejects a pending request.
func (h *LeaveHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	requestID, err := parseRequestID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req UpdateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	var updated types.LeaveRequest
	switch types.LeaveStatus(strings.ToUpper(strings.TrimSpace(req.Status))) {
	case types.StatusApproved:
		updated, err = h.leaveService.Approve(r.Context(), user, requestID)
	case types.StatusRejected:
		updated, err = h.leaveService.Reject(r.Context(), user, requestID)
	default:
		writeError(w, http.StatusBadRequest, "status must be APPROVED or REJECTED")
		return
	}
	if err != nil {
		writeServiceError(w, err, "failed to update request")
		return
	}

	writeJSON(w, http.StatusOK, updated)
}

// DeleteRequest withdraws the caller's own pending request.
func (h *LeaveHandler) DeleteRequest(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	requestID, err := parseRequestID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.leaveService.Delete(r.Context(), user.ID, requestID); err != nil {
		writeServiceError(w, err, "failed to delete request")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Stats returns the caller's dashboard counters.
func (h *LeaveHandler) Stats(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	stats, err := h.leaveService.StatsFor(r.Context(), user)
	if err != nil {
		writeServiceError(w, err, "failed to load stats")
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

func parseRequestID(r *http.Request) (int, error) {
	raw := chi.URLParam(r, "requestID")
	id, err := strconv.Atoi(raw)
	if err != nil || id < 1 {
		return 0, errInvalidRequestID
	}
	return id, nil
}

func parseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if parsed, err := time.Parse("2006-01-02", value); err == nil {
		return parsed, nil
	}
	return time.Parse(time.RFC3339, value)
}
