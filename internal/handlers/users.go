package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/leavedesk/apiserver/internal/services"
	"github.com/leavedesk/apiserver/types"
)

// UserHandler provides admin user management endpoints.
type UserHandler struct {
	userService      *services.UserService
	hierarchyService *services.HierarchyService
}

// NewUserHandler constructs a UserHandler with the provided dependencies.
func NewUserHandler(userService *services.UserService, hierarchyService *services.HierarchyService) *UserHandler {
	return &UserHandler{userService: userService, hierarchyService: hierarchyService}
}

// UserRouter registers user management routes. All routes require an
// authenticated admin.
func UserRouter(
	r chi.Router,
	userService *services.UserService,
	hierarchyService *services.HierarchyService,
	authMiddleware func(http.Handler) http.Handler,
) {
	handler := NewUserHandler(userService, hierarchyService)

	r.Use(authMiddleware, requireRole(types.RoleAdmin))
	r.Get("/", handler.ListUsers)
	r.Post("/", handler.CreateUser)
	r.Post("/assign-supervisor", handler.AssignSupervisor)
	r.Route("/{userID}", func(r chi.Router) {
		r.Delete("/", handler.DeleteUser)
		r.Post("/reset-password", handler.ResetPassword)
	})
}

type CreateUserRequest struct {
	EmployeeID   string `json:"employee_id"`
	Email        string `json:"email"`
	FirstName    string `json:"first_name"`
	MiddleName   string `json:"middle_name"`
	LastName     string `json:"last_name"`
	Phone        string `json:"phone"`
	Password     string `json:"password"`
	Role         string `json:"role"`
	SupervisorID *int   `json:"supervisor_id"`
	Nationality  string `json:"nationality"`
	JobTitle     string `json:"job_title"`
	StoreCode    string `json:"store_code"`
	NationalID   string `json:"national_id"`
	GosiType     string `json:"gosi_type"`
}

type ResetPasswordResponse struct {
	Message      string `json:"message"`
	TempPassword string `json:"temp_password"`
}

// ListUsers returns every user with supervisor name and activity counts.
func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	overviews, err := h.userService.ListOverviews(r.Context())
	if err != nil {
		writeServiceError(w, err, "failed to list users")
		return
	}
	writeJSON(w, http.StatusOK, overviews)
}

// CreateUser provisions a new account with an explicit role.
func (h *UserHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	role := types.Role(strings.ToUpper(strings.TrimSpace(req.Role)))
	if role == "" {
		role = types.RoleEmployee
	}

	user, err := h.userService.Create(r.Context(), services.CreateUserParams{
		EmployeeID:   req.EmployeeID,
		Email:        req.Email,
		FirstName:    req.FirstName,
		MiddleName:   req.MiddleName,
		LastName:     req.LastName,
		Phone:        req.Phone,
		Password:     req.Password,
		Role:         role,
		SupervisorID: req.SupervisorID,
		Nationality:  req.Nationality,
		JobTitle:     req.JobTitle,
		StoreCode:    req.StoreCode,
		NationalID:   req.NationalID,
		GosiType:     req.GosiType,
	})
	if err != nil {
		writeServiceError(w, err, "failed to create user")
		return
	}

	writeJSON(w, http.StatusCreated, user)
}

// DeleteUser removes an account. Admins cannot delete themselves.
func (h *UserHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	actor, err := currentUser(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	userID, err := parseUserID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.userService.Delete(r.Context(), actor.ID, userID); err != nil {
		writeServiceError(w, err, "failed to delete user")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ResetPassword issues a one-time temporary password for the target user.
// The plaintext is returned once in the response and never stored.
func (h *UserHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	userID, err := parseUserID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	temporary, err := h.userService.ResetPassword(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err, "failed to reset password")
		return
	}

	writeJSON(w, http.StatusOK, ResetPasswordResponse{
		Message:      "password reset",
		TempPassword: temporary,
	})
}

// AssignSupervisor sets or clears an employee's supervisor. The payload is
// form-encoded: employee_id plus an optional supervisor_id, where an absent
// or empty supervisor_id clears the assignment.
func (h *UserHandler) AssignSupervisor(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid form")
		return
	}

	employeeID, err := strconv.Atoi(strings.TrimSpace(r.FormValue("employee_id")))
	if err != nil || employeeID < 1 {
		writeError(w, http.StatusBadRequest, "invalid employee id")
		return
	}

	var supervisorID *int
	if raw := strings.TrimSpace(r.FormValue("supervisor_id")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			writeError(w, http.StatusBadRequest, "invalid supervisor id")
			return
		}
		supervisorID = &parsed
	}

	if err := h.hierarchyService.AssignSupervisor(r.Context(), employeeID, supervisorID); err != nil {
		writeServiceError(w, err, "failed to assign supervisor")
		return
	}

	writeJSON(w, http.StatusOK, MessageResponse{Message: "supervisor updated"})
}

func parseUserID(r *http.Request) (int, error) {
	raw := chi.URLParam(r, "userID")
	id, err := strconv.Atoi(raw)
	if err != nil || id < 1 {
		return 0, errInvalidUserID
	}
	return id, nil
}
