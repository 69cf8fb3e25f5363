package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/leavedesk/apiserver/internal/identity"
	"github.com/leavedesk/apiserver/internal/services"
	"github.com/leavedesk/apiserver/types"
)

// AuthHandler provides authentication and self-service account endpoints.
type AuthHandler struct {
	userService *services.UserService
	tokens      *identity.JWTResolver
}

// NewAuthHandler constructs an AuthHandler with the provided dependencies.
func NewAuthHandler(userService *services.UserService, tokens *identity.JWTResolver) *AuthHandler {
	return &AuthHandler{userService: userService, tokens: tokens}
}

// AuthRouter registers auth routes on the given router.
func AuthRouter(r chi.Router, userService *services.UserService, tokens *identity.JWTResolver) {
	handler := NewAuthHandler(userService, tokens)
	authMiddleware := RequireAuth(tokens, userService)

	r.Post("/login", handler.Login)
	r.Post("/register", handler.Register)
	r.Post("/change-password", handler.ChangePassword)
	r.Post("/forgot-password", handler.ForgotPassword)
	r.With(authMiddleware).Get("/me", handler.Me)
}

type LoginRequest struct {
	EmployeeID string `json:"employee_id"`
	Password   string `json:"password"`
}

type RegisterRequest struct {
	EmployeeID string `json:"employee_id"`
	Email      string `json:"email"`
	FirstName  string `json:"first_name"`
	MiddleName string `json:"middle_name"`
	LastName   string `json:"last_name"`
	Phone      string `json:"phone"`
	Password   string `json:"password"`
}

type ChangePasswordRequest struct {
	EmployeeID  string `json:"employee_id"`
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

type ForgotPasswordRequest struct {
	EmployeeID  string `json:"employee_id"`
	NewPassword string `json:"new_password"`
}

type AuthResponse struct {
	Token string     `json:"token"`
	User  types.User `json:"user"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

// Login verifies employee id and password and returns a JWT.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	if req.EmployeeID == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "missing credentials")
		return
	}

	user, err := h.userService.Authenticate(r.Context(), req.EmployeeID, req.Password)
	if err != nil {
		writeServiceError(w, err, "failed to authenticate")
		return
	}

	token, err := h.tokens.Issue(user.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create token")
		return
	}

	writeJSON(w, http.StatusOK, AuthResponse{Token: token, User: user})
}

// Register creates a self-service employee account and returns a JWT.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	user, err := h.userService.Create(r.Context(), services.CreateUserParams{
		EmployeeID: req.EmployeeID,
		Email:      req.Email,
		FirstName:  req.FirstName,
		MiddleName: req.MiddleName,
		LastName:   req.LastName,
		Phone:      req.Phone,
		Password:   req.Password,
		Role:       types.RoleEmployee,
	})
	if err != nil {
		writeServiceError(w, err, "failed to register")
		return
	}

	token, err := h.tokens.Issue(user.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create token")
		return
	}

	writeJSON(w, http.StatusCreated, AuthResponse{Token: token, User: user})
}

// Me returns the current authenticated user.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// ChangePassword rotates a password. The employee id plus the old password
// act as the credential, so no bearer token is required.
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req ChangePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	if req.EmployeeID == "" {
		writeError(w, http.StatusBadRequest, "employee_id is required")
		return
	}

	if err := h.userService.ChangePassword(r.Context(), req.EmployeeID, req.OldPassword, req.NewPassword); err != nil {
		writeServiceError(w, err, "failed to change password")
		return
	}

	writeJSON(w, http.StatusOK, MessageResponse{Message: "password changed"})
}

// ForgotPassword resets a password by employee id without authentication.
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req ForgotPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	if _, err := h.userService.ForgotPassword(r.Context(), req.EmployeeID, req.NewPassword); err != nil {
		writeServiceError(w, err, "failed to reset password")
		return
	}

	// Without a new password this only confirms the account exists.
	message := "password reset"
	if req.NewPassword == "" {
		message = "account verified"
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: message})
}
