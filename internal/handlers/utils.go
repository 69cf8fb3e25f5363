package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/leavedesk/apiserver/internal/services"
	"github.com/leavedesk/apiserver/internal/store"
	"github.com/leavedesk/apiserver/types"
)

type contextKey string

const contextUserKey contextKey = "user"

var (
	errInvalidUserID    = errors.New("invalid user id")
	errInvalidRequestID = errors.New("invalid request id")
)

// ErrorResponse is a simple error payload.
type ErrorResponse struct {
	Error string `json:"error"`
}

func currentUser(ctx context.Context) (types.User, error) {
	user, ok := ctx.Value(contextUserKey).(types.User)
	if !ok || user.ID < 1 {
		return types.User{}, errors.New("missing user")
	}
	return user, nil
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}

// writeServiceError maps the service and store sentinels onto HTTP
// statuses. Unknown errors become a 500 with the given fallback message
// so internals never leak to the client.
func writeServiceError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, services.ErrMissingFields),
		errors.Is(err, services.ErrInvalidEmail),
		errors.Is(err, services.ErrWeakPassword),
		errors.Is(err, services.ErrShortPassword),
		errors.Is(err, services.ErrSamePassword),
		errors.Is(err, services.ErrInvalidRole),
		errors.Is(err, services.ErrInvalidDateRange),
		errors.Is(err, services.ErrEmptyReason),
		errors.Is(err, services.ErrInvalidStatusFilter),
		errors.Is(err, services.ErrInvalidFormat),
		errors.Is(err, services.ErrInvalidReportType),
		errors.Is(err, services.ErrNotSupervisorRole),
		errors.Is(err, services.ErrSelfSupervision),
		errors.Is(err, services.ErrSupervisionCycle),
		errors.Is(err, services.ErrSelfDelete),
		errors.Is(err, services.ErrNotPending):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, services.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, services.ErrNotAuthorized):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, services.ErrAlreadyFinalized),
		errors.Is(err, store.ErrDuplicateEmployeeID),
		errors.Is(err, store.ErrDuplicateEmail),
		errors.Is(err, store.ErrDuplicate):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, store.ErrUnavailable):
		writeError(w, http.StatusServiceUnavailable, "service unavailable")
	default:
		writeError(w, http.StatusInternalServerError, fallback)
	}
}
