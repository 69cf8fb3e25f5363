package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/leavedesk/apiserver/internal/notify"
	"github.com/leavedesk/apiserver/internal/store"
	"github.com/leavedesk/apiserver/types"
)

// LeaveRepository defines persistence operations for leave requests.
type LeaveRepository interface {
	Create(ctx context.Context, request types.LeaveRequest) (types.LeaveRequest, error)
	GetByID(ctx context.Context, id int) (types.LeaveRequest, error)
	UpdateStatusFromPending(ctx context.Context, id int, status types.LeaveStatus) error
	Delete(ctx context.Context, id int) error
	List(ctx context.Context, filter store.LeaveFilter) ([]types.LeaveRequest, error)
}

// LeaveService drives the request lifecycle: PENDING at creation, a single
// transition to APPROVED or REJECTED by an authorized actor, and deletion by
// the owner while still pending.
type LeaveService struct {
	repo   LeaveRepository
	users  UserRepository
	events *notify.Events
}

func NewLeaveService(repo LeaveRepository, users UserRepository, events *notify.Events) *LeaveService {
	return &LeaveService{repo: repo, users: users, events: events}
}

// Create files a new request for the owner. The span must be strictly
// positive and the reason non-empty after trimming.
func (s *LeaveService) Create(ctx context.Context, ownerID int, startDate, endDate time.Time, reason string) (types.LeaveRequest, error) {
	if !startDate.Before(endDate) {
		return types.LeaveRequest{}, ErrInvalidDateRange
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return types.LeaveRequest{}, ErrEmptyReason
	}

	created, err := s.repo.Create(ctx, types.LeaveRequest{
		UserID:    ownerID,
		StartDate: startDate,
		EndDate:   endDate,
		Reason:    reason,
	})
	if err != nil {
		return types.LeaveRequest{}, err
	}

	s.events.Publish(ctx, notify.Event{
		Kind:     "leave_request.created",
		Paths:    []string{notify.PathDashboard, notify.PathRequests},
		ActorID:  ownerID,
		EntityID: created.ID,
	})
	return created, nil
}

// Approve transitions a pending request to APPROVED.
func (s *LeaveService) Approve(ctx context.Context, actor types.User, requestID int) (types.LeaveRequest, error) {
	return s.finalize(ctx, actor, requestID, types.StatusApproved)
}

// Reject transitions a pending request to REJECTED.
func (s *LeaveService) Reject(ctx context.Context, actor types.User, requestID int) (types.LeaveRequest, error) {
	return s.finalize(ctx, actor, requestID, types.StatusRejected)
}

func (s *LeaveService) finalize(ctx context.Context, actor types.User, requestID int, status types.LeaveStatus) (types.LeaveRequest, error) {
	request, err := s.repo.GetByID(ctx, requestID)
	if err != nil {
		return types.LeaveRequest{}, err
	}

	if !s.mayDecide(actor, request) {
		return types.LeaveRequest{}, ErrNotAuthorized
	}
	if request.Status.Terminal() {
		return types.LeaveRequest{}, ErrAlreadyFinalized
	}

	if err := s.repo.UpdateStatusFromPending(ctx, requestID, status); err != nil {
		// A race with another approver lands here: the row exists but is
		// no longer pending.
		if errors.Is(err, store.ErrNotFound) {
			return types.LeaveRequest{}, ErrAlreadyFinalized
		}
		return types.LeaveRequest{}, err
	}
	request.Status = status

	s.events.Publish(ctx, notify.Event{
		Kind:     "leave_request." + strings.ToLower(string(status)),
		Paths:    []string{notify.PathDashboard, notify.PathTeam, notify.PathAllRequests},
		ActorID:  actor.ID,
		EntityID: requestID,
	})
	return request, nil
}

// mayDecide reports whether the actor may approve or reject the request:
// an admin, or the owner's direct supervisor.
func (s *LeaveService) mayDecide(actor types.User, request types.LeaveRequest) bool {
	if actor.Role == types.RoleAdmin {
		return true
	}
	if actor.Role != types.RoleSupervisor || request.Owner == nil {
		return false
	}
	return request.Owner.SupervisorID != nil && *request.Owner.SupervisorID == actor.ID
}

// Delete removes a request. Only the owner may delete, and only while the
// request is still pending.
func (s *LeaveService) Delete(ctx context.Context, actorID, requestID int) error {
	request, err := s.repo.GetByID(ctx, requestID)
	if err != nil {
		return err
	}
	if request.UserID != actorID {
		return ErrNotAuthorized
	}
	if request.Status != types.StatusPending {
		return ErrNotPending
	}

	if err := s.repo.Delete(ctx, requestID); err != nil {
		return err
	}

	s.events.Publish(ctx, notify.Event{
		Kind:     "leave_request.deleted",
		Paths:    []string{notify.PathDashboard, notify.PathRequests},
		ActorID:  actorID,
		EntityID: requestID,
	})
	return nil
}

// ListFilter narrows listings for supervisors and admins.
type ListFilter struct {
	Name   string
	Status types.LeaveStatus
}

// ListFor returns the requests visible to the caller, most recent first:
// employees see their own, supervisors their direct reports', admins all.
// Name/status filters apply to supervisor and admin scopes only.
func (s *LeaveService) ListFor(ctx context.Context, caller types.User, filter ListFilter) ([]types.LeaveRequest, error) {
	if filter.Status != "" && !types.ValidStatus(filter.Status) {
		return nil, ErrInvalidStatusFilter
	}

	switch caller.Role {
	case types.RoleEmployee:
		return s.repo.List(ctx, store.LeaveFilter{OwnerID: &caller.ID})
	case types.RoleSupervisor:
		return s.repo.List(ctx, store.LeaveFilter{
			SupervisorID: &caller.ID,
			Name:         filter.Name,
			Status:       filter.Status,
		})
	case types.RoleAdmin:
		return s.repo.List(ctx, store.LeaveFilter{
			Name:   filter.Name,
			Status: filter.Status,
		})
	default:
		return nil, ErrNotAuthorized
	}
}

// StatsFor computes the dashboard summary for the caller's visible scope.
func (s *LeaveService) StatsFor(ctx context.Context, caller types.User) (types.DashboardStats, error) {
	visible, err := s.ListFor(ctx, caller, ListFilter{})
	if err != nil {
		return types.DashboardStats{}, err
	}

	now := time.Now()
	var stats types.DashboardStats
	for _, request := range visible {
		stats.Total++
		switch request.Status {
		case types.StatusPending:
			stats.Pending++
		case types.StatusRejected:
			stats.Rejected++
		case types.StatusApproved:
			if request.CreatedAt.Month() == now.Month() && request.CreatedAt.Year() == now.Year() {
				stats.ApprovedThisMonth++
			}
		}
	}

	switch caller.Role {
	case types.RoleSupervisor:
		under, err := s.users.CountDirectReports(ctx, caller.ID)
		if err != nil {
			return types.DashboardStats{}, err
		}
		today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
		todays, err := s.repo.List(ctx, store.LeaveFilter{
			SupervisorID: &caller.ID,
			CreatedFrom:  today,
			CreatedTo:    today.AddDate(0, 0, 1),
		})
		if err != nil {
			return types.DashboardStats{}, err
		}
		count := len(todays)
		stats.EmployeesUnder = &under
		stats.RequestsToday = &count
	case types.RoleAdmin:
		total, err := s.users.CountNonAdmins(ctx)
		if err != nil {
			return types.DashboardStats{}, err
		}
		unassigned, err := s.users.CountUnassignedEmployees(ctx)
		if err != nil {
			return types.DashboardStats{}, err
		}
		stats.TotalEmployees = &total
		stats.UnassignedCount = &unassigned
	}
	return stats, nil
}
