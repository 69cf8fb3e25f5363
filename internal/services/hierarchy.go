package services

import (
	"context"
	"errors"

	"github.com/leavedesk/apiserver/internal/notify"
	"github.com/leavedesk/apiserver/internal/store"
	"github.com/leavedesk/apiserver/types"
)

// HierarchyService maintains supervisor assignments between users.
type HierarchyService struct {
	repo   UserRepository
	events *notify.Events
}

func NewHierarchyService(repo UserRepository, events *notify.Events) *HierarchyService {
	return &HierarchyService{repo: repo, events: events}
}

// AssignSupervisor sets or clears an employee's supervisor. The target
// supervisor must hold role SUPERVISOR or ADMIN, may not be the employee
// themselves, and the link may not close a supervision cycle.
func (h *HierarchyService) AssignSupervisor(ctx context.Context, employeeID int, supervisorID *int) error {
	employee, err := h.repo.GetByID(ctx, employeeID)
	if err != nil {
		return err
	}

	if supervisorID != nil {
		if *supervisorID == employeeID {
			return ErrSelfSupervision
		}

		supervisor, err := h.repo.GetByID(ctx, *supervisorID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrNotSupervisorRole
			}
			return err
		}
		if supervisor.Role != types.RoleSupervisor && supervisor.Role != types.RoleAdmin {
			return ErrNotSupervisorRole
		}

		if err := h.checkCycle(ctx, employee.ID, supervisor); err != nil {
			return err
		}
	}

	if err := h.repo.UpdateSupervisor(ctx, employeeID, supervisorID); err != nil {
		return err
	}

	h.events.Publish(ctx, notify.Event{
		Kind:     "supervisor.assigned",
		Paths:    []string{notify.PathDashboard, notify.PathTeam, notify.PathUsers},
		EntityID: employeeID,
	})
	return nil
}

// checkCycle walks the supervisor chain upward from the proposed supervisor.
// Reaching the employee means the assignment would close a loop.
func (h *HierarchyService) checkCycle(ctx context.Context, employeeID int, supervisor types.User) error {
	seen := map[int]bool{employeeID: true}
	current := supervisor
	for {
		if seen[current.ID] {
			return ErrSupervisionCycle
		}
		seen[current.ID] = true

		if current.SupervisorID == nil {
			return nil
		}
		next, err := h.repo.GetByID(ctx, *current.SupervisorID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil
			}
			return err
		}
		current = next
	}
}

// DirectReportCount returns the number of direct reports for a user.
func (h *HierarchyService) DirectReportCount(ctx context.Context, supervisorID int) (int, error) {
	return h.repo.CountDirectReports(ctx, supervisorID)
}

// UnassignedEmployeeCount returns the number of EMPLOYEE-role users with no
// supervisor.
func (h *HierarchyService) UnassignedEmployeeCount(ctx context.Context) (int, error) {
	return h.repo.CountUnassignedEmployees(ctx)
}
