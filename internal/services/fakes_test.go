package services

import (
	"context"
	"sort"
	"strings"

	"github.com/leavedesk/apiserver/internal/store"
	"github.com/leavedesk/apiserver/types"
)

// fakeUserRepo is an in-memory UserRepository.
type fakeUserRepo struct {
	users  map[int]types.User
	nextID int

	createErr error
	deleteErr error
}

func newFakeUserRepo(users ...types.User) *fakeUserRepo {
	repo := &fakeUserRepo{users: make(map[int]types.User), nextID: 1}
	for _, user := range users {
		if user.ID >= repo.nextID {
			repo.nextID = user.ID + 1
		}
		repo.users[user.ID] = user
	}
	return repo
}

func (f *fakeUserRepo) GetByID(_ context.Context, id int) (types.User, error) {
	user, ok := f.users[id]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return user, nil
}

func (f *fakeUserRepo) GetByEmployeeID(_ context.Context, employeeID string) (types.User, error) {
	for _, user := range f.users {
		if user.EmployeeID == employeeID {
			return user, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (f *fakeUserRepo) GetByEmail(_ context.Context, email string) (types.User, error) {
	for _, user := range f.users {
		if strings.EqualFold(user.Email, email) {
			return user, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (f *fakeUserRepo) Create(_ context.Context, user types.User) (types.User, error) {
	if f.createErr != nil {
		return types.User{}, f.createErr
	}
	user.ID = f.nextID
	f.nextID++
	f.users[user.ID] = user
	return user, nil
}

func (f *fakeUserRepo) UpdatePassword(_ context.Context, id int, passwordHash string) error {
	user, ok := f.users[id]
	if !ok {
		return store.ErrNotFound
	}
	user.PasswordHash = passwordHash
	f.users[id] = user
	return nil
}

func (f *fakeUserRepo) UpdateSupervisor(_ context.Context, id int, supervisorID *int) error {
	user, ok := f.users[id]
	if !ok {
		return store.ErrNotFound
	}
	user.SupervisorID = supervisorID
	f.users[id] = user
	return nil
}

func (f *fakeUserRepo) Delete(_ context.Context, id int) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	if _, ok := f.users[id]; !ok {
		return store.ErrNotFound
	}
	delete(f.users, id)
	return nil
}

func (f *fakeUserRepo) ListOverviews(_ context.Context) ([]types.UserOverview, error) {
	ids := make([]int, 0, len(f.users))
	for id := range f.users {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	overviews := make([]types.UserOverview, 0, len(ids))
	for _, id := range ids {
		user := f.users[id]
		overview := types.UserOverview{User: user}
		if user.SupervisorID != nil {
			if supervisor, ok := f.users[*user.SupervisorID]; ok {
				overview.SupervisorName = supervisor.FullName()
			}
		}
		for _, other := range f.users {
			if other.SupervisorID != nil && *other.SupervisorID == id {
				overview.DirectReportCount++
			}
		}
		overviews = append(overviews, overview)
	}
	return overviews, nil
}

func (f *fakeUserRepo) CountDirectReports(_ context.Context, supervisorID int) (int, error) {
	count := 0
	for _, user := range f.users {
		if user.SupervisorID != nil && *user.SupervisorID == supervisorID {
			count++
		}
	}
	return count, nil
}

func (f *fakeUserRepo) CountUnassignedEmployees(_ context.Context) (int, error) {
	count := 0
	for _, user := range f.users {
		if user.Role == types.RoleEmployee && user.SupervisorID == nil {
			count++
		}
	}
	return count, nil
}

func (f *fakeUserRepo) CountNonAdmins(_ context.Context) (int, error) {
	count := 0
	for _, user := range f.users {
		if user.Role != types.RoleAdmin {
			count++
		}
	}
	return count, nil
}

// fakeLeaveRepo is an in-memory LeaveRepository. Requests must be stored
// with Owner populated for supervisor scoping and name filters to work.
type fakeLeaveRepo struct {
	requests map[int]types.LeaveRequest
	nextID   int
}

func newFakeLeaveRepo(requests ...types.LeaveRequest) *fakeLeaveRepo {
	repo := &fakeLeaveRepo{requests: make(map[int]types.LeaveRequest), nextID: 1}
	for _, request := range requests {
		if request.ID >= repo.nextID {
			repo.nextID = request.ID + 1
		}
		repo.requests[request.ID] = request
	}
	return repo
}

func (f *fakeLeaveRepo) Create(_ context.Context, request types.LeaveRequest) (types.LeaveRequest, error) {
	request.ID = f.nextID
	f.nextID++
	request.Status = types.StatusPending
	f.requests[request.ID] = request
	return request, nil
}

func (f *fakeLeaveRepo) GetByID(_ context.Context, id int) (types.LeaveRequest, error) {
	request, ok := f.requests[id]
	if !ok {
		return types.LeaveRequest{}, store.ErrNotFound
	}
	return request, nil
}

func (f *fakeLeaveRepo) UpdateStatusFromPending(_ context.Context, id int, status types.LeaveStatus) error {
	request, ok := f.requests[id]
	if !ok || request.Status != types.StatusPending {
		return store.ErrNotFound
	}
	request.Status = status
	f.requests[id] = request
	return nil
}

func (f *fakeLeaveRepo) Delete(_ context.Context, id int) error {
	if _, ok := f.requests[id]; !ok {
		return store.ErrNotFound
	}
	delete(f.requests, id)
	return nil
}

func (f *fakeLeaveRepo) List(_ context.Context, filter store.LeaveFilter) ([]types.LeaveRequest, error) {
	ids := make([]int, 0, len(f.requests))
	for id := range f.requests {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	var out []types.LeaveRequest
	for _, id := range ids {
		request := f.requests[id]
		if filter.OwnerID != nil && request.UserID != *filter.OwnerID {
			continue
		}
		if filter.SupervisorID != nil {
			if request.Owner == nil || request.Owner.SupervisorID == nil ||
				*request.Owner.SupervisorID != *filter.SupervisorID {
				continue
			}
		}
		if filter.Status != "" && request.Status != filter.Status {
			continue
		}
		if filter.Name != "" {
			if request.Owner == nil ||
				!strings.Contains(strings.ToLower(request.Owner.FullName()), strings.ToLower(filter.Name)) {
				continue
			}
		}
		if !filter.CreatedFrom.IsZero() && request.CreatedAt.Before(filter.CreatedFrom) {
			continue
		}
		if !filter.CreatedTo.IsZero() && !request.CreatedAt.Before(filter.CreatedTo) {
			continue
		}
		out = append(out, request)
	}
	return out, nil
}
