package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/leavedesk/apiserver/internal/identity"
	"github.com/leavedesk/apiserver/internal/notify"
	"github.com/leavedesk/apiserver/internal/services"
	"github.com/leavedesk/apiserver/internal/storage"
	"github.com/leavedesk/apiserver/internal/store"
	"github.com/leavedesk/apiserver/types"
	"golang.org/x/crypto/bcrypt"
)

// memoryStore is an in-memory stand-in for the SQL repositories, shared by
// the user and leave repository views so owner joins stay consistent.
type memoryStore struct {
	users     map[int]types.User
	requests  map[int]types.LeaveRequest
	nextUser  int
	nextLeave int
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		users:     make(map[int]types.User),
		requests:  make(map[int]types.LeaveRequest),
		nextUser:  1,
		nextLeave: 1,
	}
}

func (m *memoryStore) addUser(user types.User) types.User {
	user.ID = m.nextUser
	m.nextUser++
	m.users[user.ID] = user
	return user
}

func (m *memoryStore) owner(userID int) *types.RequestOwner {
	user, ok := m.users[userID]
	if !ok {
		return nil
	}
	owner := &types.RequestOwner{
		ID:           user.ID,
		EmployeeID:   user.EmployeeID,
		FirstName:    user.FirstName,
		MiddleName:   user.MiddleName,
		LastName:     user.LastName,
		Email:        user.Email,
		Role:         user.Role,
		SupervisorID: user.SupervisorID,
	}
	if user.SupervisorID != nil {
		if supervisor, ok := m.users[*user.SupervisorID]; ok {
			owner.SupervisorName = supervisor.FullName()
		}
	}
	return owner
}

type memoryUserRepo struct{ s *memoryStore }

func (r memoryUserRepo) GetByID(_ context.Context, id int) (types.User, error) {
	user, ok := r.s.users[id]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return user, nil
}

func (r memoryUserRepo) GetByEmployeeID(_ context.Context, employeeID string) (types.User, error) {
	for _, user := range r.s.users {
		if user.EmployeeID == employeeID {
			return user, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (r memoryUserRepo) GetByEmail(_ context.Context, email string) (types.User, error) {
	for _, user := range r.s.users {
		if strings.EqualFold(user.Email, email) {
			return user, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (r memoryUserRepo) Create(_ context.Context, user types.User) (types.User, error) {
	return r.s.addUser(user), nil
}

func (r memoryUserRepo) UpdatePassword(_ context.Context, id int, passwordHash string) error {
	user, ok := r.s.users[id]
	if !ok {
		return store.ErrNotFound
	}
	user.PasswordHash = passwordHash
	r.s.users[id] = user
	return nil
}

func (r memoryUserRepo) UpdateSupervisor(_ context.Context, id int, supervisorID *int) error {
	user, ok := r.s.users[id]
	if !ok {
		return store.ErrNotFound
	}
	user.SupervisorID = supervisorID
	r.s.users[id] = user
	return nil
}

func (r memoryUserRepo) Delete(_ context.Context, id int) error {
	if _, ok := r.s.users[id]; !ok {
		return store.ErrNotFound
	}
	delete(r.s.users, id)
	return nil
}

func (r memoryUserRepo) ListOverviews(_ context.Context) ([]types.UserOverview, error) {
	ids := make([]int, 0, len(r.s.users))
	for id := range r.s.users {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	overviews := make([]types.UserOverview, 0, len(ids))
	for _, id := range ids {
		overviews = append(overviews, types.UserOverview{User: r.s.users[id]})
	}
	return overviews, nil
}

func (r memoryUserRepo) CountDirectReports(_ context.Context, supervisorID int) (int, error) {
	count := 0
	for _, user := range r.s.users {
		if user.SupervisorID != nil && *user.SupervisorID == supervisorID {
			count++
		}
	}
	return count, nil
}

func (r memoryUserRepo) CountUnassignedEmployees(context.Context) (int, error) { return 0, nil }
func (r memoryUserRepo) CountNonAdmins(context.Context) (int, error)          { return 0, nil }

type memoryLeaveRepo struct{ s *memoryStore }

func (r memoryLeaveRepo) Create(_ context.Context, request types.LeaveRequest) (types.LeaveRequest, error) {
	request.ID = r.s.nextLeave
	r.s.nextLeave++
	request.Status = types.StatusPending
	request.CreatedAt = time.Now()
	request.Owner = r.s.owner(request.UserID)
	r.s.requests[request.ID] = request
	return request, nil
}

func (r memoryLeaveRepo) GetByID(_ context.Context, id int) (types.LeaveRequest, error) {
	request, ok := r.s.requests[id]
	if !ok {
		return types.LeaveRequest{}, store.ErrNotFound
	}
	request.Owner = r.s.owner(request.UserID)
	return request, nil
}

func (r memoryLeaveRepo) UpdateStatusFromPending(_ context.Context, id int, status types.LeaveStatus) error {
	request, ok := r.s.requests[id]
	if !ok || request.Status != types.StatusPending {
		return store.ErrNotFound
	}
	request.Status = status
	r.s.requests[id] = request
	return nil
}

func (r memoryLeaveRepo) Delete(_ context.Context, id int) error {
	if _, ok := r.s.requests[id]; !ok {
		return store.ErrNotFound
	}
	delete(r.s.requests, id)
	return nil
}

func (r memoryLeaveRepo) List(_ context.Context, filter store.LeaveFilter) ([]types.LeaveRequest, error) {
	ids := make([]int, 0, len(r.s.requests))
	for id := range r.s.requests {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	var out []types.LeaveRequest
	for _, id := range ids {
		request := r.s.requests[id]
		request.Owner = r.s.owner(request.UserID)
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
		out = append(out, request)
	}
	return out, nil
}

type testEnv struct {
	router *chi.Mux
	store  *memoryStore
	tokens *identity.JWTResolver

	admin      types.User
	supervisor types.User
	employee   types.User
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	mem := newMemoryStore()
	hash := func(password string) string {
		hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
		if err != nil {
			t.Fatalf("hash password: %v", err)
		}
		return string(hashed)
	}

	admin := mem.addUser(types.User{
		EmployeeID: "ADM001", Email: "admin@example.com", FirstName: "Ada", LastName: "Min",
		Role: types.RoleAdmin, PasswordHash: hash("secret123"),
	})
	supervisor := mem.addUser(types.User{
		EmployeeID: "SUP001", Email: "sup@example.com", FirstName: "Sue", LastName: "Pervisor",
		Role: types.RoleSupervisor, PasswordHash: hash("secret123"),
	})
	employee := mem.addUser(types.User{
		EmployeeID: "EMP001", Email: "emp@example.com", FirstName: "Ed", LastName: "Ployee",
		Role: types.RoleEmployee, SupervisorID: &supervisor.ID, PasswordHash: hash("secret123"),
	})

	users := memoryUserRepo{mem}
	leaves := memoryLeaveRepo{mem}

	events := notify.New(nil)
	userService := services.NewUserService(users, services.NewProvisionSaga(nil), events)
	hierarchyService := services.NewHierarchyService(users, events)
	leaveService := services.NewLeaveService(leaves, users, events)
	reportService := services.NewReportService(leaves, users, storage.NewArchive(nil))

	tokens := identity.NewJWTResolver("test-secret")
	authMiddleware := RequireAuth(tokens, userService)

	router := chi.NewRouter()
	router.Get("/healthz", Healthz)
	router.Route("/auth", func(r chi.Router) { AuthRouter(r, userService, tokens) })
	router.Route("/users", func(r chi.Router) { UserRouter(r, userService, hierarchyService, authMiddleware) })
	router.Route("/leave-requests", func(r chi.Router) { LeaveRouter(r, leaveService, authMiddleware) })
	router.Route("/reports", func(r chi.Router) { ReportRouter(r, reportService, authMiddleware) })

	return &testEnv{
		router:     router,
		store:      mem,
		tokens:     tokens,
		admin:      admin,
		supervisor: supervisor,
		employee:   employee,
	}
}

func (e *testEnv) token(t *testing.T, user types.User) string {
	t.Helper()
	token, err := e.tokens.Issue(user.ID)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return token
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	contentType := "application/json"
	switch payload := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case url.Values:
		reader = bytes.NewReader([]byte(payload.Encode()))
		contentType = "application/x-www-form-urlencoded"
	default:
		data, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", contentType)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	recorder := httptest.NewRecorder()
	e.router.ServeHTTP(recorder, req)
	return recorder
}

func decodeBody[T any](t *testing.T, recorder *httptest.ResponseRecorder) T {
	t.Helper()
	var value T
	if err := json.NewDecoder(recorder.Body).Decode(&value); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return value
}

func TestLoginEndpoint(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodPost, "/auth/login", "", map[string]string{
		"employee_id": "EMP001",
		"password":    "secret123",
	})
	if resp.Code != http.StatusOK {
		t.Fatalf("login status = %d: %s", resp.Code, resp.Body.String())
	}
	auth := decodeBody[AuthResponse](t, resp)
	if auth.Token == "" {
		t.Fatalf("missing token")
	}
	if auth.User.EmployeeID != "EMP001" {
		t.Fatalf("user = %+v", auth.User)
	}

	bad := env.do(t, http.MethodPost, "/auth/login", "", map[string]string{
		"employee_id": "EMP001",
		"password":    "wrong",
	})
	if bad.Code != http.StatusUnauthorized {
		t.Fatalf("bad password status = %d", bad.Code)
	}
}

func TestMeEndpoint(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodGet, "/auth/me", env.token(t, env.employee), nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("me status = %d", resp.Code)
	}
	me := decodeBody[types.User](t, resp)
	if me.ID != env.employee.ID {
		t.Fatalf("me id = %d, want %d", me.ID, env.employee.ID)
	}
	if strings.Contains(resp.Body.String(), "password_hash") {
		t.Fatalf("password hash leaked in response")
	}

	if resp := env.do(t, http.MethodGet, "/auth/me", "", nil); resp.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous me status = %d", resp.Code)
	}
}

func TestChangePasswordEndpoint(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodPost, "/auth/change-password", "", map[string]string{
		"employee_id":  "EMP001",
		"old_password": "secret123",
		"new_password": "rotated1",
	})
	if resp.Code != http.StatusOK {
		t.Fatalf("change status = %d: %s", resp.Code, resp.Body.String())
	}

	if resp := env.do(t, http.MethodPost, "/auth/login", "", map[string]string{
		"employee_id": "EMP001",
		"password":    "secret123",
	}); resp.Code != http.StatusUnauthorized {
		t.Fatalf("old password login status = %d", resp.Code)
	}
	if resp := env.do(t, http.MethodPost, "/auth/login", "", map[string]string{
		"employee_id": "EMP001",
		"password":    "rotated1",
	}); resp.Code != http.StatusOK {
		t.Fatalf("new password login status = %d", resp.Code)
	}

	// An unknown employee id gets the same 401 as a wrong password, so the
	// unauthenticated endpoint cannot be used to probe for accounts.
	if resp := env.do(t, http.MethodPost, "/auth/change-password", "", map[string]string{
		"employee_id":  "NOPE",
		"old_password": "secret123",
		"new_password": "rotated1",
	}); resp.Code != http.StatusUnauthorized {
		t.Fatalf("unknown employee change status = %d", resp.Code)
	}
}

func TestDeletedUserTokenStopsWorking(t *testing.T) {
	env := newTestEnv(t)
	token := env.token(t, env.employee)

	if resp := env.do(t, http.MethodDelete, "/users/3", env.token(t, env.admin), nil); resp.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d: %s", resp.Code, resp.Body.String())
	}
	if resp := env.do(t, http.MethodGet, "/auth/me", token, nil); resp.Code != http.StatusUnauthorized {
		t.Fatalf("deleted user me status = %d", resp.Code)
	}
}

type unavailableUserRepo struct{ memoryUserRepo }

func (unavailableUserRepo) GetByID(context.Context, int) (types.User, error) {
	return types.User{}, store.ErrUnavailable
}

func TestRequireAuthStoreOutage(t *testing.T) {
	repo := unavailableUserRepo{memoryUserRepo{newMemoryStore()}}
	userService := services.NewUserService(repo, services.NewProvisionSaga(nil), notify.New(nil))
	tokens := identity.NewJWTResolver("test-secret")

	router := chi.NewRouter()
	router.With(RequireAuth(tokens, userService)).Get("/ping", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	token, err := tokens.Issue(1)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)

	// A database outage is not an authentication failure.
	if recorder.Code != http.StatusServiceUnavailable {
		t.Fatalf("outage status = %d, want 503", recorder.Code)
	}
}

func TestUserRoutesRequireAdmin(t *testing.T) {
	env := newTestEnv(t)

	if resp := env.do(t, http.MethodGet, "/users", env.token(t, env.employee), nil); resp.Code != http.StatusForbidden {
		t.Fatalf("employee list users status = %d", resp.Code)
	}
	if resp := env.do(t, http.MethodGet, "/users", env.token(t, env.supervisor), nil); resp.Code != http.StatusForbidden {
		t.Fatalf("supervisor list users status = %d", resp.Code)
	}
	if resp := env.do(t, http.MethodGet, "/users", env.token(t, env.admin), nil); resp.Code != http.StatusOK {
		t.Fatalf("admin list users status = %d", resp.Code)
	}
}

func TestCreateUserEndpoint(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodPost, "/users", env.token(t, env.admin), map[string]any{
		"employee_id":   "EMP900",
		"email":         "nine@example.com",
		"first_name":    "Nine",
		"last_name":     "Hundred",
		"password":      "longenough",
		"role":          "employee",
		"supervisor_id": env.supervisor.ID,
	})
	if resp.Code != http.StatusCreated {
		t.Fatalf("create status = %d: %s", resp.Code, resp.Body.String())
	}
	created := decodeBody[types.User](t, resp)
	if created.Role != types.RoleEmployee {
		t.Fatalf("role = %q", created.Role)
	}
	if created.SupervisorID == nil || *created.SupervisorID != env.supervisor.ID {
		t.Fatalf("supervisor id = %v", created.SupervisorID)
	}

	dup := env.do(t, http.MethodPost, "/users", env.token(t, env.admin), map[string]any{
		"employee_id": "EMP001",
		"email":       "other@example.com",
		"first_name":  "Dup",
		"last_name":   "Licate",
		"password":    "longenough",
	})
	if dup.Code != http.StatusConflict {
		t.Fatalf("duplicate status = %d: %s", dup.Code, dup.Body.String())
	}
}

func TestAssignSupervisorEndpoint(t *testing.T) {
	env := newTestEnv(t)

	form := url.Values{}
	form.Set("employee_id", "3")
	form.Set("supervisor_id", "1")
	if resp := env.do(t, http.MethodPost, "/users/assign-supervisor", env.token(t, env.admin), form); resp.Code != http.StatusOK {
		t.Fatalf("assign status = %d: %s", resp.Code, resp.Body.String())
	}

	// An employee cannot be made a supervisor of anyone.
	form.Set("employee_id", "2")
	form.Set("supervisor_id", "3")
	if resp := env.do(t, http.MethodPost, "/users/assign-supervisor", env.token(t, env.admin), form); resp.Code != http.StatusBadRequest {
		t.Fatalf("bad role assign status = %d", resp.Code)
	}
}

func TestLeaveRequestFlow(t *testing.T) {
	env := newTestEnv(t)
	employeeToken := env.token(t, env.employee)
	supervisorToken := env.token(t, env.supervisor)

	created := env.do(t, http.MethodPost, "/leave-requests", employeeToken, map[string]string{
		"start_date": "2026-09-07",
		"end_date":   "2026-09-11",
		"reason":     "Family trip",
	})
	if created.Code != http.StatusCreated {
		t.Fatalf("create status = %d: %s", created.Code, created.Body.String())
	}
	request := decodeBody[types.LeaveRequest](t, created)
	if request.Status != types.StatusPending {
		t.Fatalf("status = %q", request.Status)
	}

	if resp := env.do(t, http.MethodPost, "/leave-requests", employeeToken, map[string]string{
		"start_date": "2026-09-11",
		"end_date":   "2026-09-07",
		"reason":     "x",
	}); resp.Code != http.StatusBadRequest {
		t.Fatalf("reversed dates status = %d", resp.Code)
	}

	// The employee cannot decide their own request.
	if resp := env.do(t, http.MethodPatch, "/leave-requests/1/status", employeeToken, map[string]string{
		"status": "APPROVED",
	}); resp.Code != http.StatusForbidden {
		t.Fatalf("self approve status = %d: %s", resp.Code, resp.Body.String())
	}

	approved := env.do(t, http.MethodPatch, "/leave-requests/1/status", supervisorToken, map[string]string{
		"status": "APPROVED",
	})
	if approved.Code != http.StatusOK {
		t.Fatalf("approve status = %d: %s", approved.Code, approved.Body.String())
	}
	if decoded := decodeBody[types.LeaveRequest](t, approved); decoded.Status != types.StatusApproved {
		t.Fatalf("approved status = %q", decoded.Status)
	}

	// Terminal requests accept no second decision.
	if resp := env.do(t, http.MethodPatch, "/leave-requests/1/status", supervisorToken, map[string]string{
		"status": "REJECTED",
	}); resp.Code != http.StatusConflict {
		t.Fatalf("second decision status = %d", resp.Code)
	}

	// Nor can the owner delete them anymore.
	if resp := env.do(t, http.MethodDelete, "/leave-requests/1", employeeToken, nil); resp.Code != http.StatusBadRequest {
		t.Fatalf("delete finalized status = %d", resp.Code)
	}
}

func TestListAndStatsEndpoints(t *testing.T) {
	env := newTestEnv(t)
	employeeToken := env.token(t, env.employee)

	for _, span := range [][2]string{{"2026-09-07", "2026-09-11"}, {"2026-10-01", "2026-10-02"}} {
		if resp := env.do(t, http.MethodPost, "/leave-requests", employeeToken, map[string]string{
			"start_date": span[0],
			"end_date":   span[1],
			"reason":     "trip",
		}); resp.Code != http.StatusCreated {
			t.Fatalf("create status = %d", resp.Code)
		}
	}

	list := env.do(t, http.MethodGet, "/leave-requests", employeeToken, nil)
	if list.Code != http.StatusOK {
		t.Fatalf("list status = %d", list.Code)
	}
	if requests := decodeBody[[]types.LeaveRequest](t, list); len(requests) != 2 {
		t.Fatalf("employee sees %d requests, want 2", len(requests))
	}

	if resp := env.do(t, http.MethodGet, "/leave-requests?status=BOGUS", env.token(t, env.admin), nil); resp.Code != http.StatusBadRequest {
		t.Fatalf("bad status filter status = %d", resp.Code)
	}

	stats := env.do(t, http.MethodGet, "/leave-requests/stats", env.token(t, env.supervisor), nil)
	if stats.Code != http.StatusOK {
		t.Fatalf("stats status = %d: %s", stats.Code, stats.Body.String())
	}
	decoded := decodeBody[types.DashboardStats](t, stats)
	if decoded.Pending != 2 {
		t.Fatalf("pending = %d, want 2", decoded.Pending)
	}
}

func TestExportEndpoint(t *testing.T) {
	env := newTestEnv(t)

	if resp := env.do(t, http.MethodGet, "/reports/export", env.token(t, env.employee), nil); resp.Code != http.StatusForbidden {
		t.Fatalf("employee export status = %d", resp.Code)
	}

	resp := env.do(t, http.MethodGet, "/reports/export?type=users&format=csv", env.token(t, env.admin), nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("export status = %d: %s", resp.Code, resp.Body.String())
	}
	if ct := resp.Header().Get("Content-Type"); ct != "text/csv" {
		t.Fatalf("content type = %q", ct)
	}
	if cd := resp.Header().Get("Content-Disposition"); !strings.Contains(cd, "users-report-") {
		t.Fatalf("content disposition = %q", cd)
	}
	if !strings.Contains(resp.Body.String(), `"Employee ID"`) {
		t.Fatalf("missing header row: %s", resp.Body.String())
	}

	if resp := env.do(t, http.MethodGet, "/reports/export?format=xml", env.token(t, env.admin), nil); resp.Code != http.StatusBadRequest {
		t.Fatalf("bad format status = %d", resp.Code)
	}
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t)
	resp := env.do(t, http.MethodGet, "/healthz", "", nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("healthz status = %d", resp.Code)
	}
}
