package services

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/leavedesk/apiserver/internal/directory"
	"github.com/leavedesk/apiserver/internal/notify"
	"github.com/leavedesk/apiserver/internal/store"
	"github.com/leavedesk/apiserver/types"
	"golang.org/x/crypto/bcrypt"
)

const (
	minPasswordLength       = 8
	minChangePasswordLength = 6
	bcryptCost              = 12
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id int) (types.User, error)
	GetByEmployeeID(ctx context.Context, employeeID string) (types.User, error)
	GetByEmail(ctx context.Context, email string) (types.User, error)
	Create(ctx context.Context, user types.User) (types.User, error)
	UpdatePassword(ctx context.Context, id int, passwordHash string) error
	UpdateSupervisor(ctx context.Context, id int, supervisorID *int) error
	Delete(ctx context.Context, id int) error
	ListOverviews(ctx context.Context) ([]types.UserOverview, error)
	CountDirectReports(ctx context.Context, supervisorID int) (int, error)
	CountUnassignedEmployees(ctx context.Context) (int, error)
	CountNonAdmins(ctx context.Context) (int, error)
}

// UserService encapsulates provisioning and credential use-cases.
type UserService struct {
	repo   UserRepository
	saga   *ProvisionSaga
	events *notify.Events
}

func NewUserService(repo UserRepository, saga *ProvisionSaga, events *notify.Events) *UserService {
	return &UserService{repo: repo, saga: saga, events: events}
}

func (s *UserService) GetByID(ctx context.Context, id int) (types.User, error) {
	return s.repo.GetByID(ctx, id)
}

// Authenticate verifies an employee id / password pair. Failures are always
// ErrInvalidCredentials, regardless of which field was wrong.
func (s *UserService) Authenticate(ctx context.Context, employeeID, password string) (types.User, error) {
	user, err := s.repo.GetByEmployeeID(ctx, strings.TrimSpace(employeeID))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.User{}, ErrInvalidCredentials
		}
		return types.User{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return types.User{}, ErrInvalidCredentials
	}
	return user, nil
}

// CreateUserParams contains the fields accepted when provisioning an account.
type CreateUserParams struct {
	EmployeeID   string
	Email        string
	FirstName    string
	MiddleName   string
	LastName     string
	Phone        string
	Password     string
	Role         types.Role
	SupervisorID *int

	// Optional HR enrichment.
	Nationality string
	JobTitle    string
	StoreCode   string
	NationalID  string
	GosiType    string
}

func (p *CreateUserParams) normalize() {
	p.EmployeeID = strings.TrimSpace(p.EmployeeID)
	p.Email = strings.ToLower(strings.TrimSpace(p.Email))
	p.FirstName = strings.TrimSpace(p.FirstName)
	p.MiddleName = strings.TrimSpace(p.MiddleName)
	p.LastName = strings.TrimSpace(p.LastName)
	p.Phone = strings.TrimSpace(p.Phone)
	p.Role = types.Role(strings.ToUpper(strings.TrimSpace(string(p.Role))))
}

// Create provisions a new account. The unique constraints are the
// authoritative uniqueness guard; the pre-checks only exist to attribute the
// conflict to a field before any external work happens.
func (s *UserService) Create(ctx context.Context, params CreateUserParams) (types.User, error) {
	params.normalize()

	if params.EmployeeID == "" || params.Email == "" || params.FirstName == "" ||
		params.LastName == "" || params.Password == "" || params.Role == "" {
		return types.User{}, ErrMissingFields
	}
	if !emailPattern.MatchString(params.Email) {
		return types.User{}, ErrInvalidEmail
	}
	if len(params.Password) < minPasswordLength {
		return types.User{}, ErrWeakPassword
	}
	if !types.ValidRole(params.Role) {
		return types.User{}, ErrInvalidRole
	}

	if _, err := s.repo.GetByEmployeeID(ctx, params.EmployeeID); err == nil {
		return types.User{}, store.ErrDuplicateEmployeeID
	} else if !errors.Is(err, store.ErrNotFound) {
		return types.User{}, err
	}
	if _, err := s.repo.GetByEmail(ctx, params.Email); err == nil {
		return types.User{}, store.ErrDuplicateEmail
	} else if !errors.Is(err, store.ErrNotFound) {
		return types.User{}, err
	}

	if params.SupervisorID != nil {
		supervisor, err := s.repo.GetByID(ctx, *params.SupervisorID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return types.User{}, ErrNotSupervisorRole
			}
			return types.User{}, err
		}
		if supervisor.Role != types.RoleSupervisor && supervisor.Role != types.RoleAdmin {
			return types.User{}, ErrNotSupervisorRole
		}
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(params.Password), bcryptCost)
	if err != nil {
		return types.User{}, fmt.Errorf("hash password: %w", err)
	}

	user := types.User{
		EmployeeID:   params.EmployeeID,
		Email:        params.Email,
		FirstName:    params.FirstName,
		MiddleName:   params.MiddleName,
		LastName:     params.LastName,
		Phone:        params.Phone,
		Role:         params.Role,
		SupervisorID: params.SupervisorID,
		PasswordHash: string(hashed),
		Nationality:  params.Nationality,
		JobTitle:     params.JobTitle,
		StoreCode:    params.StoreCode,
		NationalID:   params.NationalID,
		GosiType:     params.GosiType,
	}

	ident := directory.Identity{
		Username: user.EmployeeID,
		Email:    user.Email,
		Name:     user.FullName(),
	}
	created, err := s.saga.Run(ctx, ident, params.Password, func(ctx context.Context) (types.User, error) {
		return s.repo.Create(ctx, user)
	})
	if err != nil {
		return types.User{}, err
	}

	s.events.Publish(ctx, notify.Event{
		Kind:     "user.provisioned",
		Paths:    []string{notify.PathDashboard, notify.PathUsers},
		EntityID: created.ID,
	})
	return created, nil
}

// ChangePassword is self-service: the employee id plus the old password act
// as the credential.
func (s *UserService) ChangePassword(ctx context.Context, employeeID, oldPassword, newPassword string) error {
	employeeID = strings.TrimSpace(employeeID)
	if employeeID == "" || oldPassword == "" || newPassword == "" {
		return ErrMissingFields
	}
	if len(newPassword) < minChangePasswordLength {
		return ErrShortPassword
	}

	user, err := s.repo.GetByEmployeeID(ctx, employeeID)
	if err != nil {
		// An unknown employee id must look exactly like a wrong password.
		if errors.Is(err, store.ErrNotFound) {
			return ErrInvalidCredentials
		}
		return err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(oldPassword)); err != nil {
		return ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(newPassword)) == nil {
		return ErrSamePassword
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcryptCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	return s.repo.UpdatePassword(ctx, user.ID, string(hashed))
}

// ResetPassword generates a temporary password for a user and returns the
// plaintext exactly once. The plaintext is never persisted or logged.
func (s *UserService) ResetPassword(ctx context.Context, userID int) (string, error) {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return "", err
	}

	temporary := "temp" + randomToken(6)
	hashed, err := bcrypt.GenerateFromPassword([]byte(temporary), bcryptCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	if err := s.repo.UpdatePassword(ctx, user.ID, string(hashed)); err != nil {
		return "", err
	}
	return temporary, nil
}

// ForgotPassword acknowledges a reset request for an existing employee id.
// When newPassword is non-empty the password is reset immediately.
func (s *UserService) ForgotPassword(ctx context.Context, employeeID, newPassword string) (types.User, error) {
	employeeID = strings.TrimSpace(employeeID)
	if employeeID == "" {
		return types.User{}, ErrMissingFields
	}

	user, err := s.repo.GetByEmployeeID(ctx, employeeID)
	if err != nil {
		return types.User{}, err
	}

	if newPassword != "" {
		if len(newPassword) < minChangePasswordLength {
			return types.User{}, ErrShortPassword
		}
		hashed, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcryptCost)
		if err != nil {
			return types.User{}, fmt.Errorf("hash password: %w", err)
		}
		if err := s.repo.UpdatePassword(ctx, user.ID, string(hashed)); err != nil {
			return types.User{}, err
		}
	}
	return user, nil
}

// Delete removes a user. Admins cannot delete their own account.
func (s *UserService) Delete(ctx context.Context, actorID, userID int) error {
	if actorID == userID {
		return ErrSelfDelete
	}
	if _, err := s.repo.GetByID(ctx, userID); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, userID); err != nil {
		return err
	}
	s.events.Publish(ctx, notify.Event{
		Kind:     "user.deleted",
		Paths:    []string{notify.PathDashboard, notify.PathUsers},
		ActorID:  actorID,
		EntityID: userID,
	})
	return nil
}

// ListOverviews returns all users with their listing aggregates.
func (s *UserService) ListOverviews(ctx context.Context) ([]types.UserOverview, error) {
	return s.repo.ListOverviews(ctx)
}

const tokenAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

func randomToken(length int) string {
	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		panic(fmt.Sprintf("read random bytes: %v", err))
	}
	for i := range buf {
		buf[i] = tokenAlphabet[int(buf[i])%len(tokenAlphabet)]
	}
	return string(buf)
}
