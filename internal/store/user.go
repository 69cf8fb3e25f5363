package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/leavedesk/apiserver/types"
)

const userColumns = `id, employee_id, email, first_name, middle_name, last_name, phone,
		role, supervisor_id, password_hash, nationality, job_title, store_code,
		national_id, gosi_type, created_at, updated_at`

// UserRepository handles persistence for users.
type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) GetByID(ctx context.Context, id int) (types.User, error) {
	const query = `
		SELECT ` + userColumns + `
		FROM users
		WHERE id = $1`
	return r.getOne(ctx, query, id)
}

func (r *UserRepository) GetByEmployeeID(ctx context.Context, employeeID string) (types.User, error) {
	const query = `
		SELECT ` + userColumns + `
		FROM users
		WHERE employee_id = $1`
	return r.getOne(ctx, query, employeeID)
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (types.User, error) {
	const query = `
		SELECT ` + userColumns + `
		FROM users
		WHERE email = lower($1)`
	return r.getOne(ctx, query, email)
}

func (r *UserRepository) getOne(ctx context.Context, query string, arg any) (types.User, error) {
	user, err := scanUser(r.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.User{}, ErrNotFound
		}
		return types.User{}, translateError(err)
	}
	return user, nil
}

func (r *UserRepository) Create(ctx context.Context, user types.User) (types.User, error) {
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now

	const query = `
		INSERT INTO users (employee_id, email, first_name, middle_name, last_name, phone,
			role, supervisor_id, password_hash, nationality, job_title, store_code,
			national_id, gosi_type, created_at, updated_at)
		VALUES ($1, lower($2), $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING id`
	err := r.db.QueryRowContext(
		ctx,
		query,
		user.EmployeeID,
		user.Email,
		user.FirstName,
		nullString(user.MiddleName),
		user.LastName,
		nullString(user.Phone),
		user.Role,
		user.SupervisorID,
		user.PasswordHash,
		nullString(user.Nationality),
		nullString(user.JobTitle),
		nullString(user.StoreCode),
		nullString(user.NationalID),
		nullString(user.GosiType),
		user.CreatedAt,
		user.UpdatedAt,
	).Scan(&user.ID)
	if err != nil {
		return types.User{}, translateError(err)
	}
	return user, nil
}

// UpdatePassword replaces the stored password hash for a user.
func (r *UserRepository) UpdatePassword(ctx context.Context, id int, passwordHash string) error {
	const query = `
		UPDATE users
		SET password_hash = $1,
			updated_at = $2
		WHERE id = $3`
	result, err := r.db.ExecContext(ctx, query, passwordHash, time.Now(), id)
	if err != nil {
		return translateError(err)
	}
	return requireAffected(result)
}

// UpdateSupervisor sets or clears the supervisor link for a user.
func (r *UserRepository) UpdateSupervisor(ctx context.Context, id int, supervisorID *int) error {
	const query = `
		UPDATE users
		SET supervisor_id = $1,
			updated_at = $2
		WHERE id = $3`
	result, err := r.db.ExecContext(ctx, query, supervisorID, time.Now(), id)
	if err != nil {
		return translateError(err)
	}
	return requireAffected(result)
}

func (r *UserRepository) Delete(ctx context.Context, id int) error {
	const query = `DELETE FROM users WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return translateError(err)
	}
	return requireAffected(result)
}

// ListOverviews returns all users with their supervisor's name and the counts
// shown in admin listings and the users report, most recent first.
func (r *UserRepository) ListOverviews(ctx context.Context) ([]types.UserOverview, error) {
	const query = `
		SELECT u.id, u.employee_id, u.email, u.first_name, u.middle_name, u.last_name, u.phone,
			u.role, u.supervisor_id, u.password_hash, u.nationality, u.job_title, u.store_code,
			u.national_id, u.gosi_type, u.created_at, u.updated_at,
			COALESCE(trim(concat_ws(' ', s.first_name, s.last_name)), ''),
			(SELECT count(*) FROM leave_requests lr WHERE lr.user_id = u.id),
			(SELECT count(*) FROM users e WHERE e.supervisor_id = u.id)
		FROM users u
		LEFT JOIN users s ON s.id = u.supervisor_id
		ORDER BY u.created_at DESC`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, translateError(err)
	}
	defer rows.Close()

	var overviews []types.UserOverview
	for rows.Next() {
		var (
			overview types.UserOverview
			middle   sql.NullString
			phone    sql.NullString
			natl     sql.NullString
			job      sql.NullString
			storeC   sql.NullString
			natID    sql.NullString
			gosi     sql.NullString
		)
		if err := rows.Scan(
			&overview.User.ID,
			&overview.User.EmployeeID,
			&overview.User.Email,
			&overview.User.FirstName,
			&middle,
			&overview.User.LastName,
			&phone,
			&overview.User.Role,
			&overview.User.SupervisorID,
			&overview.User.PasswordHash,
			&natl,
			&job,
			&storeC,
			&natID,
			&gosi,
			&overview.User.CreatedAt,
			&overview.User.UpdatedAt,
			&overview.SupervisorName,
			&overview.LeaveRequestCount,
			&overview.DirectReportCount,
		); err != nil {
			return nil, err
		}
		overview.User.MiddleName = middle.String
		overview.User.Phone = phone.String
		overview.User.Nationality = natl.String
		overview.User.JobTitle = job.String
		overview.User.StoreCode = storeC.String
		overview.User.NationalID = natID.String
		overview.User.GosiType = gosi.String
		overviews = append(overviews, overview)
	}
	return overviews, rows.Err()
}

// CountDirectReports returns the number of users reporting to the given user.
func (r *UserRepository) CountDirectReports(ctx context.Context, supervisorID int) (int, error) {
	const query = `SELECT count(*) FROM users WHERE supervisor_id = $1`
	return r.countOne(ctx, query, supervisorID)
}

// CountUnassignedEmployees returns the number of EMPLOYEE-role users with no
// supervisor.
func (r *UserRepository) CountUnassignedEmployees(ctx context.Context) (int, error) {
	const query = `SELECT count(*) FROM users WHERE role = 'EMPLOYEE' AND supervisor_id IS NULL`
	var count int
	if err := r.db.QueryRowContext(ctx, query).Scan(&count); err != nil {
		return 0, translateError(err)
	}
	return count, nil
}

// CountNonAdmins returns the number of users that are not admins.
func (r *UserRepository) CountNonAdmins(ctx context.Context) (int, error) {
	const query = `SELECT count(*) FROM users WHERE role <> 'ADMIN'`
	var count int
	if err := r.db.QueryRowContext(ctx, query).Scan(&count); err != nil {
		return 0, translateError(err)
	}
	return count, nil
}

func (r *UserRepository) countOne(ctx context.Context, query string, arg any) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, query, arg).Scan(&count); err != nil {
		return 0, translateError(err)
	}
	return count, nil
}

func requireAffected(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func nullString(value string) sql.NullString {
	if value == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: value, Valid: true}
}

func scanUser(row *sql.Row) (types.User, error) {
	var (
		user   types.User
		middle sql.NullString
		phone  sql.NullString
		natl   sql.NullString
		job    sql.NullString
		storeC sql.NullString
		natID  sql.NullString
		gosi   sql.NullString
	)
	err := row.Scan(
		&user.ID,
		&user.EmployeeID,
		&user.Email,
		&user.FirstName,
		&middle,
		&user.LastName,
		&phone,
		&user.Role,
		&user.SupervisorID,
		&user.PasswordHash,
		&natl,
		&job,
		&storeC,
		&natID,
		&gosi,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return types.User{}, err
	}
	user.MiddleName = middle.String
	user.Phone = phone.String
	user.Nationality = natl.String
	user.JobTitle = job.String
	user.StoreCode = storeC.String
	user.NationalID = natID.String
	user.GosiType = gosi.String
	return user, nil
}
