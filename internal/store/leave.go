package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/leavedesk/apiserver/types"
)

// LeaveFilter narrows a leave-request listing. Zero values mean "no filter".
type LeaveFilter struct {
	// OwnerID limits to requests owned by a single user.
	OwnerID *int
	// SupervisorID limits to requests whose owner reports to this user.
	SupervisorID *int
	// Name is a case-insensitive substring match on the owner's name.
	Name string
	// Status limits to a single lifecycle state.
	Status types.LeaveStatus
	// CreatedFrom/CreatedTo bound created_at (inclusive from, exclusive to).
	CreatedFrom time.Time
	CreatedTo   time.Time
}

// LeaveRepository handles persistence for leave requests.
type LeaveRepository struct {
	db *sql.DB
}

func NewLeaveRepository(db *sql.DB) *LeaveRepository {
	return &LeaveRepository{db: db}
}

func (r *LeaveRepository) Create(ctx context.Context, request types.LeaveRequest) (types.LeaveRequest, error) {
	request.Status = types.StatusPending
	request.CreatedAt = time.Now()

	const query = `
		INSERT INTO leave_requests (user_id, start_date, end_date, reason, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`
	err := r.db.QueryRowContext(
		ctx,
		query,
		request.UserID,
		request.StartDate,
		request.EndDate,
		request.Reason,
		request.Status,
		request.CreatedAt,
	).Scan(&request.ID)
	if err != nil {
		return types.LeaveRequest{}, translateError(err)
	}
	return request, nil
}

// GetByID loads a request with its owner joined in, so callers can check
// ownership and supervision without a second query.
func (r *LeaveRepository) GetByID(ctx context.Context, id int) (types.LeaveRequest, error) {
	query := selectRequests + ` WHERE lr.id = $1`
	rows, err := r.db.QueryContext(ctx, query, id)
	if err != nil {
		return types.LeaveRequest{}, translateError(err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return types.LeaveRequest{}, translateError(err)
		}
		return types.LeaveRequest{}, ErrNotFound
	}
	return scanRequest(rows)
}

// UpdateStatusFromPending transitions a PENDING request to the given status.
// Returns ErrNotFound when no pending row matched; callers distinguish
// missing rows from finalized ones.
func (r *LeaveRepository) UpdateStatusFromPending(ctx context.Context, id int, status types.LeaveStatus) error {
	const query = `
		UPDATE leave_requests
		SET status = $1
		WHERE id = $2 AND status = 'PENDING'`
	result, err := r.db.ExecContext(ctx, query, status, id)
	if err != nil {
		return translateError(err)
	}
	return requireAffected(result)
}

func (r *LeaveRepository) Delete(ctx context.Context, id int) error {
	const query = `DELETE FROM leave_requests WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return translateError(err)
	}
	return requireAffected(result)
}

const selectRequests = `
	SELECT lr.id, lr.user_id, lr.start_date, lr.end_date, lr.reason, lr.status, lr.created_at,
		u.id, u.employee_id, u.first_name, u.middle_name, u.last_name, u.email, u.role, u.supervisor_id,
		COALESCE(trim(concat_ws(' ', s.first_name, s.last_name)), '')
	FROM leave_requests lr
	JOIN users u ON u.id = lr.user_id
	LEFT JOIN users s ON s.id = u.supervisor_id`

// List returns requests matching the filter with owners joined in, ordered
// by created_at descending.
func (r *LeaveRepository) List(ctx context.Context, filter LeaveFilter) ([]types.LeaveRequest, error) {
	var (
		clauses []string
		args    []any
	)
	arg := func(value any) string {
		args = append(args, value)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.OwnerID != nil {
		clauses = append(clauses, "lr.user_id = "+arg(*filter.OwnerID))
	}
	if filter.SupervisorID != nil {
		clauses = append(clauses, "u.supervisor_id = "+arg(*filter.SupervisorID))
	}
	if name := strings.TrimSpace(filter.Name); name != "" {
		clauses = append(clauses, "concat_ws(' ', u.first_name, u.middle_name, u.last_name) ILIKE "+arg("%"+name+"%"))
	}
	if filter.Status != "" {
		clauses = append(clauses, "lr.status = "+arg(filter.Status))
	}
	if !filter.CreatedFrom.IsZero() {
		clauses = append(clauses, "lr.created_at >= "+arg(filter.CreatedFrom))
	}
	if !filter.CreatedTo.IsZero() {
		clauses = append(clauses, "lr.created_at < "+arg(filter.CreatedTo))
	}

	query := selectRequests
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY lr.created_at DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, translateError(err)
	}
	defer rows.Close()

	var requests []types.LeaveRequest
	for rows.Next() {
		request, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, request)
	}
	return requests, rows.Err()
}

func scanRequest(rows *sql.Rows) (types.LeaveRequest, error) {
	var (
		request types.LeaveRequest
		owner   types.RequestOwner
		middle  sql.NullString
	)
	err := rows.Scan(
		&request.ID,
		&request.UserID,
		&request.StartDate,
		&request.EndDate,
		&request.Reason,
		&request.Status,
		&request.CreatedAt,
		&owner.ID,
		&owner.EmployeeID,
		&owner.FirstName,
		&middle,
		&owner.LastName,
		&owner.Email,
		&owner.Role,
		&owner.SupervisorID,
		&owner.SupervisorName,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.LeaveRequest{}, ErrNotFound
		}
		return types.LeaveRequest{}, err
	}
	owner.MiddleName = middle.String
	request.Owner = &owner
	return request, nil
}
