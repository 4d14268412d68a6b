package repository

import (
	"context"

	"github.com/spec-kit/grievance-service/internal/domain"
)

// RoleRequestRepository persists role requests.
type RoleRequestRepository interface {
	// Create returns ErrDuplicate when the user already has a pending request.
	Create(ctx context.Context, request *domain.RoleRequest) error
	GetByID(ctx context.Context, id int64) (*domain.RoleRequest, error)
	GetByIDForUpdate(ctx context.Context, id int64) (*domain.RoleRequest, error)
	GetPendingByUser(ctx context.Context, userID int64) (*domain.RoleRequest, error)
	LatestByUser(ctx context.Context, userID int64) (*domain.RoleRequest, error)
	List(ctx context.Context, status *domain.RoleRequestStatus) ([]domain.RoleRequest, error)
	UpdateDecision(ctx context.Context, request *domain.RoleRequest) error
}

type roleRequestRepository struct {
	db DBTX
}

// NewRoleRequestRepository constructs repository.
func NewRoleRequestRepository(db DBTX) RoleRequestRepository {
	return &roleRequestRepository{db: db}
}

const roleRequestSelect = `
        SELECT id, user_id, requested_role, level, reason, status, approved_by, created_at, updated_at
        FROM role_requests`

func (r *roleRequestRepository) Create(ctx context.Context, request *domain.RoleRequest) error {
	const query = `
        INSERT INTO role_requests (user_id, requested_role, level, reason, status)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at, updated_at`
	err := r.db.QueryRow(ctx, query,
		request.UserID,
		request.RequestedRole,
		request.Level,
		request.Reason,
		request.Status,
	).Scan(&request.ID, &request.CreatedAt, &request.UpdatedAt)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

func (r *roleRequestRepository) GetByID(ctx context.Context, id int64) (*domain.RoleRequest, error) {
	return r.fetchSingle(ctx, roleRequestSelect+` WHERE id=$1`, id)
}

func (r *roleRequestRepository) GetByIDForUpdate(ctx context.Context, id int64) (*domain.RoleRequest, error) {
	return r.fetchSingle(ctx, roleRequestSelect+` WHERE id=$1 FOR UPDATE`, id)
}

func (r *roleRequestRepository) GetPendingByUser(ctx context.Context, userID int64) (*domain.RoleRequest, error) {
	return r.fetchSingle(ctx, roleRequestSelect+` WHERE user_id=$1 AND status='PENDING'`, userID)
}

func (r *roleRequestRepository) LatestByUser(ctx context.Context, userID int64) (*domain.RoleRequest, error) {
	return r.fetchSingle(ctx, roleRequestSelect+` WHERE user_id=$1 ORDER BY created_at DESC, id DESC LIMIT 1`, userID)
}

func (r *roleRequestRepository) List(ctx context.Context, status *domain.RoleRequestStatus) ([]domain.RoleRequest, error) {
	query := roleRequestSelect
	args := []any{}
	if status != nil {
		args = append(args, *status)
		query += ` WHERE status=$1`
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.RoleRequest{}
	for rows.Next() {
		var request domain.RoleRequest
		if err := rows.Scan(
			&request.ID,
			&request.UserID,
			&request.RequestedRole,
			&request.Level,
			&request.Reason,
			&request.Status,
			&request.ApprovedBy,
			&request.CreatedAt,
			&request.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, request)
	}
	return result, rows.Err()
}

func (r *roleRequestRepository) UpdateDecision(ctx context.Context, request *domain.RoleRequest) error {
	const query = `
        UPDATE role_requests SET status=$1, approved_by=$2, updated_at=NOW()
        WHERE id=$3
        RETURNING updated_at`
	return r.db.QueryRow(ctx, query, request.Status, request.ApprovedBy, request.ID).Scan(&request.UpdatedAt)
}

func (r *roleRequestRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.RoleRequest, error) {
	var request domain.RoleRequest
	if err := r.db.QueryRow(ctx, query, arg).Scan(
		&request.ID,
		&request.UserID,
		&request.RequestedRole,
		&request.Level,
		&request.Reason,
		&request.Status,
		&request.ApprovedBy,
		&request.CreatedAt,
		&request.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &request, nil
}
