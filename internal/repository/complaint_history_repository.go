package repository

import (
	"context"

	"github.com/spec-kit/grievance-service/internal/domain"
)

// ComplaintHistoryRepository stores audit entries.
type ComplaintHistoryRepository interface {
	Create(ctx context.Context, history *domain.ComplaintHistory) error
	ListByComplaint(ctx context.Context, complaintID int64) ([]domain.ComplaintHistory, error)
}

type complaintHistoryRepository struct {
	db DBTX
}

// NewComplaintHistoryRepository builds repository.
func NewComplaintHistoryRepository(db DBTX) ComplaintHistoryRepository {
	return &complaintHistoryRepository{db: db}
}

func (r *complaintHistoryRepository) Create(ctx context.Context, history *domain.ComplaintHistory) error {
	const query = `
        INSERT INTO complaint_history (complaint_id, changed_by, change_type, old_value, new_value)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at`
	return r.db.QueryRow(ctx, query,
		history.ComplaintID,
		history.ChangedBy,
		history.ChangeType,
		history.OldValue,
		history.NewValue,
	).Scan(&history.ID, &history.CreatedAt)
}

func (r *complaintHistoryRepository) ListByComplaint(ctx context.Context, complaintID int64) ([]domain.ComplaintHistory, error) {
	const query = `
        SELECT id, complaint_id, changed_by, change_type, old_value, new_value, created_at
        FROM complaint_history WHERE complaint_id=$1 ORDER BY created_at ASC, id ASC`
	rows, err := r.db.Query(ctx, query, complaintID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.ComplaintHistory{}
	for rows.Next() {
		var history domain.ComplaintHistory
		if err := rows.Scan(
			&history.ID,
			&history.ComplaintID,
			&history.ChangedBy,
			&history.ChangeType,
			&history.OldValue,
			&history.NewValue,
			&history.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, history)
	}
	return result, rows.Err()
}
