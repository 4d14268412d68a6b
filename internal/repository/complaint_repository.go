package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/grievance-service/internal/domain"
)

// ComplaintFilter captures listing parameters.
type ComplaintFilter struct {
	UserID         *int64
	AssignedTo     *int64
	Statuses       []domain.ComplaintStatus
	AssignedBefore *time.Time
	EscalatedFirst bool
	Limit          int
	Offset         int
}

// ComplaintRepository encapsulates complaint persistence.
type ComplaintRepository interface {
	Create(ctx context.Context, complaint *domain.Complaint) error
	Update(ctx context.Context, complaint *domain.Complaint) error
	GetByID(ctx context.Context, id int64) (*domain.Complaint, error)
	// GetByIDForUpdate locks the row until the surrounding transaction ends.
	GetByIDForUpdate(ctx context.Context, id int64) (*domain.Complaint, error)
	ListWithFilter(ctx context.Context, filter ComplaintFilter) ([]domain.Complaint, error)
}

type complaintRepository struct {
	db DBTX
}

// NewComplaintRepository instantiates repository.
func NewComplaintRepository(db DBTX) ComplaintRepository {
	return &complaintRepository{db: db}
}

const complaintSelect = `
        SELECT c.id, c.user_id, c.assigned_to, c.assigned_by, c.title, c.description, c.category,
               c.status, c.note, c.escalated, c.attachment_key, c.attachment_name, c.attachment_type,
               c.attachment_size, c.created_at, c.updated_at, c.assigned_at, c.resolved_at,
               COALESCE(su.name, ''), COALESCE(au.name, '')
        FROM complaints c
        LEFT JOIN users su ON su.id = c.user_id
        LEFT JOIN users au ON au.id = c.assigned_to`

func (r *complaintRepository) Create(ctx context.Context, complaint *domain.Complaint) error {
	const query = `
        INSERT INTO complaints (user_id, title, description, category, status, note,
            attachment_key, attachment_name, attachment_type, attachment_size)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
        RETURNING id, created_at, updated_at`

	key, name, contentType, size := attachmentColumns(complaint.Attachment)
	return r.db.QueryRow(ctx, query,
		complaint.UserID,
		complaint.Title,
		complaint.Description,
		complaint.Category,
		complaint.Status,
		complaint.Note,
		key,
		name,
		contentType,
		size,
	).Scan(&complaint.ID, &complaint.CreatedAt, &complaint.UpdatedAt)
}

func (r *complaintRepository) Update(ctx context.Context, complaint *domain.Complaint) error {
	const query = `
        UPDATE complaints SET assigned_to=$1, assigned_by=$2, status=$3, note=$4, escalated=$5,
            assigned_at=$6, resolved_at=$7, updated_at=NOW()
        WHERE id=$8
        RETURNING updated_at`

	err := r.db.QueryRow(ctx, query,
		complaint.AssignedTo,
		complaint.AssignedBy,
		complaint.Status,
		complaint.Note,
		complaint.Escalated,
		complaint.AssignedAt,
		complaint.ResolvedAt,
		complaint.ID,
	).Scan(&complaint.UpdatedAt)
	return err
}

func (r *complaintRepository) GetByID(ctx context.Context, id int64) (*domain.Complaint, error) {
	return r.fetchSingle(ctx, complaintSelect+` WHERE c.id=$1`, id)
}

func (r *complaintRepository) GetByIDForUpdate(ctx context.Context, id int64) (*domain.Complaint, error) {
	return r.fetchSingle(ctx, complaintSelect+` WHERE c.id=$1 FOR UPDATE OF c`, id)
}

func (r *complaintRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Complaint, error) {
	var complaint domain.Complaint
	if err := scanComplaint(r.db.QueryRow(ctx, query, arg), &complaint); err != nil {
		return nil, err
	}
	return &complaint, nil
}

func (r *complaintRepository) ListWithFilter(ctx context.Context, filter ComplaintFilter) ([]domain.Complaint, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.UserID != nil {
		args = append(args, *filter.UserID)
		clauses = append(clauses, fmt.Sprintf("c.user_id=$%d", len(args)))
	}
	if filter.AssignedTo != nil {
		args = append(args, *filter.AssignedTo)
		clauses = append(clauses, fmt.Sprintf("c.assigned_to=$%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("c.status IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.AssignedBefore != nil {
		args = append(args, *filter.AssignedBefore)
		clauses = append(clauses, fmt.Sprintf("c.assigned_at < $%d", len(args)))
	}

	order := "c.created_at DESC, c.id DESC"
	if filter.EscalatedFirst {
		order = "c.escalated DESC, " + order
	}
	query := fmt.Sprintf(`%s WHERE %s ORDER BY %s`, complaintSelect, strings.Join(clauses, " AND "), order)
	// No limit means every matching row.
	if limit, offset := normalizeLimit(filter.Limit, filter.Offset, 0); limit > 0 {
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset)
	} else if offset > 0 {
		query += fmt.Sprintf(" OFFSET %d", offset)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.Complaint{}
	for rows.Next() {
		var complaint domain.Complaint
		if err := scanComplaint(rows, &complaint); err != nil {
			return nil, err
		}
		result = append(result, complaint)
	}
	return result, rows.Err()
}

func scanComplaint(row pgx.Row, complaint *domain.Complaint) error {
	var (
		key, name, contentType *string
		size                   *int64
	)
	if err := row.Scan(
		&complaint.ID,
		&complaint.UserID,
		&complaint.AssignedTo,
		&complaint.AssignedBy,
		&complaint.Title,
		&complaint.Description,
		&complaint.Category,
		&complaint.Status,
		&complaint.Note,
		&complaint.Escalated,
		&key,
		&name,
		&contentType,
		&size,
		&complaint.CreatedAt,
		&complaint.UpdatedAt,
		&complaint.AssignedAt,
		&complaint.ResolvedAt,
		&complaint.SubmitterName,
		&complaint.AssigneeName,
	); err != nil {
		return err
	}
	if key != nil {
		complaint.Attachment = &domain.Attachment{Key: *key}
		if name != nil {
			complaint.Attachment.FileName = *name
		}
		if contentType != nil {
			complaint.Attachment.ContentType = *contentType
		}
		if size != nil {
			complaint.Attachment.SizeBytes = *size
		}
	}
	return nil
}

func attachmentColumns(att *domain.Attachment) (key, name, contentType *string, size *int64) {
	if att == nil {
		return nil, nil, nil, nil
	}
	return &att.Key, &att.FileName, &att.ContentType, &att.SizeBytes
}
