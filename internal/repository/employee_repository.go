package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/grievance-service/internal/domain"
)

// EmployeeRepository handles persistence for employee capacity profiles.
type EmployeeRepository interface {
	// CreateIfAbsent inserts employee unless the user already has a profile.
	// created is false when a profile existed.
	CreateIfAbsent(ctx context.Context, employee *domain.Employee) (created bool, err error)
	GetByUserID(ctx context.Context, userID int64) (*domain.Employee, error)
	List(ctx context.Context) ([]domain.Employee, error)
	// LeastLoadedByLevel returns the employee of level with the lowest current load.
	LeastLoadedByLevel(ctx context.Context, level domain.EmployeeLevel) (*domain.Employee, error)
	AdjustLoad(ctx context.Context, userID int64, delta int) error
}

type employeeRepository struct {
	db DBTX
}

// NewEmployeeRepository instantiates the repository.
func NewEmployeeRepository(db DBTX) EmployeeRepository {
	return &employeeRepository{db: db}
}

const employeeColumns = `
        e.id, e.user_id, e.level, e.max_complaints, e.current_complaints, e.created_at, e.updated_at,
        u.name, u.email`

func (r *employeeRepository) CreateIfAbsent(ctx context.Context, employee *domain.Employee) (bool, error) {
	const query = `
        INSERT INTO employees (user_id, level, max_complaints, current_complaints)
        VALUES ($1,$2,$3,$4)
        ON CONFLICT (user_id) DO NOTHING
        RETURNING id, created_at, updated_at`

	err := r.db.QueryRow(ctx, query,
		employee.UserID,
		employee.Level,
		employee.MaxComplaints,
		employee.CurrentComplaints,
	).Scan(&employee.ID, &employee.CreatedAt, &employee.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *employeeRepository) GetByUserID(ctx context.Context, userID int64) (*domain.Employee, error) {
	query := `SELECT ` + employeeColumns + `
        FROM employees e JOIN users u ON u.id = e.user_id
        WHERE e.user_id=$1`

	var employee domain.Employee
	if err := scanEmployee(r.db.QueryRow(ctx, query, userID), &employee); err != nil {
		return nil, err
	}
	return &employee, nil
}

func (r *employeeRepository) LeastLoadedByLevel(ctx context.Context, level domain.EmployeeLevel) (*domain.Employee, error) {
	query := `SELECT ` + employeeColumns + `
        FROM employees e JOIN users u ON u.id = e.user_id
        WHERE e.level=$1
        ORDER BY e.current_complaints ASC, e.created_at ASC
        LIMIT 1`

	var employee domain.Employee
	if err := scanEmployee(r.db.QueryRow(ctx, query, level), &employee); err != nil {
		return nil, err
	}
	return &employee, nil
}

func (r *employeeRepository) List(ctx context.Context) ([]domain.Employee, error) {
	query := `SELECT ` + employeeColumns + `
        FROM employees e JOIN users u ON u.id = e.user_id
        ORDER BY e.level ASC, e.created_at ASC`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.Employee{}
	for rows.Next() {
		var employee domain.Employee
		if err := scanEmployee(rows, &employee); err != nil {
			return nil, err
		}
		result = append(result, employee)
	}
	return result, rows.Err()
}

func (r *employeeRepository) AdjustLoad(ctx context.Context, userID int64, delta int) error {
	const query = `
        UPDATE employees
        SET current_complaints = GREATEST(current_complaints + $1, 0), updated_at=NOW()
        WHERE user_id=$2`

	cmd, err := r.db.Exec(ctx, query, delta, userID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func scanEmployee(row pgx.Row, employee *domain.Employee) error {
	return row.Scan(
		&employee.ID,
		&employee.UserID,
		&employee.Level,
		&employee.MaxComplaints,
		&employee.CurrentComplaints,
		&employee.CreatedAt,
		&employee.UpdatedAt,
		&employee.Name,
		&employee.Email,
	)
}
