package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrDuplicate is returned when an insert violates a unique constraint.
var ErrDuplicate = errors.New("duplicate record")

// DBTX is satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repositories bundles every repository bound to the same connection or transaction.
type Repositories struct {
	Users         UserRepository
	Employees     EmployeeRepository
	Complaints    ComplaintRepository
	History       ComplaintHistoryRepository
	RoleRequests  RoleRequestRepository
	Notifications NotificationRepository
}

// NewRepositories binds all Postgres repositories to db.
func NewRepositories(db DBTX) Repositories {
	return Repositories{
		Users:         NewUserRepository(db),
		Employees:     NewEmployeeRepository(db),
		Complaints:    NewComplaintRepository(db),
		History:       NewComplaintHistoryRepository(db),
		RoleRequests:  NewRoleRequestRepository(db),
		Notifications: NewNotificationRepository(db),
	}
}

// Transactor runs fn against repositories sharing one transaction. The
// transaction commits when fn returns nil and rolls back otherwise.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(repos Repositories) error) error
}

type pgTransactor struct {
	pool *pgxpool.Pool
}

// NewTransactor returns a Postgres-backed Transactor.
func NewTransactor(pool *pgxpool.Pool) Transactor {
	return &pgTransactor{pool: pool}
}

func (t *pgTransactor) WithinTx(ctx context.Context, fn func(repos Repositories) error) (err error) {
	tx, err := t.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(ctx)
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	if err = fn(NewRepositories(tx)); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func normalizeLimit(limit, offset, fallback int) (int, int) {
	if limit <= 0 {
		limit = fallback
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
