//go:build integration

package repository_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/spec-kit/grievance-service/internal/domain"
	"github.com/spec-kit/grievance-service/internal/persistence"
	"github.com/spec-kit/grievance-service/internal/repository"
)

func openPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		t.Skip("POSTGRES_DSN not set")
	}
	if err := persistence.RunMigrations(dsn, zap.NewNop()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(pool.Close)
	if _, err := pool.Exec(ctx, `TRUNCATE notifications, role_requests, complaint_history, complaints, employees, users RESTART IDENTITY CASCADE`); err != nil {
		t.Fatalf("truncate: %v", err)
	}
	return pool
}

func createUser(t *testing.T, repos repository.Repositories, email string, role domain.Role) *domain.User {
	t.Helper()
	u := &domain.User{Name: email, Email: email, PasswordHash: "x", Role: role}
	if err := repos.Users.Create(context.Background(), u); err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

func TestPostgresUsersAndRoleRequests(t *testing.T) {
	pool := openPool(t)
	repos := repository.NewRepositories(pool)
	ctx := context.Background()

	user := createUser(t, repos, "ann@example.com", domain.RoleUser)
	if err := repos.Users.Create(ctx, &domain.User{Name: "dup", Email: "ANN@example.com", PasswordHash: "x", Role: domain.RoleUser}); !errors.Is(err, repository.ErrDuplicate) {
		t.Fatalf("duplicate email err = %v", err)
	}

	first := &domain.RoleRequest{UserID: user.ID, RequestedRole: domain.RoleEmployee, Level: domain.LevelSenior, Status: domain.RoleRequestPending}
	if err := repos.RoleRequests.Create(ctx, first); err != nil {
		t.Fatalf("create request: %v", err)
	}
	second := &domain.RoleRequest{UserID: user.ID, RequestedRole: domain.RoleEmployee, Level: domain.LevelManager, Status: domain.RoleRequestPending}
	if err := repos.RoleRequests.Create(ctx, second); !errors.Is(err, repository.ErrDuplicate) {
		t.Fatalf("second pending err = %v", err)
	}

	latest, err := repos.RoleRequests.LatestByUser(ctx, user.ID)
	if err != nil || latest.ID != first.ID {
		t.Fatalf("latest = %+v err = %v", latest, err)
	}
}

func TestPostgresTransactorRollsBack(t *testing.T) {
	pool := openPool(t)
	repos := repository.NewRepositories(pool)
	tx := repository.NewTransactor(pool)
	ctx := context.Background()

	boom := errors.New("boom")
	err := tx.WithinTx(ctx, func(r repository.Repositories) error {
		createUser(t, r, "ghost@example.com", domain.RoleUser)
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
	if _, err := repos.Users.GetByEmail(ctx, "ghost@example.com"); !errors.Is(err, pgx.ErrNoRows) {
		t.Fatalf("rolled back user still visible: %v", err)
	}
}

func TestPostgresComplaintsAndLoad(t *testing.T) {
	pool := openPool(t)
	repos := repository.NewRepositories(pool)
	ctx := context.Background()

	submitter := createUser(t, repos, "sub@example.com", domain.RoleUser)
	staff := createUser(t, repos, "staff@example.com", domain.RoleEmployee)
	if created, err := repos.Employees.CreateIfAbsent(ctx, &domain.Employee{UserID: staff.ID, Level: domain.LevelBeginner, MaxComplaints: domain.DefaultMaxComplaints}); err != nil || !created {
		t.Fatalf("create employee = %v, %v", created, err)
	}
	if created, err := repos.Employees.CreateIfAbsent(ctx, &domain.Employee{UserID: staff.ID, Level: domain.LevelManager, MaxComplaints: 1}); err != nil || created {
		t.Fatalf("second create = %v, %v", created, err)
	}

	complaint := &domain.Complaint{
		UserID:      submitter.ID,
		Title:       "AC broken",
		Description: "Room 4",
		Category:    domain.DefaultComplaintCategory,
		Status:      domain.ComplaintStatusPending,
		Attachment:  &domain.Attachment{Key: "complaints/1/x-photo.jpg", FileName: "photo.jpg", ContentType: "image/jpeg", SizeBytes: 10},
	}
	if err := repos.Complaints.Create(ctx, complaint); err != nil {
		t.Fatalf("create complaint: %v", err)
	}

	assignedAt := time.Now().Add(-8 * 24 * time.Hour)
	complaint.AssignedTo = &staff.ID
	complaint.Status = domain.ComplaintStatusAssigned
	complaint.AssignedAt = &assignedAt
	if err := repos.Complaints.Update(ctx, complaint); err != nil {
		t.Fatalf("update: %v", err)
	}
	if err := repos.Employees.AdjustLoad(ctx, staff.ID, 1); err != nil {
		t.Fatalf("adjust load: %v", err)
	}

	cutoff := time.Now().Add(-7 * 24 * time.Hour)
	stale, err := repos.Complaints.ListWithFilter(ctx, repository.ComplaintFilter{
		Statuses:       []domain.ComplaintStatus{domain.ComplaintStatusAssigned},
		AssignedBefore: &cutoff,
	})
	if err != nil || len(stale) != 1 || stale[0].Attachment == nil || stale[0].Attachment.FileName != "photo.jpg" {
		t.Fatalf("stale = %+v err = %v", stale, err)
	}
	if stale[0].SubmitterName != submitter.Name {
		t.Fatalf("submitter name = %q", stale[0].SubmitterName)
	}

	emp, err := repos.Employees.GetByUserID(ctx, staff.ID)
	if err != nil || emp.CurrentComplaints != 1 || emp.Level != domain.LevelBeginner {
		t.Fatalf("employee = %+v err = %v", emp, err)
	}
}
