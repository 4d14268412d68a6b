package service

import (
	"context"
	"testing"
	"time"

	"github.com/spec-kit/grievance-service/internal/config"
	"github.com/spec-kit/grievance-service/internal/domain"
	"github.com/spec-kit/grievance-service/internal/events"
	"github.com/spec-kit/grievance-service/internal/repository"
	"github.com/spec-kit/grievance-service/internal/repository/memory"
	apperrors "github.com/spec-kit/grievance-service/pkg/util/errorutil"
)

type fixture struct {
	store         *memory.Store
	repos         repository.Repositories
	dispatcher    events.Dispatcher
	complaints    *ComplaintService
	roleRequests  *RoleRequestService
	auth          *AuthService
	notifications *NotificationService
	clock         *fakeClock
}

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time { return c.t }

func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newFixture(t *testing.T, policy ComplaintPolicy) *fixture {
	t.Helper()
	clock := &fakeClock{t: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	store := memory.NewStore()
	store.SetClock(clock.Now)
	repos := store.Repositories()
	dispatcher := events.NewInMemoryDispatcher()

	f := &fixture{
		store:      store,
		repos:      repos,
		dispatcher: dispatcher,
		clock:      clock,
		complaints: NewComplaintService(ComplaintDependencies{
			Repos:      repos,
			Transactor: store,
			Dispatcher: dispatcher,
			Policy:     policy,
			Clock:      clock.Now,
		}),
		roleRequests: NewRoleRequestService(RoleRequestDependencies{
			Repos:      repos,
			Transactor: store,
			Dispatcher: dispatcher,
			Clock:      clock.Now,
		}),
		auth: NewAuthService(config.AuthConfig{JWTSecret: "test", AccessTokenTTLMinutes: 60, BcryptCost: 4}, AuthDependencies{UserRepo: repos.Users}),
		notifications: NewNotificationService(NotificationDependencies{
			Dispatcher:       dispatcher,
			NotificationRepo: repos.Notifications,
		}),
	}
	f.notifications.RegisterHandlers()
	return f
}

func (f *fixture) user(t *testing.T, name string, role domain.Role) *domain.User {
	t.Helper()
	u := &domain.User{Name: name, Email: name + "@example.com", Role: role}
	if err := f.repos.Users.Create(context.Background(), u); err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

func (f *fixture) employee(t *testing.T, name string, level domain.EmployeeLevel) *domain.User {
	t.Helper()
	u := f.user(t, name, domain.RoleEmployee)
	if _, err := f.repos.Employees.CreateIfAbsent(context.Background(), &domain.Employee{
		UserID:        u.ID,
		Level:         level,
		MaxComplaints: domain.DefaultMaxComplaints,
	}); err != nil {
		t.Fatalf("create employee: %v", err)
	}
	return u
}

func (f *fixture) load(t *testing.T, userID int64) int {
	t.Helper()
	e, err := f.repos.Employees.GetByUserID(context.Background(), userID)
	if err != nil {
		t.Fatalf("get employee: %v", err)
	}
	return e.CurrentComplaints
}

func (f *fixture) messages(t *testing.T, userID int64) []string {
	t.Helper()
	list, err := f.notifications.ListForUser(context.Background(), userID, 0, 0)
	if err != nil {
		t.Fatalf("list notifications: %v", err)
	}
	out := make([]string, 0, len(list))
	for _, n := range list {
		out = append(out, n.Message)
	}
	return out
}

func strict() ComplaintPolicy {
	return ComplaintPolicy{StrictTransitions: true}
}

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	if !apperrors.IsCode(err, code) {
		t.Fatalf("err = %v, want code %s", err, code)
	}
}

func contains(list []string, want string) bool {
	for _, item := range list {
		if item == want {
			return true
		}
	}
	return false
}
