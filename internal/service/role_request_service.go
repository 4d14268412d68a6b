package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/grievance-service/internal/domain"
	"github.com/spec-kit/grievance-service/internal/events"
	"github.com/spec-kit/grievance-service/internal/repository"
	apperrors "github.com/spec-kit/grievance-service/pkg/util/errorutil"
)

// RoleRequestService runs the promote-to-employee workflow.
type RoleRequestService struct {
	repos  repository.Repositories
	tx     repository.Transactor
	events eventSink
}

// RoleRequestDependencies bundles collaborators.
type RoleRequestDependencies struct {
	Repos      repository.Repositories
	Transactor repository.Transactor
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
	Clock      func() time.Time
}

// NewRoleRequestService constructs the service.
func NewRoleRequestService(deps RoleRequestDependencies) *RoleRequestService {
	return &RoleRequestService{
		repos: deps.Repos,
		tx:    deps.Transactor,
		events: eventSink{
			dispatcher: deps.Dispatcher,
			logger:     loggerOrNop(deps.Logger),
			now:        nowOrDefault(deps.Clock),
		},
	}
}

// Submit files a role request. A user may hold one PENDING request at a time.
func (s *RoleRequestService) Submit(ctx context.Context, userID int64, requestedRole, level, reason string) (*domain.RoleRequest, error) {
	role := domain.Role(strings.ToUpper(strings.TrimSpace(requestedRole)))
	if role == "" {
		role = domain.RoleEmployee
	}
	if role != domain.RoleEmployee {
		return nil, apperrors.NewValidationError("only the EMPLOYEE role can be requested", map[string]any{"requestedRole": requestedRole})
	}
	parsedLevel, ok := domain.ParseEmployeeLevel(level)
	if !ok {
		return nil, apperrors.NewValidationError("unknown employee level", map[string]any{
			"level":   level,
			"allowed": []domain.EmployeeLevel{domain.LevelBeginner, domain.LevelSenior, domain.LevelManager},
		})
	}

	user, err := s.repos.Users.GetByID(ctx, userID)
	if err != nil {
		return nil, notFoundOr(err, "user", map[string]any{"userId": userID})
	}
	if user.Role != domain.RoleUser {
		return nil, apperrors.NewConflict("user already holds the "+string(user.Role)+" role", map[string]any{"userId": userID})
	}

	if _, err := s.repos.RoleRequests.GetPendingByUser(ctx, userID); err == nil {
		return nil, errPendingRequest(userID)
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.MapError(err)
	}

	request := &domain.RoleRequest{
		UserID:        userID,
		RequestedRole: role,
		Level:         parsedLevel,
		Reason:        strings.TrimSpace(reason),
		Status:        domain.RoleRequestPending,
	}
	if err := s.repos.RoleRequests.Create(ctx, request); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, errPendingRequest(userID)
		}
		return nil, apperrors.MapError(err)
	}
	return request, nil
}

// Approve promotes the requester in a single transaction: request decision,
// role change and employee profile. Approving twice is a no-op.
func (s *RoleRequestService) Approve(ctx context.Context, requestID, approverID int64) (*domain.RoleRequest, error) {
	var (
		request *domain.RoleRequest
		changed bool
	)
	err := s.tx.WithinTx(ctx, func(repos repository.Repositories) error {
		var err error
		request, err = lockRoleRequest(ctx, repos, requestID)
		if err != nil {
			return err
		}
		switch request.Status {
		case domain.RoleRequestApproved:
			return nil
		case domain.RoleRequestRejected:
			return apperrors.NewConflict("role request already rejected", map[string]any{"requestId": requestID})
		}

		request.Status = domain.RoleRequestApproved
		request.ApprovedBy = &approverID
		if err := repos.RoleRequests.UpdateDecision(ctx, request); err != nil {
			return err
		}

		user, err := repos.Users.GetByID(ctx, request.UserID)
		if err != nil {
			return notFoundOr(err, "user", map[string]any{"userId": request.UserID})
		}
		if !user.IsAdmin() && user.Role != request.RequestedRole {
			if err := repos.Users.UpdateRole(ctx, user.ID, request.RequestedRole); err != nil {
				return err
			}
		}

		if _, err := repos.Employees.CreateIfAbsent(ctx, &domain.Employee{
			UserID:        request.UserID,
			Level:         request.Level,
			MaxComplaints: domain.DefaultMaxComplaints,
		}); err != nil {
			return err
		}
		changed = true
		return nil
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if changed {
		s.publishDecision(ctx, request, approverID)
	}
	return request, nil
}

// Reject declines the request. Rejecting twice is a no-op.
func (s *RoleRequestService) Reject(ctx context.Context, requestID, approverID int64) (*domain.RoleRequest, error) {
	var (
		request *domain.RoleRequest
		changed bool
	)
	err := s.tx.WithinTx(ctx, func(repos repository.Repositories) error {
		var err error
		request, err = lockRoleRequest(ctx, repos, requestID)
		if err != nil {
			return err
		}
		switch request.Status {
		case domain.RoleRequestRejected:
			return nil
		case domain.RoleRequestApproved:
			return apperrors.NewConflict("role request already approved", map[string]any{"requestId": requestID})
		}
		request.Status = domain.RoleRequestRejected
		request.ApprovedBy = &approverID
		if err := repos.RoleRequests.UpdateDecision(ctx, request); err != nil {
			return err
		}
		changed = true
		return nil
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if changed {
		s.publishDecision(ctx, request, approverID)
	}
	return request, nil
}

// Latest returns the user's most recent request, or nil when there is none.
func (s *RoleRequestService) Latest(ctx context.Context, userID int64) (*domain.RoleRequest, error) {
	request, err := s.repos.RoleRequests.LatestByUser(ctx, userID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return request, nil
}

// List returns role requests, optionally filtered by status.
func (s *RoleRequestService) List(ctx context.Context, rawStatus string) ([]domain.RoleRequest, error) {
	var filter *domain.RoleRequestStatus
	if rawStatus = strings.ToUpper(strings.TrimSpace(rawStatus)); rawStatus != "" {
		status := domain.RoleRequestStatus(rawStatus)
		switch status {
		case domain.RoleRequestPending, domain.RoleRequestApproved, domain.RoleRequestRejected:
			filter = &status
		default:
			return nil, apperrors.NewValidationError("unknown role request status", map[string]any{"status": rawStatus})
		}
	}
	list, err := s.repos.RoleRequests.List(ctx, filter)
	return list, apperrors.MapError(err)
}

// ListEmployees returns every employee profile.
func (s *RoleRequestService) ListEmployees(ctx context.Context) ([]domain.Employee, error) {
	list, err := s.repos.Employees.List(ctx)
	return list, apperrors.MapError(err)
}

// GetEmployee returns the employee profile of a user.
func (s *RoleRequestService) GetEmployee(ctx context.Context, userID int64) (*domain.Employee, error) {
	employee, err := s.repos.Employees.GetByUserID(ctx, userID)
	if err != nil {
		return nil, notFoundOr(err, "employee", map[string]any{"employeeId": userID})
	}
	return employee, nil
}

func (s *RoleRequestService) publishDecision(ctx context.Context, request *domain.RoleRequest, approverID int64) {
	s.events.publish(ctx, events.Event{
		Type:          events.EventRoleRequestDecided,
		RoleRequestID: request.ID,
		Actor:         events.Actor{UserID: &approverID},
		Payload: events.RoleRequestDecidedPayload{
			UserID:        request.UserID,
			RequestedRole: request.RequestedRole,
			Level:         request.Level,
			Status:        request.Status,
		},
	})
}

func lockRoleRequest(ctx context.Context, repos repository.Repositories, requestID int64) (*domain.RoleRequest, error) {
	request, err := repos.RoleRequests.GetByIDForUpdate(ctx, requestID)
	if err != nil {
		return nil, notFoundOr(err, "role request", map[string]any{"requestId": requestID})
	}
	return request, nil
}

func errPendingRequest(userID int64) error {
	return apperrors.NewConflict("a pending role request already exists for this user", map[string]any{"userId": userID})
}
