package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/grievance-service/internal/domain"
	"github.com/spec-kit/grievance-service/internal/events"
	apperrors "github.com/spec-kit/grievance-service/pkg/util/errorutil"
)

// Actor is the caller on whose behalf a service operation runs.
// The zero value is the system (background jobs).
type Actor struct {
	UserID int64
	Role   domain.Role
}

// UserActor builds an actor for an authenticated user.
func UserActor(user *domain.User) Actor {
	return Actor{UserID: user.ID, Role: user.Role}
}

// IsSystem reports whether the action originates from a background job.
func (a Actor) IsSystem() bool {
	return a.UserID == 0
}

// IsAdmin reports whether the actor is an admin or the system.
func (a Actor) IsAdmin() bool {
	return a.IsSystem() || a.Role == domain.RoleAdmin
}

func (a Actor) eventActor() events.Actor {
	if a.IsSystem() {
		return events.Actor{}
	}
	id := a.UserID
	return events.Actor{UserID: &id}
}

func (a Actor) historyActor() *int64 {
	if a.IsSystem() {
		return nil
	}
	id := a.UserID
	return &id
}

// eventSink stamps and dispatches events once their transaction committed.
type eventSink struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	now        func() time.Time
}

func (s eventSink) publish(ctx context.Context, pending ...events.Event) {
	if s.dispatcher == nil {
		return
	}
	for _, event := range pending {
		if event.ID == "" {
			event.ID = uuid.NewString()
		}
		if event.Timestamp.IsZero() {
			event.Timestamp = s.now()
		}
		if err := s.dispatcher.Publish(ctx, event); err != nil && s.logger != nil {
			s.logger.Warn("event handler failed",
				zap.String("event_id", event.ID),
				zap.String("event_type", string(event.Type)),
				zap.Error(err))
		}
	}
}

// notFoundOr maps pgx.ErrNoRows to a NotFound error for resource and
// everything else through MapError.
func notFoundOr(err error, resource string, details map[string]any) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.NewNotFound(resource, details)
	}
	return apperrors.MapError(err)
}

func nowOrDefault(clock func() time.Time) func() time.Time {
	if clock == nil {
		return time.Now
	}
	return clock
}

func loggerOrNop(logger *zap.Logger) *zap.Logger {
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}
