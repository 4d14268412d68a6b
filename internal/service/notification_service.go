package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/grievance-service/internal/domain"
	"github.com/spec-kit/grievance-service/internal/events"
	"github.com/spec-kit/grievance-service/internal/repository"
	apperrors "github.com/spec-kit/grievance-service/pkg/util/errorutil"
)

// EventPublisher forwards serialized events to an external broker.
type EventPublisher interface {
	Publish(ctx context.Context, data []byte, attrs map[string]string) (string, error)
}

// NotificationService turns domain events into per-user notifications.
type NotificationService struct {
	dispatcher    events.Dispatcher
	notifications repository.NotificationRepository
	publisher     EventPublisher
	logger        *zap.Logger
}

// NotificationDependencies bundles collaborators.
type NotificationDependencies struct {
	Dispatcher       events.Dispatcher
	NotificationRepo repository.NotificationRepository
	// Publisher is optional.
	Publisher EventPublisher
	Logger    *zap.Logger
}

// NewNotificationService creates the service.
func NewNotificationService(deps NotificationDependencies) *NotificationService {
	return &NotificationService{
		dispatcher:    deps.Dispatcher,
		notifications: deps.NotificationRepo,
		publisher:     deps.Publisher,
		logger:        loggerOrNop(deps.Logger),
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(n.handleComplaintCreated, events.EventComplaintCreated)
	n.dispatcher.Subscribe(n.handleComplaintAssigned, events.EventComplaintAssigned)
	n.dispatcher.Subscribe(n.handleComplaintStatusChanged,
		events.EventComplaintStatusChanged,
		events.EventComplaintEscalated,
		events.EventComplaintResolved,
	)
	n.dispatcher.Subscribe(n.handleRoleRequestDecided, events.EventRoleRequestDecided)
}

func (n *NotificationService) handleComplaintCreated(ctx context.Context, event events.Event) error {
	n.logger.Info("ComplaintCreated", zap.Int64("complaint_id", event.ComplaintID))
	n.forward(ctx, event)
	return nil
}

func (n *NotificationService) handleComplaintAssigned(ctx context.Context, event events.Event) error {
	n.logger.Info("ComplaintAssigned", zap.Int64("complaint_id", event.ComplaintID), zap.Any("payload", event.Payload))
	n.forward(ctx, event)
	payload, ok := event.Payload.(events.ComplaintAssignedPayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T for %s", event.Payload, event.Type)
	}
	return n.notify(ctx, payload.AssigneeID, "Task assigned: "+payload.Title)
}

func (n *NotificationService) handleComplaintStatusChanged(ctx context.Context, event events.Event) error {
	n.logger.Info("ComplaintStatusChanged",
		zap.Int64("complaint_id", event.ComplaintID),
		zap.String("event_type", string(event.Type)),
		zap.Any("payload", event.Payload))
	n.forward(ctx, event)
	payload, ok := event.Payload.(events.ComplaintStatusChangedPayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T for %s", event.Payload, event.Type)
	}
	return n.notify(ctx, payload.SubmitterID, statusMessage(payload))
}

func (n *NotificationService) handleRoleRequestDecided(ctx context.Context, event events.Event) error {
	n.logger.Info("RoleRequestDecided", zap.Int64("role_request_id", event.RoleRequestID), zap.Any("payload", event.Payload))
	n.forward(ctx, event)
	payload, ok := event.Payload.(events.RoleRequestDecidedPayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T for %s", event.Payload, event.Type)
	}
	message := "Your request for the " + string(payload.RequestedRole) + " role was rejected."
	if payload.Status == domain.RoleRequestApproved {
		message = fmt.Sprintf("Your request for the %s role was approved. You are now a %s employee.",
			payload.RequestedRole, strings.ToLower(string(payload.Level)))
	}
	return n.notify(ctx, payload.UserID, message)
}

// ListForUser returns a user's notifications, newest first.
func (n *NotificationService) ListForUser(ctx context.Context, userID int64, limit, offset int) ([]domain.Notification, error) {
	list, err := n.notifications.ListByUser(ctx, userID, limit, offset)
	return list, apperrors.MapError(err)
}

// MarkRead flags a notification owned by userID as read.
func (n *NotificationService) MarkRead(ctx context.Context, id, userID int64) error {
	if err := n.notifications.MarkRead(ctx, id, userID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("notification", map[string]any{"notificationId": id})
		}
		return apperrors.MapError(err)
	}
	return nil
}

func (n *NotificationService) notify(ctx context.Context, userID int64, message string) error {
	if n.notifications == nil || userID == 0 {
		return nil
	}
	return n.notifications.Create(ctx, &domain.Notification{UserID: userID, Message: message})
}

// forward is best effort; broker failures never fail the request.
func (n *NotificationService) forward(ctx context.Context, event events.Event) {
	if n.publisher == nil {
		return
	}
	data, err := json.Marshal(event)
	if err != nil {
		n.logger.Warn("encode event", zap.String("event_id", event.ID), zap.Error(err))
		return
	}
	attrs := map[string]string{"event_type": string(event.Type)}
	if event.ComplaintID != 0 {
		attrs["complaint_id"] = strconv.FormatInt(event.ComplaintID, 10)
	}
	if _, err := n.publisher.Publish(ctx, data, attrs); err != nil {
		n.logger.Warn("forward event", zap.String("event_id", event.ID), zap.Error(err))
	}
}

func statusMessage(payload events.ComplaintStatusChangedPayload) string {
	switch payload.NewStatus {
	case domain.ComplaintStatusResolved:
		return fmt.Sprintf("Your complaint '%s' has been resolved!", payload.Title)
	case domain.ComplaintStatusEscalated:
		return fmt.Sprintf("Your complaint '%s' has been escalated.", payload.Title)
	case domain.ComplaintStatusInProgress:
		return fmt.Sprintf("Your complaint '%s' is now in progress.", payload.Title)
	default:
		return fmt.Sprintf("Your complaint '%s' is now %s.", payload.Title, payload.NewStatus)
	}
}
