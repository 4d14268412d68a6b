package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/grievance-service/internal/api/dto"
	"github.com/spec-kit/grievance-service/internal/service"
)

// NotificationsHandler lists and acknowledges in-app notifications.
type NotificationsHandler struct {
	service *service.NotificationService
}

// NewNotificationsHandler constructs handler.
func NewNotificationsHandler(notificationService *service.NotificationService) *NotificationsHandler {
	return &NotificationsHandler{service: notificationService}
}

// List GET /notifications/user/:userId.
func (h *NotificationsHandler) List(c *fiber.Ctx) error {
	userID, err := paramID(c, "userId")
	if err != nil {
		return err
	}
	limit, offset := page(c)
	list, err := h.service.ListForUser(c.UserContext(), userID, limit, offset)
	if err != nil {
		return err
	}
	items := make([]dto.NotificationResponse, 0, len(list))
	for _, n := range list {
		items = append(items, dto.NotificationResponse{
			ID:        n.ID,
			Message:   n.Message,
			IsRead:    n.IsRead,
			CreatedAt: n.CreatedAt,
		})
	}
	return c.JSON(items)
}

// MarkRead POST /notifications/:id/read.
func (h *NotificationsHandler) MarkRead(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	if err := h.service.MarkRead(c.UserContext(), id, principal.UserID()); err != nil {
		return err
	}
	return message(c, http.StatusOK, "Notification marked as read")
}
