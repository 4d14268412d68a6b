package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/grievance-service/internal/api/dto"
	"github.com/spec-kit/grievance-service/internal/service"
	apperrors "github.com/spec-kit/grievance-service/pkg/util/errorutil"
)

// UserHandler covers role requests filed by users.
type UserHandler struct {
	roleRequests *service.RoleRequestService
	binder       requestBinder
}

// NewUserHandler constructs handler.
func NewUserHandler(roleRequests *service.RoleRequestService) *UserHandler {
	return &UserHandler{roleRequests: roleRequests, binder: newRequestBinder()}
}

// RequestRole POST /user/request-role. Only admins may file for someone else.
func (h *UserHandler) RequestRole(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	var req dto.SubmitRoleRequest
	if err := h.binder.bind(c, &req); err != nil {
		return err
	}
	userID := principal.UserID()
	if req.UserID != 0 && req.UserID != userID {
		if !principal.User.IsAdmin() {
			return apperrors.NewForbidden("cannot request a role for another user")
		}
		userID = req.UserID
	}
	if _, err := h.roleRequests.Submit(c.UserContext(), userID, req.RequestedRole, req.Level, req.Reason); err != nil {
		return err
	}
	return message(c, http.StatusOK, "Role request submitted")
}

// LatestRoleRequest GET /user/role-request/:userId. Responds null when none exists.
func (h *UserHandler) LatestRoleRequest(c *fiber.Ctx) error {
	userID, err := paramID(c, "userId")
	if err != nil {
		return err
	}
	request, err := h.roleRequests.Latest(c.UserContext(), userID)
	if err != nil {
		return err
	}
	if request == nil {
		return c.JSON(nil)
	}
	return c.JSON(roleRequestResponse(request))
}
