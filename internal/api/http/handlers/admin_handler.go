package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/grievance-service/internal/api/dto"
	"github.com/spec-kit/grievance-service/internal/service"
)

// AdminHandler exposes employee and role request administration.
type AdminHandler struct {
	roleRequests *service.RoleRequestService
}

// NewAdminHandler constructs handler.
func NewAdminHandler(roleRequests *service.RoleRequestService) *AdminHandler {
	return &AdminHandler{roleRequests: roleRequests}
}

// ListEmployees GET /admin/employees.
func (h *AdminHandler) ListEmployees(c *fiber.Ctx) error {
	employees, err := h.roleRequests.ListEmployees(c.UserContext())
	if err != nil {
		return err
	}
	items := make([]dto.EmployeeResponse, 0, len(employees))
	for i := range employees {
		items = append(items, employeeResponse(&employees[i]))
	}
	return c.JSON(items)
}

// ListRoleRequests GET /admin/role-requests?status=PENDING.
func (h *AdminHandler) ListRoleRequests(c *fiber.Ctx) error {
	requests, err := h.roleRequests.List(c.UserContext(), c.Query("status"))
	if err != nil {
		return err
	}
	items := make([]dto.RoleRequestResponse, 0, len(requests))
	for i := range requests {
		items = append(items, roleRequestResponse(&requests[i]))
	}
	return c.JSON(items)
}

// Approve POST /admin/role-requests/:id/approve.
func (h *AdminHandler) Approve(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	if _, err := h.roleRequests.Approve(c.UserContext(), id, principal.UserID()); err != nil {
		return err
	}
	return message(c, http.StatusOK, "Role request approved")
}

// Reject POST /admin/role-requests/:id/reject.
func (h *AdminHandler) Reject(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	if _, err := h.roleRequests.Reject(c.UserContext(), id, principal.UserID()); err != nil {
		return err
	}
	return message(c, http.StatusOK, "Role request rejected")
}
