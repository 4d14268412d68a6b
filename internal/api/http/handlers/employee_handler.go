package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/grievance-service/internal/service"
)

// EmployeeHandler exposes employee profiles.
type EmployeeHandler struct {
	roleRequests *service.RoleRequestService
}

// NewEmployeeHandler constructs handler.
func NewEmployeeHandler(roleRequests *service.RoleRequestService) *EmployeeHandler {
	return &EmployeeHandler{roleRequests: roleRequests}
}

// Info GET /employee/info/:employeeId, keyed by the employee's user id.
func (h *EmployeeHandler) Info(c *fiber.Ctx) error {
	userID, err := paramID(c, "employeeId")
	if err != nil {
		return err
	}
	employee, err := h.roleRequests.GetEmployee(c.UserContext(), userID)
	if err != nil {
		return err
	}
	return c.JSON(employeeResponse(employee))
}
