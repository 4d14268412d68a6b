package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/grievance-service/internal/api/http/handlers"
	"github.com/spec-kit/grievance-service/internal/auth"
	"github.com/spec-kit/grievance-service/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Complaints     *handlers.ComplaintsHandler
	Admin          *handlers.AdminHandler
	Users          *handlers.UserHandler
	Employees      *handlers.EmployeeHandler
	Notifications  *handlers.NotificationsHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health", cfg.Health.Live)
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/health/metrics", cfg.Health.Metrics)

	authGroup := app.Group("/auth")
	authGroup.Post("/register", cfg.Auth.Register)
	authGroup.Post("/login", cfg.Auth.Login)

	authenticated := cfg.AuthMiddleware.Handle
	adminOnly := auth.RequireRole(domain.RoleAdmin)
	staffOnly := auth.RequireRole(domain.RoleEmployee, domain.RoleAdmin)

	complaints := app.Group("/complaints", authenticated)
	complaints.Post("/add/:userId", auth.RequireSelfOrAdmin("userId"), cfg.Complaints.Create)
	complaints.Get("/user/:userId", auth.RequireSelfOrAdmin("userId"), cfg.Complaints.ListForUser)
	complaints.Get("/assigned/:employeeId", auth.RequireSelfOrAdmin("employeeId"), cfg.Complaints.ListAssigned)
	complaints.Get("/all", adminOnly, cfg.Complaints.ListAll)
	complaints.Get("/:id", cfg.Complaints.Get)
	complaints.Get("/:id/history", cfg.Complaints.History)
	complaints.Post("/:id/assign", adminOnly, cfg.Complaints.Assign)
	complaints.Put("/:id/status", staffOnly, cfg.Complaints.UpdateStatus)
	complaints.Post("/:id/escalate", staffOnly, cfg.Complaints.Escalate)
	complaints.Post("/:id/resolve", adminOnly, cfg.Complaints.Resolve)

	admin := app.Group("/admin", authenticated, adminOnly)
	admin.Get("/employees", cfg.Admin.ListEmployees)
	admin.Get("/role-requests", cfg.Admin.ListRoleRequests)
	admin.Post("/role-requests/:id/approve", cfg.Admin.Approve)
	admin.Post("/role-requests/:id/reject", cfg.Admin.Reject)

	user := app.Group("/user", authenticated)
	user.Post("/request-role", cfg.Users.RequestRole)
	user.Get("/role-request/:userId", auth.RequireSelfOrAdmin("userId"), cfg.Users.LatestRoleRequest)

	employee := app.Group("/employee", authenticated)
	employee.Get("/info/:employeeId", cfg.Employees.Info)

	notifications := app.Group("/notifications", authenticated)
	notifications.Get("/user/:userId", auth.RequireSelfOrAdmin("userId"), cfg.Notifications.List)
	notifications.Post("/:id/read", cfg.Notifications.MarkRead)
}
