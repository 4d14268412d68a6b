package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/grievance-service/internal/api/dto"
	"github.com/spec-kit/grievance-service/internal/service"
)

// AuthHandler exposes registration and login.
type AuthHandler struct {
	auth   *service.AuthService
	binder requestBinder
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: authService, binder: newRequestBinder()}
}

// Register handles POST /auth/register.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := h.binder.bind(c, &req); err != nil {
		return err
	}
	result, err := h.auth.Register(c.UserContext(), req.Name, req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(authResponse(result))
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := h.binder.bind(c, &req); err != nil {
		return err
	}
	result, err := h.auth.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(authResponse(result))
}

func authResponse(result *service.AuthResult) dto.AuthResponse {
	return dto.AuthResponse{
		ID:        result.User.ID,
		Email:     result.User.Email,
		Name:      result.User.Name,
		Role:      result.User.Role,
		Token:     result.Token,
		ExpiresAt: result.ExpiresAt,
	}
}
