package handlers

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/grievance-service/internal/api/dto"
	"github.com/spec-kit/grievance-service/internal/auth"
	"github.com/spec-kit/grievance-service/internal/service"
	apperrors "github.com/spec-kit/grievance-service/pkg/util/errorutil"
	"github.com/spec-kit/grievance-service/pkg/validator"
)

const maxPageSize = 100

// requestBinder parses and validates request bodies.
type requestBinder struct {
	validator *validator.CustomValidator
}

func newRequestBinder() requestBinder {
	return requestBinder{validator: validator.NewValidator()}
}

func (b requestBinder) bind(c *fiber.Ctx, req any) error {
	if err := c.BodyParser(req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := b.validator.Validate(req); err != nil {
		return apperrors.NewValidationError("validation failed", b.validator.FormatValidationErrors(err))
	}
	return nil
}

func requirePrincipal(c *fiber.Ctx) (*auth.Principal, error) {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return nil, apperrors.NewUnauthorized("user required")
	}
	return principal, nil
}

func actorFrom(c *fiber.Ctx) (service.Actor, error) {
	principal, err := requirePrincipal(c)
	if err != nil {
		return service.Actor{}, err
	}
	return service.UserActor(principal.User), nil
}

func paramID(c *fiber.Ctx, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Params(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.NewValidationError("invalid "+name, map[string]any{name: c.Params(name)})
	}
	return id, nil
}

// page reads limit/offset query values. Complaint lists return every row
// when no limit is given; notifications fall back to the repository default.
func page(c *fiber.Ctx) (int, int) {
	limit := c.QueryInt("limit", 0)
	if limit < 0 {
		limit = 0
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	offset := c.QueryInt("offset", 0)
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// queryList splits a comma separated query value.
func queryList(c *fiber.Ctx, key string) []string {
	raw := c.Query(key)
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func message(c *fiber.Ctx, status int, text string) error {
	return c.Status(status).JSON(dto.MessageResponse{Message: text})
}
