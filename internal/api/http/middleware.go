package http

import (
	"context"
	"errors"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/grievance-service/internal/observability"
	apperrors "github.com/spec-kit/grievance-service/pkg/util/errorutil"
)

// MaxBodyBytes bounds request bodies, attachments included.
const MaxBodyBytes = 10 << 20

// NewApp builds a fiber app whose framework-level errors (unknown route,
// oversized body) share the JSON envelope of handler errors.
func NewApp(name string, logger *zap.Logger, metrics *observability.Metrics) *fiber.App {
	return fiber.New(fiber.Config{
		AppName:               name,
		BodyLimit:             MaxBodyBytes,
		DisableStartupMessage: true,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			writeError(c, err, logger, metrics)
			return nil
		},
	})
}

// RegisterMiddlewares attaches global middlewares such as error handling and logging.
// The request logger wraps the error handler so it observes the final status.
func RegisterMiddlewares(app *fiber.App, logger *zap.Logger, metrics *observability.Metrics, timeout time.Duration) {
	if timeout > 0 {
		app.Use(requestTimeoutMiddleware(timeout))
	}
	app.Use(observability.RequestLogger(logger, metrics))
	app.Use(errorHandlingMiddleware(logger, metrics))
}

func requestTimeoutMiddleware(timeout time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), timeout)
		defer cancel()
		c.SetUserContext(ctx)
		return c.Next()
	}
}

func errorHandlingMiddleware(logger *zap.Logger, metrics *observability.Metrics) fiber.Handler {
	return func(c *fiber.Ctx) (err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("panic recovered", zap.Any("panic", r), zap.ByteString("stack", debug.Stack()))
				err = apperrors.NewInternalError(nil)
			}
			if err != nil {
				writeError(c, err, logger, metrics)
				err = nil
			}
		}()
		return c.Next()
	}
}

func writeError(c *fiber.Ctx, err error, logger *zap.Logger, metrics *observability.Metrics) {
	domainErr := toDomainError(err)
	metrics.RecordError(c.Route().Path, c.Method(), domainErr.Code)

	response := fiber.Map{
		"code":    domainErr.Code,
		"message": domainErr.Message,
	}
	if len(domainErr.Details) > 0 {
		response["details"] = domainErr.Details
	}
	if domainErr.HTTPStatus >= http.StatusInternalServerError {
		logger.Error("request failed",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Error(err),
		)
	}
	_ = c.Status(domainErr.HTTPStatus).JSON(response)
}

// toDomainError keeps framework errors at their own status instead of
// collapsing them into a 500.
func toDomainError(err error) *apperrors.DomainError {
	var fe *fiber.Error
	if !errors.As(err, &fe) {
		return apperrors.ToDomainError(err)
	}
	switch fe.Code {
	case http.StatusNotFound:
		return apperrors.NewDomainError(apperrors.CodeNotFound, "route not found", fe.Code, nil)
	case http.StatusMethodNotAllowed:
		return apperrors.NewDomainError("METHOD_NOT_ALLOWED", fe.Message, fe.Code, nil)
	case http.StatusRequestEntityTooLarge:
		return apperrors.NewDomainError(apperrors.CodeValidation, "request body too large", fe.Code, nil)
	case http.StatusUnauthorized:
		return apperrors.NewDomainError(apperrors.CodeUnauthorized, fe.Message, fe.Code, nil)
	case http.StatusForbidden:
		return apperrors.NewDomainError(apperrors.CodeForbidden, fe.Message, fe.Code, nil)
	}
	if fe.Code >= http.StatusInternalServerError {
		return apperrors.ToDomainError(apperrors.NewInternalError(err))
	}
	return apperrors.NewDomainError(apperrors.CodeValidation, fe.Message, fe.Code, nil)
}
