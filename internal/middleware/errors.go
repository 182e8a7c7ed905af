package middleware

import (
	"errors"
	"log/slog"

	"github.com/arnold/memoboard-api/internal/domain"
	"github.com/gofiber/fiber/v2"
)

// ErrorHandler renders errors as {"error", "code"} JSON. Domain errors keep
// their status and message; anything else is logged and reported as 500.
func ErrorHandler(logger *slog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		message := "Internal Server Error"
		body := fiber.Map{}

		var (
			fiberErr   *fiber.Error
			httpErr    domain.HTTPError
			validation *domain.ValidationError
			stale      *domain.StaleError
		)
		switch {
		case errors.As(err, &fiberErr):
			code, message = fiberErr.Code, fiberErr.Message
		case errors.As(err, &httpErr):
			code, message = httpErr.StatusCode(), httpErr.Error()
			if errors.As(err, &validation) && len(validation.Issues) > 0 {
				body["issues"] = validation.Issues
			}
			if errors.As(err, &stale) {
				body["latestData"] = stale.Latest
			}
		case errors.Is(err, domain.ErrUnauthorized):
			code, message = fiber.StatusUnauthorized, "Unauthorized"
		}

		if code >= fiber.StatusInternalServerError {
			logger.ErrorContext(c.UserContext(), "request failed",
				"error", err,
				"path", c.Path(),
				"method", c.Method(),
			)
		} else {
			logger.DebugContext(c.UserContext(), "request rejected",
				"code", code,
				"message", message,
				"path", c.Path(),
			)
		}

		body["error"] = message
		body["code"] = code
		return c.Status(code).JSON(body)
	}
}
