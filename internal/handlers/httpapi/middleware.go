package httpapi

import (
	"strings"
	"time"

	"github.com/flockhq/flock/internal/services/authorization"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
)

// APIKeyHeader carries the raw API key; "Authorization: Bearer <key>" is also accepted
const APIKeyHeader = "X-API-Key"

// APIKeyMiddleware authenticates the request and stores the principal in
// the user context seen by the services.
func APIKeyMiddleware(auth authorization.AuthenticatorInterface) fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, err := auth.Authenticate(c.UserContext(), apiKeyFromRequest(c))
		if err != nil {
			return writeError(c, err)
		}

		c.SetUserContext(authorization.WithPrincipal(c.UserContext(), principal))
		c.Locals("principal", principal)
		return c.Next()
	}
}

func apiKeyFromRequest(c *fiber.Ctx) string {
	if key := strings.TrimSpace(c.Get(APIKeyHeader)); key != "" {
		return key
	}

	parts := strings.Fields(c.Get(fiber.HeaderAuthorization))
	if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
		return parts[1]
	}
	return ""
}

// requestLogger writes one zerolog line per request
func requestLogger(log zerolog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if fe, ok := err.(*fiber.Error); ok {
			status = fe.Code
		} else if err != nil {
			status = fiber.StatusInternalServerError
		}

		event := log.Info()
		if status >= fiber.StatusInternalServerError {
			event = log.Error().Err(err)
		} else if status >= fiber.StatusBadRequest {
			event = log.Warn()
		}
		event.
			Str("request_id", c.GetRespHeader(fiber.HeaderXRequestID)).
			Str("method", c.Method()).
			Str("path", c.Path()).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Msg("http request")

		return err
	}
}
