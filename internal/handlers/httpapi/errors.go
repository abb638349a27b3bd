package httpapi

import (
	"context"
	"errors"

	"github.com/flockhq/flock/internal/entities"
	"github.com/gofiber/fiber/v2"
)

// Error codes in JSON error bodies
const (
	CodeInvalidRecord     = "INVALID_RECORD"
	CodeInvalidRequest    = "INVALID_REQUEST"
	CodeDanglingReference = "DANGLING_REFERENCE"
	CodeNotFound          = "NOT_FOUND"
	CodeConflict          = "CONFLICT"
	CodeHasDependents     = "HAS_DEPENDENTS"
	CodeUnauthenticated   = "UNAUTHENTICATED"
	CodeAPIKeyExpired     = "API_KEY_EXPIRED"
	CodeAPIKeyRevoked     = "API_KEY_REVOKED"
	CodePermissionDenied  = "PERMISSION_DENIED"
	CodeTimeout           = "TIMEOUT"
	CodeInternal          = "INTERNAL"
)

// ErrorBody is the JSON shape of every error response
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail describes one failed request
type ErrorDetail struct {
	Code       string         `json:"code"`
	Message    string         `json:"message"`
	Issues     []Issue        `json:"issues,omitempty"`
	Dependents map[string]int `json:"dependents,omitempty"`
}

// Issue is one invalid field
type Issue struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// classify maps a service error to an HTTP status and error code
func classify(err error) (int, ErrorDetail) {
	detail := ErrorDetail{Message: err.Error()}

	var verr *entities.ValidationError
	var derr *entities.DependentsError

	switch {
	case errors.As(err, &verr):
		detail.Code = CodeInvalidRecord
		for _, issue := range verr.Issues {
			detail.Issues = append(detail.Issues, Issue{Field: issue.Field, Message: issue.Message})
		}
		return fiber.StatusBadRequest, detail
	case errors.As(err, &derr):
		detail.Code = CodeHasDependents
		detail.Dependents = derr.Dependents
		return fiber.StatusConflict, detail
	case errors.Is(err, entities.ErrKeyExpired):
		detail.Code = CodeAPIKeyExpired
		return fiber.StatusUnauthorized, detail
	case errors.Is(err, entities.ErrKeyRevoked):
		detail.Code = CodeAPIKeyRevoked
		return fiber.StatusUnauthorized, detail
	case errors.Is(err, entities.ErrUnauthenticated):
		detail.Code = CodeUnauthenticated
		return fiber.StatusUnauthorized, detail
	case errors.Is(err, entities.ErrPermissionDenied):
		detail.Code = CodePermissionDenied
		return fiber.StatusForbidden, detail
	case errors.Is(err, entities.ErrDanglingReference):
		detail.Code = CodeDanglingReference
		return fiber.StatusUnprocessableEntity, detail
	case errors.Is(err, entities.ErrInvalidRecord), errors.Is(err, entities.ErrInvalidSchema):
		detail.Code = CodeInvalidRecord
		return fiber.StatusBadRequest, detail
	case errors.Is(err, entities.ErrConflict):
		detail.Code = CodeConflict
		return fiber.StatusConflict, detail
	case errors.Is(err, entities.ErrNotFound),
		errors.Is(err, entities.ErrUnknownModel),
		errors.Is(err, entities.ErrUnknownRelation),
		errors.Is(err, entities.ErrSchemaNotFound):
		detail.Code = CodeNotFound
		return fiber.StatusNotFound, detail
	case errors.Is(err, context.DeadlineExceeded):
		detail.Code = CodeTimeout
		return fiber.StatusGatewayTimeout, detail
	}

	var fe *fiber.Error
	if errors.As(err, &fe) {
		detail.Code = CodeInvalidRequest
		if fe.Code == fiber.StatusNotFound {
			detail.Code = CodeNotFound
		}
		return fe.Code, detail
	}

	detail.Code = CodeInternal
	detail.Message = "internal error"
	return fiber.StatusInternalServerError, detail
}

func writeError(c *fiber.Ctx, err error) error {
	status, detail := classify(err)
	return c.Status(status).JSON(ErrorBody{Error: detail})
}

// errorHandler renders errors that escape a handler, such as unknown routes
func errorHandler(c *fiber.Ctx, err error) error {
	return writeError(c, err)
}

func badRequest(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(ErrorBody{Error: ErrorDetail{
		Code:    CodeInvalidRequest,
		Message: message,
	}})
}
