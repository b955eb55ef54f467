package controllers

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/haulbound/billing/internal/pkg/billing"
)

var validate = validator.New()

// statusForError maps the service error taxonomy to HTTP status codes.
func statusForError(kind billing.ErrorKind) int {
	switch kind {
	case billing.ErrorNotFound:
		return fiber.StatusNotFound
	case billing.ErrorValidation:
		return fiber.StatusBadRequest
	case billing.ErrorConflict:
		return fiber.StatusConflict
	case billing.ErrorTooManyRequests:
		return fiber.StatusTooManyRequests
	default:
		return fiber.StatusInternalServerError
	}
}

func statusForSuccess(hint billing.StatusHint) int {
	if hint == billing.StatusCreated {
		return fiber.StatusCreated
	}
	return fiber.StatusOK
}

// respondResult writes the uniform JSON envelope for a service result.
func respondResult[T any](c *fiber.Ctx, result billing.Result[T]) error {
	if !result.IsSuccess {
		return c.Status(statusForError(result.Error)).JSON(fiber.Map{
			"error":   string(result.Error),
			"message": result.Message,
		})
	}
	return c.Status(statusForSuccess(result.Status)).JSON(fiber.Map{
		"message": result.Message,
		"data":    result.Data,
	})
}

// parseBody binds and validates a JSON request body. When ok is false the
// 400 response has already been written and the handler returns err as-is.
func parseBody(c *fiber.Ctx, out interface{}) (ok bool, err error) {
	if err := c.BodyParser(out); err != nil {
		return false, c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "validation_error",
			"message": "Invalid request body",
		})
	}
	if err := validate.Struct(out); err != nil {
		return false, c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "validation_error",
			"message": err.Error(),
		})
	}
	return true, nil
}
