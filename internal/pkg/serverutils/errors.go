package serverutils

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
)

// ApiError carries an HTTP status through the service layer up to the error
// handler middleware, which renders it as {"detail": "..."}.
type ApiError struct {
	Status  int
	Message string
}

func (e *ApiError) Error() string {
	return e.Message
}

func NewApiError(status int, message string) *ApiError {
	return &ApiError{Status: status, Message: message}
}

func NotFound(message string) *ApiError {
	return &ApiError{Status: fiber.StatusNotFound, Message: message}
}

func BadRequest(message string) *ApiError {
	return &ApiError{Status: fiber.StatusBadRequest, Message: message}
}

type ErrorDetail struct {
	Detail string `json:"detail"`
}

// ErrorHandlerMiddleware converts errors bubbling out of handlers into the
// API's error shape. Unknown errors become 500 without leaking internals.
func ErrorHandlerMiddleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}

		var apiErr *ApiError
		if errors.As(err, &apiErr) {
			return ctx.Status(apiErr.Status).JSON(ErrorDetail{Detail: apiErr.Message})
		}

		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			return ctx.Status(fiberErr.Code).JSON(ErrorDetail{Detail: fiberErr.Message})
		}

		return ctx.Status(fiber.StatusInternalServerError).JSON(ErrorDetail{
			Detail: fmt.Sprintf("internal server error: %v", err),
		})
	}
}
