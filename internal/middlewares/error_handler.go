package middlewares

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
)

type apiErrorInfo struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type apiErrorResponse struct {
	APIVersion string       `json:"apiVersion"`
	Error      apiErrorInfo `json:"error"`
}

// ErrorHandler converts every uncaught error into the JSON error envelope.
// Internal errors are logged and replaced with a generic message so handler
// failures never leak internals to clients.
func ErrorHandler(ctx *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal server error"
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		if code < fiber.StatusInternalServerError {
			message = e.Message
		}
	}
	if code >= fiber.StatusInternalServerError {
		slog.Error("Unhandled error", "path", ctx.Path(), "code", code, "error", err)
	}
	return ctx.Status(code).JSON(apiErrorResponse{
		APIVersion: "1.0",
		Error:      apiErrorInfo{Code: code, Message: message},
	})
}
