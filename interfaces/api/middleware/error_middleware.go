package middleware

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"incident-map/domain/services"
	"incident-map/pkg/logger"
	"incident-map/pkg/utils"
)

// StatusFor maps a service error kind to its HTTP status and public message.
func StatusFor(err error) (int, string) {
	var fe *fiber.Error
	switch {
	case errors.As(err, &fe):
		return fe.Code, fe.Message
	case errors.Is(err, services.ErrNoFaceDetected):
		return fiber.StatusBadRequest, "No face detected in the uploaded image"
	case errors.Is(err, services.ErrValidation):
		return fiber.StatusBadRequest, "Invalid request"
	case errors.Is(err, services.ErrNotFound):
		return fiber.StatusNotFound, "Resource not found"
	case errors.Is(err, services.ErrForbidden):
		return fiber.StatusForbidden, "Access denied"
	case errors.Is(err, services.ErrUpstream):
		return fiber.StatusBadGateway, "A dependent service is unavailable"
	default:
		return fiber.StatusInternalServerError, "An error occurred"
	}
}

func ErrorHandler() fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code, message := StatusFor(err)

		data := map[string]interface{}{"status_code": code, "path": c.Path(), "method": c.Method()}
		if code >= fiber.StatusInternalServerError {
			logger.Error(logger.CategoryAPI, "error_handler", "Request error occurred", err, data)
		} else {
			logger.Debug(logger.CategoryAPI, "client_error", err.Error(), data)
		}

		return utils.ErrorResponse(c, code, message, err)
	}
}
