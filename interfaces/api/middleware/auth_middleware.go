package middleware

import (
	"crypto/subtle"
	"errors"

	"github.com/gofiber/fiber/v2"

	"incident-map/pkg/logger"
	"incident-map/pkg/utils"
)

// Protected validates the bearer JWT and stores the caller in c.Locals("user").
func Protected(jwtSecret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return utils.UnauthorizedResponse(c, "Missing authorization header")
		}

		token := utils.BearerToken(authHeader)
		if token == "" {
			return utils.UnauthorizedResponse(c, "Invalid authorization header format")
		}

		userCtx, err := utils.ParseUserToken(token, jwtSecret)
		if err != nil {
			logger.Warn(logger.CategoryAuth, "token_rejected", "Token validation failed", map[string]interface{}{
				"error": err.Error(),
				"path":  c.Path(),
			})
			switch {
			case errors.Is(err, utils.ErrExpiredToken):
				return utils.UnauthorizedResponse(c, "Token has expired")
			case errors.Is(err, utils.ErrMissingToken):
				return utils.UnauthorizedResponse(c, "Missing token")
			default:
				return utils.UnauthorizedResponse(c, "Invalid token")
			}
		}

		c.Locals("user", userCtx)
		return c.Next()
	}
}

// OptionalWithQueryToken sets the user when a valid token is present in the
// header or the "token" query parameter. Websocket clients cannot send headers.
func OptionalWithQueryToken(jwtSecret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := utils.BearerToken(c.Get("Authorization"))
		if token == "" {
			token = c.Query("token")
		}
		if token == "" {
			return c.Next()
		}

		if userCtx, err := utils.ParseUserToken(token, jwtSecret); err == nil {
			c.Locals("user", userCtx)
		}
		return c.Next()
	}
}

// AdminToken guards operator endpoints with the X-Admin-Token header.
func AdminToken(adminToken string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := c.Get("X-Admin-Token")
		if token == "" {
			token = c.Query("token")
		}
		if adminToken == "" || subtle.ConstantTimeCompare([]byte(token), []byte(adminToken)) != 1 {
			return utils.UnauthorizedResponse(c, "Invalid admin token")
		}
		return c.Next()
	}
}
