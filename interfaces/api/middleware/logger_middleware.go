package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"incident-map/pkg/logger"
)

// RequestLogger writes one api entry per request.
func RequestLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			status, _ = StatusFor(err)
		}
		logger.API("request", c.Method()+" "+c.Path(), map[string]interface{}{
			"status":     status,
			"latency_ms": time.Since(start).Milliseconds(),
			"ip":         c.IP(),
		})
		return err
	}
}
