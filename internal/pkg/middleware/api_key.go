package middleware

import (
	"crypto/subtle"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/haulbound/billing/internal/pkg/env"
)

// OperatorKeyMiddleware guards operational endpoints with the static key
// from OPERATOR_API_KEY. An empty configured key rejects everything rather
// than leaving the endpoint open.
func OperatorKeyMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		configured := env.GetEnv("OPERATOR_API_KEY", "")
		presented := extractAPIKeyFromHeader(c)

		if presented == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Missing API key"})
		}
		if configured == "" || subtle.ConstantTimeCompare([]byte(configured), []byte(presented)) != 1 {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Invalid API key"})
		}

		return c.Next()
	}
}

func extractAPIKeyFromHeader(c *fiber.Ctx) string {
	apiKey := strings.TrimSpace(c.Get("X-API-Key"))
	if apiKey != "" {
		return apiKey
	}
	auth := strings.TrimSpace(c.Get("Authorization"))
	if strings.HasPrefix(strings.ToLower(auth), "bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return ""
}
