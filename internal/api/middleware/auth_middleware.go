package middleware

import (
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/oakcrestrealty/socialcast/internal/service"
)

type AuthMiddleware struct {
	s service.ApiKeyService
}

func NewAuthMiddleware(service service.ApiKeyService) *AuthMiddleware {
	return &AuthMiddleware{s: service}
}

// AuthMiddleware guards the internal API group. A key arrives either in the
// X-Api-Key header or the api_key query parameter.
func (m *AuthMiddleware) AuthMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		apiKey := c.Get("X-Api-Key")
		if apiKey == "" {
			apiKey = c.Query("api_key")
		}

		if apiKey == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Missing API key",
			})
		}

		valid, err := m.s.Validate(c.Context(), apiKey)
		if err != nil {
			log.Printf("API key validation failed: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Unable to validate API key",
			})
		}
		if !valid {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid API key",
			})
		}

		return c.Next()
	}
}
