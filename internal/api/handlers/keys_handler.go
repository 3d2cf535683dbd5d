package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/oakcrestrealty/socialcast/internal/service"
)

type KeysHandler struct {
	s service.ApiKeyService
}

func NewKeysHandler(service service.ApiKeyService) *KeysHandler {
	return &KeysHandler{s: service}
}

func (h *KeysHandler) CreateKey(c *fiber.Ctx) error {
	name := c.FormValue("name")
	if name == "" {
		name = c.Query("name")
	}

	key, err := h.s.Create(c.Context(), name)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.Status(fiber.StatusOK).JSON(key)
}

func (h *KeysHandler) ListKeys(c *fiber.Ctx) error {
	keys, err := h.s.List(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Unable to list API keys",
		})
	}

	return c.Status(fiber.StatusOK).JSON(keys)
}

func (h *KeysHandler) RemoveKey(c *fiber.Ctx) error {
	keyID := c.QueryInt("id", 0)

	err := h.s.Remove(c.Context(), int64(keyID))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Unable to remove API key",
		})
	}

	return c.SendStatus(fiber.StatusOK)
}
