package helpers

import (
	"strconv"

	"winzone/models"

	"github.com/gofiber/fiber/v2"
)

// QueryMode reads the game_mode query parameter. Missing means def.
func QueryMode(c *fiber.Ctx, def int) (int, bool) {
	raw := c.Query("game_mode")
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// QueryVariant reads the game_type query parameter. Missing means def.
func QueryVariant(c *fiber.Ctx, def models.GameVariant) (models.GameVariant, bool) {
	raw := c.Query("game_type")
	if raw == "" {
		return def, true
	}
	v, err := models.ParseVariant(raw)
	if err != nil {
		return "", false
	}
	return v, true
}
