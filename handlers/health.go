package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/ogzhnbygl/vivolearn/database"
	"github.com/ogzhnbygl/vivolearn/utils/response"
)

// HandleCheckHealth handles GET /ping
func HandleCheckHealth(c *fiber.Ctx, store database.Storage) error {
	if err := store.HealthCheck(); err != nil {
		return response.ServiceUnavailable(c, "Database unavailable")
	}
	return c.JSON(fiber.Map{"status": "ok"})
}
