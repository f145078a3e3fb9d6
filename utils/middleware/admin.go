package middleware

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/ogzhnbygl/vivolearn/services"
)

// AdminAuditLog records an audit entry for every admin request that
// completes without error. It must run after Required.
func AdminAuditLog(audit *services.AuditService, action, resource string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		caller, ok := GetCaller(c)
		if !ok || !caller.IsAdmin() {
			return c.Next()
		}

		var resourceID uint
		if id := c.Params("id"); id != "" {
			if parsedID, err := strconv.ParseUint(id, 10, 32); err == nil {
				resourceID = uint(parsedID)
			}
		}

		var newValue interface{}
		if c.Method() == fiber.MethodPost || c.Method() == fiber.MethodPut {
			if body := c.Body(); len(body) > 0 {
				_ = json.Unmarshal(body, &newValue)
			}
		}

		err := c.Next()
		if err != nil || c.Response().StatusCode() >= fiber.StatusBadRequest {
			return err
		}

		// The fiber context is recycled after the handler returns; copy what the goroutine needs
		entry := services.AuditEntry{
			ActorID:     caller.ProfileID,
			Action:      action,
			Resource:    resource,
			ResourceID:  resourceID,
			NewValue:    newValue,
			IPAddress:   c.IP(),
			UserAgent:   string(c.Request().Header.UserAgent()),
			Description: c.Method() + " " + c.OriginalURL(),
		}
		go audit.Record(context.Background(), entry)

		return nil
	}
}
