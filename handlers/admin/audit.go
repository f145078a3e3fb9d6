package admin

import (
	"github.com/gofiber/fiber/v2"
	"github.com/ogzhnbygl/vivolearn/services"
	"github.com/ogzhnbygl/vivolearn/utils/middleware"
	"github.com/ogzhnbygl/vivolearn/utils/query"
	"github.com/ogzhnbygl/vivolearn/utils/response"
)

// ListAuditLogs retrieves audit logs with pagination
// GET /admin/audit-logs
func (h *AdminHandler) ListAuditLogs(c *fiber.Ctx) error {
	caller, _ := middleware.GetCaller(c)
	page := query.Pagination(c, 20, 100)

	actorID, err := query.OptionalUint(c, "actor_id")
	if err != nil {
		return response.BadRequest(c, "Invalid actor_id")
	}

	logs, total, err := h.audit.ListAuditLogs(c.UserContext(), caller, services.AuditQuery{
		Action:   c.Query("action"),
		Resource: c.Query("resource"),
		ActorID:  actorID,
		Page:     page.Page,
		Limit:    page.Limit,
	})
	if err != nil {
		return response.ServiceError(c, err)
	}

	return response.Paginated(c, logs, response.CalculatePagination(page.Page, page.Limit, total))
}
