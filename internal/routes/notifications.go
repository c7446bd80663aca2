package routes

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/merchant_portal/internal/middleware"
	"github.com/congo-pay/merchant_portal/internal/notification"
)

const defaultNotificationLimit = 20

// RegisterNotificationRoutes exposes the caller's recent toasts, newest
// first. r must be guarded by BearerAuth.
func RegisterNotificationRoutes(r fiber.Router, inbox notification.Inbox) {
	r.Get("/notifications", func(c *fiber.Ctx) error {
		limit := c.QueryInt("limit", defaultNotificationLimit)
		toasts, err := inbox.Recent(c.UserContext(), 0)
		if err != nil {
			return fiber.NewError(http.StatusInternalServerError, "load notifications")
		}
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"notifications": notification.ForUser(toasts, middleware.UserID(c), limit),
		})
	})
}
