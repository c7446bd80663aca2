package routes

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/merchant_portal/internal/middleware"
	"github.com/congo-pay/merchant_portal/internal/profile"
)

// RegisterProfileRoutes exposes the authenticated vendor's profile.
func RegisterProfileRoutes(r fiber.Router, profiles profile.Repository) {
	r.Get("/profile", func(c *fiber.Ctx) error {
		uid := middleware.UserID(c)
		if uid == "" {
			return fiber.NewError(http.StatusUnauthorized, "unauthorized")
		}
		p, err := profiles.Get(c.UserContext(), uid)
		if errors.Is(err, profile.ErrNotFound) {
			return fiber.NewError(http.StatusNotFound, "profile not found")
		}
		if err != nil {
			return fiber.NewError(http.StatusInternalServerError, "load profile")
		}
		return c.Status(http.StatusOK).JSON(p)
	})
}
