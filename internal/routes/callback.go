package routes

import (
	"context"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/merchant_portal/internal/session"
)

// EmailConfirmer redeems confirmation tokens.
type EmailConfirmer interface {
	ConfirmEmail(ctx context.Context, token string) (*session.Session, error)
}

// RegisterCallbackRoute serves the link sent in confirmation emails. A
// successful confirmation signs the user in through the provider's
// notification, which also schedules the onboarding reconciliation.
func RegisterCallbackRoute(app *fiber.App, path string, confirmer EmailConfirmer) {
	app.Get(path, func(c *fiber.Ctx) error {
		token := strings.TrimSpace(c.Query("token"))
		if token == "" {
			return fiber.NewError(http.StatusBadRequest, "missing token")
		}
		sess, err := confirmer.ConfirmEmail(c.UserContext(), token)
		if err != nil {
			return fiber.NewError(http.StatusBadRequest, err.Error())
		}
		// The link holder owns the confirmed session; the manager may already
		// track someone else.
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"confirmed": true,
			"state":     newStateView(session.State{User: sess.User, Session: sess}),
		})
	})
}
