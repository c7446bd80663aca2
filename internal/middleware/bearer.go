package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/merchant_portal/internal/auth"
)

const userIDLocal = "user_id"

// TokenVerifier validates access tokens.
type TokenVerifier interface {
	Verify(ctx context.Context, accessToken string) (auth.Claims, error)
}

// BearerAuth rejects requests without a valid access token and stores the
// token's subject for handlers.
func BearerAuth(tokens TokenVerifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authz := c.Get(fiber.HeaderAuthorization)
		if len(authz) < len("Bearer ") || !strings.EqualFold(authz[:len("Bearer ")], "bearer ") {
			return fiber.NewError(http.StatusUnauthorized, "missing bearer token")
		}
		token := strings.TrimSpace(authz[len("Bearer "):])
		claims, err := tokens.Verify(c.UserContext(), token)
		if err != nil {
			return fiber.NewError(http.StatusUnauthorized, "invalid token")
		}
		c.Locals(userIDLocal, claims.Subject)
		return c.Next()
	}
}

// UserID returns the subject stored by BearerAuth.
func UserID(c *fiber.Ctx) string {
	id, _ := c.Locals(userIDLocal).(string)
	return id
}
