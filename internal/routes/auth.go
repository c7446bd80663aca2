package routes

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/merchant_portal/internal/middleware"
	"github.com/congo-pay/merchant_portal/internal/onboarding"
	"github.com/congo-pay/merchant_portal/internal/session"
)

// TokenRevoker invalidates every token issued to a user.
type TokenRevoker interface {
	Revoke(ctx context.Context, userID string) error
}

// AuthRoutes carries what RegisterAuthRoutes needs. Nil middlewares are
// skipped, except Guard, which is required.
type AuthRoutes struct {
	Manager     *session.Manager
	Tokens      TokenRevoker
	Guard       fiber.Handler
	RateLimit   fiber.Handler
	Idempotency fiber.Handler
}

type businessRequest struct {
	Name           string   `json:"name"`
	Type           string   `json:"type"`
	Description    string   `json:"description"`
	Location       string   `json:"location"`
	Phone          string   `json:"phone"`
	WhatsApp       string   `json:"whatsapp"`
	WorkingHours   string   `json:"working_hours"`
	PaymentMethods []string `json:"payment_methods"`
	DeliveryAreas  []string `json:"delivery_areas"`
}

type signUpRequest struct {
	Email    string           `json:"email"`
	Password string           `json:"password"`
	FullName string           `json:"full_name"`
	Business *businessRequest `json:"business"`
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type userView struct {
	ID          string     `json:"id"`
	Email       string     `json:"email"`
	DisplayName string     `json:"display_name,omitempty"`
	ConfirmedAt *time.Time `json:"confirmed_at,omitempty"`
}

type sessionView struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
}

type stateView struct {
	User    *userView    `json:"user"`
	Session *sessionView `json:"session"`
	Loading bool         `json:"loading"`
}

// ownStateView is newStateView for a state that belongs to owns. Anyone
// else gets an empty, settled view.
func ownStateView(s session.State, owns func(*session.User) bool) stateView {
	if s.User == nil || !owns(s.User) {
		return stateView{Loading: s.Loading && s.User == nil}
	}
	return newStateView(s)
}

func byID(id string) func(*session.User) bool {
	return func(u *session.User) bool { return id != "" && u.ID == id }
}

func byEmail(email string) func(*session.User) bool {
	email = strings.TrimSpace(email)
	return func(u *session.User) bool { return email != "" && strings.EqualFold(u.Email, email) }
}

// newStateView drops the refresh token and linked identities from a snapshot.
func newStateView(s session.State) stateView {
	v := stateView{Loading: s.Loading}
	if s.User != nil {
		v.User = &userView{
			ID:          s.User.ID,
			Email:       s.User.Email,
			DisplayName: s.User.DisplayName,
			ConfirmedAt: s.User.ConfirmedAt,
		}
	}
	if s.Session != nil {
		v.Session = &sessionView{AccessToken: s.Session.AccessToken, ExpiresAt: s.Session.ExpiresAt}
	}
	return v
}

// RegisterAuthRoutes wires sign-up, sign-in, sign-out and the session snapshot.
func RegisterAuthRoutes(r fiber.Router, h AuthRoutes) {
	group := r.Group("/auth")

	group.Post("/signup", chain(h.Idempotency, func(c *fiber.Ctx) error {
		var req signUpRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(http.StatusBadRequest, "invalid request body")
		}
		opts := []session.SignUpOption{session.WithDisplayName(req.FullName)}
		if req.Business != nil {
			opts = append(opts, session.WithOnboarding(onboarding.Payload{
				BusinessName:   strings.TrimSpace(req.Business.Name),
				BusinessType:   req.Business.Type,
				Description:    req.Business.Description,
				Location:       req.Business.Location,
				Phone:          req.Business.Phone,
				WhatsApp:       req.Business.WhatsApp,
				WorkingHours:   req.Business.WorkingHours,
				PaymentMethods: req.Business.PaymentMethods,
				DeliveryAreas:  req.Business.DeliveryAreas,
			}))
		}
		if err := h.Manager.CreateAccount(c.UserContext(), req.Email, req.Password, opts...); err != nil {
			return authFailure(err)
		}
		return c.Status(http.StatusCreated).JSON(fiber.Map{
			"state": ownStateView(h.Manager.State(), byEmail(req.Email)),
		})
	})...)

	group.Post("/signin", chain(h.RateLimit, func(c *fiber.Ctx) error {
		var req credentialsRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(http.StatusBadRequest, "invalid request body")
		}
		if err := h.Manager.SignIn(c.UserContext(), req.Email, req.Password); err != nil {
			return authFailure(err)
		}
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"state": ownStateView(h.Manager.State(), byEmail(req.Email)),
		})
	})...)

	// Signing out ends the tracked session only for its owner. Any other caller
	// just has their own tokens revoked.
	group.Post("/signout", h.Guard, func(c *fiber.Ctx) error {
		uid := middleware.UserID(c)
		if current := h.Manager.State().User; current != nil && current.ID == uid {
			if err := h.Manager.SignOut(c.UserContext()); err != nil {
				return authFailure(err)
			}
			return c.SendStatus(http.StatusNoContent)
		}
		if h.Tokens != nil {
			if err := h.Tokens.Revoke(c.UserContext(), uid); err != nil {
				return fiber.NewError(http.StatusInternalServerError, "sign out failed")
			}
		}
		return c.SendStatus(http.StatusNoContent)
	})

	group.Get("/session", h.Guard, func(c *fiber.Ctx) error {
		return c.Status(http.StatusOK).JSON(ownStateView(h.Manager.State(), byID(middleware.UserID(c))))
	})
}

// authFailure maps a session error kind onto an HTTP status.
func authFailure(err error) error {
	var ae *session.AuthError
	if !errors.As(err, &ae) {
		return err
	}
	status := http.StatusBadRequest
	switch ae.Kind {
	case session.KindAlreadyExists:
		status = http.StatusConflict
	case session.KindWeakPassword, session.KindInvalidEmail:
		status = http.StatusUnprocessableEntity
	case session.KindInvalidCredentials:
		status = http.StatusUnauthorized
	case session.KindEmailNotConfirmed:
		status = http.StatusForbidden
	}
	return fiber.NewError(status, ae.Description())
}

func chain(mw fiber.Handler, h fiber.Handler) []fiber.Handler {
	if mw == nil {
		return []fiber.Handler{h}
	}
	return []fiber.Handler{mw, h}
}
