package routes

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/congo-pay/merchant_portal/internal/auth"
	"github.com/congo-pay/merchant_portal/internal/config"
	"github.com/congo-pay/merchant_portal/internal/identity"
	"github.com/congo-pay/merchant_portal/internal/middleware"
	"github.com/congo-pay/merchant_portal/internal/notification"
	"github.com/congo-pay/merchant_portal/internal/profile"
	"github.com/congo-pay/merchant_portal/internal/provider"
	"github.com/congo-pay/merchant_portal/internal/session"
	"github.com/congo-pay/merchant_portal/internal/storage"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg    config.Config
	DB     *pgxpool.Pool
	Cache  *redis.Client
	Logger *slog.Logger
	// Mailer overrides the logging mailer used for confirmation links.
	Mailer provider.Mailer
}

// Setup configures middlewares and all application routes. It returns the
// session manager, which the caller starts and stops.
func Setup(app *fiber.App, d Deps) (*session.Manager, error) {
	// Enforce DB/Redis presence outside of dev, even though config also checks.
	if !d.Cfg.IsDev() {
		if d.DB == nil {
			return nil, fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
		if d.Cache == nil {
			return nil, fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
	}

	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(middleware.Audit(d.Logger))

	RegisterHealthRoutes(app, d)

	var (
		accountRepo identity.Repository
		profiles    profile.Repository
		store       storage.Store
		inbox       notification.Inbox
	)
	if d.DB != nil {
		accountRepo = identity.NewPostgresRepository(d.DB)
		profiles = profile.NewPostgresRepository(d.DB)
	} else {
		accountRepo = identity.NewMemoryRepository()
		profiles = profile.NewMemoryRepository()
	}
	if d.Cache != nil {
		store = storage.NewRedisStore(d.Cache, d.Cfg.StoragePrefix)
		inbox = notification.NewRedisInbox(d.Cache, d.Cfg.StoragePrefix, d.Cfg.InboxSize)
	} else {
		store = storage.NewMemoryStore()
		inbox = notification.NewMemoryInbox(d.Cfg.InboxSize)
	}

	accounts := identity.NewService(accountRepo, identity.Options{
		MinPasswordLength: d.Cfg.MinPasswordLength,
		AutoConfirm:       d.Cfg.AutoConfirm,
	})
	accessSecret, refreshSecret := d.Cfg.Secrets()
	tokens := auth.NewService(auth.Config{
		AccessSecret:    accessSecret,
		RefreshSecret:   refreshSecret,
		AccessTokenTTL:  d.Cfg.AccessTokenTTL,
		RefreshTokenTTL: d.Cfg.RefreshTokenTTL,
	}, accountRepo)

	client := provider.New(accounts, tokens, store, provider.Options{
		Mailer: d.Mailer,
		Logger: d.Logger,
		// The profile row exists before the signed-in notification fires.
		OnConfirmed: func(ctx context.Context, account identity.Account) error {
			return profiles.Create(ctx, account.ID)
		},
	})

	notifier := notification.Multi{notification.NewLoggerNotifier(d.Logger), inbox}
	manager := session.New(client, profiles, store, notifier, d.Logger, session.Config{
		ReconcileDelay:       d.Cfg.ReconcileDelay,
		MaxReconcileAttempts: d.Cfg.ReconcileMaxAttempts,
		RedirectTo:           d.Cfg.ConfirmRedirectURL(),
	})

	// The confirmation link lands outside the API prefix.
	RegisterCallbackRoute(app, d.Cfg.ConfirmPath, client)

	api := app.Group("/api/v1")
	api.Get("/ping", func(c *fiber.Ctx) error {
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": middleware.RequestIDFrom(c),
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	guard := middleware.BearerAuth(tokens)
	RegisterAuthRoutes(api, AuthRoutes{
		Manager:     manager,
		Tokens:      tokens,
		Guard:       guard,
		RateLimit:   middleware.SignInRateLimit(d.Cache, d.Cfg.LoginPerMinute, d.Logger),
		Idempotency: middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger),
	})

	protected := api.Group("", guard)
	RegisterProfileRoutes(protected, profiles)
	RegisterNotificationRoutes(protected, inbox)

	return manager, nil
}
