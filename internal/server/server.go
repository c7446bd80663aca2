package server

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/congo-pay/merchant_portal/internal/config"
	"github.com/congo-pay/merchant_portal/internal/routes"
	"github.com/congo-pay/merchant_portal/internal/session"
)

// Server wraps the Fiber application and the session manager it serves.
type Server struct {
	app     *fiber.App
	cfg     config.Config
	manager *session.Manager
}

// New wires routes and starts the session manager, which resolves any
// persisted session before the first request is served.
func New(ctx context.Context, cfg config.Config, db *pgxpool.Pool, cache *redis.Client, logger *slog.Logger) (*Server, error) {
	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	})

	manager, err := routes.Setup(app, routes.Deps{Cfg: cfg, DB: db, Cache: cache, Logger: logger})
	if err != nil {
		return nil, err
	}
	if err := manager.Start(ctx); err != nil {
		return nil, err
	}

	return &Server{app: app, cfg: cfg, manager: manager}, nil
}

// Handler exposes the Fiber app for in-process tests.
func (s *Server) Handler() *fiber.App {
	return s.app
}

// Listen starts the HTTP server.
func (s *Server) Listen() error {
	return s.app.Listen(s.cfg.Address())
}

// Shutdown stops accepting requests and then stops the session manager,
// waiting for an in-flight reconciliation to return.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.app.ShutdownWithContext(ctx)

	done := make(chan struct{})
	go func() {
		s.manager.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		err = errors.Join(err, ctx.Err())
	}
	return err
}
