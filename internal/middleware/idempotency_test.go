package middleware

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"github.com/congo-pay/merchant_portal/internal/logging"
)

func setupTestApp(t *testing.T) (*fiber.App, *int, func()) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}

	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	app := fiber.New()
	logger := logging.Discard()
	calls := 0
	app.Use(Idempotency(cache, time.Minute, logger))
	app.Post("/resource", func(c *fiber.Ctx) error {
		calls++
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"call": calls})
	})
	app.Post("/other", func(c *fiber.Ctx) error {
		calls++
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"call": calls})
	})
	app.Post("/broken", func(c *fiber.Ctx) error {
		calls++
		return c.SendStatus(fiber.StatusBadGateway)
	})

	cleanup := func() {
		cache.Close()
		mr.Close()
	}

	return app, &calls, cleanup
}

func post(t *testing.T, app *fiber.App, path, key string) (int, string) {
	t.Helper()
	req := httptest.NewRequest(fiber.MethodPost, path, strings.NewReader("{}"))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	if key != "" {
		req.Header.Set(idempotencyKeyHeader, key)
	}
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp.StatusCode, string(body)
}

func TestIdempotencyWithoutHeaderPassesThrough(t *testing.T) {
	app, calls, cleanup := setupTestApp(t)
	defer cleanup()

	post(t, app, "/resource", "")
	status, _ := post(t, app, "/resource", "")

	if status != fiber.StatusCreated {
		t.Fatalf("expected %d got %d", fiber.StatusCreated, status)
	}
	if *calls != 2 {
		t.Fatalf("expected handler to run twice, ran %d times", *calls)
	}
}

func TestIdempotencyReturnsCachedResponse(t *testing.T) {
	app, calls, cleanup := setupTestApp(t)
	defer cleanup()

	status, payload := post(t, app, "/resource", "abc123")
	if status != fiber.StatusCreated {
		t.Fatalf("expected status %d got %d", fiber.StatusCreated, status)
	}

	// The second request is answered from the cache.
	status, cached := post(t, app, "/resource", "abc123")
	if status != fiber.StatusCreated {
		t.Fatalf("expected cached status %d got %d", fiber.StatusCreated, status)
	}
	if cached != payload {
		t.Fatalf("expected cached payload %s got %s", payload, cached)
	}
	if *calls != 1 {
		t.Fatalf("expected handler to run once, ran %d times", *calls)
	}

	var decoded map[string]any
	if err := json.Unmarshal([]byte(cached), &decoded); err != nil {
		t.Fatalf("cached payload invalid json: %v", err)
	}
}

func TestIdempotencyKeysAreScopedByPath(t *testing.T) {
	app, calls, cleanup := setupTestApp(t)
	defer cleanup()

	post(t, app, "/resource", "shared")
	status, _ := post(t, app, "/other", "shared")

	if status != fiber.StatusOK {
		t.Fatalf("expected %d got %d", fiber.StatusOK, status)
	}
	if *calls != 2 {
		t.Fatalf("expected handler to run twice, ran %d times", *calls)
	}
}

func TestIdempotencyDoesNotReplayServerErrors(t *testing.T) {
	app, calls, cleanup := setupTestApp(t)
	defer cleanup()

	post(t, app, "/broken", "retry-me")
	post(t, app, "/broken", "retry-me")

	if *calls != 2 {
		t.Fatalf("expected retry to reach handler, ran %d times", *calls)
	}
}

func TestIdempotencyWithoutCacheIsNoop(t *testing.T) {
	app := fiber.New()
	app.Use(Idempotency(nil, time.Minute, logging.Discard()))
	app.Post("/resource", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusAccepted) })

	status, _ := post(t, app, "/resource", "abc")
	if status != fiber.StatusAccepted {
		t.Fatalf("expected %d got %d", fiber.StatusAccepted, status)
	}
}
