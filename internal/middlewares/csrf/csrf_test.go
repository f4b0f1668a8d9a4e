package csrf

import (
	"context"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/haulerhq/freightdesk/internal/middlewares/sessions"
	"github.com/haulerhq/freightdesk/internal/store"
	"github.com/redis/go-redis/v9"
)

func newTestApp(t *testing.T) (*fiber.App, *sessions.Store) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	sessionStore := sessions.NewStore(sessions.Config{
		Storage:       store.NewRedisStorage(rdb),
		SessionMaxAge: time.Hour,
		CookieName:    "sid",
	})

	app := fiber.New()
	app.Use(sessionStore.Middleware())
	app.Use(New(Config{ExcludePaths: []string{"/login"}}))
	app.Post("/login", func(ctx *fiber.Ctx) error {
		sess, err := sessionStore.Reset(ctx, sessions.SessionData{
			UserID:    1,
			LoginTime: time.Now().UnixMilli(),
		})
		if err != nil {
			return err
		}
		token, err := Token(ctx.Context(), sess)
		if err != nil {
			return err
		}
		ctx.Set("X-Session-Id", sess.ID())
		return ctx.SendString(token)
	})
	app.Post("/mutate", func(ctx *fiber.Ctx) error {
		return ctx.SendStatus(fiber.StatusOK)
	})
	app.Get("/read", func(ctx *fiber.Ctx) error {
		return ctx.SendStatus(fiber.StatusOK)
	})
	return app, sessionStore
}

func login(t *testing.T, app *fiber.App) (sessionID, token string) {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest(fiber.MethodPost, "/login", nil))
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read token: %v", err)
	}
	return resp.Header.Get("X-Session-Id"), string(body)
}

func TestMutationWithoutTokenIsForbidden(t *testing.T) {
	app, _ := newTestApp(t)
	sessionID, _ := login(t, app)

	req := httptest.NewRequest(fiber.MethodPost, "/mutate", nil)
	req.Header.Set("Cookie", "sid="+sessionID)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusForbidden {
		t.Fatalf("got %d, want 403", resp.StatusCode)
	}
}

func TestMutationWithTokenPasses(t *testing.T) {
	app, _ := newTestApp(t)
	sessionID, token := login(t, app)

	req := httptest.NewRequest(fiber.MethodPost, "/mutate", nil)
	req.Header.Set("Cookie", "sid="+sessionID)
	req.Header.Set(TokenHeader, token)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("got %d, want 200", resp.StatusCode)
	}
}

func TestWrongTokenIsForbidden(t *testing.T) {
	app, _ := newTestApp(t)
	sessionID, _ := login(t, app)

	req := httptest.NewRequest(fiber.MethodPost, "/mutate", nil)
	req.Header.Set("Cookie", "sid="+sessionID)
	req.Header.Set(TokenHeader, "forged")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusForbidden {
		t.Fatalf("got %d, want 403", resp.StatusCode)
	}
}

func TestReadsAndAnonymousRequestsSkipVerification(t *testing.T) {
	app, _ := newTestApp(t)

	// GET never verifies
	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/read", nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("read: got %d, want 200", resp.StatusCode)
	}

	// anonymous mutation passes through; authorization rejects it elsewhere
	resp, err = app.Test(httptest.NewRequest(fiber.MethodPost, "/mutate", nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("anonymous mutate: got %d, want 200", resp.StatusCode)
	}
}

func TestTokenIsStablePerSession(t *testing.T) {
	app, sessionStore := newTestApp(t)
	sessionID, token := login(t, app)

	sess, err := sessionStore.Get(context.Background(), sessionID)
	if err != nil {
		t.Fatalf("get session failed: %v", err)
	}
	again, err := Token(context.Background(), sess)
	if err != nil {
		t.Fatalf("token failed: %v", err)
	}
	if again != token {
		t.Fatalf("token changed between reads: %q vs %q", token, again)
	}
}
