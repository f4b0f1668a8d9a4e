package sessions

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/haulerhq/freightdesk/internal/store"
	"github.com/redis/go-redis/v9"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	return NewStore(Config{
		Storage:       store.NewRedisStorage(rdb),
		SessionMaxAge: time.Hour,
		CookieName:    "sid",
	})
}

func TestSaveAndGetRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	sess := newSession(s.Storage)
	sess.SessionData = SessionData{
		IP:        "10.0.0.1",
		UserID:    42,
		LoginTime: time.Now().UnixMilli(),
	}
	if err := s.Save(ctx, sess); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	loaded, err := s.Get(ctx, sess.ID())
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if loaded.UserID != 42 || loaded.IP != "10.0.0.1" {
		t.Fatalf("unexpected session data: %+v", loaded.SessionData)
	}
	if !loaded.IsLoggedIn() {
		t.Fatal("session with a user id must report logged in")
	}
}

func TestGetMissingSession(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.Get(context.Background(), "nope"); err != store.ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMiddlewareSetsCookieAndPersists(t *testing.T) {
	s := newTestStore(t)
	app := fiber.New()
	app.Use(s.Middleware())
	app.Post("/login", func(ctx *fiber.Ctx) error {
		sess := Get(ctx)
		sess.UserID = 7
		sess.LoginTime = time.Now().UnixMilli()
		return ctx.SendStatus(fiber.StatusOK)
	})

	resp, err := app.Test(httptest.NewRequest(fiber.MethodPost, "/login", nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	cookies := resp.Cookies()
	if len(cookies) != 1 || cookies[0].Name != "sid" || cookies[0].Value == "" {
		t.Fatalf("expected a session cookie, got %v", cookies)
	}

	loaded, err := s.Get(context.Background(), cookies[0].Value)
	if err != nil {
		t.Fatalf("session was not persisted: %v", err)
	}
	if loaded.UserID != 7 {
		t.Fatalf("unexpected user id %d", loaded.UserID)
	}
}

func TestSessionCookieIsAlwaysHttpOnly(t *testing.T) {
	// Zero-value cookie settings must still yield an HttpOnly cookie; the
	// session id is never exposed to script.
	s := newTestStore(t)
	app := fiber.New()
	app.Use(s.Middleware())
	app.Post("/login", func(ctx *fiber.Ctx) error {
		sess := Get(ctx)
		sess.UserID = 7
		sess.LoginTime = time.Now().UnixMilli()
		return ctx.SendStatus(fiber.StatusOK)
	})

	resp, err := app.Test(httptest.NewRequest(fiber.MethodPost, "/login", nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	cookies := resp.Cookies()
	if len(cookies) != 1 {
		t.Fatalf("expected a session cookie, got %v", cookies)
	}
	if !cookies[0].HttpOnly {
		t.Fatal("session cookie must carry HttpOnly")
	}
	if cookies[0].SameSite != http.SameSiteLaxMode {
		t.Fatalf("session cookie must be SameSite=Lax, got %v", cookies[0].SameSite)
	}
}

func TestResetIssuesNewSessionID(t *testing.T) {
	s := newTestStore(t)
	app := fiber.New()
	app.Use(s.Middleware())

	var oldID, newID string
	app.Post("/login", func(ctx *fiber.Ctx) error {
		oldID = ctx.Cookies("sid")
		sess, err := s.Reset(ctx, SessionData{UserID: 7, LoginTime: time.Now().UnixMilli()})
		if err != nil {
			return err
		}
		newID = sess.ID()
		return ctx.SendStatus(fiber.StatusOK)
	})

	// seed a pre-login session the attacker could have fixed
	fixed := newSession(s.Storage)
	if err := s.Save(context.Background(), fixed); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	req := httptest.NewRequest(fiber.MethodPost, "/login", nil)
	req.Header.Set("Cookie", "sid="+fixed.ID())
	if _, err := app.Test(req); err != nil {
		t.Fatalf("request failed: %v", err)
	}

	if oldID != fixed.ID() {
		t.Fatalf("expected request to carry the fixed session id")
	}
	if newID == "" || newID == oldID {
		t.Fatal("login must issue a fresh session id")
	}
	if _, err := s.Get(context.Background(), oldID); err != store.ErrNotFound {
		t.Fatalf("fixed session must be deleted, got %v", err)
	}
}

func TestDestroyIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	app := fiber.New()
	app.Use(s.Middleware())
	app.Post("/logout", func(ctx *fiber.Ctx) error {
		if err := s.Destroy(ctx); err != nil {
			return err
		}
		return ctx.SendStatus(fiber.StatusOK)
	})

	// logout without any session must still succeed
	resp, err := app.Test(httptest.NewRequest(fiber.MethodPost, "/logout", nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("unexpected status %d", resp.StatusCode)
	}
}
