package authz

import (
	"context"
	"io"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/haulerhq/freightdesk/internal/middlewares/sessions"
	"github.com/haulerhq/freightdesk/internal/store"
	"github.com/haulerhq/freightdesk/internal/users"
	"github.com/haulerhq/freightdesk/model"
	"github.com/redis/go-redis/v9"
)

type fakeUserProvider struct {
	users map[uint]*model.User
}

func (p *fakeUserProvider) GetUserByID(ctx context.Context, userID uint) (*model.User, error) {
	user, ok := p.users[userID]
	if !ok {
		return nil, users.ErrUserNotFound
	}
	return user, nil
}

type testEnv struct {
	app *fiber.App
}

func newTestEnv(t *testing.T, provider *fakeUserProvider) *testEnv {
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

	mw := New(provider)
	app := fiber.New()
	app.Use(sessionStore.Middleware())
	app.Get("/admin", mw.RequireAdmin(), func(ctx *fiber.Ctx) error {
		return ctx.SendStatus(fiber.StatusOK)
	})
	app.Get("/portal", mw.RequireClient(), func(ctx *fiber.Ctx) error {
		return ctx.SendStatus(fiber.StatusOK)
	})
	app.Get("/portal/shipments", mw.RequirePermission(model.PermShipmentsView), func(ctx *fiber.Ctx) error {
		return ctx.SendStatus(fiber.StatusOK)
	})
	app.Get("/me", mw.RequireSession(), func(ctx *fiber.Ctx) error {
		return ctx.SendStatus(fiber.StatusOK)
	})
	app.Post("/testlogin/:uid", func(ctx *fiber.Ctx) error {
		uid, err := strconv.Atoi(ctx.Params("uid"))
		if err != nil {
			return err
		}
		sess, err := sessionStore.Reset(ctx, sessions.SessionData{
			UserID:    uint(uid),
			LoginTime: time.Now().UnixMilli(),
		})
		if err != nil {
			return err
		}
		return ctx.SendString(sess.ID())
	})
	return &testEnv{app: app}
}

// login stores a session bound to the user and returns its cookie value.
func (e *testEnv) login(t *testing.T, userID uint) string {
	t.Helper()
	path := "/testlogin/" + strconv.FormatUint(uint64(userID), 10)
	resp, err := e.app.Test(httptest.NewRequest(fiber.MethodPost, path, nil))
	if err != nil {
		t.Fatalf("login request failed: %v", err)
	}
	defer resp.Body.Close()
	id, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read session id: %v", err)
	}
	return string(id)
}

func (e *testEnv) get(t *testing.T, path, sessionID string) int {
	t.Helper()
	req := httptest.NewRequest(fiber.MethodGet, path, nil)
	if sessionID != "" {
		req.Header.Set("Cookie", "sid="+sessionID)
	}
	resp, err := e.app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	return resp.StatusCode
}

func TestNoSessionIsUnauthorized(t *testing.T) {
	env := newTestEnv(t, &fakeUserProvider{users: map[uint]*model.User{}})
	for _, path := range []string{"/admin", "/portal", "/portal/shipments", "/me"} {
		if code := env.get(t, path, ""); code != fiber.StatusUnauthorized {
			t.Fatalf("%s without session: got %d, want 401", path, code)
		}
	}
}

func TestRoleClassMismatchIsForbidden(t *testing.T) {
	provider := &fakeUserProvider{users: map[uint]*model.User{
		1: {ID: 1, Role: model.RoleAdmin, Active: true},
		2: {ID: 2, Role: model.RoleClient, Active: true, ClientID: 10},
	}}
	env := newTestEnv(t, provider)
	adminSession := env.login(t, 1)
	clientSession := env.login(t, 2)

	if code := env.get(t, "/admin", clientSession); code != fiber.StatusForbidden {
		t.Fatalf("client on admin route: got %d, want 403", code)
	}
	if code := env.get(t, "/portal", adminSession); code != fiber.StatusForbidden {
		t.Fatalf("admin on portal route: got %d, want 403", code)
	}
	if code := env.get(t, "/admin", adminSession); code != fiber.StatusOK {
		t.Fatalf("admin on admin route: got %d, want 200", code)
	}
}

func TestPermissionChecks(t *testing.T) {
	provider := &fakeUserProvider{users: map[uint]*model.User{
		1: {ID: 1, Role: model.RoleClient, Active: true, ClientID: 10, Permissions: model.PermShipmentsView},
		2: {ID: 2, Role: model.RoleClient, Active: true, ClientID: 10, Permissions: model.PermInvoicesView},
		3: {ID: 3, Role: model.RoleClient, Active: true, ClientID: 10, IsPrimaryContact: true},
	}}
	env := newTestEnv(t, provider)

	if code := env.get(t, "/portal/shipments", env.login(t, 1)); code != fiber.StatusOK {
		t.Fatalf("granted permission: got %d, want 200", code)
	}
	if code := env.get(t, "/portal/shipments", env.login(t, 2)); code != fiber.StatusForbidden {
		t.Fatalf("missing permission: got %d, want 403", code)
	}
	if code := env.get(t, "/portal/shipments", env.login(t, 3)); code != fiber.StatusOK {
		t.Fatalf("primary contact: got %d, want 200", code)
	}
}

func TestDeactivatedPrincipalInvalidatesSession(t *testing.T) {
	user := &model.User{ID: 1, Role: model.RoleAdmin, Active: true}
	provider := &fakeUserProvider{users: map[uint]*model.User{1: user}}
	env := newTestEnv(t, provider)
	sessionID := env.login(t, 1)

	if code := env.get(t, "/me", sessionID); code != fiber.StatusOK {
		t.Fatalf("active principal: got %d, want 200", code)
	}
	user.Active = false
	if code := env.get(t, "/me", sessionID); code != fiber.StatusUnauthorized {
		t.Fatalf("deactivated principal: got %d, want 401", code)
	}
}

func TestVanishedPrincipalInvalidatesSession(t *testing.T) {
	provider := &fakeUserProvider{users: map[uint]*model.User{
		1: {ID: 1, Role: model.RoleAdmin, Active: true},
	}}
	env := newTestEnv(t, provider)
	sessionID := env.login(t, 1)

	delete(provider.users, 1)
	if code := env.get(t, "/me", sessionID); code != fiber.StatusUnauthorized {
		t.Fatalf("vanished principal: got %d, want 401", code)
	}
}
