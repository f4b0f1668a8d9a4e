// Package idempotency wraps mutating endpoints so a retried request with the
// same key replays the stored response instead of re-executing side effects.
// Cache failures degrade to executing without caching, never to request
// failure.
package idempotency

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/haulerhq/freightdesk/internal/common"
	idemp "github.com/haulerhq/freightdesk/internal/idempotency"
	"github.com/haulerhq/freightdesk/internal/middlewares/authz"
	"github.com/haulerhq/freightdesk/model"
	"github.com/haulerhq/freightdesk/params"
)

const (
	HeaderKey      = "Idempotency-Key"
	HeaderReplayed = "Idempotency-Replayed"

	maxClientKeyLength = 100
)

type Config struct {
	Cache idemp.Cache
	// MasterKey feeds the HMAC that derives keys for requests without an
	// explicit header.
	MasterKey string
	// ConflictWait and ConflictMax bound the poll for a concurrent
	// reservation's canonical response.
	ConflictWait time.Duration
	ConflictMax  int
}

func applyDefaults(config Config) Config {
	if config.ConflictWait <= 0 {
		config.ConflictWait = params.IdempotencyConflictWait
	}
	if config.ConflictMax <= 0 {
		config.ConflictMax = params.IdempotencyConflictMax
	}
	return config
}

// requestKey scopes client-chosen keys per principal so two principals
// reusing the same key never collide, and derives a key from the request
// itself when none is supplied.
func requestKey(ctx *fiber.Ctx, principalID uint, masterKey string) (string, error) {
	if key := ctx.Get(HeaderKey); key != "" {
		if len(key) > maxClientKeyLength {
			return "", fiber.NewError(fiber.StatusBadRequest, "Idempotency-Key is too long")
		}
		return fmt.Sprintf("%d:%s", principalID, key), nil
	}
	return common.CalculateHash(masterKey, principalID, ctx.Method(), ctx.Path(), ctx.Body()), nil
}

func replay(ctx *fiber.Ctx, rec *model.IdempotencyRecord) error {
	ctx.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	ctx.Set(HeaderReplayed, "true")
	return ctx.Status(rec.ResponseCode).Send(rec.ResponseBody)
}

func New(config Config) fiber.Handler {
	config = applyDefaults(config)
	return func(ctx *fiber.Ctx) error {
		switch ctx.Method() {
		case fiber.MethodGet, fiber.MethodHead, fiber.MethodOptions:
			return ctx.Next()
		}

		principal := authz.Principal(ctx)
		if principal == nil {
			return ctx.Next()
		}

		key, err := requestKey(ctx, principal.ID, config.MasterKey)
		if err != nil {
			return err
		}

		if rec, err := config.Cache.Get(ctx.Context(), key); err != nil {
			slog.Error("Idempotency lookup failed", "key", key, "error", err)
		} else if rec != nil && rec.Status == model.IdempotencyStatusCompleted {
			return replay(ctx, rec)
		}

		requestHash := common.CalculateHash(config.MasterKey, ctx.Method(), ctx.Path(), ctx.Body())
		reserved := false
		switch err := config.Cache.Reserve(ctx.Context(), key, requestHash); {
		case err == nil:
			reserved = true
		case errors.Is(err, idemp.ErrKeyReserved):
			// Another request holds the key. Wait briefly for its canonical
			// response; if it never completes, fall through and execute
			// without caching.
			for i := 0; i < config.ConflictMax; i++ {
				rec, err := config.Cache.Get(ctx.Context(), key)
				if err != nil || rec == nil {
					break
				}
				if rec.Status == model.IdempotencyStatusCompleted {
					return replay(ctx, rec)
				}
				time.Sleep(config.ConflictWait)
			}
		default:
			slog.Error("Idempotency reserve failed", "key", key, "error", err)
		}

		if err := ctx.Next(); err != nil {
			if reserved {
				releaseReservation(ctx, config.Cache, key)
			}
			return err
		}

		if reserved {
			code := ctx.Response().StatusCode()
			if code >= fiber.StatusInternalServerError {
				// Do not pin transient failures; let the retry re-execute.
				releaseReservation(ctx, config.Cache, key)
				return nil
			}
			body := make([]byte, len(ctx.Response().Body()))
			copy(body, ctx.Response().Body())
			if err := config.Cache.Complete(ctx.Context(), key, code, body); err != nil {
				slog.Error("Idempotency store failed", "key", key, "error", err)
			}
		}
		return nil
	}
}

func releaseReservation(ctx *fiber.Ctx, cache idemp.Cache, key string) {
	if err := cache.Release(ctx.Context(), key); err != nil {
		slog.Error("Idempotency release failed", "key", key, "error", err)
	}
}
