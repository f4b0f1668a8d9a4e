// Package bruteforce tracks failed-authentication counts per caller identifier
// and blocks further attempts once the limit is reached within a sliding
// window. State lives in shared storage so every instance observes the same
// lockout decision.
package bruteforce

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/haulerhq/freightdesk/internal/store"
	"github.com/haulerhq/freightdesk/params"
)

const (
	fieldCount       = "count"
	fieldLastFailure = "last_failure"
)

type record struct {
	Count       int64 `redis:"count"`
	LastFailure int64 `redis:"last_failure"` // unix milliseconds
}

type State struct {
	Blocked          bool
	RemainingSeconds int
}

type Guard struct {
	records     store.Store[record]
	maxAttempts int64
	window      time.Duration
	now         func() time.Time
}

func NewGuard(storage store.Storage, maxAttempts int, window time.Duration) *Guard {
	return &Guard{
		records:     store.New[record](storage, params.BruteForceKeyPrefix),
		maxAttempts: int64(maxAttempts),
		window:      window,
		now:         time.Now,
	}
}

// IPKey and UserKey track the per-source and per-account dimensions as
// independent guard buckets. Two IPs hammering the same username share the
// user bucket but not the ip bucket.
func IPKey(ip string) string {
	return "ip:" + ip
}

func UserKey(username string) string {
	return "user:" + strings.ToLower(username)
}

// Check reports whether the identifier is currently blocked. A record whose
// window has elapsed is deleted lazily and treated as absent.
func (g *Guard) Check(ctx context.Context, identifier string) (State, error) {
	rec, err := g.records.Get(ctx, identifier)
	if err == store.ErrNotFound {
		return State{}, nil
	}
	if err != nil {
		return State{}, err
	}

	elapsed := g.now().Sub(time.UnixMilli(rec.LastFailure))
	if elapsed > g.window {
		_ = g.records.Delete(ctx, identifier)
		return State{}, nil
	}

	if rec.Count >= g.maxAttempts {
		remaining := int(math.Ceil((g.window - elapsed).Seconds()))
		return State{Blocked: true, RemainingSeconds: remaining}, nil
	}
	return State{}, nil
}

// RecordFailure atomically increments the failure counter and refreshes the
// last-failure timestamp. Each failure slides the window: the record's TTL is
// reset to the full window, so a steady trickle of failures keeps the block
// alive indefinitely.
func (g *Guard) RecordFailure(ctx context.Context, identifier string) error {
	if _, err := g.records.IncrAttr(ctx, identifier, fieldCount, 1); err != nil {
		return err
	}
	if err := g.records.SetAttr(ctx, identifier, fieldLastFailure, g.now().UnixMilli()); err != nil {
		return err
	}
	return g.records.Expire(ctx, identifier, g.now().Add(g.window))
}

// Clear removes the record; called on successful authentication so the next
// failure starts counting from zero.
func (g *Guard) Clear(ctx context.Context, identifier string) error {
	if err := g.records.Delete(ctx, identifier); err != nil && err != store.ErrNotFound {
		return err
	}
	return nil
}
