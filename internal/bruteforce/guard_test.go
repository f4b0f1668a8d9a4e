package bruteforce

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/haulerhq/freightdesk/internal/store"
	"github.com/haulerhq/freightdesk/params"
	"github.com/redis/go-redis/v9"
)

func newTestGuard(t *testing.T) (*Guard, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	return NewGuard(store.NewRedisStorage(rdb), params.LoginMaxAttempts, params.LoginLockoutWindow), mr
}

func TestGuardBlocksAfterMaxAttempts(t *testing.T) {
	guard, _ := newTestGuard(t)
	ctx := context.Background()
	id := UserKey("alice")

	for i := 0; i < params.LoginMaxAttempts; i++ {
		state, err := guard.Check(ctx, id)
		if err != nil {
			t.Fatalf("check %d: %v", i, err)
		}
		if state.Blocked {
			t.Fatalf("blocked after only %d failures", i)
		}
		if err := guard.RecordFailure(ctx, id); err != nil {
			t.Fatalf("record failure %d: %v", i, err)
		}
	}

	state, err := guard.Check(ctx, id)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if !state.Blocked {
		t.Fatal("expected blocked after max attempts")
	}
	if state.RemainingSeconds <= 0 || state.RemainingSeconds > int(params.LoginLockoutWindow.Seconds()) {
		t.Fatalf("remaining seconds out of range: %d", state.RemainingSeconds)
	}
}

func TestGuardUnblocksAfterWindow(t *testing.T) {
	guard, _ := newTestGuard(t)
	ctx := context.Background()
	id := IPKey("10.0.0.1")

	for i := 0; i < params.LoginMaxAttempts; i++ {
		if err := guard.RecordFailure(ctx, id); err != nil {
			t.Fatalf("record failure: %v", err)
		}
	}

	// Simulate the window elapsing with no further failures.
	guard.now = func() time.Time {
		return time.Now().Add(params.LoginLockoutWindow + time.Second)
	}

	state, err := guard.Check(ctx, id)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if state.Blocked {
		t.Fatal("expected unblocked after window elapsed")
	}
}

func TestGuardWindowExpiryDeletesRecord(t *testing.T) {
	guard, mr := newTestGuard(t)
	ctx := context.Background()
	id := UserKey("bob")

	if err := guard.RecordFailure(ctx, id); err != nil {
		t.Fatalf("record failure: %v", err)
	}
	mr.FastForward(params.LoginLockoutWindow + time.Second)

	state, err := guard.Check(ctx, id)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if state.Blocked {
		t.Fatal("expected clean state after TTL expiry")
	}

	// The counter starts over after expiry.
	if err := guard.RecordFailure(ctx, id); err != nil {
		t.Fatalf("record failure: %v", err)
	}
	state, _ = guard.Check(ctx, id)
	if state.Blocked {
		t.Fatal("one failure after expiry should not block")
	}
}

func TestGuardClearResetsCounter(t *testing.T) {
	guard, _ := newTestGuard(t)
	ctx := context.Background()
	id := UserKey("carol")

	for i := 0; i < params.LoginMaxAttempts; i++ {
		if err := guard.RecordFailure(ctx, id); err != nil {
			t.Fatalf("record failure: %v", err)
		}
	}
	if err := guard.Clear(ctx, id); err != nil {
		t.Fatalf("clear: %v", err)
	}

	state, err := guard.Check(ctx, id)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if state.Blocked {
		t.Fatal("expected unblocked after clear")
	}

	// Clearing an absent record is not an error.
	if err := guard.Clear(ctx, id); err != nil {
		t.Fatalf("second clear: %v", err)
	}
}

func TestGuardConcurrentFailuresAreCounted(t *testing.T) {
	guard, _ := newTestGuard(t)
	ctx := context.Background()
	id := IPKey("10.0.0.2")

	var wg sync.WaitGroup
	for i := 0; i < params.LoginMaxAttempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = guard.RecordFailure(ctx, id)
		}()
	}
	wg.Wait()

	state, err := guard.Check(ctx, id)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if !state.Blocked {
		t.Fatal("concurrent failures undercounted")
	}
}

func TestGuardDimensionsAreIndependent(t *testing.T) {
	guard, _ := newTestGuard(t)
	ctx := context.Background()

	for i := 0; i < params.LoginMaxAttempts; i++ {
		if err := guard.RecordFailure(ctx, UserKey("dave")); err != nil {
			t.Fatalf("record failure: %v", err)
		}
	}

	state, _ := guard.Check(ctx, UserKey("dave"))
	if !state.Blocked {
		t.Fatal("user bucket should be blocked")
	}
	state, _ = guard.Check(ctx, IPKey("10.0.0.3"))
	if state.Blocked {
		t.Fatal("ip bucket should be unaffected")
	}
}
