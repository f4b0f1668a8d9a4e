package idempotency

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/haulerhq/freightdesk/model"
)

type countingCache struct {
	sweeps  atomic.Int64
	failFor int64
}

func (c *countingCache) Get(ctx context.Context, key string) (*model.IdempotencyRecord, error) {
	return nil, nil
}

func (c *countingCache) Reserve(ctx context.Context, key, requestHash string) error {
	return nil
}

func (c *countingCache) Complete(ctx context.Context, key string, responseCode int, responseBody []byte) error {
	return nil
}

func (c *countingCache) Release(ctx context.Context, key string) error {
	return nil
}

func (c *countingCache) DeleteExpired(ctx context.Context) (int64, error) {
	n := c.sweeps.Add(1)
	if n <= c.failFor {
		return 0, errors.New("deadlock found when trying to get lock")
	}
	return 3, nil
}

func waitForSweeps(t *testing.T, cache *countingCache, want int64) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for cache.sweeps.Load() < want {
		if time.Now().After(deadline) {
			t.Fatalf("expected at least %d sweeps, saw %d", want, cache.sweeps.Load())
		}
		time.Sleep(time.Millisecond)
	}
}

func TestSweeperRunsPeriodically(t *testing.T) {
	cache := &countingCache{}
	ctx, cancel := context.WithCancel(context.Background())
	go StartSweeper(ctx, cache, 2*time.Millisecond)

	waitForSweeps(t, cache, 3)
	cancel()
}

func TestSweeperSurvivesFailedSweep(t *testing.T) {
	cache := &countingCache{failFor: 1}
	ctx, cancel := context.WithCancel(context.Background())
	go StartSweeper(ctx, cache, 2*time.Millisecond)

	// The first sweep errors; later ticks must still fire.
	waitForSweeps(t, cache, 3)
	cancel()
}

func TestSweeperStopsOnCancel(t *testing.T) {
	cache := &countingCache{}
	ctx, cancel := context.WithCancel(context.Background())
	go StartSweeper(ctx, cache, 2*time.Millisecond)

	waitForSweeps(t, cache, 1)
	cancel()

	time.Sleep(10 * time.Millisecond)
	settled := cache.sweeps.Load()
	time.Sleep(20 * time.Millisecond)
	if got := cache.sweeps.Load(); got != settled {
		t.Fatalf("sweeper kept running after cancel: %d then %d sweeps", settled, got)
	}
}
