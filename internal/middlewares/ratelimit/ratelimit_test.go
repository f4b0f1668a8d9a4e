package ratelimit

import (
	"context"
	"fmt"
	"testing"
	"time"
)

func TestLoginLimiterBlocksAfterBurst(t *testing.T) {
	l := NewLoginLimiter(5)
	for i := 0; i < 5; i++ {
		if !l.Allow("10.0.0.1") {
			t.Fatalf("attempt %d should be allowed", i+1)
		}
	}
	if l.Allow("10.0.0.1") {
		t.Fatal("attempt past the burst should be rejected")
	}
}

func TestLoginLimiterIsPerIP(t *testing.T) {
	l := NewLoginLimiter(5)
	for i := 0; i < 5; i++ {
		l.Allow("10.0.0.1")
	}
	if !l.Allow("10.0.0.2") {
		t.Fatal("a different ip must have its own budget")
	}
}

func TestCleanupWorkerResetsOversizedMap(t *testing.T) {
	l := NewLoginLimiter(5)
	for i := 0; i <= loginLimiterMaxEntries; i++ {
		l.Allow(fmt.Sprintf("10.%d.%d.%d", i>>16&0xff, i>>8&0xff, i&0xff))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go l.StartCleanupWorker(ctx, time.Millisecond)

	deadline := time.Now().Add(2 * time.Second)
	for {
		l.mu.Lock()
		n := len(l.limiters)
		l.mu.Unlock()
		if n == 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("limiter map still holds %d entries after cleanup interval", n)
		}
		time.Sleep(time.Millisecond)
	}

	if !l.Allow("10.0.0.1") {
		t.Fatal("a fresh bucket after cleanup must allow the first attempt")
	}
}

func TestCleanupWorkerKeepsSmallMap(t *testing.T) {
	l := NewLoginLimiter(5)
	l.Allow("10.0.0.1")

	ctx, cancel := context.WithCancel(context.Background())
	go l.StartCleanupWorker(ctx, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	cancel()

	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.limiters) != 1 {
		t.Fatalf("map below the cap must be left alone, got %d entries", len(l.limiters))
	}
}
