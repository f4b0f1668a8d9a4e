package store

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestStorage(t *testing.T) *RedisStorage {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRedisStorage(rdb)
}

type testRecord struct {
	Name  string `redis:"name"`
	Count int64  `redis:"count"`
}

func TestRedisStorageRoundTrip(t *testing.T) {
	storage := newTestStorage(t)
	ctx := context.Background()

	want := testRecord{Name: "acme", Count: 3}
	if err := storage.Set(ctx, "k1", want, time.Minute); err != nil {
		t.Fatalf("set failed: %v", err)
	}

	var got testRecord
	if err := storage.Get(ctx, "k1", &got); err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestRedisStorageGetMissing(t *testing.T) {
	storage := newTestStorage(t)

	var got testRecord
	if err := storage.Get(context.Background(), "missing", &got); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRedisStorageIncrAttr(t *testing.T) {
	storage := newTestStorage(t)
	ctx := context.Background()

	for i := int64(1); i <= 3; i++ {
		n, err := storage.IncrAttr(ctx, "counter", "count", 1)
		if err != nil {
			t.Fatalf("incr failed: %v", err)
		}
		if n != i {
			t.Fatalf("incr %d: got %d", i, n)
		}
	}
}

func TestRedisStorageDeleteMissing(t *testing.T) {
	storage := newTestStorage(t)

	if err := storage.Delete(context.Background(), "missing"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPrefixedStorageIsolation(t *testing.T) {
	storage := newTestStorage(t)
	ctx := context.Background()

	a := StorageWithPrefix(storage, "a:")
	b := StorageWithPrefix(storage, "b:")

	if err := a.Set(ctx, "k", testRecord{Name: "one"}, time.Minute); err != nil {
		t.Fatalf("set failed: %v", err)
	}

	var got testRecord
	if err := b.Get(ctx, "k", &got); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound from other prefix, got %v", err)
	}
	if err := a.Get(ctx, "k", &got); err != nil || got.Name != "one" {
		t.Fatalf("get through same prefix: %+v, %v", got, err)
	}
}
