package idempotency

import (
	"context"
	"log/slog"
	"time"
)

// StartSweeper purges expired records on a fixed period until ctx is
// cancelled. Sweep failures are logged and never crash the process; the
// lazy purge on lookup keeps correctness either way.
func StartSweeper(ctx context.Context, cache Cache, period time.Duration) {
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deleted, err := cache.DeleteExpired(ctx)
			if err != nil {
				slog.Error("Idempotency sweep failed", "error", err)
				continue
			}
			if deleted > 0 {
				slog.Debug("Idempotency sweep finished", "deleted", deleted)
			}
		}
	}
}
