package session

import (
	"context"
	"time"

	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
)

// Sweeper is implemented by stores that cannot expire sessions themselves.
type Sweeper interface {
	DeleteIdle(ctx context.Context, before time.Time) (int64, error)
}

// RunJanitor deletes sessions idle for longer than ttl every interval until
// ctx is done. Sweep failures are logged and retried on the next tick.
func RunJanitor(ctx context.Context, sw Sweeper, ttl, interval time.Duration) error {
	lg := zctx.From(ctx).Named("session.janitor")
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			n, err := sw.DeleteIdle(ctx, time.Now().Add(-ttl))
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				lg.Warn("Session sweep failed", zap.Error(err))
				continue
			}
			if n > 0 {
				lg.Debug("Swept idle sessions", zap.Int64("deleted", n))
			}
		}
	}
}
