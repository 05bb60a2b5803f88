package utils

import (
	"context"
	"time"
)

// SleepWithContext waits for d or until ctx is done. It reports whether the
// full duration elapsed.
func SleepWithContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
