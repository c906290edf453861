// Package transfer implements the resumable ES-to-Loki bulk transfer: the
// worker pool that owns the single sink connection, the orchestrator state
// machine driving it, and the progress/ETA reporting around both.
package transfer

import (
	"context"
	"time"
)

// sleepOrStop waits for d or ctx cancellation, returning false if cancelled.
func sleepOrStop(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
