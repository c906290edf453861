package transfer

import (
	"context"
	"sync/atomic"
	"time"

	"go.flowcatalyst.tech/es2loki/internal/common/metrics"
)

const etaInterval = 10 * time.Second

// etaTracker recomputes transfer speed and ETA every etaInterval from the
// delta in transferred count, matching the original's periodic recalculation
// rather than an instantaneous per-push estimate.
type etaTracker struct {
	totalDocs int64

	transferred *atomic.Int64
	speed       atomic.Value // float64
	eta         atomic.Value // float64
}

func newETATracker(totalDocs int64, transferred *atomic.Int64) *etaTracker {
	t := &etaTracker{totalDocs: totalDocs, transferred: transferred}
	t.speed.Store(0.0)
	t.eta.Store(0.0)
	return t
}

// Run recomputes speed/eta every etaInterval until ctx is done.
func (t *etaTracker) Run(ctx context.Context) {
	ticker := time.NewTicker(etaInterval)
	defer ticker.Stop()

	lastTransferred := t.transferred.Load()

	for {
		select {
		case <-ticker.C:
			now := t.transferred.Load()
			delta := now - lastTransferred
			lastTransferred = now

			speed := float64(delta) / etaInterval.Seconds()
			var eta float64
			if speed > 0 {
				eta = float64(t.totalDocs-now) / speed
			}

			t.speed.Store(speed)
			t.eta.Store(eta)
			metrics.TransferSpeed.Set(speed)
			metrics.TransferETASeconds.Set(eta)
			if t.totalDocs > 0 {
				metrics.TransferProgress.Set(float64(now) / float64(t.totalDocs))
			}
		case <-ctx.Done():
			return
		}
	}
}

func (t *etaTracker) Speed() float64 { return t.speed.Load().(float64) }
func (t *etaTracker) ETA() float64   { return t.eta.Load().(float64) }
