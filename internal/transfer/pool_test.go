package transfer

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"go.flowcatalyst.tech/es2loki/internal/batch"
	"go.flowcatalyst.tech/es2loki/internal/checkpoint"
	"go.flowcatalyst.tech/es2loki/internal/sink"
)

func TestPoolSubmitAndCloseDrains(t *testing.T) {
	store := checkpoint.NewDummyStore(nil)
	client := sink.New(sink.Config{URL: "http://loki.invalid", Mode: sink.ModeJSON, DryRun: true}, nil)

	var transferred atomic.Int64
	p := newPool(client, store, &transferred, 4, 0, nil)

	ctx := context.Background()
	p.Start(ctx)

	b := batch.New()
	b.Push(batch.NewLabelSet(map[string]string{"job": "x"}), 1000, "line")

	if err := p.Submit(ctx, b, checkpoint.State{Timestamp: "2026-01-01T00:00:00Z"}); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	p.Close()

	if got := transferred.Load(); got != 1 {
		t.Errorf("transferred = %d, want 1", got)
	}
	if err := p.FatalError(); err != nil {
		t.Errorf("FatalError() = %v, want nil", err)
	}
}

func TestPoolSubmitBlocksOnCancelledContext(t *testing.T) {
	store := checkpoint.NewDummyStore(nil)
	client := sink.New(sink.Config{URL: "http://loki.invalid", Mode: sink.ModeJSON, DryRun: true}, nil)

	var transferred atomic.Int64
	p := newPool(client, store, &transferred, 0, 0, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	b := batch.New()
	b.Push(batch.NewLabelSet(map[string]string{"job": "x"}), 1000, "line")

	err := p.Submit(ctx, b, checkpoint.State{})
	if err == nil {
		t.Error("Submit() on an unstarted zero-capacity pool should block until ctx is cancelled")
	}
}
