package transfer

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"go.flowcatalyst.tech/es2loki/internal/batch"
	"go.flowcatalyst.tech/es2loki/internal/checkpoint"
	"go.flowcatalyst.tech/es2loki/internal/common/metrics"
	"go.flowcatalyst.tech/es2loki/internal/sink"
)

// job is one flushed batch queued for the sink worker, carrying the
// checkpoint state to save once the push succeeds.
type job struct {
	batch *batch.Batch
	state checkpoint.State
}

// pool is the single sink worker: exactly one goroutine drains the queue
// and pushes to Loki, so Loki's push order always matches the order
// batches were flushed. Queue depth is the sole backpressure point in the
// pipeline — once it's full, Submit blocks the Stream state until the
// worker catches up. transferred is updated here, after each successful
// push, since the worker is the only writer of the cumulative count.
type pool struct {
	client      *sink.Client
	store       checkpoint.Store
	transferred *atomic.Int64
	waitTimeout time.Duration
	logger      *slog.Logger

	queue chan job
	wg    sync.WaitGroup

	fatalMu  sync.Mutex
	fatalErr error
}

// newPool returns a pool with a queue depth of loadFactor, not yet started.
func newPool(client *sink.Client, store checkpoint.Store, transferred *atomic.Int64, loadFactor int, waitTimeout time.Duration, logger *slog.Logger) *pool {
	if logger == nil {
		logger = slog.Default()
	}
	return &pool{
		client:      client,
		store:       store,
		transferred: transferred,
		waitTimeout: waitTimeout,
		logger:      logger,
		queue:       make(chan job, loadFactor),
	}
}

// Start launches the single worker goroutine. It runs until Close has closed
// the queue and the queue has drained. Once a push fails with anything other
// than ctx cancellation, that error is kept as the fatal error and every
// later batch is taken off the queue without being pushed, so the checkpoint
// never advances past the failed batch. Pushes retry forever on their own,
// so such a failure only comes from a batch that cannot be encoded. After
// ctx is cancelled, each remaining push returns at once without sending.
func (p *pool) Start(ctx context.Context) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		for j := range p.queue {
			metrics.SinkQueueDepth.Set(float64(len(p.queue)))
			if p.FatalError() != nil {
				continue
			}
			p.process(ctx, j)
		}
	}()
}

func (p *pool) process(ctx context.Context, j job) {
	start := time.Now()
	_, _, err := p.client.Push(ctx, j.batch)
	metrics.SinkPushDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		p.setFatal(err)
		return
	}

	metrics.DocsPushed.Add(float64(j.batch.TotalDocs()))
	metrics.BatchesFlushed.Inc()
	newTotal := p.transferred.Add(int64(j.batch.TotalDocs()))

	if err := p.store.Save(ctx, j.state, newTotal); err != nil {
		p.logger.Error("failed to save checkpoint after successful push", "error", err)
	} else {
		metrics.CheckpointSaves.Inc()
	}

	if p.waitTimeout > 0 {
		t := time.NewTimer(p.waitTimeout)
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
		}
	}
}

// Submit enqueues a flushed batch, blocking if the queue is full. Returns
// early if ctx is cancelled first.
func (p *pool) Submit(ctx context.Context, b *batch.Batch, state checkpoint.State) error {
	select {
	case p.queue <- job{batch: b, state: state}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting new work and waits for the queue to drain.
func (p *pool) Close() {
	close(p.queue)
	p.wg.Wait()
}

func (p *pool) setFatal(err error) {
	p.fatalMu.Lock()
	defer p.fatalMu.Unlock()
	if p.fatalErr == nil {
		p.fatalErr = err
	}
}

func (p *pool) FatalError() error {
	p.fatalMu.Lock()
	defer p.fatalMu.Unlock()
	return p.fatalErr
}
