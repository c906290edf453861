package transfer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/elastic/go-elasticsearch/v8"

	"go.flowcatalyst.tech/es2loki/internal/batch"
	"go.flowcatalyst.tech/es2loki/internal/checkpoint"
	"go.flowcatalyst.tech/es2loki/internal/common/metrics"
	"go.flowcatalyst.tech/es2loki/internal/projection"
	"go.flowcatalyst.tech/es2loki/internal/sink"
	"go.flowcatalyst.tech/es2loki/internal/source"
)

// countRetryDelay is how long the orchestrator waits between failed
// attempts to get the total document count.
const countRetryDelay = time.Second

// Config configures an Orchestrator.
type Config struct {
	Index          string
	TimestampField string
	MaxDate        string
	ESBatchSize    int
	ESTimeout      time.Duration

	FlushThreshold int
	LoadFactor     int
	WaitTimeout    time.Duration

	StartOver bool
}

// Orchestrator drives the transfer state machine: Connect, Count, Stream,
// Drain, Shutdown.
type Orchestrator struct {
	es        *elasticsearch.Client
	store     checkpoint.Store
	sinkClient *sink.Client
	projector projection.Projector
	cfg       Config
	logger    *slog.Logger

	pool        *pool
	currentBatch *batch.Batch
	flushMu     sync.Mutex

	latestState checkpoint.State
	transferred atomic.Int64
	totalDocs   int64
}

// New returns an Orchestrator ready to Run.
func New(es *elasticsearch.Client, store checkpoint.Store, sinkClient *sink.Client, projector projection.Projector, cfg Config, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		es:         es,
		store:      store,
		sinkClient: sinkClient,
		projector:  projector,
		cfg:        cfg,
		logger:     logger,
	}
}

// Progress reports the orchestrator's current counters, used by the health
// check and by the main binary's logging.
type Progress struct {
	TotalDocs       int64
	TransferredDocs int64
}

func (o *Orchestrator) Progress() Progress {
	return Progress{TotalDocs: o.totalDocs, TransferredDocs: o.transferred.Load()}
}

// Run executes the full transfer to completion, or until ctx is cancelled.
// It returns one of the Exit* codes.
func (o *Orchestrator) Run(ctx context.Context) int {
	if err := o.connect(ctx); err != nil {
		if ctx.Err() != nil {
			return ExitOK
		}
		o.logger.Error("connect failed", "error", err)
		return ExitError
	}

	total, err := o.count(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return ExitOK
		}
		o.logger.Error("count failed", "error", err)
		return ExitError
	}
	o.totalDocs = total

	if total == 0 {
		o.logger.Info("no docs found in elasticsearch index", "index", o.cfg.Index)
		return ExitOK
	}

	o.logger.Info("starting transfer",
		"transferred", o.transferred.Load(),
		"total", o.totalDocs,
		"percent", float64(o.transferred.Load())/float64(o.totalDocs)*100,
	)

	o.currentBatch = batch.New()
	o.pool = newPool(o.sinkClient, o.store, &o.transferred, o.cfg.LoadFactor, o.cfg.WaitTimeout, o.logger)
	o.pool.Start(ctx)

	eta := newETATracker(o.totalDocs, &o.transferred)
	etaCtx, cancelETA := context.WithCancel(ctx)
	go eta.Run(etaCtx)

	streamErr := o.stream(ctx)

	// A remaining partial batch is only flushed if streaming finished on its
	// own (source exhausted); if ctx was cancelled mid-stream the partial
	// batch is dropped rather than risking a flush against a cancelled
	// context, matching the orchestrator's stop-means-stop contract. The
	// sink worker empties its queue either way; after ctx is cancelled,
	// batches still queued are not pushed and their checkpoints not saved.
	o.drain(ctx, streamErr == nil && ctx.Err() == nil)
	cancelETA()

	if fatal := o.pool.FatalError(); fatal != nil {
		o.logger.Error("sink worker failed fatally", "error", fatal)
		return ExitError
	}
	if streamErr != nil && ctx.Err() == nil {
		o.logger.Error("stream failed", "error", streamErr)
		return ExitError
	}

	o.logger.Info("transfer finished", "transferred", o.transferred.Load(), "total", o.totalDocs)
	return ExitOK
}

// connect initializes the checkpoint store, applies start-over if
// requested, and loads the resume point.
func (o *Orchestrator) connect(ctx context.Context) error {
	if err := o.store.Init(ctx); err != nil {
		return fmt.Errorf("init checkpoint store: %w", err)
	}

	if o.cfg.StartOver {
		if err := o.store.Cleanup(ctx); err != nil {
			return fmt.Errorf("cleanup checkpoint store: %w", err)
		}
	}

	state, err := o.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("load checkpoint state: %w", err)
	}
	o.latestState = state
	o.transferred.Store(state.Transferred)
	o.logger.Info("loaded checkpoint state", "timestamp", state.Timestamp, "transferred", state.Transferred)
	return nil
}

// count retrieves the total document count, retrying every second until it
// succeeds or ctx is cancelled.
func (o *Orchestrator) count(ctx context.Context) (int64, error) {
	for {
		total, err := source.Count(ctx, o.es, o.cfg.Index, o.cfg.TimestampField, o.cfg.MaxDate)
		if err == nil {
			return total, nil
		}
		o.logger.Error("error retrieving total docs count", "error", err)
		if !sleepOrStop(ctx, countRetryDelay) {
			return 0, ctx.Err()
		}
	}
}

// stream iterates the source scroller, projecting and batching each
// document, flushing whenever the accumulated batch crosses the flush
// threshold.
func (o *Orchestrator) stream(ctx context.Context) error {
	scroller := source.New(o.es, source.Config{
		Index:          o.cfg.Index,
		BatchSize:      o.cfg.ESBatchSize,
		Timeout:        o.cfg.ESTimeout,
		TimestampField: o.cfg.TimestampField,
		MaxDate:        o.cfg.MaxDate,
		Sort: []json.RawMessage{
			json.RawMessage(fmt.Sprintf(`{%q:{"unmapped_type":"date","order":"asc"}}`, o.cfg.TimestampField)),
			json.RawMessage(`{"log.offset":{"order":"asc"}}`),
		},
	}, o.latestState, o.logger)

	for {
		doc, state, ok, err := scroller.Next(ctx)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}

		if err := o.processDoc(ctx, doc.Source, state); err != nil {
			return err
		}
	}
}

func (o *Orchestrator) processDoc(ctx context.Context, docSource json.RawMessage, state checkpoint.State) error {
	if len(docSource) == 0 {
		metrics.DocsSkipped.WithLabelValues("empty_source").Inc()
		return nil
	}
	if state.Timestamp == "" {
		metrics.DocsSkipped.WithLabelValues("missing_timestamp").Inc()
		return nil
	}

	labels := o.projector.Labels(docSource)
	if labels == nil {
		metrics.DocsSkipped.WithLabelValues("rejected_by_projector").Inc()
		return nil
	}
	enrichLabels(labels, state.Timestamp)

	timestampMillis, err := parseTimestampMillis(state.Timestamp)
	if err != nil {
		metrics.DocsSkipped.WithLabelValues("invalid_timestamp").Inc()
		return nil
	}

	line := o.projector.Line(docSource)

	o.flushMu.Lock()
	o.currentBatch.Push(batch.NewLabelSet(labels), timestampMillis, line)
	o.latestState = state
	metrics.DocsScrolled.Inc()

	shouldFlush := o.currentBatch.TotalSize() >= o.cfg.FlushThreshold
	o.flushMu.Unlock()

	if shouldFlush {
		return o.flush(ctx)
	}
	return nil
}

// flush hands the current batch to the sink pool and starts a fresh one,
// serialized against concurrent flush triggers from processDoc.
func (o *Orchestrator) flush(ctx context.Context) error {
	o.flushMu.Lock()
	if o.currentBatch.IsEmpty() {
		o.flushMu.Unlock()
		return nil
	}
	toFlush := o.currentBatch
	state := o.latestState
	o.currentBatch = batch.New()
	o.flushMu.Unlock()

	return o.pool.Submit(ctx, toFlush, state)
}

// drain optionally flushes the remaining partial batch, then waits for the
// sink worker to empty its queue. Batches are pushed only while ctx is not
// cancelled.
func (o *Orchestrator) drain(ctx context.Context, flushRemainder bool) {
	if flushRemainder {
		if err := o.flush(ctx); err != nil {
			o.logger.Error("final flush failed", "error", err)
		}
	}
	o.logger.Info("waiting for sink worker to finish")
	o.pool.Close()
}

func enrichLabels(labels map[string]string, timestamp string) {
	labels["imported"] = "yes"
	if t, err := parseFlexibleTimestamp(timestamp); err == nil {
		labels["import_month"] = t.Format("200601")
	}
}

// parseFlexibleTimestamp accepts both zone-qualified and zone-less
// timestamps, mirroring extract_doc_ts's `timestamp_val.rstrip("Z")` +
// datetime.fromisoformat: a trailing "Z" is stripped before parsing, and a
// value with no offset at all (e.g. "2024-01-01T00:00:00") is accepted and
// treated as UTC rather than rejected.
func parseFlexibleTimestamp(timestamp string) (time.Time, error) {
	trimmed := strings.TrimSuffix(timestamp, "Z")

	offsetLayouts := []string{
		"2006-01-02T15:04:05.999999999Z07:00",
		"2006-01-02T15:04:05Z07:00",
	}
	for _, layout := range offsetLayouts {
		if t, err := time.Parse(layout, trimmed); err == nil {
			return t, nil
		}
	}

	noOffsetLayouts := []string{
		"2006-01-02T15:04:05.999999999",
		"2006-01-02T15:04:05",
	}
	for _, layout := range noOffsetLayouts {
		if t, err := time.ParseInLocation(layout, trimmed, time.UTC); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("invalid timestamp %q", timestamp)
}

func parseTimestampMillis(timestamp string) (int64, error) {
	t, err := parseFlexibleTimestamp(timestamp)
	if err != nil {
		return 0, err
	}
	return t.UnixMilli(), nil
}
