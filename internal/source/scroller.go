// Package source implements the Elasticsearch side of the transfer: a
// search_after scroller that prefetches ahead of the consumer so the
// orchestrator never blocks on a network round trip while a buffer is
// still available.
package source

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"go.flowcatalyst.tech/es2loki/internal/checkpoint"
)

// searchRetryDelay is how long the scroller waits between a failed search
// attempt and the next one, mirroring the original's fixed 2-second backoff.
const searchRetryDelay = 2 * time.Second

// Doc is a single hit pulled from Elasticsearch: its raw _source plus the
// sort tuple needed to resume search_after from it.
type Doc struct {
	Source json.RawMessage
	Sort   []json.RawMessage
}

// Scroller iterates an Elasticsearch index with search_after, double
// buffering ahead of the consumer: once the live buffer drains below 2/3
// of a batch, a background refill starts so Next rarely blocks.
type Scroller struct {
	es             *elasticsearch.Client
	index          string
	batchSize      int
	timeout        time.Duration
	timestampField string
	maxDate        string
	sort           []json.RawMessage
	logger         *slog.Logger

	mu          sync.Mutex
	buffer      []Doc
	searchAfter []json.RawMessage
	refillDone  chan struct{}
}

// Config configures a new Scroller.
type Config struct {
	Index          string
	BatchSize      int
	Timeout        time.Duration
	TimestampField string
	MaxDate        string
	// Sort is the ES sort clause applied to every search request; it must
	// produce a stable, unique ordering for search_after to work.
	Sort []json.RawMessage
}

// New returns a Scroller resuming from the given checkpoint's search_after
// value (nil if the checkpoint is the zero state).
func New(es *elasticsearch.Client, cfg Config, resumeFrom checkpoint.State, logger *slog.Logger) *Scroller {
	if logger == nil {
		logger = slog.Default()
	}

	var searchAfter []json.RawMessage
	if !resumeFrom.IsZero() {
		searchAfter = resumeFrom.Value
	}

	return &Scroller{
		es:             es,
		index:          cfg.Index,
		batchSize:      cfg.BatchSize,
		timeout:        cfg.Timeout,
		timestampField: cfg.TimestampField,
		maxDate:        cfg.MaxDate,
		sort:           cfg.Sort,
		logger:         logger,
		searchAfter:    searchAfter,
	}
}

// Next returns the next document and its resulting checkpoint state, or
// (Doc{}, State{}, false, nil) once the index is exhausted. It blocks only
// when the buffer and any in-flight refill cannot satisfy the request
// immediately, and returns early if ctx is cancelled.
func (s *Scroller) Next(ctx context.Context) (Doc, checkpoint.State, bool, error) {
	s.mu.Lock()
	if len(s.buffer) == 0 {
		refillDone := s.refillDone
		s.mu.Unlock()

		if refillDone != nil {
			select {
			case <-refillDone:
			case <-ctx.Done():
				return Doc{}, checkpoint.State{}, false, ctx.Err()
			}
		} else {
			if err := s.refill(ctx); err != nil {
				return Doc{}, checkpoint.State{}, false, err
			}
		}

		s.mu.Lock()
		if len(s.buffer) == 0 {
			s.mu.Unlock()
			return Doc{}, checkpoint.State{}, false, nil
		}
	}

	doc := s.buffer[0]
	s.buffer = s.buffer[1:]

	if s.refillDone == nil && len(s.buffer) < 2*s.batchSize/3 {
		s.startBackgroundRefill(ctx)
	}
	s.mu.Unlock()

	state := checkpoint.State{Value: doc.Sort}
	if ts, err := extractTimestamp(doc.Source, s.timestampField); err == nil {
		state.Timestamp = ts
	}
	return doc, state, true, nil
}

// startBackgroundRefill launches a refill if one isn't already running.
// Caller must hold s.mu.
func (s *Scroller) startBackgroundRefill(ctx context.Context) {
	done := make(chan struct{})
	s.refillDone = done
	go func() {
		defer close(done)
		if err := s.refill(ctx); err != nil && ctx.Err() == nil {
			s.logger.Error("background buffer refill failed", "error", err)
		}
		s.mu.Lock()
		s.refillDone = nil
		s.mu.Unlock()
	}()
}

// refill issues search requests until it gets a usable page of hits,
// retrying on error/timeout/partial-shard-failure every searchRetryDelay.
func (s *Scroller) refill(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		hits, nextSearchAfter, err := s.searchOnce(ctx)
		if err != nil {
			s.logger.Error("elasticsearch search failed, retrying", "index", s.index, "error", err)
			if !sleepOrDone(ctx, searchRetryDelay) {
				return ctx.Err()
			}
			continue
		}

		if len(hits) == 0 {
			return nil
		}

		s.mu.Lock()
		s.buffer = append(s.buffer, hits...)
		s.searchAfter = nextSearchAfter
		s.mu.Unlock()
		return nil
	}
}

type searchHit struct {
	Source json.RawMessage   `json:"_source"`
	Sort   []json.RawMessage `json:"sort"`
}

type searchResponse struct {
	Error   json.RawMessage `json:"error"`
	TimedOut bool           `json:"timed_out"`
	Shards  struct {
		Total      int `json:"total"`
		Successful int `json:"successful"`
		Failed     int `json:"failed"`
	} `json:"_shards"`
	Hits struct {
		Hits []searchHit `json:"hits"`
	} `json:"hits"`
}

func (s *Scroller) searchOnce(ctx context.Context) ([]Doc, []json.RawMessage, error) {
	s.mu.Lock()
	searchAfter := s.searchAfter
	s.mu.Unlock()

	body := map[string]any{
		"size": s.batchSize,
		"sort": s.sort,
	}
	if searchAfter != nil {
		body["search_after"] = searchAfter
	}
	if s.maxDate != "" {
		body["query"] = map[string]any{
			"range": map[string]any{
				s.timestampField: map[string]any{"lt": s.maxDate},
			},
		}
	}

	encoded, err := json.Marshal(body)
	if err != nil {
		return nil, nil, fmt.Errorf("encode search body: %w", err)
	}

	searchCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	req := esapi.SearchRequest{
		Index: []string{s.index},
		Body:  bytes.NewReader(encoded),
	}
	res, err := req.Do(searchCtx, s.es)
	if err != nil {
		return nil, nil, fmt.Errorf("search request: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, nil, fmt.Errorf("search returned status %s", res.Status())
	}

	var parsed searchResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, nil, fmt.Errorf("decode search response: %w", err)
	}

	if len(parsed.Error) > 0 {
		return nil, nil, fmt.Errorf("elasticsearch error: %s", parsed.Error)
	}
	if parsed.TimedOut {
		return nil, nil, fmt.Errorf("search timed out")
	}
	if parsed.Shards.Successful+parsed.Shards.Failed < parsed.Shards.Total {
		return nil, nil, fmt.Errorf("incomplete shard response: total=%d ok=%d failed=%d",
			parsed.Shards.Total, parsed.Shards.Successful, parsed.Shards.Failed)
	}

	if len(parsed.Hits.Hits) == 0 {
		return nil, nil, nil
	}

	docs := make([]Doc, len(parsed.Hits.Hits))
	for i, h := range parsed.Hits.Hits {
		docs[i] = Doc{Source: h.Source, Sort: h.Sort}
	}
	return docs, parsed.Hits.Hits[len(parsed.Hits.Hits)-1].Sort, nil
}

func extractTimestamp(source json.RawMessage, field string) (string, error) {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(source, &doc); err != nil {
		return "", err
	}
	raw, ok := doc[field]
	if !ok {
		return "", fmt.Errorf("field %q not present", field)
	}
	var value string
	if err := json.Unmarshal(raw, &value); err != nil {
		return "", err
	}
	return value, nil
}

// sleepOrDone waits for d or ctx cancellation, returning false if cancelled.
func sleepOrDone(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
