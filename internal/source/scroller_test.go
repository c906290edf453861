package source

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/elastic/go-elasticsearch/v8"

	"go.flowcatalyst.tech/es2loki/internal/checkpoint"
)

// roundTripFunc adapts a function to http.RoundTripper, used to feed the ES
// client canned responses without a real cluster.
type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func jsonResponse(body string) *http.Response {
	return &http.Response{
		StatusCode: 200,
		Body:       io.NopCloser(bytes.NewBufferString(body)),
		Header:     http.Header{"Content-Type": []string{"application/json"}},
	}
}

func newTestClient(t *testing.T, handler func(*http.Request) (*http.Response, error)) *elasticsearch.Client {
	t.Helper()
	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{"http://localhost:9200"},
		Transport: roundTripFunc(handler),
	})
	if err != nil {
		t.Fatalf("elasticsearch.NewClient() error = %v", err)
	}
	return client
}

func TestScrollerNextExhaustsSinglePage(t *testing.T) {
	var calls atomic.Int32
	es := newTestClient(t, func(r *http.Request) (*http.Response, error) {
		n := calls.Add(1)
		if n == 1 {
			return jsonResponse(`{
				"_shards": {"total":1,"successful":1,"failed":0},
				"hits": {"hits": [
					{"_source": {"@timestamp": "2026-01-01T00:00:00Z", "message": "a"}, "sort": [1]},
					{"_source": {"@timestamp": "2026-01-01T00:00:01Z", "message": "b"}, "sort": [2]}
				]}
			}`), nil
		}
		return jsonResponse(`{"_shards": {"total":1,"successful":1,"failed":0}, "hits": {"hits": []}}`), nil
	})

	scroller := New(es, Config{
		Index:          "logs-*",
		BatchSize:      10,
		Timeout:        5 * time.Second,
		TimestampField: "@timestamp",
		Sort:           []json.RawMessage{json.RawMessage(`{"@timestamp":"asc"}`)},
	}, checkpoint.State{}, nil)

	ctx := context.Background()

	doc, state, ok, err := scroller.Next(ctx)
	if err != nil || !ok {
		t.Fatalf("Next() = %v, %v, %v, want a doc", doc, ok, err)
	}
	if state.Timestamp != "2026-01-01T00:00:00Z" {
		t.Errorf("state.Timestamp = %q", state.Timestamp)
	}

	doc, _, ok, err = scroller.Next(ctx)
	if err != nil || !ok {
		t.Fatalf("second Next() = %v, %v, %v, want a doc", doc, ok, err)
	}

	_, _, ok, err = scroller.Next(ctx)
	if err != nil {
		t.Fatalf("third Next() error = %v", err)
	}
	if ok {
		t.Error("third Next() should report exhaustion")
	}
}
