// Package checkpoint implements the transfer job's durable resume point:
// a polymorphic store (dummy, Postgres, Redis) keyed by job name, holding
// the last Elasticsearch search_after position and the running transferred
// document count.
package checkpoint

import "encoding/json"

// State is the resume point for a transfer run. It round-trips through the
// store's backing serialization (JSON column, Redis value) unchanged.
type State struct {
	// Timestamp is the ISO-8601 timestamp of the last document transferred.
	// Empty means no checkpoint exists yet.
	Timestamp string `json:"timestamp"`

	// Transferred is the cumulative count of documents pushed to the sink.
	Transferred int64 `json:"transferred"`

	// Value holds the raw Elasticsearch sort tuple to resume search_after from.
	Value []json.RawMessage `json:"value"`
}

// IsZero reports whether this is the empty starting state: no checkpoint
// has ever been saved, so the Source Scroller must omit search_after on
// its first request.
func (s State) IsZero() bool {
	return s.Timestamp == ""
}
