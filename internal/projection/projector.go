// Package projection maps an Elasticsearch document's raw JSON _source
// into the label set and log line pushed to Loki.
package projection

import "encoding/json"

// Projector extracts stream labels and the log line from a document's raw
// _source. A nil return from Labels means the document should be skipped
// entirely (it never reaches the batch).
type Projector interface {
	Labels(source json.RawMessage) map[string]string
	Line(source json.RawMessage) string
}

// Passthrough projects the whole document into a single "job" label and
// the raw JSON as the log line. It is the default when no domain-specific
// Projector is configured.
type Passthrough struct {
	Job string
}

func (p Passthrough) Labels(source json.RawMessage) map[string]string {
	return map[string]string{"job": p.Job}
}

func (p Passthrough) Line(source json.RawMessage) string {
	return sortedJSONLine(source)
}

// sortedJSONLine re-serializes source with object keys sorted, matching
// json.dumps(source, sort_keys=True). encoding/json already sorts map keys
// on marshal, so decoding into a generic value and re-encoding it is
// sufficient; nested objects decode to map[string]any too, so the sort is
// recursive. Malformed source is passed through unchanged rather than
// dropped.
func sortedJSONLine(source json.RawMessage) string {
	var v any
	if err := json.Unmarshal(source, &v); err != nil {
		return string(source)
	}
	sorted, err := json.Marshal(v)
	if err != nil {
		return string(source)
	}
	return string(sorted)
}
