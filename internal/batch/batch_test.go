package batch

import (
	"encoding/json"
	"testing"
)

func TestBatchPushAccumulates(t *testing.T) {
	b := New()
	labels := NewLabelSet(map[string]string{"job": "es2loki", "level": "info"})

	b.Push(labels, 1000, "first line")
	b.Push(labels, 2000, "second line")

	if got := b.StreamsCount(); got != 1 {
		t.Errorf("StreamsCount() = %d, want 1", got)
	}
	if got := b.TotalDocs(); got != 2 {
		t.Errorf("TotalDocs() = %d, want 2", got)
	}
	want := len("first line") + len("second line")
	if got := b.TotalSize(); got != want {
		t.Errorf("TotalSize() = %d, want %d", got, want)
	}
}

func TestLabelSetCanonicalOrdering(t *testing.T) {
	a := NewLabelSet(map[string]string{"b": "2", "a": "1"})
	c := NewLabelSet(map[string]string{"a": "1", "b": "2"})
	if a != c {
		t.Errorf("label sets with same pairs differ: %q vs %q", a, c)
	}
	if a.String() != `{a="1", b="2"}` {
		t.Errorf("String() = %q, want canonical sorted form", a.String())
	}
}

func TestLabelSetMapRoundTripsEscapedValues(t *testing.T) {
	want := map[string]string{
		"quoted":    `say "hi"`,
		"comma":     "a, b",
		"backslash": `C:\path`,
		"plain":     "value",
	}
	labels := NewLabelSet(want)

	got := labels.Map()
	for k, v := range want {
		if got[k] != v {
			t.Errorf("Map()[%q] = %q, want %q (labels=%s)", k, got[k], v, labels)
		}
	}
	if len(got) != len(want) {
		t.Errorf("Map() has %d keys, want %d (labels=%s)", len(got), len(want), labels)
	}
}

func TestBatchNanosecondConversion(t *testing.T) {
	b := New()
	labels := NewLabelSet(map[string]string{"job": "x"})
	b.Push(labels, 1700000000123, "line")

	encoded := b.EncodeJSON()
	if len(encoded.Streams) != 1 || len(encoded.Streams[0].Values) != 1 {
		t.Fatalf("unexpected encoded shape: %+v", encoded)
	}
	if got, want := encoded.Streams[0].Values[0][0], "1700000000123000000"; got != want {
		t.Errorf("nanosecond timestamp = %q, want %q", got, want)
	}
}

func TestEncodeJSONMarshalsToExpectedShape(t *testing.T) {
	b := New()
	labels := NewLabelSet(map[string]string{"job": "x"})
	b.Push(labels, 1000, "hello")

	raw, err := json.Marshal(b.EncodeJSON())
	if err != nil {
		t.Fatalf("json.Marshal() error = %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("json.Unmarshal() error = %v", err)
	}
	if _, ok := decoded["streams"]; !ok {
		t.Errorf("decoded JSON missing \"streams\" key: %s", raw)
	}
}

func TestEncodePBRoundTripsThroughWireFormat(t *testing.T) {
	b := New()
	labels := NewLabelSet(map[string]string{"job": "x"})
	b.Push(labels, 1000, "hello")

	encoded := b.EncodePB()
	if len(encoded) == 0 {
		t.Fatal("EncodePB() returned empty bytes for non-empty batch")
	}

	compressed := b.EncodePBSnappy()
	if len(compressed) == 0 {
		t.Fatal("EncodePBSnappy() returned empty bytes for non-empty batch")
	}
}

func TestEmptyBatch(t *testing.T) {
	b := New()
	if !b.IsEmpty() {
		t.Error("IsEmpty() = false for fresh batch")
	}
	if b.StreamsCount() != 0 || b.TotalDocs() != 0 || b.TotalSize() != 0 {
		t.Error("fresh batch should report zero counts")
	}
}
