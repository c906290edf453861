package batch

import (
	"fmt"
	"strings"

	"go.flowcatalyst.tech/es2loki/internal/transfer/format"
)

// Batch accumulates entries across label streams until the orchestrator
// flushes it to the sink. Not safe for concurrent use; the orchestrator
// serializes access with its own flush lock.
type Batch struct {
	streams map[LabelSet][]Entry
}

// New returns an empty Batch.
func New() *Batch {
	return &Batch{streams: make(map[LabelSet][]Entry)}
}

// Push appends an entry to the stream identified by labels, converting
// timestampMillis to the nanosecond precision Loki expects.
func (b *Batch) Push(labels LabelSet, timestampMillis int64, line string) {
	b.streams[labels] = append(b.streams[labels], Entry{
		TimestampNanos: timestampMillis * 1_000_000,
		Line:           line,
	})
}

// StreamsCount returns the number of distinct label streams in the batch.
func (b *Batch) StreamsCount() int {
	return len(b.streams)
}

// TotalDocs returns the total number of entries across all streams.
func (b *Batch) TotalDocs() int {
	total := 0
	for _, entries := range b.streams {
		total += len(entries)
	}
	return total
}

// TotalSize returns the sum of all entry line lengths, in bytes, across all
// streams. The orchestrator flushes once this crosses its threshold.
func (b *Batch) TotalSize() int {
	total := 0
	for _, entries := range b.streams {
		for _, e := range entries {
			total += len(e.Line)
		}
	}
	return total
}

// IsEmpty reports whether the batch holds no entries.
func (b *Batch) IsEmpty() bool {
	return len(b.streams) == 0
}

// PrintableStats renders a one-line-per-stream summary for logging on a
// failed push.
func (b *Batch) PrintableStats() string {
	var lines []string
	for labels, entries := range b.streams {
		size := 0
		for _, e := range entries {
			size += len(e.Line)
		}
		lines = append(lines, fmt.Sprintf("%s => count=%d size=%s", labels, len(entries), format.SizeStr(size)))
	}
	return strings.Join(lines, "\n")
}
