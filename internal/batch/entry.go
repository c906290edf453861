package batch

// Entry is a single log line in a stream, at millisecond precision widened
// to nanoseconds to match Loki's wire format.
type Entry struct {
	TimestampNanos int64
	Line           string
}
