package batch

import (
	"github.com/golang/snappy"
	"google.golang.org/protobuf/encoding/protowire"
)

// The wire shapes below mirror Loki's logproto.proto:
//
//	message PushRequest   { repeated StreamAdapter streams = 1; }
//	message StreamAdapter { string labels = 1; repeated EntryAdapter entries = 2; }
//	message EntryAdapter  { google.protobuf.Timestamp timestamp = 1; string line = 2; }
//	message Timestamp     { int64 seconds = 1; int32 nanos = 2; }
//
// Encoded by hand with protowire rather than generated bindings, since no
// .proto compiler runs as part of this build.

const (
	fieldPushRequestStreams = 1

	fieldStreamLabels  = 1
	fieldStreamEntries = 2

	fieldEntryTimestamp = 1
	fieldEntryLine      = 2

	fieldTimestampSeconds = 1
	fieldTimestampNanos   = 2
)

func appendTimestamp(dst []byte, nanos int64) []byte {
	seconds := nanos / 1_000_000_000
	remainder := int32(nanos % 1_000_000_000)

	var body []byte
	if seconds != 0 {
		body = protowire.AppendTag(body, fieldTimestampSeconds, protowire.VarintType)
		body = protowire.AppendVarint(body, uint64(seconds))
	}
	if remainder != 0 {
		body = protowire.AppendTag(body, fieldTimestampNanos, protowire.VarintType)
		body = protowire.AppendVarint(body, uint64(uint32(remainder)))
	}

	dst = protowire.AppendTag(dst, fieldEntryTimestamp, protowire.BytesType)
	dst = protowire.AppendBytes(dst, body)
	return dst
}

func appendEntry(e Entry) []byte {
	var body []byte
	body = appendTimestamp(body, e.TimestampNanos)
	body = protowire.AppendTag(body, fieldEntryLine, protowire.BytesType)
	body = protowire.AppendString(body, e.Line)
	return body
}

func appendStream(dst []byte, labels LabelSet, entries []Entry) []byte {
	var body []byte
	body = protowire.AppendTag(body, fieldStreamLabels, protowire.BytesType)
	body = protowire.AppendString(body, labels.String())

	for _, e := range entries {
		entryBytes := appendEntry(e)
		body = protowire.AppendTag(body, fieldStreamEntries, protowire.BytesType)
		body = protowire.AppendBytes(body, entryBytes)
	}

	dst = protowire.AppendTag(dst, fieldPushRequestStreams, protowire.BytesType)
	dst = protowire.AppendBytes(dst, body)
	return dst
}

// EncodePB serializes the batch as a Loki PushRequest protobuf message.
func (b *Batch) EncodePB() []byte {
	var out []byte
	for labels, entries := range b.streams {
		out = appendStream(out, labels, entries)
	}
	return out
}

// EncodePBSnappy serializes the batch as a protobuf PushRequest and
// snappy-compresses it, matching Loki's preferred push encoding.
func (b *Batch) EncodePBSnappy() []byte {
	return snappy.Encode(nil, b.EncodePB())
}
