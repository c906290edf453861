// Package batch implements the in-memory Loki push batch: a set of label
// streams accumulating timestamped log lines, with JSON and protobuf
// encoders matching Loki's push API.
package batch

import (
	"sort"
	"strings"
)

// LabelSet is an immutable stream label set. Two LabelSets with the same
// key/value pairs are equal and hash identically when used as a map key.
type LabelSet string

// NewLabelSet builds a LabelSet from a plain map, canonicalizing it into
// Loki's `{k="v", k2="v2"}` form with the rendered `k="v"` tokens sorted
// lexicographically so that equivalent label maps always produce the same
// key. Backslashes and
// quotes in values are backslash-escaped so a value containing `"` or
// `, ` doesn't corrupt the delimiters Map uses to parse the string back.
func NewLabelSet(labels map[string]string) LabelSet {
	if len(labels) == 0 {
		return "{}"
	}

	pairs := make([]string, 0, len(labels))
	for k, v := range labels {
		pairs = append(pairs, k+`="`+escapeLabelValue(v)+`"`)
	}
	sort.Strings(pairs)

	var b strings.Builder
	b.WriteByte('{')
	b.WriteString(strings.Join(pairs, ", "))
	b.WriteByte('}')
	return LabelSet(b.String())
}

// String returns the canonical `{k="v", ...}` representation.
func (l LabelSet) String() string {
	return string(l)
}

// Map re-parses the canonical string back into a plain map, used when
// serializing to JSON where Loki expects an object rather than the
// canonical string. It scans for quoted values rather than splitting on
// ", " so commas and escaped quotes inside a value don't split a pair in
// the wrong place.
func (l LabelSet) Map() map[string]string {
	inner := strings.TrimSuffix(strings.TrimPrefix(string(l), "{"), "}")
	if inner == "" {
		return map[string]string{}
	}

	result := make(map[string]string)
	for len(inner) > 0 {
		eq := strings.IndexByte(inner, '=')
		if eq < 0 || eq+1 >= len(inner) || inner[eq+1] != '"' {
			break
		}
		key := inner[:eq]

		value, rest, ok := scanQuotedValue(inner[eq+2:])
		if !ok {
			break
		}
		result[key] = value

		inner = strings.TrimPrefix(rest, ", ")
	}
	return result
}

// escapeLabelValue backslash-escapes backslashes and double quotes.
func escapeLabelValue(v string) string {
	if !strings.ContainsAny(v, `\"`) {
		return v
	}
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `"`, `\"`)
	return v
}

// scanQuotedValue reads an escaped value up to (and past) the closing
// unescaped quote, returning the unescaped value and the remainder of s.
func scanQuotedValue(s string) (value, rest string, ok bool) {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\\':
			if i+1 < len(s) {
				b.WriteByte(s[i+1])
				i++
			}
		case '"':
			return b.String(), s[i+1:], true
		default:
			b.WriteByte(s[i])
		}
	}
	return "", s, false
}
