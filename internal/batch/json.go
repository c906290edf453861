package batch

import "strconv"

// jsonPushRequest mirrors Loki's push API JSON body:
//
//	{"streams":[{"stream":{"k":"v"},"values":[["<ts_nanos>","line"],...]}]}
type jsonPushRequest struct {
	Streams []jsonStream `json:"streams"`
}

type jsonStream struct {
	Stream map[string]string `json:"stream"`
	Values [][2]string       `json:"values"`
}

// EncodeJSON builds the JSON-serializable representation of the batch, for
// callers that want to marshal it themselves (to optionally gzip the
// result before sending).
func (b *Batch) EncodeJSON() jsonPushRequest {
	req := jsonPushRequest{Streams: make([]jsonStream, 0, len(b.streams))}
	for labels, entries := range b.streams {
		values := make([][2]string, len(entries))
		for i, e := range entries {
			values[i] = [2]string{strconv.FormatInt(e.TimestampNanos, 10), e.Line}
		}
		req.Streams = append(req.Streams, jsonStream{
			Stream: labels.Map(),
			Values: values,
		})
	}
	return req
}
