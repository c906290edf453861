package source

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

// Count returns the document count for index, honoring the same maxDate
// filter the scroller applies, so progress reporting and the total line up.
func Count(ctx context.Context, es *elasticsearch.Client, index, timestampField, maxDate string) (int64, error) {
	body := map[string]any{}
	if maxDate != "" {
		body["query"] = map[string]any{
			"range": map[string]any{
				timestampField: map[string]any{"lt": maxDate},
			},
		}
	}

	encoded, err := json.Marshal(body)
	if err != nil {
		return 0, fmt.Errorf("encode count body: %w", err)
	}

	req := esapi.CountRequest{
		Index: []string{index},
		Body:  bytes.NewReader(encoded),
	}
	res, err := req.Do(ctx, es)
	if err != nil {
		return 0, fmt.Errorf("count request: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return 0, fmt.Errorf("count returned status %s", res.Status())
	}

	var parsed struct {
		Count int64 `json:"count"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return 0, fmt.Errorf("decode count response: %w", err)
	}
	return parsed.Count, nil
}
