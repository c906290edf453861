package sink

import (
	"context"
	"testing"

	"go.flowcatalyst.tech/es2loki/internal/batch"
)

func TestClientDryRunSkipsNetwork(t *testing.T) {
	client := New(Config{
		URL:    "http://loki.invalid:3100",
		Mode:   ModeJSON,
		DryRun: true,
	}, nil)

	b := batch.New()
	b.Push(batch.NewLabelSet(map[string]string{"job": "x"}), 1000, "line")

	status, size, err := client.Push(context.Background(), b)
	if err != nil {
		t.Fatalf("Push() error = %v", err)
	}
	if status != 200 {
		t.Errorf("status = %d, want 200", status)
	}
	if size == 0 {
		t.Error("size = 0, want encoded payload length")
	}
}

func TestClientEncodeModes(t *testing.T) {
	b := batch.New()
	b.Push(batch.NewLabelSet(map[string]string{"job": "x"}), 1000, "line")

	for _, mode := range []Mode{ModeJSON, ModeGzip, ModePB} {
		client := New(Config{URL: "http://x", Mode: mode}, nil)
		data, contentType, _, err := client.encode(b)
		if err != nil {
			t.Fatalf("encode(%s) error = %v", mode, err)
		}
		if len(data) == 0 {
			t.Errorf("encode(%s) returned empty data", mode)
		}
		if contentType == "" {
			t.Errorf("encode(%s) returned empty content type", mode)
		}
	}
}
