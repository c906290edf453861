// Package sink implements the Loki push client: JSON or protobuf+snappy
// encoding, basic auth, tenant header, dry-run, and infinite retry on any
// non-2xx response or transport error.
package sink

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"go.flowcatalyst.tech/es2loki/internal/batch"
	"go.flowcatalyst.tech/es2loki/internal/common/metrics"
)

// pushRetryDelay is how long the client waits between a failed push attempt
// and the next one.
const pushRetryDelay = 2 * time.Second

// pushRequestTimeout bounds a single HTTP push attempt. It is independent of
// Config.WaitTimeout, which Client does not read; the pause between
// successive pushes is applied by the transfer package's sink worker.
const pushRequestTimeout = 30 * time.Second

// Mode selects how a batch is encoded on the wire.
type Mode string

const (
	ModeJSON Mode = "json"
	ModeGzip Mode = "gzip"
	ModePB   Mode = "pb"
)

// Config configures a Client.
type Config struct {
	URL         string
	Username    string
	Password    string
	TenantID    string
	Mode        Mode
	DryRun      bool
	WaitTimeout time.Duration
}

// Client pushes batches to Loki's push API over a single persistent HTTP
// connection.
type Client struct {
	pushURL  string
	username string
	password string
	tenantID string
	mode     Mode
	dryRun   bool

	httpClient *http.Client
	logger     *slog.Logger
}

// New returns a Client ready to push batches.
func New(cfg Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		pushURL:  cfg.URL + "/loki/api/v1/push",
		username: cfg.Username,
		password: cfg.Password,
		tenantID: cfg.TenantID,
		mode:     cfg.Mode,
		dryRun:   cfg.DryRun,
		httpClient: &http.Client{
			Timeout: pushRequestTimeout,
		},
		logger: logger,
	}
}

// Push encodes b per the client's Mode and sends it to Loki, retrying every
// pushRetryDelay on any non-2xx response or transport error until it
// succeeds or ctx is cancelled. It returns the final status code and the
// encoded payload size in bytes.
func (c *Client) Push(ctx context.Context, b *batch.Batch) (status int, size int, err error) {
	data, contentType, contentEncoding, err := c.encode(b)
	if err != nil {
		return 0, 0, fmt.Errorf("encode batch: %w", err)
	}

	for {
		if ctx.Err() != nil {
			return 0, 0, ctx.Err()
		}

		if c.dryRun {
			c.logger.Info("dry run: would push batch to loki", "url", c.pushURL, "bytes", len(data))
			return http.StatusOK, len(data), nil
		}

		status, err := c.attempt(ctx, data, contentType, contentEncoding)
		if err != nil {
			c.logger.Error("error pushing to loki", "error", err)
			metrics.SinkPushRetries.Inc()
			if !c.wait(ctx) {
				return 0, 0, ctx.Err()
			}
			continue
		}
		if status < 200 || status >= 300 {
			c.logger.Warn("loki push rejected", "status", status, "stats", b.PrintableStats())
			metrics.SinkPushRetries.Inc()
			if !c.wait(ctx) {
				return 0, 0, ctx.Err()
			}
			continue
		}

		return status, len(data), nil
	}
}

func (c *Client) attempt(ctx context.Context, data []byte, contentType, contentEncoding string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.pushURL, bytes.NewReader(data))
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	if contentEncoding != "" {
		req.Header.Set("Content-Encoding", contentEncoding)
	}
	if c.tenantID != "" {
		req.Header.Set("X-Scope-OrgId", c.tenantID)
	}
	if c.username != "" && c.password != "" {
		req.SetBasicAuth(c.username, c.password)
	}

	res, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("do request: %w", err)
	}
	defer res.Body.Close()
	io.Copy(io.Discard, res.Body)

	return res.StatusCode, nil
}

func (c *Client) wait(ctx context.Context) bool {
	t := time.NewTimer(pushRetryDelay)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}

// encode serializes b per c.mode, returning the payload plus the headers to
// send with it.
func (c *Client) encode(b *batch.Batch) (data []byte, contentType, contentEncoding string, err error) {
	switch c.mode {
	case ModePB:
		return b.EncodePBSnappy(), "application/x-protobuf", "", nil
	case ModeGzip:
		raw, err := json.Marshal(b.EncodeJSON())
		if err != nil {
			return nil, "", "", err
		}
		var buf bytes.Buffer
		gz, err := gzip.NewWriterLevel(&buf, 5)
		if err != nil {
			return nil, "", "", err
		}
		if _, err := gz.Write(raw); err != nil {
			return nil, "", "", err
		}
		if err := gz.Close(); err != nil {
			return nil, "", "", err
		}
		return buf.Bytes(), "application/json; charset=utf8", "gzip", nil
	default:
		raw, err := json.Marshal(b.EncodeJSON())
		if err != nil {
			return nil, "", "", err
		}
		return raw, "application/json; charset=utf8", "", nil
	}
}
