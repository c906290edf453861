//go:build integration

package checkpoint

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func startPostgresContainer(ctx context.Context, t *testing.T) string {
	t.Helper()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "es2loki",
			"POSTGRES_PASSWORD": "es2loki",
			"POSTGRES_DB":       "es2loki",
		},
		WaitingFor: wait.ForListeningPort("5432/tcp").WithStartupTimeout(30 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("failed to terminate postgres container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("failed to get container host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("failed to get mapped port: %v", err)
	}

	return fmt.Sprintf("postgres://es2loki:es2loki@%s:%s/es2loki?sslmode=disable", host, port.Port())
}

func TestPostgresStoreIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	dsn := startPostgresContainer(ctx, t)

	store := NewPostgresStore(dsn, "packetbeat-transfer", nil, false)
	if err := store.Init(ctx); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	defer store.Close(ctx)

	initial, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !initial.IsZero() {
		t.Fatalf("Load() on fresh store = %+v, want zero state", initial)
	}

	saved := State{Timestamp: "2026-01-01T00:00:00Z", Value: nil}
	if err := store.Save(ctx, saved, 42); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load() after Save error = %v", err)
	}
	if loaded.Timestamp != saved.Timestamp {
		t.Errorf("Timestamp = %q, want %q", loaded.Timestamp, saved.Timestamp)
	}
	if loaded.Transferred != 42 {
		t.Errorf("Transferred = %d, want 42", loaded.Transferred)
	}

	if err := store.Cleanup(ctx); err != nil {
		t.Fatalf("Cleanup() error = %v", err)
	}
	afterCleanup, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load() after Cleanup error = %v", err)
	}
	if !afterCleanup.IsZero() {
		t.Errorf("Load() after Cleanup = %+v, want zero state", afterCleanup)
	}
}
