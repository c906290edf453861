// es2loki-transfer scrolls an Elasticsearch index with search_after and
// pushes every document to Loki as a batched stream, resuming from a
// checkpoint store across restarts.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"go.flowcatalyst.tech/es2loki/internal/checkpoint"
	"go.flowcatalyst.tech/es2loki/internal/common/health"
	"go.flowcatalyst.tech/es2loki/internal/common/lifecycle"
	"go.flowcatalyst.tech/es2loki/internal/common/secrets"
	"go.flowcatalyst.tech/es2loki/internal/config"
	"go.flowcatalyst.tech/es2loki/internal/projection"
	"go.flowcatalyst.tech/es2loki/internal/sink"
	"go.flowcatalyst.tech/es2loki/internal/transfer"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

func main() {
	logLevel := slog.LevelInfo
	cfg, err := config.LoadWithFile()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(transfer.ExitError)
	}
	if cfg.DevMode {
		logLevel = slog.LevelDebug
	}
	runID := uuid.NewString()
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})).With("run_id", runID))

	slog.Info("starting es2loki-transfer", "version", version, "build_time", buildTime,
		"index", cfg.Elastic.Index, "loki_url", cfg.Loki.URL, "state_mode", cfg.State.Mode,
		"dry_run", cfg.DryRun)

	os.Exit(run(cfg))
}

func run(cfg *config.Config) int {
	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	if err := resolveSecrets(ctx, cfg); err != nil {
		slog.Error("failed to resolve secrets", "provider", cfg.Secrets.Provider, "error", err)
		return transfer.ExitError
	}

	esClient, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: cfg.Elastic.Hosts,
		Username:  cfg.Elastic.Username,
		Password:  cfg.Elastic.Password,
	})
	if err != nil {
		slog.Error("failed to build elasticsearch client", "error", err)
		return transfer.ExitError
	}

	store, err := checkpoint.New(cfg.State, slog.Default())
	if err != nil {
		slog.Error("failed to build checkpoint store", "error", err)
		return transfer.ExitError
	}

	sinkClient := sink.New(sink.Config{
		URL:         cfg.Loki.URL,
		Username:    cfg.Loki.Username,
		Password:    cfg.Loki.Password,
		TenantID:    cfg.Loki.TenantID,
		Mode:        pushMode(cfg.Loki.PushMode),
		DryRun:      cfg.DryRun,
		WaitTimeout: cfg.Loki.WaitTimeout,
	}, slog.Default())

	orchestrator := transfer.New(esClient, store, sinkClient, projection.Passthrough{Job: cfg.Elastic.Index}, transfer.Config{
		Index:          cfg.Elastic.Index,
		TimestampField: cfg.Elastic.TimestampField,
		MaxDate:        cfg.Elastic.MaxDate,
		ESBatchSize:    cfg.Elastic.BatchSize,
		ESTimeout:      cfg.Elastic.Timeout,
		FlushThreshold: cfg.Loki.BatchSize,
		LoadFactor:     cfg.Loki.PoolLoadFactor,
		WaitTimeout:    cfg.Loki.WaitTimeout,
		StartOver:      cfg.State.StartOver,
	}, slog.Default())

	shutdown := lifecycle.NewManager()
	shutdown.SetShutdownTimeout(35 * time.Second)
	shutdown.RegisterDatabaseShutdown("checkpoint-store", store.Close)

	var httpServer *http.Server
	if cfg.HTTP.Addr != "" {
		httpServer = startAmbientServer(cfg, esClient, store, orchestrator)
		shutdown.RegisterHTTPShutdown("ambient-http", httpServer.Shutdown)
	}

	exitCode := make(chan int, 1)
	go func() {
		exitCode <- orchestrator.Run(ctx)
	}()

	// First signal asks the orchestrator to stop gracefully; a second
	// signal before it has had a chance to stop forces an immediate exit,
	// mirroring the original job runner's double-interrupt behavior.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	var code int
	select {
	case code = <-exitCode:
	case sig := <-quit:
		slog.Info("shutdown signal received, stopping transfer", "signal", sig.String())
		stop()
		select {
		case code = <-exitCode:
		case <-quit:
			slog.Warn("second shutdown signal received, forcing exit")
			code = transfer.ExitForced
		case <-time.After(30 * time.Second):
			slog.Error("transfer did not stop within timeout")
			code = transfer.ExitDrainTimeout
		}
	}

	if err := shutdown.Execute(); err != nil {
		slog.Error("graceful shutdown did not complete cleanly", "error", err)
	}

	slog.Info("es2loki-transfer finished", "exit_code", code)
	return code
}

// resolveSecrets overrides the Elastic and Loki passwords from the
// configured secrets provider when it isn't the plain "env" passthrough,
// looking them up under the well-known keys "elastic-password" and
// "loki-password". A missing secret is not an error: the literal env value
// already loaded into cfg is left in place.
func resolveSecrets(ctx context.Context, cfg *config.Config) error {
	if cfg.Secrets.Provider == "" || cfg.Secrets.Provider == "env" {
		return nil
	}

	provider, err := secrets.NewProvider(&secrets.Config{Provider: secrets.ProviderType(cfg.Secrets.Provider)})
	if err != nil {
		return err
	}

	if v, err := provider.Get(ctx, "elastic-password"); err == nil {
		cfg.Elastic.Password = v
	} else if err != secrets.ErrSecretNotFound {
		return err
	}

	if v, err := provider.Get(ctx, "loki-password"); err == nil {
		cfg.Loki.Password = v
	} else if err != secrets.ErrSecretNotFound {
		return err
	}

	return nil
}

func pushMode(mode string) sink.Mode {
	switch mode {
	case "pb":
		return sink.ModePB
	case "gzip":
		return sink.ModeGzip
	default:
		return sink.ModeJSON
	}
}

func startAmbientServer(cfg *config.Config, esClient *elasticsearch.Client, store checkpoint.Store, orchestrator *transfer.Orchestrator) *http.Server {
	checker := health.NewChecker()
	checker.AddReadinessCheck(health.ElasticsearchCheck(func() error {
		res, err := esapi.PingRequest{}.Do(context.Background(), esClient)
		if err != nil {
			return err
		}
		defer res.Body.Close()
		if res.IsError() {
			return fmt.Errorf("elasticsearch ping returned %s", res.Status())
		}
		return nil
	}))
	checker.AddReadinessCheck(health.CheckpointStoreCheck(func() error {
		_, err := store.Load(context.Background())
		return err
	}))
	checker.AddReadinessCheck(health.TransferCheck(func() health.TransferProgressData {
		p := orchestrator.Progress()
		return health.TransferProgressData{
			Running:         true,
			TotalDocs:       p.TotalDocs,
			TransferredDocs: p.TransferredDocs,
		}
	}))

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/q/health", checker.HandleHealth)
	r.Get("/q/health/live", checker.HandleLive)
	r.Get("/q/health/ready", checker.HandleReady)
	r.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("ambient http server starting", "addr", cfg.HTTP.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("ambient http server failed", "error", err)
		}
	}()

	return server
}
