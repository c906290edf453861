package main

import (
	"context"
	"testing"

	"go.flowcatalyst.tech/es2loki/internal/config"
	"go.flowcatalyst.tech/es2loki/internal/sink"
)

func TestPushMode(t *testing.T) {
	cases := map[string]sink.Mode{
		"pb":      sink.ModePB,
		"gzip":    sink.ModeGzip,
		"json":    sink.ModeJSON,
		"unknown": sink.ModeJSON,
	}
	for in, want := range cases {
		if got := pushMode(in); got != want {
			t.Errorf("pushMode(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestResolveSecretsNoopForEnvProvider(t *testing.T) {
	cfg := &config.Config{Secrets: config.SecretsConfig{Provider: "env"}}
	cfg.Elastic.Password = "literal"

	if err := resolveSecrets(context.Background(), cfg); err != nil {
		t.Fatalf("resolveSecrets() error = %v", err)
	}
	if cfg.Elastic.Password != "literal" {
		t.Errorf("Elastic.Password = %q, want unchanged", cfg.Elastic.Password)
	}
}
