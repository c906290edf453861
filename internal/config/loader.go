package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// TOMLConfig mirrors Config for file-based loading, matching the teacher's
// pattern of an optional TOML file that env vars override.
type TOMLConfig struct {
	HTTP    TOMLHTTPConfig    `toml:"http"`
	Elastic TOMLElasticConfig `toml:"elastic"`
	Loki    TOMLLokiConfig    `toml:"loki"`
	State   TOMLStateConfig   `toml:"state"`
	Secrets TOMLSecretsConfig `toml:"secrets"`
	DevMode bool              `toml:"dev_mode"`
	DryRun  bool              `toml:"dry_run"`
}

type TOMLHTTPConfig struct {
	Addr string `toml:"addr"`
}

type TOMLElasticConfig struct {
	Hosts          []string `toml:"hosts"`
	Username       string   `toml:"username"`
	Password       string   `toml:"password"`
	Index          string   `toml:"index"`
	BatchSize      int      `toml:"batch_size"`
	Timeout        string   `toml:"timeout"`
	MaxDate        string   `toml:"max_date"`
	TimestampField string   `toml:"timestamp_field"`
}

type TOMLLokiConfig struct {
	URL            string `toml:"url"`
	Username       string `toml:"username"`
	Password       string `toml:"password"`
	TenantID       string `toml:"tenant_id"`
	BatchSize      int    `toml:"batch_size"`
	PoolLoadFactor int    `toml:"pool_load_factor"`
	PushMode       string `toml:"push_mode"`
	WaitTimeout    string `toml:"wait_timeout"`
}

type TOMLStateConfig struct {
	StartOver bool   `toml:"start_over"`
	Mode      string `toml:"mode"`
	DBURL     string `toml:"db_url"`
	JobName   string `toml:"job_name"`
}

type TOMLSecretsConfig struct {
	Provider string `toml:"provider"`
}

// LoadFromFile loads configuration from a TOML file.
func LoadFromFile(path string) (*Config, error) {
	var tc TOMLConfig
	if _, err := toml.DecodeFile(path, &tc); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return tomlConfigToConfig(&tc)
}

// LoadWithFile loads configuration from CONFIG_FILE (if set) then applies
// env vars on top, matching the teacher's file-base/env-override merge.
func LoadWithFile() (*Config, error) {
	cfg, err := Load()
	if err != nil {
		return nil, err
	}

	path := os.Getenv("CONFIG_FILE")
	if path == "" {
		return cfg, nil
	}

	if _, statErr := os.Stat(path); statErr != nil {
		return cfg, nil
	}

	fileCfg, err := LoadFromFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
	}

	return mergeConfigs(fileCfg, cfg), nil
}

func tomlConfigToConfig(tc *TOMLConfig) (*Config, error) {
	cfg := &Config{
		HTTP: HTTPConfig{Addr: tc.HTTP.Addr},
		Elastic: ElasticConfig{
			Hosts:          tc.Elastic.Hosts,
			Username:       tc.Elastic.Username,
			Password:       tc.Elastic.Password,
			Index:          tc.Elastic.Index,
			BatchSize:      tc.Elastic.BatchSize,
			MaxDate:        tc.Elastic.MaxDate,
			TimestampField: tc.Elastic.TimestampField,
		},
		Loki: LokiConfig{
			URL:            tc.Loki.URL,
			Username:       tc.Loki.Username,
			Password:       tc.Loki.Password,
			TenantID:       tc.Loki.TenantID,
			BatchSize:      tc.Loki.BatchSize,
			PoolLoadFactor: tc.Loki.PoolLoadFactor,
			PushMode:       tc.Loki.PushMode,
		},
		State: StateConfig{
			StartOver: tc.State.StartOver,
			Mode:      tc.State.Mode,
			DBURL:     tc.State.DBURL,
			JobName:   tc.State.JobName,
		},
		Secrets: SecretsConfig{Provider: tc.Secrets.Provider},
		DevMode: tc.DevMode,
		DryRun:  tc.DryRun,
	}
	cfg.State.DryRun = cfg.DryRun

	if tc.Elastic.Timeout != "" {
		if d, err := time.ParseDuration(tc.Elastic.Timeout); err == nil {
			cfg.Elastic.Timeout = d
		}
	}
	if tc.Loki.WaitTimeout != "" {
		if d, err := time.ParseDuration(tc.Loki.WaitTimeout); err == nil {
			cfg.Loki.WaitTimeout = d
		}
	}

	return cfg, nil
}

// mergeConfigs merges two configs, env-sourced override taking precedence
// over file-sourced base wherever override deviates from its own zero/default.
func mergeConfigs(base, override *Config) *Config {
	result := *base

	if override.HTTP.Addr != "" {
		result.HTTP.Addr = override.HTTP.Addr
	}
	if len(override.Elastic.Hosts) > 0 {
		result.Elastic.Hosts = override.Elastic.Hosts
	}
	if override.Elastic.Username != "" {
		result.Elastic.Username = override.Elastic.Username
	}
	if override.Elastic.Password != "" {
		result.Elastic.Password = override.Elastic.Password
	}
	if override.Elastic.Index != "" {
		result.Elastic.Index = override.Elastic.Index
	}
	if override.Loki.URL != "" {
		result.Loki.URL = override.Loki.URL
	}
	if override.Loki.Password != "" {
		result.Loki.Password = override.Loki.Password
	}
	if override.State.Mode != "" {
		result.State.Mode = override.State.Mode
	}
	if override.State.DBURL != "" {
		result.State.DBURL = override.State.DBURL
	}
	if override.Secrets.Provider != "" && override.Secrets.Provider != "env" {
		result.Secrets.Provider = override.Secrets.Provider
	}
	if override.DevMode {
		result.DevMode = true
	}
	if override.DryRun {
		result.DryRun = true
		result.State.DryRun = true
	}

	return &result
}
