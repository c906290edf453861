package checkpoint

import (
	"fmt"
	"log/slog"

	"go.flowcatalyst.tech/es2loki/internal/config"
)

// New builds the checkpoint Store selected by cfg.State.Mode. The returned
// Store is not yet connected; callers must call Init before use.
func New(cfg config.StateConfig, logger *slog.Logger) (Store, error) {
	switch cfg.Mode {
	case "none", "dummy", "":
		return NewDummyStore(logger), nil
	case "db":
		if cfg.DBURL == "" {
			return nil, fmt.Errorf("checkpoint store mode %q requires STATE_DB_URL", cfg.Mode)
		}
		return NewPostgresStore(cfg.DBURL, cfg.JobName, logger, cfg.DryRun), nil
	case "redis":
		if cfg.DBURL == "" {
			return nil, fmt.Errorf("checkpoint store mode %q requires STATE_DB_URL as the Redis address", cfg.Mode)
		}
		return NewRedisStore(cfg.DBURL, "", 0, cfg.JobName, logger, cfg.DryRun), nil
	default:
		return nil, fmt.Errorf("unknown checkpoint store mode %q", cfg.Mode)
	}
}
