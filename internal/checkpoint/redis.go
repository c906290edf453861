package checkpoint

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisConnectRetryDelay = time.Second

// RedisStore stores checkpoint state as a single JSON value keyed by job
// name, under a fixed prefix.
type RedisStore struct {
	addr     string
	password string
	db       int
	jobName  string
	logger   *slog.Logger
	dryRun   bool

	client *redis.Client
}

const redisKeyPrefix = "es2loki:checkpoint:"

// NewRedisStore returns a Redis-backed checkpoint store for jobName.
// Init must be called before Load/Save/Cleanup. When dryRun is true, Save
// and Cleanup become logged no-ops rather than writing to Redis.
func NewRedisStore(addr, password string, db int, jobName string, logger *slog.Logger, dryRun bool) *RedisStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisStore{addr: addr, password: password, db: db, jobName: jobName, logger: logger, dryRun: dryRun}
}

// Init connects to Redis, retrying every second until it succeeds or ctx is
// cancelled.
func (s *RedisStore) Init(ctx context.Context) error {
	for {
		client := redis.NewClient(&redis.Options{
			Addr:     s.addr,
			Password: s.password,
			DB:       s.db,
		})

		err := client.Ping(ctx).Err()
		if err == nil {
			s.client = client
			return nil
		}
		client.Close()
		s.logger.Warn("checkpoint store connect failed, retrying", "error", err)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(redisConnectRetryDelay):
		}
	}
}

func (s *RedisStore) key() string {
	return redisKeyPrefix + s.jobName
}

// Load returns the saved state for this job, or the zero State if no key
// exists yet.
func (s *RedisStore) Load(ctx context.Context) (State, error) {
	data, err := s.client.Get(ctx, s.key()).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return State{}, nil
		}
		return State{}, fmt.Errorf("load checkpoint state: %w", err)
	}

	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return State{}, fmt.Errorf("decode checkpoint state: %w", err)
	}
	return state, nil
}

// Save writes the checkpoint state for this job, overwriting any previous value.
func (s *RedisStore) Save(ctx context.Context, state State, transferred int64) error {
	if s.dryRun {
		s.logger.Info("[DRY_RUN] saving state to db", "job", s.jobName)
		return nil
	}

	state.Transferred = transferred
	encoded, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode checkpoint state: %w", err)
	}
	if err := s.client.Set(ctx, s.key(), encoded, 0).Err(); err != nil {
		return fmt.Errorf("save checkpoint state: %w", err)
	}
	return nil
}

// Cleanup deletes the checkpoint key for this job, used when starting over.
func (s *RedisStore) Cleanup(ctx context.Context) error {
	if s.dryRun {
		s.logger.Info("[DRY_RUN] cleaning up state", "job", s.jobName)
		return nil
	}

	if err := s.client.Del(ctx, s.key()).Err(); err != nil {
		return fmt.Errorf("cleanup checkpoint state: %w", err)
	}
	return nil
}

// Close closes the Redis connection.
func (s *RedisStore) Close(ctx context.Context) error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}
