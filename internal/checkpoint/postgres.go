package checkpoint

import (
	"context"
	"encoding/json"
	"fmt"
	"errors"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const postgresConnectRetryDelay = time.Second

// PostgresStore persists checkpoint state in a single-row-per-job table:
//
//	CREATE TABLE state (
//	    id          BIGSERIAL PRIMARY KEY,
//	    name        TEXT UNIQUE NOT NULL,
//	    transferred BIGINT NOT NULL DEFAULT 0,
//	    timestamp   TEXT NOT NULL DEFAULT '',
//	    value       JSONB NOT NULL DEFAULT '[]'
//	)
//
// keyed by job name, upserted on every Save.
type PostgresStore struct {
	dsn     string
	jobName string
	logger  *slog.Logger
	dryRun  bool

	pool *pgxpool.Pool
}

// NewPostgresStore returns a Postgres-backed checkpoint store for jobName.
// Init must be called before Load/Save/Cleanup. When dryRun is true, Save
// and Cleanup become logged no-ops rather than writing to the database.
func NewPostgresStore(dsn, jobName string, logger *slog.Logger, dryRun bool) *PostgresStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresStore{dsn: dsn, jobName: jobName, logger: logger, dryRun: dryRun}
}

// Init connects to Postgres, retrying every second until it succeeds or ctx
// is cancelled, then ensures the state table exists.
func (s *PostgresStore) Init(ctx context.Context) error {
	for {
		pool, err := pgxpool.New(ctx, s.dsn)
		if err == nil {
			if pingErr := pool.Ping(ctx); pingErr == nil {
				s.pool = pool
				break
			} else {
				pool.Close()
				err = pingErr
			}
		}

		s.logger.Warn("checkpoint store connect failed, retrying", "error", err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(postgresConnectRetryDelay):
		}
	}

	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS state (
			id          BIGSERIAL PRIMARY KEY,
			name        TEXT UNIQUE NOT NULL,
			transferred BIGINT NOT NULL DEFAULT 0,
			timestamp   TEXT NOT NULL DEFAULT '',
			value       JSONB NOT NULL DEFAULT '[]'
		)
	`)
	if err != nil {
		return fmt.Errorf("create state table: %w", err)
	}
	return nil
}

// Load returns the saved state for this job, or the zero State if no row
// exists yet.
func (s *PostgresStore) Load(ctx context.Context) (State, error) {
	var (
		timestamp   string
		transferred int64
		rawValue    []byte
	)

	err := s.pool.QueryRow(ctx,
		`SELECT timestamp, transferred, value FROM state WHERE name = $1`,
		s.jobName,
	).Scan(&timestamp, &transferred, &rawValue)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return State{}, nil
		}
		return State{}, fmt.Errorf("load checkpoint state: %w", err)
	}

	var value []json.RawMessage
	if len(rawValue) > 0 {
		if err := json.Unmarshal(rawValue, &value); err != nil {
			return State{}, fmt.Errorf("decode checkpoint value: %w", err)
		}
	}

	return State{Timestamp: timestamp, Transferred: transferred, Value: value}, nil
}

// Save upserts the checkpoint row for this job.
func (s *PostgresStore) Save(ctx context.Context, state State, transferred int64) error {
	if s.dryRun {
		s.logger.Info("[DRY_RUN] saving state to db", "job", s.jobName)
		return nil
	}

	value := state.Value
	if value == nil {
		value = []json.RawMessage{}
	}
	encoded, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode checkpoint value: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO state (name, transferred, timestamp, value)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (name) DO UPDATE
		SET transferred = EXCLUDED.transferred,
		    timestamp = EXCLUDED.timestamp,
		    value = EXCLUDED.value
	`, s.jobName, transferred, state.Timestamp, encoded)
	if err != nil {
		return fmt.Errorf("save checkpoint state: %w", err)
	}
	return nil
}

// Cleanup deletes the checkpoint row for this job, used when starting over.
func (s *PostgresStore) Cleanup(ctx context.Context) error {
	if s.dryRun {
		s.logger.Info("[DRY_RUN] cleaning up state", "job", s.jobName)
		return nil
	}

	_, err := s.pool.Exec(ctx, `DELETE FROM state WHERE name = $1`, s.jobName)
	if err != nil {
		return fmt.Errorf("cleanup checkpoint state: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (s *PostgresStore) Close(ctx context.Context) error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}
