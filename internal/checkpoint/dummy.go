package checkpoint

import (
	"context"
	"log/slog"
)

// DummyStore is a no-op checkpoint store: Load always returns the zero
// state and Save only logs. It matches DummyStateStore in the Python
// original — useful for one-off transfers that never need to resume.
type DummyStore struct {
	logger *slog.Logger
}

// NewDummyStore creates a no-op checkpoint store.
func NewDummyStore(logger *slog.Logger) *DummyStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &DummyStore{logger: logger}
}

func (s *DummyStore) Init(ctx context.Context) error { return nil }

func (s *DummyStore) Load(ctx context.Context) (State, error) {
	return State{}, nil
}

func (s *DummyStore) Save(ctx context.Context, state State, transferred int64) error {
	s.logger.Debug("skipping state save, dummy checkpoint store in use", "transferred", transferred)
	return nil
}

func (s *DummyStore) Cleanup(ctx context.Context) error { return nil }

func (s *DummyStore) Close(ctx context.Context) error { return nil }
