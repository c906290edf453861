package checkpoint

import "context"

// Store is implemented by every checkpoint backend. Init is called once at
// orchestrator startup and should retry internally until it succeeds or ctx
// is done — callers do not retry around it. Save is only ever called after
// a batch has been durably pushed to the sink; a failed Save does not
// unwind the push, it is logged and retried on the next successful push.
type Store interface {
	// Init establishes the backing connection, retrying with a bounded
	// delay until it succeeds or ctx is cancelled.
	Init(ctx context.Context) error

	// Load returns the last saved State for this job, or the zero State
	// if none has ever been saved.
	Load(ctx context.Context) (State, error)

	// Save persists state with the given cumulative transferred count.
	Save(ctx context.Context, state State, transferred int64) error

	// Cleanup removes any saved state for this job, used when the caller
	// asks to start over from scratch.
	Cleanup(ctx context.Context) error

	// Close releases the backing connection.
	Close(ctx context.Context) error
}
