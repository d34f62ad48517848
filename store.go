package hica

import "context"

// ThreadStore persists thread snapshots keyed by thread id. Implementations
// live in store/file (one JSON file per thread), store/sqlite and
// store/postgres (one row per thread, upsert writes), and store/mongo (one
// document per thread).
//
// The contract is identical across backends:
//
//   - Set is an idempotent full-snapshot upsert; no partial updates.
//   - Get returns the exact last snapshot, or ErrThreadNotFound.
//   - Delete of an absent id is not an error.
//   - All enumerates current snapshots with no ordering guarantee.
//
// Stores never retry; I/O failures surface as *ErrStoreIO. Concurrent Set on
// the same id is last-writer-wins at snapshot granularity; callers serialize
// writes per thread.
type ThreadStore interface {
	Set(ctx context.Context, t *Thread) error
	Get(ctx context.Context, id string) (*Thread, error)
	Delete(ctx context.Context, id string) error
	All(ctx context.Context) (map[string]*Thread, error)
}
