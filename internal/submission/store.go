package submission

import "context"

// Store persists submissions. Every mutation after Create is a compare-and-swap
// against the expected prior status: stores return sentinel.ErrConflict when
// the stored status no longer matches, and callers re-read before retrying.
type Store interface {
	// Create inserts a new submission. Returns sentinel.ErrConflict when the
	// id is already taken.
	Create(ctx context.Context, sub Submission) error

	// Get returns the submission or sentinel.ErrNotFound.
	Get(ctx context.Context, id string) (Submission, error)

	// List returns all submissions ordered by creation time.
	List(ctx context.Context) ([]Submission, error)

	// Update replaces the stored record only if its current status equals
	// expected. Returns sentinel.ErrNotFound when the id is unknown and
	// sentinel.ErrConflict when the precondition fails.
	Update(ctx context.Context, sub Submission, expected Status) error
}
