package certificate

import "context"

// Store persists certificates, at most one per equation id. Publish
// bookkeeping updates are compare-and-swaps on the publish state so
// concurrent publishers cannot double-spend an attempt.
type Store interface {
	// Create inserts a new certificate. Returns sentinel.ErrConflict when one
	// already exists for the equation id.
	Create(ctx context.Context, cert Certificate) error

	// Get returns the certificate for an equation or sentinel.ErrNotFound.
	Get(ctx context.Context, equationID string) (Certificate, error)

	// List returns all certificates.
	List(ctx context.Context) ([]Certificate, error)

	// ListUnmined returns certificates still pending or failed.
	ListUnmined(ctx context.Context) ([]Certificate, error)

	// Update replaces the record only if the stored publish state equals
	// expected; sentinel.ErrConflict otherwise.
	Update(ctx context.Context, cert Certificate, expected PublishState) error
}
