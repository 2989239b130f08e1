package registry

import "context"

// Store persists registry entries. The promotion engine is the only writer;
// the certificate issuer touches nothing but the certificate hash column.
type Store interface {
	// Insert adds an entry. Returns sentinel.ErrConflict when the equation id
	// or the submission id is already registered; at most one entry exists
	// per submission.
	Insert(ctx context.Context, eq Equation) error

	// Get returns the entry or sentinel.ErrNotFound.
	Get(ctx context.Context, equationID string) (Equation, error)

	// GetBySubmission returns the entry promoted from the given submission.
	GetBySubmission(ctx context.Context, submissionID string) (Equation, error)

	// Delete removes an entry. Used only to unwind a promotion whose
	// submission write lost its race.
	Delete(ctx context.Context, equationID string) error

	// List returns all entries in rank order.
	List(ctx context.Context) ([]Equation, error)

	// Rerank recomputes the dense rank ordering: blended score descending,
	// ties broken by earliest creation time.
	Rerank(ctx context.Context) error

	// SetCertificateHash records the issued certificate's content hash.
	SetCertificateHash(ctx context.Context, equationID, hash string) error
}
