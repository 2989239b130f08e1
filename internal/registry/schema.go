package registry

// Schema creates the equations table. Rank is dense and recomputed on every
// promotion; the unique submission_id constraint guarantees at most one entry
// per promoted submission.
const Schema = `
CREATE TABLE IF NOT EXISTS equations (
	equation_id      TEXT PRIMARY KEY,
	submission_id    TEXT NOT NULL UNIQUE,
	name             TEXT NOT NULL,
	rank             INTEGER NOT NULL DEFAULT 0,
	blended_score    INTEGER NOT NULL,
	mode             TEXT NOT NULL DEFAULT 'organic',
	certificate_hash TEXT NOT NULL DEFAULT '',
	created_at       TIMESTAMPTZ NOT NULL,
	promoted_at      TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_equations_rank ON equations (rank);
`
