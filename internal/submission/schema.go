package submission

// Schema creates the submissions table. Statements are idempotent so they can
// run at every boot and in integration tests.
const Schema = `
CREATE TABLE IF NOT EXISTS submissions (
	id                 TEXT PRIMARY KEY,
	name               TEXT NOT NULL,
	equation           TEXT NOT NULL,
	description        TEXT NOT NULL,
	source             TEXT NOT NULL DEFAULT 'unknown',
	submitter          TEXT NOT NULL DEFAULT 'anonymous',
	units              TEXT NOT NULL DEFAULT 'TBD',
	theory             TEXT NOT NULL DEFAULT 'TBD',
	assumptions        TEXT[] NOT NULL DEFAULT '{}',
	evidence           TEXT[] NOT NULL DEFAULT '{}',
	animation_status   TEXT NOT NULL DEFAULT 'planned',
	animation_path     TEXT NOT NULL DEFAULT '',
	image_status       TEXT NOT NULL DEFAULT 'planned',
	image_path         TEXT NOT NULL DEFAULT '',
	status             TEXT NOT NULL DEFAULT 'needs-review',
	heuristic_score    INTEGER NOT NULL DEFAULT 0,
	advisory_score     INTEGER,
	advisory_rationale TEXT NOT NULL DEFAULT '',
	blended_score      INTEGER,
	scoring_degraded   BOOLEAN NOT NULL DEFAULT FALSE,
	promotion_override BOOLEAN NOT NULL DEFAULT FALSE,
	equation_id        TEXT NOT NULL DEFAULT '',
	reject_reason      TEXT NOT NULL DEFAULT '',
	created_at         TIMESTAMPTZ NOT NULL,
	scored_at          TIMESTAMPTZ,
	promoted_at        TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_submissions_status ON submissions (status);
`
