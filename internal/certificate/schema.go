package certificate

// Schema creates the certificates table: one row per equation, keyed so the
// at-most-one-certificate invariant is enforced by the database.
const Schema = `
CREATE TABLE IF NOT EXISTS certificates (
	equation_id      TEXT PRIMARY KEY,
	content_hash     TEXT NOT NULL,
	submitter_hash   TEXT NOT NULL,
	signature        TEXT NOT NULL,
	ledger_reference TEXT NOT NULL DEFAULT '',
	publish_state    TEXT NOT NULL DEFAULT 'pending',
	attempts         INTEGER NOT NULL DEFAULT 0,
	issued_at        TIMESTAMPTZ NOT NULL,
	last_attempt_at  TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_certificates_publish_state ON certificates (publish_state);
`
