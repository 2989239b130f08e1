package certificate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"eqboard/pkg/platform/sentinel"
)

// PostgresStore persists certificates in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, cert Certificate) error {
	query := `
		INSERT INTO certificates (
			equation_id, content_hash, submitter_hash, signature,
			ledger_reference, publish_state, attempts, issued_at, last_attempt_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (equation_id) DO NOTHING
	`
	result, err := s.db.ExecContext(ctx, query,
		cert.EquationID, cert.ContentHash, cert.SubmitterHash, cert.Signature,
		cert.LedgerReference, string(cert.PublishState), cert.Attempts,
		cert.IssuedAt, nullTime(cert.LastAttemptAt),
	)
	if err != nil {
		return fmt.Errorf("insert certificate: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("insert certificate: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrConflict
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, equationID string) (Certificate, error) {
	row := s.db.QueryRowContext(ctx, selectCertificate+` WHERE equation_id = $1`, equationID)
	return scanCertificate(row)
}

func (s *PostgresStore) List(ctx context.Context) ([]Certificate, error) {
	return s.query(ctx, selectCertificate+` ORDER BY equation_id`)
}

func (s *PostgresStore) ListUnmined(ctx context.Context) ([]Certificate, error) {
	return s.query(ctx, selectCertificate+` WHERE publish_state <> 'mined' ORDER BY equation_id`)
}

func (s *PostgresStore) Update(ctx context.Context, cert Certificate, expected PublishState) error {
	query := `
		UPDATE certificates SET
			ledger_reference = $3, publish_state = $4, attempts = $5, last_attempt_at = $6
		WHERE equation_id = $1 AND publish_state = $2
	`
	result, err := s.db.ExecContext(ctx, query,
		cert.EquationID, string(expected),
		cert.LedgerReference, string(cert.PublishState), cert.Attempts, nullTime(cert.LastAttemptAt),
	)
	if err != nil {
		return fmt.Errorf("update certificate: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update certificate: %w", err)
	}
	if affected == 1 {
		return nil
	}

	var exists bool
	err = s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM certificates WHERE equation_id = $1)`, cert.EquationID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check certificate exists: %w", err)
	}
	if !exists {
		return sentinel.ErrNotFound
	}
	return sentinel.ErrConflict
}

func (s *PostgresStore) query(ctx context.Context, query string) ([]Certificate, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query certificates: %w", err)
	}
	defer rows.Close()

	var out []Certificate
	for rows.Next() {
		cert, err := scanCertificate(rows)
		if err != nil {
			return nil, fmt.Errorf("scan certificate: %w", err)
		}
		out = append(out, cert)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate certificates: %w", err)
	}
	return out, nil
}

const selectCertificate = `
	SELECT equation_id, content_hash, submitter_hash, signature,
	       ledger_reference, publish_state, attempts, issued_at, last_attempt_at
	FROM certificates
`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCertificate(row rowScanner) (Certificate, error) {
	var (
		cert        Certificate
		state       string
		lastAttempt sql.NullTime
	)
	err := row.Scan(
		&cert.EquationID, &cert.ContentHash, &cert.SubmitterHash, &cert.Signature,
		&cert.LedgerReference, &state, &cert.Attempts, &cert.IssuedAt, &lastAttempt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Certificate{}, sentinel.ErrNotFound
		}
		return Certificate{}, err
	}
	cert.PublishState = PublishState(state)
	if lastAttempt.Valid {
		t := lastAttempt.Time
		cert.LastAttemptAt = &t
	}
	return cert, nil
}

func nullTime(value *time.Time) sql.NullTime {
	if value == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *value, Valid: true}
}
