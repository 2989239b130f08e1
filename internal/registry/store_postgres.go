package registry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"eqboard/pkg/platform/sentinel"
)

// PostgresStore persists registry entries in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Insert(ctx context.Context, eq Equation) error {
	query := `
		INSERT INTO equations (
			equation_id, submission_id, name, rank, blended_score,
			mode, certificate_hash, created_at, promoted_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT DO NOTHING
	`
	result, err := s.db.ExecContext(ctx, query,
		eq.EquationID, eq.SubmissionID, eq.Name, eq.Rank, eq.BlendedScore,
		string(eq.Mode), eq.CertificateHash, eq.CreatedAt, eq.PromotedAt,
	)
	if err != nil {
		return fmt.Errorf("insert equation: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("insert equation: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrConflict
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, equationID string) (Equation, error) {
	row := s.db.QueryRowContext(ctx, selectEquation+` WHERE equation_id = $1`, equationID)
	return scanEquation(row)
}

func (s *PostgresStore) GetBySubmission(ctx context.Context, submissionID string) (Equation, error) {
	row := s.db.QueryRowContext(ctx, selectEquation+` WHERE submission_id = $1`, submissionID)
	return scanEquation(row)
}

func (s *PostgresStore) Delete(ctx context.Context, equationID string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM equations WHERE equation_id = $1`, equationID)
	if err != nil {
		return fmt.Errorf("delete equation: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete equation: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context) ([]Equation, error) {
	rows, err := s.db.QueryContext(ctx, selectEquation+` ORDER BY rank, equation_id`)
	if err != nil {
		return nil, fmt.Errorf("list equations: %w", err)
	}
	defer rows.Close()

	var out []Equation
	for rows.Next() {
		eq, err := scanEquation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan equation: %w", err)
		}
		out = append(out, eq)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate equations: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) Rerank(ctx context.Context) error {
	query := `
		UPDATE equations e
		SET rank = ranked.new_rank
		FROM (
			SELECT equation_id,
			       ROW_NUMBER() OVER (ORDER BY blended_score DESC, created_at ASC, equation_id ASC) AS new_rank
			FROM equations
		) ranked
		WHERE e.equation_id = ranked.equation_id
	`
	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("rerank equations: %w", err)
	}
	return nil
}

func (s *PostgresStore) SetCertificateHash(ctx context.Context, equationID, hash string) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE equations SET certificate_hash = $2 WHERE equation_id = $1`, equationID, hash)
	if err != nil {
		return fmt.Errorf("set certificate hash: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("set certificate hash: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

const selectEquation = `
	SELECT equation_id, submission_id, name, rank, blended_score,
	       mode, certificate_hash, created_at, promoted_at
	FROM equations
`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEquation(row rowScanner) (Equation, error) {
	var (
		eq   Equation
		mode string
	)
	err := row.Scan(
		&eq.EquationID, &eq.SubmissionID, &eq.Name, &eq.Rank, &eq.BlendedScore,
		&mode, &eq.CertificateHash, &eq.CreatedAt, &eq.PromotedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Equation{}, sentinel.ErrNotFound
		}
		return Equation{}, fmt.Errorf("scan equation: %w", err)
	}
	eq.Mode = PromotionMode(mode)
	return eq, nil
}
