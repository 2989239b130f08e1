package submission

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"eqboard/pkg/platform/sentinel"
)

// PostgresStore persists submissions in PostgreSQL. The status column carries
// the compare-and-swap precondition for every update.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, sub Submission) error {
	query := `
		INSERT INTO submissions (
			id, name, equation, description, source, submitter,
			units, theory, assumptions, evidence,
			animation_status, animation_path, image_status, image_path,
			status, heuristic_score, advisory_score, advisory_rationale,
			blended_score, scoring_degraded, promotion_override,
			equation_id, reject_reason, created_at, scored_at, promoted_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
		        $15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26)
		ON CONFLICT (id) DO NOTHING
	`
	result, err := s.db.ExecContext(ctx, query,
		sub.ID, sub.Name, sub.Equation, sub.Description, sub.Source, sub.Submitter,
		string(sub.Units), string(sub.Theory), pq.Array(sub.Assumptions), pq.Array(sub.Evidence),
		string(sub.Animation.Status), sub.Animation.Path, string(sub.Image.Status), sub.Image.Path,
		string(sub.Status), sub.HeuristicScore, nullInt(sub.AdvisoryScore), sub.AdvisoryRationale,
		nullInt(sub.BlendedScore), sub.ScoringDegraded, sub.PromotionOverride,
		sub.EquationID, sub.RejectReason, sub.CreatedAt, nullTime(sub.ScoredAt), nullTime(sub.PromotedAt),
	)
	if err != nil {
		return fmt.Errorf("insert submission: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("insert submission: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrConflict
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (Submission, error) {
	row := s.db.QueryRowContext(ctx, selectSubmission+` WHERE id = $1`, id)
	sub, err := scanSubmission(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Submission{}, sentinel.ErrNotFound
		}
		return Submission{}, fmt.Errorf("get submission: %w", err)
	}
	return sub, nil
}

func (s *PostgresStore) List(ctx context.Context) ([]Submission, error) {
	rows, err := s.db.QueryContext(ctx, selectSubmission+` ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	defer rows.Close()

	var out []Submission
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return nil, fmt.Errorf("scan submission: %w", err)
		}
		out = append(out, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate submissions: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) Update(ctx context.Context, sub Submission, expected Status) error {
	query := `
		UPDATE submissions SET
			units = $3, theory = $4, assumptions = $5, evidence = $6,
			animation_status = $7, animation_path = $8, image_status = $9, image_path = $10,
			status = $11, heuristic_score = $12, advisory_score = $13, advisory_rationale = $14,
			blended_score = $15, scoring_degraded = $16, promotion_override = $17,
			equation_id = $18, reject_reason = $19, scored_at = $20, promoted_at = $21
		WHERE id = $1 AND status = $2
	`
	result, err := s.db.ExecContext(ctx, query,
		sub.ID, string(expected),
		string(sub.Units), string(sub.Theory), pq.Array(sub.Assumptions), pq.Array(sub.Evidence),
		string(sub.Animation.Status), sub.Animation.Path, string(sub.Image.Status), sub.Image.Path,
		string(sub.Status), sub.HeuristicScore, nullInt(sub.AdvisoryScore), sub.AdvisoryRationale,
		nullInt(sub.BlendedScore), sub.ScoringDegraded, sub.PromotionOverride,
		sub.EquationID, sub.RejectReason, nullTime(sub.ScoredAt), nullTime(sub.PromotedAt),
	)
	if err != nil {
		return fmt.Errorf("update submission: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update submission: %w", err)
	}
	if affected == 1 {
		return nil
	}

	var exists bool
	err = s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM submissions WHERE id = $1)`, sub.ID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check submission exists: %w", err)
	}
	if !exists {
		return sentinel.ErrNotFound
	}
	return sentinel.ErrConflict
}

const selectSubmission = `
	SELECT id, name, equation, description, source, submitter,
	       units, theory, assumptions, evidence,
	       animation_status, animation_path, image_status, image_path,
	       status, heuristic_score, advisory_score, advisory_rationale,
	       blended_score, scoring_degraded, promotion_override,
	       equation_id, reject_reason, created_at, scored_at, promoted_at
	FROM submissions
`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSubmission(row rowScanner) (Submission, error) {
	var (
		sub           Submission
		units, theory string
		animStatus    string
		imageStatus   string
		status        string
		advisory      sql.NullInt64
		blended       sql.NullInt64
		scoredAt      sql.NullTime
		promotedAt    sql.NullTime
	)
	err := row.Scan(
		&sub.ID, &sub.Name, &sub.Equation, &sub.Description, &sub.Source, &sub.Submitter,
		&units, &theory, pq.Array(&sub.Assumptions), pq.Array(&sub.Evidence),
		&animStatus, &sub.Animation.Path, &imageStatus, &sub.Image.Path,
		&status, &sub.HeuristicScore, &advisory, &sub.AdvisoryRationale,
		&blended, &sub.ScoringDegraded, &sub.PromotionOverride,
		&sub.EquationID, &sub.RejectReason, &sub.CreatedAt, &scoredAt, &promotedAt,
	)
	if err != nil {
		return Submission{}, err
	}
	sub.Units = UnitsVerdict(units)
	sub.Theory = TheoryVerdict(theory)
	sub.Animation.Status = ArtifactStatus(animStatus)
	sub.Image.Status = ArtifactStatus(imageStatus)
	sub.Status = Status(status)
	if advisory.Valid {
		v := int(advisory.Int64)
		sub.AdvisoryScore = &v
	}
	if blended.Valid {
		v := int(blended.Int64)
		sub.BlendedScore = &v
	}
	if scoredAt.Valid {
		t := scoredAt.Time
		sub.ScoredAt = &t
	}
	if promotedAt.Valid {
		t := promotedAt.Time
		sub.PromotedAt = &t
	}
	return sub, nil
}

func nullInt(value *int) sql.NullInt64 {
	if value == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*value), Valid: true}
}

func nullTime(value *time.Time) sql.NullTime {
	if value == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *value, Valid: true}
}
