package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/examroom/internal/exam"
)

// QuestionRepository handles question data access.
type QuestionRepository struct {
	pool *pgxpool.Pool
}

// NewQuestionRepository creates a new QuestionRepository.
func NewQuestionRepository(pool *pgxpool.Pool) *QuestionRepository {
	return &QuestionRepository{pool: pool}
}

// ListByAssessment returns an assessment's questions in position order.
// Options are stored as a JSONB array.
func (r *QuestionRepository) ListByAssessment(ctx context.Context, assessmentID int64) ([]exam.Question, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT position, prompt, options, marks
		 FROM questions
		 WHERE assessment_id = $1
		 ORDER BY position`, assessmentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []exam.Question
	for rows.Next() {
		var q exam.Question
		if err := rows.Scan(&q.ID, &q.Prompt, &q.Options, &q.Marks); err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

// ReplaceForAssessment swaps the question set of an assessment in one transaction.
func (r *QuestionRepository) ReplaceForAssessment(ctx context.Context, assessmentID int64, questions []exam.Question) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM questions WHERE assessment_id = $1`, assessmentID); err != nil {
		return fmt.Errorf("delete questions: %w", err)
	}

	_, err = tx.CopyFrom(
		ctx,
		pgx.Identifier{"questions"},
		[]string{"assessment_id", "position", "prompt", "options", "marks"},
		pgx.CopyFromSlice(len(questions), func(i int) ([]interface{}, error) {
			q := questions[i]
			return []interface{}{assessmentID, q.ID, q.Prompt, q.Options, q.Marks}, nil
		}),
	)
	if err != nil {
		return fmt.Errorf("copy questions: %w", err)
	}

	return tx.Commit(ctx)
}
