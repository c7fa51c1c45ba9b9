package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/examroom/internal/model"
)

const assessmentColumns = `a.id, a.title, a.subject, a.instructor, a.scheduled_at, a.duration_minutes, a.question_count, a.total_marks, a.created_at`

// AssessmentRepository handles assessment and result data access.
type AssessmentRepository struct {
	pool *pgxpool.Pool
}

// NewAssessmentRepository creates a new AssessmentRepository.
func NewAssessmentRepository(pool *pgxpool.Pool) *AssessmentRepository {
	return &AssessmentRepository{pool: pool}
}

// ListAll returns every assessment ordered by schedule.
func (r *AssessmentRepository) ListAll(ctx context.Context) ([]model.Assessment, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+assessmentColumns+` FROM assessments a ORDER BY a.scheduled_at, a.id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Assessment
	for rows.Next() {
		var a model.Assessment
		if err := rows.Scan(&a.ID, &a.Title, &a.Subject, &a.Instructor, &a.ScheduledAt, &a.DurationMinutes, &a.QuestionCount, &a.TotalMarks, &a.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// GetByID retrieves a single assessment.
func (r *AssessmentRepository) GetByID(ctx context.Context, id int64) (*model.Assessment, error) {
	a := &model.Assessment{}
	err := r.pool.QueryRow(ctx,
		`SELECT `+assessmentColumns+` FROM assessments a WHERE a.id = $1`, id,
	).Scan(&a.ID, &a.Title, &a.Subject, &a.Instructor, &a.ScheduledAt, &a.DurationMinutes, &a.QuestionCount, &a.TotalMarks, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return a, nil
}

// Upsert inserts or replaces an assessment with a fixed id.
func (r *AssessmentRepository) Upsert(ctx context.Context, a *model.Assessment) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO assessments (id, title, subject, instructor, scheduled_at, duration_minutes, question_count, total_marks)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (id) DO UPDATE
		 SET title = EXCLUDED.title,
		     subject = EXCLUDED.subject,
		     instructor = EXCLUDED.instructor,
		     scheduled_at = EXCLUDED.scheduled_at,
		     duration_minutes = EXCLUDED.duration_minutes,
		     question_count = EXCLUDED.question_count,
		     total_marks = EXCLUDED.total_marks
		 RETURNING created_at`,
		a.ID, a.Title, a.Subject, a.Instructor, a.ScheduledAt, a.DurationMinutes, a.QuestionCount, a.TotalMarks,
	).Scan(&a.CreatedAt)
}

// ListResultsByStudent returns a student's results joined with their
// assessments, most recent submission first.
func (r *AssessmentRepository) ListResultsByStudent(ctx context.Context, studentID int) ([]model.ResultWithAssessment, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+assessmentColumns+`,
		        res.id, res.assessment_id, res.student_id, res.attempt_id::text, res.score, res.total_marks, res.answered, res.reason, res.submitted_at
		 FROM assessment_results res
		 JOIN assessments a ON a.id = res.assessment_id
		 WHERE res.student_id = $1
		 ORDER BY res.submitted_at DESC, res.id DESC`, studentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.ResultWithAssessment
	for rows.Next() {
		var ra model.ResultWithAssessment
		a, res := &ra.Assessment, &ra.Result
		if err := rows.Scan(
			&a.ID, &a.Title, &a.Subject, &a.Instructor, &a.ScheduledAt, &a.DurationMinutes, &a.QuestionCount, &a.TotalMarks, &a.CreatedAt,
			&res.ID, &res.AssessmentID, &res.StudentID, &res.AttemptID, &res.Score, &res.TotalMarks, &res.Answered, &res.Reason, &res.SubmittedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, ra)
	}
	return out, rows.Err()
}

// HasResult reports whether the student already completed the assessment.
func (r *AssessmentRepository) HasResult(ctx context.Context, studentID int, assessmentID int64) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM assessment_results WHERE student_id = $1 AND assessment_id = $2)`,
		studentID, assessmentID,
	).Scan(&exists)
	return exists, err
}

// InsertResult stores a result, ignoring duplicates for the same attempt pair.
func (r *AssessmentRepository) InsertResult(ctx context.Context, res *model.AssessmentResult) error {
	attemptID, err := uuid.Parse(res.AttemptID)
	if err != nil {
		return fmt.Errorf("attempt id: %w", err)
	}
	_, err = r.pool.Exec(ctx,
		`INSERT INTO assessment_results (assessment_id, student_id, attempt_id, score, total_marks, answered, reason, submitted_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (student_id, assessment_id) DO NOTHING`,
		res.AssessmentID, res.StudentID, attemptID, res.Score, res.TotalMarks, res.Answered, res.Reason, res.SubmittedAt,
	)
	return err
}
