package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/examroom/internal/model"
)

var ErrDuplicateRollNumber = errors.New("student with this roll number already exists")

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("record not found")

const studentColumns = `id, roll_number, name, email, department, semester, batch, password_hash, created_at, updated_at`

// StudentRepository handles student data access.
type StudentRepository struct {
	pool *pgxpool.Pool
}

// NewStudentRepository creates a new StudentRepository.
func NewStudentRepository(pool *pgxpool.Pool) *StudentRepository {
	return &StudentRepository{pool: pool}
}

func scanStudent(row pgx.Row) (*model.Student, error) {
	s := &model.Student{}
	err := row.Scan(&s.ID, &s.RollNumber, &s.Name, &s.Email, &s.Department, &s.Semester, &s.Batch, &s.PasswordHash, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return s, nil
}

// GetByID retrieves a student by ID.
func (r *StudentRepository) GetByID(ctx context.Context, id int) (*model.Student, error) {
	return scanStudent(r.pool.QueryRow(ctx,
		`SELECT `+studentColumns+` FROM students WHERE id = $1`, id,
	))
}

// GetByRollNumber retrieves a student by their unique roll number.
func (r *StudentRepository) GetByRollNumber(ctx context.Context, rollNumber string) (*model.Student, error) {
	return scanStudent(r.pool.QueryRow(ctx,
		`SELECT `+studentColumns+` FROM students WHERE roll_number = $1`, rollNumber,
	))
}

// Create inserts a new student.
func (r *StudentRepository) Create(ctx context.Context, s *model.Student) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO students (roll_number, name, email, department, semester, batch, password_hash)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id, created_at, updated_at`,
		s.RollNumber, s.Name, s.Email, s.Department, s.Semester, s.Batch, s.PasswordHash,
	).Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateRollNumber
		}
		return err
	}
	return nil
}

// UpsertByRollNumber inserts or refreshes a student keyed on roll number.
// Used by the seeder so it can be re-run.
func (r *StudentRepository) UpsertByRollNumber(ctx context.Context, s *model.Student) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO students (roll_number, name, email, department, semester, batch, password_hash)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (roll_number) DO UPDATE
		 SET name = EXCLUDED.name,
		     email = EXCLUDED.email,
		     department = EXCLUDED.department,
		     semester = EXCLUDED.semester,
		     batch = EXCLUDED.batch,
		     password_hash = EXCLUDED.password_hash,
		     updated_at = NOW()
		 RETURNING id, created_at, updated_at`,
		s.RollNumber, s.Name, s.Email, s.Department, s.Semester, s.Batch, s.PasswordHash,
	).Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
}
