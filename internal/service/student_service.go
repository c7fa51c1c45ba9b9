package service

import (
	"context"
	"errors"

	"github.com/stemsi/examroom/internal/model"
	"github.com/stemsi/examroom/internal/repository"
)

// ErrStudentNotFound is returned when no student matches a lookup.
var ErrStudentNotFound = errors.New("student not found")

// StudentService handles student business logic.
type StudentService struct {
	studentRepo StudentStore
	bcryptCost  int
}

// NewStudentService creates a new StudentService.
func NewStudentService(studentRepo StudentStore, bcryptCost int) *StudentService {
	return &StudentService{studentRepo: studentRepo, bcryptCost: bcryptCost}
}

// GetByRollNumber retrieves a student by their roll number.
func (s *StudentService) GetByRollNumber(ctx context.Context, rollNumber string) (*model.Student, error) {
	st, err := s.studentRepo.GetByRollNumber(ctx, rollNumber)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrStudentNotFound
	}
	return st, err
}

// GetByID retrieves a student by ID.
func (s *StudentService) GetByID(ctx context.Context, id int) (*model.Student, error) {
	st, err := s.studentRepo.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrStudentNotFound
	}
	return st, err
}

// Create inserts a new student, hashing the plaintext password.
func (s *StudentService) Create(ctx context.Context, req *model.CreateStudentRequest) (*model.Student, error) {
	hashed, err := HashPassword(req.Password, s.bcryptCost)
	if err != nil {
		return nil, err
	}
	student := &model.Student{
		RollNumber:   req.RollNumber,
		Name:         req.Name,
		Email:        req.Email,
		Department:   req.Department,
		Semester:     req.Semester,
		Batch:        req.Batch,
		PasswordHash: hashed,
	}
	if err := s.studentRepo.Create(ctx, student); err != nil {
		return nil, err
	}
	return student, nil
}
