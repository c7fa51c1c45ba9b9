package service

import (
	"context"

	"github.com/stemsi/examroom/internal/exam"
	"github.com/stemsi/examroom/internal/model"
	"github.com/stemsi/examroom/internal/repository"
)

// StudentStore is the student data the services read.
type StudentStore interface {
	GetByID(ctx context.Context, id int) (*model.Student, error)
	GetByRollNumber(ctx context.Context, rollNumber string) (*model.Student, error)
	Create(ctx context.Context, s *model.Student) error
}

// AssessmentStore is the assessment and result data the services read.
type AssessmentStore interface {
	ListAll(ctx context.Context) ([]model.Assessment, error)
	GetByID(ctx context.Context, id int64) (*model.Assessment, error)
	ListResultsByStudent(ctx context.Context, studentID int) ([]model.ResultWithAssessment, error)
	HasResult(ctx context.Context, studentID int, assessmentID int64) (bool, error)
}

// QuestionStore loads question sets.
type QuestionStore interface {
	ListByAssessment(ctx context.Context, assessmentID int64) ([]exam.Question, error)
}

// QuestionSource resolves the question set for an attempt.
type QuestionSource interface {
	Questions(ctx context.Context, assessmentID int64) ([]exam.Question, error)
}

// PreferenceStore persists student preferences.
type PreferenceStore interface {
	Get(ctx context.Context, studentID int) (model.Preferences, bool, error)
	Save(ctx context.Context, studentID int, prefs model.Preferences) error
}

// AttemptQueue hands attempt changes to the persistence workers.
type AttemptQueue interface {
	PushAnswer(ctx context.Context, p repository.AnswerPayload) error
	PushCompletion(ctx context.Context, p repository.CompletionPayload) error
}

var (
	_ StudentStore    = (*repository.StudentRepository)(nil)
	_ AssessmentStore = (*repository.AssessmentRepository)(nil)
	_ QuestionStore   = (*repository.QuestionRepository)(nil)
	_ PreferenceStore = (*repository.PreferenceRepository)(nil)
	_ AttemptQueue    = (*repository.QueueRepository)(nil)
	_ QuestionSource  = (*AssessmentService)(nil)
)
