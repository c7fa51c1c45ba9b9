package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/examroom/internal/config"
	"github.com/stemsi/examroom/internal/exam"
	"github.com/stemsi/examroom/internal/logger"
	"github.com/stemsi/examroom/internal/model"
	"github.com/stemsi/examroom/internal/repository"
)

// ErrAssessmentNotFound is returned for unknown assessment ids.
var ErrAssessmentNotFound = errors.New("assessment not found")

const paperCacheTTL = 24 * time.Hour

// AssessmentService serves question papers, cached in Redis.
type AssessmentService struct {
	assessmentRepo AssessmentStore
	questionRepo   QuestionStore
	rdb            *redis.Client
	log            zerolog.Logger
}

// NewAssessmentService creates a new AssessmentService.
func NewAssessmentService(assessmentRepo AssessmentStore, questionRepo QuestionStore, rdb *redis.Client, log zerolog.Logger) *AssessmentService {
	return &AssessmentService{
		assessmentRepo: assessmentRepo,
		questionRepo:   questionRepo,
		rdb:            rdb,
		log:            logger.Component(log, "assessment_service"),
	}
}

// GetByID retrieves an assessment.
func (s *AssessmentService) GetByID(ctx context.Context, id int64) (*model.Assessment, error) {
	a, err := s.assessmentRepo.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrAssessmentNotFound
	}
	return a, err
}

// GetBriefing returns the assessment with the rules the student must accept.
func (s *AssessmentService) GetBriefing(ctx context.Context, id int64) (*model.AssessmentBriefing, error) {
	a, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return &model.AssessmentBriefing{
		Assessment: *a,
		EndsAt:     a.EndsAt(),
		Rules:      append([]string(nil), model.AttemptRules...),
	}, nil
}

// GetPaper returns the cached paper, loading it from PostgreSQL on a miss.
func (s *AssessmentService) GetPaper(ctx context.Context, id int64) (*model.ExamPaper, error) {
	key := config.CacheKey.AssessmentPaperKey(id)
	data, err := s.rdb.Get(ctx, key).Bytes()
	if err == nil {
		var paper model.ExamPaper
		if err := json.Unmarshal(data, &paper); err == nil {
			return &paper, nil
		}
		s.log.Warn().Int64("assessment_id", id).Msg("Corrupt paper cache, reloading")
	} else if !errors.Is(err, redis.Nil) {
		s.log.Warn().Err(err).Int64("assessment_id", id).Msg("Paper cache read failed")
	}

	a, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.WarmPaperCache(ctx, a)
}

// Questions implements QuestionSource from the cached paper.
func (s *AssessmentService) Questions(ctx context.Context, id int64) ([]exam.Question, error) {
	paper, err := s.GetPaper(ctx, id)
	if err != nil {
		return nil, err
	}
	out := make([]exam.Question, 0, len(paper.Questions))
	for _, q := range paper.Questions {
		out = append(out, exam.Question{ID: q.ID, Prompt: q.Text, Options: q.Options, Marks: q.Marks})
	}
	return out, nil
}

// WarmPaperCache loads an assessment's questions and stores the paper.
func (s *AssessmentService) WarmPaperCache(ctx context.Context, a *model.Assessment) (*model.ExamPaper, error) {
	questions, err := s.questionRepo.ListByAssessment(ctx, a.ID)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	if err := exam.ValidateQuestions(questions); err != nil {
		return nil, err
	}

	paper := model.NewExamPaper(a, questions)
	raw, err := json.Marshal(paper)
	if err != nil {
		return nil, fmt.Errorf("marshal paper: %w", err)
	}
	if err := s.rdb.Set(ctx, config.CacheKey.AssessmentPaperKey(a.ID), raw, paperCacheTTL).Err(); err != nil {
		// Serve from PostgreSQL anyway; the next request retries the cache.
		s.log.Warn().Err(err).Int64("assessment_id", a.ID).Msg("Paper cache write failed")
	}

	s.log.Debug().
		Int64("assessment_id", a.ID).
		Int("questions", len(questions)).
		Msg("Cache warmed")
	return &paper, nil
}

// PrewarmAllCaches loads every assessment paper into Redis on startup.
func (s *AssessmentService) PrewarmAllCaches(ctx context.Context) error {
	assessments, err := s.assessmentRepo.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("list assessments: %w", err)
	}

	if len(assessments) == 0 {
		s.log.Info().Msg("No assessments to prewarm")
		return nil
	}

	warmed := 0
	for i := range assessments {
		if _, err := s.WarmPaperCache(ctx, &assessments[i]); err != nil {
			s.log.Warn().
				Err(err).
				Int64("assessment_id", assessments[i].ID).
				Msg("Failed to warm assessment, skipping")
			continue
		}
		warmed++
	}

	s.log.Info().
		Int("warmed", warmed).
		Int("total", len(assessments)).
		Msg("Prewarming complete")
	return nil
}
