package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stemsi/examroom/internal/config"
	"github.com/stemsi/examroom/internal/exam"
)

// AnswerPayload is one answer change queued for persistence. A nil Answer
// means the answer was cleared.
type AnswerPayload struct {
	AttemptID    string    `json:"attempt_id"`
	StudentID    int       `json:"student_id"`
	AssessmentID int64     `json:"assessment_id"`
	Question     int       `json:"question"`
	Answer       *int      `json:"answer"`
	ChangedAt    time.Time `json:"changed_at"`
}

// CompletionPayload is one finished attempt queued for persistence.
type CompletionPayload struct {
	AttemptID    string                `json:"attempt_id"`
	StudentID    int                   `json:"student_id"`
	AssessmentID int64                 `json:"assessment_id"`
	Score        int                   `json:"score"`
	TotalMarks   int                   `json:"total_marks"`
	Answered     int                   `json:"answered"`
	Reason       exam.CompletionReason `json:"reason"`
	SubmittedAt  time.Time             `json:"submitted_at"`
}

// QueueRepository feeds the persistence workers through Redis lists.
type QueueRepository struct {
	rdb *redis.Client
}

// NewQueueRepository creates a new QueueRepository.
func NewQueueRepository(rdb *redis.Client) *QueueRepository {
	return &QueueRepository{rdb: rdb}
}

// PushAnswer queues an answer change. Ordering across pushes is not
// guaranteed; the worker keeps the newest ChangedAt per question.
func (r *QueueRepository) PushAnswer(ctx context.Context, p AnswerPayload) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal answer: %w", err)
	}
	return r.rdb.RPush(ctx, config.WorkerKey.PersistAnswersQueue, raw).Err()
}

// PushCompletion queues a finished attempt.
func (r *QueueRepository) PushCompletion(ctx context.Context, p CompletionPayload) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal completion: %w", err)
	}
	return r.rdb.RPush(ctx, config.WorkerKey.PersistCompletionsQueue, raw).Err()
}
