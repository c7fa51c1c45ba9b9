package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/examroom/internal/config"
	"github.com/stemsi/examroom/internal/logger"
	"github.com/stemsi/examroom/internal/repository"
)

const (
	AnswerPollTimeout = 1 * time.Second
	answerRetryDelay  = 5 * time.Second
)

// AnswerWorker consumes persist_answers_queue and UPSERTs answers to PostgreSQL.
type AnswerWorker struct {
	pool *pgxpool.Pool
	rdb  *redis.Client
	log  zerolog.Logger
}

// NewAnswerWorker creates a new AnswerWorker.
func NewAnswerWorker(pool *pgxpool.Pool, rdb *redis.Client, log zerolog.Logger) *AnswerWorker {
	return &AnswerWorker{
		pool: pool,
		rdb:  rdb,
		log:  logger.Component(log, "answer_worker"),
	}
}

// Start begins the infinite worker loop. Call in a goroutine.
func (w *AnswerWorker) Start(ctx context.Context) {
	w.log.Info().Msg("Worker started")

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Worker stopping...")
			// Drain remaining items before exit.
			w.drain(context.Background())
			w.log.Info().Msg("Worker stopped")
			return
		default:
			w.processNext(ctx)
		}
	}
}

func (w *AnswerWorker) processNext(ctx context.Context) {
	// BLPop blocks until an item is available or timeout.
	result, err := w.rdb.BLPop(ctx, AnswerPollTimeout, config.WorkerKey.PersistAnswersQueue).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) && ctx.Err() == nil {
			w.log.Error().Err(err).Msg("BLPop error")
		}
		return
	}

	if len(result) < 2 {
		return
	}

	p, err := decodeAnswer(result[1])
	if err != nil {
		w.log.Error().Err(err).Msg("Dropping malformed answer payload")
		return
	}

	if err := w.persistAnswer(ctx, p); err != nil {
		w.log.Error().Err(err).
			Int("student_id", p.StudentID).
			Int64("assessment_id", p.AssessmentID).
			Msg("Persist error, retrying in 5s")
		// Push back to queue for retry.
		w.rdb.RPush(context.Background(), config.WorkerKey.PersistAnswersQueue, result[1])
		select {
		case <-time.After(answerRetryDelay):
		case <-ctx.Done():
		}
	}
}

// decodeAnswer parses and checks one queued answer change.
func decodeAnswer(raw string) (*repository.AnswerPayload, error) {
	var p repository.AnswerPayload
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return nil, fmt.Errorf("unmarshal: %w", err)
	}
	if _, err := uuid.Parse(p.AttemptID); err != nil {
		return nil, fmt.Errorf("attempt id: %w", err)
	}
	if p.StudentID <= 0 || p.AssessmentID <= 0 || p.Question < 0 {
		return nil, fmt.Errorf("invalid answer key %d/%d/%d", p.StudentID, p.AssessmentID, p.Question)
	}
	if p.ChangedAt.IsZero() {
		return nil, errors.New("missing changed_at")
	}
	return &p, nil
}

// persistAnswer upserts one answer. Older changes never overwrite newer
// ones, so requeued payloads are safe to replay.
func (w *AnswerWorker) persistAnswer(ctx context.Context, p *repository.AnswerPayload) error {
	attemptID, err := uuid.Parse(p.AttemptID)
	if err != nil {
		return err
	}

	_, err = w.pool.Exec(ctx,
		`INSERT INTO attempt_answers (student_id, assessment_id, question, attempt_id, answer, changed_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (student_id, assessment_id, question) DO UPDATE
		 SET answer = EXCLUDED.answer,
		     attempt_id = EXCLUDED.attempt_id,
		     changed_at = EXCLUDED.changed_at
		 WHERE attempt_answers.changed_at <= EXCLUDED.changed_at`,
		p.StudentID, p.AssessmentID, p.Question, attemptID, p.Answer, p.ChangedAt,
	)
	return err
}

// drain processes all remaining items in the queue before shutdown.
func (w *AnswerWorker) drain(ctx context.Context) {
	drained := 0
	for {
		result, err := w.rdb.LPop(ctx, config.WorkerKey.PersistAnswersQueue).Result()
		if err != nil {
			break
		}

		p, err := decodeAnswer(result)
		if err != nil {
			w.log.Error().Err(err).Msg("Drain decode error")
			continue
		}

		if err := w.persistAnswer(ctx, p); err != nil {
			w.log.Error().Err(err).Msg("Drain persist error")
			w.rdb.RPush(ctx, config.WorkerKey.PersistAnswersQueue, result)
			break
		}
		drained++
	}

	if drained > 0 {
		w.log.Info().Int("count", drained).Msg("Drained remaining items")
	}
}
