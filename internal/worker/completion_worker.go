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
	"github.com/stemsi/examroom/internal/model"
	"github.com/stemsi/examroom/internal/repository"
)

const (
	CompletionBatchSize    = 50
	CompletionBatchTimeout = 2 * time.Second
	CompletionPollTimeout  = 1 * time.Second
)

// ResultWriter stores a single result. Used when the batch insert fails.
type ResultWriter interface {
	InsertResult(ctx context.Context, res *model.AssessmentResult) error
}

// CompletionWorker consumes persist_completions_queue and records results
// in batches.
type CompletionWorker struct {
	pool    *pgxpool.Pool
	rdb     *redis.Client
	results ResultWriter
	log     zerolog.Logger
}

func NewCompletionWorker(pool *pgxpool.Pool, rdb *redis.Client, results ResultWriter, log zerolog.Logger) *CompletionWorker {
	return &CompletionWorker{
		pool:    pool,
		rdb:     rdb,
		results: results,
		log:     logger.Component(log, "completion_worker"),
	}
}

// ----------------------------------------------------------------
// Worker loop with batching
// ----------------------------------------------------------------

func (w *CompletionWorker) Start(ctx context.Context) {
	w.log.Info().Msg("CompletionWorker started")

	batch := make([]*repository.CompletionPayload, 0, CompletionBatchSize)
	lastFlush := time.Now()

	for {
		// Should flush?
		if len(batch) > 0 &&
			(len(batch) >= CompletionBatchSize || time.Since(lastFlush) >= CompletionBatchTimeout) {

			w.flushSafe(ctx, batch)
			batch = batch[:0]
			lastFlush = time.Now()
		}

		select {
		case <-ctx.Done():
			w.log.Info().Msg("Shutdown requested. Flushing remaining batch...")
			w.flushSafe(context.Background(), batch)
			w.drain(context.Background())
			return

		default:
			item, err := w.rdb.BLPop(ctx, CompletionPollTimeout, config.WorkerKey.PersistCompletionsQueue).Result()
			if err != nil {
				if !errors.Is(err, redis.Nil) && ctx.Err() == nil {
					w.log.Error().Err(err).Msg("BLPop error")
				}
				continue
			}

			if len(item) < 2 {
				continue
			}

			p, err := decodeCompletion(item[1])
			if err != nil {
				w.log.Error().Err(err).Msg("Invalid completion payload")
				continue
			}

			batch = append(batch, p)
		}
	}
}

func decodeCompletion(raw string) (*repository.CompletionPayload, error) {
	var p repository.CompletionPayload
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return nil, fmt.Errorf("unmarshal: %w", err)
	}
	if _, err := uuid.Parse(p.AttemptID); err != nil {
		return nil, fmt.Errorf("attempt id: %w", err)
	}
	if p.StudentID <= 0 || p.AssessmentID <= 0 {
		return nil, fmt.Errorf("invalid result key %d/%d", p.StudentID, p.AssessmentID)
	}
	return &p, nil
}

// drain persists whatever is still queued at shutdown.
func (w *CompletionWorker) drain(ctx context.Context) {
	var batch []*repository.CompletionPayload
	for {
		raw, err := w.rdb.LPop(ctx, config.WorkerKey.PersistCompletionsQueue).Result()
		if err != nil {
			break
		}
		p, err := decodeCompletion(raw)
		if err != nil {
			w.log.Error().Err(err).Msg("Drain decode error")
			continue
		}
		batch = append(batch, p)
	}
	if len(batch) > 0 {
		w.flushSafe(ctx, batch)
		w.log.Info().Int("count", len(batch)).Msg("Drained remaining items")
	}
}

// ----------------------------------------------------------------
// Batch insert wrapper
// ----------------------------------------------------------------

func (w *CompletionWorker) flushSafe(ctx context.Context, batch []*repository.CompletionPayload) {
	if len(batch) == 0 {
		return
	}

	if err := w.bulkInsertResults(ctx, batch); err != nil {
		w.log.Warn().Err(err).Msg("bulk result insert failed, using fallback")

		for _, p := range batch {
			if err := w.results.InsertResult(ctx, toResult(p)); err != nil {
				w.log.Error().Err(err).
					Int("student_id", p.StudentID).
					Int64("assessment_id", p.AssessmentID).
					Msg("InsertResult failed, requeueing")
				raw, _ := json.Marshal(p)
				w.rdb.RPush(ctx, config.WorkerKey.PersistCompletionsQueue, raw)
			}
		}
	}
}

// ----------------------------------------------------------------
// BULK PostgreSQL INSERT using UNNEST
// ----------------------------------------------------------------

type resultColumns struct {
	assessmentIDs []int64
	studentIDs    []int
	attemptIDs    []uuid.UUID
	scores        []int
	totals        []int
	answered      []int
	reasons       []string
	submittedAts  []time.Time
}

func columnsFor(batch []*repository.CompletionPayload) (*resultColumns, error) {
	n := len(batch)
	cols := &resultColumns{
		assessmentIDs: make([]int64, 0, n),
		studentIDs:    make([]int, 0, n),
		attemptIDs:    make([]uuid.UUID, 0, n),
		scores:        make([]int, 0, n),
		totals:        make([]int, 0, n),
		answered:      make([]int, 0, n),
		reasons:       make([]string, 0, n),
		submittedAts:  make([]time.Time, 0, n),
	}
	for _, p := range batch {
		id, err := uuid.Parse(p.AttemptID)
		if err != nil {
			return nil, err
		}
		cols.assessmentIDs = append(cols.assessmentIDs, p.AssessmentID)
		cols.studentIDs = append(cols.studentIDs, p.StudentID)
		cols.attemptIDs = append(cols.attemptIDs, id)
		cols.scores = append(cols.scores, p.Score)
		cols.totals = append(cols.totals, p.TotalMarks)
		cols.answered = append(cols.answered, p.Answered)
		cols.reasons = append(cols.reasons, string(p.Reason))
		cols.submittedAts = append(cols.submittedAts, p.SubmittedAt)
	}
	return cols, nil
}

func (w *CompletionWorker) bulkInsertResults(ctx context.Context, batch []*repository.CompletionPayload) error {
	cols, err := columnsFor(batch)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO assessment_results
			(assessment_id, student_id, attempt_id, score, total_marks, answered, reason, submitted_at)
		SELECT u.assessment_id, u.student_id, u.attempt_id, u.score, u.total_marks, u.answered, u.reason, u.submitted_at
		FROM UNNEST(
			$1::bigint[],
			$2::int[],
			$3::uuid[],
			$4::int[],
			$5::int[],
			$6::int[],
			$7::text[],
			$8::timestamptz[]
		) AS u (assessment_id, student_id, attempt_id, score, total_marks, answered, reason, submitted_at)
		ON CONFLICT (student_id, assessment_id) DO NOTHING
	`

	_, err = w.pool.Exec(ctx, query,
		cols.assessmentIDs, cols.studentIDs, cols.attemptIDs, cols.scores,
		cols.totals, cols.answered, cols.reasons, cols.submittedAts,
	)
	return err
}

func toResult(p *repository.CompletionPayload) *model.AssessmentResult {
	return &model.AssessmentResult{
		AssessmentID: p.AssessmentID,
		StudentID:    p.StudentID,
		AttemptID:    p.AttemptID,
		Score:        p.Score,
		TotalMarks:   p.TotalMarks,
		Answered:     p.Answered,
		Reason:       p.Reason,
		SubmittedAt:  p.SubmittedAt,
	}
}
