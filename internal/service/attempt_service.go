package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/examroom/internal/config"
	"github.com/stemsi/examroom/internal/exam"
	"github.com/stemsi/examroom/internal/logger"
	"github.com/stemsi/examroom/internal/model"
	"github.com/stemsi/examroom/internal/repository"
)

// Attempt lifecycle errors.
var (
	ErrRulesNotAccepted    = errors.New("assessment rules must be accepted before starting")
	ErrAssessmentCompleted = errors.New("assessment already completed")
	ErrAssessmentNotLive   = errors.New("assessment is not open for attempts")
	ErrAttemptNotFound     = errors.New("no running attempt for this assessment")
)

const (
	// finishedRetention keeps a submitted attempt readable until the
	// completion worker has persisted its result.
	finishedRetention = 10 * time.Minute
	subscriberBuffer  = 16
	queueTimeout      = 5 * time.Second
)

type attemptKey struct {
	studentID    int
	assessmentID int64
}

type liveAttempt struct {
	id           string
	studentID    int
	assessmentID int64
	startedAt    time.Time
	attempt      *exam.Attempt

	mu      sync.Mutex
	subs    map[int]chan exam.Event
	nextSub int
}

func (la *liveAttempt) publish(ev exam.Event) {
	la.mu.Lock()
	defer la.mu.Unlock()
	for _, ch := range la.subs {
		select {
		case ch <- ev:
		default:
			// Slow subscriber; it resyncs from the next snapshot.
		}
	}
}

// AttemptServiceOption customises an AttemptService.
type AttemptServiceOption func(*AttemptService)

// WithAttemptClock replaces time.Now for start checks and attempts.
func WithAttemptClock(now func() time.Time) AttemptServiceOption {
	return func(s *AttemptService) { s.now = now }
}

// WithExamOptions appends options to every attempt the service creates.
func WithExamOptions(opts ...exam.Option) AttemptServiceOption {
	return func(s *AttemptService) { s.examOpts = append(s.examOpts, opts...) }
}

// AttemptService owns the running attempts of all students.
type AttemptService struct {
	assessments AssessmentStore
	questions   QuestionSource
	students    StudentStore
	queue       AttemptQueue
	cfg         config.ExamConfig
	log         zerolog.Logger

	baseCtx  context.Context
	now      func() time.Time
	examOpts []exam.Option

	mu       sync.Mutex
	attempts map[attemptKey]*liveAttempt
}

// NewAttemptService creates a new AttemptService. Attempts run until they
// are submitted or baseCtx is cancelled.
func NewAttemptService(
	baseCtx context.Context,
	assessments AssessmentStore,
	questions QuestionSource,
	students StudentStore,
	queue AttemptQueue,
	cfg config.ExamConfig,
	log zerolog.Logger,
	opts ...AttemptServiceOption,
) *AttemptService {
	s := &AttemptService{
		assessments: assessments,
		questions:   questions,
		students:    students,
		queue:       queue,
		cfg:         cfg,
		log:         logger.Component(log, "attempt_service"),
		baseCtx:     baseCtx,
		now:         time.Now,
		attempts:    make(map[attemptKey]*liveAttempt),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start begins an attempt, or returns the running one for the same student
// and assessment.
func (s *AttemptService) Start(ctx context.Context, studentID int, assessmentID int64, acceptRules bool) (*model.AttemptInfo, error) {
	if !acceptRules {
		return nil, ErrRulesNotAccepted
	}

	key := attemptKey{studentID: studentID, assessmentID: assessmentID}
	if la := s.lookup(key); la != nil {
		if _, done := la.attempt.Result(); done {
			return nil, ErrAssessmentCompleted
		}
		return s.info(ctx, la)
	}

	done, err := s.assessments.HasResult(ctx, studentID, assessmentID)
	if err != nil {
		return nil, fmt.Errorf("check result: %w", err)
	}
	if done {
		return nil, ErrAssessmentCompleted
	}

	a, err := s.assessments.GetByID(ctx, assessmentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrAssessmentNotFound
		}
		return nil, fmt.Errorf("get assessment: %w", err)
	}
	now := s.now()
	if now.Before(a.ScheduledAt) || !now.Before(a.EndsAt()) {
		return nil, ErrAssessmentNotLive
	}

	student, err := s.students.GetByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrStudentNotFound
		}
		return nil, fmt.Errorf("get student: %w", err)
	}

	questions, err := s.questions.Questions(ctx, assessmentID)
	if err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}

	la, err := s.build(a, student, questions, now)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if existing, ok := s.attempts[key]; ok {
		// Lost a race with a concurrent start; the unstarted attempt is dropped.
		s.mu.Unlock()
		return s.info(ctx, existing)
	}
	s.attempts[key] = la
	s.mu.Unlock()

	go s.run(la)

	s.log.Info().
		Str("attempt_id", la.id).
		Int("student_id", studentID).
		Int64("assessment_id", assessmentID).
		Int("questions", len(questions)).
		Msg("Attempt started")

	return s.info(ctx, la)
}

func (s *AttemptService) build(a *model.Assessment, student *model.Student, questions []exam.Question, now time.Time) (*liveAttempt, error) {
	la := &liveAttempt{
		id:           uuid.New().String(),
		studentID:    student.ID,
		assessmentID: a.ID,
		startedAt:    now,
		subs:         make(map[int]chan exam.Event),
	}

	duration := a.Duration()
	if duration <= 0 {
		duration = s.cfg.DefaultDuration
	}
	totalMarks := a.TotalMarks
	if totalMarks <= 0 {
		totalMarks = s.cfg.DefaultTotalMarks
	}

	attemptLog := s.log.With().
		Str("attempt_id", la.id).
		Int("student_id", student.ID).
		Int64("assessment_id", a.ID).
		Logger()

	opts := []exam.Option{
		exam.WithClock(s.now),
		exam.WithListener(func(ev exam.Event) { s.onEvent(la, ev) }),
		exam.WithCompletion(func(res exam.Result) { s.onComplete(la, res) }),
	}
	opts = append(opts, s.examOpts...)

	att, err := exam.NewAttempt(exam.Config{
		Questions:        questions,
		Duration:         duration,
		WarningSeconds:   s.cfg.WarningSeconds,
		CriticalSeconds:  s.cfg.CriticalSeconds,
		ExpectedIdentity: student.RollNumber,
		TotalMarks:       totalMarks,
		Scoring:          exam.FixedPointsPolicy{PointsPerQuestion: s.cfg.PointsPerQuestion},
		TickInterval:     s.cfg.TickInterval,
	}, attemptLog, opts...)
	if err != nil {
		return nil, fmt.Errorf("create attempt: %w", err)
	}
	la.attempt = att
	return la, nil
}

func (s *AttemptService) run(la *liveAttempt) {
	err := la.attempt.Run(s.baseCtx)
	if err != nil {
		// Abandoned on shutdown; nothing is persisted beyond the answers.
		s.remove(la)
		return
	}
	time.AfterFunc(finishedRetention, func() { s.remove(la) })
}

func (s *AttemptService) remove(la *liveAttempt) {
	key := attemptKey{studentID: la.studentID, assessmentID: la.assessmentID}
	s.mu.Lock()
	if s.attempts[key] == la {
		delete(s.attempts, key)
	}
	s.mu.Unlock()

	la.mu.Lock()
	for id, ch := range la.subs {
		close(ch)
		delete(la.subs, id)
	}
	la.mu.Unlock()
}

// onEvent runs on the attempt goroutine and must not block.
func (s *AttemptService) onEvent(la *liveAttempt, ev exam.Event) {
	if ev.Type == exam.EventAnswerChanged {
		payload := repository.AnswerPayload{
			AttemptID:    la.id,
			StudentID:    la.studentID,
			AssessmentID: la.assessmentID,
			Question:     ev.Question,
			Answer:       ev.Answer,
			ChangedAt:    s.now(),
		}
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), queueTimeout)
			defer cancel()
			if err := s.queue.PushAnswer(ctx, payload); err != nil {
				s.log.Error().Err(err).
					Str("attempt_id", la.id).
					Int("question", payload.Question).
					Msg("Queue answer failed")
			}
		}()
		return
	}
	la.publish(ev)
}

// onComplete is called once on the attempt goroutine when it succeeds.
func (s *AttemptService) onComplete(la *liveAttempt, res exam.Result) {
	ctx, cancel := context.WithTimeout(context.Background(), queueTimeout)
	defer cancel()

	err := s.queue.PushCompletion(ctx, repository.CompletionPayload{
		AttemptID:    la.id,
		StudentID:    la.studentID,
		AssessmentID: la.assessmentID,
		Score:        res.Score,
		TotalMarks:   res.TotalMarks,
		Answered:     res.Answered,
		Reason:       res.Reason,
		SubmittedAt:  res.SubmittedAt,
	})
	if err != nil {
		s.log.Error().Err(err).Str("attempt_id", la.id).Msg("Queue completion failed")
	}
}

func (s *AttemptService) lookup(key attemptKey) *liveAttempt {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attempts[key]
}

func (s *AttemptService) get(studentID int, assessmentID int64) (*liveAttempt, error) {
	la := s.lookup(attemptKey{studentID: studentID, assessmentID: assessmentID})
	if la == nil {
		return nil, ErrAttemptNotFound
	}
	return la, nil
}

func (s *AttemptService) info(ctx context.Context, la *liveAttempt) (*model.AttemptInfo, error) {
	snap, err := la.attempt.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return &model.AttemptInfo{
		AttemptID:    la.id,
		AssessmentID: la.assessmentID,
		StartedAt:    la.startedAt,
		Snapshot:     snap,
	}, nil
}

// Snapshot returns the combined view of a student's attempt.
func (s *AttemptService) Snapshot(ctx context.Context, studentID int, assessmentID int64) (*model.AttemptInfo, error) {
	la, err := s.get(studentID, assessmentID)
	if err != nil {
		return nil, err
	}
	return s.info(ctx, la)
}

// Dispatch forwards an intent to the student's attempt. The returned
// snapshot is valid even when err is a domain rejection.
func (s *AttemptService) Dispatch(ctx context.Context, studentID int, assessmentID int64, in exam.Intent) (exam.Snapshot, error) {
	la, err := s.get(studentID, assessmentID)
	if err != nil {
		return exam.Snapshot{}, err
	}
	return la.attempt.Dispatch(ctx, in)
}

// Subscription streams events from one attempt.
type Subscription struct {
	// Events is closed when the attempt leaves the registry.
	Events <-chan exam.Event
	// Done is closed when the attempt's event loop exits.
	Done   <-chan struct{}
	cancel func()
}

// Close stops delivery.
func (sub *Subscription) Close() { sub.cancel() }

// Subscribe registers for timer and completion events of a student's attempt.
func (s *AttemptService) Subscribe(studentID int, assessmentID int64) (*Subscription, error) {
	la, err := s.get(studentID, assessmentID)
	if err != nil {
		return nil, err
	}

	ch := make(chan exam.Event, subscriberBuffer)
	la.mu.Lock()
	id := la.nextSub
	la.nextSub++
	la.subs[id] = ch
	la.mu.Unlock()

	var once sync.Once
	return &Subscription{
		Events: ch,
		Done:   la.attempt.Done(),
		cancel: func() {
			once.Do(func() {
				la.mu.Lock()
				if c, ok := la.subs[id]; ok {
					close(c)
					delete(la.subs, id)
				}
				la.mu.Unlock()
			})
		},
	}, nil
}

// Active returns the number of attempts in the registry.
func (s *AttemptService) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.attempts)
}
