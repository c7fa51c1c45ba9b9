package exam

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Attempt errors.
var (
	ErrClosed        = errors.New("attempt is closed")
	ErrUnknownIntent = errors.New("unknown intent")
)

// CurrentQuestion in an Intent targets whichever question is on screen.
const CurrentQuestion = -1

// IntentKind names a user action forwarded into an attempt.
type IntentKind string

const (
	IntentSelect         IntentKind = "select"
	IntentClear          IntentKind = "clear"
	IntentToggleMark     IntentKind = "toggle_mark"
	IntentGoTo           IntentKind = "goto"
	IntentPrev           IntentKind = "prev"
	IntentNext           IntentKind = "next"
	IntentRequestSubmit  IntentKind = "request_submit"
	IntentCancelSubmit   IntentKind = "cancel_submit"
	IntentConfirmSubmit  IntentKind = "confirm_submit"
	IntentIdentity       IntentKind = "identity"
	IntentCancelIdentity IntentKind = "cancel_identity"
	IntentSnapshot       IntentKind = "snapshot"
)

// Intent is one user action. Question, Option, Target and Identity are read
// only by the kinds that need them.
type Intent struct {
	Kind     IntentKind `json:"kind"`
	Question int        `json:"question"`
	Option   int        `json:"option"`
	Target   int        `json:"target"`
	Identity string     `json:"identity"`
}

// Mutates reports whether the intent changes session state.
func (i Intent) Mutates() bool { return i.Kind != IntentSnapshot }

// EventType names a notification published by a running attempt.
type EventType string

const (
	EventWarning       EventType = "warning"
	EventCritical      EventType = "critical"
	EventExpired       EventType = "expired"
	EventAnswerChanged EventType = "answer_changed"
	EventCompleted     EventType = "completed"
)

// Event is delivered to listeners on the attempt goroutine. Listeners must
// not block.
type Event struct {
	Type      EventType `json:"type"`
	Remaining int       `json:"remaining"`
	Question  int       `json:"question,omitempty"`
	Answer    *int      `json:"answer,omitempty"`
	Result    *Result   `json:"result,omitempty"`
}

// Result is reported exactly once when an attempt reaches Succeeded.
type Result struct {
	Score       int              `json:"score"`
	TotalMarks  int              `json:"total_marks"`
	Answered    int              `json:"answered"`
	Questions   int              `json:"questions"`
	Reason      CompletionReason `json:"reason"`
	SubmittedAt time.Time        `json:"submitted_at"`
}

// TimerSnapshot is the countdown part of a Snapshot.
type TimerSnapshot struct {
	Remaining int    `json:"remaining"`
	Formatted string `json:"formatted"`
	Running   bool   `json:"running"`
}

// SubmissionSnapshot is the dialog part of a Snapshot.
type SubmissionSnapshot struct {
	State         SubmissionState `json:"state"`
	IdentityError bool            `json:"identity_error"`
}

// Snapshot is the full read-only view of an attempt.
type Snapshot struct {
	Session    SessionSnapshot    `json:"session"`
	Timer      TimerSnapshot      `json:"timer"`
	Submission SubmissionSnapshot `json:"submission"`
	Result     *Result            `json:"result,omitempty"`
}

// Config describes a single attempt.
type Config struct {
	Questions        []Question
	Duration         time.Duration
	WarningSeconds   int
	CriticalSeconds  int
	ExpectedIdentity string
	// TotalMarks defaults to the sum of question marks when zero.
	TotalMarks   int
	Scoring      ScoringPolicy
	TickInterval time.Duration
}

// Option customises an Attempt.
type Option func(*Attempt)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(a *Attempt) { a.now = now }
}

// WithTicks feeds the event loop from ticks instead of an internal ticker.
func WithTicks(ticks <-chan time.Time) Option {
	return func(a *Attempt) { a.ticks = ticks }
}

// WithListener registers a callback for every published event.
func WithListener(fn func(Event)) Option {
	return func(a *Attempt) { a.listeners = append(a.listeners, fn) }
}

// WithCompletion registers the callback invoked once at Succeeded.
func WithCompletion(fn func(Result)) Option {
	return func(a *Attempt) { a.onComplete = fn }
}

type request struct {
	intent Intent
	reply  chan reply
}

type reply struct {
	snap Snapshot
	err  error
}

// Attempt owns a Session, Timer and Workflow and serialises user intents and
// timer ticks on one event loop.
type Attempt struct {
	session      *Session
	timer        *Timer
	flow         *Workflow
	scoring      ScoringPolicy
	totalMarks   int
	tickInterval time.Duration

	now        func() time.Time
	ticks      <-chan time.Time
	listeners  []func(Event)
	onComplete func(Result)
	log        zerolog.Logger

	requests chan request
	done     chan struct{}
	lastTick time.Time

	mu     sync.RWMutex
	final  Snapshot
	result *Result
}

// NewAttempt validates cfg and builds an attempt. The countdown starts at
// construction time; call Run to begin processing.
func NewAttempt(cfg Config, log zerolog.Logger, opts ...Option) (*Attempt, error) {
	session, err := NewSession(cfg.Questions)
	if err != nil {
		return nil, err
	}

	warn, crit := cfg.WarningSeconds, cfg.CriticalSeconds
	if warn == 0 {
		warn = DefaultWarningSeconds
	}
	if crit == 0 {
		crit = DefaultCriticalSeconds
	}
	timer, err := NewTimer(int(cfg.Duration/time.Second), warn, crit)
	if err != nil {
		return nil, fmt.Errorf("create timer: %w", err)
	}

	a := &Attempt{
		session:      session,
		timer:        timer,
		flow:         NewWorkflow(cfg.ExpectedIdentity),
		scoring:      cfg.Scoring,
		totalMarks:   cfg.TotalMarks,
		tickInterval: cfg.TickInterval,
		now:          time.Now,
		log:          log,
		requests:     make(chan request),
		done:         make(chan struct{}),
	}
	if a.scoring == nil {
		a.scoring = FixedPointsPolicy{PointsPerQuestion: 2}
	}
	if a.totalMarks <= 0 {
		a.totalMarks = TotalMarks(cfg.Questions)
	}
	if a.tickInterval <= 0 {
		a.tickInterval = time.Second
	}
	for _, opt := range opts {
		opt(a)
	}
	a.lastTick = a.now()
	return a, nil
}

// Done is closed when the event loop has exited.
func (a *Attempt) Done() <-chan struct{} { return a.done }

// Result returns the completion result once the attempt has succeeded.
func (a *Attempt) Result() (Result, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.result == nil {
		return Result{}, false
	}
	return *a.result, true
}

// Run processes intents and ticks until the attempt succeeds or ctx is done.
func (a *Attempt) Run(ctx context.Context) error {
	ticks := a.ticks
	if ticks == nil {
		ticker := time.NewTicker(a.tickInterval)
		defer ticker.Stop()
		ticks = ticker.C
	}
	defer a.close()

	for {
		select {
		case <-ctx.Done():
			a.log.Info().Int("remaining", a.timer.Remaining()).Msg("Attempt abandoned")
			return ctx.Err()
		case req := <-a.requests:
			snap, err := a.apply(req.intent)
			req.reply <- reply{snap: snap, err: err}
		case <-ticks:
			a.tick()
		}
		if a.flow.Done() {
			return nil
		}
	}
}

// Dispatch forwards an intent to the event loop and waits for the resulting
// snapshot. After the loop has exited only IntentSnapshot succeeds.
func (a *Attempt) Dispatch(ctx context.Context, in Intent) (Snapshot, error) {
	req := request{intent: in, reply: make(chan reply, 1)}
	select {
	case a.requests <- req:
	case <-a.done:
		return a.afterDone(in)
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	}

	select {
	case r := <-req.reply:
		return r.snap, r.err
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	}
}

// Snapshot returns the current view of the attempt.
func (a *Attempt) Snapshot(ctx context.Context) (Snapshot, error) {
	return a.Dispatch(ctx, Intent{Kind: IntentSnapshot})
}

func (a *Attempt) afterDone(in Intent) (Snapshot, error) {
	a.mu.RLock()
	snap, finished := a.final, a.result != nil
	a.mu.RUnlock()

	if !in.Mutates() {
		return snap, nil
	}
	if !finished {
		return snap, ErrClosed
	}
	a.log.Warn().Str("intent", string(in.Kind)).Msg("Intent rejected after submission")
	return snap, ErrTerminal
}

func (a *Attempt) apply(in Intent) (Snapshot, error) {
	var err error
	question := in.Question
	if question == CurrentQuestion {
		question = a.session.Current()
	}

	switch in.Kind {
	case IntentSnapshot:
	case IntentSelect:
		if err = a.session.SelectOption(question, in.Option); err == nil {
			opt := in.Option
			a.emit(Event{Type: EventAnswerChanged, Question: question, Answer: &opt})
		}
	case IntentClear:
		if err = a.session.ClearAnswer(question); err == nil {
			a.emit(Event{Type: EventAnswerChanged, Question: question})
		}
	case IntentToggleMark:
		_, err = a.session.ToggleMark(question)
	case IntentGoTo:
		err = a.session.GoTo(in.Target)
	case IntentPrev:
		err = a.session.Prev()
	case IntentNext:
		err = a.session.Next()
	case IntentRequestSubmit:
		err = a.flow.RequestSubmit()
	case IntentCancelSubmit, IntentCancelIdentity:
		err = a.flow.Cancel()
	case IntentConfirmSubmit:
		err = a.flow.Confirm()
	case IntentIdentity:
		if err = a.flow.SubmitIdentity(in.Identity); err == nil {
			a.finish()
		}
	default:
		err = fmt.Errorf("%w %q", ErrUnknownIntent, in.Kind)
	}

	if errors.Is(err, ErrTerminal) {
		a.log.Warn().Str("intent", string(in.Kind)).Msg("Intent rejected after submission")
	}
	return a.snapshot(), err
}

// tick converts wall-clock time since the last observed second into timer
// progress, so a delayed tick catches up in one step.
func (a *Attempt) tick() {
	now := a.now()
	elapsed := int(now.Sub(a.lastTick) / time.Second)
	if elapsed <= 0 {
		return
	}
	a.lastTick = a.lastTick.Add(time.Duration(elapsed) * time.Second)

	for _, ev := range a.timer.Advance(elapsed) {
		a.emit(Event{Type: EventType(ev), Remaining: a.timer.Remaining()})
		if ev == TimerExpired && a.flow.Expire() {
			a.finish()
		}
	}
}

// finish is called exactly once, when the workflow enters Succeeded.
func (a *Attempt) finish() {
	a.timer.Stop()
	a.session.Finalize()

	res := Result{
		Score:       a.scoring.Score(a.session, a.totalMarks),
		TotalMarks:  a.totalMarks,
		Answered:    a.session.AnsweredCount(),
		Questions:   a.session.QuestionCount(),
		Reason:      a.flow.Reason(),
		SubmittedAt: a.now(),
	}

	a.mu.Lock()
	a.result = &res
	a.mu.Unlock()

	a.log.Info().
		Int("score", res.Score).
		Int("total_marks", res.TotalMarks).
		Int("answered", res.Answered).
		Str("reason", string(res.Reason)).
		Msg("Attempt submitted")

	a.emit(Event{Type: EventCompleted, Remaining: a.timer.Remaining(), Result: &res})
	if a.onComplete != nil {
		a.onComplete(res)
	}
}

func (a *Attempt) emit(ev Event) {
	for _, fn := range a.listeners {
		fn(ev)
	}
}

func (a *Attempt) snapshot() Snapshot {
	snap := Snapshot{
		Session: a.session.Snapshot(),
		Timer: TimerSnapshot{
			Remaining: a.timer.Remaining(),
			Formatted: FormatRemaining(a.timer.Remaining()),
			Running:   a.timer.Running(),
		},
		Submission: SubmissionSnapshot{
			State:         a.flow.State(),
			IdentityError: a.flow.IdentityError(),
		},
	}
	a.mu.RLock()
	if a.result != nil {
		res := *a.result
		snap.Result = &res
	}
	a.mu.RUnlock()
	return snap
}

func (a *Attempt) close() {
	snap := a.snapshot()
	a.mu.Lock()
	a.final = snap
	a.mu.Unlock()
	close(a.done)
}
