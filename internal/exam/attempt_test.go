package exam

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	return c.now
}

type harness struct {
	attempt *Attempt
	clock   *fakeClock
	ticks   chan time.Time
	cancel  context.CancelFunc
	runErr  chan error

	mu        sync.Mutex
	events    []Event
	completes []Result
}

func newHarness(t *testing.T, cfg Config) *harness {
	t.Helper()
	h := &harness{
		clock:  &fakeClock{now: time.Date(2025, 1, 5, 9, 0, 0, 0, time.UTC)},
		ticks:  make(chan time.Time),
		runErr: make(chan error, 1),
	}

	a, err := NewAttempt(cfg, zerolog.Nop(),
		WithClock(h.clock.Now),
		WithTicks(h.ticks),
		WithListener(func(ev Event) {
			h.mu.Lock()
			h.events = append(h.events, ev)
			h.mu.Unlock()
		}),
		WithCompletion(func(res Result) {
			h.mu.Lock()
			h.completes = append(h.completes, res)
			h.mu.Unlock()
		}),
	)
	require.NoError(t, err)
	h.attempt = a

	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel
	go func() { h.runErr <- a.Run(ctx) }()
	t.Cleanup(cancel)
	return h
}

// advance moves the clock, delivers one tick and waits until the loop has
// applied it. The snapshot round trip is queued behind the tick, so events
// emitted by the tick are visible when advance returns.
func (h *harness) advance(d time.Duration) {
	h.ticks <- h.clock.Advance(d)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, _ = h.attempt.Snapshot(ctx)
}

func (h *harness) do(t *testing.T, in Intent) (Snapshot, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	return h.attempt.Dispatch(ctx, in)
}

func (h *harness) eventTypes() []EventType {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []EventType
	for _, ev := range h.events {
		if ev.Type != EventAnswerChanged {
			out = append(out, ev.Type)
		}
	}
	return out
}

func (h *harness) completions() []Result {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Result(nil), h.completes...)
}

func (h *harness) waitDone(t *testing.T) {
	t.Helper()
	select {
	case <-h.attempt.Done():
	case <-time.After(time.Second):
		t.Fatal("attempt did not finish")
	}
}

func baseConfig(n int, d time.Duration) Config {
	return Config{
		Questions:        makeQuestions(n),
		Duration:         d,
		ExpectedIdentity: "STU2025001",
		TotalMarks:       40,
		Scoring:          FixedPointsPolicy{PointsPerQuestion: 2},
	}
}

func TestAttemptManualSubmission(t *testing.T) {
	h := newHarness(t, baseConfig(20, 120*time.Minute))

	_, err := h.do(t, Intent{Kind: IntentSelect, Question: CurrentQuestion, Option: 3})
	require.NoError(t, err)
	_, err = h.do(t, Intent{Kind: IntentNext})
	require.NoError(t, err)
	_, err = h.do(t, Intent{Kind: IntentSelect, Question: 1, Option: 0})
	require.NoError(t, err)
	_, err = h.do(t, Intent{Kind: IntentToggleMark, Question: CurrentQuestion})
	require.NoError(t, err)

	snap, err := h.do(t, Intent{Kind: IntentRequestSubmit})
	require.NoError(t, err)
	assert.Equal(t, SubmissionReviewPending, snap.Submission.State)

	snap, err = h.do(t, Intent{Kind: IntentConfirmSubmit})
	require.NoError(t, err)
	assert.Equal(t, SubmissionIdentityPending, snap.Submission.State)

	snap, err = h.do(t, Intent{Kind: IntentIdentity, Identity: "STU2025009"})
	assert.ErrorIs(t, err, ErrIdentityMismatch)
	assert.True(t, snap.Submission.IdentityError)
	assert.Equal(t, SubmissionIdentityPending, snap.Submission.State)

	snap, err = h.do(t, Intent{Kind: IntentIdentity, Identity: " STU2025001 "})
	require.NoError(t, err)
	assert.Equal(t, SubmissionSucceeded, snap.Submission.State)
	assert.True(t, snap.Session.Terminal)
	assert.False(t, snap.Timer.Running)
	require.NotNil(t, snap.Result)
	assert.Equal(t, 4, snap.Result.Score)
	assert.Equal(t, 40, snap.Result.TotalMarks)
	assert.Equal(t, ReasonManual, snap.Result.Reason)

	h.waitDone(t)
	assert.NoError(t, <-h.runErr)

	completes := h.completions()
	require.Len(t, completes, 1)
	assert.Equal(t, 4, completes[0].Score)

	res, ok := h.attempt.Result()
	assert.True(t, ok)
	assert.Equal(t, completes[0], res)
}

func TestAttemptRejectsMutationAfterSubmission(t *testing.T) {
	h := newHarness(t, baseConfig(3, 10*time.Minute))

	_, err := h.do(t, Intent{Kind: IntentSelect, Question: 0, Option: 1})
	require.NoError(t, err)
	_, _ = h.do(t, Intent{Kind: IntentRequestSubmit})
	_, _ = h.do(t, Intent{Kind: IntentConfirmSubmit})
	_, err = h.do(t, Intent{Kind: IntentIdentity, Identity: "STU2025001"})
	require.NoError(t, err)
	h.waitDone(t)

	snap, err := h.do(t, Intent{Kind: IntentSelect, Question: 0, Option: 2})
	assert.ErrorIs(t, err, ErrTerminal)
	require.NotNil(t, snap.Session.Questions[0].Answer)
	assert.Equal(t, 1, *snap.Session.Questions[0].Answer)

	_, err = h.do(t, Intent{Kind: IntentNext})
	assert.ErrorIs(t, err, ErrTerminal)

	snap, err = h.do(t, Intent{Kind: IntentSnapshot})
	require.NoError(t, err)
	assert.Equal(t, 0, snap.Session.Current)
	assert.Len(t, h.completions(), 1)
}

func TestAttemptAutoSubmitOnExpiry(t *testing.T) {
	h := newHarness(t, baseConfig(5, 10*time.Minute))

	_, err := h.do(t, Intent{Kind: IntentSelect, Question: 0, Option: 0})
	require.NoError(t, err)
	_, err = h.do(t, Intent{Kind: IntentSelect, Question: 2, Option: 1})
	require.NoError(t, err)
	_, err = h.do(t, Intent{Kind: IntentRequestSubmit})
	require.NoError(t, err)

	h.advance(301 * time.Second)
	snap, err := h.do(t, Intent{Kind: IntentSnapshot})
	require.NoError(t, err)
	assert.Equal(t, 299, snap.Timer.Remaining)
	assert.Equal(t, "04:59", snap.Timer.Formatted)

	h.advance(299 * time.Second)
	h.waitDone(t)

	assert.Equal(t, []EventType{EventWarning, EventCritical, EventExpired, EventCompleted}, h.eventTypes())

	completes := h.completions()
	require.Len(t, completes, 1)
	assert.Equal(t, ReasonExpired, completes[0].Reason)
	assert.Equal(t, 4, completes[0].Score)
	assert.Equal(t, 2, completes[0].Answered)

	snap, err = h.do(t, Intent{Kind: IntentSnapshot})
	require.NoError(t, err)
	assert.Equal(t, SubmissionSucceeded, snap.Submission.State)
	assert.Equal(t, 0, snap.Timer.Remaining)
	assert.True(t, snap.Session.Terminal)
}

func TestAttemptLateTickCatchesUp(t *testing.T) {
	h := newHarness(t, baseConfig(2, 400*time.Second))

	// Sub-second ticks do not move the countdown.
	h.advance(400 * time.Millisecond)
	snap, err := h.do(t, Intent{Kind: IntentSnapshot})
	require.NoError(t, err)
	assert.Equal(t, 400, snap.Timer.Remaining)

	// The process "sleeps" across both thresholds.
	h.advance(369*time.Second + 700*time.Millisecond)
	snap, err = h.do(t, Intent{Kind: IntentSnapshot})
	require.NoError(t, err)
	assert.Equal(t, 30, snap.Timer.Remaining)
	assert.Equal(t, []EventType{EventWarning, EventCritical}, h.eventTypes())

	h.advance(time.Second)
	snap, err = h.do(t, Intent{Kind: IntentSnapshot})
	require.NoError(t, err)
	assert.Equal(t, 29, snap.Timer.Remaining)
	assert.Equal(t, []EventType{EventWarning, EventCritical}, h.eventTypes())
	assert.Empty(t, h.completions())
}

func TestAttemptCriticalFiresOnFirstTickBelowThreshold(t *testing.T) {
	h := newHarness(t, baseConfig(2, 61*time.Second))

	h.advance(time.Second)
	assert.Equal(t, []EventType{EventCritical}, h.eventTypes())

	h.advance(time.Second)
	assert.Equal(t, []EventType{EventCritical}, h.eventTypes())
}

func TestAttemptWarningThenCriticalScenario(t *testing.T) {
	h := newHarness(t, baseConfig(2, 301*time.Second))

	h.advance(time.Second)
	assert.Equal(t, []EventType{EventWarning}, h.eventTypes())

	for i := 0; i < 239; i++ {
		h.advance(time.Second)
	}
	snap, err := h.do(t, Intent{Kind: IntentSnapshot})
	require.NoError(t, err)
	assert.Equal(t, 61, snap.Timer.Remaining)
	assert.Equal(t, []EventType{EventWarning}, h.eventTypes())

	h.advance(time.Second)
	assert.Equal(t, []EventType{EventWarning, EventCritical}, h.eventTypes())
}

func TestAttemptAnswerEvents(t *testing.T) {
	h := newHarness(t, baseConfig(3, time.Hour))

	_, err := h.do(t, Intent{Kind: IntentSelect, Question: 1, Option: 2})
	require.NoError(t, err)
	_, err = h.do(t, Intent{Kind: IntentClear, Question: 1})
	require.NoError(t, err)
	_, err = h.do(t, Intent{Kind: IntentSelect, Question: 1, Option: 9})
	assert.ErrorIs(t, err, ErrOptionIndex)

	h.mu.Lock()
	defer h.mu.Unlock()
	require.Len(t, h.events, 2)
	assert.Equal(t, EventAnswerChanged, h.events[0].Type)
	require.NotNil(t, h.events[0].Answer)
	assert.Equal(t, 2, *h.events[0].Answer)
	assert.Equal(t, 1, h.events[1].Question)
	assert.Nil(t, h.events[1].Answer)
}

func TestAttemptAbandoned(t *testing.T) {
	h := newHarness(t, baseConfig(2, time.Hour))
	h.cancel()
	h.waitDone(t)
	assert.ErrorIs(t, <-h.runErr, context.Canceled)

	_, err := h.do(t, Intent{Kind: IntentNext})
	assert.ErrorIs(t, err, ErrClosed)
	_, ok := h.attempt.Result()
	assert.False(t, ok)
	assert.Empty(t, h.completions())
}

func TestAttemptUnknownIntent(t *testing.T) {
	h := newHarness(t, baseConfig(2, time.Hour))
	_, err := h.do(t, Intent{Kind: "teleport"})
	assert.ErrorIs(t, err, ErrUnknownIntent)
}

func TestNewAttemptDefaultsTotalMarks(t *testing.T) {
	cfg := baseConfig(5, time.Minute*10)
	cfg.TotalMarks = 0
	a, err := NewAttempt(cfg, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, 10, a.totalMarks)
}

func TestNewAttemptRejectsBadConfig(t *testing.T) {
	_, err := NewAttempt(Config{Duration: time.Minute}, zerolog.Nop())
	assert.ErrorIs(t, err, ErrInvalidQuestionSet)

	cfg := baseConfig(2, 0)
	_, err = NewAttempt(cfg, zerolog.Nop())
	assert.Error(t, err)
}
