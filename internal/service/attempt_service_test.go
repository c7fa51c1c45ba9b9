package service

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/examroom/internal/config"
	"github.com/stemsi/examroom/internal/exam"
	"github.com/stemsi/examroom/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type attemptFixture struct {
	svc         *AttemptService
	clock       *fakeClock
	ticks       chan time.Time
	queue       *fakeQueue
	assessments *fakeAssessments
	student     int
}

func newAttemptFixture(t *testing.T) *attemptFixture {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	st := demoStudent()
	f := &attemptFixture{
		clock: newFakeClock(),
		ticks: make(chan time.Time),
		queue: &fakeQueue{},
		assessments: &fakeAssessments{assessments: []model.Assessment{
			assessment(4, "Java", -15*time.Minute, 120, 20),
			assessment(9, "Java", 24*time.Hour, 45, 20),
			assessment(20, "Networks", -time.Minute, 10, 20),
		}},
		student: st.ID,
	}
	f.svc = NewAttemptService(ctx, f.assessments, fakeQuestions{}, newFakeStudents(st), f.queue,
		config.ExamConfig{
			DefaultDuration:   120 * time.Minute,
			PointsPerQuestion: 2,
			DefaultTotalMarks: 40,
			WarningSeconds:    300,
			CriticalSeconds:   60,
			TickInterval:      time.Second,
		},
		zerolog.Nop(),
		WithAttemptClock(f.clock.Now),
		WithExamOptions(exam.WithTicks(f.ticks)),
	)
	return f
}

func (f *attemptFixture) advance(d time.Duration) {
	f.ticks <- f.clock.Advance(d)
}

func (f *attemptFixture) do(t *testing.T, id int64, in exam.Intent) (exam.Snapshot, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	return f.svc.Dispatch(ctx, f.student, id, in)
}

func TestStartRequiresRules(t *testing.T) {
	f := newAttemptFixture(t)
	_, err := f.svc.Start(context.Background(), f.student, 4, false)
	assert.ErrorIs(t, err, ErrRulesNotAccepted)
	assert.Equal(t, 0, f.svc.Active())
}

func TestStartIsIdempotent(t *testing.T) {
	f := newAttemptFixture(t)
	first, err := f.svc.Start(context.Background(), f.student, 4, true)
	require.NoError(t, err)
	assert.Equal(t, 7200, first.Snapshot.Timer.Remaining)
	assert.Equal(t, "02:00:00", first.Snapshot.Timer.Formatted)
	assert.Equal(t, 20, first.Snapshot.Session.Total)

	_, err = f.do(t, 4, exam.Intent{Kind: exam.IntentNext})
	require.NoError(t, err)

	second, err := f.svc.Start(context.Background(), f.student, 4, true)
	require.NoError(t, err)
	assert.Equal(t, first.AttemptID, second.AttemptID)
	assert.Equal(t, 1, second.Snapshot.Session.Current)
	assert.Equal(t, 1, f.svc.Active())
}

func TestStartRejectsUnavailableAssessments(t *testing.T) {
	f := newAttemptFixture(t)

	_, err := f.svc.Start(context.Background(), f.student, 9, true)
	assert.ErrorIs(t, err, ErrAssessmentNotLive)

	_, err = f.svc.Start(context.Background(), f.student, 404, true)
	assert.ErrorIs(t, err, ErrAssessmentNotFound)

	a, _ := f.assessments.GetByID(context.Background(), 4)
	f.assessments.addResult(f.student, *a, 30, testNow.Add(-time.Hour))
	_, err = f.svc.Start(context.Background(), f.student, 4, true)
	assert.ErrorIs(t, err, ErrAssessmentCompleted)
}

func TestDispatchWithoutAttempt(t *testing.T) {
	f := newAttemptFixture(t)
	_, err := f.do(t, 4, exam.Intent{Kind: exam.IntentSnapshot})
	assert.ErrorIs(t, err, ErrAttemptNotFound)

	_, err = f.svc.Snapshot(context.Background(), f.student, 4)
	assert.ErrorIs(t, err, ErrAttemptNotFound)

	_, err = f.svc.Subscribe(f.student, 4)
	assert.ErrorIs(t, err, ErrAttemptNotFound)
}

func TestManualSubmissionQueuesResult(t *testing.T) {
	f := newAttemptFixture(t)
	_, err := f.svc.Start(context.Background(), f.student, 4, true)
	require.NoError(t, err)

	_, err = f.do(t, 4, exam.Intent{Kind: exam.IntentSelect, Question: exam.CurrentQuestion, Option: 3})
	require.NoError(t, err)
	_, err = f.do(t, 4, exam.Intent{Kind: exam.IntentSelect, Question: 5, Option: 1})
	require.NoError(t, err)
	_, err = f.do(t, 4, exam.Intent{Kind: exam.IntentClear, Question: 5})
	require.NoError(t, err)

	assert.Eventually(t, func() bool { return f.queue.answerCount() == 3 }, time.Second, 10*time.Millisecond)

	_, err = f.do(t, 4, exam.Intent{Kind: exam.IntentRequestSubmit})
	require.NoError(t, err)
	_, err = f.do(t, 4, exam.Intent{Kind: exam.IntentConfirmSubmit})
	require.NoError(t, err)

	snap, err := f.do(t, 4, exam.Intent{Kind: exam.IntentIdentity, Identity: "STU2025002"})
	assert.ErrorIs(t, err, exam.ErrIdentityMismatch)
	assert.True(t, snap.Submission.IdentityError)

	snap, err = f.do(t, 4, exam.Intent{Kind: exam.IntentIdentity, Identity: "STU2025001"})
	require.NoError(t, err)
	assert.Equal(t, exam.SubmissionSucceeded, snap.Submission.State)

	completions := f.queue.completionList()
	require.Len(t, completions, 1)
	assert.Equal(t, 2, completions[0].Score)
	assert.Equal(t, 40, completions[0].TotalMarks)
	assert.Equal(t, 1, completions[0].Answered)
	assert.Equal(t, exam.ReasonManual, completions[0].Reason)
	assert.Equal(t, int64(4), completions[0].AssessmentID)

	_, err = f.do(t, 4, exam.Intent{Kind: exam.IntentSelect, Question: 0, Option: 0})
	assert.ErrorIs(t, err, exam.ErrTerminal)

	_, err = f.svc.Start(context.Background(), f.student, 4, true)
	assert.ErrorIs(t, err, ErrAssessmentCompleted)

	info, err := f.svc.Snapshot(context.Background(), f.student, 4)
	require.NoError(t, err)
	require.NotNil(t, info.Snapshot.Result)
	assert.Equal(t, 2, info.Snapshot.Result.Score)
}

func TestSubscribersReceiveTimerEventsAndAutoSubmit(t *testing.T) {
	f := newAttemptFixture(t)
	_, err := f.svc.Start(context.Background(), f.student, 20, true)
	require.NoError(t, err)

	sub, err := f.svc.Subscribe(f.student, 20)
	require.NoError(t, err)
	defer sub.Close()

	_, err = f.do(t, 20, exam.Intent{Kind: exam.IntentSelect, Question: 0, Option: 2})
	require.NoError(t, err)

	f.advance(601 * time.Second)

	var got []exam.EventType
	for len(got) < 4 {
		select {
		case ev := <-sub.Events:
			got = append(got, ev.Type)
		case <-time.After(time.Second):
			t.Fatalf("timed out, got %v", got)
		}
	}
	assert.Equal(t, []exam.EventType{exam.EventWarning, exam.EventCritical, exam.EventExpired, exam.EventCompleted}, got)

	select {
	case <-sub.Done:
	case <-time.After(time.Second):
		t.Fatal("attempt did not finish")
	}

	completions := f.queue.completionList()
	require.Len(t, completions, 1)
	assert.Equal(t, exam.ReasonExpired, completions[0].Reason)
	assert.Equal(t, 2, completions[0].Score)
}

func TestSubscriptionCloseIsIdempotent(t *testing.T) {
	f := newAttemptFixture(t)
	_, err := f.svc.Start(context.Background(), f.student, 4, true)
	require.NoError(t, err)

	sub, err := f.svc.Subscribe(f.student, 4)
	require.NoError(t, err)
	sub.Close()
	sub.Close()

	_, open := <-sub.Events
	assert.False(t, open)
}
