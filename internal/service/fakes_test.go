package service

import (
	"context"
	"sync"
	"time"

	"github.com/stemsi/examroom/internal/catalog"
	"github.com/stemsi/examroom/internal/exam"
	"github.com/stemsi/examroom/internal/model"
	"github.com/stemsi/examroom/internal/repository"
)

var testNow = time.Date(2025, 1, 5, 10, 0, 0, 0, time.UTC)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock { return &fakeClock{now: testNow} }

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

type fakeStudents struct {
	byID map[int]*model.Student
}

func newFakeStudents(students ...model.Student) *fakeStudents {
	f := &fakeStudents{byID: make(map[int]*model.Student)}
	for i := range students {
		s := students[i]
		f.byID[s.ID] = &s
	}
	return f
}

func (f *fakeStudents) GetByID(_ context.Context, id int) (*model.Student, error) {
	s, ok := f.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return s, nil
}

func (f *fakeStudents) GetByRollNumber(_ context.Context, roll string) (*model.Student, error) {
	for _, s := range f.byID {
		if s.RollNumber == roll {
			return s, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeStudents) Create(_ context.Context, s *model.Student) error {
	for _, existing := range f.byID {
		if existing.RollNumber == s.RollNumber {
			return repository.ErrDuplicateRollNumber
		}
	}
	s.ID = len(f.byID) + 1
	f.byID[s.ID] = s
	return nil
}

type fakeAssessments struct {
	mu          sync.Mutex
	assessments []model.Assessment
	results     []model.ResultWithAssessment
	err         error
}

func (f *fakeAssessments) ListAll(context.Context) ([]model.Assessment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.Assessment(nil), f.assessments...), f.err
}

func (f *fakeAssessments) GetByID(_ context.Context, id int64) (*model.Assessment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.assessments {
		if f.assessments[i].ID == id {
			a := f.assessments[i]
			return &a, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeAssessments) ListResultsByStudent(_ context.Context, studentID int) ([]model.ResultWithAssessment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.ResultWithAssessment
	for _, r := range f.results {
		if r.Result.StudentID == studentID {
			out = append(out, r)
		}
	}
	return out, f.err
}

func (f *fakeAssessments) HasResult(_ context.Context, studentID int, assessmentID int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.results {
		if r.Result.StudentID == studentID && r.Result.AssessmentID == assessmentID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeAssessments) addResult(studentID int, a model.Assessment, score int, at time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.results = append(f.results, model.ResultWithAssessment{
		Assessment: a,
		Result: model.AssessmentResult{
			AssessmentID: a.ID,
			StudentID:    studentID,
			Score:        score,
			TotalMarks:   a.TotalMarks,
			Reason:       exam.ReasonManual,
			SubmittedAt:  at,
		},
	})
}

type fakeQuestions struct{}

func (fakeQuestions) Questions(_ context.Context, _ int64) ([]exam.Question, error) {
	return catalog.DemoQuestions(), nil
}

type fakeQueue struct {
	mu          sync.Mutex
	answers     []repository.AnswerPayload
	completions []repository.CompletionPayload
}

func (q *fakeQueue) PushAnswer(_ context.Context, p repository.AnswerPayload) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.answers = append(q.answers, p)
	return nil
}

func (q *fakeQueue) PushCompletion(_ context.Context, p repository.CompletionPayload) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.completions = append(q.completions, p)
	return nil
}

func (q *fakeQueue) answerCount() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.answers)
}

func (q *fakeQueue) completionList() []repository.CompletionPayload {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]repository.CompletionPayload(nil), q.completions...)
}

type fakePrefs struct {
	saved map[int]model.Preferences
	saves int
}

func newFakePrefs() *fakePrefs { return &fakePrefs{saved: make(map[int]model.Preferences)} }

func (f *fakePrefs) Get(_ context.Context, studentID int) (model.Preferences, bool, error) {
	p, ok := f.saved[studentID]
	if !ok {
		return model.DefaultPreferences(), false, nil
	}
	return p, true, nil
}

func (f *fakePrefs) Save(_ context.Context, studentID int, prefs model.Preferences) error {
	f.saved[studentID] = prefs
	f.saves++
	return nil
}

func demoStudent() model.Student {
	s := catalog.DemoStudent
	s.ID = 7
	return s
}

func assessment(id int64, subject string, offset time.Duration, minutes, questions int) model.Assessment {
	return model.Assessment{
		ID:              id,
		Title:           subject + " test",
		Subject:         subject,
		Instructor:      "Mr. Alex Smith",
		ScheduledAt:     testNow.Add(offset),
		DurationMinutes: minutes,
		QuestionCount:   questions,
		TotalMarks:      questions * 2,
	}
}
