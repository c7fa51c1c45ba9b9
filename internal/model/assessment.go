package model

import (
	"time"

	"github.com/stemsi/examroom/internal/exam"
)

// PassPercentage is the minimum percentage for a result to count as passed.
const PassPercentage = 50.0

// Assessment is a scheduled multiple-choice test.
type Assessment struct {
	ID              int64     `json:"id"`
	Title           string    `json:"title"`
	Subject         string    `json:"subject"`
	Instructor      string    `json:"instructor"`
	ScheduledAt     time.Time `json:"scheduled_at"`
	DurationMinutes int       `json:"duration_minutes"`
	QuestionCount   int       `json:"questions"`
	TotalMarks      int       `json:"total_marks"`
	CreatedAt       time.Time `json:"created_at"`
}

// AttemptRules are shown before an attempt starts; starting requires the
// student to accept them.
var AttemptRules = []string{
	"This is a timed examination. The timer will start as soon as you begin the test and cannot be paused.",
	"Do not refresh the page or navigate away during the test. This may result in loss of your answers.",
	"Each question carries equal marks. There is no negative marking for incorrect answers.",
	"You can navigate between questions using the navigation buttons or the question palette.",
	"You can mark questions for review and revisit them before final submission.",
	"Once submitted, you cannot modify your answers. Review all answers before submitting.",
	"The test will auto-submit when the time expires if not submitted manually.",
	"Ensure stable internet connectivity throughout the examination.",
}

// AssessmentBriefing is what a student reads before accepting the rules.
type AssessmentBriefing struct {
	Assessment Assessment `json:"assessment"`
	EndsAt     time.Time  `json:"ends_at"`
	Rules      []string   `json:"rules"`
}

// Duration returns the assessment window length.
func (a *Assessment) Duration() time.Duration {
	return time.Duration(a.DurationMinutes) * time.Minute
}

// EndsAt returns the end of the assessment window.
func (a *Assessment) EndsAt() time.Time {
	return a.ScheduledAt.Add(a.Duration())
}

// AssessmentResult is the persisted outcome of one completed attempt.
type AssessmentResult struct {
	ID           int64                 `json:"id"`
	AssessmentID int64                 `json:"assessment_id"`
	StudentID    int                   `json:"student_id"`
	AttemptID    string                `json:"attempt_id"`
	Score        int                   `json:"score"`
	TotalMarks   int                   `json:"total_marks"`
	Answered     int                   `json:"answered"`
	Reason       exam.CompletionReason `json:"reason"`
	SubmittedAt  time.Time             `json:"submitted_at"`
}

// Percentage returns the score as a percentage of total marks.
func (r *AssessmentResult) Percentage() float64 {
	if r.TotalMarks <= 0 {
		return 0
	}
	return float64(r.Score) * 100 / float64(r.TotalMarks)
}

// Passed reports whether the result meets PassPercentage.
func (r *AssessmentResult) Passed() bool {
	return r.Percentage() >= PassPercentage
}

// ResultWithAssessment joins a result with its assessment for portal views.
type ResultWithAssessment struct {
	Assessment Assessment
	Result     AssessmentResult
}

// PaperQuestion is a question as shown to the student.
type PaperQuestion struct {
	ID      int      `json:"id"`
	Text    string   `json:"text"`
	Options []string `json:"options"`
	Marks   int      `json:"marks"`
}

// ExamPaper is the read-only question paper for an attempt.
type ExamPaper struct {
	AssessmentID    int64           `json:"assessment_id"`
	Title           string          `json:"title"`
	Subject         string          `json:"subject"`
	DurationMinutes int             `json:"duration_minutes"`
	TotalMarks      int             `json:"total_marks"`
	Rules           []string        `json:"rules"`
	Questions       []PaperQuestion `json:"questions"`
}

// NewExamPaper builds the paper payload from an assessment and its questions.
func NewExamPaper(a *Assessment, questions []exam.Question) ExamPaper {
	paper := ExamPaper{
		AssessmentID:    a.ID,
		Title:           a.Title,
		Subject:         a.Subject,
		DurationMinutes: a.DurationMinutes,
		TotalMarks:      a.TotalMarks,
		Rules:           append([]string(nil), AttemptRules...),
		Questions:       make([]PaperQuestion, 0, len(questions)),
	}
	for _, q := range questions {
		paper.Questions = append(paper.Questions, PaperQuestion{
			ID:      q.ID,
			Text:    q.Prompt,
			Options: q.Options,
			Marks:   q.Marks,
		})
	}
	return paper
}
