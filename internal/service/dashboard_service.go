package service

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/stemsi/examroom/internal/model"
)

// Activity types shown in the feed.
const (
	ActivityTestCompleted = "test_completed"
	ActivityScoreReceived = "score_received"
)

const activityFeedSize = 4

// Grade is a recommendation band for a completed result.
type Grade string

const (
	GradeExcellent        Grade = "Excellent"
	GradeGood             Grade = "Good"
	GradeAverage          Grade = "Average"
	GradeNeedsImprovement Grade = "Needs Improvement"
)

// Recommendation is the feedback attached to a completed result.
type Recommendation struct {
	Grade   Grade    `json:"grade"`
	Message string   `json:"message"`
	Tips    []string `json:"tips"`
}

// Recommend maps a percentage to its band.
func Recommend(percentage float64) Recommendation {
	switch {
	case percentage >= 90:
		return Recommendation{
			Grade:   GradeExcellent,
			Message: "Outstanding performance! You have demonstrated exceptional understanding of the subject.",
			Tips: []string{
				"Continue to challenge yourself with advanced topics",
				"Consider helping peers who may be struggling",
				"Explore additional resources to deepen your expertise",
			},
		}
	case percentage >= 70:
		return Recommendation{
			Grade:   GradeGood,
			Message: "Great job! You have a solid understanding of the core concepts.",
			Tips: []string{
				"Review the questions you missed to identify knowledge gaps",
				"Practice more problems to strengthen weak areas",
				"Keep up the consistent effort",
			},
		}
	case percentage >= 50:
		return Recommendation{
			Grade:   GradeAverage,
			Message: "You passed, but there is room for improvement.",
			Tips: []string{
				"Revisit the fundamental concepts of this subject",
				"Create a study schedule to cover weak topics",
				"Seek help from instructors or study groups",
				"Practice regularly with sample questions",
			},
		}
	default:
		return Recommendation{
			Grade:   GradeNeedsImprovement,
			Message: "This score indicates areas that need significant attention.",
			Tips: []string{
				"Schedule a meeting with your instructor for guidance",
				"Focus on understanding the basics before moving forward",
				"Use video tutorials and additional learning resources",
				"Consider forming a study group for collaborative learning",
				"Practice consistently and track your progress",
			},
		}
	}
}

// UpcomingAssessment is an assessment scheduled in the future.
type UpcomingAssessment struct {
	model.Assessment
}

// LiveAssessment is an assessment whose window contains now.
type LiveAssessment struct {
	model.Assessment
	EndsAt           time.Time `json:"ends_at"`
	RemainingSeconds int       `json:"remaining_seconds"`
	TimeRemaining    string    `json:"time_remaining"`
}

// CompletedAssessment is a result with its assessment and feedback.
type CompletedAssessment struct {
	model.Assessment
	Score          int            `json:"score"`
	Percentage     float64        `json:"percentage"`
	Passed         bool           `json:"passed"`
	Reason         string         `json:"reason"`
	SubmittedAt    time.Time      `json:"submitted_at"`
	Recommendation Recommendation `json:"recommendation"`
}

// SubjectGroup holds a subject's assessments in display order.
type SubjectGroup[T any] struct {
	Subject     string `json:"subject"`
	Assessments []T    `json:"assessments"`
}

// Activity is one entry of the activity feed.
type Activity struct {
	Type         string    `json:"type"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	Timestamp    time.Time `json:"timestamp"`
	RelativeTime string    `json:"relative_time"`
}

// DashboardStats are the headline numbers.
type DashboardStats struct {
	TotalTests   int `json:"total_tests"`
	AverageScore int `json:"average_score"`
}

// PerformancePoint is one entry of the performance series.
type PerformancePoint struct {
	AssessmentID int64     `json:"assessment_id"`
	Title        string    `json:"title"`
	Subject      string    `json:"subject"`
	Percentage   float64   `json:"percentage"`
	SubmittedAt  time.Time `json:"submitted_at"`
}

// Dashboard is the student's landing view.
type Dashboard struct {
	Stats       DashboardStats                      `json:"stats"`
	Live        []LiveAssessment                    `json:"live"`
	Upcoming    []SubjectGroup[UpcomingAssessment]  `json:"upcoming"`
	Completed   []SubjectGroup[CompletedAssessment] `json:"completed"`
	Activities  []Activity                          `json:"activities"`
	Performance []PerformancePoint                  `json:"performance"`
}

// DashboardService builds the student dashboard.
type DashboardService struct {
	assessments AssessmentStore
	now         func() time.Time
}

// NewDashboardService creates a new DashboardService.
func NewDashboardService(assessments AssessmentStore, now func() time.Time) *DashboardService {
	if now == nil {
		now = time.Now
	}
	return &DashboardService{assessments: assessments, now: now}
}

// GetDashboard classifies every assessment for the student at the current time.
func (s *DashboardService) GetDashboard(ctx context.Context, studentID int) (*Dashboard, error) {
	all, err := s.assessments.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list assessments: %w", err)
	}
	results, err := s.assessments.ListResultsByStudent(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}

	now := s.now()
	taken := make(map[int64]bool, len(results))
	completed := make([]CompletedAssessment, 0, len(results))
	for _, r := range results {
		taken[r.Assessment.ID] = true
		completed = append(completed, toCompleted(r))
	}

	live := []LiveAssessment{}
	var upcoming []UpcomingAssessment
	for _, a := range all {
		if taken[a.ID] {
			continue
		}
		switch {
		case a.ScheduledAt.After(now):
			upcoming = append(upcoming, UpcomingAssessment{Assessment: a})
		case now.Before(a.EndsAt()):
			remaining := int(a.EndsAt().Sub(now) / time.Second)
			live = append(live, LiveAssessment{
				Assessment:       a,
				EndsAt:           a.EndsAt(),
				RemainingSeconds: remaining,
				TimeRemaining:    FormatHoursMinutes(remaining),
			})
		}
	}

	return &Dashboard{
		Stats:       statsFor(completed),
		Live:        live,
		Upcoming:    groupBySubject(upcoming, func(u UpcomingAssessment) string { return u.Subject }),
		Completed:   groupBySubject(completed, func(c CompletedAssessment) string { return c.Subject }),
		Activities:  activitiesFor(completed, now),
		Performance: performanceFor(completed),
	}, nil
}

func toCompleted(r model.ResultWithAssessment) CompletedAssessment {
	pct := roundTenth(r.Result.Percentage())
	return CompletedAssessment{
		Assessment:     r.Assessment,
		Score:          r.Result.Score,
		Percentage:     pct,
		Passed:         r.Result.Passed(),
		Reason:         string(r.Result.Reason),
		SubmittedAt:    r.Result.SubmittedAt,
		Recommendation: Recommend(pct),
	}
}

func statsFor(completed []CompletedAssessment) DashboardStats {
	stats := DashboardStats{TotalTests: len(completed)}
	if len(completed) == 0 {
		return stats
	}
	sum := 0.0
	for _, c := range completed {
		sum += c.Percentage
	}
	stats.AverageScore = int(math.Round(sum / float64(len(completed))))
	return stats
}

// activitiesFor expects completed sorted most recent first.
func activitiesFor(completed []CompletedAssessment, now time.Time) []Activity {
	n := len(completed)
	if n > activityFeedSize {
		n = activityFeedSize
	}
	out := make([]Activity, 0, n)
	for i, c := range completed[:n] {
		act := Activity{
			Type:         ActivityScoreReceived,
			Title:        "Results Published",
			Description:  fmt.Sprintf("Scored %s%% on %s", formatPercent(c.Percentage), c.Subject),
			Timestamp:    c.SubmittedAt,
			RelativeTime: RelativeTime(now, c.SubmittedAt),
		}
		if i == 0 {
			act.Type = ActivityTestCompleted
			act.Title = "Completed " + c.Title
		}
		out = append(out, act)
	}
	return out
}

func performanceFor(completed []CompletedAssessment) []PerformancePoint {
	out := make([]PerformancePoint, 0, len(completed))
	for _, c := range completed {
		out = append(out, PerformancePoint{
			AssessmentID: c.ID,
			Title:        c.Title,
			Subject:      c.Subject,
			Percentage:   c.Percentage,
			SubmittedAt:  c.SubmittedAt,
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].SubmittedAt.Before(out[j].SubmittedAt) })
	return out
}

// groupBySubject keeps subjects in order of first appearance.
func groupBySubject[T any](items []T, subject func(T) string) []SubjectGroup[T] {
	groups := []SubjectGroup[T]{}
	index := make(map[string]int)
	for _, item := range items {
		name := subject(item)
		i, ok := index[name]
		if !ok {
			i = len(groups)
			index[name] = i
			groups = append(groups, SubjectGroup[T]{Subject: name})
		}
		groups[i].Assessments = append(groups[i].Assessments, item)
	}
	return groups
}

func roundTenth(v float64) float64 {
	return math.Round(v*10) / 10
}

func formatPercent(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// FormatHoursMinutes renders seconds as "1h 45m" or "45m".
func FormatHoursMinutes(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	h, m := seconds/3600, (seconds%3600)/60
	if h > 0 {
		return fmt.Sprintf("%dh %dm", h, m)
	}
	return fmt.Sprintf("%dm", m)
}

// RelativeTime renders t relative to now for the activity feed.
func RelativeTime(now, t time.Time) string {
	diff := int(now.Sub(t) / time.Second)
	switch {
	case diff < 60:
		return "Just now"
	case diff < 3600:
		return fmt.Sprintf("%d min ago", diff/60)
	case diff < 86400:
		return fmt.Sprintf("%d hours ago", diff/3600)
	case diff < 604800:
		return fmt.Sprintf("%d days ago", diff/86400)
	default:
		return t.Format("Jan 2")
	}
}
