package service

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/stemsi/examroom/internal/model"
	"github.com/stemsi/examroom/internal/repository"
)

// NoSubject is reported as the strongest subject when nothing was taken.
const NoSubject = "N/A"

// StrongestSubject is the subject with the highest average percentage.
type StrongestSubject struct {
	Name         string `json:"name"`
	AverageScore int    `json:"average_score"`
}

// Profile is the student profile page.
type Profile struct {
	Student          model.StudentInfo `json:"student"`
	TotalTests       int               `json:"total_tests"`
	AverageScore     int               `json:"average_score"`
	StrongestSubject StrongestSubject  `json:"strongest_subject"`
}

// ProfileService builds the student profile.
type ProfileService struct {
	students    StudentStore
	assessments AssessmentStore
}

// NewProfileService creates a new ProfileService.
func NewProfileService(students StudentStore, assessments AssessmentStore) *ProfileService {
	return &ProfileService{students: students, assessments: assessments}
}

// GetProfile loads the student and summarises their results.
func (s *ProfileService) GetProfile(ctx context.Context, studentID int) (*Profile, error) {
	student, err := s.students.GetByID(ctx, studentID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrStudentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get student: %w", err)
	}
	results, err := s.assessments.ListResultsByStudent(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}

	completed := make([]CompletedAssessment, 0, len(results))
	for _, r := range results {
		completed = append(completed, toCompleted(r))
	}
	stats := statsFor(completed)

	return &Profile{
		Student:          student.Info(),
		TotalTests:       stats.TotalTests,
		AverageScore:     stats.AverageScore,
		StrongestSubject: strongestSubject(completed),
	}, nil
}

// strongestSubject picks the first subject reaching the highest average.
func strongestSubject(completed []CompletedAssessment) StrongestSubject {
	type agg struct {
		total float64
		count int
	}
	var order []string
	bySubject := make(map[string]*agg)
	for _, c := range completed {
		a, ok := bySubject[c.Subject]
		if !ok {
			a = &agg{}
			bySubject[c.Subject] = a
			order = append(order, c.Subject)
		}
		a.total += c.Percentage
		a.count++
	}

	best := StrongestSubject{Name: NoSubject}
	bestAvg := 0.0
	for _, name := range order {
		a := bySubject[name]
		avg := a.total / float64(a.count)
		if avg > bestAvg {
			bestAvg = avg
			best = StrongestSubject{Name: name, AverageScore: int(math.Round(avg))}
		}
	}
	return best
}
