package catalog

import (
	"time"

	"github.com/stemsi/examroom/internal/exam"
	"github.com/stemsi/examroom/internal/model"
)

// DemoStudent is the account created by the seeder.
var DemoStudent = model.Student{
	RollNumber: "STU2025001",
	Name:       "Aarav Sharma",
	Email:      "aarav.sharma@university.edu",
	Department: "Computer Science",
	Semester:   5,
	Batch:      "2022-2026",
}

// DemoPassword is the seeded password for DemoStudent.
const DemoPassword = "password123"

// SeedAssessment is an assessment plus, for past ones, the demo student's score.
type SeedAssessment struct {
	Assessment model.Assessment
	// Score is set for assessments the demo student has already completed.
	Score *int
}

type seedRow struct {
	id         int64
	title      string
	subject    string
	instructor string
	offset     time.Duration
	minutes    int
	questions  int
	score      int
}

// Offsets are relative to the seeding time so the dashboard always shows
// upcoming, live and completed entries.
var seedRows = []seedRow{
	{1, "Data Structures - Mid Term", "Data Structures", "Dr. Sarah Johnson", 3 * 24 * time.Hour, 90, 30, -1},
	{2, "Database Management Quiz 3", "DBMS", "Prof. Michael Chen", 5 * 24 * time.Hour, 45, 20, -1},
	{3, "Operating Systems - Unit Test", "Operating Systems", "Dr. Emily Brown", 8 * 24 * time.Hour, 60, 25, -1},
	{4, "Java Programming - Final Test", "Java", "Mr. Alex Smith", -15 * time.Minute, 120, 20, -1},
	{5, "Python Basics Quiz", "Python", "Ms. Lisa Wang", -13 * 24 * time.Hour, 45, 25, 42},
	{6, "Computer Networks - Quiz 2", "Networks", "Dr. James Wilson", -18 * 24 * time.Hour, 45, 20, 35},
	{7, "Web Development Fundamentals", "Web Dev", "Prof. Anna Lee", -23 * 24 * time.Hour, 60, 25, 28},
	{8, "C++ Programming Basics", "C++", "Mr. David Park", -30 * 24 * time.Hour, 45, 20, 38},
	{9, "Java OOP Concepts Quiz", "Java", "Mr. Alex Smith", 11 * 24 * time.Hour, 45, 25, -1},
	{10, "DBMS - Normalization Test", "DBMS", "Prof. Michael Chen", 14 * 24 * time.Hour, 60, 30, -1},
	{11, "Python Advanced Topics", "Python", "Ms. Lisa Wang", 16 * 24 * time.Hour, 75, 35, -1},
	{12, "Java Collections Quiz", "Java", "Mr. Alex Smith", -10 * 24 * time.Hour, 60, 25, 45},
	{13, "Python Data Types Test", "Python", "Ms. Lisa Wang", -16 * 24 * time.Hour, 45, 20, 38},
	{14, "DBMS - SQL Basics", "DBMS", "Prof. Michael Chen", -27 * 24 * time.Hour, 60, 25, 42},
}

// Assessments returns the demo schedule anchored at now.
func Assessments(now time.Time) []SeedAssessment {
	base := now.Truncate(time.Minute)
	out := make([]SeedAssessment, 0, len(seedRows))
	for _, r := range seedRows {
		sa := SeedAssessment{
			Assessment: model.Assessment{
				ID:              r.id,
				Title:           r.title,
				Subject:         r.subject,
				Instructor:      r.instructor,
				ScheduledAt:     base.Add(r.offset),
				DurationMinutes: r.minutes,
				QuestionCount:   r.questions,
				TotalMarks:      r.questions * DefaultMarks,
			},
		}
		if r.score >= 0 {
			score := r.score
			sa.Score = &score
		}
		out = append(out, sa)
	}
	return out
}

// QuestionsFor returns the question set backing an assessment.
func QuestionsFor(a model.Assessment) []exam.Question {
	return Questions(a.QuestionCount)
}
