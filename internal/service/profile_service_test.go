package service

import (
	"context"
	"testing"
	"time"

	"github.com/stemsi/examroom/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProfileSummarisesResults(t *testing.T) {
	st := demoStudent()
	store := &fakeAssessments{}
	add := func(id int64, subject string, score, questions int) {
		a := assessment(id, subject, -48*time.Hour, 60, questions)
		store.assessments = append(store.assessments, a)
		store.addResult(st.ID, a, score, testNow.Add(-time.Duration(id)*time.Hour))
	}
	add(5, "Python", 42, 25)  // 84
	add(13, "Python", 38, 20) // 95
	add(8, "C++", 38, 20)     // 95
	add(7, "Web Dev", 28, 25) // 56

	svc := NewProfileService(newFakeStudents(st), store)
	p, err := svc.GetProfile(context.Background(), st.ID)
	require.NoError(t, err)

	assert.Equal(t, "STU2025001", p.Student.RollNumber)
	assert.Equal(t, "Computer Science", p.Student.Department)
	assert.Equal(t, 4, p.TotalTests)
	assert.Equal(t, 83, p.AverageScore) // 330 / 4 = 82.5
	assert.Equal(t, "C++", p.StrongestSubject.Name)
	assert.Equal(t, 95, p.StrongestSubject.AverageScore)
}

func TestProfileWithoutResults(t *testing.T) {
	st := demoStudent()
	p, err := NewProfileService(newFakeStudents(st), &fakeAssessments{}).GetProfile(context.Background(), st.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, p.TotalTests)
	assert.Equal(t, NoSubject, p.StrongestSubject.Name)
}

func TestStrongestSubjectTieKeepsFirst(t *testing.T) {
	got := strongestSubject([]CompletedAssessment{
		{Assessment: model.Assessment{Subject: "Java"}, Percentage: 90},
		{Assessment: model.Assessment{Subject: "DBMS"}, Percentage: 90},
	})
	assert.Equal(t, "Java", got.Name)
}

func TestProfileUnknownStudent(t *testing.T) {
	_, err := NewProfileService(newFakeStudents(), &fakeAssessments{}).GetProfile(context.Background(), 99)
	assert.ErrorIs(t, err, ErrStudentNotFound)
}
