package worker

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stemsi/examroom/internal/exam"
	"github.com/stemsi/examroom/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustJSON(t *testing.T, v interface{}) string {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	return string(raw)
}

func TestDecodeAnswer(t *testing.T) {
	at := time.Date(2025, 1, 5, 10, 0, 0, 0, time.UTC)
	opt := 2
	valid := repository.AnswerPayload{
		AttemptID:    uuid.NewString(),
		StudentID:    7,
		AssessmentID: 4,
		Question:     3,
		Answer:       &opt,
		ChangedAt:    at,
	}

	p, err := decodeAnswer(mustJSON(t, valid))
	require.NoError(t, err)
	require.NotNil(t, p.Answer)
	assert.Equal(t, 2, *p.Answer)
	assert.True(t, at.Equal(p.ChangedAt))

	cleared := valid
	cleared.Answer = nil
	p, err = decodeAnswer(mustJSON(t, cleared))
	require.NoError(t, err)
	assert.Nil(t, p.Answer)

	tests := []struct {
		name   string
		mutate func(*repository.AnswerPayload)
	}{
		{"bad attempt id", func(p *repository.AnswerPayload) { p.AttemptID = "nope" }},
		{"no student", func(p *repository.AnswerPayload) { p.StudentID = 0 }},
		{"negative question", func(p *repository.AnswerPayload) { p.Question = -1 }},
		{"no timestamp", func(p *repository.AnswerPayload) { p.ChangedAt = time.Time{} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := valid
			tt.mutate(&p)
			_, err := decodeAnswer(mustJSON(t, p))
			assert.Error(t, err)
		})
	}

	_, err = decodeAnswer("{")
	assert.Error(t, err)
}

func TestDecodeCompletionAndColumns(t *testing.T) {
	at := time.Date(2025, 1, 5, 12, 0, 0, 0, time.UTC)
	id := uuid.New()
	raw := mustJSON(t, repository.CompletionPayload{
		AttemptID:    id.String(),
		StudentID:    7,
		AssessmentID: 4,
		Score:        30,
		TotalMarks:   40,
		Answered:     15,
		Reason:       exam.ReasonExpired,
		SubmittedAt:  at,
	})

	p, err := decodeCompletion(raw)
	require.NoError(t, err)

	second := *p
	second.StudentID = 8
	second.Reason = exam.ReasonManual

	cols, err := columnsFor([]*repository.CompletionPayload{p, &second})
	require.NoError(t, err)
	assert.Equal(t, []int64{4, 4}, cols.assessmentIDs)
	assert.Equal(t, []int{7, 8}, cols.studentIDs)
	assert.Equal(t, []uuid.UUID{id, id}, cols.attemptIDs)
	assert.Equal(t, []string{"EXPIRED", "MANUAL"}, cols.reasons)
	assert.Equal(t, []int{40, 40}, cols.totals)

	res := toResult(p)
	assert.Equal(t, id.String(), res.AttemptID)
	assert.Equal(t, 30, res.Score)
	assert.Equal(t, exam.ReasonExpired, res.Reason)

	_, err = decodeCompletion(`{"attempt_id":"x","student_id":7,"assessment_id":4}`)
	assert.Error(t, err)
}
