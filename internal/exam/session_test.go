package exam

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeQuestions(n int) []Question {
	qs := make([]Question, n)
	for i := range qs {
		qs[i] = Question{
			ID:      i + 1,
			Prompt:  fmt.Sprintf("Sample Question %d", i+1),
			Options: []string{"Option A", "Option B", "Option C", "Option D"},
			Marks:   2,
		}
	}
	return qs
}

func newSession(t *testing.T, n int) *Session {
	t.Helper()
	s, err := NewSession(makeQuestions(n))
	require.NoError(t, err)
	return s
}

func TestValidateQuestions(t *testing.T) {
	good := makeQuestions(3)

	badID := makeQuestions(3)
	badID[1].ID = 7

	badOptions := makeQuestions(2)
	badOptions[0].Options = badOptions[0].Options[:3]

	badMarks := makeQuestions(2)
	badMarks[1].Marks = 0

	tests := []struct {
		name    string
		qs      []Question
		wantErr bool
	}{
		{name: "valid", qs: good},
		{name: "empty", qs: nil, wantErr: true},
		{name: "id does not match position", qs: badID, wantErr: true},
		{name: "three options", qs: badOptions, wantErr: true},
		{name: "zero marks", qs: badMarks, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateQuestions(tt.qs)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidQuestionSet)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNewSessionInitialState(t *testing.T) {
	s := newSession(t, 4)
	snap := s.Snapshot()

	assert.Equal(t, 0, snap.Current)
	assert.Equal(t, 4, snap.Total)
	assert.False(t, snap.Terminal)
	assert.True(t, snap.Questions[0].Visited)
	for i := 1; i < 4; i++ {
		assert.False(t, snap.Questions[i].Visited, "question %d", i)
		assert.Nil(t, snap.Questions[i].Answer)
		assert.False(t, snap.Questions[i].Marked)
	}
	assert.Equal(t, Counts{NotAnswered: 1, NotVisited: 3}, snap.Counts)
}

func TestSelectAndClear(t *testing.T) {
	s := newSession(t, 3)

	require.NoError(t, s.SelectOption(1, 2))
	require.NoError(t, s.SelectOption(1, 2))
	a, ok := s.Answer(1)
	assert.True(t, ok)
	assert.Equal(t, 2, a)

	require.NoError(t, s.SelectOption(2, 0))
	require.NoError(t, s.ClearAnswer(1))

	_, ok = s.Answer(1)
	assert.False(t, ok)
	a, ok = s.Answer(2)
	assert.True(t, ok, "clearing one question must not touch others")
	assert.Equal(t, 0, a)
	_, ok = s.Answer(0)
	assert.False(t, ok)
}

func TestSelectOptionRejectsInvalidIndices(t *testing.T) {
	s := newSession(t, 2)

	assert.ErrorIs(t, s.SelectOption(-1, 0), ErrQuestionIndex)
	assert.ErrorIs(t, s.SelectOption(2, 0), ErrQuestionIndex)
	assert.ErrorIs(t, s.SelectOption(0, 4), ErrOptionIndex)
	assert.ErrorIs(t, s.SelectOption(0, -1), ErrOptionIndex)
	assert.Equal(t, 0, s.AnsweredCount())
}

func TestToggleMark(t *testing.T) {
	s := newSession(t, 2)

	marked, err := s.ToggleMark(1)
	require.NoError(t, err)
	assert.True(t, marked)

	marked, err = s.ToggleMark(1)
	require.NoError(t, err)
	assert.False(t, marked)
}

func TestGoToClampsAndVisits(t *testing.T) {
	s := newSession(t, 5)

	require.NoError(t, s.Prev())
	assert.Equal(t, 0, s.Current())

	require.NoError(t, s.GoTo(4))
	require.NoError(t, s.Next())
	assert.Equal(t, 4, s.Current())

	require.NoError(t, s.GoTo(99))
	assert.Equal(t, 4, s.Current())
	require.NoError(t, s.GoTo(-3))
	assert.Equal(t, 0, s.Current())

	require.NoError(t, s.GoTo(2))
	first := s.Snapshot()
	require.NoError(t, s.GoTo(2))
	assert.Equal(t, first, s.Snapshot(), "repeated goto must be idempotent")
	assert.True(t, first.Questions[2].Visited)
}

func TestVisitedIsMonotonic(t *testing.T) {
	s := newSession(t, 3)
	require.NoError(t, s.GoTo(2))
	require.NoError(t, s.GoTo(0))

	snap := s.Snapshot()
	assert.True(t, snap.Questions[2].Visited)
	assert.False(t, snap.Questions[1].Visited)
}

func TestFinalizeBlocksMutation(t *testing.T) {
	s := newSession(t, 3)
	require.NoError(t, s.SelectOption(0, 1))
	s.Finalize()

	assert.ErrorIs(t, s.SelectOption(0, 2), ErrTerminal)
	assert.ErrorIs(t, s.ClearAnswer(0), ErrTerminal)
	_, err := s.ToggleMark(0)
	assert.ErrorIs(t, err, ErrTerminal)
	assert.ErrorIs(t, s.GoTo(1), ErrTerminal)
	assert.ErrorIs(t, s.Next(), ErrTerminal)

	a, ok := s.Answer(0)
	assert.True(t, ok)
	assert.Equal(t, 1, a)
	assert.Equal(t, 0, s.Current())
	assert.True(t, s.Snapshot().Terminal)
}

func TestCountsScenario(t *testing.T) {
	s := newSession(t, 5)

	require.NoError(t, s.SelectOption(0, 1))
	require.NoError(t, s.Next())
	_, err := s.ToggleMark(1)
	require.NoError(t, err)
	require.NoError(t, s.Next())
	require.NoError(t, s.SelectOption(2, 3))
	require.NoError(t, s.Next())
	require.NoError(t, s.Next())

	snap := s.Snapshot()
	assert.Equal(t, Counts{Answered: 2, Marked: 1, NotAnswered: 2, NotVisited: 0}, snap.Counts)
	assert.Equal(t, 4, snap.Current)
}

func TestPalettePrecedence(t *testing.T) {
	s := newSession(t, 6)

	require.NoError(t, s.SelectOption(1, 0))
	_, err := s.ToggleMark(1) // answered and marked shows as marked
	require.NoError(t, err)
	require.NoError(t, s.SelectOption(2, 0))
	require.NoError(t, s.GoTo(3))
	require.NoError(t, s.GoTo(4))
	_, err = s.ToggleMark(4) // current wins over marked
	require.NoError(t, err)

	want := []PaletteStatus{
		StatusNotAnswered,
		StatusMarked,
		StatusAnswered,
		StatusNotAnswered,
		StatusCurrent,
		StatusNotVisited,
	}
	snap := s.Snapshot()
	for i, st := range want {
		assert.Equal(t, st, snap.Questions[i].Status, "question %d", i)
	}
}

func TestPalettePartitionsQuestions(t *testing.T) {
	s := newSession(t, 20)

	steps := []func() error{
		func() error { return s.SelectOption(0, 1) },
		func() error { return s.GoTo(5) },
		func() error { _, err := s.ToggleMark(5); return err },
		func() error { return s.SelectOption(5, 2) },
		func() error { return s.Next() },
		func() error { return s.SelectOption(7, 3) },
		func() error { return s.GoTo(19) },
		func() error { return s.ClearAnswer(0) },
		func() error { _, err := s.ToggleMark(12); return err },
		func() error { return s.Prev() },
	}

	for i, step := range steps {
		require.NoError(t, step(), "step %d", i)

		snap := s.Snapshot()
		sum := 0
		for _, c := range snap.Palette {
			sum += c
		}
		assert.Equal(t, snap.Total, sum, "step %d: palette must cover every question once", i)
		assert.Equal(t, 1, snap.Palette[StatusCurrent], "step %d", i)

		// Legend counts follow their definitions over the per-question view.
		var want Counts
		for _, q := range snap.Questions {
			if q.Answer != nil {
				want.Answered++
			}
			if q.Marked {
				want.Marked++
			}
			if q.Visited && q.Answer == nil && !q.Marked {
				want.NotAnswered++
			}
			if !q.Visited {
				want.NotVisited++
			}
		}
		assert.Equal(t, want, snap.Counts, "step %d", i)
	}
}

