package exam

import (
	"errors"
	"fmt"
)

// OptionCount is the number of choices every multiple-choice question carries.
const OptionCount = 4

// ErrInvalidQuestionSet is returned when a question list cannot back a session.
var ErrInvalidQuestionSet = errors.New("invalid question set")

// Question is a single read-only multiple-choice item.
type Question struct {
	ID      int      `json:"id"`
	Prompt  string   `json:"prompt"`
	Options []string `json:"options"`
	Marks   int      `json:"marks"`
}

// ValidateQuestions checks that ids match positions, every question has
// exactly OptionCount options and positive marks.
func ValidateQuestions(questions []Question) error {
	if len(questions) == 0 {
		return fmt.Errorf("%w: no questions", ErrInvalidQuestionSet)
	}
	for i, q := range questions {
		if q.ID != i+1 {
			return fmt.Errorf("%w: question at position %d has id %d", ErrInvalidQuestionSet, i+1, q.ID)
		}
		if len(q.Options) != OptionCount {
			return fmt.Errorf("%w: question %d has %d options", ErrInvalidQuestionSet, q.ID, len(q.Options))
		}
		if q.Marks <= 0 {
			return fmt.Errorf("%w: question %d has non-positive marks", ErrInvalidQuestionSet, q.ID)
		}
	}
	return nil
}

// TotalMarks sums the marks of all questions.
func TotalMarks(questions []Question) int {
	total := 0
	for _, q := range questions {
		total += q.Marks
	}
	return total
}
