package exam

import "errors"

// Session errors.
var (
	ErrTerminal      = errors.New("session is already submitted")
	ErrQuestionIndex = errors.New("question index out of range")
	ErrOptionIndex   = errors.New("option index out of range")
)

// PaletteStatus is the single status a question shows in the palette grid.
type PaletteStatus string

const (
	StatusCurrent     PaletteStatus = "current"
	StatusMarked      PaletteStatus = "marked"
	StatusAnswered    PaletteStatus = "answered"
	StatusNotAnswered PaletteStatus = "not_answered"
	StatusNotVisited  PaletteStatus = "not_visited"
)

// Session tracks answers, review marks and visits for one attempt.
// It is not safe for concurrent use; Attempt serialises access to it.
type Session struct {
	options  []int
	answers  []int // -1 means unanswered
	marked   []bool
	visited  []bool
	current  int
	terminal bool
}

// NewSession creates a session over the given questions. Only the first
// question starts out visited.
func NewSession(questions []Question) (*Session, error) {
	if err := ValidateQuestions(questions); err != nil {
		return nil, err
	}

	n := len(questions)
	s := &Session{
		options: make([]int, n),
		answers: make([]int, n),
		marked:  make([]bool, n),
		visited: make([]bool, n),
	}
	for i, q := range questions {
		s.options[i] = len(q.Options)
		s.answers[i] = -1
	}
	s.visited[0] = true
	return s, nil
}

// QuestionCount returns the number of questions in the session.
func (s *Session) QuestionCount() int { return len(s.answers) }

// Current returns the index of the question on screen.
func (s *Session) Current() int { return s.current }

// Terminal reports whether the session has been finalised.
func (s *Session) Terminal() bool { return s.terminal }

// SelectOption records option for question. Reselecting the same option is a no-op.
func (s *Session) SelectOption(question, option int) error {
	if err := s.checkQuestion(question); err != nil {
		return err
	}
	if option < 0 || option >= s.options[question] {
		return ErrOptionIndex
	}
	s.answers[question] = option
	return nil
}

// ClearAnswer resets question to unanswered.
func (s *Session) ClearAnswer(question int) error {
	if err := s.checkQuestion(question); err != nil {
		return err
	}
	s.answers[question] = -1
	return nil
}

// ToggleMark flips the review flag of question and returns the new value.
func (s *Session) ToggleMark(question int) (bool, error) {
	if err := s.checkQuestion(question); err != nil {
		return false, err
	}
	s.marked[question] = !s.marked[question]
	return s.marked[question], nil
}

// GoTo moves to index, clamping to the first or last question, and marks
// the destination visited.
func (s *Session) GoTo(index int) error {
	if s.terminal {
		return ErrTerminal
	}
	last := len(s.answers) - 1
	switch {
	case index < 0:
		index = 0
	case index > last:
		index = last
	}
	s.current = index
	s.visited[index] = true
	return nil
}

// Prev moves one question back, saturating at the first.
func (s *Session) Prev() error { return s.GoTo(s.current - 1) }

// Next moves one question forward, saturating at the last.
func (s *Session) Next() error { return s.GoTo(s.current + 1) }

// Finalize freezes the session. Further mutations return ErrTerminal.
func (s *Session) Finalize() { s.terminal = true }

func (s *Session) checkQuestion(question int) error {
	if s.terminal {
		return ErrTerminal
	}
	if question < 0 || question >= len(s.answers) {
		return ErrQuestionIndex
	}
	return nil
}

// status applies the palette precedence: current > marked > answered > visited > not visited.
func (s *Session) status(i int) PaletteStatus {
	switch {
	case i == s.current:
		return StatusCurrent
	case s.marked[i]:
		return StatusMarked
	case s.answers[i] >= 0:
		return StatusAnswered
	case s.visited[i]:
		return StatusNotAnswered
	default:
		return StatusNotVisited
	}
}

// QuestionState is the per-question part of a snapshot.
type QuestionState struct {
	Index   int           `json:"index"`
	Answer  *int          `json:"answer"`
	Marked  bool          `json:"marked"`
	Visited bool          `json:"visited"`
	Status  PaletteStatus `json:"status"`
}

// Counts are the summary legend figures. Answered and Marked may overlap.
type Counts struct {
	Answered    int `json:"answered"`
	Marked      int `json:"marked"`
	NotAnswered int `json:"not_answered"`
	NotVisited  int `json:"not_visited"`
}

// SessionSnapshot is an immutable copy of the session state for rendering.
type SessionSnapshot struct {
	Current   int                   `json:"current"`
	Total     int                   `json:"total"`
	Terminal  bool                  `json:"terminal"`
	Questions []QuestionState       `json:"questions"`
	Counts    Counts                `json:"counts"`
	Palette   map[PaletteStatus]int `json:"palette"`
}

// Snapshot copies the current state. It has no side effects.
func (s *Session) Snapshot() SessionSnapshot {
	n := len(s.answers)
	snap := SessionSnapshot{
		Current:   s.current,
		Total:     n,
		Terminal:  s.terminal,
		Questions: make([]QuestionState, n),
		Palette:   make(map[PaletteStatus]int, 5),
	}

	for i := 0; i < n; i++ {
		qs := QuestionState{
			Index:   i,
			Marked:  s.marked[i],
			Visited: s.visited[i],
			Status:  s.status(i),
		}
		if s.answers[i] >= 0 {
			a := s.answers[i]
			qs.Answer = &a
			snap.Counts.Answered++
		}
		if s.marked[i] {
			snap.Counts.Marked++
		}
		if s.visited[i] && s.answers[i] < 0 && !s.marked[i] {
			snap.Counts.NotAnswered++
		}
		if !s.visited[i] {
			snap.Counts.NotVisited++
		}
		snap.Palette[qs.Status]++
		snap.Questions[i] = qs
	}
	return snap
}

// AnsweredCount returns how many questions currently hold an answer.
func (s *Session) AnsweredCount() int {
	count := 0
	for _, a := range s.answers {
		if a >= 0 {
			count++
		}
	}
	return count
}

// Answer returns the selected option for question, if any.
func (s *Session) Answer(question int) (int, bool) {
	if question < 0 || question >= len(s.answers) || s.answers[question] < 0 {
		return 0, false
	}
	return s.answers[question], true
}
