package model

import (
	"time"

	"github.com/stemsi/examroom/internal/exam"
)

// StartAttemptRequest is the payload for starting an assessment.
type StartAttemptRequest struct {
	AcceptRules bool `json:"accept_rules"`
}

// IntentRequest is one user action posted against a running attempt.
type IntentRequest struct {
	Kind     exam.IntentKind `json:"kind" binding:"required,oneof=select clear toggle_mark goto prev next request_submit cancel_submit confirm_submit identity cancel_identity snapshot"`
	Question *int            `json:"question"`
	Option   int             `json:"option"`
	Target   int             `json:"target"`
	Identity string          `json:"identity" binding:"max=64"`
}

// Intent converts the request, targeting the current question when none is given.
func (r *IntentRequest) Intent() exam.Intent {
	q := exam.CurrentQuestion
	if r.Question != nil {
		q = *r.Question
	}
	return exam.Intent{
		Kind:     r.Kind,
		Question: q,
		Option:   r.Option,
		Target:   r.Target,
		Identity: r.Identity,
	}
}

// AttemptInfo describes a running or finished attempt.
type AttemptInfo struct {
	AttemptID    string        `json:"attempt_id"`
	AssessmentID int64         `json:"assessment_id"`
	StartedAt    time.Time     `json:"started_at"`
	Snapshot     exam.Snapshot `json:"snapshot"`
}
