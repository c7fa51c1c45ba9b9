package exam

import (
	"errors"
	"fmt"
	"strings"
)

// Submission workflow errors.
var (
	ErrInvalidTransition = errors.New("invalid submission transition")
	ErrIdentityMismatch  = errors.New("identity does not match")
)

// SubmissionState is the position of the submit dialog flow.
type SubmissionState string

const (
	SubmissionIdle            SubmissionState = "IDLE"
	SubmissionReviewPending   SubmissionState = "REVIEW_PENDING"
	SubmissionIdentityPending SubmissionState = "IDENTITY_PENDING"
	SubmissionSucceeded       SubmissionState = "SUCCEEDED"
)

// CompletionReason records which path ended the attempt.
type CompletionReason string

const (
	ReasonManual  CompletionReason = "MANUAL"
	ReasonExpired CompletionReason = "EXPIRED"
)

// Workflow gates final submission behind a review step and an identity check.
//
// The identity check is a placeholder confirmation, not access control.
type Workflow struct {
	state         SubmissionState
	expected      string
	identityError bool
	reason        CompletionReason
}

// NewWorkflow creates an idle workflow expecting the given identifier.
func NewWorkflow(expectedIdentity string) *Workflow {
	return &Workflow{
		state:    SubmissionIdle,
		expected: strings.TrimSpace(expectedIdentity),
	}
}

// State returns the current workflow state.
func (w *Workflow) State() SubmissionState { return w.state }

// IdentityError reports whether the last identity check failed.
func (w *Workflow) IdentityError() bool { return w.identityError }

// Reason returns how the workflow reached Succeeded, empty before that.
func (w *Workflow) Reason() CompletionReason { return w.reason }

// Done reports whether the workflow is terminal.
func (w *Workflow) Done() bool { return w.state == SubmissionSucceeded }

// RequestSubmit opens the review step.
func (w *Workflow) RequestSubmit() error {
	if w.state != SubmissionIdle {
		return w.invalid("request submit")
	}
	w.state = SubmissionReviewPending
	return nil
}

// Cancel closes either dialog and returns to Idle.
func (w *Workflow) Cancel() error {
	if w.state != SubmissionReviewPending && w.state != SubmissionIdentityPending {
		return w.invalid("cancel")
	}
	w.state = SubmissionIdle
	w.identityError = false
	return nil
}

// Confirm accepts the review and asks for identity.
func (w *Workflow) Confirm() error {
	if w.state != SubmissionReviewPending {
		return w.invalid("confirm")
	}
	w.state = SubmissionIdentityPending
	w.identityError = false
	return nil
}

// SubmitIdentity compares the trimmed input with the expected identifier.
// A mismatch keeps the workflow in IdentityPending with the error flag set.
func (w *Workflow) SubmitIdentity(input string) error {
	if w.state != SubmissionIdentityPending {
		return w.invalid("submit identity")
	}
	if strings.TrimSpace(input) != w.expected {
		w.identityError = true
		return ErrIdentityMismatch
	}
	w.identityError = false
	w.state = SubmissionSucceeded
	w.reason = ReasonManual
	return nil
}

// Expire forces Succeeded from any state. It returns false if the workflow
// had already succeeded.
func (w *Workflow) Expire() bool {
	if w.state == SubmissionSucceeded {
		return false
	}
	w.state = SubmissionSucceeded
	w.identityError = false
	w.reason = ReasonExpired
	return true
}

func (w *Workflow) invalid(action string) error {
	return fmt.Errorf("%w: cannot %s from %s", ErrInvalidTransition, action, w.state)
}
