package websocket

import "github.com/stemsi/examroom/internal/exam"

// ─── Actions (Client → Server) ──────────────────────────────────────

// Action is an attempt intent kind, or ping.
type Action string

const ActionPing Action = "ping"

// ActionRequest carries one client action. Fields are read only by the
// actions that need them; a missing question targets the current one.
type ActionRequest struct {
	Action   Action `json:"action"`
	Question *int   `json:"question,omitempty"`
	Option   int    `json:"option,omitempty"`
	Target   int    `json:"target,omitempty"`
	Identity string `json:"identity,omitempty"`
}

// Intent converts the request into an attempt intent.
func (r *ActionRequest) Intent() exam.Intent {
	q := exam.CurrentQuestion
	if r.Question != nil {
		q = *r.Question
	}
	return exam.Intent{
		Kind:     exam.IntentKind(r.Action),
		Question: q,
		Option:   r.Option,
		Target:   r.Target,
		Identity: r.Identity,
	}
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventSnapshot Event = "snapshot"
	EventWarning  Event = "warning"
	EventCritical Event = "critical"
	EventExpired  Event = "expired"
	EventComplete Event = "completed"
	EventError    Event = "error"
	EventPong     Event = "pong"
)

// SnapshotResponse carries the full attempt view, sent on connect and
// after every action.
type SnapshotResponse struct {
	Event    Event         `json:"event"`
	Snapshot exam.Snapshot `json:"snapshot"`
}

// TimerResponse announces a threshold crossing or expiry.
type TimerResponse struct {
	Event     Event  `json:"event"`
	Remaining int    `json:"remaining"`
	Formatted string `json:"formatted"`
}

// CompletedResponse announces the final result.
type CompletedResponse struct {
	Event  Event       `json:"event"`
	Result exam.Result `json:"result"`
}

// ErrorResponse reports a rejected action, with the state after it.
type ErrorResponse struct {
	Event    Event          `json:"event"`
	Code     string         `json:"code"`
	Error    string         `json:"error"`
	Snapshot *exam.Snapshot `json:"snapshot,omitempty"`
}

type PongResponse struct {
	Event Event `json:"event"`
}

// FromAttemptEvent maps a published attempt event to its wire form.
// ok is false for events not streamed to clients.
func FromAttemptEvent(ev exam.Event) (v interface{}, ok bool) {
	switch ev.Type {
	case exam.EventWarning, exam.EventCritical, exam.EventExpired:
		return TimerResponse{
			Event:     Event(ev.Type),
			Remaining: ev.Remaining,
			Formatted: exam.FormatRemaining(ev.Remaining),
		}, true
	case exam.EventCompleted:
		if ev.Result == nil {
			return nil, false
		}
		return CompletedResponse{Event: EventComplete, Result: *ev.Result}, true
	default:
		return nil, false
	}
}
