package exam

import "fmt"

// Default thresholds for the countdown notifications, in seconds.
const (
	DefaultWarningSeconds  = 300
	DefaultCriticalSeconds = 60
)

// TimerEvent is a notification raised by the countdown.
type TimerEvent string

const (
	TimerWarning  TimerEvent = "warning"
	TimerCritical TimerEvent = "critical"
	TimerExpired  TimerEvent = "expired"
)

// Timer is a countdown that raises each threshold notification at most once.
// Threshold checks look at the remaining value, not at tick adjacency, so a
// single late Advance that jumps several thresholds still reports all of them.
type Timer struct {
	remaining     int
	running       bool
	warnAt        int
	critAt        int
	firedWarning  bool
	firedCritical bool
	firedExpired  bool
}

// NewTimer creates a running timer. Thresholds must satisfy 0 < critical < warning.
func NewTimer(durationSeconds, warningSeconds, criticalSeconds int) (*Timer, error) {
	if durationSeconds <= 0 {
		return nil, fmt.Errorf("timer duration must be positive, got %d", durationSeconds)
	}
	if criticalSeconds <= 0 || warningSeconds <= criticalSeconds {
		return nil, fmt.Errorf("invalid thresholds: warning=%d critical=%d", warningSeconds, criticalSeconds)
	}
	return &Timer{
		remaining: durationSeconds,
		running:   true,
		warnAt:    warningSeconds,
		critAt:    criticalSeconds,
	}, nil
}

// Remaining returns the seconds left on the clock.
func (t *Timer) Remaining() int { return t.remaining }

// Running reports whether the countdown is still active.
func (t *Timer) Running() bool { return t.running }

// Stop halts the countdown without raising any event.
func (t *Timer) Stop() { t.running = false }

// Tick advances the countdown by one second.
func (t *Timer) Tick() []TimerEvent { return t.Advance(1) }

// Advance consumes seconds elapsed since the last observation and returns
// the events crossed, in warning, critical, expired order.
func (t *Timer) Advance(seconds int) []TimerEvent {
	if !t.running || seconds <= 0 {
		return nil
	}

	prev := t.remaining
	t.remaining -= seconds
	if t.remaining < 0 {
		t.remaining = 0
	}

	var events []TimerEvent
	// A warning only makes sense while above the critical band, unless this
	// advance jumped across the warning threshold on its way down.
	if !t.firedWarning && t.remaining <= t.warnAt && (t.remaining > t.critAt || prev > t.warnAt) {
		t.firedWarning = true
		events = append(events, TimerWarning)
	}
	if !t.firedCritical && t.remaining <= t.critAt {
		t.firedCritical = true
		events = append(events, TimerCritical)
	}
	if !t.firedExpired && t.remaining == 0 {
		t.firedExpired = true
		t.running = false
		events = append(events, TimerExpired)
	}
	return events
}

// FormatRemaining renders seconds as HH:MM:SS when at least an hour is left
// and MM:SS otherwise.
func FormatRemaining(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60
	if h > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}
