package domain

import "time"

// MonitorState is the state of a payment monitor run.
type MonitorState string

const (
	MonitorPolling           MonitorState = "POLLING"
	MonitorPaid              MonitorState = "PAID"
	MonitorExpired           MonitorState = "EXPIRED"
	MonitorCancelled         MonitorState = "CANCELLED"
	MonitorTimedOut          MonitorState = "TIMED_OUT"
	MonitorErrored           MonitorState = "ERRORED"
	MonitorCancelledByCaller MonitorState = "CANCELLED_BY_CALLER"
)

// IsTerminal returns true for every state except Polling.
func (s MonitorState) IsTerminal() bool {
	return s != MonitorPolling && s != ""
}

// MonitorStateFor returns the terminal state reached on a provider status,
// or MonitorPolling when the status is not terminal.
func MonitorStateFor(status ChargeStatus) MonitorState {
	switch status {
	case ChargeStatusPaid:
		return MonitorPaid
	case ChargeStatusExpired:
		return MonitorExpired
	case ChargeStatusCancelled:
		return MonitorCancelled
	default:
		return MonitorPolling
	}
}

// MonitorSession is the in-memory state of a single monitor run.
type MonitorSession struct {
	ChargeID     string
	AttemptsUsed int
	MaxAttempts  int
	Interval     time.Duration
	Status       ChargeStatus
	State        MonitorState
	LastErr      error
}

// Remaining returns how many checks are left in the budget.
func (s MonitorSession) Remaining() int {
	if r := s.MaxAttempts - s.AttemptsUsed; r > 0 {
		return r
	}
	return 0
}
