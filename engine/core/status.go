package core

// -----------------------------------------------------------------------------
// Attempt Status
// -----------------------------------------------------------------------------

// StatusType tracks one generation attempt through its lifecycle.
// Transitions: PENDING -> RUNNING -> {SUCCESS, FAILED, TIMED_OUT, CANCELED}.
// Terminal states are absorbing; a new attempt gets a fresh handle.
type StatusType string

const (
	StatusPending  StatusType = "PENDING"
	StatusRunning  StatusType = "RUNNING"
	StatusSuccess  StatusType = "SUCCESS"
	StatusFailed   StatusType = "FAILED"
	StatusTimedOut StatusType = "TIMED_OUT"
	StatusCanceled StatusType = "CANCELED"
)

func (s StatusType) String() string {
	return string(s)
}

func (s StatusType) IsTerminal() bool {
	switch s {
	case StatusSuccess, StatusFailed, StatusTimedOut, StatusCanceled:
		return true
	default:
		return false
	}
}

// CanTransitionTo reports whether moving from s to next is a legal
// lifecycle transition.
func (s StatusType) CanTransitionTo(next StatusType) bool {
	if s.IsTerminal() {
		return false
	}
	switch s {
	case StatusPending:
		return next == StatusRunning || next == StatusFailed || next == StatusCanceled
	case StatusRunning:
		return next.IsTerminal()
	default:
		return false
	}
}
