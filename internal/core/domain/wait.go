package domain

import "time"

// WaitMode selects how a wait item detects that its target finished.
type WaitMode string

const (
	// WaitEvent subscribes to the target's completion signal.
	WaitEvent WaitMode = "event"
	// WaitPoll polls for the existence of a path.
	WaitPoll WaitMode = "poll"
)

const (
	// DefaultWaitTimeout bounds a wait item that does not declare a timeout.
	DefaultWaitTimeout = 60 * time.Second
	// DefaultPollInterval is the poll cadence for poll-mode wait items.
	DefaultPollInterval = 500 * time.Millisecond
)

// WaitItem is a declared dependency of one Build on another Build's completion.
type WaitItem struct {
	Target       string        `json:"target" yaml:"target"`
	Mode         WaitMode      `json:"mode" yaml:"mode"`
	Timeout      time.Duration `json:"timeout" yaml:"timeout"`
	PollInterval time.Duration `json:"pollInterval,omitempty" yaml:"pollInterval,omitempty"`
	Path         string        `json:"path,omitempty" yaml:"path,omitempty"`
}

// WaitOutcome is the result of a consumed wait item.
type WaitOutcome string

const (
	// WaitResolved means the condition fired before the timeout.
	WaitResolved WaitOutcome = "resolved"
	// WaitTimedOut means the wait was abandoned by its timeout.
	WaitTimedOut WaitOutcome = "timeout"
)
