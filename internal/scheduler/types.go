// internal/scheduler/types.go
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tamzrod/can-daq-node/internal/status"
)

// Clock is the scheduler's only notion of time.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Publisher hands one payload to the bus.
type Publisher interface {
	Publish(ctx context.Context, id uint32, payload [8]byte, n uint8) error
}

// Reporter receives every cycle report.
type Reporter interface {
	Report(r Report)
}

// State is the scheduler lifecycle state.
type State uint32

const (
	StateIdle State = iota
	StateArmed
	StateRunning
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateArmed:
		return "armed"
	case StateRunning:
		return "running"
	default:
		return fmt.Sprintf("state(%d)", uint32(s))
	}
}

// FailurePolicy decides what a cycle publishes when an acquisition failed.
type FailurePolicy uint8

const (
	// PolicyZero publishes with failed fields left at zero.
	PolicyZero FailurePolicy = iota
	// PolicySkip publishes nothing for the cycle.
	PolicySkip
)

func (p FailurePolicy) String() string {
	if p == PolicySkip {
		return "skip"
	}
	return "zero"
}

// ParseFailurePolicy accepts "zero" and "skip". Empty means zero.
func ParseFailurePolicy(s string) (FailurePolicy, error) {
	switch s {
	case "", "zero":
		return PolicyZero, nil
	case "skip":
		return PolicySkip, nil
	default:
		return PolicyZero, fmt.Errorf("unknown acquisition failure policy %q", s)
	}
}

// DeadlineOverrun reports a cycle whose work did not fit in the period.
// It is a reportable condition, not a failure of the loop.
type DeadlineOverrun struct {
	Seq     uint64
	Period  time.Duration
	Elapsed time.Duration
	// Late is how far past the cycle's boundary the work ended.
	// Zero when the work ended in time but took longer than the period.
	Late time.Duration
	// Missed is the number of period boundaries the wait consumed at once.
	Missed uint64
}

func (e *DeadlineOverrun) Error() string {
	return fmt.Sprintf("cycle %d overran: work took %s, ended %s past its boundary, period %s, %d boundaries passed",
		e.Seq, e.Elapsed, e.Late, e.Period, e.Missed)
}

func (e *DeadlineOverrun) Code() uint16 { return status.CodeOverrun }

// Report is the outcome of one cycle.
type Report struct {
	Seq   uint64
	Start time.Time

	// Elapsed is the work time, from the start timestamp to the deadline wait.
	Elapsed time.Duration
	// Slack is Period - Elapsed. Zero when Overrun is set.
	Slack time.Duration
	// Waited is the time spent blocked in the deadline wait.
	Waited time.Duration
	Missed uint64

	Overrun *DeadlineOverrun

	AcquireErr error
	PublishErr error
	WaitErr    error

	Published  int
	Skipped    bool
	Saturated  bool
	StatusSent bool
}

// Err joins every condition the cycle surfaced.
func (r Report) Err() error {
	var overrun error
	if r.Overrun != nil {
		overrun = r.Overrun
	}
	return errors.Join(r.AcquireErr, r.PublishErr, overrun, r.WaitErr)
}
