// internal/status/tracker.go
package status

import "time"

// Observation is what one cycle tells the tracker.
type Observation struct {
	// Period is the cycle length; unhealthy time accrues in whole periods.
	Period time.Duration

	AcquireErr error
	PublishErr error
	Overrun    bool
	Skipped    bool
}

// Tracker owns the status snapshot. It is driven by the cycle loop only.
type Tracker struct {
	snap     Snapshot
	inError  time.Duration
	overruns uint32
}

func NewTracker() *Tracker {
	return &Tracker{snap: Snapshot{Health: HealthUnknown}}
}

// Observe folds one cycle into the snapshot and reports whether it changed.
func (t *Tracker) Observe(o Observation) bool {
	prev := t.snap

	if o.Overrun && t.overruns < CounterMax {
		t.overruns++
	}
	t.snap.Overruns = uint16(t.overruns)

	switch {
	case o.PublishErr != nil:
		t.snap.Health = HealthError
		t.snap.LastErrorCode = ErrorCode(o.PublishErr)
	case o.Skipped:
		t.snap.Health = HealthDisabled
		t.snap.LastErrorCode = ErrorCode(o.AcquireErr)
	case o.AcquireErr != nil:
		t.snap.Health = HealthStale
		t.snap.LastErrorCode = ErrorCode(o.AcquireErr)
	default:
		t.snap.Health = HealthOK
		t.snap.LastErrorCode = CodeNone
		if o.Overrun {
			t.snap.LastErrorCode = CodeOverrun
		}
	}

	if t.snap.Health == HealthOK {
		// Reset seconds-in-error on recovery.
		t.inError = 0
	} else {
		t.inError += o.Period
	}

	// HARD INVARIANT: seconds_in_error MUST NOT wrap
	secs := t.inError / time.Second
	if secs > CounterMax {
		secs = CounterMax
	}
	t.snap.SecondsInError = uint16(secs)

	return t.snap != prev
}

func (t *Tracker) Snapshot() Snapshot {
	return t.snap
}
