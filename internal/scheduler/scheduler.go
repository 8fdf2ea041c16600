// internal/scheduler/scheduler.go
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync/atomic"
	"time"

	"github.com/tamzrod/can-daq-node/internal/frame"
	"github.com/tamzrod/can-daq-node/internal/hal"
	"github.com/tamzrod/can-daq-node/internal/sensor"
	"github.com/tamzrod/can-daq-node/internal/status"
)

// Config is the immutable runtime config of the cycle loop.
type Config struct {
	Period time.Duration
	// Plan lists the frames published every cycle, in order.
	Plan   []frame.Message
	Policy FailurePolicy

	// StatusID and StatusEvery control the status frame.
	// StatusEvery == 0 disables it.
	StatusID    uint32
	StatusEvery uint32
}

// Deps are the collaborators the loop drives.
type Deps struct {
	Adapters  []sensor.Adapter
	Publisher Publisher
	Timer     hal.PeriodicTimer
	Clock     Clock    // nil means wall clock
	Reporter  Reporter // nil means LogReporter
}

// Scheduler is the single thread of control of the node.
//
// Each cycle: start timestamp, acquire in field order, assemble, publish,
// clear accumulating sensors, wait for the period boundary, then compute
// slack or overrun. No cycle failure stops the loop.
type Scheduler struct {
	cfg       Config
	adapters  []sensor.Adapter
	resetters []sensor.Adapter
	pub       Publisher
	timer     hal.PeriodicTimer
	clock     Clock
	reporter  Reporter
	tracker   *status.Tracker

	state atomic.Uint32
	seq   uint64
	// deadline is the period boundary the current cycle must finish by.
	// It advances by the boundaries each wait consumes.
	deadline time.Time
}

// New validates the wiring and returns an idle scheduler.
func New(cfg Config, d Deps) (*Scheduler, error) {
	if cfg.Period <= 0 {
		return nil, errors.New("scheduler: period must be > 0")
	}
	if len(cfg.Plan) == 0 {
		return nil, errors.New("scheduler: at least one message required")
	}
	if d.Publisher == nil {
		return nil, errors.New("scheduler: publisher required")
	}
	if d.Timer == nil {
		return nil, errors.New("scheduler: periodic timer required")
	}

	adapters := append([]sensor.Adapter(nil), d.Adapters...)
	sort.SliceStable(adapters, func(i, j int) bool {
		return adapters[i].Field() < adapters[j].Field()
	})

	var resetters []sensor.Adapter
	for i, a := range adapters {
		if i > 0 && adapters[i-1].Field() == a.Field() {
			return nil, fmt.Errorf("scheduler: two adapters for %s", a.Field())
		}
		if _, ok := a.(sensor.Resetter); ok {
			resetters = append(resetters, a)
		}
	}

	s := &Scheduler{
		cfg:       cfg,
		adapters:  adapters,
		resetters: resetters,
		pub:       d.Publisher,
		timer:     d.Timer,
		clock:     d.Clock,
		reporter:  d.Reporter,
		tracker:   status.NewTracker(),
	}
	if s.clock == nil {
		s.clock = systemClock{}
	}
	if s.reporter == nil {
		s.reporter = LogReporter{}
	}
	return s, nil
}

func (s *Scheduler) State() State {
	return State(s.state.Load())
}

// Status returns the health snapshot as of the last completed cycle.
func (s *Scheduler) Status() status.Snapshot {
	return s.tracker.Snapshot()
}

// Arm starts the periodic timer. Idle -> Armed.
func (s *Scheduler) Arm() error {
	if s.State() != StateIdle {
		return fmt.Errorf("scheduler: arm from %s", s.State())
	}
	// Taken before Start so the deadline never trails the timer's boundary.
	t0 := s.clock.Now()
	if err := s.timer.Start(s.cfg.Period); err != nil {
		return fmt.Errorf("scheduler: start timer: %w", err)
	}
	s.deadline = t0.Add(s.cfg.Period)
	s.state.Store(uint32(StateArmed))
	return nil
}

// Cycle runs exactly one cycle, including the deadline wait.
func (s *Scheduler) Cycle(ctx context.Context) Report {
	if s.State() == StateIdle {
		return Report{WaitErr: errors.New("scheduler: cycle before arm")}
	}
	s.state.Store(uint32(StateRunning))
	s.seq++

	rep := Report{Seq: s.seq, Start: s.clock.Now()}

	// One SampleSet per cycle, never carried over.
	var set sensor.SampleSet
	var acqErrs []error
	for _, a := range s.adapters {
		r, err := a.Acquire(ctx)
		if err != nil {
			acqErrs = append(acqErrs, asAcquisitionError(a.Field(), err))
			continue
		}
		set.Put(a.Field(), r)
		if r.Saturated {
			rep.Saturated = true
		}
	}
	rep.AcquireErr = errors.Join(acqErrs...)

	var pubErrs []error
	if rep.AcquireErr != nil && s.cfg.Policy == PolicySkip {
		rep.Skipped = true
	} else {
		for _, m := range s.cfg.Plan {
			p, n, ok := m.Encode(set)
			if !ok {
				continue
			}
			if err := s.pub.Publish(ctx, m.ID, p, n); err != nil {
				pubErrs = append(pubErrs, err)
				continue
			}
			rep.Published++
		}
	}

	if s.statusDue() {
		if err := s.pub.Publish(ctx, s.cfg.StatusID, status.Encode(s.tracker.Snapshot()), status.FrameLen); err != nil {
			pubErrs = append(pubErrs, err)
		} else {
			rep.StatusSent = true
		}
	}
	rep.PublishErr = errors.Join(pubErrs...)

	// Counts mean edges seen during this cycle.
	for _, a := range s.resetters {
		if err := a.(sensor.Resetter).Reset(); err != nil {
			rep.AcquireErr = errors.Join(rep.AcquireErr, asAcquisitionError(a.Field(), err))
		}
	}

	workEnd := s.clock.Now()
	rep.Elapsed = workEnd.Sub(rep.Start)

	missed, err := s.timer.Wait(ctx)
	rep.Missed = missed
	rep.WaitErr = err
	rep.Waited = s.clock.Now().Sub(workEnd)

	// A cycle that started late can cross its boundary in under a period.
	var late time.Duration
	if workEnd.After(s.deadline) {
		late = workEnd.Sub(s.deadline)
	}
	s.deadline = s.deadline.Add(time.Duration(missed) * s.cfg.Period)

	if rep.Elapsed > s.cfg.Period || missed > 1 || late > 0 {
		rep.Overrun = &DeadlineOverrun{
			Seq:     rep.Seq,
			Period:  s.cfg.Period,
			Elapsed: rep.Elapsed,
			Late:    late,
			Missed:  missed,
		}
	} else {
		rep.Slack = s.cfg.Period - rep.Elapsed
	}

	s.tracker.Observe(status.Observation{
		Period:     s.cfg.Period,
		AcquireErr: rep.AcquireErr,
		PublishErr: rep.PublishErr,
		Overrun:    rep.Overrun != nil,
		Skipped:    rep.Skipped,
	})

	return rep
}

func (s *Scheduler) statusDue() bool {
	return s.cfg.StatusEvery > 0 && s.seq%uint64(s.cfg.StatusEvery) == 0
}

// Run arms the scheduler if needed and loops until ctx ends or the
// periodic timer fails. Every cycle is reported.
func (s *Scheduler) Run(ctx context.Context) error {
	if s.State() == StateIdle {
		if err := s.Arm(); err != nil {
			return err
		}
	}
	defer func() { _ = s.timer.Stop() }()

	for {
		rep := s.Cycle(ctx)
		s.reporter.Report(rep)

		if err := ctx.Err(); err != nil {
			return err
		}
		if rep.WaitErr != nil {
			return fmt.Errorf("scheduler: deadline wait: %w", rep.WaitErr)
		}
	}
}

// RunForever is the node main loop. It returns only if the periodic timer
// itself breaks, which the caller treats as fatal.
func (s *Scheduler) RunForever() error {
	return s.Run(context.Background())
}

func asAcquisitionError(f sensor.Field, err error) error {
	var ae *sensor.AcquisitionError
	if errors.As(err, &ae) {
		return err
	}
	return &sensor.AcquisitionError{Field: f, Err: err}
}
