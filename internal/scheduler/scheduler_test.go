// internal/scheduler/scheduler_test.go
package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tamzrod/can-daq-node/internal/bus"
	"github.com/tamzrod/can-daq-node/internal/frame"
	"github.com/tamzrod/can-daq-node/internal/hal/sim"
	"github.com/tamzrod/can-daq-node/internal/sensor"
	"github.com/tamzrod/can-daq-node/internal/status"
)

const period = 10 * time.Millisecond

// ---- fakes ----

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

// fakeTimer has boundaries at start + k*period on the fake clock.
// Waiting jumps the clock to the next boundary.
type fakeTimer struct {
	clk     *fakeClock
	t0      time.Time
	period  time.Duration
	fired   uint64
	started bool
	stopped bool
	err     error
}

func (t *fakeTimer) Start(p time.Duration) error {
	t.t0 = t.clk.Now()
	t.period = p
	t.started = true
	return nil
}

func (t *fakeTimer) Wait(ctx context.Context) (uint64, error) {
	if t.err != nil {
		return 0, t.err
	}
	passed := uint64(t.clk.Now().Sub(t.t0) / t.period)
	if passed > t.fired {
		n := passed - t.fired
		t.fired = passed
		return n, nil
	}
	t.fired++
	t.clk.Set(t.t0.Add(time.Duration(t.fired) * t.period))
	return 1, nil
}

func (t *fakeTimer) Stop() error {
	t.stopped = true
	return nil
}

// workAdapter costs fake time and records the acquisition order.
type workAdapter struct {
	field sensor.Field
	clk   *fakeClock
	cost  time.Duration
	code  uint16
	raw   []byte
	err   error
	order *[]sensor.Field
}

func (a *workAdapter) Field() sensor.Field { return a.field }

func (a *workAdapter) Acquire(ctx context.Context) (sensor.Reading, error) {
	if a.order != nil {
		*a.order = append(*a.order, a.field)
	}
	a.clk.Advance(a.cost)
	if a.err != nil {
		return sensor.Reading{}, a.err
	}
	return sensor.Reading{Code: a.code, Raw: a.raw}, nil
}

type sent struct {
	id      uint32
	payload [8]byte
	n       uint8
}

type recordingPublisher struct {
	frames []sent
	calls  int
	fail   func(call int) error
}

func (p *recordingPublisher) Publish(ctx context.Context, id uint32, payload [8]byte, n uint8) error {
	p.calls++
	if p.fail != nil {
		if err := p.fail(p.calls); err != nil {
			return err
		}
	}
	p.frames = append(p.frames, sent{id: id, payload: payload, n: n})
	return nil
}

type quietReporter struct{ reports []Report }

func (r *quietReporter) Report(rep Report) { r.reports = append(r.reports, rep) }

type rig struct {
	clk   *fakeClock
	timer *fakeTimer
	pub   *recordingPublisher
	rep   *quietReporter
}

func newRig() *rig {
	clk := newFakeClock()
	return &rig{
		clk:   clk,
		timer: &fakeTimer{clk: clk},
		pub:   &recordingPublisher{},
		rep:   &quietReporter{},
	}
}

func (r *rig) build(t *testing.T, cfg Config, adapters ...sensor.Adapter) *Scheduler {
	t.Helper()
	if cfg.Period == 0 {
		cfg.Period = period
	}
	if cfg.Plan == nil {
		cfg.Plan = frame.NewPlan(0x12, frame.PressureNone, 0)
	}
	s, err := New(cfg, Deps{
		Adapters:  adapters,
		Publisher: r.pub,
		Timer:     r.timer,
		Clock:     r.clk,
		Reporter:  r.rep,
	})
	require.NoError(t, err)
	require.NoError(t, s.Arm())
	return s
}

// ---- tests ----

func TestCycleReportsSlack(t *testing.T) {
	r := newRig()
	s := r.build(t, Config{}, &workAdapter{field: sensor.FieldVoltage, clk: r.clk, cost: 1500 * time.Microsecond})

	rep := s.Cycle(context.Background())
	require.Nil(t, rep.Overrun)
	require.Equal(t, 1500*time.Microsecond, rep.Elapsed)
	require.Equal(t, 8500*time.Microsecond, rep.Waited)
	require.Equal(t, 8500*time.Microsecond, rep.Slack)
	require.Positive(t, rep.Slack)
	require.Equal(t, uint64(1), rep.Missed)
	require.NoError(t, rep.Err())
}

func TestCycleReportsOverrunInsteadOfNegativeSlack(t *testing.T) {
	r := newRig()
	a := &workAdapter{field: sensor.FieldVoltage, clk: r.clk, cost: 12000 * time.Microsecond}
	s := r.build(t, Config{}, a)

	rep := s.Cycle(context.Background())
	require.NotNil(t, rep.Overrun)
	require.Equal(t, time.Duration(0), rep.Slack)
	require.Equal(t, time.Duration(0), rep.Waited)
	require.Equal(t, 12*time.Millisecond, rep.Overrun.Elapsed)
	require.Equal(t, 2*time.Millisecond, rep.Overrun.Late)
	require.Equal(t, period, rep.Overrun.Period)

	var over *DeadlineOverrun
	require.ErrorAs(t, rep.Err(), &over)
	require.Equal(t, status.CodeOverrun, status.ErrorCode(rep.Err()))

	// The next cycle realigns to the following boundary.
	a.cost = 1500 * time.Microsecond
	rep = s.Cycle(context.Background())
	require.Nil(t, rep.Overrun)
	require.Equal(t, 6500*time.Microsecond, rep.Waited)
	require.Equal(t, uint16(1), s.Status().Overruns)
}

func TestLateStartCrossingBoundaryIsOverrun(t *testing.T) {
	r := newRig()
	a := &workAdapter{field: sensor.FieldVoltage, clk: r.clk, cost: 12 * time.Millisecond}
	s := r.build(t, Config{}, a)

	rep := s.Cycle(context.Background())
	require.NotNil(t, rep.Overrun)
	require.Equal(t, 2*time.Millisecond, rep.Overrun.Late)

	// Starts at 12ms, ends at 21ms: under one period of work, past the 20ms boundary.
	a.cost = 9 * time.Millisecond
	rep = s.Cycle(context.Background())
	require.Equal(t, 9*time.Millisecond, rep.Elapsed)
	require.Equal(t, time.Duration(0), rep.Waited)
	require.Equal(t, uint64(1), rep.Missed)
	require.NotNil(t, rep.Overrun)
	require.Equal(t, time.Millisecond, rep.Overrun.Late)
	require.Equal(t, time.Duration(0), rep.Slack)
	require.Equal(t, uint16(2), s.Status().Overruns)

	// Starts at 21ms, ends at 22ms, waits for 30ms.
	a.cost = time.Millisecond
	rep = s.Cycle(context.Background())
	require.Nil(t, rep.Overrun)
	require.Equal(t, 8*time.Millisecond, rep.Waited)
}

func TestCycleSkippedBoundariesAreOverrun(t *testing.T) {
	r := newRig()
	s := r.build(t, Config{}, &workAdapter{field: sensor.FieldVoltage, clk: r.clk, cost: 25 * time.Millisecond})

	rep := s.Cycle(context.Background())
	require.NotNil(t, rep.Overrun)
	require.Equal(t, uint64(2), rep.Missed)
	require.Equal(t, uint64(2), rep.Overrun.Missed)
}

func TestKnownCyclePayload(t *testing.T) {
	r := newRig()
	s := r.build(t, Config{},
		&workAdapter{field: sensor.FieldVoltage, clk: r.clk, code: 0x1234},
		&workAdapter{field: sensor.FieldPulses, clk: r.clk, code: 0x0005},
		&workAdapter{field: sensor.FieldExternal, clk: r.clk, code: 0x00FF},
	)

	rep := s.Cycle(context.Background())
	require.NoError(t, rep.Err())
	require.Equal(t, 1, rep.Published)
	require.Len(t, r.pub.frames, 1)
	require.Equal(t, uint32(0x12), r.pub.frames[0].id)
	require.Equal(t, uint8(8), r.pub.frames[0].n)
	require.Equal(t, [8]byte{0x12, 0x34, 0x00, 0x05, 0x00, 0xFF, 0x00, 0x00}, r.pub.frames[0].payload)
}

func TestAcquisitionOrderIsFixed(t *testing.T) {
	r := newRig()
	var order []sensor.Field
	mk := func(f sensor.Field) *workAdapter {
		return &workAdapter{field: f, clk: r.clk, order: &order, raw: []byte{1, 2}}
	}
	s := r.build(t, Config{},
		mk(sensor.FieldExternal), mk(sensor.FieldPressure), mk(sensor.FieldVoltage), mk(sensor.FieldPulses))

	for i := 0; i < 3; i++ {
		s.Cycle(context.Background())
	}
	want := []sensor.Field{sensor.FieldVoltage, sensor.FieldPulses, sensor.FieldPressure, sensor.FieldExternal}
	require.Len(t, order, 12)
	for i := 0; i < 3; i++ {
		require.Equal(t, want, order[i*4:i*4+4])
	}
}

func TestPublishErrorDoesNotStopLoop(t *testing.T) {
	r := newRig()
	r.pub.fail = func(call int) error {
		if call == 1 {
			return &bus.PublishError{ID: 0x12, Err: bus.ErrBusOff}
		}
		return nil
	}
	var order []sensor.Field
	a := &workAdapter{field: sensor.FieldVoltage, clk: r.clk, order: &order, code: 7}

	s, err := New(Config{Period: period, Plan: frame.NewPlan(0x12, frame.PressureNone, 0)}, Deps{
		Adapters:  []sensor.Adapter{a},
		Publisher: r.pub,
		Timer:     r.timer,
		Clock:     r.clk,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	var reports []Report
	s.reporter = reporterFunc(func(rep Report) {
		reports = append(reports, rep)
		if len(reports) == 3 {
			cancel()
		}
	})

	require.ErrorIs(t, s.Run(ctx), context.Canceled)
	require.Len(t, reports, 3)
	require.ErrorIs(t, reports[0].PublishErr, bus.ErrBusOff)
	require.Equal(t, 0, reports[0].Published)
	require.NoError(t, reports[1].PublishErr)
	require.Equal(t, 1, reports[1].Published)
	require.Len(t, order, 3)
	require.Equal(t, 3, r.pub.calls)
	require.True(t, r.timer.stopped)
	require.Equal(t, status.HealthOK, s.Status().Health)
}

type reporterFunc func(Report)

func (f reporterFunc) Report(r Report) { f(r) }

func TestPulseCounterClearedOncePerCycle(t *testing.T) {
	r := newRig()
	unit := sim.NewPCNT()
	pc, err := sensor.NewPulseCounter(unit, sensor.PulseConfig{HighLimit: 255, FilterWindow: 800})
	require.NoError(t, err)
	s := r.build(t, Config{}, pc)

	for i := 0; i < 5; i++ {
		unit.Edge(0, true, 1000)
	}
	rep := s.Cycle(context.Background())
	require.NoError(t, rep.Err())
	require.Equal(t, uint16(5), frame.Decode(r.pub.frames[0].payload).Pulses)

	n, _ := unit.Count()
	require.Zero(t, n)

	rep = s.Cycle(context.Background())
	require.NoError(t, rep.Err())
	require.Zero(t, frame.Decode(r.pub.frames[1].payload).Pulses)
}

func TestPulseSaturationFlagged(t *testing.T) {
	r := newRig()
	unit := sim.NewPCNT()
	pc, err := sensor.NewPulseCounter(unit, sensor.PulseConfig{HighLimit: 3})
	require.NoError(t, err)
	s := r.build(t, Config{}, pc)

	for i := 0; i < 10; i++ {
		unit.Edge(0, true, 0)
	}
	rep := s.Cycle(context.Background())
	require.True(t, rep.Saturated)
	require.Equal(t, uint16(3), frame.Decode(r.pub.frames[0].payload).Pulses)
}

func TestAcquisitionFailureZeroPolicy(t *testing.T) {
	r := newRig()
	boom := errors.New("adc stuck")
	s := r.build(t, Config{Policy: PolicyZero},
		&workAdapter{field: sensor.FieldVoltage, clk: r.clk, err: boom},
		&workAdapter{field: sensor.FieldExternal, clk: r.clk, code: 0xABCD},
	)

	rep := s.Cycle(context.Background())
	require.ErrorIs(t, rep.AcquireErr, boom)
	var ae *sensor.AcquisitionError
	require.ErrorAs(t, rep.AcquireErr, &ae)
	require.Equal(t, sensor.FieldVoltage, ae.Field)
	require.False(t, rep.Skipped)

	f := frame.Decode(r.pub.frames[0].payload)
	require.Zero(t, f.Voltage)
	require.Equal(t, uint16(0xABCD), f.External)
	require.Equal(t, status.HealthStale, s.Status().Health)
}

func TestAcquisitionFailureSkipPolicy(t *testing.T) {
	r := newRig()
	a := &workAdapter{field: sensor.FieldVoltage, clk: r.clk, err: sensor.ErrShortResponse}
	s := r.build(t, Config{Policy: PolicySkip}, a)

	rep := s.Cycle(context.Background())
	require.True(t, rep.Skipped)
	require.Empty(t, r.pub.frames)
	require.Error(t, rep.Err())
	require.Equal(t, status.HealthDisabled, s.Status().Health)

	// Recovery publishes again.
	a.err = nil
	rep = s.Cycle(context.Background())
	require.False(t, rep.Skipped)
	require.Len(t, r.pub.frames, 1)
}

func TestStatusFramePublished(t *testing.T) {
	r := newRig()
	s := r.build(t, Config{StatusID: 0x7F0, StatusEvery: 2},
		&workAdapter{field: sensor.FieldVoltage, clk: r.clk, cost: 12 * time.Millisecond})

	rep := s.Cycle(context.Background())
	require.False(t, rep.StatusSent)
	rep = s.Cycle(context.Background())
	require.True(t, rep.StatusSent)

	require.Len(t, r.pub.frames, 3)
	st := r.pub.frames[2]
	require.Equal(t, uint32(0x7F0), st.id)
	require.Equal(t, uint8(status.FrameLen), st.n)

	snap := status.Decode(st.payload)
	require.Equal(t, status.HealthOK, snap.Health)
	require.Equal(t, uint16(1), snap.Overruns)
	require.Equal(t, status.CodeOverrun, snap.LastErrorCode)
}

func TestSeparatePressureFrame(t *testing.T) {
	r := newRig()
	s := r.build(t, Config{Plan: frame.NewPlan(0x12, frame.PressureSeparate, 0x13)},
		&workAdapter{field: sensor.FieldPressure, clk: r.clk, raw: []byte{0xAA, 0xBB, 0xCC}})

	rep := s.Cycle(context.Background())
	require.Equal(t, 2, rep.Published)
	require.Equal(t, uint32(0x13), r.pub.frames[1].id)
	require.Equal(t, uint8(3), r.pub.frames[1].n)
	require.Equal(t, [8]byte{0xAA, 0xBB, 0xCC}, r.pub.frames[1].payload)
}

func TestStateMachine(t *testing.T) {
	r := newRig()
	s, err := New(Config{Period: period, Plan: frame.NewPlan(0x12, frame.PressureNone, 0)}, Deps{
		Publisher: r.pub, Timer: r.timer, Clock: r.clk, Reporter: r.rep,
	})
	require.NoError(t, err)
	require.Equal(t, StateIdle, s.State())

	rep := s.Cycle(context.Background())
	require.Error(t, rep.WaitErr)
	require.Equal(t, StateIdle, s.State())

	require.NoError(t, s.Arm())
	require.Equal(t, StateArmed, s.State())
	require.True(t, r.timer.started)
	require.Error(t, s.Arm())

	s.Cycle(context.Background())
	require.Equal(t, StateRunning, s.State())
	require.Equal(t, "running", s.State().String())
}

func TestRunStopsOnTimerFailure(t *testing.T) {
	r := newRig()
	r.timer.err = errors.New("timer dead")
	s := r.build(t, Config{})

	err := s.Run(context.Background())
	require.ErrorContains(t, err, "timer dead")
	require.Len(t, r.rep.reports, 1)
}

func TestNewRejectsBadWiring(t *testing.T) {
	r := newRig()
	plan := frame.NewPlan(0x12, frame.PressureNone, 0)

	_, err := New(Config{Plan: plan}, Deps{Publisher: r.pub, Timer: r.timer})
	require.Error(t, err)
	_, err = New(Config{Period: period}, Deps{Publisher: r.pub, Timer: r.timer})
	require.Error(t, err)
	_, err = New(Config{Period: period, Plan: plan}, Deps{Timer: r.timer})
	require.Error(t, err)
	_, err = New(Config{Period: period, Plan: plan}, Deps{Publisher: r.pub})
	require.Error(t, err)

	_, err = New(Config{Period: period, Plan: plan}, Deps{
		Publisher: r.pub, Timer: r.timer,
		Adapters: []sensor.Adapter{
			&workAdapter{field: sensor.FieldVoltage, clk: r.clk},
			&workAdapter{field: sensor.FieldVoltage, clk: r.clk},
		},
	})
	require.ErrorContains(t, err, "two adapters for voltage")
}

func TestParseFailurePolicy(t *testing.T) {
	p, err := ParseFailurePolicy("")
	require.NoError(t, err)
	require.Equal(t, PolicyZero, p)
	p, err = ParseFailurePolicy("skip")
	require.NoError(t, err)
	require.Equal(t, PolicySkip, p)
	_, err = ParseFailurePolicy("stale")
	require.Error(t, err)
}

func TestEndToEndOverLoopback(t *testing.T) {
	seg := bus.NewLoopback(0)
	defer seg.Close()
	node, err := seg.Open(bus.NodeConfig{SelfReception: true, Filter: bus.Acceptance(0x12, 0x7FF)})
	require.NoError(t, err)

	adc := sim.NewADC(12)
	adc.Set(0, 0x0234)

	clk := newFakeClock()
	s, err := New(Config{Period: period, Plan: frame.NewPlan(0x12, frame.PressureNone, 0)}, Deps{
		Adapters:  []sensor.Adapter{sensor.NewVoltage(adc, 0)},
		Publisher: bus.NewPublisher(node, 5*time.Millisecond),
		Timer:     &fakeTimer{clk: clk},
		Clock:     clk,
		Reporter:  &quietReporter{},
	})
	require.NoError(t, err)
	require.NoError(t, s.Arm())

	rep := s.Cycle(context.Background())
	require.NoError(t, rep.Err())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	f, err := node.Receive(ctx)
	require.NoError(t, err)
	require.Equal(t, "012 [8] 02 34 00 00 00 00 00 00", f.String())
}

func TestRunForeverReturnsOnlyWhenTimerBreaks(t *testing.T) {
	r := newRig()
	r.timer.err = errors.New("timer group fault")
	s, err := New(Config{Period: period, Plan: frame.NewPlan(0x12, frame.PressureNone, 0)}, Deps{
		Publisher: r.pub, Timer: r.timer, Clock: r.clk, Reporter: r.rep,
	})
	require.NoError(t, err)

	require.ErrorContains(t, s.RunForever(), "timer group fault")
	require.True(t, r.timer.started)
	require.Len(t, r.pub.frames, 1)
}

func TestReportersFanOut(t *testing.T) {
	rec := &quietReporter{}
	rep := Report{
		Seq:        4,
		AcquireErr: &sensor.AcquisitionError{Field: sensor.FieldPressure, Err: sensor.ErrShortResponse},
		Overrun:    &DeadlineOverrun{Seq: 4, Period: period, Elapsed: 12 * time.Millisecond, Missed: 1},
	}
	Reporters{LogReporter{}, rec}.Report(rep)
	require.Len(t, rec.reports, 1)
	require.Equal(t, uint64(4), rec.reports[0].Seq)
}
