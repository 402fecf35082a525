package flight

import (
	"errors"
	"sync/atomic"
	"time"

	"helirig/internal/input"
	"helirig/internal/rotor"
)

// Config holds the machine's increments, timings and tolerances.
type Config struct {
	// TickPeriod is the duration of one SchedulerGate tick.
	TickPeriod time.Duration

	HeightIncrement int32
	YawIncrement    int32

	// SpinUpDuty is the main rotor duty (percent) used while calibrating.
	SpinUpDuty int
	// PreloadBias is the integral seed applied when climbing from zero height.
	PreloadBias float64

	DescentPeriod  time.Duration
	LandingTimeout time.Duration

	YawSampleTolerance    uint16
	HeightSampleTolerance uint16
}

// DefaultConfig returns the rig's stock tuning.
func DefaultConfig() Config {
	return Config{
		TickPeriod:            5 * time.Millisecond,
		HeightIncrement:       10,
		YawIncrement:          15,
		SpinUpDuty:            25,
		PreloadBias:           20,
		DescentPeriod:         35 * time.Millisecond,
		LandingTimeout:        10 * time.Second,
		YawSampleTolerance:    2,
		HeightSampleTolerance: 1,
	}
}

// Deps are the collaborators the machine drives. All are required.
type Deps struct {
	Height    HeightSensor
	Yaw       YawSensor
	HeightCtl HeightController
	YawCtl    Controller
	Motors    MotorActuator
	Buttons   ButtonInput
	Switch    SwitchInput
	Gate      SchedulerGate
	Setpoint  *SetpointBox
}

func (d Deps) validate() error {
	var errs []error
	check := func(ok bool, name string) {
		if !ok {
			errs = append(errs, errors.New("flight: "+name+" is nil"))
		}
	}
	check(d.Height != nil, "height sensor")
	check(d.Yaw != nil, "yaw sensor")
	check(d.HeightCtl != nil, "height controller")
	check(d.YawCtl != nil, "yaw controller")
	check(d.Motors != nil, "motor actuator")
	check(d.Buttons != nil, "button input")
	check(d.Switch != nil, "switch input")
	check(d.Gate != nil, "scheduler gate")
	check(d.Setpoint != nil, "setpoint box")
	return errors.Join(errs...)
}

// Per-mode state. Data that only means something in one mode lives on that
// mode's type, so it is dropped on every transition out of it.
type state interface {
	mode() Mode
}

type landedState struct{}

type initState struct {
	// triggered is set once calibration has been kicked off this episode.
	triggered bool
}

type flyingState struct{}

type landingState struct {
	yawAligned      bool
	heightConverged bool
	since           uint64
}

func (landedState) mode() Mode  { return Landed }
func (initState) mode() Mode    { return Init }
func (flyingState) mode() Mode  { return Flying }
func (landingState) mode() Mode { return Landing }

// Machine is the flight-mode state machine. Poll advances it by one input
// tick; it is meant to be driven from a single goroutine. Mode and the
// setpoint may be read concurrently.
type Machine struct {
	cfg  Config
	deps Deps

	tracker *ErrorConvergenceTracker

	st      state
	modeVal atomic.Int32
}

// New validates deps, fills unset config fields from DefaultConfig (except
// PreloadBias, where 0 is meaningful) and returns a machine in Landed. Call
// Init before the first Poll.
func New(cfg Config, deps Deps) (*Machine, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	def := DefaultConfig()
	if cfg.TickPeriod <= 0 {
		cfg.TickPeriod = def.TickPeriod
	}
	if cfg.HeightIncrement <= 0 {
		cfg.HeightIncrement = def.HeightIncrement
	}
	if cfg.YawIncrement <= 0 {
		cfg.YawIncrement = def.YawIncrement
	}
	if cfg.SpinUpDuty <= 0 {
		cfg.SpinUpDuty = def.SpinUpDuty
	}
	if cfg.DescentPeriod <= 0 {
		cfg.DescentPeriod = def.DescentPeriod
	}
	if cfg.LandingTimeout <= 0 {
		cfg.LandingTimeout = def.LandingTimeout
	}
	if cfg.YawSampleTolerance == 0 {
		cfg.YawSampleTolerance = def.YawSampleTolerance
	}
	if cfg.HeightSampleTolerance == 0 {
		cfg.HeightSampleTolerance = def.HeightSampleTolerance
	}
	m := &Machine{
		cfg:     cfg,
		deps:    deps,
		tracker: NewErrorConvergenceTracker(cfg.YawSampleTolerance, cfg.HeightSampleTolerance),
	}
	m.setState(landedState{})
	return m, nil
}

// Init puts the rig on the ground: rotors off, zero setpoint, fresh
// controllers, and the high-rate task running.
func (m *Machine) Init() {
	d := m.deps
	d.Motors.Disable(rotor.Main)
	d.Motors.Disable(rotor.Tail)
	d.Setpoint.Store(Setpoint{})
	d.HeightCtl.Reset()
	d.YawCtl.Reset()
	m.tracker.Reset()
	d.Gate.Enable()
	m.setState(landedState{})
}

// Mode returns the current flight mode.
func (m *Machine) Mode() Mode { return Mode(m.modeVal.Load()) }

// Setpoint returns the current height and yaw targets.
func (m *Machine) Setpoint() Setpoint { return m.deps.Setpoint.Load() }

// Poll consumes one switch event (every mode reads it, only Landed and
// Flying act on it) and advances the machine.
func (m *Machine) Poll() {
	ev := m.deps.Switch.PollEdgeEvent()

	var next state
	switch st := m.st.(type) {
	case landedState:
		next = m.pollLanded(ev)
	case initState:
		next = m.pollInit(st)
	case flyingState:
		next = m.pollFlying(ev)
	case landingState:
		next = m.pollLanding(st)
	default:
		next = landedState{}
	}
	m.setState(next)
}

func (m *Machine) setState(s state) {
	m.st = s
	m.modeVal.Store(int32(s.mode()))
}

func (m *Machine) pollLanded(ev input.Edge) state {
	if ev == input.EdgeUp {
		return initState{}
	}
	return landedState{}
}

func (m *Machine) pollInit(st initState) state {
	d := m.deps
	if !st.triggered {
		st.triggered = true
		// Controllers stay off while the zero reading is taken.
		d.Gate.Disable()
		// The search clears a reference latched by an earlier flight, so it
		// runs before ReferenceFound is consulted.
		d.Yaw.TriggerReferenceSearch()
		d.Height.TriggerZeroCalibration()
		d.Motors.SetDutyCycle(rotor.Main, m.cfg.SpinUpDuty)
		d.Motors.Enable(rotor.Main)
		return st
	}
	if d.Yaw.ReferenceFound() {
		d.YawCtl.Reset()
		d.HeightCtl.Reset()
		d.Motors.Enable(rotor.Main)
		d.Motors.Enable(rotor.Tail)
		d.Gate.Enable()
		d.Buttons.ResetAll()
		return flyingState{}
	}
	return st
}

func (m *Machine) pollFlying(ev input.Edge) state {
	if ev == input.EdgeDown {
		return landingState{}
	}

	d := m.deps
	var presses [input.NumButtons]int64
	for b := input.Button(0); b < input.NumButtons; b++ {
		presses[b] = int64(d.Buttons.TakePressCount(b))
	}

	sp := d.Setpoint.Load()
	inc := int64(m.cfg.HeightIncrement)
	if n := presses[input.Up]; n > 0 {
		if sp.Height == 0 {
			d.HeightCtl.Preload(m.cfg.PreloadBias, m.cfg.HeightIncrement)
		}
		sp.Height = clampHeight(int64(sp.Height) + n*inc)
	}
	if n := presses[input.Down]; n > 0 {
		sp.Height = clampHeight(int64(sp.Height) - n*inc)
	}

	// Yaw commands are ignored on the ground.
	if sp.Height > 0 {
		yawInc := int64(m.cfg.YawIncrement)
		if n := presses[input.Left]; n > 0 {
			sp.Yaw = clampYaw(int64(sp.Yaw) - n*yawInc)
		}
		if n := presses[input.Right]; n > 0 {
			sp.Yaw = clampYaw(int64(sp.Yaw) + n*yawInc)
		}
	}
	d.Setpoint.Store(sp)
	return flyingState{}
}

func (m *Machine) pollLanding(st landingState) state {
	d := m.deps
	sp := d.Setpoint.Load()

	m.tracker.Record(absError(d.Yaw.Yaw(), sp.Yaw), absError(d.Height.HeightPercent(), sp.Height))
	yawOK := m.tracker.YawReached()
	heightOK := m.tracker.HeightReached()

	switch {
	case !st.yawAligned:
		sp.Yaw = d.Yaw.ClosestReference(sp.Yaw)
		d.Setpoint.Store(sp)
		m.tracker.Reset()
		st.since = d.Gate.TickCount()
		st.yawAligned = true

	case !st.heightConverged && yawOK:
		st.heightConverged = true

	case sp.Height == 0:
		// Land once height has settled; give up on yaw after the timeout.
		if heightOK && (yawOK || m.elapsed(st.since) > m.cfg.LandingTimeout) {
			d.Motors.Disable(rotor.Main)
			d.Motors.Disable(rotor.Tail)
			return landedState{}
		}

	case st.heightConverged:
		if m.elapsed(st.since) >= m.cfg.DescentPeriod {
			sp.Height--
			d.Setpoint.Store(sp)
			st.since = d.Gate.TickCount()
		}
	}
	return st
}

func (m *Machine) elapsed(since uint64) time.Duration {
	return time.Duration(m.deps.Gate.TicksSince(since)) * m.cfg.TickPeriod
}

func clampYaw(v int64) int32 {
	const lo, hi = -1 << 31, 1<<31 - 1
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return int32(v)
}
