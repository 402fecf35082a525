package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"helirig/internal/config"
	"helirig/internal/control"
	"helirig/internal/flight"
	"helirig/internal/flightlog"
	"helirig/internal/height"
	"helirig/internal/host"
	"helirig/internal/i2c"
	"helirig/internal/input"
	"helirig/internal/rotor"
	"helirig/internal/scheduler"
	"helirig/internal/sensors/ads1115"
	"helirig/internal/sim"
	"helirig/internal/telemetry"
	"helirig/internal/web"
	"helirig/internal/yaw"
)

// rigRuntime owns every component of a running rig.
type rigRuntime struct {
	cfg config.Config

	gate     *scheduler.Gate
	machine  *flight.Machine
	sp       *flight.SetpointBox
	motors   *rotor.Actuator
	heightS  *height.Sensor
	yawS     *yaw.Sensor
	heightC  *control.Height
	yawC     *control.Yaw
	panel    input.Panel
	rig      *sim.Rig
	player   *sim.Player
	reporter *telemetry.Reporter

	status *web.Status
	frames *web.FrameBroadcaster
	logs   *web.LogBuffer

	closers []func() error
}

// nopEncoder stands in for the yaw sensor when the simulated rig runs next
// to a real encoder.
type nopEncoder struct{}

func (nopEncoder) Prime(a, b bool) {}
func (nopEncoder) Edge(a, b bool)  {}
func (nopEncoder) Reference()      {}

func newRigRuntime(cfg config.Config, logs *web.LogBuffer) (rt *rigRuntime, err error) {
	if err := config.DefaultAndValidate(&cfg); err != nil {
		return nil, err
	}
	rt = &rigRuntime{
		cfg:    cfg,
		sp:     &flight.SetpointBox{},
		panel:  input.Panel{Buttons: &input.Buttons{}, Switch: &input.Switch{}},
		status: web.NewStatus(),
		frames: web.NewFrameBroadcaster(),
		logs:   logs,
	}
	defer func() {
		if err != nil {
			_ = rt.Close()
			rt = nil
		}
	}()

	period, err := scheduler.FromHz(cfg.Scheduler.ControlHz)
	if err != nil {
		return nil, err
	}
	rt.gate = scheduler.New(period)

	rt.yawS, err = yaw.New(cfg.Yaw.Slots)
	if err != nil {
		return nil, err
	}

	if rt.usesSim() {
		rc := sim.DefaultRigConfig()
		rc.FullScale = cfg.Height.FullScale
		rc.HoverDuty = cfg.Control.HoverDuty
		rc.Slots = cfg.Yaw.Slots
		rc.StartYaw = cfg.Sim.StartYaw
		var enc sim.EncoderSink = nopEncoder{}
		if cfg.Yaw.Backend == config.BackendSim {
			enc = rt.yawS
		}
		rt.rig = sim.NewRig(rc, enc)
	}

	if err := rt.openRotors(); err != nil {
		return nil, err
	}
	if err := rt.openHeight(); err != nil {
		return nil, err
	}
	if err := rt.openYaw(); err != nil {
		return nil, err
	}
	if err := rt.openInputs(); err != nil {
		return nil, err
	}

	c := cfg.Control
	rt.heightC = control.NewHeight(control.HeightConfig{
		Gains:     control.Gains{Kp: c.Height.Kp, Ki: c.Height.Ki, Kd: c.Height.Kd},
		HoverDuty: c.HoverDuty,
	}, rt.heightS, rt.motors, rt.sp)
	rt.yawC = control.NewYaw(control.YawConfig{
		Gains:      control.Gains{Kp: c.Yaw.Kp, Ki: c.Yaw.Ki, Kd: c.Yaw.Kd},
		TailOffset: c.TailOffset,
	}, rt.yawS, rt.motors, rt.sp)

	rt.gate.OnSample(func(time.Duration) { rt.heightS.Sample() })
	rt.gate.OnControl(rt.heightC.Update)
	rt.gate.OnControl(rt.yawC.Update)

	f := cfg.Flight
	rt.machine, err = flight.New(flight.Config{
		TickPeriod:            period,
		HeightIncrement:       f.HeightIncrement,
		YawIncrement:          f.YawIncrement,
		SpinUpDuty:            f.SpinUpDuty,
		PreloadBias:           f.PreloadBias,
		DescentPeriod:         f.DescentPeriod,
		LandingTimeout:        f.LandingTimeout,
		YawSampleTolerance:    f.YawTolerance,
		HeightSampleTolerance: f.HeightTolerance,
	}, flight.Deps{
		Height:    rt.heightS,
		Yaw:       rt.yawS,
		HeightCtl: rt.heightC,
		YawCtl:    rt.yawC,
		Motors:    rt.motors,
		Buttons:   rt.panel.Buttons,
		Switch:    rt.panel.Switch,
		Gate:      rt.gate,
		Setpoint:  rt.sp,
	})
	if err != nil {
		return nil, err
	}
	rt.machine.Init()

	if cfg.Sim.Script != "" {
		script, err := sim.LoadInputScript(cfg.Sim.Script)
		if err != nil {
			return nil, err
		}
		rt.player, err = sim.NewPlayer(script, rt.panel)
		if err != nil {
			return nil, fmt.Errorf("sim script %s: %w", cfg.Sim.Script, err)
		}
	}

	sinks := []telemetry.Sink{rt.status, rt.frames}
	if dev := cfg.Telemetry.SerialDevice; dev != "" {
		ser, err := telemetry.OpenSerial(dev, cfg.Telemetry.Baud)
		if err != nil {
			// The console is optional; fly without it.
			log.Printf("telemetry: serial disabled: %v", err)
		} else {
			sinks = append(sinks, ser)
			rt.closers = append(rt.closers, ser.Close)
		}
	}
	if dest := cfg.Telemetry.UDPDest; dest != "" {
		u, err := telemetry.OpenUDP(dest)
		if err != nil {
			log.Printf("telemetry: udp disabled: %v", err)
		} else {
			sinks = append(sinks, u)
			rt.closers = append(rt.closers, u.Close)
		}
	}
	if path := cfg.Telemetry.RecordPath; path != "" {
		w, err := flightlog.Create(path)
		if err != nil {
			log.Printf("telemetry: recording disabled: %v", err)
		} else {
			sinks = append(sinks, w)
			rt.closers = append(rt.closers, w.Close)
		}
	}
	rt.reporter, err = telemetry.NewReporter(cfg.Telemetry.Interval, rt.frame, sinks...)
	if err != nil {
		return nil, err
	}

	rt.status.SetBackends(map[string]string{
		"rotors": cfg.Rotors.Backend,
		"height": cfg.Height.Backend,
		"yaw":    cfg.Yaw.Backend,
		"inputs": cfg.Inputs.Backend,
	})
	rt.status.SetDetails(rt.details)
	return rt, nil
}

func (rt *rigRuntime) usesSim() bool {
	c := rt.cfg
	return c.Rotors.Backend == config.BackendSim ||
		c.Height.Backend == config.BackendSim ||
		c.Yaw.Backend == config.BackendSim
}

func (rt *rigRuntime) openRotors() error {
	c := rt.cfg.Rotors
	if c.Backend == config.BackendSim {
		a, err := rotor.NewActuator(rt.rig.Driver(rotor.Main), rt.rig.Driver(rotor.Tail), c.FrequencyHz)
		if err != nil {
			return err
		}
		rt.motors = a
		rt.closers = append(rt.closers, a.Close)
		return nil
	}
	armLine := func(p *int) int {
		if p == nil {
			return -1
		}
		return *p
	}
	a, err := rotor.Open(rotor.Config{
		PWMChip:     c.PWMChip,
		MainChannel: c.MainChannel,
		TailChannel: c.TailChannel,
		FrequencyHz: c.FrequencyHz,
		ArmChip:     c.ArmChip,
		MainArmLine: armLine(c.MainArmLine),
		TailArmLine: armLine(c.TailArmLine),
	})
	if err != nil {
		return err
	}
	rt.motors = a
	rt.closers = append(rt.closers, a.Close)
	return nil
}

func (rt *rigRuntime) openHeight() error {
	c := rt.cfg.Height
	hc := height.Config{FullScale: c.FullScale, ZeroSamples: c.ZeroSamples}
	var src height.Source = rt.rig
	if c.Backend == config.BackendADS1115 {
		bus, err := i2c.Open(i2c.BusPath(c.I2CBus))
		if err != nil {
			return fmt.Errorf("height: %w", err)
		}
		rt.closers = append(rt.closers, bus.Close)
		adc, err := ads1115.New(bus.Dev(c.Addr))
		if err != nil {
			return fmt.Errorf("height: %w", err)
		}
		src = adc
	}
	s, err := height.New(hc, src)
	if err != nil {
		return err
	}
	rt.heightS = s
	return nil
}

func (rt *rigRuntime) openYaw() error {
	c := rt.cfg.Yaw
	if c.Backend == config.BackendSim {
		return nil
	}
	g, err := yaw.OpenGPIO(yaw.GPIOConfig{
		Chip:      c.GPIOChip,
		ChannelA:  c.ChannelA,
		ChannelB:  c.ChannelB,
		Reference: c.Reference,
	}, rt.yawS)
	if err != nil {
		return err
	}
	rt.closers = append(rt.closers, g.Close)
	return nil
}

func (rt *rigRuntime) openInputs() error {
	c := rt.cfg.Inputs
	if c.Backend == config.BackendSim {
		return nil
	}
	var lines [input.NumButtons]int
	lines[input.Up] = c.Up
	lines[input.Down] = c.Down
	lines[input.Left] = c.Left
	lines[input.Right] = c.Right
	g, err := input.OpenGPIO(input.GPIOConfig{
		Chip:      c.GPIOChip,
		Lines:     lines,
		Switch:    c.Switch,
		Debounce:  c.Debounce,
		ActiveLow: c.ActiveLow,
	}, rt.panel.Buttons, rt.panel.Switch)
	if err != nil {
		return err
	}
	rt.closers = append(rt.closers, g.Close)
	return nil
}

// frame samples the rig for telemetry.
func (rt *rigRuntime) frame() telemetry.Frame {
	sp := rt.sp.Load()
	ms := rt.motors.Snapshot()
	return telemetry.Frame{
		Mode:         rt.machine.Mode().String(),
		Yaw:          rt.yawS.Yaw(),
		YawTarget:    sp.Yaw,
		Height:       rt.heightS.HeightPercent(),
		HeightTarget: sp.Height,
		MainDuty:     ms.Main.Duty,
		TailDuty:     ms.Tail.Duty,
		MainEnabled:  ms.Main.Enabled,
		TailEnabled:  ms.Tail.Enabled,
		Ticks:        rt.gate.TickCount(),
	}
}

func (rt *rigRuntime) details() map[string]any {
	d := map[string]any{
		"height":    rt.heightS.Snapshot(),
		"yaw":       rt.yawS.Snapshot(),
		"rotors":    rt.motors.Snapshot(),
		"scheduler": map[string]any{"enabled": rt.gate.Enabled(), "period": rt.gate.Period().String()},
		"host":      host.Read(),
	}
	if rt.rig != nil {
		d["sim"] = rt.rig.State()
	}
	return d
}

// Run drives the rig until ctx is canceled, then grounds it.
func (rt *rigRuntime) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	errCh := make(chan error, 6)
	start := func(name string, fn func(context.Context) error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fn(ctx); err != nil && ctx.Err() == nil {
				errCh <- fmt.Errorf("%s: %w", name, err)
				cancel()
			}
		}()
	}

	if rt.rig != nil {
		start("sim", func(ctx context.Context) error { return rt.rig.Run(ctx, rt.gate.Period()) })
	}
	start("scheduler", rt.gate.Run)
	start("flight", rt.pollLoop)
	start("telemetry", rt.reporter.Run)
	if rt.player != nil {
		start("script", rt.player.Run)
	}
	if listen := rt.cfg.Web.Listen; listen != config.WebOff {
		log.Printf("web listening on %s", listen)
		var inputs web.InputController = rt.panel
		start("web", func(ctx context.Context) error {
			return web.Serve(ctx, listen, rt.status, rt.logs, rt.frames, inputs)
		})
	}

	<-ctx.Done()
	wg.Wait()
	rt.ground()
	close(errCh)

	var errs []error
	for err := range errCh {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (rt *rigRuntime) pollLoop(ctx context.Context) error {
	t := time.NewTicker(rt.cfg.Flight.PollInterval)
	defer t.Stop()
	last := rt.machine.Mode()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			rt.machine.Poll()
			if mode := rt.machine.Mode(); mode != last {
				log.Printf("flight: mode %s -> %s", last, mode)
				last = mode
			}
		}
	}
}

// ground stops the controllers and both rotors.
func (rt *rigRuntime) ground() {
	rt.gate.Disable()
	rt.motors.Disable(rotor.Main)
	rt.motors.Disable(rotor.Tail)
}

func (rt *rigRuntime) Close() error {
	var errs []error
	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	rt.closers = nil
	return errors.Join(errs...)
}
