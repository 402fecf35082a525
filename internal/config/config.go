package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Flight    FlightConfig    `yaml:"flight"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Rotors    RotorsConfig    `yaml:"rotors"`
	Height    HeightConfig    `yaml:"height"`
	Yaw       YawConfig       `yaml:"yaw"`
	Inputs    InputsConfig    `yaml:"inputs"`
	Control   ControlConfig   `yaml:"control"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Web       WebConfig       `yaml:"web"`
	Sim       SimConfig       `yaml:"sim"`
}

type FlightConfig struct {
	PollInterval    time.Duration `yaml:"poll_interval"`
	HeightIncrement int32         `yaml:"height_increment"`
	YawIncrement    int32         `yaml:"yaw_increment"`
	SpinUpDuty      int           `yaml:"spin_up_duty"`
	PreloadBias     float64       `yaml:"preload_bias"`
	DescentPeriod   time.Duration `yaml:"descent_period"`
	LandingTimeout  time.Duration `yaml:"landing_timeout"`
	YawTolerance    uint16        `yaml:"yaw_tolerance"`
	HeightTolerance uint16        `yaml:"height_tolerance"`
}

type SchedulerConfig struct {
	ControlHz int `yaml:"control_hz"`
}

type RotorsConfig struct {
	Backend     string `yaml:"backend"`
	PWMChip     string `yaml:"pwm_chip"`
	MainChannel int    `yaml:"main_channel"`
	TailChannel int    `yaml:"tail_channel"`
	FrequencyHz int    `yaml:"frequency_hz"`

	// Optional GPIO lines that must be driven high to arm each ESC.
	ArmChip     string `yaml:"arm_chip"`
	MainArmLine *int   `yaml:"main_arm_line"`
	TailArmLine *int   `yaml:"tail_arm_line"`
}

type HeightConfig struct {
	Backend     string `yaml:"backend"`
	I2CBus      int    `yaml:"i2c_bus"`
	Addr        uint16 `yaml:"addr"`
	FullScale   int32  `yaml:"full_scale"`
	ZeroSamples int    `yaml:"zero_samples"`
}

type YawConfig struct {
	Backend   string `yaml:"backend"`
	GPIOChip  string `yaml:"gpio_chip"`
	ChannelA  int    `yaml:"channel_a"`
	ChannelB  int    `yaml:"channel_b"`
	Reference int    `yaml:"reference"`
	Slots     int    `yaml:"slots"`
}

type InputsConfig struct {
	Backend   string        `yaml:"backend"`
	GPIOChip  string        `yaml:"gpio_chip"`
	Up        int           `yaml:"up"`
	Down      int           `yaml:"down"`
	Left      int           `yaml:"left"`
	Right     int           `yaml:"right"`
	Switch    int           `yaml:"switch"`
	Debounce  time.Duration `yaml:"debounce"`
	ActiveLow bool          `yaml:"active_low"`
}

type GainsConfig struct {
	Kp float64 `yaml:"kp"`
	Ki float64 `yaml:"ki"`
	Kd float64 `yaml:"kd"`
}

type ControlConfig struct {
	Height     GainsConfig `yaml:"height"`
	Yaw        GainsConfig `yaml:"yaw"`
	HoverDuty  float64     `yaml:"hover_duty"`
	TailOffset float64     `yaml:"tail_offset"`
}

type TelemetryConfig struct {
	SerialDevice string        `yaml:"serial_device"`
	Baud         int           `yaml:"baud"`
	Interval     time.Duration `yaml:"interval"`
	// UDPDest is an optional host:port that receives one JSON datagram per frame.
	UDPDest string `yaml:"udp_dest"`
	// RecordPath is an optional flight log file; frames are appended.
	RecordPath string `yaml:"record_path"`
}

type WebConfig struct {
	Listen string `yaml:"listen"`
}

type SimConfig struct {
	// Script is an optional input script played from startup.
	Script   string  `yaml:"script"`
	StartYaw float64 `yaml:"start_yaw"`
}

const (
	BackendSim     = "sim"
	BackendSysfs   = "sysfs"
	BackendADS1115 = "ads1115"
	BackendGPIO    = "gpio"
)

const WebOff = "off"

func Load(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	return Parse(b)
}

// Parse decodes YAML, rejecting unknown keys, then applies defaults.
func Parse(b []byte) (Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		var te *yaml.TypeError
		if errors.As(err, &te) {
			return Config{}, unknownFieldsError(te)
		}
		return Config{}, err
	}
	if err := DefaultAndValidate(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func unknownFieldsError(te *yaml.TypeError) error {
	msgs := make([]string, 0, len(te.Errors))
	unknown := true
	for _, e := range te.Errors {
		// Drop the "line N: " prefix.
		if strings.HasPrefix(e, "line ") {
			if _, rest, ok := strings.Cut(e, ": "); ok {
				e = rest
			}
		}
		if !strings.Contains(e, "not found in type") {
			unknown = false
		}
		msgs = append(msgs, e)
	}
	if unknown {
		return fmt.Errorf("config contains unknown fields: %s", strings.Join(msgs, "; "))
	}
	return fmt.Errorf("config contains invalid values: %s", strings.Join(msgs, "; "))
}

// ForceSim switches every hardware backend to the simulator.
func (c *Config) ForceSim() {
	c.Rotors.Backend = BackendSim
	c.Height.Backend = BackendSim
	c.Yaw.Backend = BackendSim
	c.Inputs.Backend = BackendSim
}

// DefaultAndValidate fills unset fields and rejects inconsistent ones.
func DefaultAndValidate(cfg *Config) error {
	f := &cfg.Flight
	if f.PollInterval <= 0 {
		f.PollInterval = 10 * time.Millisecond
	}
	if f.HeightIncrement == 0 {
		f.HeightIncrement = 10
	}
	if f.HeightIncrement < 0 || f.HeightIncrement > 100 {
		return fmt.Errorf("flight.height_increment must be in [1,100]")
	}
	if f.YawIncrement == 0 {
		f.YawIncrement = 15
	}
	if f.YawIncrement < 0 {
		return fmt.Errorf("flight.yaw_increment must be > 0")
	}
	if f.SpinUpDuty == 0 {
		f.SpinUpDuty = 25
	}
	if f.SpinUpDuty < 2 || f.SpinUpDuty > 98 {
		return fmt.Errorf("flight.spin_up_duty must be in [2,98]")
	}
	if f.PreloadBias == 0 {
		f.PreloadBias = 20
	}
	if f.PreloadBias < 0 {
		return fmt.Errorf("flight.preload_bias must be >= 0")
	}
	if f.DescentPeriod <= 0 {
		f.DescentPeriod = 35 * time.Millisecond
	}
	if f.LandingTimeout <= 0 {
		f.LandingTimeout = 10 * time.Second
	}
	if f.YawTolerance == 0 {
		f.YawTolerance = 2
	}
	if f.HeightTolerance == 0 {
		f.HeightTolerance = 1
	}

	if cfg.Scheduler.ControlHz == 0 {
		cfg.Scheduler.ControlHz = 200
	}
	if cfg.Scheduler.ControlHz < 0 || cfg.Scheduler.ControlHz > 2000 {
		return fmt.Errorf("scheduler.control_hz must be in [1,2000]")
	}
	if time.Second/time.Duration(cfg.Scheduler.ControlHz) > f.PollInterval {
		return fmt.Errorf("scheduler.control_hz is too low for flight.poll_interval %s", f.PollInterval)
	}

	r := &cfg.Rotors
	if r.Backend == "" {
		r.Backend = BackendSysfs
	}
	if r.Backend != BackendSysfs && r.Backend != BackendSim {
		return fmt.Errorf("rotors.backend must be 'sysfs' or 'sim'")
	}
	if r.TailChannel == 0 && r.MainChannel == 0 {
		r.TailChannel = 1
	}
	if r.MainChannel < 0 || r.TailChannel < 0 {
		return fmt.Errorf("rotors channels must be >= 0")
	}
	if r.MainChannel == r.TailChannel {
		return fmt.Errorf("rotors.main_channel and rotors.tail_channel must differ")
	}
	if r.FrequencyHz == 0 {
		r.FrequencyHz = 200
	}
	if r.FrequencyHz < 0 {
		return fmt.Errorf("rotors.frequency_hz must be > 0")
	}
	if r.ArmChip == "" {
		r.ArmChip = "gpiochip0"
	}

	h := &cfg.Height
	if h.Backend == "" {
		h.Backend = BackendADS1115
	}
	if h.Backend != BackendADS1115 && h.Backend != BackendSim {
		return fmt.Errorf("height.backend must be 'ads1115' or 'sim'")
	}
	if h.I2CBus == 0 {
		h.I2CBus = 1
	}
	if h.Addr == 0 {
		h.Addr = 0x48
	}
	if h.Addr > 0x7F {
		return fmt.Errorf("height.addr must be a 7-bit address")
	}
	if h.FullScale == 0 {
		h.FullScale = 1200
	}
	if h.FullScale < 0 {
		return fmt.Errorf("height.full_scale must be > 0")
	}
	if h.ZeroSamples <= 0 {
		h.ZeroSamples = 16
	}

	y := &cfg.Yaw
	if y.Backend == "" {
		y.Backend = BackendGPIO
	}
	if y.Backend != BackendGPIO && y.Backend != BackendSim {
		return fmt.Errorf("yaw.backend must be 'gpio' or 'sim'")
	}
	if y.GPIOChip == "" {
		y.GPIOChip = "gpiochip0"
	}
	if y.ChannelA == 0 && y.ChannelB == 0 && y.Reference == 0 {
		y.ChannelA, y.ChannelB, y.Reference = 17, 27, 22
	}
	if err := distinctLines("yaw", map[string]int{
		"channel_a": y.ChannelA,
		"channel_b": y.ChannelB,
		"reference": y.Reference,
	}); err != nil {
		return err
	}
	if y.Slots == 0 {
		y.Slots = 112
	}
	if y.Slots < 0 {
		return fmt.Errorf("yaw.slots must be > 0")
	}

	in := &cfg.Inputs
	if in.Backend == "" {
		in.Backend = BackendGPIO
	}
	if in.Backend != BackendGPIO && in.Backend != BackendSim {
		return fmt.Errorf("inputs.backend must be 'gpio' or 'sim'")
	}
	if in.GPIOChip == "" {
		in.GPIOChip = "gpiochip0"
	}
	if in.Up == 0 && in.Down == 0 && in.Left == 0 && in.Right == 0 && in.Switch == 0 {
		in.Up, in.Down, in.Left, in.Right, in.Switch = 5, 6, 13, 19, 26
	}
	if err := distinctLines("inputs", map[string]int{
		"up":     in.Up,
		"down":   in.Down,
		"left":   in.Left,
		"right":  in.Right,
		"switch": in.Switch,
	}); err != nil {
		return err
	}
	if in.Debounce <= 0 {
		in.Debounce = 10 * time.Millisecond
	}
	if y.Backend == BackendGPIO && in.Backend == BackendGPIO && y.GPIOChip == in.GPIOChip {
		for _, l := range []int{y.ChannelA, y.ChannelB, y.Reference} {
			for _, m := range []int{in.Up, in.Down, in.Left, in.Right, in.Switch} {
				if l == m {
					return fmt.Errorf("yaw and inputs both use line %d on %s", l, y.GPIOChip)
				}
			}
		}
	}

	c := &cfg.Control
	if c.Height == (GainsConfig{}) {
		c.Height = GainsConfig{Kp: 2, Ki: 1}
	}
	if c.Yaw == (GainsConfig{}) {
		c.Yaw = GainsConfig{Kp: 1, Ki: 1}
	}
	if c.HoverDuty == 0 {
		c.HoverDuty = 40
	}
	if c.HoverDuty < 2 || c.HoverDuty > 98 {
		return fmt.Errorf("control.hover_duty must be in [2,98]")
	}
	if c.TailOffset == 0 {
		c.TailOffset = 32
	}
	if c.TailOffset < 2 || c.TailOffset > 98 {
		return fmt.Errorf("control.tail_offset must be in [2,98]")
	}

	t := &cfg.Telemetry
	if t.Baud == 0 {
		t.Baud = 9600
	}
	if t.Interval <= 0 {
		t.Interval = 100 * time.Millisecond
	}

	// "off" disables the web server.
	if cfg.Web.Listen == "" {
		cfg.Web.Listen = ":8080"
	}
	return nil
}

func distinctLines(section string, lines map[string]int) error {
	seen := make(map[int]string, len(lines))
	for _, name := range sortedKeys(lines) {
		l := lines[name]
		if l < 0 {
			return fmt.Errorf("%s.%s must be >= 0", section, name)
		}
		if other, ok := seen[l]; ok {
			return fmt.Errorf("%s.%s and %s.%s share line %d", section, other, section, name, l)
		}
		seen[l] = name
	}
	return nil
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
