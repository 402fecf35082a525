//go:build linux

package rotor

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"
)

// sysfsPWM drives one hardware PWM channel via /sys/class/pwm.
//
// On Raspberry Pi this needs `dtoverlay=pwm-2chan` so both rotor channels are
// exposed on the same pwmchip (channel 0 = GPIO18, channel 1 = GPIO19).
type sysfsPWM struct {
	chipPath string // /sys/class/pwm/pwmchipN
	pwmPath  string // /sys/class/pwm/pwmchipN/pwmM
	channel  int

	periodNS uint64
	enabled  bool
}

var pwmSysfsBase = "/sys/class/pwm"

func openPWM(chip string, channel int) (Driver, error) {
	if channel < 0 {
		return nil, fmt.Errorf("rotor: invalid pwm channel %d", channel)
	}
	chipPath, err := findPWMChip(chip, channel)
	if err != nil {
		return nil, err
	}
	d := &sysfsPWM{
		chipPath: chipPath,
		channel:  channel,
		pwmPath:  filepath.Join(chipPath, fmt.Sprintf("pwm%d", channel)),
	}
	if err := d.ensureExported(); err != nil {
		return nil, err
	}
	// Start disabled; the actuator arms explicitly.
	if err := d.writeBool("enable", false); err == nil {
		d.enabled = false
	}
	return d, nil
}

// findPWMChip returns the named chip, or the first chip exposing at least
// channel+1 channels.
func findPWMChip(chip string, channel int) (string, error) {
	base := pwmSysfsBase
	if chip != "" {
		p := filepath.Join(base, chip)
		n, err := readInt(filepath.Join(p, "npwm"))
		if err != nil {
			return "", fmt.Errorf("rotor: read %s npwm: %w", p, err)
		}
		if channel >= n {
			return "", fmt.Errorf("rotor: %s has %d channels, need channel %d", chip, n, channel)
		}
		return p, nil
	}

	entries, err := os.ReadDir(base)
	if err != nil {
		return "", fmt.Errorf("rotor: read %s: %w", base, err)
	}
	// Entries are commonly symlinks, not directories; ReadDir sorts by name.
	for _, e := range entries {
		name := e.Name()
		if !strings.HasPrefix(name, "pwmchip") {
			continue
		}
		p := filepath.Join(base, name)
		n, rerr := readInt(filepath.Join(p, "npwm"))
		if rerr != nil || n <= channel {
			continue
		}
		return p, nil
	}
	return "", fmt.Errorf("rotor: no sysfs pwmchip with channel %d (is the pwm overlay enabled?)", channel)
}

func (d *sysfsPWM) ensureExported() error {
	if _, err := os.Stat(d.pwmPath); err == nil {
		return nil
	}
	exportPath := filepath.Join(d.chipPath, "export")
	if err := writeSysfs(exportPath, strconv.Itoa(d.channel)); err != nil {
		// Someone else may have exported it meanwhile.
		if _, statErr := os.Stat(d.pwmPath); statErr == nil {
			return nil
		}
		return fmt.Errorf("rotor: export pwm%d: %w", d.channel, err)
	}

	deadline := time.Now().Add(500 * time.Millisecond)
	for time.Now().Before(deadline) {
		if _, err := os.Stat(d.pwmPath); err == nil {
			return nil
		}
		time.Sleep(10 * time.Millisecond)
	}
	if _, err := os.Stat(d.pwmPath); err != nil {
		return fmt.Errorf("rotor: pwm path not created after export: %w", err)
	}
	return nil
}

func (d *sysfsPWM) Close() error {
	// Rotors must stop on shutdown: minimum duty, then disable.
	_ = d.SetDutyPercent(0)
	err := d.writeBool("enable", false)
	d.enabled = false
	return err
}

func (d *sysfsPWM) SetFrequencyHz(hz int) error {
	if hz <= 0 {
		return fmt.Errorf("rotor: invalid frequency %d", hz)
	}
	periodNS := uint64(1_000_000_000 / hz)
	if periodNS == 0 {
		periodNS = 1
	}

	// The kernel rejects a period shorter than the current duty; zero the duty
	// first and restore the enable state afterwards.
	wasEnabled := d.enabled
	_ = d.writeBool("enable", false)
	_ = d.writeUint("duty_cycle", 0)
	if err := d.writeUint("period", periodNS); err != nil {
		return err
	}
	d.periodNS = periodNS
	if wasEnabled {
		return d.writeBool("enable", true)
	}
	return nil
}

func (d *sysfsPWM) SetDutyPercent(p float64) error {
	if p < 0 {
		p = 0
	} else if p > 100 {
		p = 100
	}
	if d.periodNS == 0 {
		d.periodNS = 1_000_000_000 / 200
	}
	duty := uint64(math.Round(float64(d.periodNS) * (p / 100.0)))
	if duty > d.periodNS {
		duty = d.periodNS
	}
	return d.writeUint("duty_cycle", duty)
}

func (d *sysfsPWM) SetEnabled(on bool) error {
	if err := d.writeBool("enable", on); err != nil {
		return err
	}
	d.enabled = on
	return nil
}

func (d *sysfsPWM) writeUint(name string, v uint64) error {
	return writeSysfs(filepath.Join(d.pwmPath, name), strconv.FormatUint(v, 10))
}

func (d *sysfsPWM) writeBool(name string, v bool) error {
	val := "0"
	if v {
		val = "1"
	}
	return writeSysfs(filepath.Join(d.pwmPath, name), val)
}

// writeSysfs opens without O_TRUNC/O_CREATE (some attributes reject them) and
// retries briefly: right after export udev may still be fixing permissions.
func writeSysfs(path string, value string) error {
	deadline := time.Now().Add(2 * time.Second)
	for {
		err := writeOnce(path, value)
		if err == nil {
			return nil
		}
		if time.Now().Before(deadline) && isRetryableSysfsErr(err) {
			time.Sleep(25 * time.Millisecond)
			continue
		}
		return err
	}
}

func writeOnce(path, value string) error {
	f, err := os.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		return err
	}
	_, werr := f.WriteString(value)
	cerr := f.Close()
	return errors.Join(werr, cerr)
}

func isRetryableSysfsErr(err error) bool {
	return os.IsPermission(err) || os.IsNotExist(err) || errors.Is(err, syscall.EACCES) || errors.Is(err, syscall.EPERM) || errors.Is(err, syscall.ENOENT)
}

func readInt(path string) (int, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	s := strings.TrimSpace(string(b))
	if s == "" {
		return 0, fmt.Errorf("empty")
	}
	return strconv.Atoi(s)
}
