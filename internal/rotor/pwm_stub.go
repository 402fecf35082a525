//go:build !linux

package rotor

import "fmt"

func openPWM(chip string, channel int) (Driver, error) {
	return nil, fmt.Errorf("rotor: pwm unsupported on this platform")
}
