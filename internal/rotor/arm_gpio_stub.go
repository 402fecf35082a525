//go:build !linux

package rotor

import "fmt"

func openArmLine(d Driver, chip string, offset int) (Driver, error) {
	if offset < 0 {
		return d, nil
	}
	return nil, fmt.Errorf("rotor: gpio arm line unsupported on this platform")
}
