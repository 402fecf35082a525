package flight

import (
	"helirig/internal/input"
	"helirig/internal/rotor"
)

// HeightSensor reports height relative to the zero reading taken during Init.
// Reads are 0 until a zero calibration has completed.
type HeightSensor interface {
	Height() int32
	HeightPercent() int32
	// TriggerZeroCalibration blocks until the zero reading is captured.
	TriggerZeroCalibration()
}

// YawSensor reports yaw in degrees relative to the calibrated reference.
type YawSensor interface {
	Yaw() int32
	ReferenceFound() bool
	// TriggerReferenceSearch clears ReferenceFound and arms capture of the
	// next reference pulse.
	TriggerReferenceSearch()
	ClosestReference(yawDeg int32) int32
}

// Controller is the part of a PID loop the poll loop is allowed to touch.
// Update is driven by the high-rate task, never from here.
type Controller interface {
	Reset()
}

type HeightController interface {
	Controller
	// Preload seeds the integral term with bias ahead of a setpoint step.
	Preload(bias float64, step int32)
}

type MotorActuator interface {
	Enable(r rotor.ID)
	Disable(r rotor.ID)
	SetDutyCycle(r rotor.ID, percent int)
}

type ButtonInput interface {
	TakePressCount(b input.Button) int
	ResetAll()
}

type SwitchInput interface {
	PollEdgeEvent() input.Edge
}

// SchedulerGate toggles the high-rate controller task and exposes the
// monotonic tick counter used for elapsed-time checks.
type SchedulerGate interface {
	Enable()
	Disable()
	TickCount() uint64
	TicksSince(start uint64) uint64
}
