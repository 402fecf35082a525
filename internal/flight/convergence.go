package flight

// errorWindowSize is the number of samples summed per channel.
const errorWindowSize = 5

type errorWindow struct {
	buf       [errorWindowSize]uint16
	tolerance uint32
}

func newErrorWindow(sampleTolerance uint16) errorWindow {
	return errorWindow{tolerance: uint32(sampleTolerance) * errorWindowSize}
}

func (w *errorWindow) fill() {
	// Every slot holds the whole-window tolerance, not the per-sample one,
	// so the sum cannot pass until every slot has been overwritten.
	v := saturateU16(int64(w.tolerance))
	for i := range w.buf {
		w.buf[i] = v
	}
}

func (w *errorWindow) reached() bool {
	var sum uint32
	for _, v := range w.buf {
		sum += uint32(v)
	}
	return sum <= w.tolerance
}

// ErrorConvergenceTracker keeps the last few absolute tracking errors for yaw
// and height and reports whether each channel has settled on its target.
//
// Not safe for concurrent use.
type ErrorConvergenceTracker struct {
	yaw    errorWindow
	height errorWindow
	pos    int
}

// NewErrorConvergenceTracker returns a tracker that considers a channel
// converged once its recent samples average at most the given per-sample
// tolerance. The tracker starts reset.
func NewErrorConvergenceTracker(yawSampleTolerance, heightSampleTolerance uint16) *ErrorConvergenceTracker {
	t := &ErrorConvergenceTracker{
		yaw:    newErrorWindow(yawSampleTolerance),
		height: newErrorWindow(heightSampleTolerance),
	}
	t.Reset()
	return t
}

func (t *ErrorConvergenceTracker) Reset() {
	t.yaw.fill()
	t.height.fill()
}

// Record overwrites the oldest sample of each channel.
func (t *ErrorConvergenceTracker) Record(yawErr, heightErr uint16) {
	t.yaw.buf[t.pos] = yawErr
	t.height.buf[t.pos] = heightErr
	t.pos = (t.pos + 1) % errorWindowSize
}

func (t *ErrorConvergenceTracker) YawReached() bool    { return t.yaw.reached() }
func (t *ErrorConvergenceTracker) HeightReached() bool { return t.height.reached() }

// absError returns |measured-target| saturated to the sample width.
func absError(measured, target int32) uint16 {
	d := int64(measured) - int64(target)
	if d < 0 {
		d = -d
	}
	return saturateU16(d)
}

func saturateU16(v int64) uint16 {
	if v < 0 {
		return 0
	}
	if v > 0xFFFF {
		return 0xFFFF
	}
	return uint16(v)
}
