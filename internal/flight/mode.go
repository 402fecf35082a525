package flight

// Mode is the rig's flight mode.
type Mode int32

const (
	Landed Mode = iota
	Init
	Flying
	Landing
)

var modeNames = [...]string{"Landed", "Init", "Flying", "Landing"}

func (m Mode) String() string {
	if m < 0 || int(m) >= len(modeNames) {
		return "Unknown"
	}
	return modeNames[m]
}
