package teleop

// Key is a single byte read from a raw terminal.
type Key byte

// Key bindings.
const (
	KeyForward   Key = 'w'
	KeyBackward  Key = 's'
	KeyLeft      Key = 'a'
	KeyRight     Key = 'd'
	KeyStop      Key = 'g'
	KeyInterrupt Key = 0x03 // Ctrl-C
)

// Intent is the velocity a key asks for, before linear scaling. Only the
// yaw component of the angular velocity is ever non-zero.
type Intent struct {
	X, Y, Z float64 // linear
	Yaw     float64 // angular z
}

// IsZero reports whether the intent asks the robot to stand still.
func (i Intent) IsZero() bool {
	return i == Intent{}
}

// IsInterrupt reports whether k ends the control loop.
func (k Key) IsInterrupt() bool {
	return k == KeyInterrupt
}

// Map converts a key into an intent. It is defined for every byte: keys
// without a binding, including the interrupt byte, map to the zero intent.
func Map(k Key, turnScale float64) Intent {
	switch k {
	case KeyForward:
		return Intent{X: 1}
	case KeyBackward:
		return Intent{X: -1}
	case KeyLeft:
		return Intent{Yaw: turnScale}
	case KeyRight:
		return Intent{Yaw: -turnScale}
	default:
		return Intent{}
	}
}

// Describe returns the status line printed when k is pressed, or "" for
// keys without a binding.
func (k Key) Describe() string {
	switch k {
	case KeyForward:
		return "going forward"
	case KeyBackward:
		return "going back"
	case KeyLeft:
		return "turning left"
	case KeyRight:
		return "turning right"
	case KeyStop:
		return "Stopping!"
	default:
		return ""
	}
}
