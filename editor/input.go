package editor

// Key is a backend-neutral key code. Front ends translate their own codes.
type Key int

const (
	KeyUnknown Key = iota
	KeyLeftControl
	KeyRightControl
	KeyS
	KeyD
	KeyC
	KeyV
	KeyP
	KeyDelete
)

type MouseButton int

const (
	MouseButtonLeft MouseButton = iota
	MouseButtonMiddle
	MouseButtonRight
)

func (k Key) isControl() bool {
	return k == KeyLeftControl || k == KeyRightControl
}
