package mouse

import "fmt"

// Logical button bits, button N is 1 << (N-1).
const (
	Button1Down uint32 = 1 << iota
	Button2Down
	Button3Down
	Button4Down
	Button5Down
	Button6Down
	Button7Down
	Button8Down
)

const (
	MaxButton = 31

	StdButtons uint32 = 0x00000007
	ExtButtons uint32 = 0x7ffffff8
	Buttons           = StdButtons | ExtButtons

	PosChanged uint32 = 0x80000000
)

// Status is one assembled packet. It is passed by value between stages.
type Status struct {
	Flags   uint32
	Button  uint32
	OButton uint32
	DX      int
	DY      int
	DZ      int
}

func (s Status) Moved() bool {
	return s.DX != 0 || s.DY != 0 || s.DZ != 0
}

// ChangeFlags computes the position-changed bit combined with the changed buttons.
func (s Status) ChangeFlags() uint32 {
	var flags uint32
	if s.Moved() {
		flags = PosChanged
	}
	return flags | (s.OButton ^ s.Button)
}

func (s Status) String() string {
	return fmt.Sprintf("flags:%08x buttons:%08x obuttons:%08x dx:%d dy:%d dz:%d",
		s.Flags, s.Button, s.OButton, s.DX, s.DY, s.DZ)
}

// ButtonMask returns the bit of 1-based button n.
func ButtonMask(n int) uint32 {
	if n <= 0 || n > MaxButton {
		return 0
	}
	return 1 << (n - 1)
}
