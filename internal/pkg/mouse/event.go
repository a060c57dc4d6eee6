package mouse

import "fmt"

// Event is what the pipeline hands to a sink: either MotionEvent or ButtonEvent.
type Event interface {
	isEvent()
	String() string
}

type MotionEvent struct {
	Buttons uint32
	DX      int
	DY      int
	DZ      int
}

// ButtonEvent reports one button transition. Count is 0 on release and the
// click count (1 single, 2 double, ...) on press.
type ButtonEvent struct {
	ID    uint32
	Count int
}

func (MotionEvent) isEvent() {}
func (ButtonEvent) isEvent() {}

func (e MotionEvent) String() string {
	return fmt.Sprintf("motion buttons:%08x dx:%d dy:%d dz:%d", e.Buttons, e.DX, e.DY, e.DZ)
}

func (e ButtonEvent) String() string {
	return fmt.Sprintf("button %08x count %d", e.ID, e.Count)
}

// Pressed reports whether the event is a press rather than a release.
func (e ButtonEvent) Pressed() bool {
	return e.Count > 0
}
