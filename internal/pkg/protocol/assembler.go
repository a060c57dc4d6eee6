// Package protocol assembles raw evdev events into mouse packets.
package protocol

import (
	"fmt"
	"time"

	"github.com/gethiox/evmoused/internal/pkg/gesture"
	"github.com/gethiox/evmoused/internal/pkg/input"
	"github.com/gethiox/evmoused/internal/pkg/logger"
	"github.com/gethiox/evmoused/internal/pkg/mouse"
	"github.com/holoplot/go-evdev"
)

var log = logger.GetLogger()

const MaxSlots = 10

// butmap translates the left/right/middle bits (in evdev code order) into
// logical buttons 1/3/2.
var butmap = [8]uint32{
	0,
	mouse.Button1Down,
	mouse.Button3Down,
	mouse.Button1Down | mouse.Button3Down,
	mouse.Button2Down,
	mouse.Button1Down | mouse.Button2Down,
	mouse.Button2Down | mouse.Button3Down,
	mouse.Button1Down | mouse.Button2Down | mouse.Button3Down,
}

type Config struct {
	ChordMiddle bool
	Gesture     gesture.Params
	// ScrollDivisor is the touchpad travel in device units per wheel step,
	// values below 2 pass the raw delta.
	ScrollDivisor int
}

// Assembler is fed one raw event at a time and produces one packet per sync.
type Assembler struct {
	caps     input.Capabilities
	cfg      Config
	engine   *gesture.Engine
	touchpad bool

	buttons       uint32 // raw bits, offset from BTN_LEFT
	relX, relY    int
	relZ, relW    int
	tools         int
	touch, otouch bool

	st, ost Slot
	slots   Slots
	prev    Slots
	slot    int

	status          mouse.Status
	carryX, carryY  int
	scrollRemainder int
	lastResult      gesture.Result
}

func NewAssembler(caps input.Capabilities, cfg Config) *Assembler {
	a := &Assembler{
		caps:     caps,
		cfg:      cfg,
		touchpad: caps.Class == input.TouchpadClass,
	}
	a.slots.Reset()
	a.prev.Reset()

	if a.touchpad {
		a.engine = gesture.NewEngine(cfg.Gesture, Hardware(caps))
	}
	return a
}

// Hardware extracts the sensor geometry the gesture engine works with.
func Hardware(caps input.Capabilities) gesture.Hardware {
	xCode, yCode := evdev.EvCode(evdev.ABS_X), evdev.EvCode(evdev.ABS_Y)
	if !caps.HasAbs(xCode) && caps.MultiTouch() {
		xCode, yCode = evdev.ABS_MT_POSITION_X, evdev.ABS_MT_POSITION_Y
	}
	x, y := caps.Axis(xCode), caps.Axis(yCode)
	return gesture.Hardware{
		MinX: x.Min, MaxX: x.Max,
		MinY: y.Min, MaxY: y.Max,
		ResX: x.Resolution, ResY: y.Resolution,
		CapWidth:    caps.Width(),
		CapPressure: caps.Pressure(),
		Clickpad:    caps.Clickpad(),
	}
}

// Gestures returns the touchpad recognizer, nil for other device classes.
func (a *Assembler) Gestures() *gesture.Engine {
	return a.engine
}

func (a *Assembler) LastResult() gesture.Result {
	return a.lastResult
}

// Feed consumes one raw event. A packet is returned on SYN_REPORT and
// SYN_DROPPED.
func (a *Assembler) Feed(ev *evdev.InputEvent, now time.Time) (mouse.Status, bool) {
	switch ev.Type {
	case evdev.EV_REL:
		a.relative(ev.Code, int(ev.Value))
	case evdev.EV_ABS:
		a.absolute(ev.Code, int(ev.Value))
	case evdev.EV_KEY:
		a.key(ev.Code, ev.Value)
	case evdev.EV_SYN:
		switch ev.Code {
		case evdev.SYN_REPORT:
			return a.Sync(now), true
		case evdev.SYN_DROPPED:
			log.Info("events dropped by the kernel", logger.Warning)
			return a.Sync(now), true
		}
	}
	return mouse.Status{}, false
}

func (a *Assembler) relative(code evdev.EvCode, value int) {
	switch code {
	case evdev.REL_X:
		a.relX += value
	case evdev.REL_Y:
		a.relY += value
	case evdev.REL_WHEEL:
		a.relZ += value
	case evdev.REL_HWHEEL:
		a.relW += value
	}
}

func (a *Assembler) absolute(code evdev.EvCode, value int) {
	switch code {
	case evdev.ABS_X:
		a.st.X = value
	case evdev.ABS_Y:
		a.st.Y = value
	case evdev.ABS_PRESSURE:
		a.st.Pressure = value
	case evdev.ABS_TOOL_WIDTH:
		a.st.Width = value
	case evdev.ABS_MT_SLOT:
		if value >= 0 && value < MaxSlots {
			a.slot = value
		} else {
			a.slot = -1
		}
	}

	if a.slot < 0 {
		return
	}
	s := &a.slots[a.slot]
	switch code {
	case evdev.ABS_MT_TRACKING_ID:
		if value < 0 {
			s.Clear()
		} else {
			s.TrackingID = value
		}
	case evdev.ABS_MT_POSITION_X:
		s.X = value
	case evdev.ABS_MT_POSITION_Y:
		s.Y = value
	case evdev.ABS_MT_PRESSURE:
		s.Pressure = value
	case evdev.ABS_MT_TOUCH_MAJOR:
		s.Width = value
	}
}

func (a *Assembler) key(code evdev.EvCode, value int32) {
	pressed := value != 0
	switch {
	case code == evdev.BTN_TOUCH:
		a.touch = pressed
	case code == evdev.BTN_TOOL_FINGER:
		a.tool(1, pressed)
	case code == evdev.BTN_TOOL_DOUBLETAP:
		a.tool(2, pressed)
	case code == evdev.BTN_TOOL_TRIPLETAP:
		a.tool(3, pressed)
	case code == evdev.BTN_TOOL_QUADTAP:
		a.tool(4, pressed)
	case code == evdev.BTN_TOOL_QUINTTAP:
		a.tool(5, pressed)
	case code >= evdev.BTN_LEFT && code <= evdev.BTN_TASK:
		bit := uint32(1) << (code - evdev.BTN_LEFT)
		if pressed {
			a.buttons |= bit
		} else {
			a.buttons &^= bit
		}
	}
}

func (a *Assembler) tool(n int, pressed bool) {
	if pressed {
		a.tools = n
	} else if a.tools == n {
		a.tools = 0
	}
}

// Sync closes the current batch. The daemon calls it directly on idle
// timeouts to drive time based transitions without device data.
func (a *Assembler) Sync(now time.Time) mouse.Status {
	var ms = mouse.Status{OButton: a.status.Button}

	ms.Button = butmap[a.buttons&mouse.StdButtons] | a.buttons&mouse.ExtButtons
	if a.cfg.ChordMiddle && ms.Button&(mouse.Button1Down|mouse.Button3Down) == mouse.Button1Down|mouse.Button3Down {
		ms.Button = ms.Button&^(mouse.Button1Down|mouse.Button3Down) | mouse.Button2Down
	}

	if a.touchpad {
		a.touchpadPacket(&ms, now)
	} else {
		ms.DX, ms.DY = a.relX, a.relY
		switch {
		case a.relZ != 0:
			ms.DZ = -a.relZ
		case a.relW > 0:
			ms.DZ = 2
		case a.relW < 0:
			ms.DZ = -2
		}
	}
	a.relX, a.relY, a.relZ, a.relW = 0, 0, 0, 0

	ms.Flags = ms.ChangeFlags()
	a.status = ms
	log.Info(fmt.Sprintf("assembled packet %s", ms), logger.Motion)
	return ms
}

func (a *Assembler) touchpadPacket(ms *mouse.Status, now time.Time) {
	var c gesture.Contact
	var dx, dy int

	if a.caps.MultiTouch() {
		active := a.slots.Active()
		if primary := a.slots.Primary(); primary >= 0 {
			s := a.slots[primary]
			c.X, c.Y, c.Width = s.X, s.Y, s.Width
			if a.caps.HasAbs(evdev.ABS_MT_PRESSURE) {
				c.Pressure = s.Pressure
			} else {
				c.Pressure = a.st.Pressure
			}
		}
		c.Fingers = max(active, a.tools)
		dx, dy = a.slots.Delta(&a.prev)
		a.prev = a.slots
	} else {
		c.X, c.Y, c.Pressure, c.Width = a.st.X, a.st.Y, a.st.Pressure, a.st.Width
		if a.touch {
			c.Fingers = max(1, a.tools)
		}
		if a.touch && a.otouch {
			dx, dy = a.st.X-a.ost.X, a.st.Y-a.ost.Y
		}
		a.ost = a.st
	}
	a.otouch = a.touch

	if !a.caps.Pressure() {
		c.Pressure = 0
		if a.touch || c.Fingers > 0 {
			c.Pressure = max(a.cfg.Gesture.MinPressureHi, a.cfg.Gesture.TapThreshold)
		}
	}
	if !a.caps.Width() {
		c.Width = 0
	}

	result := a.engine.Process(c, now, ms)
	a.lastResult = result

	switch result {
	case gesture.Accumulate:
		a.carryX += dx
		a.carryY += dy
	case gesture.Move:
		ms.DX = dx + a.carryX
		ms.DY = dy + a.carryY
		a.carryX, a.carryY = 0, 0
	case gesture.VScroll:
		a.carryX, a.carryY = 0, 0
		ms.DZ = a.scroll(dy)
	case gesture.HScroll:
		a.carryX, a.carryY = 0, 0
		log.Info(fmt.Sprintf("horizontal scroll %d not dispatched", dx), logger.Debug)
	}

	if !a.engine.State().FingerDown {
		a.carryX, a.carryY = 0, 0
		a.scrollRemainder = 0
	}
}

func (a *Assembler) scroll(dy int) int {
	if a.cfg.Gesture.NaturalScroll {
		dy = -dy
	}
	if a.cfg.ScrollDivisor < 2 {
		return dy
	}
	a.scrollRemainder += dy
	steps := a.scrollRemainder / a.cfg.ScrollDivisor
	a.scrollRemainder -= steps * a.cfg.ScrollDivisor
	return steps
}
