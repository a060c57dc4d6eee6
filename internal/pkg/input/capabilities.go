package input

import (
	"fmt"

	"github.com/holoplot/go-evdev"
)

type Class int

// Device classes as reported by identification. Only Mouse, Touchpad and
// PointingStick are driven by the daemon.
const (
	UnknownClass Class = iota
	MouseClass
	TouchpadClass
	PointingStickClass
	TabletClass
	TouchscreenClass
	KeyboardClass
	JoystickClass
)

func (c Class) String() string {
	switch c {
	case MouseClass:
		return "mouse"
	case TouchpadClass:
		return "touchpad"
	case PointingStickClass:
		return "pointingstick"
	case TabletClass:
		return "tablet"
	case TouchscreenClass:
		return "touchscreen"
	case KeyboardClass:
		return "keyboard"
	case JoystickClass:
		return "joystick"
	default:
		return "unknown"
	}
}

// ParseClass is the inverse of Class.String.
func ParseClass(s string) (Class, error) {
	for c := UnknownClass; c <= JoystickClass; c++ {
		if c.String() == s {
			return c, nil
		}
	}
	return UnknownClass, fmt.Errorf("unknown device class %q", s)
}

func (c Class) Supported() bool {
	switch c {
	case MouseClass, TouchpadClass, PointingStickClass:
		return true
	}
	return false
}

const codeSetSize = 0x300 // KEY_CNT, the largest code space

// CodeSet is a fixed-size bitset of event codes or properties.
type CodeSet [codeSetSize / 64]uint64

func (s *CodeSet) Set(code evdev.EvCode) {
	if int(code) >= codeSetSize {
		return
	}
	s[code/64] |= 1 << (code % 64)
}

func (s *CodeSet) Has(code evdev.EvCode) bool {
	if int(code) >= codeSetSize {
		return false
	}
	return s[code/64]&(1<<(code%64)) != 0
}

// Any reports whether a code in [from, to) is present.
func (s *CodeSet) Any(from, to evdev.EvCode) bool {
	for c := from; c < to; c++ {
		if s.Has(c) {
			return true
		}
	}
	return false
}

type AbsAxis struct {
	Min, Max   int
	Resolution int
}

type InputID struct {
	Bus     uint16
	Vendor  uint16
	Product uint16
	Version uint16
}

func (i InputID) String() string {
	return fmt.Sprintf("%s:0x%04x:0x%04x:0x%04x", busName(i.Bus), i.Vendor, i.Product, i.Version)
}

// Capabilities is resolved once when the device is opened and never re-queried.
type Capabilities struct {
	Path  string
	Name  string
	ID    InputID
	Class Class

	Rel   CodeSet
	Keys  CodeSet
	Abs   CodeSet
	Props CodeSet

	AbsInfo map[evdev.EvCode]AbsAxis
}

func (c *Capabilities) HasRel(code evdev.EvCode) bool  { return c.Rel.Has(code) }
func (c *Capabilities) HasKey(code evdev.EvCode) bool  { return c.Keys.Has(code) }
func (c *Capabilities) HasAbs(code evdev.EvCode) bool  { return c.Abs.Has(code) }
func (c *Capabilities) HasProp(p evdev.EvProp) bool    { return c.Props.Has(evdev.EvCode(p)) }
func (c *Capabilities) Axis(code evdev.EvCode) AbsAxis { return c.AbsInfo[code] }

func (c *Capabilities) MultiTouch() bool {
	return c.HasAbs(evdev.ABS_MT_SLOT) && c.HasAbs(evdev.ABS_MT_POSITION_X)
}

// Pressure reports true pressure sensing, single or multi touch.
func (c *Capabilities) Pressure() bool {
	return c.HasAbs(evdev.ABS_PRESSURE) || c.HasAbs(evdev.ABS_MT_PRESSURE)
}

func (c *Capabilities) Width() bool {
	return c.HasAbs(evdev.ABS_TOOL_WIDTH) || c.HasAbs(evdev.ABS_MT_TOUCH_MAJOR)
}

func (c *Capabilities) Clickpad() bool {
	return c.HasProp(evdev.INPUT_PROP_BUTTONPAD)
}

// Slots returns the number of multi-touch slots the device reports.
func (c *Capabilities) Slots() int {
	if !c.MultiTouch() {
		return 1
	}
	return c.Axis(evdev.ABS_MT_SLOT).Max + 1
}

// SizeHint derives the X/Y resolution of axes reporting none from the
// physical size of the sensor in millimeters.
func (c *Capabilities) SizeHint(widthMm, heightMm int) {
	if widthMm <= 0 || heightMm <= 0 {
		return
	}
	for _, axis := range []struct {
		code evdev.EvCode
		mm   int
	}{
		{evdev.ABS_X, widthMm},
		{evdev.ABS_Y, heightMm},
		{evdev.ABS_MT_POSITION_X, widthMm},
		{evdev.ABS_MT_POSITION_Y, heightMm},
	} {
		info, ok := c.AbsInfo[axis.code]
		if !ok || info.Resolution > 0 {
			continue
		}
		info.Resolution = (info.Max - info.Min) / axis.mm
		c.AbsInfo[axis.code] = info
	}
}

// Classify derives the device class from its capability bits.
func (c *Capabilities) Classify() Class {
	hasKeys := c.Keys.Any(0, evdev.BTN_MISC)
	hasButtons := c.Keys.Any(evdev.BTN_MISC, evdev.BTN_JOYSTICK)
	hasLMR := c.Keys.Any(evdev.BTN_LEFT, evdev.BTN_MIDDLE+1)
	hasRelAxes := c.Rel.Any(0, evdev.REL_CNT)
	hasAbsAxes := c.Abs.Any(0, evdev.ABS_CNT)
	hasMT := c.Abs.Any(evdev.ABS_MT_SLOT, evdev.ABS_CNT)

	if c.HasProp(evdev.INPUT_PROP_POINTING_STICK) && c.HasRel(evdev.REL_X) && c.HasRel(evdev.REL_Y) {
		return PointingStickClass
	}

	if hasAbsAxes {
		if hasMT && !hasButtons {
			if c.HasKey(evdev.BTN_JOYSTICK) {
				return JoystickClass
			}
			hasButtons = true
		}

		if c.HasAbs(evdev.ABS_X) && c.HasAbs(evdev.ABS_Y) {
			switch {
			case c.HasKey(evdev.BTN_TOOL_PEN) || c.HasKey(evdev.BTN_STYLUS) || c.HasKey(evdev.BTN_STYLUS2):
				return TabletClass
			case c.HasAbs(evdev.ABS_PRESSURE) || c.HasKey(evdev.BTN_TOUCH):
				if (hasLMR || c.HasKey(evdev.BTN_TOOL_FINGER)) && !c.HasProp(evdev.INPUT_PROP_DIRECT) {
					return TouchpadClass
				}
				return TouchscreenClass
			case !(c.HasRel(evdev.REL_X) && c.HasRel(evdev.REL_Y)) && hasLMR:
				// some touchscreens report BTN_LEFT instead of BTN_TOUCH
				return TouchscreenClass
			}
		}
	}

	switch {
	case hasKeys:
		return KeyboardClass
	case hasRelAxes || hasAbsAxes || hasButtons:
		return MouseClass
	}
	return UnknownClass
}
