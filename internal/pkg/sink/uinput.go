package sink

import (
	"fmt"

	"github.com/gethiox/evmoused/internal/pkg/logger"
	"github.com/gethiox/evmoused/internal/pkg/mouse"
	"github.com/holoplot/go-evdev"
)

// buttonCodes maps logical buttons 1..8 onto evdev key codes.
var buttonCodes = []evdev.EvCode{
	evdev.BTN_LEFT,
	evdev.BTN_MIDDLE,
	evdev.BTN_RIGHT,
	evdev.BTN_SIDE,
	evdev.BTN_EXTRA,
	evdev.BTN_FORWARD,
	evdev.BTN_BACK,
	evdev.BTN_TASK,
}

var syncReport = evdev.InputEvent{Type: evdev.EV_SYN, Code: evdev.SYN_REPORT}

type eventWriter interface {
	WriteOne(ev *evdev.InputEvent) error
	Close() error
}

// Uinput feeds a virtual relative mouse. Key transitions come from button
// events only, the button bits of motion events are ignored since clicks are
// held back while virtual scrolling.
type Uinput struct {
	dev     eventWriter
	pressed uint32
}

func NewUinput(name string) (*Uinput, error) {
	dev, err := evdev.CreateDevice(
		name,
		evdev.InputID{
			BusType: 0x06, // BUS_VIRTUAL
			Vendor:  0x0000,
			Product: 0x0000,
			Version: 1,
		},
		map[evdev.EvType][]evdev.EvCode{
			evdev.EV_KEY: buttonCodes,
			evdev.EV_REL: {
				evdev.REL_X,
				evdev.REL_Y,
				evdev.REL_WHEEL,
				evdev.REL_HWHEEL,
			},
		},
	)
	if err != nil {
		return nil, fmt.Errorf("creating uinput device failed: %w", err)
	}
	log.Info(fmt.Sprintf("created uinput device \"%s\"", name), logger.Info)
	return newUinput(dev), nil
}

func newUinput(w eventWriter) *Uinput {
	return &Uinput{dev: w}
}

func (u *Uinput) write(t evdev.EvType, code evdev.EvCode, value int32) error {
	err := u.dev.WriteOne(&evdev.InputEvent{Type: t, Code: code, Value: value})
	if err != nil {
		return fmt.Errorf("writing %s event failed: %w", evdev.CodeName(t, code), err)
	}
	return nil
}

func (u *Uinput) sync() error {
	ev := syncReport
	err := u.dev.WriteOne(&ev)
	if err != nil {
		return fmt.Errorf("writing sync event failed: %w", err)
	}
	return nil
}

// setButtons emits key events for every supported button differing from
// the tracked state.
func (u *Uinput) setButtons(buttons uint32) (bool, error) {
	var wrote bool
	for i, code := range buttonCodes {
		bit := uint32(1) << i
		if (u.pressed^buttons)&bit == 0 {
			continue
		}
		var value int32
		if buttons&bit != 0 {
			value = 1
		}
		if err := u.write(evdev.EV_KEY, code, value); err != nil {
			return wrote, err
		}
		u.pressed ^= bit
		wrote = true
	}
	return wrote, nil
}

func (u *Uinput) Send(ev mouse.Event) error {
	switch e := ev.(type) {
	case mouse.ButtonEvent:
		buttons := u.pressed &^ e.ID
		if e.Pressed() {
			buttons |= e.ID
		}
		wrote, err := u.setButtons(buttons)
		if err != nil || !wrote {
			return err
		}
		return u.sync()

	case mouse.MotionEvent:
		var wrote bool
		if e.DX != 0 {
			if err := u.write(evdev.EV_REL, evdev.REL_X, int32(e.DX)); err != nil {
				return err
			}
			wrote = true
		}
		if e.DY != 0 {
			if err := u.write(evdev.EV_REL, evdev.REL_Y, int32(e.DY)); err != nil {
				return err
			}
			wrote = true
		}
		switch {
		case e.DZ == 2 || e.DZ == -2:
			if err := u.write(evdev.EV_REL, evdev.REL_HWHEEL, int32(e.DZ/2)); err != nil {
				return err
			}
			wrote = true
		case e.DZ != 0:
			// positive dz scrolls down, the kernel reports down as negative
			if err := u.write(evdev.EV_REL, evdev.REL_WHEEL, int32(-e.DZ)); err != nil {
				return err
			}
			wrote = true
		}
		if !wrote {
			return nil
		}
		return u.sync()
	}
	return fmt.Errorf("unsupported event %T", ev)
}

// Close releases every button still held and destroys the device.
func (u *Uinput) Close() error {
	if u.pressed != 0 {
		if wrote, err := u.setButtons(0); err == nil && wrote {
			_ = u.sync()
		}
	}
	return u.dev.Close()
}
