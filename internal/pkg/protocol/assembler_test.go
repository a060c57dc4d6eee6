package protocol

import (
	"testing"
	"time"

	"github.com/gethiox/evmoused/internal/pkg/clock"
	"github.com/gethiox/evmoused/internal/pkg/gesture"
	"github.com/gethiox/evmoused/internal/pkg/input"
	"github.com/gethiox/evmoused/internal/pkg/mouse"
	"github.com/holoplot/go-evdev"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ev(t evdev.EvType, code evdev.EvCode, value int32) evdev.InputEvent {
	return evdev.InputEvent{Type: t, Code: code, Value: value}
}

func syn() evdev.InputEvent {
	return ev(evdev.EV_SYN, evdev.SYN_REPORT, 0)
}

func feed(a *Assembler, now time.Time, events ...evdev.InputEvent) []mouse.Status {
	var packets []mouse.Status
	for i := range events {
		ms, ok := a.Feed(&events[i], now)
		if ok {
			packets = append(packets, ms)
		}
	}
	return packets
}

func mouseCaps() input.Capabilities {
	var caps = input.Capabilities{Class: input.MouseClass}
	caps.Rel.Set(evdev.REL_X)
	caps.Rel.Set(evdev.REL_Y)
	caps.Rel.Set(evdev.REL_WHEEL)
	caps.Keys.Set(evdev.BTN_LEFT)
	caps.Keys.Set(evdev.BTN_RIGHT)
	caps.Keys.Set(evdev.BTN_MIDDLE)
	return caps
}

func touchpadCaps(multiTouch, pressure bool) input.Capabilities {
	var caps = input.Capabilities{
		Class: input.TouchpadClass,
		AbsInfo: map[evdev.EvCode]input.AbsAxis{
			evdev.ABS_X:             {Min: 0, Max: 1000, Resolution: 10},
			evdev.ABS_Y:             {Min: 0, Max: 800, Resolution: 10},
			evdev.ABS_MT_POSITION_X: {Min: 0, Max: 1000, Resolution: 10},
			evdev.ABS_MT_POSITION_Y: {Min: 0, Max: 800, Resolution: 10},
			evdev.ABS_MT_SLOT:       {Min: 0, Max: 4},
		},
	}
	caps.Keys.Set(evdev.BTN_LEFT)
	caps.Keys.Set(evdev.BTN_TOUCH)
	caps.Keys.Set(evdev.BTN_TOOL_FINGER)
	caps.Abs.Set(evdev.ABS_X)
	caps.Abs.Set(evdev.ABS_Y)
	if multiTouch {
		caps.Abs.Set(evdev.ABS_MT_SLOT)
		caps.Abs.Set(evdev.ABS_MT_POSITION_X)
		caps.Abs.Set(evdev.ABS_MT_POSITION_Y)
		caps.Abs.Set(evdev.ABS_MT_TRACKING_ID)
	}
	if pressure {
		caps.Abs.Set(evdev.ABS_PRESSURE)
		if multiTouch {
			caps.Abs.Set(evdev.ABS_MT_PRESSURE)
		}
	}
	return caps
}

func TestRelativePacket(t *testing.T) {
	a := NewAssembler(mouseCaps(), Config{})
	now := clock.NewFake().Now()

	ms, ok := a.Feed(&evdev.InputEvent{Type: evdev.EV_REL, Code: evdev.REL_X, Value: 3}, now)
	assert.False(t, ok)
	assert.Equal(t, mouse.Status{}, ms)

	packets := feed(a, now,
		ev(evdev.EV_REL, evdev.REL_Y, -2),
		syn(),
	)
	require.Len(t, packets, 1)
	assert.Equal(t, 3, packets[0].DX)
	assert.Equal(t, -2, packets[0].DY)
	assert.Equal(t, 0, packets[0].DZ)
	assert.Equal(t, mouse.PosChanged, packets[0].Flags)

	packets = feed(a, now, syn())
	require.Len(t, packets, 1)
	assert.Equal(t, uint32(0), packets[0].Flags, "accumulators are zeroed after a sync")
	assert.False(t, packets[0].Moved())
}

func TestRelativeSummed(t *testing.T) {
	a := NewAssembler(mouseCaps(), Config{})
	packets := feed(a, time.Now(),
		ev(evdev.EV_REL, evdev.REL_X, 3),
		ev(evdev.EV_REL, evdev.REL_X, 4),
		syn(),
	)
	require.Len(t, packets, 1)
	assert.Equal(t, 7, packets[0].DX)
}

func TestWheel(t *testing.T) {
	a := NewAssembler(mouseCaps(), Config{})
	now := time.Now()

	packets := feed(a, now, ev(evdev.EV_REL, evdev.REL_WHEEL, 1), syn())
	assert.Equal(t, -1, packets[0].DZ)

	packets = feed(a, now, ev(evdev.EV_REL, evdev.REL_HWHEEL, -1), syn())
	assert.Equal(t, -2, packets[0].DZ)

	packets = feed(a, now, ev(evdev.EV_REL, evdev.REL_HWHEEL, 1), syn())
	assert.Equal(t, 2, packets[0].DZ)
}

func TestButtons(t *testing.T) {
	for _, tc := range []struct {
		name     string
		codes    []evdev.EvCode
		chord    bool
		expected uint32
	}{
		{name: "left", codes: []evdev.EvCode{evdev.BTN_LEFT}, expected: mouse.Button1Down},
		{name: "right", codes: []evdev.EvCode{evdev.BTN_RIGHT}, expected: mouse.Button3Down},
		{name: "middle", codes: []evdev.EvCode{evdev.BTN_MIDDLE}, expected: mouse.Button2Down},
		{name: "side", codes: []evdev.EvCode{evdev.BTN_SIDE}, expected: mouse.Button4Down},
		{name: "task", codes: []evdev.EvCode{evdev.BTN_TASK}, expected: mouse.Button8Down},
		{
			name:     "left and right",
			codes:    []evdev.EvCode{evdev.BTN_LEFT, evdev.BTN_RIGHT},
			expected: mouse.Button1Down | mouse.Button3Down,
		},
		{
			name:     "chord middle",
			codes:    []evdev.EvCode{evdev.BTN_LEFT, evdev.BTN_RIGHT},
			chord:    true,
			expected: mouse.Button2Down,
		},
		{
			name:     "chord middle keeps others",
			codes:    []evdev.EvCode{evdev.BTN_LEFT, evdev.BTN_RIGHT, evdev.BTN_EXTRA},
			chord:    true,
			expected: mouse.Button2Down | mouse.Button5Down,
		},
		{name: "unknown code", codes: []evdev.EvCode{evdev.BTN_JOYSTICK}, expected: 0},
	} {
		t.Run(tc.name, func(t *testing.T) {
			a := NewAssembler(mouseCaps(), Config{ChordMiddle: tc.chord})
			now := time.Now()

			var events []evdev.InputEvent
			for _, code := range tc.codes {
				events = append(events, ev(evdev.EV_KEY, code, 1))
			}
			events = append(events, syn())
			packets := feed(a, now, events...)
			require.Len(t, packets, 1)
			assert.Equal(t, tc.expected, packets[0].Button)
			assert.Equal(t, tc.expected, packets[0].Flags)

			events = nil
			for _, code := range tc.codes {
				events = append(events, ev(evdev.EV_KEY, code, 0))
			}
			events = append(events, syn())
			packets = feed(a, now, events...)
			require.Len(t, packets, 1)
			assert.Equal(t, uint32(0), packets[0].Button)
			assert.Equal(t, tc.expected, packets[0].OButton)
		})
	}
}

func TestSyncDropped(t *testing.T) {
	a := NewAssembler(mouseCaps(), Config{})
	packets := feed(a, time.Now(),
		ev(evdev.EV_REL, evdev.REL_X, 1),
		ev(evdev.EV_SYN, evdev.SYN_DROPPED, 0),
	)
	require.Len(t, packets, 1)
	assert.Equal(t, 1, packets[0].DX)
}

func moveConfig() Config {
	p := gesture.DefaultParams()
	p.TapMaxDeltaMm = 0
	p.TwoFingerScroll = false
	p.VScrollVerAreaMm = 0
	return Config{Gesture: p}
}

func TestMultiTouchAveraging(t *testing.T) {
	clk := clock.NewFake()
	a := NewAssembler(touchpadCaps(true, true), moveConfig())

	packets := feed(a, clk.Now(),
		ev(evdev.EV_ABS, evdev.ABS_MT_SLOT, 0),
		ev(evdev.EV_ABS, evdev.ABS_MT_TRACKING_ID, 10),
		ev(evdev.EV_ABS, evdev.ABS_MT_POSITION_X, 300),
		ev(evdev.EV_ABS, evdev.ABS_MT_POSITION_Y, 400),
		ev(evdev.EV_ABS, evdev.ABS_MT_PRESSURE, 50),
		ev(evdev.EV_ABS, evdev.ABS_MT_SLOT, 1),
		ev(evdev.EV_ABS, evdev.ABS_MT_TRACKING_ID, 11),
		ev(evdev.EV_ABS, evdev.ABS_MT_POSITION_X, 500),
		ev(evdev.EV_ABS, evdev.ABS_MT_POSITION_Y, 400),
		ev(evdev.EV_ABS, evdev.ABS_MT_PRESSURE, 50),
		syn(),
	)
	require.Len(t, packets, 1)
	assert.False(t, packets[0].Moved())
	assert.Equal(t, gesture.Ignore, a.LastResult())

	packets = feed(a, clk.AdvanceMs(30),
		ev(evdev.EV_ABS, evdev.ABS_MT_SLOT, 0),
		ev(evdev.EV_ABS, evdev.ABS_MT_POSITION_X, 304),
		ev(evdev.EV_ABS, evdev.ABS_MT_SLOT, 1),
		ev(evdev.EV_ABS, evdev.ABS_MT_POSITION_X, 504),
		syn(),
	)
	require.Len(t, packets, 1)
	assert.Equal(t, gesture.Move, a.LastResult())
	assert.Equal(t, 4, packets[0].DX)
	assert.Equal(t, 0, packets[0].DY)
}

func TestSingleSlotNotAveraged(t *testing.T) {
	clk := clock.NewFake()
	a := NewAssembler(touchpadCaps(true, true), moveConfig())

	feed(a, clk.Now(),
		ev(evdev.EV_ABS, evdev.ABS_MT_SLOT, 0),
		ev(evdev.EV_ABS, evdev.ABS_MT_TRACKING_ID, 10),
		ev(evdev.EV_ABS, evdev.ABS_MT_POSITION_X, 300),
		ev(evdev.EV_ABS, evdev.ABS_MT_POSITION_Y, 400),
		ev(evdev.EV_ABS, evdev.ABS_MT_PRESSURE, 50),
		syn(),
	)
	packets := feed(a, clk.AdvanceMs(30),
		ev(evdev.EV_ABS, evdev.ABS_MT_POSITION_X, 304),
		syn(),
	)
	require.Len(t, packets, 1)
	assert.Equal(t, gesture.Move, a.LastResult())
	assert.Equal(t, 4, packets[0].DX)
}

func TestSlotsDelta(t *testing.T) {
	var prev, cur Slots
	prev.Reset()
	cur.Reset()

	prev[0] = Slot{X: 10, Y: 10, TrackingID: 1}
	prev[1] = Slot{X: 50, Y: 50, TrackingID: 2}
	cur[0] = Slot{X: 14, Y: 8, TrackingID: 1}
	cur[1] = Slot{X: 54, Y: 48, TrackingID: 2}
	cur[2] = Slot{X: 90, Y: 90, TrackingID: 3} // new contact, no motion yet

	dx, dy := cur.Delta(&prev)
	assert.Equal(t, 4, dx)
	assert.Equal(t, -2, dy)
	assert.Equal(t, 3, cur.Active())
	assert.Equal(t, 0, cur.Primary())

	// a reused slot with a new tracking id does not contribute
	cur[0].TrackingID = 7
	dx, _ = cur.Delta(&prev)
	assert.Equal(t, 4, dx)

	cur.Reset()
	assert.Equal(t, -1, cur.Primary())
}

func singleTouch(x, y int32) []evdev.InputEvent {
	return []evdev.InputEvent{
		ev(evdev.EV_KEY, evdev.BTN_TOUCH, 1),
		ev(evdev.EV_KEY, evdev.BTN_TOOL_FINGER, 1),
		ev(evdev.EV_ABS, evdev.ABS_X, x),
		ev(evdev.EV_ABS, evdev.ABS_Y, y),
		syn(),
	}
}

func liftAll() []evdev.InputEvent {
	return []evdev.InputEvent{
		ev(evdev.EV_KEY, evdev.BTN_TOUCH, 0),
		ev(evdev.EV_KEY, evdev.BTN_TOOL_FINGER, 0),
		syn(),
	}
}

func TestPressureSynthesisTap(t *testing.T) {
	clk := clock.NewFake()
	p := gesture.DefaultParams()
	p.MinPressureHi = 5
	p.TapThreshold = 20
	a := NewAssembler(touchpadCaps(false, false), Config{Gesture: p})

	feed(a, clk.Now(), singleTouch(500, 400)...)
	assert.True(t, a.Gestures().State().FingerDown)
	assert.Equal(t, 20, a.Gestures().State().ZMax)

	packets := feed(a, clk.AdvanceMs(40), liftAll()...)
	require.Len(t, packets, 1)
	assert.Equal(t, mouse.Button1Down, packets[0].Button, "tap")
	assert.Equal(t, mouse.Button1Down, packets[0].Flags)
	assert.False(t, a.Gestures().State().FingerDown)
}

func TestAccumulateFlushedOnMove(t *testing.T) {
	clk := clock.NewFake()
	a := NewAssembler(touchpadCaps(false, true), Config{Gesture: gesture.DefaultParams()})

	touch := func(x int32) []evdev.InputEvent {
		return []evdev.InputEvent{
			ev(evdev.EV_KEY, evdev.BTN_TOUCH, 1),
			ev(evdev.EV_KEY, evdev.BTN_TOOL_FINGER, 1),
			ev(evdev.EV_ABS, evdev.ABS_X, x),
			ev(evdev.EV_ABS, evdev.ABS_Y, 400),
			ev(evdev.EV_ABS, evdev.ABS_PRESSURE, 40),
			syn(),
		}
	}

	feed(a, clk.Now(), touch(500)...)
	assert.Equal(t, gesture.Ignore, a.LastResult())

	packets := feed(a, clk.AdvanceMs(30), touch(505)...)
	assert.Equal(t, gesture.Accumulate, a.LastResult())
	assert.Equal(t, 0, packets[0].DX)

	packets = feed(a, clk.AdvanceMs(10), touch(520)...)
	assert.Equal(t, gesture.Move, a.LastResult())
	assert.Equal(t, 20, packets[0].DX, "carry is emitted with the first move")

	packets = feed(a, clk.AdvanceMs(10), touch(523)...)
	assert.Equal(t, 3, packets[0].DX)
}

func twoFingers(y int32) []evdev.InputEvent {
	return []evdev.InputEvent{
		ev(evdev.EV_ABS, evdev.ABS_MT_SLOT, 0),
		ev(evdev.EV_ABS, evdev.ABS_MT_TRACKING_ID, 1),
		ev(evdev.EV_ABS, evdev.ABS_MT_POSITION_X, 400),
		ev(evdev.EV_ABS, evdev.ABS_MT_POSITION_Y, y),
		ev(evdev.EV_ABS, evdev.ABS_MT_PRESSURE, 50),
		ev(evdev.EV_ABS, evdev.ABS_MT_SLOT, 1),
		ev(evdev.EV_ABS, evdev.ABS_MT_TRACKING_ID, 2),
		ev(evdev.EV_ABS, evdev.ABS_MT_POSITION_X, 600),
		ev(evdev.EV_ABS, evdev.ABS_MT_POSITION_Y, y),
		ev(evdev.EV_ABS, evdev.ABS_MT_PRESSURE, 50),
		syn(),
	}
}

func TestTwoFingerScroll(t *testing.T) {
	for _, tc := range []struct {
		name     string
		natural  bool
		divisor  int
		expected []int
	}{
		{name: "raw", expected: []int{30, 30}},
		{name: "natural", natural: true, expected: []int{-30, -30}},
		{name: "divided", divisor: 20, expected: []int{1, 2}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			clk := clock.NewFake()
			p := gesture.DefaultParams()
			p.NaturalScroll = tc.natural
			a := NewAssembler(touchpadCaps(true, true), Config{Gesture: p, ScrollDivisor: tc.divisor})

			feed(a, clk.Now(), twoFingers(400)...)

			var dz []int
			for _, y := range []int32{430, 460} {
				packets := feed(a, clk.AdvanceMs(30), twoFingers(y)...)
				require.Len(t, packets, 1)
				assert.Equal(t, gesture.VScroll, a.LastResult())
				assert.Equal(t, 0, packets[0].DX)
				assert.Equal(t, 0, packets[0].DY)
				dz = append(dz, packets[0].DZ)
			}
			assert.Equal(t, tc.expected, dz)
		})
	}
}
