package gesture

import (
	"fmt"
	"testing"
	"time"

	"github.com/gethiox/evmoused/internal/pkg/clock"
	"github.com/gethiox/evmoused/internal/pkg/mouse"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testHardware = Hardware{
	MinX: 0, MaxX: 1000,
	MinY: 0, MaxY: 800,
	ResX: 10, ResY: 10,
	CapPressure: true,
}

func testParams() Params {
	p := DefaultParams()
	p.MinPressureHi = 25
	p.MinPressureLo = 10
	p.TapThreshold = 30
	return p
}

type step struct {
	after   int // ms since the previous step
	contact Contact
	buttons uint32 // physical buttons of the packet
}

func run(e *Engine, clk *clock.Fake, steps ...step) ([]Result, []uint32) {
	var results []Result
	var buttons []uint32
	for _, s := range steps {
		ms := mouse.Status{Button: s.buttons}
		results = append(results, e.Process(s.contact, clk.AdvanceMs(s.after), &ms))
		buttons = append(buttons, ms.Button)
	}
	return results, buttons
}

func finger(x, y, pressure int) Contact {
	return Contact{X: x, Y: y, Pressure: pressure, Fingers: 1}
}

func lifted() Contact {
	return Contact{}
}

func TestSingleTap(t *testing.T) {
	clk := clock.NewFake()
	e := NewEngine(testParams(), testHardware)

	results, buttons := run(e, clk,
		step{after: 0, contact: finger(500, 400, 50)},
		step{after: 30, contact: finger(501, 400, 50)},
		step{after: 30, contact: lifted()},
	)
	assert.Equal(t, []Result{Ignore, Accumulate, Ignore}, results)
	assert.Equal(t, []uint32{0, 0, mouse.Button1Down}, buttons)
	assert.True(t, e.State().InTapHold)

	deadline, armed := e.IdleDeadline()
	require.True(t, armed)
	assert.Equal(t, clk.Now().Add(300*time.Millisecond), deadline)

	// still inside the tap-hold window
	_, buttons = run(e, clk, step{after: 100, contact: lifted()})
	assert.Equal(t, []uint32{mouse.Button1Down}, buttons)

	e.ClearIdle()
	_, buttons = run(e, clk, step{after: 200, contact: lifted()})
	assert.Equal(t, []uint32{0}, buttons)
	assert.False(t, e.State().InTapHold)
	_, armed = e.IdleDeadline()
	assert.False(t, armed)
}

func TestDoubleTapReleasesThenPresses(t *testing.T) {
	clk := clock.NewFake()
	e := NewEngine(testParams(), testHardware)

	_, buttons := run(e, clk,
		step{after: 0, contact: finger(500, 400, 50)},
		step{after: 40, contact: lifted()},
	)
	assert.Equal(t, mouse.Button1Down, buttons[1], "first tap presses")

	_, buttons = run(e, clk,
		step{after: 40, contact: finger(500, 400, 50)},
		step{after: 40, contact: lifted()},
	)
	assert.Equal(t, mouse.Button1Down, buttons[0], "held during the second touch")
	assert.Equal(t, uint32(0), buttons[1], "second tap releases")

	deadline, armed := e.IdleDeadline()
	require.True(t, armed)
	assert.Equal(t, clk.Now(), deadline, "immediate idle timeout")
	assert.True(t, e.State().FingerDown)

	e.ClearIdle()
	_, buttons = run(e, clk, step{after: 0, contact: lifted()})
	assert.Equal(t, mouse.Button1Down, buttons[0], "fresh press")
	assert.True(t, e.State().InTapHold)
	assert.False(t, e.State().FingerDown)
}

func TestTapButtonByFingers(t *testing.T) {
	for _, tc := range []struct {
		fingers  int
		expected uint32
	}{
		{fingers: 1, expected: mouse.Button1Down},
		{fingers: 2, expected: mouse.Button3Down},
		{fingers: 3, expected: mouse.Button2Down},
	} {
		t.Run(fmt.Sprintf("%d", tc.fingers), func(t *testing.T) {
			clk := clock.NewFake()
			e := NewEngine(testParams(), testHardware)

			c := finger(500, 400, 50)
			c.Fingers = tc.fingers
			_, buttons := run(e, clk,
				step{after: 0, contact: c},
				step{after: 40, contact: lifted()},
			)
			assert.Equal(t, tc.expected, buttons[1])
		})
	}
}

func TestSlowTouchIsNotATap(t *testing.T) {
	clk := clock.NewFake()
	e := NewEngine(testParams(), testHardware)

	_, buttons := run(e, clk,
		step{after: 0, contact: finger(500, 400, 50)},
		step{after: 200, contact: lifted()},
	)
	assert.Equal(t, uint32(0), buttons[1])
	assert.False(t, e.State().InTapHold)
}

func TestLightTouchIsNotATap(t *testing.T) {
	clk := clock.NewFake()
	e := NewEngine(testParams(), testHardware)

	_, buttons := run(e, clk,
		step{after: 0, contact: finger(500, 400, 26)},
		step{after: 40, contact: lifted()},
	)
	assert.Equal(t, uint32(0), buttons[1])
}

func TestMotionLeavesAccumulate(t *testing.T) {
	clk := clock.NewFake()
	e := NewEngine(testParams(), testHardware)

	results, buttons := run(e, clk,
		step{after: 0, contact: finger(500, 400, 50)},
		step{after: 30, contact: finger(505, 400, 50)},
		step{after: 10, contact: finger(520, 400, 50)},
		step{after: 10, contact: finger(530, 400, 50)},
		step{after: 10, contact: lifted()},
	)
	assert.Equal(t, []Result{Ignore, Accumulate, Move, Move, Ignore}, results)
	assert.Equal(t, uint32(0), buttons[4], "movement disqualifies the tap")
}

func TestTwoFingerScroll(t *testing.T) {
	clk := clock.NewFake()
	e := NewEngine(testParams(), testHardware)

	two := func(x, y int) Contact {
		return Contact{X: x, Y: y, Pressure: 50, Fingers: 2}
	}

	results, buttons := run(e, clk,
		step{after: 0, contact: two(500, 400)},
		step{after: 30, contact: two(502, 430)},
		step{after: 10, contact: two(540, 432)},
		step{after: 10, contact: lifted()},
	)
	assert.Equal(t, []Result{Ignore, VScroll, HScroll, Ignore}, results)
	assert.Equal(t, uint32(0), buttons[3], "scrolling is never a tap")
}

func TestFingerCountChangeIgnored(t *testing.T) {
	clk := clock.NewFake()
	e := NewEngine(testParams(), testHardware)

	two := finger(500, 400, 50)
	two.Fingers = 2
	results, _ := run(e, clk,
		step{after: 0, contact: finger(500, 400, 50)},
		step{after: 30, contact: finger(500, 400, 50)},
		step{after: 10, contact: two},
	)
	assert.Equal(t, []Result{Ignore, Accumulate, Ignore}, results)
}

func TestAreaScroll(t *testing.T) {
	clk := clock.NewFake()
	p := testParams()
	p.TwoFingerScroll = false
	p.VScrollVerAreaMm = -10 // right 100 units
	e := NewEngine(p, testHardware)

	results, _ := run(e, clk,
		step{after: 0, contact: finger(950, 400, 50)},
		step{after: 30, contact: finger(950, 430, 50)},
	)
	assert.Equal(t, []Result{Ignore, VScroll}, results)

	e = NewEngine(p, testHardware)
	results, _ = run(e, clk,
		step{after: 0, contact: finger(500, 400, 50)},
		step{after: 30, contact: finger(500, 430, 50)},
	)
	assert.Equal(t, []Result{Ignore, Move}, results)
}

func TestPalmRejection(t *testing.T) {
	clk := clock.NewFake()
	hw := testHardware
	hw.CapWidth = true
	e := NewEngine(testParams(), hw)

	palm := finger(500, 400, 50)
	palm.Width = 20
	results, _ := run(e, clk, step{after: 0, contact: palm})
	assert.Equal(t, []Result{Ignore}, results)
	assert.False(t, e.State().FingerDown)

	e = NewEngine(testParams(), testHardware)
	heavy := finger(500, 400, 200)
	run(e, clk, step{after: 0, contact: heavy})
	assert.False(t, e.State().FingerDown, "pressure limit applies without width sensing")
}

func TestPressureHysteresis(t *testing.T) {
	clk := clock.NewFake()
	e := NewEngine(testParams(), testHardware)

	run(e, clk, step{after: 0, contact: finger(500, 400, 15)})
	assert.False(t, e.State().FingerDown, "below the high threshold")

	run(e, clk, step{after: 10, contact: finger(500, 400, 30)})
	assert.True(t, e.State().FingerDown)

	run(e, clk, step{after: 10, contact: finger(500, 400, 15)})
	assert.True(t, e.State().FingerDown, "kept open above the low threshold")

	run(e, clk, step{after: 10, contact: finger(500, 400, 5)})
	assert.False(t, e.State().FingerDown)
}

func TestMarginClamp(t *testing.T) {
	clk := clock.NewFake()
	p := testParams()
	p.MarginLeft = 50
	p.MarginBottom = 30
	e := NewEngine(p, testHardware)

	run(e, clk, step{after: 0, contact: finger(10, 790, 50)})
	assert.Equal(t, 50, e.State().StartX)
	assert.Equal(t, 770, e.State().StartY)
}

func TestSoftButtons(t *testing.T) {
	for i, tc := range []struct {
		x, y     int
		b2x, b3x int
		expected uint32
	}{
		{x: 800, y: 750, b2x: 400, b3x: 700, expected: mouse.Button3Down},
		{x: 500, y: 750, b2x: 400, b3x: 700, expected: mouse.Button2Down},
		{x: 200, y: 750, b2x: 400, b3x: 700, expected: mouse.Button1Down},
		{x: 800, y: 300, b2x: 400, b3x: 700, expected: mouse.Button1Down},
		{x: 800, y: 750, b2x: 700, b3x: 400, expected: mouse.Button2Down},
		{x: 500, y: 750, b2x: 700, b3x: 400, expected: mouse.Button3Down},
	} {
		t.Run(fmt.Sprintf("%d", i), func(t *testing.T) {
			clk := clock.NewFake()
			hw := testHardware
			hw.Clickpad = true
			p := testParams()
			p.SoftButtonsY = 100
			p.SoftButton2X = tc.b2x
			p.SoftButton3X = tc.b3x
			e := NewEngine(p, hw)

			_, buttons := run(e, clk, step{after: 0, contact: finger(tc.x, tc.y, 50), buttons: mouse.Button1Down})
			assert.Equal(t, tc.expected, buttons[0])

			_, buttons = run(e, clk, step{after: 300, contact: lifted(), buttons: mouse.Button1Down})
			assert.Equal(t, uint32(0), buttons[0], "clickpad button dropped once the finger is gone")
		})
	}
}

func TestTapHoldDrag(t *testing.T) {
	clk := clock.NewFake()
	e := NewEngine(testParams(), testHardware)

	run(e, clk,
		step{after: 0, contact: finger(500, 400, 50)},
		step{after: 40, contact: lifted()},
	)
	require.True(t, e.State().InTapHold)

	results, buttons := run(e, clk,
		step{after: 50, contact: finger(500, 400, 50)},
		step{after: 30, contact: finger(560, 400, 50)},
		step{after: 200, contact: finger(600, 400, 50)},
		step{after: 10, contact: lifted()},
	)
	assert.Equal(t, []Result{Ignore, Move, Move, Ignore}, results)
	assert.Equal(t, []uint32{mouse.Button1Down, mouse.Button1Down, mouse.Button1Down, 0}, buttons)
}

func TestThreeFingerDrag(t *testing.T) {
	three := Contact{X: 500, Y: 400, Pressure: 50, Fingers: 3}

	for _, tc := range []struct {
		name     string
		drag     bool
		tapFirst bool
		expected []uint32
	}{
		{name: "drag after tap", drag: true, tapFirst: true, expected: []uint32{mouse.Button1Down, mouse.Button1Down}},
		{name: "disabled", drag: false, tapFirst: true, expected: []uint32{0, 0}},
		{name: "no tap yet", drag: true, tapFirst: false, expected: []uint32{0, 0}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			p := testParams()
			p.ThreeFingerDrag = tc.drag
			clk := clock.NewFake()
			e := NewEngine(p, testHardware)

			if tc.tapFirst {
				run(e, clk,
					step{after: 0, contact: finger(500, 400, 50)},
					step{after: 40, contact: lifted()},
					step{after: 400, contact: lifted()},
				)
				require.False(t, e.State().InTapHold, "tap-hold expired")
				require.Equal(t, mouse.Button1Down, e.State().TapButton)
			}

			results, buttons := run(e, clk,
				step{after: 10, contact: three},
				step{after: 30, contact: three},
			)
			assert.Equal(t, []Result{Ignore, Move}, results)
			assert.Equal(t, tc.expected, buttons)
		})
	}
}
