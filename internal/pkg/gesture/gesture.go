// Package gesture recognizes taps, drags and scrolling on touchpads.
package gesture

import (
	"fmt"
	"time"

	"github.com/gethiox/evmoused/internal/pkg/clock"
	"github.com/gethiox/evmoused/internal/pkg/logger"
	"github.com/gethiox/evmoused/internal/pkg/mouse"
)

var log = logger.GetLogger()

type Result int

const (
	Ignore Result = iota
	Accumulate
	Move
	VScroll
	HScroll
)

func (r Result) String() string {
	switch r {
	case Accumulate:
		return "accumulate"
	case Move:
		return "move"
	case VScroll:
		return "vscroll"
	case HScroll:
		return "hscroll"
	default:
		return "ignore"
	}
}

// Contact is one assembled touchpad sample.
type Contact struct {
	X, Y     int
	Pressure int
	Width    int
	Fingers  int
}

const startDelay = 25 * time.Millisecond

// State is the recognizer memory carried between samples.
type State struct {
	FingerDown bool
	InTapHold  bool
	// InVScroll is the scroll vote: 1 vertical, 2 horizontal
	InVScroll int
	Scrolled  bool

	FingersNb   int
	PrevFingers int
	ZMax        int

	StartX, StartY int
	PrevX, PrevY   int

	TapButton   uint32
	StartDelay  time.Time
	TapDeadline time.Time

	IdleDeadline time.Time
	IdleArmed    bool
}

type Engine struct {
	params Params
	hw     Hardware
	state  State
}

func NewEngine(p Params, hw Hardware) *Engine {
	return &Engine{params: p, hw: hw}
}

func (e *Engine) Params() Params {
	return e.params
}

func (e *Engine) State() State {
	return e.state
}

// IdleDeadline reports when the daemon should feed a synthetic sample even
// without new device data.
func (e *Engine) IdleDeadline() (time.Time, bool) {
	return e.state.IdleDeadline, e.state.IdleArmed
}

func (e *Engine) ClearIdle() {
	e.state.IdleArmed = false
}

func (e *Engine) armIdle(at time.Time) {
	e.state.IdleDeadline = at
	e.state.IdleArmed = true
}

// Process interprets one sample. ms carries the physical buttons and gets the
// gesture buttons merged in.
func (e *Engine) Process(c Contact, now time.Time, ms *mouse.Status) Result {
	g := &e.state
	if c.Pressure >= e.params.MinPressureHi || (g.FingerDown && c.Pressure >= e.params.MinPressureLo) {
		return e.touch(c, now, ms)
	}
	e.release(now, ms)
	return Ignore
}

func (e *Engine) touch(c Contact, now time.Time, ms *mouse.Status) Result {
	p := &e.params
	hw := &e.hw
	g := &e.state

	if c.Fingers == 1 &&
		((hw.CapWidth && c.Width > p.MaxWidth) || (!hw.CapWidth && hw.CapPressure && c.Pressure > p.MaxPressure)) {
		log.Info(fmt.Sprintf("palm detected (pressure %d, width %d)", c.Pressure, c.Width), logger.Debug)
		return Ignore
	}

	x, y := e.clamp(c.X, c.Y)

	if !g.FingerDown {
		g.FingerDown = true
		g.StartDelay = now.Add(startDelay)
		g.TapDeadline = now.Add(p.TapTimeout)
		g.IdleArmed = false
		g.ZMax = 0
		g.FingersNb = 0
		g.InVScroll = 0
		g.Scrolled = false
		g.StartX, g.StartY = x, y
		g.PrevX, g.PrevY = x, y
		g.PrevFingers = c.Fingers
	}

	if hw.Clickpad && ms.Button&mouse.Button1Down != 0 {
		e.softButtons(ms)
	}

	if g.InTapHold || (c.Fingers == 3 && p.ThreeFingerDrag) {
		ms.Button |= g.TapButton
	}

	g.FingersNb = max(g.FingersNb, c.Fingers)
	g.ZMax = max(g.ZMax, c.Pressure)

	if clock.Less(now, g.StartDelay) {
		g.StartX, g.StartY = x, y
		g.PrevX, g.PrevY = x, y
		g.PrevFingers = c.Fingers
		return Ignore
	}

	dx := abs(x - g.StartX)
	dy := abs(y - g.StartY)

	if !g.InTapHold && ms.Button == 0 && (g.InVScroll == 0 || p.TwoFingerScroll) {
		if clock.Greater(now, g.TapDeadline) ||
			float64(dx) >= p.VScrollMinDeltaMm*hw.resX() ||
			float64(dy) >= p.VScrollMinDeltaMm*hw.resY() {
			e.vote(c.Fingers, dx, dy)
		}
	}

	if p.TwoFingerScroll && g.InVScroll != 0 && (c.Fingers != 2 || ms.Button != 0) {
		g.InVScroll = 0
	}

	prevFingers := g.PrevFingers
	prevX := g.PrevX
	g.PrevFingers = c.Fingers
	g.PrevX, g.PrevY = x, y

	if prevFingers != c.Fingers {
		return Ignore
	}

	switch g.InVScroll {
	case 1:
		return VScroll
	case 2:
		log.Info(fmt.Sprintf("horizontal scroll %d not dispatched", x-prevX), logger.Debug)
		return HScroll
	}

	if g.FingersNb == 1 && !clock.Greater(now, g.TapDeadline) {
		if float64(dx) <= p.TapMaxDeltaMm*hw.resX() && float64(dy) <= p.TapMaxDeltaMm*hw.resY() {
			return Accumulate
		}
		g.TapDeadline = time.Time{}
	}

	return Move
}

// vote updates the scroll direction vote.
func (e *Engine) vote(fingers, dx, dy int) {
	p := &e.params
	hw := &e.hw
	g := &e.state

	if p.TwoFingerScroll {
		if fingers != 2 {
			return
		}
		g.InVScroll = 0
		if dy != 0 {
			g.InVScroll += 1
		}
		if dx != 0 {
			g.InVScroll += 2
		}
	} else {
		horArea := p.VScrollHorAreaMm * hw.resY()
		verArea := p.VScrollVerAreaMm * hw.resX()
		sx, sy := float64(g.StartX), float64(g.StartY)

		if (horArea > 0 && sy <= float64(hw.MinY)+horArea) ||
			(horArea < 0 && sy >= float64(hw.MaxY)+horArea) {
			g.InVScroll += 2
		}
		if (verArea > 0 && sx <= float64(hw.MinX)+verArea) ||
			(verArea < 0 && sx >= float64(hw.MaxX)+verArea) {
			g.InVScroll += 1
		}
	}

	if g.InVScroll >= 3 {
		if dx > dy {
			g.InVScroll = 2
		} else {
			g.InVScroll = 1
		}
	}
	if g.InVScroll != 0 {
		g.Scrolled = true
	}
}

func (e *Engine) clamp(x, y int) (int, int) {
	p := &e.params
	hw := &e.hw

	if p.MarginLeft != 0 && x <= hw.MinX+p.MarginLeft {
		x = hw.MinX + p.MarginLeft
	} else if p.MarginRight != 0 && x >= hw.MaxX-p.MarginRight {
		x = hw.MaxX - p.MarginRight
	}
	if p.MarginTop != 0 && y <= hw.MinY+p.MarginTop {
		y = hw.MinY + p.MarginTop
	} else if p.MarginBottom != 0 && y >= hw.MaxY-p.MarginBottom {
		y = hw.MaxY - p.MarginBottom
	}
	return x, y
}

// softButtons remaps button 1 depending on where the touch started.
func (e *Engine) softButtons(ms *mouse.Status) {
	p := &e.params
	hw := &e.hw
	g := &e.state

	var yOK bool
	switch {
	case p.SoftButtonsY > 0:
		yOK = g.StartY > hw.MaxY-p.SoftButtonsY
	case p.SoftButtonsY < 0:
		yOK = g.StartY < hw.MinY-p.SoftButtonsY
	}
	if !yOK {
		return
	}

	centerBt, centerX, center := mouse.Button2Down, hw.MinX+p.SoftButton2X, p.SoftButton2X > 0
	rightBt, rightX, right := mouse.Button3Down, hw.MinX+p.SoftButton3X, p.SoftButton3X > 0
	if center && right && centerX > rightX {
		centerBt, rightBt = rightBt, centerBt
		centerX, rightX = rightX, centerX
	}

	switch {
	case right && g.StartX > rightX:
		ms.Button = ms.Button&^mouse.Button1Down | rightBt
	case center && g.StartX > centerX:
		ms.Button = ms.Button&^mouse.Button1Down | centerBt
	}
}

func (e *Engine) release(now time.Time, ms *mouse.Status) {
	p := &e.params
	g := &e.state

	if e.hw.Clickpad && p.SoftButtonsY != 0 {
		ms.Button &^= mouse.Button1Down
	}

	if !g.FingerDown {
		if g.InTapHold {
			if now.Before(g.TapDeadline) {
				ms.Button |= g.TapButton
				e.armIdle(g.TapDeadline)
			} else {
				g.InTapHold = false
				g.IdleArmed = false
				log.Info("tap-hold expired", logger.Debug)
			}
		}
		return
	}

	if !g.Scrolled && g.ZMax >= p.TapThreshold && now.Before(g.TapDeadline) {
		switch g.FingersNb {
		case 3:
			g.TapButton = mouse.Button2Down
		case 2:
			g.TapButton = mouse.Button3Down
		default:
			g.TapButton = mouse.Button1Down
		}

		if g.InTapHold {
			// double tap: release now, press again on the next iteration
			g.InTapHold = false
			e.armIdle(now)
			log.Info("double tap", logger.Debug)
			return
		}

		g.InTapHold = true
		g.TapDeadline = now.Add(p.TapholdTimeout)
		e.armIdle(g.TapDeadline)
		ms.Button |= g.TapButton
		log.Info(fmt.Sprintf("tap with %d finger(s)", g.FingersNb), logger.Debug)
	} else if g.InTapHold {
		g.InTapHold = false
	}
	g.FingerDown = false
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
