package button

import (
	"fmt"
	"time"

	"github.com/gethiox/evmoused/internal/pkg/clock"
	"github.com/gethiox/evmoused/internal/pkg/logger"
	"github.com/gethiox/evmoused/internal/pkg/mouse"
)

var log = logger.GetLogger()

// ButtonState tracks multi-click counting for one button.
type ButtonState struct {
	Count int
	TS    time.Time
}

// Clicks keeps click counts for the physical buttons and the four wheel
// pseudo-buttons, and resolves logical buttons back to one of them.
type Clicks struct {
	clickThreshold time.Duration
	button2Timeout time.Duration

	bstate [mouse.MaxButton]ButtonState
	zstate [4]ButtonState
	mstate [mouse.MaxButton]*ButtonState
}

func NewClicks(m *Mapping, clickThreshold, button2Timeout time.Duration, now time.Time) *Clicks {
	c := &Clicks{
		clickThreshold: clickThreshold,
		button2Timeout: button2Timeout,
	}
	c.Reset(now)

	for l := 0; l < mouse.MaxButton; l++ {
		p := l
		if m != nil && m.source[l] > 0 {
			p = m.source[l] - 1
		}
		c.mstate[l] = &c.bstate[p]
	}

	if m != nil && m.zaxis == ZAxisButtons {
		for i, zb := range m.zmap {
			if zb <= 0 {
				continue
			}
			for l := range c.mstate {
				if c.mstate[l] == &c.bstate[zb-1] {
					c.mstate[l] = &c.zstate[i]
				}
			}
		}
	}
	return c
}

// Reset clears all counts, stamping every button with now.
func (c *Clicks) Reset(now time.Time) {
	for i := range c.bstate {
		c.bstate[i] = ButtonState{TS: now}
	}
	for i := range c.zstate {
		c.zstate[i] = ButtonState{TS: now}
	}
}

// Stamp updates click counts for the buttons flagged in act. A button held
// past the button 2 timeout has its count reset and is flagged as changed.
func (c *Clicks) Stamp(act *mouse.Status, now time.Time) {
	mask := act.Flags & mouse.Buttons

	button := mouse.Button1Down
	for i := 0; i < mouse.MaxButton && mask != 0; i++ {
		st := &c.bstate[i]
		if mask&1 != 0 {
			if act.Button&button != 0 {
				if clock.Elapsed(now, st.TS, c.clickThreshold) {
					st.Count = 1
				} else {
					st.Count++
				}
			}
			st.TS = now
		} else if act.Button&button != 0 && clock.Elapsed(now, st.TS, c.button2Timeout) {
			st.Count = 1
			st.TS = now
			act.Flags |= button
			log.Info(fmt.Sprintf("button %d hold timeout", i+1), logger.Debug)
		}
		button <<= 1
		mask >>= 1
	}
}

// Click builds one ButtonEvent for every changed logical button in act.
func (c *Clicks) Click(act mouse.Status) []mouse.ButtonEvent {
	mask := act.Flags & mouse.Buttons
	if mask == 0 {
		return nil
	}

	var events []mouse.ButtonEvent
	button := mouse.Button1Down
	for i := 0; i < mouse.MaxButton && mask != 0; i++ {
		if mask&1 != 0 {
			ev := mouse.ButtonEvent{ID: button}
			if act.Button&button != 0 {
				// buttons synthesized by chord emulation were never stamped
				ev.Count = max(c.mstate[i].Count, 1)
			}
			events = append(events, ev)
		}
		button <<= 1
		mask >>= 1
	}
	return events
}

// Count returns the click count currently attributed to logical button n.
func (c *Clicks) Count(n int) int {
	if n <= 0 || n > mouse.MaxButton {
		return 0
	}
	return c.mstate[n-1].Count
}

func (c *Clicks) wheelPressed(i int) {
	c.zstate[i].Count = 1
}
