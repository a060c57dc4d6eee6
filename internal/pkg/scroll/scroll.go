// Package scroll turns middle button drags into wheel ticks.
package scroll

import (
	"fmt"

	"github.com/gethiox/evmoused/internal/pkg/logger"
	"github.com/gethiox/evmoused/internal/pkg/mouse"
)

var log = logger.GetLogger()

type State int

const (
	NotScrolling State = iota
	Prepare
	Scrolling
)

func (s State) String() string {
	switch s {
	case Prepare:
		return "prepare"
	case Scrolling:
		return "scrolling"
	default:
		return "idle"
	}
}

type Params struct {
	Vertical   bool
	Horizontal bool
	Threshold  int
	Speed      int
}

func DefaultParams() Params {
	return Params{
		Threshold: 3,
		Speed:     2,
	}
}

type Controller struct {
	params Params

	state     State
	movement  int
	hmovement int
}

func New(p Params) *Controller {
	return &Controller{params: p}
}

func (c *Controller) Enabled() bool {
	return c.params.Vertical || c.params.Horizontal
}

func (c *Controller) State() State {
	return c.state
}

// Idle reports whether clicks may be forwarded.
func (c *Controller) Idle() bool {
	return c.state == NotScrolling
}

// Press observes the raw button mask of a new packet. It returns true when the
// middle button went up before any scrolling happened, in which case the
// caller replays a plain middle click.
func (c *Controller) Press(buttons uint32) bool {
	if !c.Enabled() {
		return false
	}

	if buttons == mouse.Button2Down {
		if c.state == NotScrolling {
			c.state = Prepare
			c.movement, c.hmovement = 0, 0
			log.Info("preparing to scroll", logger.Debug)
		}
		return false
	}

	switch c.state {
	case Scrolling:
		c.state = NotScrolling
		log.Info("done with scrolling", logger.Debug)
	case Prepare:
		c.state = NotScrolling
		return true
	}
	return false
}

// Filter rewrites a mapped packet while preparing or scrolling.
func (c *Controller) Filter(act *mouse.Status) {
	if !c.Enabled() {
		return
	}

	switch c.state {
	case Prepare:
		if act.DX == 0 && act.DY == 0 {
			return
		}
		if c.params.Vertical {
			c.movement += act.DY
			if c.exceeds(c.movement, c.params.Threshold) {
				c.state = Scrolling
			}
		}
		if c.params.Horizontal {
			c.hmovement += act.DX
			if c.exceeds(c.hmovement, c.params.Threshold) {
				c.state = Scrolling
			}
		}
		if c.state == Scrolling {
			c.movement, c.hmovement = 0, 0
		}

	case Scrolling:
		if c.params.Vertical {
			c.movement += act.DY
			log.Info(fmt.Sprintf("scroll: %d", c.movement), logger.Debug)
			if c.movement < -c.params.Speed {
				act.DZ = -1
				c.movement = 0
			} else if c.movement > c.params.Speed {
				act.DZ = 1
				c.movement = 0
			}
		}
		if c.params.Horizontal {
			c.hmovement += act.DX
			log.Info(fmt.Sprintf("horizontal scroll: %d", c.hmovement), logger.Debug)
			if c.hmovement < -c.params.Speed {
				act.DZ = -2
				c.hmovement = 0
			} else if c.hmovement > c.params.Speed {
				act.DZ = 2
				c.hmovement = 0
			}
		}
		act.DX, act.DY = 0, 0
	}
}

func (c *Controller) exceeds(v, limit int) bool {
	return v < -limit || v > limit
}
