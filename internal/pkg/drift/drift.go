// Package drift suppresses slow residual cursor creep once the user stopped
// interacting with the device.
package drift

import (
	"time"

	"github.com/gethiox/evmoused/internal/pkg/clock"
)

type Params struct {
	Enabled  bool
	Distance int           // |dx|+|dy| needed to count as real movement
	Time     time.Duration // accumulation window
	After    time.Duration // idle period before filtering starts
}

func DefaultParams() Params {
	return Params{
		Distance: 4,
		Time:     500 * time.Millisecond,
		After:    4000 * time.Millisecond,
	}
}

type point struct {
	x, y int
}

type Filter struct {
	params Params

	lastActivity time.Time
	since        time.Time
	last         point
	previous     point
}

func New(p Params, now time.Time) *Filter {
	return &Filter{params: p, lastActivity: now}
}

func (f *Filter) Enabled() bool {
	return f.params.Enabled
}

// Activity marks a button change or wheel motion.
func (f *Filter) Activity(now time.Time) {
	f.lastActivity = now
}

// Motion filters an x/y only packet. When pass is false the packet must be dropped.
func (f *Filter) Motion(dx, dy int, now time.Time) (ox, oy int, pass bool) {
	if !f.params.Enabled {
		return dx, dy, true
	}
	if !clock.Elapsed(now, f.lastActivity, f.params.After) {
		return dx, dy, true
	}

	window := now.Sub(f.since)
	if window < f.params.Time {
		f.last.x += dx
		f.last.y += dy
	} else {
		if window > 2*f.params.Time {
			f.previous = point{}
		} else {
			f.previous = f.last
		}
		f.last = point{dx, dy}
		f.since = now
	}

	if abs(f.last.x)+abs(f.last.y) > f.params.Distance {
		ox = f.previous.x + f.last.x
		oy = f.previous.y + f.last.y
		f.since = time.Time{}
		f.last = point{}
		f.lastActivity = now
		return ox, oy, true
	}
	return 0, 0, false
}

// Pending returns the motion accumulated in the current window.
func (f *Filter) Pending() (int, int) {
	return f.last.x, f.last.y
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
