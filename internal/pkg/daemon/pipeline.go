// Package daemon runs the packet pipeline of one pointing device.
package daemon

import (
	"fmt"
	"time"

	"github.com/gethiox/evmoused/internal/pkg/accel"
	"github.com/gethiox/evmoused/internal/pkg/button"
	"github.com/gethiox/evmoused/internal/pkg/clock"
	"github.com/gethiox/evmoused/internal/pkg/config"
	"github.com/gethiox/evmoused/internal/pkg/drift"
	"github.com/gethiox/evmoused/internal/pkg/input"
	"github.com/gethiox/evmoused/internal/pkg/logger"
	"github.com/gethiox/evmoused/internal/pkg/mouse"
	"github.com/gethiox/evmoused/internal/pkg/protocol"
	"github.com/gethiox/evmoused/internal/pkg/scroll"
	"github.com/gethiox/evmoused/internal/pkg/sink"
	"github.com/holoplot/go-evdev"
)

var log = logger.GetLogger()

// EmulatorPoll is the wait used while the chord emulator awaits a timeout.
const EmulatorPoll = 20 * time.Millisecond

type Counters struct {
	Events  int // raw evdev events
	Packets int // assembled packets carrying a change
	Motions int
	Clicks  int
	Drifted int // packets swallowed by the drift filter
}

// Pipeline turns raw events into sink events. It is not safe for concurrent
// use, the daemon loop owns it.
type Pipeline struct {
	clock clock.Clock
	sink  sink.Sink

	asm      *protocol.Assembler
	emulator *button.Emulator
	mapping  *button.Mapping
	clicks   *button.Clicks
	scroll   *scroll.Controller
	drift    *drift.Filter
	accel    *accel.Accelerator

	action0 mouse.Status // raw
	action  mouse.Status // after chord emulation
	action2 mouse.Status // after mapping

	counters Counters
}

func NewPipeline(caps input.Capabilities, opts config.Options, s sink.Sink, clk clock.Clock) (*Pipeline, error) {
	mapping, err := opts.Mapping()
	if err != nil {
		return nil, err
	}

	if caps.Class == input.TouchpadClass {
		caps.SizeHint(opts.SizeHint.W, opts.SizeHint.H)
	}

	now := clk.Now()
	p := &Pipeline{
		clock: clk,
		sink:  s,
		asm: protocol.NewAssembler(caps, protocol.Config{
			ChordMiddle:   opts.ChordMiddle,
			Gesture:       opts.Touchpad,
			ScrollDivisor: opts.ScrollDivisor,
		}),
		emulator: button.NewEmulator(opts.Emulate3Button, opts.Button2Timeout, now),
		mapping:  mapping,
		clicks:   button.NewClicks(mapping, opts.ClickThreshold, opts.Button2Timeout, now),
		scroll:   scroll.New(opts.Scroll),
		drift:    drift.New(opts.Drift, now),
		accel:    accel.New(opts.Accel),
	}
	return p, nil
}

// Event feeds one raw event, a completed packet runs through the pipeline.
func (p *Pipeline) Event(ev *evdev.InputEvent) error {
	p.counters.Events++
	now := p.clock.Now()
	ms, ok := p.asm.Feed(ev, now)
	if !ok {
		return nil
	}
	return p.Packet(ms, now)
}

// NextTimeout reports how long the loop may wait for device data before
// Timeout has to run.
func (p *Pipeline) NextTimeout() (time.Duration, bool) {
	var wait time.Duration
	var ok bool

	if p.emulator.Delayed() {
		wait, ok = EmulatorPoll, true
	}
	if engine := p.asm.Gestures(); engine != nil {
		if deadline, armed := engine.IdleDeadline(); armed {
			d := deadline.Sub(p.clock.Now())
			if d < 0 {
				d = 0
			}
			if !ok || d < wait {
				wait, ok = d, true
			}
		}
	}
	return wait, ok
}

// Timeout drives time based transitions without device data.
func (p *Pipeline) Timeout() error {
	now := p.clock.Now()

	if engine := p.asm.Gestures(); engine != nil {
		if deadline, armed := engine.IdleDeadline(); armed && !now.Before(deadline) {
			engine.ClearIdle()
			err := p.Packet(p.asm.Sync(now), now)
			if err != nil {
				return err
			}
		}
	}

	if !p.emulator.Delayed() || !p.emulator.TimedOut(now) {
		return nil
	}
	in := mouse.Status{Button: p.action0.Button, OButton: p.action0.Button}
	act, changed := p.emulator.Transition(in, p.action, button.SymTimeout, now)
	if !changed {
		return nil
	}
	p.action = act
	log.Info(fmt.Sprintf("emulator timeout, state %s", p.emulator.State()), logger.Debug)
	return p.dispatch(act.OButton^act.Button, now)
}

// Packet runs one assembled packet through emulation, mapping, scrolling,
// drift filtering and acceleration.
func (p *Pipeline) Packet(raw mouse.Status, now time.Time) error {
	flags := raw.Flags
	if flags == 0 {
		return nil
	}
	p.counters.Packets++

	raw.OButton = p.action0.Button
	raw.Flags = flags
	p.action0 = raw

	if p.scroll.Press(p.action0.Button) {
		err := p.replayMiddle()
		if err != nil {
			return err
		}
	}

	p.clicks.Stamp(&p.action0, now)
	p.action, _ = p.emulator.Transition(p.action0, p.action, button.SymbolFor(p.action0.Button), now)

	flags = flags&mouse.PosChanged | (p.action.OButton ^ p.action.Button)
	return p.dispatch(flags, now)
}

// replayMiddle sends the middle click swallowed while waiting for a
// virtual scroll that never happened.
func (p *Pipeline) replayMiddle() error {
	log.Info("replaying middle click", logger.Debug)

	press := mouse.Status{Flags: mouse.Button2Down, Button: mouse.Button2Down}
	err := p.click(press)
	if err != nil {
		return err
	}
	release := mouse.Status{Flags: mouse.Button2Down, OButton: mouse.Button2Down, Button: p.action0.Button}
	return p.click(release)
}

func (p *Pipeline) dispatch(flags uint32, now time.Time) error {
	p.action.Flags = flags
	if flags == 0 {
		return nil
	}

	p.action2 = p.mapping.Apply(&p.action, p.action2, p.clicks)
	log.Info(fmt.Sprintf("activity: %s", p.action2), logger.Motion)

	p.scroll.Filter(&p.action2)

	if p.drift.Enabled() {
		if flags&mouse.PosChanged == 0 || p.action.DZ != 0 || p.action2.DZ != 0 {
			p.drift.Activity(now)
		} else {
			dx, dy, pass := p.drift.Motion(p.action2.DX, p.action2.DY, now)
			if !pass {
				p.counters.Drifted++
				return nil
			}
			p.action2.DX, p.action2.DY = dx, dy
		}
	}

	if p.scroll.Idle() {
		err := p.click(p.action2)
		if err != nil {
			return err
		}
	}

	if p.action2.Flags&mouse.PosChanged != 0 {
		err := p.motion(p.action2)
		if err != nil {
			return err
		}
	}

	// wheel steps mapped to buttons get a release right after the press
	if p.mapping.ZAxis() == button.ZAxisButtons && p.action.DZ != 0 {
		p.action.OButton = p.action.Button
		p.action.DX, p.action.DY, p.action.DZ = 0, 0, 0
		p.action2 = p.mapping.Apply(&p.action, p.action2, p.clicks)
		return p.click(p.action2)
	}
	return nil
}

func (p *Pipeline) click(act mouse.Status) error {
	for _, ev := range p.clicks.Click(act) {
		p.counters.Clicks++
		err := p.sink.Send(ev)
		if err != nil {
			return fmt.Errorf("sending button event failed: %w", err)
		}
	}
	return nil
}

func (p *Pipeline) motion(act mouse.Status) error {
	ev := mouse.MotionEvent{Buttons: act.Button, DZ: act.DZ}
	ev.DX, ev.DY = p.accel.Move(act.DX, act.DY)
	if act.DZ != 2 && act.DZ != -2 {
		ev.DZ = p.accel.Wheel(act.DZ)
	}
	p.counters.Motions++
	err := p.sink.Send(ev)
	if err != nil {
		return fmt.Errorf("sending motion event failed: %w", err)
	}
	return nil
}

// Snapshot captures the pipeline state for the debug overview.
func (p *Pipeline) Snapshot() Snapshot {
	s := Snapshot{
		Emulate3: p.emulator.Enabled(),
		Emulator: p.emulator.State().String(),
		Accel:    p.accel.Params().String(),
		Scroll:   p.scroll.State().String(),
		Last:     p.action2,
		Counters: p.counters,
	}
	for i := range s.Clicks {
		s.Clicks[i] = p.clicks.Count(i + 1)
	}
	s.DriftPending[0], s.DriftPending[1] = p.drift.Pending()
	if engine := p.asm.Gestures(); engine != nil {
		g := engine.State()
		s.Gesture = p.asm.LastResult().String()
		s.FingerDown = g.FingerDown
		s.TapHold = g.InTapHold
		s.Fingers = g.FingersNb
		params := engine.Params()
		s.TwoFingerScroll = params.TwoFingerScroll
		s.ThreeFingerDrag = params.ThreeFingerDrag
	}
	return s
}
