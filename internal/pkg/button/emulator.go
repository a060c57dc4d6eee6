package button

import (
	"time"

	"github.com/gethiox/evmoused/internal/pkg/clock"

	"github.com/gethiox/evmoused/internal/pkg/mouse"
)

// State is one of the ten chord emulation states.
type State int

const (
	S0 State = iota
	S1
	S2
	S3
	S4
	S5
	S6
	S7
	S8
	S9
)

func (s State) String() string {
	if s < S0 || s > S9 {
		return "S?"
	}
	return [...]string{"S0", "S1", "S2", "S3", "S4", "S5", "S6", "S7", "S8", "S9"}[s]
}

// Symbol is the FSM input: bit 1 is button 1 held, bit 0 is button 3 held.
type Symbol int

const (
	SymNone    Symbol = 0
	SymB3      Symbol = 1
	SymB1      Symbol = 2
	SymB1B3    Symbol = 3
	SymTimeout Symbol = 4

	symbolCount = 5
)

// Input builds the symbol for the current state of buttons 1 and 3.
func Input(b1, b3 bool) Symbol {
	var s Symbol
	if b1 {
		s |= SymB1
	}
	if b3 {
		s |= SymB3
	}
	return s
}

// SymbolFor derives the symbol from a raw button mask.
func SymbolFor(buttons uint32) Symbol {
	return Input(buttons&mouse.Button1Down != 0, buttons&mouse.Button3Down != 0)
}

type transition struct {
	next    [symbolCount]State
	buttons uint32
	mask    uint32
	timeout bool
}

const (
	b1 = mouse.Button1Down
	b2 = mouse.Button2Down
	b3 = mouse.Button3Down
)

var table = [...]transition{
	S0: {next: [symbolCount]State{S0, S2, S1, S3, S0}, buttons: 0, mask: ^(b1 | b3), timeout: false},
	S1: {next: [symbolCount]State{S4, S2, S1, S3, S5}, buttons: 0, mask: ^b1, timeout: false},
	S2: {next: [symbolCount]State{S8, S2, S1, S3, S6}, buttons: 0, mask: ^b3, timeout: false},
	S3: {next: [symbolCount]State{S0, S9, S9, S3, S3}, buttons: b2, mask: ^uint32(0), timeout: false},
	S4: {next: [symbolCount]State{S0, S2, S1, S3, S0}, buttons: b1, mask: ^uint32(0), timeout: true},
	S5: {next: [symbolCount]State{S0, S2, S5, S7, S5}, buttons: b1, mask: ^uint32(0), timeout: false},
	S6: {next: [symbolCount]State{S0, S6, S1, S7, S6}, buttons: b3, mask: ^uint32(0), timeout: false},
	S7: {next: [symbolCount]State{S0, S6, S5, S7, S7}, buttons: b1 | b3, mask: ^uint32(0), timeout: false},
	S8: {next: [symbolCount]State{S0, S2, S1, S3, S0}, buttons: b3, mask: ^uint32(0), timeout: true},
	S9: {next: [symbolCount]State{S0, S9, S9, S3, S9}, buttons: 0, mask: ^(b1 | b3), timeout: false},
}

// Next returns the table target of state s for symbol sym.
func Next(s State, sym Symbol) State {
	return table[s].next[sym]
}

// Delayed reports whether s is waiting on a possible chord.
func Delayed(s State) bool {
	return Next(s, SymTimeout) != s
}

// maxDelayedMoves is how many motion packets may be swallowed while a
// button transition is deferred.
const maxDelayedMoves = 3

// Emulator synthesizes button 2 from a button 1 + button 3 chord.
type Emulator struct {
	enabled bool
	timeout time.Duration

	state        State
	since        time.Time
	movesDelayed int
}

func NewEmulator(enabled bool, button2Timeout time.Duration, now time.Time) *Emulator {
	return &Emulator{
		enabled: enabled,
		timeout: button2Timeout,
		state:   S0,
		since:   now,
	}
}

func (e *Emulator) Enabled() bool {
	return e.enabled
}

func (e *Emulator) State() State {
	return e.state
}

// Delayed reports whether the current state awaits a timeout.
func (e *Emulator) Delayed() bool {
	return e.enabled && Delayed(e.state)
}

// TimedOut reports whether a timeout transition may fire now.
func (e *Emulator) TimedOut(now time.Time) bool {
	if table[e.state].timeout {
		return true
	}
	return clock.Elapsed(now, e.since, e.timeout)
}

// Transition feeds in, producing the emulated packet. It reports whether the
// FSM changed state.
func (e *Emulator) Transition(in mouse.Status, prev mouse.Status, sym Symbol, now time.Time) (mouse.Status, bool) {
	out := in
	out.OButton = prev.Button

	if !e.enabled {
		return out, false
	}

	var changed bool
	if (out.DX != 0 || out.DY != 0) && Delayed(Next(e.state, sym)) {
		e.movesDelayed++
		if e.movesDelayed > maxDelayedMoves {
			e.movesDelayed = 0
			e.state = Next(e.state, SymTimeout)
			changed = true
		} else {
			out.DX, out.DY = 0, 0
		}
	} else {
		e.movesDelayed = 0
	}

	next := Next(e.state, sym)
	if e.state != next {
		changed = true
	}
	if changed {
		e.since = now
	}
	e.state = next

	out.Button &^= b1 | b2 | b3
	out.Button &= table[e.state].mask
	out.Button |= table[e.state].buttons

	flags := out.Flags & mouse.PosChanged
	flags |= out.OButton ^ out.Button
	out.Flags = flags

	return out, changed
}
