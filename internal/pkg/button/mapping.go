package button

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/gethiox/evmoused/internal/pkg/mouse"
)

var ErrInvalidMapping = errors.New("invalid button mapping")

// ZAxis selects what wheel motion is turned into.
type ZAxis int

const (
	ZAxisNone ZAxis = iota
	ZAxisX
	ZAxisY
	ZAxisButtons
)

// Mapping translates physical buttons into logical ones.
type Mapping struct {
	p2l [mouse.MaxButton]uint32
	// source[l] is the 1-based physical button feeding logical button l, 0 means identity
	source [mouse.MaxButton]int

	wmode uint32

	zaxis ZAxis
	zmap  [4]int // button numbers: negative, positive, negative horizontal, positive horizontal
}

func NewMapping() *Mapping {
	m := &Mapping{}
	for i := range m.p2l {
		m.p2l[i] = 1 << i
	}
	return m
}

// Install parses "L=P [L=P ...]", routing physical button P to logical button L.
func (m *Mapping) Install(arg string) error {
	for _, pair := range strings.FieldsFunc(arg, func(r rune) bool { return unicode.IsSpace(r) || r == ',' }) {
		l, p, ok := strings.Cut(pair, "=")
		if !ok {
			return fmt.Errorf("%w: %q", ErrInvalidMapping, arg)
		}
		lbutton, err := strconv.Atoi(strings.TrimSpace(l))
		if err != nil {
			return fmt.Errorf("%w: %q: %v", ErrInvalidMapping, arg, err)
		}
		pbutton, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return fmt.Errorf("%w: %q: %v", ErrInvalidMapping, arg, err)
		}
		if lbutton <= 0 || lbutton > mouse.MaxButton || pbutton <= 0 || pbutton > mouse.MaxButton {
			return fmt.Errorf("%w: %q: button out of range", ErrInvalidMapping, arg)
		}
		m.p2l[pbutton-1] = mouse.ButtonMask(lbutton)
		m.source[lbutton-1] = pbutton
	}
	return nil
}

// SetWheelButton makes physical button n turn vertical motion into wheel motion while held.
func (m *Mapping) SetWheelButton(n int) error {
	if n <= 0 || n > mouse.MaxButton {
		return fmt.Errorf("%w: wheel button %d", ErrInvalidMapping, n)
	}
	m.wmode = mouse.ButtonMask(n)
	return nil
}

// SetZAxis parses "x", "y" or "N[,N2[,N3[,N4]]]".
func (m *Mapping) SetZAxis(arg string) error {
	switch strings.TrimSpace(arg) {
	case "":
		m.zaxis = ZAxisNone
		return nil
	case "x":
		m.zaxis = ZAxisX
		return nil
	case "y":
		m.zaxis = ZAxisY
		return nil
	}

	fields := strings.FieldsFunc(arg, func(r rune) bool { return unicode.IsSpace(r) || r == ',' })
	if len(fields) > 4 {
		return fmt.Errorf("%w: z axis %q: too many buttons", ErrInvalidMapping, arg)
	}

	var zmap [4]int
	for i, f := range fields {
		n, err := strconv.Atoi(f)
		if err != nil {
			return fmt.Errorf("%w: z axis %q: %v", ErrInvalidMapping, arg, err)
		}
		if n <= 0 || n > mouse.MaxButton-1 {
			return fmt.Errorf("%w: z axis %q: button %d out of range", ErrInvalidMapping, arg, n)
		}
		zmap[i] = n
	}
	if zmap[1] == 0 {
		zmap[1] = zmap[0] + 1
	}
	if zmap[2] != 0 && zmap[3] == 0 {
		zmap[3] = zmap[2] + 1
	}

	m.zaxis = ZAxisButtons
	m.zmap = zmap
	return nil
}

func (m *Mapping) ZAxis() ZAxis {
	return m.zaxis
}

func (m *Mapping) zmask(i int) uint32 {
	return mouse.ButtonMask(m.zmap[i])
}

// Apply maps in to logical buttons. Wheel-mode conversion is written back
// into in, as later stages inspect the converted wheel delta.
func (m *Mapping) Apply(in *mouse.Status, prev mouse.Status, clicks *Clicks) mouse.Status {
	pbuttons := in.Button
	out := mouse.Status{OButton: prev.Button}

	if m.wmode != 0 && pbuttons&m.wmode != 0 {
		pbuttons &^= m.wmode
		in.DZ = in.DY
		in.DX = 0
		in.DY = 0
	}
	out.DX, out.DY, out.DZ = in.DX, in.DY, in.DZ

	switch m.zaxis {
	case ZAxisX:
		if in.DZ != 0 {
			out.DX = in.DZ
			out.DZ = 0
		}
	case ZAxisY:
		if in.DZ != 0 {
			out.DY = in.DZ
			out.DZ = 0
		}
	case ZAxisButtons:
		pbuttons &^= m.zmask(0) | m.zmask(1) | m.zmask(2) | m.zmask(3)
		i := -1
		switch {
		case in.DZ < -1 && m.zmap[2] != 0:
			i = 2
		case in.DZ < 0:
			i = 0
		case in.DZ > 1 && m.zmap[3] != 0:
			i = 3
		case in.DZ > 0:
			i = 1
		}
		if i >= 0 {
			pbuttons |= m.zmask(i)
			if clicks != nil {
				clicks.wheelPressed(i)
			}
		}
		out.DZ = 0
	}

	var lbuttons uint32
	for pb := 0; pb < mouse.MaxButton && pbuttons != 0; pb++ {
		if pbuttons&1 != 0 {
			lbuttons |= m.p2l[pb]
		}
		pbuttons >>= 1
	}
	out.Button = lbuttons
	out.Flags = out.ChangeFlags()

	return out
}
