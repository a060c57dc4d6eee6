package protocol

// Slot is one tracked contact. TrackingID is -1 while the slot is unused.
type Slot struct {
	X, Y       int
	Pressure   int
	Width      int
	TrackingID int
}

func (s *Slot) Active() bool {
	return s.TrackingID >= 0
}

func (s *Slot) Clear() {
	*s = Slot{TrackingID: -1}
}

type Slots [MaxSlots]Slot

func (s *Slots) Reset() {
	for i := range s {
		s[i].Clear()
	}
}

// Active counts the contacts currently on the surface.
func (s *Slots) Active() int {
	var n int
	for i := range s {
		if s[i].Active() {
			n++
		}
	}
	return n
}

// Primary returns the lowest active slot or -1.
func (s *Slots) Primary() int {
	for i := range s {
		if s[i].Active() {
			return i
		}
	}
	return -1
}

// Delta sums the motion of every contact that was already tracked in prev
// and averages it when more than one contact moved together.
func (s *Slots) Delta(prev *Slots) (dx, dy int) {
	var n int
	for i := range s {
		cur, old := &s[i], &prev[i]
		if !cur.Active() || !old.Active() || cur.TrackingID != old.TrackingID {
			continue
		}
		dx += cur.X - old.X
		dy += cur.Y - old.Y
		n++
	}
	if n >= 2 {
		dx /= n
		dy /= n
	}
	return dx, dy
}
