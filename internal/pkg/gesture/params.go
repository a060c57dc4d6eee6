package gesture

import "time"

// Params are the touchpad tunables. Distances suffixed Mm are millimeters and
// get scaled by the axis resolution, the rest are device units.
type Params struct {
	MinPressureHi int // pressure opening a touch sequence
	MinPressureLo int // pressure keeping an open sequence alive
	MaxPressure   int // palm limit when width sensing is absent
	MaxWidth      int // palm limit

	TapTimeout     time.Duration
	TapThreshold   int // minimum peak pressure of a tap
	TapMaxDeltaMm  float64
	TapholdTimeout time.Duration

	VScrollMinDeltaMm float64
	VScrollHorAreaMm  float64 // >0 band along the top edge, <0 along the bottom edge
	VScrollVerAreaMm  float64 // >0 band along the left edge, <0 along the right edge

	TwoFingerScroll bool
	ThreeFingerDrag bool
	NaturalScroll   bool

	MarginTop    int
	MarginRight  int
	MarginBottom int
	MarginLeft   int

	SoftButtonsY int // >0 band height at the bottom, <0 at the top, 0 disables soft buttons
	SoftButton2X int // middle zone starts here, 0 disables
	SoftButton3X int // right zone starts here, 0 disables
}

func DefaultParams() Params {
	return Params{
		MinPressureHi: 1,
		MinPressureLo: 1,
		MaxPressure:   130,
		MaxWidth:      16,

		TapTimeout:     180 * time.Millisecond,
		TapThreshold:   0,
		TapMaxDeltaMm:  1.3,
		TapholdTimeout: 300 * time.Millisecond,

		VScrollMinDeltaMm: 1.25,
		VScrollHorAreaMm:  0,
		VScrollVerAreaMm:  -15,

		TwoFingerScroll: true,
	}
}

// Hardware describes the sensor, taken from the device probe.
type Hardware struct {
	MinX, MaxX int
	MinY, MaxY int
	ResX, ResY int // units per millimeter

	CapWidth    bool
	CapPressure bool
	Clickpad    bool
}

func (h Hardware) resX() float64 {
	if h.ResX <= 0 {
		return 1
	}
	return float64(h.ResX)
}

func (h Hardware) resY() float64 {
	if h.ResY <= 0 {
		return 1
	}
	return float64(h.ResY)
}
