// Package accel turns raw deltas into emitted deltas, carrying rounding
// remainders between calls so slow motion is not rounded away.
package accel

import (
	"fmt"
	"math"
)

type Params struct {
	GainX float64
	GainY float64
	GainZ float64

	Exponential bool
	Exponent    float64
	Offset      float64
}

func DefaultParams() Params {
	return Params{
		GainX:    1.0,
		GainY:    1.0,
		GainZ:    1.0,
		Exponent: 1.0,
		Offset:   1.0,
	}
}

func (p Params) String() string {
	if p.Exponential {
		return fmt.Sprintf("exponential %.2f, offset %.2f", p.Exponent, p.Offset)
	}
	return fmt.Sprintf("linear %.2fx%.2f", p.GainX, p.GainY)
}

type Accelerator struct {
	params Params

	remainX float64
	remainY float64
	remainZ float64

	// rolling history of averaged vector lengths, newest first
	lastLength [3]float64
}

func New(p Params) *Accelerator {
	if p.Offset == 0 {
		p.Offset = 1.0
	}
	return &Accelerator{params: p}
}

func (a *Accelerator) Params() Params {
	return a.params
}

// Move accelerates one x/y pair using the configured mode.
func (a *Accelerator) Move(dx, dy int) (int, int) {
	if a.params.Exponential {
		return a.expo(dx, dy)
	}
	return a.linear(dx, dy)
}

// Wheel always goes through the linear path.
func (a *Accelerator) Wheel(dz int) int {
	if dz == 0 {
		return 0
	}
	fdz := float64(dz)*a.params.GainZ + a.remainZ
	move := math.Round(fdz)
	a.remainZ = fdz - move
	return int(move)
}

func (a *Accelerator) linear(dx, dy int) (int, int) {
	if dx == 0 && dy == 0 {
		return 0, 0
	}

	fdx := float64(dx)*a.params.GainX + a.remainX
	fdy := float64(dy)*a.params.GainY + a.remainY
	return a.round(fdx, fdy)
}

func (a *Accelerator) expo(dx, dy int) (int, int) {
	if dx == 0 && dy == 0 {
		return 0, 0
	}

	fdx := float64(dx) * a.params.GainX
	fdy := float64(dy) * a.params.GainY

	length := math.Sqrt(fdx*fdx + fdy*fdy)
	length = (length + a.lastLength[0] + a.lastLength[1] + a.lastLength[2]) / 4
	lbase := length / a.params.Offset
	factor := math.Pow(lbase, a.params.Exponent) / lbase

	a.lastLength[2] = a.lastLength[1]
	a.lastLength[1] = a.lastLength[0]
	a.lastLength[0] = length

	return a.round(fdx*factor+a.remainX, fdy*factor+a.remainY)
}

func (a *Accelerator) round(fdx, fdy float64) (int, int) {
	mx := math.Round(fdx)
	my := math.Round(fdy)
	a.remainX = fdx - mx
	a.remainY = fdy - my
	return int(mx), int(my)
}
