package accel

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLinearCarry(t *testing.T) {
	for i, tc := range []struct {
		gain   float64
		deltas []int
	}{
		{gain: 0.5, deltas: []int{1, 1, 1, 1, 1, 1, 1, 1, 1, 1}},
		{gain: 0.25, deltas: []int{1, 1, 1, 1, 1, 1, 1, 1}},
		{gain: 1.5, deltas: []int{1, 1, 1, 1, 1, 1}},
		{gain: 2.0, deltas: []int{3, -1, 4, -2}},
		{gain: 0.5, deltas: []int{-1, -1, -1, -1}},
	} {
		t.Run(fmt.Sprintf("%d", i), func(t *testing.T) {
			a := New(Params{GainX: tc.gain, GainY: tc.gain, GainZ: 1, Offset: 1})

			var sumRaw, sumX, sumY int
			for _, d := range tc.deltas {
				x, y := a.Move(d, d)
				sumRaw += d
				sumX += x
				sumY += y
			}

			expected := int(math.Round(float64(sumRaw) * tc.gain))
			assert.Equal(t, expected, sumX)
			assert.Equal(t, expected, sumY)
		})
	}
}

func TestLinearSmallVersusLarge(t *testing.T) {
	small := New(Params{GainX: 0.3, GainY: 0.3, Offset: 1})
	large := New(Params{GainX: 0.3, GainY: 0.3, Offset: 1})

	var sum int
	for i := 0; i < 100; i++ {
		x, _ := small.Move(1, 0)
		sum += x
	}
	x, _ := large.Move(100, 0)

	assert.Equal(t, x, sum)
}

func TestLinearZeroKeepsRemainder(t *testing.T) {
	a := New(Params{GainX: 0.5, GainY: 0.5, Offset: 1})

	x, _ := a.Move(1, 0) // 0.5 rounds up, carry -0.5
	assert.Equal(t, 1, x)

	x, y := a.Move(0, 0)
	assert.Equal(t, 0, x)
	assert.Equal(t, 0, y)

	x, _ = a.Move(1, 0) // 0.5 - 0.5
	assert.Equal(t, 0, x)
}

func TestExponential(t *testing.T) {
	a := New(Params{GainX: 1, GainY: 1, Exponential: true, Exponent: 1.0, Offset: 1.0})

	// exponent 1 keeps the factor at 1
	x, y := a.Move(3, 4)
	assert.Equal(t, 3, x)
	assert.Equal(t, 4, y)

	b := New(Params{GainX: 1, GainY: 1, Exponential: true, Exponent: 2.0, Offset: 1.0})
	// first length 5 averaged with empty history: 1.25, factor 1.25
	x, y = b.Move(3, 4)
	assert.Equal(t, 4, x) // 3.75
	assert.Equal(t, 5, y)
	assert.InDelta(t, 1.25, b.lastLength[0], 1e-9)
}

func TestWheelLinearInExpoMode(t *testing.T) {
	a := New(Params{GainX: 1, GainY: 1, GainZ: 1, Exponential: true, Exponent: 3, Offset: 1})
	assert.Equal(t, -1, a.Wheel(-1))
	assert.Equal(t, 2, a.Wheel(2))
	assert.Equal(t, 0, a.Wheel(0))
}
