package main

import (
	"testing"

	"github.com/gethiox/evmoused/internal/pkg/daemon"
	"github.com/logrusorgru/aurora"
	"github.com/stretchr/testify/assert"
)

func TestOverviewLines(t *testing.T) {
	au := aurora.NewAurora(false)

	for _, tc := range []struct {
		name     string
		snapshot daemon.Snapshot
		expected []string
	}{
		{
			name: "mouse",
			snapshot: daemon.Snapshot{
				Device: "test mouse", Class: "mouse",
				Emulator: "S0", Accel: "linear 1.00x1.00", Scroll: "idle",
				Clicks: [3]int{2, 0, 1}, DriftPending: [2]int{3, -1},
			},
			expected: []string{
				"mouse: test mouse [running]",
				"└ emulator: off, scroll: idle, accel: linear 1.00x1.00",
				"└ last packet: " + daemon.Snapshot{}.Last.String() + ", clicks: 2/0/1, drift pending: 3,-1",
				"└ events: 0, packets: 0, motions: 0, clicks: 0, drifted: 0",
			},
		},
		{
			name: "touchpad",
			snapshot: daemon.Snapshot{
				Device: "test touchpad", Class: "touchpad", Paused: true,
				Emulate3: true, Emulator: "S1", Accel: "linear 1.00x1.00", Scroll: "idle",
				Gesture: "move", Slots: 5, Fingers: 2, FingerDown: true, TwoFingerScroll: true,
			},
			expected: []string{
				"touchpad: test touchpad [paused]",
				"└ emulator: S1, scroll: idle, accel: linear 1.00x1.00",
				"└ gesture: move, slots: 5, fingers: 2, finger down: on, tap-hold: off, 2f scroll: on, 3f drag: off",
				"└ last packet: " + daemon.Snapshot{}.Last.String() + ", clicks: 0/0/0, drift pending: 0,0",
				"└ events: 0, packets: 0, motions: 0, clicks: 0, drifted: 0",
			},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, overviewLines(au, tc.snapshot))
		})
	}
}
