package main

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/awesome-gocui/gocui"
	"github.com/gethiox/evmoused/internal/pkg/daemon"
	"github.com/gethiox/evmoused/internal/pkg/logger"
	"github.com/logrusorgru/aurora"
)

const (
	ViewOverview = "overview"
	ViewLogs     = "logs"

	overviewHeight = 8
	overviewRate   = 50 * time.Millisecond
)

func newGui() (*gocui.Gui, error) {
	g, err := gocui.NewGui(gocui.Output256, true)
	if err != nil {
		return nil, err
	}
	g.SetManagerFunc(layout)

	for _, key := range []interface{}{gocui.KeyCtrlC, 'q'} {
		if err := g.SetKeybinding("", key, gocui.ModNone, quit); err != nil {
			g.Close()
			return nil, err
		}
	}
	return g, nil
}

func layout(g *gocui.Gui) error {
	maxX, maxY := g.Size()

	if v, err := g.SetView(ViewOverview, 0, 0, maxX-1, overviewHeight, 0); err != nil {
		if !errors.Is(err, gocui.ErrUnknownView) {
			return err
		}
		v.Title = "[Device]"
		v.Wrap = false
		v.Frame = true
	}

	if v, err := g.SetView(ViewLogs, 0, overviewHeight, maxX-1, maxY-1, gocui.TOP); err != nil {
		if !errors.Is(err, gocui.ErrUnknownView) {
			return err
		}
		v.Title = "[Logs]"
		v.Autoscroll = true
		v.Wrap = false
		v.Frame = true
	}
	return nil
}

func quit(g *gocui.Gui, v *gocui.View) error {
	return gocui.ErrQuit
}

// runUI runs the gui main loop, leaving the gui stops the daemon.
func runUI(g *gocui.Gui, stop func()) {
	go func() {
		err := g.MainLoop()
		if err != nil && !errors.Is(err, gocui.ErrQuit) {
			log.Info(fmt.Sprintf("gui failed: %v", err), logger.Error)
		}
		stop()
	}()
}

// logView feeds the log stream into the log view until ctx is done.
func logView(ctx context.Context, g *gocui.Gui, au aurora.Aurora, level int) {
	for {
		select {
		case <-ctx.Done():
			return
		case data := <-logger.Messages:
			g.Update(func(g *gocui.Gui) error {
				v, err := g.View(ViewLogs)
				if err != nil {
					return nil
				}
				msg, err := unpack(data)
				if err != nil {
					fmt.Fprintf(v, "%s\n", data)
					return nil
				}
				x, _ := v.Size()
				if s := prepareString(msg, au, x, level); s != "" {
					fmt.Fprintln(v, s)
				}
				return nil
			})
		}
	}
}

func onOff(au aurora.Aurora, b bool) string {
	if b {
		return au.Green("on").String()
	}
	return au.Gray(12, "off").String()
}

func overviewLines(au aurora.Aurora, s daemon.Snapshot) []string {
	state := au.Green("running").String()
	if s.Paused {
		state = au.Yellow("paused").String()
	}

	lines := []string{
		fmt.Sprintf("%s: %s [%s]", colorForString(au, s.Class), colorForString(au, s.Device), state),
	}
	emulator := onOff(au, false)
	if s.Emulate3 {
		emulator = colorForString(au, s.Emulator).String()
	}
	lines = append(lines, fmt.Sprintf("└ emulator: %s, scroll: %s, accel: %s",
		emulator, colorForString(au, s.Scroll), s.Accel))
	if s.Gesture != "" {
		lines = append(lines, fmt.Sprintf(
			"└ gesture: %s, slots: %d, fingers: %d, finger down: %s, tap-hold: %s, 2f scroll: %s, 3f drag: %s",
			colorForString(au, s.Gesture), s.Slots, s.Fingers, onOff(au, s.FingerDown), onOff(au, s.TapHold),
			onOff(au, s.TwoFingerScroll), onOff(au, s.ThreeFingerDrag),
		))
	}
	c := s.Counters
	lines = append(lines,
		fmt.Sprintf("└ last packet: %s, clicks: %d/%d/%d, drift pending: %d,%d",
			s.Last, s.Clicks[0], s.Clicks[1], s.Clicks[2], s.DriftPending[0], s.DriftPending[1]),
		fmt.Sprintf("└ events: %d, packets: %d, motions: %d, clicks: %d, drifted: %d",
			c.Events, c.Packets, c.Motions, c.Clicks, c.Drifted),
	)
	return lines
}

// overviewView polls the running daemon for snapshots, the daemon changes
// on every restart.
func overviewView(ctx context.Context, g *gocui.Gui, au aurora.Aurora, current *atomic.Pointer[daemon.Daemon]) {
	ticker := time.NewTicker(overviewRate)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		d := current.Load()
		if d == nil {
			continue
		}
		var s daemon.Snapshot
		select {
		case s = <-d.Snapshots():
		default:
			continue
		}

		lines := overviewLines(au, s)
		g.Update(func(g *gocui.Gui) error {
			v, err := g.View(ViewOverview)
			if err != nil {
				return nil
			}
			v.Clear()
			for _, line := range lines {
				fmt.Fprintln(v, line)
			}
			return nil
		})
	}
}
