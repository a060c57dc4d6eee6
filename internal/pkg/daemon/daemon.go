package daemon

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gethiox/evmoused/internal/pkg/clock"
	"github.com/gethiox/evmoused/internal/pkg/config"
	"github.com/gethiox/evmoused/internal/pkg/input"
	"github.com/gethiox/evmoused/internal/pkg/logger"
	"github.com/gethiox/evmoused/internal/pkg/mouse"
	"github.com/gethiox/evmoused/internal/pkg/sink"
	"github.com/holoplot/go-evdev"
	"go.uber.org/zap"
)

var ErrRestart = errors.New("restart requested")

// Source is an opened device delivering raw events.
type Source interface {
	Events(ctx context.Context, grab bool) (<-chan evdev.InputEvent, <-chan error)
}

type Snapshot struct {
	Device string
	Class  string
	Paused bool

	Emulate3 bool
	Emulator string
	Accel    string
	Scroll   string

	Gesture         string
	Slots           int
	FingerDown      bool
	TapHold         bool
	Fingers         int
	TwoFingerScroll bool
	ThreeFingerDrag bool

	Clicks       [3]int // current click counts of buttons 1-3
	DriftPending [2]int

	Last     mouse.Status
	Counters Counters
}

// Daemon drives one device until it is stopped, restarted or fails.
type Daemon struct {
	caps     input.Capabilities
	opts     config.Options
	source   Source
	sink     *sink.Paused
	pipeline *Pipeline

	snapshots chan Snapshot
}

func New(source Source, caps input.Capabilities, opts config.Options, s sink.Sink, clk clock.Clock) (*Daemon, error) {
	paused := sink.NewPaused(s)
	p, err := NewPipeline(caps, opts, paused, clk)
	if err != nil {
		return nil, err
	}
	return &Daemon{
		caps:      caps,
		opts:      opts,
		source:    source,
		sink:      paused,
		pipeline:  p,
		snapshots: make(chan Snapshot, 1),
	}, nil
}

// Snapshots delivers the most recent pipeline state, older unread
// snapshots are replaced.
func (d *Daemon) Snapshots() <-chan Snapshot {
	return d.snapshots
}

func (d *Daemon) publish() {
	s := d.pipeline.Snapshot()
	s.Device = d.caps.Name
	s.Class = d.caps.Class.String()
	if s.Gesture != "" {
		s.Slots = d.caps.Slots()
	}
	s.Paused = d.sink.Paused()

	select {
	case d.snapshots <- s:
		return
	default:
	}
	select {
	case <-d.snapshots:
	default:
	}
	select {
	case d.snapshots <- s:
	default:
	}
}

// Run processes events until ctx is done (nil), restart fires (ErrRestart)
// or reading the device fails. pause toggles event delivery.
func (d *Daemon) Run(ctx context.Context, restart <-chan bool, pause <-chan bool) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	fields := []zap.Field{zap.String("device_name", d.caps.Name), zap.String("device_class", d.caps.Class.String())}
	events, errs := d.source.Events(ctx, d.opts.Grab)

	log.Info("Device loop started", append(fields, logger.Info)...)
	defer log.Info("Device loop finished", append(fields, logger.Debug)...)

	timer := time.NewTimer(time.Hour)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		var timeout <-chan time.Time
		if wait, ok := d.pipeline.NextTimeout(); ok {
			timer.Reset(wait)
			timeout = timer.C
		}

		var err error
		select {
		case <-ctx.Done():
			return nil
		case <-restart:
			log.Info("restart requested", append(fields, logger.Info)...)
			return ErrRestart
		case <-pause:
			d.sink.Toggle()
		case ev, ok := <-events:
			if !ok {
				if err, ok := <-errs; ok && err != nil {
					return fmt.Errorf("device read failed: %w", err)
				}
				if ctx.Err() != nil {
					return nil
				}
				return errors.New("device event stream closed")
			}
			err = d.pipeline.Event(&ev)
		case <-timeout:
			timeout = nil
			err = d.pipeline.Timeout()
		}

		if timeout != nil && !timer.Stop() {
			<-timer.C
		}
		if err != nil {
			return err
		}
		d.publish()
	}
}
