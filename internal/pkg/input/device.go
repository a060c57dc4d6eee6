package input

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gethiox/evmoused/internal/pkg/logger"
	"github.com/holoplot/go-evdev"
	"go.uber.org/zap"
	"golang.org/x/sys/unix"
)

var log = logger.GetLogger()

var ErrUnsupportedDevice = errors.New("unsupported device")

// pollInterval is the wait between reads of an empty non-blocking device.
const pollInterval = 2 * time.Millisecond

// prober is the part of an evdev handle the capability probe needs.
type prober interface {
	Name() (string, error)
	InputID() (evdev.InputID, error)
	CapableEvents(t evdev.EvType) []evdev.EvCode
	Properties() []evdev.EvProp
	AbsInfos() (map[evdev.EvCode]evdev.AbsInfo, error)
}

// Probe collects the capability descriptor of an opened device.
func Probe(p prober, path string) (Capabilities, error) {
	var caps = Capabilities{
		Path:    path,
		AbsInfo: make(map[evdev.EvCode]AbsAxis),
	}

	name, err := p.Name()
	if err != nil {
		return caps, fmt.Errorf("reading device name failed: %w", err)
	}
	caps.Name = strings.Trim(name, "\x00")

	id, err := p.InputID()
	if err != nil {
		return caps, fmt.Errorf("reading device id failed: %w", err)
	}
	caps.ID = InputID{Bus: id.BusType, Vendor: id.Vendor, Product: id.Product, Version: id.Version}

	for _, code := range p.CapableEvents(evdev.EV_REL) {
		caps.Rel.Set(code)
	}
	for _, code := range p.CapableEvents(evdev.EV_KEY) {
		caps.Keys.Set(code)
	}
	for _, code := range p.CapableEvents(evdev.EV_ABS) {
		caps.Abs.Set(code)
	}
	for _, prop := range p.Properties() {
		caps.Props.Set(evdev.EvCode(prop))
	}

	if caps.Abs.Any(0, evdev.ABS_CNT) {
		infos, err := p.AbsInfos()
		if err != nil {
			return caps, fmt.Errorf("reading absolute axes failed: %w", err)
		}
		for code, info := range infos {
			caps.AbsInfo[code] = AbsAxis{
				Min:        int(info.Minimum),
				Max:        int(info.Maximum),
				Resolution: int(info.Resolution),
			}
		}
	}

	caps.Class = caps.Classify()
	return caps, nil
}

// Device is an opened evdev node together with its probed capabilities.
type Device struct {
	Capabilities
	dev *evdev.InputDevice
}

// Open opens and probes the device. Unsupported classes are reported with
// ErrUnsupportedDevice, the returned Device is closed in that case but its
// Capabilities are still filled in.
func Open(path string) (*Device, error) {
	dev, err := evdev.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening device failed: %w", err)
	}

	caps, err := Probe(dev, path)
	if err != nil {
		_ = dev.Close()
		return nil, err
	}

	d := &Device{Capabilities: caps, dev: dev}
	if !caps.Class.Supported() {
		_ = dev.Close()
		return d, fmt.Errorf("%s (%s): %w", path, caps.Class, ErrUnsupportedDevice)
	}
	return d, nil
}

func (d *Device) String() string {
	return fmt.Sprintf("[%s] \"%s\" (%s)", d.Class, d.Name, d.ID)
}

// Events reads raw events until ctx is done or a fatal read error happens.
// The device is closed when reading finishes, a fatal error is delivered on
// the error channel before both channels get closed.
func (d *Device) Events(ctx context.Context, grab bool) (<-chan evdev.InputEvent, <-chan error) {
	var events = make(chan evdev.InputEvent, 64)
	var errs = make(chan error, 1)

	fields := []zap.Field{zap.String("device_name", d.Name), zap.String("device_class", d.Class.String())}

	go func() {
		<-ctx.Done()
		err := d.dev.Close()
		if err != nil {
			log.Info(fmt.Sprintf("device close failed: %v", err), append(fields, logger.Warning)...)
		}
	}()

	go func() {
		defer close(errs)
		defer close(events)

		if grab {
			err := d.dev.Grab()
			if err != nil {
				log.Info(fmt.Sprintf("grabbing device failed: %v", err), append(fields, logger.Warning)...)
			} else {
				log.Info("Grabbing device for exclusive usage", append(fields, logger.Debug)...)
			}
		}
		log.Info("Reading input events", append(fields, logger.Debug)...)

		err := d.dev.NonBlock()
		if err != nil {
			log.Info(fmt.Sprintf("enabling non-blocking event reading mode failed: %v", err), append(fields, logger.Warning)...)
		}

		for {
			ev, err := d.dev.ReadOne()
			if err != nil {
				if errors.Is(err, unix.EINTR) {
					continue
				}
				if errors.Is(err, unix.EAGAIN) {
					select {
					case <-time.After(pollInterval):
						continue
					case <-ctx.Done():
						return
					}
				}
				if ctx.Err() == nil {
					errs <- fmt.Errorf("reading event failed: %w", err)
				}
				break
			}

			if ev.Type == evdev.EV_KEY && ev.Value == 2 { // repeat
				continue
			}

			select {
			case events <- *ev:
			case <-ctx.Done():
				return
			}
		}
		log.Info("Reading input events finished", append(fields, logger.Debug)...)
	}()

	return events, errs
}

// Close releases a device that never started reading.
func (d *Device) Close() error {
	return d.dev.Close()
}
