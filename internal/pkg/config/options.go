// Package config holds the daemon options and their sources.
package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gethiox/evmoused/internal/pkg/accel"
	"github.com/gethiox/evmoused/internal/pkg/button"
	"github.com/gethiox/evmoused/internal/pkg/clock"
	"github.com/gethiox/evmoused/internal/pkg/drift"
	"github.com/gethiox/evmoused/internal/pkg/gesture"
	"github.com/gethiox/evmoused/internal/pkg/scroll"
)

var ErrInvalidOption = errors.New("invalid option")

const (
	MaxClickThreshold = 2000 * time.Millisecond
	MaxButton2Timeout = 2000 * time.Millisecond
)

type Dimension struct {
	W, H int
}

type Options struct {
	Port       string
	Grab       bool
	UinputName string

	Emulate3Button bool
	Button2Timeout time.Duration
	ClickThreshold time.Duration
	ChordMiddle    bool
	Maps           []string // "L=P" pairs
	WheelButton    int
	ZAxis          string

	Accel  accel.Params
	Scroll scroll.Params
	Drift  drift.Params

	Touchpad      gesture.Params
	ScrollDivisor int
	SizeHint      Dimension // touchpad size in millimeters, zero when unknown
}

func Default() Options {
	return Options{
		UinputName:     "evmoused",
		Button2Timeout: 100 * time.Millisecond,
		ClickThreshold: 500 * time.Millisecond,
		Accel:          accel.DefaultParams(),
		Scroll:         scroll.DefaultParams(),
		Drift:          drift.DefaultParams(),
		Touchpad:       gesture.DefaultParams(),
	}
}

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidOption, fmt.Sprintf(format, args...))
}

func (o *Options) Validate() error {
	if o.Port == "" {
		return invalid("no port name specified")
	}
	if o.Button2Timeout < 0 || o.Button2Timeout > MaxButton2Timeout {
		return invalid("button2 timeout %v outside of 0-%v", o.Button2Timeout, MaxButton2Timeout)
	}
	if o.ClickThreshold < 0 || o.ClickThreshold > MaxClickThreshold {
		return invalid("click threshold %v outside of 0-%v", o.ClickThreshold, MaxClickThreshold)
	}
	if o.Scroll.Threshold < 0 {
		return invalid("scroll threshold %d", o.Scroll.Threshold)
	}
	if o.Scroll.Speed < 0 {
		return invalid("scroll speed %d", o.Scroll.Speed)
	}
	if o.Drift.Enabled && (o.Drift.Distance <= 0 || o.Drift.Time <= 0 || o.Drift.After <= 0) {
		return invalid("drift parameters must be positive")
	}
	if o.Accel.Exponential && o.Accel.Offset <= 0 {
		return invalid("exponential acceleration offset %v", o.Accel.Offset)
	}
	if o.ScrollDivisor < 0 {
		return invalid("scroll divisor %d", o.ScrollDivisor)
	}
	_, err := o.Mapping()
	return err
}

// Mapping builds the button remap described by Maps, WheelButton and ZAxis.
func (o *Options) Mapping() (*button.Mapping, error) {
	m := button.NewMapping()
	for _, arg := range o.Maps {
		if err := m.Install(arg); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidOption, err)
		}
	}
	if o.WheelButton != 0 {
		if err := m.SetWheelButton(o.WheelButton); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidOption, err)
		}
	}
	if o.ZAxis != "" {
		if err := m.SetZAxis(o.ZAxis); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidOption, err)
		}
	}
	return m, nil
}

func splitFloats(arg string, max int) ([]float64, error) {
	fields := strings.Split(arg, ",")
	if len(fields) == 0 || len(fields) > max {
		return nil, invalid("%q", arg)
	}
	var values []float64
	for _, f := range fields {
		v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil {
			return nil, invalid("%q: %v", arg, err)
		}
		values = append(values, v)
	}
	return values, nil
}

// ParseLinearAccel parses "X[,Y]", Y defaults to X.
func ParseLinearAccel(arg string) (x, y float64, err error) {
	values, err := splitFloats(arg, 2)
	if err != nil {
		return 0, 0, fmt.Errorf("linear acceleration: %w", err)
	}
	if len(values) == 1 {
		return values[0], values[0], nil
	}
	return values[0], values[1], nil
}

// ParseExpoAccel parses "exponent[,offset]", offset defaults to 1.
func ParseExpoAccel(arg string) (exponent, offset float64, err error) {
	values, err := splitFloats(arg, 2)
	if err != nil {
		return 0, 0, fmt.Errorf("exponential acceleration: %w", err)
	}
	if len(values) == 1 {
		return values[0], 1.0, nil
	}
	return values[0], values[1], nil
}

// ParseDrift parses "distance[,time[,after]]" with times in milliseconds.
// Missing fields keep the defaults.
func ParseDrift(arg string) (drift.Params, error) {
	p := drift.DefaultParams()
	p.Enabled = true

	fields := strings.Split(arg, ",")
	if len(fields) > 3 {
		return p, invalid("drift %q", arg)
	}
	var values = []int{p.Distance, int(p.Time / time.Millisecond), int(p.After / time.Millisecond)}
	for i, f := range fields {
		v, err := strconv.Atoi(strings.TrimSpace(f))
		if err != nil {
			return p, invalid("drift %q: %v", arg, err)
		}
		values[i] = v
	}
	for _, v := range values {
		if v <= 0 {
			return p, invalid("drift %q: values must be positive", arg)
		}
	}

	p.Distance = values[0]
	p.Time = clock.Ms(values[1])
	p.After = clock.Ms(values[2])
	return p, nil
}
