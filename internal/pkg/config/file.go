package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/gethiox/evmoused/internal/pkg/clock"
	"github.com/go-ini/ini"
)

// LoadFile applies the INI daemon config at path on top of o. Only keys
// present in the file are touched.
func LoadFile(path string, o *Options) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file failed: %w", err)
	}
	err = ApplyFile(data, o)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

type section struct {
	name string
	sec  *ini.Section
	err  error
}

func (s *section) fail(key string, err error) {
	if s.err == nil {
		s.err = fmt.Errorf("%w: [%s] %s: %v", ErrInvalidOption, s.name, key, err)
	}
}

func (s *section) boolean(key string, dst *bool) {
	if !s.sec.HasKey(key) {
		return
	}
	b, err := s.sec.Key(key).Bool()
	if err != nil {
		s.fail(key, err)
		return
	}
	*dst = b
}

func (s *section) integer(key string, dst *int) {
	if !s.sec.HasKey(key) {
		return
	}
	i, err := s.sec.Key(key).Int()
	if err != nil {
		s.fail(key, err)
		return
	}
	*dst = i
}

func (s *section) millis(key string, dst *time.Duration) {
	var ms int
	if !s.sec.HasKey(key) {
		return
	}
	s.integer(key, &ms)
	*dst = clock.Ms(ms)
}

func (s *section) str(key string, dst *string) {
	if s.sec.HasKey(key) {
		*dst = strings.TrimSpace(s.sec.Key(key).String())
	}
}

// ApplyFile parses INI data and applies it on top of o.
func ApplyFile(data []byte, o *Options) error {
	cfg, err := ini.Load(data)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidOption, err)
	}
	get := func(name string) *section {
		return &section{name: name, sec: cfg.Section(name)}
	}

	// [daemon]
	daemon := get("daemon")
	daemon.str("port", &o.Port)
	daemon.boolean("grab", &o.Grab)
	daemon.str("uinput_name", &o.UinputName)

	// [buttons]
	buttons := get("buttons")
	buttons.boolean("emulate3button", &o.Emulate3Button)
	buttons.millis("button2_timeout", &o.Button2Timeout)
	buttons.millis("click_threshold", &o.ClickThreshold)
	buttons.boolean("chord_middle", &o.ChordMiddle)
	buttons.integer("wheel_button", &o.WheelButton)
	buttons.str("zaxis", &o.ZAxis)
	if buttons.sec.HasKey("map") {
		o.Maps = strings.Fields(buttons.sec.Key("map").String())
	}

	// [acceleration]
	acceleration := get("acceleration")
	var linear, expo string
	acceleration.str("linear", &linear)
	acceleration.str("exponential", &expo)
	if linear != "" {
		x, y, err := ParseLinearAccel(linear)
		if err != nil {
			acceleration.fail("linear", err)
		}
		o.Accel.GainX, o.Accel.GainY = x, y
	}
	if expo != "" {
		exponent, offset, err := ParseExpoAccel(expo)
		if err != nil {
			acceleration.fail("exponential", err)
		}
		o.Accel.Exponential = true
		o.Accel.Exponent, o.Accel.Offset = exponent, offset
	}
	if acceleration.sec.HasKey("wheel") {
		f, err := acceleration.sec.Key("wheel").Float64()
		if err != nil {
			acceleration.fail("wheel", err)
		}
		o.Accel.GainZ = f
	}

	// [scroll]
	scroll := get("scroll")
	scroll.boolean("virtual", &o.Scroll.Vertical)
	scroll.boolean("horizontal", &o.Scroll.Horizontal)
	scroll.integer("threshold", &o.Scroll.Threshold)
	scroll.integer("speed", &o.Scroll.Speed)

	// [drift]
	drift := get("drift")
	drift.boolean("enabled", &o.Drift.Enabled)
	drift.integer("distance", &o.Drift.Distance)
	drift.millis("time", &o.Drift.Time)
	drift.millis("after", &o.Drift.After)

	for _, s := range []*section{daemon, buttons, acceleration, scroll, drift} {
		if s.err != nil {
			return s.err
		}
	}
	return nil
}
