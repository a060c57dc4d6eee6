// Package quirks resolves per-device tunables from the factory and user quirk
// trees.
package quirks

import (
	"fmt"
	"sort"
	"time"

	"github.com/gethiox/evmoused/internal/pkg/clock"
	"github.com/gethiox/evmoused/internal/pkg/config"
	"github.com/gethiox/evmoused/internal/pkg/input"
	"github.com/gethiox/evmoused/internal/pkg/logger"
)

var log = logger.GetLogger()

// Keys lists every known quirk attribute with its value kind.
var Keys = map[string]Kind{
	// touchpad
	"pressure_range":          KindRange,
	"palm_pressure_threshold": KindInt,
	"palm_size_threshold":     KindInt,
	"tap_timeout":             KindInt,
	"tap_threshold":           KindInt,
	"tap_max_delta":           KindDouble,
	"taphold_timeout":         KindInt,
	"vscroll_min_delta":       KindDouble,
	"vscroll_hor_area":        KindDouble,
	"vscroll_ver_area":        KindDouble,
	"two_finger_scroll":       KindBool,
	"three_finger_drag":       KindBool,
	"natural_scroll":          KindBool,
	"margin_top":              KindInt,
	"margin_right":            KindInt,
	"margin_bottom":           KindInt,
	"margin_left":             KindInt,
	"softbuttons_y":           KindInt,
	"softbutton2_x":           KindInt,
	"softbutton3_x":           KindInt,
	"size_hint":               KindDimension,
	"scroll_divisor":          KindInt,

	// acceleration
	"accel_x":           KindDouble,
	"accel_y":           KindDouble,
	"accel_z":           KindDouble,
	"accel_exponential": KindBool,
	"accel_exponent":    KindDouble,
	"accel_offset":      KindDouble,

	// drift
	"drift_terminate": KindBool,
	"drift_distance":  KindInt,
	"drift_time":      KindInt,
	"drift_after":     KindInt,

	// scroll
	"virtual_scroll":   KindBool,
	"hvirtual_scroll":  KindBool,
	"scroll_threshold": KindInt,
	"scroll_speed":     KindInt,

	// buttons
	"emulate_3_button": KindBool,
	"chord_middle":     KindBool,
	"button2_timeout":  KindInt,
	"click_threshold":  KindInt,
}

// Quirk is one device entry. A zero ID marks the default entry of its class.
type Quirk struct {
	Name   string
	Class  input.Class
	ID     input.InputID
	Source string // file the entry was read from
	User   bool
	Values map[string]string
}

func (q *Quirk) String() string {
	origin := "factory"
	if q.User {
		origin = "user"
	}
	return fmt.Sprintf("%s %s quirk \"%s\" (%s)", origin, q.Class, q.Name, q.Source)
}

// Validate checks every attribute against its declared kind.
func (q *Quirk) Validate() error {
	for key, value := range q.Values {
		kind, ok := Keys[key]
		if !ok {
			return fmt.Errorf("%w: unknown key %q", ErrInvalidValue, key)
		}
		if err := check(kind, value); err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
	}
	return nil
}

func (q *Quirk) sortedKeys() []string {
	keys := make([]string, 0, len(q.Values))
	for k := range q.Values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Apply writes the quirk attributes into o.
func (q *Quirk) Apply(o *config.Options) error {
	for _, key := range q.sortedKeys() {
		err := apply(key, q.Values[key], o)
		if err != nil {
			return fmt.Errorf("%s: %s: %w", q.Source, key, err)
		}
	}
	log.Info(fmt.Sprintf("applied %s", q), logger.Debug)
	return nil
}

func apply(key, value string, o *config.Options) error {
	var (
		tp  = &o.Touchpad
		err error
	)

	boolean := func(dst *bool) {
		*dst, err = ParseBool(value)
	}
	integer := func(dst *int) {
		*dst, err = ParseInt(value)
	}
	double := func(dst *float64) {
		*dst, err = ParseDouble(value)
	}
	millis := func(dst *time.Duration) {
		var ms int
		ms, err = ParseInt(value)
		*dst = clock.Ms(ms)
	}

	switch key {
	case "pressure_range":
		var r Range
		r, err = ParseRange(value)
		// "none" keeps the current thresholds, a zero threshold never lifts
		if err == nil && r != (Range{}) {
			tp.MinPressureHi, tp.MinPressureLo = r.Upper, r.Lower
		}
	case "palm_pressure_threshold":
		integer(&tp.MaxPressure)
	case "palm_size_threshold":
		integer(&tp.MaxWidth)
	case "tap_timeout":
		millis(&tp.TapTimeout)
	case "tap_threshold":
		integer(&tp.TapThreshold)
	case "tap_max_delta":
		double(&tp.TapMaxDeltaMm)
	case "taphold_timeout":
		millis(&tp.TapholdTimeout)
	case "vscroll_min_delta":
		double(&tp.VScrollMinDeltaMm)
	case "vscroll_hor_area":
		double(&tp.VScrollHorAreaMm)
	case "vscroll_ver_area":
		double(&tp.VScrollVerAreaMm)
	case "two_finger_scroll":
		boolean(&tp.TwoFingerScroll)
	case "three_finger_drag":
		boolean(&tp.ThreeFingerDrag)
	case "natural_scroll":
		boolean(&tp.NaturalScroll)
	case "margin_top":
		integer(&tp.MarginTop)
	case "margin_right":
		integer(&tp.MarginRight)
	case "margin_bottom":
		integer(&tp.MarginBottom)
	case "margin_left":
		integer(&tp.MarginLeft)
	case "softbuttons_y":
		integer(&tp.SoftButtonsY)
	case "softbutton2_x":
		integer(&tp.SoftButton2X)
	case "softbutton3_x":
		integer(&tp.SoftButton3X)
	case "size_hint":
		var d Dimension
		d, err = ParseDimension(value)
		o.SizeHint = config.Dimension{W: d.W, H: d.H}
	case "scroll_divisor":
		integer(&o.ScrollDivisor)

	case "accel_x":
		double(&o.Accel.GainX)
	case "accel_y":
		double(&o.Accel.GainY)
	case "accel_z":
		double(&o.Accel.GainZ)
	case "accel_exponential":
		boolean(&o.Accel.Exponential)
	case "accel_exponent":
		double(&o.Accel.Exponent)
	case "accel_offset":
		double(&o.Accel.Offset)

	case "drift_terminate":
		boolean(&o.Drift.Enabled)
	case "drift_distance":
		integer(&o.Drift.Distance)
	case "drift_time":
		millis(&o.Drift.Time)
	case "drift_after":
		millis(&o.Drift.After)

	case "virtual_scroll":
		boolean(&o.Scroll.Vertical)
	case "hvirtual_scroll":
		boolean(&o.Scroll.Horizontal)
	case "scroll_threshold":
		integer(&o.Scroll.Threshold)
	case "scroll_speed":
		integer(&o.Scroll.Speed)

	case "emulate_3_button":
		boolean(&o.Emulate3Button)
	case "chord_middle":
		boolean(&o.ChordMiddle)
	case "button2_timeout":
		millis(&o.Button2Timeout)
	case "click_threshold":
		millis(&o.ClickThreshold)

	default:
		return fmt.Errorf("%w: unknown key", ErrInvalidValue)
	}
	return err
}
