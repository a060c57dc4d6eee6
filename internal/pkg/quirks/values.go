package quirks

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var ErrInvalidValue = errors.New("invalid quirk value")

type Kind int

const (
	KindBool Kind = iota
	KindInt
	KindDouble
	KindRange
	KindDimension
)

func (k Kind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindDouble:
		return "double"
	case KindRange:
		return "range"
	case KindDimension:
		return "dimension"
	default:
		return "unknown"
	}
}

// Range is a hysteresis pair, Upper is always greater than Lower unless
// both are zero ("none").
type Range struct {
	Upper, Lower int
}

type Dimension struct {
	W, H int
}

// ParseBool accepts "1", "0", "true" and "false".
func ParseBool(s string) (bool, error) {
	switch strings.TrimSpace(s) {
	case "1", "true":
		return true, nil
	case "0", "false":
		return false, nil
	}
	return false, fmt.Errorf("%w: %q is not a bool", ErrInvalidValue, s)
}

func ParseInt(s string) (int, error) {
	i, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not an int", ErrInvalidValue, s)
	}
	return i, nil
}

// ParseDouble accepts plain decimal notation only.
func ParseDouble(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.IndexFunc(s, func(r rune) bool {
		return !(r >= '0' && r <= '9' || r == '+' || r == '-' || r == '.')
	}) >= 0 {
		return 0, fmt.Errorf("%w: %q is not a double", ErrInvalidValue, s)
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a double", ErrInvalidValue, s)
	}
	return f, nil
}

// ParseRange parses "upper:lower" or "none".
func ParseRange(s string) (Range, error) {
	s = strings.TrimSpace(s)
	if s == "none" {
		return Range{}, nil
	}
	hi, lo, ok := strings.Cut(s, ":")
	if !ok {
		return Range{}, fmt.Errorf("%w: %q is not a range", ErrInvalidValue, s)
	}
	upper, err := strconv.Atoi(hi)
	if err != nil {
		return Range{}, fmt.Errorf("%w: %q is not a range", ErrInvalidValue, s)
	}
	lower, err := strconv.Atoi(lo)
	if err != nil {
		return Range{}, fmt.Errorf("%w: %q is not a range", ErrInvalidValue, s)
	}
	if lower >= upper {
		return Range{}, fmt.Errorf("%w: range %q lower bound not below upper bound", ErrInvalidValue, s)
	}
	return Range{Upper: upper, Lower: lower}, nil
}

// ParseDimension parses "WxH" with both sides positive.
func ParseDimension(s string) (Dimension, error) {
	s = strings.TrimSpace(s)
	w, h, ok := strings.Cut(s, "x")
	if !ok {
		return Dimension{}, fmt.Errorf("%w: %q is not a dimension", ErrInvalidValue, s)
	}
	var d Dimension
	var err error
	if d.W, err = strconv.Atoi(w); err != nil {
		return Dimension{}, fmt.Errorf("%w: %q is not a dimension", ErrInvalidValue, s)
	}
	if d.H, err = strconv.Atoi(h); err != nil {
		return Dimension{}, fmt.Errorf("%w: %q is not a dimension", ErrInvalidValue, s)
	}
	if d.W <= 0 || d.H <= 0 {
		return Dimension{}, fmt.Errorf("%w: dimension %q must be positive", ErrInvalidValue, s)
	}
	return d, nil
}

func check(kind Kind, s string) error {
	var err error
	switch kind {
	case KindBool:
		_, err = ParseBool(s)
	case KindInt:
		_, err = ParseInt(s)
	case KindDouble:
		_, err = ParseDouble(s)
	case KindRange:
		_, err = ParseRange(s)
	case KindDimension:
		_, err = ParseDimension(s)
	}
	return err
}

// normalize turns a decoded TOML/YAML scalar into the textual quirk form.
func normalize(v interface{}) (string, error) {
	switch t := v.(type) {
	case string:
		return t, nil
	case bool:
		if t {
			return "1", nil
		}
		return "0", nil
	case int:
		return strconv.Itoa(t), nil
	case int64:
		return strconv.FormatInt(t, 10), nil
	case uint64:
		return strconv.FormatUint(t, 10), nil
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), nil
	}
	return "", fmt.Errorf("%w: unsupported value type %T", ErrInvalidValue, v)
}
