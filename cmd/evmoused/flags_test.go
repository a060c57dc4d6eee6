package main

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/gethiox/evmoused/internal/pkg/config"
	"github.com/gethiox/evmoused/internal/pkg/logger"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parse(t *testing.T, args ...string) (*settings, *pflag.FlagSet) {
	t.Helper()
	s := &settings{}
	f := pflag.NewFlagSet("evmoused", pflag.ContinueOnError)
	s.register(f)
	require.NoError(t, f.Parse(args))
	return s, f
}

func TestApplyOnlyChanged(t *testing.T) {
	s, f := parse(t,
		"-p", "/dev/input/event3",
		"-3", "-E", "200",
		"-a", "2,3",
		"-m", "1=3", "-m", "3=1",
		"-z", "4",
		"--virtualscroll=false",
	)

	o := config.Default()
	o.Scroll.Vertical = true // from a quirk
	o.Scroll.Speed = 7       // from the config file

	require.NoError(t, s.apply(f, &o))
	assert.Equal(t, "/dev/input/event3", o.Port)
	assert.True(t, o.Emulate3Button)
	assert.Equal(t, 200*time.Millisecond, o.Button2Timeout)
	assert.Equal(t, 500*time.Millisecond, o.ClickThreshold)
	assert.Equal(t, 2.0, o.Accel.GainX)
	assert.Equal(t, 3.0, o.Accel.GainY)
	assert.Equal(t, []string{"1=3", "3=1"}, o.Maps)
	assert.Equal(t, "4", o.ZAxis)
	assert.False(t, o.Scroll.Vertical)
	assert.Equal(t, 7, o.Scroll.Speed)
	require.NoError(t, o.Validate())
}

func TestApplyParsedValues(t *testing.T) {
	s, f := parse(t, "-A", "1.5", "-T", "6,300", "-w", "4", "-c", "-g", "--uinput-name", "pad")

	o := config.Default()
	require.NoError(t, s.apply(f, &o))
	assert.True(t, o.Accel.Exponential)
	assert.Equal(t, 1.5, o.Accel.Exponent)
	assert.Equal(t, 1.0, o.Accel.Offset)
	assert.True(t, o.Drift.Enabled)
	assert.Equal(t, 6, o.Drift.Distance)
	assert.Equal(t, 300*time.Millisecond, o.Drift.Time)
	assert.Equal(t, 4, o.WheelButton)
	assert.True(t, o.ChordMiddle)
	assert.True(t, o.Grab)
	assert.Equal(t, "pad", o.UinputName)
}

func TestApplyInvalid(t *testing.T) {
	for _, args := range [][]string{
		{"--accel", "fast"},
		{"--expoaccel", "1,2,3"},
		{"--drift", "x"},
	} {
		t.Run(args[0], func(t *testing.T) {
			s, f := parse(t, args...)
			o := config.Default()
			err := s.apply(f, &o)
			assert.Error(t, err)
			assert.Contains(t, err.Error(), args[0])
		})
	}
}

func TestLevel(t *testing.T) {
	for _, tc := range []struct {
		args    []string
		level   int
		logOnly bool
	}{
		{args: nil, level: logger.InfoLvl},
		{args: []string{"-d"}, level: logger.ActionLvl},
		{args: []string{"-d", "-d"}, level: logger.MotionLvl, logOnly: true},
		{args: []string{"-ddd"}, level: logger.DebugLvl, logOnly: true},
		{args: []string{"--loglevel", "0"}, level: logger.ErrorLvl},
	} {
		s, _ := parse(t, tc.args...)
		assert.Equal(t, tc.level, s.level(), tc.args)
		assert.Equal(t, tc.logOnly, s.logOnly(), tc.args)
	}
}

func TestRoots(t *testing.T) {
	s, _ := parse(t, "--config", "/etc/evmoused/evmoused.config")
	assert.Equal(t, "/etc/evmoused", s.configRoot())
	assert.Equal(t, filepath.Join("/etc/evmoused", "quirks"), s.quirkRoot())

	s, _ = parse(t, "--quirks", "/usr/share/evmoused")
	assert.Equal(t, templateDir, s.configRoot())
	assert.Equal(t, "/usr/share/evmoused", s.quirkRoot())
}
