package main

import (
	"fmt"
	"path/filepath"

	"github.com/gethiox/evmoused/internal/pkg/clock"
	"github.com/gethiox/evmoused/internal/pkg/config"
	"github.com/gethiox/evmoused/internal/pkg/logger"
	"github.com/spf13/pflag"
)

type settings struct {
	port           string
	emulate3Button bool
	button2Timeout int
	clickThreshold int
	chordMiddle    bool
	accel          string
	expoAccel      string
	virtualScroll  bool
	hVirtualScroll bool
	scrollSpeed    int
	scrollThresh   int
	drift          string
	maps           []string
	wheelButton    int
	zAxis          string
	grab           bool
	uinputName     string

	identify   string
	foreground bool
	debug      int
	configPath string
	quirksRoot string
	ui         bool
	noColor    bool
	logLevel   int
}

func (s *settings) register(f *pflag.FlagSet) {
	f.StringVarP(&s.port, "port", "p", "", "input device path, eg. /dev/input/event3")
	f.BoolVarP(&s.emulate3Button, "emulate3button", "3", false, "emulate the middle button with a left+right chord")
	f.IntVarP(&s.button2Timeout, "button2timeout", "E", 100, "middle button emulation timeout in milliseconds")
	f.IntVarP(&s.clickThreshold, "clickthreshold", "C", 500, "double click speed in milliseconds")
	f.BoolVarP(&s.chordMiddle, "chordmiddle", "c", false, "report left+right pressed together as the middle button")
	f.StringVarP(&s.accel, "accel", "a", "", "linear acceleration factors \"X[,Y]\"")
	f.StringVarP(&s.expoAccel, "expoaccel", "A", "", "exponential acceleration \"exp[,offset]\"")
	f.BoolVarP(&s.virtualScroll, "virtualscroll", "V", false, "scroll by moving the mouse with the middle button held")
	f.BoolVarP(&s.hVirtualScroll, "hvirtualscroll", "H", false, "also scroll horizontally while virtual scrolling")
	f.IntVarP(&s.scrollSpeed, "scrollspeed", "L", 2, "movement distance per virtual scroll step")
	f.IntVarP(&s.scrollThresh, "scrollthreshold", "U", 3, "movement distance before virtual scrolling starts")
	f.StringVarP(&s.drift, "drift", "T", "", "terminate drift \"distance[,time[,after]]\", times in milliseconds")
	f.StringArrayVarP(&s.maps, "map", "m", nil, "map physical button M to logical button N, \"N=M\" (repeatable)")
	f.IntVarP(&s.wheelButton, "wheelbutton", "w", 0, "turn vertical motion into wheel motion while button N is held")
	f.StringVarP(&s.zAxis, "zaxis", "z", "", "wheel mapping: \"x\", \"y\" or buttons \"N[,N2[,N3[,N4]]]\"")
	f.BoolVarP(&s.grab, "grab", "g", false, "grab the input device for exclusive usage")
	f.StringVar(&s.uinputName, "uinput-name", "evmoused", "name of the virtual output device")

	f.StringVarP(&s.identify, "identify", "i", "", "print device information and exit: port, type, model or all")
	f.BoolVarP(&s.foreground, "foreground", "f", false, "exit instead of waiting for a restart when the device is unsupported")
	f.CountVarP(&s.debug, "debug", "d", "more verbose logging, twice to log events instead of emitting them")
	f.StringVar(&s.configPath, "config", filepath.Join(templateDir, configFileName), "daemon config file, the tree around it is generated when missing")
	f.StringVar(&s.quirksRoot, "quirks", "", "quirk directory (default: \"quirks\" next to the config file)")
	f.BoolVar(&s.ui, "ui", false, "engage debug ui")
	f.BoolVar(&s.noColor, "nocolor", false, "disable color")
	f.IntVar(&s.logLevel, "loglevel", logger.InfoLvl,
		"logging level, each level enables additional information class (0-4)\n"+
			"0: errors\n"+
			"1: warnings\n"+
			"2: general info (eg. device and quirk selection)\n"+
			"3: button events\n"+
			"4: motion events",
	)
}

func (s *settings) configRoot() string {
	return filepath.Dir(s.configPath)
}

func (s *settings) quirkRoot() string {
	if s.quirksRoot != "" {
		return s.quirksRoot
	}
	return filepath.Join(s.configRoot(), quirksDirName)
}

// level is the effective log level, every -d adds one class, past motion
// events debug messages are shown as well.
func (s *settings) level() int {
	l := s.logLevel + s.debug
	if l > logger.MotionLvl {
		return logger.DebugLvl
	}
	return l
}

// logOnly reports whether events should be logged instead of emitted.
func (s *settings) logOnly() bool {
	return s.debug >= 2
}

// apply copies every explicitly set flag into o, flags left at their
// defaults never override values coming from quirks or the config file.
func (s *settings) apply(f *pflag.FlagSet, o *config.Options) error {
	var err error
	f.Visit(func(flag *pflag.Flag) {
		if err != nil {
			return
		}
		err = s.applyOne(flag.Name, o)
		if err != nil {
			err = fmt.Errorf("--%s: %w", flag.Name, err)
		}
	})
	return err
}

func (s *settings) applyOne(name string, o *config.Options) error {
	switch name {
	case "port":
		o.Port = s.port
	case "grab":
		o.Grab = s.grab
	case "uinput-name":
		o.UinputName = s.uinputName
	case "emulate3button":
		o.Emulate3Button = s.emulate3Button
	case "button2timeout":
		o.Button2Timeout = clock.Ms(s.button2Timeout)
	case "clickthreshold":
		o.ClickThreshold = clock.Ms(s.clickThreshold)
	case "chordmiddle":
		o.ChordMiddle = s.chordMiddle
	case "accel":
		x, y, err := config.ParseLinearAccel(s.accel)
		if err != nil {
			return err
		}
		o.Accel.GainX, o.Accel.GainY = x, y
	case "expoaccel":
		exp, offset, err := config.ParseExpoAccel(s.expoAccel)
		if err != nil {
			return err
		}
		o.Accel.Exponential = true
		o.Accel.Exponent, o.Accel.Offset = exp, offset
	case "virtualscroll":
		o.Scroll.Vertical = s.virtualScroll
	case "hvirtualscroll":
		o.Scroll.Horizontal = s.hVirtualScroll
	case "scrollspeed":
		o.Scroll.Speed = s.scrollSpeed
	case "scrollthreshold":
		o.Scroll.Threshold = s.scrollThresh
	case "drift":
		d, err := config.ParseDrift(s.drift)
		if err != nil {
			return err
		}
		o.Drift = d
	case "map":
		o.Maps = append(o.Maps, s.maps...)
	case "wheelbutton":
		o.WheelButton = s.wheelButton
	case "zaxis":
		o.ZAxis = s.zAxis
	}
	return nil
}
