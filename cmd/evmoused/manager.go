package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync/atomic"

	"github.com/gethiox/evmoused/internal/pkg/clock"
	"github.com/gethiox/evmoused/internal/pkg/config"
	"github.com/gethiox/evmoused/internal/pkg/daemon"
	"github.com/gethiox/evmoused/internal/pkg/input"
	"github.com/gethiox/evmoused/internal/pkg/logger"
	"github.com/gethiox/evmoused/internal/pkg/quirks"
	"github.com/gethiox/evmoused/internal/pkg/sink"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

type manager struct {
	settings *settings
	flags    *pflag.FlagSet

	restart chan bool
	pause   chan bool
	current atomic.Pointer[daemon.Daemon]
}

func newManager(s *settings, flags *pflag.FlagSet) *manager {
	return &manager{
		settings: s,
		flags:    flags,
		restart:  make(chan bool, 1),
		pause:    make(chan bool, 1),
	}
}

func notify(c chan<- bool) {
	select {
	case c <- true:
	default: // already pending
	}
}

// baseOptions layers the config file and the command line over defaults,
// quirks are resolved later, once the device is known.
func (m *manager) baseOptions() (config.Options, error) {
	opts := config.Default()
	err := config.LoadFile(m.settings.configPath, &opts)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return opts, err
		}
		log.Info(fmt.Sprintf("config file not found: %v", err), logger.Warning)
	}
	err = m.settings.apply(m.flags, &opts)
	return opts, err
}

// options resolves the final settings of one device: defaults, then its
// quirk, then the config file and finally explicit flags.
func (m *manager) options(caps input.Capabilities, db *quirks.Database) (config.Options, error) {
	fields := []zap.Field{zap.String("device_name", caps.Name), zap.String("device_class", caps.Class.String())}
	opts := config.Default()

	q, err := db.Find(caps.Class, caps.ID)
	switch {
	case errors.Is(err, quirks.ErrNoQuirk):
		log.Info("no quirk matches the device, using defaults", append(fields, logger.Info)...)
	case err != nil:
		return opts, err
	default:
		log.Info(fmt.Sprintf("using %s", q.String()), append(fields, zap.String("quirk", q.Name), logger.Info)...)
		err = q.Apply(&opts)
		if err != nil {
			return opts, err
		}
	}

	err = config.LoadFile(m.settings.configPath, &opts)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return opts, err
	}
	err = m.settings.apply(m.flags, &opts)
	if err != nil {
		return opts, err
	}
	return opts, opts.Validate()
}

func (m *manager) openSink(opts config.Options) sink.Sink {
	if m.settings.logOnly() {
		log.Info("events are logged only", logger.Info)
		return sink.Log{}
	}
	u, err := sink.NewUinput(opts.UinputName)
	if err != nil {
		log.Info(fmt.Sprintf("%v, events are logged only", err), logger.Warning)
		return sink.Log{}
	}
	return sink.Multi{u, sink.Log{}}
}

// idle waits for a restart request after the device was rejected.
func (m *manager) idle(ctx context.Context) error {
	log.Info("waiting for a restart request", logger.Info)
	select {
	case <-ctx.Done():
		return nil
	case <-m.restart:
		return daemon.ErrRestart
	}
}

// session opens the device and drives it until the daemon loop ends.
func (m *manager) session(ctx context.Context, port string) error {
	db, err := quirks.Load(m.settings.quirkRoot())
	if err != nil {
		return err
	}
	log.Info(fmt.Sprintf("%d quirks loaded from %s", db.Count(), m.settings.quirkRoot()), logger.Debug)

	dev, err := input.Open(port)
	if errors.Is(err, input.ErrUnsupportedDevice) {
		log.Info(fmt.Sprintf("unsupported device %s", dev), logger.Error)
		if m.settings.foreground {
			return err
		}
		return m.idle(ctx)
	}
	if err != nil {
		return err
	}
	log.Info(fmt.Sprintf("opened device %s", dev), logger.Info)

	opts, err := m.options(dev.Capabilities, db)
	if err != nil {
		_ = dev.Close()
		return err
	}

	out := m.openSink(opts)
	defer func() {
		err := out.Close()
		if err != nil {
			log.Info(fmt.Sprintf("closing output failed: %v", err), logger.Warning)
		}
	}()

	d, err := daemon.New(dev, dev.Capabilities, opts, out, clock.System{})
	if err != nil {
		_ = dev.Close()
		return err
	}
	m.current.Store(d)
	defer m.current.Store(nil)

	return d.Run(ctx, m.restart, m.pause)
}

// run restarts sessions until ctx is done or one of them fails.
func (m *manager) run(ctx context.Context, port string) error {
	log.Info("Run manager", logger.Debug)

	changes, err := quirks.DetectChanges(ctx, m.settings.quirkRoot())
	if err != nil {
		log.Info(fmt.Sprintf("quirk monitor disabled: %v", err), logger.Warning)
	} else {
		go func() {
			for range changes {
				notify(m.restart)
			}
		}()
	}

	for {
		err := m.session(ctx, port)
		if errors.Is(err, daemon.ErrRestart) {
			log.Info("restarting", logger.Info)
			continue
		}
		return err
	}
}
