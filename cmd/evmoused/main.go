package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/awesome-gocui/gocui"
	"github.com/gethiox/evmoused/internal/pkg/config"
	"github.com/gethiox/evmoused/internal/pkg/input"
	"github.com/gethiox/evmoused/internal/pkg/logger"
	"github.com/logrusorgru/aurora"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var cfg settings

var rootCmd = &cobra.Command{
	Use:   "evmoused",
	Short: "Mouse and touchpad daemon for evdev devices",
	Long: `evmoused reads a pointing device through evdev and feeds a virtual mouse.
It handles button emulation and remapping, virtual scrolling, drift filtering,
acceleration and touchpad gestures. Device specific defaults come from quirk files.`,
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd.Flags(), &cfg)
	},
}

func init() {
	cfg.register(rootCmd.Flags())
}

func handleSigs(sigs <-chan os.Signal, cancel func(), m *manager) {
	var terminating bool
	for sig := range sigs {
		log.Info(fmt.Sprintf("signal received: %v", sig), logger.Debug)
		switch sig {
		case syscall.SIGHUP:
			notify(m.restart)
		case syscall.SIGUSR1:
			notify(m.pause)
		default:
			if terminating {
				fmt.Fprintln(os.Stderr, "Dirty exit")
				os.Exit(1)
			}
			terminating = true
			cancel()
		}
	}
}

func runIdentify(s *settings, port string) error {
	if err := validIdentifyMode(s.identify); err != nil {
		return err
	}

	var caps input.Capabilities
	dev, err := input.Open(port)
	if dev != nil {
		caps = dev.Capabilities
		if err == nil {
			_ = dev.Close()
		}
	}
	return identify(os.Stdout, s.identify, caps, err)
}

func run(flags *pflag.FlagSet, s *settings) error {
	au := aurora.NewAurora(!s.noColor)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m := newManager(s, flags)

	if s.identify != "" {
		logger.Silent = true
		opts, err := m.baseOptions()
		if err != nil {
			return err
		}
		if opts.Port == "" {
			return fmt.Errorf("%w: no port name specified", config.ErrInvalidOption)
		}
		return runIdentify(s, opts.Port)
	}

	var sigs = make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT, syscall.SIGHUP, syscall.SIGUSR1)
	defer signal.Stop(sigs)
	go handleSigs(sigs, cancel, m)

	// renderers have to outlive everything that logs
	renderCtx, stopRender := context.WithCancel(context.Background())
	wg := sync.WaitGroup{}
	var g *gocui.Gui
	defer func() {
		stopRender()
		wg.Wait()
		if g != nil {
			g.Close()
		}
	}()

	if s.ui {
		var err error
		g, err = newGui()
		if err != nil {
			return fmt.Errorf("gui init failed: %w", err)
		}
		runUI(g, cancel)

		wg.Add(2)
		go func() {
			defer wg.Done()
			logView(renderCtx, g, au, s.level())
		}()
		go func() {
			defer wg.Done()
			overviewView(renderCtx, g, au, &m.current)
		}()
	} else {
		wg.Add(1)
		go func() {
			defer wg.Done()
			renderLogs(renderCtx, os.Stderr, au, s.level())
		}()
	}

	err := bootstrapConfig(templateConfig, s.configRoot())
	if err != nil {
		return err
	}

	opts, err := m.baseOptions()
	if err != nil {
		return err
	}
	err = opts.Validate()
	if err != nil {
		return err
	}

	return m.run(ctx, opts.Port)
}

func main() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
