package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"deedles.dev/wlt/internal/backend"
	"deedles.dev/wlt/internal/backend/drm"
	"deedles.dev/wlt/internal/backend/evdev"
	"deedles.dev/wlt/internal/backend/headless"
	"deedles.dev/wlt/internal/backend/nested"
	"deedles.dev/wlt/internal/compositor"
	"deedles.dev/wlt/internal/config"
	"deedles.dev/wlt/internal/ipc"
	"deedles.dev/wlt/internal/loop"
	"deedles.dev/wlt/internal/output"
	"deedles.dev/wlt/internal/session"
	"deedles.dev/wlt/wire"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

type mode int

const (
	modeAuto mode = iota
	modeNested
	modeStandalone
	modeHeadless
)

func (m mode) String() string {
	switch m {
	case modeNested:
		return "nested"
	case modeStandalone:
		return "standalone"
	case modeHeadless:
		return "headless"
	}
	return "auto"
}

type startOptions struct {
	mode   mode
	config string
	socket string
}

func startCmd() *cobra.Command {
	var (
		opts                         startOptions
		nest, standalone, headlessed bool
	)

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Run the compositor",
		Long: `Run the compositor.

Without a mode flag, wlt runs nested if WAYLAND_DISPLAY is set and
standalone otherwise.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			switch {
			case nest:
				opts.mode = modeNested
			case standalone:
				opts.mode = modeStandalone
			case headlessed:
				opts.mode = modeHeadless
			}
			return start(cmd.Context(), cmd.Flags(), opts)
		},
	}

	flags := cmd.Flags()
	flags.BoolVar(&nest, "nested", false, "run in a window of another Wayland compositor")
	flags.BoolVar(&standalone, "standalone", false, "drive the hardware directly from a virtual terminal")
	flags.BoolVar(&headlessed, "headless", false, "run without a display or input devices")
	flags.StringVarP(&opts.config, "config", "c", "", "configuration file")
	flags.StringVar(&opts.socket, "socket", "", "Wayland socket name (default: first free wayland-N)")
	cmd.MarkFlagsMutuallyExclusive("nested", "standalone", "headless")

	return cmd
}

func start(ctx context.Context, flags *pflag.FlagSet, opts startOptions) error {
	cfg, err := config.Load(opts.config, flags)
	if err != nil {
		logrus.WithError(err).Warn("using the default configuration")
	}
	err = setupLog(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		logrus.WithError(err).Warn("invalid log settings in config")
	}

	if opts.mode == modeAuto {
		opts.mode = modeStandalone
		if _, ok := os.LookupEnv("WAYLAND_DISPLAY"); ok {
			opts.mode = modeNested
		}
	}

	l, err := loop.New()
	if err != nil {
		return fmt.Errorf("create event loop: %w", err)
	}
	defer l.Close()

	var sess *session.Session
	if opts.mode == modeStandalone {
		sess, err = session.Open()
		if err != nil {
			return fmt.Errorf("open session: %w", err)
		}
		defer func() {
			err := sess.Close()
			if err != nil {
				logrus.WithError(err).Warn("restore VT")
			}
		}()
	}

	b, err := openBackend(opts.mode, cfg)
	if err != nil {
		return fmt.Errorf("open %v backend: %w", opts.mode, err)
	}

	lis, err := wire.Listen(opts.socket)
	if err != nil {
		b.Close()
		return fmt.Errorf("listen: %w", err)
	}
	defer lis.Close()

	s, err := compositor.New(compositor.Options{
		Config:   cfg,
		Loop:     l,
		Backend:  b,
		Listener: lis,
		IPCPath:  ipc.SocketPath(),
	})
	if err != nil {
		return err
	}
	defer func() {
		err := s.Close()
		if err != nil {
			logrus.WithError(err).Warn("shutdown")
		}
	}()

	if p, ok := b.(backend.Pauser); ok && sess != nil {
		err := sess.Start(l, p)
		if err != nil {
			logrus.WithError(err).Warn("VT switching unavailable")
		}
	}

	os.Setenv("WAYLAND_DISPLAY", lis.Name())
	logrus.WithFields(logrus.Fields{
		"socket": lis.Name(),
		"mode":   opts.mode,
	}).Info("compositor started")

	err = s.Run(ctx)
	if err != nil {
		return err
	}
	logrus.Info("exiting")
	return nil
}

func openBackend(m mode, cfg *config.Config) (backend.Backend, error) {
	switch m {
	case modeHeadless:
		return headless.New(), nil

	case modeNested:
		opts := nested.Options{Title: "wlt"}
		spec, err := output.ParseMode(cfg.Display.Mode)
		if err != nil {
			logrus.WithError(err).Warn("ignoring display mode")
		}
		if spec != nil {
			opts.Width, opts.Height = spec.Width, spec.Height
		}
		return nested.Open(opts)

	case modeStandalone:
		display, err := drm.Open(drm.Options{
			Device: cfg.Display.DevicePath(),
			VRR:    cfg.Display.VRR,
		})
		if err != nil {
			return nil, err
		}
		input, err := evdev.Open()
		if err != nil {
			display.Close()
			return nil, err
		}
		if len(input.Devices()) == 0 {
			input.Close()
			display.Close()
			return nil, errors.New("no input devices")
		}
		return backend.Group{display, input}, nil
	}
	return nil, fmt.Errorf("unknown mode %v", m)
}
