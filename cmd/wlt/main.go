// Command wlt is a tiling Wayland compositor.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"deedles.dev/wlt/internal/debug"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sys/unix"

	_ "github.com/gogpu/gg/gpu"
)

var version = "dev"

// setupLog configures the standard logrus logger.
func setupLog(level, format string) error {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return err
	}
	if debug.Enabled() {
		lvl = logrus.TraceLevel
	}
	logrus.SetLevel(lvl)

	switch format {
	case "", "text":
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	case "json":
		logrus.SetFormatter(&logrus.JSONFormatter{})
	default:
		return fmt.Errorf("unknown log format %q", format)
	}
	return nil
}

func rootCmd() *cobra.Command {
	var level, format string

	cmd := &cobra.Command{
		Use:           "wlt",
		Short:         "A tiling Wayland compositor",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setupLog(level, format)
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&level, "log-level", "info", "log level (trace, debug, info, warn, error)")
	flags.StringVar(&format, "log-format", "text", "log format (text or json)")

	cmd.AddCommand(
		startCmd(),
		statusCmd(),
		configCmd(),
		versionCmd(),
	)
	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "wlt", version)
		},
	}
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, unix.SIGTERM, unix.SIGHUP)
	defer cancel()

	err := rootCmd().ExecuteContext(ctx)
	if err != nil {
		logrus.Error(err)
		cancel()
		os.Exit(1)
	}
}
