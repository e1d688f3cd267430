package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"deedles.dev/wlt/internal/config"
	"github.com/adrg/xdg"
	"github.com/spf13/cobra"
)

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or create the configuration file",
	}
	cmd.AddCommand(configDumpCmd(), configInitCmd())
	return cmd
}

func configDumpCmd() *cobra.Command {
	var path string

	cmd := &cobra.Command{
		Use:   "dump",
		Short: "Print the effective configuration as TOML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(path, cmd.Flags())
			if err != nil {
				return err
			}
			return config.Dump(cmd.OutOrStdout(), cfg)
		},
	}
	cmd.Flags().StringVarP(&path, "config", "c", "", "configuration file")
	return cmd
}

func configInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Write the default configuration",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := filepath.Join(xdg.ConfigHome, config.RelPath)
			if len(args) > 0 {
				path = args[0]
			}

			_, err := os.Stat(path)
			if err == nil && !force {
				return fmt.Errorf("%v already exists", path)
			}
			if err != nil && !errors.Is(err, fs.ErrNotExist) {
				return err
			}

			err = config.WriteDefault(path)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite an existing file")
	return cmd
}
