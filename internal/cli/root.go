// Package cli provides the command-line interface for dotwalk.
package cli

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/CageChen/dotwalk/internal/config"
	"github.com/CageChen/dotwalk/internal/logging"
)

// Version is set by the main package at startup.
var Version = "v0.1.0-dev"

// app carries state resolved once per invocation by the root command.
type app struct {
	cfg *config.Config
	log zerolog.Logger
}

// NewRootCmd creates the root command with the serve, ls, find and tree
// subcommands.
func NewRootCmd() *cobra.Command {
	a := &app{log: zerolog.Nop()}

	rootCmd := &cobra.Command{
		Use:   "dotwalk",
		Short: "Browse and search directory trees with dot-entries hidden by default",
		Long: `dotwalk lists, searches and previews local folders or git refs.

Entries whose names start with "." are skipped unless --show-dot is given.
Skipped directories are never descended into.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cmd.Flags())
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			a.cfg = cfg
			a.log = logging.New(os.Stderr, cfg.LogLevel, cfg.LogFormat)
			return nil
		},
	}

	config.RegisterFlags(rootCmd.PersistentFlags())

	rootCmd.AddCommand(newServeCmd(a))
	rootCmd.AddCommand(newLsCmd(a))
	rootCmd.AddCommand(newFindCmd(a))
	rootCmd.AddCommand(newTreeCmd(a))

	return rootCmd
}
